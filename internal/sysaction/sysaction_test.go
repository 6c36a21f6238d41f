package sysaction

import (
	"runtime"
	"testing"
)

func TestPressKeyUnmappedKeycode(t *testing.T) {
	if err := PressKey(9999); err == nil {
		t.Fatal("expected error for unmapped keycode")
	}
}

func TestPressInputFallbacksUnmappedKeycode(t *testing.T) {
	if got := pressInputFallbacks(9999); got != nil {
		t.Fatalf("expected nil fallbacks for unmapped keycode, got %d entries", len(got))
	}
}

func TestXdotoolKeyNameTranslatesKnownKeys(t *testing.T) {
	cases := map[string]string{
		"enter":     "Return",
		"backspace": "BackSpace",
		"up":        "Up",
		"down":      "Down",
		"left":      "Left",
		"right":     "Right",
		"space":     "space",
		"delete":    "Delete",
		"esc":       "Escape",
	}
	for in, want := range cases {
		if got := xdotoolKeyName(in); got != want {
			t.Errorf("xdotoolKeyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestXdotoolKeyNamePassesThroughUnknown(t *testing.T) {
	if got := xdotoolKeyName("tab"); got != "tab" {
		t.Errorf("xdotoolKeyName(tab) = %q, want passthrough %q", got, "tab")
	}
}

func TestSendKeysNameTranslatesKnownKeys(t *testing.T) {
	cases := map[string]string{
		"enter":     "{ENTER}",
		"backspace": "{BACKSPACE}",
		"up":        "{UP}",
		"down":      "{DOWN}",
		"left":      "{LEFT}",
		"right":     "{RIGHT}",
		"esc":       "{ESC}",
		"delete":    "{DEL}",
	}
	for in, want := range cases {
		if got := sendKeysName(in); got != want {
			t.Errorf("sendKeysName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeycodeNameCoversDocumentedCodes(t *testing.T) {
	// Every code with a name must also produce a non-nil fallback chain on
	// at least the linux branch, since PressInput relies on the same table.
	for code, name := range keycodeName {
		if name == "" {
			t.Errorf("keycode %d has empty name", code)
		}
		if runtime.GOOS == "linux" && len(pressInputFallbacks(code)) == 0 {
			t.Errorf("keycode %d (%s) has no linux fallback chain", code, name)
		}
	}
}
