// Package sysaction implements the RMI server's opaque device actions:
// key press, high-level press-input with a launcher fallback chain, app
// open, and screen capture. Spec §1 treats these as external collaborators
// with a fixed contract; this package supplies that contract using the
// cross-platform automation and capture libraries carried by the retrieval
// pack, in the same shell-out-with-fallback style the teacher's agent uses
// for its own capture/input code.
package sysaction

import (
	"bytes"
	"fmt"
	"image/png"
	"os/exec"
	"runtime"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
)

// maxScreencapBytes bounds the encoded PNG buffer per spec §9's "reject
// when the accumulated size would exceed 2^32-1" guidance, scaled down to a
// sane in-memory cap for a single frame.
const maxScreencapBytes = 64 << 20 // 64 MiB

// keycodeName maps a subset of low-level Linux input-event keycodes to the
// key names robotgo's KeyTap accepts. PRESS is documented as a raw keycode
// injection verb; codes outside this table return an error rather than
// guessing.
var keycodeName = map[int]string{
	1:  "esc",
	14: "backspace",
	15: "tab",
	28: "enter",
	57: "space",
	103: "up",
	105: "left",
	106: "right",
	108: "down",
	111: "delete",
}

// PressKey injects a single low-level key event identified by keycode.
func PressKey(keycode int) error {
	name, ok := keycodeName[keycode]
	if !ok {
		return fmt.Errorf("sysaction: unmapped keycode %d", keycode)
	}
	return robotgo.KeyTap(name)
}

// PressInput injects a high-level key event, trying robotgo first and, if
// that fails (e.g. no accessibility permission, no X11 session), falling
// back to a chain of platform-native launchers — the same "try the next
// tool" shape as the teacher's capture fallback chain, generalized from
// screenshot tools to key-injection tools.
func PressInput(keycode int) error {
	if name, ok := keycodeName[keycode]; ok {
		if err := robotgo.KeyTap(name); err == nil {
			return nil
		}
	}
	for _, launcher := range pressInputFallbacks(keycode) {
		if launcher() == nil {
			return nil
		}
	}
	return fmt.Errorf("sysaction: no press-input launcher succeeded for keycode %d", keycode)
}

// pressInputFallbacks returns platform-specific launcher attempts, most
// preferred first, mirroring the teacher's cliclick → xdotool → PowerShell
// per-OS dispatch in cmd/agent/input.go.
func pressInputFallbacks(keycode int) []func() error {
	name, ok := keycodeName[keycode]
	if !ok {
		return nil
	}
	switch runtime.GOOS {
	case "darwin":
		return []func() error{
			func() error { return exec.Command("cliclick", "kp:"+name).Run() },
		}
	case "linux":
		return []func() error{
			func() error { return exec.Command("xdotool", "key", xdotoolKeyName(name)).Run() },
		}
	case "windows":
		return []func() error{
			func() error {
				return exec.Command("powershell", "-Command",
					fmt.Sprintf(`Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait("%s")`, sendKeysName(name))).Run()
			},
		}
	default:
		return nil
	}
}

func xdotoolKeyName(name string) string {
	switch name {
	case "enter":
		return "Return"
	case "backspace":
		return "BackSpace"
	case "up":
		return "Up"
	case "down":
		return "Down"
	case "left":
		return "Left"
	case "right":
		return "Right"
	case "space":
		return "space"
	case "delete":
		return "Delete"
	case "esc":
		return "Escape"
	default:
		return name
	}
}

func sendKeysName(name string) string {
	switch name {
	case "enter":
		return "{ENTER}"
	case "backspace":
		return "{BACKSPACE}"
	case "up":
		return "{UP}"
	case "down":
		return "{DOWN}"
	case "left":
		return "{LEFT}"
	case "right":
		return "{RIGHT}"
	case "esc":
		return "{ESC}"
	case "delete":
		return "{DEL}"
	default:
		return name
	}
}

// OpenApp launches target using the platform's default opener.
func OpenApp(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	default: // linux and other unix-likes
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("sysaction: open %s: %w", target, err)
	}
	return nil
}

// CaptureScreen captures the primary display and returns it PNG-encoded.
// The PNG encoding step is the one place this module reaches for the
// standard library codec: spec §1 names PNG decode/encode an external
// collaborator with a fixed bytes contract, and image/png is that
// contract's reference implementation for the encode direction the server
// (rather than the client) needs.
func CaptureScreen() ([]byte, error) {
	bounds := screenshot.GetDisplayBounds(0)
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("sysaction: capture display: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("sysaction: encode png: %w", err)
	}
	if buf.Len() > maxScreencapBytes {
		return nil, fmt.Errorf("sysaction: screencap exceeds %d bytes", maxScreencapBytes)
	}
	return buf.Bytes(), nil
}
