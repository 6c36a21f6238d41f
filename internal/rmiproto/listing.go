package rmiproto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/l16dev/rmi/internal/wire"
)

// EncodeListing renders entries as the newline-terminated line format from
// spec §6.2: "D\t<name>\n" for directories, "F\t<name>\t<size>\n" for files.
// Entries with an empty name or a name containing a tab are skipped, since
// the wire format cannot represent them.
func EncodeListing(entries []FileEntry) []byte {
	var b strings.Builder
	for _, e := range entries {
		if e.Name == "" || strings.Contains(e.Name, "\t") {
			continue
		}
		if e.IsDir {
			fmt.Fprintf(&b, "D\t%s\n", e.Name)
		} else {
			fmt.Fprintf(&b, "F\t%s\t%d\n", e.Name, e.Size)
		}
	}
	return []byte(b.String())
}

// ParseListing parses a LIST response body into entries, skipping malformed
// or empty-name lines rather than failing the whole parse.
func ParseListing(payload []byte) []FileEntry {
	lines := strings.Split(string(payload), "\n")
	entries := make([]FileEntry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		switch {
		case len(parts) == 2 && parts[0] == "D":
			if parts[1] == "" {
				continue
			}
			entries = append(entries, FileEntry{Name: parts[1], IsDir: true})
		case len(parts) == 3 && parts[0] == "F":
			if parts[1] == "" {
				continue
			}
			size, err := strconv.ParseUint(parts[2], 10, 64)
			if err != nil {
				continue
			}
			entries = append(entries, FileEntry{Name: parts[1], Size: size})
		default:
			continue
		}
	}
	return entries
}

// FormatVersion renders the VERSION response payload for counter n.
func FormatVersion(n uint64) []byte {
	return []byte(RespVersionPrefix + strconv.FormatUint(n, 10))
}

// ParseVersion parses a VERSION response payload, requiring the exact
// "VERSION " prefix and that the remainder be consumed entirely as a
// non-negative decimal integer (leading zeros are fine; any trailing
// non-digit rejects the frame).
func ParseVersion(payload []byte) (uint64, error) {
	if !wire.PayloadStartsWith(payload, RespVersionPrefix) {
		return 0, fmt.Errorf("rmiproto: missing %q prefix", RespVersionPrefix)
	}
	digits := string(payload[len(RespVersionPrefix):])
	if digits == "" {
		return 0, fmt.Errorf("rmiproto: empty version number")
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rmiproto: malformed version number %q: %w", digits, err)
	}
	return n, nil
}
