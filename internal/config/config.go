// Package config loads and writes the server's rmi.config credential file
// (spec §6.3) and derives a non-secret fingerprint of the loaded credentials
// for logging.
package config

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/l16dev/rmi/internal/rmiproto"
)

// DefaultUsername and DefaultPassword are written when rmi.config is absent.
const (
	DefaultUsername = "l16"
	DefaultPassword = "l16"
)

// Load reads credentials from path, accepting any of the three shapes from
// spec §6.3:
//
//  1. key=value lines: username=USER / password=PASS, order-independent.
//  2. one line "USER:PASS" or "USER<whitespace>PASS".
//  3. two lines: username then password.
//
// If path does not exist, Load writes the defaults to it and returns them.
// A present-but-malformed file is a fatal startup error, returned as-is.
func Load(path string) (rmiproto.Credentials, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return writeDefaults(path)
	}
	if err != nil {
		return rmiproto.Credentials{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	lines, err := readNonEmptyLines(f)
	if err != nil {
		return rmiproto.Credentials{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(lines) == 0 {
		return rmiproto.Credentials{}, fmt.Errorf("config: %s is empty", path)
	}

	if creds, ok := parseKeyValue(lines); ok {
		return validate(creds)
	}
	if len(lines) == 1 {
		if creds, ok := parseSingleLine(lines[0]); ok {
			return validate(creds)
		}
		return rmiproto.Credentials{}, fmt.Errorf("config: malformed single-line credentials in %s", path)
	}
	// Two-line shape: username then password.
	return validate(rmiproto.Credentials{Username: lines[0], Password: lines[1]})
}

func validate(c rmiproto.Credentials) (rmiproto.Credentials, error) {
	if c.Username == "" || c.Password == "" {
		return rmiproto.Credentials{}, fmt.Errorf("config: username and password must both be non-empty")
	}
	return c, nil
}

func readNonEmptyLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func parseKeyValue(lines []string) (rmiproto.Credentials, bool) {
	var creds rmiproto.Credentials
	found := 0
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return rmiproto.Credentials{}, false
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "username":
			creds.Username = strings.TrimSpace(value)
			found++
		case "password":
			creds.Password = strings.TrimSpace(value)
			found++
		default:
			return rmiproto.Credentials{}, false
		}
	}
	return creds, found == len(lines) && found > 0
}

func parseSingleLine(line string) (rmiproto.Credentials, bool) {
	if user, pass, ok := strings.Cut(line, ":"); ok {
		return rmiproto.Credentials{Username: user, Password: pass}, true
	}
	fields := strings.Fields(line)
	if len(fields) == 2 {
		return rmiproto.Credentials{Username: fields[0], Password: fields[1]}, true
	}
	return rmiproto.Credentials{}, false
}

func writeDefaults(path string) (rmiproto.Credentials, error) {
	creds := rmiproto.Credentials{Username: DefaultUsername, Password: DefaultPassword}
	content := fmt.Sprintf("username=%s\npassword=%s\n", creds.Username, creds.Password)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return rmiproto.Credentials{}, fmt.Errorf("config: write defaults to %s: %w", path, err)
	}
	return creds, nil
}

// Fingerprint derives a non-secret, deterministic hash of creds suitable
// for a startup log line, so the plaintext password is never printed. It
// has no bearing on wire authentication, which stays a byte-for-byte
// plaintext comparison per spec.
func Fingerprint(creds rmiproto.Credentials) string {
	kdf := hkdf.New(sha256.New, []byte(creds.Username+"\x00"+creds.Password), []byte("rmi-config-fingerprint"), nil)
	out := make([]byte, 8)
	if _, err := io.ReadFull(kdf, out); err != nil {
		// hkdf.Read only fails if more bytes are requested than the
		// expand step can produce; 8 bytes from a SHA-256 HKDF never does.
		panic(err)
	}
	return hex.EncodeToString(out)
}
