package server

import (
	"fmt"
	"strconv"
)

// parseStrictInt parses tok as a decimal integer, requiring the entire
// token to be consumed and permitting no sign other than a leading minus
// (spec §4.2 argument parsing rule). It does not itself enforce range:
// sizes go through parseNonNegativeUint32, and a keycode outside the
// injector's table (negative ones included) makes the injector fail.
func parseStrictInt(tok string) (int64, error) {
	for i, r := range tok {
		if r == '-' && i == 0 {
			continue
		}
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("server: %q is not a valid integer", tok)
		}
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("server: %q is not a valid integer: %w", tok, err)
	}
	return n, nil
}

// parseNonNegativeUint32 parses tok the way parseStrictInt does and further
// rejects negative values and anything exceeding uint32, matching the
// "rejected as out-of-range for keycodes/sizes" clause.
func parseNonNegativeUint32(tok string) (uint32, error) {
	n, err := parseStrictInt(tok)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(^uint32(0)) {
		return 0, fmt.Errorf("server: %q out of range", tok)
	}
	return uint32(n), nil
}
