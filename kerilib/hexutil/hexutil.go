// Package hexutil parses and formats the unsigned hex integers that KERI
// event fields (sn, sith, toad) use: lowercase, no leading zeros, no "0x"
// prefix on the wire, but callers are tolerant of "0x"-prefixed input.
package hexutil

import (
	"fmt"
	"strconv"
)

// ParseUint64 parses s as a hex integer. An optional "0x"/"0X" prefix is
// accepted on input even though KERI never emits one. The empty string
// parses as zero.
func ParseUint64(s string) (uint64, bool) {
	if s == "" {
		return 0, true
	}
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 64)
	return v, err == nil
}

// MustParseUint64 parses s and panics on malformed input. Reserved for
// constants and tests, never for untrusted wire data.
func MustParseUint64(s string) uint64 {
	v, ok := ParseUint64(s)
	if !ok {
		panic("hexutil: invalid hex integer: " + s)
	}
	return v
}

// FormatUint64 renders v as lowercase hex with no leading zeros and no
// "0x" prefix, matching the wire format required by spec.md §3.
func FormatUint64(v uint64) string {
	return strconv.FormatUint(v, 16)
}

// SafeAddUint64 returns x+y and reports whether the addition overflowed.
func SafeAddUint64(x, y uint64) (uint64, bool) {
	sum := x + y
	return sum, sum < x
}

// CeilDiv returns ceil(x/y), or 0 if y is 0.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}

// ParseHexByte parses s as an unsigned hex integer that must be exactly
// width characters long, rejecting any other length.
func ParseHexByte(s string, width int) (uint64, error) {
	if len(s) != width {
		return 0, fmt.Errorf("hexutil: expected %d hex chars, got %d", width, len(s))
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("hexutil: malformed hex %q: %w", s, err)
	}
	return v, nil
}
