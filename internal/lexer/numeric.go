package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseNumericLiteral implements the numeric-literal table from §4.2:
// decimal, hex, octal, and binary values may each be written with a
// prefix or a suffix, underscores are discarded as readability
// separators, and negation is applied after base parsing so that
// "-42" and "-0x2A" agree.
func ParseNumericLiteral(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty numeric literal")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return 0, fmt.Errorf("empty numeric literal %q", raw)
	}
	lower := strings.ToLower(s)

	var base int
	var digits string

	switch {
	case strings.HasPrefix(lower, "0x"):
		base, digits = 16, s[2:]
	case strings.HasPrefix(lower, "0h"):
		base, digits = 16, s[2:]
	case strings.HasPrefix(s, "$"):
		base, digits = 16, s[1:]
		if err := requireHexLeadingZero(digits); err != nil {
			return 0, fmt.Errorf("malformed numeric literal %q: %w", raw, err)
		}
	case strings.HasPrefix(lower, "0o"):
		base, digits = 8, s[2:]
	case strings.HasPrefix(lower, "0q"):
		base, digits = 8, s[2:]
	case strings.HasPrefix(lower, "0b"):
		base, digits = 2, s[2:]
	case strings.HasPrefix(lower, "0y"):
		base, digits = 2, s[2:]
	case strings.HasPrefix(lower, "0d"):
		base, digits = 10, s[2:]
	case strings.HasSuffix(lower, "h") && isDigitsOfBase(s[:len(s)-1], 16):
		digits = s[:len(s)-1]
		base = 16
		if err := requireHexLeadingZero(digits); err != nil {
			return 0, fmt.Errorf("malformed numeric literal %q: %w", raw, err)
		}
	case strings.HasSuffix(lower, "q") && isDigitsOfBase(s[:len(s)-1], 8):
		base, digits = 8, s[:len(s)-1]
	case strings.HasSuffix(lower, "o") && isDigitsOfBase(s[:len(s)-1], 8):
		base, digits = 8, s[:len(s)-1]
	case strings.HasSuffix(lower, "b") && isDigitsOfBase(s[:len(s)-1], 2):
		base, digits = 2, s[:len(s)-1]
	case strings.HasSuffix(lower, "y") && isDigitsOfBase(s[:len(s)-1], 2):
		base, digits = 2, s[:len(s)-1]
	case strings.HasSuffix(lower, "d") && isDigitsOfBase(s[:len(s)-1], 10):
		base, digits = 10, s[:len(s)-1]
	default:
		base, digits = 10, s
	}

	if digits == "" {
		return 0, fmt.Errorf("malformed numeric literal %q: no digits", raw)
	}
	if !isDigitsOfBase(digits, base) {
		return 0, fmt.Errorf("malformed numeric literal %q: invalid digit for base %d", raw, base)
	}

	val, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		uval, uerr := strconv.ParseUint(digits, base, 64)
		if uerr != nil {
			return 0, fmt.Errorf("malformed numeric literal %q: %v", raw, err)
		}
		val = int64(uval)
	}
	if neg {
		val = -val
	}
	return val, nil
}

// requireHexLeadingZero enforces the §4.2 rule that a hex literal
// whose first digit is a letter A-F must carry an explicit leading
// zero digit ("$0C8", "0c8h"), distinguishing it from a bare
// identifier.
func requireHexLeadingZero(digits string) error {
	if digits == "" {
		return fmt.Errorf("no digits")
	}
	c := digits[0]
	isAlpha := (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
	if isAlpha {
		return fmt.Errorf("hex literal starting with a letter digit needs a leading 0")
	}
	return nil
}

func isDigitsOfBase(s string, base int) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'a' && c <= 'f':
			v = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int(c-'A') + 10
		default:
			return false
		}
		if v >= base {
			return false
		}
	}
	return true
}
