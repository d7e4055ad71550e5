package lang

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errNumberRange     = errors.New("numeric literal out of range")
	errNumberSeparator = errors.New("misplaced digit separator '_'")
)

// parseIntLiteral decodes a decimal, 0x hexadecimal, or 0b binary literal
// with optional '_' separators between digits.
func parseIntLiteral(lit string) (int64, error) {
	base, digits := 10, lit

	if len(lit) >= 2 && lit[0] == '0' {
		switch lit[1] {
		case 'x', 'X':
			base, digits = 16, lit[2:]
		case 'b', 'B':
			base, digits = 2, lit[2:]
		}
	}

	if err := validateDigits(digits, base); err != nil {
		return 0, fmt.Errorf("invalid integer literal %q: %w", lit, err)
	}

	u, err := strconv.ParseUint(stripUnderscores(digits), base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q: %w", lit, errNumberRange)
	}

	// Hex and binary literals may spell the full 64-bit pattern.
	if base == 10 && u > 1<<63-1 {
		return 0, fmt.Errorf("invalid integer literal %q: %w", lit, errNumberRange)
	}

	return int64(u), nil
}

// parseRealLiteral decodes a decimal real literal (suffix already removed).
func parseRealLiteral(lit string) (float64, error) {
	mantissa, exp, hasExp := strings.Cut(strings.ToLower(lit), "e")

	whole, frac, _ := strings.Cut(mantissa, ".")
	for _, part := range []string{whole, frac} {
		if part == "" {
			continue
		}

		if err := validateDigits(part, 10); err != nil {
			return 0, fmt.Errorf("invalid real literal %q: %w", lit, err)
		}
	}

	if hasExp {
		digits := strings.TrimLeft(exp, "+-")
		if err := validateDigits(digits, 10); err != nil {
			return 0, fmt.Errorf("invalid real literal %q: %w", lit, err)
		}
	}

	v, err := strconv.ParseFloat(stripUnderscores(lit), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("invalid real literal %q: %w", lit, errNumberRange)
		}

		return 0, fmt.Errorf("invalid real literal %q", lit)
	}

	return v, nil
}

func validateDigits(digits string, base int) error {
	if digits == "" {
		return errors.New("missing digits")
	}

	if digits[0] == '_' || digits[len(digits)-1] == '_' ||
		strings.Contains(digits, "__") {
		return errNumberSeparator
	}

	for _, r := range digits {
		if r == '_' {
			continue
		}

		if digitValue(r) >= base {
			return fmt.Errorf("invalid digit %q for base %d", r, base)
		}
	}

	return nil
}

func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	default:
		return 99
	}
}

func stripUnderscores(s string) string {
	return strings.ReplaceAll(s, "_", "")
}
