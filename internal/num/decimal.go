// Package num pins down the numeric policy for the risk engine: exact
// decimal arithmetic via shopspring/decimal, a single division scale, and a
// strict canonical wire form (no exponent notation, sign leading).
package num

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DivScale is the fractional-digit scale applied at every division boundary.
// Addition, subtraction, and multiplication are exact; division is the only
// operation that rounds, and it always rounds here.
const DivScale = 28

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// Div divides a by b, rounding half away from zero at DivScale.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivScale)
}

// Parse converts a canonical decimal string into a decimal value.
// Accepted form: optional leading '-', one or more digits, optional '.'
// followed by one or more digits. Exponent notation, leading '+', and
// empty strings are rejected — the wire format never carries them.
func Parse(s string) (decimal.Decimal, error) {
	if !isCanonical(s) {
		return decimal.Decimal{}, fmt.Errorf("malformed decimal %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed decimal %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for literals in tests and bootstrap code.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func isCanonical(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' {
		i++
	}
	digits := 0
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			break
		}
		digits++
	}
	if digits == 0 {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != '.' {
		return false
	}
	i++
	frac := 0
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		frac++
	}
	return frac > 0
}
