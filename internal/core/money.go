package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatDollars renders d with two decimals and a dollar sign, e.g. "$6.38" or "-$6.68".
func FormatDollars(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// ParseAmount parses a stored amount such as "6.38", "$6.38" or "-6.68".
// An empty string yields nil.
func ParseAmount(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return &d, nil
}
