package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseBrokerNumber parses a numeric field as brokers export them: currency
// symbols and thousands separators are stripped, and parenthesized values
// denote negatives ("($1,234.56)" → -1234.56).
func ParseBrokerNumber(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty numeric field")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.TrimSpace(s)

	// A leading minus can appear with or without parentheses.
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number: %q", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// PctChange returns (new - old) / old, or nil when old is zero and no
// denominator exists.
func PctChange(old, new decimal.Decimal) *decimal.Decimal {
	if old.IsZero() {
		return nil
	}
	pct := new.Sub(old).Div(old)
	return &pct
}

// SafeParse parses a string into a decimal, returning zero for invalid or
// empty input. Used where the sheet may hold blanks or formula residue.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := ParseBrokerNumber(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}
