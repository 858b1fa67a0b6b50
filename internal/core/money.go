package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseValue converts a textual amount into a decimal value.
//
// Plain numbers ("12", "12.5", "1e3") are accepted; anything else, including
// decimal commas and negative numbers, is rejected with ErrInvalidValue.
func ParseValue(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidValue
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidValue
	}
	if v.IsNegative() {
		return decimal.Zero, ErrInvalidValue
	}
	return v, nil
}
