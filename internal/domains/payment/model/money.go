package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToMinorUnits converts a decimal amount in major units to an integer
// count of minor units (UAH 12.50 -> 1250). Amounts with more than two
// fractional digits are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	scaled := amount.Mul(decimal.NewFromInt(100))
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", amount.String())
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits converts an integer count of minor units back to a
// decimal amount in major units (1250 -> 12.50).
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}
