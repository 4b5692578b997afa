package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent fixes the currency at two decimal places.
const MinorUnitExponent = -2

// Amount is a currency value in minor units (cents).
type Amount int64

func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("ParseAmount: %q: %w", s, ErrInvalidAmount)
	}
	return AmountFromDecimal(d)
}

func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Equal(d.Truncate(-MinorUnitExponent)) {
		return 0, fmt.Errorf("AmountFromDecimal: more than %d decimal places: %w", -MinorUnitExponent, ErrInvalidAmount)
	}

	minor := d.Shift(-MinorUnitExponent).BigInt()
	if !minor.IsInt64() {
		return 0, fmt.Errorf("AmountFromDecimal: out of range: %w", ErrInvalidAmount)
	}
	return Amount(minor.Int64()), nil
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), MinorUnitExponent)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(-MinorUnitExponent)
}

func (a Amount) IsPositive() bool {
	return a > 0
}
