package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FromUnit divides a raw integer amount by 10^precision without rounding.
func FromUnit(raw *big.Int, precision int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precision))
}

// FromUnitString is FromUnit for decimal strings as returned by REST explorers.
func FromUnitString(raw string, precision int) (decimal.Decimal, bool) {
	amt, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Zero, false
	}
	return FromUnit(amt, precision), true
}

// ToUnit converts a scaled amount back to minor units, truncating anything
// below the smallest representable unit.
func ToUnit(amount decimal.Decimal, precision int) *big.Int {
	return amount.Shift(int32(precision)).Truncate(0).BigInt()
}
