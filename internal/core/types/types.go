// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value (rates, MRP, bill amounts) with full
// precision. Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MoneyFromInt creates a Money value from an integer amount.
func MoneyFromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// ZeroMoney returns zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}

// Quantity is a whole-unit medicine count. Medicines are dispensed in
// discrete units (tablets, vials, strips), so no fractional scale is needed.
// Signed: ledger movements use negative values for outflow.
type Quantity int64

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }
func (q Quantity) Neg() Quantity    { return -q }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// Int64 returns the raw unit count.
func (q Quantity) Int64() int64 { return int64(q) }

// Decimal converts the quantity for monetary arithmetic (rate × qty).
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(q))
}

// MoneyEqual compares two monetary values with a one-paisa tolerance,
// absorbing rounding differences from client-side arithmetic.
func MoneyEqual(a, b Money) bool {
	return a.Sub(b).Abs().LessThanOrEqual(decimal.New(1, -2))
}
