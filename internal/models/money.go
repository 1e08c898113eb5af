package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a non-negative monetary amount rounded to cents
type Money struct {
	amount decimal.Decimal
}

// ZeroMoney is the zero amount
var ZeroMoney = Money{amount: decimal.Zero}

// NewMoney creates a Money value, rejecting negative amounts
func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return ZeroMoney, NewValidationError("amount", ValidationReasonOutOfRange, "amount cannot be negative")
	}
	return Money{amount: amount.Round(2)}, nil
}

// ParseMoney parses a decimal string into Money
func ParseMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return ZeroMoney, NewValidationError("amount", ValidationReasonInvalidFormat, err.Error())
	}
	return NewMoney(d)
}

// MustMoney parses value and panics on failure. Intended for constants and tests.
func MustMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the underlying decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Add returns m + other
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other. The result is rejected when it would be negative.
func (m Money) Sub(other Money) (Money, error) {
	return NewMoney(m.amount.Sub(other.amount))
}

// Cmp compares m and other
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// Equal reports whether both amounts are equal
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// Ratio returns m / base. A zero base yields zero.
func (m Money) Ratio(base Money) decimal.Decimal {
	if base.amount.IsZero() {
		return decimal.Zero
	}
	return m.amount.Div(base.amount)
}

// String renders the amount with two decimal places
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// MarshalJSON renders the amount as a JSON number
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.amount.StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or numeric string
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return NewValidationError("amount", ValidationReasonInvalidFormat, err.Error())
	}
	parsed, err := NewMoney(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(2), nil
}

// Scan implements the sql.Scanner interface
func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan money value: %w", err)
	}
	m.amount = d
	return nil
}
