package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with currency
type Money struct {
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Currency string          `json:"currency" yaml:"currency"`
}

// NewMoney creates a new Money instance with the given amount and currency
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// IsPositive returns true if the amount is strictly greater than zero
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// String renders the amount with two decimals, or more when the amount
// carries extra precision.
func (m Money) String() string {
	places := int32(2)
	if exp := -m.Amount.Exponent(); exp > places {
		places = exp
	}
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(places), m.Currency)
}
