package domain

import (
	"fmt"
	"strings"
)

// Money holds an amount in integer minor units plus an ISO currency code.
// Construction rejects negative amounts; arithmetic rejects mixed currencies.
type Money struct {
	amount   int64
	currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if amount < 0 {
		return Money{}, NewValidationError(fmt.Sprintf("money amount cannot be negative: %d", amount))
	}
	if len(currency) != 3 {
		return Money{}, NewValidationError(fmt.Sprintf("invalid currency code: %q", currency))
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney is a construction helper for trusted literals (tests, defaults).
func MustMoney(amount int64, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Amount() int64    { return m.amount }
func (m Money) Currency() string { return m.currency }
func (m Money) IsZero() bool     { return m.amount == 0 }
func (m Money) IsPositive() bool { return m.amount > 0 }

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrMixedCurrency, m.currency, other.currency)
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

func (m Money) MultiplyQty(qty int) (Money, error) {
	if qty < 0 {
		return Money{}, NewValidationError("cannot multiply money by negative quantity")
	}
	return Money{amount: m.amount * int64(qty), currency: m.currency}, nil
}

// Format renders major.minor units, e.g. 1299 EUR -> "12.99 EUR".
func (m Money) Format() string {
	return fmt.Sprintf("%d.%02d %s", m.amount/100, m.amount%100, m.currency)
}
