package domain

import (
	"errors"
	"testing"
)

func TestNewMoneyRejectsNegativeAndBadCurrency(t *testing.T) {
	if _, err := NewMoney(-1, "EUR"); err == nil {
		t.Fatal("expected error for negative amount")
	}
	if _, err := NewMoney(100, "EURO"); err == nil {
		t.Fatal("expected error for 4-letter currency")
	}
	m, err := NewMoney(100, " eur ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Currency() != "EUR" {
		t.Fatalf("currency normalization: want=EUR got=%s", m.Currency())
	}
}

func TestMoneyAddMixedCurrency(t *testing.T) {
	eur := MustMoney(1000, "EUR")
	usd := MustMoney(1000, "USD")
	if _, err := eur.Add(usd); !errors.Is(err, ErrMixedCurrency) {
		t.Fatalf("want ErrMixedCurrency got=%v", err)
	}
	sum, err := eur.Add(MustMoney(299, "EUR"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Amount() != 1299 {
		t.Fatalf("sum: want=1299 got=%d", sum.Amount())
	}
}

func TestMoneyMultiplyQty(t *testing.T) {
	m := MustMoney(250, "EUR")
	got, err := m.MultiplyQty(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Amount() != 1000 {
		t.Fatalf("multiply: want=1000 got=%d", got.Amount())
	}
	if _, err := m.MultiplyQty(-1); err == nil {
		t.Fatal("expected error for negative quantity")
	}
}

func TestMoneyFormat(t *testing.T) {
	if got := MustMoney(1299, "EUR").Format(); got != "12.99 EUR" {
		t.Fatalf("format: want=%q got=%q", "12.99 EUR", got)
	}
	if got := MustMoney(5, "USD").Format(); got != "0.05 USD" {
		t.Fatalf("format: want=%q got=%q", "0.05 USD", got)
	}
}
