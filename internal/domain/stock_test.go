package domain

import (
	"errors"
	"testing"
)

func TestNewStockInvariant(t *testing.T) {
	if _, err := NewStock(-1, 0); err == nil {
		t.Fatal("expected error for negative quantity")
	}
	if _, err := NewStock(5, 6); err == nil {
		t.Fatal("expected error for reserved > quantity")
	}
	s, err := NewStock(10, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Available() != 6 {
		t.Fatalf("available: want=6 got=%d", s.Available())
	}
}

func TestStockReserveInsufficient(t *testing.T) {
	s, _ := NewStock(3, 0)
	_, err := s.Reserve(5)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock got=%v", err)
	}
	// Receiver untouched on failure.
	if s.Reserved() != 0 || s.Quantity() != 3 {
		t.Fatalf("stock mutated on failed reserve: %+v", s)
	}
}

func TestStockReserveRelease(t *testing.T) {
	s, _ := NewStock(10, 0)
	s, err := s.Reserve(4)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if s.Available() != 6 || s.Reserved() != 4 {
		t.Fatalf("after reserve: available=%d reserved=%d", s.Available(), s.Reserved())
	}
	s, err = s.Release(3)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if s.Available() != 9 || s.Reserved() != 1 {
		t.Fatalf("after release: available=%d reserved=%d", s.Available(), s.Reserved())
	}
	if _, err := s.Release(2); err == nil {
		t.Fatal("expected error releasing more than reserved")
	}
}

func TestStockFlags(t *testing.T) {
	out, _ := NewStock(4, 4)
	if !out.IsOutOfStock() {
		t.Fatal("fully reserved stock should read out of stock")
	}
	low, _ := NewStock(10, 6)
	if !low.IsLowStock() {
		t.Fatalf("available=%d should be low stock", low.Available())
	}
	healthy, _ := NewStock(10, 1)
	if healthy.IsLowStock() || healthy.IsOutOfStock() {
		t.Fatal("available=9 should be neither low nor out of stock")
	}
}
