package domain

import "fmt"

// LowStockThreshold is the available-count boundary below which a part is
// surfaced as low stock in read models.
const LowStockThreshold = 5

// Stock tracks on-hand quantity and the reserved share of it.
// Invariant: 0 <= reserved <= quantity.
type Stock struct {
	quantity int
	reserved int
}

func NewStock(quantity, reserved int) (Stock, error) {
	if quantity < 0 {
		return Stock{}, NewValidationError(fmt.Sprintf("stock quantity cannot be negative: %d", quantity))
	}
	if reserved < 0 {
		return Stock{}, NewValidationError(fmt.Sprintf("stock reserved cannot be negative: %d", reserved))
	}
	if reserved > quantity {
		return Stock{}, NewValidationError(fmt.Sprintf("reserved %d exceeds quantity %d", reserved, quantity))
	}
	return Stock{quantity: quantity, reserved: reserved}, nil
}

func (s Stock) Quantity() int  { return s.quantity }
func (s Stock) Reserved() int  { return s.reserved }
func (s Stock) Available() int { return s.quantity - s.reserved }

func (s Stock) IsOutOfStock() bool { return s.Available() <= 0 }
func (s Stock) IsLowStock() bool {
	avail := s.Available()
	return avail > 0 && avail <= LowStockThreshold
}

func (s Stock) Add(qty int) (Stock, error) {
	if qty <= 0 {
		return Stock{}, NewValidationError(fmt.Sprintf("stock add quantity must be positive: %d", qty))
	}
	return Stock{quantity: s.quantity + qty, reserved: s.reserved}, nil
}

// Reserve fails with ErrInsufficientStock when qty exceeds the available
// count; the receiver is left untouched either way.
func (s Stock) Reserve(qty int) (Stock, error) {
	if qty <= 0 {
		return Stock{}, NewValidationError(fmt.Sprintf("reserve quantity must be positive: %d", qty))
	}
	if qty > s.Available() {
		return Stock{}, NewInsufficientStockError(qty, s.Available())
	}
	return Stock{quantity: s.quantity, reserved: s.reserved + qty}, nil
}

// Release moves reserved units back to available. Releasing more than is
// reserved indicates a bookkeeping bug upstream and is rejected.
func (s Stock) Release(qty int) (Stock, error) {
	if qty <= 0 {
		return Stock{}, NewValidationError(fmt.Sprintf("release quantity must be positive: %d", qty))
	}
	if qty > s.reserved {
		return Stock{}, NewValidationError(fmt.Sprintf("release %d exceeds reserved %d", qty, s.reserved))
	}
	return Stock{quantity: s.quantity, reserved: s.reserved - qty}, nil
}
