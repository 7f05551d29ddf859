package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// OrderLine snapshots a purchased part at order time. The unit price is the
// catalog price when the order was placed and is never re-read afterwards.
type OrderLine struct {
	PartID     uuid.UUID
	SupplierID uuid.UUID
	Quantity   int
	UnitPrice  Money
}

func NewOrderLine(partID, supplierID uuid.UUID, quantity int, unitPrice Money) (OrderLine, error) {
	if partID == uuid.Nil {
		return OrderLine{}, NewValidationError("order line part id is required")
	}
	if supplierID == uuid.Nil {
		return OrderLine{}, NewValidationError("order line supplier id is required")
	}
	if quantity <= 0 {
		return OrderLine{}, NewValidationError(fmt.Sprintf("order line quantity must be positive: %d", quantity))
	}
	if !unitPrice.IsPositive() {
		return OrderLine{}, NewValidationError("order line unit price must be positive")
	}
	return OrderLine{PartID: partID, SupplierID: supplierID, Quantity: quantity, UnitPrice: unitPrice}, nil
}

func (l OrderLine) Subtotal() (Money, error) {
	return l.UnitPrice.MultiplyQty(l.Quantity)
}

// OrderTotal sums line subtotals; all lines must share one currency.
func OrderTotal(lines []OrderLine) (Money, error) {
	if len(lines) == 0 {
		return Money{}, ErrEmptyOrder
	}
	total, err := lines[0].Subtotal()
	if err != nil {
		return Money{}, err
	}
	for _, line := range lines[1:] {
		sub, err := line.Subtotal()
		if err != nil {
			return Money{}, err
		}
		total, err = total.Add(sub)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
