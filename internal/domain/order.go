package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusChange is one statusHistory entry.
type StatusChange struct {
	Status    OrderStatus `json:"status"`
	ChangedAt time.Time   `json:"changedAt"`
	Reason    string      `json:"reason,omitempty"`
}

// Order is the order aggregate root. Lines are immutable after creation;
// status only moves along the state machine.
type Order struct {
	ID            uuid.UUID
	GarageID      uuid.UUID
	Lines         []OrderLine
	Status        OrderStatus
	StatusHistory []StatusChange
	CreatedAt     time.Time

	Version int64

	pending []Event
}

// NewOrder creates a PENDING order and records OrderCreated. Line quantity
// and price validation happened at OrderLine construction; this re-checks
// the aggregate-level invariants.
func NewOrder(garageID uuid.UUID, lines []OrderLine) (*Order, error) {
	if garageID == uuid.Nil {
		return nil, NewValidationError("order garage id is required")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, NewValidationError("order line quantity must be positive")
		}
	}
	total, err := OrderTotal(lines)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &Order{
		ID:       uuid.New(),
		GarageID: garageID,
		Lines:    append([]OrderLine(nil), lines...),
		Status:   StatusPending,
		StatusHistory: []StatusChange{
			{Status: StatusPending, ChangedAt: now},
		},
		CreatedAt: now,
	}

	linePayloads := make([]OrderLinePayload, 0, len(o.Lines))
	for _, line := range o.Lines {
		linePayloads = append(linePayloads, OrderLinePayload{
			PartID:        line.PartID,
			SupplierID:    line.SupplierID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice.Amount(),
			PriceCurrency: line.UnitPrice.Currency(),
		})
	}
	return o, o.emit(EventOrderCreated, OrderCreatedPayload{
		GarageID:      o.GarageID,
		Lines:         linePayloads,
		TotalAmount:   total.Amount(),
		TotalCurrency: total.Currency(),
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	})
}

// Total recomputes the order total from line snapshots.
func (o *Order) Total() (Money, error) {
	return OrderTotal(o.Lines)
}

// ChangeStatus moves the order along the state machine. CANCELLED requires
// a non-empty reason; every success appends to statusHistory and emits
// OrderStatusChanged.
func (o *Order) ChangeStatus(target OrderStatus, reason string) error {
	reason = strings.TrimSpace(reason)
	if target == StatusCancelled && reason == "" {
		return NewValidationError("cancellation requires a reason")
	}
	if !o.Status.CanTransitionTo(target) {
		return NewInvalidStatusTransitionError(o.Status, target)
	}

	from := o.Status
	now := time.Now().UTC()
	o.Status = target
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: target, ChangedAt: now, Reason: reason})
	return o.emit(EventOrderStatusChanged, OrderStatusChangedPayload{
		From:      from,
		To:        target,
		Reason:    reason,
		ChangedAt: now,
	})
}

func (o *Order) emit(eventType EventType, payload any) error {
	o.Version++
	ev, err := NewEvent(AggregateOrder, o.ID, o.Version, eventType, payload)
	if err != nil {
		return err
	}
	o.pending = append(o.pending, ev)
	return nil
}

func (o *Order) PendingEvents() []Event { return o.pending }
func (o *Order) ClearPendingEvents()    { o.pending = nil }
