package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Part is the catalog aggregate root. Every mutating operation either fails
// and leaves the receiver untouched, or applies the new state and appends
// exactly one event to the pending log.
type Part struct {
	ID          uuid.UUID
	Reference   PartReference
	Name        string
	Description string
	Category    string
	Brand       string
	Price       Money
	Stock       Stock
	SupplierID  uuid.UUID
	Vehicles    []VehicleCompatibility

	// Version counts applied mutations and doubles as the per-aggregate
	// event sequence number.
	Version int64

	pending []Event
}

// NewPart creates a part aggregate and records PartCreated. Reference
// uniqueness within the supplier is enforced by the write store on commit.
func NewPart(reference PartReference, name, description, category, brand string, price Money, initialStock int, supplierID uuid.UUID, vehicles []VehicleCompatibility) (*Part, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("part name is required")
	}
	if reference.IsZero() {
		return nil, NewValidationError("part reference is required")
	}
	if !price.IsPositive() {
		return nil, NewValidationError("part price must be positive")
	}
	if supplierID == uuid.Nil {
		return nil, NewValidationError("part supplier id is required")
	}
	stock, err := NewStock(initialStock, 0)
	if err != nil {
		return nil, err
	}

	p := &Part{
		ID:          uuid.New(),
		Reference:   reference,
		Name:        name,
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		Brand:       strings.TrimSpace(brand),
		Price:       price,
		Stock:       stock,
		SupplierID:  supplierID,
		Vehicles:    DedupeVehicles(vehicles),
	}
	return p, p.emit(EventPartCreated, PartCreatedPayload{
		Reference:     p.Reference.String(),
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Brand:         p.Brand,
		PriceAmount:   p.Price.Amount(),
		PriceCurrency: p.Price.Currency(),
		StockQuantity: p.Stock.Quantity(),
		StockReserved: p.Stock.Reserved(),
		SupplierID:    p.SupplierID,
		Vehicles:      vehiclePayloads(p.Vehicles),
	})
}

// Update changes descriptive fields and price. Reference and supplier are
// immutable after creation.
func (p *Part) Update(name, description, category, brand string, price Money, vehicles []VehicleCompatibility) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("part name is required")
	}
	if !price.IsPositive() {
		return NewValidationError("part price must be positive")
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	p.Category = strings.TrimSpace(category)
	p.Brand = strings.TrimSpace(brand)
	p.Price = price
	p.Vehicles = DedupeVehicles(vehicles)
	return p.emit(EventPartUpdated, PartUpdatedPayload{
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Brand:         p.Brand,
		PriceAmount:   p.Price.Amount(),
		PriceCurrency: p.Price.Currency(),
		Vehicles:      vehiclePayloads(p.Vehicles),
	})
}

func (p *Part) AddStock(qty int) error {
	next, err := p.Stock.Add(qty)
	if err != nil {
		return err
	}
	p.Stock = next
	return p.emitStockChanged(StockAdded, qty)
}

// Reserve fails with ErrInsufficientStock when qty exceeds available.
func (p *Part) Reserve(qty int) error {
	next, err := p.Stock.Reserve(qty)
	if err != nil {
		return err
	}
	p.Stock = next
	return p.emitStockChanged(StockReserved, qty)
}

func (p *Part) Release(qty int) error {
	next, err := p.Stock.Release(qty)
	if err != nil {
		return err
	}
	p.Stock = next
	return p.emitStockChanged(StockReleased, qty)
}

func (p *Part) emitStockChanged(kind StockChangeKind, qty int) error {
	return p.emit(EventPartStockChanged, PartStockChangedPayload{
		Kind:          kind,
		ChangeQty:     qty,
		StockQuantity: p.Stock.Quantity(),
		StockReserved: p.Stock.Reserved(),
	})
}

func (p *Part) emit(eventType EventType, payload any) error {
	p.Version++
	ev, err := NewEvent(AggregatePart, p.ID, p.Version, eventType, payload)
	if err != nil {
		return err
	}
	p.pending = append(p.pending, ev)
	return nil
}

// PendingEvents returns the events produced by the current command
// execution, in emission order.
func (p *Part) PendingEvents() []Event { return p.pending }

// ClearPendingEvents is called after the events were handed to the outbox.
func (p *Part) ClearPendingEvents() { p.pending = nil }

func vehiclePayloads(in []VehicleCompatibility) []VehiclePayload {
	if len(in) == 0 {
		return nil
	}
	out := make([]VehiclePayload, 0, len(in))
	for _, v := range in {
		out = append(out, VehiclePayload{
			Brand:      v.Brand,
			Model:      v.Model,
			YearFrom:   v.YearFrom,
			YearTo:     v.YearTo,
			EngineCode: v.EngineCode,
		})
	}
	return out
}
