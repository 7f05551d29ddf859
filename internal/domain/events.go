package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType tags the closed set of domain events. Consumers switch on the
// tag; there is no open-ended reflection in the dispatch path.
type EventType string

const (
	EventPartCreated        EventType = "catalog.part.created"
	EventPartUpdated        EventType = "catalog.part.updated"
	EventPartStockChanged   EventType = "catalog.part.stock_changed"
	EventOrderCreated       EventType = "orders.order.created"
	EventOrderStatusChanged EventType = "orders.order.status_changed"
	EventUserRegistered     EventType = "identity.user.registered"
)

// Aggregate type names as they appear in envelopes and routing keys.
const (
	AggregatePart  = "Part"
	AggregateOrder = "Order"
	AggregateUser  = "User"
)

// Broker streams, one per bounded context.
const (
	StreamCatalog  = "events.catalog"
	StreamOrders   = "events.orders"
	StreamIdentity = "events.identity"
)

// StreamFor maps an aggregate type to its bounded-context stream.
func StreamFor(aggregateType string) string {
	switch aggregateType {
	case AggregatePart:
		return StreamCatalog
	case AggregateOrder:
		return StreamOrders
	case AggregateUser:
		return StreamIdentity
	default:
		return StreamCatalog
	}
}

// Event is the immutable envelope an aggregate emits on every state
// transition. SequenceNumber is monotonic per aggregate; ordering across
// aggregates is undefined.
type Event struct {
	EventID        uuid.UUID       `json:"eventId"`
	AggregateID    uuid.UUID       `json:"aggregateId"`
	AggregateType  string          `json:"aggregateType"`
	EventType      EventType       `json:"eventType"`
	OccurredAt     time.Time       `json:"occurredAt"`
	SequenceNumber int64           `json:"sequenceNumber"`
	Payload        json.RawMessage `json:"payload"`
}

// RoutingKey derives the broker routing key from aggregate and event type.
func (e Event) RoutingKey() string {
	return fmt.Sprintf("%s.%s", e.AggregateType, e.EventType)
}

// NewEvent builds an envelope around a typed payload.
func NewEvent(aggregateType string, aggregateID uuid.UUID, seq int64, eventType EventType, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		EventID:        uuid.New(),
		AggregateID:    aggregateID,
		AggregateType:  aggregateType,
		EventType:      eventType,
		OccurredAt:     time.Now().UTC(),
		SequenceNumber: seq,
		Payload:        raw,
	}, nil
}

// VehiclePayload mirrors VehicleCompatibility in event payloads.
type VehiclePayload struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	YearFrom   int    `json:"yearFrom"`
	YearTo     int    `json:"yearTo"`
	EngineCode string `json:"engineCode,omitempty"`
}

type PartCreatedPayload struct {
	Reference     string           `json:"reference"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	PriceAmount   int64            `json:"priceAmount"`
	PriceCurrency string           `json:"priceCurrency"`
	StockQuantity int              `json:"stockQuantity"`
	StockReserved int              `json:"stockReserved"`
	SupplierID    uuid.UUID        `json:"supplierId"`
	Vehicles      []VehiclePayload `json:"vehicles,omitempty"`
}

type PartUpdatedPayload struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	PriceAmount   int64            `json:"priceAmount"`
	PriceCurrency string           `json:"priceCurrency"`
	Vehicles      []VehiclePayload `json:"vehicles,omitempty"`
}

// StockChangeKind distinguishes the stock mutations sharing one event type.
type StockChangeKind string

const (
	StockAdded    StockChangeKind = "added"
	StockReserved StockChangeKind = "reserved"
	StockReleased StockChangeKind = "released"
)

type PartStockChangedPayload struct {
	Kind          StockChangeKind `json:"kind"`
	ChangeQty     int             `json:"changeQty"`
	StockQuantity int             `json:"stockQuantity"`
	StockReserved int             `json:"stockReserved"`
}

type OrderLinePayload struct {
	PartID        uuid.UUID `json:"partId"`
	SupplierID    uuid.UUID `json:"supplierId"`
	Quantity      int       `json:"quantity"`
	UnitPrice     int64     `json:"unitPrice"`
	PriceCurrency string    `json:"priceCurrency"`
}

type OrderCreatedPayload struct {
	GarageID      uuid.UUID          `json:"garageId"`
	Lines         []OrderLinePayload `json:"lines"`
	TotalAmount   int64              `json:"totalAmount"`
	TotalCurrency string             `json:"totalCurrency"`
	Status        OrderStatus        `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type OrderStatusChangedPayload struct {
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	Reason    string      `json:"reason,omitempty"`
	ChangedAt time.Time   `json:"changedAt"`
}

type UserRegisteredPayload struct {
	Email       string   `json:"email"`
	CompanyName string   `json:"companyName"`
	Role        UserRole `json:"role"`
}

// DecodePayload unmarshals the payload into its concrete type based on the
// event tag. Unknown tags are an error, never silently skipped.
func (e Event) DecodePayload() (any, error) {
	switch e.EventType {
	case EventPartCreated:
		var p PartCreatedPayload
		return decodeInto(e, &p)
	case EventPartUpdated:
		var p PartUpdatedPayload
		return decodeInto(e, &p)
	case EventPartStockChanged:
		var p PartStockChangedPayload
		return decodeInto(e, &p)
	case EventOrderCreated:
		var p OrderCreatedPayload
		return decodeInto(e, &p)
	case EventOrderStatusChanged:
		var p OrderStatusChangedPayload
		return decodeInto(e, &p)
	case EventUserRegistered:
		var p UserRegisteredPayload
		return decodeInto(e, &p)
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.EventType)
	}
}

func decodeInto[T any](e Event, target *T) (T, error) {
	if err := json.Unmarshal(e.Payload, target); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return *target, nil
}
