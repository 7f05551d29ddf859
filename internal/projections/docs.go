package projections

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Projection names double as consumer-group names and ledger keys.
const (
	ProjectionParts  = "parts_read"
	ProjectionOrders = "orders_read"
	ProjectionUsers  = "users_read"
	ProjectionGraph  = "graph"
)

type VehicleDoc struct {
	Brand      string `bson:"brand" json:"brand"`
	Model      string `bson:"model" json:"model"`
	YearFrom   int    `bson:"yearFrom" json:"yearFrom"`
	YearTo     int    `bson:"yearTo" json:"yearTo"`
	EngineCode string `bson:"engineCode,omitempty" json:"engineCode,omitempty"`
}

// PartDoc is the denormalized catalog read model. Everything a part detail
// page needs in one document.
type PartDoc struct {
	ID             string       `bson:"_id" json:"id"`
	Reference      string       `bson:"reference" json:"reference"`
	Name           string       `bson:"name" json:"name"`
	Description    string       `bson:"description" json:"description"`
	Category       string       `bson:"category" json:"category"`
	Brand          string       `bson:"brand" json:"brand"`
	PriceAmount    int64        `bson:"priceAmount" json:"priceAmount"`
	PriceCurrency  string       `bson:"priceCurrency" json:"priceCurrency"`
	PriceFormatted string       `bson:"priceFormatted" json:"priceFormatted"`
	StockQuantity  int          `bson:"stockQuantity" json:"stockQuantity"`
	StockReserved  int          `bson:"stockReserved" json:"stockReserved"`
	StockAvailable int          `bson:"stockAvailable" json:"stockAvailable"`
	IsOutOfStock   bool         `bson:"isOutOfStock" json:"isOutOfStock"`
	IsLowStock     bool         `bson:"isLowStock" json:"isLowStock"`
	SupplierID     string       `bson:"supplierId" json:"supplierId"`
	Vehicles       []VehicleDoc `bson:"vehicles" json:"vehicles"`
	Stale          bool         `bson:"stale,omitempty" json:"stale,omitempty"`
	UpdatedAt      time.Time    `bson:"updatedAt" json:"updatedAt"`
}

type OrderLineDoc struct {
	PartID        string `bson:"partId" json:"partId"`
	PartReference string `bson:"partReference" json:"partReference"`
	PartName      string `bson:"partName" json:"partName"`
	SupplierID    string `bson:"supplierId" json:"supplierId"`
	Quantity      int    `bson:"quantity" json:"quantity"`
	UnitPrice     int64  `bson:"unitPrice" json:"unitPrice"`
	PriceCurrency string `bson:"priceCurrency" json:"priceCurrency"`
	LineTotal     int64  `bson:"lineTotal" json:"lineTotal"`
}

type StatusEntryDoc struct {
	Status    string    `bson:"status" json:"status"`
	ChangedAt time.Time `bson:"changedAt" json:"changedAt"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

// OrderDoc is the order read model with part details embedded at apply
// time, so listing orders never fans out to other collections.
type OrderDoc struct {
	ID            string           `bson:"_id" json:"id"`
	GarageID      string           `bson:"garageId" json:"garageId"`
	Lines         []OrderLineDoc   `bson:"lines" json:"lines"`
	Status        string           `bson:"status" json:"status"`
	StatusHistory []StatusEntryDoc `bson:"statusHistory" json:"statusHistory"`
	TotalAmount   int64            `bson:"totalAmount" json:"totalAmount"`
	TotalCurrency string           `bson:"totalCurrency" json:"totalCurrency"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	Stale         bool             `bson:"stale,omitempty" json:"stale,omitempty"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

type UserDoc struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	CompanyName  string    `bson:"companyName" json:"companyName"`
	Role         string    `bson:"role" json:"role"`
	RegisteredAt time.Time `bson:"registeredAt" json:"registeredAt"`
}

// Ledger is the applied-event dedup fence. MarkApplied returns false when
// the event was already recorded for the projection; Unmark compensates
// when the apply after a fresh mark fails, so redelivery can retry.
type Ledger interface {
	MarkApplied(ctx context.Context, projection string, eventID uuid.UUID) (bool, error)
	Unmark(ctx context.Context, projection string, eventID uuid.UUID) error
}

type PartReadStore interface {
	UpsertPart(ctx context.Context, doc PartDoc) error
	// GetPart returns nil without error when the document does not exist.
	GetPart(ctx context.Context, id string) (*PartDoc, error)
	// UpdatePartDetails patches non-stock fields; false means no base doc.
	UpdatePartDetails(ctx context.Context, id string, fields map[string]any) (bool, error)
	// UpdatePartStock patches the stock block; false means no base doc.
	UpdatePartStock(ctx context.Context, id string, quantity, reserved, available int, outOfStock, lowStock bool) (bool, error)
	MarkPartStale(ctx context.Context, id string) error
}

type OrderReadStore interface {
	UpsertOrder(ctx context.Context, doc OrderDoc) error
	GetOrder(ctx context.Context, id string) (*OrderDoc, error)
	// ApplyStatusChange sets the status and appends a history entry; false
	// means the base document is missing.
	ApplyStatusChange(ctx context.Context, id, status string, entry StatusEntryDoc) (bool, error)
	MarkOrderStale(ctx context.Context, id string) error
}

type UserReadStore interface {
	UpsertUser(ctx context.Context, doc UserDoc) error
	GetUser(ctx context.Context, id string) (*UserDoc, error)
}
