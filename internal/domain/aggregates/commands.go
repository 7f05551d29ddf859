package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
)

// Command inputs and snapshot results for the aggregate write surfaces.
// Handlers validate DTOs into these; aggregates return snapshots so the
// HTTP layer never touches storage rows.

type VehicleInput struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	YearFrom   int    `json:"yearFrom"`
	YearTo     int    `json:"yearTo"`
	EngineCode string `json:"engineCode,omitempty"`
}

type CreatePartInput struct {
	Reference     string
	Name          string
	Description   string
	Category      string
	Brand         string
	PriceAmount   int64
	PriceCurrency string
	InitialStock  int
	SupplierID    uuid.UUID
	Vehicles      []VehicleInput
}

type UpdatePartInput struct {
	PartID        uuid.UUID
	Name          string
	Description   string
	Category      string
	Brand         string
	PriceAmount   int64
	PriceCurrency string
	Vehicles      []VehicleInput
}

type StockInput struct {
	PartID   uuid.UUID
	Quantity int
}

type PartSnapshot struct {
	ID             uuid.UUID      `json:"id"`
	Reference      string         `json:"reference"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Brand          string         `json:"brand"`
	PriceAmount    int64          `json:"priceAmount"`
	PriceCurrency  string         `json:"priceCurrency"`
	PriceFormatted string         `json:"priceFormatted"`
	StockQuantity  int            `json:"stockQuantity"`
	StockReserved  int            `json:"stockReserved"`
	StockAvailable int            `json:"stockAvailable"`
	SupplierID     uuid.UUID      `json:"supplierId"`
	Vehicles       []VehicleInput `json:"vehicles,omitempty"`
	Version        int64          `json:"version"`
}

type OrderLineInput struct {
	PartID   uuid.UUID `json:"partId"`
	Quantity int       `json:"quantity"`
}

type CreateOrderInput struct {
	GarageID uuid.UUID
	Lines    []OrderLineInput
}

type ChangeOrderStatusInput struct {
	OrderID uuid.UUID
	Target  string
	Reason  string
}

type OrderLineSnapshot struct {
	PartID        uuid.UUID `json:"partId"`
	SupplierID    uuid.UUID `json:"supplierId"`
	Quantity      int       `json:"quantity"`
	UnitPrice     int64     `json:"unitPrice"`
	PriceCurrency string    `json:"priceCurrency"`
}

type StatusChangeSnapshot struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	Reason    string    `json:"reason,omitempty"`
}

type OrderSnapshot struct {
	ID            uuid.UUID              `json:"id"`
	GarageID      uuid.UUID              `json:"garageId"`
	Lines         []OrderLineSnapshot    `json:"lines"`
	Status        string                 `json:"status"`
	StatusHistory []StatusChangeSnapshot `json:"statusHistory"`
	TotalAmount   int64                  `json:"totalAmount"`
	TotalCurrency string                 `json:"totalCurrency"`
	CreatedAt     time.Time              `json:"createdAt"`
	Version       int64                  `json:"version"`
}

type RegisterUserInput struct {
	Email        domain.Email
	PasswordHash string
	CompanyName  string
	Role         domain.UserRole
}

type UserSnapshot struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	CompanyName string    `json:"companyName"`
	Role        string    `json:"role"`
}

// PartAggregate is the catalog write surface.
type PartAggregate interface {
	Aggregate
	Create(ctx context.Context, in CreatePartInput) (PartSnapshot, error)
	Update(ctx context.Context, in UpdatePartInput) (PartSnapshot, error)
	AddStock(ctx context.Context, in StockInput) (PartSnapshot, error)
	Reserve(ctx context.Context, in StockInput) (PartSnapshot, error)
	Release(ctx context.Context, in StockInput) (PartSnapshot, error)
}

// OrderAggregate is the orders write surface.
type OrderAggregate interface {
	Aggregate
	Create(ctx context.Context, in CreateOrderInput) (OrderSnapshot, error)
	ChangeStatus(ctx context.Context, in ChangeOrderStatusInput) (OrderSnapshot, error)
}

// UserAggregate is the identity write surface.
type UserAggregate interface {
	Aggregate
	Register(ctx context.Context, in RegisterUserInput) (UserSnapshot, error)
}
