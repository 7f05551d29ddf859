package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Storage row shapes for the write store. Aggregates never see these;
// repos map rows to and from domain types at the boundary.

type PartRow struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Reference     string         `gorm:"not null;uniqueIndex:idx_part_supplier_reference;column:reference" json:"reference"`
	SupplierID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_part_supplier_reference;index;column:supplier_id" json:"supplier_id"`
	Name          string         `gorm:"not null;column:name" json:"name"`
	Description   string         `gorm:"column:description" json:"description"`
	Category      string         `gorm:"index;column:category" json:"category"`
	Brand         string         `gorm:"column:brand" json:"brand"`
	PriceAmount   int64          `gorm:"not null;column:price_amount" json:"price_amount"`
	PriceCurrency string         `gorm:"not null;column:price_currency" json:"price_currency"`
	StockQuantity int            `gorm:"not null;default:0;column:stock_quantity" json:"stock_quantity"`
	StockReserved int            `gorm:"not null;default:0;column:stock_reserved" json:"stock_reserved"`
	Vehicles      datatypes.JSON `gorm:"column:vehicles" json:"vehicles"`
	Version       int64          `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PartRow) TableName() string { return "parts" }

type OrderRow struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	GarageID      uuid.UUID      `gorm:"type:uuid;not null;index;column:garage_id" json:"garage_id"`
	Lines         datatypes.JSON `gorm:"not null;column:lines" json:"lines"`
	Status        string         `gorm:"not null;index;column:status" json:"status"`
	StatusHistory datatypes.JSON `gorm:"not null;column:status_history" json:"status_history"`
	TotalAmount   int64          `gorm:"not null;column:total_amount" json:"total_amount"`
	TotalCurrency string         `gorm:"not null;column:total_currency" json:"total_currency"`
	Version       int64          `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (OrderRow) TableName() string { return "orders" }

type UserRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	CompanyName  string    `gorm:"not null;column:company_name" json:"company_name"`
	Role         string    `gorm:"not null;column:role" json:"role"`
	Version      int64     `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserRow) TableName() string { return "users" }

// OutboxRow is co-committed with aggregate state in the same transaction.
// A committed row is the durable promise that the event will be published
// at least once.
type OutboxRow struct {
	EventID        uuid.UUID      `gorm:"type:uuid;primaryKey;column:event_id" json:"event_id"`
	AggregateID    uuid.UUID      `gorm:"type:uuid;not null;index;column:aggregate_id" json:"aggregate_id"`
	AggregateType  string         `gorm:"not null;column:aggregate_type" json:"aggregate_type"`
	EventType      string         `gorm:"not null;column:event_type" json:"event_type"`
	SequenceNumber int64          `gorm:"not null;column:sequence_number" json:"sequence_number"`
	Stream         string         `gorm:"not null;column:stream" json:"stream"`
	RoutingKey     string         `gorm:"not null;column:routing_key" json:"routing_key"`
	OccurredAt     time.Time      `gorm:"not null;column:occurred_at" json:"occurred_at"`
	Payload        datatypes.JSON `gorm:"not null;column:payload" json:"payload"`
	Published      bool           `gorm:"not null;default:false;index;column:published" json:"published"`
	Attempts       int            `gorm:"not null;default:0;column:attempts" json:"attempts"`
	LastError      string         `gorm:"column:last_error" json:"last_error"`
	DeadLettered   bool           `gorm:"not null;default:false;index;column:dead_lettered" json:"dead_lettered"`
	NextAttemptAt  time.Time      `gorm:"not null;column:next_attempt_at" json:"next_attempt_at"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	PublishedAt    *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
}

func (OutboxRow) TableName() string { return "outbox_events" }
