package repos

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/types"
)

type PartRepo interface {
	Create(dbc dbctx.Context, part *domain.Part) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Part, error)
	// LockByID loads the row FOR UPDATE so concurrent commands targeting
	// the same part serialize inside the write transaction.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Part, error)
	// UpdateVersioned persists the aggregate only when the stored version
	// still matches expectedVersion; returns false on a lost race.
	UpdateVersioned(dbc dbctx.Context, part *domain.Part, expectedVersion int64) (bool, error)
	ReferenceExists(dbc dbctx.Context, supplierID uuid.UUID, reference string) (bool, error)
}

type partRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPartRepo(db *gorm.DB, baseLog *logger.Logger) PartRepo {
	return &partRepo{db: db, log: baseLog.With("repo", "PartRepo")}
}

func (r *partRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *partRepo) Create(dbc dbctx.Context, part *domain.Part) error {
	row, err := partRowFromDomain(part)
	if err != nil {
		return err
	}
	return r.conn(dbc).Create(row).Error
}

func (r *partRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Part, error) {
	var row types.PartRow
	if err := r.conn(dbc).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return partRowToDomain(&row)
}

func (r *partRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Part, error) {
	var row types.PartRow
	if err := r.conn(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return partRowToDomain(&row)
}

func (r *partRepo) UpdateVersioned(dbc dbctx.Context, part *domain.Part, expectedVersion int64) (bool, error) {
	row, err := partRowFromDomain(part)
	if err != nil {
		return false, err
	}
	res := r.conn(dbc).
		Model(&types.PartRow{}).
		Where("id = ? AND version = ?", part.ID, expectedVersion).
		Updates(map[string]any{
			"name":           row.Name,
			"description":    row.Description,
			"category":       row.Category,
			"brand":          row.Brand,
			"price_amount":   row.PriceAmount,
			"price_currency": row.PriceCurrency,
			"stock_quantity": row.StockQuantity,
			"stock_reserved": row.StockReserved,
			"vehicles":       row.Vehicles,
			"version":        row.Version,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *partRepo) ReferenceExists(dbc dbctx.Context, supplierID uuid.UUID, reference string) (bool, error) {
	var count int64
	if err := r.conn(dbc).
		Model(&types.PartRow{}).
		Where("supplier_id = ? AND reference = ?", supplierID, reference).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func partRowFromDomain(part *domain.Part) (*types.PartRow, error) {
	vehicles, err := json.Marshal(vehicleDTOsFromDomain(part.Vehicles))
	if err != nil {
		return nil, err
	}
	return &types.PartRow{
		ID:            part.ID,
		Reference:     part.Reference.String(),
		SupplierID:    part.SupplierID,
		Name:          part.Name,
		Description:   part.Description,
		Category:      part.Category,
		Brand:         part.Brand,
		PriceAmount:   part.Price.Amount(),
		PriceCurrency: part.Price.Currency(),
		StockQuantity: part.Stock.Quantity(),
		StockReserved: part.Stock.Reserved(),
		Vehicles:      vehicles,
		Version:       part.Version,
	}, nil
}

func partRowToDomain(row *types.PartRow) (*domain.Part, error) {
	reference, err := domain.NewPartReference(row.Reference)
	if err != nil {
		return nil, err
	}
	price, err := domain.NewMoney(row.PriceAmount, row.PriceCurrency)
	if err != nil {
		return nil, err
	}
	stock, err := domain.NewStock(row.StockQuantity, row.StockReserved)
	if err != nil {
		return nil, err
	}
	var dtos []vehicleDTO
	if len(row.Vehicles) > 0 {
		if err := json.Unmarshal(row.Vehicles, &dtos); err != nil {
			return nil, err
		}
	}
	vehicles, err := vehicleDTOsToDomain(dtos)
	if err != nil {
		return nil, err
	}
	return &domain.Part{
		ID:          row.ID,
		Reference:   reference,
		Name:        row.Name,
		Description: row.Description,
		Category:    row.Category,
		Brand:       row.Brand,
		Price:       price,
		Stock:       stock,
		SupplierID:  row.SupplierID,
		Vehicles:    vehicles,
		Version:     row.Version,
	}, nil
}

type vehicleDTO struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	YearFrom   int    `json:"yearFrom"`
	YearTo     int    `json:"yearTo"`
	EngineCode string `json:"engineCode,omitempty"`
}

func vehicleDTOsFromDomain(in []domain.VehicleCompatibility) []vehicleDTO {
	out := make([]vehicleDTO, 0, len(in))
	for _, v := range in {
		out = append(out, vehicleDTO(v))
	}
	return out
}

func vehicleDTOsToDomain(in []vehicleDTO) ([]domain.VehicleCompatibility, error) {
	out := make([]domain.VehicleCompatibility, 0, len(in))
	for _, d := range in {
		v, err := domain.NewVehicleCompatibility(d.Brand, d.Model, d.YearFrom, d.YearTo, d.EngineCode)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// IsNotFound reports gorm's record-not-found for callers outside the repo
// layer.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
