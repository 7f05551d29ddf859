package repos

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/types"
)

type OrderRepo interface {
	Create(dbc dbctx.Context, order *domain.Order) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Order, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Order, error)
	UpdateVersioned(dbc dbctx.Context, order *domain.Order, expectedVersion int64) (bool, error)
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{db: db, log: baseLog.With("repo", "OrderRepo")}
}

func (r *orderRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *orderRepo) Create(dbc dbctx.Context, order *domain.Order) error {
	row, err := orderRowFromDomain(order)
	if err != nil {
		return err
	}
	return r.conn(dbc).Create(row).Error
}

func (r *orderRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Order, error) {
	var row types.OrderRow
	if err := r.conn(dbc).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return orderRowToDomain(&row)
}

func (r *orderRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Order, error) {
	var row types.OrderRow
	if err := r.conn(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return orderRowToDomain(&row)
}

func (r *orderRepo) UpdateVersioned(dbc dbctx.Context, order *domain.Order, expectedVersion int64) (bool, error) {
	row, err := orderRowFromDomain(order)
	if err != nil {
		return false, err
	}
	res := r.conn(dbc).
		Model(&types.OrderRow{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(map[string]any{
			"status":         row.Status,
			"status_history": row.StatusHistory,
			"version":        row.Version,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type orderLineDTO struct {
	PartID        uuid.UUID `json:"partId"`
	SupplierID    uuid.UUID `json:"supplierId"`
	Quantity      int       `json:"quantity"`
	UnitPrice     int64     `json:"unitPrice"`
	PriceCurrency string    `json:"priceCurrency"`
}

func orderRowFromDomain(order *domain.Order) (*types.OrderRow, error) {
	lines := make([]orderLineDTO, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, orderLineDTO{
			PartID:        l.PartID,
			SupplierID:    l.SupplierID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice.Amount(),
			PriceCurrency: l.UnitPrice.Currency(),
		})
	}
	linesRaw, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}
	historyRaw, err := json.Marshal(order.StatusHistory)
	if err != nil {
		return nil, err
	}
	total, err := order.Total()
	if err != nil {
		return nil, err
	}
	return &types.OrderRow{
		ID:            order.ID,
		GarageID:      order.GarageID,
		Lines:         linesRaw,
		Status:        string(order.Status),
		StatusHistory: historyRaw,
		TotalAmount:   total.Amount(),
		TotalCurrency: total.Currency(),
		Version:       order.Version,
		CreatedAt:     order.CreatedAt,
	}, nil
}

func orderRowToDomain(row *types.OrderRow) (*domain.Order, error) {
	var lineDTOs []orderLineDTO
	if err := json.Unmarshal(row.Lines, &lineDTOs); err != nil {
		return nil, err
	}
	lines := make([]domain.OrderLine, 0, len(lineDTOs))
	for _, d := range lineDTOs {
		price, err := domain.NewMoney(d.UnitPrice, d.PriceCurrency)
		if err != nil {
			return nil, err
		}
		line, err := domain.NewOrderLine(d.PartID, d.SupplierID, d.Quantity, price)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	var history []domain.StatusChange
	if len(row.StatusHistory) > 0 {
		if err := json.Unmarshal(row.StatusHistory, &history); err != nil {
			return nil, err
		}
	}
	status, err := domain.ParseOrderStatus(row.Status)
	if err != nil {
		return nil, err
	}
	return &domain.Order{
		ID:            row.ID,
		GarageID:      row.GarageID,
		Lines:         lines,
		Status:        status,
		StatusHistory: history,
		CreatedAt:     row.CreatedAt,
		Version:       row.Version,
	}, nil
}
