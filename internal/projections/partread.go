package projections

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// PartRead maintains the denormalized parts_read collection.
type PartRead struct {
	store   PartReadStore
	ledger  Ledger
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewPartRead(store PartReadStore, ledger Ledger, metrics *observability.Metrics, baseLog *logger.Logger) *PartRead {
	return &PartRead{
		store:   store,
		ledger:  ledger,
		metrics: metrics,
		log:     baseLog.With("projection", ProjectionParts),
	}
}

func (p *PartRead) Binding() Binding {
	return Binding{
		Projection: ProjectionParts,
		Stream:     domain.StreamCatalog,
		Handlers: map[domain.EventType]EventHandler{
			domain.EventPartCreated:      p.handleCreated,
			domain.EventPartUpdated:      p.handleUpdated,
			domain.EventPartStockChanged: p.handleStockChanged,
		},
		MarkStale: func(ctx context.Context, ev domain.Event) {
			if err := p.store.MarkPartStale(ctx, ev.AggregateID.String()); err != nil {
				p.log.Error("stale flag failed", "part_id", ev.AggregateID, "error", err)
			}
		},
	}
}

func (p *PartRead) handleCreated(ctx context.Context, ev domain.Event) error {
	var payload domain.PartCreatedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return applyOnce(ctx, p.ledger, ProjectionParts, ev, p.metrics, p.log, func(ctx context.Context) error {
		available, outOfStock, lowStock := stockFlags(payload.StockQuantity, payload.StockReserved)
		return p.store.UpsertPart(ctx, PartDoc{
			ID:             ev.AggregateID.String(),
			Reference:      payload.Reference,
			Name:           payload.Name,
			Description:    payload.Description,
			Category:       payload.Category,
			Brand:          payload.Brand,
			PriceAmount:    payload.PriceAmount,
			PriceCurrency:  payload.PriceCurrency,
			PriceFormatted: formatPrice(payload.PriceAmount, payload.PriceCurrency),
			StockQuantity:  payload.StockQuantity,
			StockReserved:  payload.StockReserved,
			StockAvailable: available,
			IsOutOfStock:   outOfStock,
			IsLowStock:     lowStock,
			SupplierID:     payload.SupplierID.String(),
			Vehicles:       vehicleDocs(payload.Vehicles),
		})
	})
}

func (p *PartRead) handleUpdated(ctx context.Context, ev domain.Event) error {
	var payload domain.PartUpdatedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return applyOnce(ctx, p.ledger, ProjectionParts, ev, p.metrics, p.log, func(ctx context.Context) error {
		matched, err := p.store.UpdatePartDetails(ctx, ev.AggregateID.String(), map[string]any{
			"name":           payload.Name,
			"description":    payload.Description,
			"category":       payload.Category,
			"brand":          payload.Brand,
			"priceAmount":    payload.PriceAmount,
			"priceCurrency":  payload.PriceCurrency,
			"priceFormatted": formatPrice(payload.PriceAmount, payload.PriceCurrency),
			"vehicles":       vehicleDocs(payload.Vehicles),
		})
		if err != nil {
			return err
		}
		if !matched {
			return ErrMissingDependency
		}
		return nil
	})
}

func (p *PartRead) handleStockChanged(ctx context.Context, ev domain.Event) error {
	var payload domain.PartStockChangedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return applyOnce(ctx, p.ledger, ProjectionParts, ev, p.metrics, p.log, func(ctx context.Context) error {
		available, outOfStock, lowStock := stockFlags(payload.StockQuantity, payload.StockReserved)
		matched, err := p.store.UpdatePartStock(ctx, ev.AggregateID.String(),
			payload.StockQuantity, payload.StockReserved, available, outOfStock, lowStock)
		if err != nil {
			return err
		}
		if !matched {
			return ErrMissingDependency
		}
		return nil
	})
}

func stockFlags(quantity, reserved int) (available int, outOfStock, lowStock bool) {
	available = quantity - reserved
	if available < 0 {
		available = 0
	}
	outOfStock = available == 0
	lowStock = available > 0 && available <= domain.LowStockThreshold
	return available, outOfStock, lowStock
}

func formatPrice(amount int64, currency string) string {
	m, err := domain.NewMoney(amount, currency)
	if err != nil {
		return ""
	}
	return m.Format()
}

func vehicleDocs(in []domain.VehiclePayload) []VehicleDoc {
	out := make([]VehicleDoc, 0, len(in))
	for _, v := range in {
		out = append(out, VehicleDoc{
			Brand:      v.Brand,
			Model:      v.Model,
			YearFrom:   v.YearFrom,
			YearTo:     v.YearTo,
			EngineCode: v.EngineCode,
		})
	}
	return out
}

func decodePayload[T any](ev domain.Event, target *T) error {
	if err := json.Unmarshal(ev.Payload, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.EventType, err)
	}
	return nil
}
