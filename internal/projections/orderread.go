package projections

import (
	"context"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// OrderRead maintains orders_read. Line part details are joined from
// parts_read at apply time; a missing part doc nacks the event so the
// catalog projection can catch up first.
type OrderRead struct {
	store   OrderReadStore
	parts   PartReadStore
	ledger  Ledger
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewOrderRead(store OrderReadStore, parts PartReadStore, ledger Ledger, metrics *observability.Metrics, baseLog *logger.Logger) *OrderRead {
	return &OrderRead{
		store:   store,
		parts:   parts,
		ledger:  ledger,
		metrics: metrics,
		log:     baseLog.With("projection", ProjectionOrders),
	}
}

func (p *OrderRead) Binding() Binding {
	return Binding{
		Projection: ProjectionOrders,
		Stream:     domain.StreamOrders,
		Handlers: map[domain.EventType]EventHandler{
			domain.EventOrderCreated:       p.handleCreated,
			domain.EventOrderStatusChanged: p.handleStatusChanged,
		},
		MarkStale: func(ctx context.Context, ev domain.Event) {
			if err := p.store.MarkOrderStale(ctx, ev.AggregateID.String()); err != nil {
				p.log.Error("stale flag failed", "order_id", ev.AggregateID, "error", err)
			}
		},
	}
}

func (p *OrderRead) handleCreated(ctx context.Context, ev domain.Event) error {
	var payload domain.OrderCreatedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return applyOnce(ctx, p.ledger, ProjectionOrders, ev, p.metrics, p.log, func(ctx context.Context) error {
		lines := make([]OrderLineDoc, 0, len(payload.Lines))
		for _, l := range payload.Lines {
			partDoc, err := p.parts.GetPart(ctx, l.PartID.String())
			if err != nil {
				return err
			}
			if partDoc == nil {
				p.log.Warn("order line part not projected yet, retrying later",
					"order_id", ev.AggregateID, "part_id", l.PartID)
				return ErrMissingDependency
			}
			lines = append(lines, OrderLineDoc{
				PartID:        l.PartID.String(),
				PartReference: partDoc.Reference,
				PartName:      partDoc.Name,
				SupplierID:    l.SupplierID.String(),
				Quantity:      l.Quantity,
				UnitPrice:     l.UnitPrice,
				PriceCurrency: l.PriceCurrency,
				LineTotal:     l.UnitPrice * int64(l.Quantity),
			})
		}
		return p.store.UpsertOrder(ctx, OrderDoc{
			ID:       ev.AggregateID.String(),
			GarageID: payload.GarageID.String(),
			Lines:    lines,
			Status:   string(payload.Status),
			StatusHistory: []StatusEntryDoc{{
				Status:    string(payload.Status),
				ChangedAt: payload.CreatedAt,
			}},
			TotalAmount:   payload.TotalAmount,
			TotalCurrency: payload.TotalCurrency,
			CreatedAt:     payload.CreatedAt,
		})
	})
}

func (p *OrderRead) handleStatusChanged(ctx context.Context, ev domain.Event) error {
	var payload domain.OrderStatusChangedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return applyOnce(ctx, p.ledger, ProjectionOrders, ev, p.metrics, p.log, func(ctx context.Context) error {
		matched, err := p.store.ApplyStatusChange(ctx, ev.AggregateID.String(), string(payload.To), StatusEntryDoc{
			Status:    string(payload.To),
			ChangedAt: payload.ChangedAt,
			Reason:    payload.Reason,
		})
		if err != nil {
			return err
		}
		if !matched {
			p.log.Warn("status change arrived before order doc, retrying later",
				"order_id", ev.AggregateID)
			return ErrMissingDependency
		}
		return nil
	})
}
