package aggregates

import (
	"context"
	"sort"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/repos"
)

type OrderAggregateDeps struct {
	Base BaseDeps

	Orders repos.OrderRepo
	Parts  repos.PartRepo
	Outbox repos.OutboxRepo
}

type orderAggregate struct {
	deps OrderAggregateDeps
}

func NewOrderAggregate(deps OrderAggregateDeps) domainagg.OrderAggregate {
	deps.Base = deps.Base.withDefaults()
	return &orderAggregate{deps: deps}
}

func (a *orderAggregate) Contract() domainagg.Contract {
	return domainagg.OrderAggregateContract
}

// Create places an order and reserves stock on every referenced part in
// the same transaction. Each part is its own aggregate: its reservation
// emits its own stock event, co-committed with the order and OrderCreated.
func (a *orderAggregate) Create(ctx context.Context, in domainagg.CreateOrderInput) (domainagg.OrderSnapshot, error) {
	const op = "Orders.Order.Create"
	var out domainagg.OrderSnapshot

	if len(in.Lines) == 0 {
		return out, MapError(op, domain.ErrEmptyOrder)
	}
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return out, MapError(op, domain.NewValidationError("order line quantity must be positive"))
		}
	}

	// Stable lock order across parts keeps concurrent order commands from
	// deadlocking each other.
	lines := append([]domainagg.OrderLineInput(nil), in.Lines...)
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].PartID.String() < lines[j].PartID.String()
	})

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		orderLines := make([]domain.OrderLine, 0, len(lines))
		for _, lineIn := range lines {
			part, err := a.deps.Parts.LockByID(dbc, lineIn.PartID)
			if err != nil {
				return err
			}
			loadedVersion := part.Version
			if err := part.Reserve(lineIn.Quantity); err != nil {
				return err
			}
			ok, err := a.deps.Parts.UpdateVersioned(dbc, part, loadedVersion)
			if err != nil {
				return err
			}
			if !ok {
				return ConflictError("part was modified concurrently")
			}
			if err := a.deps.Outbox.Append(dbc, part.PendingEvents()); err != nil {
				return err
			}
			part.ClearPendingEvents()

			line, err := domain.NewOrderLine(part.ID, part.SupplierID, lineIn.Quantity, part.Price)
			if err != nil {
				return err
			}
			orderLines = append(orderLines, line)
		}

		order, err := domain.NewOrder(in.GarageID, orderLines)
		if err != nil {
			return err
		}
		if err := a.deps.Orders.Create(dbc, order); err != nil {
			return err
		}
		if err := a.deps.Outbox.Append(dbc, order.PendingEvents()); err != nil {
			return err
		}
		order.ClearPendingEvents()
		return snapshotOrder(order, &out)
	})
	return out, err
}

func (a *orderAggregate) ChangeStatus(ctx context.Context, in domainagg.ChangeOrderStatusInput) (domainagg.OrderSnapshot, error) {
	const op = "Orders.Order.ChangeStatus"
	var out domainagg.OrderSnapshot

	target, err := domain.ParseOrderStatus(in.Target)
	if err != nil {
		return out, MapError(op, err)
	}

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		order, err := a.deps.Orders.LockByID(dbc, in.OrderID)
		if err != nil {
			return err
		}
		loadedVersion := order.Version
		if err := order.ChangeStatus(target, in.Reason); err != nil {
			return err
		}
		ok, err := a.deps.Orders.UpdateVersioned(dbc, order, loadedVersion)
		if err != nil {
			return err
		}
		if !ok {
			return ConflictError("order was modified concurrently")
		}
		if err := a.deps.Outbox.Append(dbc, order.PendingEvents()); err != nil {
			return err
		}
		order.ClearPendingEvents()
		return snapshotOrder(order, &out)
	})
	return out, err
}

func snapshotOrder(order *domain.Order, out *domainagg.OrderSnapshot) error {
	total, err := order.Total()
	if err != nil {
		return err
	}
	lines := make([]domainagg.OrderLineSnapshot, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, domainagg.OrderLineSnapshot{
			PartID:        l.PartID,
			SupplierID:    l.SupplierID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice.Amount(),
			PriceCurrency: l.UnitPrice.Currency(),
		})
	}
	history := make([]domainagg.StatusChangeSnapshot, 0, len(order.StatusHistory))
	for _, h := range order.StatusHistory {
		history = append(history, domainagg.StatusChangeSnapshot{
			Status:    string(h.Status),
			ChangedAt: h.ChangedAt,
			Reason:    h.Reason,
		})
	}
	*out = domainagg.OrderSnapshot{
		ID:            order.ID,
		GarageID:      order.GarageID,
		Lines:         lines,
		Status:        string(order.Status),
		StatusHistory: history,
		TotalAmount:   total.Amount(),
		TotalCurrency: total.Currency(),
		CreatedAt:     order.CreatedAt,
		Version:       order.Version,
	}
	return nil
}
