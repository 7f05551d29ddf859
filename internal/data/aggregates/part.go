package aggregates

import (
	"context"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/repos"
)

type PartAggregateDeps struct {
	Base BaseDeps

	Parts  repos.PartRepo
	Outbox repos.OutboxRepo
}

type partAggregate struct {
	deps PartAggregateDeps
}

func NewPartAggregate(deps PartAggregateDeps) domainagg.PartAggregate {
	deps.Base = deps.Base.withDefaults()
	return &partAggregate{deps: deps}
}

func (a *partAggregate) Contract() domainagg.Contract {
	return domainagg.PartAggregateContract
}

func (a *partAggregate) Create(ctx context.Context, in domainagg.CreatePartInput) (domainagg.PartSnapshot, error) {
	const op = "Catalog.Part.Create"
	var out domainagg.PartSnapshot

	reference, err := domain.NewPartReference(in.Reference)
	if err != nil {
		return out, MapError(op, err)
	}
	price, err := domain.NewMoney(in.PriceAmount, in.PriceCurrency)
	if err != nil {
		return out, MapError(op, err)
	}
	vehicles, err := vehiclesFromInput(in.Vehicles)
	if err != nil {
		return out, MapError(op, err)
	}

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		exists, err := a.deps.Parts.ReferenceExists(dbc, in.SupplierID, reference.String())
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateReference
		}
		part, err := domain.NewPart(reference, in.Name, in.Description, in.Category, in.Brand, price, in.InitialStock, in.SupplierID, vehicles)
		if err != nil {
			return err
		}
		if err := a.deps.Parts.Create(dbc, part); err != nil {
			return err
		}
		if err := a.deps.Outbox.Append(dbc, part.PendingEvents()); err != nil {
			return err
		}
		part.ClearPendingEvents()
		out = snapshotPart(part)
		return nil
	})
	return out, err
}

func (a *partAggregate) Update(ctx context.Context, in domainagg.UpdatePartInput) (domainagg.PartSnapshot, error) {
	const op = "Catalog.Part.Update"
	var out domainagg.PartSnapshot

	price, err := domain.NewMoney(in.PriceAmount, in.PriceCurrency)
	if err != nil {
		return out, MapError(op, err)
	}
	vehicles, err := vehiclesFromInput(in.Vehicles)
	if err != nil {
		return out, MapError(op, err)
	}

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		part, err := a.deps.Parts.LockByID(dbc, in.PartID)
		if err != nil {
			return err
		}
		loadedVersion := part.Version
		if err := part.Update(in.Name, in.Description, in.Category, in.Brand, price, vehicles); err != nil {
			return err
		}
		return a.persistPart(dbc, part, loadedVersion, &out)
	})
	return out, err
}

func (a *partAggregate) AddStock(ctx context.Context, in domainagg.StockInput) (domainagg.PartSnapshot, error) {
	return a.stockOp(ctx, "Catalog.Part.AddStock", in, (*domain.Part).AddStock)
}

func (a *partAggregate) Reserve(ctx context.Context, in domainagg.StockInput) (domainagg.PartSnapshot, error) {
	return a.stockOp(ctx, "Catalog.Part.Reserve", in, (*domain.Part).Reserve)
}

func (a *partAggregate) Release(ctx context.Context, in domainagg.StockInput) (domainagg.PartSnapshot, error) {
	return a.stockOp(ctx, "Catalog.Part.Release", in, (*domain.Part).Release)
}

func (a *partAggregate) stockOp(ctx context.Context, op string, in domainagg.StockInput, mutate func(*domain.Part, int) error) (domainagg.PartSnapshot, error) {
	var out domainagg.PartSnapshot
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		part, err := a.deps.Parts.LockByID(dbc, in.PartID)
		if err != nil {
			return err
		}
		loadedVersion := part.Version
		if err := mutate(part, in.Quantity); err != nil {
			return err
		}
		return a.persistPart(dbc, part, loadedVersion, &out)
	})
	return out, err
}

// persistPart writes the mutated aggregate and its pending events in the
// ambient transaction. The version predicate catches writers that slipped
// past row locking.
func (a *partAggregate) persistPart(dbc dbctx.Context, part *domain.Part, loadedVersion int64, out *domainagg.PartSnapshot) error {
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
	*out = snapshotPart(part)
	return nil
}

func vehiclesFromInput(in []domainagg.VehicleInput) ([]domain.VehicleCompatibility, error) {
	out := make([]domain.VehicleCompatibility, 0, len(in))
	for _, v := range in {
		vc, err := domain.NewVehicleCompatibility(v.Brand, v.Model, v.YearFrom, v.YearTo, v.EngineCode)
		if err != nil {
			return nil, err
		}
		out = append(out, vc)
	}
	return out, nil
}

func snapshotPart(part *domain.Part) domainagg.PartSnapshot {
	vehicles := make([]domainagg.VehicleInput, 0, len(part.Vehicles))
	for _, v := range part.Vehicles {
		vehicles = append(vehicles, domainagg.VehicleInput{
			Brand:      v.Brand,
			Model:      v.Model,
			YearFrom:   v.YearFrom,
			YearTo:     v.YearTo,
			EngineCode: v.EngineCode,
		})
	}
	return domainagg.PartSnapshot{
		ID:             part.ID,
		Reference:      part.Reference.String(),
		Name:           part.Name,
		Description:    part.Description,
		Category:       part.Category,
		Brand:          part.Brand,
		PriceAmount:    part.Price.Amount(),
		PriceCurrency:  part.Price.Currency(),
		PriceFormatted: part.Price.Format(),
		StockQuantity:  part.Stock.Quantity(),
		StockReserved:  part.Stock.Reserved(),
		StockAvailable: part.Stock.Available(),
		SupplierID:     part.SupplierID,
		Vehicles:       vehicles,
		Version:        part.Version,
	}
}
