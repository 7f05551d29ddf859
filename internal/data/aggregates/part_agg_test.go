package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
)

func newPartFixture() (domainagg.PartAggregate, *fakePartRepo, *fakeOutboxRepo) {
	parts := newFakePartRepo()
	outbox := &fakeOutboxRepo{}
	d := PartAggregateDeps{
		Base:   BaseDeps{Runner: &spyTxRunner{}, Hooks: &spyHooks{}},
		Parts:  parts,
		Outbox: outbox,
	}
	return NewPartAggregate(d), parts, outbox
}

func createPartInput(supplierID uuid.UUID) domainagg.CreatePartInput {
	return domainagg.CreatePartInput{
		Reference:     "BR-PAD-001",
		Name:          "Brake pads",
		Description:   "Front axle",
		Category:      "brakes",
		Brand:         "Bosch",
		PriceAmount:   4599,
		PriceCurrency: "EUR",
		InitialStock:  10,
		SupplierID:    supplierID,
	}
}

func TestPartCreateAppendsEventToOutbox(t *testing.T) {
	agg, parts, outbox := newPartFixture()
	supplierID := uuid.New()

	snap, err := agg.Create(context.Background(), createPartInput(supplierID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.Reference != "BR-PAD-001" || snap.StockAvailable != 10 {
		t.Fatalf("snapshot: %+v", snap)
	}
	if snap.Version != 1 {
		t.Fatalf("version: want=1 got=%d", snap.Version)
	}
	if len(outbox.events) != 1 || outbox.events[0].EventType != domain.EventPartCreated {
		t.Fatalf("outbox: %+v", outbox.events)
	}
	if outbox.events[0].SequenceNumber != 1 {
		t.Fatalf("sequence: want=1 got=%d", outbox.events[0].SequenceNumber)
	}
	if _, ok := parts.parts[snap.ID]; !ok {
		t.Fatal("part not persisted")
	}
}

func TestPartCreateDuplicateReferenceConflicts(t *testing.T) {
	agg, _, outbox := newPartFixture()
	supplierID := uuid.New()

	if _, err := agg.Create(context.Background(), createPartInput(supplierID)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := agg.Create(context.Background(), createPartInput(supplierID))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got=%v", err)
	}
	if len(outbox.events) != 1 {
		t.Fatalf("outbox grew on failed create: %d", len(outbox.events))
	}
}

func TestPartCreateSameReferenceOtherSupplierOK(t *testing.T) {
	agg, _, _ := newPartFixture()

	if _, err := agg.Create(context.Background(), createPartInput(uuid.New())); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := agg.Create(context.Background(), createPartInput(uuid.New())); err != nil {
		t.Fatalf("same reference for another supplier should pass: %v", err)
	}
}

func TestPartReserveInsufficientStockFailsWithoutEvents(t *testing.T) {
	agg, _, outbox := newPartFixture()
	snap, err := agg.Create(context.Background(), createPartInput(uuid.New()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	outbox.events = nil

	_, err = agg.Reserve(context.Background(), domainagg.StockInput{PartID: snap.ID, Quantity: 11})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("want invariant_violation got=%v", err)
	}
	if len(outbox.events) != 0 {
		t.Fatalf("outbox grew on failed reserve: %d", len(outbox.events))
	}
}

func TestPartStockOpsEmitSequencedEvents(t *testing.T) {
	agg, parts, outbox := newPartFixture()
	snap, err := agg.Create(context.Background(), createPartInput(uuid.New()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := agg.Reserve(context.Background(), domainagg.StockInput{PartID: snap.ID, Quantity: 4}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := agg.Release(context.Background(), domainagg.StockInput{PartID: snap.ID, Quantity: 2}); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, err := agg.AddStock(context.Background(), domainagg.StockInput{PartID: snap.ID, Quantity: 5})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if got.StockQuantity != 15 || got.StockReserved != 2 || got.StockAvailable != 13 {
		t.Fatalf("stock snapshot: %+v", got)
	}
	if len(outbox.events) != 4 {
		t.Fatalf("outbox events: want=4 got=%d", len(outbox.events))
	}
	for i, ev := range outbox.events {
		if ev.SequenceNumber != int64(i+1) {
			t.Fatalf("event %d sequence: want=%d got=%d", i, i+1, ev.SequenceNumber)
		}
	}
	if parts.parts[snap.ID].Version != 4 {
		t.Fatalf("persisted version: want=4 got=%d", parts.parts[snap.ID].Version)
	}
}

func TestPartUpdateLostRaceConflicts(t *testing.T) {
	agg, parts, _ := newPartFixture()
	snap, err := agg.Create(context.Background(), createPartInput(uuid.New()))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	parts.casFail = true
	_, err = agg.AddStock(context.Background(), domainagg.StockInput{PartID: snap.ID, Quantity: 1})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got=%v", err)
	}
}
