package projections

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

func newPartReadFixture() (*PartRead, *fakePartStore, *fakeLedger) {
	store := newFakePartStore()
	ledger := newFakeLedger()
	p := NewPartRead(store, ledger, observability.NewMetrics(), logger.NewNop())
	return p, store, ledger
}

func TestPartCreatedProjectsFullDocument(t *testing.T) {
	p, store, _ := newPartReadFixture()
	partID := uuid.New()
	ev := partCreatedEvent(t, partID, uuid.New())

	if err := p.Binding().Handlers[domain.EventPartCreated](context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	doc := store.docs[partID.String()]
	if doc == nil {
		t.Fatal("part doc missing")
	}
	if doc.Reference != "BR-PAD-001" || doc.StockAvailable != 10 {
		t.Fatalf("doc: %+v", doc)
	}
	if doc.PriceFormatted != "45.99 EUR" {
		t.Fatalf("price formatted: %q", doc.PriceFormatted)
	}
	if doc.IsOutOfStock || doc.IsLowStock {
		t.Fatalf("stock flags: oos=%v low=%v", doc.IsOutOfStock, doc.IsLowStock)
	}
}

// Applying the same delivery twice leaves the read model exactly as one
// delivery does.
func TestPartCreatedDuplicateDeliveryAppliesOnce(t *testing.T) {
	p, store, _ := newPartReadFixture()
	ev := partCreatedEvent(t, uuid.New(), uuid.New())
	handle := p.Binding().Handlers[domain.EventPartCreated]

	if err := handle(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := handle(context.Background(), ev); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if store.upserts != 1 {
		t.Fatalf("upserts: want=1 got=%d", store.upserts)
	}
}

func TestPartStockChangedBeforeCreatedRetries(t *testing.T) {
	p, store, ledger := newPartReadFixture()
	partID := uuid.New()
	ev := mustEvent(t, domain.AggregatePart, partID, 2, domain.EventPartStockChanged, domain.PartStockChangedPayload{
		Kind:          domain.StockReserved,
		ChangeQty:     2,
		StockQuantity: 10,
		StockReserved: 2,
	})

	err := p.Binding().Handlers[domain.EventPartStockChanged](context.Background(), ev)
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("want missing dependency got=%v", err)
	}
	// The ledger mark must be rolled back so redelivery can apply.
	if ledger.unmarks != 1 {
		t.Fatalf("unmarks: want=1 got=%d", ledger.unmarks)
	}

	created := partCreatedEvent(t, partID, uuid.New())
	if err := p.Binding().Handlers[domain.EventPartCreated](context.Background(), created); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Binding().Handlers[domain.EventPartStockChanged](context.Background(), ev); err != nil {
		t.Fatalf("redelivery after create: %v", err)
	}
	doc := store.docs[partID.String()]
	if doc.StockReserved != 2 || doc.StockAvailable != 8 {
		t.Fatalf("stock after redelivery: %+v", doc)
	}
}

func TestPartUpdatedPatchesDetails(t *testing.T) {
	p, store, _ := newPartReadFixture()
	partID := uuid.New()
	if err := p.Binding().Handlers[domain.EventPartCreated](context.Background(), partCreatedEvent(t, partID, uuid.New())); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated := mustEvent(t, domain.AggregatePart, partID, 2, domain.EventPartUpdated, domain.PartUpdatedPayload{
		Name:          "Brake pads ceramic",
		Category:      "brakes",
		Brand:         "Bosch",
		PriceAmount:   5499,
		PriceCurrency: "EUR",
	})
	if err := p.Binding().Handlers[domain.EventPartUpdated](context.Background(), updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc := store.docs[partID.String()]
	if doc.Name != "Brake pads ceramic" || doc.PriceAmount != 5499 {
		t.Fatalf("doc after update: %+v", doc)
	}
	if doc.PriceFormatted != "54.99 EUR" {
		t.Fatalf("price formatted: %q", doc.PriceFormatted)
	}
}

// A store failure after the ledger mark must unmark, so the redelivered
// event is not treated as a duplicate.
func TestApplyFailureCompensatesLedger(t *testing.T) {
	store := &failingPartStore{fakePartStore: newFakePartStore(), failNext: true}
	ledger := newFakeLedger()
	p := NewPartRead(store, ledger, observability.NewMetrics(), logger.NewNop())
	ev := partCreatedEvent(t, uuid.New(), uuid.New())
	handle := p.Binding().Handlers[domain.EventPartCreated]

	if err := handle(context.Background(), ev); err == nil {
		t.Fatal("want store failure")
	}
	if ledger.unmarks != 1 {
		t.Fatalf("unmarks: want=1 got=%d", ledger.unmarks)
	}
	if err := handle(context.Background(), ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if store.upserts != 1 {
		t.Fatalf("upserts: want=1 got=%d", store.upserts)
	}
}

func TestStockFlags(t *testing.T) {
	cases := []struct {
		quantity, reserved, available int
		outOfStock, lowStock          bool
	}{
		{10, 0, 10, false, false},
		{10, 10, 0, true, false},
		{10, 7, 3, false, true},
		{domain.LowStockThreshold + 1, 0, domain.LowStockThreshold + 1, false, false},
		{3, 5, 0, true, false},
	}
	for _, c := range cases {
		available, outOfStock, lowStock := stockFlags(c.quantity, c.reserved)
		if available != c.available || outOfStock != c.outOfStock || lowStock != c.lowStock {
			t.Fatalf("stockFlags(%d,%d): got avail=%d oos=%v low=%v",
				c.quantity, c.reserved, available, outOfStock, lowStock)
		}
	}
}
