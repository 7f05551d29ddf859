package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

func newOrderReadFixture() (*OrderRead, *fakeOrderStore, *fakePartStore, *fakeLedger) {
	orders := newFakeOrderStore()
	parts := newFakePartStore()
	ledger := newFakeLedger()
	p := NewOrderRead(orders, parts, ledger, observability.NewMetrics(), logger.NewNop())
	return p, orders, parts, ledger
}

func seedPartDoc(parts *fakePartStore, partID uuid.UUID) {
	parts.docs[partID.String()] = &PartDoc{
		ID:        partID.String(),
		Reference: "BR-PAD-001",
		Name:      "Brake pads",
	}
}

func TestOrderCreatedJoinsPartDetails(t *testing.T) {
	p, orders, parts, _ := newOrderReadFixture()
	orderID, partID := uuid.New(), uuid.New()
	seedPartDoc(parts, partID)

	ev := orderCreatedEvent(t, orderID, uuid.New(), []domain.OrderLinePayload{
		{PartID: partID, SupplierID: uuid.New(), Quantity: 2, UnitPrice: 4599, PriceCurrency: "EUR"},
	})
	if err := p.Binding().Handlers[domain.EventOrderCreated](context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}

	doc := orders.docs[orderID.String()]
	if doc == nil {
		t.Fatal("order doc missing")
	}
	line := doc.Lines[0]
	if line.PartReference != "BR-PAD-001" || line.PartName != "Brake pads" {
		t.Fatalf("joined line: %+v", line)
	}
	if line.LineTotal != 2*4599 {
		t.Fatalf("line total: want=%d got=%d", 2*4599, line.LineTotal)
	}
	if len(doc.StatusHistory) != 1 || doc.StatusHistory[0].Status != string(domain.StatusPending) {
		t.Fatalf("history: %+v", doc.StatusHistory)
	}
}

// An order event can arrive before the catalog projection has seen the
// part. The delivery is retried, not dropped and not half-applied.
func TestOrderCreatedBeforePartDocRetries(t *testing.T) {
	p, orders, parts, ledger := newOrderReadFixture()
	orderID, partID := uuid.New(), uuid.New()

	ev := orderCreatedEvent(t, orderID, uuid.New(), []domain.OrderLinePayload{
		{PartID: partID, SupplierID: uuid.New(), Quantity: 1, UnitPrice: 1250, PriceCurrency: "EUR"},
	})
	handle := p.Binding().Handlers[domain.EventOrderCreated]

	err := handle(context.Background(), ev)
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("want missing dependency got=%v", err)
	}
	if orders.upserts != 0 {
		t.Fatal("order doc written despite missing part")
	}
	if ledger.unmarks != 1 {
		t.Fatalf("unmarks: want=1 got=%d", ledger.unmarks)
	}

	seedPartDoc(parts, partID)
	if err := handle(context.Background(), ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if orders.docs[orderID.String()] == nil {
		t.Fatal("order doc missing after redelivery")
	}
}

func TestOrderStatusChangedAppendsHistory(t *testing.T) {
	p, orders, parts, _ := newOrderReadFixture()
	orderID, partID := uuid.New(), uuid.New()
	seedPartDoc(parts, partID)

	created := orderCreatedEvent(t, orderID, uuid.New(), []domain.OrderLinePayload{
		{PartID: partID, SupplierID: uuid.New(), Quantity: 1, UnitPrice: 1250, PriceCurrency: "EUR"},
	})
	if err := p.Binding().Handlers[domain.EventOrderCreated](context.Background(), created); err != nil {
		t.Fatalf("create: %v", err)
	}

	changed := mustEvent(t, domain.AggregateOrder, orderID, 2, domain.EventOrderStatusChanged, domain.OrderStatusChangedPayload{
		From:      domain.StatusPending,
		To:        domain.StatusConfirmed,
		ChangedAt: time.Now().UTC(),
	})
	if err := p.Binding().Handlers[domain.EventOrderStatusChanged](context.Background(), changed); err != nil {
		t.Fatalf("status change: %v", err)
	}
	doc := orders.docs[orderID.String()]
	if doc.Status != string(domain.StatusConfirmed) {
		t.Fatalf("status: %s", doc.Status)
	}
	if len(doc.StatusHistory) != 2 {
		t.Fatalf("history: want=2 got=%d", len(doc.StatusHistory))
	}
}

// The history append is not idempotent on its own; the ledger fence must
// keep a duplicate delivery from appending twice.
func TestOrderStatusChangedDuplicateDeliveryAppendsOnce(t *testing.T) {
	p, orders, parts, _ := newOrderReadFixture()
	orderID, partID := uuid.New(), uuid.New()
	seedPartDoc(parts, partID)

	created := orderCreatedEvent(t, orderID, uuid.New(), []domain.OrderLinePayload{
		{PartID: partID, SupplierID: uuid.New(), Quantity: 1, UnitPrice: 1250, PriceCurrency: "EUR"},
	})
	if err := p.Binding().Handlers[domain.EventOrderCreated](context.Background(), created); err != nil {
		t.Fatalf("create: %v", err)
	}
	changed := mustEvent(t, domain.AggregateOrder, orderID, 2, domain.EventOrderStatusChanged, domain.OrderStatusChangedPayload{
		From: domain.StatusPending, To: domain.StatusConfirmed, ChangedAt: time.Now().UTC(),
	})
	handle := p.Binding().Handlers[domain.EventOrderStatusChanged]

	if err := handle(context.Background(), changed); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := handle(context.Background(), changed); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if got := len(orders.docs[orderID.String()].StatusHistory); got != 2 {
		t.Fatalf("history after duplicate: want=2 got=%d", got)
	}
}

func TestOrderStatusChangedBeforeBaseDocRetries(t *testing.T) {
	p, _, _, ledger := newOrderReadFixture()

	changed := mustEvent(t, domain.AggregateOrder, uuid.New(), 2, domain.EventOrderStatusChanged, domain.OrderStatusChangedPayload{
		From: domain.StatusPending, To: domain.StatusConfirmed, ChangedAt: time.Now().UTC(),
	})
	err := p.Binding().Handlers[domain.EventOrderStatusChanged](context.Background(), changed)
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("want missing dependency got=%v", err)
	}
	if ledger.unmarks != 1 {
		t.Fatalf("unmarks: want=1 got=%d", ledger.unmarks)
	}
}
