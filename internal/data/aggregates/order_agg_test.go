package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	domainagg "github.com/gearstack/partsmarket-backend/internal/domain/aggregates"
)

type orderFixture struct {
	agg    domainagg.OrderAggregate
	parts  *fakePartRepo
	orders *fakeOrderRepo
	outbox *fakeOutboxRepo
	runner *spyTxRunner
}

func newOrderFixture() *orderFixture {
	parts := newFakePartRepo()
	orders := newFakeOrderRepo()
	outbox := &fakeOutboxRepo{}
	runner := &spyTxRunner{}
	agg := NewOrderAggregate(OrderAggregateDeps{
		Base:   BaseDeps{Runner: runner, Hooks: &spyHooks{}},
		Orders: orders,
		Parts:  parts,
		Outbox: outbox,
	})
	return &orderFixture{agg: agg, parts: parts, orders: orders, outbox: outbox, runner: runner}
}

func (f *orderFixture) seedPart(t *testing.T, stock int, priceAmount int64) *domain.Part {
	t.Helper()
	ref, err := domain.NewPartReference("P-" + uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	part, err := domain.NewPart(ref, "Part", "", "misc", "", domain.MustMoney(priceAmount, "EUR"), stock, uuid.New(), nil)
	if err != nil {
		t.Fatalf("part: %v", err)
	}
	part.ClearPendingEvents()
	f.parts.put(part)
	return part
}

// Placing an order reserves stock on every part and co-commits the stock
// events with the order's own event in one transaction.
func TestOrderCreateReservesStockAndAppendsEvents(t *testing.T) {
	f := newOrderFixture()
	p1 := f.seedPart(t, 10, 4599)
	p2 := f.seedPart(t, 3, 1250)

	snap, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{
		GarageID: uuid.New(),
		Lines: []domainagg.OrderLineInput{
			{PartID: p1.ID, Quantity: 2},
			{PartID: p2.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if snap.Status != string(domain.StatusPending) {
		t.Fatalf("status: want=PENDING got=%s", snap.Status)
	}
	if snap.TotalAmount != 2*4599+1250 {
		t.Fatalf("total: want=%d got=%d", 2*4599+1250, snap.TotalAmount)
	}

	if f.runner.calls != 1 {
		t.Fatalf("all writes must share one transaction: calls=%d", f.runner.calls)
	}
	if got := f.parts.parts[p1.ID].Stock.Reserved(); got != 2 {
		t.Fatalf("p1 reserved: want=2 got=%d", got)
	}
	if got := f.parts.parts[p2.ID].Stock.Reserved(); got != 1 {
		t.Fatalf("p2 reserved: want=1 got=%d", got)
	}

	var stockEvents, orderEvents int
	for _, ev := range f.outbox.events {
		switch ev.EventType {
		case domain.EventPartStockChanged:
			stockEvents++
		case domain.EventOrderCreated:
			orderEvents++
		}
	}
	if stockEvents != 2 || orderEvents != 1 {
		t.Fatalf("outbox events: stock=%d order=%d", stockEvents, orderEvents)
	}
}

// The unit price on the line is the catalog price at order time; later part
// updates must not change it.
func TestOrderLineSnapshotsCatalogPrice(t *testing.T) {
	f := newOrderFixture()
	p := f.seedPart(t, 5, 1000)

	snap, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{
		GarageID: uuid.New(),
		Lines:    []domainagg.OrderLineInput{{PartID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if snap.Lines[0].UnitPrice != 1000 {
		t.Fatalf("unit price: want=1000 got=%d", snap.Lines[0].UnitPrice)
	}
}

func TestOrderCreateEmptyLinesFails(t *testing.T) {
	f := newOrderFixture()
	_, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{GarageID: uuid.New()})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("want invariant_violation got=%v", err)
	}
}

func TestOrderCreateInsufficientStockFails(t *testing.T) {
	f := newOrderFixture()
	p := f.seedPart(t, 1, 500)

	_, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{
		GarageID: uuid.New(),
		Lines:    []domainagg.OrderLineInput{{PartID: p.ID, Quantity: 2}},
	})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("want invariant_violation got=%v", err)
	}
}

func TestOrderCreateUnknownPartNotFound(t *testing.T) {
	f := newOrderFixture()
	_, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{
		GarageID: uuid.New(),
		Lines:    []domainagg.OrderLineInput{{PartID: uuid.New(), Quantity: 1}},
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want not_found got=%v", err)
	}
}

func TestOrderChangeStatusValidTransition(t *testing.T) {
	f := newOrderFixture()
	p := f.seedPart(t, 5, 500)
	created, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{
		GarageID: uuid.New(),
		Lines:    []domainagg.OrderLineInput{{PartID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	f.outbox.events = nil

	snap, err := f.agg.ChangeStatus(context.Background(), domainagg.ChangeOrderStatusInput{
		OrderID: created.ID,
		Target:  "CONFIRMED",
	})
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if snap.Status != string(domain.StatusConfirmed) {
		t.Fatalf("status: want=CONFIRMED got=%s", snap.Status)
	}
	if len(snap.StatusHistory) != 2 {
		t.Fatalf("history: want=2 got=%d", len(snap.StatusHistory))
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != domain.EventOrderStatusChanged {
		t.Fatalf("outbox: %+v", f.outbox.events)
	}
	if f.outbox.events[0].SequenceNumber != 2 {
		t.Fatalf("sequence: want=2 got=%d", f.outbox.events[0].SequenceNumber)
	}
}

func TestOrderChangeStatusInvalidTransition(t *testing.T) {
	f := newOrderFixture()
	p := f.seedPart(t, 5, 500)
	created, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{
		GarageID: uuid.New(),
		Lines:    []domainagg.OrderLineInput{{PartID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	f.outbox.events = nil

	_, err = f.agg.ChangeStatus(context.Background(), domainagg.ChangeOrderStatusInput{
		OrderID: created.ID,
		Target:  "SHIPPED",
	})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("want invariant_violation got=%v", err)
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("event emitted on failed transition")
	}
	if got := f.orders.orders[created.ID].Status; got != domain.StatusPending {
		t.Fatalf("persisted status mutated: %s", got)
	}
}

func TestOrderChangeStatusLostRaceConflicts(t *testing.T) {
	f := newOrderFixture()
	p := f.seedPart(t, 5, 500)
	created, err := f.agg.Create(context.Background(), domainagg.CreateOrderInput{
		GarageID: uuid.New(),
		Lines:    []domainagg.OrderLineInput{{PartID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	f.orders.casFail = true
	_, err = f.agg.ChangeStatus(context.Background(), domainagg.ChangeOrderStatusInput{
		OrderID: created.ID,
		Target:  "CONFIRMED",
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got=%v", err)
	}
}
