package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
)

type fakeLedger struct {
	applied map[string]bool
	unmarks int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{applied: make(map[string]bool)}
}

func (l *fakeLedger) key(projection string, eventID uuid.UUID) string {
	return projection + "|" + eventID.String()
}

func (l *fakeLedger) MarkApplied(_ context.Context, projection string, eventID uuid.UUID) (bool, error) {
	k := l.key(projection, eventID)
	if l.applied[k] {
		return false, nil
	}
	l.applied[k] = true
	return true, nil
}

func (l *fakeLedger) Unmark(_ context.Context, projection string, eventID uuid.UUID) error {
	l.unmarks++
	delete(l.applied, l.key(projection, eventID))
	return nil
}

type fakePartStore struct {
	docs    map[string]*PartDoc
	upserts int
	stale   []string
}

func newFakePartStore() *fakePartStore {
	return &fakePartStore{docs: make(map[string]*PartDoc)}
}

func (s *fakePartStore) UpsertPart(_ context.Context, doc PartDoc) error {
	s.upserts++
	cp := doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *fakePartStore) GetPart(_ context.Context, id string) (*PartDoc, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *fakePartStore) UpdatePartDetails(_ context.Context, id string, fields map[string]any) (bool, error) {
	doc, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	if name, ok := fields["name"].(string); ok {
		doc.Name = name
	}
	if amount, ok := fields["priceAmount"].(int64); ok {
		doc.PriceAmount = amount
	}
	if formatted, ok := fields["priceFormatted"].(string); ok {
		doc.PriceFormatted = formatted
	}
	return true, nil
}

func (s *fakePartStore) UpdatePartStock(_ context.Context, id string, quantity, reserved, available int, outOfStock, lowStock bool) (bool, error) {
	doc, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	doc.StockQuantity = quantity
	doc.StockReserved = reserved
	doc.StockAvailable = available
	doc.IsOutOfStock = outOfStock
	doc.IsLowStock = lowStock
	return true, nil
}

func (s *fakePartStore) MarkPartStale(_ context.Context, id string) error {
	s.stale = append(s.stale, id)
	return nil
}

type fakeOrderStore struct {
	docs    map[string]*OrderDoc
	upserts int
	stale   []string
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{docs: make(map[string]*OrderDoc)}
}

func (s *fakeOrderStore) UpsertOrder(_ context.Context, doc OrderDoc) error {
	s.upserts++
	cp := doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *fakeOrderStore) GetOrder(_ context.Context, id string) (*OrderDoc, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *fakeOrderStore) ApplyStatusChange(_ context.Context, id, status string, entry StatusEntryDoc) (bool, error) {
	doc, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	doc.Status = status
	doc.StatusHistory = append(doc.StatusHistory, entry)
	return true, nil
}

func (s *fakeOrderStore) MarkOrderStale(_ context.Context, id string) error {
	s.stale = append(s.stale, id)
	return nil
}

type fakeUserStore struct {
	docs map[string]*UserDoc
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{docs: make(map[string]*UserDoc)}
}

func (s *fakeUserStore) UpsertUser(_ context.Context, doc UserDoc) error {
	cp := doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetUser(_ context.Context, id string) (*UserDoc, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

type graphWrite struct {
	eventID    uuid.UUID
	statements []CypherStatement
}

type fakeGraphExec struct {
	applied map[uuid.UUID]bool
	writes  []graphWrite
	stale   []string
	err     error
}

func newFakeGraphExec() *fakeGraphExec {
	return &fakeGraphExec{applied: make(map[uuid.UUID]bool)}
}

func (e *fakeGraphExec) WriteIdempotent(_ context.Context, _ string, eventID uuid.UUID, statements []CypherStatement) (bool, error) {
	if e.err != nil {
		return false, e.err
	}
	if e.applied[eventID] {
		return false, nil
	}
	e.applied[eventID] = true
	e.writes = append(e.writes, graphWrite{eventID: eventID, statements: statements})
	return true, nil
}

func (e *fakeGraphExec) MarkStale(_ context.Context, label, id string) error {
	e.stale = append(e.stale, label+":"+id)
	return nil
}

// failingPartStore wraps a store so one apply attempt fails after the
// ledger mark, exercising the compensation path.
type failingPartStore struct {
	*fakePartStore
	failNext bool
}

func (s *failingPartStore) UpsertPart(ctx context.Context, doc PartDoc) error {
	if s.failNext {
		s.failNext = false
		return errors.New("write timeout")
	}
	return s.fakePartStore.UpsertPart(ctx, doc)
}

func mustEvent(t *testing.T, aggregateType string, aggregateID uuid.UUID, seq int64, eventType domain.EventType, payload any) domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(aggregateType, aggregateID, seq, eventType, payload)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	return ev
}

func partCreatedEvent(t *testing.T, partID, supplierID uuid.UUID) domain.Event {
	t.Helper()
	return mustEvent(t, domain.AggregatePart, partID, 1, domain.EventPartCreated, domain.PartCreatedPayload{
		Reference:     "BR-PAD-001",
		Name:          "Brake pads",
		Category:      "brakes",
		Brand:         "Bosch",
		PriceAmount:   4599,
		PriceCurrency: "EUR",
		StockQuantity: 10,
		SupplierID:    supplierID,
	})
}

func orderCreatedEvent(t *testing.T, orderID, garageID uuid.UUID, lines []domain.OrderLinePayload) domain.Event {
	t.Helper()
	var total int64
	for _, l := range lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return mustEvent(t, domain.AggregateOrder, orderID, 1, domain.EventOrderCreated, domain.OrderCreatedPayload{
		GarageID:      garageID,
		Lines:         lines,
		TotalAmount:   total,
		TotalCurrency: "EUR",
		Status:        domain.StatusPending,
		CreatedAt:     time.Now().UTC(),
	})
}
