package aggregates

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/types"
)

type spyTxRunner struct {
	calls int
	err   error
}

func (r *spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	mu         sync.Mutex
	operations []string
	statuses   []string
	conflicts  []string
	retries    []string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.operations = append(h.operations, name)
	h.statuses = append(h.statuses, status)
}

func (h *spyHooks) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conflicts = append(h.conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retries = append(h.retries, name)
}

type fakePartRepo struct {
	parts      map[uuid.UUID]*domain.Part
	references map[string]bool
	// casFail forces the next UpdateVersioned to report a lost race.
	casFail bool
}

func newFakePartRepo() *fakePartRepo {
	return &fakePartRepo{
		parts:      make(map[uuid.UUID]*domain.Part),
		references: make(map[string]bool),
	}
}

func (f *fakePartRepo) put(p *domain.Part) {
	cp := *p
	cp.ClearPendingEvents()
	f.parts[p.ID] = &cp
	f.references[p.SupplierID.String()+"|"+p.Reference.String()] = true
}

func (f *fakePartRepo) Create(_ dbctx.Context, part *domain.Part) error {
	f.put(part)
	return nil
}

func (f *fakePartRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Part, error) {
	p, ok := f.parts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePartRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Part, error) {
	return f.GetByID(dbc, id)
}

func (f *fakePartRepo) UpdateVersioned(_ dbctx.Context, part *domain.Part, expectedVersion int64) (bool, error) {
	if f.casFail {
		f.casFail = false
		return false, nil
	}
	stored, ok := f.parts[part.ID]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	f.put(part)
	return true, nil
}

func (f *fakePartRepo) ReferenceExists(_ dbctx.Context, supplierID uuid.UUID, reference string) (bool, error) {
	return f.references[supplierID.String()+"|"+reference], nil
}

type fakeOrderRepo struct {
	orders  map[uuid.UUID]*domain.Order
	casFail bool
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (f *fakeOrderRepo) put(o *domain.Order) {
	cp := *o
	cp.ClearPendingEvents()
	f.orders[o.ID] = &cp
}

func (f *fakeOrderRepo) Create(_ dbctx.Context, order *domain.Order) error {
	f.put(order)
	return nil
}

func (f *fakeOrderRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Order, error) {
	return f.GetByID(dbc, id)
}

func (f *fakeOrderRepo) UpdateVersioned(_ dbctx.Context, order *domain.Order, expectedVersion int64) (bool, error) {
	if f.casFail {
		f.casFail = false
		return false, nil
	}
	stored, ok := f.orders[order.ID]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	f.put(order)
	return true, nil
}

type fakeUserRepo struct {
	users  map[uuid.UUID]*domain.User
	emails map[string]bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[uuid.UUID]*domain.User),
		emails: make(map[string]bool),
	}
}

func (f *fakeUserRepo) Create(_ dbctx.Context, user *domain.User) error {
	cp := *user
	cp.ClearPendingEvents()
	f.users[user.ID] = &cp
	f.emails[user.Email.String()] = true
	return nil
}

func (f *fakeUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ dbctx.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email.String() == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) EmailExists(_ dbctx.Context, email string) (bool, error) {
	return f.emails[email], nil
}

type fakeOutboxRepo struct {
	events  []domain.Event
	appends int
}

func (f *fakeOutboxRepo) Append(_ dbctx.Context, events []domain.Event) error {
	f.appends++
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeOutboxRepo) FindPublishable(context.Context, int) ([]*types.OutboxRow, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) MarkPublished(context.Context, uuid.UUID) error { return nil }

func (f *fakeOutboxRepo) MarkFailed(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (f *fakeOutboxRepo) DeadLetter(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeOutboxRepo) FindDeadLettered(context.Context, int) ([]*types.OutboxRow, error) {
	return nil, nil
}
