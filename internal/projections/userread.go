package projections

import (
	"context"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// UserRead maintains users_read, mainly so order queries can resolve
// supplier and garage company names without touching the write store.
type UserRead struct {
	store   UserReadStore
	ledger  Ledger
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewUserRead(store UserReadStore, ledger Ledger, metrics *observability.Metrics, baseLog *logger.Logger) *UserRead {
	return &UserRead{
		store:   store,
		ledger:  ledger,
		metrics: metrics,
		log:     baseLog.With("projection", ProjectionUsers),
	}
}

func (p *UserRead) Binding() Binding {
	return Binding{
		Projection: ProjectionUsers,
		Stream:     domain.StreamIdentity,
		Handlers: map[domain.EventType]EventHandler{
			domain.EventUserRegistered: p.handleRegistered,
		},
	}
}

func (p *UserRead) handleRegistered(ctx context.Context, ev domain.Event) error {
	var payload domain.UserRegisteredPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return applyOnce(ctx, p.ledger, ProjectionUsers, ev, p.metrics, p.log, func(ctx context.Context) error {
		return p.store.UpsertUser(ctx, UserDoc{
			ID:           ev.AggregateID.String(),
			Email:        payload.Email,
			CompanyName:  payload.CompanyName,
			Role:         string(payload.Role),
			RegisteredAt: ev.OccurredAt,
		})
	})
}
