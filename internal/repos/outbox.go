package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/platform/dbctx"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/types"
)

type OutboxRepo interface {
	// Append stores the events emitted by one command execution. It must be
	// called with the same transaction that persists the aggregate state.
	Append(dbc dbctx.Context, events []domain.Event) error
	// FindPublishable returns unpublished, non-dead-lettered rows whose
	// backoff window elapsed and whose aggregate has no earlier pending
	// event, so intra-aggregate publish order follows sequence numbers.
	FindPublishable(ctx context.Context, limit int) ([]*types.OutboxRow, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID) error
	// MarkFailed increments attempts and schedules the next try.
	MarkFailed(ctx context.Context, eventID uuid.UUID, lastError string, nextAttemptAt time.Time) error
	DeadLetter(ctx context.Context, eventID uuid.UUID, lastError string) error
	FindDeadLettered(ctx context.Context, limit int) ([]*types.OutboxRow, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{db: db, log: baseLog.With("repo", "OutboxRepo")}
}

func (r *outboxRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *outboxRepo) Append(dbc dbctx.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]*types.OutboxRow, 0, len(events))
	now := time.Now().UTC()
	for _, ev := range events {
		rows = append(rows, &types.OutboxRow{
			EventID:        ev.EventID,
			AggregateID:    ev.AggregateID,
			AggregateType:  ev.AggregateType,
			EventType:      string(ev.EventType),
			SequenceNumber: ev.SequenceNumber,
			Stream:         domain.StreamFor(ev.AggregateType),
			RoutingKey:     ev.RoutingKey(),
			OccurredAt:     ev.OccurredAt,
			Payload:        []byte(ev.Payload),
			NextAttemptAt:  now,
		})
	}
	return r.conn(dbc).Create(&rows).Error
}

func (r *outboxRepo) FindPublishable(ctx context.Context, limit int) ([]*types.OutboxRow, error) {
	var rows []*types.OutboxRow
	err := r.db.WithContext(ctx).
		Where("published = FALSE AND dead_lettered = FALSE AND next_attempt_at <= ?", time.Now().UTC()).
		Where(`NOT EXISTS (
			SELECT 1 FROM outbox_events p
			WHERE p.aggregate_id = outbox_events.aggregate_id
			  AND p.published = FALSE
			  AND p.dead_lettered = FALSE
			  AND p.sequence_number < outbox_events.sequence_number
		)`).
		Order("created_at ASC, sequence_number ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *outboxRepo) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&types.OutboxRow{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"published":    true,
			"published_at": now,
		}).Error
}

func (r *outboxRepo) MarkFailed(ctx context.Context, eventID uuid.UUID, lastError string, nextAttemptAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&types.OutboxRow{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      lastError,
			"next_attempt_at": nextAttemptAt,
		}).Error
}

func (r *outboxRepo) DeadLetter(ctx context.Context, eventID uuid.UUID, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&types.OutboxRow{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"dead_lettered": true,
			"last_error":    lastError,
		}).Error
}

func (r *outboxRepo) FindDeadLettered(ctx context.Context, limit int) ([]*types.OutboxRow, error) {
	var rows []*types.OutboxRow
	err := r.db.WithContext(ctx).
		Where("dead_lettered = TRUE").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
