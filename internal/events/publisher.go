package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/repos"
	"github.com/gearstack/partsmarket-backend/internal/types"
)

// Broker abstracts the stream transport the publisher drains into.
type Broker interface {
	Publish(ctx context.Context, stream, routingKey, eventType string, body []byte) error
}

type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxAttempts is the ceiling after which a row is dead-lettered.
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func (c *PublisherConfig) withDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Minute
	}
}

// Publisher drains the outbox table into the broker. Delivery is
// at-least-once: a row is marked published only after the broker accepted
// it, so a crash in between republishes on the next pass.
type Publisher struct {
	outbox  repos.OutboxRepo
	broker  Broker
	metrics *observability.Metrics
	log     *logger.Logger
	cfg     PublisherConfig
}

func NewPublisher(outbox repos.OutboxRepo, broker Broker, metrics *observability.Metrics, baseLog *logger.Logger, cfg PublisherConfig) *Publisher {
	cfg.withDefaults()
	return &Publisher{
		outbox:  outbox,
		broker:  broker,
		metrics: metrics,
		log:     baseLog.With("worker", "OutboxPublisher"),
		cfg:     cfg,
	}
}

// Run polls until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	p.log.Info("outbox publisher started", "poll_interval", p.cfg.PollInterval, "batch_size", p.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("outbox publisher stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				p.log.Warn("outbox drain pass failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes one batch and returns how many rows were published.
// After a failure, later rows of the same aggregate are skipped for this
// pass so sequence order is preserved.
func (p *Publisher) DrainOnce(ctx context.Context) (int, error) {
	rows, err := p.outbox.FindPublishable(ctx, p.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("find publishable: %w", err)
	}

	published := 0
	blocked := make(map[uuid.UUID]struct{})
	for _, row := range rows {
		if _, skip := blocked[row.AggregateID]; skip {
			continue
		}
		if err := p.publishRow(ctx, row); err != nil {
			blocked[row.AggregateID] = struct{}{}
			p.handleFailure(ctx, row, err)
			continue
		}
		if err := p.outbox.MarkPublished(ctx, row.EventID); err != nil {
			// Already on the broker; the row will republish, consumers dedup.
			p.log.Warn("mark published failed", "event_id", row.EventID, "error", err)
			blocked[row.AggregateID] = struct{}{}
			continue
		}
		p.metrics.IncPublished()
		published++
	}
	return published, nil
}

func (p *Publisher) publishRow(ctx context.Context, row *types.OutboxRow) error {
	body, err := json.Marshal(envelopeFromRow(row))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.broker.Publish(ctx, row.Stream, row.RoutingKey, row.EventType, body)
}

func (p *Publisher) handleFailure(ctx context.Context, row *types.OutboxRow, cause error) {
	p.metrics.IncPublishFailure()
	attempts := row.Attempts + 1
	if attempts >= p.cfg.MaxAttempts {
		if err := p.outbox.DeadLetter(ctx, row.EventID, cause.Error()); err != nil {
			p.log.Error("dead-letter update failed", "event_id", row.EventID, "error", err)
			return
		}
		p.metrics.IncOutboxDeadLetter()
		p.log.Error("outbox row dead-lettered, operator attention required",
			"event_id", row.EventID,
			"aggregate_id", row.AggregateID,
			"event_type", row.EventType,
			"attempts", attempts,
			"error", cause)
		return
	}
	next := time.Now().UTC().Add(p.backoff(attempts))
	if err := p.outbox.MarkFailed(ctx, row.EventID, cause.Error(), next); err != nil {
		p.log.Error("mark failed update failed", "event_id", row.EventID, "error", err)
		return
	}
	p.log.Warn("publish failed, scheduled retry",
		"event_id", row.EventID, "attempts", attempts, "next_attempt_at", next, "error", cause)
}

func (p *Publisher) backoff(attempts int) time.Duration {
	d := p.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= p.cfg.BackoffMax {
			return p.cfg.BackoffMax
		}
	}
	if d > p.cfg.BackoffMax {
		d = p.cfg.BackoffMax
	}
	return d
}

func envelopeFromRow(row *types.OutboxRow) domain.Event {
	return domain.Event{
		EventID:        row.EventID,
		AggregateID:    row.AggregateID,
		AggregateType:  row.AggregateType,
		EventType:      domain.EventType(row.EventType),
		OccurredAt:     row.OccurredAt,
		SequenceNumber: row.SequenceNumber,
		Payload:        json.RawMessage(row.Payload),
	}
}
