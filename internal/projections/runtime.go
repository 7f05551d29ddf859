package projections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/platform/redisbus"
)

// ErrMissingDependency signals that a required predecessor document is not
// there yet. The message is nacked and redelivered until the dependency
// lands or the delivery ceiling parks it.
var ErrMissingDependency = errors.New("projection dependency not yet applied")

// EventHandler applies one decoded envelope to a read model.
type EventHandler func(ctx context.Context, ev domain.Event) error

// StaleMarker flags the affected read-model entry when a message for it is
// dead-lettered, so readers can tell the view may lag.
type StaleMarker func(ctx context.Context, ev domain.Event)

// Binding ties one projection to one stream and its handled event types.
type Binding struct {
	Projection string
	Stream     string
	Handlers   map[domain.EventType]EventHandler
	MarkStale  StaleMarker
}

// Runner subscribes bindings on the broker and drives their handlers.
type Runner struct {
	bus     *redisbus.Bus
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewRunner(bus *redisbus.Bus, metrics *observability.Metrics, baseLog *logger.Logger) *Runner {
	return &Runner{bus: bus, metrics: metrics, log: baseLog.With("worker", "ProjectionRunner")}
}

// Run consumes the binding's stream until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, b Binding) error {
	log := r.log.With("projection", b.Projection, "stream", b.Stream)
	log.Info("projection consumer started")

	cfg := redisbus.ConsumeConfig{
		Stream: b.Stream,
		Group:  b.Projection,
		OnDeadLetter: func(ctx context.Context, msg redisbus.Message, lastErr error) {
			r.metrics.IncConsumerDeadLetter(b.Projection)
			ev, err := decodeEnvelope(msg.Body)
			if err != nil {
				log.Error("dead-lettered message is undecodable", "stream_id", msg.StreamID, "error", err)
				return
			}
			log.Error("event dead-lettered, read model may be stale",
				"event_id", ev.EventID, "aggregate_id", ev.AggregateID, "event_type", ev.EventType, "error", lastErr)
			if b.MarkStale != nil {
				b.MarkStale(ctx, ev)
			}
		},
	}

	return r.bus.Consume(ctx, cfg, func(ctx context.Context, msg redisbus.Message) error {
		ev, err := decodeEnvelope(msg.Body)
		if err != nil {
			// Malformed envelopes never become valid; count and ack.
			r.metrics.IncProjectionError(b.Projection)
			log.Error("dropping undecodable message", "stream_id", msg.StreamID, "error", err)
			return nil
		}
		h, ok := b.Handlers[ev.EventType]
		if !ok {
			// Not every projection cares about every event on the stream.
			return nil
		}
		if err := h(ctx, ev); err != nil {
			r.metrics.IncProjectionError(b.Projection)
			return fmt.Errorf("%s: apply %s %s: %w", b.Projection, ev.EventType, ev.EventID, err)
		}
		r.metrics.IncConsumed(b.Projection)
		return nil
	})
}

func decodeEnvelope(body []byte) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	if ev.EventType == "" {
		return domain.Event{}, errors.New("envelope missing event type")
	}
	return ev, nil
}
