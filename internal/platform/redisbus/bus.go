package redisbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gearstack/partsmarket-backend/internal/platform/envutil"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// DeadLetterStream receives messages that exhausted their redeliveries.
const DeadLetterStream = "events.dead"

// Message is one stream entry as seen by a consumer.
type Message struct {
	StreamID      string
	Stream        string
	RoutingKey    string
	EventType     string
	Body          []byte
	DeliveryCount int64
}

// Handler processes a delivered message. A nil return acks the entry; any
// error leaves it pending for redelivery.
type Handler func(ctx context.Context, msg Message) error

// DeadLetterHandler observes a message right before it is parked on the
// dead-letter stream.
type DeadLetterHandler func(ctx context.Context, msg Message, lastErr error)

type Bus struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("redisbus: logger required")
	}
	addr := envutil.GetEnv("REDIS_ADDR", "localhost:6379", log)
	password := envutil.GetEnv("REDIS_PASSWORD", "", log)
	db := envutil.GetEnvAsInt("REDIS_DB", 0, log)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisbus: ping: %w", err)
	}
	return &Bus{rdb: rdb, log: log.With("client", "RedisBus")}, nil
}

func New(rdb *redis.Client, log *logger.Logger) *Bus {
	return &Bus{rdb: rdb, log: log.With("client", "RedisBus")}
}

func (b *Bus) Close() error {
	return b.rdb.Close()
}

// Publish appends one entry to a stream. XADD is atomic; the broker assigns
// the stream ID, so intra-stream order follows publish order.
func (b *Bus) Publish(ctx context.Context, stream, routingKey, eventType string, body []byte) error {
	err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"routing_key": routingKey,
			"event_type":  eventType,
			"body":        body,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redisbus: xadd %s: %w", stream, err)
	}
	return nil
}

// EnsureGroup creates the consumer group at the stream head, creating the
// stream too if it does not exist yet.
func (b *Bus) EnsureGroup(ctx context.Context, stream, group string) error {
	err := b.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redisbus: create group %s on %s: %w", group, stream, err)
	}
	return nil
}

type ConsumeConfig struct {
	Stream   string
	Group    string
	Consumer string

	// Block is how long XREADGROUP waits for new entries per loop.
	Block time.Duration
	// BatchSize caps entries per read.
	BatchSize int64
	// ClaimMinIdle is how long an entry may sit pending on a dead consumer
	// before another consumer claims it.
	ClaimMinIdle time.Duration
	// MaxDeliveries is the redelivery ceiling; entries past it go to the
	// dead-letter stream.
	MaxDeliveries int64

	OnDeadLetter DeadLetterHandler
}

func (c *ConsumeConfig) withDefaults() {
	if c.Block <= 0 {
		c.Block = 2 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	if c.ClaimMinIdle <= 0 {
		c.ClaimMinIdle = 30 * time.Second
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = 5
	}
	if c.Consumer == "" {
		c.Consumer = c.Group + "-1"
	}
}

// Consume runs the delivery loop until ctx is cancelled. Each pass reclaims
// stale pending entries, then reads new ones. At-least-once: entries are
// acked only after the handler returns nil.
func (b *Bus) Consume(ctx context.Context, cfg ConsumeConfig, h Handler) error {
	cfg.withDefaults()
	if err := b.EnsureGroup(ctx, cfg.Stream, cfg.Group); err != nil {
		return err
	}
	log := b.log.With("stream", cfg.Stream, "group", cfg.Group)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.reclaimPending(ctx, cfg, h, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("reclaim pass failed", "error", err)
		}

		res, err := b.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    cfg.Group,
			Consumer: cfg.Consumer,
			Streams:  []string{cfg.Stream, ">"},
			Count:    cfg.BatchSize,
			Block:    cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Warn("xreadgroup failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range res {
			for _, entry := range stream.Messages {
				msg := b.decode(cfg.Stream, entry, 1)
				if err := h(ctx, msg); err != nil {
					log.Warn("handler failed, leaving pending", "stream_id", entry.ID, "error", err)
					continue
				}
				if err := b.rdb.XAck(ctx, cfg.Stream, cfg.Group, entry.ID).Err(); err != nil {
					log.Warn("xack failed", "stream_id", entry.ID, "error", err)
				}
			}
		}
	}
}

// reclaimPending takes over entries idle past the threshold, retrying them
// or parking them on the dead-letter stream once past the delivery ceiling.
func (b *Bus) reclaimPending(ctx context.Context, cfg ConsumeConfig, h Handler, log *logger.Logger) error {
	pending, err := b.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: cfg.Stream,
		Group:  cfg.Group,
		Idle:   cfg.ClaimMinIdle,
		Start:  "-",
		End:    "+",
		Count:  cfg.BatchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	for _, p := range pending {
		claimed, err := b.rdb.XClaim(ctx, &redis.XClaimArgs{
			Stream:   cfg.Stream,
			Group:    cfg.Group,
			Consumer: cfg.Consumer,
			MinIdle:  cfg.ClaimMinIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warn("xclaim failed", "stream_id", p.ID, "error", err)
			continue
		}

		for _, entry := range claimed {
			msg := b.decode(cfg.Stream, entry, p.RetryCount)
			if p.RetryCount > cfg.MaxDeliveries {
				b.deadLetter(ctx, cfg, msg, errors.New("delivery ceiling exceeded"), log)
				continue
			}
			if err := h(ctx, msg); err != nil {
				log.Warn("reclaimed handler failed", "stream_id", entry.ID, "deliveries", p.RetryCount, "error", err)
				continue
			}
			if err := b.rdb.XAck(ctx, cfg.Stream, cfg.Group, entry.ID).Err(); err != nil {
				log.Warn("xack failed", "stream_id", entry.ID, "error", err)
			}
		}
	}
	return nil
}

func (b *Bus) deadLetter(ctx context.Context, cfg ConsumeConfig, msg Message, cause error, log *logger.Logger) {
	if cfg.OnDeadLetter != nil {
		cfg.OnDeadLetter(ctx, msg, cause)
	}
	err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStream,
		Values: map[string]interface{}{
			"origin_stream": cfg.Stream,
			"origin_group":  cfg.Group,
			"origin_id":     msg.StreamID,
			"routing_key":   msg.RoutingKey,
			"event_type":    msg.EventType,
			"body":          msg.Body,
			"error":         cause.Error(),
		},
	}).Err()
	if err != nil {
		log.Error("dead-letter xadd failed, entry stays pending", "stream_id", msg.StreamID, "error", err)
		return
	}
	if err := b.rdb.XAck(ctx, cfg.Stream, cfg.Group, msg.StreamID).Err(); err != nil {
		log.Warn("xack after dead-letter failed", "stream_id", msg.StreamID, "error", err)
	}
	log.Error("message dead-lettered", "stream_id", msg.StreamID, "event_type", msg.EventType, "error", cause)
}

func (b *Bus) decode(stream string, entry redis.XMessage, deliveries int64) Message {
	msg := Message{StreamID: entry.ID, Stream: stream, DeliveryCount: deliveries}
	if v, ok := entry.Values["routing_key"].(string); ok {
		msg.RoutingKey = v
	}
	if v, ok := entry.Values["event_type"].(string); ok {
		msg.EventType = v
	}
	if v, ok := entry.Values["body"].(string); ok {
		msg.Body = []byte(v)
	}
	return msg
}
