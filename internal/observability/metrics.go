package observability

import (
	"sync"
	"time"
)

// Metrics is an in-process counter registry. It backs the aggregate hooks,
// publisher and consumer counters, and the ops stats endpoint.
type Metrics struct {
	mu sync.Mutex

	aggregateOps       map[string]int64
	aggregateConflicts map[string]int64
	aggregateRetries   map[string]int64

	publishedEvents   int64
	publishFailures   int64
	deadLetteredRows  int64
	consumedEvents    map[string]int64
	duplicateSkips    map[string]int64
	projectionErrors  map[string]int64
	deadLetteredMsgs  map[string]int64
	lastPublishedAt   time.Time
	lastConsumedAt    time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		aggregateOps:       make(map[string]int64),
		aggregateConflicts: make(map[string]int64),
		aggregateRetries:   make(map[string]int64),
		consumedEvents:     make(map[string]int64),
		duplicateSkips:     make(map[string]int64),
		projectionErrors:   make(map[string]int64),
		deadLetteredMsgs:   make(map[string]int64),
	}
}

func (m *Metrics) ObserveAggregateOperation(name, status string, _ time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregateOps[name+"|"+status]++
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregateConflicts[name]++
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregateRetries[name]++
}

func (m *Metrics) IncPublished() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents++
	m.lastPublishedAt = time.Now().UTC()
}

func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishFailures++
}

func (m *Metrics) IncOutboxDeadLetter() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadLetteredRows++
}

func (m *Metrics) IncConsumed(projection string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumedEvents[projection]++
	m.lastConsumedAt = time.Now().UTC()
}

func (m *Metrics) IncDuplicateSkip(projection string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicateSkips[projection]++
}

func (m *Metrics) IncProjectionError(projection string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectionErrors[projection]++
}

func (m *Metrics) IncConsumerDeadLetter(projection string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadLetteredMsgs[projection]++
}

// Snapshot returns a copy of all counters for the stats endpoint.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copyMap := func(in map[string]int64) map[string]int64 {
		out := make(map[string]int64, len(in))
		for k, v := range in {
			out[k] = v
		}
		return out
	}
	return map[string]any{
		"aggregate_operations":  copyMap(m.aggregateOps),
		"aggregate_conflicts":   copyMap(m.aggregateConflicts),
		"aggregate_retries":     copyMap(m.aggregateRetries),
		"published_events":      m.publishedEvents,
		"publish_failures":      m.publishFailures,
		"outbox_dead_letters":   m.deadLetteredRows,
		"consumed_events":       copyMap(m.consumedEvents),
		"duplicate_skips":       copyMap(m.duplicateSkips),
		"projection_errors":     copyMap(m.projectionErrors),
		"consumer_dead_letters": copyMap(m.deadLetteredMsgs),
		"last_published_at":     m.lastPublishedAt,
		"last_consumed_at":      m.lastConsumedAt,
	}
}
