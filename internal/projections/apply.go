package projections

import (
	"context"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// applyOnce wraps an apply function with the ledger fence. Duplicates are
// skipped and acked. A failed apply unmarks the ledger entry again so the
// redelivery can retry; applying [e] and [e, e] must land in the same state.
func applyOnce(ctx context.Context, ledger Ledger, projection string, ev domain.Event, metrics *observability.Metrics, log *logger.Logger, apply func(context.Context) error) error {
	fresh, err := ledger.MarkApplied(ctx, projection, ev.EventID)
	if err != nil {
		return err
	}
	if !fresh {
		metrics.IncDuplicateSkip(projection)
		log.Debug("duplicate delivery skipped", "event_id", ev.EventID, "event_type", ev.EventType)
		return nil
	}
	if err := apply(ctx); err != nil {
		if uerr := ledger.Unmark(ctx, projection, ev.EventID); uerr != nil {
			log.Error("ledger compensation failed, event may be lost on redelivery",
				"event_id", ev.EventID, "error", uerr)
		}
		return err
	}
	return nil
}
