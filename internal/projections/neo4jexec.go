package projections

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/platform/neo4jdb"
)

const appliedEventQuery = `
	MERGE (e:AppliedEvent {projection: $projection, event_id: $event_id})
	ON CREATE SET e.applied_at = $applied_at, e.fresh = true
	ON MATCH SET e.fresh = false
	RETURN e.fresh AS fresh`

type neo4jExecutor struct {
	db  *neo4jdb.Client
	log *logger.Logger
}

func NewNeo4jExecutor(db *neo4jdb.Client, baseLog *logger.Logger) GraphExecutor {
	return &neo4jExecutor{db: db, log: baseLog.With("executor", "Neo4jGraph")}
}

// WriteIdempotent runs the ledger MERGE and the statements in one managed
// write transaction. The ledger node and the graph mutations commit or roll
// back together, so a crash mid-apply redelivers cleanly.
func (e *neo4jExecutor) WriteIdempotent(ctx context.Context, projection string, eventID uuid.UUID, statements []CypherStatement) (bool, error) {
	session := e.db.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.db.Database,
	})
	defer session.Close(ctx)

	applied, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, appliedEventQuery, map[string]any{
			"projection": projection,
			"event_id":   eventID.String(),
			"applied_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return false, fmt.Errorf("applied-event merge: %w", err)
		}
		record, err := res.Single(ctx)
		if err != nil {
			return false, fmt.Errorf("applied-event result: %w", err)
		}
		fresh, _ := record.Get("fresh")
		if isFresh, ok := fresh.(bool); !ok || !isFresh {
			return false, nil
		}

		for _, stmt := range statements {
			res, err := tx.Run(ctx, stmt.Query, stmt.Params)
			if err != nil {
				return false, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return applied.(bool), nil
}

func (e *neo4jExecutor) MarkStale(ctx context.Context, label, id string) error {
	session := e.db.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.db.Database,
	})
	defer session.Close(ctx)

	query := fmt.Sprintf(`MERGE (n:%s {id: $id}) SET n.stale = true`, label)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}
