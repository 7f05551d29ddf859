package queries

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/platform/neo4jdb"
)

// GraphStats summarizes the relationship view for the ops endpoint.
type GraphStats struct {
	Nodes         map[string]int64 `json:"nodes"`
	Relationships map[string]int64 `json:"relationships"`
	UsersByRole   map[string]int64 `json:"usersByRole"`
}

type GraphQueries interface {
	Stats(ctx context.Context) (GraphStats, error)
}

type graphQueries struct {
	db  *neo4jdb.Client
	log *logger.Logger
}

func NewGraphQueries(db *neo4jdb.Client, baseLog *logger.Logger) GraphQueries {
	return &graphQueries{db: db, log: baseLog.With("service", "GraphQueries")}
}

func (q *graphQueries) Stats(ctx context.Context) (GraphStats, error) {
	session := q.db.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: q.db.Database,
	})
	defer session.Close(ctx)

	stats := GraphStats{
		Nodes:         make(map[string]int64),
		Relationships: make(map[string]int64),
		UsersByRole:   make(map[string]int64),
	}

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := collectCounts(ctx, tx, `
			MATCH (n) WHERE NOT n:AppliedEvent
			UNWIND labels(n) AS label
			RETURN label AS key, count(*) AS count`, stats.Nodes); err != nil {
			return nil, err
		}
		if err := collectCounts(ctx, tx, `
			MATCH ()-[r]->()
			RETURN type(r) AS key, count(*) AS count`, stats.Relationships); err != nil {
			return nil, err
		}
		if err := collectCounts(ctx, tx, `
			MATCH (u:User) WHERE u.role IS NOT NULL
			RETURN u.role AS key, count(*) AS count`, stats.UsersByRole); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return GraphStats{}, fmt.Errorf("graph stats: %w", err)
	}
	return stats, nil
}

func collectCounts(ctx context.Context, tx neo4j.ManagedTransaction, query string, into map[string]int64) error {
	res, err := tx.Run(ctx, query, nil)
	if err != nil {
		return err
	}
	for res.Next(ctx) {
		record := res.Record()
		key, _ := record.Get("key")
		count, _ := record.Get("count")
		name, ok := key.(string)
		if !ok {
			continue
		}
		if n, ok := count.(int64); ok {
			into[name] = n
		}
	}
	return res.Err()
}
