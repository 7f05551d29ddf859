package projections

import (
	"context"

	"github.com/google/uuid"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/observability"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// CypherStatement is one parameterized query inside an idempotent write.
type CypherStatement struct {
	Query  string
	Params map[string]any
}

// GraphExecutor runs statements in a single write transaction fenced by the
// applied-event ledger node. It returns false without running the
// statements when the event was already applied, so non-idempotent writes
// like co-occurrence weights are safe under redelivery.
type GraphExecutor interface {
	WriteIdempotent(ctx context.Context, projection string, eventID uuid.UUID, statements []CypherStatement) (bool, error)
	MarkStale(ctx context.Context, label, id string) error
}

// Graph maintains the relationship view: who supplies what, who ordered
// what, what fits which vehicle, and which parts are bought together.
// Stock counters stay out; they are volatile and belong to the document
// view.
type Graph struct {
	exec    GraphExecutor
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewGraph(exec GraphExecutor, metrics *observability.Metrics, baseLog *logger.Logger) *Graph {
	return &Graph{
		exec:    exec,
		metrics: metrics,
		log:     baseLog.With("projection", ProjectionGraph),
	}
}

// Bindings returns one binding per stream; they share the consumer group
// name and the ledger key space.
func (g *Graph) Bindings() []Binding {
	return []Binding{
		{
			Projection: ProjectionGraph,
			Stream:     domain.StreamIdentity,
			Handlers: map[domain.EventType]EventHandler{
				domain.EventUserRegistered: g.handleUserRegistered,
			},
			MarkStale: g.staleMarker("User"),
		},
		{
			Projection: ProjectionGraph,
			Stream:     domain.StreamCatalog,
			Handlers: map[domain.EventType]EventHandler{
				domain.EventPartCreated: g.handlePartCreated,
				domain.EventPartUpdated: g.handlePartUpdated,
			},
			MarkStale: g.staleMarker("Part"),
		},
		{
			Projection: ProjectionGraph,
			Stream:     domain.StreamOrders,
			Handlers: map[domain.EventType]EventHandler{
				domain.EventOrderCreated:       g.handleOrderCreated,
				domain.EventOrderStatusChanged: g.handleOrderStatusChanged,
			},
			MarkStale: g.staleMarker("Order"),
		},
	}
}

func (g *Graph) staleMarker(label string) StaleMarker {
	return func(ctx context.Context, ev domain.Event) {
		if err := g.exec.MarkStale(ctx, label, ev.AggregateID.String()); err != nil {
			g.log.Error("stale flag failed", "label", label, "id", ev.AggregateID, "error", err)
		}
	}
}

func (g *Graph) apply(ctx context.Context, ev domain.Event, statements []CypherStatement) error {
	applied, err := g.exec.WriteIdempotent(ctx, ProjectionGraph, ev.EventID, statements)
	if err != nil {
		return err
	}
	if !applied {
		g.metrics.IncDuplicateSkip(ProjectionGraph)
		g.log.Debug("duplicate delivery skipped", "event_id", ev.EventID, "event_type", ev.EventType)
	}
	return nil
}

func (g *Graph) handleUserRegistered(ctx context.Context, ev domain.Event) error {
	var payload domain.UserRegisteredPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return g.apply(ctx, ev, []CypherStatement{{
		Query: `
			MERGE (u:User {id: $id})
			SET u.email = $email,
			    u.company_name = $company_name,
			    u.role = $role,
			    u.stale = false`,
		Params: map[string]any{
			"id":           ev.AggregateID.String(),
			"email":        payload.Email,
			"company_name": payload.CompanyName,
			"role":         string(payload.Role),
		},
	}})
}

func (g *Graph) handlePartCreated(ctx context.Context, ev domain.Event) error {
	var payload domain.PartCreatedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	partID := ev.AggregateID.String()
	return g.apply(ctx, ev, []CypherStatement{
		{
			Query: `
				MERGE (p:Part {id: $id})
				SET p.reference = $reference,
				    p.name = $name,
				    p.category = $category,
				    p.brand = $brand,
				    p.stale = false
				MERGE (s:User {id: $supplier_id})
				MERGE (s)-[:SUPPLIES]->(p)`,
			Params: map[string]any{
				"id":          partID,
				"reference":   payload.Reference,
				"name":        payload.Name,
				"category":    payload.Category,
				"brand":       payload.Brand,
				"supplier_id": payload.SupplierID.String(),
			},
		},
		compatibilityStatement(partID, payload.Vehicles),
	})
}

func (g *Graph) handlePartUpdated(ctx context.Context, ev domain.Event) error {
	var payload domain.PartUpdatedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	partID := ev.AggregateID.String()
	return g.apply(ctx, ev, []CypherStatement{
		{
			Query: `
				MERGE (p:Part {id: $id})
				SET p.name = $name,
				    p.category = $category,
				    p.brand = $brand,
				    p.stale = false`,
			Params: map[string]any{
				"id":       partID,
				"name":     payload.Name,
				"category": payload.Category,
				"brand":    payload.Brand,
			},
		},
		{
			// Compatibility is replaced wholesale on update.
			Query: `
				MATCH (p:Part {id: $id})-[r:COMPATIBLE_WITH]->(:Vehicle)
				DELETE r`,
			Params: map[string]any{"id": partID},
		},
		compatibilityStatement(partID, payload.Vehicles),
	})
}

func (g *Graph) handleOrderCreated(ctx context.Context, ev domain.Event) error {
	var payload domain.OrderCreatedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	orderID := ev.AggregateID.String()

	lines := make([]map[string]any, 0, len(payload.Lines))
	partIDs := make([]string, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		lines = append(lines, map[string]any{
			"part_id":    l.PartID.String(),
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice,
		})
		partIDs = append(partIDs, l.PartID.String())
	}

	statements := []CypherStatement{
		{
			Query: `
				MERGE (o:Order {id: $id})
				SET o.status = $status,
				    o.total_amount = $total_amount,
				    o.total_currency = $total_currency,
				    o.created_at = $created_at,
				    o.stale = false
				MERGE (g:User {id: $garage_id})
				MERGE (o)-[:ORDERED_BY]->(g)`,
			Params: map[string]any{
				"id":             orderID,
				"status":         string(payload.Status),
				"total_amount":   payload.TotalAmount,
				"total_currency": payload.TotalCurrency,
				"created_at":     payload.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
				"garage_id":      payload.GarageID.String(),
			},
		},
		{
			Query: `
				MATCH (o:Order {id: $id})
				UNWIND $lines AS line
				MERGE (p:Part {id: line.part_id})
				MERGE (o)-[r:INCLUDES]->(p)
				SET r.quantity = line.quantity,
				    r.unit_price = line.unit_price`,
			Params: map[string]any{"id": orderID, "lines": lines},
		},
	}

	if pairs := coOccurrencePairs(partIDs); len(pairs) > 0 {
		statements = append(statements, CypherStatement{
			// Weight increments are fenced by the ledger node in the same
			// transaction, so redelivery never double-counts.
			Query: `
				UNWIND $pairs AS pair
				MATCH (a:Part {id: pair.a}), (b:Part {id: pair.b})
				MERGE (a)-[r:FREQUENTLY_WITH]-(b)
				ON CREATE SET r.weight = 1
				ON MATCH SET r.weight = r.weight + 1`,
			Params: map[string]any{"pairs": pairs},
		})
	}
	return g.apply(ctx, ev, statements)
}

func (g *Graph) handleOrderStatusChanged(ctx context.Context, ev domain.Event) error {
	var payload domain.OrderStatusChangedPayload
	if err := decodePayload(ev, &payload); err != nil {
		return err
	}
	return g.apply(ctx, ev, []CypherStatement{{
		Query: `
			MERGE (o:Order {id: $id})
			SET o.status = $status, o.stale = false`,
		Params: map[string]any{
			"id":     ev.AggregateID.String(),
			"status": string(payload.To),
		},
	}})
}

func compatibilityStatement(partID string, vehicles []domain.VehiclePayload) CypherStatement {
	rows := make([]map[string]any, 0, len(vehicles))
	for _, v := range vehicles {
		key := domain.VehicleCompatibility{
			Brand:      v.Brand,
			Model:      v.Model,
			YearFrom:   v.YearFrom,
			YearTo:     v.YearTo,
			EngineCode: v.EngineCode,
		}.Key()
		rows = append(rows, map[string]any{
			"key":         key,
			"brand":       v.Brand,
			"model":       v.Model,
			"year_from":   v.YearFrom,
			"year_to":     v.YearTo,
			"engine_code": v.EngineCode,
		})
	}
	return CypherStatement{
		Query: `
			MATCH (p:Part {id: $id})
			UNWIND $vehicles AS v
			MERGE (veh:Vehicle {key: v.key})
			SET veh.brand = v.brand,
			    veh.model = v.model,
			    veh.year_from = v.year_from,
			    veh.year_to = v.year_to,
			    veh.engine_code = v.engine_code
			MERGE (p)-[:COMPATIBLE_WITH]->(veh)`,
		Params: map[string]any{"id": partID, "vehicles": rows},
	}
}

// coOccurrencePairs returns the unordered distinct part pairs of one order,
// canonically ordered so MERGE always sees the same endpoints.
func coOccurrencePairs(partIDs []string) []map[string]any {
	seen := make(map[string]struct{}, len(partIDs))
	unique := make([]string, 0, len(partIDs))
	for _, id := range partIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	var pairs []map[string]any
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a, b := unique[i], unique[j]
			if b < a {
				a, b = b, a
			}
			pairs = append(pairs, map[string]any{"a": a, "b": b})
		}
	}
	return pairs
}
