package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/platform/mongodb"
	"github.com/gearstack/partsmarket-backend/internal/projections"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type SearchPartsInput struct {
	Text       string
	Category   string
	SupplierID *uuid.UUID
	Page       int
	Limit      int
}

// PartQueries serves the catalog read model. It only ever touches
// parts_read; the write store is not reachable from here.
type PartQueries interface {
	// GetByID returns nil when no document exists.
	GetByID(ctx context.Context, id uuid.UUID) (*projections.PartDoc, error)
	Search(ctx context.Context, in SearchPartsInput) ([]projections.PartDoc, int64, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, page, limit int) ([]projections.PartDoc, int64, error)
}

type partQueries struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewPartQueries(db *mongodb.Client, baseLog *logger.Logger) PartQueries {
	return &partQueries{
		col: db.Database.Collection(mongodb.CollectionParts),
		log: baseLog.With("service", "PartQueries"),
	}
}

func (q *partQueries) GetByID(ctx context.Context, id uuid.UUID) (*projections.PartDoc, error) {
	var doc projections.PartDoc
	err := q.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("part query: %w", err)
	}
	return &doc, nil
}

func (q *partQueries) Search(ctx context.Context, in SearchPartsInput) ([]projections.PartDoc, int64, error) {
	filter := bson.M{}
	if in.Text != "" {
		filter["$text"] = bson.M{"$search": in.Text}
	}
	if in.Category != "" {
		filter["category"] = in.Category
	}
	if in.SupplierID != nil {
		filter["supplierId"] = in.SupplierID.String()
	}
	return q.page(ctx, filter, in.Page, in.Limit)
}

func (q *partQueries) ListBySupplier(ctx context.Context, supplierID uuid.UUID, page, limit int) ([]projections.PartDoc, int64, error) {
	return q.page(ctx, bson.M{"supplierId": supplierID.String()}, page, limit)
}

func (q *partQueries) page(ctx context.Context, filter bson.M, page, limit int) ([]projections.PartDoc, int64, error) {
	skip, limit := Paginate(page, limit)

	total, err := q.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("part count: %w", err)
	}

	cursor, err := q.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(skip).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("part search: %w", err)
	}
	defer cursor.Close(ctx)

	docs := make([]projections.PartDoc, 0, limit)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("part decode: %w", err)
	}
	return docs, total, nil
}

// Paginate clamps page/limit and returns the mongo skip offset.
func Paginate(page, limit int) (skip int64, clamped int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return int64(page-1) * int64(limit), limit
}
