package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gearstack/partsmarket-backend/internal/domain"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
	"github.com/gearstack/partsmarket-backend/internal/platform/mongodb"
	"github.com/gearstack/partsmarket-backend/internal/projections"
)

// SupplierSpend is one row of the top-suppliers ranking.
type SupplierSpend struct {
	SupplierID  string `bson:"_id" json:"supplierId"`
	CompanyName string `bson:"companyName" json:"companyName"`
	OrderCount  int64  `bson:"orderCount" json:"orderCount"`
	TotalSpend  int64  `bson:"totalSpend" json:"totalSpend"`
	Currency    string `bson:"currency" json:"currency"`
}

type OrderQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*projections.OrderDoc, error)
	// ListByGarage returns the garage's orders, newest first. An empty
	// status means all statuses.
	ListByGarage(ctx context.Context, garageID uuid.UUID, status string, page, limit int) ([]projections.OrderDoc, int64, error)
	// ListBySupplier returns orders containing at least one line sold by
	// the supplier.
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, status string, page, limit int) ([]projections.OrderDoc, int64, error)
	// TopSuppliers ranks the garage's suppliers by total spend, cancelled
	// orders excluded.
	TopSuppliers(ctx context.Context, garageID uuid.UUID, limit int) ([]SupplierSpend, error)
}

type orderQueries struct {
	col *mongo.Collection
	log *logger.Logger
}

func NewOrderQueries(db *mongodb.Client, baseLog *logger.Logger) OrderQueries {
	return &orderQueries{
		col: db.Database.Collection(mongodb.CollectionOrders),
		log: baseLog.With("service", "OrderQueries"),
	}
}

func (q *orderQueries) GetByID(ctx context.Context, id uuid.UUID) (*projections.OrderDoc, error) {
	var doc projections.OrderDoc
	err := q.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("order query: %w", err)
	}
	return &doc, nil
}

func (q *orderQueries) ListByGarage(ctx context.Context, garageID uuid.UUID, status string, page, limit int) ([]projections.OrderDoc, int64, error) {
	filter := bson.M{"garageId": garageID.String()}
	if status != "" {
		filter["status"] = status
	}
	return q.page(ctx, filter, page, limit)
}

func (q *orderQueries) ListBySupplier(ctx context.Context, supplierID uuid.UUID, status string, page, limit int) ([]projections.OrderDoc, int64, error) {
	filter := bson.M{"lines.supplierId": supplierID.String()}
	if status != "" {
		filter["status"] = status
	}
	return q.page(ctx, filter, page, limit)
}

func (q *orderQueries) page(ctx context.Context, filter bson.M, page, limit int) ([]projections.OrderDoc, int64, error) {
	skip, limit := Paginate(page, limit)

	total, err := q.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("order count: %w", err)
	}

	cursor, err := q.col.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("order list: %w", err)
	}
	defer cursor.Close(ctx)

	docs := make([]projections.OrderDoc, 0, limit)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("order decode: %w", err)
	}
	return docs, total, nil
}

func (q *orderQueries) TopSuppliers(ctx context.Context, garageID uuid.UUID, limit int) ([]SupplierSpend, error) {
	if limit <= 0 {
		limit = 5
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"garageId": garageID.String(),
			"status":   bson.M{"$ne": string(domain.StatusCancelled)},
		}}},
		{{Key: "$unwind", Value: "$lines"}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$lines.supplierId",
			"totalSpend": bson.M{"$sum": "$lines.lineTotal"},
			"orderIds":   bson.M{"$addToSet": "$_id"},
			"currency":   bson.M{"$first": "$totalCurrency"},
		}}},
		{{Key: "$addFields", Value: bson.M{"orderCount": bson.M{"$size": "$orderIds"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalSpend", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         mongodb.CollectionUsers,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "supplier",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"companyName": bson.M{"$ifNull": bson.A{bson.M{"$first": "$supplier.companyName"}, ""}},
		}}},
		{{Key: "$project", Value: bson.M{"orderIds": 0, "supplier": 0}}},
	}

	cursor, err := q.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("top suppliers: %w", err)
	}
	defer cursor.Close(ctx)

	rows := make([]SupplierSpend, 0, limit)
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("top suppliers decode: %w", err)
	}
	return rows, nil
}
