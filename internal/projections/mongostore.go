package projections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gearstack/partsmarket-backend/internal/platform/mongodb"
)

type appliedEntry struct {
	Projection string    `bson:"projection"`
	EventID    string    `bson:"eventId"`
	AppliedAt  time.Time `bson:"appliedAt"`
}

type mongoLedger struct {
	col *mongo.Collection
}

// NewMongoLedger backs the dedup fence with the projection_applied
// collection; its unique {projection, eventId} index rejects duplicates.
func NewMongoLedger(db *mongodb.Client) Ledger {
	return &mongoLedger{col: db.Database.Collection(mongodb.CollectionApplied)}
}

func (l *mongoLedger) MarkApplied(ctx context.Context, projection string, eventID uuid.UUID) (bool, error) {
	_, err := l.col.InsertOne(ctx, appliedEntry{
		Projection: projection,
		EventID:    eventID.String(),
		AppliedAt:  time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("ledger insert: %w", err)
	}
	return true, nil
}

func (l *mongoLedger) Unmark(ctx context.Context, projection string, eventID uuid.UUID) error {
	_, err := l.col.DeleteOne(ctx, bson.M{"projection": projection, "eventId": eventID.String()})
	if err != nil {
		return fmt.Errorf("ledger delete: %w", err)
	}
	return nil
}

type mongoPartStore struct {
	col *mongo.Collection
}

func NewMongoPartStore(db *mongodb.Client) PartReadStore {
	return &mongoPartStore{col: db.Database.Collection(mongodb.CollectionParts)}
}

func (s *mongoPartStore) UpsertPart(ctx context.Context, doc PartDoc) error {
	doc.UpdatedAt = time.Now().UTC()
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *mongoPartStore) GetPart(ctx context.Context, id string) (*PartDoc, error) {
	var doc PartDoc
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *mongoPartStore) UpdatePartDetails(ctx context.Context, id string, fields map[string]any) (bool, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoPartStore) UpdatePartStock(ctx context.Context, id string, quantity, reserved, available int, outOfStock, lowStock bool) (bool, error) {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"stockQuantity":  quantity,
		"stockReserved":  reserved,
		"stockAvailable": available,
		"isOutOfStock":   outOfStock,
		"isLowStock":     lowStock,
		"updatedAt":      time.Now().UTC(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoPartStore) MarkPartStale(ctx context.Context, id string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"stale":     true,
		"updatedAt": time.Now().UTC(),
	}})
	return err
}

type mongoOrderStore struct {
	col *mongo.Collection
}

func NewMongoOrderStore(db *mongodb.Client) OrderReadStore {
	return &mongoOrderStore{col: db.Database.Collection(mongodb.CollectionOrders)}
}

func (s *mongoOrderStore) UpsertOrder(ctx context.Context, doc OrderDoc) error {
	doc.UpdatedAt = time.Now().UTC()
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *mongoOrderStore) GetOrder(ctx context.Context, id string) (*OrderDoc, error) {
	var doc OrderDoc
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *mongoOrderStore) ApplyStatusChange(ctx context.Context, id, status string, entry StatusEntryDoc) (bool, error) {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":  bson.M{"status": status, "updatedAt": time.Now().UTC()},
		"$push": bson.M{"statusHistory": entry},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoOrderStore) MarkOrderStale(ctx context.Context, id string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"stale":     true,
		"updatedAt": time.Now().UTC(),
	}})
	return err
}

type mongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongodb.Client) UserReadStore {
	return &mongoUserStore{col: db.Database.Collection(mongodb.CollectionUsers)}
}

func (s *mongoUserStore) UpsertUser(ctx context.Context, doc UserDoc) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *mongoUserStore) GetUser(ctx context.Context, id string) (*UserDoc, error) {
	var doc UserDoc
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}
