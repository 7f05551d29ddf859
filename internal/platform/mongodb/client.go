package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gearstack/partsmarket-backend/internal/platform/envutil"
	"github.com/gearstack/partsmarket-backend/internal/platform/logger"
)

// Collection names for the document read store.
const (
	CollectionParts   = "parts_read"
	CollectionOrders  = "orders_read"
	CollectionUsers   = "users_read"
	CollectionApplied = "projection_applied"
)

type Client struct {
	client   *mongo.Client
	Database *mongo.Database
	log      *logger.Logger
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("mongodb: logger required")
	}
	uri := envutil.GetEnv("MONGO_URI", "mongodb://localhost:27017", log)
	dbName := envutil.GetEnv("MONGO_DB", "partsmarket_read", log)
	timeout := envutil.GetEnvAsDuration("MONGO_TIMEOUT", 10*time.Second, log)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	return &Client{
		client:   client,
		Database: client.Database(dbName),
		log:      log.With("client", "MongoDB"),
	}, nil
}

// EnsureIndexes creates the dedup fence and the query indexes. Safe to run
// on every boot.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	applied := c.Database.Collection(CollectionApplied)
	if _, err := applied.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "projection", Value: 1}, {Key: "eventId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_projection_event"),
	}); err != nil {
		return fmt.Errorf("mongodb: projection_applied index: %w", err)
	}

	parts := c.Database.Collection(CollectionParts)
	if _, err := parts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "supplierId", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}, Options: options.Index().SetName("text_name_description")},
	}); err != nil {
		return fmt.Errorf("mongodb: parts_read indexes: %w", err)
	}

	orders := c.Database.Collection(CollectionOrders)
	if _, err := orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "garageId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "lines.supplierId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("mongodb: orders_read indexes: %w", err)
	}
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}
