// Package mongo stores collection rows one document per item.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/storefront-sync/internal/domain"
	"github.com/fjod/storefront-sync/internal/gateway"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const collectionName = "storefront_rows"

const appName = "storefront-sync"

// Connect opens a client bounded by timeout for connecting, server selection
// and every operation, and returns the database.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetTimeout(timeout).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

type Store struct {
	collection *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		collection: db.Collection(collectionName),
	}
}

func rowFilter(ownerID string, collection domain.Collection, identity string) bson.M {
	return bson.M{
		"owner_id":   ownerID,
		"collection": collection,
		"identity":   identity,
	}
}

func (s *Store) Fetch(ctx context.Context, ownerID string, collection domain.Collection) ([]gateway.Row, error) {
	filter := bson.M{"owner_id": ownerID, "collection": collection}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows: %w", err)
	}
	defer cursor.Close(ctx)

	rows := []gateway.Row{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}

func (s *Store) Upsert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload gateway.Row) (gateway.Row, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	row := payload
	row.OwnerID, row.Collection, row.Identity = ownerID, collection, identity
	row.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"product_id": row.ProductID,
			"variant":    row.Variant,
			"quantity":   row.Quantity,
			"name":       row.Name,
			"unit_price": row.UnitPrice,
			"image":      row.Image,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored gateway.Row
	err := s.collection.FindOneAndUpdate(ctx, rowFilter(ownerID, collection, identity), update, opts).Decode(&stored)
	if err != nil {
		return gateway.Row{}, fmt.Errorf("failed to upsert row: %w", err)
	}
	return stored, nil
}

func (s *Store) Insert(ctx context.Context, ownerID string, collection domain.Collection, identity string, payload gateway.Row) (gateway.Row, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	row := payload
	row.OwnerID, row.Collection, row.Identity = ownerID, collection, identity
	row.CreatedAt, row.UpdatedAt = now, now

	if _, err := s.collection.InsertOne(ctx, row); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return gateway.Row{}, gateway.ErrConflict
		}
		return gateway.Row{}, fmt.Errorf("failed to insert row: %w", err)
	}
	return row, nil
}

func (s *Store) Delete(ctx context.Context, ownerID string, collection domain.Collection, identity string) error {
	if _, err := s.collection.DeleteOne(ctx, rowFilter(ownerID, collection, identity)); err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	return nil
}

// CreateIndexes enforces one row per (owner, collection, identity) and expires
// rows untouched for 90 days.
func (s *Store) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "collection", Value: 1}, {Key: "identity", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
