package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/platinummonkey/warden/pkg/observability"
)

// DefaultMongoDatabase is used when the connection string names no database
const DefaultMongoDatabase = "warden"

// MongoErrorStore persists error log records into a MongoDB collection. It
// implements observability.ErrorStore and observability.Pinger.
type MongoErrorStore struct {
	collection *mongo.Collection
}

// ConnectMongoErrorStore opens a client for uri and binds the store to
// collection in the database named by the URI path
func ConnectMongoErrorStore(ctx context.Context, uri, collection string) (*MongoErrorStore, error) {
	if collection == "" {
		return nil, errors.New("error collection name is required")
	}

	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb URI: %w", err)
	}
	database := cs.Database
	if database == "" {
		database = DefaultMongoDatabase
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}

	return NewMongoErrorStore(client.Database(database).Collection(collection)), nil
}

// NewMongoErrorStore wraps an existing collection
func NewMongoErrorStore(collection *mongo.Collection) *MongoErrorStore {
	return &MongoErrorStore{collection: collection}
}

// InsertError stores a single record
func (s *MongoErrorStore) InsertError(ctx context.Context, record observability.ErrorRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert error record: %w", err)
	}
	return nil
}

// Ping checks that the primary is reachable
func (s *MongoErrorStore) Ping(ctx context.Context) error {
	return s.collection.Database().Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client
func (s *MongoErrorStore) Close(ctx context.Context) error {
	return s.collection.Database().Client().Disconnect(ctx)
}

// Namespace returns "database.collection"
func (s *MongoErrorStore) Namespace() string {
	return s.collection.Database().Name() + "." + s.collection.Name()
}
