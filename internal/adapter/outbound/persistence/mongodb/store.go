// Package mongodb stores audit records and users in MongoDB collections.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	auditCollection = "audit_records"
	userCollection  = "users"
)

// Config holds MongoDB connection configuration.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store owns the client and the database handle shared by the repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects, verifies the connection and ensures collection indexes.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := &Store{client: client, db: client.Database(cfg.Database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	audit := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "severity", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "actorId", Value: 1}}},
	}
	if _, err := s.db.Collection(auditCollection).Indexes().CreateMany(ctx, audit); err != nil {
		return fmt.Errorf("creating audit indexes: %w", err)
	}
	users := []mongo.IndexModel{{Keys: bson.D{{Key: "role", Value: 1}}}}
	if _, err := s.db.Collection(userCollection).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	return nil
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// Drop removes the database. It is used to clean up test databases.
func (s *Store) Drop(ctx context.Context) error { return s.db.Drop(ctx) }
