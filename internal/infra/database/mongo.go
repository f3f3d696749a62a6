package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/florafleet/pollination-api/internal/infra/config"
)

// Mongo wraps the driver client with lifecycle management.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongo connects to MongoDB and verifies connectivity with a ping.
func NewMongo(ctx context.Context, cfg config.MongoSettings, logger *zap.Logger) (*Mongo, error) {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("MongoDB connection established",
		zap.String("database", cfg.Database),
	)

	return &Mongo{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

// Database returns the configured database handle.
func (m *Mongo) Database() *mongo.Database {
	return m.db
}

// HealthCheck pings the primary to verify connectivity.
func (m *Mongo) HealthCheck(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	m.logger.Info("Closing MongoDB connection")
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
