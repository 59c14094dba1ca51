package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/yuvrajinbhakti/UHaveToDo/internal/infrastructure/config"
)

// DefaultMongoDatabase is used when neither DB_NAME nor the URL path names one
const DefaultMongoDatabase = "uhavetodo"

// MongoDB wraps a connected client and the database holding the tasks
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongo connects to MongoDB and pings the primary
func NewMongo(cfg config.DatabaseConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout(cfg))
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URL).
		SetMaxPoolSize(uint64(max(cfg.MaxOpenConns, 1))).
		SetMaxConnIdleTime(cfg.ConnMaxLifetime)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	name, err := MongoDatabaseName(cfg)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoDB{
		Client:   client,
		Database: client.Database(name),
	}, nil
}

// MongoDatabaseName resolves DB_NAME, then the URL path, then the default
func MongoDatabaseName(cfg config.DatabaseConfig) (string, error) {
	if cfg.Name != "" {
		return cfg.Name, nil
	}

	cs, err := connstring.ParseAndValidate(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid mongodb url: %w", err)
	}
	if name := strings.TrimSpace(cs.Database); name != "" {
		return name, nil
	}
	return DefaultMongoDatabase, nil
}

// HealthCheck checks database health
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client
func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}
