package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings required to reach the remote data service.
type Config struct {
	URI      string
	Key      string
	User     string
	Database string
	Timeout  time.Duration
	// ServerSelectionTimeout bounds how long an operation waits for a reachable server.
	ServerSelectionTimeout time.Duration
}

// Open constructs a MongoDB client without contacting the server. Connection
// failures surface on the first operation.
func Open(cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, nil, fmt.Errorf("mongo open: uri and database are required")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Key != "" {
		opts.SetAuth(options.Credential{Username: cfg.User, Password: cfg.Key})
	}
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}

	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo open: %w", err)
	}
	return client, client.Database(cfg.Database), nil
}

// Connect opens a client and verifies connectivity with a ping. A default
// timeout is applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, db, err := Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(pingCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, db, nil
}
