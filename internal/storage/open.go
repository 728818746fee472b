package storage

import (
	"context"
	"log/slog"

	"github.com/brainshare/backend/internal/config"
)

// Open returns the Mongo store when a URI is configured and the in-memory
// store otherwise.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UseMongo() {
		return NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	}

	if cfg.Storage.DataDir == "" {
		slog.Warn("MONGO_URI not set, using volatile in-memory store")
		return NewMemoryStore(), nil
	}

	slog.Warn("MONGO_URI not set, using in-memory store with snapshot", "data_dir", cfg.Storage.DataDir)
	return NewPersistentMemoryStore(cfg.Storage.DataDir)
}
