// Package storage provides the key-value store behind the storage endpoint.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"music-edge/internal/config"
)

// Store is a flat string key-value store. Batch writes are all-or-nothing
// per call.
type Store interface {
	// Get returns the values for keys; a key with no row maps to nil. With no
	// keys it returns every stored entry.
	Get(ctx context.Context, keys []string) (map[string]*string, error)
	// Upsert inserts or replaces every entry.
	Upsert(ctx context.Context, entries map[string]string) error
	// Delete removes every listed key; missing keys are not an error.
	Delete(ctx context.Context, keys []string) error
	Close() error
}

// Open connects the backend selected by cfg.Storage.Driver. It returns a nil
// Store for the "none" driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageSQLite:
		s, err := OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageRedis:
		s, err := OpenRedis(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenOrUnavailable opens the configured backend. A backend that fails to
// open is logged and reported as unavailable (nil) rather than stopping the
// server; the storage endpoint then answers with d1Available=false.
func OpenOrUnavailable(ctx context.Context, cfg *config.Config, logger *slog.Logger) Store {
	logger = logger.With("component", "storage")

	store, err := Open(ctx, cfg)
	if err != nil {
		logger.Warn("storage backend unavailable", "driver", cfg.Storage.Driver, "err", err)
		return nil
	}
	if store == nil {
		logger.Info("storage disabled")
		return nil
	}
	logger.Info("storage backend ready", "driver", cfg.Storage.Driver)
	return store
}
