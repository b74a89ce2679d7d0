// Package storage holds the durable backends for the directory document.
package storage

import (
	"context"
	"fmt"

	"repdir-backend/internal/config"
	"repdir-backend/internal/model"
)

// Persister loads and wholesale-replaces the stored directory.
type Persister interface {
	Load(ctx context.Context) (model.Directory, error)
	Save(ctx context.Context, dir model.Directory) error
	Close() error
}

var (
	_ Persister = (*FilePersister)(nil)
	_ Persister = (*MemoryPersister)(nil)
	_ Persister = (*RedisPersister)(nil)
	_ Persister = (*SQLitePersister)(nil)
)

// Open builds the persister selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Persister, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFilePersister(cfg.FilePath), nil
	case config.BackendMemory:
		return NewMemoryPersister(nil), nil
	case config.BackendRedis:
		return NewRedisPersister(cfg.RedisAddr, cfg.RedisKey), nil
	case config.BackendSQLite:
		return NewSQLitePersister(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
