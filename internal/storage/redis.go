package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"repdir-backend/internal/model"
)

// RedisPersister stores the directory document as a single string value.
type RedisPersister struct {
	rdb *redis.Client
	key string
}

// NewRedisPersister connects to addr and stores the document under key.
func NewRedisPersister(addr, key string) *RedisPersister {
	// redis/go-redis/v9: one client per process, pooled connections.
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisPersister{rdb: rdb, key: key}
}

// Ping checks connectivity.
func (p *RedisPersister) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Load returns the stored directory. A missing key is an empty directory.
func (p *RedisPersister) Load(ctx context.Context) (model.Directory, error) {
	// redis.Nil means the key does not exist yet.
	val, err := p.rdb.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Directory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", p.key, err)
	}

	dir := model.Directory{}
	if err := json.Unmarshal(val, &dir); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.key, err)
	}
	return dir, nil
}

// Save replaces the stored document. SET is atomic, so readers see either
// the old or the new directory.
func (p *RedisPersister) Save(ctx context.Context, dir model.Directory) error {
	data, err := json.Marshal(dir)
	if err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}
	// TTL=0 means no expiration.
	if err := p.rdb.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.key, err)
	}
	return nil
}

// Close releases the client's connections.
func (p *RedisPersister) Close() error {
	return p.rdb.Close()
}
