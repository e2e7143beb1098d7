package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports local LRU, Redis, or two-phase LRU+Redis. All keys are
// scoped by module so invalidating one module's configuration never
// touches another's.
type Cache interface {
	// Get retrieves a value from cache. Returns nil, nil on miss.
	Get(ctx context.Context, module Module, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, module Module, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, module Module, key string) error

	// DeletePrefix removes all keys for a module with the given prefix.
	// Used by the store's explicit cache invalidation.
	DeletePrefix(ctx context.Context, module Module, prefix string) error

	// IncrementCounter atomically increments a windowed counter and
	// returns the new value. Used to suppress duplicate email actions
	// dispatched for the same target inside the window.
	IncrementCounter(ctx context.Context, module Module, key string, window time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnableTwoPhase checks the local LRU first, then Redis.
	EnableTwoPhase bool
}
