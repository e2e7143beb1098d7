package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ictserve/ictserve/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache using Redis.
// Used as the cluster-tier cache and as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, module domain.Module, key string) ([]byte, error) {
	if module == "" {
		return nil, fmt.Errorf("module is required")
	}

	val, err := c.client.Get(ctx, c.makeKey(module, key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value in Redis with TTL.
func (c *RedisCache) Set(ctx context.Context, module domain.Module, key string, value []byte, ttl time.Duration) error {
	if module == "" {
		return fmt.Errorf("module is required")
	}

	return c.client.Set(ctx, c.makeKey(module, key), value, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, module domain.Module, key string) error {
	if module == "" {
		return fmt.Errorf("module is required")
	}

	return c.client.Del(ctx, c.makeKey(module, key)).Err()
}

// DeletePrefix removes all of a module's keys with the given prefix,
// scanning rather than KEYS so it stays safe on a shared instance.
func (c *RedisCache) DeletePrefix(ctx context.Context, module domain.Module, prefix string) error {
	if module == "" {
		return fmt.Errorf("module is required")
	}

	pattern := c.makeKey(module, prefix) + "*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// IncrementCounter atomically increments a counter using Redis INCR with EXPIRE.
func (c *RedisCache) IncrementCounter(ctx context.Context, module domain.Module, key string, window time.Duration) (int64, error) {
	if module == "" {
		return 0, fmt.Errorf("module is required")
	}

	fullKey := c.makeKey(module, "counter:"+key)

	// Use Lua script for atomic increment with TTL
	script := redis.NewScript(`
		local current = redis.call('INCR', KEYS[1])
		if current == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return current
	`)

	result, err := script.Run(ctx, c.client, []string{fullKey}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, err
	}

	return result, nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) makeKey(module domain.Module, key string) string {
	return "ictserve:" + string(module) + ":" + key
}
