// Package redis provides a Redis-backed dtable.SchemaCache. Installing it is
// an explicit opt-in via dtable.WithSchemaCache; without it every operation
// re-reads the live catalog.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dtable"
	"dtable/drivers/schema"
)

// client implements dtable.SchemaCache using Redis.
// The counters field tracks operation statistics for monitoring (thread-safe).
type client struct {
	redisClient       *redis.Client
	mu                sync.Mutex
	counters          map[string]int
	createdInternally bool
}

// Ensure client implements dtable.SchemaCache and io.Closer.
var (
	_ dtable.SchemaCache = (*client)(nil)
	_ io.Closer          = (*client)(nil)
)

// Options holds configuration for the Redis client.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a new Redis schema cache wrapper. If redisCli is not nil
// it is used directly; otherwise opts is used to create a new client, and the
// connection is verified with a ping.
func NewClient(redisCli *redis.Client, opts *Options) (dtable.SchemaCache, error) {
	var rdb *redis.Client
	var createdInternally bool

	if redisCli != nil {
		rdb = redisCli
	} else {
		if opts == nil {
			opts = &Options{}
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
		createdInternally = true

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
	}
	return &client{redisClient: rdb, counters: make(map[string]int), createdInternally: createdInternally}, nil
}

// incrementCounter safely increments a named operation counter.
func (c *client) incrementCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counters == nil {
		c.counters = make(map[string]int)
	}
	c.counters[name]++
}

// GetTable retrieves cached table info. A miss returns (nil, nil) so the
// caller falls through to live introspection.
func (c *client) GetTable(ctx context.Context, key string) (*schema.TableInfo, error) {
	c.incrementCounter("GetTable")
	val, err := c.redisClient.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.incrementCounter("GetTableMiss")
		return nil, nil
	} else if err != nil {
		c.incrementCounter("GetTableError")
		return nil, fmt.Errorf("redis Get error for key '%s': %w", key, err)
	}
	c.incrementCounter("GetTableHit")

	var info schema.TableInfo
	if err := json.Unmarshal(val, &info); err != nil {
		return nil, fmt.Errorf("redis unmarshal error for key '%s': %w", key, err)
	}
	return &info, nil
}

// SetTable stores table info under key with the given TTL.
func (c *client) SetTable(ctx context.Context, key string, info *schema.TableInfo, ttl time.Duration) error {
	c.incrementCounter("SetTable")
	val, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("redis marshal error for key '%s': %w", key, err)
	}
	if err := c.redisClient.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis Set error for key '%s': %w", key, err)
	}
	return nil
}

// Invalidate removes a cached entry. Missing keys are not an error.
func (c *client) Invalidate(ctx context.Context, key string) error {
	c.incrementCounter("Invalidate")
	err := c.redisClient.Del(ctx, key).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis Del error for key '%s': %w", key, err)
	}
	return nil
}

// Stats returns a copy of the operation counters.
func (c *client) Stats() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}

// Close implements io.Closer. Only closes the Redis client if it was created
// internally.
func (c *client) Close() error {
	if c.createdInternally && c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}
