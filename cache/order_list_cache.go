package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultOrderListTTL bounds how stale the admin order listing may get.
	DefaultOrderListTTL = 24 * time.Hour

	OrderListCacheKey = "orders:all"
	// OrderListGenerationKey counts invalidations; it never expires.
	OrderListGenerationKey = "orders:all:gen"
)

// OrderListCache holds the admin "all orders" view. It is a performance
// optimization only; every write path calls Invalidate.
//
// Fills are generation checked: a reader takes Generation before loading the
// list and passes it to Set, which stores nothing if an Invalidate happened in
// between.
type OrderListCache interface {
	Get(ctx context.Context) ([]models.Order, bool)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, orders []models.Order, generation int64)
	Invalidate(ctx context.Context) error
}

var errStaleGeneration = errors.New("order list generation changed")

// MemoryOrderListCache keeps the listing in process memory.
type MemoryOrderListCache struct {
	mu        sync.RWMutex
	orders    []models.Order
	gen       int64
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewMemoryOrderListCache creates an in-process cache with the given TTL.
func NewMemoryOrderListCache(ttl time.Duration) *MemoryOrderListCache {
	if ttl <= 0 {
		ttl = DefaultOrderListTTL
	}
	return &MemoryOrderListCache{ttl: ttl, now: time.Now}
}

func (c *MemoryOrderListCache) Get(_ context.Context) ([]models.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.orders == nil || !c.now().Before(c.expiresAt) {
		return nil, false
	}
	out := make([]models.Order, len(c.orders))
	copy(out, c.orders)
	return out, true
}

func (c *MemoryOrderListCache) Generation(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen, nil
}

func (c *MemoryOrderListCache) Set(_ context.Context, orders []models.Order, generation int64) {
	snapshot := make([]models.Order, len(orders))
	copy(snapshot, orders)

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.gen {
		return
	}
	c.orders = snapshot
	c.expiresAt = c.now().Add(c.ttl)
}

func (c *MemoryOrderListCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.gen++
	c.orders = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
	return nil
}

// RedisOrderListCache stores the listing as JSON in Redis so that every
// replica shares one view and one invalidation.
type RedisOrderListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisOrderListCache creates a Redis-backed cache.
func NewRedisOrderListCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisOrderListCache {
	if ttl <= 0 {
		ttl = DefaultOrderListTTL
	}
	return &RedisOrderListCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisOrderListCache) Get(ctx context.Context) ([]models.Order, bool) {
	data, err := c.client.Get(ctx, OrderListCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Order list cache read failed", zap.Error(err))
		return nil, false
	}

	var orders []models.Order
	if err := json.Unmarshal([]byte(data), &orders); err != nil {
		c.logger.Warn("Failed to unmarshal cached order list", zap.Error(err))
		return nil, false
	}
	return orders, true
}

func (c *RedisOrderListCache) Generation(ctx context.Context) (int64, error) {
	return readGeneration(ctx, c.client)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, r stringGetter) (int64, error) {
	gen, err := r.Get(ctx, OrderListGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set writes the listing under WATCH of the generation key, so a concurrent
// Invalidate aborts the write.
func (c *RedisOrderListCache) Set(ctx context.Context, orders []models.Order, generation int64) {
	data, err := json.Marshal(orders)
	if err != nil {
		c.logger.Warn("Failed to marshal order list for cache", zap.Error(err))
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, OrderListCacheKey, data, c.ttl)
			return nil
		})
		return err
	}, OrderListGenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("Skipped caching order list invalidated during load")
	default:
		c.logger.Warn("Failed to cache order list", zap.Error(err))
	}
}

func (c *RedisOrderListCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, OrderListGenerationKey)
		pipe.Del(ctx, OrderListCacheKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate order list cache: %w", err)
	}
	return nil
}
