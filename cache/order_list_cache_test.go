package cache

import (
	"context"
	"testing"
	"time"

	"checkout-service/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleOrders() []models.Order {
	return []models.Order{
		{OrderID: "ord_2", Amount: 120, Status: models.PaymentPaid, DeliveryStatus: models.DeliveryShipped},
		{OrderID: "ord_1", Amount: 599, Status: models.PaymentInitiated, DeliveryStatus: models.DeliveryUnshipped},
	}
}

func TestMemoryCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryOrderListCache(time.Hour)

	_, ok := c.Get(ctx)
	assert.False(t, ok)

	c.Set(ctx, sampleOrders(), 0)
	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Len(t, got, 2)
	assert.Equal(t, "ord_2", got[0].OrderID)

	require.NoError(t, c.Invalidate(ctx))
	_, ok = c.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryOrderListCache(DefaultOrderListTTL)
	c.now = func() time.Time { return now }

	c.Set(ctx, sampleOrders(), 0)
	now = now.Add(23 * time.Hour)
	_, ok := c.Get(ctx)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = c.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryCache_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryOrderListCache(time.Hour)
	c.Set(ctx, sampleOrders(), 0)

	got, _ := c.Get(ctx)
	got[0].OrderID = "mutated"

	again, _ := c.Get(ctx)
	assert.Equal(t, "ord_2", again[0].OrderID)
}

func TestRedisCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisOrderListCache(client, DefaultOrderListTTL, zap.NewNop())

	_, ok := c.Get(ctx)
	assert.False(t, ok)

	c.Set(ctx, sampleOrders(), 0)
	assert.True(t, mr.Exists(OrderListCacheKey))
	assert.Equal(t, DefaultOrderListTTL, mr.TTL(OrderListCacheKey))

	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Len(t, got, 2)
	assert.Equal(t, models.DeliveryShipped, got[0].DeliveryStatus)

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(OrderListCacheKey))
}

func TestRedisCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisOrderListCache(client, time.Minute, zap.NewNop())

	c.Set(ctx, sampleOrders(), 0)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryCache_SkipsFillFromBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryOrderListCache(time.Hour)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))

	c.Set(ctx, sampleOrders(), gen)
	_, ok := c.Get(ctx)
	assert.False(t, ok)

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	c.Set(ctx, sampleOrders(), gen)
	_, ok = c.Get(ctx)
	assert.True(t, ok)
}

func TestRedisCache_SkipsFillFromBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisOrderListCache(client, DefaultOrderListTTL, zap.NewNop())

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Invalidate(ctx))
	c.Set(ctx, sampleOrders(), gen)
	assert.False(t, mr.Exists(OrderListCacheKey))

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	c.Set(ctx, sampleOrders(), gen)
	_, ok := c.Get(ctx)
	assert.True(t, ok)
}
