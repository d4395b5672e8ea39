package repository

import (
	"context"

	"checkout-service/cache"
	"checkout-service/models"

	"go.uber.org/zap"
)

// CachedOrderRepository serves FindAll from an OrderListCache and
// invalidates it after every successful mutation.
type CachedOrderRepository struct {
	OrderRepository
	cache  cache.OrderListCache
	logger *zap.Logger
}

// NewCachedOrderRepository wraps next with the given list cache.
func NewCachedOrderRepository(next OrderRepository, c cache.OrderListCache, logger *zap.Logger) *CachedOrderRepository {
	return &CachedOrderRepository{OrderRepository: next, cache: c, logger: logger}
}

func (r *CachedOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	if orders, ok := r.cache.Get(ctx); ok {
		r.logger.Debug("Order list served from cache", zap.Int("count", len(orders)))
		return orders, nil
	}

	gen, genErr := r.cache.Generation(ctx)
	if genErr != nil {
		r.logger.Warn("Order list cache unavailable", zap.Error(genErr))
	}

	orders, err := r.OrderRepository.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		r.cache.Set(ctx, orders, gen)
	}
	return orders, nil
}

func (r *CachedOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.OrderRepository.Create(ctx, order); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedOrderRepository) Update(ctx context.Context, orderID string, patch models.OrderPatch) (*models.Order, error) {
	order, err := r.OrderRepository.Update(ctx, orderID, patch)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx)
	return order, nil
}

func (r *CachedOrderRepository) Cancel(ctx context.Context, orderID, reason string) (*models.Order, error) {
	order, err := r.OrderRepository.Cancel(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx)
	return order, nil
}

func (r *CachedOrderRepository) MarkPaid(ctx context.Context, orderID string, info models.PaymentInfo) (*models.Order, bool, error) {
	order, changed, err := r.OrderRepository.MarkPaid(ctx, orderID, info)
	if err != nil {
		return nil, false, err
	}
	if changed {
		r.invalidate(ctx)
	}
	return order, changed, nil
}

func (r *CachedOrderRepository) Delete(ctx context.Context, orderID string) error {
	if err := r.OrderRepository.Delete(ctx, orderID); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedOrderRepository) invalidate(ctx context.Context) {
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.Warn("Failed to invalidate order list cache", zap.Error(err))
	}
}
