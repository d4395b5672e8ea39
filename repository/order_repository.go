package repository

import (
	"context"
	"errors"
	"strings"

	"checkout-service/models"

	"gorm.io/gorm"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order with this orderId already exists")
	ErrInvalidStatus     = errors.New("invalid status value")
	ErrNotCancelable     = errors.New("order can no longer be cancelled")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrConcurrentUpdate  = errors.New("order was modified concurrently")
)

// OrderRepository defines data-access operations for orders. All mutations
// are keyed by the client-supplied orderId.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	Update(ctx context.Context, orderID string, patch models.OrderPatch) (*models.Order, error)
	Cancel(ctx context.Context, orderID, reason string) (*models.Order, error)
	// MarkPaid moves a payable order to Paid. changed is false when the order
	// was already Paid and nothing was written.
	MarkPaid(ctx context.Context, orderID string, info models.PaymentInfo) (order *models.Order, changed bool, err error)
	Delete(ctx context.Context, orderID string) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	order.Status = models.PaymentInitiated
	order.DeliveryStatus = models.DeliveryUnshipped
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateOrder
		}
		return err
	}
	return nil
}

func (r *GormOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *GormOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormOrderRepository) Update(ctx context.Context, orderID string, patch models.OrderPatch) (*models.Order, error) {
	current, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkPatch(current, patch); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.DeliveryStatus != nil {
		updates["delivery_status"] = *patch.DeliveryStatus
	}
	if patch.ShippingProvider != nil {
		updates["shipping_provider"] = *patch.ShippingProvider
	}
	if patch.TrackingID != nil {
		updates["tracking_id"] = *patch.TrackingID
	}
	if patch.CancellationReason != nil {
		updates["cancellation_reason"] = *patch.CancellationReason
	}

	// compare-and-set on the statuses the transition check was made against
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND status = ? AND delivery_status = ?", orderID, current.Status, current.DeliveryStatus).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConcurrentUpdate
	}
	return r.FindByOrderID(ctx, orderID)
}

func (r *GormOrderRepository) Cancel(ctx context.Context, orderID, reason string) (*models.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Where("delivery_status NOT IN ?", models.NonCancelableDeliveryStatuses()).
		Where("status NOT IN ?", []models.PaymentStatus{models.PaymentFailed, models.PaymentCancelled}).
		Updates(map[string]interface{}{
			"status":              models.PaymentCancelled,
			"delivery_status":     models.DeliveryReturned,
			"cancellation_reason": reason,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByOrderID(ctx, orderID); err != nil {
			return nil, err
		}
		return nil, ErrNotCancelable
	}
	return r.FindByOrderID(ctx, orderID)
}

func (r *GormOrderRepository) MarkPaid(ctx context.Context, orderID string, info models.PaymentInfo) (*models.Order, bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ? AND status IN ?", orderID, models.PayableStatuses()).
		Updates(map[string]interface{}{
			"status":                      models.PaymentPaid,
			"payment_provider_order_id":   info.ProviderOrderID,
			"payment_provider_payment_id": info.ProviderPaymentID,
			"payment_provider_signature":  info.ProviderSignature,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}

	order, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected > 0 {
		return order, true, nil
	}
	if order.Status == models.PaymentPaid {
		return order, false, nil
	}
	return nil, false, ErrInvalidTransition
}

func (r *GormOrderRepository) Delete(ctx context.Context, orderID string) error {
	res := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// checkPatch validates enum membership and per-axis transitions of a patch
// against the current order.
func checkPatch(current *models.Order, patch models.OrderPatch) error {
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return ErrInvalidStatus
		}
		if !current.Status.CanTransitionTo(*patch.Status) {
			return ErrInvalidTransition
		}
	}
	if patch.DeliveryStatus != nil {
		if !patch.DeliveryStatus.Valid() {
			return ErrInvalidStatus
		}
		if !current.DeliveryStatus.CanTransitionTo(*patch.DeliveryStatus) {
			return ErrInvalidTransition
		}
	}

	// cancelling through a patch is held to the same delivery guard as Cancel
	if patch.Status != nil && *patch.Status == models.PaymentCancelled && current.Status != models.PaymentCancelled {
		delivery := current.DeliveryStatus
		if patch.DeliveryStatus != nil {
			delivery = *patch.DeliveryStatus
		}
		if !delivery.Cancelable() {
			return ErrNotCancelable
		}
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
