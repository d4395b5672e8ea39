package services

import (
	"context"
	"strings"
	"time"

	"checkout-service/catalog"
	"checkout-service/events"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/repository"

	"go.uber.org/zap"
)

// OrderService defines the order side of the checkout flow.
type OrderService interface {
	CreateOrder(ctx context.Context, user models.CurrentUser, req *models.CreateOrderRequest) (*models.Order, *ServiceError)
	GetMyOrders(ctx context.Context, user models.CurrentUser, page, limit int) ([]models.Order, int64, *ServiceError)
	GetOrder(ctx context.Context, user models.CurrentUser, orderID string) (*models.Order, *ServiceError)
	CancelOrder(ctx context.Context, user models.CurrentUser, orderID, reason string) (*models.Order, *ServiceError)
	ListAllOrders(ctx context.Context, user models.CurrentUser) ([]models.Order, *ServiceError)
	UpdateOrder(ctx context.Context, user models.CurrentUser, orderID string, req *models.UpdateOrderRequest) (*models.Order, *ServiceError)
	DeleteOrder(ctx context.Context, user models.CurrentUser, orderID string) *ServiceError
}

type orderServiceImpl struct {
	repo      repository.OrderRepository
	catalog   catalog.ProductCatalog
	publisher events.Publisher
	metrics   *awspkg.MetricsClient
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService. catalog may be nil, in which
// case line-item images are stored exactly as submitted.
func NewOrderService(
	repo repository.OrderRepository,
	productCatalog catalog.ProductCatalog,
	publisher events.Publisher,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) OrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &orderServiceImpl{
		repo:      repo,
		catalog:   productCatalog,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *orderServiceImpl) CreateOrder(ctx context.Context, user models.CurrentUser, req *models.CreateOrderRequest) (*models.Order, *ServiceError) {
	if err := req.Validate(); err != nil {
		return nil, NewServiceError(KindValidation, err.Error())
	}

	var userID *string
	if user.ID != "" {
		id := user.ID
		userID = &id
	}
	order := req.ToOrder(userID)
	s.fillImages(ctx, order)

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, s.storeError("create", order.OrderID, err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.OrderID),
		zap.Float64("amount", order.Amount),
		zap.Int("items", len(order.Products)))
	s.metrics.RecordCountAsync(awspkg.MetricOrdersCreated, nil)
	s.publish(models.NewOrderEvent(models.EventOrderCreated, order))
	return order, nil
}

// fillImages backfills missing line-item images from the catalog. Lookup
// failures leave the image empty.
func (s *orderServiceImpl) fillImages(ctx context.Context, order *models.Order) {
	if s.catalog == nil {
		return
	}
	for i := range order.Products {
		p := &order.Products[i]
		if p.Image != "" {
			continue
		}
		img, err := s.catalog.FirstImage(ctx, p.ProductID)
		if err != nil {
			s.logger.Warn("Product image lookup failed",
				zap.String("product_id", p.ProductID),
				zap.Error(err))
			continue
		}
		p.Image = img
	}
}

func (s *orderServiceImpl) GetMyOrders(ctx context.Context, user models.CurrentUser, page, limit int) ([]models.Order, int64, *ServiceError) {
	if user.ID == "" {
		return nil, 0, NewServiceError(KindUnauthorized, "Unauthorized")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	orders, total, err := s.repo.FindByUserID(ctx, user.ID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch user orders", zap.String("user_id", user.ID), zap.Error(err))
		return nil, 0, NewServiceError(KindServer, "Failed to fetch orders")
	}
	return orders, total, nil
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, user models.CurrentUser, orderID string) (*models.Order, *ServiceError) {
	order, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, s.storeError("fetch", orderID, err)
	}
	if !user.IsAdmin() && !ownedBy(order, user) {
		return nil, NewServiceError(KindForbidden, "You do not have access to this order")
	}
	return order, nil
}

func (s *orderServiceImpl) CancelOrder(ctx context.Context, user models.CurrentUser, orderID, reason string) (*models.Order, *ServiceError) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewServiceError(KindValidation, "cancellationReason is required")
	}

	existing, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, s.storeError("fetch", orderID, err)
	}
	if !ownedBy(existing, user) {
		return nil, NewServiceError(KindForbidden, "You can only cancel your own orders")
	}

	order, err := s.repo.Cancel(ctx, orderID, reason)
	if err != nil {
		return nil, s.storeError("cancel", orderID, err)
	}

	s.logger.Info("Order cancelled", zap.String("order_id", orderID), zap.String("user_id", user.ID))
	s.metrics.RecordCountAsync(awspkg.MetricOrdersCancelled, nil)
	s.publish(models.NewOrderEvent(models.EventOrderCancelled, order))
	return order, nil
}

func (s *orderServiceImpl) ListAllOrders(ctx context.Context, user models.CurrentUser) ([]models.Order, *ServiceError) {
	if !user.IsAdmin() {
		return nil, NewServiceError(KindForbidden, "Admin access required")
	}
	orders, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, NewServiceError(KindServer, "Failed to fetch orders")
	}
	return orders, nil
}

func (s *orderServiceImpl) UpdateOrder(ctx context.Context, user models.CurrentUser, orderID string, req *models.UpdateOrderRequest) (*models.Order, *ServiceError) {
	if !user.IsAdmin() {
		return nil, NewServiceError(KindForbidden, "Admin access required")
	}
	patch, err := req.ToPatch()
	if err != nil {
		return nil, NewServiceError(KindValidation, err.Error())
	}

	order, err := s.repo.Update(ctx, orderID, patch)
	if err != nil {
		return nil, s.storeError("update", orderID, err)
	}

	s.logger.Info("Order updated",
		zap.String("order_id", orderID),
		zap.String("status", string(order.Status)),
		zap.String("delivery_status", string(order.DeliveryStatus)))
	s.publish(models.NewOrderEvent(models.EventOrderUpdated, order))
	return order, nil
}

func (s *orderServiceImpl) DeleteOrder(ctx context.Context, user models.CurrentUser, orderID string) *ServiceError {
	if !user.IsAdmin() {
		return NewServiceError(KindForbidden, "Admin access required")
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return s.storeError("delete", orderID, err)
	}
	s.logger.Info("Order deleted", zap.String("order_id", orderID))
	return nil
}

func (s *orderServiceImpl) storeError(op, orderID string, err error) *ServiceError {
	svcErr := fromStoreError(err)
	if svcErr.Kind == KindServer {
		s.logger.Error("Order store failure",
			zap.String("op", op),
			zap.String("order_id", orderID),
			zap.Error(err))
	}
	return svcErr
}

// publish sends evt in the background; failures are only logged.
func (s *orderServiceImpl) publish(evt models.OrderEvent) {
	go publishEvent(s.publisher, evt, s.logger)
}

func publishEvent(p events.Publisher, evt models.OrderEvent, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Publish(ctx, evt); err != nil {
		logger.Warn("Failed to publish order event",
			zap.String("type", evt.Type),
			zap.String("order_id", evt.OrderID),
			zap.Error(err))
	}
}

func ownedBy(order *models.Order, user models.CurrentUser) bool {
	return user.ID != "" && order.UserID != nil && *order.UserID == user.ID
}
