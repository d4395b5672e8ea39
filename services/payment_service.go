package services

import (
	"context"
	"strings"

	"checkout-service/events"
	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"
	"checkout-service/providers"
	"checkout-service/repository"

	"go.uber.org/zap"
)

// PaymentNotifier receives the confirmation hand-off after a verified
// payment. Implementations must not block.
type PaymentNotifier interface {
	NotifyPaymentConfirmed(ctx context.Context, recipient, orderID string, amount float64)
}

// PaymentService defines the payment side of the checkout flow.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, user models.CurrentUser, req *models.CreatePaymentRequest) (*models.PaymentIntent, *ServiceError)
	VerifyPayment(ctx context.Context, user models.CurrentUser, req *models.VerifyPaymentRequest) (*models.Order, *ServiceError)
}

type paymentServiceImpl struct {
	gateway         providers.PaymentGateway
	repo            repository.OrderRepository
	notifier        PaymentNotifier
	publisher       events.Publisher
	metrics         *awspkg.MetricsClient
	defaultCurrency string
	logger          *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	gateway providers.PaymentGateway,
	repo repository.OrderRepository,
	notifier PaymentNotifier,
	publisher events.Publisher,
	metrics *awspkg.MetricsClient,
	defaultCurrency string,
	logger *zap.Logger,
) PaymentService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &paymentServiceImpl{
		gateway:         gateway,
		repo:            repo,
		notifier:        notifier,
		publisher:       publisher,
		metrics:         metrics,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// CreatePaymentIntent mints a provider order for the checkout. The amount is
// taken from the client as-is.
func (s *paymentServiceImpl) CreatePaymentIntent(ctx context.Context, user models.CurrentUser, req *models.CreatePaymentRequest) (*models.PaymentIntent, *ServiceError) {
	if err := req.Validate(); err != nil {
		return nil, NewServiceError(KindValidation, err.Error())
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	intent, err := s.gateway.CreateIntent(ctx, req.Amount, currency, req.Receipt)
	if err != nil {
		s.logger.Error("Payment intent creation failed",
			zap.String("receipt", req.Receipt),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return nil, fromStoreError(err)
	}
	return intent, nil
}

// VerifyPayment checks the provider signature and, when it matches, marks the
// order identified by the receipt as Paid. Re-verifying an already paid
// order succeeds without side effects.
func (s *paymentServiceImpl) VerifyPayment(ctx context.Context, user models.CurrentUser, req *models.VerifyPaymentRequest) (*models.Order, *ServiceError) {
	if err := req.Validate(); err != nil {
		return nil, NewServiceError(KindValidation, err.Error())
	}

	if !s.gateway.VerifyCallback(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.logger.Warn("Payment signature mismatch",
			zap.String("receipt", req.Receipt),
			zap.String("razorpay_order_id", req.RazorpayOrderID),
			zap.String("user_id", user.ID))
		s.metrics.RecordCountAsync(awspkg.MetricPaymentVerificationFailed, nil)
		return nil, NewServiceError(KindVerificationFailed, "Payment verification failed")
	}

	order, changed, err := s.repo.MarkPaid(ctx, req.Receipt, models.PaymentInfo{
		ProviderOrderID:   req.RazorpayOrderID,
		ProviderPaymentID: req.RazorpayPaymentID,
		ProviderSignature: req.RazorpaySignature,
	})
	if err != nil {
		svcErr := fromStoreError(err)
		if svcErr.Kind == KindServer {
			s.logger.Error("Failed to mark order paid", zap.String("order_id", req.Receipt), zap.Error(err))
		}
		return nil, svcErr
	}
	if !changed {
		s.logger.Info("Payment already applied", zap.String("order_id", order.OrderID))
		return order, nil
	}

	s.logger.Info("Payment verified",
		zap.String("order_id", order.OrderID),
		zap.String("razorpay_payment_id", req.RazorpayPaymentID))
	s.metrics.RecordCountAsync(awspkg.MetricPaymentSucceeded, nil)
	if s.notifier != nil {
		s.notifier.NotifyPaymentConfirmed(ctx, order.Email, order.OrderID, order.Amount)
	}
	go publishEvent(s.publisher, models.NewOrderEvent(models.EventPaymentSucceeded, order), s.logger)
	return order, nil
}
