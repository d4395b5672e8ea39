package notification

import (
	"context"
	"time"

	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"

	"go.uber.org/zap"
)

type countRecorder interface {
	RecordCountAsync(metricName string, dimensions map[string]string)
}

// Notifier is the request-path entry point of the side channel. Its methods
// return immediately and never report errors to the caller.
type Notifier struct {
	queue   Enqueuer
	metrics countRecorder
	logger  *zap.Logger
}

func NewNotifier(queue Enqueuer, metrics countRecorder, logger *zap.Logger) *Notifier {
	return &Notifier{queue: queue, metrics: metrics, logger: logger}
}

func (n *Notifier) NotifyPaymentConfirmed(ctx context.Context, recipient, orderID string, amount float64) {
	if recipient == "" {
		n.logger.Warn("Skipping payment confirmation without recipient", zap.String("order_id", orderID))
		return
	}

	job := Job{
		Type:       models.NotificationPaymentConfirmed,
		OrderID:    orderID,
		Recipient:  recipient,
		Amount:     amount,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := n.queue.Enqueue(ctx, job); err != nil {
		n.logger.Warn("Payment confirmation dropped",
			zap.String("order_id", orderID),
			zap.Error(err))
		if n.metrics != nil {
			n.metrics.RecordCountAsync(awspkg.MetricNotificationsDropped, map[string]string{"Type": job.Type})
		}
		return
	}
	n.logger.Info("Payment confirmation queued", zap.String("order_id", orderID))
}
