package notification

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "checkout-service/pkg/aws"

	"go.uber.org/zap"
)

type sqsTransport interface {
	SendMessage(ctx context.Context, body string) (string, error)
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// SQSQueue moves jobs through an SQS queue so that any replica, or a
// separate worker deployment, can deliver them.
type SQSQueue struct {
	transport sqsTransport
	logger    *zap.Logger
}

func NewSQSQueue(client *awspkg.SQSClient, logger *zap.Logger) *SQSQueue {
	return &SQSQueue{transport: client, logger: logger}
}

// Send publishes job to the queue. It performs network I/O, so callers on the
// request path reach it through a ChannelQueue.
func (q *SQSQueue) Send(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notification job: %w", err)
	}
	id, err := q.transport.SendMessage(ctx, string(body))
	if err != nil {
		return err
	}
	q.logger.Debug("Notification job queued to SQS",
		zap.String("order_id", job.OrderID),
		zap.String("message_id", id))
	return nil
}

// Consume long-polls the queue and hands each job to handler until ctx is
// cancelled. Undecodable messages are logged and dropped.
func (q *SQSQueue) Consume(ctx context.Context, handler Handler) error {
	return q.transport.StartPolling(ctx, func(ctx context.Context, body string) error {
		var job Job
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			q.logger.Error("Dropping undecodable notification message", zap.Error(err))
			return nil
		}
		return handler(ctx, job)
	})
}
