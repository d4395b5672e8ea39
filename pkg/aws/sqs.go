package aws

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// DefaultMaxReceives is how many times a failing message is received before
// the poller deletes it. Queues with a redrive policy should set a lower
// maxReceiveCount so the message lands in the DLQ first.
const DefaultMaxReceives = 5

// MessageHandler processes one SQS message body. A non-nil error leaves the
// message on the queue so it becomes visible again after the visibility timeout,
// until it has been received maxReceives times.
type MessageHandler func(ctx context.Context, body string) error

// SQSClient sends to and long-polls a single queue.
type SQSClient struct {
	client   sqsAPI
	queueURL string
	logger   *zap.Logger

	waitSeconds int32
	retryDelay  time.Duration
	maxReceives int
}

// NewSQSClient creates a client bound to queueURL.
func NewSQSClient(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSClient {
	return &SQSClient{
		client:      sqs.NewFromConfig(cfg),
		queueURL:    queueURL,
		logger:      logger,
		waitSeconds: 20,
		retryDelay:  5 * time.Second,
		maxReceives: DefaultMaxReceives,
	}
}

// SendMessage enqueues a single message.
func (c *SQSClient) SendMessage(ctx context.Context, body string) (string, error) {
	out, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(c.queueURL),
		MessageBody: sdkaws.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}

// StartPolling receives messages until ctx is cancelled. Messages are deleted
// only after handler succeeds.
func (c *SQSClient) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("SQS polling started", zap.String("queue", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS polling stopped")
			return ctx.Err()
		default:
		}

		if err := c.pollOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("SQS receive error", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
		}
	}
}

func (c *SQSClient) pollOnce(ctx context.Context, handler MessageHandler) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            sdkaws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     c.waitSeconds,
		VisibilityTimeout:   30,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range out.Messages {
		if msg.Body == nil || *msg.Body == "" {
			c.logger.Warn("Skipping SQS message with empty body")
			continue
		}
		if err := handler(ctx, *msg.Body); err != nil {
			receives := receiveCount(msg)
			if c.maxReceives <= 0 || receives < c.maxReceives {
				c.logger.Warn("SQS message handler failed, leaving message for redelivery",
					zap.String("message_id", sdkaws.ToString(msg.MessageId)),
					zap.Int("receive_count", receives),
					zap.Error(err))
				continue
			}
			c.logger.Error("SQS message failed too many times, dropping it",
				zap.String("message_id", sdkaws.ToString(msg.MessageId)),
				zap.Int("receive_count", receives),
				zap.Error(err))
		}
		c.deleteMessage(ctx, msg)
	}
	return nil
}

func (c *SQSClient) deleteMessage(ctx context.Context, msg types.Message) {
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      sdkaws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		c.logger.Error("Failed to delete SQS message", zap.Error(err))
	}
}

func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil {
		return 0
	}
	return n
}
