package events

import (
	"context"
	"encoding/json"
	"fmt"

	"checkout-service/models"
	awspkg "checkout-service/pkg/aws"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher emits order lifecycle events to downstream services.
type Publisher interface {
	Publish(ctx context.Context, evt models.OrderEvent) error
	Close() error
}

// NoopPublisher discards every event. It is the default when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.OrderEvent) error { return nil }
func (NoopPublisher) Close() error { return nil }

type snsPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte, attributes map[string]string) (string, error)
}

// SNSPublisher fans events out through an SNS topic. The event type is sent
// as the `event_type` message attribute for subscription filtering.
type SNSPublisher struct {
	client   snsPublisher
	topicArn string
	logger   *zap.Logger
}

func NewSNSPublisher(client *awspkg.SNSClient, topicArn string, logger *zap.Logger) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn, logger: logger}
}

func (p *SNSPublisher) Publish(ctx context.Context, evt models.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	id, err := p.client.Publish(ctx, p.topicArn, data, map[string]string{"event_type": evt.Type})
	if err != nil {
		return err
	}
	p.logger.Debug("Order event published to SNS",
		zap.String("type", evt.Type),
		zap.String("order_id", evt.OrderID),
		zap.String("message_id", id))
	return nil
}

func (p *SNSPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by orderId so that all
// events of one order land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	logger.Info("Kafka publisher initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt models.OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s failed: %w", p.topic, err)
	}
	p.logger.Debug("Order event published to Kafka",
		zap.String("type", evt.Type),
		zap.String("order_id", evt.OrderID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher", zap.String("topic", p.topic))
	return p.writer.Close()
}
