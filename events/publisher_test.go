package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"checkout-service/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSNS struct {
	topic string
	body  []byte
	attrs map[string]string
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, topicArn string, message []byte, attributes map[string]string) (string, error) {
	f.topic, f.body, f.attrs = topicArn, message, attributes
	return "sns-1", f.err
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleEvent() models.OrderEvent {
	uid := "user-1"
	return models.NewOrderEvent(models.EventPaymentSucceeded, &models.Order{
		OrderID:     "ord_1",
		UserID:      &uid,
		Amount:      599,
		Status:      models.PaymentPaid,
		PaymentInfo: models.PaymentInfo{ProviderPaymentID: "pay_1"},
	})
}

func TestSNSPublisher_Publish(t *testing.T) {
	client := &fakeSNS{}
	p := &SNSPublisher{client: client, topicArn: "arn:topic", logger: zap.NewNop()}

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, "arn:topic", client.topic)
	assert.Equal(t, map[string]string{"event_type": models.EventPaymentSucceeded}, client.attrs)

	var evt models.OrderEvent
	require.NoError(t, json.Unmarshal(client.body, &evt))
	assert.Equal(t, "ord_1", evt.OrderID)
	assert.Equal(t, "pay_1", evt.PaymentID)
	assert.Equal(t, "user-1", evt.UserID)
}

func TestSNSPublisher_PropagatesError(t *testing.T) {
	p := &SNSPublisher{client: &fakeSNS{err: errors.New("throttled")}, topicArn: "arn:topic", logger: zap.NewNop()}
	assert.Error(t, p.Publish(context.Background(), sampleEvent()))
}

func TestKafkaPublisher_KeysByOrderID(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "order-events", logger: zap.NewNop()}

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "ord_1", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, models.EventPaymentSucceeded, string(w.msgs[0].Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("leader not available")}, topic: "order-events", logger: zap.NewNop()}
	assert.ErrorContains(t, p.Publish(context.Background(), sampleEvent()), "order-events")
}
