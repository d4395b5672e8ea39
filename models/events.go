package models

import "time"

const (
	EventOrderCreated     = "order_created"
	EventOrderUpdated     = "order_updated"
	EventOrderCancelled   = "order_cancelled"
	EventPaymentSucceeded = "payment_succeeded"
)

// OrderEvent is published to downstream services when an order changes.
type OrderEvent struct {
	Type           string         `json:"type"`
	OrderID        string         `json:"order_id"`
	UserID         string         `json:"user_id,omitempty"`
	Amount         float64        `json:"amount"`
	Status         PaymentStatus  `json:"status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	PaymentID      string         `json:"payment_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewOrderEvent snapshots an order into an event of the given type.
func NewOrderEvent(eventType string, o *Order) OrderEvent {
	evt := OrderEvent{
		Type:           eventType,
		OrderID:        o.OrderID,
		Amount:         o.Amount,
		Status:         o.Status,
		DeliveryStatus: o.DeliveryStatus,
		PaymentID:      o.PaymentInfo.ProviderPaymentID,
		Timestamp:      time.Now().UTC(),
	}
	if o.UserID != nil {
		evt.UserID = *o.UserID
	}
	return evt
}
