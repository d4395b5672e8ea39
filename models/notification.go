package models

import "time"

const (
	ChannelEmail = "email"

	NotificationSent   = "sent"
	NotificationFailed = "failed"

	NotificationPaymentConfirmed = "payment_confirmed"
)

// NotificationLog records the outcome of one notification delivery.
type NotificationLog struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID    string    `json:"order_id" gorm:"index"`
	Recipient  string    `json:"recipient"`
	Type       string    `json:"type"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
	MessageID  string    `json:"message_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
