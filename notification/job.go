package notification

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Job is one pending notification. It is the unit handed from the request
// path to the background workers, and the SQS message body.
type Job struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	Recipient  string    `json:"recipient"`
	Amount     float64   `json:"amount"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Handler processes a job taken off a queue.
type Handler func(ctx context.Context, job Job) error

// Enqueuer accepts jobs without waiting for them to be processed.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}
