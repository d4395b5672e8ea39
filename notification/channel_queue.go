package notification

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ChannelQueue is a bounded in-process queue drained by a fixed pool of
// worker goroutines. Enqueue never blocks.
type ChannelQueue struct {
	jobs    chan Job
	workers int
	handler Handler
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewChannelQueue creates a queue holding up to size pending jobs.
func NewChannelQueue(size, workers int, handler Handler, logger *zap.Logger) *ChannelQueue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &ChannelQueue{
		jobs:    make(chan Job, size),
		workers: workers,
		handler: handler,
		logger:  logger,
	}
}

// Start launches the workers. They run until Close drains the queue.
func (q *ChannelQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	q.logger.Info("Notification workers started", zap.Int("workers", q.workers), zap.Int("capacity", cap(q.jobs)))
}

func (q *ChannelQueue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		if err := q.handler(ctx, job); err != nil {
			q.logger.Error("Notification job failed",
				zap.Int("worker", id),
				zap.String("order_id", job.OrderID),
				zap.String("type", job.Type),
				zap.Error(err))
		}
	}
}

func (q *ChannelQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for the workers to finish the backlog.
func (q *ChannelQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("Notification workers stopped")
}
