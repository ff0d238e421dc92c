package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"go.uber.org/zap"
)

const defaultMemoryCapacity = 256

// MemoryBroker is the in-process Publisher and Consumer used when no
// RabbitMQ is configured. Each queue is a bounded channel; publishing to a
// full queue fails fast with domain.ErrQueueFull. Messages are lost on exit.
type MemoryBroker struct {
	capacity int
	logger   *zap.Logger

	mu     sync.Mutex
	queues map[string]chan BatchRunMessage
	closed bool
	done   chan struct{}
}

var (
	_ Publisher = (*MemoryBroker)(nil)
	_ Consumer  = (*MemoryBroker)(nil)
)

func NewMemoryBroker(capacity int, logger *zap.Logger) *MemoryBroker {
	if capacity < 1 {
		capacity = defaultMemoryCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MemoryBroker{
		capacity: capacity,
		logger:   logger,
		queues:   make(map[string]chan BatchRunMessage),
		done:     make(chan struct{}),
	}
}

func (b *MemoryBroker) queue(name string) (chan BatchRunMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}
	q, ok := b.queues[name]
	if !ok {
		q = make(chan BatchRunMessage, b.capacity)
		b.queues[name] = q
	}
	return q, nil
}

func (b *MemoryBroker) Publish(ctx context.Context, queue string, msg BatchRunMessage) error {
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid batch run message: %w", err)
	}

	q, err := b.queue(queue)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case q <- msg:
		return nil
	default:
		return fmt.Errorf("%w: %s", domain.ErrQueueFull, queue)
	}
}

func (b *MemoryBroker) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	q, err := b.queue(queue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return nil
		case msg := <-q:
			if err := handler(ctx, msg); err != nil {
				b.logger.Warn("batch run failed",
					zap.Error(err),
					zap.String("batchId", msg.BatchID),
					zap.String("queue", queue),
				)
			}
		}
	}
}

// Len reports the number of buffered messages in a queue.
func (b *MemoryBroker) Len(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[queue])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}
