package queue

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

// Publisher publishes batch run messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg BatchRunMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg BatchRunMessage) error

// Consumer consumes batch run messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const (
	// queueMaxPriority is the RabbitMQ x-max-priority value for work queues.
	queueMaxPriority int32 = 2
	queuePrefix            = "rndc.batch"
)

// QueueName returns the work queue of a batch kind, e.g. rndc.batch.remesa.
func QueueName(kind domain.Kind) string {
	return fmt.Sprintf("%s.%s", queuePrefix, kind.String())
}

// DLQName returns the dead-letter queue of a batch kind, e.g. dlq.rndc.batch.remesa.
func DLQName(kind domain.Kind) string {
	return fmt.Sprintf("dlq.%s", QueueName(kind))
}

// WorkQueueNames returns the work queues of every batch kind.
func WorkQueueNames() []string {
	kinds := domain.BatchKinds()
	queues := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		queues = append(queues, QueueName(kind))
	}
	return queues
}

// DLQNames returns the dead-letter queues of every batch kind.
func DLQNames() []string {
	kinds := domain.BatchKinds()
	queues := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		queues = append(queues, DLQName(kind))
	}
	return queues
}

// PriorityValue ranks fresh batches ahead of recovered ones.
func PriorityValue(reason RunReason) uint8 {
	switch reason {
	case RunReasonCreated, "":
		return 2
	case RunReasonRecovery:
		return 1
	default:
		return 0
	}
}
