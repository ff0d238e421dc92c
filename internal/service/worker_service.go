package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// BatchExecutor runs one batch to completion.
type BatchExecutor interface {
	Run(ctx context.Context, batchID string) error
}

// WorkerService consumes batch run messages and hands each to the runner.
// Every message is processed by exactly one sequential loop; different
// batches run concurrently across workers.
type WorkerService struct {
	consumer    queue.Consumer
	runner      BatchExecutor
	logger      *zap.Logger
	concurrency int
}

func NewWorkerService(
	consumer queue.Consumer,
	runner BatchExecutor,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("batch runner is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:    consumer,
		runner:      runner,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes every batch kind queue until context cancellation. Each queue
// gets at least one consumer.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()
	if len(queueNames) == 0 {
		return fmt.Errorf("no work queues configured")
	}

	workers := s.concurrency
	if workers < len(queueNames) {
		workers = len(queueNames)
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := s.consumer.Consume(groupCtx, queueName, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.BatchRunMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}

	err := s.runner.Run(ctx, msg.BatchID)
	if err == nil {
		return nil
	}

	// A batch that no longer exists cannot be retried; ack and move on.
	if errors.Is(err, domain.ErrNotFound) {
		observability.WithContextLogger(s.logger, ctx).Warn("batch not found, skipping run",
			zap.String("batchId", msg.BatchID),
			zap.String("reason", string(msg.Reason)),
		)
		return nil
	}
	return fmt.Errorf("batch run %s failed: %w", msg.BatchID, err)
}
