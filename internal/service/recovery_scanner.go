package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/queue"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultRecoveryInterval   = time.Minute
	defaultRecoveryStaleAfter = 10 * time.Minute
	defaultRecoveryScanLimit  = 100
)

// RecoveryScanner periodically re-dispatches processing batches that have made
// no progress for longer than staleAfter, e.g. after a crash with the
// in-process queue. The runner skips terminal submissions, so a recovered run
// only sends what is left.
type RecoveryScanner struct {
	batches    repository.BatchRepository
	publisher  queue.Publisher
	logger     *zap.Logger
	interval   time.Duration
	staleAfter time.Duration
	limit      int
	now        func() time.Time
}

func NewRecoveryScanner(
	batches repository.BatchRepository,
	publisher queue.Publisher,
	interval time.Duration,
	staleAfter time.Duration,
	limit int,
	logger *zap.Logger,
) (*RecoveryScanner, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRecoveryInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultRecoveryStaleAfter
	}
	if limit <= 0 {
		limit = defaultRecoveryScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RecoveryScanner{
		batches:    batches,
		publisher:  publisher,
		logger:     logger,
		interval:   interval,
		staleAfter: staleAfter,
		limit:      limit,
		now:        time.Now,
	}, nil
}

func (s *RecoveryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Batches orphaned by the previous process should not wait for the first tick.
	if _, err := s.scanStale(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("recovery scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.scanStale(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("recovery scanner scan failed", zap.Error(err))
			}
		}
	}
}

// scanStale publishes a recovery run for each stale batch and returns how many were dispatched.
func (s *RecoveryScanner) scanStale(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.staleAfter)
	stale, err := s.batches.ListStale(ctx, cutoff, s.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch stale batches: %w", err)
	}

	dispatched := 0
	for i := range stale {
		batch := stale[i]
		queueName := queue.QueueName(batch.Kind)
		msg := queue.BatchRunMessage{
			BatchID: batch.ID,
			Kind:    batch.Kind,
			Reason:  queue.RunReasonRecovery,
		}
		if err := s.publisher.Publish(ctx, queueName, msg); err != nil {
			s.logger.Error("failed to dispatch recovery run",
				zap.String("batchId", batch.ID),
				zap.String("queue", queueName),
				zap.Error(err),
			)
			continue
		}

		s.logger.Info("recovery run dispatched",
			zap.String("batchId", batch.ID),
			zap.String("kind", batch.Kind.String()),
			zap.Int("pendingCount", batch.PendingCount),
		)
		dispatched++
	}

	return dispatched, nil
}
