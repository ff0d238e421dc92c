package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
	"github.com/kursadbilgin/rndc-gateway/internal/ratelimit"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"go.uber.org/zap"
)

const defaultBatchPacing = 500 * time.Millisecond

// BatchRunner drives the submissions of one batch through the provider, one at
// a time, in creation order.
type BatchRunner struct {
	batches     repository.BatchRepository
	submissions repository.SubmissionRepository
	provider    provider.Provider
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	pacing      time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	active map[string]struct{}
}

func NewBatchRunner(
	batches repository.BatchRepository,
	submissions repository.SubmissionRepository,
	p provider.Provider,
	rateLimiter ratelimit.RateLimiter,
	pacing time.Duration,
	logger *zap.Logger,
) (*BatchRunner, error) {
	if batches == nil || submissions == nil {
		return nil, fmt.Errorf("batch and submission repositories are required")
	}
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if pacing < 0 {
		pacing = defaultBatchPacing
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchRunner{
		batches:     batches,
		submissions: submissions,
		provider:    p,
		rateLimiter: rateLimiter,
		logger:      logger,
		pacing:      pacing,
		now:         time.Now,
		sleep:       sleepWithContext,
		active:      make(map[string]struct{}),
	}, nil
}

func (r *BatchRunner) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Run processes every non-terminal submission of a batch and completes it.
//
// Submissions already in a terminal state are skipped so a redelivered or
// recovered run never resends them. A canceled context stops the loop between
// items and leaves the batch processing; the send in flight is allowed to finish.
func (r *BatchRunner) Run(ctx context.Context, batchID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !r.acquire(batchID) {
		r.logger.Info("batch already running in this process, skipping", zap.String("batchId", batchID))
		return nil
	}
	defer r.release(batchID)

	batch, err := r.batches.GetByID(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}
	if batch.IsCompleted() {
		return nil
	}

	logger := observability.BatchLogger(r.logger, ctx, batch.ID, batch.Kind.String())
	kind := batch.Kind.String()
	r.metrics.IncBatchInFlight(kind)
	defer r.metrics.DecBatchInFlight(kind)

	submissions, err := r.submissions.ListByBatch(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}

	var progress domain.Progress
	for i := range submissions {
		progress.Record(submissions[i].Status)
	}
	if progress.SuccessCount+progress.ErrorCount > 0 {
		logger.Info("resuming batch",
			zap.Int("successCount", progress.SuccessCount),
			zap.Int("errorCount", progress.ErrorCount),
		)
	}

	sent := 0
	for i := range submissions {
		sub := &submissions[i]
		if sub.Status.IsTerminal() {
			continue
		}

		if sent > 0 {
			if err := r.sleep(ctx, r.pacing); err != nil {
				logger.Info("batch run interrupted", zap.Int("pendingCount", progress.Pending(batch.TotalRecords)))
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			logger.Info("batch run interrupted", zap.Int("pendingCount", progress.Pending(batch.TotalRecords)))
			return err
		}
		sent++

		next, err := r.processSubmission(ctx, logger, batch, sub, progress)
		if err != nil {
			logger.Info("batch run interrupted", zap.Int("pendingCount", progress.Pending(batch.TotalRecords)))
			return err
		}
		progress = next
	}

	return r.complete(ctx, logger, batch, progress)
}

// processSubmission resolves one submission and returns the updated tally.
// Storage failures are logged and the item counts as an error. It returns an
// error only when ctx is canceled while waiting for the rate limiter, before
// anything was sent.
func (r *BatchRunner) processSubmission(
	ctx context.Context,
	logger *zap.Logger,
	batch *domain.Batch,
	sub *domain.Submission,
	progress domain.Progress,
) (domain.Progress, error) {
	logger = logger.With(zap.String("submissionId", sub.ID), zap.Int("sequence", sub.Sequence))
	kind := batch.Kind.String()

	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx, ratelimit.EndpointKey(batch.TargetURL)); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return progress, ctxErr
			}
			logger.Warn("rate limiter unavailable, sending without it", zap.Error(err))
		}
	}

	// The rest of the item runs to completion even if the caller cancels.
	itemCtx := context.WithoutCancel(ctx)

	if err := r.submissions.MarkProcessing(itemCtx, sub.ID); err != nil {
		logger.Error("failed to mark submission processing", zap.Error(err))
		return r.recordStorageError(itemCtx, logger, batch, sub, progress, fmt.Sprintf("failed to mark submission processing: %v", err), true), nil
	}

	start := r.now()
	result := sendSafely(itemCtx, r.provider, sub.XMLRequest, batch.TargetURL)
	r.metrics.ObserveSendDuration(kind, r.now().Sub(start))

	outcome := outcomeFromResult(result, r.now().UTC())
	next := progress
	next.Record(outcome.Status)

	if err := r.submissions.RecordOutcome(itemCtx, batch.ID, sub.ID, outcome, next); err != nil {
		logger.Error("failed to record submission outcome", zap.String("code", outcome.ResponseCode), zap.Error(err))
		return r.recordStorageError(itemCtx, logger, batch, sub, progress, fmt.Sprintf("failed to record outcome %s: %v", outcome.ResponseCode, err), false), nil
	}

	if outcome.Status == domain.SubmissionStatusError {
		logger.Warn("submission rejected",
			zap.String("code", outcome.ResponseCode),
			zap.String("message", outcome.ResponseMessage),
		)
	} else {
		logger.Debug("submission accepted", zap.String("code", outcome.ResponseCode), zap.String("ingresoId", outcome.IngresoID))
	}
	r.metrics.IncSubmissionProcessed(kind, outcome.Status.String())
	sub.Apply(outcome)
	return next, nil
}

// recordStorageError counts the item as an error and makes one attempt to
// persist a STORAGE_ERROR outcome so the row agrees with the batch counters.
// remark retries the processing transition first, since outcomes are only
// accepted for processing rows.
func (r *BatchRunner) recordStorageError(
	ctx context.Context,
	logger *zap.Logger,
	batch *domain.Batch,
	sub *domain.Submission,
	progress domain.Progress,
	cause string,
	remark bool,
) domain.Progress {
	progress.Record(domain.SubmissionStatusError)
	r.metrics.IncSubmissionProcessed(batch.Kind.String(), CodeStorageError)

	if remark {
		if err := r.submissions.MarkProcessing(ctx, sub.ID); err != nil {
			logger.Error("failed to mark submission processing on retry", zap.Error(err))
			return progress
		}
	}

	fallback := errorOutcome(CodeStorageError, cause, r.now().UTC())
	if err := r.submissions.RecordOutcome(ctx, batch.ID, sub.ID, fallback, progress); err != nil {
		logger.Error("failed to record storage error outcome", zap.Error(err))
		return progress
	}
	sub.Apply(fallback)
	return progress
}

// complete always runs on a context detached from cancellation so a batch
// whose loop finished is never left processing.
func (r *BatchRunner) complete(ctx context.Context, logger *zap.Logger, batch *domain.Batch, progress domain.Progress) error {
	err := r.batches.Complete(context.WithoutCancel(ctx), batch.ID, progress, r.now().UTC())
	if errors.Is(err, domain.ErrConflict) {
		return nil
	}
	if err != nil {
		logger.Error("failed to complete batch", zap.Error(err))
		return fmt.Errorf("failed to complete batch: %w", err)
	}

	r.metrics.IncBatchCompleted(batch.Kind.String())
	logger.Info("batch completed",
		zap.Int("totalRecords", batch.TotalRecords),
		zap.Int("successCount", progress.SuccessCount),
		zap.Int("errorCount", progress.ErrorCount),
	)
	return nil
}

func (r *BatchRunner) acquire(batchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[batchID]; ok {
		return false
	}
	r.active[batchID] = struct{}{}
	return true
}

func (r *BatchRunner) release(batchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, batchID)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
