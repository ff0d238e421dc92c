package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/message"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/queue"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"go.uber.org/zap"
)

const defaultMaxBatchSize = 1000

// CreateBatchInput is one caller request to submit N records of a kind.
type CreateBatchInput struct {
	Kind          domain.Kind
	Environment   string
	TargetURL     string
	Credentials   message.Credentials
	Items         []message.Payload
	CorrelationID string
}

type BatchService struct {
	batches      repository.BatchRepository
	submissions  repository.SubmissionRepository
	publisher    queue.Publisher
	endpoints    *EndpointResolver
	logger       *zap.Logger
	maxBatchSize int
	now          func() time.Time
	newID        func() string
}

func NewBatchService(
	batches repository.BatchRepository,
	submissions repository.SubmissionRepository,
	publisher queue.Publisher,
	endpoints *EndpointResolver,
	maxBatchSize int,
	logger *zap.Logger,
) (*BatchService, error) {
	if batches == nil || submissions == nil {
		return nil, fmt.Errorf("batch and submission repositories are required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if endpoints == nil {
		endpoints = NewEndpointResolver("", "", nil)
	}
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchService{
		batches:      batches,
		submissions:  submissions,
		publisher:    publisher,
		endpoints:    endpoints,
		logger:       logger,
		maxBatchSize: maxBatchSize,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

// CreateBatch validates and renders every item, persists the batch with its
// pending submissions and hands the run to the queue. It returns before any
// RNDC call is made.
//
// When the run cannot be dispatched the batch is closed with every item in
// error and both the batch and the error are returned.
func (s *BatchService) CreateBatch(ctx context.Context, in CreateBatchInput) (*domain.Batch, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !in.Kind.IsBatchKind() {
		return nil, fmt.Errorf("%w: invalid batch kind %q", domain.ErrValidation, in.Kind)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: items is required", domain.ErrValidation)
	}
	if len(in.Items) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: batch size must be <= %d", domain.ErrValidation, s.maxBatchSize)
	}
	if err := message.ValidateCredentials(in.Credentials); err != nil {
		return nil, err
	}

	targetURL, err := s.endpoints.Resolve(in.Environment, in.TargetURL)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	batch := &domain.Batch{
		ID:           s.newID(),
		Kind:         in.Kind,
		TargetURL:    targetURL,
		TotalRecords: len(in.Items),
		PendingCount: len(in.Items),
		Status:       domain.BatchStatusProcessing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	submissions := make([]*domain.Submission, 0, len(in.Items))
	for i, item := range in.Items {
		sub, err := s.newSubmission(batch, i, item, in.Credentials, now)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, sub)
	}

	if err := s.batches.CreateWithSubmissions(ctx, batch, submissions); err != nil {
		return nil, fmt.Errorf("failed to persist batch: %w", err)
	}

	logger := observability.BatchLogger(s.logger, ctx, batch.ID, batch.Kind.String())
	logger.Info("batch created", zap.Int("totalRecords", batch.TotalRecords), zap.String("targetUrl", targetURL))

	correlationID := strings.TrimSpace(in.CorrelationID)
	if correlationID == "" {
		correlationID, _ = observability.CorrelationIDFromContext(ctx)
	}
	msg := queue.BatchRunMessage{
		BatchID:       batch.ID,
		Kind:          batch.Kind,
		CorrelationID: correlationID,
		Reason:        queue.RunReasonCreated,
	}
	if err := s.publisher.Publish(ctx, queue.QueueName(batch.Kind), msg); err != nil {
		logger.Error("failed to dispatch batch run", zap.Error(err))
		closed := s.closeUndispatched(ctx, batch, submissions, err)
		return closed, fmt.Errorf("failed to dispatch batch run: %w", err)
	}

	return batch, nil
}

func (s *BatchService) newSubmission(
	batch *domain.Batch,
	sequence int,
	item message.Payload,
	creds message.Credentials,
	now time.Time,
) (*domain.Submission, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: item %d is empty", domain.ErrValidation, sequence)
	}
	if item.Kind() != batch.Kind {
		return nil, fmt.Errorf("%w: item %d is %s, want %s", domain.ErrValidation, sequence, item.Kind(), batch.Kind)
	}
	if err := message.Validate(item); err != nil {
		return nil, fmt.Errorf("item %d: %w", sequence, err)
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("%w: item %d cannot be encoded: %v", domain.ErrValidation, sequence, err)
	}

	return &domain.Submission{
		ID:         s.newID(),
		BatchID:    batch.ID,
		Sequence:   sequence,
		Kind:       batch.Kind,
		Reference:  item.Reference(),
		Payload:    string(payload),
		XMLRequest: message.Build(item, creds),
		Status:     domain.SubmissionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// closeUndispatched records a dispatch failure on every submission and
// completes the batch so it never stays processing without a runner.
func (s *BatchService) closeUndispatched(
	ctx context.Context,
	batch *domain.Batch,
	submissions []*domain.Submission,
	cause error,
) *domain.Batch {
	ctx = context.WithoutCancel(ctx)
	logger := observability.BatchLogger(s.logger, ctx, batch.ID, batch.Kind.String())

	var progress domain.Progress
	for _, sub := range submissions {
		progress.Record(domain.SubmissionStatusError)
		if err := s.submissions.MarkProcessing(ctx, sub.ID); err != nil {
			logger.Error("failed to mark undispatched submission processing", zap.String("submissionId", sub.ID), zap.Error(err))
			continue
		}
		outcome := errorOutcome(CodeDispatchError, cause.Error(), s.now().UTC())
		if err := s.submissions.RecordOutcome(ctx, batch.ID, sub.ID, outcome, progress); err != nil {
			logger.Error("failed to record dispatch error", zap.String("submissionId", sub.ID), zap.Error(err))
			continue
		}
		sub.Apply(outcome)
	}

	completedAt := s.now().UTC()
	if err := s.batches.Complete(ctx, batch.ID, progress, completedAt); err != nil && !errors.Is(err, domain.ErrConflict) {
		logger.Error("failed to complete undispatched batch", zap.Error(err))
		return batch
	}
	batch.ApplyProgress(progress)
	batch.Status = domain.BatchStatusCompleted
	batch.CompletedAt = &completedAt
	batch.UpdatedAt = completedAt
	return batch
}

func (s *BatchService) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}
	return s.batches.GetByID(ctx, id)
}

// ListSubmissions returns the per-item detail of an existing batch.
func (s *BatchService) ListSubmissions(ctx context.Context, batchID string) ([]domain.Submission, error) {
	if _, err := s.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	return s.submissions.ListByBatch(ctx, strings.TrimSpace(batchID))
}

func (s *BatchService) ListBatches(ctx context.Context, params repository.BatchListParams) ([]domain.Batch, int64, error) {
	return s.batches.List(ctx, params)
}
