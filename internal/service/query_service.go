package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/message"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"go.uber.org/zap"
)

// ExecuteQueryInput carries either a pre-rendered XML document or a typed
// query payload rendered with Credentials.
type ExecuteQueryInput struct {
	XML         string
	Query       *message.QueryPayload
	Credentials message.Credentials
	Role        domain.Role
	ProcesoID   string
	Environment string
	TargetURL   string
}

// QueryResult is a stored query together with the documents RNDC returned.
type QueryResult struct {
	Query     *domain.Query
	Success   bool
	IngresoID string
	Documents []map[string]string
}

type QueryService struct {
	queries   repository.QueryRepository
	provider  provider.Provider
	endpoints *EndpointResolver
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

func NewQueryService(
	queries repository.QueryRepository,
	p provider.Provider,
	endpoints *EndpointResolver,
	logger *zap.Logger,
) (*QueryService, error) {
	if queries == nil {
		return nil, fmt.Errorf("query repository is required")
	}
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if endpoints == nil {
		endpoints = NewEndpointResolver("", "", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueryService{
		queries:   queries,
		provider:  p,
		endpoints: endpoints,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

func (s *QueryService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Execute sends one ad-hoc query synchronously and stores it with its outcome.
// A classified RNDC failure is a successful call with Success=false.
func (s *QueryService) Execute(ctx context.Context, in ExecuteQueryInput) (*QueryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	q, err := s.prepare(in)
	if err != nil {
		return nil, err
	}

	if err := s.queries.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to persist query: %w", err)
	}

	logger := observability.WithContextLogger(s.logger, ctx).With(zap.String("queryId", q.ID))
	sendCtx := context.WithoutCancel(ctx)
	result := sendSafely(sendCtx, s.provider, q.XMLRequest, q.TargetURL)
	outcome := outcomeFromResult(result, s.now().UTC())

	if err := s.queries.Complete(sendCtx, q.ID, outcome); err != nil {
		logger.Error("failed to store query outcome", zap.Error(err))
		s.metrics.IncQuery(CodeStorageError)
		return nil, fmt.Errorf("failed to store query outcome: %w", err)
	}
	q.Apply(outcome)
	s.metrics.IncQuery(outcome.Status.String())

	logger.Info("query executed",
		zap.String("procesoId", q.ProcesoID),
		zap.String("code", outcome.ResponseCode),
		zap.Int("documents", len(result.Documents)),
	)

	return &QueryResult{
		Query:     q,
		Success:   result.Success,
		IngresoID: result.IngresoID,
		Documents: result.Documents,
	}, nil
}

func (s *QueryService) prepare(in ExecuteQueryInput) (*domain.Query, error) {
	targetURL, err := s.endpoints.Resolve(in.Environment, in.TargetURL)
	if err != nil {
		return nil, err
	}

	q := &domain.Query{
		ID:        s.newID(),
		TargetURL: targetURL,
		Status:    domain.SubmissionStatusProcessing,
		CreatedAt: s.now().UTC(),
	}

	switch {
	case in.Query != nil:
		if err := message.Validate(in.Query); err != nil {
			return nil, err
		}
		if err := message.ValidateCredentials(in.Credentials); err != nil {
			return nil, err
		}
		q.ProcesoID = in.Query.ProcesoID
		q.Role = in.Query.Role()
		q.XMLRequest = message.Build(in.Query, in.Credentials)
	case strings.TrimSpace(in.XML) != "":
		role := in.Role
		if role == "" {
			role = domain.RoleRNDC
		}
		if !role.IsValid() {
			return nil, fmt.Errorf("%w: invalid role %q", domain.ErrValidation, role)
		}
		q.ProcesoID = strings.TrimSpace(in.ProcesoID)
		q.Role = role
		q.XMLRequest = in.XML
	default:
		return nil, fmt.Errorf("%w: either xml or query is required", domain.ErrValidation)
	}

	return q, nil
}

func (s *QueryService) Get(ctx context.Context, id string) (*domain.Query, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: query id is required", domain.ErrValidation)
	}
	q, err := s.queries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: query %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return q, nil
}
