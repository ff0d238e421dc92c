package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/message"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
	"github.com/kursadbilgin/rndc-gateway/internal/ratelimit"
	"go.uber.org/zap"
)

// Row verdicts reported by a validation job.
const (
	RowFound    = "found"
	RowNotFound = "not_found"
	RowError    = "error"
)

// ValidationRow is one caller record checked against RNDC. Data is echoed back
// untouched; Filters select the record in the query.
type ValidationRow struct {
	Data    map[string]any  `json:"data"`
	Filters []message.Field `json:"filters"`
}

type ValidationInput struct {
	Credentials message.Credentials
	Environment string
	TargetURL   string
	ProcesoID   string
	Role        domain.Role
	Variables   []string
	Rows        []ValidationRow
}

// ValidatedRow is a row annotated with the RNDC verdict.
type ValidatedRow struct {
	Data        map[string]any    `json:"data"`
	RNDCStatus  string            `json:"rndcStatus"`
	RNDCCode    string            `json:"rndcCode"`
	RNDCMessage string            `json:"rndcMessage"`
	RNDCData    map[string]string `json:"rndcData,omitempty"`
}

// ValidationProgress is emitted after each row.
type ValidationProgress struct {
	Progress int `json:"progress"`
	Total    int `json:"total"`
	Current  int `json:"current"`
}

type ValidationService struct {
	provider    provider.Provider
	endpoints   *EndpointResolver
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	pacing      time.Duration
	maxRows     int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewValidationService(
	p provider.Provider,
	endpoints *EndpointResolver,
	rateLimiter ratelimit.RateLimiter,
	pacing time.Duration,
	maxRows int,
	logger *zap.Logger,
) (*ValidationService, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if endpoints == nil {
		endpoints = NewEndpointResolver("", "", nil)
	}
	if pacing < 0 {
		pacing = defaultBatchPacing
	}
	if maxRows <= 0 {
		maxRows = defaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ValidationService{
		provider:    p,
		endpoints:   endpoints,
		rateLimiter: rateLimiter,
		logger:      logger,
		pacing:      pacing,
		maxRows:     maxRows,
		sleep:       sleepWithContext,
	}, nil
}

// ValidationJob is a prepared set of query documents, one per row.
type ValidationJob struct {
	service   *ValidationService
	targetURL string
	rows      []ValidationRow
	documents []string
}

// Prepare validates the input and renders every query up front so that
// invalid requests fail before any event is streamed.
func (s *ValidationService) Prepare(in ValidationInput) (*ValidationJob, error) {
	if len(in.Rows) == 0 {
		return nil, fmt.Errorf("%w: rows is required", domain.ErrValidation)
	}
	if len(in.Rows) > s.maxRows {
		return nil, fmt.Errorf("%w: rows must be <= %d", domain.ErrValidation, s.maxRows)
	}
	if err := message.ValidateCredentials(in.Credentials); err != nil {
		return nil, err
	}
	targetURL, err := s.endpoints.Resolve(in.Environment, in.TargetURL)
	if err != nil {
		return nil, err
	}

	documents := make([]string, 0, len(in.Rows))
	for i, row := range in.Rows {
		q := message.QueryPayload{
			ProcesoID: in.ProcesoID,
			QueryRole: in.Role,
			Variables: in.Variables,
			Filters:   row.Filters,
		}
		if len(row.Filters) == 0 {
			return nil, fmt.Errorf("%w: row %d: filters is required", domain.ErrValidation, i)
		}
		if err := message.Validate(q); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		documents = append(documents, message.Build(q, in.Credentials))
	}

	return &ValidationJob{
		service:   s,
		targetURL: targetURL,
		rows:      in.Rows,
		documents: documents,
	}, nil
}

func (j *ValidationJob) Total() int { return len(j.rows) }

// Run queries RNDC for each row in order, paced like a batch, and calls emit
// after every row. It stops early when ctx is canceled or emit fails and
// returns the rows validated so far.
func (j *ValidationJob) Run(ctx context.Context, emit func(ValidationProgress) error) ([]ValidatedRow, error) {
	s := j.service
	logger := observability.WithContextLogger(s.logger, ctx)
	results := make([]ValidatedRow, 0, len(j.rows))

	for i, row := range j.rows {
		if i > 0 {
			if err := s.sleep(ctx, s.pacing); err != nil {
				return results, err
			}
		}
		if s.rateLimiter != nil {
			if err := s.rateLimiter.Wait(ctx, ratelimit.EndpointKey(j.targetURL)); err != nil {
				if ctx.Err() != nil {
					return results, ctx.Err()
				}
				logger.Warn("rate limiter unavailable, validating without it", zap.Error(err))
			}
		}

		result := sendSafely(ctx, s.provider, j.documents[i], j.targetURL)
		results = append(results, annotateRow(row, result))

		if emit != nil {
			if err := emit(ValidationProgress{Progress: i + 1, Total: len(j.rows), Current: i}); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

func annotateRow(row ValidationRow, result *provider.Result) ValidatedRow {
	validated := ValidatedRow{
		Data:        row.Data,
		RNDCCode:    result.Code,
		RNDCMessage: result.Message,
	}
	switch {
	case !result.Success:
		validated.RNDCStatus = RowError
	case len(result.Documents) == 0:
		validated.RNDCStatus = RowNotFound
	default:
		validated.RNDCStatus = RowFound
		validated.RNDCData = result.Documents[0]
	}
	return validated
}
