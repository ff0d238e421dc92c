package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/message"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"github.com/kursadbilgin/rndc-gateway/internal/service"
)

type BatchService interface {
	CreateBatch(ctx context.Context, in service.CreateBatchInput) (*domain.Batch, error)
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	ListSubmissions(ctx context.Context, batchID string) ([]domain.Submission, error)
	ListBatches(ctx context.Context, params repository.BatchListParams) ([]domain.Batch, int64, error)
}

type BatchHandler struct {
	service BatchService
}

func NewBatchHandler(service BatchService) (*BatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return &BatchHandler{service: service}, nil
}

func RegisterBatchRoutes(router fiber.Router, service BatchService) error {
	h, err := NewBatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/batches/:kind", h.CreateBatch)
	v1.Get("/batches/:id", h.GetBatch)
	v1.Get("/batches/:id/submissions", h.ListSubmissions)
	v1.Get("/batches", h.ListBatches)

	return nil
}

type createBatchRequest struct {
	CorrelationID string             `json:"correlationId"`
	Environment   string             `json:"environment"`
	TargetURL     string             `json:"targetUrl"`
	Credentials   credentialsRequest `json:"credentials"`
	Items         []json.RawMessage  `json:"items"`
}

type batchResponse struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	TargetURL    string     `json:"targetUrl"`
	Status       string     `json:"status"`
	TotalRecords int        `json:"totalRecords"`
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	PendingCount int        `json:"pendingCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Warning      string     `json:"warning,omitempty"`
}

type submissionResponse struct {
	ID              string          `json:"id"`
	BatchID         string          `json:"batchId"`
	Sequence        int             `json:"sequence"`
	Kind            string          `json:"kind"`
	Reference       string          `json:"reference,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Status          string          `json:"status"`
	ResponseCode    string          `json:"responseCode,omitempty"`
	ResponseMessage string          `json:"responseMessage,omitempty"`
	IngresoID       string          `json:"ingresoId,omitempty"`
	XMLRequest      string          `json:"xmlRequest"`
	XMLResponse     string          `json:"xmlResponse,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	ProcessedAt     *time.Time      `json:"processedAt,omitempty"`
}

type listSubmissionsResponse struct {
	BatchID string               `json:"batchId"`
	Data    []submissionResponse `json:"data"`
}

type listBatchesResponse struct {
	Data []batchResponse `json:"data"`
	Meta listMeta        `json:"meta"`
}

// CreateBatch accepts the batch and returns before any RNDC call is made.
// A batch that could not be dispatched is reported with 503 and is already
// closed with every item in error.
func (h *BatchHandler) CreateBatch(c *fiber.Ctx) error {
	kind, err := domain.ParseKindFromString(c.Params("kind"))
	if err != nil {
		return toHTTPError(err)
	}
	if !kind.IsBatchKind() {
		return toHTTPError(fmt.Errorf("%w: %s is not a batch kind", domain.ErrValidation, kind))
	}

	var req createBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	items := make([]message.Payload, 0, len(req.Items))
	for i, raw := range req.Items {
		item, err := message.Decode(kind, raw)
		if err != nil {
			return toHTTPError(fmt.Errorf("item %d: %w", i, err))
		}
		items = append(items, item)
	}

	correlationID := strings.TrimSpace(req.CorrelationID)
	if correlationID == "" {
		correlationID = requestCorrelationID(c)
	}

	batch, err := h.service.CreateBatch(c.UserContext(), service.CreateBatchInput{
		Kind:          kind,
		Environment:   strings.TrimSpace(req.Environment),
		TargetURL:     strings.TrimSpace(req.TargetURL),
		Credentials:   message.Credentials{Username: req.Credentials.Username, Password: req.Credentials.Password},
		Items:         items,
		CorrelationID: correlationID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || batch == nil {
			return toHTTPError(err)
		}

		resp := toBatchResponse(batch)
		resp.Warning = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}

	return c.Status(fiber.StatusAccepted).JSON(toBatchResponse(batch))
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	batch, err := h.service.GetBatch(c.UserContext(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch))
}

func (h *BatchHandler) ListSubmissions(c *fiber.Ctx) error {
	batchID := strings.TrimSpace(c.Params("id"))
	submissions, err := h.service.ListSubmissions(c.UserContext(), batchID)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]submissionResponse, 0, len(submissions))
	for i := range submissions {
		data = append(data, toSubmissionResponse(&submissions[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listSubmissionsResponse{
		BatchID: batchID,
		Data:    data,
	})
}

func (h *BatchHandler) ListBatches(c *fiber.Ctx) error {
	params, err := parseBatchListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	batches, total, err := h.service.ListBatches(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]batchResponse, 0, len(batches))
	for i := range batches {
		data = append(data, toBatchResponse(&batches[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listBatchesResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseBatchListParams(c *fiber.Ctx) (repository.BatchListParams, error) {
	params := repository.BatchListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.BatchListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.BatchListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawKind := strings.TrimSpace(c.Query("kind")); rawKind != "" {
		kind, err := domain.ParseKindFromString(rawKind)
		if err != nil {
			return repository.BatchListParams{}, err
		}
		params.Kind = &kind
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseBatchStatusFromString(rawStatus)
		if err != nil {
			return repository.BatchListParams{}, err
		}
		params.Status = &status
	}

	return params, nil
}

func toBatchResponse(b *domain.Batch) batchResponse {
	if b == nil {
		return batchResponse{}
	}

	return batchResponse{
		ID:           b.ID,
		Kind:         b.Kind.String(),
		TargetURL:    b.TargetURL,
		Status:       b.Status.String(),
		TotalRecords: b.TotalRecords,
		SuccessCount: b.SuccessCount,
		ErrorCount:   b.ErrorCount,
		PendingCount: b.PendingCount,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		CompletedAt:  b.CompletedAt,
	}
}

func toSubmissionResponse(s *domain.Submission) submissionResponse {
	resp := submissionResponse{
		ID:              s.ID,
		BatchID:         s.BatchID,
		Sequence:        s.Sequence,
		Kind:            s.Kind.String(),
		Reference:       s.Reference,
		Status:          s.Status.String(),
		ResponseCode:    s.ResponseCode,
		ResponseMessage: s.ResponseMessage,
		IngresoID:       optionalString(s.IngresoID),
		XMLRequest:      s.XMLRequest,
		XMLResponse:     optionalString(s.XMLResponse),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		ProcessedAt:     s.ProcessedAt,
	}
	if s.Payload != "" {
		resp.Payload = json.RawMessage(s.Payload)
	}
	return resp
}
