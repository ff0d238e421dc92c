package handler

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/message"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/service"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	eventProgress = "progress"
	eventDone     = "done"
	eventError    = "error"
)

// ValidationJob is a prepared validation run.
type ValidationJob interface {
	Total() int
	Run(ctx context.Context, emit func(service.ValidationProgress) error) ([]service.ValidatedRow, error)
}

type ValidationService interface {
	Prepare(in service.ValidationInput) (ValidationJob, error)
}

// ValidationServiceFunc adapts a prepare function to ValidationService.
type ValidationServiceFunc func(in service.ValidationInput) (ValidationJob, error)

func (f ValidationServiceFunc) Prepare(in service.ValidationInput) (ValidationJob, error) {
	return f(in)
}

// NewValidationServiceAdapter exposes a *service.ValidationService through the
// handler interface.
func NewValidationServiceAdapter(svc *service.ValidationService) ValidationService {
	return ValidationServiceFunc(func(in service.ValidationInput) (ValidationJob, error) {
		job, err := svc.Prepare(in)
		if err != nil {
			return nil, err
		}
		return job, nil
	})
}

type ValidationHandler struct {
	service ValidationService
	logger  *zap.Logger
}

func NewValidationHandler(service ValidationService, logger *zap.Logger) (*ValidationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("validation service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationHandler{service: service, logger: logger}, nil
}

func RegisterValidationRoutes(router fiber.Router, service ValidationService, logger *zap.Logger) error {
	h, err := NewValidationHandler(service, logger)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/validations/stream", h.StreamValidation)

	return nil
}

type validationRowRequest struct {
	Data    map[string]any  `json:"data"`
	Filters []message.Field `json:"filters"`
}

type validationRequest struct {
	Credentials credentialsRequest     `json:"credentials"`
	Environment string                 `json:"environment"`
	TargetURL   string                 `json:"targetUrl"`
	ProcesoID   string                 `json:"procesoId"`
	Role        string                 `json:"role"`
	Variables   []string               `json:"variables"`
	Rows        []validationRowRequest `json:"rows"`
}

type validationDoneEvent struct {
	Done bool                   `json:"done"`
	Rows []service.ValidatedRow `json:"rows"`
}

type validationErrorEvent struct {
	Error string                 `json:"error"`
	Rows  []service.ValidatedRow `json:"rows"`
}

// StreamValidation checks every row against RNDC and streams one progress
// event per row followed by a done event carrying the annotated rows. Input
// errors are answered with a plain JSON error before the stream opens.
func (h *ValidationHandler) StreamValidation(c *fiber.Ctx) error {
	var req validationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	role, err := domain.ParseRoleFromString(req.Role)
	if err != nil {
		return toHTTPError(err)
	}

	rows := make([]service.ValidationRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, service.ValidationRow{Data: row.Data, Filters: row.Filters})
	}

	job, err := h.service.Prepare(service.ValidationInput{
		Credentials: message.Credentials{Username: req.Credentials.Username, Password: req.Credentials.Password},
		Environment: strings.TrimSpace(req.Environment),
		TargetURL:   strings.TrimSpace(req.TargetURL),
		ProcesoID:   strings.TrimSpace(req.ProcesoID),
		Role:        role,
		Variables:   req.Variables,
		Rows:        rows,
	})
	if err != nil {
		return toHTTPError(err)
	}

	// The fiber ctx is released once the handler returns; the stream writer
	// only keeps the detached request context and logger.
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.UserContext()))
	logger := observability.WithContextLogger(h.logger, ctx)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		validated, runErr := job.Run(ctx, func(p service.ValidationProgress) error {
			if err := writeEvent(w, eventProgress, p); err != nil {
				cancel()
				return err
			}
			return nil
		})
		if runErr != nil {
			logger.Warn("validation stream stopped", zap.Int("validated", len(validated)), zap.Int("total", job.Total()), zap.Error(runErr))
			_ = writeEvent(w, eventError, validationErrorEvent{Error: runErr.Error(), Rows: validated})
			return
		}

		if err := writeEvent(w, eventDone, validationDoneEvent{Done: true, Rows: validated}); err != nil {
			logger.Warn("failed to write validation result", zap.Error(err))
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
