package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/message"
	"github.com/kursadbilgin/rndc-gateway/internal/service"
)

type QueryService interface {
	Execute(ctx context.Context, in service.ExecuteQueryInput) (*service.QueryResult, error)
	Get(ctx context.Context, id string) (*domain.Query, error)
}

type QueryHandler struct {
	service QueryService
}

func NewQueryHandler(service QueryService) (*QueryHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("query service is required")
	}
	return &QueryHandler{service: service}, nil
}

func RegisterQueryRoutes(router fiber.Router, service QueryService) error {
	h, err := NewQueryHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/queries", h.ExecuteQuery)
	v1.Get("/queries/:id", h.GetQuery)

	return nil
}

type executeQueryRequest struct {
	XML         string                `json:"xml"`
	Role        string                `json:"role"`
	ProcesoID   string                `json:"procesoId"`
	Query       *message.QueryPayload `json:"query"`
	Credentials credentialsRequest    `json:"credentials"`
	Environment string                `json:"environment"`
	TargetURL   string                `json:"targetUrl"`
}

type queryResponse struct {
	ID              string              `json:"id"`
	ProcesoID       string              `json:"procesoId,omitempty"`
	Role            string              `json:"role"`
	TargetURL       string              `json:"targetUrl"`
	Status          string              `json:"status"`
	Success         *bool               `json:"success,omitempty"`
	ResponseCode    string              `json:"responseCode,omitempty"`
	ResponseMessage string              `json:"responseMessage,omitempty"`
	IngresoID       string              `json:"ingresoId,omitempty"`
	Documents       []map[string]string `json:"documents,omitempty"`
	XMLRequest      string              `json:"xmlRequest"`
	XMLResponse     string              `json:"xmlResponse,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	ProcessedAt     *time.Time          `json:"processedAt,omitempty"`
}

// ExecuteQuery answers 200 for every call RNDC answered, including rejections;
// success reports whether RNDC accepted the query.
func (h *QueryHandler) ExecuteQuery(c *fiber.Ctx) error {
	var req executeQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	in := service.ExecuteQueryInput{
		XML:         req.XML,
		Query:       req.Query,
		Credentials: message.Credentials{Username: req.Credentials.Username, Password: req.Credentials.Password},
		ProcesoID:   req.ProcesoID,
		Environment: strings.TrimSpace(req.Environment),
		TargetURL:   strings.TrimSpace(req.TargetURL),
	}
	if rawRole := strings.TrimSpace(req.Role); rawRole != "" {
		role, err := domain.ParseRoleFromString(rawRole)
		if err != nil {
			return toHTTPError(err)
		}
		in.Role = role
	}

	result, err := h.service.Execute(c.UserContext(), in)
	if err != nil {
		return toHTTPError(err)
	}

	resp := toQueryResponse(result.Query)
	success := result.Success
	resp.Success = &success
	resp.IngresoID = result.IngresoID
	resp.Documents = result.Documents
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *QueryHandler) GetQuery(c *fiber.Ctx) error {
	q, err := h.service.Get(c.UserContext(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toQueryResponse(q))
}

func toQueryResponse(q *domain.Query) queryResponse {
	if q == nil {
		return queryResponse{}
	}

	return queryResponse{
		ID:              q.ID,
		ProcesoID:       q.ProcesoID,
		Role:            q.Role.String(),
		TargetURL:       q.TargetURL,
		Status:          q.Status.String(),
		ResponseCode:    q.ResponseCode,
		ResponseMessage: q.ResponseMessage,
		XMLRequest:      q.XMLRequest,
		XMLResponse:     optionalString(q.XMLResponse),
		CreatedAt:       q.CreatedAt,
		ProcessedAt:     q.ProcessedAt,
	}
}
