package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value, ok := observability.CorrelationIDFromContext(c.UserContext()); ok {
		return value
	}
	if value := strings.TrimSpace(c.Get(observability.HeaderCorrelationID)); value != "" {
		return value
	}
	return strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQueueFull):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
