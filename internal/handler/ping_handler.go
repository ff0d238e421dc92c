package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
)

type Pinger interface {
	Ping(ctx context.Context, targetURL string) provider.PingResult
}

type EndpointResolver interface {
	Resolve(environment, targetURL string) (string, error)
}

type PingHandler struct {
	pinger    Pinger
	endpoints EndpointResolver
	metrics   *observability.Metrics
}

func NewPingHandler(pinger Pinger, endpoints EndpointResolver, metrics *observability.Metrics) (*PingHandler, error) {
	if pinger == nil {
		return nil, fmt.Errorf("pinger is required")
	}
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint resolver is required")
	}
	return &PingHandler{pinger: pinger, endpoints: endpoints, metrics: metrics}, nil
}

func RegisterPingRoutes(router fiber.Router, pinger Pinger, endpoints EndpointResolver, metrics *observability.Metrics) error {
	h, err := NewPingHandler(pinger, endpoints, metrics)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/rndc/ping", h.Ping)

	return nil
}

// Ping answers 200 with the ping result, including an unreachable endpoint.
func (h *PingHandler) Ping(c *fiber.Ctx) error {
	targetURL, err := h.endpoints.Resolve(strings.TrimSpace(c.Query("environment")), strings.TrimSpace(c.Query("targetUrl")))
	if err != nil {
		return toHTTPError(err)
	}

	result := h.pinger.Ping(c.UserContext(), targetURL)
	h.metrics.IncPing(string(result.Status))
	return c.Status(fiber.StatusOK).JSON(result)
}
