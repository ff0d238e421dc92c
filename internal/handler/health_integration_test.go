package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
	"github.com/kursadbilgin/rndc-gateway/internal/service"
)

func TestHealthIntegration_LivezAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, func(app *fiber.App) error {
			RegisterHealthRoutes(app)
			return nil
		})

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := newTestApp(t, func(app *fiber.App) error {
			RegisterHealthRoutes(app,
				ReadinessCheck{Name: "store", Ping: sqlDB.PingContext},
				ReadinessCheck{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
			)
			return nil
		})

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when a dependency is down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(errors.New("redis down"))
		t.Cleanup(func() { _ = rdb.Close() })

		app := newTestApp(t, func(app *fiber.App) error {
			RegisterHealthRoutes(app,
				ReadinessCheck{Name: "store", Ping: sqlDB.PingContext},
				ReadinessCheck{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
			)
			return nil
		})

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}

		var payload struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("json unmarshal error = %v", err)
		}
		if payload.Status != "not_ready" || payload.Checks["store"] != "ok" || payload.Checks["redis"] != "down" {
			t.Fatalf("payload = %+v", payload)
		}
	})
}

type stubPinger struct {
	targets []string
	status  provider.PingStatus
}

func (p *stubPinger) Ping(ctx context.Context, targetURL string) provider.PingResult {
	p.targets = append(p.targets, targetURL)
	return provider.PingResult{URL: targetURL, Status: p.status, LatencyMS: 12, CheckedAt: time.Unix(1_700_000_000, 0).UTC()}
}

func TestPingIntegration_ResolvesEndpointAndCountsStatus(t *testing.T) {
	t.Parallel()

	pinger := &stubPinger{status: provider.PingOffline}
	metrics := observability.NewMetrics()
	resolver := service.NewEndpointResolver("http://rndc.example.gov.co/soap", "http://plc.example.gov.co/soap", []string{"rndc.example.gov.co"})
	app := newTestApp(t, func(app *fiber.App) error { return RegisterPingRoutes(app, pinger, resolver, metrics) })

	resp, body := performRequest(t, app, http.MethodGet, "/v1/rndc/ping?environment=test", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	var result provider.PingResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if result.Status != provider.PingOffline || result.URL != "http://plc.example.gov.co/soap" {
		t.Fatalf("result = %+v", result)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/rndc/ping?targetUrl=http://evil.example.com/soap", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for host outside the allowlist", resp.StatusCode)
	}

	if len(pinger.targets) != 1 {
		t.Fatalf("pings = %v, want 1", pinger.targets)
	}
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `rndc_gateway_pings_total{status="offline"} 1`) {
		t.Fatalf("metrics output missing offline ping counter")
	}
}

func TestPingHandlerRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewPingHandler(nil, service.NewEndpointResolver("", "", nil), nil); err == nil {
		t.Fatal("expected error for nil pinger")
	}
	if _, err := NewPingHandler(&stubPinger{}, nil, nil); err == nil {
		t.Fatal("expected error for nil resolver")
	}
	if _, err := NewBatchHandler(nil); err == nil {
		t.Fatal("expected error for nil batch service")
	}
	if _, err := NewQueryHandler(nil); err == nil {
		t.Fatal("expected error for nil query service")
	}
	if _, err := NewValidationHandler(nil, nil); err == nil {
		t.Fatal("expected error for nil validation service")
	}
}
