package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantLevel  string
	}{
		{
			name:       "fiber error keeps its code and message",
			err:        fiber.NewError(fiber.StatusNotFound, "batch not found"),
			wantStatus: fiber.StatusNotFound,
			wantError:  "batch not found",
			wantLevel:  "warn",
		},
		{
			name:       "unknown error is hidden behind 500",
			err:        errors.New("pq: connection refused"),
			wantStatus: fiber.StatusInternalServerError,
			wantError:  "internal server error",
			wantLevel:  "error",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.DebugLevel)
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
			app.Get("/fail", func(c *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			var payload map[string]string
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("json unmarshal error = %v", err)
			}
			if payload["error"] != tc.wantError {
				t.Fatalf("error = %q, want %q", payload["error"], tc.wantError)
			}

			entries := logs.All()
			if len(entries) != 1 || entries[0].Level.String() != tc.wantLevel {
				t.Fatalf("log entries = %+v, want one %s entry", entries, tc.wantLevel)
			}
		})
	}
}
