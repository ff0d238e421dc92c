package handler

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"github.com/kursadbilgin/rndc-gateway/internal/service"
	"github.com/kursadbilgin/rndc-gateway/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, register func(app *fiber.App) error) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := register(app); err != nil {
		t.Fatalf("register routes error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubBatchService struct {
	createBatchFn     func(ctx context.Context, in service.CreateBatchInput) (*domain.Batch, error)
	getBatchFn        func(ctx context.Context, id string) (*domain.Batch, error)
	listSubmissionsFn func(ctx context.Context, batchID string) ([]domain.Submission, error)
	listBatchesFn     func(ctx context.Context, params repository.BatchListParams) ([]domain.Batch, int64, error)
}

func (s *stubBatchService) CreateBatch(ctx context.Context, in service.CreateBatchInput) (*domain.Batch, error) {
	if s.createBatchFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.createBatchFn(ctx, in)
}

func (s *stubBatchService) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	if s.getBatchFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.getBatchFn(ctx, id)
}

func (s *stubBatchService) ListSubmissions(ctx context.Context, batchID string) ([]domain.Submission, error) {
	if s.listSubmissionsFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.listSubmissionsFn(ctx, batchID)
}

func (s *stubBatchService) ListBatches(ctx context.Context, params repository.BatchListParams) ([]domain.Batch, int64, error) {
	if s.listBatchesFn == nil {
		return nil, 0, errors.New("not implemented")
	}
	return s.listBatchesFn(ctx, params)
}

type stubQueryService struct {
	executeFn func(ctx context.Context, in service.ExecuteQueryInput) (*service.QueryResult, error)
	getFn     func(ctx context.Context, id string) (*domain.Query, error)
}

func (s *stubQueryService) Execute(ctx context.Context, in service.ExecuteQueryInput) (*service.QueryResult, error) {
	if s.executeFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.executeFn(ctx, in)
}

func (s *stubQueryService) Get(ctx context.Context, id string) (*domain.Query, error) {
	if s.getFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.getFn(ctx, id)
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") {
			if h.pingErr != nil {
				cmd.SetErr(h.pingErr)
				return h.pingErr
			}
			cmd.SetErr(nil)
			return nil
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
