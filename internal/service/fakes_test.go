package service

import (
	"context"
	"strings"
	"sync"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/message"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
	"github.com/kursadbilgin/rndc-gateway/internal/queue"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
)

var testCreds = message.Credentials{Username: "gps-user", Password: "s3cret"}

func checkpointItem(plate string) message.CheckpointPayload {
	return message.CheckpointPayload{
		NumIDGPS:            "900111222",
		IngresoIDManifiesto: "12345",
		NumPlaca:            plate,
		CodPuntoControl:     "1",
		Latitud:             "4.7110",
		Longitud:            "-74.0721",
		FechaLlegada:        "14/10/2026",
		HoraLlegada:         "08:30",
	}
}

func checkpointItems(plates ...string) []message.Payload {
	items := make([]message.Payload, 0, len(plates))
	for _, plate := range plates {
		items = append(items, checkpointItem(plate))
	}
	return items
}

func okResult(ingresoID string) *provider.Result {
	return &provider.Result{
		Success:   true,
		Code:      "00",
		Message:   "ok",
		RawXML:    "<respuesta><codigo>00</codigo></respuesta>",
		IngresoID: ingresoID,
	}
}

func rejectedResult(msg string) *provider.Result {
	return &provider.Result{
		Success: false,
		Code:    provider.CodeRNDCError,
		Message: msg,
		RawXML:  "<root><ErrorMSG>" + msg + "</ErrorMSG></root>",
	}
}

// plateOf extracts the numplaca value from a rendered checkpoint document.
func plateOf(document string) string {
	_, rest, ok := strings.Cut(document, "<numplaca>")
	if !ok {
		return ""
	}
	plate, _, _ := strings.Cut(rest, "</numplaca>")
	return plate
}

type fakeProvider struct {
	mu     sync.Mutex
	calls  []string
	sendFn func(ctx context.Context, document, targetURL string) (*provider.Result, error)
}

func (f *fakeProvider) Send(ctx context.Context, document, targetURL string) (*provider.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, plateOf(document))
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, document, targetURL)
	}
	return okResult(""), nil
}

func (f *fakeProvider) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []queue.BatchRunMessage
	queues    []string
	publishFn func(ctx context.Context, queueName string, msg queue.BatchRunMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.BatchRunMessage) error {
	if f.publishFn != nil {
		if err := f.publishFn(ctx, queueName, msg); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	f.queues = append(f.queues, queueName)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeRateLimiter struct {
	mu     sync.Mutex
	keys   []string
	waitFn func(ctx context.Context, endpoint string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, endpoint string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, endpoint string) error {
	f.mu.Lock()
	f.keys = append(f.keys, endpoint)
	f.mu.Unlock()
	if f.waitFn != nil {
		return f.waitFn(ctx, endpoint)
	}
	return nil
}

// flakySubmissionRepo wraps a real repository and lets a test fail single calls.
type flakySubmissionRepo struct {
	repository.SubmissionRepository
	markProcessingFn func(ctx context.Context, id string) error
	recordOutcomeFn  func(ctx context.Context, batchID, id string, o domain.Outcome, p domain.Progress) error
}

func (f *flakySubmissionRepo) MarkProcessing(ctx context.Context, id string) error {
	if f.markProcessingFn != nil {
		if err := f.markProcessingFn(ctx, id); err != nil {
			return err
		}
	}
	return f.SubmissionRepository.MarkProcessing(ctx, id)
}

func (f *flakySubmissionRepo) RecordOutcome(ctx context.Context, batchID, id string, o domain.Outcome, p domain.Progress) error {
	if f.recordOutcomeFn != nil {
		if err := f.recordOutcomeFn(ctx, batchID, id, o, p); err != nil {
			return err
		}
	}
	return f.SubmissionRepository.RecordOutcome(ctx, batchID, id, o, p)
}
