package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/observability"
	"github.com/kursadbilgin/rndc-gateway/internal/queue"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	mu    sync.Mutex
	runs  []string
	runFn func(ctx context.Context, batchID string) error
}

func (f *fakeExecutor) Run(ctx context.Context, batchID string) error {
	f.mu.Lock()
	f.runs = append(f.runs, batchID)
	f.mu.Unlock()
	if f.runFn != nil {
		return f.runFn(ctx, batchID)
	}
	return nil
}

func TestNewWorkerServiceValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewWorkerService(nil, &fakeExecutor{}, 1, nil); err == nil {
		t.Fatal("expected error for nil consumer")
	}
	if _, err := NewWorkerService(&fakeConsumer{}, nil, 1, nil); err == nil {
		t.Fatal("expected error for nil runner")
	}
}

func TestWorkerServiceProcessMessage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		runErr  error
		wantErr bool
	}{
		{name: "success acks", runErr: nil},
		{name: "missing batch acks", runErr: domain.ErrNotFound},
		{name: "storage error nacks", runErr: errors.New("db down"), wantErr: true},
		{name: "shutdown nacks", runErr: context.Canceled, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var gotCorrelation string
			executor := &fakeExecutor{
				runFn: func(ctx context.Context, batchID string) error {
					if id, ok := observability.CorrelationIDFromContext(ctx); ok {
						gotCorrelation = id
					}
					return tc.runErr
				},
			}
			worker, err := NewWorkerService(&fakeConsumer{}, executor, 1, zap.NewNop())
			if err != nil {
				t.Fatalf("NewWorkerService() error = %v", err)
			}

			err = worker.processMessage(context.Background(), queue.BatchRunMessage{
				BatchID:       "b1",
				Kind:          domain.KindRemesa,
				CorrelationID: "cid-worker",
			})
			if (err != nil) != tc.wantErr {
				t.Fatalf("processMessage() error = %v, wantErr %v", err, tc.wantErr)
			}
			if gotCorrelation != "cid-worker" {
				t.Fatalf("correlation id = %q, want cid-worker", gotCorrelation)
			}
		})
	}
}

func TestWorkerServiceStartConsumesEveryKindQueue(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	consumed := map[string]int{}
	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			mu.Lock()
			consumed[queueName]++
			mu.Unlock()
			<-ctx.Done()
			return nil
		},
	}

	worker, err := NewWorkerService(consumer, &fakeExecutor{}, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	queues := make([]string, 0, len(consumed))
	for name := range consumed {
		queues = append(queues, name)
	}
	sort.Strings(queues)
	want := queue.WorkQueueNames()
	sort.Strings(want)
	if len(queues) != len(want) {
		t.Fatalf("consumed queues = %v, want %v", queues, want)
	}
	for i := range want {
		if queues[i] != want[i] {
			t.Fatalf("consumed queues = %v, want %v", queues, want)
		}
	}
}

func TestWorkerServiceStartPropagatesConsumerError(t *testing.T) {
	t.Parallel()

	consumer := &fakeConsumer{
		consumeFn: func(ctx context.Context, queueName string, handler queue.MessageHandler) error {
			if queueName == queue.QueueName(domain.KindRemesa) {
				return errors.New("channel closed")
			}
			<-ctx.Done()
			return nil
		},
	}
	worker, err := NewWorkerService(consumer, &fakeExecutor{}, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}

	if err := worker.Start(context.Background()); err == nil {
		t.Fatal("Start() should return the consumer error")
	}
}

// End to end: the in-process broker delivers a created batch to the runner.
func TestWorkerServiceRunsBatchesFromMemoryBroker(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	broker := queue.NewMemoryBroker(8, zap.NewNop())
	defer broker.Close()

	svc := newTestBatchService(t, store, broker)
	fp := &fakeProvider{}
	runner, err := NewBatchRunner(store.Batches(), store.Submissions(), fp, nil, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBatchRunner() error = %v", err)
	}
	worker, err := NewWorkerService(broker, runner, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorkerService() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Start(ctx) }()

	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		Kind:        domain.KindCheckpoint,
		Credentials: testCreds,
		Items:       checkpointItems("AAA111", "BBB222"),
	})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		b, err := store.Batches().GetByID(context.Background(), batch.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if b.IsCompleted() {
			if b.SuccessCount != 2 || b.PendingCount != 0 {
				t.Fatalf("counts = %d/%d/%d, want 2/0/0", b.SuccessCount, b.ErrorCount, b.PendingCount)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("batch was not completed in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}
