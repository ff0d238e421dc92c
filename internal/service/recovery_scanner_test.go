package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/queue"
	"github.com/kursadbilgin/rndc-gateway/internal/repository"
	"go.uber.org/zap"
)

func TestNewRecoveryScannerValidation(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	if _, err := NewRecoveryScanner(nil, &fakePublisher{}, 0, 0, 0, nil); err == nil {
		t.Fatal("expected error for nil batch repository")
	}
	if _, err := NewRecoveryScanner(store.Batches(), nil, 0, 0, 0, nil); err == nil {
		t.Fatal("expected error for nil publisher")
	}

	scanner, err := NewRecoveryScanner(store.Batches(), &fakePublisher{}, 0, 0, 0, nil)
	if err != nil {
		t.Fatalf("NewRecoveryScanner() error = %v", err)
	}
	if scanner.interval != defaultRecoveryInterval || scanner.staleAfter != defaultRecoveryStaleAfter || scanner.limit != defaultRecoveryScanLimit {
		t.Fatalf("defaults = %v/%v/%d", scanner.interval, scanner.staleAfter, scanner.limit)
	}
}

func TestRecoveryScannerRedispatchesStaleBatches(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	svc := newTestBatchService(t, store, &fakePublisher{})
	created := time.Unix(1_700_000_000, 0).UTC()

	stale, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		Kind:        domain.KindCheckpoint,
		Credentials: testCreds,
		Items:       checkpointItems("AAA111"),
	})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	svc.now = func() time.Time { return created.Add(30 * time.Minute) }
	fresh, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		Kind:        domain.KindCheckpoint,
		Credentials: testCreds,
		Items:       checkpointItems("BBB222"),
	})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}

	pub := &fakePublisher{}
	scanner, err := NewRecoveryScanner(store.Batches(), pub, time.Minute, 10*time.Minute, 10, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRecoveryScanner() error = %v", err)
	}
	scanner.now = func() time.Time { return created.Add(35 * time.Minute) }

	dispatched, err := scanner.scanStale(context.Background())
	if err != nil {
		t.Fatalf("scanStale() error = %v", err)
	}
	if dispatched != 1 || len(pub.published) != 1 {
		t.Fatalf("dispatched = %d, published = %d, want 1", dispatched, len(pub.published))
	}
	msg := pub.published[0]
	if msg.BatchID != stale.ID || msg.Reason != queue.RunReasonRecovery {
		t.Fatalf("published = %+v, want recovery of %s (fresh %s must be skipped)", msg, stale.ID, fresh.ID)
	}
}

func TestRecoveryScannerContinuesAfterPublishFailure(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	svc := newTestBatchService(t, store, &fakePublisher{})
	for _, plate := range []string{"AAA111", "BBB222"} {
		if _, err := svc.CreateBatch(context.Background(), CreateBatchInput{
			Kind:        domain.KindCheckpoint,
			Credentials: testCreds,
			Items:       checkpointItems(plate),
		}); err != nil {
			t.Fatalf("CreateBatch() error = %v", err)
		}
	}

	calls := 0
	pub := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.BatchRunMessage) error {
			calls++
			if calls == 1 {
				return errors.New("broker unavailable")
			}
			return nil
		},
	}
	scanner, err := NewRecoveryScanner(store.Batches(), pub, time.Minute, time.Minute, 10, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRecoveryScanner() error = %v", err)
	}
	scanner.now = func() time.Time { return time.Unix(1_700_000_000, 0).Add(time.Hour) }

	dispatched, err := scanner.scanStale(context.Background())
	if err != nil {
		t.Fatalf("scanStale() error = %v", err)
	}
	if calls != 2 || dispatched != 1 {
		t.Fatalf("publish calls = %d, dispatched = %d, want 2 and 1", calls, dispatched)
	}
}

func TestRecoveryScannerStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	scanner, err := NewRecoveryScanner(store.Batches(), &fakePublisher{}, 10*time.Millisecond, time.Minute, 10, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRecoveryScanner() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := scanner.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}
