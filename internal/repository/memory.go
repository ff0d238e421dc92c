package repository

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

// MemoryStore keeps batches, submissions and queries in process memory with the
// same transition guards as the gorm repositories. Used with STORE_DRIVER=memory
// and in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	batches     map[string]*domain.Batch
	submissions map[string]*domain.Submission
	byBatch     map[string][]string
	queries     map[string]*domain.Query
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:     make(map[string]*domain.Batch),
		submissions: make(map[string]*domain.Submission),
		byBatch:     make(map[string][]string),
		queries:     make(map[string]*domain.Query),
	}
}

func (s *MemoryStore) Batches() *MemoryBatchRepo { return &MemoryBatchRepo{s: s} }
func (s *MemoryStore) Submissions() *MemorySubmissionRepo { return &MemorySubmissionRepo{s: s} }
func (s *MemoryStore) Queries() *MemoryQueryRepo { return &MemoryQueryRepo{s: s} }

type MemoryBatchRepo struct{ s *MemoryStore }

func (r *MemoryBatchRepo) CreateWithSubmissions(_ context.Context, b *domain.Batch, submissions []*domain.Submission) error {
	if b == nil {
		return errors.New("batch is required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.batches[b.ID]; exists {
		return domain.ErrConflict
	}

	now := time.Now().UTC()
	batch := *b
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	if batch.UpdatedAt.IsZero() {
		batch.UpdatedAt = batch.CreatedAt
	}
	r.s.batches[batch.ID] = &batch

	ids := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		if sub == nil {
			continue
		}
		stored := *sub
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		if stored.UpdatedAt.IsZero() {
			stored.UpdatedAt = stored.CreatedAt
		}
		r.s.submissions[stored.ID] = &stored
		ids = append(ids, stored.ID)
	}
	slices.SortStableFunc(ids, func(a, b string) int {
		return r.s.submissions[a].Sequence - r.s.submissions[b].Sequence
	})
	r.s.byBatch[batch.ID] = ids

	return nil
}

func (r *MemoryBatchRepo) GetByID(_ context.Context, id string) (*domain.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *MemoryBatchRepo) List(_ context.Context, params BatchListParams) ([]domain.Batch, int64, error) {
	r.s.mu.RLock()
	matched := make([]domain.Batch, 0, len(r.s.batches))
	for _, b := range r.s.batches {
		if params.Kind != nil && b.Kind != *params.Kind {
			continue
		}
		if params.Status != nil && b.Status != *params.Status {
			continue
		}
		matched = append(matched, *b)
	}
	r.s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Batch) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	total := int64(len(matched))
	page, pageSize := normalizePage(params.Page, params.PageSize)
	start := min((page-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))

	return matched[start:end], total, nil
}

func (r *MemoryBatchRepo) Complete(_ context.Context, id string, p domain.Progress, completedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != domain.BatchStatusProcessing {
		return domain.ErrConflict
	}

	b.ApplyProgress(p)
	b.Status = domain.BatchStatusCompleted
	completed := completedAt
	b.CompletedAt = &completed
	b.UpdatedAt = completedAt
	return nil
}

func (r *MemoryBatchRepo) ListStale(_ context.Context, olderThan time.Time, limit int) ([]domain.Batch, error) {
	r.s.mu.RLock()
	stale := make([]domain.Batch, 0)
	for _, b := range r.s.batches {
		if b.Status == domain.BatchStatusProcessing && !b.UpdatedAt.After(olderThan) {
			stale = append(stale, *b)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(stale, func(a, b domain.Batch) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

type MemorySubmissionRepo struct{ s *MemoryStore }

func (r *MemorySubmissionRepo) ListByBatch(_ context.Context, batchID string) ([]domain.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := r.s.byBatch[batchID]
	out := make([]domain.Submission, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.s.submissions[id])
	}
	return out, nil
}

func (r *MemorySubmissionRepo) MarkProcessing(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.submissions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !sub.Status.CanTransitionTo(domain.SubmissionStatusProcessing) {
		return domain.ErrConflict
	}
	sub.Status = domain.SubmissionStatusProcessing
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemorySubmissionRepo) RecordOutcome(_ context.Context, batchID, id string, o domain.Outcome, p domain.Progress) error {
	if err := o.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.submissions[id]
	if !ok || sub.BatchID != batchID {
		return domain.ErrNotFound
	}
	if sub.Status != domain.SubmissionStatusProcessing {
		return domain.ErrConflict
	}
	b, ok := r.s.batches[batchID]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != domain.BatchStatusProcessing {
		return domain.ErrConflict
	}

	sub.Apply(o)
	b.ApplyProgress(p)
	b.UpdatedAt = o.ProcessedAt
	return nil
}

type MemoryQueryRepo struct{ s *MemoryStore }

func (r *MemoryQueryRepo) Create(_ context.Context, q *domain.Query) error {
	if q == nil {
		return errors.New("query is required")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.queries[q.ID]; exists {
		return domain.ErrConflict
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	stored := *q
	r.s.queries[q.ID] = &stored
	return nil
}

func (r *MemoryQueryRepo) GetByID(_ context.Context, id string) (*domain.Query, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q, ok := r.s.queries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *q
	return &out, nil
}

func (r *MemoryQueryRepo) Complete(_ context.Context, id string, o domain.Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	q, ok := r.s.queries[id]
	if !ok {
		return domain.ErrNotFound
	}
	if q.Status != domain.SubmissionStatusProcessing {
		return domain.ErrConflict
	}
	q.Apply(o)
	return nil
}
