package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store bundles the repositories of one storage backend.
type Store struct {
	Batches     BatchRepository
	Submissions SubmissionRepository
	Queries     QueryRepository
	ping        func(ctx context.Context) error
}

func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Batches:     NewGormBatchRepo(db),
		Submissions: NewGormSubmissionRepo(db),
		Queries:     NewGormQueryRepo(db),
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("failed to get underlying sql.DB: %w", err)
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// Store exposes the memory repositories through the common bundle.
func (s *MemoryStore) Store() *Store {
	return &Store{
		Batches:     s.Batches(),
		Submissions: s.Submissions(),
		Queries:     s.Queries(),
		ping:        func(context.Context) error { return nil },
	}
}

// Ping reports whether the backing storage is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.ping == nil {
		return fmt.Errorf("store is not initialized")
	}
	return s.ping(ctx)
}
