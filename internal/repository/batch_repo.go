package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"gorm.io/gorm"
)

type BatchListParams struct {
	Kind     *domain.Kind
	Status   *domain.BatchStatus
	Page     int
	PageSize int
}

type BatchRepository interface {
	// CreateWithSubmissions persists a batch and all of its pending submissions atomically.
	CreateWithSubmissions(ctx context.Context, b *domain.Batch, submissions []*domain.Submission) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context, params BatchListParams) ([]domain.Batch, int64, error)
	// Complete closes a processing batch with its final tallies. A batch that is
	// already completed yields ErrConflict and is left untouched.
	Complete(ctx context.Context, id string, p domain.Progress, completedAt time.Time) error
	// ListStale returns processing batches not updated since olderThan.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]domain.Batch, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) CreateWithSubmissions(ctx context.Context, b *domain.Batch, submissions []*domain.Submission) error {
	batchModel := batchModelFromDomain(b)
	if batchModel == nil {
		return errors.New("batch is required")
	}

	models := make([]SubmissionModel, 0, len(submissions))
	for _, s := range submissions {
		if model := submissionModelFromDomain(s); model != nil {
			models = append(models, *model)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batchModel).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(&models, 100).Error
	})
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	var model BatchModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchModelToDomain(&model), nil
}

func (r *GormBatchRepo) List(ctx context.Context, params BatchListParams) ([]domain.Batch, int64, error) {
	query := r.db.WithContext(ctx).Model(&BatchModel{})

	if params.Kind != nil {
		query = query.Where("kind = ?", *params.Kind)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(params.Page, params.PageSize)

	var models []BatchModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	batches := make([]domain.Batch, 0, len(models))
	for i := range models {
		batches = append(batches, *batchModelToDomain(&models[i]))
	}

	return batches, total, nil
}

func (r *GormBatchRepo) Complete(ctx context.Context, id string, p domain.Progress, completedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&BatchModel{}).
		Where("id = ? AND status = ?", id, domain.BatchStatusProcessing).
		Updates(map[string]any{
			"status":        domain.BatchStatusCompleted,
			"success_count": p.SuccessCount,
			"error_count":   p.ErrorCount,
			"pending_count": gorm.Expr("GREATEST(total_records - ? - ?, 0)", p.SuccessCount, p.ErrorCount),
			"completed_at":  completedAt,
			"updated_at":    completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return missingOrConflict(r.db.WithContext(ctx), &BatchModel{}, id)
	}
	return nil
}

func (r *GormBatchRepo) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]domain.Batch, error) {
	var models []BatchModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at <= ?", domain.BatchStatusProcessing, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	batches := make([]domain.Batch, 0, len(models))
	for i := range models {
		batches = append(batches, *batchModelToDomain(&models[i]))
	}

	return batches, nil
}

func normalizePage(page, pageSize int) (int, int) {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 50
	}
	return page, min(pageSize, 100)
}
