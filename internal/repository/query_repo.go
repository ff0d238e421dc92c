package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"gorm.io/gorm"
)

type QueryRepository interface {
	Create(ctx context.Context, q *domain.Query) error
	GetByID(ctx context.Context, id string) (*domain.Query, error)
	// Complete stores the outcome of a processing query exactly once.
	Complete(ctx context.Context, id string, o domain.Outcome) error
}

type GormQueryRepo struct {
	db *gorm.DB
}

func NewGormQueryRepo(db *gorm.DB) *GormQueryRepo {
	return &GormQueryRepo{db: db}
}

func (r *GormQueryRepo) Create(ctx context.Context, q *domain.Query) error {
	model := queryModelFromDomain(q)
	if model == nil {
		return errors.New("query is required")
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*q = *queryModelToDomain(model)
	return nil
}

func (r *GormQueryRepo) GetByID(ctx context.Context, id string) (*domain.Query, error) {
	var model QueryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return queryModelToDomain(&model), nil
}

func (r *GormQueryRepo) Complete(ctx context.Context, id string, o domain.Outcome) error {
	if err := o.Validate(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&QueryModel{}).
		Where("id = ? AND status = ?", id, domain.SubmissionStatusProcessing).
		Updates(map[string]any{
			"status":           o.Status,
			"response_code":    o.ResponseCode,
			"response_message": o.ResponseMessage,
			"xml_response":     o.XMLResponse,
			"processed_at":     o.ProcessedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return missingOrConflict(r.db.WithContext(ctx), &QueryModel{}, id)
	}
	return nil
}
