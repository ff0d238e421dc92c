package repository

import (
	"context"
	"strings"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"gorm.io/gorm"
)

type SubmissionRepository interface {
	// ListByBatch returns every submission of a batch in creation order.
	ListByBatch(ctx context.Context, batchID string) ([]domain.Submission, error)
	// MarkProcessing moves a pending (or resumed processing) submission to processing.
	// Terminal submissions yield ErrConflict.
	MarkProcessing(ctx context.Context, id string) error
	// RecordOutcome stores the terminal outcome of a processing submission together
	// with the owning batch's tallies in one transaction.
	RecordOutcome(ctx context.Context, batchID, id string, o domain.Outcome, p domain.Progress) error
}

type GormSubmissionRepo struct {
	db *gorm.DB
}

func NewGormSubmissionRepo(db *gorm.DB) *GormSubmissionRepo {
	return &GormSubmissionRepo{db: db}
}

func (r *GormSubmissionRepo) ListByBatch(ctx context.Context, batchID string) ([]domain.Submission, error) {
	var models []SubmissionModel
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("sequence ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	submissions := make([]domain.Submission, 0, len(models))
	for i := range models {
		submissions = append(submissions, *submissionModelToDomain(&models[i]))
	}

	return submissions, nil
}

func (r *GormSubmissionRepo) MarkProcessing(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&SubmissionModel{}).
		Where("id = ? AND status IN ?", id, []domain.SubmissionStatus{domain.SubmissionStatusPending, domain.SubmissionStatusProcessing}).
		Updates(map[string]any{
			"status":     domain.SubmissionStatusProcessing,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return missingOrConflict(r.db.WithContext(ctx), &SubmissionModel{}, id)
	}
	return nil
}

func (r *GormSubmissionRepo) RecordOutcome(ctx context.Context, batchID, id string, o domain.Outcome, p domain.Progress) error {
	if err := o.Validate(); err != nil {
		return err
	}

	updates := map[string]any{
		"status":           o.Status,
		"response_code":    o.ResponseCode,
		"response_message": o.ResponseMessage,
		"xml_response":     o.XMLResponse,
		"processed_at":     o.ProcessedAt,
		"updated_at":       o.ProcessedAt,
	}
	if ingresoID := strings.TrimSpace(o.IngresoID); ingresoID != "" {
		updates["ingreso_id"] = ingresoID
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&SubmissionModel{}).
			Where("id = ? AND batch_id = ? AND status = ?", id, batchID, domain.SubmissionStatusProcessing).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missingOrConflict(tx, &SubmissionModel{}, id)
		}

		result = tx.Model(&BatchModel{}).
			Where("id = ? AND status = ?", batchID, domain.BatchStatusProcessing).
			Updates(map[string]any{
				"success_count": p.SuccessCount,
				"error_count":   p.ErrorCount,
				"pending_count": gorm.Expr("GREATEST(total_records - ? - ?, 0)", p.SuccessCount, p.ErrorCount),
				"updated_at":    o.ProcessedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return missingOrConflict(tx, &BatchModel{}, batchID)
		}
		return nil
	})
}

func missingOrConflict(db *gorm.DB, model any, id string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}
