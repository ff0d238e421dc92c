package repository

import (
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

// BatchModel is the persistence model for the rndc_batches table.
type BatchModel struct {
	ID           string             `gorm:"type:uuid;primaryKey"`
	Kind         domain.Kind        `gorm:"type:varchar(32);not null"`
	TargetURL    string             `gorm:"type:text;not null"`
	TotalRecords int                `gorm:"not null"`
	SuccessCount int                `gorm:"not null"`
	ErrorCount   int                `gorm:"not null"`
	PendingCount int                `gorm:"not null"`
	Status       domain.BatchStatus `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func (BatchModel) TableName() string {
	return "rndc_batches"
}

// SubmissionModel is the persistence model for the rndc_submissions table.
type SubmissionModel struct {
	ID              string                  `gorm:"type:uuid;primaryKey"`
	BatchID         string                  `gorm:"type:uuid;not null"`
	Sequence        int                     `gorm:"not null"`
	Kind            domain.Kind             `gorm:"type:varchar(32);not null"`
	Reference       string                  `gorm:"type:varchar(64);not null"`
	Payload         string                  `gorm:"type:text;not null"`
	XMLRequest      string                  `gorm:"column:xml_request;type:text;not null"`
	Status          domain.SubmissionStatus `gorm:"type:varchar(20);not null"`
	ResponseCode    string                  `gorm:"type:varchar(32);not null"`
	ResponseMessage string                  `gorm:"type:text;not null"`
	XMLResponse     *string                 `gorm:"column:xml_response;type:text"`
	IngresoID       *string                 `gorm:"type:varchar(32)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProcessedAt     *time.Time
}

func (SubmissionModel) TableName() string {
	return "rndc_submissions"
}

// QueryModel is the persistence model for the rndc_queries table.
type QueryModel struct {
	ID              string                  `gorm:"type:uuid;primaryKey"`
	ProcesoID       string                  `gorm:"type:varchar(16);not null"`
	Role            domain.Role             `gorm:"type:varchar(8);not null"`
	TargetURL       string                  `gorm:"type:text;not null"`
	XMLRequest      string                  `gorm:"column:xml_request;type:text;not null"`
	Status          domain.SubmissionStatus `gorm:"type:varchar(20);not null"`
	ResponseCode    string                  `gorm:"type:varchar(32);not null"`
	ResponseMessage string                  `gorm:"type:text;not null"`
	XMLResponse     *string                 `gorm:"column:xml_response;type:text"`
	CreatedAt       time.Time
	ProcessedAt     *time.Time
}

func (QueryModel) TableName() string {
	return "rndc_queries"
}

func batchModelFromDomain(b *domain.Batch) *BatchModel {
	if b == nil {
		return nil
	}

	return &BatchModel{
		ID:           b.ID,
		Kind:         b.Kind,
		TargetURL:    b.TargetURL,
		TotalRecords: b.TotalRecords,
		SuccessCount: b.SuccessCount,
		ErrorCount:   b.ErrorCount,
		PendingCount: b.PendingCount,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		CompletedAt:  b.CompletedAt,
	}
}

func batchModelToDomain(m *BatchModel) *domain.Batch {
	if m == nil {
		return nil
	}

	return &domain.Batch{
		ID:           m.ID,
		Kind:         m.Kind,
		TargetURL:    m.TargetURL,
		TotalRecords: m.TotalRecords,
		SuccessCount: m.SuccessCount,
		ErrorCount:   m.ErrorCount,
		PendingCount: m.PendingCount,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		CompletedAt:  m.CompletedAt,
	}
}

func submissionModelFromDomain(s *domain.Submission) *SubmissionModel {
	if s == nil {
		return nil
	}

	return &SubmissionModel{
		ID:              s.ID,
		BatchID:         s.BatchID,
		Sequence:        s.Sequence,
		Kind:            s.Kind,
		Reference:       s.Reference,
		Payload:         s.Payload,
		XMLRequest:      s.XMLRequest,
		Status:          s.Status,
		ResponseCode:    s.ResponseCode,
		ResponseMessage: s.ResponseMessage,
		XMLResponse:     s.XMLResponse,
		IngresoID:       s.IngresoID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		ProcessedAt:     s.ProcessedAt,
	}
}

func submissionModelToDomain(m *SubmissionModel) *domain.Submission {
	if m == nil {
		return nil
	}

	return &domain.Submission{
		ID:              m.ID,
		BatchID:         m.BatchID,
		Sequence:        m.Sequence,
		Kind:            m.Kind,
		Reference:       m.Reference,
		Payload:         m.Payload,
		XMLRequest:      m.XMLRequest,
		Status:          m.Status,
		ResponseCode:    m.ResponseCode,
		ResponseMessage: m.ResponseMessage,
		XMLResponse:     m.XMLResponse,
		IngresoID:       m.IngresoID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		ProcessedAt:     m.ProcessedAt,
	}
}

func queryModelFromDomain(q *domain.Query) *QueryModel {
	if q == nil {
		return nil
	}

	return &QueryModel{
		ID:              q.ID,
		ProcesoID:       q.ProcesoID,
		Role:            q.Role,
		TargetURL:       q.TargetURL,
		XMLRequest:      q.XMLRequest,
		Status:          q.Status,
		ResponseCode:    q.ResponseCode,
		ResponseMessage: q.ResponseMessage,
		XMLResponse:     q.XMLResponse,
		CreatedAt:       q.CreatedAt,
		ProcessedAt:     q.ProcessedAt,
	}
}

func queryModelToDomain(m *QueryModel) *domain.Query {
	if m == nil {
		return nil
	}

	return &domain.Query{
		ID:              m.ID,
		ProcesoID:       m.ProcesoID,
		Role:            m.Role,
		TargetURL:       m.TargetURL,
		XMLRequest:      m.XMLRequest,
		Status:          m.Status,
		ResponseCode:    m.ResponseCode,
		ResponseMessage: m.ResponseMessage,
		XMLResponse:     m.XMLResponse,
		CreatedAt:       m.CreatedAt,
		ProcessedAt:     m.ProcessedAt,
	}
}
