package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus represents the processing state of a batch.
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusProcessing, BatchStatusCompleted:
		return true
	}
	return false
}

func ParseBatchStatusFromString(s string) (BatchStatus, error) {
	st := BatchStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid batch status %q", ErrValidation, s)
	}
	return st, nil
}

// Batch groups the submissions of one message kind sent to one endpoint.
type Batch struct {
	ID           string
	Kind         Kind
	TargetURL    string
	TotalRecords int
	SuccessCount int
	ErrorCount   int
	PendingCount int
	Status       BatchStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Progress is the aggregate outcome tally of a batch.
type Progress struct {
	SuccessCount int
	ErrorCount   int
}

// Pending derives the pending count for a batch of total records.
func (p Progress) Pending(total int) int {
	pending := total - p.SuccessCount - p.ErrorCount
	if pending < 0 {
		return 0
	}
	return pending
}

// Record adds one terminal outcome to the tally.
func (p *Progress) Record(status SubmissionStatus) {
	switch status {
	case SubmissionStatusSuccess:
		p.SuccessCount++
	case SubmissionStatusError:
		p.ErrorCount++
	}
}

// ApplyProgress sets the counters so that they always sum to TotalRecords.
func (b *Batch) ApplyProgress(p Progress) {
	b.SuccessCount = p.SuccessCount
	b.ErrorCount = p.ErrorCount
	b.PendingCount = p.Pending(b.TotalRecords)
}

func (b *Batch) IsCompleted() bool {
	return b.Status == BatchStatusCompleted
}
