package domain

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus represents the lifecycle state of a submission or query.
type SubmissionStatus string

const (
	SubmissionStatusPending    SubmissionStatus = "pending"
	SubmissionStatusProcessing SubmissionStatus = "processing"
	SubmissionStatusSuccess    SubmissionStatus = "success"
	SubmissionStatusError      SubmissionStatus = "error"
)

func (s SubmissionStatus) String() string { return string(s) }

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusProcessing, SubmissionStatusSuccess, SubmissionStatusError:
		return true
	}
	return false
}

func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusSuccess || s == SubmissionStatusError
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle monotonic.
// processing -> processing is allowed so an interrupted run can resume an item.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	switch s {
	case SubmissionStatusPending:
		return next == SubmissionStatusProcessing
	case SubmissionStatusProcessing:
		return next == SubmissionStatusProcessing || next.IsTerminal()
	}
	return false
}

func ParseSubmissionStatusFromString(s string) (SubmissionStatus, error) {
	st := SubmissionStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid submission status %q", ErrValidation, s)
	}
	return st, nil
}

// Submission is one outbound RNDC message owned by a batch.
type Submission struct {
	ID              string
	BatchID         string
	Sequence        int
	Kind            Kind
	Reference       string
	Payload         string
	XMLRequest      string
	Status          SubmissionStatus
	ResponseCode    string
	ResponseMessage string
	XMLResponse     *string
	IngresoID       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProcessedAt     *time.Time
}

// Outcome is the terminal result recorded for a submission or query.
type Outcome struct {
	Status          SubmissionStatus
	ResponseCode    string
	ResponseMessage string
	XMLResponse     string
	IngresoID       string
	ProcessedAt     time.Time
}

func (o Outcome) Validate() error {
	if !o.Status.IsTerminal() {
		return fmt.Errorf("%w: outcome status %q is not terminal", ErrValidation, o.Status)
	}
	if o.ProcessedAt.IsZero() {
		return fmt.Errorf("%w: outcome processed time is required", ErrValidation)
	}
	return nil
}

// Apply copies the outcome onto the submission.
func (s *Submission) Apply(o Outcome) {
	s.Status = o.Status
	s.ResponseCode = o.ResponseCode
	s.ResponseMessage = o.ResponseMessage
	response := o.XMLResponse
	s.XMLResponse = &response
	if strings.TrimSpace(o.IngresoID) != "" {
		ingresoID := o.IngresoID
		s.IngresoID = &ingresoID
	}
	processedAt := o.ProcessedAt
	s.ProcessedAt = &processedAt
	s.UpdatedAt = o.ProcessedAt
}
