package queue

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

// RunReason records why a batch run was dispatched.
type RunReason string

const (
	RunReasonCreated  RunReason = "created"
	RunReasonRecovery RunReason = "recovery"
)

// BatchRunMessage asks a worker to drive one batch to completion.
type BatchRunMessage struct {
	BatchID       string      `json:"batchId"`
	Kind          domain.Kind `json:"kind"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Reason        RunReason   `json:"reason,omitempty"`
}

func (m BatchRunMessage) Validate() error {
	if strings.TrimSpace(m.BatchID) == "" {
		return fmt.Errorf("batchId is required")
	}
	if !m.Kind.IsBatchKind() {
		return fmt.Errorf("invalid batch kind %q", m.Kind)
	}
	return nil
}
