package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role selects which credential set an RNDC message is sent with.
type Role string

const (
	RoleRNDC Role = "rndc"
	RoleGPS  Role = "gps"
)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool {
	return r == RoleRNDC || r == RoleGPS
}

func ParseRoleFromString(s string) (Role, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return RoleRNDC, nil
	}
	r := Role(trimmed)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: invalid role %q", ErrValidation, s)
	}
	return r, nil
}

// Query is a single ad-hoc lookup executed outside any batch.
type Query struct {
	ID              string
	ProcesoID       string
	Role            Role
	TargetURL       string
	XMLRequest      string
	Status          SubmissionStatus
	ResponseCode    string
	ResponseMessage string
	XMLResponse     *string
	CreatedAt       time.Time
	ProcessedAt     *time.Time
}

// Apply copies a terminal outcome onto the query.
func (q *Query) Apply(o Outcome) {
	q.Status = o.Status
	q.ResponseCode = o.ResponseCode
	q.ResponseMessage = o.ResponseMessage
	response := o.XMLResponse
	q.XMLResponse = &response
	processedAt := o.ProcessedAt
	q.ProcessedAt = &processedAt
}
