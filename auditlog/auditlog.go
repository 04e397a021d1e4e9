// Package auditlog defines the authorization audit Entry entity. The engine
// emits entries; durable storage and retention belong to the hosting
// platform.
package auditlog

import (
	"errors"
	"time"

	"github.com/medplane/guardian/id"
)

// ErrNotFound is returned when an audit entry cannot be found.
var ErrNotFound = errors.New("guardian: audit entry not found")

// Entry is a single authorization decision audit record.
type Entry struct {
	ID         id.AuditEntryID `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	Resource   string          `json:"resource" db:"resource"`
	Allowed    bool            `json:"allowed" db:"allowed"`
	Decision   string          `json:"decision" db:"decision"`
	Gate       string          `json:"gate,omitempty" db:"gate"`
	Reason     string          `json:"reason,omitempty" db:"reason"`
	IPAddress  string          `json:"ip_address,omitempty" db:"ip_address"`
	EvalTimeNs int64           `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	TenantID string     `json:"tenant_id,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	Action   string     `json:"action,omitempty"`
	Resource string     `json:"resource,omitempty"`
	Allowed  *bool      `json:"allowed,omitempty"`
	After    *time.Time `json:"after,omitempty"`
	Before   *time.Time `json:"before,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}
