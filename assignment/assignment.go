// Package assignment defines the user→role assignment entity.
package assignment

import (
	"errors"
	"time"

	"github.com/medplane/guardian/id"
)

// ErrNotFound is returned when an assignment cannot be found.
var ErrNotFound = errors.New("guardian: assignment not found")

// Assignment binds a role to a user within a tenant, optionally scoped to a
// branch and bounded in time. An expired or inactive assignment contributes
// no permissions.
type Assignment struct {
	ID         id.AssignmentID `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	RoleID     id.RoleID       `json:"role_id" db:"role_id"`
	BranchID   string          `json:"branch_id,omitempty" db:"branch_id"`
	AssignedBy string          `json:"assigned_by,omitempty" db:"assigned_by"`
	AssignedAt time.Time       `json:"assigned_at" db:"assigned_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	IsActive   bool            `json:"is_active" db:"is_active"`
}

// ActiveAt reports whether the assignment contributes permissions at t.
func (a *Assignment) ActiveAt(t time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && !t.Before(*a.ExpiresAt) {
		return false
	}
	return true
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	TenantID string     `json:"tenant_id,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	RoleID   *id.RoleID `json:"role_id,omitempty"`
	BranchID string     `json:"branch_id,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}
