// Package role defines the Role entity, its permission grants, and the
// store interface for the role graph.
package role

import (
	"errors"
	"time"

	"github.com/medplane/guardian/id"
)

// ErrNotFound is returned when a role cannot be found.
var ErrNotFound = errors.New("guardian: role not found")

// Type categorizes a role.
type Type string

const (
	// TypeSystem marks built-in roles whose structure is immutable.
	TypeSystem Type = "system"

	// TypeCustom marks tenant-authored roles.
	TypeCustom Type = "custom"

	// TypeDepartment marks roles scoped to a department.
	TypeDepartment Type = "department"

	// TypeProject marks roles scoped to a project.
	TypeProject Type = "project"
)

// Role represents an authorization role. Roles form a single-parent
// hierarchy: a role inherits every permission of its ancestors. A role may
// never be its own ancestor; parent edits that would close a cycle are
// rejected at validation time.
type Role struct {
	ID           id.RoleID  `json:"id" db:"id"`
	TenantID     string     `json:"tenant_id" db:"tenant_id"`
	Name         string     `json:"name" db:"name"`
	Code         string     `json:"code" db:"code"`
	Description  string     `json:"description,omitempty" db:"description"`
	RoleType     Type       `json:"role_type" db:"role_type"`
	Priority     int        `json:"priority" db:"priority"`
	ParentID     *id.RoleID `json:"parent_id,omitempty" db:"parent_id"`
	DepartmentID string     `json:"department_id,omitempty" db:"department_id"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsSystem reports whether the role is a built-in system role.
func (r *Role) IsSystem() bool { return r.RoleType == TypeSystem }

// Grant links a permission to a role, optionally bounded in time. A grant
// outside its validity window contributes nothing.
type Grant struct {
	RoleID       id.RoleID       `json:"role_id" db:"role_id"`
	PermissionID id.PermissionID `json:"permission_id" db:"permission_id"`
	ValidFrom    *time.Time      `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil   *time.Time      `json:"valid_until,omitempty" db:"valid_until"`
	GrantedBy    string          `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// ValidAt reports whether the grant's validity window contains t.
func (g *Grant) ValidAt(t time.Time) bool {
	if g.ValidFrom != nil && t.Before(*g.ValidFrom) {
		return false
	}
	if g.ValidUntil != nil && !t.Before(*g.ValidUntil) {
		return false
	}
	return true
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	TenantID     string     `json:"tenant_id,omitempty"`
	RoleType     Type       `json:"role_type,omitempty"`
	DepartmentID string     `json:"department_id,omitempty"`
	ParentID     *id.RoleID `json:"parent_id,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
	Search       string     `json:"search,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
}
