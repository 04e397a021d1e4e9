// Package permission defines the Permission entity and its store interface.
package permission

import (
	"errors"
	"strings"
	"time"

	"github.com/medplane/guardian/id"
)

// ErrNotFound is returned when a permission cannot be found.
var ErrNotFound = errors.New("guardian: permission not found")

// Scope is the breadth of applicability of a permission.
type Scope string

const (
	// ScopeGlobal applies across the whole platform.
	ScopeGlobal Scope = "global"

	// ScopeOrganization applies within a single tenant organization.
	ScopeOrganization Scope = "organization"

	// ScopeDepartment applies within a department.
	ScopeDepartment Scope = "department"

	// ScopeBranch applies within a branch.
	ScopeBranch Scope = "branch"

	// ScopeSelf applies only to the subject's own records.
	ScopeSelf Scope = "self"
)

// Classification is the sensitivity of the data a permission guards.
type Classification string

const (
	// ClassificationPublic guards non-sensitive data.
	ClassificationPublic Classification = "public"

	// ClassificationInternal guards tenant-internal data.
	ClassificationInternal Classification = "internal"

	// ClassificationConfidential guards confidential data.
	ClassificationConfidential Classification = "confidential"

	// ClassificationRestricted guards restricted data such as patient records.
	ClassificationRestricted Classification = "restricted"
)

// Wildcard is the permission code that grants everything. It is reserved
// for the built-in super-admin role.
const Wildcard = "*"

// Permission represents a specific action allowed on a resource, identified
// by a dotted code of the form "module.resource.action". Permissions are
// immutable after creation aside from soft deactivation; system permissions
// are never hard-deleted.
type Permission struct {
	ID                 id.PermissionID `json:"id" db:"id"`
	TenantID           string          `json:"tenant_id" db:"tenant_id"`
	Code               string          `json:"code" db:"code"`
	Module             string          `json:"module" db:"module"`
	Resource           string          `json:"resource" db:"resource"`
	Action             string          `json:"action" db:"action"`
	Scope              Scope           `json:"scope" db:"scope"`
	DataClassification Classification  `json:"data_classification" db:"data_classification"`
	Description        string          `json:"description,omitempty" db:"description"`
	IsSystem           bool            `json:"is_system" db:"is_system"`
	IsActive           bool            `json:"is_active" db:"is_active"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// BuildCode assembles a dotted permission code from its parts.
func BuildCode(module, resource, action string) string {
	return module + "." + resource + "." + action
}

// SplitCode splits a dotted permission code into module, resource, and
// action. Returns ok=false when the code does not have exactly three parts.
func SplitCode(code string) (module, resource, action string, ok bool) {
	parts := strings.Split(code, ".")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// ListFilter contains filters for listing permissions.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Module   string `json:"module,omitempty"`
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
	Scope    Scope  `json:"scope,omitempty"`
	IsSystem *bool  `json:"is_system,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
