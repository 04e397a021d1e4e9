package permission

import (
	"context"
	"time"

	"github.com/medplane/guardian/id"
)

// Store defines persistence operations for permissions.
type Store interface {
	// CreatePermission persists a new permission.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission retrieves a permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissionByCode retrieves a permission by tenant and dotted code.
	GetPermissionByCode(ctx context.Context, tenantID, code string) (*Permission, error)

	// UpdatePermission persists changes to a permission.
	UpdatePermission(ctx context.Context, p *Permission) error

	// DeletePermission removes a permission by ID. System permissions must
	// be deactivated instead; callers enforce that invariant.
	DeletePermission(ctx context.Context, permID id.PermissionID) error

	// ListPermissions returns permissions matching the filter.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// CountPermissions returns the number of permissions matching the filter.
	CountPermissions(ctx context.Context, filter *ListFilter) (int64, error)

	// ListPermissionsByRole returns the active permissions granted to a role
	// whose grant validity windows include the given instant.
	ListPermissionsByRole(ctx context.Context, roleID id.RoleID, at time.Time) ([]*Permission, error)

	// DeletePermissionsByTenant removes all permissions for a tenant.
	DeletePermissionsByTenant(ctx context.Context, tenantID string) error
}
