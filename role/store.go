package role

import (
	"context"

	"github.com/medplane/guardian/id"
)

// Store defines persistence operations for roles and their permission grants.
type Store interface {
	// CreateRole persists a new role.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByCode retrieves a role by tenant and code.
	GetRoleByCode(ctx context.Context, tenantID, code string) (*Role, error)

	// UpdateRole persists changes to a role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role by ID along with its permission grants.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns roles matching the filter.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// CountRoles returns the number of roles matching the filter.
	CountRoles(ctx context.Context, filter *ListFilter) (int64, error)

	// AttachPermission links a permission to a role.
	AttachPermission(ctx context.Context, g *Grant) error

	// DetachPermission removes a permission from a role.
	DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error

	// ListGrants returns all permission grants attached to a role,
	// including ones outside their validity window.
	ListGrants(ctx context.Context, roleID id.RoleID) ([]*Grant, error)

	// SetRolePermissions replaces all permission grants for a role.
	SetRolePermissions(ctx context.Context, roleID id.RoleID, grants []*Grant) error

	// ListChildRoles returns direct child roles of a parent.
	ListChildRoles(ctx context.Context, parentID id.RoleID) ([]*Role, error)

	// DeleteRolesByTenant removes all roles for a tenant.
	DeleteRolesByTenant(ctx context.Context, tenantID string) error
}
