// Package plugin defines the plugin system for Guardian.
// Plugins are notified of lifecycle events (authorization decided, role
// created, emergency grant transitioned, etc.) and can react with logging,
// metrics, tracing, and the like.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Authorization lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeAuthorize is called before an authorization request is evaluated.
// The req parameter is *guardian.AuthorizeRequest (passed as any to avoid
// an import cycle).
type BeforeAuthorize interface {
	OnBeforeAuthorize(ctx context.Context, req any) error
}

// AfterAuthorize is called after an authorization request completes.
// The req parameter is *guardian.AuthorizeRequest; result is *guardian.Result.
type AfterAuthorize interface {
	OnAfterAuthorize(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// ──────────────────────────────────────────────────
// Permission lifecycle hooks
// ──────────────────────────────────────────────────

// PermissionCreated is called after a permission is created.
type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

// PermissionDeleted is called after a permission is deleted.
type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, permID id.PermissionID) error
}

// PermissionAttached is called after a permission is attached to a role.
type PermissionAttached interface {
	OnPermissionAttached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error
}

// PermissionDetached is called after a permission is detached from a role.
type PermissionDetached interface {
	OnPermissionDetached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error
}

// ──────────────────────────────────────────────────
// Assignment lifecycle hooks
// ──────────────────────────────────────────────────

// RoleAssigned is called after a role is assigned to a user.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

// RoleUnassigned is called after a role is unassigned from a user.
type RoleUnassigned interface {
	OnRoleUnassigned(ctx context.Context, a *assignment.Assignment) error
}

// ──────────────────────────────────────────────────
// Policy lifecycle hooks
// ──────────────────────────────────────────────────

// PolicyCreated is called after a policy is created.
type PolicyCreated interface {
	OnPolicyCreated(ctx context.Context, p *policy.Policy) error
}

// PolicyUpdated is called after a policy is updated.
type PolicyUpdated interface {
	OnPolicyUpdated(ctx context.Context, p *policy.Policy) error
}

// PolicyDeleted is called after a policy is deleted.
type PolicyDeleted interface {
	OnPolicyDeleted(ctx context.Context, polID id.PolicyID) error
}

// ──────────────────────────────────────────────────
// Emergency access lifecycle hooks
// ──────────────────────────────────────────────────

// EmergencyRequested is called after an emergency access grant is requested.
type EmergencyRequested interface {
	OnEmergencyRequested(ctx context.Context, g *emergency.Grant) error
}

// EmergencyTransitioned is called after an emergency grant changes status.
// Fires for approve, reject, revoke, and expiry transitions.
type EmergencyTransitioned interface {
	OnEmergencyTransitioned(ctx context.Context, g *emergency.Grant, from emergency.Status) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
