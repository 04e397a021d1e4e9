package guardian

import (
	"context"
	"fmt"
	"strings"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/auditlog"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
)

// Management operations. Every mutation invalidates the tenant's cached
// decisions and fires the matching plugin hook.

// ──────────────────────────────────────────────────
// Permissions
// ──────────────────────────────────────────────────

// CreatePermission registers a permission in the tenant catalog. The dotted
// code is derived from module/resource/action when absent.
func (e *Engine) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if p == nil || p.TenantID == "" {
		return fmt.Errorf("%w: tenant is required", ErrValidation)
	}
	if p.Code == "" {
		if p.Module == "" || p.Resource == "" || p.Action == "" {
			return fmt.Errorf("%w: permission needs a code or module/resource/action", ErrValidation)
		}
		p.Code = permission.BuildCode(p.Module, p.Resource, p.Action)
	}
	if p.ID.IsNil() {
		p.ID = id.NewPermissionID()
	}
	now := e.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := e.store.CreatePermission(ctx, p); err != nil {
		return fmt.Errorf("create permission: %w", err)
	}
	e.invalidate(ctx, p.TenantID)
	if e.plugins != nil {
		e.plugins.EmitPermissionCreated(ctx, p)
	}
	return nil
}

// UpdatePermission persists changes to a permission. System permissions
// accept only deactivation and description edits.
func (e *Engine) UpdatePermission(ctx context.Context, p *permission.Permission) error {
	existing, err := e.store.GetPermission(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing.IsSystem && p.Code != existing.Code {
		return fmt.Errorf("%w: %s", ErrSystemPermissionImmutable, existing.Code)
	}
	p.TenantID = existing.TenantID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = e.now()

	if err := e.store.UpdatePermission(ctx, p); err != nil {
		return fmt.Errorf("update permission: %w", err)
	}
	e.invalidate(ctx, p.TenantID)
	return nil
}

// DeletePermission removes a permission. System permissions cannot be
// deleted, only deactivated.
func (e *Engine) DeletePermission(ctx context.Context, tenantID string, permID id.PermissionID) error {
	p, err := e.store.GetPermission(ctx, permID)
	if err != nil {
		return err
	}
	if p.TenantID != tenantID {
		return fmt.Errorf("%w: %s", permission.ErrNotFound, permID)
	}
	if p.IsSystem {
		return fmt.Errorf("%w: %s", ErrSystemPermissionImmutable, p.Code)
	}
	if err := e.store.DeletePermission(ctx, permID); err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	e.invalidate(ctx, tenantID)
	if e.plugins != nil {
		e.plugins.EmitPermissionDeleted(ctx, permID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Roles
// ──────────────────────────────────────────────────

// CreateRole registers a role. A parent, when given, must exist in the same
// tenant.
func (e *Engine) CreateRole(ctx context.Context, r *role.Role) error {
	if r == nil || r.TenantID == "" || r.Code == "" {
		return fmt.Errorf("%w: tenant and code are required", ErrValidation)
	}
	if r.RoleType == "" {
		r.RoleType = role.TypeCustom
	}
	if r.ParentID != nil {
		parent, err := e.store.GetRole(ctx, *r.ParentID)
		if err != nil {
			return fmt.Errorf("resolve parent role: %w", err)
		}
		if parent.TenantID != r.TenantID {
			return fmt.Errorf("%w: parent role belongs to another tenant", ErrValidation)
		}
	}
	if r.ID.IsNil() {
		r.ID = id.NewRoleID()
	}
	now := e.now()
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := e.store.CreateRole(ctx, r); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	e.invalidate(ctx, r.TenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, r)
	}
	return nil
}

// UpdateRole persists changes to a role. Structural edits to system roles
// are rejected, and parent changes are cycle-checked.
func (e *Engine) UpdateRole(ctx context.Context, r *role.Role) error {
	existing, err := e.store.GetRole(ctx, r.ID)
	if err != nil {
		return err
	}
	if existing.IsSystem() && (r.Code != existing.Code || !sameParent(r.ParentID, existing.ParentID)) {
		return fmt.Errorf("%w: %s", ErrSystemRoleImmutable, existing.Code)
	}
	if r.ParentID != nil && !sameParent(r.ParentID, existing.ParentID) {
		cyclic, err := e.wouldCreateCycle(ctx, r.ID, *r.ParentID)
		if err != nil {
			return err
		}
		if cyclic {
			return fmt.Errorf("%w: role %s", ErrCyclicRoleInheritance, r.ID)
		}
	}
	r.TenantID = existing.TenantID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = e.now()

	if err := e.store.UpdateRole(ctx, r); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	e.invalidate(ctx, r.TenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	return nil
}

// SetRoleParent re-parents a role, or detaches it when parentID is nil.
// Edits that would make the role its own ancestor fail validation.
func (e *Engine) SetRoleParent(ctx context.Context, tenantID string, roleID id.RoleID, parentID *id.RoleID) error {
	r, err := e.tenantRole(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if r.IsSystem() {
		return fmt.Errorf("%w: %s", ErrSystemRoleImmutable, r.Code)
	}
	if parentID != nil {
		parent, err := e.tenantRole(ctx, tenantID, *parentID)
		if err != nil {
			return err
		}
		cyclic, err := e.wouldCreateCycle(ctx, roleID, parent.ID)
		if err != nil {
			return err
		}
		if cyclic {
			return fmt.Errorf("%w: role %s", ErrCyclicRoleInheritance, roleID)
		}
	}
	r.ParentID = parentID
	r.UpdatedAt = e.now()

	if err := e.store.UpdateRole(ctx, r); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	e.invalidate(ctx, tenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	return nil
}

// DeleteRole removes a role along with its assignments and permission
// grants. System roles are immutable. Children of the deleted role are
// detached, not deleted.
func (e *Engine) DeleteRole(ctx context.Context, tenantID string, roleID id.RoleID) error {
	r, err := e.tenantRole(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if r.IsSystem() {
		return fmt.Errorf("%w: %s", ErrSystemRoleImmutable, r.Code)
	}

	children, err := e.store.ListChildRoles(ctx, roleID)
	if err != nil {
		return fmt.Errorf("list child roles: %w", err)
	}
	for _, child := range children {
		child.ParentID = nil
		child.UpdatedAt = e.now()
		if err := e.store.UpdateRole(ctx, child); err != nil {
			return fmt.Errorf("detach child role %s: %w", child.ID, err)
		}
	}
	if err := e.store.DeleteAssignmentsByRole(ctx, roleID); err != nil {
		return fmt.Errorf("delete role assignments: %w", err)
	}
	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	e.invalidate(ctx, tenantID)
	if e.plugins != nil {
		e.plugins.EmitRoleDeleted(ctx, roleID)
	}
	return nil
}

// AttachPermission grants a permission to a role, optionally time-bounded.
func (e *Engine) AttachPermission(ctx context.Context, tenantID string, g *role.Grant) error {
	r, err := e.tenantRole(ctx, tenantID, g.RoleID)
	if err != nil {
		return err
	}
	p, err := e.store.GetPermission(ctx, g.PermissionID)
	if err != nil {
		return err
	}
	if p.TenantID != tenantID {
		return fmt.Errorf("%w: %s", permission.ErrNotFound, g.PermissionID)
	}
	if g.ValidFrom != nil && g.ValidUntil != nil && !g.ValidFrom.Before(*g.ValidUntil) {
		return fmt.Errorf("%w: grant validity window is empty", ErrValidation)
	}
	g.CreatedAt = e.now()

	if err := e.store.AttachPermission(ctx, g); err != nil {
		return fmt.Errorf("attach permission: %w", err)
	}
	e.invalidate(ctx, r.TenantID)
	if e.plugins != nil {
		e.plugins.EmitPermissionAttached(ctx, g.RoleID, g.PermissionID)
	}
	return nil
}

// DetachPermission removes a permission grant from a role.
func (e *Engine) DetachPermission(ctx context.Context, tenantID string, roleID id.RoleID, permID id.PermissionID) error {
	if _, err := e.tenantRole(ctx, tenantID, roleID); err != nil {
		return err
	}
	if err := e.store.DetachPermission(ctx, roleID, permID); err != nil {
		return fmt.Errorf("detach permission: %w", err)
	}
	e.invalidate(ctx, tenantID)
	if e.plugins != nil {
		e.plugins.EmitPermissionDetached(ctx, roleID, permID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Assignments
// ──────────────────────────────────────────────────

// AssignRole binds a role to a user.
func (e *Engine) AssignRole(ctx context.Context, a *assignment.Assignment) error {
	if a == nil || a.TenantID == "" || a.UserID == "" {
		return fmt.Errorf("%w: tenant and user are required", ErrValidation)
	}
	if _, err := e.tenantRole(ctx, a.TenantID, a.RoleID); err != nil {
		return err
	}
	if a.ID.IsNil() {
		a.ID = id.NewAssignmentID()
	}
	a.AssignedAt = e.now()
	a.IsActive = true

	if err := e.store.CreateAssignment(ctx, a); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	e.invalidateUser(ctx, a.TenantID, a.UserID)
	if e.plugins != nil {
		e.plugins.EmitRoleAssigned(ctx, a)
	}
	return nil
}

// UnassignRole removes a role assignment.
func (e *Engine) UnassignRole(ctx context.Context, tenantID string, assID id.AssignmentID) error {
	a, err := e.store.GetAssignment(ctx, assID)
	if err != nil {
		return err
	}
	if a.TenantID != tenantID {
		return fmt.Errorf("%w: %s", assignment.ErrNotFound, assID)
	}
	if err := e.store.DeleteAssignment(ctx, assID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	e.invalidateUser(ctx, tenantID, a.UserID)
	if e.plugins != nil {
		e.plugins.EmitRoleUnassigned(ctx, a)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Policies
// ──────────────────────────────────────────────────

// CreatePolicy registers an admin-authored policy. Synthetic flags are
// reserved for the emergency workflow and stripped here.
func (e *Engine) CreatePolicy(ctx context.Context, p *policy.Policy) error {
	if err := validatePolicy(p); err != nil {
		return err
	}
	p.Synthetic = false
	p.GrantID = id.Nil
	p.ExpiresAt = nil
	if p.ID.IsNil() {
		p.ID = id.NewPolicyID()
	}
	now := e.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := e.store.CreatePolicy(ctx, p); err != nil {
		return fmt.Errorf("create policy: %w", err)
	}
	e.invalidate(ctx, p.TenantID)
	if e.plugins != nil {
		e.plugins.EmitPolicyCreated(ctx, p)
	}
	return nil
}

// UpdatePolicy persists changes to an admin-authored policy. Synthetic
// policies are engine-owned and cannot be edited.
func (e *Engine) UpdatePolicy(ctx context.Context, p *policy.Policy) error {
	existing, err := e.store.GetPolicy(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing.Synthetic {
		return fmt.Errorf("%w: synthetic policies cannot be edited", ErrValidation)
	}
	if err := validatePolicy(p); err != nil {
		return err
	}
	p.TenantID = existing.TenantID
	p.Synthetic = false
	p.GrantID = id.Nil
	p.ExpiresAt = nil
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = e.now()

	if err := e.store.UpdatePolicy(ctx, p); err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	e.invalidate(ctx, p.TenantID)
	if e.plugins != nil {
		e.plugins.EmitPolicyUpdated(ctx, p)
	}
	return nil
}

// DeletePolicy removes an admin-authored policy.
func (e *Engine) DeletePolicy(ctx context.Context, tenantID string, polID id.PolicyID) error {
	p, err := e.store.GetPolicy(ctx, polID)
	if err != nil {
		return err
	}
	if p.TenantID != tenantID {
		return fmt.Errorf("%w: %s", policy.ErrNotFound, polID)
	}
	if p.Synthetic {
		return fmt.Errorf("%w: synthetic policies are removed by their grant's lifecycle", ErrValidation)
	}
	if err := e.store.DeletePolicy(ctx, polID); err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	e.invalidate(ctx, tenantID)
	if e.plugins != nil {
		e.plugins.EmitPolicyDeleted(ctx, polID)
	}
	return nil
}

// validatePolicy rejects policies that could never evaluate sensibly.
func validatePolicy(p *policy.Policy) error {
	if p == nil || p.TenantID == "" {
		return fmt.Errorf("%w: tenant is required", ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: policy name is required", ErrValidation)
	}
	if p.Effect != policy.EffectAllow && p.Effect != policy.EffectDeny {
		return fmt.Errorf("%w: effect must be allow or deny", ErrValidation)
	}
	if p.TimeOfDayStart != "" || p.TimeOfDayEnd != "" {
		if p.TimeOfDayStart == "" || p.TimeOfDayEnd == "" {
			return fmt.Errorf("%w: time-of-day window needs both start and end", ErrValidation)
		}
		if _, ok := parseTimeOfDay(p.TimeOfDayStart); !ok {
			return fmt.Errorf("%w: invalid time-of-day start %q", ErrValidation, p.TimeOfDayStart)
		}
		if _, ok := parseTimeOfDay(p.TimeOfDayEnd); !ok {
			return fmt.Errorf("%w: invalid time-of-day end %q", ErrValidation, p.TimeOfDayEnd)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit log
// ──────────────────────────────────────────────────

// QueryAuditLog returns decision audit entries, newest first, pinned to the
// tenant.
func (e *Engine) QueryAuditLog(ctx context.Context, tenantID string, filter *auditlog.QueryFilter) ([]*auditlog.Entry, error) {
	if filter == nil {
		filter = &auditlog.QueryFilter{}
	}
	filter.TenantID = tenantID
	return e.store.QueryEntries(ctx, filter)
}

// ──────────────────────────────────────────────────
// Seeding
// ──────────────────────────────────────────────────

// SuperAdminRoleCode is the code of the seeded system role holding the
// wildcard permission.
const SuperAdminRoleCode = "super-admin"

// Seed bootstraps the built-in system permission and super-admin role for a
// tenant. Idempotent: an existing super-admin role is returned as-is.
func (e *Engine) Seed(ctx context.Context, tenantID, seededBy string) (*role.Role, error) {
	if existing, err := e.store.GetRoleByCode(ctx, tenantID, SuperAdminRoleCode); err == nil {
		return existing, nil
	}

	now := e.now()
	wildcard := &permission.Permission{
		ID:                 id.NewPermissionID(),
		TenantID:           tenantID,
		Code:               permission.Wildcard,
		Scope:              permission.ScopeOrganization,
		DataClassification: permission.ClassificationRestricted,
		Description:        "grants every permission",
		IsSystem:           true,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.store.CreatePermission(ctx, wildcard); err != nil {
		return nil, fmt.Errorf("seed wildcard permission: %w", err)
	}

	admin := &role.Role{
		ID:          id.NewRoleID(),
		TenantID:    tenantID,
		Name:        "Super Administrator",
		Code:        SuperAdminRoleCode,
		Description: "built-in role holding the wildcard permission",
		RoleType:    role.TypeSystem,
		Priority:    1000,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateRole(ctx, admin); err != nil {
		return nil, fmt.Errorf("seed super-admin role: %w", err)
	}
	grant := &role.Grant{
		RoleID:       admin.ID,
		PermissionID: wildcard.ID,
		GrantedBy:    seededBy,
		CreatedAt:    now,
	}
	if err := e.store.AttachPermission(ctx, grant); err != nil {
		return nil, fmt.Errorf("seed wildcard grant: %w", err)
	}

	e.invalidate(ctx, tenantID)
	return admin, nil
}

// tenantRole loads a role and hides roles from other tenants behind
// ErrNotFound.
func (e *Engine) tenantRole(ctx context.Context, tenantID string, roleID id.RoleID) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if r.TenantID != tenantID {
		return nil, fmt.Errorf("%w: %s", role.ErrNotFound, roleID)
	}
	return r, nil
}

func sameParent(a, b *id.RoleID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
