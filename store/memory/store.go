// Package memory provides an in-memory implementation of the guardian
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/auditlog"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
)

// Compile-time interface checks.
var (
	_ role.Store       = (*Store)(nil)
	_ permission.Store = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
	_ policy.Store     = (*Store)(nil)
	_ emergency.Store  = (*Store)(nil)
	_ auditlog.Store   = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all guardian entities.
type Store struct {
	mu sync.RWMutex

	roles       map[string]*role.Role
	permissions map[string]*permission.Permission
	roleGrants  map[string]map[string]*role.Grant // roleID -> permID -> grant
	assignments map[string]*assignment.Assignment
	policies    map[string]*policy.Policy
	grants      map[string]*emergency.Grant
	auditLog    map[string]*auditlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:       make(map[string]*role.Role),
		permissions: make(map[string]*permission.Permission),
		roleGrants:  make(map[string]map[string]*role.Grant),
		assignments: make(map[string]*assignment.Assignment),
		policies:    make(map[string]*policy.Policy),
		grants:      make(map[string]*emergency.Grant),
		auditLog:    make(map[string]*auditlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByCode(_ context.Context, tenantID, code string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Code == code {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role code %q: %w", code, role.ErrNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, role.ErrNotFound)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, roleID.String())
	delete(s.roleGrants, roleID.String())
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.RoleType != "" && r.RoleType != filter.RoleType {
				continue
			}
			if filter.DepartmentID != "" && r.DepartmentID != filter.DepartmentID {
				continue
			}
			if filter.ParentID != nil && (r.ParentID == nil || r.ParentID.String() != filter.ParentID.String()) {
				continue
			}
			if filter.IsActive != nil && r.IsActive != *filter.IsActive {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	list, err := s.ListRoles(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) AttachPermission(_ context.Context, g *role.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := g.RoleID.String()
	if s.roleGrants[rk] == nil {
		s.roleGrants[rk] = make(map[string]*role.Grant)
	}
	s.roleGrants[rk][g.PermissionID.String()] = copyGrant(g)
	return nil
}

func (s *Store) DetachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if grants, ok := s.roleGrants[roleID.String()]; ok {
		delete(grants, permID.String())
	}
	return nil
}

func (s *Store) ListGrants(_ context.Context, roleID id.RoleID) ([]*role.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grants, ok := s.roleGrants[roleID.String()]
	if !ok {
		return nil, nil
	}
	result := make([]*role.Grant, 0, len(grants))
	for _, g := range grants {
		result = append(result, copyGrant(g))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PermissionID.String() < result[j].PermissionID.String()
	})
	return result, nil
}

func (s *Store) SetRolePermissions(_ context.Context, roleID id.RoleID, grants []*role.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]*role.Grant, len(grants))
	for _, g := range grants {
		m[g.PermissionID.String()] = copyGrant(g)
	}
	s.roleGrants[roleID.String()] = m
	return nil
}

func (s *Store) ListChildRoles(_ context.Context, parentID id.RoleID) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*role.Role
	pid := parentID.String()
	for _, r := range s.roles {
		if r.ParentID != nil && r.ParentID.String() == pid {
			result = append(result, copyRole(r))
		}
	}
	return result, nil
}

func (s *Store) DeleteRolesByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.roles {
		if r.TenantID == tenantID {
			delete(s.roles, k)
			delete(s.roleGrants, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", permID, permission.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByCode(_ context.Context, tenantID, code string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permissions {
		if p.TenantID == tenantID && p.Code == code {
			return copyPermission(p), nil
		}
	}
	return nil, fmt.Errorf("permission %q: %w", code, permission.ErrNotFound)
}

func (s *Store) UpdatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permissions[p.ID.String()]; !ok {
		return fmt.Errorf("permission %s: %w", p.ID, permission.ErrNotFound)
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) DeletePermission(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := permID.String()
	delete(s.permissions, pk)
	for _, grants := range s.roleGrants {
		delete(grants, pk)
	}
	return nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if filter != nil {
			if filter.TenantID != "" && p.TenantID != filter.TenantID {
				continue
			}
			if filter.Module != "" && p.Module != filter.Module {
				continue
			}
			if filter.Resource != "" && p.Resource != filter.Resource {
				continue
			}
			if filter.Action != "" && p.Action != filter.Action {
				continue
			}
			if filter.Scope != "" && p.Scope != filter.Scope {
				continue
			}
			if filter.IsSystem != nil && p.IsSystem != *filter.IsSystem {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(p.Code), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyPermission(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return applyPagination(result, paginationOptsPerm(filter)), nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	list, err := s.ListPermissions(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListPermissionsByRole(_ context.Context, roleID id.RoleID, at time.Time) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grants, ok := s.roleGrants[roleID.String()]
	if !ok {
		return nil, nil
	}
	var result []*permission.Permission
	for pid, g := range grants {
		if !g.ValidAt(at) {
			continue
		}
		if p, ok := s.permissions[pid]; ok && p.IsActive {
			result = append(result, copyPermission(p))
		}
	}
	return result, nil
}

func (s *Store) DeletePermissionsByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range s.permissions {
		if p.TenantID == tenantID {
			delete(s.permissions, k)
			for _, grants := range s.roleGrants {
				delete(grants, k)
			}
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID.String()] = copyAssignment(a)
	return nil
}

func (s *Store) GetAssignment(_ context.Context, assID id.AssignmentID) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assID.String()]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", assID, assignment.ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (s *Store) DeleteAssignment(_ context.Context, assID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, assID.String())
	return nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if filter != nil {
			if filter.TenantID != "" && a.TenantID != filter.TenantID {
				continue
			}
			if filter.UserID != "" && a.UserID != filter.UserID {
				continue
			}
			if filter.RoleID != nil && a.RoleID.String() != filter.RoleID.String() {
				continue
			}
			if filter.BranchID != "" && a.BranchID != filter.BranchID {
				continue
			}
			if filter.IsActive != nil && a.IsActive != *filter.IsActive {
				continue
			}
		}
		result = append(result, copyAssignment(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return applyPagination(result, paginationOptsAssign(filter)), nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	list, err := s.ListAssignments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListRolesForUser(_ context.Context, tenantID, userID string, at time.Time) ([]id.RoleID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []id.RoleID
	for _, a := range s.assignments {
		if a.TenantID == tenantID && a.UserID == userID && a.ActiveAt(at) {
			result = append(result, a.RoleID)
		}
	}
	return result, nil
}

func (s *Store) ListUsersForRole(_ context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rid := roleID.String()
	var result []*assignment.Assignment
	for _, a := range s.assignments {
		if a.RoleID.String() == rid {
			result = append(result, copyAssignment(a))
		}
	}
	return result, nil
}

func (s *Store) DeleteExpiredAssignments(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, a := range s.assignments {
		if a.ExpiresAt != nil && a.ExpiresAt.Before(now) {
			delete(s.assignments, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteAssignmentsByUser(_ context.Context, tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.assignments {
		if a.TenantID == tenantID && a.UserID == userID {
			delete(s.assignments, k)
		}
	}
	return nil
}

func (s *Store) DeleteAssignmentsByRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rid := roleID.String()
	for k, a := range s.assignments {
		if a.RoleID.String() == rid {
			delete(s.assignments, k)
		}
	}
	return nil
}

func (s *Store) DeleteAssignmentsByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, a := range s.assignments {
		if a.TenantID == tenantID {
			delete(s.assignments, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Policy Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePolicy(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID.String()] = copyPolicy(p)
	return nil
}

func (s *Store) GetPolicy(_ context.Context, polID id.PolicyID) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[polID.String()]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", polID, policy.ErrNotFound)
	}
	return copyPolicy(p), nil
}

func (s *Store) GetPolicyByName(_ context.Context, tenantID, name string) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.policies {
		if p.TenantID == tenantID && p.Name == name {
			return copyPolicy(p), nil
		}
	}
	return nil, fmt.Errorf("policy %q: %w", name, policy.ErrNotFound)
}

func (s *Store) UpdatePolicy(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[p.ID.String()]; !ok {
		return fmt.Errorf("policy %s: %w", p.ID, policy.ErrNotFound)
	}
	s.policies[p.ID.String()] = copyPolicy(p)
	return nil
}

func (s *Store) DeletePolicy(_ context.Context, polID id.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.policies, polID.String())
	return nil
}

func (s *Store) ListPolicies(_ context.Context, filter *policy.ListFilter) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*policy.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if filter != nil {
			if filter.TenantID != "" && p.TenantID != filter.TenantID {
				continue
			}
			if filter.Effect != "" && p.Effect != filter.Effect {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
			if filter.Synthetic != nil && p.Synthetic != *filter.Synthetic {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyPolicy(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return applyPagination(result, paginationOptsPol(filter)), nil
}

func (s *Store) CountPolicies(ctx context.Context, filter *policy.ListFilter) (int64, error) {
	list, err := s.ListPolicies(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListActivePolicies(_ context.Context, tenantID string) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*policy.Policy
	for _, p := range s.policies {
		if p.TenantID == tenantID && p.IsActive {
			result = append(result, copyPolicy(p))
		}
	}
	return result, nil
}

func (s *Store) IncrementEvaluations(_ context.Context, polIDs []id.PolicyID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range polIDs {
		if p, ok := s.policies[pid.String()]; ok {
			p.EvaluationCount++
			t := at
			p.LastEvaluatedAt = &t
		}
	}
	return nil
}

func (s *Store) DeletePoliciesByGrant(_ context.Context, grantID id.GrantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gid := grantID.String()
	for k, p := range s.policies {
		if p.Synthetic && p.GrantID.String() == gid {
			delete(s.policies, k)
		}
	}
	return nil
}

func (s *Store) DeletePoliciesByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range s.policies {
		if p.TenantID == tenantID {
			delete(s.policies, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Emergency Store
// ──────────────────────────────────────────────────

func (s *Store) CreateGrant(_ context.Context, g *emergency.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[g.ID.String()] = copyEmergencyGrant(g)
	return nil
}

func (s *Store) GetGrant(_ context.Context, grantID id.GrantID) (*emergency.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantID.String()]
	if !ok {
		return nil, fmt.Errorf("emergency grant %s: %w", grantID, emergency.ErrNotFound)
	}
	return copyEmergencyGrant(g), nil
}

func (s *Store) UpdateGrant(_ context.Context, g *emergency.Grant, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.grants[g.ID.String()]
	if !ok {
		return fmt.Errorf("emergency grant %s: %w", g.ID, emergency.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("emergency grant %s: %w", g.ID, emergency.ErrVersionConflict)
	}
	g.Version = expectedVersion + 1
	s.grants[g.ID.String()] = copyEmergencyGrant(g)
	return nil
}

func (s *Store) ListEmergencyGrants(_ context.Context, filter *emergency.ListFilter) ([]*emergency.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*emergency.Grant, 0, len(s.grants))
	for _, g := range s.grants {
		if filter != nil {
			if filter.TenantID != "" && g.TenantID != filter.TenantID {
				continue
			}
			if filter.RequesterUserID != "" && g.RequesterUserID != filter.RequesterUserID {
				continue
			}
			if filter.PatientID != "" && g.PatientID != filter.PatientID {
				continue
			}
			if filter.Status != "" && g.Status != filter.Status {
				continue
			}
		}
		result = append(result, copyEmergencyGrant(g))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.After(result[j].RequestedAt) })
	return applyPagination(result, paginationOptsGrant(filter)), nil
}

func (s *Store) CountGrants(ctx context.Context, filter *emergency.ListFilter) (int64, error) {
	list, err := s.ListEmergencyGrants(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListActiveGrantsForUser(_ context.Context, tenantID, userID string) ([]*emergency.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*emergency.Grant
	for _, g := range s.grants {
		if g.TenantID == tenantID && g.RequesterUserID == userID && g.Status == emergency.StatusActive {
			result = append(result, copyEmergencyGrant(g))
		}
	}
	return result, nil
}

func (s *Store) ListOverdueGrants(_ context.Context, now time.Time) ([]*emergency.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*emergency.Grant
	for _, g := range s.grants {
		if g.Status == emergency.StatusActive && g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
			result = append(result, copyEmergencyGrant(g))
		}
	}
	return result, nil
}

func (s *Store) DeleteGrantsByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.grants {
		if g.TenantID == tenantID {
			delete(s.grants, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit Log Store
// ──────────────────────────────────────────────────

func (s *Store) InsertEntry(_ context.Context, e *auditlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog[e.ID.String()] = copyAuditEntry(e)
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.AuditEntryID) (*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.auditLog[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, auditlog.ErrNotFound)
	}
	return copyAuditEntry(e), nil
}

func (s *Store) QueryEntries(_ context.Context, filter *auditlog.QueryFilter) ([]*auditlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*auditlog.Entry, 0, len(s.auditLog))
	for _, e := range s.auditLog {
		if filter != nil {
			if filter.TenantID != "" && e.TenantID != filter.TenantID {
				continue
			}
			if filter.UserID != "" && e.UserID != filter.UserID {
				continue
			}
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.Resource != "" && e.Resource != filter.Resource {
				continue
			}
			if filter.Allowed != nil && e.Allowed != *filter.Allowed {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyAuditEntry(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return applyPagination(result, paginationOptsAudit(filter)), nil
}

func (s *Store) CountEntries(ctx context.Context, filter *auditlog.QueryFilter) (int64, error) {
	list, err := s.QueryEntries(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) PurgeEntriesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.auditLog {
		if e.CreatedAt.Before(cutoff) {
			delete(s.auditLog, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteEntriesByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.auditLog {
		if e.TenantID == tenantID {
			delete(s.auditLog, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyRole(r *role.Role) *role.Role {
	c := *r
	return &c
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	return &c
}

func copyGrant(g *role.Grant) *role.Grant {
	c := *g
	return &c
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	return &c
}

func copyPolicy(p *policy.Policy) *policy.Policy {
	c := *p
	if p.AppliesToUsers != nil {
		c.AppliesToUsers = append([]string(nil), p.AppliesToUsers...)
	}
	if p.AppliesToRoles != nil {
		c.AppliesToRoles = append([]string(nil), p.AppliesToRoles...)
	}
	if p.AppliesToDepartments != nil {
		c.AppliesToDepartments = append([]string(nil), p.AppliesToDepartments...)
	}
	if p.Actions != nil {
		c.Actions = append([]string(nil), p.Actions...)
	}
	if p.Resources != nil {
		c.Resources = append([]string(nil), p.Resources...)
	}
	if p.DaysOfWeek != nil {
		c.DaysOfWeek = append([]time.Weekday(nil), p.DaysOfWeek...)
	}
	if p.Conditions != nil {
		c.Conditions = make(map[string]any, len(p.Conditions))
		for k, v := range p.Conditions {
			c.Conditions[k] = v
		}
	}
	return &c
}

func copyEmergencyGrant(g *emergency.Grant) *emergency.Grant {
	c := *g
	if g.GrantedPermissions != nil {
		c.GrantedPermissions = append([]string(nil), g.GrantedPermissions...)
	}
	return &c
}

func copyAuditEntry(e *auditlog.Entry) *auditlog.Entry {
	c := *e
	return &c
}

// Pagination helpers.
type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}

func paginationOpts(f *role.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsPerm(f *permission.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAssign(f *assignment.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsPol(f *policy.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsGrant(f *emergency.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAudit(f *auditlog.QueryFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}
