package guardian

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/role"
)

// PermissionSet is the union of permission codes a user effectively holds.
// It is computed per call and indexed for O(1) membership checks: exact
// codes in a map, subtree patterns ("module.*") in a small slice, and the
// full wildcard as a flag.
type PermissionSet struct {
	wildcard bool
	exact    map[string]struct{}
	patterns []string
}

func newPermissionSet() *PermissionSet {
	return &PermissionSet{exact: make(map[string]struct{})}
}

// Add inserts a held permission code into the set.
func (s *PermissionSet) Add(code string) {
	switch {
	case code == permission.Wildcard:
		s.wildcard = true
	case strings.HasSuffix(code, ".*"):
		if _, ok := s.exact[code]; !ok {
			s.exact[code] = struct{}{}
			s.patterns = append(s.patterns, code)
		}
	default:
		s.exact[code] = struct{}{}
	}
}

// Has reports whether the set satisfies the required permission code.
func (s *PermissionSet) Has(required string) bool {
	if s.wildcard {
		return true
	}
	if _, ok := s.exact[required]; ok {
		return true
	}
	for _, p := range s.patterns {
		if matchPermission(p, required) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct held codes, counting the wildcard as one.
func (s *PermissionSet) Len() int {
	n := len(s.exact)
	if s.wildcard {
		n++
	}
	return n
}

// Codes returns the held codes in sorted order.
func (s *PermissionSet) Codes() []string {
	codes := make([]string, 0, s.Len())
	if s.wildcard {
		codes = append(codes, permission.Wildcard)
	}
	for c := range s.exact {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// GetEffectivePermissions computes the union of permission codes the user
// holds right now: all permissions of every active role assignment
// (inherited roles included, grant validity windows enforced) plus the
// granted codes of any currently active emergency grant.
func (e *Engine) GetEffectivePermissions(ctx context.Context, tenantID, userID string) (*PermissionSet, error) {
	at := e.now()
	roles, err := e.userRoles(ctx, tenantID, userID, at)
	if err != nil {
		return nil, err
	}
	return e.permissionSetFor(ctx, tenantID, userID, roles, at)
}

// HasPermission reports whether the user's effective permission set
// satisfies the required code.
func (e *Engine) HasPermission(ctx context.Context, tenantID, userID, code string) (bool, error) {
	set, err := e.GetEffectivePermissions(ctx, tenantID, userID)
	if err != nil {
		return false, err
	}
	return set.Has(code), nil
}

// GetUserRoles returns the active roles a user holds, direct assignments
// expanded with inherited ancestors.
func (e *Engine) GetUserRoles(ctx context.Context, tenantID, userID string) ([]*role.Role, error) {
	return e.userRoles(ctx, tenantID, userID, e.now())
}

// userRoles resolves direct assignments at the given instant, expands them
// through the hierarchy, and drops inactive roles.
func (e *Engine) userRoles(ctx context.Context, tenantID, userID string, at time.Time) ([]*role.Role, error) {
	direct, err := e.store.ListRolesForUser(ctx, tenantID, userID, at)
	if err != nil {
		return nil, fmt.Errorf("list roles for user: %w", err)
	}
	if len(direct) == 0 {
		return nil, nil
	}

	roles := make([]*role.Role, 0, len(direct))
	for _, rid := range e.roleClosure(ctx, direct) {
		r, err := e.store.GetRole(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("resolve role %s: %w", rid, err)
		}
		if !r.IsActive {
			continue
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// permissionSetFor unions role-granted permission codes with the codes of
// the user's active emergency grants. Grant validity windows and emergency
// expiry are both enforced against at.
func (e *Engine) permissionSetFor(ctx context.Context, tenantID, userID string, roles []*role.Role, at time.Time) (*PermissionSet, error) {
	set := newPermissionSet()

	for _, r := range roles {
		perms, err := e.store.ListPermissionsByRole(ctx, r.ID, at)
		if err != nil {
			return nil, fmt.Errorf("list permissions for role %s: %w", r.ID, err)
		}
		for _, p := range perms {
			if !p.IsActive {
				continue
			}
			set.Add(p.Code)
		}
	}

	grants, err := e.store.ListActiveGrantsForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list emergency grants: %w", err)
	}
	for _, g := range grants {
		if !g.ActiveAt(at) {
			continue
		}
		for _, code := range g.GrantedPermissions {
			set.Add(code)
		}
	}

	return set, nil
}
