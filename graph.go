package guardian

import (
	"context"
	"fmt"

	"github.com/medplane/guardian/id"
)

// roleClosure expands the given role IDs with every ancestor reachable
// through the single-parent hierarchy. Traversal is cycle-safe via the seen
// set and capped at Config.MaxRoleDepth so a corrupted graph degrades to a
// partial closure instead of a hang.
func (e *Engine) roleClosure(ctx context.Context, roleIDs []id.RoleID) []id.RoleID {
	seen := make(map[string]struct{}, len(roleIDs))
	result := make([]id.RoleID, 0, len(roleIDs)*2)

	for _, rid := range roleIDs {
		e.walkRoleParents(ctx, rid, seen, &result, 0)
	}
	return result
}

func (e *Engine) walkRoleParents(ctx context.Context, roleID id.RoleID, seen map[string]struct{}, result *[]id.RoleID, depth int) {
	key := roleID.String()
	if _, ok := seen[key]; ok {
		return
	}
	if depth > e.config.MaxRoleDepth {
		return
	}
	seen[key] = struct{}{}
	*result = append(*result, roleID)

	r, err := e.store.GetRole(ctx, roleID)
	if err != nil || r == nil || r.ParentID == nil {
		return
	}
	e.walkRoleParents(ctx, *r.ParentID, seen, result, depth+1)
}

// wouldCreateCycle reports whether setting parentID as the parent of roleID
// would make roleID its own ancestor.
func (e *Engine) wouldCreateCycle(ctx context.Context, roleID, parentID id.RoleID) (bool, error) {
	if roleID.String() == parentID.String() {
		return true, nil
	}

	current := parentID
	for depth := 0; depth <= e.config.MaxRoleDepth; depth++ {
		r, err := e.store.GetRole(ctx, current)
		if err != nil {
			return false, fmt.Errorf("resolve role %s: %w", current, err)
		}
		if r.ParentID == nil {
			return false, nil
		}
		if r.ParentID.String() == roleID.String() {
			return true, nil
		}
		current = *r.ParentID
	}

	// Depth cap exceeded: treat as cyclic rather than corrupt the graph
	// further.
	return true, nil
}
