package guardian

import "context"

// Cache provides optional caching for authorization results. Policy and
// role data are read-mostly but must take effect for subsequent evaluations
// without a restart, so every engine write path invalidates the tenant.
// Without a cache, every Authorize call re-reads from the store.
type Cache interface {
	// Get returns a cached result, if available.
	Get(ctx context.Context, tenantID, userID, action, resource string, ec *EvalContext) (*Result, bool)

	// Set stores an authorization result.
	Set(ctx context.Context, tenantID, userID, action, resource string, ec *EvalContext, result *Result)

	// InvalidateTenant removes all cached results for a tenant.
	InvalidateTenant(ctx context.Context, tenantID string)

	// InvalidateUser removes all cached results for a specific user.
	InvalidateUser(ctx context.Context, tenantID, userID string)
}
