package guardian

import (
	"context"

	"github.com/xraph/forge"
)

// TenantScope is the resolved tenant and user identity for a request.
type TenantScope struct {
	TenantID string
	UserID   string
}

// ScopeFromContext extracts the request scope from forge.Scope or the
// standalone context carriers. The HTTP layer uses this once per request
// and passes the resolved IDs to the engine explicitly.
func ScopeFromContext(ctx context.Context) TenantScope {
	if s, ok := forge.ScopeFrom(ctx); ok {
		return TenantScope{
			TenantID: s.OrgID(),
			UserID:   forge.UserIDFromContext(ctx),
		}
	}
	return TenantScope{
		TenantID: tenantIDFromContext(ctx),
		UserID:   userIDFromContext(ctx),
	}
}
