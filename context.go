package guardian

import "context"

type contextKey int

const (
	ctxKeyTenantID contextKey = iota
	ctxKeyUserID
)

// WithTenant returns a context carrying the resolved tenant ID. The HTTP
// layer resolves the tenant once and the handlers pass it to the engine
// explicitly; this carrier exists for standalone use without Forge.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

// WithUser returns a context carrying the authenticated user ID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

func tenantIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyTenantID).(string)
	if !ok {
		return ""
	}
	return v
}

func userIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyUserID).(string)
	if !ok {
		return ""
	}
	return v
}
