// Package middleware provides HTTP authorization middleware for Guardian.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/medplane/guardian"
)

// Check names one action/resource pair for the composite middlewares.
type Check struct {
	Action   string
	Resource string
}

// Require enforces authorization. The user is resolved from the request
// context (Authsome user, anonymous otherwise), the tenant from the
// :tenantId route parameter.
func Require(eng *guardian.Engine, action, resource string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			tenantID := ctx.Param("tenantId")
			userID := resolveUser(ctx)

			err := eng.Enforce(ctx.Context(), tenantID, userID, action, resource, nil)
			if err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if ANY of the checks pass.
func RequireAny(eng *guardian.Engine, checks ...Check) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			tenantID := ctx.Param("tenantId")
			userID := resolveUser(ctx)
			for _, c := range checks {
				result, err := eng.Authorize(ctx.Context(), tenantID, userID, c.Action, c.Resource, nil)
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL checks pass.
func RequireAll(eng *guardian.Engine, checks ...Check) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			tenantID := ctx.Param("tenantId")
			userID := resolveUser(ctx)
			for _, c := range checks {
				if err := eng.Enforce(ctx.Context(), tenantID, userID, c.Action, c.Resource, nil); err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// resolveUser extracts the acting user from context.
// Priority: Forge user ID (from Authsome) → anonymous.
func resolveUser(ctx forge.Context) string {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return userID
	}
	return "anonymous"
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
