package emergency

import (
	"context"
	"time"

	"github.com/medplane/guardian/id"
)

// Store defines persistence operations for emergency access grants.
type Store interface {
	// CreateGrant persists a new grant.
	CreateGrant(ctx context.Context, g *Grant) error

	// GetGrant retrieves a grant by ID.
	GetGrant(ctx context.Context, grantID id.GrantID) (*Grant, error)

	// UpdateGrant persists a state transition using an optimistic version
	// check: the write succeeds only when the stored version still equals
	// expectedVersion, in which case the grant's version is advanced.
	// Returns ErrVersionConflict when another transition won the race.
	UpdateGrant(ctx context.Context, g *Grant, expectedVersion int) error

	// ListEmergencyGrants returns grants matching the filter.
	ListEmergencyGrants(ctx context.Context, filter *ListFilter) ([]*Grant, error)

	// CountGrants returns the number of grants matching the filter.
	CountGrants(ctx context.Context, filter *ListFilter) (int64, error)

	// ListActiveGrantsForUser returns the user's grants in Active status.
	// Callers still check ActiveAt for lazy expiry.
	ListActiveGrantsForUser(ctx context.Context, tenantID, userID string) ([]*Grant, error)

	// ListOverdueGrants returns Active grants whose expiry has passed,
	// for the background sweep to transition to Expired.
	ListOverdueGrants(ctx context.Context, now time.Time) ([]*Grant, error)

	// DeleteGrantsByTenant removes all grants for a tenant. Reserved for
	// retention tooling; normal operation never deletes grants.
	DeleteGrantsByTenant(ctx context.Context, tenantID string) error
}
