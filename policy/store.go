package policy

import (
	"context"
	"time"

	"github.com/medplane/guardian/id"
)

// Store defines persistence operations for access policies.
type Store interface {
	// CreatePolicy persists a new policy.
	CreatePolicy(ctx context.Context, p *Policy) error

	// GetPolicy retrieves a policy by ID.
	GetPolicy(ctx context.Context, polID id.PolicyID) (*Policy, error)

	// GetPolicyByName retrieves a policy by tenant and name.
	GetPolicyByName(ctx context.Context, tenantID, name string) (*Policy, error)

	// UpdatePolicy persists changes to a policy.
	UpdatePolicy(ctx context.Context, p *Policy) error

	// DeletePolicy removes a policy by ID. Admin-authored policies are
	// soft-deactivated instead while referenced by audit history; hard
	// deletion is reserved for synthetic policies.
	DeletePolicy(ctx context.Context, polID id.PolicyID) error

	// ListPolicies returns policies matching the filter.
	ListPolicies(ctx context.Context, filter *ListFilter) ([]*Policy, error)

	// CountPolicies returns the number of policies matching the filter.
	CountPolicies(ctx context.Context, filter *ListFilter) (int64, error)

	// ListActivePolicies returns all active policies for a tenant.
	ListActivePolicies(ctx context.Context, tenantID string) ([]*Policy, error)

	// IncrementEvaluations bumps the evaluation counter and timestamp on
	// every listed policy. Best-effort: concurrent calls may race and
	// undercount, and implementations must not serialize readers to
	// prevent that.
	IncrementEvaluations(ctx context.Context, polIDs []id.PolicyID, at time.Time) error

	// DeletePoliciesByGrant removes all synthetic policies backing an
	// emergency access grant.
	DeletePoliciesByGrant(ctx context.Context, grantID id.GrantID) error

	// DeletePoliciesByTenant removes all policies for a tenant.
	DeletePoliciesByTenant(ctx context.Context, tenantID string) error
}
