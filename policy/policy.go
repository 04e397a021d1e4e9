// Package policy defines the tenant-scoped access policy entity combining
// target selectors with temporal, locational, and contextual constraints.
package policy

import (
	"errors"
	"time"

	"github.com/medplane/guardian/id"
)

// ErrNotFound is returned when a policy cannot be found.
var ErrNotFound = errors.New("guardian: policy not found")

// Effect is the policy outcome, allow or deny.
type Effect string

const (
	// EffectAllow permits matching requests.
	EffectAllow Effect = "allow"

	// EffectDeny blocks matching requests.
	EffectDeny Effect = "deny"
)

// Condition keys with special locational semantics. Every other key in
// Conditions is matched as an exact string equality against the request
// context attributes.
const (
	// ConditionAllowedIPs is an allow-list of client IPs. Absence of the
	// key means no restriction.
	ConditionAllowedIPs = "allowedIPs"

	// ConditionBlockedIPs is a block-list of client IPs, checked
	// independently of the allow-list.
	ConditionBlockedIPs = "blockedIPs"
)

// Wildcard matches any action or resource.
const Wildcard = "*"

// Policy is a tenant-scoped access rule. A policy applies to a request when
// any of its target selectors matches the user (directly, via a held role,
// or via a department) and its action/resource sets cover the request. An
// empty Actions or Resources set matches everything; a policy whose selector
// sets are all empty targets nobody.
//
// Selector lists and Conditions are decoded once on load into typed fields;
// evaluation never re-parses JSON.
type Policy struct {
	ID          id.PolicyID `json:"id" db:"id"`
	TenantID    string      `json:"tenant_id" db:"tenant_id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description,omitempty" db:"description"`
	Effect      Effect      `json:"effect" db:"effect"`
	Priority    int         `json:"priority" db:"priority"`
	IsActive    bool        `json:"is_active" db:"is_active"`

	// Target selectors, OR'd together.
	AppliesToUsers       []string `json:"applies_to_users,omitempty" db:"-"`
	AppliesToRoles       []string `json:"applies_to_roles,omitempty" db:"-"`
	AppliesToDepartments []string `json:"applies_to_departments,omitempty" db:"-"`

	// Action and resource coverage. Resources support a trailing-'*'
	// prefix match.
	Actions   []string `json:"actions,omitempty" db:"-"`
	Resources []string `json:"resources,omitempty" db:"-"`

	// Temporal constraints.
	EffectiveFrom  *time.Time     `json:"effective_from,omitempty" db:"effective_from"`
	EffectiveUntil *time.Time     `json:"effective_until,omitempty" db:"effective_until"`
	DaysOfWeek     []time.Weekday `json:"days_of_week,omitempty" db:"-"`
	TimeOfDayStart string         `json:"time_of_day_start,omitempty" db:"time_of_day_start"`
	TimeOfDayEnd   string         `json:"time_of_day_end,omitempty" db:"time_of_day_end"`

	// Locational and contextual constraints, keyed by attribute name.
	Conditions map[string]any `json:"conditions,omitempty" db:"-"`

	// Synthetic marks an engine-generated policy backing an emergency
	// access grant. Synthetic policies expire hard at ExpiresAt and are
	// deleted, never deactivated, on revocation.
	Synthetic bool       `json:"synthetic,omitempty" db:"synthetic"`
	GrantID   id.GrantID `json:"grant_id,omitempty" db:"grant_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`

	// Best-effort observability counters; concurrent increments may race
	// and undercount.
	EvaluationCount int64      `json:"evaluation_count" db:"evaluation_count"`
	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty" db:"last_evaluated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TargetsNobody reports whether every selector set is empty. Such a policy
// applies to no one.
func (p *Policy) TargetsNobody() bool {
	return len(p.AppliesToUsers) == 0 &&
		len(p.AppliesToRoles) == 0 &&
		len(p.AppliesToDepartments) == 0
}

// ExpiredAt reports whether a synthetic policy's hard expiry has passed.
// Non-synthetic policies never hard-expire (their effective window is part
// of constraint evaluation instead).
func (p *Policy) ExpiredAt(t time.Time) bool {
	return p.ExpiresAt != nil && !t.Before(*p.ExpiresAt)
}

// ListFilter contains filters for listing policies.
type ListFilter struct {
	TenantID  string `json:"tenant_id,omitempty"`
	Effect    Effect `json:"effect,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`
	Synthetic *bool  `json:"synthetic,omitempty"`
	Search    string `json:"search,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}
