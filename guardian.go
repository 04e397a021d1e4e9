// Package guardian provides the access-control decision engine for a
// multi-tenant healthcare platform.
//
// Guardian combines role-derived permission checks (RBAC) with
// attribute-based access policies (ABAC) covering time-of-day, IP, and
// arbitrary contextual attributes, and layers a time-boxed emergency-access
// workflow on top. Every sensitive action passes through two independent gates: the
// user's effective permission set must contain the required permission code,
// and the policy engine must resolve to Allow. The system is deny-by-default.
//
//	eng, err := guardian.NewEngine(
//	    guardian.WithStore(memStore),
//	)
//	result, err := eng.Authorize(ctx, "t1", "u1", "read", "patient.record", &guardian.EvalContext{
//	    IPAddress: "10.0.1.5",
//	})
package guardian

import (
	"time"

	"github.com/medplane/guardian/policy"
)

// EvalContext carries the request-scoped attributes a policy evaluation
// runs against. It is ephemeral and never persisted.
type EvalContext struct {
	// UserID is filled in by the engine from the Authorize call when empty.
	UserID string `json:"user_id,omitempty"`

	// Now is the evaluation instant. Zero means the engine clock.
	Now time.Time `json:"now,omitempty"`

	// IPAddress is the caller's client IP as resolved by the HTTP layer.
	IPAddress string `json:"ip_address,omitempty"`

	// Location is an optional coarse location label.
	Location string `json:"location,omitempty"`

	// Attributes are arbitrary contextual key/value pairs matched by
	// policy conditions with exact string equality.
	Attributes map[string]string `json:"attributes,omitempty"`

	// RiskScore is an optional upstream risk signal, available to
	// contextual conditions via the "riskScore" attribute.
	RiskScore float64 `json:"risk_score,omitempty"`
}

// Decision is the authorization outcome code.
type Decision string

const (
	// DecisionAllow means the request is permitted.
	DecisionAllow Decision = "allow"

	// DecisionDenyExplicit means a satisfied Deny policy won.
	DecisionDenyExplicit Decision = "deny_explicit"

	// DecisionDenyDefault means no policy resolved to Allow.
	DecisionDenyDefault Decision = "deny_default"

	// DecisionDenyNoRoles means the user holds no active roles.
	DecisionDenyNoRoles Decision = "deny_no_roles"

	// DecisionDenyNoPermission means no role grants the required
	// permission code.
	DecisionDenyNoPermission Decision = "deny_no_permission"
)

// Gate identifies which of the two independent authorization gates decided.
type Gate string

const (
	// GatePermission is the role-derived permission gate.
	GatePermission Gate = "permission"

	// GatePolicy is the policy decision gate.
	GatePolicy Gate = "policy"
)

// Result is the outcome of an Authorize call. Deny is a valid outcome, not
// an error: a non-nil Result with Allowed=false means the engine ran
// correctly and said no.
type Result struct {
	Allowed    bool     `json:"allowed"`
	Decision   Decision `json:"decision"`
	Gate       Gate     `json:"gate,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	PolicyName string   `json:"policy_name,omitempty"`
	Priority   int      `json:"priority,omitempty"`
	EvalTimeNs int64    `json:"eval_time_ns"`
}

// PolicyDecision is the reduced outcome of evaluating the applicable policy
// set, or the per-policy record feeding that reduction.
type PolicyDecision struct {
	Effect     policy.Effect `json:"effect"`
	IsAllowed  bool          `json:"is_allowed"`
	Satisfied  bool          `json:"satisfied"`
	Priority   int           `json:"priority"`
	PolicyName string        `json:"policy_name,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}
