package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/medplane/guardian/auditlog"
	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/plugin"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/store"
)

// DepartmentResolver maps a user to the departments they belong to, for
// policies targeting departments. Without one, departments are derived from
// the DepartmentID of the user's held roles.
type DepartmentResolver interface {
	DepartmentsForUser(ctx context.Context, tenantID, userID string) ([]string, error)
}

// AuthorizeRequest bundles the parameters of an authorization call for
// plugin hooks and batch evaluation.
type AuthorizeRequest struct {
	TenantID string       `json:"tenant_id"`
	UserID   string       `json:"user_id"`
	Action   string       `json:"action"`
	Resource string       `json:"resource"`
	Context  *EvalContext `json:"context,omitempty"`
}

// Engine is the central access-control engine. It coordinates the
// permission gate (role-derived) and the policy gate (attribute-based),
// runs the emergency access workflow, and fires plugin hooks. The engine
// keeps no per-request state; every Authorize call reads current data from
// the store.
type Engine struct {
	store       store.Store
	evaluator   ConstraintEvaluator
	cache       Cache
	plugins     *plugin.Registry
	logger      *slog.Logger
	config      Config
	now         func() time.Time
	departments DepartmentResolver

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// NewEngine creates a new Guardian engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		evaluator: DefaultEvaluator(),
		logger:    slog.Default(),
		config:    DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, ErrStoreRequired
	}
	if e.config.MaxRoleDepth <= 0 {
		e.config.MaxRoleDepth = DefaultConfig().MaxRoleDepth
	}
	if e.config.SyntheticPolicyPriority <= 0 {
		e.config.SyntheticPolicyPriority = DefaultConfig().SyntheticPolicyPriority
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start launches the background sweep that expires overdue emergency
// grants. A zero SweepInterval disables it; lazy expiry at evaluation time
// still applies.
func (e *Engine) Start(_ context.Context) error {
	if e.config.SweepInterval <= 0 {
		return nil
	}
	sweepCtx, cancel := context.WithCancel(context.Background())
	e.sweepCancel = cancel
	e.sweepDone = make(chan struct{})
	go e.runSweep(sweepCtx)
	return nil
}

// Stop halts the background sweep and notifies shutdown hooks.
func (e *Engine) Stop(ctx context.Context) error {
	if e.sweepCancel != nil {
		e.sweepCancel()
		<-e.sweepDone
		e.sweepCancel = nil
	}
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

func (e *Engine) runSweep(ctx context.Context) {
	defer close(e.sweepDone)
	ticker := time.NewTicker(e.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := e.ExpireOverdueGrants(ctx); err != nil {
				e.logger.Error("emergency sweep failed", slog.String("error", err.Error()))
			} else if n > 0 {
				e.logger.Info("expired overdue emergency grants", slog.Int("count", n))
			}
		}
	}
}

// Authorize decides whether a user may perform an action on a resource.
// This is the hot path. The decision requires both gates to pass: the
// user's effective permission set must contain "<resource>.<action>", and
// the policy engine must resolve to Allow. Deny is reported through the
// Result, not an error; an error means the decision could not be computed
// and callers must treat it as deny.
func (e *Engine) Authorize(ctx context.Context, tenantID, userID, action, resource string, ec *EvalContext) (*Result, error) {
	start := time.Now()
	if tenantID == "" || userID == "" || action == "" || resource == "" {
		return nil, fmt.Errorf("%w: tenant, user, action, and resource are required", ErrValidation)
	}
	ec = e.normalizeContext(userID, ec)

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, tenantID, userID, action, resource, ec); ok {
			cached.EvalTimeNs = time.Since(start).Nanoseconds()
			return cached, nil
		}
	}

	req := &AuthorizeRequest{TenantID: tenantID, UserID: userID, Action: action, Resource: resource, Context: ec}
	if e.plugins != nil {
		e.plugins.EmitBeforeAuthorize(ctx, req)
	}

	result, err := e.decide(ctx, tenantID, userID, action, resource, ec)
	if err != nil {
		return nil, err
	}
	result.EvalTimeNs = time.Since(start).Nanoseconds()

	if e.cache != nil {
		e.cache.Set(ctx, tenantID, userID, action, resource, ec, result)
	}
	if e.plugins != nil {
		e.plugins.EmitAfterAuthorize(ctx, req, result)
	}
	e.recordAudit(ctx, tenantID, userID, action, resource, ec, result)

	return result, nil
}

func (e *Engine) decide(ctx context.Context, tenantID, userID, action, resource string, ec *EvalContext) (*Result, error) {
	// Gate 1: role-derived permissions.
	roles, err := e.userRoles(ctx, tenantID, userID, ec.Now)
	if err != nil {
		return nil, fmt.Errorf("guardian rbac: %w", err)
	}
	perms, err := e.permissionSetFor(ctx, tenantID, userID, roles, ec.Now)
	if err != nil {
		return nil, fmt.Errorf("guardian rbac: %w", err)
	}

	if len(roles) == 0 && perms.Len() == 0 {
		return &Result{
			Decision: DecisionDenyNoRoles,
			Gate:     GatePermission,
			Reason:   "user has no active roles",
		}, nil
	}

	required := resource + "." + action
	if !perms.Has(required) {
		return &Result{
			Decision: DecisionDenyNoPermission,
			Gate:     GatePermission,
			Reason:   "effective permissions do not include " + required,
		}, nil
	}

	// Gate 2: policy evaluation.
	pd, err := e.evaluatePoliciesFor(ctx, tenantID, userID, action, resource, roles, ec)
	if err != nil {
		return nil, fmt.Errorf("guardian abac: %w", err)
	}
	if !pd.IsAllowed {
		decision := DecisionDenyDefault
		if pd.Satisfied && pd.Effect == policy.EffectDeny {
			decision = DecisionDenyExplicit
		}
		return &Result{
			Decision:   decision,
			Gate:       GatePolicy,
			Reason:     pd.Reason,
			PolicyName: pd.PolicyName,
			Priority:   pd.Priority,
		}, nil
	}

	return &Result{
		Allowed:    true,
		Decision:   DecisionAllow,
		Reason:     pd.Reason,
		PolicyName: pd.PolicyName,
		Priority:   pd.Priority,
	}, nil
}

// Enforce returns ErrAccessDenied when the request is denied, nil when
// allowed.
func (e *Engine) Enforce(ctx context.Context, tenantID, userID, action, resource string, ec *EvalContext) error {
	result, err := e.Authorize(ctx, tenantID, userID, action, resource, ec)
	if err != nil {
		return fmt.Errorf("guardian authorize: %w", err)
	}
	if !result.Allowed {
		return fmt.Errorf("%w: %s: %s", ErrAccessDenied, result.Decision, result.Reason)
	}
	return nil
}

// Can is a boolean shorthand over Authorize.
func (e *Engine) Can(ctx context.Context, tenantID, userID, action, resource string) (bool, error) {
	result, err := e.Authorize(ctx, tenantID, userID, action, resource, nil)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// normalizeContext fills engine-owned defaults into a shallow copy of the
// caller's context so the original is never mutated.
func (e *Engine) normalizeContext(userID string, ec *EvalContext) *EvalContext {
	var out EvalContext
	if ec != nil {
		out = *ec
	}
	if out.UserID == "" {
		out.UserID = userID
	}
	if out.Now.IsZero() {
		out.Now = e.now()
	}
	if out.RiskScore != 0 {
		attrs := make(map[string]string, len(out.Attributes)+1)
		for k, v := range out.Attributes {
			attrs[k] = v
		}
		if _, ok := attrs["riskScore"]; !ok {
			attrs["riskScore"] = strconv.FormatFloat(out.RiskScore, 'f', -1, 64)
		}
		out.Attributes = attrs
	}
	return &out
}

// recordAudit writes the decision trail entry without blocking the caller.
// Failures are logged and never surfaced.
func (e *Engine) recordAudit(ctx context.Context, tenantID, userID, action, resource string, ec *EvalContext, result *Result) {
	entry := &auditlog.Entry{
		ID:         id.NewAuditEntryID(),
		TenantID:   tenantID,
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		Allowed:    result.Allowed,
		Decision:   string(result.Decision),
		Gate:       string(result.Gate),
		Reason:     result.Reason,
		IPAddress:  ec.IPAddress,
		EvalTimeNs: result.EvalTimeNs,
		CreatedAt:  ec.Now,
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := e.store.InsertEntry(bg, entry); err != nil {
			e.logger.Warn("audit entry write failed",
				slog.String("tenant_id", tenantID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// invalidate drops cached decisions for a tenant after a write.
func (e *Engine) invalidate(ctx context.Context, tenantID string) {
	if e.cache != nil {
		e.cache.InvalidateTenant(ctx, tenantID)
	}
}

// invalidateUser drops cached decisions for a single user.
func (e *Engine) invalidateUser(ctx context.Context, tenantID, userID string) {
	if e.cache != nil {
		e.cache.InvalidateUser(ctx, tenantID, userID)
	}
}
