package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/medplane/guardian/id"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
)

// EvaluatePolicies runs the policy gate alone: applicable policies are
// constraint-evaluated and reduced with deny-override, then the
// highest-priority satisfied Allow, else default deny. The reduction is
// deterministic for a fixed input set.
func (e *Engine) EvaluatePolicies(ctx context.Context, tenantID, userID, action, resource string, ec *EvalContext) (*PolicyDecision, error) {
	ec = e.normalizeContext(userID, ec)
	roles, err := e.userRoles(ctx, tenantID, userID, ec.Now)
	if err != nil {
		return nil, err
	}
	return e.evaluatePoliciesFor(ctx, tenantID, userID, action, resource, roles, ec)
}

// GetApplicablePolicies returns the active policies whose selectors cover
// the user and whose action/resource sets cover the request, ordered by
// priority descending (name ascending as tiebreak).
func (e *Engine) GetApplicablePolicies(ctx context.Context, tenantID, userID, action, resource string) ([]*policy.Policy, error) {
	at := e.now()
	roles, err := e.userRoles(ctx, tenantID, userID, at)
	if err != nil {
		return nil, err
	}
	return e.applicablePolicies(ctx, tenantID, userID, action, resource, roles, at)
}

func (e *Engine) evaluatePoliciesFor(ctx context.Context, tenantID, userID, action, resource string, roles []*role.Role, ec *EvalContext) (*PolicyDecision, error) {
	applicable, err := e.applicablePolicies(ctx, tenantID, userID, action, resource, roles, ec.Now)
	if err != nil {
		return nil, err
	}

	e.bumpCounters(ctx, applicable, ec.Now)

	// Deny-override: any satisfied Deny wins regardless of priority. The
	// loop keeps scanning after the first satisfied Allow so a
	// lower-priority Deny still overrides it.
	var allowed *policy.Policy
	for _, p := range applicable {
		if !e.evaluator.Evaluate(p, ec) {
			continue
		}
		if p.Effect == policy.EffectDeny {
			return &PolicyDecision{
				Effect:     policy.EffectDeny,
				Satisfied:  true,
				Priority:   p.Priority,
				PolicyName: p.Name,
				Reason:     fmt.Sprintf("denied by policy %q (priority %d)", p.Name, p.Priority),
			}, nil
		}
		if allowed == nil {
			allowed = p
		}
	}

	if allowed != nil {
		return &PolicyDecision{
			Effect:     policy.EffectAllow,
			IsAllowed:  true,
			Satisfied:  true,
			Priority:   allowed.Priority,
			PolicyName: allowed.Name,
			Reason:     fmt.Sprintf("allowed by policy %q (priority %d)", allowed.Name, allowed.Priority),
		}, nil
	}

	return &PolicyDecision{
		Effect: policy.EffectDeny,
		Reason: "no policy allows this request",
	}, nil
}

// applicablePolicies filters the tenant's active policies down to the ones
// targeting this user and covering the requested action and resource.
// Synthetic policies past their hard expiry are excluded even before the
// sweep deletes them.
func (e *Engine) applicablePolicies(ctx context.Context, tenantID, userID, action, resource string, roles []*role.Role, at time.Time) ([]*policy.Policy, error) {
	all, err := e.store.ListActivePolicies(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active policies: %w", err)
	}

	var depts []string
	deptsResolved := false

	applicable := make([]*policy.Policy, 0, len(all))
	for _, p := range all {
		if p.Synthetic && p.ExpiredAt(at) {
			continue
		}
		if p.TargetsNobody() {
			continue
		}
		if !matchAction(p.Actions, action) || !matchResource(p.Resources, resource) {
			continue
		}

		targeted := targetsUser(p, userID) || targetsAnyRole(p, roles)
		if !targeted && len(p.AppliesToDepartments) > 0 {
			if !deptsResolved {
				depts, err = e.userDepartments(ctx, tenantID, userID, roles)
				if err != nil {
					return nil, err
				}
				deptsResolved = true
			}
			targeted = targetsAnyDepartment(p, depts)
		}
		if !targeted {
			continue
		}
		applicable = append(applicable, p)
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		if applicable[i].Priority != applicable[j].Priority {
			return applicable[i].Priority > applicable[j].Priority
		}
		return applicable[i].Name < applicable[j].Name
	})
	return applicable, nil
}

func targetsUser(p *policy.Policy, userID string) bool {
	for _, u := range p.AppliesToUsers {
		if u == policy.Wildcard || u == userID {
			return true
		}
	}
	return false
}

func targetsAnyRole(p *policy.Policy, roles []*role.Role) bool {
	if len(p.AppliesToRoles) == 0 {
		return false
	}
	for _, sel := range p.AppliesToRoles {
		if sel == policy.Wildcard && len(roles) > 0 {
			return true
		}
		for _, r := range roles {
			if sel == r.Code {
				return true
			}
		}
	}
	return false
}

func targetsAnyDepartment(p *policy.Policy, depts []string) bool {
	for _, sel := range p.AppliesToDepartments {
		if sel == policy.Wildcard && len(depts) > 0 {
			return true
		}
		for _, d := range depts {
			if sel == d {
				return true
			}
		}
	}
	return false
}

// userDepartments resolves the user's departments through the configured
// resolver, falling back to the departments of their held roles.
func (e *Engine) userDepartments(ctx context.Context, tenantID, userID string, roles []*role.Role) ([]string, error) {
	if e.departments != nil {
		depts, err := e.departments.DepartmentsForUser(ctx, tenantID, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve departments: %w", err)
		}
		return depts, nil
	}
	seen := make(map[string]struct{})
	var depts []string
	for _, r := range roles {
		if r.DepartmentID == "" {
			continue
		}
		if _, ok := seen[r.DepartmentID]; ok {
			continue
		}
		seen[r.DepartmentID] = struct{}{}
		depts = append(depts, r.DepartmentID)
	}
	return depts, nil
}

// bumpCounters records that the given policies were evaluated. Fire and
// forget: the write happens off the request path and a lost increment is
// acceptable.
func (e *Engine) bumpCounters(ctx context.Context, policies []*policy.Policy, at time.Time) {
	if len(policies) == 0 {
		return
	}
	ids := make([]id.PolicyID, len(policies))
	for i, p := range policies {
		ids[i] = p.ID
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := e.store.IncrementEvaluations(bg, ids, at); err != nil {
			e.logger.Warn("policy counter update failed", slog.String("error", err.Error()))
		}
	}()
}
