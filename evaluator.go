package guardian

import (
	"strconv"
	"strings"
	"time"

	"github.com/medplane/guardian/policy"
)

// ConstraintEvaluator decides whether a policy's constraints are satisfied
// by a request context. Implementations must be pure: no I/O, no state, so
// evaluation stays deterministic and safe under concurrent invocation.
type ConstraintEvaluator interface {
	Evaluate(p *policy.Policy, ec *EvalContext) bool
}

// DefaultEvaluator returns the built-in constraint evaluator: effective
// window, temporal, locational, and contextual checks ANDed together.
func DefaultEvaluator() ConstraintEvaluator { return &constraintEvaluator{} }

type constraintEvaluator struct{}

func (e *constraintEvaluator) Evaluate(p *policy.Policy, ec *EvalContext) bool {
	return effectiveWindowSatisfied(p, ec.Now) &&
		temporalSatisfied(p, ec.Now) &&
		locationalSatisfied(p, ec.IPAddress) &&
		contextualSatisfied(p, ec)
}

// effectiveWindowSatisfied checks the policy's effective date range.
func effectiveWindowSatisfied(p *policy.Policy, now time.Time) bool {
	if p.EffectiveFrom != nil && now.Before(*p.EffectiveFrom) {
		return false
	}
	if p.EffectiveUntil != nil && !now.Before(*p.EffectiveUntil) {
		return false
	}
	return true
}

// temporalSatisfied checks day-of-week membership and the time-of-day
// window. A window whose end precedes its start denotes an overnight range
// (e.g. 22:00 to 06:00) and wraps across midnight.
func temporalSatisfied(p *policy.Policy, now time.Time) bool {
	if len(p.DaysOfWeek) > 0 {
		ok := false
		for _, d := range p.DaysOfWeek {
			if now.Weekday() == d {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if p.TimeOfDayStart == "" || p.TimeOfDayEnd == "" {
		return true
	}
	start, ok := parseTimeOfDay(p.TimeOfDayStart)
	if !ok {
		return false
	}
	end, ok := parseTimeOfDay(p.TimeOfDayEnd)
	if !ok {
		return false
	}

	cur := now.Hour()*60 + now.Minute()
	if end < start {
		// Overnight window wraps across midnight.
		return cur >= start || cur <= end
	}
	return cur >= start && cur <= end
}

// parseTimeOfDay parses "HH:MM" into minutes since midnight. A malformed
// value means the constraint cannot be satisfied, never that it passes.
func parseTimeOfDay(s string) (int, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// locationalSatisfied checks the allowedIPs allow-list and the blockedIPs
// block-list. The lists are independent: a blocked IP is denied even when
// the allow-list would pass. An absent allowedIPs key means no restriction.
func locationalSatisfied(p *policy.Policy, ip string) bool {
	if v, ok := p.Conditions[policy.ConditionAllowedIPs]; ok {
		allowed, ok := stringList(v)
		if !ok {
			return false
		}
		if len(allowed) > 0 && !containsString(allowed, ip) {
			return false
		}
	}

	if v, ok := p.Conditions[policy.ConditionBlockedIPs]; ok {
		blocked, ok := stringList(v)
		if !ok {
			return false
		}
		if containsString(blocked, ip) {
			return false
		}
	}

	return true
}

// contextualSatisfied checks every remaining condition key against the
// context attributes with exact string equality. A missing or mismatched
// attribute fails the policy; so does a non-string condition value.
func contextualSatisfied(p *policy.Policy, ec *EvalContext) bool {
	for key, raw := range p.Conditions {
		if key == policy.ConditionAllowedIPs || key == policy.ConditionBlockedIPs {
			continue
		}
		want, ok := raw.(string)
		if !ok {
			return false
		}
		got, ok := ec.Attributes[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// stringList coerces a decoded JSON condition value into a string slice.
// Returns ok=false for anything malformed.
func stringList(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		return []string{val}, true
	default:
		return nil, false
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
