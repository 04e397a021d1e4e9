package guardian

import (
	"strings"

	"github.com/medplane/guardian/policy"
)

// matchAction checks whether a policy's action set covers an action.
// An empty set matches everything.
func matchAction(actions []string, action string) bool {
	if len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == policy.Wildcard || a == action {
			return true
		}
	}
	return false
}

// matchResource checks whether a policy's resource set covers a resource.
// Patterns ending in '*' prefix-match with the trailing '*' stripped; an
// empty set matches everything.
func matchResource(patterns []string, resource string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if matchResourcePattern(p, resource) {
			return true
		}
	}
	return false
}

func matchResourcePattern(pattern, resource string) bool {
	if pattern == policy.Wildcard || pattern == resource {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(resource, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// matchPermission checks whether a held permission code satisfies a
// required code. Codes are dotted ("patient.record.read"); a held code
// ending in ".*" covers the whole subtree, and "*" covers everything.
func matchPermission(held, required string) bool {
	if held == required {
		return true
	}
	if held == "*" {
		return true
	}
	if strings.HasSuffix(held, ".*") {
		return strings.HasPrefix(required, strings.TrimSuffix(held, "*"))
	}
	return false
}
