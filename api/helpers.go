package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/forge"

	"github.com/medplane/guardian"
	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/auditlog"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, guardian.ErrValidation) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, guardian.ErrStateConflict) || errors.Is(err, emergency.ErrVersionConflict) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, guardian.ErrCyclicRoleInheritance) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, guardian.ErrSystemRoleImmutable) || errors.Is(err, guardian.ErrSystemPermissionImmutable) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, guardian.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, role.ErrNotFound) ||
		errors.Is(err, permission.ErrNotFound) ||
		errors.Is(err, assignment.ErrNotFound) ||
		errors.Is(err, policy.ErrNotFound) ||
		errors.Is(err, emergency.ErrNotFound) ||
		errors.Is(err, auditlog.ErrNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

// parseTimestamp parses an optional RFC3339 query parameter.
func parseTimestamp(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid %s timestamp: %v", name, err))
	}
	return &t, nil
}
