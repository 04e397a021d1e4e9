package guardian

import "errors"

var (
	// ErrAccessDenied is returned when an enforced authorization check
	// fails. Authorize itself reports denial through Result, not errors.
	ErrAccessDenied = errors.New("guardian: access denied")

	// ErrValidation is returned for malformed requests, rejected before
	// any state change. Not retryable with the same input.
	ErrValidation = errors.New("guardian: validation failed")

	// ErrStateConflict is returned for invalid emergency state machine
	// transitions, or when a concurrent transition won the race.
	// Retryable after re-reading current state.
	ErrStateConflict = errors.New("guardian: state conflict")

	// ErrCyclicRoleInheritance is returned when a role parent edit would
	// make a role its own ancestor.
	ErrCyclicRoleInheritance = errors.New("guardian: cyclic role inheritance detected")

	// ErrSystemRoleImmutable is returned when trying to modify a system role.
	ErrSystemRoleImmutable = errors.New("guardian: system role cannot be modified")

	// ErrSystemPermissionImmutable is returned when trying to delete a
	// system permission.
	ErrSystemPermissionImmutable = errors.New("guardian: system permission cannot be deleted")

	// ErrStoreRequired is returned when an engine is built without a store.
	ErrStoreRequired = errors.New("guardian: store is required")
)
