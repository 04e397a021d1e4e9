// Package store defines the aggregate persistence interface. Each subsystem
// (permission, role, assignment, policy, emergency, auditlog) defines its own
// store interface; the composite Store composes them all.
// Backends: Postgres, SQLite, and Memory.
package store

import (
	"context"

	"github.com/medplane/guardian/assignment"
	"github.com/medplane/guardian/auditlog"
	"github.com/medplane/guardian/emergency"
	"github.com/medplane/guardian/permission"
	"github.com/medplane/guardian/policy"
	"github.com/medplane/guardian/role"
)

// Store is the aggregate persistence interface. A single backend (postgres,
// sqlite, memory) implements every subsystem store.
type Store interface {
	permission.Store
	role.Store
	assignment.Store
	policy.Store
	emergency.Store
	auditlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
