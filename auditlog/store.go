package auditlog

import (
	"context"
	"time"

	"github.com/medplane/guardian/id"
)

// Store defines persistence operations for the authorization audit log.
type Store interface {
	// InsertEntry persists a new audit entry.
	InsertEntry(ctx context.Context, e *Entry) error

	// GetEntry retrieves an audit entry by ID.
	GetEntry(ctx context.Context, entryID id.AuditEntryID) (*Entry, error)

	// QueryEntries returns entries matching the filter, newest first.
	QueryEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountEntries returns the number of entries matching the filter.
	CountEntries(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeEntriesBefore removes entries created before the cutoff.
	// Returns the number removed.
	PurgeEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteEntriesByTenant removes all entries for a tenant.
	DeleteEntriesByTenant(ctx context.Context, tenantID string) error
}
