package authlog

import (
	"context"
	"time"

	"github.com/xraph/custodian/id"
)

// Store defines persistence operations for access audit logs.
type Store interface {
	// CreateAuditEntry persists a new audit entry.
	CreateAuditEntry(ctx context.Context, e *Entry) error

	// GetAuditEntry retrieves an audit entry by ID.
	GetAuditEntry(ctx context.Context, entryID id.AuditLogID) (*Entry, error)

	// ListAuditEntries returns audit entries matching the filter.
	ListAuditEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountAuditEntries returns the number of entries matching the filter.
	CountAuditEntries(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeAuditEntries removes entries older than the given time.
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)

	// DeleteAuditEntriesByGateway removes all entries for a gateway.
	DeleteAuditEntriesByGateway(ctx context.Context, gatewayID string) error
}
