// Package authlog defines the access-decision audit log Entry entity.
package authlog

import (
	"errors"
	"time"

	"github.com/xraph/custodian/id"
)

// ErrNotFound is returned when an audit entry does not exist.
var ErrNotFound = errors.New("authlog: not found")

// Entry is a single access-check audit record.
type Entry struct {
	ID         id.AuditLogID `json:"id" db:"id"`
	GatewayID  string        `json:"gateway_id" db:"gateway_id"`
	UserID     string        `json:"user_id" db:"user_id"`
	EntityID   string        `json:"entity_id" db:"entity_id"`
	Permission string        `json:"permission" db:"permission"`
	Allowed    bool          `json:"allowed" db:"allowed"`
	Reason     string        `json:"reason,omitempty" db:"reason"`
	EvalTimeNs int64         `json:"eval_time_ns" db:"eval_time_ns"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	GatewayID  string     `json:"gateway_id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	Permission string     `json:"permission,omitempty"`
	Allowed    *bool      `json:"allowed,omitempty"`
	After      *time.Time `json:"after,omitempty"`
	Before     *time.Time `json:"before,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
