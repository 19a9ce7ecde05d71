// Package group defines the per-gateway admin group records and their
// lazy provisioning interface.
package group

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a gateway has no groups record yet. The
// engine reacts by invoking the Provisioner.
var ErrNotFound = errors.New("group: not found")

// GatewayGroups names the fixed admin groups of one gateway. They are the
// target of auto-sharing when privileged resources are created.
type GatewayGroups struct {
	GatewayID             string    `json:"gateway_id" db:"gateway_id"`
	AdminsGroupID         string    `json:"admins_group_id" db:"admins_group_id"`
	ReadOnlyAdminsGroupID string    `json:"read_only_admins_group_id" db:"read_only_admins_group_id"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// Store defines persistence operations for gateway group records.
type Store interface {
	// GetGatewayGroups retrieves the groups record for a gateway.
	GetGatewayGroups(ctx context.Context, gatewayID string) (*GatewayGroups, error)

	// SaveGatewayGroups creates or replaces the groups record for a gateway.
	SaveGatewayGroups(ctx context.Context, g *GatewayGroups) error
}

// Provisioner creates the admin groups for a gateway that has none.
// It is called lazily the first time a gateway's groups are needed.
type Provisioner interface {
	// Initialize creates the admins and read-only-admins groups for the
	// gateway and returns their ids. It must be safe to call for a gateway
	// that is provisioned concurrently elsewhere.
	Initialize(ctx context.Context, gatewayID string) (*GatewayGroups, error)
}
