// Package plugin defines the plugin system for Custodian.
// Plugins are notified of lifecycle events (access check performed,
// resource shared, credential resolved, etc.) and can react: logging,
// metrics, tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/custodian/sharing"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Access check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeAccessCheck is called before an access check is evaluated.
// domainID, principalID, entityID, and permission mirror the engine call.
type BeforeAccessCheck interface {
	OnBeforeAccessCheck(ctx context.Context, domainID, principalID, entityID, permission string) error
}

// AfterAccessCheck is called after an access check completes.
type AfterAccessCheck interface {
	OnAfterAccessCheck(ctx context.Context, domainID, principalID, entityID, permission string, allowed bool) error
}

// ──────────────────────────────────────────────────
// Sharing lifecycle hooks
// ──────────────────────────────────────────────────

// EntityShared is called after a share workflow grants a permission.
type EntityShared interface {
	OnEntityShared(ctx context.Context, domainID, entityID string, grantees []string, permission string) error
}

// SharingRevoked is called after a revoke workflow removes a permission.
type SharingRevoked interface {
	OnSharingRevoked(ctx context.Context, domainID, entityID string, grantees []string, permission string) error
}

// ──────────────────────────────────────────────────
// Resource lifecycle hooks
// ──────────────────────────────────────────────────

// ResourceCreated is called after a resource and its sharing entity exist.
type ResourceCreated interface {
	OnResourceCreated(ctx context.Context, e *sharing.Entity) error
}

// ResourceDeleted is called after a resource and its sharing entity are removed.
type ResourceDeleted interface {
	OnResourceDeleted(ctx context.Context, domainID, entityID string) error
}

// ──────────────────────────────────────────────────
// Credential resolution hooks
// ──────────────────────────────────────────────────

// CredentialResolved is called after a credential resolution succeeds.
// The token itself is never passed to hooks.
type CredentialResolved interface {
	OnCredentialResolved(ctx context.Context, gatewayID, userID, resourceID, loginUserName, provenance string) error
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Shutdown is called when the engine stops.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
