package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/custodian/sharing"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeAccessCheckEntry struct {
	name string
	hook BeforeAccessCheck
}
type afterAccessCheckEntry struct {
	name string
	hook AfterAccessCheck
}
type entitySharedEntry struct {
	name string
	hook EntityShared
}
type sharingRevokedEntry struct {
	name string
	hook SharingRevoked
}
type resourceCreatedEntry struct {
	name string
	hook ResourceCreated
}
type resourceDeletedEntry struct {
	name string
	hook ResourceDeleted
}
type credentialResolvedEntry struct {
	name string
	hook CredentialResolved
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeAccessCheck  []beforeAccessCheckEntry
	afterAccessCheck   []afterAccessCheckEntry
	entityShared       []entitySharedEntry
	sharingRevoked     []sharingRevokedEntry
	resourceCreated    []resourceCreatedEntry
	resourceDeleted    []resourceDeletedEntry
	credentialResolved []credentialResolvedEntry
	shutdown           []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeAccessCheck); ok {
		r.beforeAccessCheck = append(r.beforeAccessCheck, beforeAccessCheckEntry{name, h})
	}
	if h, ok := p.(AfterAccessCheck); ok {
		r.afterAccessCheck = append(r.afterAccessCheck, afterAccessCheckEntry{name, h})
	}
	if h, ok := p.(EntityShared); ok {
		r.entityShared = append(r.entityShared, entitySharedEntry{name, h})
	}
	if h, ok := p.(SharingRevoked); ok {
		r.sharingRevoked = append(r.sharingRevoked, sharingRevokedEntry{name, h})
	}
	if h, ok := p.(ResourceCreated); ok {
		r.resourceCreated = append(r.resourceCreated, resourceCreatedEntry{name, h})
	}
	if h, ok := p.(ResourceDeleted); ok {
		r.resourceDeleted = append(r.resourceDeleted, resourceDeletedEntry{name, h})
	}
	if h, ok := p.(CredentialResolved); ok {
		r.credentialResolved = append(r.credentialResolved, credentialResolvedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Access check emitters
// ──────────────────────────────────────────────────

// EmitBeforeAccessCheck notifies all plugins that implement BeforeAccessCheck.
func (r *Registry) EmitBeforeAccessCheck(ctx context.Context, domainID, principalID, entityID, permission string) {
	for _, e := range r.beforeAccessCheck {
		if err := e.hook.OnBeforeAccessCheck(ctx, domainID, principalID, entityID, permission); err != nil {
			r.logHookError("OnBeforeAccessCheck", e.name, err)
		}
	}
}

// EmitAfterAccessCheck notifies all plugins that implement AfterAccessCheck.
func (r *Registry) EmitAfterAccessCheck(ctx context.Context, domainID, principalID, entityID, permission string, allowed bool) {
	for _, e := range r.afterAccessCheck {
		if err := e.hook.OnAfterAccessCheck(ctx, domainID, principalID, entityID, permission, allowed); err != nil {
			r.logHookError("OnAfterAccessCheck", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Sharing emitters
// ──────────────────────────────────────────────────

// EmitEntityShared notifies all plugins that implement EntityShared.
func (r *Registry) EmitEntityShared(ctx context.Context, domainID, entityID string, grantees []string, permission string) {
	for _, e := range r.entityShared {
		if err := e.hook.OnEntityShared(ctx, domainID, entityID, grantees, permission); err != nil {
			r.logHookError("OnEntityShared", e.name, err)
		}
	}
}

// EmitSharingRevoked notifies all plugins that implement SharingRevoked.
func (r *Registry) EmitSharingRevoked(ctx context.Context, domainID, entityID string, grantees []string, permission string) {
	for _, e := range r.sharingRevoked {
		if err := e.hook.OnSharingRevoked(ctx, domainID, entityID, grantees, permission); err != nil {
			r.logHookError("OnSharingRevoked", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Resource emitters
// ──────────────────────────────────────────────────

// EmitResourceCreated notifies all plugins that implement ResourceCreated.
func (r *Registry) EmitResourceCreated(ctx context.Context, e *sharing.Entity) {
	for _, en := range r.resourceCreated {
		if err := en.hook.OnResourceCreated(ctx, e); err != nil {
			r.logHookError("OnResourceCreated", en.name, err)
		}
	}
}

// EmitResourceDeleted notifies all plugins that implement ResourceDeleted.
func (r *Registry) EmitResourceDeleted(ctx context.Context, domainID, entityID string) {
	for _, e := range r.resourceDeleted {
		if err := e.hook.OnResourceDeleted(ctx, domainID, entityID); err != nil {
			r.logHookError("OnResourceDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Credential emitters
// ──────────────────────────────────────────────────

// EmitCredentialResolved notifies all plugins that implement CredentialResolved.
func (r *Registry) EmitCredentialResolved(ctx context.Context, gatewayID, userID, resourceID, loginUserName, provenance string) {
	for _, e := range r.credentialResolved {
		if err := e.hook.OnCredentialResolved(ctx, gatewayID, userID, resourceID, loginUserName, provenance); err != nil {
			r.logHookError("OnCredentialResolved", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
