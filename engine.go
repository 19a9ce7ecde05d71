package custodian

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/custodian/adaptor"
	"github.com/xraph/custodian/authlog"
	"github.com/xraph/custodian/event"
	"github.com/xraph/custodian/group"
	"github.com/xraph/custodian/plugin"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store"
)

// Engine is the central access and credential resolution engine. It
// coordinates the sharing registry, resource profiles, SSH adaptors, and
// extension hooks.
type Engine struct {
	store       store.Store
	registry    sharing.Registry
	adaptors    adaptor.Factory
	provisioner group.Provisioner
	publisher   event.Publisher
	cache       Cache
	plugins     *plugin.Registry
	logger      *slog.Logger
	config      Config
}

// NewEngine creates a new Custodian engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("custodian: store is required")
	}
	if e.registry == nil {
		e.registry = e.store
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Registry returns the sharing registry backing access checks.
func (e *Engine) Registry() sharing.Registry { return e.registry }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// HasAccess reports whether the principal from the request context holds the
// given permission on the entity. It never fails: any backend error is
// logged and treated as a denial, so callers enforcing access cannot be
// tricked open by an outage.
func (e *Engine) HasAccess(ctx context.Context, entityID string, perm PermissionType) bool {
	return e.PrincipalHasAccess(ctx, scopeFromContext(ctx), entityID, perm)
}

// PrincipalHasAccess is HasAccess for an explicit principal.
func (e *Engine) PrincipalHasAccess(ctx context.Context, p Principal, entityID string, perm PermissionType) bool {
	allowed, err := e.UserHasAccess(ctx, p.GatewayID, p.UserID, entityID, perm)
	if err != nil {
		e.logger.Warn("access check failed, denying",
			"gatewayID", p.GatewayID,
			"userID", p.UserID,
			"entityID", entityID,
			"permission", perm,
			"error", err)
		return false
	}
	return allowed
}

// UserHasAccess reports whether the user holds the given permission on the
// entity. Entity owners hold every permission implicitly; for all other
// users the registry is consulted for a direct or group-cascaded grant.
func (e *Engine) UserHasAccess(ctx context.Context, gatewayID, userID, entityID string, perm PermissionType) (bool, error) {
	start := time.Now()

	if err := validatePermission(perm); err != nil {
		return false, err
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeAccessCheck(ctx, gatewayID, userID, entityID, string(perm))
	}

	if e.cache != nil {
		if allowed, ok := e.cache.Get(ctx, gatewayID, userID, entityID, string(perm)); ok {
			if e.plugins != nil {
				e.plugins.EmitAfterAccessCheck(ctx, gatewayID, userID, entityID, string(perm), allowed)
			}
			return allowed, nil
		}
	}

	allowed, reason, err := e.checkAccess(ctx, gatewayID, userID, entityID, perm)
	if err != nil {
		return false, err
	}

	if e.config.AuditDecisions {
		e.audit(ctx, gatewayID, userID, entityID, perm, allowed, reason, time.Since(start))
	}
	if e.cache != nil {
		e.cache.Set(ctx, gatewayID, userID, entityID, string(perm), allowed)
	}
	if e.plugins != nil {
		e.plugins.EmitAfterAccessCheck(ctx, gatewayID, userID, entityID, string(perm), allowed)
	}
	return allowed, nil
}

func (e *Engine) checkAccess(ctx context.Context, gatewayID, userID, entityID string, perm PermissionType) (bool, string, error) {
	// Owner override: holding OWNER implies every other permission.
	if perm != PermissionOwner {
		isOwner, err := e.registry.UserHasAccess(ctx, gatewayID, userID, entityID, string(PermissionOwner))
		if err != nil {
			return false, "", Wrap(KindSystemError, "owner check", err)
		}
		if isOwner {
			return true, "owner", nil
		}
	}

	allowed, err := e.registry.UserHasAccess(ctx, gatewayID, userID, entityID, string(perm))
	if err != nil {
		return false, "", Wrap(KindSystemError, "access check", err)
	}
	if allowed {
		return true, "granted", nil
	}
	return false, "no grant", nil
}

func (e *Engine) audit(ctx context.Context, gatewayID, userID, entityID string, perm PermissionType, allowed bool, reason string, elapsed time.Duration) {
	entry := &authlog.Entry{
		GatewayID:  gatewayID,
		UserID:     userID,
		EntityID:   entityID,
		Permission: string(perm),
		Allowed:    allowed,
		Reason:     reason,
		EvalTimeNs: elapsed.Nanoseconds(),
	}
	if err := e.store.CreateAuditEntry(ctx, entry); err != nil {
		e.logger.Warn("audit entry write failed", "entityID", entityID, "error", err)
	}
}

// GetAccessibleUsers returns the ids of users holding the given permission
// on the entity, either directly or through group membership. For READ,
// WRITE, and MANAGE_SHARING the owner is always included.
func (e *Engine) GetAccessibleUsers(ctx context.Context, gatewayID, entityID string, perm PermissionType) ([]string, error) {
	switch perm {
	case PermissionOwner:
		owners, err := e.registry.ListSharedUsers(ctx, gatewayID, entityID, string(PermissionOwner))
		if err != nil {
			return nil, Wrap(KindSystemError, "list owners", err)
		}
		return owners, nil
	case PermissionRead, PermissionWrite, PermissionManageSharing:
		users, err := e.registry.ListSharedUsers(ctx, gatewayID, entityID, string(perm))
		if err != nil {
			return nil, Wrap(KindSystemError, "list shared users", err)
		}
		owners, err := e.registry.ListSharedUsers(ctx, gatewayID, entityID, string(PermissionOwner))
		if err != nil {
			return nil, Wrap(KindSystemError, "list owners", err)
		}
		return mergeIDs(users, owners), nil
	default:
		return nil, Errorf(KindUnsupportedOperation, "unsupported permission %q", perm)
	}
}

// GetAccessibleGroups returns the ids of groups holding the given permission
// on the entity. No owner union applies; ownership is always held by a user.
func (e *Engine) GetAccessibleGroups(ctx context.Context, gatewayID, entityID string, perm PermissionType) ([]string, error) {
	switch perm {
	case PermissionOwner, PermissionRead, PermissionWrite, PermissionManageSharing:
		groups, err := e.registry.ListSharedGroups(ctx, gatewayID, entityID, string(perm))
		if err != nil {
			return nil, Wrap(KindSystemError, "list shared groups", err)
		}
		return groups, nil
	default:
		return nil, Errorf(KindUnsupportedOperation, "unsupported permission %q", perm)
	}
}

// publish delivers a lifecycle event if a publisher is configured.
// Broker failures are logged, never surfaced.
func (e *Engine) publish(ctx context.Context, typ event.Type, gatewayID, resourceID string) {
	if e.publisher == nil {
		return
	}
	evt := event.Event{
		Type:       typ,
		GatewayID:  gatewayID,
		ResourceID: resourceID,
		Actor:      userIDFromContext(ctx),
		OccurredAt: time.Now(),
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		e.logger.Warn("event publish failed", "type", typ, "resourceID", resourceID, "error", err)
	}
}

func mergeIDs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
