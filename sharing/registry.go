package sharing

import "context"

// Registry is the sharing registry client. The access control engine is
// built entirely on this interface; a backing store implements it alongside
// the other subsystem stores.
//
// Implementations must report ErrNotFound for missing records and
// ErrDuplicate when a domain, entity type, or permission type is created
// twice; provisioning workflows depend on both sentinels.
type Registry interface {
	// UserHasAccess reports whether the principal holds the named permission
	// on the entity through a direct or group grant. It does not apply the
	// owner override; that belongs to the engine.
	UserHasAccess(ctx context.Context, domainID, principalID, entityID, permission string) (bool, error)

	// ──────────────────────────────────────────────────
	// Domain / type provisioning
	// ──────────────────────────────────────────────────

	// CreateDomain registers a new domain.
	CreateDomain(ctx context.Context, d *Domain) error

	// DomainExists reports whether a domain is registered.
	DomainExists(ctx context.Context, domainID string) (bool, error)

	// CreateEntityType registers an entity type within a domain.
	CreateEntityType(ctx context.Context, r *EntityTypeRecord) error

	// EntityTypeExists reports whether an entity type is registered.
	EntityTypeExists(ctx context.Context, domainID string, name EntityType) (bool, error)

	// CreatePermissionType registers a permission type within a domain.
	CreatePermissionType(ctx context.Context, r *PermissionTypeRecord) error

	// PermissionTypeExists reports whether a permission type is registered.
	PermissionTypeExists(ctx context.Context, domainID, name string) (bool, error)

	// ──────────────────────────────────────────────────
	// Entities
	// ──────────────────────────────────────────────────

	// CreateEntity records a new shareable entity. The OWNER grant for the
	// entity's owner is recorded implicitly.
	CreateEntity(ctx context.Context, e *Entity) error

	// GetEntity retrieves an entity by domain and id.
	GetEntity(ctx context.Context, domainID, entityID string) (*Entity, error)

	// UpdateEntity persists name/description changes to an entity.
	UpdateEntity(ctx context.Context, e *Entity) error

	// DeleteEntity removes an entity and all grants attached to it.
	DeleteEntity(ctx context.Context, domainID, entityID string) error

	// SearchEntities returns entities in the domain that the principal can
	// see, matching the filter. The result order is whatever the registry's
	// own ordering produces; callers must not assume more.
	SearchEntities(ctx context.Context, domainID, principalID string, filter *SearchFilter) ([]*Entity, error)

	// ──────────────────────────────────────────────────
	// Grants
	// ──────────────────────────────────────────────────

	// ShareEntityWithUsers grants the permission on the entity to each user.
	// With cascade, the grant propagates to all child entities.
	ShareEntityWithUsers(ctx context.Context, domainID, entityID string, userIDs []string, permission string, cascade bool) error

	// ShareEntityWithGroups grants the permission on the entity to each group.
	// With cascade, the grant propagates to all child entities.
	ShareEntityWithGroups(ctx context.Context, domainID, entityID string, groupIDs []string, permission string, cascade bool) error

	// RevokeEntitySharingFromUsers removes the permission grant from each user.
	RevokeEntitySharingFromUsers(ctx context.Context, domainID, entityID string, userIDs []string, permission string) error

	// RevokeEntitySharingFromGroups removes the permission grant from each group.
	RevokeEntitySharingFromGroups(ctx context.Context, domainID, entityID string, groupIDs []string, permission string) error

	// ListSharedUsers returns the user ids holding the permission on the entity.
	ListSharedUsers(ctx context.Context, domainID, entityID, permission string) ([]string, error)

	// ListSharedGroups returns the group ids holding the permission on the entity.
	ListSharedGroups(ctx context.Context, domainID, entityID, permission string) ([]string, error)

	// ──────────────────────────────────────────────────
	// Group membership
	// ──────────────────────────────────────────────────

	// AddUsersToGroup records the users as members of the group. Group ids
	// are opaque; groups exist once they have members or grants.
	AddUsersToGroup(ctx context.Context, domainID, groupID string, userIDs []string) error

	// RemoveUsersFromGroup removes the users from the group.
	RemoveUsersFromGroup(ctx context.Context, domainID, groupID string, userIDs []string) error

	// ListGroupMembers returns the user ids that are members of the group.
	ListGroupMembers(ctx context.Context, domainID, groupID string) ([]string, error)

	// ListUserGroups returns the group ids the user is a member of.
	ListUserGroups(ctx context.Context, domainID, userID string) ([]string, error)
}
