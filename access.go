package custodian

import (
	"context"
	"errors"

	"github.com/xraph/custodian/event"
	"github.com/xraph/custodian/group"
	"github.com/xraph/custodian/sharing"
)

// ShareEntityWithUsers grants the permission on the entity to each user,
// cascading to child entities. The calling principal must hold OWNER or
// MANAGE_SHARING on the entity; granting MANAGE_SHARING itself requires
// OWNER and lazily registers the MANAGE_SHARING permission type for the
// gateway.
func (e *Engine) ShareEntityWithUsers(ctx context.Context, gatewayID, entityID string, userIDs []string, perm PermissionType) error {
	if err := e.authorizeSharing(ctx, gatewayID, entityID, perm); err != nil {
		return err
	}
	if err := e.registry.ShareEntityWithUsers(ctx, gatewayID, entityID, userIDs, string(perm), true); err != nil {
		return Wrap(KindSystemError, "share entity with users", err)
	}
	e.sharingChanged(ctx, gatewayID, entityID, userIDs, perm, true)
	return nil
}

// ShareEntityWithGroups grants the permission on the entity to each group,
// cascading to child entities. Authorization rules match
// ShareEntityWithUsers.
func (e *Engine) ShareEntityWithGroups(ctx context.Context, gatewayID, entityID string, groupIDs []string, perm PermissionType) error {
	if err := e.authorizeSharing(ctx, gatewayID, entityID, perm); err != nil {
		return err
	}
	if err := e.registry.ShareEntityWithGroups(ctx, gatewayID, entityID, groupIDs, string(perm), true); err != nil {
		return Wrap(KindSystemError, "share entity with groups", err)
	}
	e.sharingChanged(ctx, gatewayID, entityID, groupIDs, perm, true)
	return nil
}

// RevokeEntitySharingFromUsers removes the permission grant from each user.
// The calling principal must hold OWNER or MANAGE_SHARING on the entity.
func (e *Engine) RevokeEntitySharingFromUsers(ctx context.Context, gatewayID, entityID string, userIDs []string, perm PermissionType) error {
	if err := e.authorizeSharing(ctx, gatewayID, entityID, perm); err != nil {
		return err
	}
	if err := e.registry.RevokeEntitySharingFromUsers(ctx, gatewayID, entityID, userIDs, string(perm)); err != nil {
		return Wrap(KindSystemError, "revoke entity sharing from users", err)
	}
	e.sharingChanged(ctx, gatewayID, entityID, userIDs, perm, false)
	return nil
}

// RevokeEntitySharingFromGroups removes the permission grant from each
// group. Grants that keep the gateway's admin groups in control of
// experiments, application deployments, and group resource profiles cannot
// be revoked: every (group, permission) pair is validated before any
// revoke is issued, so a rejected request changes nothing.
func (e *Engine) RevokeEntitySharingFromGroups(ctx context.Context, gatewayID, entityID string, groupIDs []string, perm PermissionType) error {
	if err := e.authorizeSharing(ctx, gatewayID, entityID, perm); err != nil {
		return err
	}
	if err := e.checkRevokeProtection(ctx, gatewayID, entityID, groupIDs, perm); err != nil {
		return err
	}
	if err := e.registry.RevokeEntitySharingFromGroups(ctx, gatewayID, entityID, groupIDs, string(perm)); err != nil {
		return Wrap(KindSystemError, "revoke entity sharing from groups", err)
	}
	e.sharingChanged(ctx, gatewayID, entityID, groupIDs, perm, false)
	return nil
}

// authorizeSharing validates that the calling principal may change grants
// of the given permission on the entity.
func (e *Engine) authorizeSharing(ctx context.Context, gatewayID, entityID string, perm PermissionType) error {
	switch perm {
	case PermissionRead, PermissionWrite, PermissionManageSharing:
	default:
		return Errorf(KindUnsupportedOperation, "permission %q cannot be shared", perm)
	}

	p := scopeFromContext(ctx)
	if p.UserID == "" {
		return E(KindInvalidRequest, "no principal in context")
	}

	if perm == PermissionManageSharing {
		// Only owners may hand out sharing rights.
		isOwner, err := e.registry.UserHasAccess(ctx, gatewayID, p.UserID, entityID, string(PermissionOwner))
		if err != nil {
			return Wrap(KindSystemError, "owner check", err)
		}
		if !isOwner {
			return Errorf(KindAuthorizationDenied, "user %s is not the owner of %s", p.UserID, entityID)
		}
		return e.ensureManageSharingPermissionType(ctx, gatewayID)
	}

	if !e.PrincipalHasAccess(ctx, Principal{UserID: p.UserID, GatewayID: gatewayID}, entityID, PermissionManageSharing) {
		return Errorf(KindAuthorizationDenied, "user %s may not manage sharing of %s", p.UserID, entityID)
	}
	return nil
}

// ensureManageSharingPermissionType registers the MANAGE_SHARING permission
// type for the gateway if it is not registered yet. A concurrent creation
// losing the race is not an error.
func (e *Engine) ensureManageSharingPermissionType(ctx context.Context, gatewayID string) error {
	exists, err := e.registry.PermissionTypeExists(ctx, gatewayID, string(PermissionManageSharing))
	if err != nil {
		return Wrap(KindSystemError, "permission type lookup", err)
	}
	if exists {
		return nil
	}
	err = e.registry.CreatePermissionType(ctx, &sharing.PermissionTypeRecord{
		DomainID:    gatewayID,
		Name:        string(PermissionManageSharing),
		Description: "Grants the right to share and revoke access",
	})
	if err != nil && !errors.Is(err, sharing.ErrDuplicate) {
		return Wrap(KindSystemError, "create permission type", err)
	}
	return nil
}

// checkRevokeProtection rejects revocations that would strip the gateway's
// admin groups of their baseline grants on protected entity types.
func (e *Engine) checkRevokeProtection(ctx context.Context, gatewayID, entityID string, groupIDs []string, perm PermissionType) error {
	ent, err := e.registry.GetEntity(ctx, gatewayID, entityID)
	if err != nil {
		if errors.Is(err, sharing.ErrNotFound) {
			return Errorf(KindNotFound, "entity %s not found", entityID)
		}
		return Wrap(KindSystemError, "entity lookup", err)
	}

	switch ent.Type {
	case sharing.EntityExperiment, sharing.EntityDeployment, sharing.EntityGroupProfile:
	default:
		return nil
	}

	groups, err := e.gatewayGroups(ctx, gatewayID)
	if err != nil {
		return err
	}
	for _, gid := range groupIDs {
		if gid == groups.AdminsGroupID {
			switch perm {
			case PermissionRead, PermissionWrite, PermissionManageSharing:
				return Errorf(KindInvalidRequest, "cannot revoke %s from the gateway admins group on a %s", perm, ent.Type)
			}
		}
		if gid == groups.ReadOnlyAdminsGroupID && perm == PermissionRead {
			return Errorf(KindInvalidRequest, "cannot revoke %s from the gateway read-only admins group on a %s", perm, ent.Type)
		}
	}
	return nil
}

// ShareEntityWithAdminGatewayGroups grants the gateway's admin groups their
// baseline access to an entity: the admins group receives MANAGE_SHARING,
// WRITE, and READ, the read-only admins group receives READ. All grants
// cascade.
func (e *Engine) ShareEntityWithAdminGatewayGroups(ctx context.Context, gatewayID, entityID string) error {
	groups, err := e.gatewayGroups(ctx, gatewayID)
	if err != nil {
		return err
	}
	if err := e.ensureManageSharingPermissionType(ctx, gatewayID); err != nil {
		return err
	}
	admins := []string{groups.AdminsGroupID}
	for _, perm := range []PermissionType{PermissionManageSharing, PermissionWrite, PermissionRead} {
		if err := e.registry.ShareEntityWithGroups(ctx, gatewayID, entityID, admins, string(perm), true); err != nil {
			return Wrap(KindSystemError, "share with admins group", err)
		}
	}
	readers := []string{groups.ReadOnlyAdminsGroupID}
	if err := e.registry.ShareEntityWithGroups(ctx, gatewayID, entityID, readers, string(PermissionRead), true); err != nil {
		return Wrap(KindSystemError, "share with read-only admins group", err)
	}
	e.invalidateEntity(ctx, gatewayID, entityID)
	return nil
}

// gatewayGroups returns the gateway's admin group record, provisioning the
// groups on first use.
func (e *Engine) gatewayGroups(ctx context.Context, gatewayID string) (*group.GatewayGroups, error) {
	groups, err := e.store.GetGatewayGroups(ctx, gatewayID)
	if err == nil {
		return groups, nil
	}
	if !errors.Is(err, group.ErrNotFound) {
		return nil, Wrap(KindSystemError, "gateway groups lookup", err)
	}
	if e.provisioner == nil {
		return nil, Errorf(KindSystemError, "gateway %s has no admin groups and no provisioner is configured", gatewayID)
	}
	groups, err = e.provisioner.Initialize(ctx, gatewayID)
	if err != nil {
		return nil, Wrap(KindSystemError, "provision gateway groups", err)
	}
	if err := e.store.SaveGatewayGroups(ctx, groups); err != nil {
		return nil, Wrap(KindSystemError, "save gateway groups", err)
	}
	return groups, nil
}

// EnsureDomain registers the gateway's sharing domain, entity types, and
// base permission types. Every step tolerates records created by an earlier
// or concurrent call, so the operation is safe to repeat.
func (e *Engine) EnsureDomain(ctx context.Context, gatewayID string) error {
	exists, err := e.registry.DomainExists(ctx, gatewayID)
	if err != nil {
		return Wrap(KindSystemError, "domain lookup", err)
	}
	if !exists {
		err = e.registry.CreateDomain(ctx, &sharing.Domain{
			ID:          gatewayID,
			Name:        gatewayID,
			Description: "Sharing domain for gateway " + gatewayID,
		})
		if err != nil && !errors.Is(err, sharing.ErrDuplicate) {
			return Wrap(KindSystemError, "create domain", err)
		}
	}

	entityTypes := []sharing.EntityType{
		sharing.EntityProject,
		sharing.EntityExperiment,
		sharing.EntityDeployment,
		sharing.EntityGroupProfile,
		sharing.EntityCredentialToken,
	}
	for _, et := range entityTypes {
		exists, err := e.registry.EntityTypeExists(ctx, gatewayID, et)
		if err != nil {
			return Wrap(KindSystemError, "entity type lookup", err)
		}
		if exists {
			continue
		}
		err = e.registry.CreateEntityType(ctx, &sharing.EntityTypeRecord{
			DomainID: gatewayID,
			Name:     et,
		})
		if err != nil && !errors.Is(err, sharing.ErrDuplicate) {
			return Wrap(KindSystemError, "create entity type", err)
		}
	}

	for _, perm := range []PermissionType{PermissionOwner, PermissionRead, PermissionWrite} {
		exists, err := e.registry.PermissionTypeExists(ctx, gatewayID, string(perm))
		if err != nil {
			return Wrap(KindSystemError, "permission type lookup", err)
		}
		if exists {
			continue
		}
		err = e.registry.CreatePermissionType(ctx, &sharing.PermissionTypeRecord{
			DomainID: gatewayID,
			Name:     string(perm),
		})
		if err != nil && !errors.Is(err, sharing.ErrDuplicate) {
			return Wrap(KindSystemError, "create permission type", err)
		}
	}
	return nil
}

// sharingChanged fires the post-mutation side effects shared by every
// grant and revoke path.
func (e *Engine) sharingChanged(ctx context.Context, gatewayID, entityID string, grantees []string, perm PermissionType, shared bool) {
	e.invalidateEntity(ctx, gatewayID, entityID)
	if e.plugins != nil {
		if shared {
			e.plugins.EmitEntityShared(ctx, gatewayID, entityID, grantees, string(perm))
		} else {
			e.plugins.EmitSharingRevoked(ctx, gatewayID, entityID, grantees, string(perm))
		}
	}
	if e.publisher != nil {
		typ := event.ResourceShared
		if !shared {
			typ = event.ResourceUnshared
		}
		e.publish(ctx, typ, gatewayID, entityID)
	}
}

func (e *Engine) invalidateEntity(ctx context.Context, gatewayID, entityID string) {
	if e.cache != nil {
		e.cache.InvalidateEntity(ctx, gatewayID, entityID)
	}
}
