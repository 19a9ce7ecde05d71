package custodian

import (
	"context"
	"errors"

	"github.com/xraph/custodian/adaptor"
	"github.com/xraph/custodian/catalog"
	"github.com/xraph/custodian/id"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/sharing"
)

// ResolvedCredential is the outcome of credential resolution: the SSH login
// name to use on a resource, the credential token that unlocks it, and the
// preference level the login name came from.
type ResolvedCredential struct {
	LoginUserName string     `json:"login_user_name"`
	Token         string     `json:"token"`
	Provenance    Provenance `json:"provenance"`
}

// ResolveComputeCredentials resolves the login name and credential token a
// user should present to a compute resource.
//
// The login name is searched most-specific first: the user's own compute
// preference wins outright when it names a login user; otherwise the
// gateway's group resource profiles are scanned in registry order and the
// first profile carrying a preference with a login name for the resource
// wins. The token is then searched only within the level that supplied the
// login name, falling back to that level's profile default and finally the
// user's gateway-wide token.
func (e *Engine) ResolveComputeCredentials(ctx context.Context, gatewayID, userID, computeResourceID string) (*ResolvedCredential, error) {
	userPref, err := e.store.GetUserComputePreference(ctx, gatewayID, userID, computeResourceID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, Wrap(KindSystemError, "user compute preference lookup", err)
	}

	if userPref != nil && !blank(userPref.LoginUserName) {
		token, err := e.userLevelToken(ctx, gatewayID, userID, userPref.CredentialToken)
		if err != nil {
			return nil, err
		}
		return e.resolved(ctx, gatewayID, userID, computeResourceID, userPref.LoginUserName, token, ProvenanceUser)
	}

	groupPref, groupProfile, err := e.findGroupComputePreference(ctx, gatewayID, userID, computeResourceID)
	if err != nil {
		return nil, err
	}
	if groupPref != nil {
		token := groupPref.CredentialToken
		if blank(token) {
			token = groupProfile.DefaultToken
		}
		if blank(token) {
			token, err = e.userProfileToken(ctx, gatewayID, userID)
			if err != nil {
				return nil, err
			}
		}
		if blank(token) {
			return nil, Errorf(KindAuthenticationFailure, "no credential token for user %s on compute resource %s", userID, computeResourceID)
		}
		return e.resolved(ctx, gatewayID, userID, computeResourceID, groupPref.LoginUserName, token, ProvenanceGroup)
	}

	return nil, Errorf(KindInvalidRequest, "no login username configured for user %s on compute resource %s", userID, computeResourceID)
}

// findGroupComputePreference scans the group resource profiles the user can
// read, in the order the registry returns them, and picks the first one
// whose preference for the resource names a login user. Ties between
// profiles are broken by registry order alone.
func (e *Engine) findGroupComputePreference(ctx context.Context, gatewayID, userID, computeResourceID string) (*profile.GroupComputePreference, *profile.GroupResourceProfile, error) {
	entities, err := e.registry.SearchEntities(ctx, gatewayID, userID, &sharing.SearchFilter{
		Type:       sharing.EntityGroupProfile,
		Permission: string(PermissionRead),
	})
	if err != nil {
		return nil, nil, Wrap(KindSystemError, "group profile search", err)
	}
	for _, ent := range entities {
		profileID, err := id.ParseGroupProfileID(ent.ID)
		if err != nil {
			e.logger.Warn("skipping malformed group profile entity id", "entityID", ent.ID, "error", err)
			continue
		}
		gp, err := e.store.GetGroupResourceProfile(ctx, profileID)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				continue
			}
			return nil, nil, Wrap(KindSystemError, "group resource profile lookup", err)
		}
		if pref := gp.ComputePreference(computeResourceID); pref != nil && !blank(pref.LoginUserName) {
			return pref, gp, nil
		}
	}
	return nil, nil, nil
}

// ResolveStorageCredentials resolves the login name and credential token a
// user should present to a storage resource. The user's own storage
// preference wins; otherwise the gateway-level storage preference applies.
// Group resource profiles carry no storage preferences and do not
// participate.
func (e *Engine) ResolveStorageCredentials(ctx context.Context, gatewayID, userID, storageResourceID string) (*ResolvedCredential, error) {
	userPref, err := e.store.GetUserStoragePreference(ctx, gatewayID, userID, storageResourceID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, Wrap(KindSystemError, "user storage preference lookup", err)
	}
	if userPref != nil && !blank(userPref.LoginUserName) {
		token, err := e.userLevelToken(ctx, gatewayID, userID, userPref.CredentialToken)
		if err != nil {
			return nil, err
		}
		return e.resolved(ctx, gatewayID, userID, storageResourceID, userPref.LoginUserName, token, ProvenanceUser)
	}

	gwPref, err := e.store.GetGatewayStoragePreference(ctx, gatewayID, storageResourceID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, Wrap(KindSystemError, "gateway storage preference lookup", err)
	}
	if gwPref != nil && !blank(gwPref.LoginUserName) {
		token := gwPref.CredentialToken
		if blank(token) {
			gwProfile, err := e.store.GetGatewayResourceProfile(ctx, gatewayID)
			if err != nil && !errors.Is(err, profile.ErrNotFound) {
				return nil, Wrap(KindSystemError, "gateway resource profile lookup", err)
			}
			if gwProfile != nil {
				token = gwProfile.CredentialToken
			}
		}
		if blank(token) {
			return nil, Errorf(KindAuthenticationFailure, "no credential token for gateway %s on storage resource %s", gatewayID, storageResourceID)
		}
		return e.resolved(ctx, gatewayID, userID, storageResourceID, gwPref.LoginUserName, token, ProvenanceGateway)
	}

	return nil, Errorf(KindInvalidRequest, "no login username configured for user %s on storage resource %s", userID, storageResourceID)
}

// userLevelToken resolves the token for a user-provenance login: the
// preference token first, then the user's gateway-wide token.
func (e *Engine) userLevelToken(ctx context.Context, gatewayID, userID, prefToken string) (string, error) {
	if !blank(prefToken) {
		return prefToken, nil
	}
	token, err := e.userProfileToken(ctx, gatewayID, userID)
	if err != nil {
		return "", err
	}
	if blank(token) {
		return "", Errorf(KindAuthenticationFailure, "no credential token for user %s in gateway %s", userID, gatewayID)
	}
	return token, nil
}

func (e *Engine) userProfileToken(ctx context.Context, gatewayID, userID string) (string, error) {
	p, err := e.store.GetUserResourceProfile(ctx, gatewayID, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return "", nil
		}
		return "", Wrap(KindSystemError, "user resource profile lookup", err)
	}
	return p.CredentialToken, nil
}

func (e *Engine) resolved(ctx context.Context, gatewayID, userID, resourceID, login, token string, prov Provenance) (*ResolvedCredential, error) {
	if e.plugins != nil {
		e.plugins.EmitCredentialResolved(ctx, gatewayID, userID, resourceID, login, string(prov))
	}
	return &ResolvedCredential{LoginUserName: login, Token: token, Provenance: prov}, nil
}

// resourceKind distinguishes compute from storage resources.
type resourceKind int

const (
	kindCompute resourceKind = iota
	kindStorage
)

// probeResourceKind determines whether an id names a compute or a storage
// resource by probing the catalog. Compute is checked first; an id present
// in both catalogs resolves as compute.
func (e *Engine) probeResourceKind(ctx context.Context, resourceID string) (resourceKind, error) {
	if _, err := e.store.GetComputeResource(ctx, resourceID); err == nil {
		return kindCompute, nil
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return 0, Wrap(KindSystemError, "compute resource lookup", err)
	}
	if _, err := e.store.GetStorageResource(ctx, resourceID); err == nil {
		return kindStorage, nil
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return 0, Wrap(KindSystemError, "storage resource lookup", err)
	}
	return 0, Errorf(KindInvalidRequest, "resource %s is neither a compute nor a storage resource", resourceID)
}

// openResource resolves credentials for the resource, whichever kind it is,
// and opens an adaptor handle with them.
func (e *Engine) openResource(ctx context.Context, gatewayID, userID, resourceID string) (adaptor.Handle, error) {
	if e.adaptors == nil {
		return nil, E(KindUnsupportedOperation, "no adaptor factory configured")
	}
	kind, err := e.probeResourceKind(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	var cred *ResolvedCredential
	if kind == kindCompute {
		cred, err = e.ResolveComputeCredentials(ctx, gatewayID, userID, resourceID)
	} else {
		cred, err = e.ResolveStorageCredentials(ctx, gatewayID, userID, resourceID)
	}
	if err != nil {
		return nil, err
	}

	var h adaptor.Handle
	if kind == kindCompute {
		h, err = e.adaptors.ComputeSSHAdaptor(ctx, gatewayID, resourceID, cred.Token, userID, cred.LoginUserName)
	} else {
		h, err = e.adaptors.StorageSSHAdaptor(ctx, gatewayID, resourceID, cred.Token, userID, cred.LoginUserName)
	}
	if err != nil {
		return nil, Wrap(KindSystemError, "open ssh adaptor", err)
	}
	return h, nil
}

// GetResourceStorageInfo reports capacity and usage of the volume holding
// path on the resource, connecting with the user's resolved credentials.
// The resource may be a compute or a storage resource.
func (e *Engine) GetResourceStorageInfo(ctx context.Context, gatewayID, userID, resourceID, path string) (*adaptor.VolumeInfo, error) {
	h, err := e.openResource(ctx, gatewayID, userID, resourceID)
	if err != nil {
		return nil, err
	}
	defer e.closeHandle(h, resourceID)

	info, err := h.StorageVolumeInfo(ctx, path)
	if err != nil {
		return nil, Wrap(KindSystemError, "storage volume info", err)
	}
	return info, nil
}

// GetStorageDirectoryInfo lists the directory at path on the resource,
// connecting with the user's resolved credentials.
func (e *Engine) GetStorageDirectoryInfo(ctx context.Context, gatewayID, userID, resourceID, path string) (*adaptor.DirectoryInfo, error) {
	h, err := e.openResource(ctx, gatewayID, userID, resourceID)
	if err != nil {
		return nil, err
	}
	defer e.closeHandle(h, resourceID)

	info, err := h.StorageDirectoryInfo(ctx, path)
	if err != nil {
		return nil, Wrap(KindSystemError, "storage directory info", err)
	}
	return info, nil
}

func (e *Engine) closeHandle(h adaptor.Handle, resourceID string) {
	if err := h.Close(); err != nil {
		e.logger.Warn("adaptor handle close failed", "resourceID", resourceID, "error", err)
	}
}
