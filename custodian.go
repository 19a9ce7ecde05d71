// Package custodian provides sharing, access control, and credential
// resolution for science-gateway resources.
//
// Custodian guards projects, experiments, application deployments, and
// group resource profiles behind a sharing registry (who may do what to
// which entity) and resolves the SSH identity and credential token to use
// when a user reaches a compute or storage resource. It is tenant-scoped
// per gateway via forge.Scope and is a library: the RPC surface in front
// of it is out of scope.
//
//	eng, err := custodian.NewEngine(
//	    custodian.WithStore(memStore),
//	    custodian.WithAdaptorFactory(sshFactory),
//	)
//	allowed, err := eng.UserHasAccess(ctx, "gw1", "alice", "proj-42", custodian.PermissionWrite)
package custodian

import "strings"

// PermissionType names a permission in the sharing registry. The enum is
// open: domains may register more, but the four below drive every engine
// workflow. OWNER implicitly satisfies every other permission check.
type PermissionType string

const (
	// PermissionRead allows reading a resource.
	PermissionRead PermissionType = "READ"

	// PermissionWrite allows modifying a resource.
	PermissionWrite PermissionType = "WRITE"

	// PermissionOwner marks the resource owner. Owners pass every check.
	PermissionOwner PermissionType = "OWNER"

	// PermissionManageSharing allows granting and revoking shares.
	// Only owners may grant it onward.
	PermissionManageSharing PermissionType = "MANAGE_SHARING"
)

// Principal identifies an authenticated user within one gateway. It
// replaces the classic "userId@gatewayId" string key with structured
// equality; String renders the legacy composite for registry grantee ids.
type Principal struct {
	UserID    string `json:"user_id"`
	GatewayID string `json:"gateway_id"`
}

// String returns the composite registry id "userId@gatewayId".
// Raw ids containing '@' are not escaped; that matches the historical
// key format and is flagged as a pre-existing correctness risk.
func (p Principal) String() string {
	return p.UserID + "@" + p.GatewayID
}

// IsZero reports whether the principal is missing either component.
func (p Principal) IsZero() bool {
	return p.UserID == "" || p.GatewayID == ""
}

// Claim keys recognized by PrincipalFromClaims.
const (
	ClaimUserName  = "userName"
	ClaimGatewayID = "gatewayID"
)

// PrincipalFromClaims derives a Principal from an authorization token's
// claim map.
func PrincipalFromClaims(claims map[string]string) (Principal, error) {
	p := Principal{
		UserID:    strings.TrimSpace(claims[ClaimUserName]),
		GatewayID: strings.TrimSpace(claims[ClaimGatewayID]),
	}
	if p.IsZero() {
		return Principal{}, Errorf(KindInvalidRequest, "claims missing %s or %s", ClaimUserName, ClaimGatewayID)
	}
	return p, nil
}

// Provenance records which preference level supplied the winning login
// username during credential resolution. It gates the token fallback
// chain: the token is searched where the login came from, not wherever
// a token happens to exist.
type Provenance string

const (
	// ProvenanceUser means the user's own resource preference won.
	ProvenanceUser Provenance = "user"

	// ProvenanceGroup means a group resource profile preference won.
	ProvenanceGroup Provenance = "group"

	// ProvenanceGateway means the gateway-level preference won (storage only).
	ProvenanceGateway Provenance = "gateway"
)

// blank reports whether s is empty after trimming whitespace. Preference
// records distinguish "field absent" from "field set"; a whitespace-only
// login username is absent.
func blank(s string) bool { return strings.TrimSpace(s) == "" }

// validatePermission rejects zero-value permissions early.
func validatePermission(perm PermissionType) error {
	if perm == "" {
		return E(KindInvalidRequest, "permission type is required")
	}
	return nil
}
