// Package sharing defines the sharing registry entities and client interface.
//
// The registry records one Entity per shareable object (project, experiment,
// application deployment, group resource profile, credential token) and the
// permission grants attached to it. All records are scoped to a domain, the
// gateway/tenant boundary.
package sharing

import (
	"errors"
	"time"
)

// Sentinel errors reported by Registry implementations.
var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("sharing: not found")

	// ErrDuplicate is returned when creating a record that already exists.
	// Domain, entity type, and permission type provisioning rely on this
	// to stay idempotent-by-precheck.
	ErrDuplicate = errors.New("sharing: duplicate entry")
)

// EntityType classifies a shareable entity within a domain.
type EntityType string

// Entity types registered for every domain.
const (
	EntityProject         EntityType = "PROJECT"
	EntityExperiment      EntityType = "EXPERIMENT"
	EntityDeployment      EntityType = "APPLICATION_DEPLOYMENT"
	EntityGroupProfile    EntityType = "GROUP_RESOURCE_PROFILE"
	EntityCredentialToken EntityType = "CREDENTIAL_TOKEN"
)

// GranteeKind distinguishes user grants from group grants.
type GranteeKind string

const (
	// GranteeUser marks a grant held directly by a user.
	GranteeUser GranteeKind = "user"

	// GranteeGroup marks a grant held by a group.
	GranteeGroup GranteeKind = "group"
)

// Entity is one shareable object recorded in the registry.
type Entity struct {
	ID          string     `json:"id" db:"id"`
	DomainID    string     `json:"domain_id" db:"domain_id"`
	Type        EntityType `json:"type" db:"type"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	ParentID    string     `json:"parent_id,omitempty" db:"parent_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Grant is a single permission grant on an entity.
type Grant struct {
	DomainID    string      `json:"domain_id" db:"domain_id"`
	EntityID    string      `json:"entity_id" db:"entity_id"`
	GranteeKind GranteeKind `json:"grantee_kind" db:"grantee_kind"`
	GranteeID   string      `json:"grantee_id" db:"grantee_id"`
	Permission  string      `json:"permission" db:"permission"`
	Cascade     bool        `json:"cascade,omitempty" db:"cascade"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// Domain is one tenant boundary in the registry.
type Domain struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// EntityTypeRecord registers an entity type within a domain.
type EntityTypeRecord struct {
	DomainID    string     `json:"domain_id" db:"domain_id"`
	Name        EntityType `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// PermissionTypeRecord registers a permission type within a domain.
// The set is open: READ, WRITE, OWNER, and MANAGE_SHARING are always
// provisioned, domains may add their own.
type PermissionTypeRecord struct {
	DomainID    string    `json:"domain_id" db:"domain_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SearchFilter narrows an entity search. Zero-value fields are ignored.
type SearchFilter struct {
	Type       EntityType `json:"type,omitempty"`
	Name       string     `json:"name,omitempty"`
	OwnerID    string     `json:"owner_id,omitempty"`
	ParentID   string     `json:"parent_id,omitempty"`
	Permission string     `json:"permission,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
