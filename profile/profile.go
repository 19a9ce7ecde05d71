// Package profile defines the credential preference records consulted by
// the resolution cascade: user-level compute/storage preferences, group
// resource profiles, and gateway-level profiles.
package profile

import (
	"errors"
	"time"

	"github.com/xraph/custodian/id"
)

// ErrNotFound is returned when a preference or profile record is absent.
// The resolution cascade treats it as "try the next level", never as a
// failure in itself.
var ErrNotFound = errors.New("profile: not found")

// UserComputePreference is the most specific preference level for a
// compute resource: one record per (gateway, user, compute resource).
type UserComputePreference struct {
	GatewayID         string    `json:"gateway_id" db:"gateway_id"`
	UserID            string    `json:"user_id" db:"user_id"`
	ComputeResourceID string    `json:"compute_resource_id" db:"compute_resource_id"`
	LoginUserName     string    `json:"login_user_name,omitempty" db:"login_user_name"`
	CredentialToken   string    `json:"credential_token,omitempty" db:"credential_token"`
	PreferredQueue    string    `json:"preferred_queue,omitempty" db:"preferred_queue"`
	ScratchLocation   string    `json:"scratch_location,omitempty" db:"scratch_location"`
	AllocationProject string    `json:"allocation_project,omitempty" db:"allocation_project"`
	QualityOfService  string    `json:"quality_of_service,omitempty" db:"quality_of_service"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// UserStoragePreference is the user-level preference for a storage
// resource: one record per (gateway, user, storage resource).
type UserStoragePreference struct {
	GatewayID         string    `json:"gateway_id" db:"gateway_id"`
	UserID            string    `json:"user_id" db:"user_id"`
	StorageResourceID string    `json:"storage_resource_id" db:"storage_resource_id"`
	LoginUserName     string    `json:"login_user_name,omitempty" db:"login_user_name"`
	CredentialToken   string    `json:"credential_token,omitempty" db:"credential_token"`
	RootLocation      string    `json:"root_location,omitempty" db:"root_location"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// UserResourceProfile carries a user's gateway-wide credential token, the
// final fallback of every token resolution chain.
type UserResourceProfile struct {
	GatewayID       string    `json:"gateway_id" db:"gateway_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	CredentialToken string    `json:"credential_token,omitempty" db:"credential_token"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// GroupResourceProfile is a named bundle of compute preferences shared by
// a group of users. Access to a profile is governed by its sharing entity.
type GroupResourceProfile struct {
	ID                 id.GroupProfileID        `json:"id" db:"id"`
	GatewayID          string                   `json:"gateway_id" db:"gateway_id"`
	Name               string                   `json:"name" db:"name"`
	DefaultToken       string                   `json:"default_token,omitempty" db:"default_token"`
	ComputePreferences []GroupComputePreference `json:"compute_preferences,omitempty" db:"-"`
	CreatedAt          time.Time                `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at" db:"updated_at"`
}

// ComputePreference returns the profile's preference for the given compute
// resource, or nil when the profile carries none.
func (p *GroupResourceProfile) ComputePreference(computeResourceID string) *GroupComputePreference {
	for i := range p.ComputePreferences {
		if p.ComputePreferences[i].ComputeResourceID == computeResourceID {
			return &p.ComputePreferences[i]
		}
	}
	return nil
}

// GroupComputePreference is one compute resource preference attached to a
// group resource profile.
type GroupComputePreference struct {
	ProfileID         id.GroupProfileID `json:"profile_id" db:"profile_id"`
	ComputeResourceID string            `json:"compute_resource_id" db:"compute_resource_id"`
	LoginUserName     string            `json:"login_user_name,omitempty" db:"login_user_name"`
	CredentialToken   string            `json:"credential_token,omitempty" db:"credential_token"`
	AllocationProject string            `json:"allocation_project,omitempty" db:"allocation_project"`
	PreferredQueue    string            `json:"preferred_queue,omitempty" db:"preferred_queue"`
}

// GatewayResourceProfile carries the gateway-wide credential token and the
// gateway-level storage preferences, the least specific resolution level.
type GatewayResourceProfile struct {
	GatewayID          string                     `json:"gateway_id" db:"gateway_id"`
	CredentialToken    string                     `json:"credential_token,omitempty" db:"credential_token"`
	StoragePreferences []GatewayStoragePreference `json:"storage_preferences,omitempty" db:"-"`
	CreatedAt          time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at" db:"updated_at"`
}

// GatewayStoragePreference is one storage resource preference attached to
// a gateway resource profile.
type GatewayStoragePreference struct {
	GatewayID         string `json:"gateway_id" db:"gateway_id"`
	StorageResourceID string `json:"storage_resource_id" db:"storage_resource_id"`
	LoginUserName     string `json:"login_user_name,omitempty" db:"login_user_name"`
	CredentialToken   string `json:"credential_token,omitempty" db:"credential_token"`
	RootLocation      string `json:"root_location,omitempty" db:"root_location"`
}
