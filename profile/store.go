package profile

import (
	"context"

	"github.com/xraph/custodian/id"
)

// Store defines persistence operations for preference and profile records.
// Get methods return ErrNotFound when no record exists; Save methods upsert.
type Store interface {
	// GetUserComputePreference retrieves the user preference for a compute resource.
	GetUserComputePreference(ctx context.Context, gatewayID, userID, computeResourceID string) (*UserComputePreference, error)

	// SaveUserComputePreference creates or replaces a user compute preference.
	SaveUserComputePreference(ctx context.Context, p *UserComputePreference) error

	// DeleteUserComputePreference removes a user compute preference.
	DeleteUserComputePreference(ctx context.Context, gatewayID, userID, computeResourceID string) error

	// ListUserComputePreferences returns all compute preferences for a user.
	ListUserComputePreferences(ctx context.Context, gatewayID, userID string) ([]*UserComputePreference, error)

	// GetUserStoragePreference retrieves the user preference for a storage resource.
	GetUserStoragePreference(ctx context.Context, gatewayID, userID, storageResourceID string) (*UserStoragePreference, error)

	// SaveUserStoragePreference creates or replaces a user storage preference.
	SaveUserStoragePreference(ctx context.Context, p *UserStoragePreference) error

	// DeleteUserStoragePreference removes a user storage preference.
	DeleteUserStoragePreference(ctx context.Context, gatewayID, userID, storageResourceID string) error

	// ListUserStoragePreferences returns all storage preferences for a user.
	ListUserStoragePreferences(ctx context.Context, gatewayID, userID string) ([]*UserStoragePreference, error)

	// GetUserResourceProfile retrieves a user's gateway-wide profile.
	GetUserResourceProfile(ctx context.Context, gatewayID, userID string) (*UserResourceProfile, error)

	// SaveUserResourceProfile creates or replaces a user resource profile.
	SaveUserResourceProfile(ctx context.Context, p *UserResourceProfile) error

	// CreateGroupResourceProfile persists a new group resource profile with
	// its compute preferences.
	CreateGroupResourceProfile(ctx context.Context, p *GroupResourceProfile) error

	// GetGroupResourceProfile retrieves a group resource profile including
	// its compute preferences.
	GetGroupResourceProfile(ctx context.Context, profileID id.GroupProfileID) (*GroupResourceProfile, error)

	// UpdateGroupResourceProfile persists changes to a profile and replaces
	// its compute preferences.
	UpdateGroupResourceProfile(ctx context.Context, p *GroupResourceProfile) error

	// DeleteGroupResourceProfile removes a profile and its preferences.
	DeleteGroupResourceProfile(ctx context.Context, profileID id.GroupProfileID) error

	// ListGroupResourceProfiles returns all profiles in a gateway.
	ListGroupResourceProfiles(ctx context.Context, gatewayID string) ([]*GroupResourceProfile, error)

	// GetGatewayResourceProfile retrieves a gateway's profile including its
	// storage preferences.
	GetGatewayResourceProfile(ctx context.Context, gatewayID string) (*GatewayResourceProfile, error)

	// SaveGatewayResourceProfile creates or replaces a gateway resource
	// profile and its storage preferences.
	SaveGatewayResourceProfile(ctx context.Context, p *GatewayResourceProfile) error

	// GetGatewayStoragePreference retrieves the gateway-level preference for
	// a storage resource.
	GetGatewayStoragePreference(ctx context.Context, gatewayID, storageResourceID string) (*GatewayStoragePreference, error)
}
