package catalog

import "context"

// Store defines persistence operations for the resource catalog.
type Store interface {
	// RegisterComputeResource persists a compute resource description.
	RegisterComputeResource(ctx context.Context, r *ComputeResource) error

	// GetComputeResource retrieves a compute resource by id.
	GetComputeResource(ctx context.Context, resourceID string) (*ComputeResource, error)

	// ListComputeResources returns all registered compute resources.
	ListComputeResources(ctx context.Context) ([]*ComputeResource, error)

	// RemoveComputeResource deletes a compute resource description.
	RemoveComputeResource(ctx context.Context, resourceID string) error

	// RegisterStorageResource persists a storage resource description.
	RegisterStorageResource(ctx context.Context, r *StorageResource) error

	// GetStorageResource retrieves a storage resource by id.
	GetStorageResource(ctx context.Context, resourceID string) (*StorageResource, error)

	// ListStorageResources returns all registered storage resources.
	ListStorageResources(ctx context.Context) ([]*StorageResource, error)

	// RemoveStorageResource deletes a storage resource description.
	RemoveStorageResource(ctx context.Context, resourceID string) error
}
