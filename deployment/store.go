package deployment

import (
	"context"

	"github.com/xraph/custodian/id"
)

// Store defines persistence operations for application deployments.
type Store interface {
	// CreateDeployment persists a new deployment.
	CreateDeployment(ctx context.Context, d *Deployment) error

	// GetDeployment retrieves a deployment by id.
	GetDeployment(ctx context.Context, deploymentID id.DeploymentID) (*Deployment, error)

	// UpdateDeployment persists changes to a deployment.
	UpdateDeployment(ctx context.Context, d *Deployment) error

	// DeleteDeployment removes a deployment by id.
	DeleteDeployment(ctx context.Context, deploymentID id.DeploymentID) error

	// ListDeployments returns deployments matching the filter.
	ListDeployments(ctx context.Context, filter *ListFilter) ([]*Deployment, error)
}
