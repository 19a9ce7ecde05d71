// Package deployment defines the application deployment entity and its
// store interface. A deployment binds an application to one compute
// resource with the module and paths needed to run it there.
package deployment

import (
	"errors"
	"time"

	"github.com/xraph/custodian/id"
)

// ErrNotFound is returned when a deployment does not exist.
var ErrNotFound = errors.New("deployment: not found")

// Deployment describes an application installed on a compute resource.
type Deployment struct {
	ID                id.DeploymentID `json:"id" db:"id"`
	GatewayID         string          `json:"gateway_id" db:"gateway_id"`
	OwnerID           string          `json:"owner_id" db:"owner_id"`
	AppModuleID       string          `json:"app_module_id" db:"app_module_id"`
	ComputeResourceID string          `json:"compute_resource_id" db:"compute_resource_id"`
	ExecutablePath    string          `json:"executable_path" db:"executable_path"`
	Description       string          `json:"description,omitempty" db:"description"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing deployments.
type ListFilter struct {
	GatewayID         string `json:"gateway_id,omitempty"`
	AppModuleID       string `json:"app_module_id,omitempty"`
	ComputeResourceID string `json:"compute_resource_id,omitempty"`
	Limit             int    `json:"limit,omitempty"`
	Offset            int    `json:"offset,omitempty"`
}
