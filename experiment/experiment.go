// Package experiment defines the Experiment entity and its store interface.
package experiment

import (
	"errors"
	"time"

	"github.com/xraph/custodian/id"
)

// ErrNotFound is returned when an experiment does not exist.
var ErrNotFound = errors.New("experiment: not found")

// State is the coarse lifecycle state of an experiment.
type State string

const (
	// StateCreated marks a newly registered experiment.
	StateCreated State = "CREATED"

	// StateLaunched marks an experiment handed to the execution layer.
	StateLaunched State = "LAUNCHED"

	// StateCompleted marks a finished experiment.
	StateCompleted State = "COMPLETED"

	// StateFailed marks an experiment the execution layer gave up on.
	StateFailed State = "FAILED"
)

// Experiment is one computational run within a project.
type Experiment struct {
	ID                id.ExperimentID `json:"id" db:"id"`
	ProjectID         id.ProjectID    `json:"project_id" db:"project_id"`
	GatewayID         string          `json:"gateway_id" db:"gateway_id"`
	OwnerID           string          `json:"owner_id" db:"owner_id"`
	Name              string          `json:"name" db:"name"`
	Description       string          `json:"description,omitempty" db:"description"`
	ComputeResourceID string          `json:"compute_resource_id,omitempty" db:"compute_resource_id"`
	State             State           `json:"state" db:"state"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing experiments.
type ListFilter struct {
	GatewayID string       `json:"gateway_id,omitempty"`
	ProjectID id.ProjectID `json:"project_id,omitempty"`
	OwnerID   string       `json:"owner_id,omitempty"`
	State     State        `json:"state,omitempty"`
	Search    string       `json:"search,omitempty"`
	Limit     int          `json:"limit,omitempty"`
	Offset    int          `json:"offset,omitempty"`
}
