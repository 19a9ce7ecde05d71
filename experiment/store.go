package experiment

import (
	"context"

	"github.com/xraph/custodian/id"
)

// Store defines persistence operations for experiments.
type Store interface {
	// CreateExperiment persists a new experiment.
	CreateExperiment(ctx context.Context, e *Experiment) error

	// GetExperiment retrieves an experiment by id.
	GetExperiment(ctx context.Context, experimentID id.ExperimentID) (*Experiment, error)

	// UpdateExperiment persists changes to an experiment.
	UpdateExperiment(ctx context.Context, e *Experiment) error

	// DeleteExperiment removes an experiment by id.
	DeleteExperiment(ctx context.Context, experimentID id.ExperimentID) error

	// ListExperiments returns experiments matching the filter.
	ListExperiments(ctx context.Context, filter *ListFilter) ([]*Experiment, error)
}
