package project

import (
	"context"

	"github.com/xraph/custodian/id"
)

// Store defines persistence operations for projects.
type Store interface {
	// CreateProject persists a new project.
	CreateProject(ctx context.Context, p *Project) error

	// GetProject retrieves a project by id.
	GetProject(ctx context.Context, projectID id.ProjectID) (*Project, error)

	// UpdateProject persists changes to a project.
	UpdateProject(ctx context.Context, p *Project) error

	// DeleteProject removes a project by id.
	DeleteProject(ctx context.Context, projectID id.ProjectID) error

	// ListProjects returns projects matching the filter.
	ListProjects(ctx context.Context, filter *ListFilter) ([]*Project, error)
}
