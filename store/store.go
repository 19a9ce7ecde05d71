// Package store defines the aggregate persistence interface. Each subsystem
// (sharing, profile, catalog, group, project, experiment, deployment,
// authlog) defines its own store interface. The composite Store composes
// them all. Backends: Postgres, SQLite, and Memory.
package store

import (
	"context"

	"github.com/xraph/custodian/authlog"
	"github.com/xraph/custodian/catalog"
	"github.com/xraph/custodian/deployment"
	"github.com/xraph/custodian/experiment"
	"github.com/xraph/custodian/group"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/project"
	"github.com/xraph/custodian/sharing"
)

// Store is the aggregate persistence interface. A single backend
// (postgres, sqlite, memory) implements every subsystem store, including
// the sharing registry.
type Store interface {
	sharing.Registry
	profile.Store
	catalog.Store
	group.Store
	project.Store
	experiment.Store
	deployment.Store
	authlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
