// Package catalog defines the compute and storage resource descriptions
// used for resource-kind disambiguation and adaptor construction.
package catalog

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a resource is not registered in the catalog.
// Probe-both disambiguation relies on it to tell "not a compute resource"
// apart from a store failure.
var ErrNotFound = errors.New("catalog: not found")

// ComputeResource describes a remote compute resource (cluster head node).
type ComputeResource struct {
	ID          string    `json:"id" db:"id"`
	HostName    string    `json:"host_name" db:"host_name"`
	Description string    `json:"description,omitempty" db:"description"`
	SSHPort     int       `json:"ssh_port,omitempty" db:"ssh_port"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// StorageResource describes a remote storage resource.
type StorageResource struct {
	ID          string    `json:"id" db:"id"`
	HostName    string    `json:"host_name" db:"host_name"`
	Description string    `json:"description,omitempty" db:"description"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
