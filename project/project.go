// Package project defines the Project entity and its store interface.
package project

import (
	"errors"
	"time"

	"github.com/xraph/custodian/id"
)

// ErrNotFound is returned when a project does not exist.
var ErrNotFound = errors.New("project: not found")

// Project is a user-owned container for experiments.
type Project struct {
	ID          id.ProjectID `json:"id" db:"id"`
	GatewayID   string       `json:"gateway_id" db:"gateway_id"`
	OwnerID     string       `json:"owner_id" db:"owner_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing projects.
type ListFilter struct {
	GatewayID string `json:"gateway_id,omitempty"`
	OwnerID   string `json:"owner_id,omitempty"`
	Search    string `json:"search,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}
