// Package event defines resource-lifecycle event publishing.
//
// The publisher is an explicit optional dependency: an engine constructed
// without one simply publishes nothing. Callers never see a broker error;
// publishing is best-effort notification, not part of any workflow's
// success condition.
package event

import (
	"context"
	"sync"
	"time"
)

// Type names a resource lifecycle event.
type Type string

const (
	// ResourceCreated fires after a resource and its sharing entity exist.
	ResourceCreated Type = "resource.created"

	// ResourceDeleted fires after a resource and its sharing entity are gone.
	ResourceDeleted Type = "resource.deleted"

	// ResourceShared fires after a share workflow completes.
	ResourceShared Type = "resource.shared"

	// ResourceUnshared fires after a revoke workflow completes.
	ResourceUnshared Type = "resource.unshared"
)

// Event is one resource lifecycle notification.
type Event struct {
	Type       Type      `json:"type"`
	GatewayID  string    `json:"gateway_id"`
	ResourceID string    `json:"resource_id"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events to a message broker.
type Publisher interface {
	// Publish delivers one event. Implementations own their delivery
	// semantics; the engine only logs failures.
	Publish(ctx context.Context, e Event) error
}

// Memory is an in-process publisher that records events. It is intended
// for testing and development.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory creates a new in-memory publisher.
func NewMemory() *Memory { return &Memory{} }

// Publish records the event.
func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of all recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
