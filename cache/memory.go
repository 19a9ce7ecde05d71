// Package cache provides caching implementations for Custodian access
// decisions.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xraph/custodian"
)

// Compile-time interface check.
var _ custodian.Cache = (*Memory)(nil)

// Memory caches access decisions in process with TTL expiry. Keys are
// laid out domain:entity:principal:permission so that invalidating a
// domain or an entity is a prefix sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]decision
	ttl     time.Duration
	maxSize int
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize caps the number of entries held at once.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates an in-memory decision cache. The defaults hold up to
// 10000 decisions for five minutes each.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]decision),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached decision and whether one was present and fresh.
func (m *Memory) Get(_ context.Context, domainID, principalID, entityID, permission string) (bool, bool) {
	key := decisionKey(domainID, principalID, entityID, permission)
	m.mu.RLock()
	d, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, false
	}
	if time.Now().After(d.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, false
	}
	return d.allowed, true
}

// Set records a decision. At capacity, expired entries are swept first
// and one arbitrary entry is dropped if the sweep freed nothing.
func (m *Memory) Set(_ context.Context, domainID, principalID, entityID, permission string, allowed bool) {
	key := decisionKey(domainID, principalID, entityID, permission)
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.maxSize {
		now := time.Now()
		for k, d := range m.entries {
			if now.After(d.expiresAt) {
				delete(m.entries, k)
			}
		}
		if len(m.entries) >= m.maxSize {
			for k := range m.entries {
				delete(m.entries, k)
				break
			}
		}
	}

	m.entries[key] = decision{allowed: allowed, expiresAt: time.Now().Add(m.ttl)}
}

// InvalidateDomain drops every cached decision in the domain.
func (m *Memory) InvalidateDomain(_ context.Context, domainID string) {
	m.sweepPrefix(domainID + ":")
}

// InvalidateEntity drops every cached decision touching the entity.
func (m *Memory) InvalidateEntity(_ context.Context, domainID, entityID string) {
	m.sweepPrefix(domainID + ":" + entityID + ":")
}

func (m *Memory) sweepPrefix(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

func decisionKey(domainID, principalID, entityID, permission string) string {
	return domainID + ":" + entityID + ":" + principalID + ":" + permission
}
