package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	// Miss
	if _, ok := c.Get(ctx, "gw1", "alice", "proj-1", "READ"); ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "gw1", "alice", "proj-1", "READ", true)
	allowed, ok := c.Get(ctx, "gw1", "alice", "proj-1", "READ")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !allowed {
		t.Fatal("expected allowed")
	}

	// Different permission is a distinct key.
	if _, ok := c.Get(ctx, "gw1", "alice", "proj-1", "WRITE"); ok {
		t.Fatal("expected cache miss for different permission")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	c.Set(ctx, "gw1", "alice", "proj-1", "READ", true)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get(ctx, "gw1", "alice", "proj-1", "READ"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateDomain(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "gw1", "alice", "proj-1", "READ", true)
	c.Set(ctx, "gw1", "bob", "proj-2", "WRITE", false)
	c.Set(ctx, "gw2", "alice", "proj-1", "READ", true)

	c.InvalidateDomain(ctx, "gw1")

	if _, ok := c.Get(ctx, "gw1", "alice", "proj-1", "READ"); ok {
		t.Fatal("expected gw1 entry to be invalidated")
	}
	if _, ok := c.Get(ctx, "gw1", "bob", "proj-2", "WRITE"); ok {
		t.Fatal("expected gw1 entry to be invalidated")
	}
	if _, ok := c.Get(ctx, "gw2", "alice", "proj-1", "READ"); !ok {
		t.Fatal("expected gw2 entry to survive")
	}
}

func TestMemoryCacheInvalidateEntity(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "gw1", "alice", "proj-1", "READ", true)
	c.Set(ctx, "gw1", "bob", "proj-1", "WRITE", true)
	c.Set(ctx, "gw1", "alice", "proj-2", "READ", true)

	c.InvalidateEntity(ctx, "gw1", "proj-1")

	if _, ok := c.Get(ctx, "gw1", "alice", "proj-1", "READ"); ok {
		t.Fatal("expected proj-1 entry to be invalidated")
	}
	if _, ok := c.Get(ctx, "gw1", "bob", "proj-1", "WRITE"); ok {
		t.Fatal("expected proj-1 entry to be invalidated")
	}
	if _, ok := c.Get(ctx, "gw1", "alice", "proj-2", "READ"); !ok {
		t.Fatal("expected proj-2 entry to survive")
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	c.Set(ctx, "gw1", "alice", "proj-1", "READ", true)
	c.Set(ctx, "gw1", "alice", "proj-2", "READ", true)
	c.Set(ctx, "gw1", "alice", "proj-3", "READ", true)

	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	if n > 2 {
		t.Fatalf("expected at most 2 entries after eviction, got %d", n)
	}
}
