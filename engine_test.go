package custodian

import (
	"context"
	"fmt"
	"testing"

	"github.com/xraph/custodian/authlog"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store/memory"
)

// mapCache is a minimal Cache for exercising the engine's caching path.
type mapCache struct {
	entries map[string]bool
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]bool)} }

func (c *mapCache) key(domainID, principalID, entityID, permission string) string {
	return domainID + "/" + entityID + "/" + principalID + "/" + permission
}

func (c *mapCache) Get(_ context.Context, domainID, principalID, entityID, permission string) (bool, bool) {
	allowed, ok := c.entries[c.key(domainID, principalID, entityID, permission)]
	return allowed, ok
}

func (c *mapCache) Set(_ context.Context, domainID, principalID, entityID, permission string, allowed bool) {
	c.entries[c.key(domainID, principalID, entityID, permission)] = allowed
}

func (c *mapCache) InvalidateDomain(_ context.Context, domainID string) {
	for k := range c.entries {
		if len(k) > len(domainID) && k[:len(domainID)+1] == domainID+"/" {
			delete(c.entries, k)
		}
	}
}

func (c *mapCache) InvalidateEntity(_ context.Context, domainID, entityID string) {
	prefix := domainID + "/" + entityID + "/"
	for k := range c.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := NewEngine(append([]Option{WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.EnsureDomain(context.Background(), "gw1"); err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func createEntity(t *testing.T, s *memory.Store, entityID, ownerID string, typ sharing.EntityType) {
	t.Helper()
	err := s.CreateEntity(context.Background(), &sharing.Entity{
		ID:       entityID,
		DomainID: "gw1",
		Type:     typ,
		OwnerID:  ownerID,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestOwnerOverride(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)

	// The owner holds every permission without an explicit grant.
	for _, perm := range []PermissionType{PermissionRead, PermissionWrite, PermissionManageSharing, PermissionOwner} {
		allowed, err := eng.UserHasAccess(ctx, "gw1", "alice", "proj-1", perm)
		if err != nil {
			t.Fatal(err)
		}
		if !allowed {
			t.Fatalf("expected owner to hold %s", perm)
		}
	}

	// A stranger holds nothing.
	allowed, err := eng.UserHasAccess(ctx, "gw1", "bob", "proj-1", PermissionRead)
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("expected denial for non-owner without grants")
	}

	// Holding WRITE does not imply OWNER.
	if err := s.ShareEntityWithUsers(ctx, "gw1", "proj-1", []string{"bob"}, string(PermissionWrite), true); err != nil {
		t.Fatal(err)
	}
	allowed, err = eng.UserHasAccess(ctx, "gw1", "bob", "proj-1", PermissionOwner)
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Fatal("WRITE grant must not confer OWNER")
	}
}

func TestInvalidPermissionRejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.UserHasAccess(context.Background(), "gw1", "alice", "proj-1", PermissionType("SUDO"))
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

// failingRegistry reports an error on every access check.
type failingRegistry struct {
	sharing.Registry
}

func (failingRegistry) UserHasAccess(context.Context, string, string, string, string) (bool, error) {
	return false, fmt.Errorf("registry unreachable")
}

func TestAccessCheckFailsClosed(t *testing.T) {
	s := memory.New()
	eng, err := NewEngine(WithStore(s), WithRegistry(failingRegistry{Registry: s}))
	if err != nil {
		t.Fatal(err)
	}

	// The error surfaces on the explicit API.
	_, err = eng.UserHasAccess(context.Background(), "gw1", "alice", "proj-1", PermissionRead)
	if !IsKind(err, KindSystemError) {
		t.Fatalf("expected system error, got %v", err)
	}

	// The boolean API turns the failure into a denial.
	ctx := WithPrincipal(context.Background(), Principal{UserID: "alice", GatewayID: "gw1"})
	if eng.HasAccess(ctx, "proj-1", PermissionRead) {
		t.Fatal("backend failure must deny, never allow")
	}
}

// countingRegistry counts access check calls hitting the backing registry.
type countingRegistry struct {
	sharing.Registry
	calls int
}

func (r *countingRegistry) UserHasAccess(ctx context.Context, domainID, principalID, entityID, permission string) (bool, error) {
	r.calls++
	return r.Registry.UserHasAccess(ctx, domainID, principalID, entityID, permission)
}

func TestAccessDecisionCache(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	reg := &countingRegistry{Registry: s}
	eng, err := NewEngine(WithStore(s), WithRegistry(reg), WithCache(newMapCache()))
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.EnsureDomain(ctx, "gw1"); err != nil {
		t.Fatal(err)
	}
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)

	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "alice", "proj-1", PermissionWrite); !allowed {
		t.Fatal("expected owner access")
	}
	after := reg.calls
	if after == 0 {
		t.Fatal("first check must consult the registry")
	}

	// Second identical check is served from cache.
	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "alice", "proj-1", PermissionWrite); !allowed {
		t.Fatal("expected cached allow")
	}
	if reg.calls != after {
		t.Fatalf("expected cache hit, registry consulted %d more times", reg.calls-after)
	}

	// A sharing change through the engine invalidates the entity's entries.
	octx := WithPrincipal(ctx, Principal{UserID: "alice", GatewayID: "gw1"})
	if err := eng.ShareEntityWithUsers(octx, "gw1", "proj-1", []string{"bob"}, PermissionRead); err != nil {
		t.Fatal(err)
	}
	before := reg.calls
	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "alice", "proj-1", PermissionWrite); !allowed {
		t.Fatal("expected allow after invalidation")
	}
	if reg.calls == before {
		t.Fatal("expected registry consultation after entity invalidation")
	}
}

func TestAuditDecisions(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t, WithConfig(Config{AuditDecisions: true}))
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)

	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "alice", "proj-1", PermissionRead); !allowed {
		t.Fatal("expected owner access")
	}
	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "mallory", "proj-1", PermissionWrite); allowed {
		t.Fatal("expected denial")
	}

	count, err := s.CountAuditEntries(ctx, &authlog.QueryFilter{GatewayID: "gw1"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 audit entries, got %d", count)
	}

	denied := false
	entries, err := s.ListAuditEntries(ctx, &authlog.QueryFilter{GatewayID: "gw1", Allowed: &denied})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].UserID != "mallory" {
		t.Fatalf("expected one denied entry for mallory, got %+v", entries)
	}
}

func TestGetAccessibleUsers(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)
	if err := s.ShareEntityWithUsers(ctx, "gw1", "proj-1", []string{"bob"}, string(PermissionRead), true); err != nil {
		t.Fatal(err)
	}

	// READ includes the owner alongside explicit grantees.
	users, err := eng.GetAccessibleUsers(ctx, "gw1", "proj-1", PermissionRead)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("expected alice and bob, got %v", users)
	}

	// OWNER lists owners only.
	owners, err := eng.GetAccessibleUsers(ctx, "gw1", "proj-1", PermissionOwner)
	if err != nil {
		t.Fatal(err)
	}
	if len(owners) != 1 || owners[0] != "alice" {
		t.Fatalf("expected [alice], got %v", owners)
	}

	_, err = eng.GetAccessibleUsers(ctx, "gw1", "proj-1", PermissionType("SUDO"))
	if !IsKind(err, KindUnsupportedOperation) {
		t.Fatalf("expected unsupported operation, got %v", err)
	}
}
