package plugin

import (
	"context"
	"log/slog"
	"testing"

	"github.com/xraph/custodian/sharing"
)

// testPlugin implements Plugin + ResourceCreated + AfterAccessCheck.
type testPlugin struct {
	resourceCreatedCalled  bool
	afterAccessCheckCalled bool
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnResourceCreated(_ context.Context, _ *sharing.Entity) error {
	t.resourceCreatedCalled = true
	return nil
}

func (t *testPlugin) OnAfterAccessCheck(_ context.Context, _, _, _, _ string, _ bool) error {
	t.afterAccessCheckCalled = true
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch ResourceCreated to testPlugin only.
	reg.EmitResourceCreated(ctx, &sharing.Entity{ID: "proj-1", DomainID: "gw1"})
	if !tp.resourceCreatedCalled {
		t.Fatal("OnResourceCreated was not called")
	}

	// Should dispatch AfterAccessCheck.
	reg.EmitAfterAccessCheck(ctx, "gw1", "alice@gw1", "proj-1", "READ", true)
	if !tp.afterAccessCheckCalled {
		t.Fatal("OnAfterAccessCheck was not called")
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeAccessCheck(ctx, "gw1", "alice@gw1", "proj-1", "READ")
	reg.EmitResourceDeleted(ctx, "gw1", "proj-1")
	reg.EmitShutdown(ctx)
}
