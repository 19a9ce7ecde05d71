package custodian

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/custodian/event"
	"github.com/xraph/custodian/project"
)

func TestLifecycleEventsPublished(t *testing.T) {
	ctx := principalCtx("alice")
	pub := event.NewMemory()
	eng, _ := newTestEngine(t, noAutoShare(), WithPublisher(pub))

	pid, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.ShareEntityWithUsers(ctx, "gw1", pid.String(), []string{"bob"}, PermissionWrite); err != nil {
		t.Fatal(err)
	}
	if err := eng.RevokeEntitySharingFromUsers(ctx, "gw1", pid.String(), []string{"bob"}, PermissionWrite); err != nil {
		t.Fatal(err)
	}
	if err := eng.DeleteProject(ctx, "gw1", pid); err != nil {
		t.Fatal(err)
	}

	events := pub.Events()
	want := []event.Type{
		event.ResourceCreated,
		event.ResourceShared,
		event.ResourceUnshared,
		event.ResourceDeleted,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], ev.Type)
		}
		if ev.GatewayID != "gw1" {
			t.Fatalf("event %d: expected gateway gw1, got %s", i, ev.GatewayID)
		}
		if ev.ResourceID != pid.String() {
			t.Fatalf("event %d: expected resource %s, got %s", i, pid, ev.ResourceID)
		}
		if ev.Actor != "alice" {
			t.Fatalf("event %d: expected actor alice, got %q", i, ev.Actor)
		}
		if ev.OccurredAt.IsZero() {
			t.Fatalf("event %d: missing timestamp", i)
		}
	}
}

// failingPublisher always rejects delivery.
type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, event.Event) error {
	return errors.New("broker down")
}

func TestPublishFailureDoesNotFailWorkflow(t *testing.T) {
	ctx := principalCtx("alice")
	eng, _ := newTestEngine(t, noAutoShare(), WithPublisher(failingPublisher{}))

	pid, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"})
	if err != nil {
		t.Fatalf("create should succeed despite broker failure: %v", err)
	}
	if _, err := eng.GetProject(ctx, pid); err != nil {
		t.Fatal(err)
	}
	if err := eng.ShareEntityWithUsers(ctx, "gw1", pid.String(), []string{"bob"}, PermissionWrite); err != nil {
		t.Fatalf("share should succeed despite broker failure: %v", err)
	}
}
