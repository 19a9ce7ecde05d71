package custodian

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/custodian/deployment"
	"github.com/xraph/custodian/experiment"
	"github.com/xraph/custodian/id"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/project"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store/memory"
)

// noAutoShare disables baseline admin grants so facade tests do not need
// gateway groups provisioned.
func noAutoShare() Option {
	f := false
	return WithConfig(Config{AutoShareWithAdmins: &f})
}

// failingCreateRegistry rejects entity registration to exercise rollback.
type failingCreateRegistry struct {
	sharing.Registry
}

func (failingCreateRegistry) CreateEntity(context.Context, *sharing.Entity) error {
	return errors.New("registry down")
}

func TestCreateProjectRollsBackRecordOnRegistryFailure(t *testing.T) {
	ctx := principalCtx("alice")
	s := memory.New()
	eng, err := NewEngine(WithStore(s), WithRegistry(failingCreateRegistry{Registry: s}), noAutoShare())
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.EnsureDomain(ctx, "gw1"); err != nil {
		t.Fatal(err)
	}

	p := &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"}
	if _, err := eng.CreateProject(ctx, p); !IsKind(err, KindSystemError) {
		t.Fatalf("expected system error, got %v", err)
	}

	// The record must not survive the failed registration.
	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected project record rolled back, got %v", err)
	}
}

func TestCreateProjectRollsBackOnAutoShareFailure(t *testing.T) {
	ctx := principalCtx("alice")

	// Auto-share is on but the gateway has no admin groups and no
	// provisioner, so the final step fails.
	eng, s := newTestEngine(t)

	p := &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"}
	if _, err := eng.CreateProject(ctx, p); !IsKind(err, KindSystemError) {
		t.Fatalf("expected system error, got %v", err)
	}

	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected project record rolled back, got %v", err)
	}
	if _, err := s.GetEntity(ctx, "gw1", p.ID.String()); !errors.Is(err, sharing.ErrNotFound) {
		t.Fatalf("expected sharing entity rolled back, got %v", err)
	}
}

func TestCreateProjectAutoShareDisabled(t *testing.T) {
	ctx := principalCtx("alice")
	eng, _ := newTestEngine(t, noAutoShare())

	pid, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := eng.GetProject(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "cosmo" {
		t.Fatalf("unexpected project %+v", got)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	eng, _ := newTestEngine(t, noAutoShare())
	_, err := eng.CreateProject(principalCtx("alice"), &project.Project{GatewayID: "gw1", OwnerID: "alice"})
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestCreateExperimentUnderSharedProject(t *testing.T) {
	ctx := principalCtx("alice")
	eng, s := newTestEngine(t, noAutoShare())

	pid, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"})
	if err != nil {
		t.Fatal(err)
	}
	// A cascading WRITE grant on the project lets bob create children.
	if err := eng.ShareEntityWithUsers(ctx, "gw1", pid.String(), []string{"bob"}, PermissionWrite); err != nil {
		t.Fatal(err)
	}

	x := &experiment.Experiment{GatewayID: "gw1", OwnerID: "bob", Name: "run-001", ProjectID: pid}
	xid, err := eng.CreateExperiment(principalCtx("bob"), x)
	if err != nil {
		t.Fatal(err)
	}
	if x.State != experiment.StateCreated {
		t.Fatalf("expected default state, got %s", x.State)
	}

	// The experiment entity hangs off the project so project grants
	// cascade down to it.
	ent, err := s.GetEntity(ctx, "gw1", xid.String())
	if err != nil {
		t.Fatal(err)
	}
	if ent.ParentID != pid.String() {
		t.Fatalf("expected parent %s, got %s", pid, ent.ParentID)
	}

	if _, err := eng.GetExperiment(principalCtx("bob"), xid); err != nil {
		t.Fatal(err)
	}
	// Alice reads it through her cascading OWNER grant on the project.
	if _, err := eng.GetExperiment(ctx, xid); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.GetExperiment(principalCtx("mallory"), xid); !IsKind(err, KindAuthorizationDenied) {
		t.Fatalf("expected denial, got %v", err)
	}
}

func TestCreateExperimentRequiresProjectWrite(t *testing.T) {
	ctx := principalCtx("alice")
	eng, _ := newTestEngine(t, noAutoShare())

	pid, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.ShareEntityWithUsers(ctx, "gw1", pid.String(), []string{"carol"}, PermissionRead); err != nil {
		t.Fatal(err)
	}

	x := &experiment.Experiment{GatewayID: "gw1", OwnerID: "carol", Name: "run-001", ProjectID: pid}
	if _, err := eng.CreateExperiment(principalCtx("carol"), x); !IsKind(err, KindAuthorizationDenied) {
		t.Fatalf("expected denial, got %v", err)
	}

	missing := &experiment.Experiment{GatewayID: "gw1", OwnerID: "alice", Name: "run-002", ProjectID: id.NewProjectID()}
	if _, err := eng.CreateExperiment(ctx, missing); !IsKind(err, KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteProjectRequiresOwner(t *testing.T) {
	ctx := principalCtx("alice")
	eng, s := newTestEngine(t, noAutoShare())

	pid, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.ShareEntityWithUsers(ctx, "gw1", pid.String(), []string{"bob"}, PermissionWrite); err != nil {
		t.Fatal(err)
	}

	// WRITE does not grant deletion.
	if err := eng.DeleteProject(principalCtx("bob"), "gw1", pid); !IsKind(err, KindAuthorizationDenied) {
		t.Fatalf("expected denial, got %v", err)
	}

	if err := eng.DeleteProject(ctx, "gw1", pid); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.GetProject(ctx, pid); !IsKind(err, KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetEntity(context.Background(), "gw1", pid.String()); !errors.Is(err, sharing.ErrNotFound) {
		t.Fatalf("expected sharing entity removed, got %v", err)
	}
}

func TestUpdateProjectSyncsEntityMetadata(t *testing.T) {
	ctx := principalCtx("alice")
	eng, s := newTestEngine(t, noAutoShare())

	p := &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "cosmo"}
	pid, err := eng.CreateProject(ctx, p)
	if err != nil {
		t.Fatal(err)
	}

	p.Name = "cosmo-v2"
	p.Description = "reprocessed"
	if err := eng.UpdateProject(ctx, p); err != nil {
		t.Fatal(err)
	}

	ent, err := s.GetEntity(context.Background(), "gw1", pid.String())
	if err != nil {
		t.Fatal(err)
	}
	if ent.Name != "cosmo-v2" || ent.Description != "reprocessed" {
		t.Fatalf("entity metadata not synced: %+v", ent)
	}
}

func TestListProjectsVisibility(t *testing.T) {
	ctx := principalCtx("alice")
	eng, _ := newTestEngine(t, noAutoShare())

	shared, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "shared"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CreateProject(ctx, &project.Project{GatewayID: "gw1", OwnerID: "alice", Name: "private"}); err != nil {
		t.Fatal(err)
	}
	if err := eng.ShareEntityWithUsers(ctx, "gw1", shared.String(), []string{"bob"}, PermissionRead); err != nil {
		t.Fatal(err)
	}

	mine, err := eng.ListProjects(ctx, "gw1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected owner to see 2 projects, got %d", len(mine))
	}

	bobs, err := eng.ListProjects(principalCtx("bob"), "gw1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(bobs) != 1 || bobs[0].Name != "shared" {
		t.Fatalf("expected bob to see only the shared project, got %d", len(bobs))
	}
}

func TestCreateApplicationDeployment(t *testing.T) {
	ctx := principalCtx("alice")
	eng, s := newTestEngine(t, noAutoShare())

	d := &deployment.Deployment{
		GatewayID:         "gw1",
		OwnerID:           "alice",
		AppModuleID:       "gaussian",
		ComputeResourceID: "cluster-a",
		ExecutablePath:    "/opt/gaussian/bin/g16",
	}
	did, err := eng.CreateApplicationDeployment(ctx, d)
	if err != nil {
		t.Fatal(err)
	}

	ent, err := s.GetEntity(context.Background(), "gw1", did.String())
	if err != nil {
		t.Fatal(err)
	}
	if ent.Name != "gaussian on cluster-a" {
		t.Fatalf("unexpected entity name %q", ent.Name)
	}

	if _, err := eng.GetApplicationDeployment(ctx, did); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.GetApplicationDeployment(principalCtx("mallory"), did); !IsKind(err, KindAuthorizationDenied) {
		t.Fatalf("expected denial, got %v", err)
	}
}

func TestCreateGroupResourceProfileOwnedByActor(t *testing.T) {
	ctx := principalCtx("carol")
	eng, s := newTestEngine(t, noAutoShare())

	p := &profile.GroupResourceProfile{
		GatewayID: "gw1",
		Name:      "hpc-allocation",
		ComputePreferences: []profile.GroupComputePreference{
			{ComputeResourceID: "cluster-a", LoginUserName: "grpuser"},
		},
	}
	pid, err := eng.CreateGroupResourceProfile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if p.ComputePreferences[0].ProfileID != pid {
		t.Fatal("compute preference not stamped with the profile id")
	}

	ent, err := s.GetEntity(context.Background(), "gw1", pid.String())
	if err != nil {
		t.Fatal(err)
	}
	if ent.OwnerID != "carol" {
		t.Fatalf("expected actor ownership, got %s", ent.OwnerID)
	}

	mine, err := eng.ListGroupResourceProfiles(ctx, "gw1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].Name != "hpc-allocation" {
		t.Fatalf("unexpected profiles %v", mine)
	}

	others, err := eng.ListGroupResourceProfiles(principalCtx("dave"), "gw1")
	if err != nil {
		t.Fatal(err)
	}
	if len(others) != 0 {
		t.Fatalf("expected no profiles for a stranger, got %d", len(others))
	}
}
