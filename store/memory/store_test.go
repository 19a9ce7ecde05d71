package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/custodian/authlog"
	"github.com/xraph/custodian/catalog"
	"github.com/xraph/custodian/id"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/project"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func TestDomainProvisioning(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateDomain(ctx, &sharing.Domain{ID: "gw1", Name: "gw1"}); err != nil {
		t.Fatal(err)
	}
	ok, err := s.DomainExists(ctx, "gw1")
	if err != nil || !ok {
		t.Fatalf("expected domain to exist, ok=%v err=%v", ok, err)
	}

	err = s.CreateDomain(ctx, &sharing.Domain{ID: "gw1"})
	if !errors.Is(err, sharing.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if err := s.CreatePermissionType(ctx, &sharing.PermissionTypeRecord{DomainID: "gw1", Name: "READ"}); err != nil {
		t.Fatal(err)
	}
	err = s.CreatePermissionType(ctx, &sharing.PermissionTypeRecord{DomainID: "gw1", Name: "READ"})
	if !errors.Is(err, sharing.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	ok, err = s.PermissionTypeExists(ctx, "gw1", "READ")
	if err != nil || !ok {
		t.Fatalf("expected permission type to exist, ok=%v err=%v", ok, err)
	}
}

func TestEntityOwnerGrant(t *testing.T) {
	ctx := context.Background()
	s := New()

	ent := &sharing.Entity{
		ID:       "proj-1",
		DomainID: "gw1",
		Type:     sharing.EntityProject,
		OwnerID:  "alice",
		Name:     "demo",
	}
	if err := s.CreateEntity(ctx, ent); err != nil {
		t.Fatal(err)
	}

	// Creating an entity records the owner's OWNER grant.
	ok, err := s.UserHasAccess(ctx, "gw1", "alice", "proj-1", "OWNER")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected owner grant for creator")
	}

	// No grant for anyone else.
	ok, err = s.UserHasAccess(ctx, "gw1", "bob", "proj-1", "OWNER")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no grant for bob")
	}

	if err := s.CreateEntity(ctx, ent); !errors.Is(err, sharing.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCascadingGrants(t *testing.T) {
	ctx := context.Background()
	s := New()

	parent := &sharing.Entity{ID: "proj-1", DomainID: "gw1", Type: sharing.EntityProject, OwnerID: "alice"}
	child := &sharing.Entity{ID: "exp-1", DomainID: "gw1", Type: sharing.EntityExperiment, OwnerID: "alice", ParentID: "proj-1"}
	if err := s.CreateEntity(ctx, parent); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEntity(ctx, child); err != nil {
		t.Fatal(err)
	}

	// Cascading grant on the project reaches the experiment.
	if err := s.ShareEntityWithUsers(ctx, "gw1", "proj-1", []string{"bob"}, "READ", true); err != nil {
		t.Fatal(err)
	}
	ok, _ := s.UserHasAccess(ctx, "gw1", "bob", "exp-1", "READ")
	if !ok {
		t.Fatal("expected cascading grant to reach child entity")
	}

	// Non-cascading grant stays on the project.
	if err := s.ShareEntityWithUsers(ctx, "gw1", "proj-1", []string{"carol"}, "WRITE", false); err != nil {
		t.Fatal(err)
	}
	ok, _ = s.UserHasAccess(ctx, "gw1", "carol", "proj-1", "WRITE")
	if !ok {
		t.Fatal("expected direct grant on project")
	}
	ok, _ = s.UserHasAccess(ctx, "gw1", "carol", "exp-1", "WRITE")
	if ok {
		t.Fatal("non-cascading grant must not reach child entity")
	}

	// A child created after the share inherits cascading grants too.
	late := &sharing.Entity{ID: "exp-2", DomainID: "gw1", Type: sharing.EntityExperiment, OwnerID: "alice", ParentID: "proj-1"}
	if err := s.CreateEntity(ctx, late); err != nil {
		t.Fatal(err)
	}
	ok, _ = s.UserHasAccess(ctx, "gw1", "bob", "exp-2", "READ")
	if !ok {
		t.Fatal("expected cascading grant to cover later children")
	}

	// Revoke removes access.
	if err := s.RevokeEntitySharingFromUsers(ctx, "gw1", "proj-1", []string{"bob"}, "READ"); err != nil {
		t.Fatal(err)
	}
	ok, _ = s.UserHasAccess(ctx, "gw1", "bob", "exp-1", "READ")
	if ok {
		t.Fatal("expected revoke to remove cascaded access")
	}
}

func TestGroupMembershipGrants(t *testing.T) {
	ctx := context.Background()
	s := New()

	ent := &sharing.Entity{ID: "proj-1", DomainID: "gw1", Type: sharing.EntityProject, OwnerID: "alice"}
	if err := s.CreateEntity(ctx, ent); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUsersToGroup(ctx, "gw1", "team", []string{"bob", "carol"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ShareEntityWithGroups(ctx, "gw1", "proj-1", []string{"team"}, "READ", true); err != nil {
		t.Fatal(err)
	}

	ok, _ := s.UserHasAccess(ctx, "gw1", "bob", "proj-1", "READ")
	if !ok {
		t.Fatal("expected group member to have access")
	}
	ok, _ = s.UserHasAccess(ctx, "gw1", "dave", "proj-1", "READ")
	if ok {
		t.Fatal("expected non-member to be denied")
	}

	if err := s.RemoveUsersFromGroup(ctx, "gw1", "team", []string{"bob"}); err != nil {
		t.Fatal(err)
	}
	ok, _ = s.UserHasAccess(ctx, "gw1", "bob", "proj-1", "READ")
	if ok {
		t.Fatal("expected removed member to lose access")
	}

	groups, err := s.ListUserGroups(ctx, "gw1", "carol")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0] != "team" {
		t.Fatalf("expected [team], got %v", groups)
	}
}

func TestSearchEntities(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, e := range []*sharing.Entity{
		{ID: "proj-1", DomainID: "gw1", Type: sharing.EntityProject, OwnerID: "alice", Name: "alpha"},
		{ID: "proj-2", DomainID: "gw1", Type: sharing.EntityProject, OwnerID: "bob", Name: "beta"},
		{ID: "grp-x", DomainID: "gw1", Type: sharing.EntityGroupProfile, OwnerID: "alice", Name: "cluster profile"},
	} {
		if err := s.CreateEntity(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.ShareEntityWithUsers(ctx, "gw1", "proj-2", []string{"alice"}, "READ", true); err != nil {
		t.Fatal(err)
	}

	// Alice sees her own project plus the one shared with her.
	got, err := s.SearchEntities(ctx, "gw1", "alice", &sharing.SearchFilter{Type: sharing.EntityProject})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(got))
	}

	// Type filter excludes the group profile; bob only sees his own.
	got, err = s.SearchEntities(ctx, "gw1", "bob", &sharing.SearchFilter{Type: sharing.EntityProject})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "proj-2" {
		t.Fatalf("expected [proj-2], got %v", got)
	}

	// Name filter.
	got, err = s.SearchEntities(ctx, "gw1", "alice", &sharing.SearchFilter{Type: sharing.EntityProject, Name: "alph"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "proj-1" {
		t.Fatalf("expected [proj-1], got %v", got)
	}
}

func TestListSharedUsersIncludesCascaded(t *testing.T) {
	ctx := context.Background()
	s := New()

	parent := &sharing.Entity{ID: "proj-1", DomainID: "gw1", Type: sharing.EntityProject, OwnerID: "alice"}
	child := &sharing.Entity{ID: "exp-1", DomainID: "gw1", Type: sharing.EntityExperiment, OwnerID: "alice", ParentID: "proj-1"}
	if err := s.CreateEntity(ctx, parent); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEntity(ctx, child); err != nil {
		t.Fatal(err)
	}
	if err := s.ShareEntityWithUsers(ctx, "gw1", "proj-1", []string{"bob"}, "READ", true); err != nil {
		t.Fatal(err)
	}
	if err := s.ShareEntityWithUsers(ctx, "gw1", "exp-1", []string{"carol"}, "READ", false); err != nil {
		t.Fatal(err)
	}

	users, err := s.ListSharedUsers(ctx, "gw1", "exp-1", "READ")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0] != "bob" || users[1] != "carol" {
		t.Fatalf("expected [bob carol], got %v", users)
	}
}

func TestUserComputePreferenceCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &profile.UserComputePreference{
		GatewayID:         "gw1",
		UserID:            "alice",
		ComputeResourceID: "cluster-a",
		LoginUserName:     "alice_hpc",
		CredentialToken:   "tok-1",
	}
	if err := s.SaveUserComputePreference(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetUserComputePreference(ctx, "gw1", "alice", "cluster-a")
	if err != nil {
		t.Fatal(err)
	}
	if got.LoginUserName != "alice_hpc" {
		t.Fatalf("expected alice_hpc, got %s", got.LoginUserName)
	}

	_, err = s.GetUserComputePreference(ctx, "gw1", "alice", "cluster-b")
	if !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteUserComputePreference(ctx, "gw1", "alice", "cluster-a"); err != nil {
		t.Fatal(err)
	}
	_, err = s.GetUserComputePreference(ctx, "gw1", "alice", "cluster-a")
	if !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGroupResourceProfileCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	pid := id.NewGroupProfileID()
	p := &profile.GroupResourceProfile{
		ID:           pid,
		GatewayID:    "gw1",
		Name:         "cluster allocation",
		DefaultToken: "tok-default",
		ComputePreferences: []profile.GroupComputePreference{
			{ProfileID: pid, ComputeResourceID: "cluster-a", LoginUserName: "svc", CredentialToken: "tok-a"},
		},
	}
	if err := s.CreateGroupResourceProfile(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetGroupResourceProfile(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	pref := got.ComputePreference("cluster-a")
	if pref == nil || pref.CredentialToken != "tok-a" {
		t.Fatalf("expected preference for cluster-a, got %+v", pref)
	}
	if got.ComputePreference("cluster-b") != nil {
		t.Fatal("expected no preference for cluster-b")
	}

	got.Name = "renamed"
	got.ComputePreferences = nil
	if err := s.UpdateGroupResourceProfile(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetGroupResourceProfile(ctx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "renamed" || len(got.ComputePreferences) != 0 {
		t.Fatalf("expected update to replace preferences, got %+v", got)
	}

	if err := s.DeleteGroupResourceProfile(ctx, pid); err != nil {
		t.Fatal(err)
	}
	_, err = s.GetGroupResourceProfile(ctx, pid)
	if !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGatewayStoragePreference(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.SaveGatewayResourceProfile(ctx, &profile.GatewayResourceProfile{
		GatewayID:       "gw1",
		CredentialToken: "tok-gw",
		StoragePreferences: []profile.GatewayStoragePreference{
			{GatewayID: "gw1", StorageResourceID: "store-a", LoginUserName: "gwuser"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	pref, err := s.GetGatewayStoragePreference(ctx, "gw1", "store-a")
	if err != nil {
		t.Fatal(err)
	}
	if pref.LoginUserName != "gwuser" {
		t.Fatalf("expected gwuser, got %s", pref.LoginUserName)
	}

	_, err = s.GetGatewayStoragePreference(ctx, "gw1", "store-b")
	if !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogProbe(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.RegisterComputeResource(ctx, &catalog.ComputeResource{ID: "cluster-a", HostName: "a.example.org", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterStorageResource(ctx, &catalog.StorageResource{ID: "store-a", HostName: "s.example.org", Enabled: true}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetComputeResource(ctx, "cluster-a"); err != nil {
		t.Fatal(err)
	}
	_, err := s.GetComputeResource(ctx, "store-a")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetStorageResource(ctx, "store-a"); err != nil {
		t.Fatal(err)
	}
}

func TestProjectCRUDAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &project.Project{ID: id.NewProjectID(), GatewayID: "gw1", OwnerID: "alice", Name: "demo"}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "demo" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected project %+v", got)
	}

	got.Description = "updated"
	if err := s.UpdateProject(ctx, got); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListProjects(ctx, &project.ListFilter{GatewayID: "gw1", OwnerID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Description != "updated" {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditEntries(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, allowed := range []bool{true, false, true} {
		err := s.CreateAuditEntry(ctx, &authlog.Entry{
			GatewayID:  "gw1",
			UserID:     "alice",
			EntityID:   "proj-1",
			Permission: "READ",
			Allowed:    allowed,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.CountAuditEntries(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 entries, got %d", n)
	}

	denied := false
	list, err := s.ListAuditEntries(ctx, &authlog.QueryFilter{GatewayID: "gw1", Allowed: &denied})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 denied entry, got %d", len(list))
	}

	purged, err := s.PurgeAuditEntries(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 3 {
		t.Fatalf("expected 3 purged, got %d", purged)
	}

	if _, err := s.GetAuditEntry(ctx, id.NewAuditLogID()); !errors.Is(err, authlog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
