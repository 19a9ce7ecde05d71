package custodian

import (
	"context"
	"testing"

	"github.com/xraph/custodian/group"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store/memory"
)

func principalCtx(userID string) context.Context {
	return WithPrincipal(context.Background(), Principal{UserID: userID, GatewayID: "gw1"})
}

func saveAdminGroups(t *testing.T, s *memory.Store) {
	t.Helper()
	err := s.SaveGatewayGroups(context.Background(), &group.GatewayGroups{
		GatewayID:             "gw1",
		AdminsGroupID:         "gw1-admins",
		ReadOnlyAdminsGroupID: "gw1-ro-admins",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestShareRequiresManageSharing(t *testing.T) {
	eng, s := newTestEngine(t)
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)

	// A stranger may not share.
	err := eng.ShareEntityWithUsers(principalCtx("mallory"), "gw1", "proj-1", []string{"bob"}, PermissionRead)
	if !IsKind(err, KindAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}

	// The owner may, through the owner override.
	if err := eng.ShareEntityWithUsers(principalCtx("alice"), "gw1", "proj-1", []string{"bob"}, PermissionRead); err != nil {
		t.Fatal(err)
	}
	if allowed, _ := eng.UserHasAccess(context.Background(), "gw1", "bob", "proj-1", PermissionRead); !allowed {
		t.Fatal("expected bob to gain READ")
	}

	// A MANAGE_SHARING holder may share READ and WRITE.
	if err := eng.ShareEntityWithUsers(principalCtx("alice"), "gw1", "proj-1", []string{"carol"}, PermissionManageSharing); err != nil {
		t.Fatal(err)
	}
	if err := eng.ShareEntityWithUsers(principalCtx("carol"), "gw1", "proj-1", []string{"dave"}, PermissionWrite); err != nil {
		t.Fatal(err)
	}
}

func TestManageSharingGrantRequiresOwner(t *testing.T) {
	eng, s := newTestEngine(t)
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)

	if err := eng.ShareEntityWithUsers(principalCtx("alice"), "gw1", "proj-1", []string{"carol"}, PermissionManageSharing); err != nil {
		t.Fatal(err)
	}

	// carol can manage sharing but may not hand the right onwards.
	err := eng.ShareEntityWithUsers(principalCtx("carol"), "gw1", "proj-1", []string{"dave"}, PermissionManageSharing)
	if !IsKind(err, KindAuthorizationDenied) {
		t.Fatalf("expected authorization denied, got %v", err)
	}

	// Granting MANAGE_SHARING registered the permission type; a repeat
	// grant reuses it without error.
	exists, err := s.PermissionTypeExists(context.Background(), "gw1", string(PermissionManageSharing))
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected MANAGE_SHARING permission type to be registered")
	}
	if err := eng.ShareEntityWithUsers(principalCtx("alice"), "gw1", "proj-1", []string{"erin"}, PermissionManageSharing); err != nil {
		t.Fatal(err)
	}
}

func TestShareUnsupportedPermission(t *testing.T) {
	eng, s := newTestEngine(t)
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)

	err := eng.ShareEntityWithUsers(principalCtx("alice"), "gw1", "proj-1", []string{"bob"}, PermissionOwner)
	if !IsKind(err, KindUnsupportedOperation) {
		t.Fatalf("ownership must not be shareable, got %v", err)
	}
}

func TestShareWithoutPrincipal(t *testing.T) {
	eng, s := newTestEngine(t)
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)

	err := eng.ShareEntityWithUsers(context.Background(), "gw1", "proj-1", []string{"bob"}, PermissionRead)
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

// recordingRegistry counts revocations reaching the registry.
type recordingRegistry struct {
	sharing.Registry
	groupRevokes int
}

func (r *recordingRegistry) RevokeEntitySharingFromGroups(ctx context.Context, domainID, entityID string, groupIDs []string, permission string) error {
	r.groupRevokes++
	return r.Registry.RevokeEntitySharingFromGroups(ctx, domainID, entityID, groupIDs, permission)
}

func TestRevokeProtectionForAdminGroups(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	reg := &recordingRegistry{Registry: s}
	eng, err := NewEngine(WithStore(s), WithRegistry(reg))
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.EnsureDomain(ctx, "gw1"); err != nil {
		t.Fatal(err)
	}
	saveAdminGroups(t, s)
	createEntity(t, s, "exp-1", "alice", sharing.EntityExperiment)

	for _, gid := range []string{"gw1-admins", "gw1-ro-admins", "team-x"} {
		if err := s.ShareEntityWithGroups(ctx, "gw1", "exp-1", []string{gid}, string(PermissionRead), true); err != nil {
			t.Fatal(err)
		}
	}

	// Admin group baseline grants cannot be revoked on experiments.
	err = eng.RevokeEntitySharingFromGroups(principalCtx("alice"), "gw1", "exp-1", []string{"gw1-admins"}, PermissionRead)
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	err = eng.RevokeEntitySharingFromGroups(principalCtx("alice"), "gw1", "exp-1", []string{"gw1-ro-admins"}, PermissionRead)
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}

	// A batch containing a protected group is rejected whole; the
	// unprotected group keeps its grant.
	err = eng.RevokeEntitySharingFromGroups(principalCtx("alice"), "gw1", "exp-1", []string{"team-x", "gw1-admins"}, PermissionRead)
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if reg.groupRevokes != 0 {
		t.Fatalf("rejected revocations must not reach the registry, saw %d calls", reg.groupRevokes)
	}
	groups, err := s.ListSharedGroups(ctx, "gw1", "exp-1", string(PermissionRead))
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected all grants intact, got %v", groups)
	}

	// Ordinary groups can be revoked.
	if err := eng.RevokeEntitySharingFromGroups(principalCtx("alice"), "gw1", "exp-1", []string{"team-x"}, PermissionRead); err != nil {
		t.Fatal(err)
	}
	if reg.groupRevokes != 1 {
		t.Fatalf("expected one registry revoke, saw %d", reg.groupRevokes)
	}
}

func TestRevokeProtectionOnlyCoversPrivilegedTypes(t *testing.T) {
	eng, s := newTestEngine(t)
	saveAdminGroups(t, s)
	createEntity(t, s, "proj-1", "alice", sharing.EntityProject)
	ctx := context.Background()
	if err := s.ShareEntityWithGroups(ctx, "gw1", "proj-1", []string{"gw1-admins"}, string(PermissionRead), true); err != nil {
		t.Fatal(err)
	}

	// Projects are not protected; even the admins group can lose access.
	if err := eng.RevokeEntitySharingFromGroups(principalCtx("alice"), "gw1", "proj-1", []string{"gw1-admins"}, PermissionRead); err != nil {
		t.Fatal(err)
	}
}

func TestShareEntityWithAdminGatewayGroups(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	saveAdminGroups(t, s)
	createEntity(t, s, "exp-1", "alice", sharing.EntityExperiment)

	if err := eng.ShareEntityWithAdminGatewayGroups(ctx, "gw1", "exp-1"); err != nil {
		t.Fatal(err)
	}

	if err := s.AddUsersToGroup(ctx, "gw1", "gw1-admins", []string{"root"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddUsersToGroup(ctx, "gw1", "gw1-ro-admins", []string{"viewer"}); err != nil {
		t.Fatal(err)
	}

	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "root", "exp-1", PermissionWrite); !allowed {
		t.Fatal("expected admins group member to hold WRITE")
	}
	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "root", "exp-1", PermissionManageSharing); !allowed {
		t.Fatal("expected admins group member to hold MANAGE_SHARING")
	}
	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "viewer", "exp-1", PermissionRead); !allowed {
		t.Fatal("expected read-only admins group member to hold READ")
	}
	if allowed, _ := eng.UserHasAccess(ctx, "gw1", "viewer", "exp-1", PermissionWrite); allowed {
		t.Fatal("read-only admins must not hold WRITE")
	}
}

// stubProvisioner hands out fixed group ids and counts invocations.
type stubProvisioner struct {
	calls int
}

func (p *stubProvisioner) Initialize(_ context.Context, gatewayID string) (*group.GatewayGroups, error) {
	p.calls++
	return &group.GatewayGroups{
		GatewayID:             gatewayID,
		AdminsGroupID:         gatewayID + "-admins",
		ReadOnlyAdminsGroupID: gatewayID + "-ro-admins",
	}, nil
}

func TestGatewayGroupsLazyProvisioning(t *testing.T) {
	ctx := context.Background()
	prov := &stubProvisioner{}
	eng, s := newTestEngine(t, WithGroupProvisioner(prov))
	createEntity(t, s, "exp-1", "alice", sharing.EntityExperiment)

	// No groups saved yet: first use provisions and persists them.
	if err := eng.ShareEntityWithAdminGatewayGroups(ctx, "gw1", "exp-1"); err != nil {
		t.Fatal(err)
	}
	if prov.calls != 1 {
		t.Fatalf("expected one provisioning call, got %d", prov.calls)
	}
	saved, err := s.GetGatewayGroups(ctx, "gw1")
	if err != nil {
		t.Fatal(err)
	}
	if saved.AdminsGroupID != "gw1-admins" {
		t.Fatalf("unexpected groups record %+v", saved)
	}

	// Subsequent uses hit the stored record.
	createEntity(t, s, "exp-2", "alice", sharing.EntityExperiment)
	if err := eng.ShareEntityWithAdminGatewayGroups(ctx, "gw1", "exp-2"); err != nil {
		t.Fatal(err)
	}
	if prov.calls != 1 {
		t.Fatalf("expected provisioner to run once, got %d", prov.calls)
	}
}

func TestEnsureDomainIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// newTestEngine already provisioned gw1; repeating must be a no-op.
	if err := eng.EnsureDomain(ctx, "gw1"); err != nil {
		t.Fatal(err)
	}
	if err := eng.EnsureDomain(ctx, "gw1"); err != nil {
		t.Fatal(err)
	}

	exists, err := s.DomainExists(ctx, "gw1")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected domain gw1")
	}
	for _, et := range []sharing.EntityType{sharing.EntityProject, sharing.EntityExperiment, sharing.EntityDeployment, sharing.EntityGroupProfile, sharing.EntityCredentialToken} {
		ok, err := s.EntityTypeExists(ctx, "gw1", et)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("expected entity type %s", et)
		}
	}
	for _, perm := range []PermissionType{PermissionOwner, PermissionRead, PermissionWrite} {
		ok, err := s.PermissionTypeExists(ctx, "gw1", string(perm))
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("expected permission type %s", perm)
		}
	}
}
