package custodian

import (
	"context"
	"testing"

	"github.com/xraph/custodian/adaptor"
	"github.com/xraph/custodian/catalog"
	"github.com/xraph/custodian/id"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store/memory"
)

// addGroupProfile stores a group resource profile and registers it as an
// entity readable by the given users.
func addGroupProfile(t *testing.T, s *memory.Store, p *profile.GroupResourceProfile, readers ...string) {
	t.Helper()
	ctx := context.Background()
	if p.ID.IsNil() {
		p.ID = id.NewGroupProfileID()
	}
	for i := range p.ComputePreferences {
		p.ComputePreferences[i].ProfileID = p.ID
	}
	if err := s.CreateGroupResourceProfile(ctx, p); err != nil {
		t.Fatal(err)
	}
	err := s.CreateEntity(ctx, &sharing.Entity{
		ID:       p.ID.String(),
		DomainID: p.GatewayID,
		Type:     sharing.EntityGroupProfile,
		OwnerID:  "gw-admin",
		Name:     p.Name,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(readers) > 0 {
		if err := s.ShareEntityWithUsers(ctx, p.GatewayID, p.ID.String(), readers, string(PermissionRead), true); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolveComputeUserPreferenceWins(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// A group profile the user can read also covers the resource; the
	// user's own preference must still win.
	addGroupProfile(t, s, &profile.GroupResourceProfile{
		GatewayID:    "gw1",
		Name:         "hpc-allocation",
		DefaultToken: "tok-group-default",
		ComputePreferences: []profile.GroupComputePreference{
			{ComputeResourceID: "cluster-a", LoginUserName: "grpuser", CredentialToken: "tok-group"},
		},
	}, "alice")
	err := s.SaveUserComputePreference(ctx, &profile.UserComputePreference{
		GatewayID:         "gw1",
		UserID:            "alice",
		ComputeResourceID: "cluster-a",
		LoginUserName:     "alice-hpc",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.SaveUserResourceProfile(ctx, &profile.UserResourceProfile{
		GatewayID:       "gw1",
		UserID:          "alice",
		CredentialToken: "tok-alice",
	})
	if err != nil {
		t.Fatal(err)
	}

	cred, err := eng.ResolveComputeCredentials(ctx, "gw1", "alice", "cluster-a")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Provenance != ProvenanceUser {
		t.Fatalf("expected user provenance, got %s", cred.Provenance)
	}
	if cred.LoginUserName != "alice-hpc" {
		t.Fatalf("expected login alice-hpc, got %s", cred.LoginUserName)
	}
	// The token chain stays within the user level: the gateway-wide
	// user token, never the group token.
	if cred.Token != "tok-alice" {
		t.Fatalf("expected token tok-alice, got %s", cred.Token)
	}
}

func TestResolveComputePreferenceTokenBeatsProfileToken(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	err := s.SaveUserComputePreference(ctx, &profile.UserComputePreference{
		GatewayID:         "gw1",
		UserID:            "alice",
		ComputeResourceID: "cluster-a",
		LoginUserName:     "alice-hpc",
		CredentialToken:   "tok-pref",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.SaveUserResourceProfile(ctx, &profile.UserResourceProfile{
		GatewayID: "gw1", UserID: "alice", CredentialToken: "tok-alice",
	})
	if err != nil {
		t.Fatal(err)
	}

	cred, err := eng.ResolveComputeCredentials(ctx, "gw1", "alice", "cluster-a")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Token != "tok-pref" {
		t.Fatalf("expected preference token, got %s", cred.Token)
	}
}

func TestResolveComputeUserLoginWithoutAnyToken(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// A group token exists but must not be borrowed for a user-level login.
	addGroupProfile(t, s, &profile.GroupResourceProfile{
		GatewayID:    "gw1",
		Name:         "hpc-allocation",
		DefaultToken: "tok-group-default",
		ComputePreferences: []profile.GroupComputePreference{
			{ComputeResourceID: "cluster-a", LoginUserName: "grpuser"},
		},
	}, "alice")
	err := s.SaveUserComputePreference(ctx, &profile.UserComputePreference{
		GatewayID:         "gw1",
		UserID:            "alice",
		ComputeResourceID: "cluster-a",
		LoginUserName:     "alice-hpc",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = eng.ResolveComputeCredentials(ctx, "gw1", "alice", "cluster-a")
	if !IsKind(err, KindAuthenticationFailure) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
}

func TestResolveComputeGroupFallback(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	addGroupProfile(t, s, &profile.GroupResourceProfile{
		GatewayID: "gw1",
		Name:      "hpc-allocation",
		ComputePreferences: []profile.GroupComputePreference{
			{ComputeResourceID: "cluster-a", LoginUserName: "grpuser", CredentialToken: "tok-group"},
		},
	}, "bob")

	cred, err := eng.ResolveComputeCredentials(ctx, "gw1", "bob", "cluster-a")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Provenance != ProvenanceGroup {
		t.Fatalf("expected group provenance, got %s", cred.Provenance)
	}
	if cred.LoginUserName != "grpuser" || cred.Token != "tok-group" {
		t.Fatalf("unexpected credential %+v", cred)
	}
}

func TestResolveComputeGroupTokenChain(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// Preference has no token: the profile default applies.
	addGroupProfile(t, s, &profile.GroupResourceProfile{
		GatewayID:    "gw1",
		Name:         "with-default",
		DefaultToken: "tok-default",
		ComputePreferences: []profile.GroupComputePreference{
			{ComputeResourceID: "cluster-a", LoginUserName: "grpuser"},
		},
	}, "bob")
	cred, err := eng.ResolveComputeCredentials(ctx, "gw1", "bob", "cluster-a")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Token != "tok-default" {
		t.Fatalf("expected profile default token, got %s", cred.Token)
	}

	// Neither preference nor profile carries a token: the user's
	// gateway-wide token is the last resort.
	addGroupProfile(t, s, &profile.GroupResourceProfile{
		GatewayID: "gw1",
		Name:      "bare",
		ComputePreferences: []profile.GroupComputePreference{
			{ComputeResourceID: "cluster-b", LoginUserName: "grpuser2"},
		},
	}, "bob")
	err = s.SaveUserResourceProfile(ctx, &profile.UserResourceProfile{
		GatewayID: "gw1", UserID: "bob", CredentialToken: "tok-bob",
	})
	if err != nil {
		t.Fatal(err)
	}
	cred, err = eng.ResolveComputeCredentials(ctx, "gw1", "bob", "cluster-b")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Provenance != ProvenanceGroup || cred.Token != "tok-bob" {
		t.Fatalf("expected group login with user fallback token, got %+v", cred)
	}
}

func TestResolveComputeNoLogin(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.ResolveComputeCredentials(context.Background(), "gw1", "nobody", "cluster-a")
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestResolveComputeUnreadableGroupProfileIgnored(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	// The profile exists but bob has no READ grant on it.
	addGroupProfile(t, s, &profile.GroupResourceProfile{
		GatewayID: "gw1",
		Name:      "private",
		ComputePreferences: []profile.GroupComputePreference{
			{ComputeResourceID: "cluster-a", LoginUserName: "grpuser", CredentialToken: "tok"},
		},
	})

	_, err := eng.ResolveComputeCredentials(ctx, "gw1", "bob", "cluster-a")
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestResolveStorageUserPreferenceWins(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	err := s.SaveUserStoragePreference(ctx, &profile.UserStoragePreference{
		GatewayID:         "gw1",
		UserID:            "alice",
		StorageResourceID: "archive-1",
		LoginUserName:     "alice-arch",
		CredentialToken:   "tok-arch",
	})
	if err != nil {
		t.Fatal(err)
	}

	cred, err := eng.ResolveStorageCredentials(ctx, "gw1", "alice", "archive-1")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Provenance != ProvenanceUser || cred.LoginUserName != "alice-arch" || cred.Token != "tok-arch" {
		t.Fatalf("unexpected credential %+v", cred)
	}
}

func TestResolveStorageGatewayFallback(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	err := s.SaveGatewayResourceProfile(ctx, &profile.GatewayResourceProfile{
		GatewayID:       "gw1",
		CredentialToken: "tok-gateway",
		StoragePreferences: []profile.GatewayStoragePreference{
			{GatewayID: "gw1", StorageResourceID: "archive-1", LoginUserName: "gwsvc"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	cred, err := eng.ResolveStorageCredentials(ctx, "gw1", "alice", "archive-1")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Provenance != ProvenanceGateway {
		t.Fatalf("expected gateway provenance, got %s", cred.Provenance)
	}
	if cred.LoginUserName != "gwsvc" || cred.Token != "tok-gateway" {
		t.Fatalf("unexpected credential %+v", cred)
	}
}

func TestResolveStorageNoLogin(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.ResolveStorageCredentials(context.Background(), "gw1", "alice", "archive-1")
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

// fakeFactory records which adaptor kind was opened and returns a stub handle.
type fakeFactory struct {
	computeOpens int
	storageOpens int
	lastLogin    string
	lastToken    string
}

type fakeHandle struct {
	closed *bool
}

func (h fakeHandle) StorageVolumeInfo(_ context.Context, path string) (*adaptor.VolumeInfo, error) {
	return &adaptor.VolumeInfo{Path: path, TotalBytes: 100, UsedBytes: 40, FreeBytes: 60}, nil
}

func (h fakeHandle) StorageDirectoryInfo(_ context.Context, path string) (*adaptor.DirectoryInfo, error) {
	return &adaptor.DirectoryInfo{Path: path}, nil
}

func (h fakeHandle) Close() error {
	*h.closed = true
	return nil
}

func (f *fakeFactory) ComputeSSHAdaptor(_ context.Context, _, _, token, _, loginUserName string) (adaptor.Handle, error) {
	f.computeOpens++
	f.lastLogin = loginUserName
	f.lastToken = token
	return fakeHandle{closed: new(bool)}, nil
}

func (f *fakeFactory) StorageSSHAdaptor(_ context.Context, _, _, token, _, loginUserName string) (adaptor.Handle, error) {
	f.storageOpens++
	f.lastLogin = loginUserName
	f.lastToken = token
	return fakeHandle{closed: new(bool)}, nil
}

func TestStorageInfoProbesResourceKind(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{}
	eng, s := newTestEngine(t, WithAdaptorFactory(factory))

	if err := s.RegisterComputeResource(ctx, &catalog.ComputeResource{ID: "cluster-a", HostName: "cluster-a.example.org", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterStorageResource(ctx, &catalog.StorageResource{ID: "archive-1", HostName: "archive.example.org", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	err := s.SaveUserComputePreference(ctx, &profile.UserComputePreference{
		GatewayID: "gw1", UserID: "alice", ComputeResourceID: "cluster-a",
		LoginUserName: "alice-hpc", CredentialToken: "tok-c",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.SaveUserStoragePreference(ctx, &profile.UserStoragePreference{
		GatewayID: "gw1", UserID: "alice", StorageResourceID: "archive-1",
		LoginUserName: "alice-arch", CredentialToken: "tok-s",
	})
	if err != nil {
		t.Fatal(err)
	}

	info, err := eng.GetResourceStorageInfo(ctx, "gw1", "alice", "cluster-a", "/scratch")
	if err != nil {
		t.Fatal(err)
	}
	if info.FreeBytes != 60 {
		t.Fatalf("unexpected volume info %+v", info)
	}
	if factory.computeOpens != 1 || factory.storageOpens != 0 {
		t.Fatalf("expected compute adaptor, opens=%d/%d", factory.computeOpens, factory.storageOpens)
	}
	if factory.lastLogin != "alice-hpc" || factory.lastToken != "tok-c" {
		t.Fatalf("adaptor opened with wrong identity %s/%s", factory.lastLogin, factory.lastToken)
	}

	dir, err := eng.GetStorageDirectoryInfo(ctx, "gw1", "alice", "archive-1", "/data")
	if err != nil {
		t.Fatal(err)
	}
	if dir.Path != "/data" {
		t.Fatalf("unexpected directory info %+v", dir)
	}
	if factory.storageOpens != 1 {
		t.Fatalf("expected storage adaptor, opens=%d", factory.storageOpens)
	}
	if factory.lastLogin != "alice-arch" || factory.lastToken != "tok-s" {
		t.Fatalf("adaptor opened with wrong identity %s/%s", factory.lastLogin, factory.lastToken)
	}
}

func TestStorageInfoUnknownResource(t *testing.T) {
	eng, _ := newTestEngine(t, WithAdaptorFactory(&fakeFactory{}))
	_, err := eng.GetResourceStorageInfo(context.Background(), "gw1", "alice", "no-such", "/")
	if !IsKind(err, KindInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestStorageInfoWithoutFactory(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.GetResourceStorageInfo(context.Background(), "gw1", "alice", "cluster-a", "/")
	if !IsKind(err, KindUnsupportedOperation) {
		t.Fatalf("expected unsupported operation, got %v", err)
	}
}
