// Package memory provides an in-memory implementation of the Custodian
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xraph/custodian/authlog"
	"github.com/xraph/custodian/catalog"
	"github.com/xraph/custodian/deployment"
	"github.com/xraph/custodian/experiment"
	"github.com/xraph/custodian/group"
	"github.com/xraph/custodian/id"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/project"
	"github.com/xraph/custodian/sharing"
)

// Compile-time interface checks.
var (
	_ sharing.Registry = (*Store)(nil)
	_ profile.Store    = (*Store)(nil)
	_ catalog.Store    = (*Store)(nil)
	_ group.Store      = (*Store)(nil)
	_ project.Store    = (*Store)(nil)
	_ experiment.Store = (*Store)(nil)
	_ deployment.Store = (*Store)(nil)
	_ authlog.Store    = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Custodian records.
type Store struct {
	mu sync.RWMutex

	domains         map[string]*sharing.Domain
	entityTypes     map[string]map[sharing.EntityType]*sharing.EntityTypeRecord
	permissionTypes map[string]map[string]*sharing.PermissionTypeRecord
	entities        map[string]map[string]*sharing.Entity // domainID -> entityID
	grants          map[string]*sharing.Grant             // grantKey
	members         map[string]map[string]struct{}        // domainID|groupID -> userIDs

	userComputePrefs map[string]*profile.UserComputePreference // gatewayID|userID|resourceID
	userStoragePrefs map[string]*profile.UserStoragePreference
	userProfiles     map[string]*profile.UserResourceProfile // gatewayID|userID
	groupProfiles    map[string]*profile.GroupResourceProfile
	gatewayProfiles  map[string]*profile.GatewayResourceProfile

	computeResources map[string]*catalog.ComputeResource
	storageResources map[string]*catalog.StorageResource

	gatewayGroups map[string]*group.GatewayGroups

	projects    map[string]*project.Project
	experiments map[string]*experiment.Experiment
	deployments map[string]*deployment.Deployment

	auditEntries map[string]*authlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		domains:          make(map[string]*sharing.Domain),
		entityTypes:      make(map[string]map[sharing.EntityType]*sharing.EntityTypeRecord),
		permissionTypes:  make(map[string]map[string]*sharing.PermissionTypeRecord),
		entities:         make(map[string]map[string]*sharing.Entity),
		grants:           make(map[string]*sharing.Grant),
		members:          make(map[string]map[string]struct{}),
		userComputePrefs: make(map[string]*profile.UserComputePreference),
		userStoragePrefs: make(map[string]*profile.UserStoragePreference),
		userProfiles:     make(map[string]*profile.UserResourceProfile),
		groupProfiles:    make(map[string]*profile.GroupResourceProfile),
		gatewayProfiles:  make(map[string]*profile.GatewayResourceProfile),
		computeResources: make(map[string]*catalog.ComputeResource),
		storageResources: make(map[string]*catalog.StorageResource),
		gatewayGroups:    make(map[string]*group.GatewayGroups),
		projects:         make(map[string]*project.Project),
		experiments:      make(map[string]*experiment.Experiment),
		deployments:      make(map[string]*deployment.Deployment),
		auditEntries:     make(map[string]*authlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

func key(parts ...string) string { return strings.Join(parts, "|") }

func grantKey(g *sharing.Grant) string {
	return key(g.DomainID, g.EntityID, string(g.GranteeKind), g.GranteeID, g.Permission)
}

// ──────────────────────────────────────────────────
// Sharing registry: domains and types
// ──────────────────────────────────────────────────

func (s *Store) CreateDomain(_ context.Context, d *sharing.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.domains[d.ID]; ok {
		return fmt.Errorf("domain %s: %w", d.ID, sharing.ErrDuplicate)
	}
	cp := *d
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.domains[d.ID] = &cp
	return nil
}

func (s *Store) DomainExists(_ context.Context, domainID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.domains[domainID]
	return ok, nil
}

func (s *Store) CreateEntityType(_ context.Context, r *sharing.EntityTypeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	types, ok := s.entityTypes[r.DomainID]
	if !ok {
		types = make(map[sharing.EntityType]*sharing.EntityTypeRecord)
		s.entityTypes[r.DomainID] = types
	}
	if _, ok := types[r.Name]; ok {
		return fmt.Errorf("entity type %s: %w", r.Name, sharing.ErrDuplicate)
	}
	cp := *r
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	types[r.Name] = &cp
	return nil
}

func (s *Store) EntityTypeExists(_ context.Context, domainID string, name sharing.EntityType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entityTypes[domainID][name]
	return ok, nil
}

func (s *Store) CreatePermissionType(_ context.Context, r *sharing.PermissionTypeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	types, ok := s.permissionTypes[r.DomainID]
	if !ok {
		types = make(map[string]*sharing.PermissionTypeRecord)
		s.permissionTypes[r.DomainID] = types
	}
	if _, ok := types[r.Name]; ok {
		return fmt.Errorf("permission type %s: %w", r.Name, sharing.ErrDuplicate)
	}
	cp := *r
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	types[r.Name] = &cp
	return nil
}

func (s *Store) PermissionTypeExists(_ context.Context, domainID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.permissionTypes[domainID][name]
	return ok, nil
}

// ──────────────────────────────────────────────────
// Sharing registry: entities
// ──────────────────────────────────────────────────

func (s *Store) CreateEntity(_ context.Context, e *sharing.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ents, ok := s.entities[e.DomainID]
	if !ok {
		ents = make(map[string]*sharing.Entity)
		s.entities[e.DomainID] = ents
	}
	if _, ok := ents[e.ID]; ok {
		return fmt.Errorf("entity %s: %w", e.ID, sharing.ErrDuplicate)
	}
	cp := *e
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	ents[e.ID] = &cp

	// The owner's OWNER grant is implicit in entity creation.
	g := &sharing.Grant{
		DomainID:    e.DomainID,
		EntityID:    e.ID,
		GranteeKind: sharing.GranteeUser,
		GranteeID:   e.OwnerID,
		Permission:  "OWNER",
		Cascade:     true,
		CreatedAt:   now,
	}
	s.grants[grantKey(g)] = g
	return nil
}

func (s *Store) GetEntity(_ context.Context, domainID, entityID string) (*sharing.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[domainID][entityID]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", entityID, sharing.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) UpdateEntity(_ context.Context, e *sharing.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[e.DomainID][e.ID]; !ok {
		return fmt.Errorf("entity %s: %w", e.ID, sharing.ErrNotFound)
	}
	cp := *e
	cp.UpdatedAt = time.Now()
	s.entities[e.DomainID][e.ID] = &cp
	return nil
}

func (s *Store) DeleteEntity(_ context.Context, domainID, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities[domainID], entityID)
	for k, g := range s.grants {
		if g.DomainID == domainID && g.EntityID == entityID {
			delete(s.grants, k)
		}
	}
	return nil
}

func (s *Store) SearchEntities(_ context.Context, domainID, principalID string, filter *sharing.SearchFilter) ([]*sharing.Entity, error) {
	if filter == nil {
		filter = &sharing.SearchFilter{}
	}
	perm := filter.Permission
	if perm == "" {
		perm = "READ"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*sharing.Entity
	for _, e := range s.entities[domainID] {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.OwnerID != "" && e.OwnerID != filter.OwnerID {
			continue
		}
		if filter.ParentID != "" && e.ParentID != filter.ParentID {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.Name)) {
			continue
		}
		// Owners see their entities regardless of the permission filter.
		if !s.hasAccessLocked(domainID, principalID, e.ID, perm) &&
			!s.hasAccessLocked(domainID, principalID, e.ID, "OWNER") {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

// ──────────────────────────────────────────────────
// Sharing registry: grants and access
// ──────────────────────────────────────────────────

func (s *Store) UserHasAccess(_ context.Context, domainID, principalID, entityID, permission string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasAccessLocked(domainID, principalID, entityID, permission), nil
}

// hasAccessLocked walks the entity's ancestor chain: a grant on the entity
// itself always applies, a grant on an ancestor applies when it cascades.
// Must hold read lock.
func (s *Store) hasAccessLocked(domainID, principalID, entityID, permission string) bool {
	direct := true
	for eid := entityID; eid != ""; {
		for _, g := range s.grants {
			if g.DomainID != domainID || g.EntityID != eid || g.Permission != permission {
				continue
			}
			if !direct && !g.Cascade {
				continue
			}
			if g.GranteeKind == sharing.GranteeUser && g.GranteeID == principalID {
				return true
			}
			if g.GranteeKind == sharing.GranteeGroup && s.isMemberLocked(domainID, g.GranteeID, principalID) {
				return true
			}
		}
		e, ok := s.entities[domainID][eid]
		if !ok {
			break
		}
		eid = e.ParentID
		direct = false
	}
	return false
}

func (s *Store) isMemberLocked(domainID, groupID, userID string) bool {
	_, ok := s.members[key(domainID, groupID)][userID]
	return ok
}

func (s *Store) share(domainID, entityID string, kind sharing.GranteeKind, granteeIDs []string, permission string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[domainID][entityID]; !ok {
		return fmt.Errorf("entity %s: %w", entityID, sharing.ErrNotFound)
	}
	now := time.Now()
	for _, gid := range granteeIDs {
		g := &sharing.Grant{
			DomainID:    domainID,
			EntityID:    entityID,
			GranteeKind: kind,
			GranteeID:   gid,
			Permission:  permission,
			Cascade:     cascade,
			CreatedAt:   now,
		}
		s.grants[grantKey(g)] = g
	}
	return nil
}

func (s *Store) revoke(domainID, entityID string, kind sharing.GranteeKind, granteeIDs []string, permission string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, gid := range granteeIDs {
		delete(s.grants, key(domainID, entityID, string(kind), gid, permission))
	}
	return nil
}

func (s *Store) ShareEntityWithUsers(_ context.Context, domainID, entityID string, userIDs []string, permission string, cascade bool) error {
	return s.share(domainID, entityID, sharing.GranteeUser, userIDs, permission, cascade)
}

func (s *Store) ShareEntityWithGroups(_ context.Context, domainID, entityID string, groupIDs []string, permission string, cascade bool) error {
	return s.share(domainID, entityID, sharing.GranteeGroup, groupIDs, permission, cascade)
}

func (s *Store) RevokeEntitySharingFromUsers(_ context.Context, domainID, entityID string, userIDs []string, permission string) error {
	return s.revoke(domainID, entityID, sharing.GranteeUser, userIDs, permission)
}

func (s *Store) RevokeEntitySharingFromGroups(_ context.Context, domainID, entityID string, groupIDs []string, permission string) error {
	return s.revoke(domainID, entityID, sharing.GranteeGroup, groupIDs, permission)
}

func (s *Store) listGrantees(domainID, entityID, permission string, kind sharing.GranteeKind) []string {
	var out []string
	seen := make(map[string]struct{})
	direct := true
	for eid := entityID; eid != ""; {
		for _, g := range s.grants {
			if g.DomainID != domainID || g.EntityID != eid || g.Permission != permission || g.GranteeKind != kind {
				continue
			}
			if !direct && !g.Cascade {
				continue
			}
			if _, ok := seen[g.GranteeID]; ok {
				continue
			}
			seen[g.GranteeID] = struct{}{}
			out = append(out, g.GranteeID)
		}
		e, ok := s.entities[domainID][eid]
		if !ok {
			break
		}
		eid = e.ParentID
		direct = false
	}
	sort.Strings(out)
	return out
}

func (s *Store) ListSharedUsers(_ context.Context, domainID, entityID, permission string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listGrantees(domainID, entityID, permission, sharing.GranteeUser), nil
}

func (s *Store) ListSharedGroups(_ context.Context, domainID, entityID, permission string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listGrantees(domainID, entityID, permission, sharing.GranteeGroup), nil
}

// ──────────────────────────────────────────────────
// Sharing registry: group membership
// ──────────────────────────────────────────────────

func (s *Store) AddUsersToGroup(_ context.Context, domainID, groupID string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(domainID, groupID)
	set, ok := s.members[k]
	if !ok {
		set = make(map[string]struct{})
		s.members[k] = set
	}
	for _, uid := range userIDs {
		set[uid] = struct{}{}
	}
	return nil
}

func (s *Store) RemoveUsersFromGroup(_ context.Context, domainID, groupID string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.members[key(domainID, groupID)]
	for _, uid := range userIDs {
		delete(set, uid)
	}
	return nil
}

func (s *Store) ListGroupMembers(_ context.Context, domainID, groupID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.members[key(domainID, groupID)]
	out := make([]string, 0, len(set))
	for uid := range set {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListUserGroups(_ context.Context, domainID, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := domainID + "|"
	var out []string
	for k, set := range s.members {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, ok := set[userID]; ok {
			out = append(out, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ──────────────────────────────────────────────────
// Profile store
// ──────────────────────────────────────────────────

func (s *Store) GetUserComputePreference(_ context.Context, gatewayID, userID, computeResourceID string) (*profile.UserComputePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.userComputePrefs[key(gatewayID, userID, computeResourceID)]
	if !ok {
		return nil, fmt.Errorf("user compute preference: %w", profile.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SaveUserComputePreference(_ context.Context, p *profile.UserComputePreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.userComputePrefs[key(p.GatewayID, p.UserID, p.ComputeResourceID)] = &cp
	return nil
}

func (s *Store) DeleteUserComputePreference(_ context.Context, gatewayID, userID, computeResourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userComputePrefs, key(gatewayID, userID, computeResourceID))
	return nil
}

func (s *Store) ListUserComputePreferences(_ context.Context, gatewayID, userID string) ([]*profile.UserComputePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.UserComputePreference
	for _, p := range s.userComputePrefs {
		if p.GatewayID == gatewayID && p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComputeResourceID < out[j].ComputeResourceID })
	return out, nil
}

func (s *Store) GetUserStoragePreference(_ context.Context, gatewayID, userID, storageResourceID string) (*profile.UserStoragePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.userStoragePrefs[key(gatewayID, userID, storageResourceID)]
	if !ok {
		return nil, fmt.Errorf("user storage preference: %w", profile.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SaveUserStoragePreference(_ context.Context, p *profile.UserStoragePreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.userStoragePrefs[key(p.GatewayID, p.UserID, p.StorageResourceID)] = &cp
	return nil
}

func (s *Store) DeleteUserStoragePreference(_ context.Context, gatewayID, userID, storageResourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userStoragePrefs, key(gatewayID, userID, storageResourceID))
	return nil
}

func (s *Store) ListUserStoragePreferences(_ context.Context, gatewayID, userID string) ([]*profile.UserStoragePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.UserStoragePreference
	for _, p := range s.userStoragePrefs {
		if p.GatewayID == gatewayID && p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StorageResourceID < out[j].StorageResourceID })
	return out, nil
}

func (s *Store) GetUserResourceProfile(_ context.Context, gatewayID, userID string) (*profile.UserResourceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.userProfiles[key(gatewayID, userID)]
	if !ok {
		return nil, fmt.Errorf("user resource profile: %w", profile.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SaveUserResourceProfile(_ context.Context, p *profile.UserResourceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.userProfiles[key(p.GatewayID, p.UserID)] = &cp
	return nil
}

func (s *Store) CreateGroupResourceProfile(_ context.Context, p *profile.GroupResourceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyGroupProfile(p)
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.groupProfiles[p.ID.String()] = cp
	return nil
}

func (s *Store) GetGroupResourceProfile(_ context.Context, profileID id.GroupProfileID) (*profile.GroupResourceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.groupProfiles[profileID.String()]
	if !ok {
		return nil, fmt.Errorf("group resource profile %s: %w", profileID, profile.ErrNotFound)
	}
	return copyGroupProfile(p), nil
}

func (s *Store) UpdateGroupResourceProfile(_ context.Context, p *profile.GroupResourceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.groupProfiles[p.ID.String()]
	if !ok {
		return fmt.Errorf("group resource profile %s: %w", p.ID, profile.ErrNotFound)
	}
	cp := copyGroupProfile(p)
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now()
	s.groupProfiles[p.ID.String()] = cp
	return nil
}

func (s *Store) DeleteGroupResourceProfile(_ context.Context, profileID id.GroupProfileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groupProfiles, profileID.String())
	return nil
}

func (s *Store) ListGroupResourceProfiles(_ context.Context, gatewayID string) ([]*profile.GroupResourceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*profile.GroupResourceProfile
	for _, p := range s.groupProfiles {
		if p.GatewayID == gatewayID {
			out = append(out, copyGroupProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) GetGatewayResourceProfile(_ context.Context, gatewayID string) (*profile.GatewayResourceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.gatewayProfiles[gatewayID]
	if !ok {
		return nil, fmt.Errorf("gateway resource profile %s: %w", gatewayID, profile.ErrNotFound)
	}
	return copyGatewayProfile(p), nil
}

func (s *Store) SaveGatewayResourceProfile(_ context.Context, p *profile.GatewayResourceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyGatewayProfile(p)
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.gatewayProfiles[p.GatewayID] = cp
	return nil
}

func (s *Store) GetGatewayStoragePreference(_ context.Context, gatewayID, storageResourceID string) (*profile.GatewayStoragePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.gatewayProfiles[gatewayID]
	if !ok {
		return nil, fmt.Errorf("gateway resource profile %s: %w", gatewayID, profile.ErrNotFound)
	}
	for i := range p.StoragePreferences {
		if p.StoragePreferences[i].StorageResourceID == storageResourceID {
			cp := p.StoragePreferences[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("gateway storage preference %s: %w", storageResourceID, profile.ErrNotFound)
}

// ──────────────────────────────────────────────────
// Catalog store
// ──────────────────────────────────────────────────

func (s *Store) RegisterComputeResource(_ context.Context, r *catalog.ComputeResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.computeResources[r.ID] = &cp
	return nil
}

func (s *Store) GetComputeResource(_ context.Context, resourceID string) (*catalog.ComputeResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.computeResources[resourceID]
	if !ok {
		return nil, fmt.Errorf("compute resource %s: %w", resourceID, catalog.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListComputeResources(_ context.Context) ([]*catalog.ComputeResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*catalog.ComputeResource, 0, len(s.computeResources))
	for _, r := range s.computeResources {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RemoveComputeResource(_ context.Context, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.computeResources, resourceID)
	return nil
}

func (s *Store) RegisterStorageResource(_ context.Context, r *catalog.StorageResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.storageResources[r.ID] = &cp
	return nil
}

func (s *Store) GetStorageResource(_ context.Context, resourceID string) (*catalog.StorageResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.storageResources[resourceID]
	if !ok {
		return nil, fmt.Errorf("storage resource %s: %w", resourceID, catalog.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListStorageResources(_ context.Context) ([]*catalog.StorageResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*catalog.StorageResource, 0, len(s.storageResources))
	for _, r := range s.storageResources {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) RemoveStorageResource(_ context.Context, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.storageResources, resourceID)
	return nil
}

// ──────────────────────────────────────────────────
// Gateway groups store
// ──────────────────────────────────────────────────

func (s *Store) GetGatewayGroups(_ context.Context, gatewayID string) (*group.GatewayGroups, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gatewayGroups[gatewayID]
	if !ok {
		return nil, fmt.Errorf("gateway groups %s: %w", gatewayID, group.ErrNotFound)
	}
	cp := *g
	return &cp, nil
}

func (s *Store) SaveGatewayGroups(_ context.Context, g *group.GatewayGroups) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.gatewayGroups[g.GatewayID] = &cp
	return nil
}

// ──────────────────────────────────────────────────
// Project store
// ──────────────────────────────────────────────────

func (s *Store) CreateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.projects[p.ID.String()] = &cp
	return nil
}

func (s *Store) GetProject(_ context.Context, projectID id.ProjectID) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID.String()]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, project.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.projects[p.ID.String()]
	if !ok {
		return fmt.Errorf("project %s: %w", p.ID, project.ErrNotFound)
	}
	cp := *p
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now()
	s.projects[p.ID.String()] = &cp
	return nil
}

func (s *Store) DeleteProject(_ context.Context, projectID id.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, projectID.String())
	return nil
}

func (s *Store) ListProjects(_ context.Context, filter *project.ListFilter) ([]*project.Project, error) {
	if filter == nil {
		filter = &project.ListFilter{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*project.Project
	for _, p := range s.projects {
		if filter.GatewayID != "" && p.GatewayID != filter.GatewayID {
			continue
		}
		if filter.OwnerID != "" && p.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return paginate(out, filter.Limit, filter.Offset), nil
}

// ──────────────────────────────────────────────────
// Experiment store
// ──────────────────────────────────────────────────

func (s *Store) CreateExperiment(_ context.Context, x *experiment.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *x
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.experiments[x.ID.String()] = &cp
	return nil
}

func (s *Store) GetExperiment(_ context.Context, experimentID id.ExperimentID) (*experiment.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	x, ok := s.experiments[experimentID.String()]
	if !ok {
		return nil, fmt.Errorf("experiment %s: %w", experimentID, experiment.ErrNotFound)
	}
	cp := *x
	return &cp, nil
}

func (s *Store) UpdateExperiment(_ context.Context, x *experiment.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.experiments[x.ID.String()]
	if !ok {
		return fmt.Errorf("experiment %s: %w", x.ID, experiment.ErrNotFound)
	}
	cp := *x
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now()
	s.experiments[x.ID.String()] = &cp
	return nil
}

func (s *Store) DeleteExperiment(_ context.Context, experimentID id.ExperimentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.experiments, experimentID.String())
	return nil
}

func (s *Store) ListExperiments(_ context.Context, filter *experiment.ListFilter) ([]*experiment.Experiment, error) {
	if filter == nil {
		filter = &experiment.ListFilter{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*experiment.Experiment
	for _, x := range s.experiments {
		if filter.GatewayID != "" && x.GatewayID != filter.GatewayID {
			continue
		}
		if !filter.ProjectID.IsNil() && x.ProjectID != filter.ProjectID {
			continue
		}
		if filter.OwnerID != "" && x.OwnerID != filter.OwnerID {
			continue
		}
		if filter.State != "" && x.State != filter.State {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(x.Name), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *x
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return paginate(out, filter.Limit, filter.Offset), nil
}

// ──────────────────────────────────────────────────
// Deployment store
// ──────────────────────────────────────────────────

func (s *Store) CreateDeployment(_ context.Context, d *deployment.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	stamp(&cp.CreatedAt, &cp.UpdatedAt)
	s.deployments[d.ID.String()] = &cp
	return nil
}

func (s *Store) GetDeployment(_ context.Context, deploymentID id.DeploymentID) (*deployment.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deployments[deploymentID.String()]
	if !ok {
		return nil, fmt.Errorf("deployment %s: %w", deploymentID, deployment.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (s *Store) UpdateDeployment(_ context.Context, d *deployment.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.deployments[d.ID.String()]
	if !ok {
		return fmt.Errorf("deployment %s: %w", d.ID, deployment.ErrNotFound)
	}
	cp := *d
	cp.CreatedAt = old.CreatedAt
	cp.UpdatedAt = time.Now()
	s.deployments[d.ID.String()] = &cp
	return nil
}

func (s *Store) DeleteDeployment(_ context.Context, deploymentID id.DeploymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deployments, deploymentID.String())
	return nil
}

func (s *Store) ListDeployments(_ context.Context, filter *deployment.ListFilter) ([]*deployment.Deployment, error) {
	if filter == nil {
		filter = &deployment.ListFilter{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*deployment.Deployment
	for _, d := range s.deployments {
		if filter.GatewayID != "" && d.GatewayID != filter.GatewayID {
			continue
		}
		if filter.AppModuleID != "" && d.AppModuleID != filter.AppModuleID {
			continue
		}
		if filter.ComputeResourceID != "" && d.ComputeResourceID != filter.ComputeResourceID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return paginate(out, filter.Limit, filter.Offset), nil
}

// ──────────────────────────────────────────────────
// Audit log store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(_ context.Context, e *authlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	if cp.ID.IsNil() {
		cp.ID = id.NewAuditLogID()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.auditEntries[cp.ID.String()] = &cp
	e.ID = cp.ID
	return nil
}

func (s *Store) GetAuditEntry(_ context.Context, entryID id.AuditLogID) (*authlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.auditEntries[entryID.String()]
	if !ok {
		return nil, fmt.Errorf("audit entry %s: %w", entryID, authlog.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter *authlog.QueryFilter) ([]*authlog.Entry, error) {
	if filter == nil {
		filter = &authlog.QueryFilter{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*authlog.Entry
	for _, e := range s.auditEntries {
		if !auditMatches(e, filter) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (s *Store) CountAuditEntries(_ context.Context, filter *authlog.QueryFilter) (int64, error) {
	if filter == nil {
		filter = &authlog.QueryFilter{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.auditEntries {
		if auditMatches(e, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.auditEntries {
		if e.CreatedAt.Before(before) {
			delete(s.auditEntries, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAuditEntriesByGateway(_ context.Context, gatewayID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.auditEntries {
		if e.GatewayID == gatewayID {
			delete(s.auditEntries, k)
		}
	}
	return nil
}

func auditMatches(e *authlog.Entry, f *authlog.QueryFilter) bool {
	if f.GatewayID != "" && e.GatewayID != f.GatewayID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.EntityID != "" && e.EntityID != f.EntityID {
		return false
	}
	if f.Permission != "" && e.Permission != f.Permission {
		return false
	}
	if f.Allowed != nil && e.Allowed != *f.Allowed {
		return false
	}
	if f.After != nil && !e.CreatedAt.After(*f.After) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func copyGroupProfile(p *profile.GroupResourceProfile) *profile.GroupResourceProfile {
	cp := *p
	cp.ComputePreferences = make([]profile.GroupComputePreference, len(p.ComputePreferences))
	copy(cp.ComputePreferences, p.ComputePreferences)
	return &cp
}

func copyGatewayProfile(p *profile.GatewayResourceProfile) *profile.GatewayResourceProfile {
	cp := *p
	cp.StoragePreferences = make([]profile.GatewayStoragePreference, len(p.StoragePreferences))
	copy(cp.StoragePreferences, p.StoragePreferences)
	return &cp
}
