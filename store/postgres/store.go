// Package postgres provides a PostgreSQL implementation of the Custodian
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/custodian/authlog"
	"github.com/xraph/custodian/catalog"
	"github.com/xraph/custodian/deployment"
	"github.com/xraph/custodian/experiment"
	"github.com/xraph/custodian/group"
	"github.com/xraph/custodian/id"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/project"
	"github.com/xraph/custodian/sharing"
	"github.com/xraph/custodian/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a PostgreSQL implementation of the composite Custodian store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("custodian/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("custodian/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation detects PostgreSQL unique-constraint failures (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ──────────────────────────────────────────────────
// Sharing registry: domains and types
// ──────────────────────────────────────────────────

func (s *Store) CreateDomain(ctx context.Context, d *sharing.Domain) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if _, err := s.pgdb.NewInsert(domainToModel(d)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("domain %s: %w", d.ID, sharing.ErrDuplicate)
		}
		return fmt.Errorf("custodian: create domain: %w", err)
	}
	return nil
}

func (s *Store) DomainExists(ctx context.Context, domainID string) (bool, error) {
	count, err := s.pgdb.NewSelect((*domainModel)(nil)).
		Where("id = ?", domainID).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("custodian: domain exists: %w", err)
	}
	return count > 0, nil
}

func (s *Store) CreateEntityType(ctx context.Context, r *sharing.EntityTypeRecord) error {
	m := &entityTypeModel{
		DomainID:    r.DomainID,
		Name:        string(r.Name),
		Description: r.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("entity type %s: %w", r.Name, sharing.ErrDuplicate)
		}
		return fmt.Errorf("custodian: create entity type: %w", err)
	}
	return nil
}

func (s *Store) EntityTypeExists(ctx context.Context, domainID string, name sharing.EntityType) (bool, error) {
	count, err := s.pgdb.NewSelect((*entityTypeModel)(nil)).
		Where("domain_id = ?", domainID).
		Where("name = ?", string(name)).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("custodian: entity type exists: %w", err)
	}
	return count > 0, nil
}

func (s *Store) CreatePermissionType(ctx context.Context, r *sharing.PermissionTypeRecord) error {
	m := &permissionTypeModel{
		DomainID:    r.DomainID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.pgdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("permission type %s: %w", r.Name, sharing.ErrDuplicate)
		}
		return fmt.Errorf("custodian: create permission type: %w", err)
	}
	return nil
}

func (s *Store) PermissionTypeExists(ctx context.Context, domainID, name string) (bool, error) {
	count, err := s.pgdb.NewSelect((*permissionTypeModel)(nil)).
		Where("domain_id = ?", domainID).
		Where("name = ?", name).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("custodian: permission type exists: %w", err)
	}
	return count > 0, nil
}

// ──────────────────────────────────────────────────
// Sharing registry: entities
// ──────────────────────────────────────────────────

func (s *Store) CreateEntity(ctx context.Context, e *sharing.Entity) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("custodian: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewInsert(entityToModel(e)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("entity %s: %w", e.ID, sharing.ErrDuplicate)
		}
		return fmt.Errorf("custodian: create entity: %w", err)
	}

	// The owner's OWNER grant is implicit in entity creation.
	g := &grantModel{
		DomainID:    e.DomainID,
		EntityID:    e.ID,
		GranteeKind: string(sharing.GranteeUser),
		GranteeID:   e.OwnerID,
		Permission:  "OWNER",
		Cascade:     true,
		CreatedAt:   now,
	}
	if _, err := tx.NewInsert(g).Exec(ctx); err != nil {
		return fmt.Errorf("custodian: create owner grant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("custodian: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetEntity(ctx context.Context, domainID, entityID string) (*sharing.Entity, error) {
	m := new(entityModel)
	err := s.pgdb.NewSelect(m).
		Where("domain_id = ?", domainID).
		Where("id = ?", entityID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("entity %s: %w", entityID, sharing.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get entity: %w", err)
	}
	return entityFromModel(m), nil
}

func (s *Store) UpdateEntity(ctx context.Context, e *sharing.Entity) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := s.pgdb.NewUpdate(entityToModel(e)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: update entity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entity %s: %w", e.ID, sharing.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, domainID, entityID string) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("custodian: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*grantModel)(nil)).
		Where("domain_id = ?", domainID).
		Where("entity_id = ?", entityID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete grants: %w", err)
	}
	_, err = tx.NewDelete((*entityModel)(nil)).
		Where("domain_id = ?", domainID).
		Where("id = ?", entityID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("custodian: commit tx: %w", err)
	}
	return nil
}

func (s *Store) SearchEntities(ctx context.Context, domainID, principalID string, filter *sharing.SearchFilter) ([]*sharing.Entity, error) {
	if filter == nil {
		filter = &sharing.SearchFilter{}
	}
	perm := filter.Permission
	if perm == "" {
		perm = "READ"
	}

	var models []entityModel
	q := s.pgdb.NewSelect(&models).
		Where("domain_id = ?", domainID).
		OrderExpr("created_at ASC, id ASC")
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.ParentID != "" {
		q = q.Where("parent_id = ?", filter.ParentID)
	}
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Name+"%")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("custodian: search entities: %w", err)
	}

	groups, err := s.userGroupSet(ctx, domainID, principalID)
	if err != nil {
		return nil, err
	}

	var result []*sharing.Entity
	for i := range models {
		e := entityFromModel(&models[i])
		// Owners see their entities regardless of the permission filter.
		ok, err := s.hasAccess(ctx, domainID, principalID, groups, e.ID, perm)
		if err != nil {
			return nil, err
		}
		if !ok {
			ok, err = s.hasAccess(ctx, domainID, principalID, groups, e.ID, "OWNER")
			if err != nil {
				return nil, err
			}
		}
		if ok {
			result = append(result, e)
		}
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

// ──────────────────────────────────────────────────
// Sharing registry: grants and access
// ──────────────────────────────────────────────────

func (s *Store) UserHasAccess(ctx context.Context, domainID, principalID, entityID, permission string) (bool, error) {
	groups, err := s.userGroupSet(ctx, domainID, principalID)
	if err != nil {
		return false, err
	}
	return s.hasAccess(ctx, domainID, principalID, groups, entityID, permission)
}

// hasAccess walks the entity's ancestor chain: a grant on the entity itself
// always applies, a grant on an ancestor applies when it cascades.
func (s *Store) hasAccess(ctx context.Context, domainID, principalID string, groups map[string]struct{}, entityID, permission string) (bool, error) {
	direct := true
	for eid := entityID; eid != ""; {
		var grants []grantModel
		err := s.pgdb.NewSelect(&grants).
			Where("domain_id = ?", domainID).
			Where("entity_id = ?", eid).
			Where("permission = ?", permission).
			Scan(ctx)
		if err != nil {
			return false, fmt.Errorf("custodian: load grants: %w", err)
		}
		for _, g := range grants {
			if !direct && !g.Cascade {
				continue
			}
			if g.GranteeKind == string(sharing.GranteeUser) && g.GranteeID == principalID {
				return true, nil
			}
			if g.GranteeKind == string(sharing.GranteeGroup) {
				if _, ok := groups[g.GranteeID]; ok {
					return true, nil
				}
			}
		}

		m := new(entityModel)
		err = s.pgdb.NewSelect(m).
			Where("domain_id = ?", domainID).
			Where("id = ?", eid).
			Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				break
			}
			return false, fmt.Errorf("custodian: load entity: %w", err)
		}
		eid = m.ParentID
		direct = false
	}
	return false, nil
}

func (s *Store) userGroupSet(ctx context.Context, domainID, principalID string) (map[string]struct{}, error) {
	groupIDs, err := s.ListUserGroups(ctx, domainID, principalID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(groupIDs))
	for _, gid := range groupIDs {
		set[gid] = struct{}{}
	}
	return set, nil
}

func (s *Store) share(ctx context.Context, domainID, entityID, kind string, granteeIDs []string, permission string, cascade bool) error {
	count, err := s.pgdb.NewSelect((*entityModel)(nil)).
		Where("domain_id = ?", domainID).
		Where("id = ?", entityID).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("custodian: entity exists: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("entity %s: %w", entityID, sharing.ErrNotFound)
	}
	now := time.Now().UTC()
	for _, gid := range granteeIDs {
		g := &grantModel{
			DomainID:    domainID,
			EntityID:    entityID,
			GranteeKind: kind,
			GranteeID:   gid,
			Permission:  permission,
			Cascade:     cascade,
			CreatedAt:   now,
		}
		_, err := s.pgdb.NewInsert(g).
			OnConflict("(domain_id, entity_id, grantee_kind, grantee_id, permission) DO UPDATE SET cascades = excluded.cascades").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("custodian: share entity: %w", err)
		}
	}
	return nil
}

func (s *Store) revoke(ctx context.Context, domainID, entityID, kind string, granteeIDs []string, permission string) error {
	for _, gid := range granteeIDs {
		_, err := s.pgdb.NewDelete((*grantModel)(nil)).
			Where("domain_id = ?", domainID).
			Where("entity_id = ?", entityID).
			Where("grantee_kind = ?", kind).
			Where("grantee_id = ?", gid).
			Where("permission = ?", permission).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("custodian: revoke entity sharing: %w", err)
		}
	}
	return nil
}

func (s *Store) ShareEntityWithUsers(ctx context.Context, domainID, entityID string, userIDs []string, permission string, cascade bool) error {
	return s.share(ctx, domainID, entityID, string(sharing.GranteeUser), userIDs, permission, cascade)
}

func (s *Store) ShareEntityWithGroups(ctx context.Context, domainID, entityID string, groupIDs []string, permission string, cascade bool) error {
	return s.share(ctx, domainID, entityID, string(sharing.GranteeGroup), groupIDs, permission, cascade)
}

func (s *Store) RevokeEntitySharingFromUsers(ctx context.Context, domainID, entityID string, userIDs []string, permission string) error {
	return s.revoke(ctx, domainID, entityID, string(sharing.GranteeUser), userIDs, permission)
}

func (s *Store) RevokeEntitySharingFromGroups(ctx context.Context, domainID, entityID string, groupIDs []string, permission string) error {
	return s.revoke(ctx, domainID, entityID, string(sharing.GranteeGroup), groupIDs, permission)
}

func (s *Store) listGrantees(ctx context.Context, domainID, entityID, permission, kind string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	direct := true
	for eid := entityID; eid != ""; {
		var grants []grantModel
		err := s.pgdb.NewSelect(&grants).
			Where("domain_id = ?", domainID).
			Where("entity_id = ?", eid).
			Where("permission = ?", permission).
			Where("grantee_kind = ?", kind).
			OrderExpr("grantee_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("custodian: list grantees: %w", err)
		}
		for _, g := range grants {
			if !direct && !g.Cascade {
				continue
			}
			if _, ok := seen[g.GranteeID]; ok {
				continue
			}
			seen[g.GranteeID] = struct{}{}
			out = append(out, g.GranteeID)
		}

		m := new(entityModel)
		err = s.pgdb.NewSelect(m).
			Where("domain_id = ?", domainID).
			Where("id = ?", eid).
			Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				break
			}
			return nil, fmt.Errorf("custodian: load entity: %w", err)
		}
		eid = m.ParentID
		direct = false
	}
	return out, nil
}

func (s *Store) ListSharedUsers(ctx context.Context, domainID, entityID, permission string) ([]string, error) {
	return s.listGrantees(ctx, domainID, entityID, permission, string(sharing.GranteeUser))
}

func (s *Store) ListSharedGroups(ctx context.Context, domainID, entityID, permission string) ([]string, error) {
	return s.listGrantees(ctx, domainID, entityID, permission, string(sharing.GranteeGroup))
}

// ──────────────────────────────────────────────────
// Sharing registry: group membership
// ──────────────────────────────────────────────────

func (s *Store) AddUsersToGroup(ctx context.Context, domainID, groupID string, userIDs []string) error {
	now := time.Now().UTC()
	for _, uid := range userIDs {
		m := &groupMemberModel{
			DomainID:  domainID,
			GroupID:   groupID,
			UserID:    uid,
			CreatedAt: now,
		}
		_, err := s.pgdb.NewInsert(m).
			OnConflict("(domain_id, group_id, user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("custodian: add group member: %w", err)
		}
	}
	return nil
}

func (s *Store) RemoveUsersFromGroup(ctx context.Context, domainID, groupID string, userIDs []string) error {
	for _, uid := range userIDs {
		_, err := s.pgdb.NewDelete((*groupMemberModel)(nil)).
			Where("domain_id = ?", domainID).
			Where("group_id = ?", groupID).
			Where("user_id = ?", uid).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("custodian: remove group member: %w", err)
		}
	}
	return nil
}

func (s *Store) ListGroupMembers(ctx context.Context, domainID, groupID string) ([]string, error) {
	var models []groupMemberModel
	err := s.pgdb.NewSelect(&models).
		Where("domain_id = ?", domainID).
		Where("group_id = ?", groupID).
		OrderExpr("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("custodian: list group members: %w", err)
	}
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.UserID
	}
	return out, nil
}

func (s *Store) ListUserGroups(ctx context.Context, domainID, userID string) ([]string, error) {
	var models []groupMemberModel
	err := s.pgdb.NewSelect(&models).
		Where("domain_id = ?", domainID).
		Where("user_id = ?", userID).
		OrderExpr("group_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("custodian: list user groups: %w", err)
	}
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.GroupID
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Profile store
// ──────────────────────────────────────────────────

func (s *Store) GetUserComputePreference(ctx context.Context, gatewayID, userID, computeResourceID string) (*profile.UserComputePreference, error) {
	m := new(userComputePrefModel)
	err := s.pgdb.NewSelect(m).
		Where("gateway_id = ?", gatewayID).
		Where("user_id = ?", userID).
		Where("compute_resource_id = ?", computeResourceID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user compute preference: %w", profile.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get user compute preference: %w", err)
	}
	return userComputePrefFromModel(m), nil
}

func (s *Store) SaveUserComputePreference(ctx context.Context, p *profile.UserComputePreference) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.pgdb.NewInsert(userComputePrefToModel(p)).
		OnConflict("(gateway_id, user_id, compute_resource_id) DO UPDATE SET " +
			"login_user_name = excluded.login_user_name, " +
			"credential_token = excluded.credential_token, " +
			"preferred_queue = excluded.preferred_queue, " +
			"scratch_location = excluded.scratch_location, " +
			"allocation_project = excluded.allocation_project, " +
			"quality_of_service = excluded.quality_of_service, " +
			"updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: save user compute preference: %w", err)
	}
	return nil
}

func (s *Store) DeleteUserComputePreference(ctx context.Context, gatewayID, userID, computeResourceID string) error {
	_, err := s.pgdb.NewDelete((*userComputePrefModel)(nil)).
		Where("gateway_id = ?", gatewayID).
		Where("user_id = ?", userID).
		Where("compute_resource_id = ?", computeResourceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete user compute preference: %w", err)
	}
	return nil
}

func (s *Store) ListUserComputePreferences(ctx context.Context, gatewayID, userID string) ([]*profile.UserComputePreference, error) {
	var models []userComputePrefModel
	err := s.pgdb.NewSelect(&models).
		Where("gateway_id = ?", gatewayID).
		Where("user_id = ?", userID).
		OrderExpr("compute_resource_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("custodian: list user compute preferences: %w", err)
	}
	out := make([]*profile.UserComputePreference, len(models))
	for i := range models {
		out[i] = userComputePrefFromModel(&models[i])
	}
	return out, nil
}

func (s *Store) GetUserStoragePreference(ctx context.Context, gatewayID, userID, storageResourceID string) (*profile.UserStoragePreference, error) {
	m := new(userStoragePrefModel)
	err := s.pgdb.NewSelect(m).
		Where("gateway_id = ?", gatewayID).
		Where("user_id = ?", userID).
		Where("storage_resource_id = ?", storageResourceID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user storage preference: %w", profile.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get user storage preference: %w", err)
	}
	return userStoragePrefFromModel(m), nil
}

func (s *Store) SaveUserStoragePreference(ctx context.Context, p *profile.UserStoragePreference) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.pgdb.NewInsert(userStoragePrefToModel(p)).
		OnConflict("(gateway_id, user_id, storage_resource_id) DO UPDATE SET " +
			"login_user_name = excluded.login_user_name, " +
			"credential_token = excluded.credential_token, " +
			"root_location = excluded.root_location, " +
			"updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: save user storage preference: %w", err)
	}
	return nil
}

func (s *Store) DeleteUserStoragePreference(ctx context.Context, gatewayID, userID, storageResourceID string) error {
	_, err := s.pgdb.NewDelete((*userStoragePrefModel)(nil)).
		Where("gateway_id = ?", gatewayID).
		Where("user_id = ?", userID).
		Where("storage_resource_id = ?", storageResourceID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete user storage preference: %w", err)
	}
	return nil
}

func (s *Store) ListUserStoragePreferences(ctx context.Context, gatewayID, userID string) ([]*profile.UserStoragePreference, error) {
	var models []userStoragePrefModel
	err := s.pgdb.NewSelect(&models).
		Where("gateway_id = ?", gatewayID).
		Where("user_id = ?", userID).
		OrderExpr("storage_resource_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("custodian: list user storage preferences: %w", err)
	}
	out := make([]*profile.UserStoragePreference, len(models))
	for i := range models {
		out[i] = userStoragePrefFromModel(&models[i])
	}
	return out, nil
}

func (s *Store) GetUserResourceProfile(ctx context.Context, gatewayID, userID string) (*profile.UserResourceProfile, error) {
	m := new(userProfileModel)
	err := s.pgdb.NewSelect(m).
		Where("gateway_id = ?", gatewayID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user resource profile: %w", profile.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get user resource profile: %w", err)
	}
	return &profile.UserResourceProfile{
		GatewayID:       m.GatewayID,
		UserID:          m.UserID,
		CredentialToken: m.CredentialToken,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}, nil
}

func (s *Store) SaveUserResourceProfile(ctx context.Context, p *profile.UserResourceProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m := &userProfileModel{
		GatewayID:       p.GatewayID,
		UserID:          p.UserID,
		CredentialToken: p.CredentialToken,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(gateway_id, user_id) DO UPDATE SET " +
			"credential_token = excluded.credential_token, " +
			"updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: save user resource profile: %w", err)
	}
	return nil
}

func (s *Store) CreateGroupResourceProfile(ctx context.Context, p *profile.GroupResourceProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("custodian: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	m := &groupProfileModel{
		ID:           p.ID.String(),
		GatewayID:    p.GatewayID,
		Name:         p.Name,
		DefaultToken: p.DefaultToken,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if _, err := tx.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("custodian: create group resource profile: %w", err)
	}
	if len(p.ComputePreferences) > 0 {
		models := make([]groupComputePrefModel, len(p.ComputePreferences))
		for i, pref := range p.ComputePreferences {
			models[i] = groupComputePrefModel{
				ProfileID:         p.ID.String(),
				ComputeResourceID: pref.ComputeResourceID,
				LoginUserName:     pref.LoginUserName,
				CredentialToken:   pref.CredentialToken,
				AllocationProject: pref.AllocationProject,
				PreferredQueue:    pref.PreferredQueue,
			}
		}
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("custodian: create group compute preferences: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("custodian: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetGroupResourceProfile(ctx context.Context, profileID id.GroupProfileID) (*profile.GroupResourceProfile, error) {
	m := new(groupProfileModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", profileID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("group resource profile %s: %w", profileID, profile.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get group resource profile: %w", err)
	}
	var prefs []groupComputePrefModel
	err = s.pgdb.NewSelect(&prefs).
		Where("profile_id = ?", profileID.String()).
		OrderExpr("compute_resource_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("custodian: get group compute preferences: %w", err)
	}
	return groupProfileFromModels(m, prefs)
}

func (s *Store) UpdateGroupResourceProfile(ctx context.Context, p *profile.GroupResourceProfile) error {
	count, err := s.pgdb.NewSelect((*groupProfileModel)(nil)).
		Where("id = ?", p.ID.String()).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("custodian: group resource profile exists: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("group resource profile %s: %w", p.ID, profile.ErrNotFound)
	}

	p.UpdatedAt = time.Now().UTC()

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("custodian: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	m := &groupProfileModel{
		ID:           p.ID.String(),
		GatewayID:    p.GatewayID,
		Name:         p.Name,
		DefaultToken: p.DefaultToken,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if _, err := tx.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("custodian: update group resource profile: %w", err)
	}
	_, err = tx.NewDelete((*groupComputePrefModel)(nil)).
		Where("profile_id = ?", p.ID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: clear group compute preferences: %w", err)
	}
	if len(p.ComputePreferences) > 0 {
		models := make([]groupComputePrefModel, len(p.ComputePreferences))
		for i, pref := range p.ComputePreferences {
			models[i] = groupComputePrefModel{
				ProfileID:         p.ID.String(),
				ComputeResourceID: pref.ComputeResourceID,
				LoginUserName:     pref.LoginUserName,
				CredentialToken:   pref.CredentialToken,
				AllocationProject: pref.AllocationProject,
				PreferredQueue:    pref.PreferredQueue,
			}
		}
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("custodian: set group compute preferences: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("custodian: commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeleteGroupResourceProfile(ctx context.Context, profileID id.GroupProfileID) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("custodian: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	_, err = tx.NewDelete((*groupComputePrefModel)(nil)).
		Where("profile_id = ?", profileID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete group compute preferences: %w", err)
	}
	_, err = tx.NewDelete((*groupProfileModel)(nil)).
		Where("id = ?", profileID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete group resource profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("custodian: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListGroupResourceProfiles(ctx context.Context, gatewayID string) ([]*profile.GroupResourceProfile, error) {
	var models []groupProfileModel
	err := s.pgdb.NewSelect(&models).
		Where("gateway_id = ?", gatewayID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("custodian: list group resource profiles: %w", err)
	}
	result := make([]*profile.GroupResourceProfile, 0, len(models))
	for i := range models {
		var prefs []groupComputePrefModel
		err := s.pgdb.NewSelect(&prefs).
			Where("profile_id = ?", models[i].ID).
			OrderExpr("compute_resource_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("custodian: list group compute preferences: %w", err)
		}
		p, err := groupProfileFromModels(&models[i], prefs)
		if err != nil {
			return nil, fmt.Errorf("custodian: list group resource profiles: %w", err)
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *Store) GetGatewayResourceProfile(ctx context.Context, gatewayID string) (*profile.GatewayResourceProfile, error) {
	m := new(gatewayProfileModel)
	err := s.pgdb.NewSelect(m).Where("gateway_id = ?", gatewayID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("gateway resource profile %s: %w", gatewayID, profile.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get gateway resource profile: %w", err)
	}
	var prefs []gatewayStoragePrefModel
	err = s.pgdb.NewSelect(&prefs).
		Where("gateway_id = ?", gatewayID).
		OrderExpr("storage_resource_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("custodian: get gateway storage preferences: %w", err)
	}
	p := &profile.GatewayResourceProfile{
		GatewayID:       m.GatewayID,
		CredentialToken: m.CredentialToken,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for i := range prefs {
		p.StoragePreferences = append(p.StoragePreferences, *gatewayStoragePrefFromModel(&prefs[i]))
	}
	return p, nil
}

func (s *Store) SaveGatewayResourceProfile(ctx context.Context, p *profile.GatewayResourceProfile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("custodian: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	m := &gatewayProfileModel{
		GatewayID:       p.GatewayID,
		CredentialToken: p.CredentialToken,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	_, err = tx.NewInsert(m).
		OnConflict("(gateway_id) DO UPDATE SET " +
			"credential_token = excluded.credential_token, " +
			"updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: save gateway resource profile: %w", err)
	}
	_, err = tx.NewDelete((*gatewayStoragePrefModel)(nil)).
		Where("gateway_id = ?", p.GatewayID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: clear gateway storage preferences: %w", err)
	}
	if len(p.StoragePreferences) > 0 {
		models := make([]gatewayStoragePrefModel, len(p.StoragePreferences))
		for i, pref := range p.StoragePreferences {
			models[i] = gatewayStoragePrefModel{
				GatewayID:         p.GatewayID,
				StorageResourceID: pref.StorageResourceID,
				LoginUserName:     pref.LoginUserName,
				CredentialToken:   pref.CredentialToken,
				RootLocation:      pref.RootLocation,
			}
		}
		if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("custodian: set gateway storage preferences: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("custodian: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetGatewayStoragePreference(ctx context.Context, gatewayID, storageResourceID string) (*profile.GatewayStoragePreference, error) {
	m := new(gatewayStoragePrefModel)
	err := s.pgdb.NewSelect(m).
		Where("gateway_id = ?", gatewayID).
		Where("storage_resource_id = ?", storageResourceID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("gateway storage preference %s: %w", storageResourceID, profile.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get gateway storage preference: %w", err)
	}
	return gatewayStoragePrefFromModel(m), nil
}

// ──────────────────────────────────────────────────
// Catalog store
// ──────────────────────────────────────────────────

func (s *Store) RegisterComputeResource(ctx context.Context, r *catalog.ComputeResource) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m := &computeResourceModel{
		ID:          r.ID,
		HostName:    r.HostName,
		Description: r.Description,
		SSHPort:     r.SSHPort,
		Enabled:     r.Enabled,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(id) DO UPDATE SET " +
			"host_name = excluded.host_name, " +
			"description = excluded.description, " +
			"ssh_port = excluded.ssh_port, " +
			"enabled = excluded.enabled, " +
			"updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: register compute resource: %w", err)
	}
	return nil
}

func (s *Store) GetComputeResource(ctx context.Context, resourceID string) (*catalog.ComputeResource, error) {
	m := new(computeResourceModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", resourceID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("compute resource %s: %w", resourceID, catalog.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get compute resource: %w", err)
	}
	return computeResourceFromModel(m), nil
}

func (s *Store) ListComputeResources(ctx context.Context) ([]*catalog.ComputeResource, error) {
	var models []computeResourceModel
	if err := s.pgdb.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("custodian: list compute resources: %w", err)
	}
	out := make([]*catalog.ComputeResource, len(models))
	for i := range models {
		out[i] = computeResourceFromModel(&models[i])
	}
	return out, nil
}

func (s *Store) RemoveComputeResource(ctx context.Context, resourceID string) error {
	_, err := s.pgdb.NewDelete((*computeResourceModel)(nil)).
		Where("id = ?", resourceID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: remove compute resource: %w", err)
	}
	return nil
}

func (s *Store) RegisterStorageResource(ctx context.Context, r *catalog.StorageResource) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m := &storageResourceModel{
		ID:          r.ID,
		HostName:    r.HostName,
		Description: r.Description,
		Enabled:     r.Enabled,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(id) DO UPDATE SET " +
			"host_name = excluded.host_name, " +
			"description = excluded.description, " +
			"enabled = excluded.enabled, " +
			"updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: register storage resource: %w", err)
	}
	return nil
}

func (s *Store) GetStorageResource(ctx context.Context, resourceID string) (*catalog.StorageResource, error) {
	m := new(storageResourceModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", resourceID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("storage resource %s: %w", resourceID, catalog.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get storage resource: %w", err)
	}
	return storageResourceFromModel(m), nil
}

func (s *Store) ListStorageResources(ctx context.Context) ([]*catalog.StorageResource, error) {
	var models []storageResourceModel
	if err := s.pgdb.NewSelect(&models).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("custodian: list storage resources: %w", err)
	}
	out := make([]*catalog.StorageResource, len(models))
	for i := range models {
		out[i] = storageResourceFromModel(&models[i])
	}
	return out, nil
}

func (s *Store) RemoveStorageResource(ctx context.Context, resourceID string) error {
	_, err := s.pgdb.NewDelete((*storageResourceModel)(nil)).
		Where("id = ?", resourceID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: remove storage resource: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Gateway groups store
// ──────────────────────────────────────────────────

func (s *Store) GetGatewayGroups(ctx context.Context, gatewayID string) (*group.GatewayGroups, error) {
	m := new(gatewayGroupsModel)
	err := s.pgdb.NewSelect(m).Where("gateway_id = ?", gatewayID).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("gateway groups %s: %w", gatewayID, group.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get gateway groups: %w", err)
	}
	return gatewayGroupsFromModel(m), nil
}

func (s *Store) SaveGatewayGroups(ctx context.Context, g *group.GatewayGroups) error {
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now
	m := &gatewayGroupsModel{
		GatewayID:             g.GatewayID,
		AdminsGroupID:         g.AdminsGroupID,
		ReadOnlyAdminsGroupID: g.ReadOnlyAdminsGroupID,
		CreatedAt:             g.CreatedAt,
		UpdatedAt:             g.UpdatedAt,
	}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(gateway_id) DO UPDATE SET " +
			"admins_group_id = excluded.admins_group_id, " +
			"read_only_admins_group_id = excluded.read_only_admins_group_id, " +
			"updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: save gateway groups: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Project store
// ──────────────────────────────────────────────────

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(projectToModel(p)).Exec(ctx); err != nil {
		return fmt.Errorf("custodian: create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	m := new(projectModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", projectID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("project %s: %w", projectID, project.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get project: %w", err)
	}
	return projectFromModel(m)
}

func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.pgdb.NewUpdate(projectToModel(p)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: update project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", p.ID, project.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID id.ProjectID) error {
	_, err := s.pgdb.NewDelete((*projectModel)(nil)).
		Where("id = ?", projectID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete project: %w", err)
	}
	return nil
}

func (s *Store) ListProjects(ctx context.Context, filter *project.ListFilter) ([]*project.Project, error) {
	var models []projectModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.GatewayID != "" {
			q = q.Where("gateway_id = ?", filter.GatewayID)
		}
		if filter.OwnerID != "" {
			q = q.Where("owner_id = ?", filter.OwnerID)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("custodian: list projects: %w", err)
	}
	result := make([]*project.Project, len(models))
	for i := range models {
		p, err := projectFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("custodian: list projects: %w", err)
		}
		result[i] = p
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Experiment store
// ──────────────────────────────────────────────────

func (s *Store) CreateExperiment(ctx context.Context, x *experiment.Experiment) error {
	now := time.Now().UTC()
	x.CreatedAt = now
	x.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(experimentToModel(x)).Exec(ctx); err != nil {
		return fmt.Errorf("custodian: create experiment: %w", err)
	}
	return nil
}

func (s *Store) GetExperiment(ctx context.Context, experimentID id.ExperimentID) (*experiment.Experiment, error) {
	m := new(experimentModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", experimentID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("experiment %s: %w", experimentID, experiment.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get experiment: %w", err)
	}
	return experimentFromModel(m)
}

func (s *Store) UpdateExperiment(ctx context.Context, x *experiment.Experiment) error {
	x.UpdatedAt = time.Now().UTC()
	res, err := s.pgdb.NewUpdate(experimentToModel(x)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: update experiment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("experiment %s: %w", x.ID, experiment.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteExperiment(ctx context.Context, experimentID id.ExperimentID) error {
	_, err := s.pgdb.NewDelete((*experimentModel)(nil)).
		Where("id = ?", experimentID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete experiment: %w", err)
	}
	return nil
}

func (s *Store) ListExperiments(ctx context.Context, filter *experiment.ListFilter) ([]*experiment.Experiment, error) {
	var models []experimentModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.GatewayID != "" {
			q = q.Where("gateway_id = ?", filter.GatewayID)
		}
		if !filter.ProjectID.IsNil() {
			q = q.Where("project_id = ?", filter.ProjectID.String())
		}
		if filter.OwnerID != "" {
			q = q.Where("owner_id = ?", filter.OwnerID)
		}
		if filter.State != "" {
			q = q.Where("state = ?", string(filter.State))
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("custodian: list experiments: %w", err)
	}
	result := make([]*experiment.Experiment, len(models))
	for i := range models {
		x, err := experimentFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("custodian: list experiments: %w", err)
		}
		result[i] = x
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Deployment store
// ──────────────────────────────────────────────────

func (s *Store) CreateDeployment(ctx context.Context, d *deployment.Deployment) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if _, err := s.pgdb.NewInsert(deploymentToModel(d)).Exec(ctx); err != nil {
		return fmt.Errorf("custodian: create deployment: %w", err)
	}
	return nil
}

func (s *Store) GetDeployment(ctx context.Context, deploymentID id.DeploymentID) (*deployment.Deployment, error) {
	m := new(deploymentModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", deploymentID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("deployment %s: %w", deploymentID, deployment.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get deployment: %w", err)
	}
	return deploymentFromModel(m)
}

func (s *Store) UpdateDeployment(ctx context.Context, d *deployment.Deployment) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.pgdb.NewUpdate(deploymentToModel(d)).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: update deployment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deployment %s: %w", d.ID, deployment.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteDeployment(ctx context.Context, deploymentID id.DeploymentID) error {
	_, err := s.pgdb.NewDelete((*deploymentModel)(nil)).
		Where("id = ?", deploymentID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete deployment: %w", err)
	}
	return nil
}

func (s *Store) ListDeployments(ctx context.Context, filter *deployment.ListFilter) ([]*deployment.Deployment, error) {
	var models []deploymentModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.GatewayID != "" {
			q = q.Where("gateway_id = ?", filter.GatewayID)
		}
		if filter.AppModuleID != "" {
			q = q.Where("app_module_id = ?", filter.AppModuleID)
		}
		if filter.ComputeResourceID != "" {
			q = q.Where("compute_resource_id = ?", filter.ComputeResourceID)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("custodian: list deployments: %w", err)
	}
	result := make([]*deployment.Deployment, len(models))
	for i := range models {
		d, err := deploymentFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("custodian: list deployments: %w", err)
		}
		result[i] = d
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Audit log store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *authlog.Entry) error {
	if e.ID.IsNil() {
		e.ID = id.NewAuditLogID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.pgdb.NewInsert(auditEntryToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("custodian: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetAuditEntry(ctx context.Context, entryID id.AuditLogID) (*authlog.Entry, error) {
	m := new(auditEntryModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", entryID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("audit entry %s: %w", entryID, authlog.ErrNotFound)
		}
		return nil, fmt.Errorf("custodian: get audit entry: %w", err)
	}
	return auditEntryFromModel(m)
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *authlog.QueryFilter) ([]*authlog.Entry, error) {
	var models []auditEntryModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.GatewayID != "" {
			q = q.Where("gateway_id = ?", filter.GatewayID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		if filter.Permission != "" {
			q = q.Where("permission = ?", filter.Permission)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("custodian: list audit entries: %w", err)
	}
	result := make([]*authlog.Entry, len(models))
	for i := range models {
		e, err := auditEntryFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("custodian: list audit entries: %w", err)
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountAuditEntries(ctx context.Context, filter *authlog.QueryFilter) (int64, error) {
	q := s.pgdb.NewSelect((*auditEntryModel)(nil))
	if filter != nil {
		if filter.GatewayID != "" {
			q = q.Where("gateway_id = ?", filter.GatewayID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		if filter.Permission != "" {
			q = q.Where("permission = ?", filter.Permission)
		}
		if filter.Allowed != nil {
			q = q.Where("allowed = ?", *filter.Allowed)
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("custodian: count audit entries: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*auditEntryModel)(nil)).
		Where("created_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("custodian: purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // drivers without RowsAffected still purged
	}
	return n, nil
}

func (s *Store) DeleteAuditEntriesByGateway(ctx context.Context, gatewayID string) error {
	_, err := s.pgdb.NewDelete((*auditEntryModel)(nil)).
		Where("gateway_id = ?", gatewayID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("custodian: delete audit entries by gateway: %w", err)
	}
	return nil
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
