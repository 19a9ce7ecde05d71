package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Custodian store (PostgreSQL).
var Migrations = migrate.NewGroup("custodian")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_sharing_registry",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlSharingRegistry)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS custodian_group_members;
DROP TABLE IF EXISTS custodian_grants;
DROP TABLE IF EXISTS custodian_entities;
DROP TABLE IF EXISTS custodian_permission_types;
DROP TABLE IF EXISTS custodian_entity_types;
DROP TABLE IF EXISTS custodian_domains;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_profiles",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlProfiles)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS custodian_gateway_storage_prefs;
DROP TABLE IF EXISTS custodian_gateway_profiles;
DROP TABLE IF EXISTS custodian_group_compute_prefs;
DROP TABLE IF EXISTS custodian_group_profiles;
DROP TABLE IF EXISTS custodian_user_profiles;
DROP TABLE IF EXISTS custodian_user_storage_prefs;
DROP TABLE IF EXISTS custodian_user_compute_prefs;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_catalog_and_groups",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlCatalogAndGroups)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS custodian_gateway_groups;
DROP TABLE IF EXISTS custodian_storage_resources;
DROP TABLE IF EXISTS custodian_compute_resources;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_resources",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlResources)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS custodian_deployments;
DROP TABLE IF EXISTS custodian_experiments;
DROP TABLE IF EXISTS custodian_projects;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_log",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, ddlAuditLog)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS custodian_audit_log`)
				return err
			},
		},
	)
}

// migrationDDL lists the schema statements in apply order, one entry per
// migration.
var migrationDDL = []string{ddlSharingRegistry, ddlProfiles, ddlCatalogAndGroups, ddlResources, ddlAuditLog}

const ddlSharingRegistry = `
CREATE TABLE IF NOT EXISTS custodian_domains (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS custodian_entity_types (
    domain_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (domain_id, name)
);

CREATE TABLE IF NOT EXISTS custodian_permission_types (
    domain_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (domain_id, name)
);

CREATE TABLE IF NOT EXISTS custodian_entities (
    id              TEXT PRIMARY KEY,
    domain_id       TEXT NOT NULL,
    type            TEXT NOT NULL,
    owner_id        TEXT NOT NULL,
    parent_id       TEXT NOT NULL DEFAULT '',
    name            TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_custodian_entities_domain ON custodian_entities (domain_id, type);
CREATE INDEX IF NOT EXISTS idx_custodian_entities_parent ON custodian_entities (domain_id, parent_id);

CREATE TABLE IF NOT EXISTS custodian_grants (
    domain_id       TEXT NOT NULL,
    entity_id       TEXT NOT NULL,
    grantee_kind    TEXT NOT NULL,
    grantee_id      TEXT NOT NULL,
    permission      TEXT NOT NULL,
    cascades        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (domain_id, entity_id, grantee_kind, grantee_id, permission)
);

CREATE INDEX IF NOT EXISTS idx_custodian_grants_entity ON custodian_grants (domain_id, entity_id, permission);
CREATE INDEX IF NOT EXISTS idx_custodian_grants_grantee ON custodian_grants (domain_id, grantee_kind, grantee_id);

CREATE TABLE IF NOT EXISTS custodian_group_members (
    domain_id       TEXT NOT NULL,
    group_id        TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (domain_id, group_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_custodian_members_user ON custodian_group_members (domain_id, user_id);
`

const ddlProfiles = `
CREATE TABLE IF NOT EXISTS custodian_user_compute_prefs (
    gateway_id          TEXT NOT NULL,
    user_id             TEXT NOT NULL,
    compute_resource_id TEXT NOT NULL,
    login_user_name     TEXT NOT NULL DEFAULT '',
    credential_token    TEXT NOT NULL DEFAULT '',
    preferred_queue     TEXT NOT NULL DEFAULT '',
    scratch_location    TEXT NOT NULL DEFAULT '',
    allocation_project  TEXT NOT NULL DEFAULT '',
    quality_of_service  TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (gateway_id, user_id, compute_resource_id)
);

CREATE TABLE IF NOT EXISTS custodian_user_storage_prefs (
    gateway_id          TEXT NOT NULL,
    user_id             TEXT NOT NULL,
    storage_resource_id TEXT NOT NULL,
    login_user_name     TEXT NOT NULL DEFAULT '',
    credential_token    TEXT NOT NULL DEFAULT '',
    root_location       TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (gateway_id, user_id, storage_resource_id)
);

CREATE TABLE IF NOT EXISTS custodian_user_profiles (
    gateway_id          TEXT NOT NULL,
    user_id             TEXT NOT NULL,
    credential_token    TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (gateway_id, user_id)
);

CREATE TABLE IF NOT EXISTS custodian_group_profiles (
    id              TEXT PRIMARY KEY,
    gateway_id      TEXT NOT NULL,
    name            TEXT NOT NULL,
    default_token   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_custodian_group_profiles_gateway ON custodian_group_profiles (gateway_id);

CREATE TABLE IF NOT EXISTS custodian_group_compute_prefs (
    profile_id          TEXT NOT NULL,
    compute_resource_id TEXT NOT NULL,
    login_user_name     TEXT NOT NULL DEFAULT '',
    credential_token    TEXT NOT NULL DEFAULT '',
    allocation_project  TEXT NOT NULL DEFAULT '',
    preferred_queue     TEXT NOT NULL DEFAULT '',

    PRIMARY KEY (profile_id, compute_resource_id)
);

CREATE TABLE IF NOT EXISTS custodian_gateway_profiles (
    gateway_id          TEXT PRIMARY KEY,
    credential_token    TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS custodian_gateway_storage_prefs (
    gateway_id          TEXT NOT NULL,
    storage_resource_id TEXT NOT NULL,
    login_user_name     TEXT NOT NULL DEFAULT '',
    credential_token    TEXT NOT NULL DEFAULT '',
    root_location       TEXT NOT NULL DEFAULT '',

    PRIMARY KEY (gateway_id, storage_resource_id)
);
`

const ddlCatalogAndGroups = `
CREATE TABLE IF NOT EXISTS custodian_compute_resources (
    id              TEXT PRIMARY KEY,
    host_name       TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    ssh_port        INTEGER NOT NULL DEFAULT 22,
    enabled         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS custodian_storage_resources (
    id              TEXT PRIMARY KEY,
    host_name       TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    enabled         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS custodian_gateway_groups (
    gateway_id                TEXT PRIMARY KEY,
    admins_group_id           TEXT NOT NULL,
    read_only_admins_group_id TEXT NOT NULL,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const ddlResources = `
CREATE TABLE IF NOT EXISTS custodian_projects (
    id              TEXT PRIMARY KEY,
    gateway_id      TEXT NOT NULL,
    owner_id        TEXT NOT NULL,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_custodian_projects_gateway ON custodian_projects (gateway_id, owner_id);

CREATE TABLE IF NOT EXISTS custodian_experiments (
    id                  TEXT PRIMARY KEY,
    project_id          TEXT NOT NULL,
    gateway_id          TEXT NOT NULL,
    owner_id            TEXT NOT NULL,
    name                TEXT NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    compute_resource_id TEXT NOT NULL DEFAULT '',
    state               TEXT NOT NULL DEFAULT 'CREATED',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_custodian_experiments_project ON custodian_experiments (project_id);
CREATE INDEX IF NOT EXISTS idx_custodian_experiments_gateway ON custodian_experiments (gateway_id, owner_id);

CREATE TABLE IF NOT EXISTS custodian_deployments (
    id                  TEXT PRIMARY KEY,
    gateway_id          TEXT NOT NULL,
    owner_id            TEXT NOT NULL,
    app_module_id       TEXT NOT NULL,
    compute_resource_id TEXT NOT NULL,
    executable_path     TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_custodian_deployments_gateway ON custodian_deployments (gateway_id);
`

const ddlAuditLog = `
CREATE TABLE IF NOT EXISTS custodian_audit_log (
    id              TEXT PRIMARY KEY,
    gateway_id      TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    entity_id       TEXT NOT NULL,
    permission      TEXT NOT NULL,
    allowed         BOOLEAN NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    eval_time_ns    BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_custodian_audit_gateway ON custodian_audit_log (gateway_id, created_at);
CREATE INDEX IF NOT EXISTS idx_custodian_audit_entity ON custodian_audit_log (entity_id);
`
