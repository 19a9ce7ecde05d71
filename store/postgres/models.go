package postgres

import (
	"time"

	"github.com/xraph/grove"

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

// ──────────────────────────────────────────────────
// Sharing registry models
// ──────────────────────────────────────────────────

type domainModel struct {
	grove.BaseModel `grove:"table:custodian_domains"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func domainToModel(d *sharing.Domain) *domainModel {
	return &domainModel{ID: d.ID, Name: d.Name, Description: d.Description, CreatedAt: d.CreatedAt}
}

type entityTypeModel struct {
	grove.BaseModel `grove:"table:custodian_entity_types"`
	DomainID        string    `grove:"domain_id,pk"`
	Name            string    `grove:"name,pk"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

type permissionTypeModel struct {
	grove.BaseModel `grove:"table:custodian_permission_types"`
	DomainID        string    `grove:"domain_id,pk"`
	Name            string    `grove:"name,pk"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

type entityModel struct {
	grove.BaseModel `grove:"table:custodian_entities"`
	ID              string    `grove:"id,pk"`
	DomainID        string    `grove:"domain_id,notnull"`
	Type            string    `grove:"type,notnull"`
	OwnerID         string    `grove:"owner_id,notnull"`
	ParentID        string    `grove:"parent_id"`
	Name            string    `grove:"name"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func entityToModel(e *sharing.Entity) *entityModel {
	return &entityModel{
		ID:          e.ID,
		DomainID:    e.DomainID,
		Type:        string(e.Type),
		OwnerID:     e.OwnerID,
		ParentID:    e.ParentID,
		Name:        e.Name,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func entityFromModel(m *entityModel) *sharing.Entity {
	return &sharing.Entity{
		ID:          m.ID,
		DomainID:    m.DomainID,
		Type:        sharing.EntityType(m.Type),
		OwnerID:     m.OwnerID,
		ParentID:    m.ParentID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type grantModel struct {
	grove.BaseModel `grove:"table:custodian_grants"`
	DomainID        string    `grove:"domain_id,pk"`
	EntityID        string    `grove:"entity_id,pk"`
	GranteeKind     string    `grove:"grantee_kind,pk"`
	GranteeID       string    `grove:"grantee_id,pk"`
	Permission      string    `grove:"permission,pk"`
	Cascade         bool      `grove:"cascades,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

type groupMemberModel struct {
	grove.BaseModel `grove:"table:custodian_group_members"`
	DomainID        string    `grove:"domain_id,pk"`
	GroupID         string    `grove:"group_id,pk"`
	UserID          string    `grove:"user_id,pk"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

// ──────────────────────────────────────────────────
// Profile models
// ──────────────────────────────────────────────────

type userComputePrefModel struct {
	grove.BaseModel   `grove:"table:custodian_user_compute_prefs"`
	GatewayID         string    `grove:"gateway_id,pk"`
	UserID            string    `grove:"user_id,pk"`
	ComputeResourceID string    `grove:"compute_resource_id,pk"`
	LoginUserName     string    `grove:"login_user_name"`
	CredentialToken   string    `grove:"credential_token"`
	PreferredQueue    string    `grove:"preferred_queue"`
	ScratchLocation   string    `grove:"scratch_location"`
	AllocationProject string    `grove:"allocation_project"`
	QualityOfService  string    `grove:"quality_of_service"`
	CreatedAt         time.Time `grove:"created_at,notnull"`
	UpdatedAt         time.Time `grove:"updated_at,notnull"`
}

func userComputePrefToModel(p *profile.UserComputePreference) *userComputePrefModel {
	return &userComputePrefModel{
		GatewayID:         p.GatewayID,
		UserID:            p.UserID,
		ComputeResourceID: p.ComputeResourceID,
		LoginUserName:     p.LoginUserName,
		CredentialToken:   p.CredentialToken,
		PreferredQueue:    p.PreferredQueue,
		ScratchLocation:   p.ScratchLocation,
		AllocationProject: p.AllocationProject,
		QualityOfService:  p.QualityOfService,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func userComputePrefFromModel(m *userComputePrefModel) *profile.UserComputePreference {
	return &profile.UserComputePreference{
		GatewayID:         m.GatewayID,
		UserID:            m.UserID,
		ComputeResourceID: m.ComputeResourceID,
		LoginUserName:     m.LoginUserName,
		CredentialToken:   m.CredentialToken,
		PreferredQueue:    m.PreferredQueue,
		ScratchLocation:   m.ScratchLocation,
		AllocationProject: m.AllocationProject,
		QualityOfService:  m.QualityOfService,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

type userStoragePrefModel struct {
	grove.BaseModel   `grove:"table:custodian_user_storage_prefs"`
	GatewayID         string    `grove:"gateway_id,pk"`
	UserID            string    `grove:"user_id,pk"`
	StorageResourceID string    `grove:"storage_resource_id,pk"`
	LoginUserName     string    `grove:"login_user_name"`
	CredentialToken   string    `grove:"credential_token"`
	RootLocation      string    `grove:"root_location"`
	CreatedAt         time.Time `grove:"created_at,notnull"`
	UpdatedAt         time.Time `grove:"updated_at,notnull"`
}

func userStoragePrefToModel(p *profile.UserStoragePreference) *userStoragePrefModel {
	return &userStoragePrefModel{
		GatewayID:         p.GatewayID,
		UserID:            p.UserID,
		StorageResourceID: p.StorageResourceID,
		LoginUserName:     p.LoginUserName,
		CredentialToken:   p.CredentialToken,
		RootLocation:      p.RootLocation,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func userStoragePrefFromModel(m *userStoragePrefModel) *profile.UserStoragePreference {
	return &profile.UserStoragePreference{
		GatewayID:         m.GatewayID,
		UserID:            m.UserID,
		StorageResourceID: m.StorageResourceID,
		LoginUserName:     m.LoginUserName,
		CredentialToken:   m.CredentialToken,
		RootLocation:      m.RootLocation,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

type userProfileModel struct {
	grove.BaseModel `grove:"table:custodian_user_profiles"`
	GatewayID       string    `grove:"gateway_id,pk"`
	UserID          string    `grove:"user_id,pk"`
	CredentialToken string    `grove:"credential_token"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

type groupProfileModel struct {
	grove.BaseModel `grove:"table:custodian_group_profiles"`
	ID              string    `grove:"id,pk"`
	GatewayID       string    `grove:"gateway_id,notnull"`
	Name            string    `grove:"name,notnull"`
	DefaultToken    string    `grove:"default_token"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

type groupComputePrefModel struct {
	grove.BaseModel   `grove:"table:custodian_group_compute_prefs"`
	ProfileID         string `grove:"profile_id,pk"`
	ComputeResourceID string `grove:"compute_resource_id,pk"`
	LoginUserName     string `grove:"login_user_name"`
	CredentialToken   string `grove:"credential_token"`
	AllocationProject string `grove:"allocation_project"`
	PreferredQueue    string `grove:"preferred_queue"`
}

func groupProfileFromModels(m *groupProfileModel, prefs []groupComputePrefModel) (*profile.GroupResourceProfile, error) {
	pid, err := id.ParseGroupProfileID(m.ID)
	if err != nil {
		return nil, err
	}
	p := &profile.GroupResourceProfile{
		ID:           pid,
		GatewayID:    m.GatewayID,
		Name:         m.Name,
		DefaultToken: m.DefaultToken,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, pm := range prefs {
		p.ComputePreferences = append(p.ComputePreferences, profile.GroupComputePreference{
			ProfileID:         pid,
			ComputeResourceID: pm.ComputeResourceID,
			LoginUserName:     pm.LoginUserName,
			CredentialToken:   pm.CredentialToken,
			AllocationProject: pm.AllocationProject,
			PreferredQueue:    pm.PreferredQueue,
		})
	}
	return p, nil
}

type gatewayProfileModel struct {
	grove.BaseModel `grove:"table:custodian_gateway_profiles"`
	GatewayID       string    `grove:"gateway_id,pk"`
	CredentialToken string    `grove:"credential_token"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

type gatewayStoragePrefModel struct {
	grove.BaseModel   `grove:"table:custodian_gateway_storage_prefs"`
	GatewayID         string `grove:"gateway_id,pk"`
	StorageResourceID string `grove:"storage_resource_id,pk"`
	LoginUserName     string `grove:"login_user_name"`
	CredentialToken   string `grove:"credential_token"`
	RootLocation      string `grove:"root_location"`
}

func gatewayStoragePrefFromModel(m *gatewayStoragePrefModel) *profile.GatewayStoragePreference {
	return &profile.GatewayStoragePreference{
		GatewayID:         m.GatewayID,
		StorageResourceID: m.StorageResourceID,
		LoginUserName:     m.LoginUserName,
		CredentialToken:   m.CredentialToken,
		RootLocation:      m.RootLocation,
	}
}

// ──────────────────────────────────────────────────
// Catalog models
// ──────────────────────────────────────────────────

type computeResourceModel struct {
	grove.BaseModel `grove:"table:custodian_compute_resources"`
	ID              string    `grove:"id,pk"`
	HostName        string    `grove:"host_name,notnull"`
	Description     string    `grove:"description"`
	SSHPort         int       `grove:"ssh_port"`
	Enabled         bool      `grove:"enabled,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func computeResourceFromModel(m *computeResourceModel) *catalog.ComputeResource {
	return &catalog.ComputeResource{
		ID:          m.ID,
		HostName:    m.HostName,
		Description: m.Description,
		SSHPort:     m.SSHPort,
		Enabled:     m.Enabled,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type storageResourceModel struct {
	grove.BaseModel `grove:"table:custodian_storage_resources"`
	ID              string    `grove:"id,pk"`
	HostName        string    `grove:"host_name,notnull"`
	Description     string    `grove:"description"`
	Enabled         bool      `grove:"enabled,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func storageResourceFromModel(m *storageResourceModel) *catalog.StorageResource {
	return &catalog.StorageResource{
		ID:          m.ID,
		HostName:    m.HostName,
		Description: m.Description,
		Enabled:     m.Enabled,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Gateway groups model
// ──────────────────────────────────────────────────

type gatewayGroupsModel struct {
	grove.BaseModel       `grove:"table:custodian_gateway_groups"`
	GatewayID             string    `grove:"gateway_id,pk"`
	AdminsGroupID         string    `grove:"admins_group_id,notnull"`
	ReadOnlyAdminsGroupID string    `grove:"read_only_admins_group_id,notnull"`
	CreatedAt             time.Time `grove:"created_at,notnull"`
	UpdatedAt             time.Time `grove:"updated_at,notnull"`
}

func gatewayGroupsFromModel(m *gatewayGroupsModel) *group.GatewayGroups {
	return &group.GatewayGroups{
		GatewayID:             m.GatewayID,
		AdminsGroupID:         m.AdminsGroupID,
		ReadOnlyAdminsGroupID: m.ReadOnlyAdminsGroupID,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Resource models
// ──────────────────────────────────────────────────

type projectModel struct {
	grove.BaseModel `grove:"table:custodian_projects"`
	ID              string    `grove:"id,pk"`
	GatewayID       string    `grove:"gateway_id,notnull"`
	OwnerID         string    `grove:"owner_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func projectToModel(p *project.Project) *projectModel {
	return &projectModel{
		ID:          p.ID.String(),
		GatewayID:   p.GatewayID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func projectFromModel(m *projectModel) (*project.Project, error) {
	pid, err := id.ParseProjectID(m.ID)
	if err != nil {
		return nil, err
	}
	return &project.Project{
		ID:          pid,
		GatewayID:   m.GatewayID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

type experimentModel struct {
	grove.BaseModel   `grove:"table:custodian_experiments"`
	ID                string    `grove:"id,pk"`
	ProjectID         string    `grove:"project_id,notnull"`
	GatewayID         string    `grove:"gateway_id,notnull"`
	OwnerID           string    `grove:"owner_id,notnull"`
	Name              string    `grove:"name,notnull"`
	Description       string    `grove:"description"`
	ComputeResourceID string    `grove:"compute_resource_id"`
	State             string    `grove:"state,notnull"`
	CreatedAt         time.Time `grove:"created_at,notnull"`
	UpdatedAt         time.Time `grove:"updated_at,notnull"`
}

func experimentToModel(x *experiment.Experiment) *experimentModel {
	return &experimentModel{
		ID:                x.ID.String(),
		ProjectID:         x.ProjectID.String(),
		GatewayID:         x.GatewayID,
		OwnerID:           x.OwnerID,
		Name:              x.Name,
		Description:       x.Description,
		ComputeResourceID: x.ComputeResourceID,
		State:             string(x.State),
		CreatedAt:         x.CreatedAt,
		UpdatedAt:         x.UpdatedAt,
	}
}

func experimentFromModel(m *experimentModel) (*experiment.Experiment, error) {
	xid, err := id.ParseExperimentID(m.ID)
	if err != nil {
		return nil, err
	}
	pid, err := id.ParseProjectID(m.ProjectID)
	if err != nil {
		return nil, err
	}
	return &experiment.Experiment{
		ID:                xid,
		ProjectID:         pid,
		GatewayID:         m.GatewayID,
		OwnerID:           m.OwnerID,
		Name:              m.Name,
		Description:       m.Description,
		ComputeResourceID: m.ComputeResourceID,
		State:             experiment.State(m.State),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

type deploymentModel struct {
	grove.BaseModel   `grove:"table:custodian_deployments"`
	ID                string    `grove:"id,pk"`
	GatewayID         string    `grove:"gateway_id,notnull"`
	OwnerID           string    `grove:"owner_id,notnull"`
	AppModuleID       string    `grove:"app_module_id,notnull"`
	ComputeResourceID string    `grove:"compute_resource_id,notnull"`
	ExecutablePath    string    `grove:"executable_path"`
	Description       string    `grove:"description"`
	CreatedAt         time.Time `grove:"created_at,notnull"`
	UpdatedAt         time.Time `grove:"updated_at,notnull"`
}

func deploymentToModel(d *deployment.Deployment) *deploymentModel {
	return &deploymentModel{
		ID:                d.ID.String(),
		GatewayID:         d.GatewayID,
		OwnerID:           d.OwnerID,
		AppModuleID:       d.AppModuleID,
		ComputeResourceID: d.ComputeResourceID,
		ExecutablePath:    d.ExecutablePath,
		Description:       d.Description,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func deploymentFromModel(m *deploymentModel) (*deployment.Deployment, error) {
	did, err := id.ParseDeploymentID(m.ID)
	if err != nil {
		return nil, err
	}
	return &deployment.Deployment{
		ID:                did,
		GatewayID:         m.GatewayID,
		OwnerID:           m.OwnerID,
		AppModuleID:       m.AppModuleID,
		ComputeResourceID: m.ComputeResourceID,
		ExecutablePath:    m.ExecutablePath,
		Description:       m.Description,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Audit log model
// ──────────────────────────────────────────────────

type auditEntryModel struct {
	grove.BaseModel `grove:"table:custodian_audit_log"`
	ID              string    `grove:"id,pk"`
	GatewayID       string    `grove:"gateway_id,notnull"`
	UserID          string    `grove:"user_id,notnull"`
	EntityID        string    `grove:"entity_id,notnull"`
	Permission      string    `grove:"permission,notnull"`
	Allowed         bool      `grove:"allowed,notnull"`
	Reason          string    `grove:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditEntryToModel(e *authlog.Entry) *auditEntryModel {
	return &auditEntryModel{
		ID:         e.ID.String(),
		GatewayID:  e.GatewayID,
		UserID:     e.UserID,
		EntityID:   e.EntityID,
		Permission: e.Permission,
		Allowed:    e.Allowed,
		Reason:     e.Reason,
		EvalTimeNs: e.EvalTimeNs,
		CreatedAt:  e.CreatedAt,
	}
}

func auditEntryFromModel(m *auditEntryModel) (*authlog.Entry, error) {
	eid, err := id.ParseAuditLogID(m.ID)
	if err != nil {
		return nil, err
	}
	return &authlog.Entry{
		ID:         eid,
		GatewayID:  m.GatewayID,
		UserID:     m.UserID,
		EntityID:   m.EntityID,
		Permission: m.Permission,
		Allowed:    m.Allowed,
		Reason:     m.Reason,
		EvalTimeNs: m.EvalTimeNs,
		CreatedAt:  m.CreatedAt,
	}, nil
}
