package custodian

import (
	"context"
	"errors"

	"github.com/xraph/custodian/deployment"
	"github.com/xraph/custodian/event"
	"github.com/xraph/custodian/experiment"
	"github.com/xraph/custodian/id"
	"github.com/xraph/custodian/profile"
	"github.com/xraph/custodian/project"
	"github.com/xraph/custodian/sharing"
)

// requireAccess enforces a permission for the calling principal on an
// entity, mapping denial to a typed error.
func (e *Engine) requireAccess(ctx context.Context, gatewayID, entityID string, perm PermissionType) error {
	p := scopeFromContext(ctx)
	if p.UserID == "" {
		return E(KindInvalidRequest, "no principal in context")
	}
	if !e.PrincipalHasAccess(ctx, Principal{UserID: p.UserID, GatewayID: gatewayID}, entityID, perm) {
		return Errorf(KindAuthorizationDenied, "user %s lacks %s on %s", p.UserID, perm, entityID)
	}
	return nil
}

// createResource runs the shared creation workflow: persist the business
// record, register the sharing entity, and auto-share it with the
// gateway's admin groups. Any failure after the record exists rolls the
// earlier steps back; compensation is best-effort and the step's own error
// is what the caller sees.
func (e *Engine) createResource(ctx context.Context, ent *sharing.Entity, create, remove func(context.Context) error) error {
	if err := create(ctx); err != nil {
		return Wrap(KindSystemError, "persist record", err)
	}

	if err := e.registry.CreateEntity(ctx, ent); err != nil {
		e.compensate(ctx, ent.ID, "remove record", remove)
		return Wrap(KindSystemError, "register sharing entity", err)
	}

	if e.config.autoShareEnabled() {
		if err := e.ShareEntityWithAdminGatewayGroups(ctx, ent.DomainID, ent.ID); err != nil {
			e.compensate(ctx, ent.ID, "delete sharing entity", func(ctx context.Context) error {
				return e.registry.DeleteEntity(ctx, ent.DomainID, ent.ID)
			})
			e.compensate(ctx, ent.ID, "remove record", remove)
			return err
		}
	}

	if e.plugins != nil {
		e.plugins.EmitResourceCreated(ctx, ent)
	}
	e.publish(ctx, event.ResourceCreated, ent.DomainID, ent.ID)
	return nil
}

func (e *Engine) compensate(ctx context.Context, entityID, step string, undo func(context.Context) error) {
	if err := undo(ctx); err != nil {
		e.logger.Error("rollback step failed, record may be orphaned",
			"entityID", entityID, "step", step, "error", err)
	}
}

// deleteResource runs the shared deletion workflow: enforce OWNER, remove
// the business record, then the sharing entity with all its grants.
func (e *Engine) deleteResource(ctx context.Context, gatewayID, entityID string, remove func(context.Context) error) error {
	if err := e.requireAccess(ctx, gatewayID, entityID, PermissionOwner); err != nil {
		return err
	}
	if err := remove(ctx); err != nil {
		return Wrap(KindSystemError, "remove record", err)
	}
	if err := e.registry.DeleteEntity(ctx, gatewayID, entityID); err != nil {
		e.logger.Error("sharing entity delete failed after record removal",
			"entityID", entityID, "error", err)
		return Wrap(KindSystemError, "delete sharing entity", err)
	}
	e.invalidateEntity(ctx, gatewayID, entityID)
	if e.plugins != nil {
		e.plugins.EmitResourceDeleted(ctx, gatewayID, entityID)
	}
	e.publish(ctx, event.ResourceDeleted, gatewayID, entityID)
	return nil
}

// updateEntityMeta mirrors name/description changes into the sharing
// registry so entity search stays accurate.
func (e *Engine) updateEntityMeta(ctx context.Context, gatewayID, entityID, name, description string) error {
	ent, err := e.registry.GetEntity(ctx, gatewayID, entityID)
	if err != nil {
		return Wrap(KindSystemError, "entity lookup", err)
	}
	ent.Name = name
	ent.Description = description
	if err := e.registry.UpdateEntity(ctx, ent); err != nil {
		return Wrap(KindSystemError, "update sharing entity", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Projects
// ──────────────────────────────────────────────────

// CreateProject persists a project and registers it as a shareable entity
// owned by its creator. With auto-sharing enabled the gateway's admin
// groups receive their baseline grants before the call returns.
func (e *Engine) CreateProject(ctx context.Context, p *project.Project) (id.ProjectID, error) {
	if blank(p.GatewayID) || blank(p.OwnerID) || blank(p.Name) {
		return id.ID{}, E(KindInvalidRequest, "project requires gateway id, owner id, and name")
	}
	if p.ID.IsNil() {
		p.ID = id.NewProjectID()
	}
	ent := &sharing.Entity{
		ID:          p.ID.String(),
		DomainID:    p.GatewayID,
		Type:        sharing.EntityProject,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
	}
	err := e.createResource(ctx, ent,
		func(ctx context.Context) error { return e.store.CreateProject(ctx, p) },
		func(ctx context.Context) error { return e.store.DeleteProject(ctx, p.ID) },
	)
	if err != nil {
		return id.ID{}, err
	}
	return p.ID, nil
}

// GetProject retrieves a project the calling principal can read.
func (e *Engine) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return nil, Errorf(KindNotFound, "project %s not found", projectID)
		}
		return nil, Wrap(KindSystemError, "project lookup", err)
	}
	if err := e.requireAccess(ctx, p.GatewayID, projectID.String(), PermissionRead); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject persists changes to a project the calling principal can
// write, keeping the sharing entity's metadata in sync.
func (e *Engine) UpdateProject(ctx context.Context, p *project.Project) error {
	if err := e.requireAccess(ctx, p.GatewayID, p.ID.String(), PermissionWrite); err != nil {
		return err
	}
	if err := e.store.UpdateProject(ctx, p); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return Errorf(KindNotFound, "project %s not found", p.ID)
		}
		return Wrap(KindSystemError, "update project", err)
	}
	return e.updateEntityMeta(ctx, p.GatewayID, p.ID.String(), p.Name, p.Description)
}

// DeleteProject removes a project and its sharing entity. Only the owner
// may delete.
func (e *Engine) DeleteProject(ctx context.Context, gatewayID string, projectID id.ProjectID) error {
	return e.deleteResource(ctx, gatewayID, projectID.String(), func(ctx context.Context) error {
		return e.store.DeleteProject(ctx, projectID)
	})
}

// ListProjects returns the projects in the gateway that the calling
// principal can read, in the registry's search order.
func (e *Engine) ListProjects(ctx context.Context, gatewayID string, filter *sharing.SearchFilter) ([]*project.Project, error) {
	entities, err := e.searchAccessible(ctx, gatewayID, sharing.EntityProject, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*project.Project, 0, len(entities))
	for _, ent := range entities {
		pid, err := id.ParseProjectID(ent.ID)
		if err != nil {
			continue
		}
		p, err := e.store.GetProject(ctx, pid)
		if err != nil {
			if errors.Is(err, project.ErrNotFound) {
				continue
			}
			return nil, Wrap(KindSystemError, "project lookup", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Experiments
// ──────────────────────────────────────────────────

// CreateExperiment persists an experiment under a project and registers it
// as a child sharing entity, so project-level grants cascade to it. The
// calling principal must hold WRITE on the project.
func (e *Engine) CreateExperiment(ctx context.Context, x *experiment.Experiment) (id.ExperimentID, error) {
	if blank(x.GatewayID) || blank(x.OwnerID) || blank(x.Name) || x.ProjectID.IsNil() {
		return id.ID{}, E(KindInvalidRequest, "experiment requires gateway id, owner id, name, and project id")
	}
	if _, err := e.store.GetProject(ctx, x.ProjectID); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return id.ID{}, Errorf(KindNotFound, "project %s not found", x.ProjectID)
		}
		return id.ID{}, Wrap(KindSystemError, "project lookup", err)
	}
	if err := e.requireAccess(ctx, x.GatewayID, x.ProjectID.String(), PermissionWrite); err != nil {
		return id.ID{}, err
	}
	if x.ID.IsNil() {
		x.ID = id.NewExperimentID()
	}
	if x.State == "" {
		x.State = experiment.StateCreated
	}
	ent := &sharing.Entity{
		ID:          x.ID.String(),
		DomainID:    x.GatewayID,
		Type:        sharing.EntityExperiment,
		OwnerID:     x.OwnerID,
		ParentID:    x.ProjectID.String(),
		Name:        x.Name,
		Description: x.Description,
	}
	err := e.createResource(ctx, ent,
		func(ctx context.Context) error { return e.store.CreateExperiment(ctx, x) },
		func(ctx context.Context) error { return e.store.DeleteExperiment(ctx, x.ID) },
	)
	if err != nil {
		return id.ID{}, err
	}
	return x.ID, nil
}

// GetExperiment retrieves an experiment the calling principal can read.
func (e *Engine) GetExperiment(ctx context.Context, experimentID id.ExperimentID) (*experiment.Experiment, error) {
	x, err := e.store.GetExperiment(ctx, experimentID)
	if err != nil {
		if errors.Is(err, experiment.ErrNotFound) {
			return nil, Errorf(KindNotFound, "experiment %s not found", experimentID)
		}
		return nil, Wrap(KindSystemError, "experiment lookup", err)
	}
	if err := e.requireAccess(ctx, x.GatewayID, experimentID.String(), PermissionRead); err != nil {
		return nil, err
	}
	return x, nil
}

// UpdateExperiment persists changes to an experiment the calling principal
// can write.
func (e *Engine) UpdateExperiment(ctx context.Context, x *experiment.Experiment) error {
	if err := e.requireAccess(ctx, x.GatewayID, x.ID.String(), PermissionWrite); err != nil {
		return err
	}
	if err := e.store.UpdateExperiment(ctx, x); err != nil {
		if errors.Is(err, experiment.ErrNotFound) {
			return Errorf(KindNotFound, "experiment %s not found", x.ID)
		}
		return Wrap(KindSystemError, "update experiment", err)
	}
	return e.updateEntityMeta(ctx, x.GatewayID, x.ID.String(), x.Name, x.Description)
}

// DeleteExperiment removes an experiment and its sharing entity. Only the
// owner may delete.
func (e *Engine) DeleteExperiment(ctx context.Context, gatewayID string, experimentID id.ExperimentID) error {
	return e.deleteResource(ctx, gatewayID, experimentID.String(), func(ctx context.Context) error {
		return e.store.DeleteExperiment(ctx, experimentID)
	})
}

// ListExperiments returns the experiments in the gateway that the calling
// principal can read.
func (e *Engine) ListExperiments(ctx context.Context, gatewayID string, filter *sharing.SearchFilter) ([]*experiment.Experiment, error) {
	entities, err := e.searchAccessible(ctx, gatewayID, sharing.EntityExperiment, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*experiment.Experiment, 0, len(entities))
	for _, ent := range entities {
		xid, err := id.ParseExperimentID(ent.ID)
		if err != nil {
			continue
		}
		x, err := e.store.GetExperiment(ctx, xid)
		if err != nil {
			if errors.Is(err, experiment.ErrNotFound) {
				continue
			}
			return nil, Wrap(KindSystemError, "experiment lookup", err)
		}
		out = append(out, x)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Application deployments
// ──────────────────────────────────────────────────

// CreateApplicationDeployment persists a deployment and registers it as a
// shareable entity.
func (e *Engine) CreateApplicationDeployment(ctx context.Context, d *deployment.Deployment) (id.DeploymentID, error) {
	if blank(d.GatewayID) || blank(d.OwnerID) || blank(d.AppModuleID) || blank(d.ComputeResourceID) {
		return id.ID{}, E(KindInvalidRequest, "deployment requires gateway id, owner id, app module id, and compute resource id")
	}
	if d.ID.IsNil() {
		d.ID = id.NewDeploymentID()
	}
	ent := &sharing.Entity{
		ID:          d.ID.String(),
		DomainID:    d.GatewayID,
		Type:        sharing.EntityDeployment,
		OwnerID:     d.OwnerID,
		Name:        d.AppModuleID + " on " + d.ComputeResourceID,
		Description: d.Description,
	}
	err := e.createResource(ctx, ent,
		func(ctx context.Context) error { return e.store.CreateDeployment(ctx, d) },
		func(ctx context.Context) error { return e.store.DeleteDeployment(ctx, d.ID) },
	)
	if err != nil {
		return id.ID{}, err
	}
	return d.ID, nil
}

// GetApplicationDeployment retrieves a deployment the calling principal
// can read.
func (e *Engine) GetApplicationDeployment(ctx context.Context, deploymentID id.DeploymentID) (*deployment.Deployment, error) {
	d, err := e.store.GetDeployment(ctx, deploymentID)
	if err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			return nil, Errorf(KindNotFound, "deployment %s not found", deploymentID)
		}
		return nil, Wrap(KindSystemError, "deployment lookup", err)
	}
	if err := e.requireAccess(ctx, d.GatewayID, deploymentID.String(), PermissionRead); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateApplicationDeployment persists changes to a deployment the calling
// principal can write.
func (e *Engine) UpdateApplicationDeployment(ctx context.Context, d *deployment.Deployment) error {
	if err := e.requireAccess(ctx, d.GatewayID, d.ID.String(), PermissionWrite); err != nil {
		return err
	}
	if err := e.store.UpdateDeployment(ctx, d); err != nil {
		if errors.Is(err, deployment.ErrNotFound) {
			return Errorf(KindNotFound, "deployment %s not found", d.ID)
		}
		return Wrap(KindSystemError, "update deployment", err)
	}
	return e.updateEntityMeta(ctx, d.GatewayID, d.ID.String(), d.AppModuleID+" on "+d.ComputeResourceID, d.Description)
}

// DeleteApplicationDeployment removes a deployment and its sharing entity.
// Only the owner may delete.
func (e *Engine) DeleteApplicationDeployment(ctx context.Context, gatewayID string, deploymentID id.DeploymentID) error {
	return e.deleteResource(ctx, gatewayID, deploymentID.String(), func(ctx context.Context) error {
		return e.store.DeleteDeployment(ctx, deploymentID)
	})
}

// ListApplicationDeployments returns the deployments in the gateway that
// the calling principal can read.
func (e *Engine) ListApplicationDeployments(ctx context.Context, gatewayID string, filter *sharing.SearchFilter) ([]*deployment.Deployment, error) {
	entities, err := e.searchAccessible(ctx, gatewayID, sharing.EntityDeployment, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*deployment.Deployment, 0, len(entities))
	for _, ent := range entities {
		did, err := id.ParseDeploymentID(ent.ID)
		if err != nil {
			continue
		}
		d, err := e.store.GetDeployment(ctx, did)
		if err != nil {
			if errors.Is(err, deployment.ErrNotFound) {
				continue
			}
			return nil, Wrap(KindSystemError, "deployment lookup", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Group resource profiles
// ──────────────────────────────────────────────────

// CreateGroupResourceProfile persists a group resource profile and
// registers it as a shareable entity owned by the calling principal.
func (e *Engine) CreateGroupResourceProfile(ctx context.Context, p *profile.GroupResourceProfile) (id.GroupProfileID, error) {
	actor := scopeFromContext(ctx)
	if blank(p.GatewayID) || blank(p.Name) {
		return id.ID{}, E(KindInvalidRequest, "group resource profile requires gateway id and name")
	}
	if actor.UserID == "" {
		return id.ID{}, E(KindInvalidRequest, "no principal in context")
	}
	if p.ID.IsNil() {
		p.ID = id.NewGroupProfileID()
	}
	for i := range p.ComputePreferences {
		p.ComputePreferences[i].ProfileID = p.ID
	}
	ent := &sharing.Entity{
		ID:       p.ID.String(),
		DomainID: p.GatewayID,
		Type:     sharing.EntityGroupProfile,
		OwnerID:  actor.UserID,
		Name:     p.Name,
	}
	err := e.createResource(ctx, ent,
		func(ctx context.Context) error { return e.store.CreateGroupResourceProfile(ctx, p) },
		func(ctx context.Context) error { return e.store.DeleteGroupResourceProfile(ctx, p.ID) },
	)
	if err != nil {
		return id.ID{}, err
	}
	return p.ID, nil
}

// GetGroupResourceProfile retrieves a profile the calling principal can read.
func (e *Engine) GetGroupResourceProfile(ctx context.Context, profileID id.GroupProfileID) (*profile.GroupResourceProfile, error) {
	p, err := e.store.GetGroupResourceProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, Errorf(KindNotFound, "group resource profile %s not found", profileID)
		}
		return nil, Wrap(KindSystemError, "group resource profile lookup", err)
	}
	if err := e.requireAccess(ctx, p.GatewayID, profileID.String(), PermissionRead); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateGroupResourceProfile persists changes to a profile the calling
// principal can write, replacing its compute preferences.
func (e *Engine) UpdateGroupResourceProfile(ctx context.Context, p *profile.GroupResourceProfile) error {
	if err := e.requireAccess(ctx, p.GatewayID, p.ID.String(), PermissionWrite); err != nil {
		return err
	}
	for i := range p.ComputePreferences {
		p.ComputePreferences[i].ProfileID = p.ID
	}
	if err := e.store.UpdateGroupResourceProfile(ctx, p); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return Errorf(KindNotFound, "group resource profile %s not found", p.ID)
		}
		return Wrap(KindSystemError, "update group resource profile", err)
	}
	return e.updateEntityMeta(ctx, p.GatewayID, p.ID.String(), p.Name, "")
}

// DeleteGroupResourceProfile removes a profile and its sharing entity.
// Only the owner may delete.
func (e *Engine) DeleteGroupResourceProfile(ctx context.Context, gatewayID string, profileID id.GroupProfileID) error {
	return e.deleteResource(ctx, gatewayID, profileID.String(), func(ctx context.Context) error {
		return e.store.DeleteGroupResourceProfile(ctx, profileID)
	})
}

// ListGroupResourceProfiles returns the profiles in the gateway that the
// calling principal can read.
func (e *Engine) ListGroupResourceProfiles(ctx context.Context, gatewayID string) ([]*profile.GroupResourceProfile, error) {
	entities, err := e.searchAccessible(ctx, gatewayID, sharing.EntityGroupProfile, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*profile.GroupResourceProfile, 0, len(entities))
	for _, ent := range entities {
		pid, err := id.ParseGroupProfileID(ent.ID)
		if err != nil {
			continue
		}
		p, err := e.store.GetGroupResourceProfile(ctx, pid)
		if err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				continue
			}
			return nil, Wrap(KindSystemError, "group resource profile lookup", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// searchAccessible lists entities of one type visible to the calling
// principal.
func (e *Engine) searchAccessible(ctx context.Context, gatewayID string, typ sharing.EntityType, filter *sharing.SearchFilter) ([]*sharing.Entity, error) {
	p := scopeFromContext(ctx)
	if p.UserID == "" {
		return nil, E(KindInvalidRequest, "no principal in context")
	}
	if filter == nil {
		filter = &sharing.SearchFilter{}
	}
	filter.Type = typ
	if filter.Permission == "" {
		filter.Permission = string(PermissionRead)
	}
	entities, err := e.registry.SearchEntities(ctx, gatewayID, p.UserID, filter)
	if err != nil {
		return nil, Wrap(KindSystemError, "entity search", err)
	}
	return entities, nil
}
