// Package middleware provides HTTP authorization middleware for Custodian.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/custodian"
)

// Require enforces the permission on the entity named by the route's "id"
// parameter. The principal is resolved from the request context (Forge
// scope org as gateway, Forge user id as user).
func Require(eng *custodian.Engine, perm custodian.PermissionType) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			p := resolvePrincipal(ctx)
			entityID := ctx.Param("id")

			allowed, err := eng.UserHasAccess(ctx.Context(), p.GatewayID, p.UserID, entityID, perm)
			if err != nil || !allowed {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if the principal holds ANY of the permissions
// on the entity.
func RequireAny(eng *custodian.Engine, perms ...custodian.PermissionType) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			p := resolvePrincipal(ctx)
			entityID := ctx.Param("id")

			for _, perm := range perms {
				allowed, err := eng.UserHasAccess(ctx.Context(), p.GatewayID, p.UserID, entityID, perm)
				if err == nil && allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if the principal holds ALL of the
// permissions on the entity.
func RequireAll(eng *custodian.Engine, perms ...custodian.PermissionType) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			p := resolvePrincipal(ctx)
			entityID := ctx.Param("id")

			for _, perm := range perms {
				allowed, err := eng.UserHasAccess(ctx.Context(), p.GatewayID, p.UserID, entityID, perm)
				if err != nil || !allowed {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// resolvePrincipal extracts the gateway and user from context.
// Priority: Forge scope org → anonymous.
func resolvePrincipal(ctx forge.Context) custodian.Principal {
	p := custodian.Principal{
		UserID: forge.UserIDFromContext(ctx.Context()),
	}
	if s, ok := forge.ScopeFrom(ctx.Context()); ok {
		p.GatewayID = s.OrgID()
	}
	return p
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
