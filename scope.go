package custodian

import (
	"context"

	"github.com/xraph/forge"
)

// scopeFromContext extracts the calling principal from forge.Scope or
// standalone context values. Falls back to explicit context keys if
// Forge scope is not set (standalone mode).
func scopeFromContext(ctx context.Context) Principal {
	s, ok := forge.ScopeFrom(ctx)
	if ok {
		return Principal{
			GatewayID: s.OrgID(),
			UserID:    userIDFromContext(ctx),
		}
	}
	return Principal{
		GatewayID: gatewayIDFromContext(ctx),
		UserID:    userIDFromContext(ctx),
	}
}
