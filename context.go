package custodian

import "context"

type contextKey int

const (
	ctxKeyGatewayID contextKey = iota
	ctxKeyUserID
)

// WithPrincipal returns a context carrying the authenticated principal.
// Use this for standalone mode (without Forge).
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, ctxKeyGatewayID, p.GatewayID)
	ctx = context.WithValue(ctx, ctxKeyUserID, p.UserID)
	return ctx
}

// WithGateway returns a context carrying only the gateway id.
func WithGateway(ctx context.Context, gatewayID string) context.Context {
	return context.WithValue(ctx, ctxKeyGatewayID, gatewayID)
}

func gatewayIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyGatewayID).(string)
	if !ok {
		return ""
	}
	return v
}

func userIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeyUserID).(string)
	if !ok {
		return ""
	}
	return v
}
