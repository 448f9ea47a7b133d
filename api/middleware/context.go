package middleware

import (
	"context"

	"github.com/snapwall/snapwall-backend/pkg/auth"
)

type contextKey string

const (
	ctxIdentity contextKey = "identity"
	ctxClientIP contextKey = "client_ip"
)

// IdentityFromContext returns the authenticated caller, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxIdentity).(*auth.Identity); ok {
		return v
	}
	return nil
}

func UserIDFromContext(ctx context.Context) string {
	if ident := IdentityFromContext(ctx); ident != nil {
		return ident.ID
	}
	return ""
}

// WithIdentity injects the caller into the context.
func WithIdentity(ctx context.Context, ident *auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, ident)
}

// ClientIPFromContext returns the address resolved by RealIP, falling back to "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}
