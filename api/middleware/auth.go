package middleware

import (
	"net/http"
	"strings"

	"github.com/snapwall/snapwall-backend/api/responses"
	pkgAuth "github.com/snapwall/snapwall-backend/pkg/auth"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

// OptionalAuth attaches the bearer identity when one is presented. Anonymous requests pass through;
// a presented but invalid token is rejected.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, false)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, logg, true)
}

func authenticate(cfg config.JWTConfig, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				if required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Role == enums.IdentityRoleEventViewer {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "view passes are not bearer credentials"))
				return
			}
			ident := pkgAuth.IdentityFromClaims(claims)
			if ident == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject"))
				return
			}

			ctx := WithIdentity(r.Context(), ident)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    ident.ID,
					"actor_role": string(ident.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
