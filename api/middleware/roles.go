package middleware

import (
	"net/http"

	"github.com/snapwall/snapwall-backend/api/responses"
	"github.com/snapwall/snapwall-backend/pkg/enums"
	pkgerrors "github.com/snapwall/snapwall-backend/pkg/errors"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

// RequireRole admits callers holding any of roles. Anonymous callers get 401, other roles 403.
func RequireRole(logg *logger.Logger, roles ...enums.IdentityRole) func(http.Handler) http.Handler {
	allowed := make(map[enums.IdentityRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if ident == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if _, ok := allowed[ident.Role]; !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
					WithDetails(map[string]any{"role": string(ident.Role)}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
