package middleware

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/sharebridge/sharebridge-backend/api/responses"
	"github.com/sharebridge/sharebridge-backend/pkg/enums"
	pkgerrors "github.com/sharebridge/sharebridge-backend/pkg/errors"
	"github.com/sharebridge/sharebridge-backend/pkg/logger"
)

// RequireRole rejects requests whose token role is not one of roles.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lo.Contains(roles, RoleFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").
					WithDetails(map[string]any{"allowed_roles": roles}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
