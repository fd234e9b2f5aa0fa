package adminhttp

import (
	"context"
	"net/http"
	"strings"

	"bistro-server/internal/domain"
	bmw "bistro-server/internal/pkg/middleware"
	berrors "bistro-server/pkg/errors"
)

type ctxKey string

const claimsKey ctxKey = "admin_claims"

// requireBearer validates the Authorization header's JWT and requires the
// MANAGER role (spec.md §4.9's manager-only reports are the only thing this
// gateway exposes beyond health/metrics).
func (gw *Gateway) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			bmw.RespondError(w, r, gw.logger, berrors.ErrUnauthorized)
			return
		}

		claims, err := gw.jwt.ValidateToken(parts[1])
		if err != nil {
			bmw.RespondError(w, r, gw.logger, berrors.ErrInvalidToken.Wrap(err))
			return
		}
		if domain.Role(claims.Role) != domain.RoleManager {
			bmw.RespondError(w, r, gw.logger, berrors.ErrForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
