package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/observability"
	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

// Middleware wires authorization checks into HTTP handler chains. It is only
// mounted behind the admin route guard, so denials here may surface as plain
// 403s: the route's existence is no longer a secret at this layer.
type Middleware struct {
	Engine  *Engine
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// PrincipalFromRequest extracts the authenticated principal ID from the
// request session. The boolean is false for anonymous requests and for
// sessions carrying a malformed principal ID.
func PrincipalFromRequest(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := sess.Principal()
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Require ensures the current principal holds (resource, action) before the
// wrapped handler runs.
func (m Middleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := PrincipalFromRequest(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if err := m.Engine.RequirePermission(r.Context(), principalID, resource, action); err != nil {
				// ErrIdentityUnavailable deliberately renders the same
				// forbidden response as a permission miss.
				m.Metrics.CountDenied(denialCause(err))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denialCause(err error) string {
	if errors.Is(err, ErrIdentityUnavailable) {
		return "identity_unavailable"
	}
	return "forbidden"
}

// RequireAdmin ensures the current principal holds the admin role.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := PrincipalFromRequest(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if err := m.Engine.RequireAdmin(r.Context(), principalID); err != nil {
				m.Metrics.CountDenied(denialCause(err))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
