package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/identity"
	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

// PrincipalStore exposes the account flags the reconciler needs.
type PrincipalStore interface {
	GetPrincipal(ctx context.Context, id uuid.UUID) (*identity.Principal, error)
}

// Reconciler performs the authoritative staff check the guard's fast cookie
// path cannot. The guard redirects here on a verification cache miss; the
// outcome is either the masking not-found or freshly signed state cookies
// plus a redirect back to where the caller was headed.
type Reconciler struct {
	logger       *slog.Logger
	engine       *authz.Engine
	principals   PrincipalStore
	signer       *CookieSigner
	adminHome    string
	passwordPath string
}

// NewReconciler constructs a Reconciler.
func NewReconciler(logger *slog.Logger, engine *authz.Engine, principals PrincipalStore, signer *CookieSigner, adminHome, passwordPath string) *Reconciler {
	return &Reconciler{
		logger:       logger,
		engine:       engine,
		principals:   principals,
		signer:       signer,
		adminHome:    adminHome,
		passwordPath: passwordPath,
	}
}

// Handle serves the verification endpoint. Unauthenticated callers and
// genuine non-staff customers receive the identical not-found mask: staff
// routes are invisible to everyone except verified staff.
func (h *Reconciler) Handle(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	principalID, ok := authz.PrincipalFromRequest(r)
	if !ok {
		h.log(r, uuid.Nil, "unauthenticated")
		httpx.NotFound(w)
		return
	}

	staff, err := h.engine.IsStaff(r.Context(), principalID)
	if err != nil {
		// Resolver outage. Deny exactly like a non-staff caller, but record
		// the real cause so operators can separate degradation from probing.
		if h.logger != nil {
			h.logger.Error("staff verification unavailable",
				slog.String("principal", principalID.String()),
				slog.Any("error", err))
		}
		httpx.NotFound(w)
		return
	}
	if !staff {
		h.log(r, principalID, "not_staff")
		httpx.NotFound(w)
		return
	}

	// Session-scoped verification flag: expires with the browser session so a
	// revoked role cannot stay trusted client side beyond the session itself.
	http.SetCookie(w, h.signer.Issue(StaffVerifiedCookie, sess.ID, 0))

	principal, err := h.principals.GetPrincipal(r.Context(), principalID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		if h.logger != nil {
			h.logger.Error("load principal flags", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if principal != nil && principal.MustChangePassword {
		http.SetCookie(w, h.signer.Issue(MustChangePasswordCookie, sess.ID, MustChangePasswordTTL))
		http.Redirect(w, r, h.passwordPath, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.sanitizeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
}

// sanitizeNext accepts only same-origin relative paths, falling back to the
// admin home. Anything that could steer the browser to another origin
// (absolute URLs, scheme-relative //host, backslash tricks) is rejected.
func (h *Reconciler) sanitizeNext(raw string) string {
	if raw == "" {
		return h.adminHome
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return h.adminHome
	}
	if strings.ContainsAny(raw, "\\") || strings.Contains(raw, "://") {
		return h.adminHome
	}
	return raw
}

func (h *Reconciler) log(r *http.Request, principalID uuid.UUID, reason string) {
	if h.logger == nil {
		return
	}
	h.logger.Info("staff verification denied",
		slog.String("principal", principalID.String()),
		slog.String("remote", r.RemoteAddr),
		slog.String("reason", reason),
	)
}
