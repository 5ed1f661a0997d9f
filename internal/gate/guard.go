package gate

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/harborline/harborline/internal/observability"
	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

// Guard is the edge interceptor for the admin path prefix. It decides from
// request cookies alone, before any handler or database access, whether a
// request passes, is redirected for verification, or is answered with the
// uniform not-found mask. Client-declared role claims are never consulted;
// only the HMAC-signed flags count.
type Guard struct {
	Signer       *CookieSigner
	VerifyPath   string
	PasswordPath string
	Logger       *slog.Logger
	Metrics      *observability.Metrics
}

// Middleware evaluates the guard's cookie state machine:
//
//	no session                      -> not-found mask
//	session, unverified             -> redirect to the reconciler
//	session, verified, must-rotate  -> only password-change and reconciler
//	session, verified               -> pass
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		hasSession := sess != nil && sess.Principal() != ""
		if !hasSession {
			// Indistinguishable from a route that does not exist. A 403 or a
			// login redirect would confirm there is something here to probe.
			g.log(r, "no_session")
			g.Metrics.CountMasked()
			httpx.NotFound(w)
			return
		}

		verified := g.Signer.Verify(r, StaffVerifiedCookie, sess.ID)
		if !verified {
			if g.isVerifyPath(r) {
				// The reconciler must stay reachable or verification would
				// redirect to itself forever.
				next.ServeHTTP(w, r)
				return
			}
			g.redirectToVerify(w, r)
			return
		}

		if g.Signer.Verify(r, MustChangePasswordCookie, sess.ID) {
			if g.isPasswordPath(r) || g.isVerifyPath(r) {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, g.PasswordPath, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Guard) redirectToVerify(w http.ResponseWriter, r *http.Request) {
	target := g.VerifyPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (g *Guard) isVerifyPath(r *http.Request) bool {
	return r.URL.Path == g.VerifyPath
}

func (g *Guard) isPasswordPath(r *http.Request) bool {
	return strings.TrimRight(r.URL.Path, "/") == strings.TrimRight(g.PasswordPath, "/")
}

func (g *Guard) log(r *http.Request, reason string) {
	if g.Logger == nil {
		return
	}
	g.Logger.Info("admin surface masked",
		slog.String("path", r.URL.Path),
		slog.String("remote", r.RemoteAddr),
		slog.String("reason", reason),
	)
}
