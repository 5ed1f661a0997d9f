package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/harborline/harborline/internal/auth"
	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/catalog"
	"github.com/harborline/harborline/internal/gate"
	"github.com/harborline/harborline/internal/identity"
	"github.com/harborline/harborline/internal/observability"
	"github.com/harborline/harborline/internal/orders"
	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
	"github.com/harborline/harborline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	OrdersHandler      *orders.Handler
	CatalogHandler     *catalog.Handler
	IdentityHandler    *identity.Handler
	PermissionsHandler *authz.PermissionsHandler

	Guard      *gate.Guard
	Reconciler *gate.Reconciler

	JobsHandler *jobs.Handler
	Metrics     *observability.Metrics
}

// NewRouter constructs the chi.Router with Harborline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	// Every unmatched route answers with the same body the admin guard uses
	// for masking, so a masked route and a missing route are identical.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.NotFound(w)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Storefront surface.
	r.Route("/products", params.CatalogHandler.MountStorefrontRoutes)
	r.Route("/orders", params.OrdersHandler.MountStorefrontRoutes)

	// Admin surface. Everything under the prefix sits behind the route guard;
	// callers the guard cannot verify see only the uniform not-found mask.
	r.Route(params.Config.AdminPathPrefix, func(r chi.Router) {
		r.Use(params.Guard.Middleware)

		// Verification hits the identity store, so it gets a tighter limit
		// than the global one.
		r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
			Get("/verify", params.Reconciler.Handle)
		r.Route("/password", params.AuthHandler.MountPasswordRoutes)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/orders", params.OrdersHandler.MountAdminRoutes)
		r.Route("/products", params.CatalogHandler.MountAdminRoutes)
		r.Route("/principals", params.IdentityHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)

		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
		if params.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}
	})

	return r
}
