package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborline/harborline/internal/platform/httpx"
)

// PermissionsHandler serves the read-only capability legend for admin
// screens.
type PermissionsHandler struct {
	logger *slog.Logger
	authz  Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, authz Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, authz: authz}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(ResourcePermission, ActionRead))
		r.Get("/", h.listCatalogue)
	})
}

func (h *PermissionsHandler) listCatalogue(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": Catalogue(),
	})
}
