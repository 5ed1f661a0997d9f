package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

// Handler wires admin endpoints for principals and role assignments.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     authz,
		validator: validator.New(),
	}
}

// MountRoutes registers identity routes. Everything here sits behind the
// admin route guard; role management is additionally admin-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.ResourceRole, authz.ActionRead))
		r.Get("/{principalID}", h.show)
		r.Get("/{principalID}/roles", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAdmin())
		r.Post("/{principalID}/roles", h.grant)
		r.Delete("/{principalID}/roles/{role}", h.revoke)
	})
}

type grantRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	principalID, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid principal id", httpx.ErrValidation))
		return
	}
	principal, err := h.service.GetPrincipal(r.Context(), principalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		h.logger.Error("get principal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, principal)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	principalID, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid principal id", httpx.ErrValidation))
		return
	}
	assignments, err := h.service.ListAssignments(r.Context(), principalID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	principalID, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid principal id", httpx.ErrValidation))
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid request body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
		return
	}
	role, ok := authz.ParseRole(req.Role)
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: unknown role", httpx.ErrValidation))
		return
	}
	if err := h.service.Grant(r.Context(), principalID, role); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		h.logger.Error("grant role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"principal_id": principalID, "role": role})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	principalID, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid principal id", httpx.ErrValidation))
		return
	}
	role, ok := authz.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: unknown role", httpx.ErrValidation))
		return
	}
	if err := h.service.Revoke(r.Context(), principalID, role); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		h.logger.Error("revoke role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
