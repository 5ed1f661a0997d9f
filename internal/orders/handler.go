package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

// Handler wires HTTP endpoints for orders. Storefront routes serve the
// calling customer; admin routes are mounted behind the route guard.
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

// MountStorefrontRoutes registers customer-facing order routes.
func (h *Handler) MountStorefrontRoutes(r chi.Router) {
	r.Post("/", h.createDraft)
	r.Get("/", h.listMine)
	r.Get("/{orderID}", h.show)
}

// MountAdminRoutes registers staff-facing order routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.ResourceOrder, authz.ActionRead))
		r.Get("/", h.adminList)
		r.Get("/{orderID}", h.adminShow)
	})
	// The transition route carries no permission middleware: the service's
	// own RequirePermission call is the gate, so the check provably runs
	// before any order state is read.
	r.Post("/{orderID}/transition", h.transition)
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	principalID, ok := authz.PrincipalFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.service.CreateDraft(r.Context(), principalID, req)
	if err != nil {
		h.logger.Error("create draft order", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, NewOrderResponse(*order))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	principalID, ok := authz.PrincipalFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	limit, offset := pageParams(r)
	list, err := h.service.ListMine(r.Context(), principalID, limit, offset)
	if err != nil {
		h.logger.Error("list customer orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": newOrderResponses(list)})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	principalID, ok := authz.PrincipalFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.NotFound(w)
		return
	}
	order, err := h.service.GetForPrincipal(r.Context(), principalID, orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || IsNotVisible(err) {
			httpx.NotFound(w)
			return
		}
		h.logger.Error("get order", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, NewOrderResponse(*order))
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(r.URL.Query().Get("store_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "store_id is required")
		return
	}
	filters := ListFilters{StoreID: storeID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status")
			return
		}
		filters.Status = &status
	}
	filters.Limit, filters.Offset = pageParams(r)

	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("admin list orders", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders": newOrderResponses(list),
		"total":  total,
	})
}

func (h *Handler) adminShow(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.NotFound(w)
		return
	}
	order, err := h.service.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		h.logger.Error("admin get order", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, NewOrderResponse(*order))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	principalID, ok := authz.PrincipalFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.NotFound(w)
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Transition(r.Context(), principalID, orderID, Status(req.Status), req.Reason)
	if err != nil {
		var invalid *InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			// Business-rule violation: name both states so the caller can
			// correct the request.
			httpx.Problem(w, http.StatusConflict, "Invalid Transition", invalid.Error())
		case errors.Is(err, authz.ErrForbidden), errors.Is(err, authz.ErrIdentityUnavailable):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		case errors.Is(err, shared.ErrNotFound):
			httpx.NotFound(w)
		default:
			h.logger.Error("transition order", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, NewOrderResponse(*order))
}

func pageParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
