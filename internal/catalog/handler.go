package catalog

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

// Handler wires HTTP endpoints for the catalog. Admin routes live behind the
// route guard; the storefront listing is public.
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

// MountStorefrontRoutes registers public product routes, scoped to a store.
func (h *Handler) MountStorefrontRoutes(r chi.Router) {
	r.Get("/", h.publicList)
	r.Get("/{productID}", h.publicShow)
}

// MountAdminRoutes registers staff-facing catalog routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.ResourceProduct, authz.ActionRead))
		r.Get("/", h.adminList)
		r.Get("/{productID}", h.adminShow)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.ResourceProduct, authz.ActionWrite))
		r.Post("/", h.create)
		r.Put("/{productID}", h.update)
		r.Delete("/{productID}", h.deactivate)
	})
}

func (h *Handler) publicList(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeFromQuery(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	list, err := h.service.List(r.Context(), storeID, true, limit, offset)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": newProductResponses(list)})
}

func (h *Handler) publicShow(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeFromQuery(w, r)
	if !ok {
		return
	}
	product, ok := h.fetch(w, r, storeID)
	if !ok {
		return
	}
	if !product.IsActive {
		httpx.NotFound(w)
		return
	}
	httpx.JSON(w, http.StatusOK, NewProductResponse(*product))
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeFromQuery(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	list, err := h.service.List(r.Context(), storeID, false, limit, offset)
	if err != nil {
		h.logger.Error("admin list products", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": newProductResponses(list)})
}

func (h *Handler) adminShow(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeFromQuery(w, r)
	if !ok {
		return
	}
	product, ok := h.fetch(w, r, storeID)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, NewProductResponse(*product))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeFromQuery(w, r)
	if !ok {
		return
	}
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.Create(r.Context(), storeID, req)
	if err != nil {
		if errors.Is(err, ErrDuplicateSKU) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "sku already exists in store")
			return
		}
		h.logger.Error("create product", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, NewProductResponse(*product))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeFromQuery(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.NotFound(w)
		return
	}
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.Update(r.Context(), storeID, productID, req)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			httpx.NotFound(w)
		case errors.Is(err, ErrDuplicateSKU):
			httpx.Problem(w, http.StatusConflict, "Conflict", "sku already exists in store")
		default:
			h.logger.Error("update product", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, NewProductResponse(*product))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	storeID, ok := storeFromQuery(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.NotFound(w)
		return
	}
	if err := h.service.Deactivate(r.Context(), storeID, productID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.NotFound(w)
			return
		}
		h.logger.Error("deactivate product", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fetch(w http.ResponseWriter, r *http.Request, storeID uuid.UUID) (*Product, bool) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.NotFound(w)
		return nil, false
	}
	product, err := h.service.Get(r.Context(), storeID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.NotFound(w)
			return nil, false
		}
		h.logger.Error("get product", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return nil, false
	}
	return product, true
}

func storeFromQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	storeID, err := uuid.Parse(r.URL.Query().Get("store_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "store_id is required")
		return uuid.Nil, false
	}
	return storeID, true
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
