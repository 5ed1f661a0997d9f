package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harborline/harborline/internal/authz"
	"github.com/harborline/harborline/internal/gate"
	"github.com/harborline/harborline/internal/platform/httpx"
	"github.com/harborline/harborline/internal/shared"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	signer    *gate.CookieSigner
	validator *validator.Validate
}

// NewHandler constructs the auth handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, signer *gate.CookieSigner) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		signer:    signer,
		validator: validator.New(),
	}
}

// MountRoutes registers authentication routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Post("/password", h.changePassword)
}

// MountPasswordRoutes registers the password rotation endpoint under the
// admin prefix, where the route guard steers staff with a pending rotation.
func (h *Handler) MountPasswordRoutes(r chi.Router) {
	r.Get("/", h.passwordPending)
	r.Post("/", h.changePassword)
}

func (h *Handler) passwordPending(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"must_change_password": true})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("login without session middleware")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetPrincipal(account.ID.String())

	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID, clientIP(r), r.UserAgent()); err != nil {
		h.logger.Error("register session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	h.logger.Info("login",
		slog.String("principal_id", account.ID.String()),
		slog.Bool("must_change_password", account.MustChangePassword))
	httpx.JSON(w, http.StatusOK, LoginResponse{
		PrincipalID:        account.ID.String(),
		MustChangePassword: account.MustChangePassword,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.ForgetSession(r.Context(), sess.ID); err != nil {
			h.logger.Error("forget session", slog.Any("error", err))
		}
		h.sessions.Destroy(sess)
	}
	// Authorization-state cookies are bound to the dying session and would
	// fail verification anyway; clearing them keeps the client tidy.
	http.SetCookie(w, h.signer.Clear(gate.StaffVerifiedCookie))
	http.SetCookie(w, h.signer.Clear(gate.MustChangePasswordCookie))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principalID, ok := authz.PrincipalFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), principalID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "current password is incorrect")
			return
		}
		h.logger.Error("change password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	// The rotation flag is cleared in the database; drop the cookie copy so
	// the guard stops redirecting immediately.
	http.SetCookie(w, h.signer.Clear(gate.MustChangePasswordCookie))
	h.logger.Info("password changed", slog.String("principal_id", principalID.String()))
	w.WriteHeader(http.StatusNoContent)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
