package authhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"labourtrack/internal/domain/audit"
	"labourtrack/internal/domain/auth"
	"labourtrack/internal/domain/users"
	"labourtrack/internal/transport/http/api"
	"labourtrack/internal/transport/http/middleware"
)

type Handler struct {
	Users    *users.Store
	Audit    *audit.Service
	Secret   string
	TokenTTL time.Duration
}

func NewHandler(userStore *users.Store, auditSvc *audit.Service, secret string, tokenTTL time.Duration) *Handler {
	return &Handler{Users: userStore, Audit: auditSvc, Secret: secret, TokenTTL: tokenTTL}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(10, time.Minute, middleware.WithKeyFunc(middleware.AuthUsernameOrIPKey("username")))).
			Post("/login", h.handleLogin)
		r.Post("/change-password", h.handleChangePassword)
		r.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || payload.Password == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "username and password are required", reqID)
		return
	}

	user, hash, err := h.Users.FindByUsername(r.Context(), payload.Username)
	if err != nil || user == nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err := auth.CheckPassword(hash, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		CompanyName: user.CompanyName,
	}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", reqID)
		return
	}

	api.Success(w, map[string]any{
		"token":               token,
		"forcePasswordChange": user.ForcePasswordChange,
		"user": map[string]string{
			"id":          user.ID,
			"username":    user.Username,
			"role":        user.Role,
			"companyName": user.CompanyName,
		},
	}, reqID)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if len(payload.NewPassword) < 8 {
		api.Fail(w, http.StatusBadRequest, "weak_password", "new password must be at least 8 characters", reqID)
		return
	}

	_, hash, err := h.Users.FindByUsername(r.Context(), actor.Username)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "lookup_error", "failed to load account", reqID)
		return
	}
	if err := auth.CheckPassword(hash, payload.CurrentPassword); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect", reqID)
		return
	}

	if err := h.Users.UpdatePassword(r.Context(), actor.UserID, payload.NewPassword); err != nil {
		api.Fail(w, http.StatusInternalServerError, "update_error", "failed to update password", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), actor.UserID, "password.change", "user", actor.UserID, "", nil, nil); err != nil {
		slog.Warn("audit password change failed", "userId", actor.UserID, "err", err)
	}

	api.Success(w, map[string]string{"status": "password_changed"}, reqID)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	user, err := h.Users.FindByID(r.Context(), actor.UserID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "account not found", reqID)
		return
	}
	api.Success(w, user, reqID)
}
