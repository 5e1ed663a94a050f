package audithandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"labourtrack/internal/domain/audit"
	"labourtrack/internal/domain/auth"
	"labourtrack/internal/transport/http/api"
	"labourtrack/internal/transport/http/middleware"
	"labourtrack/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/audit", h.handleList)
}

// The audit trail is master-only.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	actor, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	if actor.Role != auth.RoleMaster {
		api.Fail(w, http.StatusForbidden, "forbidden", "audit trail is restricted to master accounts", reqID)
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	entries, err := h.Service.List(r.Context(), audit.Filter{
		Action: strings.TrimSpace(r.URL.Query().Get("action")),
		Entity: strings.TrimSpace(r.URL.Query().Get("entity")),
		UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit entries", reqID)
		return
	}
	api.Success(w, map[string]any{"entries": entries, "count": len(entries)}, reqID)
}
