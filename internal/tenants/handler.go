package tenants

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/routes"
)

// Handler provides HTTP endpoints for tenant schemas.
type Handler struct {
	provider *Provider
	logger   *slog.Logger
}

// NewHandler creates a Handler over provider.
func NewHandler(provider *Provider, logger *slog.Logger) *Handler {
	return &Handler{
		provider: provider,
		logger:   logger.With("handler", "tenants"),
	}
}

// Routes returns the route group definition for tenant endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/tenants",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}/schema", Handler: h.Schema},
			{Method: "POST", Pattern: "/cache/invalidate", Handler: h.Invalidate},
		},
	}
}

// Schema returns the effective schema for a tenant.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	s, err := h.provider.Schema(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s)
}

// InvalidateRequest names the tenant to evict. An empty TenantID evicts all.
type InvalidateRequest struct {
	TenantID string `json:"tenant_id"`
}

// Invalidate evicts cached schemas. The body is optional.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if req.TenantID == "" {
		h.provider.Invalidate()
	} else {
		h.provider.Invalidate(req.TenantID)
	}

	w.WriteHeader(http.StatusNoContent)
}
