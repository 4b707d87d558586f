package documents

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/middleware"
	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/routes"
)

// Handler provides HTTP endpoints for reading documents.
// Every request is scoped to the caller's tenant.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	defaultTenant string
}

// NewHandler creates a Handler. Callers without a tenant resolve to defaultTenant.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	defaultTenant string,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		pagination:    pagination,
		defaultTenant: defaultTenant,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns a page of the caller tenant's documents.
// Supports status, filename, and requester_id filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page := pagination.PageRequestFromQuery(values, h.pagination)
	filters, err := FiltersFromQuery(values)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	tenant := h.tenant(r)
	filters.TenantID = &tenant

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single document by its UUID path parameter.
// Documents owned by another tenant are reported as not found.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	doc, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if doc.TenantID != h.tenant(r) {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNotFound)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

func (h *Handler) tenant(r *http.Request) string {
	if id, ok := middleware.IdentityFrom(r.Context()); ok && id.TenantID != "" {
		return id.TenantID
	}
	return h.defaultTenant
}
