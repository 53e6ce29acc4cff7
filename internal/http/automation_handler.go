package http

import (
	"context"
	"net/http"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/http/middleware"
	"github.com/Fieldops/fieldops/pkg/logger"
)

// AutomationHandler serves the rule builder: catalog lookups, validation, preview
// and rule storage
type AutomationHandler struct {
	service      domain.AutomationService
	logger       logger.Logger
	getJWTSecret func() ([]byte, error)
}

// NewAutomationHandler creates a new automation handler
func NewAutomationHandler(service domain.AutomationService, getJWTSecret func() ([]byte, error), logger logger.Logger) *AutomationHandler {
	return &AutomationHandler{
		service:      service,
		logger:       logger,
		getJWTSecret: getJWTSecret,
	}
}

// RegisterRoutes registers the automation routes behind authentication
func (h *AutomationHandler) RegisterRoutes(mux *http.ServeMux) {
	requireAuth := middleware.NewAuthMiddleware(h.getJWTSecret).RequireAuth()

	// Catalog
	mux.Handle("/api/automations.catalog", requireAuth(http.HandlerFunc(h.handleCatalog)))
	mux.Handle("/api/automations.templates", requireAuth(http.HandlerFunc(h.handleTemplates)))
	mux.Handle("/api/automations.variables", requireAuth(http.HandlerFunc(h.handleVariables)))

	// Builder
	mux.Handle("/api/automations.fromTemplate", requireAuth(http.HandlerFunc(h.handleFromTemplate)))
	mux.Handle("/api/automations.validate", requireAuth(http.HandlerFunc(h.handleValidate)))
	mux.Handle("/api/automations.preview", requireAuth(http.HandlerFunc(h.handlePreview)))

	// Storage
	mux.Handle("/api/automations.create", requireAuth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("/api/automations.update", requireAuth(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("/api/automations.get", requireAuth(http.HandlerFunc(h.handleGet)))
	mux.Handle("/api/automations.list", requireAuth(http.HandlerFunc(h.handleList)))
	mux.Handle("/api/automations.delete", requireAuth(http.HandlerFunc(h.handleDelete)))
	mux.Handle("/api/automations.activate", requireAuth(http.HandlerFunc(h.handleActivate)))
	mux.Handle("/api/automations.pause", requireAuth(http.HandlerFunc(h.handlePause)))
}

func (h *AutomationHandler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	category := r.URL.Query().Get("category")
	if category == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"trigger_groups": domain.GroupTriggers(),
			"action_groups":  domain.GroupActions(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"triggers": domain.ListTriggers(category),
		"actions":  domain.ListActions(category),
	})
}

func (h *AutomationHandler) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	bt := domain.BusinessType(r.URL.Query().Get("business_type"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"business_types": domain.BusinessTypes(),
		"categories":     domain.TemplateCategories,
		"templates":      domain.GetTemplatesByCategory(bt),
	})
}

func (h *AutomationHandler) handleVariables(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": domain.VariableCategories(),
		"variables":  domain.FilterVariables(q.Get("query"), q.Get("category")),
	})
}

func (h *AutomationHandler) handleFromTemplate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.FromTemplateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, h.logger, err, "Failed to load template")
		return
	}

	tmpl, ok := domain.FindTemplate(req.BusinessType, req.TemplateID)
	if !ok {
		WriteJSONError(w, "Template not found", http.StatusNotFound)
		return
	}

	draft := domain.StartFromTemplate(tmpl)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"draft":      draft,
		"validation": draft.Validate(),
	})
}

func (h *AutomationHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var draft domain.AutomationDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	writeJSON(w, http.StatusOK, draft.Normalize().Validate())
}

func (h *AutomationHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req domain.PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Preview(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to render preview")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AutomationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.SaveAutomationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := h.service.Create(r.Context(), org, req.Draft)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save automation")
		return
	}
	writeJSON(w, http.StatusCreated, recordResponse(record))
}

func (h *AutomationHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.SaveAutomationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.ValidateForUpdate(); err != nil {
		writeServiceError(w, h.logger, err, "Failed to save automation")
		return
	}

	record, err := h.service.Update(r.Context(), org, req.ID, req.Draft)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save automation")
		return
	}
	writeJSON(w, http.StatusOK, recordResponse(record))
}

func (h *AutomationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.AutomationIDRequest
	if err := req.FromURLParams(r.URL.Query()); err != nil {
		writeServiceError(w, h.logger, err, "Failed to get automation")
		return
	}

	record, err := h.service.Get(r.Context(), org, req.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get automation")
		return
	}
	writeJSON(w, http.StatusOK, recordResponse(record))
}

func (h *AutomationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.ListAutomationsRequest
	if err := req.FromURLParams(r.URL.Query()); err != nil {
		writeServiceError(w, h.logger, err, "Failed to list automations")
		return
	}

	records, total, err := h.service.List(r.Context(), org, req.ToFilter())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list automations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"automations": records,
		"total":       total,
	})
}

func (h *AutomationHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.handleByID(w, r, h.service.Delete, "Failed to delete automation")
}

func (h *AutomationHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.handleByID(w, r, h.service.Activate, "Failed to activate automation")
}

func (h *AutomationHandler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.handleByID(w, r, h.service.Pause, "Failed to pause automation")
}

func (h *AutomationHandler) handleByID(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, organizationID, id string) error, failure string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.AutomationIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, h.logger, err, failure)
		return
	}

	if err := op(r.Context(), org, req.ID); err != nil {
		writeServiceError(w, h.logger, err, failure)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// recordResponse returns the stored row alongside the editable draft rebuilt from it
func recordResponse(record *domain.AutomationRecord) map[string]interface{} {
	return map[string]interface{}{
		"automation": record,
		"draft":      domain.DraftFromRecord(record),
	}
}
