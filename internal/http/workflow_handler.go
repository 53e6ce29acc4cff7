package http

import (
	"net/http"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/http/middleware"
	"github.com/Fieldops/fieldops/pkg/logger"
)

type WorkflowHandler struct {
	service      domain.WorkflowService
	logger       logger.Logger
	getJWTSecret func() ([]byte, error)
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(service domain.WorkflowService, getJWTSecret func() ([]byte, error), logger logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service:      service,
		logger:       logger,
		getJWTSecret: getJWTSecret,
	}
}

// RegisterRoutes registers the workflow routes behind authentication
func (h *WorkflowHandler) RegisterRoutes(mux *http.ServeMux) {
	requireAuth := middleware.NewAuthMiddleware(h.getJWTSecret).RequireAuth()

	mux.Handle("/api/workflows.create", requireAuth(http.HandlerFunc(h.handleCreate)))
	mux.Handle("/api/workflows.update", requireAuth(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("/api/workflows.get", requireAuth(http.HandlerFunc(h.handleGet)))
	mux.Handle("/api/workflows.list", requireAuth(http.HandlerFunc(h.handleList)))
	mux.Handle("/api/workflows.delete", requireAuth(http.HandlerFunc(h.handleDelete)))
}

func (h *WorkflowHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, false)
}

func (h *WorkflowHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, true)
}

func (h *WorkflowHandler) save(w http.ResponseWriter, r *http.Request, update bool) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.SaveWorkflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, h.logger, err, "Failed to save workflow")
		return
	}
	if update && req.Workflow.ID == "" {
		WriteJSONError(w, "workflow id is required", http.StatusBadRequest)
		return
	}
	if !update {
		req.Workflow.ID = ""
	}

	saved, err := h.service.Save(r.Context(), org, req.Workflow)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save workflow")
		return
	}

	status := http.StatusOK
	if !update {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"workflow": saved})
}

func (h *WorkflowHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		WriteJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	workflow, err := h.service.Get(r.Context(), org, id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get workflow")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workflow": workflow})
}

func (h *WorkflowHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	workflows, err := h.service.List(r.Context(), org)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list workflows")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workflows": workflows})
}

func (h *WorkflowHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		WriteJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), org, req.ID); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete workflow")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
