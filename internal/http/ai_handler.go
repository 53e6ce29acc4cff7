package http

import (
	"net/http"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/http/middleware"
	"github.com/Fieldops/fieldops/pkg/logger"
)

// AIHandler exposes message drafting and rule generation
type AIHandler struct {
	service      domain.AIService
	logger       logger.Logger
	getJWTSecret func() ([]byte, error)
}

// NewAIHandler creates a new AI handler
func NewAIHandler(service domain.AIService, getJWTSecret func() ([]byte, error), logger logger.Logger) *AIHandler {
	return &AIHandler{
		service:      service,
		logger:       logger,
		getJWTSecret: getJWTSecret,
	}
}

// RegisterRoutes registers the AI generation routes behind authentication
func (h *AIHandler) RegisterRoutes(mux *http.ServeMux) {
	requireAuth := middleware.NewAuthMiddleware(h.getJWTSecret).RequireAuth()

	mux.Handle("/api/ai.generate", requireAuth(http.HandlerFunc(h.handleGenerate)))
	mux.Handle("/api/ai.generateAutomation", requireAuth(http.HandlerFunc(h.handleGenerateAutomation)))
}

func (h *AIHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.AIGenerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.GenerateText(r.Context(), org, req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to generate text")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AIHandler) handleGenerateAutomation(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	org, ok := organizationID(w, r)
	if !ok {
		return
	}

	var req domain.GenerateAutomationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeServiceError(w, h.logger, err, "Failed to generate automation")
		return
	}

	draft, err := h.service.GenerateAutomation(r.Context(), org, req.Prompt)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to generate automation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"draft":      draft,
		"validation": draft.Validate(),
	})
}
