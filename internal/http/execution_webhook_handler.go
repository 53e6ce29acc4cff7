package http

import (
	"encoding/json"
	"io"
	"net/http"

	svix "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/pkg/logger"
)

const maxWebhookBody = 64 * 1024

// ExecutionWebhookHandler receives run reports from the execution engine. Requests
// are signed with the Standard Webhooks scheme instead of carrying a user token.
type ExecutionWebhookHandler struct {
	service  domain.ExecutionService
	verifier *svix.Webhook
	logger   logger.Logger
}

// NewExecutionWebhookHandler creates a handler verifying reports signed with secret
func NewExecutionWebhookHandler(service domain.ExecutionService, secret string, logger logger.Logger) (*ExecutionWebhookHandler, error) {
	verifier, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &ExecutionWebhookHandler{
		service:  service,
		verifier: verifier,
		logger:   logger,
	}, nil
}

// RegisterRoutes registers the execution report webhook
func (h *ExecutionWebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/webhooks/automation-executions", h.handleExecution)
}

func (h *ExecutionWebhookHandler) handleExecution(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil || len(payload) > maxWebhookBody {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.verifier.Verify(payload, r.Header); err != nil {
		h.logger.WithField("webhook_id", r.Header.Get("webhook-id")).Warn("rejected execution webhook with a bad signature")
		WriteJSONError(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var report domain.ExecutionReport
	if err := json.Unmarshal(payload, &report); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.RecordExecution(r.Context(), report); err != nil {
		writeServiceError(w, h.logger, err, "Failed to record execution")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
