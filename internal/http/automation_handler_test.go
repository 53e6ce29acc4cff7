package http

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/domain/mocks"
)

func setupAutomationTest(t *testing.T) (*mocks.MockAutomationService, *http.ServeMux, string) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	automationSvc := mocks.NewMockAutomationService(ctrl)
	handler := NewAutomationHandler(automationSvc, getTestSecret, newQuietLogger(ctrl))

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return automationSvc, mux, createTestToken(t, "org-1")
}

func testDraft() domain.AutomationDraft {
	return domain.StartBlank().Apply(
		domain.SetName{Name: "Thank you"},
		domain.SetTrigger{Type: domain.TriggerJobCompleted},
		domain.SetAction{Type: domain.ActionSendSMS},
		domain.SetActionConfig{Key: "message", Value: "Thanks {{client_first_name}}"},
	)
}

func testRecord() *domain.AutomationRecord {
	record := testDraft().ToPersistableRecord()
	record.ID = "rule-1"
	record.OrganizationID = "org-1"
	record.CreatedAt = time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	record.UpdatedAt = record.CreatedAt
	return &record
}

func TestAutomationHandler_RequiresAuth(t *testing.T) {
	_, mux, _ := setupAutomationTest(t)

	for _, path := range []string{"/api/automations.catalog", "/api/automations.list", "/api/automations.create"} {
		w := doRequest(t, mux, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAutomationHandler_Catalog(t *testing.T) {
	_, mux, token := setupAutomationTest(t)

	w := doRequest(t, mux, http.MethodGet, "/api/automations.catalog", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["trigger_groups"], 5)
	assert.Len(t, body["action_groups"], 4)

	w = doRequest(t, mux, http.MethodGet, "/api/automations.catalog?category=invoices", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Len(t, body["triggers"], 4)
	assert.Empty(t, body["actions"])

	w = doRequest(t, mux, http.MethodPost, "/api/automations.catalog", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAutomationHandler_TemplatesAndVariables(t *testing.T) {
	_, mux, token := setupAutomationTest(t)

	w := doRequest(t, mux, http.MethodGet, "/api/automations.templates?business_type=hvac", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["templates"])
	assert.Len(t, body["business_types"], len(domain.BusinessTypes()))

	w = doRequest(t, mux, http.MethodGet, "/api/automations.variables?category=invoice&query=invoice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	variables := body["variables"].([]interface{})
	require.Len(t, variables, 3)
	assert.Equal(t, "invoice_number", variables[0].(map[string]interface{})["key"])
	assert.Equal(t, "balance_due", variables[1].(map[string]interface{})["key"])
	assert.Equal(t, "due_date", variables[2].(map[string]interface{})["key"])
}

func TestAutomationHandler_FromTemplate(t *testing.T) {
	_, mux, token := setupAutomationTest(t)

	w := doRequest(t, mux, http.MethodPost, "/api/automations.fromTemplate", token, domain.FromTemplateRequest{
		TemplateID: "job_completed_thank_you",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	draft := body["draft"].(map[string]interface{})
	rule := draft["rule"].(map[string]interface{})
	assert.Equal(t, "draft", rule["status"])
	assert.Equal(t, true, body["validation"].(map[string]interface{})["valid"])

	w = doRequest(t, mux, http.MethodPost, "/api/automations.fromTemplate", token, domain.FromTemplateRequest{TemplateID: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, mux, http.MethodPost, "/api/automations.fromTemplate", token, domain.FromTemplateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutomationHandler_Validate(t *testing.T) {
	_, mux, token := setupAutomationTest(t)

	w := doRequest(t, mux, http.MethodPost, "/api/automations.validate", token, testDraft())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["valid"])

	blank := domain.StartBlank()
	w = doRequest(t, mux, http.MethodPost, "/api/automations.validate", token, blank)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["valid"])
	assert.NotEmpty(t, body["issues"])

	w = doRequest(t, mux, http.MethodPost, "/api/automations.validate", token, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutomationHandler_Preview(t *testing.T) {
	automationSvc, mux, token := setupAutomationTest(t)

	automationSvc.EXPECT().Preview(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req domain.PreviewRequest) (*domain.PreviewResult, error) {
			assert.Equal(t, "Hi {{client_name}}", req.Body)
			return &domain.PreviewResult{Body: "Hi Jane", PlainText: "Hi Jane", CharacterCount: 7, SMSSegments: 1, UnknownPlaceholders: []string{}}, nil
		})

	w := doRequest(t, mux, http.MethodPost, "/api/automations.preview", token, domain.PreviewRequest{Body: "Hi {{client_name}}"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hi Jane", decodeBody(t, w)["body"])

	automationSvc.EXPECT().Preview(gomock.Any(), gomock.Any()).Return(nil, domain.NewValidationError("body is required"))
	w = doRequest(t, mux, http.MethodPost, "/api/automations.preview", token, domain.PreviewRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "body is required", decodeBody(t, w)["error"])
}

func TestAutomationHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		automationSvc, mux, token := setupAutomationTest(t)

		automationSvc.EXPECT().Create(gomock.Any(), "org-1", gomock.Any()).Return(testRecord(), nil)

		w := doRequest(t, mux, http.MethodPost, "/api/automations.create", token, domain.SaveAutomationRequest{Draft: testDraft()})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "rule-1", body["automation"].(map[string]interface{})["id"])
		assert.NotNil(t, body["draft"])
	})

	t.Run("invalid rule lists issues", func(t *testing.T) {
		automationSvc, mux, token := setupAutomationTest(t)

		result := domain.StartBlank().Validate()
		automationSvc.EXPECT().Create(gomock.Any(), "org-1", gomock.Any()).Return(nil, &domain.RuleValidationError{Result: result})

		w := doRequest(t, mux, http.MethodPost, "/api/automations.create", token, domain.SaveAutomationRequest{})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotEmpty(t, decodeBody(t, w)["issues"])
	})

	t.Run("storage failure is generic", func(t *testing.T) {
		automationSvc, mux, token := setupAutomationTest(t)

		automationSvc.EXPECT().Create(gomock.Any(), "org-1", gomock.Any()).Return(nil, errors.New("pq: connection refused"))

		w := doRequest(t, mux, http.MethodPost, "/api/automations.create", token, domain.SaveAutomationRequest{Draft: testDraft()})
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to save automation", decodeBody(t, w)["error"])
	})
}

func TestAutomationHandler_Update(t *testing.T) {
	automationSvc, mux, token := setupAutomationTest(t)

	w := doRequest(t, mux, http.MethodPost, "/api/automations.update", token, domain.SaveAutomationRequest{Draft: testDraft()})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	automationSvc.EXPECT().Update(gomock.Any(), "org-1", "rule-1", gomock.Any()).Return(testRecord(), nil)
	w = doRequest(t, mux, http.MethodPost, "/api/automations.update", token, domain.SaveAutomationRequest{ID: "rule-1", Draft: testDraft()})
	assert.Equal(t, http.StatusOK, w.Code)

	automationSvc.EXPECT().Update(gomock.Any(), "org-1", "gone", gomock.Any()).
		Return(nil, &domain.ErrNotFound{Entity: "automation", ID: "gone"})
	w = doRequest(t, mux, http.MethodPost, "/api/automations.update", token, domain.SaveAutomationRequest{ID: "gone", Draft: testDraft()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAutomationHandler_GetList(t *testing.T) {
	automationSvc, mux, token := setupAutomationTest(t)

	automationSvc.EXPECT().Get(gomock.Any(), "org-1", "rule-1").Return(testRecord(), nil)
	w := doRequest(t, mux, http.MethodGet, "/api/automations.get?id=rule-1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	draft := decodeBody(t, w)["draft"].(map[string]interface{})
	assert.Equal(t, "Thank you", draft["rule"].(map[string]interface{})["name"])

	w = doRequest(t, mux, http.MethodGet, "/api/automations.get", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	automationSvc.EXPECT().List(gomock.Any(), "org-1", domain.AutomationFilter{
		Status: []domain.AutomationStatus{domain.AutomationStatusActive},
		Limit:  10,
	}).Return([]*domain.AutomationRecord{testRecord()}, 1, nil)
	w = doRequest(t, mux, http.MethodGet, "/api/automations.list?status=active&limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["total"])

	w = doRequest(t, mux, http.MethodGet, "/api/automations.list?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutomationHandler_StatusAndDelete(t *testing.T) {
	automationSvc, mux, token := setupAutomationTest(t)

	automationSvc.EXPECT().Activate(gomock.Any(), "org-1", "rule-1").Return(nil)
	w := doRequest(t, mux, http.MethodPost, "/api/automations.activate", token, domain.AutomationIDRequest{ID: "rule-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	result := domain.ValidationResult{Valid: false, Issues: []domain.ValidationIssue{{
		Code: domain.CodeMissingStatusTarget, Message: "Choose the status", Severity: domain.SeverityError,
	}}}
	automationSvc.EXPECT().Activate(gomock.Any(), "org-1", "rule-2").Return(&domain.RuleValidationError{Result: result})
	w = doRequest(t, mux, http.MethodPost, "/api/automations.activate", token, domain.AutomationIDRequest{ID: "rule-2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	automationSvc.EXPECT().Pause(gomock.Any(), "org-1", "rule-1").Return(nil)
	w = doRequest(t, mux, http.MethodPost, "/api/automations.pause", token, domain.AutomationIDRequest{ID: "rule-1"})
	assert.Equal(t, http.StatusOK, w.Code)

	automationSvc.EXPECT().Delete(gomock.Any(), "org-1", "rule-1").Return(&domain.ErrNotFound{Entity: "automation", ID: "rule-1"})
	w = doRequest(t, mux, http.MethodPost, "/api/automations.delete", token, domain.AutomationIDRequest{ID: "rule-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, mux, http.MethodPost, "/api/automations.delete", token, domain.AutomationIDRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
