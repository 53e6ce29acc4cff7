package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/internal/http/middleware"
	"github.com/Fieldops/fieldops/pkg/logger"
)

// WriteJSONError writes {"error": message} with the given status code
func WriteJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v, answering 400 itself on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// organizationID returns the caller's organization set by the auth middleware
func organizationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	org, ok := middleware.OrganizationIDFromContext(r.Context())
	if !ok {
		WriteJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return org, true
}

var aiErrorStatus = map[domain.AIErrorKind]int{
	domain.AIErrorNotConfigured:     http.StatusServiceUnavailable,
	domain.AIErrorUnauthorized:      http.StatusBadGateway,
	domain.AIErrorMalformedResponse: http.StatusBadGateway,
	domain.AIErrorUnparseableOutput: http.StatusUnprocessableEntity,
	domain.AIErrorUpstream:          http.StatusBadGateway,
}

// writeServiceError maps domain errors to status codes. Anything unrecognised is
// logged and answered with fallback and a 500.
func writeServiceError(w http.ResponseWriter, log logger.Logger, err error, fallback string) {
	var (
		validationErr domain.ValidationError
		ruleErr       *domain.RuleValidationError
		notFound      *domain.ErrNotFound
		rateLimited   *domain.RateLimitError
		aiErr         *domain.AIGenerationError
	)

	switch {
	case errors.As(err, &ruleErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  ruleErr.Error(),
			"issues": ruleErr.Result.Issues,
		})
	case errors.As(err, &validationErr):
		WriteJSONError(w, validationErr.Message, http.StatusBadRequest)
	case errors.As(err, &notFound):
		WriteJSONError(w, notFound.Error(), http.StatusNotFound)
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(rateLimited.RetryAfter.Seconds()))))
		WriteJSONError(w, "Too many requests, please wait before trying again", http.StatusTooManyRequests)
	case errors.As(err, &aiErr):
		status, ok := aiErrorStatus[aiErr.Kind]
		if !ok {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{
			"error": aiErr.UserMessage(),
			"kind":  string(aiErr.Kind),
		})
	default:
		log.WithField("error", err.Error()).Error(fallback)
		WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}
