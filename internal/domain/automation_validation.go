package domain

type ValidationCode string

const (
	CodeMissingName         ValidationCode = "missing_name"
	CodeMissingTrigger      ValidationCode = "missing_trigger"
	CodeUnknownTrigger      ValidationCode = "unknown_trigger"
	CodeMissingAction       ValidationCode = "missing_action"
	CodeUnknownAction       ValidationCode = "unknown_action"
	CodeMissingStatusTarget ValidationCode = "missing_status_target"
	CodeInvalidStatus       ValidationCode = "invalid_status"
	CodeInvalidTriggerCfg   ValidationCode = "invalid_trigger_config"
	CodeInvalidCondition    ValidationCode = "invalid_condition"
	CodeMissingActionField  ValidationCode = "missing_action_field"
	CodeInvalidWebhookURL   ValidationCode = "invalid_webhook_url"
	CodeInvalidDelay        ValidationCode = "invalid_delay"
	CodeEmptyMessage        ValidationCode = "empty_message"
	CodeEmptySubject        ValidationCode = "empty_subject"
	CodeUnknownPlaceholder  ValidationCode = "unknown_placeholder"

	CodeInvalidWeekday       ValidationCode = "invalid_weekday"
	CodeInvalidTimeRange     ValidationCode = "invalid_time_range"
	CodeInvalidChannel       ValidationCode = "invalid_channel"
	CodeFallbackSameChannel  ValidationCode = "fallback_same_channel"
	CodeFallbackDelayInRange ValidationCode = "fallback_delay_out_of_range"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type ValidationIssue struct {
	Code     ValidationCode `json:"code"`
	Field    string         `json:"field,omitempty"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
}

// ValidationResult is advisory: warnings never make a rule invalid
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// Has reports whether an issue with code was raised
func (r ValidationResult) Has(code ValidationCode) bool {
	for _, issue := range r.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// Errors returns the issues with error severity
func (r ValidationResult) Errors() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

func newIssue(code ValidationCode, field, message string) ValidationIssue {
	return ValidationIssue{Code: code, Field: field, Message: message, Severity: SeverityError}
}

func newWarning(code ValidationCode, field, message string) ValidationIssue {
	return ValidationIssue{Code: code, Field: field, Message: message, Severity: SeverityWarning}
}

func newResult(issues []ValidationIssue) ValidationResult {
	if issues == nil {
		issues = []ValidationIssue{}
	}
	result := ValidationResult{Valid: true, Issues: issues}
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			result.Valid = false
			break
		}
	}
	return result
}
