package domain

import (
	"fmt"
	"time"
)

type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found with ID: %s", e.Entity, e.ID)
}

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError with message
func NewValidationError(message string) error {
	return ValidationError{
		Message: message,
	}
}

// RuleValidationError carries the full result when a rule cannot be saved or activated
type RuleValidationError struct {
	Result ValidationResult
}

func (e *RuleValidationError) Error() string {
	errs := e.Result.Errors()
	if len(errs) == 0 {
		return "automation is invalid"
	}
	return fmt.Sprintf("automation is invalid: %s", errs[0].Message)
}

// RateLimitError is returned when an organization exceeds its request budget
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}

type AIErrorKind string

const (
	AIErrorNotConfigured     AIErrorKind = "not_configured"
	AIErrorUnauthorized      AIErrorKind = "unauthorized"
	AIErrorMalformedResponse AIErrorKind = "malformed_response"
	AIErrorUnparseableOutput AIErrorKind = "unparseable_output"
	AIErrorUpstream          AIErrorKind = "upstream"
)

// AIGenerationError is never fatal; the UI shows UserMessage and lets the user retry
type AIGenerationError struct {
	Kind AIErrorKind
	Err  error
}

// NewAIError wraps err with a failure kind
func NewAIError(kind AIErrorKind, err error) *AIGenerationError {
	return &AIGenerationError{Kind: kind, Err: err}
}

func (e *AIGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai generation failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ai generation failed (%s)", e.Kind)
}

func (e *AIGenerationError) Unwrap() error {
	return e.Err
}

// UserMessage returns text safe to show to end users
func (e *AIGenerationError) UserMessage() string {
	switch e.Kind {
	case AIErrorNotConfigured:
		return "AI generation is not configured for this account"
	case AIErrorUnauthorized:
		return "The AI provider rejected our credentials"
	case AIErrorMalformedResponse:
		return "The AI provider returned an unexpected response"
	case AIErrorUnparseableOutput:
		return "The AI suggestion could not be turned into an automation, try rephrasing"
	default:
		return "AI generation failed, please try again"
	}
}
