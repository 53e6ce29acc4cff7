package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_execution_service.go -package mocks github.com/Fieldops/fieldops/internal/domain ExecutionService

// ExecutionReport is posted by the execution engine after a rule ran
type ExecutionReport struct {
	RuleID         string    `json:"rule_id"`
	OrganizationID string    `json:"organization_id"`
	Success        bool      `json:"success"`
	Channel        Channel   `json:"channel,omitempty"`
	FallbackUsed   bool      `json:"fallback_used,omitempty"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// Validate requires the rule and organization IDs and checks any channel
func (r *ExecutionReport) Validate() error {
	if r.RuleID == "" {
		return NewValidationError("rule_id is required")
	}
	if r.OrganizationID == "" {
		return NewValidationError("organization_id is required")
	}
	if r.Channel != "" && !r.Channel.IsValid() {
		return NewValidationError("invalid channel")
	}
	return nil
}

type ExecutionService interface {
	RecordExecution(ctx context.Context, report ExecutionReport) error
}
