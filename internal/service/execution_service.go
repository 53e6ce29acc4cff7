package service

import (
	"context"
	"fmt"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/pkg/logger"
	"github.com/Fieldops/fieldops/pkg/tracing"
)

// ExecutionService records run outcomes reported by the execution engine
type ExecutionService struct {
	repo   domain.AutomationRepository
	logger logger.Logger
}

// NewExecutionService creates a new execution service
func NewExecutionService(repo domain.AutomationRepository, logger logger.Logger) *ExecutionService {
	return &ExecutionService{repo: repo, logger: logger}
}

// RecordExecution adds one run to the counters of the reported automation
func (s *ExecutionService) RecordExecution(ctx context.Context, report domain.ExecutionReport) error {
	ctx, span := tracing.StartServiceSpan(ctx, "ExecutionService", "RecordExecution")
	tracing.AddAttribute(ctx, "rule_id", report.RuleID)
	tracing.AddAttribute(ctx, "success", report.Success)

	if err := report.Validate(); err != nil {
		tracing.EndSpan(span, err)
		return err
	}

	err := s.repo.RecordExecution(ctx, report.OrganizationID, report.RuleID, report.Success)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"organization_id": report.OrganizationID,
			"rule_id":         report.RuleID,
		}).Error(fmt.Sprintf("failed to record execution: %v", err))
		err = fmt.Errorf("failed to record execution: %w", err)
	} else {
		s.logger.WithFields(map[string]interface{}{
			"rule_id":       report.RuleID,
			"success":       report.Success,
			"channel":       string(report.Channel),
			"fallback_used": report.FallbackUsed,
		}).Debug("execution recorded")
	}
	tracing.EndSpan(span, err)
	return err
}
