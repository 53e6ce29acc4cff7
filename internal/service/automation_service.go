package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/pkg/liquid"
	"github.com/Fieldops/fieldops/pkg/logger"
	"github.com/Fieldops/fieldops/pkg/tracing"
)

// AutomationService saves, loads and previews automation rules
type AutomationService struct {
	repo        domain.AutomationRepository
	substitutor *domain.Substitutor
	renderer    *liquid.Renderer
	logger      logger.Logger
	now         func() time.Time
	newID       func() string
}

// NewAutomationService creates a new AutomationService
func NewAutomationService(
	repo domain.AutomationRepository,
	substitutor *domain.Substitutor,
	renderer *liquid.Renderer,
	logger logger.Logger,
) *AutomationService {
	if substitutor == nil {
		substitutor = domain.NewSubstitutor()
	}
	if renderer == nil {
		renderer = liquid.NewRenderer()
	}
	return &AutomationService{
		repo:        repo,
		substitutor: substitutor,
		renderer:    renderer,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Create validates the draft and stores it under a new id
func (s *AutomationService) Create(ctx context.Context, organizationID string, draft domain.AutomationDraft) (*domain.AutomationRecord, error) {
	return tracing.TraceMethodWithResult(ctx, "AutomationService", "Create", func(ctx context.Context) (*domain.AutomationRecord, error) {
		record, err := s.prepare(draft)
		if err != nil {
			return nil, err
		}

		now := s.now().UTC()
		record.ID = s.newID()
		record.OrganizationID = organizationID
		record.CreatedAt = now
		record.UpdatedAt = now

		if err := s.repo.Upsert(ctx, record); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"organization_id": organizationID,
				"rule_id":         record.ID,
			}).Error(fmt.Sprintf("failed to create automation: %v", err))
			return nil, fmt.Errorf("failed to create automation: %w", err)
		}

		tracing.AddAttribute(ctx, "rule_id", record.ID)
		return record, nil
	})
}

// Update overwrites an existing rule. Counters and creation time are kept.
func (s *AutomationService) Update(ctx context.Context, organizationID, id string, draft domain.AutomationDraft) (*domain.AutomationRecord, error) {
	return tracing.TraceMethodWithResult(ctx, "AutomationService", "Update", func(ctx context.Context) (*domain.AutomationRecord, error) {
		existing, err := s.repo.GetByID(ctx, organizationID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get automation: %w", err)
		}

		record, err := s.prepare(draft)
		if err != nil {
			return nil, err
		}

		record.ID = existing.ID
		record.OrganizationID = organizationID
		record.ExecutionCount = existing.ExecutionCount
		record.SuccessCount = existing.SuccessCount
		record.CreatedAt = existing.CreatedAt
		record.UpdatedAt = s.now().UTC()

		if err := s.repo.Upsert(ctx, record); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"organization_id": organizationID,
				"rule_id":         id,
			}).Error(fmt.Sprintf("failed to update automation: %v", err))
			return nil, fmt.Errorf("failed to update automation: %w", err)
		}

		return record, nil
	})
}

func (s *AutomationService) prepare(draft domain.AutomationDraft) (*domain.AutomationRecord, error) {
	draft = draft.Normalize()
	result := draft.Validate()
	if !result.Valid {
		return nil, &domain.RuleValidationError{Result: result}
	}
	record := draft.ToPersistableRecord()
	return &record, nil
}

// Get returns one automation
func (s *AutomationService) Get(ctx context.Context, organizationID, id string) (*domain.AutomationRecord, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "AutomationService", "Get")
	defer span.End()

	record, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}
	return record, nil
}

// List returns the automations matching filter
func (s *AutomationService) List(ctx context.Context, organizationID string, filter domain.AutomationFilter) ([]*domain.AutomationRecord, int, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "AutomationService", "List")
	defer span.End()

	records, total, err := s.repo.List(ctx, organizationID, filter)
	if err != nil {
		s.logger.WithField("organization_id", organizationID).Error(fmt.Sprintf("failed to list automations: %v", err))
		return nil, 0, fmt.Errorf("failed to list automations: %w", err)
	}
	return records, total, nil
}

// Delete removes an automation
func (s *AutomationService) Delete(ctx context.Context, organizationID, id string) error {
	ctx, span := tracing.StartServiceSpan(ctx, "AutomationService", "Delete")
	defer span.End()

	if err := s.repo.Delete(ctx, organizationID, id); err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			s.logger.WithField("rule_id", id).Error(fmt.Sprintf("failed to delete automation: %v", err))
		}
		return fmt.Errorf("failed to delete automation: %w", err)
	}
	return nil
}

// Activate re-validates the stored rule before switching it on
func (s *AutomationService) Activate(ctx context.Context, organizationID, id string) error {
	ctx, span := tracing.StartServiceSpan(ctx, "AutomationService", "Activate")

	record, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		tracing.EndSpan(span, err)
		return fmt.Errorf("failed to get automation: %w", err)
	}

	result := domain.DraftFromRecord(record).Validate()
	if !result.Valid {
		err := &domain.RuleValidationError{Result: result}
		tracing.EndSpan(span, err)
		return err
	}

	err = s.setStatus(ctx, organizationID, id, domain.AutomationStatusActive)
	tracing.EndSpan(span, err)
	return err
}

// Pause stops an automation without touching its rule
func (s *AutomationService) Pause(ctx context.Context, organizationID, id string) error {
	ctx, span := tracing.StartServiceSpan(ctx, "AutomationService", "Pause")
	err := s.setStatus(ctx, organizationID, id, domain.AutomationStatusPaused)
	tracing.EndSpan(span, err)
	return err
}

func (s *AutomationService) setStatus(ctx context.Context, organizationID, id string, status domain.AutomationStatus) error {
	if err := s.repo.UpdateStatus(ctx, organizationID, id, status, s.now().UTC()); err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			s.logger.WithFields(map[string]interface{}{
				"rule_id": id,
				"status":  string(status),
			}).Error(fmt.Sprintf("failed to update automation status: %v", err))
		}
		return fmt.Errorf("failed to set automation status: %w", err)
	}
	return nil
}
