package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Fieldops/fieldops/internal/domain"
	"github.com/Fieldops/fieldops/pkg/logger"
	"github.com/Fieldops/fieldops/pkg/tracing"
)

// WorkflowService stores ordered step sequences
type WorkflowService struct {
	repo   domain.WorkflowRepository
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(repo domain.WorkflowRepository, logger logger.Logger) *WorkflowService {
	return &WorkflowService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Save creates the workflow when it has no id, otherwise overwrites it. Temporary
// step ids minted by the editor are replaced before anything is written.
func (s *WorkflowService) Save(ctx context.Context, organizationID string, workflow *domain.Workflow) (*domain.Workflow, error) {
	return tracing.TraceMethodWithResult(ctx, "WorkflowService", "Save", func(ctx context.Context) (*domain.Workflow, error) {
		if err := workflow.Validate(); err != nil {
			return nil, err
		}

		now := s.now().UTC()
		if workflow.ID == "" {
			workflow.ID = s.newID()
			workflow.CreatedAt = now
		} else {
			existing, err := s.repo.GetByID(ctx, organizationID, workflow.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to get workflow: %w", err)
			}
			workflow.CreatedAt = existing.CreatedAt
		}
		workflow.OrganizationID = organizationID
		workflow.UpdatedAt = now
		workflow.AssignPersistentIDs(s.newID)
		if workflow.Steps == nil {
			workflow.Steps = []domain.WorkflowStep{}
		}

		if err := s.repo.Upsert(ctx, workflow); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"organization_id": organizationID,
				"workflow_id":     workflow.ID,
			}).Error(fmt.Sprintf("failed to save workflow: %v", err))
			return nil, fmt.Errorf("failed to save workflow: %w", err)
		}
		return workflow, nil
	})
}

// Get returns one workflow
func (s *WorkflowService) Get(ctx context.Context, organizationID, id string) (*domain.Workflow, error) {
	workflow, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return workflow, nil
}

// List returns the workflows of an organization
func (s *WorkflowService) List(ctx context.Context, organizationID string) ([]*domain.Workflow, error) {
	workflows, err := s.repo.List(ctx, organizationID)
	if err != nil {
		s.logger.WithField("organization_id", organizationID).Error(fmt.Sprintf("failed to list workflows: %v", err))
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return workflows, nil
}

func (s *WorkflowService) Delete(ctx context.Context, organizationID, id string) error {
	if err := s.repo.Delete(ctx, organizationID, id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	return nil
}
