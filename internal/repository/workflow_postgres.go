package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Fieldops/fieldops/internal/domain"
)

var workflowColumns = []string{
	"id", "organization_id", "name", "description", "active", "trigger", "steps", "created_at", "updated_at",
}

// WorkflowRepository implements domain.WorkflowRepository
type WorkflowRepository struct {
	db *sql.DB
}

// NewWorkflowRepository creates a new PostgreSQL workflow repository
func NewWorkflowRepository(db *sql.DB) domain.WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Upsert inserts the workflow or replaces the stored one with the same ID
func (r *WorkflowRepository) Upsert(ctx context.Context, workflow *domain.Workflow) error {
	triggerJSON, err := json.Marshal(workflow.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}
	steps := workflow.Steps
	if steps == nil {
		steps = []domain.WorkflowStep{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query, args, err := psql.
		Insert("workflows").
		Columns(workflowColumns...).
		Values(
			workflow.ID, workflow.OrganizationID, workflow.Name, workflow.Description, workflow.Active,
			triggerJSON, stepsJSON, workflow.CreatedAt, workflow.UpdatedAt,
		).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, " +
			"active = EXCLUDED.active, trigger = EXCLUDED.trigger, steps = EXCLUDED.steps, updated_at = EXCLUDED.updated_at " +
			"WHERE workflows.organization_id = EXCLUDED.organization_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert workflow: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.ErrNotFound{Entity: "workflow", ID: workflow.ID}
	}
	return nil
}

// GetByID returns the workflow scoped to organizationID, or ErrNotFound
func (r *WorkflowRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.Workflow, error) {
	query, args, err := psql.
		Select(workflowColumns...).
		From("workflows").
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "workflow", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return workflow, nil
}

// List returns the workflows of an organization, newest first
func (r *WorkflowRepository) List(ctx context.Context, organizationID string) ([]*domain.Workflow, error) {
	query, args, err := psql.
		Select(workflowColumns...).
		From("workflows").
		Where(sq.Eq{"organization_id": organizationID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []*domain.Workflow{}
	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}
		workflows = append(workflows, workflow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow rows: %w", err)
	}
	return workflows, nil
}

// Delete removes a workflow; a missing row is ErrNotFound
func (r *WorkflowRepository) Delete(ctx context.Context, organizationID, id string) error {
	query, args, err := psql.
		Delete("workflows").
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.ErrNotFound{Entity: "workflow", ID: id}
	}
	return nil
}

func scanWorkflow(row rowScanner) (*domain.Workflow, error) {
	var workflow domain.Workflow
	var description sql.NullString
	var triggerJSON, stepsJSON []byte

	err := row.Scan(
		&workflow.ID, &workflow.OrganizationID, &workflow.Name, &description, &workflow.Active,
		&triggerJSON, &stepsJSON, &workflow.CreatedAt, &workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	workflow.Description = description.String

	if err := json.Unmarshal(triggerJSON, &workflow.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}
	workflow.Steps = []domain.WorkflowStep{}
	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &workflow.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}
	return &workflow, nil
}
