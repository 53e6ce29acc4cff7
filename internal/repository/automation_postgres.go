package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Fieldops/fieldops/internal/domain"
)

// psql is a Squirrel StatementBuilder configured for PostgreSQL
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var automationColumns = []string{
	"id", "organization_id", "name", "description", "status",
	"trigger_type", "trigger_conditions", "trigger_config",
	"action_type", "action_config", "action_delay",
	"delivery_window", "multi_channel_config",
	"execution_count", "success_count", "created_at", "updated_at",
}

// columns rewritten by an upsert; counters and created_at belong to the existing row
var automationUpsertColumns = []string{
	"name", "description", "status",
	"trigger_type", "trigger_conditions", "trigger_config",
	"action_type", "action_config", "action_delay",
	"delivery_window", "multi_channel_config", "updated_at",
}

// AutomationRepository implements domain.AutomationRepository
type AutomationRepository struct {
	db *sql.DB
}

// NewAutomationRepository creates a new PostgreSQL automation repository
func NewAutomationRepository(db *sql.DB) domain.AutomationRepository {
	return &AutomationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nullableJSON marshals v, returning nil for nil pointers so the column stays NULL
func nullableJSON(v interface{}, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Upsert inserts the record or overwrites the row with the same id. A row owned by
// another organization is never touched and reported as not found.
func (r *AutomationRepository) Upsert(ctx context.Context, record *domain.AutomationRecord) error {
	conditions := record.TriggerConditions
	if conditions == nil {
		conditions = []domain.Condition{}
	}
	conditionsJSON, err := json.Marshal(conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger conditions: %w", err)
	}
	triggerConfigJSON, err := nullableJSON(record.TriggerConfig, record.TriggerConfig == nil)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}
	actionConfig := record.ActionConfig
	if actionConfig == nil {
		actionConfig = domain.MapOfAny{}
	}
	actionConfigJSON, err := json.Marshal(actionConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}
	delayJSON, err := nullableJSON(record.ActionDelay, record.ActionDelay == nil)
	if err != nil {
		return fmt.Errorf("failed to marshal action delay: %w", err)
	}
	windowJSON, err := nullableJSON(record.DeliveryWindow, record.DeliveryWindow == nil)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery window: %w", err)
	}
	multiChannelJSON, err := nullableJSON(record.MultiChannelConfig, record.MultiChannelConfig == nil)
	if err != nil {
		return fmt.Errorf("failed to marshal multi channel config: %w", err)
	}

	updates := make([]string, len(automationUpsertColumns))
	for i, col := range automationUpsertColumns {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}

	query, args, err := psql.
		Insert("automation_rules").
		Columns(automationColumns...).
		Values(
			record.ID, record.OrganizationID, record.Name, record.Description, record.Status,
			record.TriggerType, conditionsJSON, triggerConfigJSON,
			record.ActionType, actionConfigJSON, delayJSON,
			windowJSON, multiChannelJSON,
			record.ExecutionCount, record.SuccessCount, record.CreatedAt, record.UpdatedAt,
		).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ") +
			" WHERE automation_rules.organization_id = EXCLUDED.organization_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert automation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.ErrNotFound{Entity: "automation", ID: record.ID}
	}
	return nil
}

// GetByID returns the automation scoped to organizationID, or ErrNotFound
func (r *AutomationRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.AutomationRecord, error) {
	query, args, err := psql.
		Select(automationColumns...).
		From("automation_rules").
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	record, err := scanAutomation(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "automation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}
	return record, nil
}

// List retrieves one page of automations, newest first, and the total matching count
func (r *AutomationRepository) List(ctx context.Context, organizationID string, filter domain.AutomationFilter) ([]*domain.AutomationRecord, int, error) {
	whereClause := sq.Eq{"organization_id": organizationID}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		whereClause["status"] = statuses
	}
	if filter.TriggerType != "" {
		whereClause["trigger_type"] = string(filter.TriggerType)
	}
	if filter.ActionType != "" {
		whereClause["action_type"] = string(filter.ActionType)
	}

	countQuery, countArgs, err := psql.
		Select("COUNT(*)").
		From("automation_rules").
		Where(whereClause).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count automations: %w", err)
	}

	dataQuery := psql.
		Select(automationColumns...).
		From("automation_rules").
		Where(whereClause).
		OrderBy("created_at DESC")
	if filter.Limit > 0 {
		dataQuery = dataQuery.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		dataQuery = dataQuery.Offset(uint64(filter.Offset))
	}

	query, args, err := dataQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list automations: %w", err)
	}
	defer rows.Close()

	records := []*domain.AutomationRecord{}
	for rows.Next() {
		record, err := scanAutomation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan automation row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating automation rows: %w", err)
	}

	return records, count, nil
}

// Delete removes an automation; a missing row is ErrNotFound
func (r *AutomationRepository) Delete(ctx context.Context, organizationID, id string) error {
	query, args, err := psql.
		Delete("automation_rules").
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return r.execAffectingOne(ctx, "delete automation", id, query, args)
}

// UpdateStatus sets only the lifecycle status of an automation
func (r *AutomationRepository) UpdateStatus(ctx context.Context, organizationID, id string, status domain.AutomationStatus, updatedAt time.Time) error {
	query, args, err := psql.
		Update("automation_rules").
		Set("status", status).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return r.execAffectingOne(ctx, "update automation status", id, query, args)
}

// RecordExecution bumps the counters reported by the execution engine
func (r *AutomationRepository) RecordExecution(ctx context.Context, organizationID, id string, success bool) error {
	builder := psql.
		Update("automation_rules").
		Set("execution_count", sq.Expr("execution_count + 1"))
	if success {
		builder = builder.Set("success_count", sq.Expr("success_count + 1"))
	}

	query, args, err := builder.
		Where(sq.Eq{"id": id, "organization_id": organizationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return r.execAffectingOne(ctx, "record automation execution", id, query, args)
}

func (r *AutomationRepository) execAffectingOne(ctx context.Context, op, id, query string, args []interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &domain.ErrNotFound{Entity: "automation", ID: id}
	}
	return nil
}

func scanAutomation(row rowScanner) (*domain.AutomationRecord, error) {
	var record domain.AutomationRecord
	var description sql.NullString
	var conditionsJSON, triggerConfigJSON, actionConfigJSON, delayJSON, windowJSON, multiChannelJSON []byte

	err := row.Scan(
		&record.ID, &record.OrganizationID, &record.Name, &description, &record.Status,
		&record.TriggerType, &conditionsJSON, &triggerConfigJSON,
		&record.ActionType, &actionConfigJSON, &delayJSON,
		&windowJSON, &multiChannelJSON,
		&record.ExecutionCount, &record.SuccessCount, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Description = description.String

	record.TriggerConditions = []domain.Condition{}
	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &record.TriggerConditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger conditions: %w", err)
		}
	}
	if len(triggerConfigJSON) > 0 {
		if err := json.Unmarshal(triggerConfigJSON, &record.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}
	record.ActionConfig = domain.MapOfAny{}
	if len(actionConfigJSON) > 0 {
		if err := json.Unmarshal(actionConfigJSON, &record.ActionConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
		}
	}
	if len(delayJSON) > 0 {
		if err := json.Unmarshal(delayJSON, &record.ActionDelay); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action delay: %w", err)
		}
	}
	if len(windowJSON) > 0 {
		if err := json.Unmarshal(windowJSON, &record.DeliveryWindow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delivery window: %w", err)
		}
	}
	if len(multiChannelJSON) > 0 {
		if err := json.Unmarshal(multiChannelJSON, &record.MultiChannelConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal multi channel config: %w", err)
		}
	}

	return &record, nil
}
