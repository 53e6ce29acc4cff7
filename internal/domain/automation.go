package domain

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

//go:generate mockgen -destination mocks/mock_automation_repository.go -package mocks github.com/Fieldops/fieldops/internal/domain AutomationRepository
//go:generate mockgen -destination mocks/mock_automation_service.go -package mocks github.com/Fieldops/fieldops/internal/domain AutomationService

type AutomationStatus string

const (
	AutomationStatusActive AutomationStatus = "active"
	AutomationStatusPaused AutomationStatus = "paused"
	AutomationStatusDraft  AutomationStatus = "draft"
)

func (s AutomationStatus) IsValid() bool {
	switch s {
	case AutomationStatusActive, AutomationStatusPaused, AutomationStatusDraft:
		return true
	default:
		return false
	}
}

type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

func (o ConditionOperator) IsValid() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorContains, OperatorGreaterThan, OperatorLessThan:
		return true
	default:
		return false
	}
}

type Condition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

// Trigger carries status targets either as StatusFrom/StatusTo or folded into
// Conditions. Both encodings are accepted on read, see DecodeStatusConditions.
type Trigger struct {
	Type       TriggerType `json:"type"`
	Conditions []Condition `json:"conditions,omitempty"`
	Config     MapOfAny    `json:"config,omitempty"`
	StatusFrom string      `json:"status_from,omitempty"`
	StatusTo   string      `json:"status_to,omitempty"`
}

type DelayUnit string

const (
	DelayImmediate DelayUnit = "immediate"
	DelayMinutes   DelayUnit = "minutes"
	DelayHours     DelayUnit = "hours"
	DelayDays      DelayUnit = "days"
)

type Delay struct {
	Unit  DelayUnit `json:"unit"`
	Value int       `json:"value,omitempty"`
}

// Duration converts the delay to a time.Duration; immediate is zero
func (d Delay) Duration() time.Duration {
	switch d.Unit {
	case DelayMinutes:
		return time.Duration(d.Value) * time.Minute
	case DelayHours:
		return time.Duration(d.Value) * time.Hour
	case DelayDays:
		return time.Duration(d.Value) * 24 * time.Hour
	default:
		return 0
	}
}

// Validate checks the unit; timed units need a positive value
func (d Delay) Validate() error {
	switch d.Unit {
	case DelayImmediate:
		if d.Value != 0 {
			return fmt.Errorf("immediate delay cannot have a value")
		}
	case DelayMinutes, DelayHours, DelayDays:
		if d.Value <= 0 {
			return fmt.Errorf("delay value must be positive")
		}
	default:
		return fmt.Errorf("invalid delay unit: %s", d.Unit)
	}
	return nil
}

type Action struct {
	Type   ActionType `json:"type"`
	Config MapOfAny   `json:"config,omitempty"`
	Delay  *Delay     `json:"delay,omitempty"`
}

// AutomationRule is the editable shape of an automation
type AutomationRule struct {
	ID             string              `json:"id,omitempty"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Status         AutomationStatus    `json:"status"`
	Trigger        Trigger             `json:"trigger"`
	Action         Action              `json:"action"`
	DeliveryWindow *DeliveryWindow     `json:"delivery_window,omitempty"`
	MultiChannel   *MultiChannelConfig `json:"multi_channel,omitempty"`
	// usage figures are reported by the execution engine, never computed here
	UsageCount  int64   `json:"usage_count,omitempty"`
	SuccessRate float64 `json:"success_rate,omitempty"`
}

// Clone returns a deep copy
func (r AutomationRule) Clone() AutomationRule {
	out := r
	out.Trigger.Conditions = cloneConditions(r.Trigger.Conditions)
	out.Trigger.Config = r.Trigger.Config.Clone()
	out.Action.Config = r.Action.Config.Clone()
	if r.Action.Delay != nil {
		d := *r.Action.Delay
		out.Action.Delay = &d
	}
	if r.DeliveryWindow != nil {
		w := r.DeliveryWindow.clone()
		out.DeliveryWindow = &w
	}
	if r.MultiChannel != nil {
		m := *r.MultiChannel
		out.MultiChannel = &m
	}
	return out
}

func cloneConditions(in []Condition) []Condition {
	if in == nil {
		return nil
	}
	out := make([]Condition, len(in))
	for i, c := range in {
		c.Value = cloneValue(c.Value)
		out[i] = c
	}
	return out
}

// AutomationRecord is the flat row stored in automation_rules
type AutomationRecord struct {
	ID                 string              `json:"id"`
	OrganizationID     string              `json:"organization_id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Status             AutomationStatus    `json:"status"`
	TriggerType        TriggerType         `json:"trigger_type"`
	TriggerConditions  []Condition         `json:"trigger_conditions"`
	TriggerConfig      MapOfAny            `json:"trigger_config,omitempty"`
	ActionType         ActionType          `json:"action_type"`
	ActionConfig       MapOfAny            `json:"action_config"`
	ActionDelay        *Delay              `json:"action_delay,omitempty"`
	DeliveryWindow     *DeliveryWindow     `json:"delivery_window,omitempty"`
	MultiChannelConfig *MultiChannelConfig `json:"multi_channel_config,omitempty"`
	ExecutionCount     int64               `json:"execution_count"`
	SuccessCount       int64               `json:"success_count"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// SuccessRate is the percentage of successful executions, 0 when never run
func (r *AutomationRecord) SuccessRate() float64 {
	if r.ExecutionCount == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(r.ExecutionCount) * 100
}

type AutomationFilter struct {
	Status      []AutomationStatus
	TriggerType TriggerType
	ActionType  ActionType
	Limit       int
	Offset      int
}

type AutomationRepository interface {
	// Upsert inserts the record or overwrites the row with the same id
	Upsert(ctx context.Context, record *AutomationRecord) error
	GetByID(ctx context.Context, organizationID, id string) (*AutomationRecord, error)
	// List returns the page ordered by created_at descending and the total count
	List(ctx context.Context, organizationID string, filter AutomationFilter) ([]*AutomationRecord, int, error)
	Delete(ctx context.Context, organizationID, id string) error
	UpdateStatus(ctx context.Context, organizationID, id string, status AutomationStatus, updatedAt time.Time) error
	RecordExecution(ctx context.Context, organizationID, id string, success bool) error
}

type AutomationService interface {
	Create(ctx context.Context, organizationID string, draft AutomationDraft) (*AutomationRecord, error)
	Update(ctx context.Context, organizationID, id string, draft AutomationDraft) (*AutomationRecord, error)
	Get(ctx context.Context, organizationID, id string) (*AutomationRecord, error)
	List(ctx context.Context, organizationID string, filter AutomationFilter) ([]*AutomationRecord, int, error)
	Delete(ctx context.Context, organizationID, id string) error
	Activate(ctx context.Context, organizationID, id string) error
	Pause(ctx context.Context, organizationID, id string) error
	Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error)
}

// HTTP request types

type SaveAutomationRequest struct {
	ID    string          `json:"id,omitempty"`
	Draft AutomationDraft `json:"draft"`
}

// ValidateForUpdate also requires the ID of the stored automation
func (r *SaveAutomationRequest) ValidateForUpdate() error {
	if r.ID == "" {
		return NewValidationError("id is required")
	}
	return nil
}

type AutomationIDRequest struct {
	ID string `json:"id"`
}

func (r *AutomationIDRequest) Validate() error {
	if r.ID == "" {
		return NewValidationError("id is required")
	}
	return nil
}

func (r *AutomationIDRequest) FromURLParams(params map[string][]string) error {
	if v, ok := params["id"]; ok && len(v) > 0 {
		r.ID = v[0]
	}
	return r.Validate()
}

type ListAutomationsRequest struct {
	Status      []AutomationStatus `json:"status,omitempty"`
	TriggerType TriggerType        `json:"trigger_type,omitempty"`
	ActionType  ActionType         `json:"action_type,omitempty"`
	Limit       int                `json:"limit,omitempty"`
	Offset      int                `json:"offset,omitempty"`
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// FromURLParams parses the list filters from query parameters
func (r *ListAutomationsRequest) FromURLParams(params map[string][]string) error {
	for _, s := range params["status"] {
		r.Status = append(r.Status, AutomationStatus(s))
	}
	if v := params["trigger_type"]; len(v) > 0 {
		r.TriggerType = TriggerType(v[0])
	}
	if v := params["action_type"]; len(v) > 0 {
		r.ActionType = ActionType(v[0])
	}
	if v := params["limit"]; len(v) > 0 {
		limit, err := strconv.Atoi(v[0])
		if err != nil {
			return NewValidationError("limit must be a number")
		}
		r.Limit = limit
	}
	if v := params["offset"]; len(v) > 0 {
		offset, err := strconv.Atoi(v[0])
		if err != nil {
			return NewValidationError("offset must be a number")
		}
		r.Offset = offset
	}
	return r.Validate()
}

func (r *ListAutomationsRequest) Validate() error {
	for _, s := range r.Status {
		if !s.IsValid() {
			return NewValidationError(fmt.Sprintf("invalid status: %s", s))
		}
	}
	if r.Limit < 0 || r.Offset < 0 {
		return NewValidationError("limit and offset cannot be negative")
	}
	if r.Limit > MaxListLimit {
		return NewValidationError(fmt.Sprintf("limit cannot exceed %d", MaxListLimit))
	}
	return nil
}

// ToFilter converts the request to a repository filter
func (r *ListAutomationsRequest) ToFilter() AutomationFilter {
	limit := r.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	return AutomationFilter{
		Status:      r.Status,
		TriggerType: r.TriggerType,
		ActionType:  r.ActionType,
		Limit:       limit,
		Offset:      r.Offset,
	}
}

type FromTemplateRequest struct {
	BusinessType BusinessType `json:"business_type"`
	TemplateID   string       `json:"template_id"`
}

func (r *FromTemplateRequest) Validate() error {
	if r.TemplateID == "" {
		return NewValidationError("template_id is required")
	}
	return nil
}
