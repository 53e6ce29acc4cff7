package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -destination mocks/mock_workflow_repository.go -package mocks github.com/Fieldops/fieldops/internal/domain WorkflowRepository
//go:generate mockgen -destination mocks/mock_workflow_service.go -package mocks github.com/Fieldops/fieldops/internal/domain WorkflowService

type StepType string

const (
	StepEmail       StepType = "email"
	StepSMS         StepType = "sms"
	StepDelay       StepType = "delay"
	StepConditional StepType = "conditional"
	StepGiftCard    StepType = "gift_card"
)

func (t StepType) IsValid() bool {
	switch t {
	case StepEmail, StepSMS, StepDelay, StepConditional, StepGiftCard:
		return true
	default:
		return false
	}
}

// TempStepIDPrefix marks ids minted in the editor before the workflow is saved
const TempStepIDPrefix = "temp-"

type WorkflowTrigger struct {
	ID     string      `json:"id"`
	Type   TriggerType `json:"type"`
	Name   string      `json:"name"`
	Config MapOfAny    `json:"config,omitempty"`
}

type WorkflowStep struct {
	ID     string   `json:"id"`
	Type   StepType `json:"type"`
	Name   string   `json:"name"`
	Config MapOfAny `json:"config,omitempty"`
}

func (s WorkflowStep) IsTemporary() bool {
	return strings.HasPrefix(s.ID, TempStepIDPrefix)
}

// Workflow is an ordered sequence of steps; slice order is execution order
type Workflow struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Active         bool            `json:"active"`
	Trigger        WorkflowTrigger `json:"trigger"`
	Steps          []WorkflowStep  `json:"steps"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewWorkflowStep returns a step with a timestamp based temporary id
func NewWorkflowStep(t StepType, now time.Time) WorkflowStep {
	return WorkflowStep{
		ID:     fmt.Sprintf("%s%d", TempStepIDPrefix, now.UnixMilli()),
		Type:   t,
		Name:   humanize(string(t)),
		Config: defaultStepConfig(t),
	}
}

func defaultStepConfig(t StepType) MapOfAny {
	switch t {
	case StepDelay:
		return MapOfAny{"unit": string(DelayDays), "value": 1}
	case StepSMS:
		return MapOfAny{"message": ""}
	case StepEmail:
		return MapOfAny{"subject": "", "body": ""}
	default:
		return MapOfAny{}
	}
}

// AddStep appends step to the workflow
func (w *Workflow) AddStep(step WorkflowStep) {
	w.Steps = append(w.Steps, step)
}

// StepPatch is a partial update; nil fields are left alone and Config keys are merged
type StepPatch struct {
	Name   *string  `json:"name,omitempty"`
	Config MapOfAny `json:"config,omitempty"`
}

// UpdateStep applies patch to the step at index
func (w *Workflow) UpdateStep(index int, patch StepPatch) error {
	if index < 0 || index >= len(w.Steps) {
		return fmt.Errorf("step index %d out of range", index)
	}
	step := w.Steps[index]
	if patch.Name != nil {
		step.Name = *patch.Name
	}
	if len(patch.Config) > 0 {
		config := step.Config.Clone()
		if config == nil {
			config = MapOfAny{}
		}
		for k, v := range patch.Config {
			config = setConfigValue(config, k, v)
		}
		step.Config = config
	}
	w.Steps[index] = step
	return nil
}

// RemoveStep drops the step with the given id and reports whether one was found
func (w *Workflow) RemoveStep(id string) bool {
	for i, s := range w.Steps {
		if s.ID == id {
			w.Steps = append(w.Steps[:i:i], w.Steps[i+1:]...)
			return true
		}
	}
	return false
}

// MoveStep moves the step at from to position to
func (w *Workflow) MoveStep(from, to int) error {
	if from < 0 || from >= len(w.Steps) || to < 0 || to >= len(w.Steps) {
		return fmt.Errorf("cannot move step %d to %d", from, to)
	}
	step := w.Steps[from]
	steps := append(w.Steps[:from:from], w.Steps[from+1:]...)
	steps = append(steps[:to], append([]WorkflowStep{step}, steps[to:]...)...)
	w.Steps = steps
	return nil
}

// AssignPersistentIDs swaps temporary ids for ids from newID
func (w *Workflow) AssignPersistentIDs(newID func() string) {
	if w.Trigger.ID == "" || strings.HasPrefix(w.Trigger.ID, TempStepIDPrefix) {
		w.Trigger.ID = newID()
	}
	for i := range w.Steps {
		if w.Steps[i].ID == "" || w.Steps[i].IsTemporary() {
			w.Steps[i].ID = newID()
		}
	}
}

// Validate checks the workflow and every step
func (w *Workflow) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return NewValidationError("workflow name is required")
	}
	if w.Trigger.Type == "" {
		return NewValidationError("workflow trigger is required")
	}
	if _, ok := LookupTrigger(w.Trigger.Type); !ok {
		return NewValidationError(fmt.Sprintf("unknown trigger type: %s", w.Trigger.Type))
	}

	seen := map[string]bool{}
	for i, s := range w.Steps {
		if s.ID != "" {
			if seen[s.ID] {
				return NewValidationError(fmt.Sprintf("step %d: duplicate id %s", i, s.ID))
			}
			seen[s.ID] = true
		}
		if err := s.validate(); err != nil {
			return NewValidationError(fmt.Sprintf("step %d: %s", i, err.Error()))
		}
	}
	return nil
}

func (s WorkflowStep) validate() error {
	if !s.Type.IsValid() {
		return fmt.Errorf("invalid step type %q", s.Type)
	}
	switch s.Type {
	case StepDelay:
		value, ok := s.Config.Int("value")
		delay := Delay{Unit: DelayUnit(s.Config.String("unit")), Value: value}
		if !ok || delay.Unit == DelayImmediate {
			return fmt.Errorf("delay steps need a positive duration")
		}
		if err := delay.Validate(); err != nil {
			return err
		}
	case StepSMS:
		if strings.TrimSpace(s.Config.String("message")) == "" {
			return fmt.Errorf("sms steps need a message")
		}
	case StepEmail:
		if strings.TrimSpace(s.Config.String("subject")) == "" || strings.TrimSpace(s.Config.String("body")) == "" {
			return fmt.Errorf("email steps need a subject and a body")
		}
	case StepGiftCard:
		if amount, ok := toFloat(s.Config["amount"]); !ok || amount <= 0 {
			return fmt.Errorf("gift card steps need a positive amount")
		}
	}
	return nil
}

type WorkflowRepository interface {
	Upsert(ctx context.Context, workflow *Workflow) error
	GetByID(ctx context.Context, organizationID, id string) (*Workflow, error)
	List(ctx context.Context, organizationID string) ([]*Workflow, error)
	Delete(ctx context.Context, organizationID, id string) error
}

type WorkflowService interface {
	Save(ctx context.Context, organizationID string, workflow *Workflow) (*Workflow, error)
	Get(ctx context.Context, organizationID, id string) (*Workflow, error)
	List(ctx context.Context, organizationID string) ([]*Workflow, error)
	Delete(ctx context.Context, organizationID, id string) error
}

type SaveWorkflowRequest struct {
	Workflow *Workflow `json:"workflow"`
}

func (r *SaveWorkflowRequest) Validate() error {
	if r.Workflow == nil {
		return NewValidationError("workflow is required")
	}
	return r.Workflow.Validate()
}
