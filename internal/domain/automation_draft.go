package domain

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

// AutomationDraft is the builder state. Status targets live in StatusFrom/StatusTo;
// Rule.Trigger.Conditions only holds the remaining conditions.
type AutomationDraft struct {
	Rule       AutomationRule `json:"rule"`
	StatusFrom string         `json:"status_from,omitempty"`
	StatusTo   string         `json:"status_to,omitempty"`
}

func (d AutomationDraft) Clone() AutomationDraft {
	d.Rule = d.Rule.Clone()
	return d
}

// Normalize moves status targets that arrived inside the rule into the draft fields
func (d AutomationDraft) Normalize() AutomationDraft {
	next := d.Clone()
	desc := TriggerDescriptorOrFallback(next.Rule.Trigger.Type)
	from, to, rest := DecodeStatusConditions(desc.Status, next.Rule.Trigger)
	if next.StatusFrom == "" {
		next.StatusFrom = from
	}
	if next.StatusTo == "" {
		next.StatusTo = to
	}
	next.Rule.Trigger.Conditions = rest
	next.Rule.Trigger.StatusFrom = ""
	next.Rule.Trigger.StatusTo = ""
	return next
}

// StartBlank returns an empty draft rule
func StartBlank() AutomationDraft {
	return AutomationDraft{
		Rule: AutomationRule{
			Status: AutomationStatusDraft,
			Action: Action{Config: MapOfAny{}},
		},
	}
}

// StartFromTemplate copies the template rule into a fresh draft. The catalog is
// never aliased.
func StartFromTemplate(t Template) AutomationDraft {
	rule := t.Rule.Clone()
	rule.ID = ""
	rule.Status = AutomationStatusDraft
	rule.UsageCount = 0
	rule.SuccessRate = 0
	if rule.Name == "" {
		rule.Name = t.Name
	}
	if rule.Action.Config == nil {
		rule.Action.Config = MapOfAny{}
	}
	return AutomationDraft{Rule: rule}.Normalize()
}

// DraftAction is one edit applied by AutomationDraft.Apply
type DraftAction interface {
	apply(d *AutomationDraft)
}

// Apply returns the draft with the actions applied in order; the receiver is not modified
func (d AutomationDraft) Apply(actions ...DraftAction) AutomationDraft {
	next := d.Clone()
	for _, a := range actions {
		a.apply(&next)
	}
	return next
}

type SetName struct{ Name string }

func (a SetName) apply(d *AutomationDraft) { d.Rule.Name = a.Name }

type SetDescription struct{ Description string }

func (a SetDescription) apply(d *AutomationDraft) { d.Rule.Description = a.Description }

type SetStatus struct{ Status AutomationStatus }

func (a SetStatus) apply(d *AutomationDraft) { d.Rule.Status = a.Status }

// SetTrigger switches the trigger type. Status values the new trigger cannot use are
// cleared, and changing type resets conditions and config to the new defaults.
type SetTrigger struct{ Type TriggerType }

func (a SetTrigger) apply(d *AutomationDraft) {
	desc := TriggerDescriptorOrFallback(a.Type)
	if d.Rule.Trigger.Type != a.Type {
		d.Rule.Trigger = Trigger{Type: a.Type}
		if defaults := configDefaults(desc.ConfigFields); len(defaults) > 0 {
			d.Rule.Trigger.Config = defaults
		}
	}

	switch desc.Status {
	case StatusRequirementTransition:
	case StatusRequirementTarget:
		d.StatusFrom = ""
	default:
		d.StatusFrom = ""
		d.StatusTo = ""
	}
}

type SetStatusFrom struct{ Status string }

func (a SetStatusFrom) apply(d *AutomationDraft) { d.StatusFrom = strings.TrimSpace(a.Status) }

type SetStatusTo struct{ Status string }

func (a SetStatusTo) apply(d *AutomationDraft) { d.StatusTo = strings.TrimSpace(a.Status) }

type SetTriggerConfig struct {
	Key   string
	Value interface{}
}

func (a SetTriggerConfig) apply(d *AutomationDraft) {
	d.Rule.Trigger.Config = setConfigValue(d.Rule.Trigger.Config, a.Key, a.Value)
}

// SetConditions replaces the extra conditions. Status equality conditions the current
// trigger uses are lifted into the status fields.
type SetConditions struct{ Conditions []Condition }

func (a SetConditions) apply(d *AutomationDraft) {
	desc := TriggerDescriptorOrFallback(d.Rule.Trigger.Type)
	from, to, rest := DecodeStatusConditions(desc.Status, Trigger{Conditions: a.Conditions})
	if from != "" {
		d.StatusFrom = from
	}
	if to != "" {
		d.StatusTo = to
	}
	d.Rule.Trigger.Conditions = rest
}

// SetAction switches the action type. Message text follows the message key of the new
// action, so SMS text lands in an email body and back; nothing else carries over.
type SetAction struct{ Type ActionType }

func (a SetAction) apply(d *AutomationDraft) {
	prev := d.Rule.Action
	if prev.Type == a.Type && prev.Type != "" {
		return
	}

	var text string
	if prevDesc, ok := LookupAction(prev.Type); ok && prevDesc.MessageKey != "" {
		text = prev.Config.String(prevDesc.MessageKey)
	}

	next := Action{Type: a.Type, Delay: prev.Delay}
	if desc, ok := LookupAction(a.Type); ok {
		next.Config = configDefaults(desc.ConfigFields)
		if desc.MessageKey != "" && text != "" {
			next.Config[desc.MessageKey] = text
		}
		if desc.Channel == ChannelEmail {
			next.Config["subject"] = ""
		}
	} else {
		next.Config = MapOfAny{}
	}
	d.Rule.Action = next
}

type SetActionConfig struct {
	Key   string
	Value interface{}
}

func (a SetActionConfig) apply(d *AutomationDraft) {
	d.Rule.Action.Config = setConfigValue(d.Rule.Action.Config, a.Key, a.Value)
}

type SetDelay struct{ Delay *Delay }

func (a SetDelay) apply(d *AutomationDraft) {
	if a.Delay == nil || a.Delay.Unit == DelayImmediate {
		d.Rule.Action.Delay = nil
		return
	}
	delay := *a.Delay
	d.Rule.Action.Delay = &delay
}

type SetDeliveryWindow struct{ Window *DeliveryWindow }

func (a SetDeliveryWindow) apply(d *AutomationDraft) {
	if a.Window == nil {
		d.Rule.DeliveryWindow = nil
		return
	}
	w := a.Window.Normalize()
	d.Rule.DeliveryWindow = &w
}

type SetMultiChannel struct{ Config *MultiChannelConfig }

func (a SetMultiChannel) apply(d *AutomationDraft) {
	if a.Config == nil {
		d.Rule.MultiChannel = nil
		return
	}
	c := *a.Config
	d.Rule.MultiChannel = &c
}

func setConfigValue(config MapOfAny, key string, value interface{}) MapOfAny {
	if config == nil {
		config = MapOfAny{}
	}
	if value == nil {
		delete(config, key)
		return config
	}
	config[key] = cloneValue(value)
	return config
}

// Validate reports every problem that blocks saving the draft, plus warnings.
// It never panics and never mutates the draft.
func (d AutomationDraft) Validate() ValidationResult {
	var issues []ValidationIssue
	rule := d.Rule

	if strings.TrimSpace(rule.Name) == "" {
		issues = append(issues, newIssue(CodeMissingName, "name", "Give the automation a name"))
	}
	if rule.Status != "" && !rule.Status.IsValid() {
		issues = append(issues, newIssue(CodeInvalidStatus, "status", fmt.Sprintf("Unknown status %q", rule.Status)))
	}

	issues = append(issues, d.validateTrigger()...)
	issues = append(issues, d.validateAction()...)

	if rule.DeliveryWindow != nil {
		issues = append(issues, rule.DeliveryWindow.Validate()...)
	}
	if rule.MultiChannel != nil {
		issues = append(issues, rule.MultiChannel.Validate()...)
	}
	return newResult(issues)
}

func (d AutomationDraft) validateTrigger() []ValidationIssue {
	trigger := d.Rule.Trigger
	if trigger.Type == "" {
		return []ValidationIssue{newIssue(CodeMissingTrigger, "trigger.type", "Choose what starts the automation")}
	}
	desc, ok := LookupTrigger(trigger.Type)
	if !ok {
		return []ValidationIssue{newIssue(CodeUnknownTrigger, "trigger.type", fmt.Sprintf("Unknown trigger %q", trigger.Type))}
	}

	var issues []ValidationIssue
	if desc.Status == StatusRequirementTransition && d.StatusFrom == "" {
		issues = append(issues, newIssue(CodeMissingStatusTarget, "status_from", "Choose the status the job moves from"))
	}
	if desc.RequiresStatus() && d.StatusTo == "" {
		issues = append(issues, newIssue(CodeMissingStatusTarget, "status_to", "Choose the status that triggers the automation"))
	}

	for _, f := range desc.ConfigFields {
		if f.Type != ConfigFieldNumber {
			continue
		}
		if _, present := trigger.Config[f.Key]; !present && !f.Required {
			continue
		}
		if n, ok := trigger.Config.Int(f.Key); !ok || n <= 0 {
			issues = append(issues, newIssue(CodeInvalidTriggerCfg, "trigger.config."+f.Key,
				fmt.Sprintf("%s must be a positive whole number", f.Label)))
		}
	}

	for i, c := range trigger.Conditions {
		if strings.TrimSpace(c.Field) == "" || !c.Operator.IsValid() {
			issues = append(issues, newIssue(CodeInvalidCondition, fmt.Sprintf("trigger.conditions[%d]", i),
				"Conditions need a field and a supported operator"))
		}
	}
	return issues
}

func (d AutomationDraft) validateAction() []ValidationIssue {
	action := d.Rule.Action
	if action.Type == "" {
		return []ValidationIssue{newIssue(CodeMissingAction, "action.type", "Choose what the automation does")}
	}
	desc, ok := LookupAction(action.Type)
	if !ok {
		return []ValidationIssue{newIssue(CodeUnknownAction, "action.type", fmt.Sprintf("Unknown action %q", action.Type))}
	}

	var issues []ValidationIssue
	if action.Delay != nil {
		if err := action.Delay.Validate(); err != nil {
			issues = append(issues, newIssue(CodeInvalidDelay, "action.delay", err.Error()))
		}
	}

	for _, f := range desc.ConfigFields {
		value := strings.TrimSpace(action.Config.String(f.Key))
		switch {
		case f.Key == desc.MessageKey:
			// an empty message is allowed to be saved
			if value == "" {
				issues = append(issues, newWarning(CodeEmptyMessage, "action.config."+f.Key, "The message is empty"))
			} else if _, unknown := ExtractPlaceholders(value); len(unknown) > 0 {
				issues = append(issues, newWarning(CodeUnknownPlaceholder, "action.config."+f.Key,
					fmt.Sprintf("Unknown variables will be sent as typed: %s", strings.Join(unknown, ", "))))
			}
		case f.Key == "subject" && desc.Channel == ChannelEmail:
			if value == "" {
				issues = append(issues, newWarning(CodeEmptySubject, "action.config.subject", "The subject is empty"))
			}
		case f.Type == ConfigFieldURL:
			if value == "" || !govalidator.IsRequestURL(value) {
				issues = append(issues, newIssue(CodeInvalidWebhookURL, "action.config."+f.Key, "Enter a full http(s) URL"))
			}
		case f.Required && value == "":
			issues = append(issues, newIssue(CodeMissingActionField, "action.config."+f.Key,
				fmt.Sprintf("%s is required", f.Label)))
		}
	}
	return issues
}

// ToPersistableRecord flattens the draft into the stored row, folding the status
// targets into trigger conditions. Identity, ownership and counters are set by the
// caller.
func (d AutomationDraft) ToPersistableRecord() AutomationRecord {
	rule := d.Rule.Clone()
	desc := TriggerDescriptorOrFallback(rule.Trigger.Type)

	status := rule.Status
	if status == "" {
		status = AutomationStatusDraft
	}

	record := AutomationRecord{
		ID:                 rule.ID,
		Name:               strings.TrimSpace(rule.Name),
		Description:        rule.Description,
		Status:             status,
		TriggerType:        rule.Trigger.Type,
		TriggerConditions:  EncodeStatusConditions(desc.Status, d.StatusFrom, d.StatusTo, rule.Trigger.Conditions),
		TriggerConfig:      rule.Trigger.Config,
		ActionType:         rule.Action.Type,
		ActionConfig:       rule.Action.Config,
		ActionDelay:        rule.Action.Delay,
		MultiChannelConfig: rule.MultiChannel,
	}
	if record.TriggerConditions == nil {
		record.TriggerConditions = []Condition{}
	}
	if record.ActionConfig == nil {
		record.ActionConfig = MapOfAny{}
	}
	if rule.DeliveryWindow != nil {
		w := rule.DeliveryWindow.Normalize()
		record.DeliveryWindow = &w
	}
	return record
}

// DraftFromRecord rebuilds an editable draft from a stored row
func DraftFromRecord(r *AutomationRecord) AutomationDraft {
	conditions := r.TriggerConditions
	if len(conditions) == 0 {
		conditions = nil
	}
	rule := AutomationRule{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		Trigger: Trigger{
			Type:       r.TriggerType,
			Conditions: conditions,
			Config:     r.TriggerConfig,
		},
		Action: Action{
			Type:   r.ActionType,
			Config: r.ActionConfig,
			Delay:  r.ActionDelay,
		},
		DeliveryWindow: r.DeliveryWindow,
		MultiChannel:   r.MultiChannelConfig,
		UsageCount:     r.ExecutionCount,
		SuccessRate:    r.SuccessRate(),
	}
	return AutomationDraft{Rule: rule.Clone()}.Normalize()
}
