package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TriggerType identifies the business event that starts an automation
type TriggerType string

const (
	TriggerJobCreated          TriggerType = "job_created"
	TriggerJobScheduled        TriggerType = "job_scheduled"
	TriggerJobStatusChanged    TriggerType = "job_status_changed"
	TriggerJobStatusTo         TriggerType = "job_status_to"
	TriggerJobCompleted        TriggerType = "job_completed"
	TriggerAppointmentReminder TriggerType = "appointment_reminder"
	TriggerAppointmentResched  TriggerType = "appointment_rescheduled"
	TriggerInvoiceCreated      TriggerType = "invoice_created"
	TriggerInvoiceSent         TriggerType = "invoice_sent"
	TriggerInvoiceOverdue      TriggerType = "invoice_overdue"
	TriggerInvoicePaid         TriggerType = "invoice_paid"
	TriggerEstimateSent        TriggerType = "estimate_sent"
	TriggerEstimateApproved    TriggerType = "estimate_approved"
	TriggerEstimateDeclined    TriggerType = "estimate_declined"
	TriggerEstimateFollowUp    TriggerType = "estimate_follow_up"
	TriggerClientCreated       TriggerType = "client_created"
	TriggerClientInactive      TriggerType = "client_inactive"
)

type TriggerCategory string

const (
	TriggerCategoryJobs         TriggerCategory = "jobs"
	TriggerCategoryAppointments TriggerCategory = "appointments"
	TriggerCategoryInvoices     TriggerCategory = "invoices"
	TriggerCategoryEstimates    TriggerCategory = "estimates"
	TriggerCategoryClients      TriggerCategory = "clients"
)

var triggerCategoryOrder = []TriggerCategory{
	TriggerCategoryJobs,
	TriggerCategoryAppointments,
	TriggerCategoryInvoices,
	TriggerCategoryEstimates,
	TriggerCategoryClients,
}

// StatusRequirement says which job status values a trigger needs before it can be saved
type StatusRequirement string

const (
	StatusRequirementNone StatusRequirement = "none"
	// only the status the job moves into
	StatusRequirementTarget StatusRequirement = "target"
	// both the previous and the new status
	StatusRequirementTransition StatusRequirement = "transition"
)

// ConfigFieldType drives the input widget rendered for a config field
type ConfigFieldType string

const (
	ConfigFieldText     ConfigFieldType = "text"
	ConfigFieldTextarea ConfigFieldType = "textarea"
	ConfigFieldNumber   ConfigFieldType = "number"
	ConfigFieldSelect   ConfigFieldType = "select"
	ConfigFieldURL      ConfigFieldType = "url"
)

type ConfigField struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Type     ConfigFieldType `json:"type"`
	Required bool            `json:"required,omitempty"`
	Default  interface{}     `json:"default,omitempty"`
	Options  []string        `json:"options,omitempty"`
}

type TriggerDescriptor struct {
	Type         TriggerType       `json:"type"`
	Label        string            `json:"label"`
	Description  string            `json:"description"`
	Icon         string            `json:"icon"`
	Category     TriggerCategory   `json:"category"`
	Status       StatusRequirement `json:"status_requirement"`
	ConfigFields []ConfigField     `json:"config_fields,omitempty"`
}

// RequiresStatus reports whether the trigger needs any status condition
func (d TriggerDescriptor) RequiresStatus() bool {
	return d.Status == StatusRequirementTarget || d.Status == StatusRequirementTransition
}

type TriggerGroup struct {
	Category TriggerCategory     `json:"category"`
	Triggers []TriggerDescriptor `json:"triggers"`
}

// ActionType identifies what an automation does once triggered
type ActionType string

const (
	ActionSendSMS          ActionType = "send_sms"
	ActionSendEmail        ActionType = "send_email"
	ActionSendNotification ActionType = "send_notification"
	ActionCreateTask       ActionType = "create_task"
	ActionUpdateJobStatus  ActionType = "update_job_status"
	ActionAddClientTag     ActionType = "add_client_tag"
	ActionWebhook          ActionType = "webhook"
)

type ActionCategory string

const (
	ActionCategoryCommunication ActionCategory = "communication"
	ActionCategoryTasks         ActionCategory = "tasks"
	ActionCategoryData          ActionCategory = "data"
	ActionCategoryIntegrations  ActionCategory = "integrations"
)

var actionCategoryOrder = []ActionCategory{
	ActionCategoryCommunication,
	ActionCategoryTasks,
	ActionCategoryData,
	ActionCategoryIntegrations,
}

type ActionDescriptor struct {
	Type        ActionType     `json:"type"`
	Label       string         `json:"label"`
	Description string         `json:"description"`
	Icon        string         `json:"icon"`
	Category    ActionCategory `json:"category"`
	// Channel is set for actions that deliver a message to the client
	Channel Channel `json:"channel,omitempty"`
	// MessageKey is the config key holding the message text, empty when the action has none
	MessageKey   string        `json:"message_key,omitempty"`
	ConfigFields []ConfigField `json:"config_fields,omitempty"`
}

type ActionGroup struct {
	Category ActionCategory     `json:"category"`
	Actions  []ActionDescriptor `json:"actions"`
}

// JobStatuses lists the job statuses offered by the status pickers
var JobStatuses = []string{
	"pending",
	"scheduled",
	"dispatched",
	"in_progress",
	"on_hold",
	"completed",
	"invoiced",
	"cancelled",
}

var triggerCatalog = []TriggerDescriptor{
	{
		Type: TriggerJobCreated, Label: "Job Created", Icon: "briefcase", Category: TriggerCategoryJobs,
		Description: "A new job is added", Status: StatusRequirementNone,
	},
	{
		Type: TriggerJobScheduled, Label: "Job Scheduled", Icon: "calendar-plus", Category: TriggerCategoryJobs,
		Description: "A job is put on the calendar", Status: StatusRequirementNone,
	},
	{
		Type: TriggerJobStatusChanged, Label: "Job Status Changed", Icon: "arrow-right-left", Category: TriggerCategoryJobs,
		Description: "A job moves from one status to another", Status: StatusRequirementTransition,
	},
	{
		Type: TriggerJobStatusTo, Label: "Job Status Becomes", Icon: "flag", Category: TriggerCategoryJobs,
		Description: "A job enters a specific status", Status: StatusRequirementTarget,
	},
	{
		Type: TriggerJobCompleted, Label: "Job Completed", Icon: "check-circle", Category: TriggerCategoryJobs,
		Description: "A job is marked complete", Status: StatusRequirementNone,
	},
	{
		Type: TriggerAppointmentReminder, Label: "Before Appointment", Icon: "alarm-clock", Category: TriggerCategoryAppointments,
		Description: "A set number of hours before a scheduled visit", Status: StatusRequirementNone,
		ConfigFields: []ConfigField{
			{Key: "hours_before", Label: "Hours before", Type: ConfigFieldNumber, Required: true, Default: 24},
		},
	},
	{
		Type: TriggerAppointmentResched, Label: "Appointment Rescheduled", Icon: "calendar-clock", Category: TriggerCategoryAppointments,
		Description: "A scheduled visit is moved", Status: StatusRequirementNone,
	},
	{
		Type: TriggerInvoiceCreated, Label: "Invoice Created", Icon: "file-plus", Category: TriggerCategoryInvoices,
		Description: "A new invoice is drafted", Status: StatusRequirementNone,
	},
	{
		Type: TriggerInvoiceSent, Label: "Invoice Sent", Icon: "send", Category: TriggerCategoryInvoices,
		Description: "An invoice is sent to the client", Status: StatusRequirementNone,
	},
	{
		Type: TriggerInvoiceOverdue, Label: "Invoice Overdue", Icon: "alert-triangle", Category: TriggerCategoryInvoices,
		Description: "An invoice is unpaid past its due date", Status: StatusRequirementNone,
		ConfigFields: []ConfigField{
			{Key: "days_overdue", Label: "Days overdue", Type: ConfigFieldNumber, Required: true, Default: 1},
		},
	},
	{
		Type: TriggerInvoicePaid, Label: "Invoice Paid", Icon: "dollar-sign", Category: TriggerCategoryInvoices,
		Description: "A payment settles an invoice", Status: StatusRequirementNone,
	},
	{
		Type: TriggerEstimateSent, Label: "Estimate Sent", Icon: "file-text", Category: TriggerCategoryEstimates,
		Description: "An estimate is sent to the client", Status: StatusRequirementNone,
	},
	{
		Type: TriggerEstimateApproved, Label: "Estimate Approved", Icon: "thumbs-up", Category: TriggerCategoryEstimates,
		Description: "The client approves an estimate", Status: StatusRequirementNone,
	},
	{
		Type: TriggerEstimateDeclined, Label: "Estimate Declined", Icon: "thumbs-down", Category: TriggerCategoryEstimates,
		Description: "The client declines an estimate", Status: StatusRequirementNone,
	},
	{
		Type: TriggerEstimateFollowUp, Label: "Estimate Not Answered", Icon: "hourglass", Category: TriggerCategoryEstimates,
		Description: "An estimate has no answer after a number of days", Status: StatusRequirementNone,
		ConfigFields: []ConfigField{
			{Key: "days_after", Label: "Days after sending", Type: ConfigFieldNumber, Required: true, Default: 3},
		},
	},
	{
		Type: TriggerClientCreated, Label: "New Client", Icon: "user-plus", Category: TriggerCategoryClients,
		Description: "A client is added", Status: StatusRequirementNone,
	},
	{
		Type: TriggerClientInactive, Label: "Client Inactive", Icon: "user-x", Category: TriggerCategoryClients,
		Description: "A client has had no job for a number of days", Status: StatusRequirementNone,
		ConfigFields: []ConfigField{
			{Key: "days_inactive", Label: "Days without a job", Type: ConfigFieldNumber, Required: true, Default: 180},
		},
	},
}

var actionCatalog = []ActionDescriptor{
	{
		Type: ActionSendSMS, Label: "Send SMS", Icon: "message-square", Category: ActionCategoryCommunication,
		Description: "Text the client", Channel: ChannelSMS, MessageKey: "message",
		ConfigFields: []ConfigField{
			{Key: "message", Label: "Message", Type: ConfigFieldTextarea, Required: true},
		},
	},
	{
		Type: ActionSendEmail, Label: "Send Email", Icon: "mail", Category: ActionCategoryCommunication,
		Description: "Email the client", Channel: ChannelEmail, MessageKey: "body",
		ConfigFields: []ConfigField{
			{Key: "subject", Label: "Subject", Type: ConfigFieldText, Required: true},
			{Key: "body", Label: "Body", Type: ConfigFieldTextarea, Required: true},
		},
	},
	{
		Type: ActionSendNotification, Label: "Notify Team", Icon: "bell", Category: ActionCategoryCommunication,
		Description: "Send an in-app notification to staff", MessageKey: "message",
		ConfigFields: []ConfigField{
			{Key: "recipient", Label: "Recipient", Type: ConfigFieldSelect, Required: true, Default: "assigned_technician",
				Options: []string{"assigned_technician", "office", "all_staff"}},
			{Key: "message", Label: "Message", Type: ConfigFieldTextarea, Required: true},
		},
	},
	{
		Type: ActionCreateTask, Label: "Create Task", Icon: "clipboard-list", Category: ActionCategoryTasks,
		Description: "Add a follow-up task",
		ConfigFields: []ConfigField{
			{Key: "title", Label: "Task title", Type: ConfigFieldText, Required: true},
			{Key: "assignee", Label: "Assign to", Type: ConfigFieldSelect, Default: "office",
				Options: []string{"assigned_technician", "office"}},
			{Key: "due_in_days", Label: "Due in (days)", Type: ConfigFieldNumber, Default: 1},
		},
	},
	{
		Type: ActionUpdateJobStatus, Label: "Update Job Status", Icon: "refresh-cw", Category: ActionCategoryData,
		Description: "Move the job to another status",
		ConfigFields: []ConfigField{
			{Key: "status", Label: "New status", Type: ConfigFieldSelect, Required: true, Options: JobStatuses},
		},
	},
	{
		Type: ActionAddClientTag, Label: "Tag Client", Icon: "tag", Category: ActionCategoryData,
		Description: "Add a tag to the client record",
		ConfigFields: []ConfigField{
			{Key: "tag", Label: "Tag", Type: ConfigFieldText, Required: true},
		},
	},
	{
		Type: ActionWebhook, Label: "Call Webhook", Icon: "webhook", Category: ActionCategoryIntegrations,
		Description: "POST the event to an external URL",
		ConfigFields: []ConfigField{
			{Key: "url", Label: "URL", Type: ConfigFieldURL, Required: true},
		},
	},
}

var (
	triggerIndex = indexTriggers(triggerCatalog)
	actionIndex  = indexActions(actionCatalog)
)

func indexTriggers(list []TriggerDescriptor) map[TriggerType]int {
	idx := make(map[TriggerType]int, len(list))
	for i, d := range list {
		idx[d.Type] = i
	}
	return idx
}

func indexActions(list []ActionDescriptor) map[ActionType]int {
	idx := make(map[ActionType]int, len(list))
	for i, d := range list {
		idx[d.Type] = i
	}
	return idx
}

func isAllCategory(category string) bool {
	return category == "" || category == "all"
}

// ListTriggers returns the triggers of a category in declaration order, or all of them
// for "" and "all"
func ListTriggers(category string) []TriggerDescriptor {
	out := make([]TriggerDescriptor, 0, len(triggerCatalog))
	for _, d := range triggerCatalog {
		if isAllCategory(category) || string(d.Category) == category {
			out = append(out, d.clone())
		}
	}
	return out
}

// GroupTriggers returns the triggers grouped by category in display order
func GroupTriggers() []TriggerGroup {
	groups := make([]TriggerGroup, 0, len(triggerCategoryOrder))
	for _, c := range triggerCategoryOrder {
		groups = append(groups, TriggerGroup{Category: c, Triggers: ListTriggers(string(c))})
	}
	return groups
}

// ListActions returns the actions of a category, or all of them for "" and "all"
func ListActions(category string) []ActionDescriptor {
	out := make([]ActionDescriptor, 0, len(actionCatalog))
	for _, d := range actionCatalog {
		if isAllCategory(category) || string(d.Category) == category {
			out = append(out, d.clone())
		}
	}
	return out
}

// GroupActions returns the actions grouped by category in display order
func GroupActions() []ActionGroup {
	groups := make([]ActionGroup, 0, len(actionCategoryOrder))
	for _, c := range actionCategoryOrder {
		groups = append(groups, ActionGroup{Category: c, Actions: ListActions(string(c))})
	}
	return groups
}

// LookupTrigger returns a copy of the catalog entry for t
func LookupTrigger(t TriggerType) (TriggerDescriptor, bool) {
	i, ok := triggerIndex[t]
	if !ok {
		return TriggerDescriptor{}, false
	}
	return triggerCatalog[i].clone(), true
}

// LookupAction returns a copy of the catalog entry for t
func LookupAction(t ActionType) (ActionDescriptor, bool) {
	i, ok := actionIndex[t]
	if !ok {
		return ActionDescriptor{}, false
	}
	return actionCatalog[i].clone(), true
}

// TriggerDescriptorOrFallback never fails; unknown types get a generic descriptor
func TriggerDescriptorOrFallback(t TriggerType) TriggerDescriptor {
	if d, ok := LookupTrigger(t); ok {
		return d
	}
	return TriggerDescriptor{
		Type:   t,
		Label:  humanize(string(t)),
		Icon:   "zap",
		Status: StatusRequirementNone,
	}
}

// ActionDescriptorOrFallback never fails; unknown types get a generic descriptor
func ActionDescriptorOrFallback(t ActionType) ActionDescriptor {
	if d, ok := LookupAction(t); ok {
		return d
	}
	return ActionDescriptor{
		Type:  t,
		Label: humanize(string(t)),
		Icon:  "zap",
	}
}

// humanize turns "invoice_overdue" into "Invoice Overdue"
func humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return "Unknown"
	}
	return strings.Join(words, " ")
}

func (d TriggerDescriptor) clone() TriggerDescriptor {
	d.ConfigFields = cloneConfigFields(d.ConfigFields)
	return d
}

func (d ActionDescriptor) clone() ActionDescriptor {
	d.ConfigFields = cloneConfigFields(d.ConfigFields)
	return d
}

func cloneConfigFields(fields []ConfigField) []ConfigField {
	if fields == nil {
		return nil
	}
	out := make([]ConfigField, len(fields))
	for i, f := range fields {
		f.Options = append([]string(nil), f.Options...)
		out[i] = f
	}
	return out
}

// configDefaults builds a config map holding every field that declares a default
func configDefaults(fields []ConfigField) MapOfAny {
	out := MapOfAny{}
	for _, f := range fields {
		if f.Default != nil {
			out[f.Key] = f.Default
		}
	}
	return out
}
