package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSMSDraft() AutomationDraft {
	return StartBlank().Apply(
		SetName{Name: "Reminder"},
		SetTrigger{Type: TriggerAppointmentReminder},
		SetAction{Type: ActionSendSMS},
		SetActionConfig{Key: "message", Value: "Hi {{client_first_name}}"},
	)
}

func TestStartBlank(t *testing.T) {
	d := StartBlank()
	assert.Equal(t, AutomationStatusDraft, d.Rule.Status)
	assert.NotNil(t, d.Rule.Action.Config)

	result := d.Validate()
	assert.False(t, result.Valid)
	assert.True(t, result.Has(CodeMissingName))
	assert.True(t, result.Has(CodeMissingTrigger))
	assert.True(t, result.Has(CodeMissingAction))
}

func TestStartFromTemplate(t *testing.T) {
	tpl, ok := FindTemplate(BusinessFieldService, "appointment_24h")
	require.True(t, ok)

	d := StartFromTemplate(tpl)
	assert.Empty(t, d.Rule.ID)
	assert.Equal(t, AutomationStatusDraft, d.Rule.Status)
	assert.Equal(t, TriggerAppointmentReminder, d.Rule.Trigger.Type)
	assert.Equal(t, 24, d.Rule.Trigger.Config["hours_before"])
	assert.Contains(t, d.Rule.Action.Config.String("message"), "{{client_first_name}}")
	require.NotNil(t, d.Rule.DeliveryWindow)
	assert.Equal(t, "09:00", d.Rule.DeliveryWindow.TimeRange.Start)
	require.NotNil(t, d.Rule.MultiChannel)
	assert.Equal(t, ChannelEmail, d.Rule.MultiChannel.FallbackChannel)
	assert.True(t, d.Validate().Valid)

	d.Rule.Action.Config["message"] = "edited"
	again, _ := FindTemplate(BusinessFieldService, "appointment_24h")
	assert.NotEqual(t, "edited", again.Rule.Action.Config["message"])
}

func TestStartFromTemplate_LiftsStatusConditions(t *testing.T) {
	tpl, ok := FindTemplate(BusinessPlumbing, "plumbing_post_repair_check")
	require.True(t, ok)

	d := StartFromTemplate(tpl)
	assert.Equal(t, "in_progress", d.StatusFrom)
	assert.Equal(t, "completed", d.StatusTo)
	assert.Empty(t, d.Rule.Trigger.Conditions)

	direct, _ := FindTemplate(BusinessFieldService, "technician_on_the_way")
	d = StartFromTemplate(direct)
	assert.Equal(t, "scheduled", d.StatusFrom)
	assert.Equal(t, "dispatched", d.StatusTo)
	assert.Empty(t, d.Rule.Trigger.StatusFrom)
}

func TestApplyDoesNotMutateReceiver(t *testing.T) {
	base := validSMSDraft()
	next := base.Apply(SetName{Name: "Other"}, SetActionConfig{Key: "message", Value: "changed"})

	assert.Equal(t, "Reminder", base.Rule.Name)
	assert.Equal(t, "Hi {{client_first_name}}", base.Rule.Action.Config["message"])
	assert.Equal(t, "Other", next.Rule.Name)
}

func TestSetTrigger(t *testing.T) {
	t.Run("defaults come from the descriptor", func(t *testing.T) {
		d := StartBlank().Apply(SetTrigger{Type: TriggerInvoiceOverdue})
		assert.Equal(t, 1, d.Rule.Trigger.Config["days_overdue"])
	})

	t.Run("switching to a trigger without status clears both targets", func(t *testing.T) {
		d := StartBlank().Apply(
			SetTrigger{Type: TriggerJobStatusChanged},
			SetStatusFrom{Status: "scheduled"},
			SetStatusTo{Status: "dispatched"},
			SetTrigger{Type: TriggerJobCreated},
		)
		assert.Empty(t, d.StatusFrom)
		assert.Empty(t, d.StatusTo)
	})

	t.Run("switching to a target trigger keeps only the target", func(t *testing.T) {
		d := StartBlank().Apply(
			SetTrigger{Type: TriggerJobStatusChanged},
			SetStatusFrom{Status: "scheduled"},
			SetStatusTo{Status: "dispatched"},
			SetTrigger{Type: TriggerJobStatusTo},
		)
		assert.Empty(t, d.StatusFrom)
		assert.Equal(t, "dispatched", d.StatusTo)
	})

	t.Run("reselecting the same type keeps config", func(t *testing.T) {
		d := StartBlank().Apply(
			SetTrigger{Type: TriggerAppointmentReminder},
			SetTriggerConfig{Key: "hours_before", Value: 2},
			SetTrigger{Type: TriggerAppointmentReminder},
		)
		assert.Equal(t, 2, d.Rule.Trigger.Config["hours_before"])
	})
}

func TestSetAction(t *testing.T) {
	t.Run("sms text moves to the email body", func(t *testing.T) {
		d := validSMSDraft().Apply(SetAction{Type: ActionSendEmail})
		assert.Equal(t, "Hi {{client_first_name}}", d.Rule.Action.Config["body"])
		assert.Equal(t, "", d.Rule.Action.Config["subject"])
		assert.NotContains(t, d.Rule.Action.Config, "message")
	})

	t.Run("email back to sms drops the subject", func(t *testing.T) {
		d := validSMSDraft().Apply(
			SetAction{Type: ActionSendEmail},
			SetActionConfig{Key: "subject", Value: "Reminder"},
			SetAction{Type: ActionSendSMS},
		)
		assert.Equal(t, MapOfAny{"message": "Hi {{client_first_name}}"}, d.Rule.Action.Config)
	})

	t.Run("delay is preserved", func(t *testing.T) {
		d := validSMSDraft().Apply(
			SetDelay{Delay: &Delay{Unit: DelayHours, Value: 2}},
			SetAction{Type: ActionSendEmail},
		)
		require.NotNil(t, d.Rule.Action.Delay)
		assert.Equal(t, 2, d.Rule.Action.Delay.Value)
	})

	t.Run("non message actions get their defaults", func(t *testing.T) {
		d := validSMSDraft().Apply(SetAction{Type: ActionCreateTask})
		assert.Equal(t, MapOfAny{"assignee": "office", "due_in_days": 1}, d.Rule.Action.Config)
	})
}

func TestSetDelayAndPolicies(t *testing.T) {
	d := validSMSDraft().Apply(SetDelay{Delay: &Delay{Unit: DelayImmediate}})
	assert.Nil(t, d.Rule.Action.Delay)

	d = d.Apply(SetDeliveryWindow{Window: &DeliveryWindow{AllowedDays: []Weekday{"Friday", Monday, "monday"}}})
	assert.Equal(t, []Weekday{Monday, Friday}, d.Rule.DeliveryWindow.AllowedDays)

	d = d.Apply(SetDeliveryWindow{}, SetMultiChannel{Config: &MultiChannelConfig{PrimaryChannel: ChannelSMS}})
	assert.Nil(t, d.Rule.DeliveryWindow)
	assert.Equal(t, ChannelSMS, d.Rule.MultiChannel.PrimaryChannel)

	d = d.Apply(SetActionConfig{Key: "message", Value: nil})
	assert.NotContains(t, d.Rule.Action.Config, "message")
}

func TestSetConditions(t *testing.T) {
	d := StartBlank().Apply(
		SetTrigger{Type: TriggerJobStatusTo},
		SetConditions{Conditions: []Condition{
			{Field: "status", Operator: OperatorEquals, Value: "completed"},
			{Field: "job_type", Operator: OperatorEquals, Value: "install"},
		}},
	)
	assert.Equal(t, "completed", d.StatusTo)
	assert.Equal(t, []Condition{{Field: "job_type", Operator: OperatorEquals, Value: "install"}}, d.Rule.Trigger.Conditions)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		draft     AutomationDraft
		wantValid bool
		wantCodes []ValidationCode
	}{
		{
			name:      "valid sms",
			draft:     validSMSDraft(),
			wantValid: true,
		},
		{
			name:      "target trigger without target",
			draft:     validSMSDraft().Apply(SetTrigger{Type: TriggerJobStatusTo}),
			wantCodes: []ValidationCode{CodeMissingStatusTarget},
		},
		{
			name:      "transition trigger without from",
			draft:     validSMSDraft().Apply(SetTrigger{Type: TriggerJobStatusChanged}, SetStatusTo{Status: "completed"}),
			wantCodes: []ValidationCode{CodeMissingStatusTarget},
		},
		{
			name:      "unknown trigger",
			draft:     validSMSDraft().Apply(SetTrigger{Type: "asteroid"}),
			wantCodes: []ValidationCode{CodeUnknownTrigger},
		},
		{
			name:      "unknown action",
			draft:     validSMSDraft().Apply(SetAction{Type: "teleport"}),
			wantCodes: []ValidationCode{CodeUnknownAction},
		},
		{
			name:      "non positive trigger config",
			draft:     validSMSDraft().Apply(SetTriggerConfig{Key: "hours_before", Value: 0}),
			wantCodes: []ValidationCode{CodeInvalidTriggerCfg},
		},
		{
			name:      "bad condition",
			draft:     validSMSDraft().Apply(SetConditions{Conditions: []Condition{{Field: "", Operator: OperatorEquals}}}),
			wantCodes: []ValidationCode{CodeInvalidCondition},
		},
		{
			name:      "bad delay",
			draft:     validSMSDraft().Apply(SetDelay{Delay: &Delay{Unit: DelayHours, Value: -1}}),
			wantCodes: []ValidationCode{CodeInvalidDelay},
		},
		{
			name: "webhook url",
			draft: validSMSDraft().Apply(
				SetAction{Type: ActionWebhook},
				SetActionConfig{Key: "url", Value: "not a url"},
			),
			wantCodes: []ValidationCode{CodeInvalidWebhookURL},
		},
		{
			name:      "missing required action field",
			draft:     validSMSDraft().Apply(SetAction{Type: ActionAddClientTag}),
			wantCodes: []ValidationCode{CodeMissingActionField},
		},
		{
			name: "bad delivery window",
			draft: validSMSDraft().Apply(SetDeliveryWindow{Window: &DeliveryWindow{
				AllowedDays: []Weekday{"funday"},
				TimeRange:   &TimeRange{Start: "18:00", End: "09:00"},
			}}),
			wantCodes: []ValidationCode{CodeInvalidWeekday, CodeInvalidTimeRange},
		},
		{
			name: "fallback out of range",
			draft: validSMSDraft().Apply(SetMultiChannel{Config: &MultiChannelConfig{
				PrimaryChannel: ChannelSMS, FallbackEnabled: true, FallbackChannel: ChannelEmail, FallbackDelayHours: 72,
			}}),
			wantCodes: []ValidationCode{CodeFallbackDelayInRange},
		},
		{
			name:      "invalid rule status",
			draft:     validSMSDraft().Apply(SetStatus{Status: "archived"}),
			wantCodes: []ValidationCode{CodeInvalidStatus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.draft.Validate()
			assert.Equal(t, tt.wantValid, result.Valid, "%+v", result.Issues)
			for _, code := range tt.wantCodes {
				assert.True(t, result.Has(code), "expected %s in %+v", code, result.Issues)
			}
		})
	}
}

func TestValidate_WarningsDoNotBlock(t *testing.T) {
	d := validSMSDraft().Apply(SetActionConfig{Key: "message", Value: "Hi {{nickname}}"})
	result := d.Validate()
	assert.True(t, result.Valid)
	assert.True(t, result.Has(CodeUnknownPlaceholder))

	d = validSMSDraft().Apply(SetActionConfig{Key: "message", Value: "  "})
	result = d.Validate()
	assert.True(t, result.Valid)
	assert.True(t, result.Has(CodeEmptyMessage))

	d = validSMSDraft().Apply(SetAction{Type: ActionSendEmail})
	result = d.Validate()
	assert.True(t, result.Valid)
	assert.True(t, result.Has(CodeEmptySubject))
	assert.Empty(t, result.Errors())
}

func TestValidate_DoesNotMutate(t *testing.T) {
	d := validSMSDraft().Apply(SetDeliveryWindow{Window: &DeliveryWindow{AllowedDays: []Weekday{Friday}}})
	before := d.Clone()
	d.Validate()
	assert.Equal(t, before, d)
}

func TestPersistableRecordRoundTrip(t *testing.T) {
	t.Run("transition trigger", func(t *testing.T) {
		d := validSMSDraft().Apply(
			SetTrigger{Type: TriggerJobStatusChanged},
			SetStatusFrom{Status: "scheduled"},
			SetStatusTo{Status: "dispatched"},
			SetConditions{Conditions: []Condition{{Field: "priority", Operator: OperatorEquals, Value: "high"}}},
			SetDelay{Delay: &Delay{Unit: DelayMinutes, Value: 15}},
		)
		record := d.ToPersistableRecord()
		assert.Equal(t, []Condition{
			{Field: "priority", Operator: OperatorEquals, Value: "high"},
			{Field: ConditionFieldStatusFrom, Operator: OperatorEquals, Value: "scheduled"},
			{Field: ConditionFieldStatusTo, Operator: OperatorEquals, Value: "dispatched"},
		}, record.TriggerConditions)

		back := DraftFromRecord(&record)
		assert.Equal(t, d, back)
	})

	t.Run("target trigger", func(t *testing.T) {
		d := validSMSDraft().Apply(SetTrigger{Type: TriggerJobStatusTo}, SetStatusTo{Status: "completed"})
		record := d.ToPersistableRecord()
		assert.Equal(t, []Condition{{Field: ConditionFieldStatus, Operator: OperatorEquals, Value: "completed"}}, record.TriggerConditions)
		assert.Equal(t, d, DraftFromRecord(&record))
	})

	t.Run("no conditions is stored as empty list", func(t *testing.T) {
		d := validSMSDraft()
		record := d.ToPersistableRecord()
		assert.NotNil(t, record.TriggerConditions)
		assert.Empty(t, record.TriggerConditions)
		assert.Equal(t, AutomationStatusDraft, record.Status)
		assert.Equal(t, d, DraftFromRecord(&record))
	})

	t.Run("every template survives", func(t *testing.T) {
		for _, bt := range BusinessTypes() {
			for _, tpl := range ListTemplates(bt) {
				d := StartFromTemplate(tpl)
				record := d.ToPersistableRecord()
				assert.Equal(t, d, DraftFromRecord(&record), tpl.ID)
			}
		}
	})
}

func TestDraftFromRecord_Counters(t *testing.T) {
	record := validSMSDraft().ToPersistableRecord()
	record.ID = "rule-1"
	record.ExecutionCount = 8
	record.SuccessCount = 6

	d := DraftFromRecord(&record)
	assert.Equal(t, "rule-1", d.Rule.ID)
	assert.Equal(t, int64(8), d.Rule.UsageCount)
	assert.Equal(t, 75.0, d.Rule.SuccessRate)
}
