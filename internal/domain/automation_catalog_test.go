package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allTriggerTypes = []TriggerType{
	TriggerJobCreated, TriggerJobScheduled, TriggerJobStatusChanged, TriggerJobStatusTo,
	TriggerJobCompleted, TriggerAppointmentReminder, TriggerAppointmentResched,
	TriggerInvoiceCreated, TriggerInvoiceSent, TriggerInvoiceOverdue, TriggerInvoicePaid,
	TriggerEstimateSent, TriggerEstimateApproved, TriggerEstimateDeclined, TriggerEstimateFollowUp,
	TriggerClientCreated, TriggerClientInactive,
}

var allActionTypes = []ActionType{
	ActionSendSMS, ActionSendEmail, ActionSendNotification, ActionCreateTask,
	ActionUpdateJobStatus, ActionAddClientTag, ActionWebhook,
}

func TestEveryTypeHasADescriptor(t *testing.T) {
	for _, tt := range allTriggerTypes {
		d, ok := LookupTrigger(tt)
		require.True(t, ok, "missing trigger descriptor for %s", tt)
		assert.NotEmpty(t, d.Label)
		assert.NotEmpty(t, d.Icon)
		assert.Contains(t, triggerCategoryOrder, d.Category)
	}
	assert.Len(t, triggerCatalog, len(allTriggerTypes))

	for _, at := range allActionTypes {
		d, ok := LookupAction(at)
		require.True(t, ok, "missing action descriptor for %s", at)
		assert.Contains(t, actionCategoryOrder, d.Category)
		if d.Channel != "" {
			assert.NotEmpty(t, d.MessageKey)
		}
	}
	assert.Len(t, actionCatalog, len(allActionTypes))
}

func TestListTriggers(t *testing.T) {
	t.Run("all keeps declaration order", func(t *testing.T) {
		all := ListTriggers("all")
		require.Len(t, all, len(triggerCatalog))
		for i, d := range all {
			assert.Equal(t, triggerCatalog[i].Type, d.Type)
		}
		assert.Equal(t, all, ListTriggers(""))
	})

	t.Run("by category", func(t *testing.T) {
		invoices := ListTriggers(string(TriggerCategoryInvoices))
		var types []TriggerType
		for _, d := range invoices {
			types = append(types, d.Type)
		}
		assert.Equal(t, []TriggerType{TriggerInvoiceCreated, TriggerInvoiceSent, TriggerInvoiceOverdue, TriggerInvoicePaid}, types)
	})

	t.Run("unknown category is empty", func(t *testing.T) {
		assert.Empty(t, ListTriggers("weather"))
	})

	t.Run("results are copies", func(t *testing.T) {
		list := ListTriggers(string(TriggerCategoryAppointments))
		list[0].ConfigFields[0].Label = "mutated"
		fresh, _ := LookupTrigger(TriggerAppointmentReminder)
		assert.Equal(t, "Hours before", fresh.ConfigFields[0].Label)
	})
}

func TestGroupTriggersAndActions(t *testing.T) {
	groups := GroupTriggers()
	require.Len(t, groups, len(triggerCategoryOrder))
	total := 0
	for i, g := range groups {
		assert.Equal(t, triggerCategoryOrder[i], g.Category)
		total += len(g.Triggers)
	}
	assert.Equal(t, len(triggerCatalog), total)

	actionGroups := GroupActions()
	require.Len(t, actionGroups, len(actionCategoryOrder))
	assert.Equal(t, ActionCategoryCommunication, actionGroups[0].Category)
	assert.Equal(t, ActionSendSMS, actionGroups[0].Actions[0].Type)
	assert.Len(t, ListActions(string(ActionCategoryData)), 2)
}

func TestStatusRequirements(t *testing.T) {
	changed, _ := LookupTrigger(TriggerJobStatusChanged)
	assert.Equal(t, StatusRequirementTransition, changed.Status)
	assert.True(t, changed.RequiresStatus())

	to, _ := LookupTrigger(TriggerJobStatusTo)
	assert.Equal(t, StatusRequirementTarget, to.Status)
	assert.True(t, to.RequiresStatus())

	created, _ := LookupTrigger(TriggerJobCreated)
	assert.False(t, created.RequiresStatus())
}

func TestLookupUnknown(t *testing.T) {
	_, ok := LookupTrigger("meteor_strike")
	assert.False(t, ok)
	_, ok = LookupAction("launch_rocket")
	assert.False(t, ok)

	fallback := TriggerDescriptorOrFallback("meteor_strike")
	assert.Equal(t, "Meteor Strike", fallback.Label)
	assert.Equal(t, "zap", fallback.Icon)
	assert.Equal(t, StatusRequirementNone, fallback.Status)

	action := ActionDescriptorOrFallback("launch_rocket")
	assert.Equal(t, "Launch Rocket", action.Label)

	assert.Equal(t, "Unknown", humanize(""))
	assert.Equal(t, "Élan Vital", humanize("élan_vital"))
	assert.Equal(t, "Überweisung Fällig", humanize("überweisung-fällig"))
}
