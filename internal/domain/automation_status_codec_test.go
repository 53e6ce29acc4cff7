package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStatusConditions(t *testing.T) {
	tests := []struct {
		name     string
		req      StatusRequirement
		trigger  Trigger
		wantFrom string
		wantTo   string
		wantRest []Condition
	}{
		{
			name:     "direct fields",
			req:      StatusRequirementTransition,
			trigger:  Trigger{StatusFrom: "scheduled", StatusTo: "dispatched"},
			wantFrom: "scheduled",
			wantTo:   "dispatched",
		},
		{
			name: "legacy status field is the target",
			req:  StatusRequirementTarget,
			trigger: Trigger{Conditions: []Condition{
				{Field: "status", Operator: OperatorEquals, Value: "completed"},
			}},
			wantTo: "completed",
		},
		{
			name: "legacy transition",
			req:  StatusRequirementTransition,
			trigger: Trigger{Conditions: []Condition{
				{Field: "status_from", Operator: OperatorEquals, Value: "in_progress"},
				{Field: "status_to", Operator: OperatorEquals, Value: "completed"},
			}},
			wantFrom: "in_progress",
			wantTo:   "completed",
		},
		{
			name: "direct fields win over conditions",
			req:  StatusRequirementTarget,
			trigger: Trigger{
				StatusTo:   "invoiced",
				Conditions: []Condition{{Field: "status", Operator: OperatorEquals, Value: "completed"}},
			},
			wantTo:   "invoiced",
			wantRest: []Condition{{Field: "status", Operator: OperatorEquals, Value: "completed"}},
		},
		{
			name: "other conditions survive in order",
			req:  StatusRequirementTarget,
			trigger: Trigger{Conditions: []Condition{
				{Field: "job_type", Operator: OperatorEquals, Value: "repair"},
				{Field: "status", Operator: OperatorEquals, Value: "completed"},
				{Field: "status", Operator: OperatorNotEquals, Value: "cancelled"},
			}},
			wantTo: "completed",
			wantRest: []Condition{
				{Field: "job_type", Operator: OperatorEquals, Value: "repair"},
				{Field: "status", Operator: OperatorNotEquals, Value: "cancelled"},
			},
		},
		{
			name: "no status requirement keeps status conditions",
			req:  StatusRequirementNone,
			trigger: Trigger{
				StatusTo:   "paid",
				Conditions: []Condition{{Field: "status", Operator: OperatorEquals, Value: "unpaid"}},
			},
			wantRest: []Condition{{Field: "status", Operator: OperatorEquals, Value: "unpaid"}},
		},
		{
			name: "target trigger keeps status_from",
			req:  StatusRequirementTarget,
			trigger: Trigger{Conditions: []Condition{
				{Field: "status_from", Operator: OperatorEquals, Value: "scheduled"},
				{Field: "status", Operator: OperatorEquals, Value: "completed"},
			}},
			wantTo:   "completed",
			wantRest: []Condition{{Field: "status_from", Operator: OperatorEquals, Value: "scheduled"}},
		},
		{
			name: "second target stays a condition",
			req:  StatusRequirementTransition,
			trigger: Trigger{Conditions: []Condition{
				{Field: "status_to", Operator: OperatorEquals, Value: "completed"},
				{Field: "status", Operator: OperatorEquals, Value: "invoiced"},
			}},
			wantTo:   "completed",
			wantRest: []Condition{{Field: "status", Operator: OperatorEquals, Value: "invoiced"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, rest := DecodeStatusConditions(tt.req, tt.trigger)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestEncodeStatusConditions(t *testing.T) {
	extra := []Condition{{Field: "job_type", Operator: OperatorEquals, Value: "repair"}}

	assert.Equal(t, []Condition{
		extra[0],
		{Field: "status_from", Operator: OperatorEquals, Value: "scheduled"},
		{Field: "status_to", Operator: OperatorEquals, Value: "dispatched"},
	}, EncodeStatusConditions(StatusRequirementTransition, "scheduled", "dispatched", extra))

	assert.Equal(t, []Condition{
		{Field: "status", Operator: OperatorEquals, Value: "completed"},
	}, EncodeStatusConditions(StatusRequirementTarget, "ignored", "completed", nil))

	assert.Nil(t, EncodeStatusConditions(StatusRequirementNone, "a", "b", nil))
}

func TestStatusCodecRoundTrip(t *testing.T) {
	extra := []Condition{
		{Field: "priority", Operator: OperatorEquals, Value: "high"},
		{Field: "status", Operator: OperatorNotEquals, Value: "cancelled"},
	}
	cases := []struct {
		req      StatusRequirement
		from, to string
	}{
		{StatusRequirementTransition, "scheduled", "in_progress"},
		{StatusRequirementTransition, "", "completed"},
		{StatusRequirementTarget, "", "completed"},
		{StatusRequirementTarget, "", ""},
		{StatusRequirementNone, "", ""},
	}
	for _, c := range cases {
		encoded := EncodeStatusConditions(c.req, c.from, c.to, extra)
		from, to, rest := DecodeStatusConditions(c.req, Trigger{Conditions: encoded})
		assert.Equal(t, c.from, from)
		assert.Equal(t, c.to, to)
		assert.Equal(t, extra, rest)
	}
}

func TestDraftRecordRoundTripKeepsConditions(t *testing.T) {
	tests := []struct {
		name       string
		trigger    TriggerType
		conditions []Condition
	}{
		{
			name:       "status condition on an invoice trigger",
			trigger:    TriggerInvoiceOverdue,
			conditions: []Condition{{Field: "status", Operator: OperatorEquals, Value: "unpaid"}},
		},
		{
			name:    "status_from on a target trigger",
			trigger: TriggerJobStatusTo,
			conditions: []Condition{
				{Field: "status_from", Operator: OperatorEquals, Value: "scheduled"},
				{Field: "status", Operator: OperatorEquals, Value: "completed"},
			},
		},
		{
			name:    "transition trigger",
			trigger: TriggerJobStatusChanged,
			conditions: []Condition{
				{Field: "job_type", Operator: OperatorEquals, Value: "repair"},
				{Field: "status_from", Operator: OperatorEquals, Value: "scheduled"},
				{Field: "status_to", Operator: OperatorEquals, Value: "in_progress"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &AutomationRecord{
				Name:              "Rule",
				Status:            AutomationStatusActive,
				TriggerType:       tt.trigger,
				TriggerConditions: tt.conditions,
				ActionType:        ActionSendSMS,
				ActionConfig:      MapOfAny{"message": "hi"},
			}

			first := DraftFromRecord(record).ToPersistableRecord()
			assert.ElementsMatch(t, tt.conditions, first.TriggerConditions)

			second := DraftFromRecord(&first).ToPersistableRecord()
			assert.Equal(t, first.TriggerConditions, second.TriggerConditions)
		})
	}
}
