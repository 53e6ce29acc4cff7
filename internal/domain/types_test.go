package domain

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapOfAny_Scan(t *testing.T) {
	var m MapOfAny
	buf := []byte(`{"a":1,"b":{"c":"d"}}`)
	require.NoError(t, m.Scan(buf))
	copy(buf, []byte(`{"z":9}`))
	assert.Equal(t, float64(1), m["a"])

	var fromString MapOfAny
	require.NoError(t, fromString.Scan(`{"x":true}`))
	assert.Equal(t, true, fromString["x"])

	var untouched MapOfAny
	require.NoError(t, untouched.Scan(nil))
	assert.Nil(t, untouched)

	assert.Error(t, untouched.Scan(42))
}

func TestMapOfAny_Value(t *testing.T) {
	v, err := MapOfAny{"k": "v"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(v.([]byte)))
}

func TestMapOfAny_CloneIsDeep(t *testing.T) {
	m := MapOfAny{
		"nested": map[string]interface{}{"k": "v"},
		"list":   []interface{}{"a", map[string]interface{}{"x": 1}},
		"tags":   []string{"vip"},
	}
	c := m.Clone()
	c["nested"].(map[string]interface{})["k"] = "changed"
	c["list"].([]interface{})[1].(map[string]interface{})["x"] = 2
	c["tags"].([]string)[0] = "changed"

	assert.Equal(t, "v", m["nested"].(map[string]interface{})["k"])
	assert.Equal(t, 1, m["list"].([]interface{})[1].(map[string]interface{})["x"])
	assert.Equal(t, "vip", m["tags"].([]string)[0])
	assert.Nil(t, MapOfAny(nil).Clone())
}

func TestMapOfAny_Accessors(t *testing.T) {
	m := MapOfAny{
		"int":    3,
		"float":  4.0,
		"frac":   4.5,
		"string": " 7 ",
		"number": json.Number("9"),
		"word":   "nine",
	}

	for key, want := range map[string]int{"int": 3, "float": 4, "string": 7, "number": 9} {
		got, ok := m.Int(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
	for _, key := range []string{"frac", "word", "missing"} {
		_, ok := m.Int(key)
		assert.False(t, ok, key)
	}

	assert.Equal(t, "nine", m.String("word"))
	assert.Equal(t, "3", m.String("int"))
	assert.Equal(t, "", m.String("missing"))
}

func TestListAutomationsRequest(t *testing.T) {
	req := &ListAutomationsRequest{}
	err := req.FromURLParams(url.Values{
		"status":       {"active", "paused"},
		"trigger_type": {"job_created"},
		"limit":        {"20"},
		"offset":       {"40"},
	})
	require.NoError(t, err)

	filter := req.ToFilter()
	assert.Equal(t, []AutomationStatus{AutomationStatusActive, AutomationStatusPaused}, filter.Status)
	assert.Equal(t, TriggerJobCreated, filter.TriggerType)
	assert.Equal(t, 20, filter.Limit)
	assert.Equal(t, 40, filter.Offset)

	assert.Equal(t, DefaultListLimit, (&ListAutomationsRequest{}).ToFilter().Limit)

	assert.Error(t, (&ListAutomationsRequest{}).FromURLParams(url.Values{"status": {"archived"}}))
	assert.Error(t, (&ListAutomationsRequest{}).FromURLParams(url.Values{"limit": {"ten"}}))
	assert.Error(t, (&ListAutomationsRequest{}).FromURLParams(url.Values{"limit": {"500"}}))
	assert.Error(t, (&ListAutomationsRequest{}).FromURLParams(url.Values{"offset": {"-1"}}))
}

func TestAutomationIDRequest(t *testing.T) {
	req := &AutomationIDRequest{}
	assert.Error(t, req.FromURLParams(url.Values{}))
	require.NoError(t, req.FromURLParams(url.Values{"id": {"abc"}}))
	assert.Equal(t, "abc", req.ID)

	assert.Error(t, (&SaveAutomationRequest{}).ValidateForUpdate())
	assert.Error(t, (&FromTemplateRequest{}).Validate())
}

func TestDelay(t *testing.T) {
	assert.NoError(t, Delay{Unit: DelayImmediate}.Validate())
	assert.Error(t, Delay{Unit: DelayImmediate, Value: 3}.Validate())
	assert.Error(t, Delay{Unit: DelayDays}.Validate())
	assert.Error(t, Delay{Unit: "weeks", Value: 1}.Validate())

	assert.Equal(t, float64(48), Delay{Unit: DelayDays, Value: 2}.Duration().Hours())
	assert.Equal(t, float64(90), Delay{Unit: DelayMinutes, Value: 90}.Duration().Minutes())
	assert.Zero(t, Delay{Unit: DelayImmediate}.Duration())
}

func TestAIGenerationRequestValidate(t *testing.T) {
	req := &AIGenerationRequest{Prompt: "Write a reminder"}
	require.NoError(t, req.Validate())
	assert.Equal(t, AIModeDraftMessage, req.Mode)

	hot := 1.5
	assert.Error(t, (&AIGenerationRequest{Prompt: "x", Temperature: &hot}).Validate())
	assert.Error(t, (&AIGenerationRequest{Prompt: "  "}).Validate())
	assert.Error(t, (&AIGenerationRequest{Prompt: "x", Mode: "poem"}).Validate())
	assert.Error(t, (&AIGenerationRequest{Prompt: "x", MaxTokens: MaxAITokens + 1}).Validate())
	assert.Error(t, (&GenerateAutomationRequest{}).Validate())
}

func TestPreviewAndExecutionRequests(t *testing.T) {
	preview := &PreviewRequest{Body: "Hi"}
	require.NoError(t, preview.Validate())
	assert.Equal(t, ChannelSMS, preview.Channel)
	assert.Error(t, (&PreviewRequest{}).Validate())
	assert.Error(t, (&PreviewRequest{Body: "x", Channel: "fax"}).Validate())

	assert.NoError(t, (&ExecutionReport{RuleID: "r", OrganizationID: "o"}).Validate())
	assert.Error(t, (&ExecutionReport{OrganizationID: "o"}).Validate())
	assert.Error(t, (&ExecutionReport{RuleID: "r"}).Validate())
	assert.Error(t, (&ExecutionReport{RuleID: "r", OrganizationID: "o", Channel: "fax"}).Validate())
}

func TestErrors(t *testing.T) {
	notFound := &ErrNotFound{Entity: "automation", ID: "42"}
	assert.Equal(t, "automation not found with ID: 42", notFound.Error())

	ruleErr := &RuleValidationError{Result: newResult([]ValidationIssue{newIssue(CodeMissingName, "name", "Give the automation a name")})}
	assert.Equal(t, "automation is invalid: Give the automation a name", ruleErr.Error())
	assert.Equal(t, "automation is invalid", (&RuleValidationError{}).Error())

	cause := errors.New("401")
	aiErr := NewAIError(AIErrorUnauthorized, cause)
	assert.ErrorIs(t, aiErr, cause)
	assert.Contains(t, aiErr.Error(), "unauthorized")
	assert.NotEmpty(t, aiErr.UserMessage())
	assert.Equal(t, "AI generation failed, please try again", NewAIError(AIErrorUpstream, nil).UserMessage())
}
