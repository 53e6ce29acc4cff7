package domain

import (
	"fmt"
	"strings"
)

// Condition fields used by the legacy status encoding. Target-only triggers store the
// target under "status", transition triggers under "status_from" and "status_to".
const (
	ConditionFieldStatus     = "status"
	ConditionFieldStatusFrom = "status_from"
	ConditionFieldStatusTo   = "status_to"
)

// DecodeStatusConditions reads the status targets a trigger with requirement req
// consumes, whichever way they were stored. Direct fields win over conditions. Only
// equality conditions on a status field the requirement uses are consumed, one per
// slot; every other condition is returned in its original order so that encoding the
// result gives the same rule back.
func DecodeStatusConditions(req StatusRequirement, t Trigger) (statusFrom, statusTo string, rest []Condition) {
	switch req {
	case StatusRequirementTransition:
		statusFrom = t.StatusFrom
		statusTo = t.StatusTo
	case StatusRequirementTarget:
		statusTo = t.StatusTo
	}

	for _, c := range t.Conditions {
		if c.Operator != OperatorEquals && c.Operator != "" {
			rest = append(rest, c)
			continue
		}
		value := conditionString(c.Value)

		switch field := strings.ToLower(strings.TrimSpace(c.Field)); {
		case req == StatusRequirementTransition && field == ConditionFieldStatusFrom && statusFrom == "":
			statusFrom = value
		case req != StatusRequirementNone && (field == ConditionFieldStatus || field == ConditionFieldStatusTo) && statusTo == "":
			statusTo = value
		default:
			rest = append(rest, c)
		}
	}
	return statusFrom, statusTo, cloneConditions(rest)
}

// EncodeStatusConditions folds status targets into conditions for the persisted row.
// Values not applicable to the requirement are dropped.
func EncodeStatusConditions(req StatusRequirement, statusFrom, statusTo string, rest []Condition) []Condition {
	out := cloneConditions(rest)

	switch req {
	case StatusRequirementTransition:
		if statusFrom != "" {
			out = append(out, Condition{Field: ConditionFieldStatusFrom, Operator: OperatorEquals, Value: statusFrom})
		}
		if statusTo != "" {
			out = append(out, Condition{Field: ConditionFieldStatusTo, Operator: OperatorEquals, Value: statusTo})
		}
	case StatusRequirementTarget:
		if statusTo != "" {
			out = append(out, Condition{Field: ConditionFieldStatus, Operator: OperatorEquals, Value: statusTo})
		}
	}
	return out
}

func conditionString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}
