// Package models provides conditional predicate evaluation for form fields.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator enumerates the supported predicate operators.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
)

// Valid reports whether the operator is one of the supported set.
func (op ConditionOperator) Valid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains, OperatorGreaterThan, OperatorLessThan:
		return true
	default:
		return false
	}
}

// Condition gates a field on the current value of another field. A field
// whose condition evaluates false is skipped entirely by the validator.
type Condition struct {
	Field    string            `json:"field"    validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required"`
	Value    any               `json:"value"`
}

// Matches evaluates the predicate against the current payload. Missing or
// uncomparable values fail the predicate rather than erroring; a hidden
// field is the safe default.
func (c *Condition) Matches(payload map[string]any) bool {
	actual, ok := payload[c.Field]
	if !ok {
		return false
	}

	switch c.Operator {
	case OperatorEquals:
		return coerceString(actual) == coerceString(c.Value)
	case OperatorNotEquals:
		return coerceString(actual) != coerceString(c.Value)
	case OperatorContains:
		if list, ok := actual.([]any); ok {
			want := coerceString(c.Value)
			for _, item := range list {
				if coerceString(item) == want {
					return true
				}
			}

			return false
		}

		return strings.Contains(coerceString(actual), coerceString(c.Value))
	case OperatorGreaterThan:
		left, lok := NumberValue(actual)
		right, rok := NumberValue(c.Value)

		return lok && rok && left > right
	case OperatorLessThan:
		left, lok := NumberValue(actual)
		right, rok := NumberValue(c.Value)

		return lok && rok && left < right
	default:
		return false
	}
}

// NumberValue coerces a payload value to a float64. Numeric strings
// convert; anything else reports false.
func NumberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
