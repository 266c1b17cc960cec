package validation

import (
	"fmt"

	"github.com/vistolabs/visto/pkg/models"
)

// FieldError locates a single validation failure. Key is the field path:
// the field key for scalars, tableKey[rowIndex].columnKey for table cells.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Result is the outcome of validating a payload against a compiled schema.
// Payload is the normalized payload with calculated fields recomputed.
type Result struct {
	Valid   bool           `json:"valid"`
	Errors  []FieldError   `json:"errors,omitempty"`
	Payload map[string]any `json:"payload"`
}

func (r *Result) fail(key, format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{Key: key, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a submitted payload against the schema. It walks fields
// in declaration order, records the first failing rule per field, and
// keeps going so the caller receives the complete error set. Data-shape
// problems never produce a Go error; only Valid=false.
func (cs *CompiledSchema) Validate(payload map[string]any) *Result {
	result := &Result{Valid: true, Payload: make(map[string]any, len(payload))}
	for key, value := range payload {
		result.Payload[key] = value
	}

	cs.applyFormulas(result.Payload)

	for _, field := range cs.Schema.Fields() {
		cs.validateField(field, result)
	}

	return result
}

// applyFormulas recomputes every calculated value before the field walk.
// Caller input for calculated fields is dropped first, so a formula or
// condition only ever sees recomputed siblings, never the caller's numbers.
func (cs *CompiledSchema) applyFormulas(payload map[string]any) {
	for key := range cs.formulas {
		delete(payload, key)
	}

	for _, key := range cs.calcOrder {
		field, ok := cs.Schema.FieldByKey(key)
		if !ok {
			continue
		}

		if field.Condition != nil && !field.Condition.Matches(payload) {
			// Hidden calculated fields stay out of the payload.
			continue
		}

		payload[key] = cs.formulas[key].Eval(payload)
	}
}

func (cs *CompiledSchema) validateField(field models.Field, result *Result) {
	if !field.Type.Input() {
		return
	}

	if field.Calculated {
		// Recomputed by applyFormulas before the walk.
		return
	}

	if field.Condition != nil && !field.Condition.Matches(result.Payload) {
		// Hidden fields are skipped entirely.
		return
	}

	if field.Type == models.FieldTypeTable {
		cs.validateTable(field, result)

		return
	}

	value := result.Payload[field.Key]
	cs.validateScalar(field, field.Key, field.Key, value, result)
}

// validateScalar applies the declarative rules to one value. The first
// failing rule wins; later rules for the same field are not reported.
func (cs *CompiledSchema) validateScalar(field models.Field, path, patternPath string, value any, result *Result) {
	if isEmpty(value) {
		if field.Validation != nil && field.Validation.Required {
			result.fail(path, "value is required")
		}

		return
	}

	if field.Type.Numeric() {
		number, ok := models.NumberValue(value)
		if !ok {
			result.fail(path, "value must be a number")

			return
		}

		if v := field.Validation; v != nil {
			if v.Min != nil && number < *v.Min {
				result.fail(path, "value must be at least %v", *v.Min)

				return
			}

			if v.Max != nil && number > *v.Max {
				result.fail(path, "value must be at most %v", *v.Max)

				return
			}
		}
	}

	if field.Type.Choice() {
		if field.Type.Multi() {
			items, ok := value.([]any)
			if !ok {
				result.fail(path, "value must be a list")

				return
			}

			for _, item := range items {
				if !field.HasOption(stringValue(item)) {
					result.fail(path, "value %q is not an allowed option", stringValue(item))

					return
				}
			}
		} else if !field.HasOption(stringValue(value)) {
			result.fail(path, "value %q is not an allowed option", stringValue(value))

			return
		}
	}

	if v := field.Validation; v != nil {
		text := stringValue(value)

		if v.MinLength != nil && len([]rune(text)) < *v.MinLength {
			result.fail(path, "value must be at least %d characters", *v.MinLength)

			return
		}

		if v.MaxLength != nil && len([]rune(text)) > *v.MaxLength {
			result.fail(path, "value must be at most %d characters", *v.MaxLength)

			return
		}

		if pattern, ok := cs.patterns[patternPath]; ok && !pattern.MatchString(text) {
			result.fail(path, "value does not match the expected format")

			return
		}
	}
}

func (cs *CompiledSchema) validateTable(field models.Field, result *Result) {
	opts := field.Table

	rows, ok := tableRows(result.Payload[field.Key])
	if !ok {
		result.fail(field.Key, "value must be a list of rows")

		return
	}

	if len(rows) < opts.MinRows {
		result.fail(field.Key, "table requires at least %d rows", opts.MinRows)

		return
	}

	if opts.MaxRows > 0 && len(rows) > opts.MaxRows {
		result.fail(field.Key, "table allows at most %d rows", opts.MaxRows)

		return
	}

	for i, row := range rows {
		for _, column := range opts.Columns {
			if !column.Type.Input() {
				continue
			}

			// Column conditions evaluate against the row, not the document.
			if column.Condition != nil && !column.Condition.Matches(row) {
				continue
			}

			path := fmt.Sprintf("%s[%d].%s", field.Key, i, column.Key)
			cs.validateScalar(column, path, field.Key+"."+column.Key, row[column.Key], result)
		}
	}
}

func tableRows(value any) ([]map[string]any, bool) {
	if value == nil {
		return []map[string]any{}, true
	}

	items, ok := value.([]any)
	if !ok {
		return nil, false
	}

	rows := make([]map[string]any, 0, len(items))

	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}

		rows = append(rows, row)
	}

	return rows, true
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func stringValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
