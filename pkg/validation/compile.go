// Package validation compiles form schemas and validates document payloads
// against them. Compilation happens once at schema publish time; a compile
// failure is a schema-authoring defect and is surfaced distinctly from
// payload validation failures, which are ordinary data.
package validation

import (
	"fmt"
	"regexp"

	"github.com/vistolabs/visto/pkg/formula"
	"github.com/vistolabs/visto/pkg/models"
)

// SchemaError reports a structural defect in a schema definition. It is
// fatal at schema creation time and never reachable once a schema is
// published.
type SchemaError struct {
	FieldKey string
	Message  string
}

func (e *SchemaError) Error() string {
	if e.FieldKey == "" {
		return "schema error: " + e.Message
	}

	return fmt.Sprintf("schema error at field %q: %s", e.FieldKey, e.Message)
}

// CompiledSchema is a FormSchema with formulas parsed and patterns
// compiled, ready for repeated payload validation.
type CompiledSchema struct {
	Schema    *models.FormSchema
	formulas  map[string]*formula.Expr
	patterns  map[string]*regexp.Regexp // keyed by field path, tableKey.columnKey for columns
	calcOrder []string                  // calculated field keys, dependencies first
}

// Compile validates the schema structure and pre-parses every formula and
// pattern. The returned *SchemaError pinpoints the offending field.
func Compile(schema *models.FormSchema) (*CompiledSchema, error) {
	compiled := &CompiledSchema{
		Schema:   schema,
		formulas: make(map[string]*formula.Expr),
		patterns: make(map[string]*regexp.Regexp),
	}

	keys := make(map[string]struct{})

	for _, field := range schema.Fields() {
		if field.Key == "" {
			return nil, &SchemaError{Message: "field key must not be empty"}
		}

		if _, dup := keys[field.Key]; dup {
			return nil, &SchemaError{FieldKey: field.Key, Message: "duplicate field key"}
		}

		keys[field.Key] = struct{}{}
	}

	for _, field := range schema.Fields() {
		if err := compiled.compileField(field, field.Key, keys, true); err != nil {
			return nil, err
		}
	}

	if err := compiled.orderFormulas(); err != nil {
		return nil, err
	}

	return compiled, nil
}

// orderFormulas sorts calculated fields so every formula and condition
// sees its calculated inputs recomputed first, regardless of declaration
// order. A reference cycle between calculated fields has no evaluation
// order and is a schema defect.
func (cs *CompiledSchema) orderFormulas() error {
	deps := make(map[string][]string, len(cs.formulas))

	for _, field := range cs.Schema.Fields() {
		if !field.Calculated {
			continue
		}

		refs := cs.formulas[field.Key].Refs()
		if field.Condition != nil {
			refs = append(append([]string{}, refs...), field.Condition.Field)
		}

		for _, ref := range refs {
			if _, calculated := cs.formulas[ref]; calculated {
				deps[field.Key] = append(deps[field.Key], ref)
			}
		}
	}

	const (
		visiting = 1
		done     = 2
	)

	cs.calcOrder = make([]string, 0, len(cs.formulas))
	state := make(map[string]int, len(cs.formulas))

	var visit func(key string) error

	visit = func(key string) error {
		switch state[key] {
		case done:
			return nil
		case visiting:
			return &SchemaError{FieldKey: key, Message: "calculated fields form a reference cycle"}
		}

		state[key] = visiting

		for _, dep := range deps[key] {
			if err := visit(dep); err != nil {
				return err
			}
		}

		state[key] = done
		cs.calcOrder = append(cs.calcOrder, key)

		return nil
	}

	for _, field := range cs.Schema.Fields() {
		if field.Calculated {
			if err := visit(field.Key); err != nil {
				return err
			}
		}
	}

	return nil
}

func (cs *CompiledSchema) compileField(field models.Field, path string, keys map[string]struct{}, topLevel bool) error {
	if field.Type == "" {
		return &SchemaError{FieldKey: path, Message: "field type must not be empty"}
	}

	if field.Condition != nil {
		if !field.Condition.Operator.Valid() {
			return &SchemaError{FieldKey: path, Message: fmt.Sprintf("unknown condition operator %q", field.Condition.Operator)}
		}

		if _, ok := keys[field.Condition.Field]; !ok {
			return &SchemaError{FieldKey: path, Message: fmt.Sprintf("condition references unknown field %q", field.Condition.Field)}
		}
	}

	if field.Type.Choice() && len(field.Options) == 0 {
		return &SchemaError{FieldKey: path, Message: "choice field declares no options"}
	}

	if field.Calculated {
		if !topLevel {
			return &SchemaError{FieldKey: path, Message: "table columns cannot be calculated"}
		}

		if field.Formula == "" {
			return &SchemaError{FieldKey: path, Message: "calculated field has no formula"}
		}

		expr, err := formula.Parse(field.Formula)
		if err != nil {
			return &SchemaError{FieldKey: path, Message: err.Error()}
		}

		for _, ref := range expr.Refs() {
			if ref == field.Key {
				return &SchemaError{FieldKey: path, Message: "formula references the field itself"}
			}

			if _, ok := keys[ref]; !ok {
				return &SchemaError{FieldKey: path, Message: fmt.Sprintf("formula references unknown field %q", ref)}
			}
		}

		cs.formulas[field.Key] = expr
	}

	if v := field.Validation; v != nil {
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			return &SchemaError{FieldKey: path, Message: "min is greater than max"}
		}

		if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
			return &SchemaError{FieldKey: path, Message: "min_length is greater than max_length"}
		}

		if v.Pattern != "" {
			pattern, err := regexp.Compile(v.Pattern)
			if err != nil {
				return &SchemaError{FieldKey: path, Message: fmt.Sprintf("invalid pattern: %v", err)}
			}

			cs.patterns[path] = pattern
		}
	}

	if field.Type == models.FieldTypeTable {
		if !topLevel {
			return &SchemaError{FieldKey: path, Message: "tables cannot be nested"}
		}

		if field.Table == nil || len(field.Table.Columns) == 0 {
			return &SchemaError{FieldKey: path, Message: "table field declares no columns"}
		}

		if field.Table.MinRows < 0 {
			return &SchemaError{FieldKey: path, Message: "min_rows must not be negative"}
		}

		if field.Table.MaxRows > 0 && field.Table.MinRows > field.Table.MaxRows {
			return &SchemaError{FieldKey: path, Message: "min_rows is greater than max_rows"}
		}

		columnKeys := make(map[string]struct{})

		for _, column := range field.Table.Columns {
			if column.Key == "" {
				return &SchemaError{FieldKey: path, Message: "column key must not be empty"}
			}

			if _, dup := columnKeys[column.Key]; dup {
				return &SchemaError{FieldKey: path + "." + column.Key, Message: "duplicate column key"}
			}

			columnKeys[column.Key] = struct{}{}
		}

		for _, column := range field.Table.Columns {
			if err := cs.compileField(column, path+"."+column.Key, columnKeys, false); err != nil {
				return err
			}
		}
	}

	return nil
}

// Formula returns the compiled expression for a calculated field key.
func (cs *CompiledSchema) Formula(key string) (*formula.Expr, bool) {
	expr, ok := cs.formulas[key]

	return expr, ok
}
