package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/testutil"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func TestCompile_ValidSchema(t *testing.T) {
	schema := testutil.CreateTestSchema(testutil.WithFields(
		models.Field{Key: "qty", Type: models.FieldTypeNumber},
		models.Field{Key: "unit_price", Type: models.FieldTypeMoney},
		models.Field{Key: "total", Type: models.FieldTypeNumber, Calculated: true, Formula: "qty * unit_price"},
	))

	compiled, err := Compile(schema)
	require.NoError(t, err)

	_, ok := compiled.Formula("total")
	assert.True(t, ok)
}

func TestCompile_CalculatedForwardReference(t *testing.T) {
	// A formula may reference a calculated field declared later; evaluation
	// order is resolved at compile time.
	schema := testutil.CreateTestSchema(testutil.WithFields(
		models.Field{Key: "base", Type: models.FieldTypeNumber},
		models.Field{Key: "total", Type: models.FieldTypeNumber, Calculated: true, Formula: "double + 1"},
		models.Field{Key: "double", Type: models.FieldTypeNumber, Calculated: true, Formula: "base * 2"},
	))

	_, err := Compile(schema)
	assert.NoError(t, err)
}

func TestCompile_SchemaDefects(t *testing.T) {
	tests := []struct {
		name    string
		fields  []models.Field
		message string
	}{
		{
			"duplicate key",
			[]models.Field{
				{Key: "amount", Type: models.FieldTypeNumber},
				{Key: "amount", Type: models.FieldTypeText},
			},
			"duplicate field key",
		},
		{
			"empty key",
			[]models.Field{{Key: "", Type: models.FieldTypeText}},
			"field key must not be empty",
		},
		{
			"unknown condition operator",
			[]models.Field{
				{Key: "a", Type: models.FieldTypeText},
				{Key: "b", Type: models.FieldTypeText, Condition: &models.Condition{Field: "a", Operator: "regex"}},
			},
			"unknown condition operator",
		},
		{
			"condition references unknown field",
			[]models.Field{
				{Key: "b", Type: models.FieldTypeText, Condition: &models.Condition{Field: "ghost", Operator: models.OperatorEquals}},
			},
			"references unknown field",
		},
		{
			"choice field without options",
			[]models.Field{{Key: "pick", Type: models.FieldTypeSelect}},
			"declares no options",
		},
		{
			"calculated without formula",
			[]models.Field{{Key: "total", Type: models.FieldTypeNumber, Calculated: true}},
			"no formula",
		},
		{
			"formula references itself",
			[]models.Field{{Key: "total", Type: models.FieldTypeNumber, Calculated: true, Formula: "total + 1"}},
			"references the field itself",
		},
		{
			"formula references unknown field",
			[]models.Field{{Key: "total", Type: models.FieldTypeNumber, Calculated: true, Formula: "ghost * 2"}},
			"references unknown field",
		},
		{
			"calculated reference cycle",
			[]models.Field{
				{Key: "a", Type: models.FieldTypeNumber, Calculated: true, Formula: "b + 1"},
				{Key: "b", Type: models.FieldTypeNumber, Calculated: true, Formula: "a + 1"},
			},
			"reference cycle",
		},
		{
			"min greater than max",
			[]models.Field{{Key: "n", Type: models.FieldTypeNumber, Validation: &models.FieldValidation{Min: ptrFloat(10), Max: ptrFloat(1)}}},
			"min is greater than max",
		},
		{
			"invalid pattern",
			[]models.Field{{Key: "code", Type: models.FieldTypeText, Validation: &models.FieldValidation{Pattern: "["}}},
			"invalid pattern",
		},
		{
			"table without columns",
			[]models.Field{{Key: "items", Type: models.FieldTypeTable, Table: &models.TableOptions{}}},
			"declares no columns",
		},
		{
			"table min_rows above max_rows",
			[]models.Field{{Key: "items", Type: models.FieldTypeTable, Table: &models.TableOptions{
				Columns: []models.Field{{Key: "desc", Type: models.FieldTypeText}},
				MinRows: 5,
				MaxRows: 2,
			}}},
			"min_rows is greater than max_rows",
		},
		{
			"duplicate column key",
			[]models.Field{{Key: "items", Type: models.FieldTypeTable, Table: &models.TableOptions{
				Columns: []models.Field{
					{Key: "desc", Type: models.FieldTypeText},
					{Key: "desc", Type: models.FieldTypeText},
				},
			}}},
			"duplicate column key",
		},
		{
			"calculated column",
			[]models.Field{{Key: "items", Type: models.FieldTypeTable, Table: &models.TableOptions{
				Columns: []models.Field{{Key: "sum", Type: models.FieldTypeNumber, Calculated: true, Formula: "1 + 1"}},
			}}},
			"columns cannot be calculated",
		},
		{
			"nested table",
			[]models.Field{{Key: "items", Type: models.FieldTypeTable, Table: &models.TableOptions{
				Columns: []models.Field{{Key: "inner", Type: models.FieldTypeTable, Table: &models.TableOptions{
					Columns: []models.Field{{Key: "x", Type: models.FieldTypeText}},
				}}},
			}}},
			"tables cannot be nested",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := testutil.CreateTestSchema(testutil.WithFields(tt.fields...))

			_, err := Compile(schema)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Contains(t, schemaErr.Error(), tt.message)
		})
	}
}

func TestCompile_ColumnConditionUsesRowScope(t *testing.T) {
	// A column condition resolves against sibling columns, not top-level
	// fields.
	schema := testutil.CreateTestSchema(testutil.WithFields(
		models.Field{Key: "items", Type: models.FieldTypeTable, Table: &models.TableOptions{
			Columns: []models.Field{
				{Key: "kind", Type: models.FieldTypeText},
				{Key: "receipt", Type: models.FieldTypeText, Condition: &models.Condition{
					Field: "kind", Operator: models.OperatorEquals, Value: "expense",
				}},
			},
		}},
	))

	_, err := Compile(schema)
	assert.NoError(t, err)
}
