package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistolabs/visto/pkg/persistence"
	"github.com/vistolabs/visto/pkg/persistence/file"
	"github.com/vistolabs/visto/pkg/validation"
)

const validSchemaJSON = `{
	"tenant_id": "tenant-1",
	"code": "expense-claim",
	"title": "Expense Claim",
	"sections": [
		{
			"key": "main",
			"fields": [
				{"key": "purpose", "type": "text", "validation": {"required": true}},
				{"key": "amount", "type": "money", "validation": {"required": true, "min": 0}}
			]
		}
	]
}`

func TestSchema_Create(t *testing.T) {
	ctx := context.Background()
	service := NewSchema(file.NewPersistence(t.TempDir()))

	schema, err := service.Create(ctx, json.RawMessage(validSchemaJSON))
	require.NoError(t, err)
	assert.NotEmpty(t, schema.ID)
	assert.Equal(t, "expense-claim", schema.Code)

	loaded, err := service.GetByID(ctx, schema.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.ID, loaded.ID)
}

func TestSchema_Create_RejectsMalformedDefinitions(t *testing.T) {
	ctx := context.Background()
	service := NewSchema(file.NewPersistence(t.TempDir()))

	tests := []struct {
		name       string
		definition string
	}{
		{"not json", `{{{`},
		{"missing required top-level keys", `{"tenant_id": "t"}`},
		{"empty sections", `{"tenant_id": "t", "code": "ab", "title": "abc", "sections": []}`},
		{"field without type", `{"tenant_id": "t", "code": "ab", "title": "abc", "sections": [{"key": "s", "fields": [{"key": "x"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(ctx, json.RawMessage(tt.definition))
			assert.True(t, IsValidationError(err), "expected a request validation error, got %v", err)
		})
	}
}

func TestSchema_Create_RejectsSemanticDefects(t *testing.T) {
	ctx := context.Background()
	service := NewSchema(file.NewPersistence(t.TempDir()))

	// Shape is fine, but the formula references a field that does not exist.
	definition := `{
		"tenant_id": "tenant-1",
		"code": "broken",
		"title": "Broken Form",
		"sections": [
			{
				"key": "main",
				"fields": [
					{"key": "total", "type": "number", "calculated": true, "formula": "ghost * 2"}
				]
			}
		]
	}`

	_, err := service.Create(ctx, json.RawMessage(definition))
	require.Error(t, err)

	var schemaErr *validation.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestSchema_Create_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	service := NewSchema(file.NewPersistence(t.TempDir()))

	_, err := service.Create(ctx, json.RawMessage(validSchemaJSON))
	require.NoError(t, err)

	_, err = service.Create(ctx, json.RawMessage(validSchemaJSON))
	assert.True(t, persistence.IsDuplicateTemplate(err))
}

func TestSchema_List_RequiresTenant(t *testing.T) {
	service := NewSchema(file.NewPersistence(t.TempDir()))

	_, err := service.List(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyTenantID)
}

func TestSchema_Compiled(t *testing.T) {
	ctx := context.Background()
	service := NewSchema(file.NewPersistence(t.TempDir()))

	schema, err := service.Create(ctx, json.RawMessage(validSchemaJSON))
	require.NoError(t, err)

	compiled, err := service.Compiled(ctx, schema.ID)
	require.NoError(t, err)

	result := compiled.Validate(map[string]any{"purpose": "travel", "amount": 10.0})
	assert.True(t, result.Valid)
}
