// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/vistolabs/visto/pkg/models"
)

// CreateTestSchema creates a FormSchema with default values that can be
// overridden.
func CreateTestSchema(overrides ...func(*models.FormSchema)) *models.FormSchema {
	schema := &models.FormSchema{
		ID:       uuid.New().String(),
		TenantID: "tenant-1",
		Code:     "expense-claim",
		Title:    "Expense Claim",
		Version:  1,
		Sections: []models.Section{
			{
				Key:   "main",
				Title: "Claim Details",
				Fields: []models.Field{
					{Key: "purpose", Type: models.FieldTypeText, Label: "Purpose", Validation: &models.FieldValidation{Required: true}},
					{Key: "amount", Type: models.FieldTypeNumber, Label: "Amount", Validation: &models.FieldValidation{Required: true}},
				},
			},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(schema)
	}

	return schema
}

// WithTenant sets the schema tenant.
func WithTenant(tenantID string) func(*models.FormSchema) {
	return func(s *models.FormSchema) {
		s.TenantID = tenantID
	}
}

// WithCode sets the schema code.
func WithCode(code string) func(*models.FormSchema) {
	return func(s *models.FormSchema) {
		s.Code = code
	}
}

// WithFields replaces the fields of the first section.
func WithFields(fields ...models.Field) func(*models.FormSchema) {
	return func(s *models.FormSchema) {
		s.Sections[0].Fields = fields
	}
}

// CreateTestRoute builds a route template with default values that can
// be overridden.
func CreateTestRoute(overrides ...func(*models.RouteTemplate)) models.RouteTemplate {
	template := models.RouteTemplate{
		Stages: []models.StageTemplate{
			{Name: "Manager", Type: models.StageTypeApproval, Participants: []string{"manager-1"}},
			{Name: "Finance", Type: models.StageTypeApproval, Participants: []string{"finance-1", "finance-2"}},
		},
	}

	for _, override := range overrides {
		override(&template)
	}

	return template
}

// WithStages replaces the template stages.
func WithStages(stages ...models.StageTemplate) func(*models.RouteTemplate) {
	return func(t *models.RouteTemplate) {
		t.Stages = stages
	}
}

// CreateTestDocument creates a draft Document with default values that
// can be overridden.
func CreateTestDocument(overrides ...func(*models.Document)) *models.Document {
	doc := &models.Document{
		ID:        uuid.New().String(),
		TenantID:  "tenant-1",
		SchemaID:  uuid.New().String(),
		Title:     "March expenses",
		Status:    models.DocumentStatusDraft,
		CreatedBy: "author-1",
		Data:      map[string]any{"purpose": "conference", "amount": 120.0},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(doc)
	}

	return doc
}

// WithCreator sets the document creator.
func WithCreator(userID string) func(*models.Document) {
	return func(d *models.Document) {
		d.CreatedBy = userID
	}
}

// WithData sets the document payload.
func WithData(data map[string]any) func(*models.Document) {
	return func(d *models.Document) {
		d.Data = data
	}
}

// WithStatus sets the document status.
func WithStatus(status models.DocumentStatus) func(*models.Document) {
	return func(d *models.Document) {
		d.Status = status
	}
}
