// Package models defines the core domain models for the approval workflow engine.
package models

import "time"

// FormSchema is a versioned dynamic form definition. Once any document
// references a schema it is immutable; publishing a change means a new
// version under the same (tenant, code) pair.
type FormSchema struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"  validate:"required"`
	Code      string         `json:"code"       validate:"required,min=2"`
	Title     string         `json:"title"      validate:"required,min=3"`
	Version   int            `json:"version"`
	Sections  []Section      `json:"sections"`
	Settings  SchemaSettings `json:"settings"`
	Layout    int            `json:"layout,omitempty"` // form column count, display hint only
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SchemaSettings holds presentation defaults carried with the schema.
type SchemaSettings struct {
	SubmitLabel     string `json:"submit_label,omitempty"`
	CancelLabel     string `json:"cancel_label,omitempty"`
	AutosaveSeconds int    `json:"autosave_seconds,omitempty"`
}

// Section groups an ordered list of fields.
type Section struct {
	Key    string  `json:"key"   validate:"required"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Fields returns every field of the schema in declaration order.
func (s *FormSchema) Fields() []Field {
	fields := make([]Field, 0)
	for _, section := range s.Sections {
		fields = append(fields, section.Fields...)
	}

	return fields
}

// FieldByKey looks up a top-level field by its key.
func (s *FormSchema) FieldByKey(key string) (Field, bool) {
	for _, section := range s.Sections {
		for _, field := range section.Fields {
			if field.Key == key {
				return field, true
			}
		}
	}

	return Field{}, false
}
