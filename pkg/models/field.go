package models

// FieldType enumerates the supported form field variants. The validator
// interprets fields by type; there is no per-type Go struct.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiSelect"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeFile        FieldType = "file"
	FieldTypeMoney       FieldType = "money"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeAddress     FieldType = "address"
	FieldTypeTable       FieldType = "table"
	FieldTypeSection     FieldType = "section"
	FieldTypeDivider     FieldType = "divider"
)

// Input reports whether the field carries user data at all. Section and
// divider fields are layout-only and never validated.
func (t FieldType) Input() bool {
	return t != FieldTypeSection && t != FieldTypeDivider
}

// Choice reports whether the field restricts its value to declared options.
func (t FieldType) Choice() bool {
	switch t {
	case FieldTypeSelect, FieldTypeMultiSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// Multi reports whether the field holds a list of values.
func (t FieldType) Multi() bool {
	return t == FieldTypeMultiSelect || t == FieldTypeCheckbox
}

// Numeric reports whether min/max range rules apply to the field value.
func (t FieldType) Numeric() bool {
	return t == FieldTypeNumber || t == FieldTypeMoney
}

// Field is one entry of a form schema, interpreted by its Type.
type Field struct {
	Key        string           `json:"key"        validate:"required"`
	Type       FieldType        `json:"type"       validate:"required"`
	Label      string           `json:"label,omitempty"`
	Validation *FieldValidation `json:"validation,omitempty"`
	Options    []Option         `json:"options,omitempty"`
	Condition  *Condition       `json:"condition,omitempty"`
	Calculated bool             `json:"calculated,omitempty"`
	Formula    string           `json:"formula,omitempty"`
	Table      *TableOptions    `json:"table,omitempty"`
}

// FieldValidation holds the declarative rules applied to a field value.
// Pointer members distinguish "unset" from zero.
type FieldValidation struct {
	Required  bool     `json:"required,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// Option is one selectable value of a choice field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// TableOptions configures a tabular sub-field. Columns act as a nested
// schema applied to every row.
type TableOptions struct {
	Columns     []Field `json:"columns"`
	MinRows     int     `json:"min_rows,omitempty"`
	MaxRows     int     `json:"max_rows,omitempty"`
	AllowAdd    bool    `json:"allow_add,omitempty"`
	AllowDelete bool    `json:"allow_delete,omitempty"`
}

// HasOption reports whether value is among the field's declared options.
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}

	return false
}
