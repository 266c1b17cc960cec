package models

import "time"

// DocumentStatus represents the lifecycle state of an approval document.
type DocumentStatus string

const (
	DocumentStatusDraft      DocumentStatus = "draft"
	DocumentStatusSubmitted  DocumentStatus = "submitted"   // routed, no decision yet
	DocumentStatusInProgress DocumentStatus = "in_progress" // at least one decision recorded
	DocumentStatusApproved   DocumentStatus = "approved"
	DocumentStatusRejected   DocumentStatus = "rejected"
	DocumentStatusCancelled  DocumentStatus = "cancelled" // recalled by the creator
)

// Terminal reports whether no further transitions are possible.
func (s DocumentStatus) Terminal() bool {
	switch s {
	case DocumentStatusApproved, DocumentStatusRejected, DocumentStatusCancelled:
		return true
	default:
		return false
	}
}

// Live reports whether the document is in active routing.
func (s DocumentStatus) Live() bool {
	return s == DocumentStatusSubmitted || s == DocumentStatusInProgress
}

// HistoryEntry is one line of the document's audit trail. Every submit,
// decision, acknowledgment, recall, and validation failure is appended.
type HistoryEntry struct {
	At           time.Time `json:"at"`
	Actor        string    `json:"actor,omitempty"`
	Action       string    `json:"action"`
	StageOrdinal *int      `json:"stage_ordinal,omitempty"`
	Detail       string    `json:"detail,omitempty"`
}

// Document is the workflow instance and the aggregate root: route, stages
// and participants are embedded so a single versioned save covers every
// state transition.
type Document struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id" validate:"required"`
	SchemaID    string         `json:"schema_id" validate:"required"`
	Title       string         `json:"title"     validate:"required,min=3"`
	Data        map[string]any `json:"data"`
	Status      DocumentStatus `json:"status"`
	Route       *Route         `json:"route,omitempty"`
	CreatedBy   string         `json:"created_by" validate:"required"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Version     int64          `json:"version"` // optimistic lock counter, bumped on every save
	History     []HistoryEntry `json:"history,omitempty"`
}

// AppendHistory records an audit trail entry.
func (d *Document) AppendHistory(at time.Time, actor, action string, stageOrdinal *int, detail string) {
	d.History = append(d.History, HistoryEntry{
		At:           at,
		Actor:        actor,
		Action:       action,
		StageOrdinal: stageOrdinal,
		Detail:       detail,
	})
}
