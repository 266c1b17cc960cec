// Package events defines the event types the routing engine emits for the
// notification collaborator. Events are published fire-and-forget after a
// transition has been persisted; a publish failure never rolls a
// transition back.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/vistolabs/visto/pkg/models"
)

type EventType string

// Kafka topic for document lifecycle events.
const Topic = "visto.documents"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	DocumentSubmittedEvent EventType = "document.submitted"
	StageEnteredEvent      EventType = "document.stage.entered"
	DecisionRecordedEvent  EventType = "document.decision.recorded"
	DocumentTerminalEvent  EventType = "document.terminal"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	TenantID   string         `json:"tenant_id"`
	DocumentID string         `json:"document_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// DocumentSubmitted signals that a draft entered its route.
type DocumentSubmitted struct {
	BaseEvent

	SchemaID  string `json:"schema_id"`
	CreatedBy string `json:"created_by"`
	Title     string `json:"title"`
}

func (e DocumentSubmitted) GetType() EventType {
	return DocumentSubmittedEvent
}

// StageEntered signals that a stage became active (blocking) or was
// notified (non-blocking); its participants should be told.
type StageEntered struct {
	BaseEvent

	StageOrdinal   int              `json:"stage_ordinal"`
	StageType      models.StageType `json:"stage_type"`
	ParticipantIDs []string         `json:"participant_ids"`
}

func (e StageEntered) GetType() EventType {
	return StageEnteredEvent
}

// DecisionRecorded signals a single participant decision, including
// acknowledgments on non-blocking stages.
type DecisionRecorded struct {
	BaseEvent

	Actor        string          `json:"actor"`
	StageOrdinal int             `json:"stage_ordinal"`
	Decision     models.Decision `json:"decision"`
	Comment      string          `json:"comment,omitempty"`
}

func (e DecisionRecorded) GetType() EventType {
	return DecisionRecordedEvent
}

// DocumentTerminal signals that the document reached approved, rejected
// or cancelled. No further transitions will occur.
type DocumentTerminal struct {
	BaseEvent

	FinalStatus models.DocumentStatus `json:"final_status"`
	CreatedBy   string                `json:"created_by"`
}

func (e DocumentTerminal) GetType() EventType {
	return DocumentTerminalEvent
}

func NewBaseEvent(eventType EventType, tenantID, documentID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		TenantID:   tenantID,
		DocumentID: documentID,
		Metadata:   make(map[string]any),
	}
}
