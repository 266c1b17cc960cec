// Package web provides HTTP request and response types for the approval API.
package web

import (
	"encoding/json"

	"github.com/vistolabs/visto/pkg/models"
)

// CreateDocumentRequest represents the request body for creating a new draft.
type CreateDocumentRequest struct {
	TenantID string         `json:"tenant_id" validate:"required"`
	SchemaID string         `json:"schema_id" validate:"required"`
	Title    string         `json:"title"     validate:"required,min=3"`
	Creator  string         `json:"creator"   validate:"required"`
	Data     map[string]any `json:"data"`
}

// SubmitDocumentRequest starts routing a draft.
type SubmitDocumentRequest struct {
	Actor   string               `json:"actor"   validate:"required"`
	Payload map[string]any       `json:"payload"`
	Route   models.RouteTemplate `json:"route"   validate:"required"`
}

// DecisionRequest records one participant decision.
type DecisionRequest struct {
	Actor        string `json:"actor"         validate:"required"`
	StageOrdinal int    `json:"stage_ordinal" validate:"gte=0"`
	Decision     string `json:"decision"      validate:"required,oneof=approved rejected"`
	Comment      string `json:"comment"`
}

// RecallRequest cancels a live document on behalf of its creator.
type RecallRequest struct {
	Actor string `json:"actor" validate:"required"`
}

// AcknowledgeRequest records a read receipt on a non-blocking stage.
type AcknowledgeRequest struct {
	Actor        string `json:"actor"         validate:"required"`
	StageOrdinal int    `json:"stage_ordinal" validate:"gte=0"`
}

// CreateSchemaRequest carries the raw schema definition. It is
// meta-validated and compiled by the schema service, not bound to a
// struct here, so authoring errors keep their precise locations.
type CreateSchemaRequest = json.RawMessage
