// Package web provides HTTP handlers and REST API endpoints for the
// approval workflow engine.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/services"
)

type APIHandlers struct {
	schemaService   *services.Schema
	documentService *services.Document
	validator       *validator.Validate
}

func NewAPIHandlers(
	schemaService *services.Schema,
	documentService *services.Document,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		schemaService:   schemaService,
		documentService: documentService,
		validator:       validator,
	}
}

func (h *APIHandlers) CreateSchema(c fiber.Ctx) error {
	schema, err := h.schemaService.Create(c.Context(), c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(schema)
}

func (h *APIHandlers) GetSchema(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Schema ID is required")
	}

	schema, err := h.schemaService.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(schema)
}

func (h *APIHandlers) ListSchemas(c fiber.Ctx) error {
	schemas, err := h.schemaService.List(c.Context(), c.Query("tenant_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"schemas": schemas})
}

func (h *APIHandlers) CreateDocument(c fiber.Ctx) error {
	var req CreateDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc := &models.Document{
		TenantID:  req.TenantID,
		SchemaID:  req.SchemaID,
		Title:     req.Title,
		CreatedBy: req.Creator,
		Data:      req.Data,
	}

	created, err := h.documentService.CreateDraft(c.Context(), doc)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	doc, err := h.documentService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) DeleteDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	if err := h.documentService.DeleteDraft(c.Context(), id, actor); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SubmitDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	var req SubmitDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.documentService.Submit(c.Context(), id, req.Actor, req.Payload, req.Route)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) RecordDecision(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	var req DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.documentService.Decide(c.Context(), id, req.Actor, req.StageOrdinal, models.Decision(req.Decision), req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) RecallDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	var req RecallRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.documentService.Recall(c.Context(), id, req.Actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) AcknowledgeDocument(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Document ID is required")
	}

	var req AcknowledgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.documentService.Acknowledge(c.Context(), id, req.Actor, req.StageOrdinal)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) GetOutbox(c fiber.Ctx) error {
	tenantID, actor, err := viewParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	items, err := h.documentService.Outbox(c.Context(), tenantID, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"documents": items})
}

func (h *APIHandlers) GetInbox(c fiber.Ctx) error {
	tenantID, actor, err := viewParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	docs, err := h.documentService.Inbox(c.Context(), tenantID, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"documents": docs})
}

func (h *APIHandlers) GetPending(c fiber.Ctx) error {
	tenantID, actor, err := viewParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	docs, err := h.documentService.Pending(c.Context(), tenantID, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"documents": docs})
}

func viewParams(c fiber.Ctx) (tenantID, actor string, err error) {
	tenantID = c.Query("tenant_id")
	actor = c.Query("actor")

	if tenantID == "" {
		return "", "", services.ErrEmptyTenantID
	}

	if actor == "" {
		return "", "", services.ErrEmptyActorID
	}

	return tenantID, actor, nil
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.documentService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Visto API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Visto API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
