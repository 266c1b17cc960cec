package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/vistolabs/visto/pkg/engine"
	"github.com/vistolabs/visto/pkg/persistence"
	"github.com/vistolabs/visto/pkg/services"
	"github.com/vistolabs/visto/pkg/validation"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, errType, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(errType).
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps the error taxonomy onto HTTP statuses: payload
// and route-template validation 400, missing aggregates 404, state-machine
// and concurrency conflicts 409, schema-authoring defects 422.
func handleServiceError(c fiber.Ctx, err error) error {
	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("payload_invalid").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(struct {
			*problems.Problem
			Errors []validation.FieldError `json:"errors"`
		}{problem, validationErr.Errors})
	}

	var schemaErr *validation.SchemaError
	if errors.As(err, &schemaErr) {
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("schema_invalid").
			WithDetail(schemaErr.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
	}

	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case engine.IsInvalidTemplate(err):
		// Bad request data, not a state conflict: the document is intact.
		return badRequest(c, err.Error())

	case persistence.IsSchemaNotFound(err):
		return notFound(c, "schema not found")

	case persistence.IsDocumentNotFound(err):
		return notFound(c, "document not found")

	case persistence.IsDuplicateTemplate(err):
		return conflict(c, "duplicate_template", "a schema with this code already exists for the tenant")

	case persistence.IsConcurrentModification(err):
		// Retryable: the caller rereads the document and retries.
		return conflict(c, "concurrent_modification", "document was modified concurrently, retry")

	case engine.IsInvalidState(err),
		engine.IsStageNotActive(err),
		engine.IsNotAParticipant(err),
		engine.IsAlreadyDecided(err),
		engine.IsRecallNotAllowed(err),
		engine.IsUnknownParticipant(err),
		errors.Is(err, engine.ErrUnsupportedDecision),
		services.IsConflictError(err):
		return conflict(c, "transition_rejected", err.Error())

	default:
		return internalError(c, err)
	}
}
