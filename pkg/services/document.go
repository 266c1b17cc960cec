package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vistolabs/visto/pkg/engine"
	"github.com/vistolabs/visto/pkg/eventbus"
	"github.com/vistolabs/visto/pkg/log"
	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/persistence"
)

// Document orchestrates engine transitions: read aggregate, run the
// engine operation, save with the version guard, then publish the
// transition's events fire-and-forget. A lost save surfaces
// persistence.ErrConcurrentModification and the caller rereads and
// retries; events are only published for transitions that were persisted.
type Document struct {
	persistence  persistence.Persistence
	schemas      *Schema
	engine       *engine.Engine
	publisher    eventbus.EventPublisher
	logger       *slog.Logger
	slaThreshold time.Duration
}

func NewDocument(
	persistence persistence.Persistence,
	schemas *Schema,
	routingEngine *engine.Engine,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	slaThreshold time.Duration,
) *Document {
	return &Document{
		persistence:  persistence,
		schemas:      schemas,
		engine:       routingEngine,
		publisher:    publisher,
		logger:       logger,
		slaThreshold: slaThreshold,
	}
}

// CreateDraft stores a new draft owned by its creator. The schema must
// exist; the payload is not validated until submission.
func (d *Document) CreateDraft(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if doc.TenantID == "" {
		return nil, fmt.Errorf("create draft: %w", ErrEmptyTenantID)
	}

	if doc.CreatedBy == "" {
		return nil, fmt.Errorf("create draft: %w", ErrEmptyActorID)
	}

	if _, err := d.persistence.SchemaRepository().GetByID(ctx, doc.SchemaID); err != nil {
		return nil, err
	}

	doc.Status = models.DocumentStatusDraft
	doc.Route = nil

	if err := d.persistence.DocumentRepository().Create(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// FetchByID returns a single document aggregate.
func (d *Document) FetchByID(ctx context.Context, id string) (*models.Document, error) {
	return d.persistence.DocumentRepository().GetByID(ctx, id)
}

// DeleteDraft removes a draft. Documents that ever entered routing keep
// their audit trail and can only be cancelled, never deleted.
func (d *Document) DeleteDraft(ctx context.Context, id, actorID string) error {
	doc, err := d.persistence.DocumentRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if doc.CreatedBy != actorID {
		return &ServiceError{Op: "DeleteDraft", Err: ErrNotOwner}
	}

	if doc.Status != models.DocumentStatusDraft {
		return &ServiceError{Op: "DeleteDraft", Err: ErrNotDraft}
	}

	return d.persistence.DocumentRepository().Delete(ctx, id)
}

// Submit validates the payload against the document's schema and starts
// the route.
func (d *Document) Submit(ctx context.Context, id, actorID string, payload map[string]any, template models.RouteTemplate) (*models.Document, error) {
	doc, err := d.persistence.DocumentRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.CreatedBy != actorID {
		return nil, &ServiceError{Op: "Submit", Err: ErrNotOwner}
	}

	compiled, err := d.schemas.Compiled(ctx, doc.SchemaID)
	if err != nil {
		return nil, err
	}

	transition, err := d.engine.Submit(ctx, doc, compiled, payload, template)
	if err != nil {
		// A failed validation still updates the audit trail.
		if engine.IsValidation(err) {
			if saveErr := d.persistence.DocumentRepository().Save(ctx, doc); saveErr != nil {
				log.WithDocument(d.logger, doc.TenantID, doc.ID).ErrorContext(ctx, "failed to record validation failure", "error", saveErr)
			}
		}

		return nil, err
	}

	return d.commit(ctx, transition)
}

// Decide records one participant decision on the current blocking stage.
func (d *Document) Decide(ctx context.Context, id, actorID string, stageOrdinal int, decision models.Decision, comment string) (*models.Document, error) {
	doc, err := d.persistence.DocumentRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	transition, err := d.engine.Decide(doc, actorID, stageOrdinal, decision, comment)
	if err != nil {
		return nil, err
	}

	return d.commit(ctx, transition)
}

// Recall cancels a live document on behalf of its creator.
func (d *Document) Recall(ctx context.Context, id, actorID string) (*models.Document, error) {
	doc, err := d.persistence.DocumentRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	transition, err := d.engine.Recall(doc, actorID)
	if err != nil {
		return nil, err
	}

	return d.commit(ctx, transition)
}

// Acknowledge records a read receipt on a non-blocking stage.
func (d *Document) Acknowledge(ctx context.Context, id, actorID string, stageOrdinal int) (*models.Document, error) {
	doc, err := d.persistence.DocumentRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	transition, err := d.engine.Acknowledge(doc, actorID, stageOrdinal)
	if err != nil {
		return nil, err
	}

	return d.commit(ctx, transition)
}

// commit persists a transition and publishes its events. Publishing is
// fire-and-forget: a bus failure is logged and never rolls back the
// persisted transition.
func (d *Document) commit(ctx context.Context, transition *engine.Transition) (*models.Document, error) {
	doc := transition.Document

	if err := d.persistence.DocumentRepository().Save(ctx, doc); err != nil {
		return nil, err
	}

	if d.publisher != nil {
		events := transition.Events
		logger := log.WithDocument(d.logger, doc.TenantID, doc.ID)

		go func() {
			for _, event := range events {
				if err := d.publisher.Publish(context.WithoutCancel(ctx), doc.ID, event); err != nil {
					logger.Error("failed to publish event", "event_type", event.GetType(), "error", err)
				}
			}
		}()
	}

	return doc, nil
}

// Outbox lists the actor's own documents with route progress.
func (d *Document) Outbox(ctx context.Context, tenantID, actorID string) ([]engine.OutboxItem, error) {
	docs, err := d.listForViews(ctx, tenantID, actorID)
	if err != nil {
		return nil, err
	}

	return engine.Outbox(docs, actorID, d.slaThreshold, time.Now().UTC()), nil
}

// Inbox lists documents referencing the actor in a non-blocking stage.
func (d *Document) Inbox(ctx context.Context, tenantID, actorID string) ([]*models.Document, error) {
	docs, err := d.listForViews(ctx, tenantID, actorID)
	if err != nil {
		return nil, err
	}

	return engine.Inbox(docs, actorID), nil
}

// Pending lists documents awaiting the actor's decision. This is the
// authoritative action-required queue; it matches what Decide accepts.
func (d *Document) Pending(ctx context.Context, tenantID, actorID string) ([]*models.Document, error) {
	docs, err := d.listForViews(ctx, tenantID, actorID)
	if err != nil {
		return nil, err
	}

	return engine.Pending(docs, actorID), nil
}

// Overdue lists live documents past the SLA threshold. Escalation lives
// on the read side; the state machine has no timeout concept.
func (d *Document) Overdue(ctx context.Context, tenantID string) ([]*models.Document, error) {
	docs, err := d.persistence.DocumentRepository().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return engine.Overdue(docs, d.slaThreshold, time.Now().UTC()), nil
}

func (d *Document) listForViews(ctx context.Context, tenantID, actorID string) ([]*models.Document, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("views: %w", ErrEmptyTenantID)
	}

	if actorID == "" {
		return nil, fmt.Errorf("views: %w", ErrEmptyActorID)
	}

	return d.persistence.DocumentRepository().ListByTenant(ctx, tenantID)
}

// HealthCheck reports persistence health for the API health endpoint.
func (d *Document) HealthCheck(ctx context.Context) (string, bool) {
	if err := d.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}
