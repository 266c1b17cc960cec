package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vistolabs/visto/pkg/eventbus"
	"github.com/vistolabs/visto/pkg/events"
	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/services"
)

// Dispatcher subscribes to the document topic and delivers one
// notification per recipient per event. A cron scan additionally flags
// overdue documents; escalation never touches the state machine.
type Dispatcher struct {
	id        string
	eventBus  eventbus.EventBus
	documents *services.Document
	notifier  Notifier
	deduper   Deduper
	cron      *cron.Cron
	tenants   []string
	scanSpec  string
	logger    *slog.Logger
}

func NewDispatcher(
	id string,
	eventBus eventbus.EventBus,
	documents *services.Document,
	notifier Notifier,
	deduper Deduper,
	tenants []string,
	scanSpec string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		id:        id,
		eventBus:  eventBus,
		documents: documents,
		notifier:  notifier,
		deduper:   deduper,
		cron:      cron.New(),
		tenants:   tenants,
		scanSpec:  scanSpec,
		logger:    logger.With("module", "dispatcher", "dispatcher_id", id),
	}
}

// Start registers handlers, schedules the overdue scan and consumes the
// document topic until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	handlers := map[events.EventType]eventbus.EventHandler{
		events.DocumentSubmittedEvent: d.handleSubmitted,
		events.StageEnteredEvent:      d.handleStageEntered,
		events.DecisionRecordedEvent:  d.handleDecisionRecorded,
		events.DocumentTerminalEvent:  d.handleTerminal,
	}

	for eventType, handler := range handlers {
		if err := d.eventBus.Handle(eventType, handler); err != nil {
			return fmt.Errorf("register handler for %s: %w", eventType, err)
		}
	}

	if d.scanSpec != "" && len(d.tenants) > 0 {
		if _, err := d.cron.AddFunc(d.scanSpec, func() {
			d.scanOverdue(ctx)
		}); err != nil {
			return fmt.Errorf("schedule overdue scan: %w", err)
		}

		d.cron.Start()
		defer d.cron.Stop()
	}

	if err := d.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	d.logger.InfoContext(ctx, "Dispatcher started", "tenants", len(d.tenants), "scan_spec", d.scanSpec)

	<-ctx.Done()

	return nil
}

func (d *Dispatcher) handleSubmitted(ctx context.Context, event any) error {
	submitted, ok := event.(*events.DocumentSubmitted)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	first, err := d.deduper.FirstDelivery(ctx, submitted.ID)
	if err != nil || !first {
		return err
	}

	// The creator gets a receipt; participants are told stage by stage.
	return d.notifier.Notify(ctx, Notification{
		TenantID:   submitted.TenantID,
		DocumentID: submitted.DocumentID,
		Recipient:  submitted.CreatedBy,
		Kind:       KindForReference,
		Message:    fmt.Sprintf("%q entered its approval route", submitted.Title),
	})
}

func (d *Dispatcher) handleStageEntered(ctx context.Context, event any) error {
	entered, ok := event.(*events.StageEntered)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	first, err := d.deduper.FirstDelivery(ctx, entered.ID)
	if err != nil || !first {
		return err
	}

	kind := KindForReference
	message := fmt.Sprintf("document shared with you (%s)", entered.StageType)

	if entered.StageType.Blocking() {
		kind = KindActionRequired
		message = fmt.Sprintf("your decision is required at stage %d", entered.StageOrdinal)
	}

	for _, participantID := range entered.ParticipantIDs {
		err := d.notifier.Notify(ctx, Notification{
			TenantID:   entered.TenantID,
			DocumentID: entered.DocumentID,
			Recipient:  participantID,
			Kind:       kind,
			Message:    message,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (d *Dispatcher) handleDecisionRecorded(ctx context.Context, event any) error {
	decision, ok := event.(*events.DecisionRecorded)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	first, err := d.deduper.FirstDelivery(ctx, decision.ID)
	if err != nil || !first {
		return err
	}

	if decision.Decision == models.DecisionAcknowledged {
		// Read receipts stay out of the creator's notification stream.
		return nil
	}

	doc, err := d.documents.FetchByID(ctx, decision.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", decision.DocumentID, err)
	}

	return d.notifier.Notify(ctx, Notification{
		TenantID:   decision.TenantID,
		DocumentID: decision.DocumentID,
		Recipient:  doc.CreatedBy,
		Kind:       KindDecisionMade,
		Message:    fmt.Sprintf("%s %s at stage %d", decision.Actor, decision.Decision, decision.StageOrdinal),
	})
}

func (d *Dispatcher) handleTerminal(ctx context.Context, event any) error {
	terminal, ok := event.(*events.DocumentTerminal)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	first, err := d.deduper.FirstDelivery(ctx, terminal.ID)
	if err != nil || !first {
		return err
	}

	return d.notifier.Notify(ctx, Notification{
		TenantID:   terminal.TenantID,
		DocumentID: terminal.DocumentID,
		Recipient:  terminal.CreatedBy,
		Kind:       KindCompleted,
		Message:    fmt.Sprintf("document finished as %s", terminal.FinalStatus),
	})
}

// scanOverdue flags live documents whose pending deciders have been
// sitting on them past the SLA threshold.
func (d *Dispatcher) scanOverdue(ctx context.Context) {
	for _, tenantID := range d.tenants {
		docs, err := d.documents.Overdue(ctx, tenantID)
		if err != nil {
			d.logger.ErrorContext(ctx, "Overdue scan failed", "tenant_id", tenantID, "error", err)

			continue
		}

		for _, doc := range docs {
			for _, recipient := range pendingDeciders(doc) {
				err := d.notifier.Notify(ctx, Notification{
					TenantID:   doc.TenantID,
					DocumentID: doc.ID,
					Recipient:  recipient,
					Kind:       KindOverdue,
					Message:    fmt.Sprintf("%q has been waiting for your decision since %s", doc.Title, waitingSince(doc)),
				})
				if err != nil {
					d.logger.ErrorContext(ctx, "Overdue notification failed", "document_id", doc.ID, "error", err)
				}
			}
		}
	}
}

func pendingDeciders(doc *models.Document) []string {
	if doc.Route == nil {
		return nil
	}

	stage := doc.Route.ActiveStage()
	if stage == nil {
		return nil
	}

	var ids []string

	for _, participant := range stage.Participants {
		if participant.Decision == models.DecisionPending {
			ids = append(ids, participant.UserID)
		}
	}

	return ids
}

func waitingSince(doc *models.Document) string {
	if doc.SubmittedAt != nil {
		return doc.SubmittedAt.Format(time.RFC3339)
	}

	return doc.UpdatedAt.Format(time.RFC3339)
}
