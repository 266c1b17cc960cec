package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vistolabs/visto/pkg/directory"
	"github.com/vistolabs/visto/pkg/eventbus"
	"github.com/vistolabs/visto/pkg/events"
	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/validation"
)

// Engine owns document lifecycle transitions. It mutates the in-memory
// aggregate only; callers persist the document afterwards with a
// versioned save, which is what makes each transition atomic.
type Engine struct {
	directory directory.Directory
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock. Tests use it for deterministic
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(dir directory.Directory, opts ...Option) *Engine {
	e := &Engine{
		directory: dir,
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Transition is the outcome of a successful engine operation: the mutated
// aggregate plus the events the caller publishes after persisting it.
type Transition struct {
	Document *models.Document
	Events   []eventbus.Event
}

func (t *Transition) emit(event eventbus.Event) {
	t.Events = append(t.Events, event)
}

// Submit validates the payload, materializes the route from the template
// and moves the document out of draft. A route without a single blocking
// stage completes immediately as approved.
func (e *Engine) Submit(ctx context.Context, doc *models.Document, compiled *validation.CompiledSchema, payload map[string]any, template models.RouteTemplate) (*Transition, error) {
	if doc.Status != models.DocumentStatusDraft {
		return nil, &InvalidStateError{DocumentID: doc.ID, Status: doc.Status, Op: "submit"}
	}

	now := e.now()

	result := compiled.Validate(payload)
	if !result.Valid {
		detail, _ := json.Marshal(result.Errors)
		doc.AppendHistory(now, doc.CreatedBy, "validation_failed", nil, string(detail))

		return nil, &ValidationError{Errors: result.Errors}
	}

	if err := e.checkTemplate(ctx, doc, template); err != nil {
		return nil, err
	}

	doc.Data = result.Payload
	doc.Route = template.Materialize()
	doc.Status = models.DocumentStatusSubmitted
	doc.SubmittedAt = &now
	doc.AppendHistory(now, doc.CreatedBy, "submitted", nil, "")

	tr := &Transition{Document: doc}
	tr.emit(events.DocumentSubmitted{
		BaseEvent: events.NewBaseEvent(events.DocumentSubmittedEvent, doc.TenantID, doc.ID),
		SchemaID:  doc.SchemaID,
		CreatedBy: doc.CreatedBy,
		Title:     doc.Title,
	})

	e.advance(doc, 0, now, tr)

	return tr, nil
}

func (e *Engine) checkTemplate(ctx context.Context, doc *models.Document, template models.RouteTemplate) error {
	if len(template.Stages) == 0 {
		return &InvalidTemplateError{DocumentID: doc.ID, Reason: "route has no stages"}
	}

	for _, stage := range template.Stages {
		if !stage.Type.Valid() {
			return &InvalidTemplateError{DocumentID: doc.ID, Reason: "unknown stage type " + string(stage.Type)}
		}

		if len(stage.Participants) == 0 {
			return &InvalidTemplateError{DocumentID: doc.ID, Reason: "stage has no participants"}
		}

		for _, userID := range stage.Participants {
			known, err := e.directory.UserExists(ctx, doc.TenantID, userID)
			if err != nil {
				return err
			}

			if !known {
				return &UnknownParticipantError{TenantID: doc.TenantID, UserID: userID}
			}
		}
	}

	return nil
}

// Decide records one participant's verdict on the current blocking stage.
// A rejection short-circuits the whole route; an approval advances the
// stage only once every participant has approved.
func (e *Engine) Decide(doc *models.Document, actorID string, stageOrdinal int, decision models.Decision, comment string) (*Transition, error) {
	if decision != models.DecisionApproved && decision != models.DecisionRejected {
		return nil, ErrUnsupportedDecision
	}

	if !doc.Status.Live() {
		return nil, &InvalidStateError{DocumentID: doc.ID, Status: doc.Status, Op: "decide on"}
	}

	stage := doc.Route.StageAt(stageOrdinal)
	if stage == nil {
		return nil, &StageNotActiveError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, Reason: "no such stage"}
	}

	if stage.Status != models.StageStatusActive {
		return nil, &StageNotActiveError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, Reason: "stage is " + string(stage.Status)}
	}

	participant := stage.Participant(actorID)
	if participant == nil {
		return nil, &NotAParticipantError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, UserID: actorID}
	}

	if participant.Decision != models.DecisionPending {
		return nil, &AlreadyDecidedError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, UserID: actorID, Decision: participant.Decision}
	}

	now := e.now()

	participant.Decision = decision
	participant.DecidedAt = &now
	participant.Comment = comment

	// First recorded decision distinguishes "actively routed" from
	// "submitted, untouched".
	if doc.Status == models.DocumentStatusSubmitted {
		doc.Status = models.DocumentStatusInProgress
	}

	doc.AppendHistory(now, actorID, "decision_"+string(decision), &stage.Ordinal, comment)

	tr := &Transition{Document: doc}
	tr.emit(events.DecisionRecorded{
		BaseEvent:    events.NewBaseEvent(events.DecisionRecordedEvent, doc.TenantID, doc.ID),
		Actor:        actorID,
		StageOrdinal: stage.Ordinal,
		Decision:     decision,
		Comment:      comment,
	})

	if decision == models.DecisionRejected {
		// Terminal, non-negotiable: one rejection ends the route.
		stage.Status = models.StageStatusRejected
		e.skipRemaining(doc.Route)
		e.finish(doc, models.DocumentStatusRejected, now, tr)

		return tr, nil
	}

	if stage.FullyApproved() {
		stage.Status = models.StageStatusApproved
		e.advance(doc, stageIndex(doc.Route, stage)+1, now, tr)
	}

	return tr, nil
}

// Recall cancels a submitted document. Only the creator may recall, and
// only while zero decisions exist anywhere in the route.
func (e *Engine) Recall(doc *models.Document, actorID string) (*Transition, error) {
	if !doc.Status.Live() {
		return nil, &InvalidStateError{DocumentID: doc.ID, Status: doc.Status, Op: "recall"}
	}

	if actorID != doc.CreatedBy {
		return nil, &RecallNotAllowedError{DocumentID: doc.ID, Reason: "only the creator may recall"}
	}

	if doc.Route.HasAnyDecision() {
		return nil, &RecallNotAllowedError{DocumentID: doc.ID, Reason: "a decision has already been recorded"}
	}

	now := e.now()

	doc.AppendHistory(now, actorID, "recalled", nil, "")
	e.skipRemaining(doc.Route)

	tr := &Transition{Document: doc}
	e.finish(doc, models.DocumentStatusCancelled, now, tr)

	return tr, nil
}

// Acknowledge records a read receipt on a non-blocking stage. It never
// affects route advancement.
func (e *Engine) Acknowledge(doc *models.Document, actorID string, stageOrdinal int) (*Transition, error) {
	if !doc.Status.Live() {
		return nil, &InvalidStateError{DocumentID: doc.ID, Status: doc.Status, Op: "acknowledge"}
	}

	stage := doc.Route.StageAt(stageOrdinal)
	if stage == nil {
		return nil, &StageNotActiveError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, Reason: "no such stage"}
	}

	if stage.Type.Blocking() {
		return nil, &StageNotActiveError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, Reason: "stage requires a decision, not an acknowledgment"}
	}

	if stage.Status != models.StageStatusNotified {
		return nil, &StageNotActiveError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, Reason: "stage is " + string(stage.Status)}
	}

	participant := stage.Participant(actorID)
	if participant == nil {
		return nil, &NotAParticipantError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, UserID: actorID}
	}

	if participant.Decision != models.DecisionPending {
		return nil, &AlreadyDecidedError{DocumentID: doc.ID, StageOrdinal: stageOrdinal, UserID: actorID, Decision: participant.Decision}
	}

	now := e.now()

	participant.Decision = models.DecisionAcknowledged
	participant.DecidedAt = &now
	doc.AppendHistory(now, actorID, "acknowledged", &stage.Ordinal, "")

	tr := &Transition{Document: doc}
	tr.emit(events.DecisionRecorded{
		BaseEvent:    events.NewBaseEvent(events.DecisionRecordedEvent, doc.TenantID, doc.ID),
		Actor:        actorID,
		StageOrdinal: stage.Ordinal,
		Decision:     models.DecisionAcknowledged,
	})

	return tr, nil
}

// advance scans forward from the given stage index, auto-notifying
// non-blocking stages until it activates the next blocking stage or
// exhausts the route, which approves the document.
func (e *Engine) advance(doc *models.Document, fromIndex int, now time.Time, tr *Transition) {
	for i := fromIndex; i < len(doc.Route.Stages); i++ {
		stage := doc.Route.Stages[i]

		if stage.Type.Blocking() {
			stage.Status = models.StageStatusActive
			tr.emit(stageEntered(doc, stage))

			return
		}

		stage.Status = models.StageStatusNotified
		tr.emit(stageEntered(doc, stage))
	}

	e.finish(doc, models.DocumentStatusApproved, now, tr)
}

func (e *Engine) finish(doc *models.Document, status models.DocumentStatus, now time.Time, tr *Transition) {
	doc.Status = status
	doc.CompletedAt = &now
	doc.AppendHistory(now, "", "completed_"+string(status), nil, "")

	tr.emit(events.DocumentTerminal{
		BaseEvent:   events.NewBaseEvent(events.DocumentTerminalEvent, doc.TenantID, doc.ID),
		FinalStatus: status,
		CreatedBy:   doc.CreatedBy,
	})
}

func (e *Engine) skipRemaining(route *models.Route) {
	for _, stage := range route.Stages {
		if !stage.Settled() {
			stage.Status = models.StageStatusSkipped
		}
	}
}

func stageEntered(doc *models.Document, stage *models.Stage) events.StageEntered {
	participantIDs := make([]string, 0, len(stage.Participants))
	for _, p := range stage.Participants {
		participantIDs = append(participantIDs, p.UserID)
	}

	return events.StageEntered{
		BaseEvent:      events.NewBaseEvent(events.StageEnteredEvent, doc.TenantID, doc.ID),
		StageOrdinal:   stage.Ordinal,
		StageType:      stage.Type,
		ParticipantIDs: participantIDs,
	}
}

func stageIndex(route *models.Route, stage *models.Stage) int {
	for i, s := range route.Stages {
		if s == stage {
			return i
		}
	}

	return -1
}
