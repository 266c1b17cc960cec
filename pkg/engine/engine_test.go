package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistolabs/visto/pkg/directory"
	"github.com/vistolabs/visto/pkg/events"
	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/testutil"
	"github.com/vistolabs/visto/pkg/validation"
)

var testClock = func() time.Time {
	return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
}

func newTestEngine() *Engine {
	dir := directory.NewStatic(map[string][]string{
		"tenant-1": {"author-1", "manager-1", "finance-1", "finance-2", "cc-1"},
	})

	return New(dir, WithClock(testClock))
}

func compiledSchema(t *testing.T) *validation.CompiledSchema {
	t.Helper()

	compiled, err := validation.Compile(testutil.CreateTestSchema())
	require.NoError(t, err)

	return compiled
}

func eventTypes(tr *Transition) []events.EventType {
	types := make([]events.EventType, 0, len(tr.Events))
	for _, e := range tr.Events {
		types = append(types, e.GetType())
	}

	return types
}

func submitTestDocument(t *testing.T, e *Engine, template models.RouteTemplate) (*models.Document, *Transition) {
	t.Helper()

	doc := testutil.CreateTestDocument()
	tr, err := e.Submit(context.Background(), doc, compiledSchema(t), doc.Data, template)
	require.NoError(t, err)

	return doc, tr
}

func TestSubmit_ActivatesFirstBlockingStage(t *testing.T) {
	e := newTestEngine()

	doc, tr := submitTestDocument(t, e, testutil.CreateTestRoute())

	assert.Equal(t, models.DocumentStatusSubmitted, doc.Status)
	require.NotNil(t, doc.SubmittedAt)
	assert.Equal(t, models.StageStatusActive, doc.Route.Stages[0].Status)
	assert.Equal(t, models.StageStatusWaiting, doc.Route.Stages[1].Status)

	assert.Equal(t, []events.EventType{
		events.DocumentSubmittedEvent,
		events.StageEnteredEvent,
	}, eventTypes(tr))
}

func TestSubmit_LeadingNonBlockingStagesNotified(t *testing.T) {
	e := newTestEngine()

	template := testutil.CreateTestRoute(testutil.WithStages(
		models.StageTemplate{Type: models.StageTypeReference, Participants: []string{"cc-1"}},
		models.StageTemplate{Type: models.StageTypeApproval, Participants: []string{"manager-1"}},
	))

	doc, tr := submitTestDocument(t, e, template)

	assert.Equal(t, models.StageStatusNotified, doc.Route.Stages[0].Status)
	assert.Equal(t, models.StageStatusActive, doc.Route.Stages[1].Status)
	assert.Len(t, tr.Events, 3) // submitted + two stage entries
}

func TestSubmit_AllNonBlockingRouteCompletesImmediately(t *testing.T) {
	e := newTestEngine()

	template := testutil.CreateTestRoute(testutil.WithStages(
		models.StageTemplate{Type: models.StageTypeCirculation, Participants: []string{"cc-1"}},
		models.StageTemplate{Type: models.StageTypeReception, Participants: []string{"manager-1"}},
	))

	doc, tr := submitTestDocument(t, e, template)

	assert.Equal(t, models.DocumentStatusApproved, doc.Status)
	require.NotNil(t, doc.CompletedAt)
	assert.Equal(t, events.DocumentTerminalEvent, tr.Events[len(tr.Events)-1].GetType())
}

func TestSubmit_RejectsNonDraft(t *testing.T) {
	e := newTestEngine()

	doc := testutil.CreateTestDocument(testutil.WithStatus(models.DocumentStatusApproved))

	_, err := e.Submit(context.Background(), doc, compiledSchema(t), doc.Data, testutil.CreateTestRoute())
	assert.True(t, IsInvalidState(err))
}

func TestSubmit_ValidationFailureRecordsHistory(t *testing.T) {
	e := newTestEngine()

	doc := testutil.CreateTestDocument(testutil.WithData(map[string]any{}))

	_, err := e.Submit(context.Background(), doc, compiledSchema(t), doc.Data, testutil.CreateTestRoute())
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// The document stays draft but the failed attempt is auditable.
	assert.Equal(t, models.DocumentStatusDraft, doc.Status)
	require.NotEmpty(t, doc.History)
	assert.Equal(t, "validation_failed", doc.History[len(doc.History)-1].Action)
}

func TestSubmit_UnknownParticipant(t *testing.T) {
	e := newTestEngine()

	template := testutil.CreateTestRoute(testutil.WithStages(
		models.StageTemplate{Type: models.StageTypeApproval, Participants: []string{"stranger"}},
	))

	doc := testutil.CreateTestDocument()

	_, err := e.Submit(context.Background(), doc, compiledSchema(t), doc.Data, template)
	assert.True(t, IsUnknownParticipant(err))
	assert.Equal(t, models.DocumentStatusDraft, doc.Status)
}

func TestSubmit_InvalidTemplates(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name     string
		template models.RouteTemplate
	}{
		{"empty route", models.RouteTemplate{}},
		{"unknown stage type", testutil.CreateTestRoute(testutil.WithStages(
			models.StageTemplate{Type: "escalation", Participants: []string{"manager-1"}},
		))},
		{"participant-less stage", testutil.CreateTestRoute(testutil.WithStages(
			models.StageTemplate{Type: models.StageTypeApproval, Participants: nil},
		))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testutil.CreateTestDocument()

			_, err := e.Submit(context.Background(), doc, compiledSchema(t), doc.Data, tt.template)
			assert.True(t, IsInvalidTemplate(err))
			assert.Equal(t, models.DocumentStatusDraft, doc.Status)
		})
	}
}

func TestDecide_ANDGateAdvancesOnlyWhenAllApprove(t *testing.T) {
	e := newTestEngine()

	doc, _ := submitTestDocument(t, e, testutil.CreateTestRoute())

	// Stage 0: single approver.
	tr, err := e.Decide(doc, "manager-1", 0, models.DecisionApproved, "lgtm")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusInProgress, doc.Status)
	assert.Equal(t, models.StageStatusApproved, doc.Route.Stages[0].Status)
	assert.Equal(t, models.StageStatusActive, doc.Route.Stages[1].Status)
	assert.Equal(t, []events.EventType{
		events.DecisionRecordedEvent,
		events.StageEnteredEvent,
	}, eventTypes(tr))

	// Stage 1: two approvers, first approval must not advance.
	tr, err = e.Decide(doc, "finance-1", 1, models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusActive, doc.Route.Stages[1].Status)
	assert.Equal(t, []events.EventType{events.DecisionRecordedEvent}, eventTypes(tr))

	tr, err = e.Decide(doc, "finance-2", 1, models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, doc.Status)
	assert.Equal(t, events.DocumentTerminalEvent, tr.Events[len(tr.Events)-1].GetType())
}

func TestDecide_RejectionShortCircuits(t *testing.T) {
	e := newTestEngine()

	doc, _ := submitTestDocument(t, e, testutil.CreateTestRoute())

	tr, err := e.Decide(doc, "manager-1", 0, models.DecisionRejected, "missing receipts")
	require.NoError(t, err)

	assert.Equal(t, models.DocumentStatusRejected, doc.Status)
	assert.Equal(t, models.StageStatusRejected, doc.Route.Stages[0].Status)
	assert.Equal(t, models.StageStatusSkipped, doc.Route.Stages[1].Status)
	require.NotNil(t, doc.CompletedAt)

	assert.Equal(t, []events.EventType{
		events.DecisionRecordedEvent,
		events.DocumentTerminalEvent,
	}, eventTypes(tr))

	// No further decisions are accepted anywhere.
	_, err = e.Decide(doc, "finance-1", 1, models.DecisionApproved, "")
	assert.True(t, IsInvalidState(err))
}

func TestDecide_Guards(t *testing.T) {
	e := newTestEngine()

	doc, _ := submitTestDocument(t, e, testutil.CreateTestRoute())

	t.Run("unsupported decision value", func(t *testing.T) {
		_, err := e.Decide(doc, "manager-1", 0, models.DecisionAcknowledged, "")
		assert.ErrorIs(t, err, ErrUnsupportedDecision)
	})

	t.Run("stage not active", func(t *testing.T) {
		_, err := e.Decide(doc, "finance-1", 1, models.DecisionApproved, "")
		assert.True(t, IsStageNotActive(err))
	})

	t.Run("no such stage", func(t *testing.T) {
		_, err := e.Decide(doc, "manager-1", 9, models.DecisionApproved, "")
		assert.True(t, IsStageNotActive(err))
	})

	t.Run("not a participant", func(t *testing.T) {
		_, err := e.Decide(doc, "cc-1", 0, models.DecisionApproved, "")
		assert.True(t, IsNotAParticipant(err))
	})

	t.Run("idempotent decide", func(t *testing.T) {
		_, err := e.Decide(doc, "manager-1", 0, models.DecisionApproved, "")
		require.NoError(t, err)

		_, err = e.Decide(doc, "manager-1", 0, models.DecisionApproved, "")
		assert.True(t, IsAlreadyDecided(err))
	})
}

func TestRecall(t *testing.T) {
	e := newTestEngine()

	t.Run("creator recalls untouched document", func(t *testing.T) {
		doc, _ := submitTestDocument(t, e, testutil.CreateTestRoute())

		tr, err := e.Recall(doc, "author-1")
		require.NoError(t, err)

		assert.Equal(t, models.DocumentStatusCancelled, doc.Status)
		assert.Equal(t, models.StageStatusSkipped, doc.Route.Stages[0].Status)
		assert.Equal(t, events.DocumentTerminalEvent, tr.Events[len(tr.Events)-1].GetType())
	})

	t.Run("only the creator may recall", func(t *testing.T) {
		doc, _ := submitTestDocument(t, e, testutil.CreateTestRoute())

		_, err := e.Recall(doc, "manager-1")
		assert.True(t, IsRecallNotAllowed(err))
	})

	t.Run("any decision blocks recall", func(t *testing.T) {
		doc, _ := submitTestDocument(t, e, testutil.CreateTestRoute())

		_, err := e.Decide(doc, "manager-1", 0, models.DecisionApproved, "")
		require.NoError(t, err)

		_, err = e.Recall(doc, "author-1")
		assert.True(t, IsRecallNotAllowed(err))
	})

	t.Run("an acknowledgment blocks recall", func(t *testing.T) {
		template := testutil.CreateTestRoute(testutil.WithStages(
			models.StageTemplate{Type: models.StageTypeReference, Participants: []string{"cc-1"}},
			models.StageTemplate{Type: models.StageTypeApproval, Participants: []string{"manager-1"}},
		))

		doc, _ := submitTestDocument(t, e, template)

		_, err := e.Acknowledge(doc, "cc-1", 0)
		require.NoError(t, err)

		_, err = e.Recall(doc, "author-1")
		assert.True(t, IsRecallNotAllowed(err))
	})

	t.Run("terminal document cannot be recalled", func(t *testing.T) {
		doc := testutil.CreateTestDocument(testutil.WithStatus(models.DocumentStatusRejected))

		_, err := e.Recall(doc, "author-1")
		assert.True(t, IsInvalidState(err))
	})
}

func TestAcknowledge(t *testing.T) {
	e := newTestEngine()

	template := testutil.CreateTestRoute(testutil.WithStages(
		models.StageTemplate{Type: models.StageTypeReference, Participants: []string{"cc-1"}},
		models.StageTemplate{Type: models.StageTypeApproval, Participants: []string{"manager-1"}},
	))

	doc, _ := submitTestDocument(t, e, template)

	t.Run("records a read receipt", func(t *testing.T) {
		tr, err := e.Acknowledge(doc, "cc-1", 0)
		require.NoError(t, err)

		participant := doc.Route.Stages[0].Participant("cc-1")
		assert.Equal(t, models.DecisionAcknowledged, participant.Decision)
		require.NotNil(t, participant.DecidedAt)

		// The blocking stage is untouched.
		assert.Equal(t, models.StageStatusActive, doc.Route.Stages[1].Status)
		assert.Equal(t, []events.EventType{events.DecisionRecordedEvent}, eventTypes(tr))
	})

	t.Run("double acknowledge", func(t *testing.T) {
		_, err := e.Acknowledge(doc, "cc-1", 0)
		assert.True(t, IsAlreadyDecided(err))
	})

	t.Run("blocking stage rejects acknowledgments", func(t *testing.T) {
		_, err := e.Acknowledge(doc, "manager-1", 1)
		assert.True(t, IsStageNotActive(err))
	})

	t.Run("non-participant", func(t *testing.T) {
		_, err := e.Acknowledge(doc, "finance-1", 0)
		assert.True(t, IsNotAParticipant(err))
	})
}

func TestDecide_CooperationStageIsUnanimous(t *testing.T) {
	e := newTestEngine()

	template := testutil.CreateTestRoute(testutil.WithStages(
		models.StageTemplate{Type: models.StageTypeCooperation, Participants: []string{"finance-1", "finance-2"}},
	))

	doc, _ := submitTestDocument(t, e, template)

	_, err := e.Decide(doc, "finance-1", 0, models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusInProgress, doc.Status)

	_, err = e.Decide(doc, "finance-2", 0, models.DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, doc.Status)
}
