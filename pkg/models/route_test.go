package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageType_Blocking(t *testing.T) {
	assert.True(t, StageTypeApproval.Blocking())
	assert.True(t, StageTypeCooperation.Blocking())
	assert.False(t, StageTypeReference.Blocking())
	assert.False(t, StageTypeReception.Blocking())
	assert.False(t, StageTypeCirculation.Blocking())
}

func TestRouteTemplate_Materialize(t *testing.T) {
	template := RouteTemplate{
		Stages: []StageTemplate{
			{Name: "Manager", Type: StageTypeApproval, Participants: []string{"u1"}},
			{Name: "CC", Type: StageTypeReference, Participants: []string{"u2", "u3"}},
		},
	}

	route := template.Materialize()
	require.Len(t, route.Stages, 2)

	assert.Equal(t, 0, route.Stages[0].Ordinal)
	assert.Equal(t, 1, route.Stages[1].Ordinal)
	assert.Equal(t, StageStatusWaiting, route.Stages[0].Status)
	assert.Equal(t, StageStatusWaiting, route.Stages[1].Status)

	require.Len(t, route.Stages[1].Participants, 2)
	assert.Equal(t, "u2", route.Stages[1].Participants[0].UserID)
	assert.Equal(t, DecisionPending, route.Stages[1].Participants[0].Decision)
}

func TestStage_FullyApproved(t *testing.T) {
	stage := &Stage{
		Type: StageTypeApproval,
		Participants: []*Participant{
			{UserID: "u1", Decision: DecisionApproved},
			{UserID: "u2", Decision: DecisionPending},
		},
	}

	assert.False(t, stage.FullyApproved())

	stage.Participants[1].Decision = DecisionApproved
	assert.True(t, stage.FullyApproved())

	// Empty stages never satisfy the AND-gate.
	empty := &Stage{Type: StageTypeApproval}
	assert.False(t, empty.FullyApproved())
}

func TestRoute_HasAnyDecision(t *testing.T) {
	route := RouteTemplate{
		Stages: []StageTemplate{
			{Type: StageTypeApproval, Participants: []string{"u1"}},
			{Type: StageTypeReference, Participants: []string{"u2"}},
		},
	}.Materialize()

	assert.False(t, route.HasAnyDecision())

	// Acknowledgments count as decisions for recall eligibility.
	now := time.Now()
	route.Stages[1].Participants[0].Decision = DecisionAcknowledged
	route.Stages[1].Participants[0].DecidedAt = &now

	assert.True(t, route.HasAnyDecision())
}

func TestRoute_StageAt(t *testing.T) {
	route := RouteTemplate{
		Stages: []StageTemplate{
			{Type: StageTypeApproval, Participants: []string{"u1"}},
		},
	}.Materialize()

	assert.NotNil(t, route.StageAt(0))
	assert.Nil(t, route.StageAt(5))
}

func TestRoute_CompletedStages(t *testing.T) {
	route := RouteTemplate{
		Stages: []StageTemplate{
			{Type: StageTypeApproval, Participants: []string{"u1"}},
			{Type: StageTypeReference, Participants: []string{"u2"}},
			{Type: StageTypeApproval, Participants: []string{"u3"}},
		},
	}.Materialize()

	route.Stages[0].Status = StageStatusApproved
	route.Stages[1].Status = StageStatusNotified
	route.Stages[2].Status = StageStatusActive

	assert.Equal(t, 2, route.CompletedStages())
}

func TestDocumentStatus_Lifecycle(t *testing.T) {
	assert.True(t, DocumentStatusApproved.Terminal())
	assert.True(t, DocumentStatusRejected.Terminal())
	assert.True(t, DocumentStatusCancelled.Terminal())
	assert.False(t, DocumentStatusDraft.Terminal())

	assert.True(t, DocumentStatusSubmitted.Live())
	assert.True(t, DocumentStatusInProgress.Live())
	assert.False(t, DocumentStatusDraft.Live())
	assert.False(t, DocumentStatusApproved.Live())
}
