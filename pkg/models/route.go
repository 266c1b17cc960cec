package models

import "time"

// StageType classifies a route stage by its participation semantics.
type StageType string

const (
	StageTypeApproval    StageType = "approval"    // blocking, AND-gate
	StageTypeCooperation StageType = "cooperation" // blocking, AND-gate
	StageTypeReference   StageType = "reference"   // non-blocking, read receipt
	StageTypeReception   StageType = "reception"   // non-blocking
	StageTypeCirculation StageType = "circulation" // non-blocking
)

// Blocking reports whether participant decisions gate route advancement.
func (t StageType) Blocking() bool {
	return t == StageTypeApproval || t == StageTypeCooperation
}

// Valid reports whether the stage type is one of the supported set.
func (t StageType) Valid() bool {
	switch t {
	case StageTypeApproval, StageTypeCooperation, StageTypeReference, StageTypeReception, StageTypeCirculation:
		return true
	default:
		return false
	}
}

// StageStatus tracks the lifecycle of a single stage within the route.
type StageStatus string

const (
	StageStatusWaiting  StageStatus = "waiting"
	StageStatusActive   StageStatus = "active"
	StageStatusApproved StageStatus = "approved"
	StageStatusRejected StageStatus = "rejected"
	StageStatusNotified StageStatus = "notified" // non-blocking stage reached
	StageStatusSkipped  StageStatus = "skipped"  // bypassed by rejection short-circuit
)

// Decision is a participant's recorded verdict.
type Decision string

const (
	DecisionPending      Decision = "pending"
	DecisionApproved     Decision = "approved"
	DecisionRejected     Decision = "rejected"
	DecisionAcknowledged Decision = "acknowledged"
)

// Participant is one user's slot in a stage. Insertion order is preserved
// for audit display; advancement does not depend on it.
type Participant struct {
	UserID    string     `json:"user_id"`
	Decision  Decision   `json:"decision"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	Comment   string     `json:"comment,omitempty"`
}

// Stage is one step of the approval route.
type Stage struct {
	Ordinal      int            `json:"ordinal"`
	Name         string         `json:"name,omitempty"`
	Type         StageType      `json:"type"`
	Status       StageStatus    `json:"status"`
	Participants []*Participant `json:"participants"`
}

// Participant returns the slot for userID, or nil.
func (s *Stage) Participant(userID string) *Participant {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return p
		}
	}

	return nil
}

// FullyApproved reports whether every participant has approved. Empty
// stages never satisfy the AND-gate; compilation rejects them upstream.
func (s *Stage) FullyApproved() bool {
	if len(s.Participants) == 0 {
		return false
	}

	for _, p := range s.Participants {
		if p.Decision != DecisionApproved {
			return false
		}
	}

	return true
}

// Settled reports whether the stage no longer gates advancement.
func (s *Stage) Settled() bool {
	switch s.Status {
	case StageStatusApproved, StageStatusRejected, StageStatusNotified, StageStatusSkipped:
		return true
	default:
		return false
	}
}

// Route is the ordered list of stages a document travels through. It is
// materialized from a template at submission time and mutated in place by
// the routing engine as decisions arrive.
type Route struct {
	Stages []*Stage `json:"stages"`
}

// StageAt returns the stage with the given ordinal, or nil.
func (r *Route) StageAt(ordinal int) *Stage {
	for _, stage := range r.Stages {
		if stage.Ordinal == ordinal {
			return stage
		}
	}

	return nil
}

// ActiveStage returns the currently active blocking stage, or nil when the
// route is exhausted or terminal.
func (r *Route) ActiveStage() *Stage {
	for _, stage := range r.Stages {
		if stage.Status == StageStatusActive {
			return stage
		}
	}

	return nil
}

// HasAnyDecision reports whether any participant in any stage has moved
// off pending. Acknowledgments count; recall eligibility hangs on this.
func (r *Route) HasAnyDecision() bool {
	for _, stage := range r.Stages {
		for _, p := range stage.Participants {
			if p.Decision != DecisionPending {
				return true
			}
		}
	}

	return false
}

// CompletedStages counts stages that reached a settled status.
func (r *Route) CompletedStages() int {
	count := 0

	for _, stage := range r.Stages {
		if stage.Settled() {
			count++
		}
	}

	return count
}

// RouteTemplate describes the desired route at submission time.
type RouteTemplate struct {
	Stages []StageTemplate `json:"stages" validate:"required,min=1,dive"`
}

// StageTemplate is one stage of a route template.
type StageTemplate struct {
	Name         string    `json:"name,omitempty"`
	Type         StageType `json:"type"         validate:"required"`
	Participants []string  `json:"participants" validate:"required,min=1"`
}

// Materialize builds a concrete route from the template. Ordinals are
// assigned by position; every participant starts pending.
func (t RouteTemplate) Materialize() *Route {
	route := &Route{Stages: make([]*Stage, 0, len(t.Stages))}

	for i, st := range t.Stages {
		stage := &Stage{
			Ordinal:      i,
			Name:         st.Name,
			Type:         st.Type,
			Status:       StageStatusWaiting,
			Participants: make([]*Participant, 0, len(st.Participants)),
		}

		for _, userID := range st.Participants {
			stage.Participants = append(stage.Participants, &Participant{
				UserID:   userID,
				Decision: DecisionPending,
			})
		}

		route.Stages = append(route.Stages, stage)
	}

	return route
}
