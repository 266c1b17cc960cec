package engine

import (
	"time"

	"github.com/vistolabs/visto/pkg/models"
)

// Query views are pure read projections over document aggregates; they
// never mutate state. The Pending view is the authoritative "action
// required" queue and always matches what Decide would accept.

// OutboxItem is one creator-owned document with its route progress.
type OutboxItem struct {
	Document        *models.Document `json:"document"`
	CompletedStages int              `json:"completed_stages"`
	TotalStages     int              `json:"total_stages"`
	Urgent          bool             `json:"urgent,omitempty"`
}

// Outbox lists documents created by the actor, any status.
func Outbox(docs []*models.Document, actor string, slaThreshold time.Duration, now time.Time) []OutboxItem {
	items := make([]OutboxItem, 0)

	for _, doc := range docs {
		if doc.CreatedBy != actor {
			continue
		}

		item := OutboxItem{Document: doc, Urgent: overdue(doc, slaThreshold, now)}

		if doc.Route != nil {
			item.CompletedStages = doc.Route.CompletedStages()
			item.TotalStages = len(doc.Route.Stages)
		}

		items = append(items, item)
	}

	return items
}

// Inbox lists documents where the actor participates in a non-blocking
// stage: reference, reception or circulation.
func Inbox(docs []*models.Document, actor string) []*models.Document {
	matched := make([]*models.Document, 0)

	for _, doc := range docs {
		if doc.Route == nil {
			continue
		}

		for _, stage := range doc.Route.Stages {
			if stage.Type.Blocking() {
				continue
			}

			if stage.Participant(actor) != nil {
				matched = append(matched, doc)

				break
			}
		}
	}

	return matched
}

// Pending lists live documents whose current blocking stage has the actor
// as a pending participant.
func Pending(docs []*models.Document, actor string) []*models.Document {
	matched := make([]*models.Document, 0)

	for _, doc := range docs {
		if !doc.Status.Live() || doc.Route == nil {
			continue
		}

		stage := doc.Route.ActiveStage()
		if stage == nil {
			continue
		}

		participant := stage.Participant(actor)
		if participant != nil && participant.Decision == models.DecisionPending {
			matched = append(matched, doc)
		}
	}

	return matched
}

// Overdue lists live documents older than the SLA threshold. Escalation is
// a read-side computation; the state machine has no timeout concept.
func Overdue(docs []*models.Document, threshold time.Duration, now time.Time) []*models.Document {
	matched := make([]*models.Document, 0)

	for _, doc := range docs {
		if overdue(doc, threshold, now) {
			matched = append(matched, doc)
		}
	}

	return matched
}

func overdue(doc *models.Document, threshold time.Duration, now time.Time) bool {
	if threshold <= 0 || !doc.Status.Live() || doc.SubmittedAt == nil {
		return false
	}

	return now.Sub(*doc.SubmittedAt) > threshold
}
