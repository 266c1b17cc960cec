// Package dispatch consumes document events and turns them into
// participant notifications.
package dispatch

import (
	"context"
	"log/slog"
)

// NotificationKind classifies what a recipient is being told.
type NotificationKind string

const (
	KindActionRequired NotificationKind = "action_required"
	KindForReference   NotificationKind = "for_reference"
	KindDecisionMade   NotificationKind = "decision_made"
	KindCompleted      NotificationKind = "completed"
	KindOverdue        NotificationKind = "overdue"
)

// Notification is one message for one recipient. Delivery transport
// (mail, chat, push) is the notifier's concern.
type Notification struct {
	TenantID   string           `json:"tenant_id"`
	DocumentID string           `json:"document_id"`
	Recipient  string           `json:"recipient"`
	Kind       NotificationKind `json:"kind"`
	Message    string           `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// SlogNotifier writes notifications to the structured log. It is the
// default delivery channel and the one used in development.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Notify(ctx context.Context, notification Notification) error {
	n.logger.InfoContext(ctx, "notification",
		"tenant_id", notification.TenantID,
		"document_id", notification.DocumentID,
		"recipient", notification.Recipient,
		"kind", notification.Kind,
		"message", notification.Message,
	)

	return nil
}
