package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistolabs/visto/pkg/channels/gochannel"
	"github.com/vistolabs/visto/pkg/directory"
	"github.com/vistolabs/visto/pkg/engine"
	"github.com/vistolabs/visto/pkg/eventbus"
	"github.com/vistolabs/visto/pkg/events"
	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/persistence/file"
	"github.com/vistolabs/visto/pkg/services"
)

type captureNotifier struct {
	mu            sync.Mutex
	notifications []Notification
	delivered     chan Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{delivered: make(chan Notification, 16)}
}

func (n *captureNotifier) Notify(_ context.Context, notification Notification) error {
	n.mu.Lock()
	n.notifications = append(n.notifications, notification)
	n.mu.Unlock()

	n.delivered <- notification

	return nil
}

func (n *captureNotifier) wait(t *testing.T) Notification {
	t.Helper()

	select {
	case notification := <-n.delivered:
		return notification
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")

		return Notification{}
	}
}

type rememberingDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *rememberingDeduper) FirstDelivery(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen == nil {
		d.seen = make(map[string]bool)
	}

	if d.seen[eventID] {
		return false, nil
	}

	d.seen[eventID] = true

	return true, nil
}

func newTestDispatcher(t *testing.T, notifier Notifier, deduper Deduper) (*Dispatcher, eventbus.EventBus, context.CancelFunc) {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	p := file.NewPersistence(t.TempDir())
	documents := services.NewDocument(
		p,
		services.NewSchema(p),
		engine.New(directory.Open{}),
		nil,
		slog.Default(),
		time.Hour,
	)

	dispatcher := NewDispatcher("dispatcher-test", bus, documents, notifier, deduper, nil, "", slog.Default())

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_ = dispatcher.Start(ctx)
	}()

	// Give the subscription goroutine a moment to attach.
	time.Sleep(50 * time.Millisecond)

	return dispatcher, bus, cancel
}

func TestDispatcher_StageEnteredNotifiesParticipants(t *testing.T) {
	notifier := newCaptureNotifier()

	_, bus, cancel := newTestDispatcher(t, notifier, NoopDeduper{})
	defer cancel()

	entered := events.StageEntered{
		BaseEvent:      events.NewBaseEvent(events.StageEnteredEvent, "tenant-1", "doc-1"),
		StageOrdinal:   0,
		StageType:      models.StageTypeApproval,
		ParticipantIDs: []string{"manager-1", "manager-2"},
	}

	require.NoError(t, bus.Publish(context.Background(), "doc-1", entered))

	first := notifier.wait(t)
	second := notifier.wait(t)

	assert.Equal(t, KindActionRequired, first.Kind)
	assert.Equal(t, "manager-1", first.Recipient)
	assert.Equal(t, "manager-2", second.Recipient)
	assert.Equal(t, "doc-1", first.DocumentID)
}

func TestDispatcher_NonBlockingStageIsForReference(t *testing.T) {
	notifier := newCaptureNotifier()

	_, bus, cancel := newTestDispatcher(t, notifier, NoopDeduper{})
	defer cancel()

	entered := events.StageEntered{
		BaseEvent:      events.NewBaseEvent(events.StageEnteredEvent, "tenant-1", "doc-1"),
		StageOrdinal:   1,
		StageType:      models.StageTypeCirculation,
		ParticipantIDs: []string{"cc-1"},
	}

	require.NoError(t, bus.Publish(context.Background(), "doc-1", entered))

	notification := notifier.wait(t)
	assert.Equal(t, KindForReference, notification.Kind)
}

func TestDispatcher_TerminalNotifiesCreator(t *testing.T) {
	notifier := newCaptureNotifier()

	_, bus, cancel := newTestDispatcher(t, notifier, NoopDeduper{})
	defer cancel()

	terminal := events.DocumentTerminal{
		BaseEvent:   events.NewBaseEvent(events.DocumentTerminalEvent, "tenant-1", "doc-1"),
		FinalStatus: models.DocumentStatusRejected,
		CreatedBy:   "author-1",
	}

	require.NoError(t, bus.Publish(context.Background(), "doc-1", terminal))

	notification := notifier.wait(t)
	assert.Equal(t, KindCompleted, notification.Kind)
	assert.Equal(t, "author-1", notification.Recipient)
	assert.Contains(t, notification.Message, "rejected")
}

func TestDispatcher_DuplicateDeliveriesAreDropped(t *testing.T) {
	notifier := newCaptureNotifier()

	_, bus, cancel := newTestDispatcher(t, notifier, &rememberingDeduper{})
	defer cancel()

	entered := events.StageEntered{
		BaseEvent:      events.NewBaseEvent(events.StageEnteredEvent, "tenant-1", "doc-1"),
		StageType:      models.StageTypeApproval,
		ParticipantIDs: []string{"manager-1"},
	}

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, "doc-1", entered))
	notifier.wait(t)

	// Same event ID again: the broker redelivered.
	require.NoError(t, bus.Publish(ctx, "doc-1", entered))

	select {
	case notification := <-notifier.delivered:
		t.Fatalf("duplicate delivery produced notification %+v", notification)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestSlogNotifier(t *testing.T) {
	notifier := NewSlogNotifier(slog.Default())

	err := notifier.Notify(context.Background(), Notification{
		TenantID:   "tenant-1",
		DocumentID: "doc-1",
		Recipient:  "manager-1",
		Kind:       KindActionRequired,
		Message:    "your decision is required",
	})
	assert.NoError(t, err)
}
