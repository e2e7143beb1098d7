package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ictserve/ictserve/internal/bus"
	"github.com/ictserve/ictserve/internal/dispatch"
	"github.com/ictserve/ictserve/internal/domain"
)

// deliveryRecorder implements just enough of the store to capture
// delivery records.
type deliveryRecorder struct {
	domain.Store

	mu         sync.Mutex
	deliveries []*domain.Delivery
}

func (r *deliveryRecorder) RecordDelivery(ctx context.Context, d *domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, d)
	return nil
}

func (r *deliveryRecorder) recorded() []*domain.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	t.Run("StartAndStop", func(t *testing.T) {
		store := &deliveryRecorder{}
		w := NewWorker(eventBus, store)

		cfg := Config{
			Modules: []domain.Module{domain.ModuleHelpdesk},
		}

		if err := w.Start(cfg); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions, got %d", stats.SubscriptionCount)
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = w.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("AllModulesByDefault", func(t *testing.T) {
		store := &deliveryRecorder{}
		w := NewWorker(eventBus, store)

		if err := w.Start(Config{}); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		stats := w.GetStats()
		want := 2 * len(domain.AllModules())
		if stats.SubscriptionCount != want {
			t.Errorf("expected %d subscriptions, got %d", want, stats.SubscriptionCount)
		}
	})

	t.Run("RecordsEmailDelivery", func(t *testing.T) {
		store := &deliveryRecorder{}
		w := NewWorker(eventBus, store)

		cfg := Config{Modules: []domain.Module{domain.ModuleHelpdesk}}
		w.Start(cfg)
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		email := dispatch.EmailMessage{
			Module:    domain.ModuleHelpdesk,
			TargetID:  "tkt-001",
			Recipient: "user@agency.gov.my",
			Template:  "sla-warning",
			QueuedAt:  time.Now().UTC(),
		}
		payload, _ := json.Marshal(email)

		if err := eventBus.Publish(context.Background(), domain.ModuleHelpdesk, domain.TopicEmailSend, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		waitFor(t, func() bool { return len(store.recorded()) == 1 })

		got := store.recorded()[0]
		if got.Kind != "email" {
			t.Errorf("expected kind 'email', got %q", got.Kind)
		}
		if got.TargetID != "tkt-001" {
			t.Errorf("expected target 'tkt-001', got %q", got.TargetID)
		}
		if got.Recipient != "user@agency.gov.my" {
			t.Errorf("unexpected recipient %q", got.Recipient)
		}
		if got.Payload != "sla-warning" {
			t.Errorf("expected template in payload, got %q", got.Payload)
		}
	})

	t.Run("RecordsNotificationDelivery", func(t *testing.T) {
		store := &deliveryRecorder{}
		w := NewWorker(eventBus, store)

		cfg := Config{Modules: []domain.Module{domain.ModuleLoans}}
		w.Start(cfg)
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		notif := dispatch.NotificationMessage{
			NotificationID: "ntf-001",
			Module:         domain.ModuleLoans,
			TargetID:       "loan-042",
			Recipient:      "approver",
			Message:        "loan pending approval",
		}
		payload, _ := json.Marshal(notif)

		if err := eventBus.Publish(context.Background(), domain.ModuleLoans, domain.TopicNotificationCreate, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		waitFor(t, func() bool { return len(store.recorded()) == 1 })

		got := store.recorded()[0]
		if got.Kind != "notification" {
			t.Errorf("expected kind 'notification', got %q", got.Kind)
		}
		if got.Payload != "loan pending approval" {
			t.Errorf("unexpected payload %q", got.Payload)
		}
	})

	t.Run("IgnoresMalformedPayload", func(t *testing.T) {
		store := &deliveryRecorder{}
		w := NewWorker(eventBus, store)

		cfg := Config{Modules: []domain.Module{domain.ModuleAssets}}
		w.Start(cfg)
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		eventBus.Publish(context.Background(), domain.ModuleAssets, domain.TopicEmailSend, []byte("{not json"))
		time.Sleep(100 * time.Millisecond)

		if len(store.recorded()) != 0 {
			t.Errorf("expected no deliveries for malformed payload, got %d", len(store.recorded()))
		}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timeout waiting for condition")
}
