// Package worker drains dispatched side effects from the event bus
// and records their delivery.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ictserve/ictserve/internal/dispatch"
	"github.com/ictserve/ictserve/internal/domain"
)

// Worker consumes email and notification messages published by the
// dispatcher and persists a delivery record for each. In a full
// deployment the email handler would hand off to an SMTP relay; here
// delivery is the audit trail.
type Worker struct {
	bus   domain.EventBus
	store domain.Store

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// Modules is the list of modules to drain (empty = all known modules)
	Modules []domain.Module
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, store domain.Store) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins draining side effect topics for the given modules.
func (w *Worker) Start(cfg Config) error {
	modules := cfg.Modules
	if len(modules) == 0 {
		modules = domain.AllModules()
	}

	for _, module := range modules {
		if err := w.startModuleWorker(module); err != nil {
			slog.Error("failed to start worker for module",
				"module", module,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"module_count", len(modules),
	)

	return nil
}

// startModuleWorker subscribes to the side effect topics of one module.
func (w *Worker) startModuleWorker(module domain.Module) error {
	emailSub, err := w.bus.Subscribe(w.ctx, module, domain.TopicEmailSend, func(ctx context.Context, msg *domain.Message) error {
		return w.processEmail(ctx, module, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, emailSub)

	notifSub, err := w.bus.Subscribe(w.ctx, module, domain.TopicNotificationCreate, func(ctx context.Context, msg *domain.Message) error {
		return w.processNotification(ctx, module, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, notifSub)

	slog.Info("module worker started",
		"module", module,
		"topics", []string{domain.TopicEmailSend, domain.TopicNotificationCreate},
	)

	return nil
}

// processEmail records the delivery of a queued email.
func (w *Worker) processEmail(ctx context.Context, module domain.Module, msg *domain.Message) error {
	start := time.Now()

	var email dispatch.EmailMessage
	if err := json.Unmarshal(msg.Payload, &email); err != nil {
		slog.Error("failed to parse email message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	delivery := &domain.Delivery{
		ID:        uuid.New().String(),
		Module:    module,
		TargetID:  email.TargetID,
		Kind:      "email",
		Recipient: email.Recipient,
		Payload:   email.Template,
		CreatedAt: time.Now().UTC(),
	}

	if err := w.store.RecordDelivery(ctx, delivery); err != nil {
		slog.Error("failed to record email delivery",
			"target_id", email.TargetID,
			"error", err,
		)
		return err
	}

	slog.Info("email delivered",
		"module", module,
		"target_id", email.TargetID,
		"recipient", email.Recipient,
		"template", email.Template,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// processNotification records the delivery of a created notification.
func (w *Worker) processNotification(ctx context.Context, module domain.Module, msg *domain.Message) error {
	var notif dispatch.NotificationMessage
	if err := json.Unmarshal(msg.Payload, &notif); err != nil {
		slog.Error("failed to parse notification message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	delivery := &domain.Delivery{
		ID:        uuid.New().String(),
		Module:    module,
		TargetID:  notif.TargetID,
		Kind:      "notification",
		Recipient: notif.Recipient,
		Payload:   notif.Message,
		CreatedAt: time.Now().UTC(),
	}

	if err := w.store.RecordDelivery(ctx, delivery); err != nil {
		slog.Error("failed to record notification delivery",
			"target_id", notif.TargetID,
			"error", err,
		)
		return err
	}

	slog.Debug("notification delivered",
		"module", module,
		"target_id", notif.TargetID,
		"recipient", notif.Recipient,
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
