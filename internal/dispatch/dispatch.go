// Package dispatch executes the action lists of fired rules against a
// target entity.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ictserve/ictserve/internal/domain"
)

// Dispatcher applies rule actions. Emails go out through the event bus
// fire-and-forget; status, assignment and notification actions mutate
// the target synchronously through the store.
type Dispatcher struct {
	store domain.Store
	bus   domain.EventBus
	cache domain.Cache

	// EmailDedupeWindow suppresses repeat send_email actions for the
	// same target and recipient inside the window. Zero disables.
	EmailDedupeWindow time.Duration
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(store domain.Store, bus domain.EventBus, cache domain.Cache) *Dispatcher {
	return &Dispatcher{
		store:             store,
		bus:               bus,
		cache:             cache,
		EmailDedupeWindow: 15 * time.Minute,
	}
}

// EmailMessage is the payload published on the email topic.
type EmailMessage struct {
	Module    domain.Module `json:"module"`
	TargetID  string        `json:"targetId"`
	Recipient string        `json:"recipient"`
	Template  string        `json:"template"`
	QueuedAt  time.Time     `json:"queuedAt"`
}

// NotificationMessage is the payload published on the notification topic.
type NotificationMessage struct {
	NotificationID string        `json:"notificationId"`
	Module         domain.Module `json:"module"`
	TargetID       string        `json:"targetId"`
	Recipient      string        `json:"recipient"`
	Message        string        `json:"message"`
}

// Dispatch runs the action list in order. A failing action is recorded
// and the remaining actions still run; if anything failed the
// collected outcomes come back wrapped in a PartialFailure.
func (d *Dispatcher) Dispatch(ctx context.Context, target *domain.Target, actions []domain.Action) ([]domain.ActionOutcome, error) {
	outcomes := make([]domain.ActionOutcome, 0, len(actions))
	anyFailed := false

	for _, action := range actions {
		start := time.Now()
		outcome := domain.ActionOutcome{
			ActionType: action.Type,
			Value:      action.Value,
			Status:     domain.OutcomeOK,
		}

		var err error
		switch action.Type {
		case domain.ActionSendEmail:
			outcome.Status, err = d.sendEmail(ctx, target, action.Value)
		case domain.ActionUpdateStatus:
			err = d.updateStatus(ctx, target, action.Value)
		case domain.ActionAssignUser:
			err = d.assignUser(ctx, target, action.Value)
		case domain.ActionCreateNotification:
			err = d.createNotification(ctx, target, action.Value)
		default:
			err = fmt.Errorf("%w: action type %q", domain.ErrInvalidInput, action.Type)
		}

		if err != nil {
			outcome.Status = domain.OutcomeFailed
			outcome.Err = err.Error()
			anyFailed = true
			slog.Warn("action failed",
				"module", target.Module,
				"target_id", target.ID,
				"action", action.Type,
				"error", err,
			)
		}
		outcome.ProcessMs = time.Since(start).Milliseconds()
		outcomes = append(outcomes, outcome)
	}

	if anyFailed {
		return outcomes, &domain.PartialFailure{Outcomes: outcomes}
	}
	return outcomes, nil
}

// sendEmail publishes the email onto the bus. Delivery is not awaited.
// A target with no requester email has nowhere to deliver to, so the
// action is skipped rather than queued.
func (d *Dispatcher) sendEmail(ctx context.Context, target *domain.Target, template string) (string, error) {
	recipient := target.RequesterEmail
	if recipient == "" {
		slog.Debug("email skipped, target has no requester email",
			"module", target.Module,
			"target_id", target.ID,
			"template", template,
		)
		return domain.OutcomeSkipped, nil
	}

	if d.cache != nil && d.EmailDedupeWindow > 0 {
		key := "email:" + target.ID + ":" + template
		count, err := d.cache.IncrementCounter(ctx, target.Module, key, d.EmailDedupeWindow)
		if err == nil && count > 1 {
			return domain.OutcomeSkipped, nil
		}
	}

	payload, err := json.Marshal(EmailMessage{
		Module:    target.Module,
		TargetID:  target.ID,
		Recipient: recipient,
		Template:  template,
		QueuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.OutcomeFailed, err
	}

	if err := d.bus.Publish(ctx, target.Module, domain.TopicEmailSend, payload); err != nil {
		return domain.OutcomeFailed, fmt.Errorf("failed to queue email: %w", err)
	}
	return domain.OutcomeQueued, nil
}

func (d *Dispatcher) updateStatus(ctx context.Context, target *domain.Target, status string) error {
	target.Status = status
	target.UpdatedAt = time.Now().UTC()
	if err := d.store.SaveTarget(ctx, target); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

func (d *Dispatcher) assignUser(ctx context.Context, target *domain.Target, userID string) error {
	target.AssigneeID = userID
	target.UpdatedAt = time.Now().UTC()
	if err := d.store.SaveTarget(ctx, target); err != nil {
		return fmt.Errorf("failed to assign user: %w", err)
	}
	return nil
}

func (d *Dispatcher) createNotification(ctx context.Context, target *domain.Target, message string) error {
	n := &domain.Notification{
		ID:        uuid.New().String(),
		Module:    target.Module,
		TargetID:  target.ID,
		Recipient: target.AssigneeID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	// Best effort fan-out for listeners; persistence above is the
	// source of truth.
	if payload, err := json.Marshal(NotificationMessage{
		NotificationID: n.ID,
		Module:         n.Module,
		TargetID:       n.TargetID,
		Recipient:      n.Recipient,
		Message:        n.Message,
	}); err == nil {
		_ = d.bus.Publish(ctx, target.Module, domain.TopicNotificationCreate, payload)
	}
	return nil
}
