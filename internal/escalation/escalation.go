// Package escalation provides the SLA breach sweeper.
package escalation

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ictserve/ictserve/internal/dispatch"
	"github.com/ictserve/ictserve/internal/domain"
	"github.com/ictserve/ictserve/internal/sla"
)

// Sweeper periodically walks open targets, checks how far each one is
// into its resolution window and raises escalation events for those
// past the configured threshold. Raised escalations are deduplicated
// through the cache so a target escalates once per window, not once
// per sweep.
type Sweeper struct {
	store domain.Store
	sla   *sla.Service
	bus   domain.EventBus
	cache domain.Cache

	// Interval between sweeps.
	Interval time.Duration

	// DedupeWindow suppresses repeat escalations of the same target.
	DedupeWindow time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Event is the payload published on the escalation topic.
type Event struct {
	Module         domain.Module `json:"module"`
	TargetID       string        `json:"targetId"`
	Priority       string        `json:"priority"`
	ElapsedPercent float64       `json:"elapsedPercent"`
	Roles          []string      `json:"roles,omitempty"`
	AutoAssign     bool          `json:"autoAssign"`
	AssignedTo     string        `json:"assignedTo,omitempty"`
	RaisedAt       time.Time     `json:"raisedAt"`
}

// NewSweeper creates an escalation sweeper.
func NewSweeper(store domain.Store, slaService *sla.Service, bus domain.EventBus, cache domain.Cache) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		store:        store,
		sla:          slaService,
		bus:          bus,
		cache:        cache,
		Interval:     time.Minute,
		DedupeWindow: 4 * time.Hour,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.SweepAll(s.ctx)
			}
		}
	}()

	slog.Info("escalation sweeper started", "interval", s.Interval)
}

// Stop halts the sweep loop and waits for an in-flight sweep.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("escalation sweeper stopped")
}

// SweepAll runs one sweep over every module.
func (s *Sweeper) SweepAll(ctx context.Context) {
	for _, module := range domain.AllModules() {
		if err := s.Sweep(ctx, module); err != nil {
			slog.Error("escalation sweep failed", "module", module, "error", err)
		}
	}
}

// Sweep checks one module's open targets and returns the first store
// error encountered. Individual target failures are logged and do not
// stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context, module domain.Module) error {
	targets, err := s.store.ListOpenTargets(ctx, module)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	escalated := 0

	for _, target := range targets {
		deadlines, err := s.sla.CalculateDeadlines(ctx, module, target.Priority, target.Category, target.CreatedAt)
		if err != nil {
			slog.Warn("deadline calculation failed",
				"module", module,
				"target_id", target.ID,
				"error", err,
			)
			continue
		}

		decision := s.sla.CheckEscalation(module, target.CreatedAt, deadlines.ResolutionDeadline, now)
		if !decision.Escalate {
			continue
		}

		if s.cache != nil {
			count, err := s.cache.IncrementCounter(ctx, module, "escalation:"+target.ID, s.DedupeWindow)
			if err == nil && count > 1 {
				continue
			}
		}

		if err := s.raise(ctx, module, target, decision, now); err != nil {
			slog.Error("failed to raise escalation",
				"module", module,
				"target_id", target.ID,
				"error", err,
			)
			continue
		}
		escalated++
	}

	if escalated > 0 {
		slog.Info("escalations raised",
			"module", module,
			"count", escalated,
			"open_targets", len(targets),
		)
	}
	return nil
}

// raise reassigns ownership when the config asks for it, publishes the
// escalation event and queues a notification email for the requester.
// The worker drains both topics.
func (s *Sweeper) raise(ctx context.Context, module domain.Module, target *domain.Target, decision sla.EscalationDecision, now time.Time) error {
	event := Event{
		Module:         module,
		TargetID:       target.ID,
		Priority:       string(target.Priority),
		ElapsedPercent: decision.ElapsedPercent,
		Roles:          decision.Roles,
		AutoAssign:     decision.AutoAssign,
		RaisedAt:       now,
	}

	// Ownership moves to the first escalation role's queue. Targets
	// assigned to a role are picked up by whoever holds that role.
	if decision.AutoAssign && len(decision.Roles) > 0 {
		target.AssigneeID = "role:" + decision.Roles[0]
		if err := s.store.SaveTarget(ctx, target); err != nil {
			slog.Warn("failed to reassign escalated target",
				"module", module,
				"target_id", target.ID,
				"error", err,
			)
		} else {
			event.AssignedTo = target.AssigneeID
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, module, domain.TopicEscalation, payload); err != nil {
		return err
	}

	if target.RequesterEmail != "" {
		email, err := json.Marshal(dispatch.EmailMessage{
			Module:    module,
			TargetID:  target.ID,
			Recipient: target.RequesterEmail,
			Template:  "sla-escalation",
			QueuedAt:  now,
		})
		if err == nil {
			if err := s.bus.Publish(ctx, module, domain.TopicEmailSend, email); err != nil {
				slog.Warn("failed to queue escalation email",
					"target_id", target.ID,
					"error", err,
				)
			}
		}
	}

	return nil
}
