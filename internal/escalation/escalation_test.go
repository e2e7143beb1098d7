package escalation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ictserve/ictserve/internal/bus"
	"github.com/ictserve/ictserve/internal/cache"
	"github.com/ictserve/ictserve/internal/dispatch"
	"github.com/ictserve/ictserve/internal/domain"
	"github.com/ictserve/ictserve/internal/sla"
)

// openTargetStore serves a fixed set of open targets per module and
// records target writes.
type openTargetStore struct {
	domain.Store
	targets map[domain.Module][]*domain.Target

	mu    sync.Mutex
	saved []*domain.Target
}

func (s *openTargetStore) ListOpenTargets(ctx context.Context, module domain.Module) ([]*domain.Target, error) {
	return s.targets[module], nil
}

func (s *openTargetStore) SaveTarget(ctx context.Context, target *domain.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, target)
	return nil
}

func (s *openTargetStore) savedTargets() []*domain.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Target(nil), s.saved...)
}

func testSLAConfig(module domain.Module) *domain.SLAConfig {
	return &domain.SLAConfig{
		Module: module,
		Categories: []domain.SLACategory{
			{
				Name: domain.DefaultSLACategory,
				ResponseHours: map[domain.TicketPriority]float64{
					domain.PriorityLow: 8, domain.PriorityNormal: 4,
					domain.PriorityHigh: 2, domain.PriorityUrgent: 1,
				},
				ResolutionHours: map[domain.TicketPriority]float64{
					domain.PriorityLow: 24, domain.PriorityNormal: 12,
					domain.PriorityHigh: 6, domain.PriorityUrgent: 2,
				},
			},
		},
		Escalation: domain.EscalationConfig{
			Enabled:          true,
			ThresholdPercent: 25,
			EscalationRoles:  []string{"supervisor"},
			AutoAssign:       true,
		},
		Notifications: domain.NotificationIntervals{
			WarningMins: 30, CriticalMins: 10, OverdueMins: 15,
		},
	}
}

func newTestSweeper(t *testing.T, targets map[domain.Module][]*domain.Target) (*Sweeper, domain.EventBus, *openTargetStore) {
	t.Helper()

	slaService := sla.NewService()
	for _, module := range domain.AllModules() {
		slaService.ReloadConfig(testSLAConfig(module))
	}

	memCache, err := cache.New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	store := &openTargetStore{targets: targets}
	sweeper := NewSweeper(store, slaService, eventBus, memCache)
	return sweeper, eventBus, store
}

func collect(t *testing.T, eventBus domain.EventBus, module domain.Module, topic string) chan []byte {
	t.Helper()

	received := make(chan []byte, 16)
	sub, err := eventBus.Subscribe(context.Background(), module, topic, func(ctx context.Context, msg *domain.Message) error {
		received <- msg.Payload
		return nil
	})
	if err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}
	t.Cleanup(func() { sub.Unsubscribe() })
	return received
}

func TestSweeper(t *testing.T) {
	t.Run("EscalatesBreachedTarget", func(t *testing.T) {
		// Urgent resolves in 2h; 1h old is past the 25% threshold.
		target := &domain.Target{
			ID:             "HD-1001",
			Module:         domain.ModuleHelpdesk,
			Status:         "open",
			Priority:       domain.PriorityUrgent,
			Category:       "default",
			RequesterEmail: "staff@agency.gov.my",
			CreatedAt:      time.Now().UTC().Add(-time.Hour),
		}
		sweeper, eventBus, _ := newTestSweeper(t, map[domain.Module][]*domain.Target{
			domain.ModuleHelpdesk: {target},
		})

		escalations := collect(t, eventBus, domain.ModuleHelpdesk, domain.TopicEscalation)
		emails := collect(t, eventBus, domain.ModuleHelpdesk, domain.TopicEmailSend)

		if err := sweeper.Sweep(context.Background(), domain.ModuleHelpdesk); err != nil {
			t.Fatalf("sweep failed: %v", err)
		}

		select {
		case payload := <-escalations:
			var event Event
			if err := json.Unmarshal(payload, &event); err != nil {
				t.Fatalf("failed to unmarshal event: %v", err)
			}
			if event.TargetID != "HD-1001" {
				t.Errorf("expected target HD-1001, got %s", event.TargetID)
			}
			if event.ElapsedPercent < 25 {
				t.Errorf("expected elapsed >= 25%%, got %.1f", event.ElapsedPercent)
			}
			if !event.AutoAssign {
				t.Error("expected autoAssign from escalation policy")
			}
			if len(event.Roles) != 1 || event.Roles[0] != "supervisor" {
				t.Errorf("unexpected roles: %v", event.Roles)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no escalation event published")
		}

		select {
		case payload := <-emails:
			var msg dispatch.EmailMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				t.Fatalf("failed to unmarshal email: %v", err)
			}
			if msg.Template != "sla-escalation" {
				t.Errorf("expected sla-escalation template, got %s", msg.Template)
			}
			if msg.Recipient != "staff@agency.gov.my" {
				t.Errorf("unexpected recipient: %s", msg.Recipient)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no escalation email queued")
		}
	})

	t.Run("IgnoresTargetWithinThreshold", func(t *testing.T) {
		// Low priority resolves in 24h; a fresh ticket is nowhere near 25%.
		target := &domain.Target{
			ID:        "HD-1002",
			Module:    domain.ModuleHelpdesk,
			Status:    "open",
			Priority:  domain.PriorityLow,
			Category:  "default",
			CreatedAt: time.Now().UTC().Add(-10 * time.Minute),
		}
		sweeper, eventBus, store := newTestSweeper(t, map[domain.Module][]*domain.Target{
			domain.ModuleHelpdesk: {target},
		})

		escalations := collect(t, eventBus, domain.ModuleHelpdesk, domain.TopicEscalation)

		if err := sweeper.Sweep(context.Background(), domain.ModuleHelpdesk); err != nil {
			t.Fatalf("sweep failed: %v", err)
		}

		select {
		case <-escalations:
			t.Fatal("target within threshold should not escalate")
		case <-time.After(200 * time.Millisecond):
		}
		if saves := store.savedTargets(); len(saves) != 0 {
			t.Errorf("no reassignment expected without a breach, got %d writes", len(saves))
		}
	})

	t.Run("DeduplicatesRepeatSweeps", func(t *testing.T) {
		target := &domain.Target{
			ID:        "LN-2001",
			Module:    domain.ModuleLoans,
			Status:    "pending",
			Priority:  domain.PriorityUrgent,
			Category:  "default",
			CreatedAt: time.Now().UTC().Add(-time.Hour),
		}
		sweeper, eventBus, _ := newTestSweeper(t, map[domain.Module][]*domain.Target{
			domain.ModuleLoans: {target},
		})

		escalations := collect(t, eventBus, domain.ModuleLoans, domain.TopicEscalation)

		for i := 0; i < 3; i++ {
			if err := sweeper.Sweep(context.Background(), domain.ModuleLoans); err != nil {
				t.Fatalf("sweep %d failed: %v", i, err)
			}
		}

		count := 0
	drain:
		for {
			select {
			case <-escalations:
				count++
			case <-time.After(300 * time.Millisecond):
				break drain
			}
		}
		if count != 1 {
			t.Errorf("expected 1 escalation across repeat sweeps, got %d", count)
		}
	})

	t.Run("ReassignsOwnershipOnAutoAssign", func(t *testing.T) {
		target := &domain.Target{
			ID:         "AS-3001",
			Module:     domain.ModuleAssets,
			Status:     "in_use",
			Priority:   domain.PriorityUrgent,
			Category:   "default",
			AssigneeID: "tech-007",
			CreatedAt:  time.Now().UTC().Add(-time.Hour),
		}
		sweeper, eventBus, store := newTestSweeper(t, map[domain.Module][]*domain.Target{
			domain.ModuleAssets: {target},
		})

		escalations := collect(t, eventBus, domain.ModuleAssets, domain.TopicEscalation)

		if err := sweeper.Sweep(context.Background(), domain.ModuleAssets); err != nil {
			t.Fatalf("sweep failed: %v", err)
		}

		select {
		case payload := <-escalations:
			var event Event
			if err := json.Unmarshal(payload, &event); err != nil {
				t.Fatalf("failed to unmarshal event: %v", err)
			}
			if event.AssignedTo != "role:supervisor" {
				t.Errorf("expected assignedTo role:supervisor, got %q", event.AssignedTo)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no escalation event published")
		}

		saves := store.savedTargets()
		if len(saves) != 1 {
			t.Fatalf("expected 1 target write, got %d", len(saves))
		}
		if saves[0].ID != "AS-3001" || saves[0].AssigneeID != "role:supervisor" {
			t.Errorf("ownership not moved to escalation role: %+v", saves[0])
		}
	})

	t.Run("KeepsOwnerWhenAutoAssignDisabled", func(t *testing.T) {
		target := &domain.Target{
			ID:        "HD-1003",
			Module:    domain.ModuleHelpdesk,
			Status:    "open",
			Priority:  domain.PriorityUrgent,
			Category:  "default",
			CreatedAt: time.Now().UTC().Add(-time.Hour),
		}
		sweeper, eventBus, store := newTestSweeper(t, map[domain.Module][]*domain.Target{
			domain.ModuleHelpdesk: {target},
		})

		cfg := testSLAConfig(domain.ModuleHelpdesk)
		cfg.Escalation.AutoAssign = false
		sweeper.sla.ReloadConfig(cfg)

		escalations := collect(t, eventBus, domain.ModuleHelpdesk, domain.TopicEscalation)

		if err := sweeper.Sweep(context.Background(), domain.ModuleHelpdesk); err != nil {
			t.Fatalf("sweep failed: %v", err)
		}

		select {
		case payload := <-escalations:
			var event Event
			if err := json.Unmarshal(payload, &event); err != nil {
				t.Fatalf("failed to unmarshal event: %v", err)
			}
			if event.AssignedTo != "" {
				t.Errorf("no assignedTo expected, got %q", event.AssignedTo)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no escalation event published")
		}

		if saves := store.savedTargets(); len(saves) != 0 {
			t.Errorf("expected no target writes, got %d", len(saves))
		}
		if target.AssigneeID != "" {
			t.Errorf("assignee mutated without autoAssign: %q", target.AssigneeID)
		}
	})

	t.Run("SkipsModuleWithoutOpenTargets", func(t *testing.T) {
		sweeper, eventBus, _ := newTestSweeper(t, map[domain.Module][]*domain.Target{})

		escalations := collect(t, eventBus, domain.ModuleAssets, domain.TopicEscalation)

		if err := sweeper.Sweep(context.Background(), domain.ModuleAssets); err != nil {
			t.Fatalf("sweep failed: %v", err)
		}

		select {
		case <-escalations:
			t.Fatal("empty module should not escalate anything")
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func TestSweeperStartStop(t *testing.T) {
	sweeper, _, _ := newTestSweeper(t, map[domain.Module][]*domain.Target{})
	sweeper.Interval = 10 * time.Millisecond

	sweeper.Start()
	time.Sleep(50 * time.Millisecond)
	sweeper.Stop()
}
