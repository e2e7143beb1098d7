package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ictserve/ictserve/internal/cache"
	"github.com/ictserve/ictserve/internal/domain"
)

// countingStore counts GetRules hits on the inner store so the tests
// can tell a cache hit from a read-through.
type countingStore struct {
	domain.Store

	mu       sync.Mutex
	getRules int
}

func (s *countingStore) GetRules(ctx context.Context, module domain.Module) ([]*domain.Rule, error) {
	s.mu.Lock()
	s.getRules++
	s.mu.Unlock()
	return s.Store.GetRules(ctx, module)
}

func (s *countingStore) reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRules
}

func newCachedStore(t *testing.T) (*Cached, *countingStore) {
	t.Helper()

	inner := &countingStore{Store: newTestStore(t)}
	memCache, err := cache.New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return NewCached(inner, memCache), inner
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondReadServedFromCache", func(t *testing.T) {
		cached, inner := newCachedStore(t)
		if err := cached.ResetRules(ctx, domain.ModuleHelpdesk); err != nil {
			t.Fatalf("reset failed: %v", err)
		}

		if _, err := cached.GetRules(ctx, domain.ModuleHelpdesk); err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if _, err := cached.GetRules(ctx, domain.ModuleHelpdesk); err != nil {
			t.Fatalf("get failed: %v", err)
		}

		if got := inner.reads(); got != 1 {
			t.Errorf("expected 1 inner read, got %d", got)
		}
	})

	t.Run("SaveInvalidates", func(t *testing.T) {
		cached, inner := newCachedStore(t)
		cached.ResetRules(ctx, domain.ModuleHelpdesk)
		cached.GetRules(ctx, domain.ModuleHelpdesk)

		if _, err := cached.SaveRule(ctx, sampleRule("fresh", 10)); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		rules, err := cached.GetRules(ctx, domain.ModuleHelpdesk)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		found := false
		for _, r := range rules {
			if r.ID == "fresh" {
				found = true
			}
		}
		if !found {
			t.Error("read after save must observe the new rule")
		}
		if got := inner.reads(); got != 2 {
			t.Errorf("expected the post-save read to hit the store, got %d reads", got)
		}
	})

	t.Run("ModulesCachedIndependently", func(t *testing.T) {
		cached, inner := newCachedStore(t)
		cached.ResetRules(ctx, domain.ModuleHelpdesk)
		cached.ResetRules(ctx, domain.ModuleLoans)

		cached.GetRules(ctx, domain.ModuleHelpdesk)
		cached.GetRules(ctx, domain.ModuleLoans)
		cached.GetRules(ctx, domain.ModuleHelpdesk)
		cached.GetRules(ctx, domain.ModuleLoans)

		if got := inner.reads(); got != 2 {
			t.Errorf("expected one inner read per module, got %d", got)
		}
	})

	t.Run("SLAConfigRoundTrip", func(t *testing.T) {
		cached, _ := newCachedStore(t)
		if err := cached.ResetSLAConfig(ctx, domain.ModuleHelpdesk); err != nil {
			t.Fatalf("reset failed: %v", err)
		}

		first, err := cached.GetSLAConfig(ctx, domain.ModuleHelpdesk)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		second, err := cached.GetSLAConfig(ctx, domain.ModuleHelpdesk)
		if err != nil {
			t.Fatalf("cached get failed: %v", err)
		}
		if len(first.Categories) != len(second.Categories) {
			t.Errorf("cached config differs: %d vs %d categories", len(first.Categories), len(second.Categories))
		}
	})

	t.Run("ClearCacheForcesReread", func(t *testing.T) {
		cached, inner := newCachedStore(t)
		cached.ResetRules(ctx, domain.ModuleHelpdesk)
		cached.GetRules(ctx, domain.ModuleHelpdesk)

		if err := cached.ClearCache(ctx, domain.ModuleHelpdesk); err != nil {
			t.Fatalf("clear failed: %v", err)
		}

		cached.GetRules(ctx, domain.ModuleHelpdesk)
		if got := inner.reads(); got != 2 {
			t.Errorf("read after clear must hit the store, got %d reads", got)
		}
	})

	t.Run("TargetsBypassCache", func(t *testing.T) {
		cached, _ := newCachedStore(t)
		target := &domain.Target{
			ID:        "it-1",
			Module:    domain.ModuleHelpdesk,
			Status:    "open",
			CreatedAt: time.Now().UTC(),
		}
		if err := cached.SaveTarget(ctx, target); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, err := cached.GetTarget(ctx, domain.ModuleHelpdesk, "it-1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Status != "open" {
			t.Errorf("unexpected target: %+v", got)
		}
	})
}
