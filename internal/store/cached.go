package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ictserve/ictserve/internal/domain"
)

// Cache keys for the read-through configuration views.
const (
	keyRules         = "cfg:rules"
	keyApprovalRules = "cfg:approval_rules"
	keySLAConfig     = "cfg:sla"

	// Rule configuration is invalidated explicitly on every mutation,
	// so the TTL is only a backstop against a missed invalidation.
	configCacheTTL = time.Hour
)

// Cached is a read-through caching decorator over a Store. Reads of
// the per-module configuration aggregates are served from cache;
// every mutation invalidates before returning, so the reload the
// admin flows perform afterwards observes the new state
// (invalidate-then-read).
type Cached struct {
	domain.Store
	cache domain.Cache
}

// NewCached wraps a store with the caching layer.
func NewCached(inner domain.Store, cache domain.Cache) *Cached {
	return &Cached{Store: inner, cache: cache}
}

// GetRules serves the rule set from cache when possible.
func (c *Cached) GetRules(ctx context.Context, module domain.Module) ([]*domain.Rule, error) {
	if data, err := c.cache.Get(ctx, module, keyRules); err == nil && data != nil {
		var rules []*domain.Rule
		if json.Unmarshal(data, &rules) == nil {
			return rules, nil
		}
	}

	rules, err := c.Store.GetRules(ctx, module)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rules); err == nil {
		_ = c.cache.Set(ctx, module, keyRules, data, configCacheTTL)
	}
	return rules, nil
}

// SaveRule writes through and invalidates the cached rule set.
func (c *Cached) SaveRule(ctx context.Context, rule *domain.Rule) (*domain.Rule, error) {
	saved, err := c.Store.SaveRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	return saved, c.cache.Delete(ctx, rule.Module, keyRules)
}

// DeleteRule writes through and invalidates the cached rule set.
func (c *Cached) DeleteRule(ctx context.Context, module domain.Module, ruleID string) error {
	if err := c.Store.DeleteRule(ctx, module, ruleID); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keyRules)
}

// ImportRules invalidates before the caller reloads.
func (c *Cached) ImportRules(ctx context.Context, module domain.Module, doc []byte) error {
	if err := c.Store.ImportRules(ctx, module, doc); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keyRules)
}

// ResetRules invalidates before the caller reloads.
func (c *Cached) ResetRules(ctx context.Context, module domain.Module) error {
	if err := c.Store.ResetRules(ctx, module); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keyRules)
}

// GetApprovalRules serves the approval matrix from cache when possible.
func (c *Cached) GetApprovalRules(ctx context.Context, module domain.Module) ([]*domain.ApprovalRule, error) {
	if data, err := c.cache.Get(ctx, module, keyApprovalRules); err == nil && data != nil {
		var rules []*domain.ApprovalRule
		if json.Unmarshal(data, &rules) == nil {
			return rules, nil
		}
	}

	rules, err := c.Store.GetApprovalRules(ctx, module)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rules); err == nil {
		_ = c.cache.Set(ctx, module, keyApprovalRules, data, configCacheTTL)
	}
	return rules, nil
}

// SaveApprovalRule writes through and invalidates.
func (c *Cached) SaveApprovalRule(ctx context.Context, rule *domain.ApprovalRule) (*domain.ApprovalRule, error) {
	saved, err := c.Store.SaveApprovalRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	return saved, c.cache.Delete(ctx, rule.Module, keyApprovalRules)
}

// DeleteApprovalRule writes through and invalidates.
func (c *Cached) DeleteApprovalRule(ctx context.Context, module domain.Module, ruleID string) error {
	if err := c.Store.DeleteApprovalRule(ctx, module, ruleID); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keyApprovalRules)
}

// ImportApprovalRules invalidates before the caller reloads.
func (c *Cached) ImportApprovalRules(ctx context.Context, module domain.Module, doc []byte) error {
	if err := c.Store.ImportApprovalRules(ctx, module, doc); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keyApprovalRules)
}

// ResetApprovalRules invalidates before the caller reloads.
func (c *Cached) ResetApprovalRules(ctx context.Context, module domain.Module) error {
	if err := c.Store.ResetApprovalRules(ctx, module); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keyApprovalRules)
}

// GetSLAConfig serves the SLA aggregate from cache when possible.
func (c *Cached) GetSLAConfig(ctx context.Context, module domain.Module) (*domain.SLAConfig, error) {
	if data, err := c.cache.Get(ctx, module, keySLAConfig); err == nil && data != nil {
		var cfg domain.SLAConfig
		if json.Unmarshal(data, &cfg) == nil {
			return &cfg, nil
		}
	}

	cfg, err := c.Store.GetSLAConfig(ctx, module)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(cfg); err == nil {
		_ = c.cache.Set(ctx, module, keySLAConfig, data, configCacheTTL)
	}
	return cfg, nil
}

// SaveSLAConfig writes through and invalidates.
func (c *Cached) SaveSLAConfig(ctx context.Context, cfg *domain.SLAConfig) error {
	if err := c.Store.SaveSLAConfig(ctx, cfg); err != nil {
		return err
	}
	return c.cache.Delete(ctx, cfg.Module, keySLAConfig)
}

// ImportSLAConfig invalidates before the caller reloads.
func (c *Cached) ImportSLAConfig(ctx context.Context, module domain.Module, doc []byte) error {
	if err := c.Store.ImportSLAConfig(ctx, module, doc); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keySLAConfig)
}

// ResetSLAConfig invalidates before the caller reloads.
func (c *Cached) ResetSLAConfig(ctx context.Context, module domain.Module) error {
	if err := c.Store.ResetSLAConfig(ctx, module); err != nil {
		return err
	}
	return c.cache.Delete(ctx, module, keySLAConfig)
}

// ClearCache drops every cached configuration view for a module. It
// completes synchronously; callers reload afterwards.
func (c *Cached) ClearCache(ctx context.Context, module domain.Module) error {
	if err := c.cache.DeletePrefix(ctx, module, "cfg:"); err != nil {
		return err
	}
	return c.Store.ClearCache(ctx, module)
}
