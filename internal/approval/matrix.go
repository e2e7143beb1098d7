// Package approval resolves approval chains from the configured
// approval matrix.
package approval

import (
	"context"
	"sort"
	"sync"

	"github.com/ictserve/ictserve/internal/domain"
)

// Matrix holds the loaded approval rules per module and resolves
// requests into ordered approval chains.
type Matrix struct {
	mu    sync.RWMutex
	rules map[domain.Module][]*domain.ApprovalRule
}

// NewMatrix creates an empty approval matrix.
func NewMatrix() *Matrix {
	return &Matrix{
		rules: make(map[domain.Module][]*domain.ApprovalRule),
	}
}

// ReloadRules replaces a module's approval rules. Disabled rules are
// skipped; the rest are kept in priority order.
func (m *Matrix) ReloadRules(module domain.Module, rules []*domain.ApprovalRule) {
	active := make([]*domain.ApprovalRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].Seq < active[j].Seq
	})

	m.mu.Lock()
	m.rules[module] = active
	m.mu.Unlock()
}

// RulesCount returns the number of loaded rules for a module.
func (m *Matrix) RulesCount(module domain.Module) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules[module])
}

// Resolve determines the ordered chain of required approvals for a
// request. All matching rules contribute a step at their level; rules
// sharing a level are OR'd (any one approver suffices). A matching
// level-1 rule with auto-approve short-circuits the chain. No match
// resolves to an empty chain: no approval required, by policy not
// by error.
func (m *Matrix) Resolve(ctx context.Context, module domain.Module, req *domain.ApprovalRequest) *domain.ApprovalChain {
	m.mu.RLock()
	loaded := m.rules[module]
	m.mu.RUnlock()

	chain := &domain.ApprovalChain{}
	levels := make(map[int]*domain.ApprovalStep)

	for _, rule := range loaded {
		if !Matches(rule, req) {
			continue
		}
		chain.MatchedRules = append(chain.MatchedRules, rule.ID)

		if rule.ApprovalLevel == 1 && rule.AutoApprove {
			chain.AutoApproved = true
			chain.Steps = nil
			return chain
		}

		step, ok := levels[rule.ApprovalLevel]
		if !ok {
			step = &domain.ApprovalStep{Level: rule.ApprovalLevel, AutoApprove: rule.AutoApprove}
			levels[rule.ApprovalLevel] = step
		}
		step.ApproverRoles = mergeUnique(step.ApproverRoles, rule.ApproverRoles)
		step.ApproverGrades = mergeUnique(step.ApproverGrades, rule.ApproverGrades)
		if rule.Required {
			step.Required = true
		}
	}

	for _, step := range levels {
		chain.Steps = append(chain.Steps, *step)
	}
	sort.Slice(chain.Steps, func(i, j int) bool {
		return chain.Steps[i].Level < chain.Steps[j].Level
	})
	return chain
}

// TestMatrix resolves a batch of sample requests, backing the admin
// "Test Matrix" action so configuration changes can be checked before
// a save.
func (m *Matrix) TestMatrix(ctx context.Context, module domain.Module, reqs []*domain.ApprovalRequest) []*domain.ApprovalChain {
	chains := make([]*domain.ApprovalChain, len(reqs))
	for i, req := range reqs {
		chains[i] = m.Resolve(ctx, module, req)
	}
	return chains
}

// Matches reports whether a request falls inside all of a rule's
// ranges. Bounds are inclusive; a nil bound is unbounded on that side.
// An empty rule category set is a wildcard, otherwise the request's
// categories must intersect it.
func Matches(rule *domain.ApprovalRule, req *domain.ApprovalRequest) bool {
	if rule.AssetValueMin != nil && req.TotalValue < *rule.AssetValueMin {
		return false
	}
	if rule.AssetValueMax != nil && req.TotalValue > *rule.AssetValueMax {
		return false
	}
	if rule.ApplicantGradeMin != nil && req.ApplicantGrade < *rule.ApplicantGradeMin {
		return false
	}
	if rule.ApplicantGradeMax != nil && req.ApplicantGrade > *rule.ApplicantGradeMax {
		return false
	}
	if rule.DurationDaysMin != nil && req.DurationDays < *rule.DurationDaysMin {
		return false
	}
	if rule.DurationDaysMax != nil && req.DurationDays > *rule.DurationDaysMax {
		return false
	}
	if len(rule.AssetCategories) > 0 && !intersects(rule.AssetCategories, req.AssetCategories) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func mergeUnique(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
