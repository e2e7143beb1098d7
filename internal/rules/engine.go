package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/ictserve/ictserve/internal/domain"
)

// Engine holds the compiled rule sets per module and evaluates a fact
// bag against them in priority order.
type Engine struct {
	mu    sync.RWMutex
	env   *cel.Env
	rules map[domain.Module][]*CompiledRule
}

// CompiledRule pairs a rule with its pre-compiled CEL program.
// Program is nil for rules without an expression.
type CompiledRule struct {
	Rule    *domain.Rule
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine() (*Engine, error) {
	// The fact bag is exposed to expressions as a dynamic map plus a
	// few typed conveniences shared across modules.
	env, err := cel.NewEnv(
		cel.Variable("facts", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("module", cel.StringType),
		cel.Variable("now_unix", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:   env,
		rules: make(map[domain.Module][]*CompiledRule),
	}, nil
}

// ValidateRule runs full validation including expression compilation
// without mutating the loaded rule sets. Called at save and import
// time so an unsupported operator or a broken expression fails there,
// never at evaluation time.
func (e *Engine) ValidateRule(rule *domain.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if rule.Expression == "" {
		return nil
	}
	_, err := e.compile(rule)
	return err
}

// ReloadRules replaces a module's rule set with freshly compiled
// rules. Disabled rules are skipped. This is the hot-reload path the
// store's save/import/reset flows call after invalidating the cache.
func (e *Engine) ReloadRules(module domain.Module, configs []*domain.Rule) error {
	compiled := make([]*CompiledRule, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		cr, err := e.compile(cfg)
		if err != nil {
			return err
		}
		compiled = append(compiled, cr)
	}
	sortCompiled(compiled)

	e.mu.Lock()
	e.rules[module] = compiled
	e.mu.Unlock()
	return nil
}

// EvaluateAll evaluates every loaded rule of a module against the fact
// bag, in priority order, and reports fired and non-fired rules alike.
// The same path backs both live dispatch and the admin test action.
func (e *Engine) EvaluateAll(ctx context.Context, module domain.Module, facts domain.Facts) []domain.RuleMatch {
	e.mu.RLock()
	loaded := e.rules[module]
	e.mu.RUnlock()

	if len(loaded) == 0 {
		return nil
	}

	activation := map[string]any{
		"facts":    map[string]any(facts),
		"module":   string(module),
		"now_unix": time.Now().Unix(),
	}

	matches := make([]domain.RuleMatch, 0, len(loaded))
	for _, cr := range loaded {
		select {
		case <-ctx.Done():
			return matches
		default:
		}
		matches = append(matches, e.evaluateRule(cr, facts, activation))
	}
	return matches
}

// Fired filters a match report down to the rules that fired.
func Fired(matches []domain.RuleMatch) []domain.RuleMatch {
	var fired []domain.RuleMatch
	for _, m := range matches {
		if m.Fired {
			fired = append(fired, m)
		}
	}
	return fired
}

func (e *Engine) evaluateRule(cr *CompiledRule, facts domain.Facts, activation map[string]any) domain.RuleMatch {
	start := time.Now()
	match := domain.RuleMatch{
		RuleID:   cr.Rule.ID,
		RuleName: cr.Rule.Name,
		Priority: cr.Rule.Priority,
	}

	fired := true
	if len(cr.Rule.Conditions) > 0 {
		fired = Evaluate(cr.Rule.Conditions, facts)
		if !fired {
			match.Reason = "conditions not met"
		}
	}

	if fired && cr.Program != nil {
		out, _, err := cr.Program.Eval(activation)
		if err != nil {
			// Evaluation errors fail closed: no actions dispatched.
			fired = false
			match.Reason = fmt.Sprintf("expression error: %v", err)
		} else if !toBool(out) {
			fired = false
			match.Reason = "expression not satisfied"
		}
	}

	match.Fired = fired
	if fired {
		match.Actions = cr.Rule.Actions
	}
	match.ProcessMs = time.Since(start).Milliseconds()
	return match
}

// RulesCount returns the number of loaded rules for a module.
func (e *Engine) RulesCount(module domain.Module) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules[module])
}

// LoadedRules returns the currently loaded rules of a module in
// evaluation order.
func (e *Engine) LoadedRules(module domain.Module) []*domain.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.Rule, 0, len(e.rules[module]))
	for _, cr := range e.rules[module] {
		out = append(out, cr.Rule)
	}
	return out
}

// Close clears all loaded rule sets.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = make(map[domain.Module][]*CompiledRule)
	return nil
}

func (e *Engine) compile(rule *domain.Rule) (*CompiledRule, error) {
	cr := &CompiledRule{Rule: rule}
	if rule.Expression == "" {
		return cr, nil
	}

	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, domain.NewValidationError("expression",
			"rule %s: %v", rule.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, domain.NewValidationError("expression",
			"rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}
	cr.Program = program
	return cr, nil
}

func toBool(val ref.Val) bool {
	if b, ok := val.(types.Bool); ok {
		return bool(b)
	}
	return false
}

// sortCompiled orders rules by priority descending, insertion sequence
// ascending. The sequence tie-break keeps evaluation order stable
// across reloads.
func sortCompiled(rules []*CompiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Rule.Priority != rules[j].Rule.Priority {
			return rules[i].Rule.Priority > rules[j].Rule.Priority
		}
		return rules[i].Rule.Seq < rules[j].Rule.Seq
	})
}

// SortRules orders plain rules the same way the engine evaluates them.
// The store uses it to keep list and export order consistent.
func SortRules(rules []*domain.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Seq < rules[j].Seq
	})
}
