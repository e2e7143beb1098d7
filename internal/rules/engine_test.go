package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/ictserve/ictserve/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func helpdeskRule(id string, priority int, conds []domain.Condition) *domain.Rule {
	return &domain.Rule{
		ID:         id,
		Module:     domain.ModuleHelpdesk,
		Name:       id,
		Priority:   priority,
		Enabled:    true,
		Conditions: conds,
		Actions: []domain.Action{
			{Type: domain.ActionCreateNotification, Value: "notify"},
		},
	}
}

func TestEngineEvaluateAll(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	t.Run("TwoConditionRuleFires", func(t *testing.T) {
		rule := helpdeskRule("urgent-security", 100, []domain.Condition{
			{Field: "priority", Operator: domain.OpEqual, Value: "urgent"},
			{Field: "category", Operator: domain.OpEqual, Value: "security"},
		})
		if err := engine.ReloadRules(domain.ModuleHelpdesk, []*domain.Rule{rule}); err != nil {
			t.Fatalf("reload failed: %v", err)
		}

		matches := engine.EvaluateAll(ctx, domain.ModuleHelpdesk, domain.Facts{
			"priority": "urgent",
			"category": "security",
		})
		if len(matches) != 1 {
			t.Fatalf("expected 1 match report, got %d", len(matches))
		}
		if !matches[0].Fired {
			t.Errorf("expected rule to fire, reason: %s", matches[0].Reason)
		}
		if len(matches[0].Actions) != 1 {
			t.Errorf("fired match must carry the rule's actions, got %v", matches[0].Actions)
		}

		matches = engine.EvaluateAll(ctx, domain.ModuleHelpdesk, domain.Facts{
			"priority": "urgent",
			"category": "hardware",
		})
		if matches[0].Fired {
			t.Error("rule must not fire when one condition fails")
		}
		if matches[0].Reason == "" {
			t.Error("non-fired match should explain why")
		}
	})

	t.Run("PriorityOrderWithSeqTieBreak", func(t *testing.T) {
		set := []*domain.Rule{
			helpdeskRule("low", 10, []domain.Condition{{Field: "status", Operator: domain.OpEqual, Value: "open"}}),
			helpdeskRule("tie-b", 50, []domain.Condition{{Field: "status", Operator: domain.OpEqual, Value: "open"}}),
			helpdeskRule("high", 100, []domain.Condition{{Field: "status", Operator: domain.OpEqual, Value: "open"}}),
			helpdeskRule("tie-a", 50, []domain.Condition{{Field: "status", Operator: domain.OpEqual, Value: "open"}}),
		}
		set[1].Seq = 1
		set[3].Seq = 2
		if err := engine.ReloadRules(domain.ModuleHelpdesk, set); err != nil {
			t.Fatalf("reload failed: %v", err)
		}

		matches := engine.EvaluateAll(ctx, domain.ModuleHelpdesk, domain.Facts{"status": "open"})
		got := make([]string, len(matches))
		for i, m := range matches {
			got[i] = m.RuleID
		}
		want := []string{"high", "tie-b", "tie-a", "low"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("evaluation order = %v, want %v", got, want)
			}
		}
	})

	t.Run("DisabledRulesSkipped", func(t *testing.T) {
		rule := helpdeskRule("disabled", 100, []domain.Condition{
			{Field: "status", Operator: domain.OpEqual, Value: "open"},
		})
		rule.Enabled = false
		if err := engine.ReloadRules(domain.ModuleHelpdesk, []*domain.Rule{rule}); err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if got := engine.RulesCount(domain.ModuleHelpdesk); got != 0 {
			t.Errorf("expected 0 loaded rules, got %d", got)
		}
	})

	t.Run("ModuleIsolation", func(t *testing.T) {
		rule := helpdeskRule("helpdesk-only", 100, []domain.Condition{
			{Field: "status", Operator: domain.OpEqual, Value: "open"},
		})
		if err := engine.ReloadRules(domain.ModuleHelpdesk, []*domain.Rule{rule}); err != nil {
			t.Fatalf("reload failed: %v", err)
		}

		matches := engine.EvaluateAll(ctx, domain.ModuleLoans, domain.Facts{"status": "open"})
		if matches != nil {
			t.Errorf("loans module must not see helpdesk rules, got %v", matches)
		}
	})
}

func TestEngineExpressions(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	t.Run("ExpressionGatesFiring", func(t *testing.T) {
		rule := &domain.Rule{
			ID:       "expr-reopen",
			Module:   domain.ModuleHelpdesk,
			Name:     "repeatedly reopened",
			Priority: 100,
			Enabled:  true,
			Conditions: []domain.Condition{
				{Field: "status", Operator: domain.OpEqual, Value: "open"},
			},
			Expression: `int(facts.reopen_count) >= 2`,
			Actions: []domain.Action{
				{Type: domain.ActionAssignUser, Value: "senior-tech"},
			},
		}
		if err := engine.ReloadRules(domain.ModuleHelpdesk, []*domain.Rule{rule}); err != nil {
			t.Fatalf("reload failed: %v", err)
		}

		matches := engine.EvaluateAll(ctx, domain.ModuleHelpdesk, domain.Facts{
			"status": "open", "reopen_count": 3,
		})
		if !matches[0].Fired {
			t.Errorf("expected expression to hold, reason: %s", matches[0].Reason)
		}

		matches = engine.EvaluateAll(ctx, domain.ModuleHelpdesk, domain.Facts{
			"status": "open", "reopen_count": 1,
		})
		if matches[0].Fired {
			t.Error("expression below threshold must not fire")
		}
	})

	t.Run("ExpressionErrorFailsClosed", func(t *testing.T) {
		rule := &domain.Rule{
			ID:       "expr-broken-at-runtime",
			Module:   domain.ModuleHelpdesk,
			Name:     "missing fact access",
			Priority: 100,
			Enabled:  true,
			Conditions: []domain.Condition{
				{Field: "status", Operator: domain.OpEqual, Value: "open"},
			},
			Expression: `int(facts.reopen_count) > 0`,
			Actions: []domain.Action{
				{Type: domain.ActionSendEmail, Value: "alert"},
			},
		}
		if err := engine.ReloadRules(domain.ModuleHelpdesk, []*domain.Rule{rule}); err != nil {
			t.Fatalf("reload failed: %v", err)
		}

		// reopen_count absent: the expression errors and the rule must
		// not dispatch.
		matches := engine.EvaluateAll(ctx, domain.ModuleHelpdesk, domain.Facts{"status": "open"})
		if matches[0].Fired {
			t.Error("runtime expression error must fail closed")
		}
	})
}

func TestValidateRule(t *testing.T) {
	engine := newTestEngine(t)

	base := func() *domain.Rule {
		return helpdeskRule("candidate", 50, []domain.Condition{
			{Field: "priority", Operator: domain.OpEqual, Value: "urgent"},
		})
	}

	t.Run("ValidRule", func(t *testing.T) {
		if err := engine.ValidateRule(base()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("UnsupportedOperator", func(t *testing.T) {
		rule := base()
		rule.Conditions[0].Operator = "~="
		assertValidationError(t, engine.ValidateRule(rule))
	})

	t.Run("UnknownFactField", func(t *testing.T) {
		rule := base()
		rule.Conditions[0].Field = "total_value" // loans field, not helpdesk
		assertValidationError(t, engine.ValidateRule(rule))
	})

	t.Run("NoActions", func(t *testing.T) {
		rule := base()
		rule.Actions = nil
		assertValidationError(t, engine.ValidateRule(rule))
	})

	t.Run("BrokenExpression", func(t *testing.T) {
		rule := base()
		rule.Expression = `facts.priority ==`
		assertValidationError(t, engine.ValidateRule(rule))
	})

	t.Run("NonBoolExpression", func(t *testing.T) {
		rule := base()
		rule.Expression = `facts.priority`
		assertValidationError(t, engine.ValidateRule(rule))
	})

	t.Run("ValidationDoesNotLoad", func(t *testing.T) {
		before := engine.RulesCount(domain.ModuleHelpdesk)
		_ = engine.ValidateRule(base())
		if after := engine.RulesCount(domain.ModuleHelpdesk); after != before {
			t.Errorf("validation must not mutate loaded rules: %d -> %d", before, after)
		}
	})
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected *domain.ValidationError, got %T: %v", err, err)
	}
}
