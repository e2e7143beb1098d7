// Package rules provides the condition evaluator and rule engine.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ictserve/ictserve/internal/domain"
)

// Evaluate reports whether all conditions hold against the fact bag.
// Conditions are AND'd; an empty list evaluates false so a rule with
// no conditions never fires by accident.
func Evaluate(conds []domain.Condition, facts domain.Facts) bool {
	if len(conds) == 0 {
		return false
	}
	for _, c := range conds {
		if !EvaluateCondition(c, facts) {
			return false
		}
	}
	return true
}

// EvaluateCondition matches a single condition. A field absent from
// the fact bag evaluates false rather than erroring: the safe default
// is no action, not a crashed dispatcher. Numeric operators fail
// closed when either side is non-numeric.
func EvaluateCondition(c domain.Condition, facts domain.Facts) bool {
	fact, ok := facts[c.Field]
	if !ok || fact == nil {
		return false
	}

	switch c.Operator {
	case domain.OpEqual:
		return coercedEqual(fact, c.Value)
	case domain.OpNotEqual:
		return !coercedEqual(fact, c.Value)
	case domain.OpGreater, domain.OpLess, domain.OpGreaterEqual, domain.OpLessEqual:
		lhs, lok := toFloat(fact)
		rhs, rok := parseFloat(c.Value)
		if !lok || !rok {
			return false
		}
		switch c.Operator {
		case domain.OpGreater:
			return lhs > rhs
		case domain.OpLess:
			return lhs < rhs
		case domain.OpGreaterEqual:
			return lhs >= rhs
		default:
			return lhs <= rhs
		}
	case domain.OpContains:
		return containsMatch(fact, c.Value)
	case domain.OpIn:
		return inMatch(fact, c.Value)
	default:
		// Unknown operators are rejected at save time; an unvalidated
		// rule slipping through still must not fire.
		return false
	}
}

// coercedEqual compares a fact against the condition's string literal.
// Numeric facts compare numerically ("5" equals 5.0), everything else
// compares on the string form.
func coercedEqual(fact any, value string) bool {
	if lhs, ok := toFloat(fact); ok {
		if rhs, rok := parseFloat(value); rok {
			return lhs == rhs
		}
	}
	return toString(fact) == value
}

// containsMatch handles substring match for string facts and
// membership for list facts.
func containsMatch(fact any, value string) bool {
	switch f := fact.(type) {
	case string:
		return strings.Contains(f, value)
	case []string:
		for _, item := range f {
			if item == value {
				return true
			}
		}
		return false
	case []any:
		for _, item := range f {
			if toString(item) == value {
				return true
			}
		}
		return false
	default:
		return strings.Contains(toString(fact), value)
	}
}

// inMatch checks the fact's string form against a comma-delimited list.
func inMatch(fact any, value string) bool {
	needle := toString(fact)
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == needle {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case string:
		return parseFloat(n)
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
