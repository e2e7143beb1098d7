package domain

import (
	"strings"
	"time"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpContains     Operator = "contains"
	OpIn           Operator = "in"
)

// Valid reports whether the operator is one of the supported values.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess,
		OpGreaterEqual, OpLessEqual, OpContains, OpIn:
		return true
	}
	return false
}

// ActionType identifies the side effect a matched rule triggers.
type ActionType string

const (
	ActionSendEmail          ActionType = "send_email"
	ActionUpdateStatus       ActionType = "update_status"
	ActionAssignUser         ActionType = "assign_user"
	ActionCreateNotification ActionType = "create_notification"
)

// Valid reports whether the action type is one of the supported values.
func (a ActionType) Valid() bool {
	switch a {
	case ActionSendEmail, ActionUpdateStatus, ActionAssignUser, ActionCreateNotification:
		return true
	}
	return false
}

// Condition matches a single fact against a literal value.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Action is one side effect in a rule's action list.
type Action struct {
	Type  ActionType `json:"type"`
	Value string     `json:"value"`
}

// Rule is a named, prioritized condition-to-action mapping scoped to a
// module. Higher Priority is evaluated first; ties break by insertion
// sequence (Seq), which the store assigns monotonically.
type Rule struct {
	ID          string `json:"id"`
	Module      Module `json:"module"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Priority int  `json:"priority"`
	Enabled  bool `json:"enabled"`

	// Conditions are AND'd across the list.
	Conditions []Condition `json:"conditions"`
	Actions    []Action    `json:"actions"`

	// Expression is an optional CEL expression over the fact bag,
	// compiled at save time. When present it must hold in addition
	// to the structured conditions.
	Expression string `json:"expression,omitempty"`

	Seq       int64     `json:"seq,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Validate checks a rule against the module's condition vocabulary and
// the operator/action whitelists. Runs at save and import time; the
// evaluator never sees an invalid rule.
func (r *Rule) Validate() error {
	if !r.Module.Valid() {
		return NewValidationError("module", "unknown module %q", r.Module)
	}
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if len(r.Conditions) == 0 && r.Expression == "" {
		return NewValidationError("conditions", "at least one condition or an expression is required")
	}
	for i, c := range r.Conditions {
		if !c.Operator.Valid() {
			return NewValidationError("conditions", "condition %d: unsupported operator %q", i, c.Operator)
		}
		if !r.Module.KnowsField(c.Field) {
			return NewValidationError("conditions", "condition %d: field %q is not a %s fact", i, c.Field, r.Module)
		}
	}
	if len(r.Actions) == 0 {
		return NewValidationError("actions", "at least one action is required")
	}
	for i, a := range r.Actions {
		if !a.Type.Valid() {
			return NewValidationError("actions", "action %d: unsupported type %q", i, a.Type)
		}
		if strings.TrimSpace(a.Value) == "" {
			return NewValidationError("actions", "action %d: value is required", i)
		}
	}
	return nil
}

// RuleMatch reports the outcome of evaluating a single rule.
type RuleMatch struct {
	RuleID    string   `json:"ruleId"`
	RuleName  string   `json:"ruleName"`
	Priority  int      `json:"priority"`
	Fired     bool     `json:"fired"`
	Actions   []Action `json:"actions,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	ProcessMs int64    `json:"processMs"`
}
