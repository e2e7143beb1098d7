package domain

import (
	"time"
)

// Action outcome statuses.
const (
	OutcomeOK      = "ok"      // synchronous mutation applied
	OutcomeQueued  = "queued"  // async side effect published, delivery not awaited
	OutcomeSkipped = "skipped" // suppressed (e.g. duplicate email in window)
	OutcomeFailed  = "failed"
)

// ActionOutcome is the result of dispatching one action.
type ActionOutcome struct {
	ActionType ActionType `json:"actionType"`
	Value      string     `json:"value"`
	Status     string     `json:"status"`
	Err        string     `json:"error,omitempty"`
	ProcessMs  int64      `json:"processMs"`
}

// Failed reports whether the action did not take effect.
func (o ActionOutcome) Failed() bool {
	return o.Status == OutcomeFailed
}

// Evaluation is the persisted record of one evaluate-and-dispatch pass
// over a target.
type Evaluation struct {
	ID        string    `json:"id"`
	Module    Module    `json:"module"`
	TargetID  string    `json:"targetId"`
	Timestamp time.Time `json:"timestamp"`

	Matches  []RuleMatch     `json:"matches"`
	Outcomes []ActionOutcome `json:"outcomes,omitempty"`

	Metadata EvaluationMetadata `json:"metadata"`
}

// EvaluationMetadata contains processing information.
type EvaluationMetadata struct {
	TraceID        string `json:"traceId"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	RulesFired     int    `json:"rulesFired"`
	EvalMs         int64  `json:"evalMs"`
	DispatchMs     int64  `json:"dispatchMs"`
	TotalMs        int64  `json:"totalMs"`
	EngineVersion  string `json:"engineVersion"`
}
