package domain

import (
	"time"
)

// Target is the entity a rule evaluation runs against and the action
// dispatcher mutates: a helpdesk ticket, a loan application or an
// asset record, depending on the module.
type Target struct {
	ID     string `json:"id"`
	Module Module `json:"module"`
	Title  string `json:"title,omitempty"`

	Status   string         `json:"status"`
	Priority TicketPriority `json:"priority,omitempty"`
	Category string         `json:"category,omitempty"`

	AssigneeID     string `json:"assigneeId,omitempty"`
	RequesterEmail string `json:"requesterEmail,omitempty"`

	// Attributes carries module-specific facts (loan value, applicant
	// grade, asset condition) not covered by the structured fields.
	Attributes map[string]any `json:"attributes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToFacts builds the fact bag presented to the condition evaluator.
// Structured fields map to their vocabulary names; Attributes are
// merged on top and win on collision.
func (t *Target) ToFacts(now time.Time) Facts {
	facts := Facts{
		"status":   t.Status,
		"category": t.Category,
	}
	if t.Priority != "" {
		facts["priority"] = string(t.Priority)
	}
	if t.AssigneeID != "" {
		facts["assignee"] = t.AssigneeID
	}
	if !t.CreatedAt.IsZero() {
		facts["created_hours_ago"] = now.Sub(t.CreatedAt).Hours()
	}
	for k, v := range t.Attributes {
		facts[k] = v
	}
	return facts
}

// Notification is an in-app notification created by the dispatcher's
// create_notification action.
type Notification struct {
	ID        string    `json:"id"`
	Module    Module    `json:"module"`
	TargetID  string    `json:"targetId"`
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Delivery records an asynchronous side effect (email or notification)
// drained from the bus by the worker.
type Delivery struct {
	ID        string    `json:"id"`
	Module    Module    `json:"module"`
	TargetID  string    `json:"targetId"`
	Kind      string    `json:"kind"` // "email" or "notification"
	Recipient string    `json:"recipient"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
