package store

import (
	"github.com/ictserve/ictserve/internal/domain"
)

// Compiled-in defaults backing the admin "reset" actions. These mirror
// the ministry's baseline helpdesk/loan policy and are intentionally
// conservative: nothing auto-approves above the petty-value band.

// DefaultRules returns the default automation rule set for a module.
func DefaultRules(module domain.Module) []*domain.Rule {
	switch module {
	case domain.ModuleHelpdesk:
		return []*domain.Rule{
			{
				ID:       "helpdesk-urgent-alert",
				Module:   module,
				Name:     "Urgent ticket alert",
				Priority: 100,
				Enabled:  true,
				Conditions: []domain.Condition{
					{Field: "priority", Operator: domain.OpEqual, Value: "urgent"},
					{Field: "status", Operator: domain.OpNotEqual, Value: "closed"},
				},
				Actions: []domain.Action{
					{Type: domain.ActionSendEmail, Value: "urgent-ticket"},
					{Type: domain.ActionCreateNotification, Value: "Urgent ticket requires attention"},
				},
			},
			{
				ID:       "helpdesk-stale-followup",
				Module:   module,
				Name:     "Stale open ticket follow-up",
				Priority: 50,
				Enabled:  true,
				Conditions: []domain.Condition{
					{Field: "status", Operator: domain.OpEqual, Value: "open"},
					{Field: "created_hours_ago", Operator: domain.OpGreater, Value: "48"},
				},
				Actions: []domain.Action{
					{Type: domain.ActionCreateNotification, Value: "Ticket open for more than 48 hours"},
				},
			},
		}
	case domain.ModuleLoans:
		return []*domain.Rule{
			{
				ID:       "loans-high-value-review",
				Module:   module,
				Name:     "High value loan review",
				Priority: 100,
				Enabled:  true,
				Conditions: []domain.Condition{
					{Field: "total_value", Operator: domain.OpGreater, Value: "10000"},
				},
				Actions: []domain.Action{
					{Type: domain.ActionUpdateStatus, Value: "under_review"},
					{Type: domain.ActionSendEmail, Value: "loan-review"},
				},
			},
		}
	case domain.ModuleAssets:
		return []*domain.Rule{
			{
				ID:       "assets-poor-condition",
				Module:   module,
				Name:     "Poor condition asset flag",
				Priority: 100,
				Enabled:  true,
				Conditions: []domain.Condition{
					{Field: "condition", Operator: domain.OpIn, Value: "poor,damaged"},
				},
				Actions: []domain.Action{
					{Type: domain.ActionUpdateStatus, Value: "maintenance"},
					{Type: domain.ActionCreateNotification, Value: "Asset flagged for maintenance"},
				},
			},
		}
	default:
		return nil
	}
}

// DefaultApprovalRules returns the default approval matrix for a module.
func DefaultApprovalRules(module domain.Module) []*domain.ApprovalRule {
	if module != domain.ModuleLoans && module != domain.ModuleAssets {
		return nil
	}

	low := 0.0
	mid := 5000.0
	midNext := 5000.01
	high := 20000.0

	return []*domain.ApprovalRule{
		{
			ID:            string(module) + "-approval-supervisor",
			Module:        module,
			Name:          "Supervisor approval up to 5k",
			Priority:      100,
			Enabled:       true,
			AssetValueMin: &low,
			AssetValueMax: &mid,
			ApproverRoles: []string{"supervisor"},
			ApprovalLevel: 1,
			Required:      true,
		},
		{
			ID:            string(module) + "-approval-division-head",
			Module:        module,
			Name:          "Division head approval above 5k",
			Priority:      90,
			Enabled:       true,
			AssetValueMin: &midNext,
			AssetValueMax: &high,
			ApproverRoles: []string{"division_head"},
			ApprovalLevel: 2,
			Required:      true,
		},
		{
			ID:            string(module) + "-approval-director",
			Module:        module,
			Name:          "Director approval above 20k",
			Priority:      80,
			Enabled:       true,
			AssetValueMin: &high,
			ApproverRoles: []string{"director"},
			ApprovalLevel: 3,
			Required:      true,
		},
	}
}

// DefaultSLAConfig returns the default SLA aggregate for a module.
func DefaultSLAConfig(module domain.Module) *domain.SLAConfig {
	return &domain.SLAConfig{
		Module: module,
		Categories: []domain.SLACategory{
			{
				Name: domain.DefaultSLACategory,
				ResponseHours: map[domain.TicketPriority]float64{
					domain.PriorityLow:    24,
					domain.PriorityNormal: 8,
					domain.PriorityHigh:   4,
					domain.PriorityUrgent: 1,
				},
				ResolutionHours: map[domain.TicketPriority]float64{
					domain.PriorityLow:    72,
					domain.PriorityNormal: 24,
					domain.PriorityHigh:   8,
					domain.PriorityUrgent: 4,
				},
			},
			{
				Name:        "security",
				Description: "Security incidents",
				ResponseHours: map[domain.TicketPriority]float64{
					domain.PriorityLow:    8,
					domain.PriorityNormal: 4,
					domain.PriorityHigh:   1,
					domain.PriorityUrgent: 0.5,
				},
				ResolutionHours: map[domain.TicketPriority]float64{
					domain.PriorityLow:    24,
					domain.PriorityNormal: 8,
					domain.PriorityHigh:   4,
					domain.PriorityUrgent: 2,
				},
			},
		},
		Escalation: domain.EscalationConfig{
			Enabled:          true,
			ThresholdPercent: 50,
			EscalationRoles:  []string{"supervisor"},
			AutoAssign:       false,
		},
		BusinessHours: domain.BusinessHours{
			Enabled:         false,
			Timezone:        "Asia/Kuala_Lumpur",
			StartTime:       "08:00",
			EndTime:         "17:00",
			WorkingDays:     []int{1, 2, 3, 4, 5},
			ExcludeHolidays: true,
		},
		Notifications: domain.NotificationIntervals{
			WarningMins:  60,
			CriticalMins: 15,
			OverdueMins:  30,
		},
	}
}
