package sla

import (
	"context"
	"testing"
	"time"

	"github.com/ictserve/ictserve/internal/domain"
)

func helpdeskConfig() *domain.SLAConfig {
	return &domain.SLAConfig{
		Module: domain.ModuleHelpdesk,
		Categories: []domain.SLACategory{
			{
				Name: domain.DefaultSLACategory,
				ResponseHours: map[domain.TicketPriority]float64{
					domain.PriorityLow: 24, domain.PriorityNormal: 8,
					domain.PriorityHigh: 4, domain.PriorityUrgent: 1,
				},
				ResolutionHours: map[domain.TicketPriority]float64{
					domain.PriorityLow: 72, domain.PriorityNormal: 24,
					domain.PriorityHigh: 8, domain.PriorityUrgent: 4,
				},
			},
			{
				Name: "security",
				ResponseHours: map[domain.TicketPriority]float64{
					domain.PriorityLow: 8, domain.PriorityNormal: 4,
					domain.PriorityHigh: 1, domain.PriorityUrgent: 0.5,
				},
				ResolutionHours: map[domain.TicketPriority]float64{
					domain.PriorityLow: 24, domain.PriorityNormal: 8,
					domain.PriorityHigh: 4, domain.PriorityUrgent: 2,
				},
			},
		},
		Escalation: domain.EscalationConfig{
			Enabled:          true,
			ThresholdPercent: 50,
			EscalationRoles:  []string{"supervisor"},
		},
		Notifications: domain.NotificationIntervals{
			WarningMins: 60, CriticalMins: 15, OverdueMins: 30,
		},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := NewService()
	s.ReloadConfig(helpdeskConfig())
	return s
}

func TestGetSLA(t *testing.T) {
	s := newTestService(t)

	t.Run("CategoryLookup", func(t *testing.T) {
		window, err := s.GetSLA(domain.ModuleHelpdesk, domain.PriorityUrgent, "security")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if window.ResponseHours != 0.5 {
			t.Errorf("expected 0.5h response, got %.2f", window.ResponseHours)
		}
		if window.ResolutionHours != 2 {
			t.Errorf("expected 2h resolution, got %.2f", window.ResolutionHours)
		}
	})

	t.Run("UnknownCategoryFallsBack", func(t *testing.T) {
		window, err := s.GetSLA(domain.ModuleHelpdesk, domain.PriorityHigh, "gardening")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if window.ResolutionHours != 8 {
			t.Errorf("expected default-category 8h resolution, got %.2f", window.ResolutionHours)
		}
	})

	t.Run("InvalidPriorityTreatedAsNormal", func(t *testing.T) {
		window, err := s.GetSLA(domain.ModuleHelpdesk, "frantic", "default")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if window.ResolutionHours != 24 {
			t.Errorf("expected normal-priority 24h resolution, got %.2f", window.ResolutionHours)
		}
	})

	t.Run("UnconfiguredModuleErrors", func(t *testing.T) {
		if _, err := s.GetSLA(domain.ModuleAssets, domain.PriorityLow, "default"); err == nil {
			t.Error("expected error for module without configuration")
		}
	})
}

func TestCalculateDeadlines(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	t.Run("FlatCalendarTime", func(t *testing.T) {
		createdAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		deadlines, err := s.CalculateDeadlines(ctx, domain.ModuleHelpdesk, domain.PriorityUrgent, "security", createdAt)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if want := createdAt.Add(30 * time.Minute); !deadlines.ResponseDeadline.Equal(want) {
			t.Errorf("response deadline = %v, want %v", deadlines.ResponseDeadline, want)
		}
		if want := createdAt.Add(2 * time.Hour); !deadlines.ResolutionDeadline.Equal(want) {
			t.Errorf("resolution deadline = %v, want %v", deadlines.ResolutionDeadline, want)
		}
	})

	t.Run("BusinessHoursSkipOffHours", func(t *testing.T) {
		s := NewService()
		cfg := helpdeskConfig()
		cfg.BusinessHours = domain.BusinessHours{
			Enabled:     true,
			Timezone:    "UTC",
			StartTime:   "09:00",
			EndTime:     "17:00",
			WorkingDays: []int{1, 2, 3, 4, 5},
		}
		s.ReloadConfig(cfg)

		// High/default is a 4h response, 8h resolution window. Opened
		// Monday 15:00: 2h remain that day, the rest spills into Tuesday.
		createdAt := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) // Monday
		deadlines, err := s.CalculateDeadlines(ctx, domain.ModuleHelpdesk, domain.PriorityHigh, "default", createdAt)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantResponse := time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC)
		if !deadlines.ResponseDeadline.Equal(wantResponse) {
			t.Errorf("response deadline = %v, want %v", deadlines.ResponseDeadline, wantResponse)
		}
		// 8h resolution: 2h Monday + 6h Tuesday.
		wantResolution := time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC)
		if !deadlines.ResolutionDeadline.Equal(wantResolution) {
			t.Errorf("resolution deadline = %v, want %v", deadlines.ResolutionDeadline, wantResolution)
		}
	})
}

func TestAddBusinessHours(t *testing.T) {
	bh := &domain.BusinessHours{
		Enabled:         true,
		Timezone:        "UTC",
		StartTime:       "09:00",
		EndTime:         "17:00",
		WorkingDays:     []int{1, 2, 3, 4, 5},
		ExcludeHolidays: true,
		Holidays:        []string{"2026-03-04"}, // Wednesday
	}

	t.Run("WithinSameDay", func(t *testing.T) {
		from := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // Monday
		got, err := AddBusinessHours(bh, from, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("BeforeOpeningClampsToStart", func(t *testing.T) {
		from := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
		got, err := AddBusinessHours(bh, from, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("SkipsWeekend", func(t *testing.T) {
		from := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC) // Friday
		got, err := AddBusinessHours(bh, from, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 1h Friday, 1h Monday morning.
		want := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("SkipsHoliday", func(t *testing.T) {
		from := time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC) // Tuesday
		got, err := AddBusinessHours(bh, from, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 1h Tuesday, Wednesday is a holiday, 1h Thursday morning.
		want := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("FractionalHours", func(t *testing.T) {
		from := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		got, err := AddBusinessHours(bh, from, 0.5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestCheckEscalation(t *testing.T) {
	s := newTestService(t)
	createdAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	deadline := createdAt.Add(4 * time.Hour)

	t.Run("BelowThreshold", func(t *testing.T) {
		decision := s.CheckEscalation(domain.ModuleHelpdesk, createdAt, deadline, createdAt.Add(time.Hour))
		if decision.Escalate {
			t.Error("25% elapsed must not escalate at a 50% threshold")
		}
		if decision.ElapsedPercent < 24 || decision.ElapsedPercent > 26 {
			t.Errorf("elapsed percent = %.1f, want ~25", decision.ElapsedPercent)
		}
	})

	t.Run("AtThreshold", func(t *testing.T) {
		decision := s.CheckEscalation(domain.ModuleHelpdesk, createdAt, deadline, createdAt.Add(2*time.Hour))
		if !decision.Escalate {
			t.Error("50% elapsed must escalate at a 50% threshold")
		}
		if len(decision.Roles) != 1 || decision.Roles[0] != "supervisor" {
			t.Errorf("unexpected roles: %v", decision.Roles)
		}
	})

	t.Run("PastDeadline", func(t *testing.T) {
		decision := s.CheckEscalation(domain.ModuleHelpdesk, createdAt, deadline, createdAt.Add(6*time.Hour))
		if !decision.Escalate {
			t.Error("overdue ticket must escalate")
		}
		if decision.ElapsedPercent <= 100 {
			t.Errorf("overdue elapsed percent should exceed 100, got %.1f", decision.ElapsedPercent)
		}
	})

	t.Run("DisabledEscalation", func(t *testing.T) {
		s := NewService()
		cfg := helpdeskConfig()
		cfg.Escalation.Enabled = false
		s.ReloadConfig(cfg)

		decision := s.CheckEscalation(domain.ModuleHelpdesk, createdAt, deadline, createdAt.Add(6*time.Hour))
		if decision.Escalate {
			t.Error("disabled escalation must never flag")
		}
	})

	t.Run("DegenerateWindow", func(t *testing.T) {
		decision := s.CheckEscalation(domain.ModuleHelpdesk, createdAt, createdAt, createdAt.Add(time.Hour))
		if decision.Escalate {
			t.Error("zero-length window must not escalate")
		}
	})
}

func TestNotificationPoints(t *testing.T) {
	s := newTestService(t)
	deadline := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

	points := s.NotificationPoints(domain.ModuleHelpdesk, deadline)
	if want := deadline.Add(-60 * time.Minute); !points.Warning.Equal(want) {
		t.Errorf("warning = %v, want %v", points.Warning, want)
	}
	if want := deadline.Add(-15 * time.Minute); !points.Critical.Equal(want) {
		t.Errorf("critical = %v, want %v", points.Critical, want)
	}
	if want := deadline.Add(30 * time.Minute); !points.Overdue.Equal(want) {
		t.Errorf("overdue = %v, want %v", points.Overdue, want)
	}
}
