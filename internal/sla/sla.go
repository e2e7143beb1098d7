// Package sla computes response and resolution deadlines from the
// configured SLA thresholds, adjusted for business hours, and flags
// tickets for escalation.
package sla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ictserve/ictserve/internal/domain"
)

// Service holds the loaded SLA configuration per module.
type Service struct {
	mu      sync.RWMutex
	configs map[domain.Module]*domain.SLAConfig
}

// NewService creates an empty SLA service.
func NewService() *Service {
	return &Service{
		configs: make(map[domain.Module]*domain.SLAConfig),
	}
}

// ReloadConfig replaces a module's SLA configuration.
func (s *Service) ReloadConfig(cfg *domain.SLAConfig) {
	s.mu.Lock()
	s.configs[cfg.Module] = cfg
	s.mu.Unlock()
}

// Config returns the loaded configuration for a module, or nil.
func (s *Service) Config(module domain.Module) *domain.SLAConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[module]
}

// GetSLA looks up the response/resolution window for a priority and
// category. An unknown category falls back to the default category
// rather than erroring; misconfigured lookups resolve, they don't fail.
func (s *Service) GetSLA(module domain.Module, priority domain.TicketPriority, category string) (domain.SLAWindow, error) {
	cfg := s.Config(module)
	if cfg == nil {
		return domain.SLAWindow{}, fmt.Errorf("no SLA configuration loaded for module %s", module)
	}
	if !priority.Valid() {
		priority = domain.PriorityNormal
	}

	cat := findCategory(cfg.Categories, category)
	if cat == nil {
		cat = findCategory(cfg.Categories, domain.DefaultSLACategory)
	}
	if cat == nil {
		return domain.SLAWindow{}, fmt.Errorf("module %s has no %q SLA category", module, domain.DefaultSLACategory)
	}

	return domain.SLAWindow{
		ResponseHours:   cat.ResponseHours[priority],
		ResolutionHours: cat.ResolutionHours[priority],
	}, nil
}

// CalculateDeadlines adds the looked-up windows to the creation time.
// With business hours enabled, off-hours and non-working days are
// skipped; otherwise the addition is flat calendar time.
func (s *Service) CalculateDeadlines(ctx context.Context, module domain.Module, priority domain.TicketPriority, category string, createdAt time.Time) (domain.Deadlines, error) {
	window, err := s.GetSLA(module, priority, category)
	if err != nil {
		return domain.Deadlines{}, err
	}

	cfg := s.Config(module)
	if cfg != nil && cfg.BusinessHours.Enabled {
		resp, err := AddBusinessHours(&cfg.BusinessHours, createdAt, window.ResponseHours)
		if err != nil {
			return domain.Deadlines{}, err
		}
		res, err := AddBusinessHours(&cfg.BusinessHours, createdAt, window.ResolutionHours)
		if err != nil {
			return domain.Deadlines{}, err
		}
		return domain.Deadlines{ResponseDeadline: resp, ResolutionDeadline: res}, nil
	}

	return domain.Deadlines{
		ResponseDeadline:   createdAt.Add(hoursToDuration(window.ResponseHours)),
		ResolutionDeadline: createdAt.Add(hoursToDuration(window.ResolutionHours)),
	}, nil
}

// EscalationDecision reports whether a ticket crossed its escalation
// threshold and who to involve.
type EscalationDecision struct {
	Escalate       bool     `json:"escalate"`
	ElapsedPercent float64  `json:"elapsedPercent"`
	Roles          []string `json:"roles,omitempty"`
	AutoAssign     bool     `json:"autoAssign"`
}

// CheckEscalation flags a ticket whose elapsed time exceeds the
// configured percentage of its resolution window. The window is taken
// from the already-computed deadline, so business-hours adjustment is
// inherited.
func (s *Service) CheckEscalation(module domain.Module, createdAt, resolutionDeadline, now time.Time) EscalationDecision {
	cfg := s.Config(module)
	if cfg == nil || !cfg.Escalation.Enabled {
		return EscalationDecision{}
	}

	window := resolutionDeadline.Sub(createdAt)
	if window <= 0 {
		return EscalationDecision{}
	}
	elapsed := now.Sub(createdAt)
	percent := float64(elapsed) / float64(window) * 100

	decision := EscalationDecision{ElapsedPercent: percent}
	if percent >= float64(cfg.Escalation.ThresholdPercent) {
		decision.Escalate = true
		decision.Roles = cfg.Escalation.EscalationRoles
		decision.AutoAssign = cfg.Escalation.AutoAssign
	}
	return decision
}

// AlertPoints are the absolute instants the warning, critical and
// overdue notifications fire around a deadline.
type AlertPoints struct {
	Warning  time.Time `json:"warning"`
	Critical time.Time `json:"critical"`
	Overdue  time.Time `json:"overdue"`
}

// NotificationPoints derives alert instants from the configured minute
// offsets. Warning and critical precede the deadline, overdue follows
// it. Decoupled from deadline calculation itself.
func (s *Service) NotificationPoints(module domain.Module, deadline time.Time) AlertPoints {
	cfg := s.Config(module)
	if cfg == nil {
		return AlertPoints{Warning: deadline, Critical: deadline, Overdue: deadline}
	}
	n := cfg.Notifications
	return AlertPoints{
		Warning:  deadline.Add(-time.Duration(n.WarningMins) * time.Minute),
		Critical: deadline.Add(-time.Duration(n.CriticalMins) * time.Minute),
		Overdue:  deadline.Add(time.Duration(n.OverdueMins) * time.Minute),
	}
}

// AddBusinessHours advances from the given instant by the given number
// of working hours, skipping off-hours, non-working days and holidays.
func AddBusinessHours(bh *domain.BusinessHours, from time.Time, hours float64) (time.Time, error) {
	loc, err := time.LoadLocation(bh.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid business-hours timezone %q: %w", bh.Timezone, err)
	}

	startH, startM, err := splitClock(bh.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	endH, endM, err := splitClock(bh.EndTime)
	if err != nil {
		return time.Time{}, err
	}

	t := from.In(loc)
	remaining := hoursToDuration(hours)

	// Ten years of days bounds the walk even for degenerate configs.
	for i := 0; i < 3660; i++ {
		dayStart := time.Date(t.Year(), t.Month(), t.Day(), startH, startM, 0, 0, loc)
		dayEnd := time.Date(t.Year(), t.Month(), t.Day(), endH, endM, 0, 0, loc)

		if !bh.IsWorkingDay(t.Weekday()) || bh.IsHoliday(t) {
			t = dayStart.AddDate(0, 0, 1)
			continue
		}
		if t.Before(dayStart) {
			t = dayStart
		}
		if !t.Before(dayEnd) {
			t = dayStart.AddDate(0, 0, 1)
			continue
		}

		capacity := dayEnd.Sub(t)
		if remaining <= capacity {
			return t.Add(remaining), nil
		}
		remaining -= capacity
		t = dayStart.AddDate(0, 0, 1)
	}

	return time.Time{}, fmt.Errorf("business-hours walk did not terminate (start %s, end %s)", bh.StartTime, bh.EndTime)
}

func findCategory(cats []domain.SLACategory, name string) *domain.SLACategory {
	for i := range cats {
		if cats[i].Name == name {
			return &cats[i]
		}
	}
	return nil
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func splitClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
