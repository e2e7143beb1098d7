package domain

import (
	"strings"
	"time"
)

// TicketPriority is an SLA severity level.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Priorities lists all severity levels in escalating order.
func Priorities() []TicketPriority {
	return []TicketPriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
}

// Valid reports whether the priority is one of the known levels.
func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// DefaultSLACategory is the fallback when a ticket's category has no
// configured thresholds. Lookup against it never fails.
const DefaultSLACategory = "default"

// SLACategory maps ticket priority to response and resolution windows,
// in hours. Fractional hours are allowed (0.5 = 30 minutes).
type SLACategory struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	ResponseHours   map[TicketPriority]float64 `json:"responseHours"`
	ResolutionHours map[TicketPriority]float64 `json:"resolutionHours"`
}

// Validate enforces that every level has both windows configured and
// that response never exceeds resolution.
func (c *SLACategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "category name is required")
	}
	for _, p := range Priorities() {
		resp, ok := c.ResponseHours[p]
		if !ok {
			return NewValidationError("responseHours", "category %s: missing response time for %s", c.Name, p)
		}
		res, ok := c.ResolutionHours[p]
		if !ok {
			return NewValidationError("resolutionHours", "category %s: missing resolution time for %s", c.Name, p)
		}
		if resp <= 0 || res <= 0 {
			return NewValidationError("responseHours", "category %s: %s windows must be positive", c.Name, p)
		}
		if resp > res {
			return NewValidationError("responseHours", "category %s: %s response %.2fh exceeds resolution %.2fh", c.Name, p, resp, res)
		}
	}
	return nil
}

// SLAWindow is the looked-up pair of windows for a priority/category.
type SLAWindow struct {
	ResponseHours   float64 `json:"responseHours"`
	ResolutionHours float64 `json:"resolutionHours"`
}

// Deadlines are the absolute instants computed from a ticket's creation
// time and its SLA window.
type Deadlines struct {
	ResponseDeadline   time.Time `json:"responseDeadline"`
	ResolutionDeadline time.Time `json:"resolutionDeadline"`
}

// EscalationConfig controls SLA breach escalation. ThresholdPercent is
// the fraction of the resolution window after which a ticket escalates.
type EscalationConfig struct {
	Enabled          bool     `json:"enabled"`
	ThresholdPercent int      `json:"thresholdPercent"` // 1..50
	EscalationRoles  []string `json:"escalationRoles,omitempty"`
	AutoAssign       bool     `json:"autoAssign"`
}

// Validate enforces the 1..50 threshold range.
func (c *EscalationConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ThresholdPercent < 1 || c.ThresholdPercent > 50 {
		return NewValidationError("thresholdPercent", "threshold percent must be between 1 and 50, got %d", c.ThresholdPercent)
	}
	if len(c.EscalationRoles) == 0 {
		return NewValidationError("escalationRoles", "at least one escalation role is required when escalation is enabled")
	}
	return nil
}

// BusinessHours defines the working-time window used to skip off-hours
// when computing SLA deadlines. Times are "HH:MM" in the configured
// timezone; working days use time.Weekday numbering (0 = Sunday).
type BusinessHours struct {
	Enabled         bool     `json:"enabled"`
	Timezone        string   `json:"timezone"`
	StartTime       string   `json:"startTime"`
	EndTime         string   `json:"endTime"`
	WorkingDays     []int    `json:"workingDays"`
	ExcludeHolidays bool     `json:"excludeHolidays"`
	Holidays        []string `json:"holidays,omitempty"` // "2006-01-02"
}

// Validate checks the clock formats and day numbers.
func (b *BusinessHours) Validate() error {
	if !b.Enabled {
		return nil
	}
	if _, err := time.LoadLocation(b.Timezone); err != nil {
		return NewValidationError("timezone", "unknown timezone %q", b.Timezone)
	}
	start, err := parseClock(b.StartTime)
	if err != nil {
		return NewValidationError("startTime", "invalid start time %q", b.StartTime)
	}
	end, err := parseClock(b.EndTime)
	if err != nil {
		return NewValidationError("endTime", "invalid end time %q", b.EndTime)
	}
	if !start.Before(end) {
		return NewValidationError("startTime", "start time %s must precede end time %s", b.StartTime, b.EndTime)
	}
	if len(b.WorkingDays) == 0 {
		return NewValidationError("workingDays", "at least one working day is required")
	}
	for _, d := range b.WorkingDays {
		if d < 0 || d > 6 {
			return NewValidationError("workingDays", "day %d out of range 0-6", d)
		}
	}
	for _, h := range b.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return NewValidationError("holidays", "invalid holiday date %q", h)
		}
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}

// IsWorkingDay reports whether the weekday is configured as working.
func (b *BusinessHours) IsWorkingDay(d time.Weekday) bool {
	for _, wd := range b.WorkingDays {
		if time.Weekday(wd) == d {
			return true
		}
	}
	return false
}

// IsHoliday reports whether the date matches a configured holiday.
func (b *BusinessHours) IsHoliday(t time.Time) bool {
	if !b.ExcludeHolidays {
		return false
	}
	day := t.Format("2006-01-02")
	for _, h := range b.Holidays {
		if h == day {
			return true
		}
	}
	return false
}

// NotificationIntervals drive alert firing around a deadline, in
// minutes. Warning and critical fire before the deadline, overdue
// after it. They are decoupled from the deadline calculation itself.
type NotificationIntervals struct {
	WarningMins  int `json:"warningMins"`
	CriticalMins int `json:"criticalMins"`
	OverdueMins  int `json:"overdueMins"`
}

// SLAConfig is the per-module SLA aggregate the admin surface edits as
// a whole: categories, escalation, business hours and alert intervals.
type SLAConfig struct {
	Module        Module                `json:"module"`
	Categories    []SLACategory         `json:"categories"`
	Escalation    EscalationConfig      `json:"escalation"`
	BusinessHours BusinessHours         `json:"businessHours"`
	Notifications NotificationIntervals `json:"notifications"`
}

// Validate validates the whole aggregate; a save replaces it atomically.
func (c *SLAConfig) Validate() error {
	if !c.Module.Valid() {
		return NewValidationError("module", "unknown module %q", c.Module)
	}
	seen := make(map[string]bool, len(c.Categories))
	for i := range c.Categories {
		if err := c.Categories[i].Validate(); err != nil {
			return err
		}
		if seen[c.Categories[i].Name] {
			return NewValidationError("categories", "duplicate category %q", c.Categories[i].Name)
		}
		seen[c.Categories[i].Name] = true
	}
	if !seen[DefaultSLACategory] {
		return NewValidationError("categories", "a %q category is required as the fallback", DefaultSLACategory)
	}
	if err := c.Escalation.Validate(); err != nil {
		return err
	}
	return c.BusinessHours.Validate()
}
