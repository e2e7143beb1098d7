// Package domain defines the core interfaces and types for ICTServe.
package domain

import "fmt"

// Module identifies a configuration aggregate. Every rule, approval
// matrix and SLA table is owned by exactly one module.
type Module string

const (
	ModuleHelpdesk Module = "helpdesk"
	ModuleLoans    Module = "loans"
	ModuleAssets   Module = "assets"
)

// AllModules lists all known modules in a stable order.
func AllModules() []Module {
	return []Module{ModuleHelpdesk, ModuleLoans, ModuleAssets}
}

// ParseModule converts a raw string into a Module.
func ParseModule(s string) (Module, error) {
	switch Module(s) {
	case ModuleHelpdesk, ModuleLoans, ModuleAssets:
		return Module(s), nil
	default:
		return "", fmt.Errorf("%w: unknown module %q", ErrInvalidInput, s)
	}
}

// Valid reports whether the module is one of the known values.
func (m Module) Valid() bool {
	_, err := ParseModule(string(m))
	return err == nil
}

// Facts is the attribute bag of the entity under evaluation
// (ticket, loan request, asset record).
type Facts map[string]any

// factVocabulary enumerates the condition fields each module exposes.
// Condition fields are checked against this at save time so a typo
// fails validation instead of silently never matching.
var factVocabulary = map[Module][]string{
	ModuleHelpdesk: {
		"priority", "status", "category", "created_hours_ago",
		"assignee", "reopen_count", "requester_grade",
	},
	ModuleLoans: {
		"total_value", "applicant_grade", "duration_days",
		"asset_categories", "status", "purpose",
	},
	ModuleAssets: {
		"category", "value", "condition", "age_months", "status",
	},
}

// FactFields returns the condition field vocabulary for a module.
func (m Module) FactFields() []string {
	return factVocabulary[m]
}

// KnowsField reports whether field is part of the module's vocabulary.
func (m Module) KnowsField(field string) bool {
	for _, f := range factVocabulary[m] {
		if f == field {
			return true
		}
	}
	return false
}
