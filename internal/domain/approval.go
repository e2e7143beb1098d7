package domain

import (
	"strings"
	"time"
)

// ApprovalRule routes a loan or ticket request to an approver role and
// grade based on value, applicant grade, duration and asset category
// ranges. A nil bound means unbounded on that side; bounds are inclusive.
type ApprovalRule struct {
	ID          string `json:"id"`
	Module      Module `json:"module"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Priority int  `json:"priority"`
	Enabled  bool `json:"enabled"`

	AssetValueMin *float64 `json:"assetValueMin,omitempty"`
	AssetValueMax *float64 `json:"assetValueMax,omitempty"`

	// AssetCategories empty means wildcard: any category matches.
	AssetCategories []string `json:"assetCategories,omitempty"`

	ApplicantGradeMin *int `json:"applicantGradeMin,omitempty"`
	ApplicantGradeMax *int `json:"applicantGradeMax,omitempty"`

	DurationDaysMin *int `json:"durationDaysMin,omitempty"`
	DurationDaysMax *int `json:"durationDaysMax,omitempty"`

	ApproverRoles  []string `json:"approverRoles"`
	ApproverGrades []string `json:"approverGrades,omitempty"`

	// ApprovalLevel orders the chain: 1 acts first, then 2, then 3.
	ApprovalLevel int  `json:"approvalLevel"`
	Required      bool `json:"required"`

	// AutoApprove on a matching level-1 rule short-circuits the chain
	// with immediate approval.
	AutoApprove bool `json:"autoApprove"`

	Seq       int64     `json:"seq,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Validate enforces the range invariants (min <= max when both set) and
// the level bounds at save time.
func (r *ApprovalRule) Validate() error {
	if !r.Module.Valid() {
		return NewValidationError("module", "unknown module %q", r.Module)
	}
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if r.ApprovalLevel < 1 || r.ApprovalLevel > 3 {
		return NewValidationError("approvalLevel", "approval level must be between 1 and 3, got %d", r.ApprovalLevel)
	}
	if len(r.ApproverRoles) == 0 && !r.AutoApprove {
		return NewValidationError("approverRoles", "at least one approver role is required")
	}
	if r.AssetValueMin != nil && r.AssetValueMax != nil && *r.AssetValueMin > *r.AssetValueMax {
		return NewValidationError("assetValueMin", "asset value min %.2f exceeds max %.2f", *r.AssetValueMin, *r.AssetValueMax)
	}
	if r.ApplicantGradeMin != nil && r.ApplicantGradeMax != nil && *r.ApplicantGradeMin > *r.ApplicantGradeMax {
		return NewValidationError("applicantGradeMin", "applicant grade min %d exceeds max %d", *r.ApplicantGradeMin, *r.ApplicantGradeMax)
	}
	if r.DurationDaysMin != nil && r.DurationDaysMax != nil && *r.DurationDaysMin > *r.DurationDaysMax {
		return NewValidationError("durationDaysMin", "duration min %d exceeds max %d", *r.DurationDaysMin, *r.DurationDaysMax)
	}
	return nil
}

// ApprovalRequest carries the attributes of a loan or ticket request
// submitted for matrix resolution.
type ApprovalRequest struct {
	TotalValue      float64  `json:"totalValue"`
	ApplicantGrade  int      `json:"applicantGrade"`
	DurationDays    int      `json:"durationDays"`
	AssetCategories []string `json:"assetCategories,omitempty"`
}

// ApprovalStep is one level in a resolved approval chain. Roles and
// grades within a step are alternatives: any one approver suffices.
type ApprovalStep struct {
	Level          int      `json:"level"`
	ApproverRoles  []string `json:"approverRoles"`
	ApproverGrades []string `json:"approverGrades,omitempty"`
	Required       bool     `json:"required"`
	AutoApprove    bool     `json:"autoApprove"`
}

// ApprovalChain is the ordered sequence of approval steps resolved for
// a request. An empty Steps list with AutoApproved false means no
// approval is required.
type ApprovalChain struct {
	Steps        []ApprovalStep `json:"steps"`
	AutoApproved bool           `json:"autoApproved"`
	MatchedRules []string       `json:"matchedRules,omitempty"`
}
