package domain

import (
	"fmt"
	"time"
)

// ToolCostRule is the catalog record for a billable operation.
// All fields are always populated; zero is the default.
type ToolCostRule struct {
	ToolID                     string `db:"tool_id" json:"tool_id"`
	Slug                       string `db:"slug" json:"slug"`
	BaseCostInCredits          int64  `db:"base_cost_in_credits" json:"base_cost_in_credits"`
	IsPlanningTool             bool   `db:"is_planning_tool" json:"is_planning_tool"`
	PlanningMonthlyLimit       int    `db:"planning_monthly_limit" json:"planning_monthly_limit"`
	PlanningProOverflowCost    int64  `db:"planning_pro_overflow_cost" json:"planning_pro_overflow_cost"`
	PlanningFullExperienceCost int64  `db:"planning_full_experience_cost" json:"planning_full_experience_cost"`
	IsProOnly                  bool   `db:"is_pro_only" json:"is_pro_only"`
	IsActive                   bool   `db:"is_active" json:"is_active"`

	// ReversalPolicy overrides the engine default for this tool when set.
	ReversalPolicy ReversalPolicy `db:"reversal_policy" json:"reversal_policy,omitempty"`
}

// ReversalPolicy says who may undo a tool charge. Under auto the caller
// reverses its own charge when the run fails; under manual only an
// operator can.
type ReversalPolicy string

const (
	ReversalAuto   ReversalPolicy = "auto"
	ReversalManual ReversalPolicy = "manual"
)

// ParseReversalPolicy accepts auto or manual. Empty means auto.
func ParseReversalPolicy(s string) (ReversalPolicy, error) {
	switch ReversalPolicy(s) {
	case "", ReversalAuto:
		return ReversalAuto, nil
	case ReversalManual:
		return ReversalManual, nil
	}
	return "", fmt.Errorf("unknown reversal policy %q", s)
}

// ExperienceLevel selects the non-Pro planning price.
type ExperienceLevel string

const (
	ExperienceFull         ExperienceLevel = "full"
	ExperienceExperimental ExperienceLevel = "experimental"
)

// ParseExperienceLevel maps an input string to a level. Empty means experimental.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	switch ExperienceLevel(s) {
	case "", ExperienceExperimental:
		return ExperienceExperimental, nil
	case ExperienceFull:
		return ExperienceFull, nil
	}
	return "", ErrInvalidExperienceLevel
}

// AccessType describes how a quote was priced.
type AccessType string

const (
	AccessStandard         AccessType = "standard"
	AccessFreeFull         AccessType = "free_full"
	AccessFreeExperimental AccessType = "free_experimental"
	AccessProIncluded      AccessType = "pro_included"
	AccessProOverflow      AccessType = "pro_overflow"
)

// UsageInfo reports the monthly allowance of a Pro planning tool.
type UsageInfo struct {
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetDate time.Time `json:"reset_date"`
}

// Quote is the price of one invocation.
type Quote struct {
	ToolID             string     `json:"tool_id"`
	CostInCredits      int64      `json:"cost_in_credits"`
	AccessType         AccessType `json:"access_type"`
	UsageInfo          *UsageInfo `json:"usage_info,omitempty"`
	ComparableFreeCost *int64     `json:"comparable_free_cost,omitempty"`
	IsPlanningTool     bool       `json:"is_planning_tool"`

	// ReversalPolicy is the tool's override, empty when it follows the default.
	ReversalPolicy ReversalPolicy `json:"reversal_policy,omitempty"`
}

// CountsUsage reports whether charging this quote increments the monthly counter.
func (q *Quote) CountsUsage() bool {
	return q.IsPlanningTool && (q.AccessType == AccessProIncluded || q.AccessType == AccessProOverflow)
}

// UsagePeriod returns the counter key for t, e.g. "2026-10".
func UsagePeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodResetDate is the first instant of the month after t.
func PeriodResetDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
