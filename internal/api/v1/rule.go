// Package v1 holds the public wire shapes of the rule API. Calendar dates
// cross the boundary as "YYYY-MM-DD" strings and are resolved to naive dates
// here, so the core packages never see timezones or wall-clock times.
package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = time.DateOnly

// ParseDate parses a wire date into a naive calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return schedule.DateOf(t), nil
}

// CreateRuleRequest is the body of POST /v1/orgs/:org_id/rules.
type CreateRuleRequest struct {
	Kind        string          `json:"kind" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`

	CounterpartyID *string `json:"counterparty_id"`
	EngagementID   *string `json:"engagement_id"`

	Frequency  string `json:"frequency" binding:"required"`
	DayOfMonth int    `json:"day_of_month"`
	DayOfWeek  int    `json:"day_of_week"`

	StartDate       string  `json:"start_date" binding:"required"`
	EndDate         *string `json:"end_date"`
	OccurrenceLimit int     `json:"occurrence_limit"`

	CreatedBy string `json:"created_by"`
}

// UpdateRuleRequest is the body of PATCH /v1/orgs/:org_id/rules/:rule_id.
// Absent fields are left untouched. An explicit null end_date clears it;
// distinguishing "absent" from "null" is done in the handler via RawEndDate.
type UpdateRuleRequest struct {
	Kind        *string          `json:"kind"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`

	CounterpartyID *string `json:"counterparty_id"`
	EngagementID   *string `json:"engagement_id"`

	Frequency  *string `json:"frequency"`
	DayOfMonth *int    `json:"day_of_month"`
	DayOfWeek  *int    `json:"day_of_week"`

	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	ClearEnd  bool    `json:"clear_end_date"`

	OccurrenceLimit *int  `json:"occurrence_limit"`
	Active          *bool `json:"active"`

	UpdatedBy string `json:"updated_by"`
}

// RuleResponse is the wire form of a recurrence rule.
type RuleResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`

	Kind        string          `json:"kind"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`

	CounterpartyID *string `json:"counterparty_id,omitempty"`
	EngagementID   *string `json:"engagement_id,omitempty"`

	Frequency  string `json:"frequency"`
	DayOfMonth int    `json:"day_of_month,omitempty"`
	DayOfWeek  *int   `json:"day_of_week,omitempty"`

	StartDate       string  `json:"start_date"`
	EndDate         *string `json:"end_date,omitempty"`
	OccurrenceLimit int     `json:"occurrence_limit,omitempty"`

	OccurrencesFired int     `json:"occurrences_fired"`
	NextOccurrence   *string `json:"next_occurrence,omitempty"`
	Active           bool    `json:"active"`
	TerminalReason   string  `json:"terminal_reason,omitempty"`

	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RuleFromDomain converts a domain rule into its wire form.
func RuleFromDomain(r *rule.RecurrenceRule) RuleResponse {
	resp := RuleResponse{
		ID:               r.ID.String(),
		OrganizationID:   r.OrganizationID,
		Kind:             string(r.Kind),
		Category:         r.Category,
		Description:      r.Description,
		Amount:           r.Amount,
		CounterpartyID:   r.CounterpartyID,
		EngagementID:     r.EngagementID,
		Frequency:        r.Frequency.String(),
		DayOfMonth:       r.DayOfMonth,
		StartDate:        r.StartDate.Format(DateFormat),
		OccurrenceLimit:  r.OccurrenceLimit,
		OccurrencesFired: r.OccurrencesFired,
		Active:           r.Active,
		TerminalReason:   string(r.TerminalReason),
		CreatedBy:        r.CreatedBy,
		UpdatedBy:        r.UpdatedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Frequency.NeedsDayOfWeek() {
		dow := int(r.DayOfWeek)
		resp.DayOfWeek = &dow
	}
	if r.EndDate != nil {
		s := r.EndDate.Format(DateFormat)
		resp.EndDate = &s
	}
	if r.NextOccurrence != nil {
		s := r.NextOccurrence.Format(DateFormat)
		resp.NextOccurrence = &s
	}
	return resp
}

// LedgerEntryResponse is the wire form of a materialized occurrence.
type LedgerEntryResponse struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	RuleID         string          `json:"rule_id"`
	Kind           string          `json:"kind"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	OccurrenceDate string          `json:"occurrence_date"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EntryFromDomain converts a ledger entry into its wire form.
func EntryFromDomain(e *rule.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             e.ID.String(),
		OrganizationID: e.OrganizationID,
		RuleID:         e.RuleID.String(),
		Kind:           string(e.Kind),
		Category:       e.Category,
		Description:    e.Description,
		Amount:         e.Amount,
		OccurrenceDate: e.OccurrenceDate.Format(DateFormat),
		CreatedAt:      e.CreatedAt,
	}
}
