package rule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
)

// FieldErrors maps field name to the reason it was rejected. A rule is
// accepted whole or not at all; there is no partial application.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewRuleInput is the raw material for creating a rule. Dates are naive
// calendar dates; callers normalize instants before reaching the validator.
type NewRuleInput struct {
	ID             uuid.UUID // zero value means "generate"
	OrganizationID string

	Kind        Kind
	Category    string
	Description string
	Amount      decimal.Decimal

	CounterpartyID *string
	EngagementID   *string

	Frequency  schedule.Frequency
	DayOfMonth int
	DayOfWeek  int // Sunday=0

	StartDate       time.Time
	EndDate         *time.Time
	OccurrenceLimit int

	CreatedBy string
}

func (in NewRuleInput) validate() FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(in.OrganizationID) == "" {
		errs["organization_id"] = "is required"
	}
	if !in.Kind.Valid() {
		errs["kind"] = fmt.Sprintf("must be %q or %q", KindIncome, KindExpense)
	}
	if strings.TrimSpace(in.Category) == "" {
		errs["category"] = "is required"
	}
	if in.Amount.IsNegative() {
		errs["amount"] = "must not be negative"
	}

	if !in.Frequency.Valid() {
		errs["frequency"] = "must be one of daily, weekly, monthly, quarterly, yearly"
	} else {
		// Exactly the anchor required by the frequency must be present.
		if in.Frequency.NeedsDayOfMonth() {
			if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
				errs["day_of_month"] = fmt.Sprintf("required for %s rules, must be 1-31", in.Frequency)
			}
		}
		if in.Frequency.NeedsDayOfWeek() {
			if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
				errs["day_of_week"] = "required for weekly rules, must be 0-6 (Sunday=0)"
			}
		}
	}

	if in.StartDate.IsZero() {
		errs["start_date"] = "is required"
	} else if in.EndDate != nil && schedule.DateOf(*in.EndDate).Before(schedule.DateOf(in.StartDate)) {
		errs["end_date"] = "must not be earlier than start_date"
	}

	if in.OccurrenceLimit < 0 {
		errs["occurrence_limit"] = "must not be negative"
	}

	return errs
}

// New validates the input and returns a normalized rule with its first
// occurrence seeded from the start date. The seeded date is the first date on
// or after start_date matching the recurrence pattern; it may equal the start
// date itself, unlike every subsequent advance.
//
// Persistence is the caller's responsibility.
func New(in NewRuleInput, now time.Time) (*RecurrenceRule, error) {
	if errs := in.validate(); len(errs) > 0 {
		return nil, errs
	}

	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	r := &RecurrenceRule{
		ID:              id,
		OrganizationID:  in.OrganizationID,
		Kind:            in.Kind,
		Category:        strings.TrimSpace(in.Category),
		Description:     strings.TrimSpace(in.Description),
		Amount:          in.Amount,
		CounterpartyID:  in.CounterpartyID,
		EngagementID:    in.EngagementID,
		Frequency:       in.Frequency,
		DayOfMonth:      in.DayOfMonth,
		DayOfWeek:       time.Weekday(in.DayOfWeek),
		StartDate:       schedule.DateOf(in.StartDate),
		OccurrenceLimit: in.OccurrenceLimit,
		Active:          true,
		CreatedBy:       in.CreatedBy,
		UpdatedBy:       in.CreatedBy,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	if in.EndDate != nil {
		end := schedule.DateOf(*in.EndDate)
		r.EndDate = &end
	}

	seedNext(r, r.StartDate)
	return r, nil
}

// Patch carries an edit: nil fields are left untouched. Changing any
// recurrence parameter (frequency, anchors, start date) recomputes the next
// occurrence from the current date forward, never from the stale anchor.
type Patch struct {
	Kind        *Kind
	Category    *string
	Description *string
	Amount      *decimal.Decimal

	CounterpartyID *string
	EngagementID   *string

	Frequency  *schedule.Frequency
	DayOfMonth *int
	DayOfWeek  *int
	StartDate  *time.Time
	EndDate    *time.Time
	ClearEnd   bool

	OccurrenceLimit *int
	Active          *bool

	UpdatedBy string
}

// Apply validates the patch against the existing rule and returns the edited
// copy. Editing never alters OccurrencesFired. Re-activating a disabled rule
// recomputes a fresh next occurrence from the current date, so a due date
// that passed while the rule was off is not resurrected.
func Apply(existing RecurrenceRule, p Patch, now time.Time) (*RecurrenceRule, error) {
	r := existing

	if p.Kind != nil {
		r.Kind = *p.Kind
	}
	if p.Category != nil {
		r.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.CounterpartyID != nil {
		r.CounterpartyID = p.CounterpartyID
	}
	if p.EngagementID != nil {
		r.EngagementID = p.EngagementID
	}

	anchorChanged := false
	if p.Frequency != nil && *p.Frequency != r.Frequency {
		r.Frequency = *p.Frequency
		anchorChanged = true
	}
	if p.DayOfMonth != nil && *p.DayOfMonth != r.DayOfMonth {
		r.DayOfMonth = *p.DayOfMonth
		anchorChanged = true
	}
	if p.DayOfWeek != nil && time.Weekday(*p.DayOfWeek) != r.DayOfWeek {
		r.DayOfWeek = time.Weekday(*p.DayOfWeek)
		anchorChanged = true
	}
	if p.StartDate != nil && !schedule.DateOf(*p.StartDate).Equal(r.StartDate) {
		r.StartDate = schedule.DateOf(*p.StartDate)
		anchorChanged = true
	}
	capsChanged := false
	if p.ClearEnd {
		if r.EndDate != nil {
			capsChanged = true
		}
		r.EndDate = nil
	} else if p.EndDate != nil {
		end := schedule.DateOf(*p.EndDate)
		if r.EndDate == nil || !end.Equal(*r.EndDate) {
			capsChanged = true
		}
		r.EndDate = &end
	}
	if p.OccurrenceLimit != nil && *p.OccurrenceLimit != r.OccurrenceLimit {
		r.OccurrenceLimit = *p.OccurrenceLimit
		capsChanged = true
	}

	reactivated := false
	disabled := false
	if p.Active != nil {
		switch {
		case *p.Active && !r.Active:
			reactivated = true
		case !*p.Active && r.Active:
			disabled = true
		}
		r.Active = *p.Active
	}

	if errs := r.asInput().validate(); len(errs) > 0 {
		return nil, errs
	}

	if anchorChanged || reactivated {
		// Recompute strictly from the edit time forward. A recurrence edit
		// must not fire a date that already passed before the edit.
		from := schedule.DateOf(now)
		if r.StartDate.After(from) {
			from = r.StartDate
		}
		r.TerminalReason = TerminalNone
		seedNext(&r, from)
	} else {
		if disabled {
			// Manual disable: keep the pointer for display, stop firing.
			// A rule that already ran its course keeps its reason.
			r.TerminalReason = TerminalNone
		}
		if capsChanged && r.Active {
			enforceCaps(&r)
		}
	}

	if p.UpdatedBy != "" {
		r.UpdatedBy = p.UpdatedBy
	}
	r.UpdatedAt = now.UTC()
	return &r, nil
}

// asInput projects the rule back into validator input so edits reuse the
// create-path field checks.
func (r RecurrenceRule) asInput() NewRuleInput {
	return NewRuleInput{
		ID:              r.ID,
		OrganizationID:  r.OrganizationID,
		Kind:            r.Kind,
		Category:        r.Category,
		Description:     r.Description,
		Amount:          r.Amount,
		CounterpartyID:  r.CounterpartyID,
		EngagementID:    r.EngagementID,
		Frequency:       r.Frequency,
		DayOfMonth:      r.DayOfMonth,
		DayOfWeek:       int(r.DayOfWeek),
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		OccurrenceLimit: r.OccurrenceLimit,
		CreatedBy:       r.CreatedBy,
	}
}

// seedNext points the rule at the first valid occurrence on or after `from`,
// applying the occurrence-limit and end-date boundaries. Out of range means
// the rule goes terminal instead of carrying a pointer it will never fire.
func seedNext(r *RecurrenceRule, from time.Time) {
	if r.OccurrenceLimit > 0 && r.OccurrencesFired >= r.OccurrenceLimit {
		r.NextOccurrence = nil
		r.Active = false
		r.TerminalReason = TerminalExhausted
		return
	}

	candidate := schedule.FirstOnOrAfter(r.Frequency, r.DayOfMonth, r.DayOfWeek, from)
	if r.EndDate != nil && candidate.After(*r.EndDate) {
		r.NextOccurrence = nil
		r.Active = false
		r.TerminalReason = TerminalExpired
		return
	}

	r.NextOccurrence = &candidate
}

// enforceCaps retires a rule whose current pointer a tightened end date or
// occurrence limit no longer allows. The pointer is never moved backward:
// it is either kept as-is or dropped with the matching terminal reason.
func enforceCaps(r *RecurrenceRule) {
	if r.OccurrenceLimit > 0 && r.OccurrencesFired >= r.OccurrenceLimit {
		r.NextOccurrence = nil
		r.Active = false
		r.TerminalReason = TerminalExhausted
		return
	}
	if r.EndDate != nil && r.NextOccurrence != nil && r.NextOccurrence.After(*r.EndDate) {
		r.NextOccurrence = nil
		r.Active = false
		r.TerminalReason = TerminalExpired
	}
}
