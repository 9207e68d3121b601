package rule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validInput() NewRuleInput {
	return NewRuleInput{
		OrganizationID: "org-1",
		Kind:           KindExpense,
		Category:       "hosting",
		Description:    "server bill",
		Amount:         decimal.RequireFromString("99.99"),
		Frequency:      schedule.FrequencyMonthly,
		DayOfMonth:     15,
		StartDate:      date(2025, 1, 10),
		CreatedBy:      "user-1",
	}
}

func TestNewSeedsFirstOccurrence(t *testing.T) {
	now := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)

	r, err := New(validInput(), now)
	require.NoError(t, err)

	require.True(t, r.Active)
	require.NotNil(t, r.NextOccurrence)
	require.Equal(t, date(2025, 1, 15), *r.NextOccurrence)
	require.Equal(t, 0, r.OccurrencesFired)
	require.Equal(t, TerminalNone, r.TerminalReason)
	require.NotEqual(t, "", r.ID.String())
}

func TestNewSeedMayEqualStartDate(t *testing.T) {
	in := validInput()
	in.Frequency = schedule.FrequencyWeekly
	in.DayOfMonth = 0
	in.DayOfWeek = int(time.Friday)
	in.StartDate = date(2025, 1, 10) // a Friday

	r, err := New(in, time.Now())
	require.NoError(t, err)
	require.Equal(t, date(2025, 1, 10), *r.NextOccurrence)
}

func TestNewFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewRuleInput)
		field  string
	}{
		{"missing org", func(in *NewRuleInput) { in.OrganizationID = " " }, "organization_id"},
		{"bad kind", func(in *NewRuleInput) { in.Kind = "transfer" }, "kind"},
		{"missing category", func(in *NewRuleInput) { in.Category = "" }, "category"},
		{"negative amount", func(in *NewRuleInput) { in.Amount = decimal.NewFromInt(-1) }, "amount"},
		{"bad frequency", func(in *NewRuleInput) { in.Frequency = "hourly" }, "frequency"},
		{"monthly without day_of_month", func(in *NewRuleInput) { in.DayOfMonth = 0 }, "day_of_month"},
		{"day_of_month too large", func(in *NewRuleInput) { in.DayOfMonth = 32 }, "day_of_month"},
		{"weekly without day_of_week", func(in *NewRuleInput) {
			in.Frequency = schedule.FrequencyWeekly
			in.DayOfWeek = 9
		}, "day_of_week"},
		{"missing start_date", func(in *NewRuleInput) { in.StartDate = time.Time{} }, "start_date"},
		{"end before start", func(in *NewRuleInput) {
			end := date(2024, 12, 31)
			in.EndDate = &end
		}, "end_date"},
		{"negative limit", func(in *NewRuleInput) { in.OccurrenceLimit = -2 }, "occurrence_limit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			r, err := New(in, time.Now())
			require.Nil(t, r)

			var fieldErrs FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Contains(t, fieldErrs, tc.field)
		})
	}
}

func TestApplyKeepsUnsuppliedFields(t *testing.T) {
	now := date(2025, 1, 2)
	r, err := New(validInput(), now)
	require.NoError(t, err)

	amount := decimal.RequireFromString("120.00")
	updated, err := Apply(*r, Patch{Amount: &amount, UpdatedBy: "user-2"}, date(2025, 1, 5))
	require.NoError(t, err)

	require.Equal(t, amount, updated.Amount)
	require.Equal(t, r.Category, updated.Category)
	require.Equal(t, r.Frequency, updated.Frequency)
	require.Equal(t, "user-2", updated.UpdatedBy)
	// A non-recurrence edit leaves the pointer alone.
	require.Equal(t, *r.NextOccurrence, *updated.NextOccurrence)
}

func TestApplyRecurrenceEditRecomputesFromNow(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)
	require.Equal(t, date(2025, 1, 15), *r.NextOccurrence)

	// Editing the anchor on Jan 20 must not resurrect Jan 15.
	dom := 10
	updated, err := Apply(*r, Patch{DayOfMonth: &dom}, date(2025, 1, 20))
	require.NoError(t, err)
	require.Equal(t, date(2025, 2, 10), *updated.NextOccurrence)
	require.True(t, updated.NextOccurrence.After(date(2025, 1, 20)))
}

func TestApplyFrequencyEditNeverProducesPastDate(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)

	freq := schedule.FrequencyDaily
	editTime := date(2025, 3, 7)
	updated, err := Apply(*r, Patch{Frequency: &freq}, editTime)
	require.NoError(t, err)
	require.False(t, updated.NextOccurrence.Before(editTime))
	require.Equal(t, editTime, *updated.NextOccurrence)
}

func TestApplyDoesNotTouchFiredCount(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)
	r.OccurrencesFired = 4

	dom := 1
	updated, err := Apply(*r, Patch{DayOfMonth: &dom}, date(2025, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 4, updated.OccurrencesFired)
}

func TestApplyReactivationRecomputes(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)

	off := false
	disabled, err := Apply(*r, Patch{Active: &off}, date(2025, 1, 5))
	require.NoError(t, err)
	require.False(t, disabled.Active)
	require.Equal(t, TerminalNone, disabled.TerminalReason)

	on := true
	revived, err := Apply(*disabled, Patch{Active: &on}, date(2025, 4, 2))
	require.NoError(t, err)
	require.True(t, revived.Active)
	require.Equal(t, date(2025, 4, 15), *revived.NextOccurrence)
}

func TestApplyShrunkEndDateRetiresStalePointer(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)
	require.Equal(t, date(2025, 1, 15), *r.NextOccurrence)

	// Pulling the end date below the current pointer must not leave an
	// active rule aimed at a date it is no longer allowed to fire.
	end := date(2025, 1, 12)
	updated, err := Apply(*r, Patch{EndDate: &end}, date(2025, 1, 5))
	require.NoError(t, err)
	require.False(t, updated.Active)
	require.Nil(t, updated.NextOccurrence)
	require.Equal(t, TerminalExpired, updated.TerminalReason)
}

func TestApplyEndDateAbovePointerKeepsPointer(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)

	end := date(2025, 2, 1)
	updated, err := Apply(*r, Patch{EndDate: &end}, date(2025, 1, 5))
	require.NoError(t, err)
	require.True(t, updated.Active)
	require.Equal(t, date(2025, 1, 15), *updated.NextOccurrence)
}

func TestApplyLoweredLimitRetiresSatisfiedRule(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)
	r.OccurrencesFired = 5

	limit := 3
	updated, err := Apply(*r, Patch{OccurrenceLimit: &limit}, date(2025, 1, 5))
	require.NoError(t, err)
	require.False(t, updated.Active)
	require.Nil(t, updated.NextOccurrence)
	require.Equal(t, TerminalExhausted, updated.TerminalReason)
}

func TestApplyDisableKeepsTerminalReason(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)
	r.OccurrencesFired = 5

	limit := 3
	exhausted, err := Apply(*r, Patch{OccurrenceLimit: &limit}, date(2025, 1, 5))
	require.NoError(t, err)
	require.Equal(t, TerminalExhausted, exhausted.TerminalReason)

	// Disabling a rule that already ran its course is a no-op on the
	// reason; only an active rule turns into a plain manual disable.
	off := false
	updated, err := Apply(*exhausted, Patch{Active: &off}, date(2025, 1, 6))
	require.NoError(t, err)
	require.False(t, updated.Active)
	require.Equal(t, TerminalExhausted, updated.TerminalReason)
}

func TestApplyRejectsInvalidResult(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)

	end := date(2024, 6, 1) // before start
	_, err = Apply(*r, Patch{EndDate: &end}, date(2025, 1, 5))

	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Contains(t, fieldErrs, "end_date")
}

func TestNewWithUnreachableWindowGoesTerminal(t *testing.T) {
	in := validInput()
	in.StartDate = date(2025, 1, 20)
	end := date(2025, 2, 1) // next dom=15 occurrence would be Feb 15
	in.EndDate = &end

	r, err := New(in, time.Now())
	require.NoError(t, err)
	require.False(t, r.Active)
	require.Nil(t, r.NextOccurrence)
	require.Equal(t, TerminalExpired, r.TerminalReason)
}

func TestNextAfterFire(t *testing.T) {
	r, err := New(validInput(), date(2025, 1, 2))
	require.NoError(t, err)

	next, active, reason := NextAfterFire(*r, date(2025, 1, 15))
	require.True(t, active)
	require.Equal(t, TerminalNone, reason)
	require.Equal(t, date(2025, 2, 15), *next)
}

func TestNextAfterFireHitsLimit(t *testing.T) {
	in := validInput()
	in.OccurrenceLimit = 2
	r, err := New(in, date(2025, 1, 2))
	require.NoError(t, err)
	r.OccurrencesFired = 1

	next, active, reason := NextAfterFire(*r, date(2025, 2, 15))
	require.Nil(t, next)
	require.False(t, active)
	require.Equal(t, TerminalExhausted, reason)
}

func TestNextAfterFireHitsEndDate(t *testing.T) {
	in := validInput()
	end := date(2025, 2, 28)
	in.EndDate = &end
	r, err := New(in, date(2025, 1, 2))
	require.NoError(t, err)

	next, active, reason := NextAfterFire(*r, date(2025, 2, 15))
	require.Nil(t, next)
	require.False(t, active)
	require.Equal(t, TerminalExpired, reason)
}
