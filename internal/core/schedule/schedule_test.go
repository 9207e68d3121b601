package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseFrequency(t *testing.T) {
	for _, valid := range []string{"daily", "weekly", "monthly", "quarterly", "yearly"} {
		f, err := ParseFrequency(valid)
		require.NoError(t, err)
		require.True(t, f.Valid())
	}

	_, err := ParseFrequency("fortnightly")
	require.Error(t, err)
	_, err = ParseFrequency("")
	require.Error(t, err)
}

func TestDateOf(t *testing.T) {
	// Wall-clock time and zone are stripped; only the calendar date survives.
	zone := time.FixedZone("X", -5*3600)
	ts := time.Date(2025, 3, 14, 23, 45, 12, 999, zone)
	require.Equal(t, date(2025, 3, 14), DateOf(ts))
}

func TestNextDaily(t *testing.T) {
	require.Equal(t, date(2025, 1, 11), Next(FrequencyDaily, 0, 0, date(2025, 1, 10)))
	// Month and year rollover.
	require.Equal(t, date(2025, 2, 1), Next(FrequencyDaily, 0, 0, date(2025, 1, 31)))
	require.Equal(t, date(2026, 1, 1), Next(FrequencyDaily, 0, 0, date(2025, 12, 31)))
}

func TestNextWeekly(t *testing.T) {
	// 2025-01-06 is a Monday.
	monday := date(2025, 1, 6)

	// Same weekday advances a full week, never returns the input date.
	require.Equal(t, date(2025, 1, 13), Next(FrequencyWeekly, 0, time.Monday, monday))
	// Later in the same week.
	require.Equal(t, date(2025, 1, 9), Next(FrequencyWeekly, 0, time.Thursday, monday))
	// Earlier weekday wraps to next week.
	require.Equal(t, date(2025, 1, 12), Next(FrequencyWeekly, 0, time.Sunday, monday))
}

func TestNextMonthlyClampsMonthEnd(t *testing.T) {
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{"jan to feb non-leap", date(2025, 1, 31), date(2025, 2, 28)},
		{"feb back to 31st", date(2025, 2, 28), date(2025, 3, 31)},
		{"mar to apr", date(2025, 3, 31), date(2025, 4, 30)},
		{"jan to feb leap year", date(2024, 1, 31), date(2024, 2, 29)},
		{"dec rolls into next year", date(2025, 12, 31), date(2026, 1, 31)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Next(FrequencyMonthly, 31, 0, tc.after))
		})
	}
}

func TestNextMonthlySequenceFromJanuary31(t *testing.T) {
	// Fixed vector: dom=31 starting Jan 2025.
	want := []time.Time{
		date(2025, 1, 31),
		date(2025, 2, 28),
		date(2025, 3, 31),
		date(2025, 4, 30),
		date(2025, 5, 31),
		date(2025, 6, 30),
	}

	got := FirstOnOrAfter(FrequencyMonthly, 31, 0, date(2025, 1, 1))
	for i, expected := range want {
		require.Equal(t, expected, got, "occurrence %d", i)
		got = Next(FrequencyMonthly, 31, 0, got)
	}
}

func TestNextQuarterlyAndYearly(t *testing.T) {
	require.Equal(t, date(2025, 4, 15), Next(FrequencyQuarterly, 15, 0, date(2025, 1, 15)))
	require.Equal(t, date(2025, 11, 30), Next(FrequencyQuarterly, 31, 0, date(2025, 8, 31)))
	require.Equal(t, date(2026, 2, 28), Next(FrequencyYearly, 29, 0, date(2025, 2, 28)))
	// Leap day anchor lands on Feb 29 again in a leap year.
	require.Equal(t, date(2028, 2, 29), Next(FrequencyYearly, 29, 0, date(2027, 2, 28)))
}

func TestNextIsStrictlyIncreasing(t *testing.T) {
	anchors := []struct {
		freq Frequency
		dom  int
		dow  time.Weekday
	}{
		{FrequencyDaily, 0, 0},
		{FrequencyWeekly, 0, time.Friday},
		{FrequencyMonthly, 31, 0},
		{FrequencyMonthly, 1, 0},
		{FrequencyQuarterly, 30, 0},
		{FrequencyYearly, 29, 0},
	}

	for _, a := range anchors {
		cur := date(2024, 1, 17)
		for i := 0; i < 100; i++ {
			next := Next(a.freq, a.dom, a.dow, cur)
			require.True(t, next.After(cur),
				"freq=%s iteration=%d cur=%s next=%s", a.freq, i, cur, next)
			cur = next
		}
	}
}

func TestFirstOnOrAfter(t *testing.T) {
	// Daily seeds on the start date itself.
	require.Equal(t, date(2025, 6, 1), FirstOnOrAfter(FrequencyDaily, 0, 0, date(2025, 6, 1)))

	// Weekly whose start date already falls on the anchor weekday fires on the
	// start date, not a week later. 2025-01-06 is a Monday.
	require.Equal(t, date(2025, 1, 6), FirstOnOrAfter(FrequencyWeekly, 0, time.Monday, date(2025, 1, 6)))
	require.Equal(t, date(2025, 1, 8), FirstOnOrAfter(FrequencyWeekly, 0, time.Wednesday, date(2025, 1, 6)))

	// Monthly: anchor later in the starting month is used as-is.
	require.Equal(t, date(2025, 1, 15), FirstOnOrAfter(FrequencyMonthly, 15, 0, date(2025, 1, 10)))
	// Anchor already passed in the starting month rolls to the next period.
	require.Equal(t, date(2025, 2, 15), FirstOnOrAfter(FrequencyMonthly, 15, 0, date(2025, 1, 20)))
	require.Equal(t, date(2025, 4, 15), FirstOnOrAfter(FrequencyQuarterly, 15, 0, date(2025, 1, 20)))
	// Start date equal to the anchor seeds on the start date.
	require.Equal(t, date(2025, 1, 15), FirstOnOrAfter(FrequencyMonthly, 15, 0, date(2025, 1, 15)))
	// Clamping applies during seeding too.
	require.Equal(t, date(2025, 2, 28), FirstOnOrAfter(FrequencyMonthly, 31, 0, date(2025, 2, 10)))
}
