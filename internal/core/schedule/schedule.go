package schedule

import (
	"fmt"
	"time"
)

// Frequency is the cadence of a recurrence rule.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// MonthStep returns the number of months between occurrences for month-anchored
// frequencies, and 0 for daily/weekly.
func (f Frequency) MonthStep() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	}
	return 0
}

// NeedsDayOfMonth reports whether the frequency anchors on a day-of-month.
func (f Frequency) NeedsDayOfMonth() bool {
	return f.MonthStep() > 0
}

// NeedsDayOfWeek reports whether the frequency anchors on a weekday.
func (f Frequency) NeedsDayOfWeek() bool {
	return f == FrequencyWeekly
}

func (f Frequency) String() string {
	return string(f)
}

// ParseFrequency converts a raw string into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency %q", s)
	}
	return f, nil
}

// DateOf normalizes an instant to a naive calendar date: midnight UTC.
// All schedule arithmetic operates on such dates. Timezone resolution happens
// at the boundary of the system, never here.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// monthAnchored builds the occurrence date monthOffset months after the month
// containing base, clamping day to the length of the target month. A rule
// anchored to the 31st fires on the 30th (or 28th/29th in February) in short
// months.
func monthAnchored(base time.Time, monthOffset, day int) time.Time {
	months := int(base.Month()) - 1 + monthOffset
	year := base.Year() + months/12
	month := time.Month(months%12 + 1)

	if max := daysIn(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Next returns the first occurrence strictly after the given date. It never
// returns `after` itself: a weekly rule evaluated on its own weekday advances a
// full week, a month-anchored rule always moves to the next period. Callers
// apply end-date and occurrence-limit boundaries themselves; Next is agnostic
// to caps.
func Next(freq Frequency, dayOfMonth int, dayOfWeek time.Weekday, after time.Time) time.Time {
	after = DateOf(after)

	switch freq {
	case FrequencyDaily:
		return after.AddDate(0, 0, 1)
	case FrequencyWeekly:
		days := (int(dayOfWeek) - int(after.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return after.AddDate(0, 0, days)
	default:
		return monthAnchored(after, freq.MonthStep(), dayOfMonth)
	}
}

// FirstOnOrAfter returns the first occurrence on or after the given date.
// Unlike Next it may return `from` itself; it is the seeding path used when a
// rule is created or its recurrence parameters are edited.
func FirstOnOrAfter(freq Frequency, dayOfMonth int, dayOfWeek time.Weekday, from time.Time) time.Time {
	from = DateOf(from)

	switch freq {
	case FrequencyDaily:
		return from
	case FrequencyWeekly:
		days := (int(dayOfWeek) - int(from.Weekday()) + 7) % 7
		return from.AddDate(0, 0, days)
	default:
		candidate := monthAnchored(from, 0, dayOfMonth)
		if candidate.Before(from) {
			return monthAnchored(from, freq.MonthStep(), dayOfMonth)
		}
		return candidate
	}
}
