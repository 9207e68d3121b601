package rule

import (
	"time"

	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
)

// Preview returns up to n upcoming occurrence dates for the rule, starting at
// its current next-occurrence pointer. It is a pure projection: nothing is
// mutated or persisted, and the list is truncated wherever the occurrence
// limit or end date would stop the rule.
//
// A rule that cannot fire again (inactive, exhausted, or with no pointer)
// previews as empty.
func Preview(r RecurrenceRule, n int) []time.Time {
	if n <= 0 || !r.Active || r.NextOccurrence == nil {
		return nil
	}

	if r.OccurrenceLimit > 0 {
		remaining := r.OccurrenceLimit - r.OccurrencesFired
		if remaining <= 0 {
			return nil
		}
		if remaining < n {
			n = remaining
		}
	}

	out := make([]time.Time, 0, n)
	cur := schedule.DateOf(*r.NextOccurrence)
	for len(out) < n {
		if r.EndDate != nil && cur.After(schedule.DateOf(*r.EndDate)) {
			break
		}
		out = append(out, cur)
		cur = schedule.Next(r.Frequency, r.DayOfMonth, r.DayOfWeek, cur)
	}
	return out
}
