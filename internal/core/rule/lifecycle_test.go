package rule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	feb15 := date(2025, 2, 15)

	base := func() RecurrenceRule {
		next := feb15
		return RecurrenceRule{
			Active:         true,
			NextOccurrence: &next,
		}
	}

	tests := []struct {
		name   string
		mutate func(*RecurrenceRule)
		ref    time.Time
		want   State
	}{
		{"future pointer is scheduled", nil, date(2025, 2, 1), StateScheduled},
		{"past pointer is due", nil, date(2025, 3, 1), StateDue},
		{"pointer equal to reference date is due", nil, feb15, StateDue},
		{
			"reference with wall-clock time still matches same-day pointer",
			nil,
			time.Date(2025, 2, 15, 17, 45, 3, 0, time.UTC),
			StateDue,
		},
		{
			"limit terminal",
			func(r *RecurrenceRule) {
				r.Active = false
				r.NextOccurrence = nil
				r.TerminalReason = TerminalExhausted
			},
			date(2025, 3, 1), StateExhausted,
		},
		{
			"end date terminal",
			func(r *RecurrenceRule) {
				r.Active = false
				r.NextOccurrence = nil
				r.TerminalReason = TerminalExpired
			},
			date(2025, 3, 1), StateExpired,
		},
		{
			"manual disable is inactive, not exhausted",
			func(r *RecurrenceRule) {
				r.Active = false
			},
			date(2025, 3, 1), StateInactive,
		},
		{
			"disabled overrides dueness",
			func(r *RecurrenceRule) {
				r.Active = false
			},
			date(2025, 2, 20), StateInactive,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := base()
			if tc.mutate != nil {
				tc.mutate(&r)
			}
			require.Equal(t, tc.want, Classify(r, tc.ref))
		})
	}
}
