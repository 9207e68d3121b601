package rule

import (
	"time"

	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
)

// State is a rule's lifecycle position, derived from stored fields. Classify
// is a pure read; nothing here mutates or persists.
type State string

const (
	// StateScheduled: active, next occurrence in the future.
	StateScheduled State = "scheduled"
	// StateDue: active, next occurrence on or before the reference date.
	StateDue State = "due"
	// StateExhausted: occurrence limit reached.
	StateExhausted State = "exhausted"
	// StateExpired: end date passed with no remaining valid occurrence.
	StateExpired State = "expired"
	// StateInactive: administratively disabled before either cap was reached.
	StateInactive State = "inactive"
)

// Classify reports the rule's lifecycle state at the given reference time.
// Terminal states take precedence over Due/Scheduled when the rule is no
// longer active; a disabled rule with neither cap reached is Inactive, which
// keeps a rule that ran its course distinguishable from one a user turned off.
//
// The dueness boundary is inclusive: a rule whose next occurrence equals the
// reference date is Due.
func Classify(r RecurrenceRule, ref time.Time) State {
	if !r.Active {
		switch r.TerminalReason {
		case TerminalExhausted:
			return StateExhausted
		case TerminalExpired:
			return StateExpired
		default:
			return StateInactive
		}
	}

	if r.NextOccurrence == nil {
		// An active rule without a pointer never fires again; report it by
		// whichever cap the stored fields show.
		if r.OccurrenceLimit > 0 && r.OccurrencesFired >= r.OccurrenceLimit {
			return StateExhausted
		}
		return StateExpired
	}

	if !r.NextOccurrence.After(schedule.DateOf(ref)) {
		return StateDue
	}
	return StateScheduled
}
