package rule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
)

// Kind classifies a rule as money in or money out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// TerminalReason records why a rule stopped firing. Empty while the rule is
// still eligible; reporting needs to distinguish a rule that ran its course
// from one a user turned off.
type TerminalReason string

const (
	TerminalNone      TerminalReason = ""
	TerminalExhausted TerminalReason = "exhausted"
	TerminalExpired   TerminalReason = "expired"
)

// RecurrenceRule is the declarative definition of a repeating obligation plus
// its mutable progress state. OccurrencesFired/NextOccurrence may only change
// through the processor's atomic fire step or the validator's edit path.
type RecurrenceRule struct {
	ID             uuid.UUID
	OrganizationID string

	Kind        Kind
	Category    string
	Description string
	Amount      decimal.Decimal

	// Optional references to external CRM entities; opaque to the engine.
	CounterpartyID *string
	EngagementID   *string

	Frequency  schedule.Frequency
	DayOfMonth int          // 1..31; meaningful for monthly/quarterly/yearly
	DayOfWeek  time.Weekday // Sunday=0; meaningful for weekly
	StartDate  time.Time
	EndDate    *time.Time

	// OccurrenceLimit caps total firings. 0 means unlimited.
	OccurrenceLimit int

	OccurrencesFired int
	NextOccurrence   *time.Time
	Active           bool
	TerminalReason   TerminalReason

	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry is the immutable record produced each time a rule fires. It
// carries a copy of the rule's classification and amount at fire time so later
// edits to the rule do not rewrite history.
type LedgerEntry struct {
	ID             uuid.UUID
	OrganizationID string
	RuleID         uuid.UUID

	Kind        Kind
	Category    string
	Description string
	Amount      decimal.Decimal

	OccurrenceDate time.Time
	CreatedAt      time.Time
}

// NextAfterFire computes the rule's pointer state after the occurrence on
// `fired` has been materialized: the new next-occurrence pointer, whether the
// rule remains active, and the terminal reason when it does not.
//
// The candidate date is seeded from the just-fired occurrence, not from the
// wall clock: a rule that missed several cycles fires its next scheduled
// date, one per processing pass.
func NextAfterFire(r RecurrenceRule, fired time.Time) (next *time.Time, active bool, reason TerminalReason) {
	firedCount := r.OccurrencesFired + 1
	if r.OccurrenceLimit > 0 && firedCount >= r.OccurrenceLimit {
		return nil, false, TerminalExhausted
	}

	candidate := schedule.Next(r.Frequency, r.DayOfMonth, r.DayOfWeek, fired)
	if r.EndDate != nil && candidate.After(schedule.DateOf(*r.EndDate)) {
		return nil, false, TerminalExpired
	}
	return &candidate, true, TerminalNone
}
