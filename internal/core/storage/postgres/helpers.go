package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
)

// nullableDate maps an optional calendar date to SQL NULL rather than the
// zero time.
func nullableDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullableReason stores the empty terminal reason as SQL NULL.
func nullableReason(r rule.TerminalReason) sql.NullString {
	if r == rule.TerminalNone {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r), Valid: true}
}

func insertRuleArgs(r *rule.RecurrenceRule) []interface{} {
	return []interface{}{
		r.ID,
		r.OrganizationID,
		r.Kind,
		r.Category,
		r.Description,
		r.Amount,
		r.CounterpartyID,
		r.EngagementID,
		r.Frequency,
		r.DayOfMonth,
		int(r.DayOfWeek),
		r.StartDate,
		nullableDate(r.EndDate),
		r.OccurrenceLimit,
		r.OccurrencesFired,
		nullableDate(r.NextOccurrence),
		r.Active,
		nullableReason(r.TerminalReason),
		r.CreatedBy,
		r.UpdatedBy,
		r.CreatedAt,
		r.UpdatedAt,
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRuleRow scans a rule row. Dates come back from the driver as instants;
// they are renormalized to naive calendar dates so schedule arithmetic never
// sees a timezone. Compatible with both sql.Row and sql.Rows.
func scanRuleRow(row scanner) (*rule.RecurrenceRule, error) {
	var (
		r              rule.RecurrenceRule
		dayOfWeek      int
		endDate        sql.NullTime
		nextOccurrence sql.NullTime
		terminalReason sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&r.OrganizationID,
		&r.Kind,
		&r.Category,
		&r.Description,
		&r.Amount,
		&r.CounterpartyID,
		&r.EngagementID,
		&r.Frequency,
		&r.DayOfMonth,
		&dayOfWeek,
		&r.StartDate,
		&endDate,
		&r.OccurrenceLimit,
		&r.OccurrencesFired,
		&nextOccurrence,
		&r.Active,
		&terminalReason,
		&r.CreatedBy,
		&r.UpdatedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.DayOfWeek = time.Weekday(dayOfWeek)
	r.StartDate = schedule.DateOf(r.StartDate)
	if endDate.Valid {
		d := schedule.DateOf(endDate.Time)
		r.EndDate = &d
	}
	if nextOccurrence.Valid {
		d := schedule.DateOf(nextOccurrence.Time)
		r.NextOccurrence = &d
	}
	if terminalReason.Valid {
		r.TerminalReason = rule.TerminalReason(terminalReason.String)
	}
	return &r, nil
}

func collectRules(rows *sql.Rows) ([]*rule.RecurrenceRule, error) {
	var rules []*rule.RecurrenceRule
	for rows.Next() {
		r, err := scanRuleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

func scanEntryRow(row scanner) (*rule.LedgerEntry, error) {
	var e rule.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.OrganizationID,
		&e.RuleID,
		&e.Kind,
		&e.Category,
		&e.Description,
		&e.Amount,
		&e.OccurrenceDate,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.OccurrenceDate = schedule.DateOf(e.OccurrenceDate)
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]*rule.LedgerEntry, error) {
	var entries []*rule.LedgerEntry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}
