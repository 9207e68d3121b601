package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
)

var (
	// ErrNotFound is returned when a rule does not exist in the caller's organization.
	ErrNotFound = errors.New("rule not found")

	// ErrDuplicate is returned when inserting a rule whose id already exists.
	ErrDuplicate = errors.New("rule already exists")

	// ErrConflict is returned when the optimistic guard on a fire step does not
	// match the persisted (occurrences_fired, next_occurrence) pair, meaning
	// another writer got there first. The losing writer has no side effects.
	ErrConflict = errors.New("rule modified concurrently")
)

// RuleStore persists recurrence rules. All reads and writes are scoped to one
// organization except the scheduler's cross-organization due scan.
type RuleStore interface {
	CreateRule(ctx context.Context, r *rule.RecurrenceRule) error
	GetRule(ctx context.Context, orgID string, id uuid.UUID) (*rule.RecurrenceRule, error)
	ListRules(ctx context.Context, orgID string) ([]*rule.RecurrenceRule, error)
	UpdateRule(ctx context.Context, r *rule.RecurrenceRule) error

	// ListDueRules returns active rules in the organization whose next
	// occurrence is on or before the reference date, oldest pointer first.
	ListDueRules(ctx context.Context, orgID string, ref time.Time, limit int) ([]*rule.RecurrenceRule, error)

	// ListDueOrganizations returns the organizations that currently hold at
	// least one due rule. Used by the cron driver to bound its sweep.
	ListDueOrganizations(ctx context.Context, ref time.Time) ([]string, error)

	// FireOccurrence commits one processing step as a single atomic unit: the
	// rule row advances to the state carried by r (fired counter, pointer,
	// active flag, terminal reason) and the ledger entry is inserted. The
	// update is conditional on the previously observed pair; if the row no
	// longer matches, nothing is written and ErrConflict is returned.
	FireOccurrence(
		ctx context.Context,
		r *rule.RecurrenceRule,
		observedFired int,
		observedNext time.Time,
		entry *rule.LedgerEntry,
	) error
}

// LedgerStore reads materialized occurrences. Entries are written only by
// RuleStore.FireOccurrence and are immutable afterward.
type LedgerStore interface {
	ListEntriesByRule(ctx context.Context, orgID string, ruleID uuid.UUID, limit int) ([]*rule.LedgerEntry, error)
	ListEntries(ctx context.Context, orgID string, limit int) ([]*rule.LedgerEntry, error)
}
