package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
	"github.com/cadenza-lab/project-cadenza/internal/core/storage"
)

const (
	defaultBatchSize   = 500
	defaultWorkerCount = 4
)

// Options controls throughput for a processing pass.
type Options struct {
	// BatchSize caps how many due rules one pass picks up per organization.
	BatchSize int
	// WorkerCount bounds concurrent per-rule steps. Rules are independent of
	// one another; no cross-rule ordering is guaranteed.
	WorkerCount int
}

func (o Options) normalized() Options {
	n := o
	if n.BatchSize <= 0 {
		n.BatchSize = defaultBatchSize
	}
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	return n
}

// RuleFailure records one rule whose step failed. The run continues with the
// remaining rules; the rule stays due and is retried on the next pass.
type RuleFailure struct {
	RuleID uuid.UUID `json:"rule_id"`
	Error  string    `json:"error"`
}

// ProcessingReport summarizes one ProcessDue pass over an organization.
type ProcessingReport struct {
	OrganizationID  string        `json:"organization_id"`
	ReferenceDate   time.Time     `json:"reference_date"`
	RulesConsidered int           `json:"rules_considered"`
	Fired           int           `json:"fired"`
	Conflicts       int           `json:"conflicts"`
	Exhausted       int           `json:"exhausted"`
	Expired         int           `json:"expired"`
	Failures        []RuleFailure `json:"failures,omitempty"`
}

// Processor materializes due occurrences. It owns no state beyond the store
// handle; every pass re-reads persisted rule state before acting.
type Processor struct {
	store storage.RuleStore
	opts  Options
	nowFn func() time.Time
}

// New creates a Processor over the given store.
func New(store storage.RuleStore, opts Options) *Processor {
	return &Processor{
		store: store,
		opts:  opts.normalized(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// ProcessDue fires every due rule in the organization at most once.
//
// A rule more than one period behind the reference time fires a single
// occurrence per pass and is re-evaluated on the next one; catch-up is
// stepwise, which keeps each pass bounded and interruptible. Each rule's step
// is atomic and self-contained, so cancelling between rules cannot corrupt
// state: remaining due rules are simply left to the next pass.
func (p *Processor) ProcessDue(ctx context.Context, orgID string, ref time.Time) (*ProcessingReport, error) {
	refDate := schedule.DateOf(ref)

	due, err := p.store.ListDueRules(ctx, orgID, refDate, p.opts.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list due rules: %w", err)
	}

	report := &ProcessingReport{
		OrganizationID:  orgID,
		ReferenceDate:   refDate,
		RulesConsidered: len(due),
	}
	if len(due) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.WorkerCount)

	for _, candidate := range due {
		ruleID := candidate.ID
		g.Go(func() error {
			outcome, err := p.step(gctx, orgID, ruleID, refDate)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, storage.ErrConflict):
				// A concurrent invocation won this rule's step. Not a
				// failure: the occurrence was fired exactly once, by the
				// winner.
				report.Conflicts++
			case err != nil:
				report.Failures = append(report.Failures, RuleFailure{
					RuleID: ruleID,
					Error:  err.Error(),
				})
			case outcome.fired:
				report.Fired++
				switch outcome.terminal {
				case rule.TerminalExhausted:
					report.Exhausted++
				case rule.TerminalExpired:
					report.Expired++
				}
			}
			return nil
		})
	}

	// Workers never return errors; per-rule outcomes land in the report.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	slog.Info("[Processor] Pass complete",
		"organization_id", orgID,
		"reference_date", refDate.Format(time.DateOnly),
		"considered", report.RulesConsidered,
		"fired", report.Fired,
		"conflicts", report.Conflicts,
		"failures", len(report.Failures),
	)
	return report, nil
}

type stepOutcome struct {
	fired    bool
	terminal rule.TerminalReason
}

// step processes one rule: re-read, verify dueness against current persisted
// state, materialize the entry, advance the pointer, commit atomically.
func (p *Processor) step(ctx context.Context, orgID string, ruleID uuid.UUID, refDate time.Time) (stepOutcome, error) {
	// Re-read immediately before acting; the listing snapshot may be stale.
	cur, err := p.store.GetRule(ctx, orgID, ruleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return stepOutcome{}, nil // deleted since listing
		}
		return stepOutcome{}, fmt.Errorf("re-read rule: %w", err)
	}

	if rule.Classify(*cur, refDate) != rule.StateDue {
		return stepOutcome{}, nil // advanced or disabled since listing
	}

	// The entry fires the rule's scheduled date, not "now": a rule that
	// missed cycles materializes its next scheduled occurrence.
	fired := *cur.NextOccurrence
	now := p.nowFn()

	next, active, reason := rule.NextAfterFire(*cur, fired)

	advanced := *cur
	advanced.OccurrencesFired = cur.OccurrencesFired + 1
	advanced.NextOccurrence = next
	advanced.Active = active
	advanced.TerminalReason = reason
	advanced.UpdatedAt = now

	entry := &rule.LedgerEntry{
		ID:             uuid.New(),
		OrganizationID: cur.OrganizationID,
		RuleID:         cur.ID,
		Kind:           cur.Kind,
		Category:       cur.Category,
		Description:    cur.Description,
		Amount:         cur.Amount,
		OccurrenceDate: fired,
		CreatedAt:      now,
	}

	if err := p.store.FireOccurrence(ctx, &advanced, cur.OccurrencesFired, fired, entry); err != nil {
		return stepOutcome{}, err
	}

	return stepOutcome{fired: true, terminal: reason}, nil
}

// ProcessAll runs one pass over every organization that currently holds due
// rules. One organization's failure does not block the others.
func (p *Processor) ProcessAll(ctx context.Context, ref time.Time) ([]*ProcessingReport, error) {
	orgs, err := p.store.ListDueOrganizations(ctx, schedule.DateOf(ref))
	if err != nil {
		return nil, fmt.Errorf("list due organizations: %w", err)
	}

	var reports []*ProcessingReport
	for _, org := range orgs {
		report, err := p.ProcessDue(ctx, org, ref)
		if err != nil {
			if ctx.Err() != nil {
				return reports, err
			}
			slog.Error("[Processor] Organization pass failed",
				"organization_id", org,
				"error", err,
			)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
