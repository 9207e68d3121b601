package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
	"github.com/cadenza-lab/project-cadenza/internal/core/storage"
)

// MemoryStore is a test helper implementing storage.RuleStore and
// storage.LedgerStore with the same guard semantics as the postgres adapter.
type MemoryStore struct {
	mu      sync.Mutex
	rules   map[uuid.UUID]*rule.RecurrenceRule
	entries []*rule.LedgerEntry

	// FireErrs injects a per-rule failure into FireOccurrence.
	FireErrs map[uuid.UUID]error
	// BeforeFire, when set, runs inside FireOccurrence before the guard check.
	// Used to simulate concurrent writers.
	BeforeFire func(ruleID uuid.UUID)
}

// NewMemoryStore creates an empty in-memory store for tests.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:    make(map[uuid.UUID]*rule.RecurrenceRule),
		FireErrs: make(map[uuid.UUID]error),
	}
}

func copyRule(r *rule.RecurrenceRule) *rule.RecurrenceRule {
	c := *r
	if r.EndDate != nil {
		d := *r.EndDate
		c.EndDate = &d
	}
	if r.NextOccurrence != nil {
		d := *r.NextOccurrence
		c.NextOccurrence = &d
	}
	return &c
}

func (s *MemoryStore) CreateRule(_ context.Context, r *rule.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rules[r.ID]; exists {
		return storage.ErrDuplicate
	}
	s.rules[r.ID] = copyRule(r)
	return nil
}

func (s *MemoryStore) GetRule(_ context.Context, orgID string, id uuid.UUID) (*rule.RecurrenceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || r.OrganizationID != orgID {
		return nil, storage.ErrNotFound
	}
	return copyRule(r), nil
}

func (s *MemoryStore) ListRules(_ context.Context, orgID string) ([]*rule.RecurrenceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*rule.RecurrenceRule
	for _, r := range s.rules {
		if r.OrganizationID == orgID {
			out = append(out, copyRule(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateRule(_ context.Context, r *rule.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rules[r.ID]
	if !ok || cur.OrganizationID != r.OrganizationID {
		return storage.ErrNotFound
	}
	s.rules[r.ID] = copyRule(r)
	return nil
}

func (s *MemoryStore) ListDueRules(_ context.Context, orgID string, ref time.Time, limit int) ([]*rule.RecurrenceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refDate := schedule.DateOf(ref)

	var due []*rule.RecurrenceRule
	for _, r := range s.rules {
		if r.OrganizationID != orgID || !r.Active || r.NextOccurrence == nil {
			continue
		}
		if !r.NextOccurrence.After(refDate) {
			due = append(due, copyRule(r))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextOccurrence.Before(*due[j].NextOccurrence)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) ListDueOrganizations(_ context.Context, ref time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refDate := schedule.DateOf(ref)

	seen := make(map[string]bool)
	for _, r := range s.rules {
		if r.Active && r.NextOccurrence != nil && !r.NextOccurrence.After(refDate) {
			seen[r.OrganizationID] = true
		}
	}
	orgs := make([]string, 0, len(seen))
	for org := range seen {
		orgs = append(orgs, org)
	}
	sort.Strings(orgs)
	return orgs, nil
}

func (s *MemoryStore) FireOccurrence(
	_ context.Context,
	r *rule.RecurrenceRule,
	observedFired int,
	observedNext time.Time,
	entry *rule.LedgerEntry,
) error {
	if hook := s.BeforeFire; hook != nil {
		hook(r.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FireErrs[r.ID]; ok {
		return err
	}

	cur, ok := s.rules[r.ID]
	if !ok || cur.OrganizationID != r.OrganizationID {
		return storage.ErrNotFound
	}
	if cur.OccurrencesFired != observedFired ||
		cur.NextOccurrence == nil ||
		!cur.NextOccurrence.Equal(observedNext) {
		return storage.ErrConflict
	}

	// Mirror the unique (rule_id, occurrence_date) index.
	for _, e := range s.entries {
		if e.RuleID == entry.RuleID && e.OccurrenceDate.Equal(entry.OccurrenceDate) {
			return fmt.Errorf("duplicate ledger entry for rule %s on %s",
				entry.RuleID, entry.OccurrenceDate.Format(time.DateOnly))
		}
	}

	s.rules[r.ID] = copyRule(r)
	dup := *entry
	s.entries = append(s.entries, &dup)
	return nil
}

func (s *MemoryStore) ListEntriesByRule(_ context.Context, orgID string, ruleID uuid.UUID, limit int) ([]*rule.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*rule.LedgerEntry
	for _, e := range s.entries {
		if e.OrganizationID == orgID && e.RuleID == ruleID {
			dup := *e
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurrenceDate.After(out[j].OccurrenceDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListEntries(_ context.Context, orgID string, limit int) ([]*rule.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*rule.LedgerEntry
	for _, e := range s.entries {
		if e.OrganizationID == orgID {
			dup := *e
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurrenceDate.After(out[j].OccurrenceDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
