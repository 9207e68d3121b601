// Package seed loads recurrence rule fixtures from YAML files at startup.
// Each file holds one rule with a fixed id, so reseeding on every boot is
// idempotent: rules that already exist are left untouched.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cadenza-lab/project-cadenza/internal/core/rule"
	"github.com/cadenza-lab/project-cadenza/internal/core/schedule"
	"github.com/cadenza-lab/project-cadenza/internal/core/storage"
)

// fixture is the on-disk YAML shape of one rule.
type fixture struct {
	ID             string `yaml:"id"`
	OrganizationID string `yaml:"organization_id"`

	Kind        string `yaml:"kind"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`

	CounterpartyID string `yaml:"counterparty_id"`
	EngagementID   string `yaml:"engagement_id"`

	Frequency  string `yaml:"frequency"`
	DayOfMonth int    `yaml:"day_of_month"`
	DayOfWeek  int    `yaml:"day_of_week"`

	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	OccurrenceLimit int    `yaml:"occurrence_limit"`
}

// Result summarizes one seeding pass.
type Result struct {
	Created int
	Skipped int
}

// Load reads every *.yaml / *.yml file in dir, validates each fixture through
// the rule validator, and inserts the resulting rules. A missing directory is
// valid (zero fixtures configured); a malformed or invalid fixture aborts the
// pass with an error naming the file. Rules whose id already exists are
// counted as skipped.
func Load(ctx context.Context, dir string, store storage.RuleStore, now time.Time) (Result, error) {
	var res Result

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("seed dir: %w", err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("seed path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, fmt.Errorf("reading seed dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		r, err := loadFile(path, now)
		if err != nil {
			return res, err
		}
		if r == nil {
			continue
		}

		switch err := store.CreateRule(ctx, r); {
		case err == nil:
			res.Created++
			slog.Info("[Seed] Created rule",
				"file", e.Name(),
				"organization_id", r.OrganizationID,
				"rule_id", r.ID)
		case errors.Is(err, storage.ErrDuplicate):
			res.Skipped++
		default:
			return res, fmt.Errorf("seeding rule from %s: %w", path, err)
		}
	}

	return res, nil
}

func loadFile(path string, now time.Time) (*rule.RecurrenceRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}

	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	if f.ID == "" && f.OrganizationID == "" {
		return nil, nil // empty / comment-only file
	}

	in, err := f.toInput()
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}

	r, err := rule.New(in, now)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return r, nil
}

func (f fixture) toInput() (rule.NewRuleInput, error) {
	var in rule.NewRuleInput

	id, err := uuid.Parse(f.ID)
	if err != nil {
		return in, fmt.Errorf("id must be a UUID: %w", err)
	}

	amount := decimal.Zero
	if f.Amount != "" {
		amount, err = decimal.NewFromString(f.Amount)
		if err != nil {
			return in, fmt.Errorf("invalid amount %q: %w", f.Amount, err)
		}
	}

	start, err := time.Parse(time.DateOnly, f.StartDate)
	if err != nil {
		return in, fmt.Errorf("invalid start_date %q (want YYYY-MM-DD)", f.StartDate)
	}

	in = rule.NewRuleInput{
		ID:              id,
		OrganizationID:  f.OrganizationID,
		Kind:            rule.Kind(f.Kind),
		Category:        f.Category,
		Description:     f.Description,
		Amount:          amount,
		Frequency:       schedule.Frequency(f.Frequency),
		DayOfMonth:      f.DayOfMonth,
		DayOfWeek:       f.DayOfWeek,
		StartDate:       schedule.DateOf(start),
		OccurrenceLimit: f.OccurrenceLimit,
		CreatedBy:       "seed",
	}

	if f.CounterpartyID != "" {
		v := f.CounterpartyID
		in.CounterpartyID = &v
	}
	if f.EngagementID != "" {
		v := f.EngagementID
		in.EngagementID = &v
	}
	if f.EndDate != "" {
		end, err := time.Parse(time.DateOnly, f.EndDate)
		if err != nil {
			return in, fmt.Errorf("invalid end_date %q (want YYYY-MM-DD)", f.EndDate)
		}
		d := schedule.DateOf(end)
		in.EndDate = &d
	}

	return in, nil
}
