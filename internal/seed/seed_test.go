package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cadenza-lab/project-cadenza/internal/processor"
)

const ruleFixture = `
id: 7b8d3c1e-9f2a-4b6c-8d0e-1f2a3b4c5d6e
organization_id: org-seed
kind: expense
category: rent
description: Office rent
amount: "1500.00"
frequency: monthly
day_of_month: 1
start_date: 2025-01-10
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadCreatesRules(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "rent.yaml", ruleFixture)
	writeFixture(t, dir, "notes.txt", "not a fixture")

	store := processor.NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := Load(context.Background(), dir, store, now)
	require.NoError(t, err)
	require.Equal(t, Result{Created: 1}, res)

	id := uuid.MustParse("7b8d3c1e-9f2a-4b6c-8d0e-1f2a3b4c5d6e")
	r, err := store.GetRule(context.Background(), "org-seed", id)
	require.NoError(t, err)
	require.True(t, r.Active)
	require.NotNil(t, r.NextOccurrence)
	// First occurrence on or after the start date for a day-1 monthly rule.
	require.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), *r.NextOccurrence)
}

func TestLoadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "rent.yaml", ruleFixture)

	store := processor.NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := Load(context.Background(), dir, store, now)
	require.NoError(t, err)

	res, err := Load(context.Background(), dir, store, now)
	require.NoError(t, err)
	require.Equal(t, Result{Skipped: 1}, res)
}

func TestLoadMissingDirIsValid(t *testing.T) {
	res, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent"), processor.NewMemoryStore(), time.Now())
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
}

func TestLoadRejectsInvalidFixture(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing anchor", `
id: 0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d
organization_id: org-seed
kind: expense
category: rent
frequency: monthly
start_date: 2025-01-10
`},
		{"bad id", `
id: not-a-uuid
organization_id: org-seed
kind: expense
category: rent
frequency: daily
start_date: 2025-01-10
`},
		{"bad date", `
id: 0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d
organization_id: org-seed
kind: expense
category: rent
frequency: daily
start_date: Jan 10 2025
`},
		{"not yaml", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFixture(t, dir, "bad.yaml", tt.content)

			_, err := Load(context.Background(), dir, processor.NewMemoryStore(), time.Now())
			require.Error(t, err)
		})
	}
}

func TestLoadSkipsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "empty.yaml", "# placeholder\n")

	res, err := Load(context.Background(), dir, processor.NewMemoryStore(), time.Now())
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
}
