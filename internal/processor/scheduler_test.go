package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSweepDrainsCatchUpWithinOneTick(t *testing.T) {
	store := NewMemoryStore()
	r := mustRule(t, store, monthlyInput(0))

	s := NewScheduler(time.Minute, New(store, Options{}))
	s.nowFn = func() time.Time { return date(2025, 4, 1) }

	// Three cycles behind (Jan, Feb, Mar 15). One sweep runs passes until
	// quiescent, each pass advancing every due rule by one occurrence.
	s.sweep(context.Background())

	entries, err := store.ListEntriesByRule(context.Background(), testOrg, r.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	cur, err := store.GetRule(context.Background(), testOrg, r.ID)
	require.NoError(t, err)
	require.Equal(t, date(2025, 4, 15), *cur.NextOccurrence)
}

func TestSweepStopsOnContextCancellation(t *testing.T) {
	store := NewMemoryStore()
	mustRule(t, store, monthlyInput(0))

	s := NewScheduler(time.Minute, New(store, Options{}))
	s.nowFn = func() time.Time { return date(2025, 4, 1) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.sweep(ctx)

	// Interrupted before any pass ran; state is untouched and the backlog is
	// simply left for the next invocation.
	entries, err := store.ListEntries(context.Background(), testOrg, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStartRunsFinalSweepOnShutdown(t *testing.T) {
	store := NewMemoryStore()
	r := mustRule(t, store, monthlyInput(0))

	s := NewScheduler(time.Hour, New(store, Options{}))
	s.nowFn = func() time.Time { return date(2025, 1, 15) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// The initial sweep fires the due occurrence.
	require.Eventually(t, func() bool {
		entries, err := store.ListEntriesByRule(context.Background(), testOrg, r.ID, 0)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
