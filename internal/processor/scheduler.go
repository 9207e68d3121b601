package processor

import (
	"context"
	"log/slog"
	"time"
)

// maxSweepPasses bounds how many passes one tick may run while rules are
// catching up on missed cycles. Whatever remains is picked up next tick.
const maxSweepPasses = 25

// Scheduler drives the Processor on a periodic interval. It is stateless:
// each tick independently scans for due rules, so a missed tick costs nothing
// but latency.
type Scheduler struct {
	interval  time.Duration
	processor *Processor
	nowFn     func() time.Time
}

// NewScheduler creates the cron driver for recurring rule processing.
func NewScheduler(interval time.Duration, processor *Processor) *Scheduler {
	return &Scheduler{
		interval:  interval,
		processor: processor,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// Start begins periodic processing and runs until the context is cancelled.
// A final sweep runs on shutdown so rules that became due during the last
// interval are not left hanging for a restart.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting recurring rule scheduler", "interval", s.interval)

	// Initial sweep catches rules that came due while the service was down.
	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			slog.Info("[Scheduler] Running final sweep before shutdown...")
			s.sweep(shutdownCtx)
			slog.Info("[Scheduler] Final sweep complete")

			return nil
		}
	}
}

// sweep runs processing passes until no rule fires or the pass limit is hit.
// Rules behind by several cycles advance one occurrence per pass, so draining
// to quiescence here means catch-up completes within a tick while each
// individual step stays bounded and interruptible.
func (s *Scheduler) sweep(ctx context.Context) {
	for pass := 1; pass <= maxSweepPasses; pass++ {
		select {
		case <-ctx.Done():
			slog.Info("[Scheduler] Sweep interrupted by context cancellation", "passes_run", pass-1)
			return
		default:
		}

		reports, err := s.processor.ProcessAll(ctx, s.nowFn())
		if err != nil {
			slog.Error("[Scheduler] Sweep pass failed", "error", err, "pass", pass)
			return
		}

		fired := 0
		for _, report := range reports {
			fired += report.Fired
		}
		if fired == 0 {
			if pass > 1 {
				slog.Info("[Scheduler] Catch-up drained", "total_passes", pass)
			}
			return
		}

		slog.Info("[Scheduler] Pass fired occurrences, re-evaluating",
			"pass", pass,
			"fired", fired,
		)
	}

	slog.Warn("[Scheduler] Max sweep passes reached, pausing",
		"max_passes", maxSweepPasses,
		"note", "Will resume on next tick",
	)
}
