package retention

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Runner triggers retention passes on a fixed interval for a set of
// policies. One Runner per process; cross-process exclusion comes from the
// scheduler's lease.
type Runner struct {
	scheduler *Scheduler
	policies  []Policy
	interval  time.Duration
	logger    *slog.Logger
}

// NewRunner builds a ticker-driven runner.
func NewRunner(scheduler *Scheduler, policies []Policy, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		scheduler: scheduler,
		policies:  policies,
		interval:  interval,
		logger:    logger,
	}
}

// Run loops until the context is cancelled. A rejected overlapping run is
// steady-state behavior, not an error worth surfacing.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, policy := range r.policies {
				if err := r.scheduler.Run(ctx, policy); err != nil {
					if errors.Is(err, ErrAlreadyRunning) {
						continue
					}
					if r.logger != nil {
						r.logger.ErrorContext(ctx, "retention pass failed",
							"table", policy.Table, "error", err)
					}
				}
			}
		}
	}
}
