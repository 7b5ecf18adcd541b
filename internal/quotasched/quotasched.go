// Package quotasched implements the Quota Scheduler: an hourly
// sweep that resets any worker endpoint's daily usage once its
// quotaResetAt has passed. The pool itself decides which
// endpoints actually need resetting, so this tick is deliberately cheap
// and idempotent — running it more than once a day is harmless.
package quotasched

import (
	"context"
	"log/slog"
	"time"

	"github.com/IshaanNene/domainscan/internal/workerpool"
)

const tickInterval = time.Hour

// Scheduler ticks workerpool.Pool.ResetDailyQuotas on a fixed interval.
type Scheduler struct {
	pool   *workerpool.Pool
	logger *slog.Logger
	done   chan struct{}
}

// NewScheduler builds a quota-reset Scheduler bound to pool.
func NewScheduler(pool *workerpool.Pool, logger *slog.Logger) *Scheduler {
	return &Scheduler{pool: pool, logger: logger.With("component", "quota_scheduler"), done: make(chan struct{})}
}

// Run blocks, ticking until ctx is canceled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop ends Run without canceling the caller's context.
func (s *Scheduler) Stop() {
	close(s.done)
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.pool.ResetDailyQuotas(ctx); err != nil {
		s.logger.Error("reset daily quotas failed", "error", err)
	}
}
