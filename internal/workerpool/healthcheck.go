package workerpool

import (
	"context"
	"errors"
	"time"

	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// DefaultHealthCheckInterval is how often RunHealthChecks sweeps the
// pool when the caller passes a non-positive interval.
const DefaultHealthCheckInterval = 60 * time.Second

// HealthCheckFunc probes one worker endpoint URL. The returned error is
// inspected for a block signal (a *scantypes.WorkerError with a
// non-empty Blocked reason), which permanently disables the endpoint.
type HealthCheckFunc func(ctx context.Context, endpointURL string) error

// CheckAll health-checks every endpoint that is not permanently
// disabled and records the outcome through the usual success/failure
// bookkeeping, so a recovered endpoint's error rate can decay back
// below the unhealthy threshold.
func (p *Pool) CheckAll(ctx context.Context, check HealthCheckFunc) {
	for _, w := range p.Snapshot() {
		if w.PermanentlyDisabled {
			continue
		}
		err := check(ctx, w.URL)

		var werr *scantypes.WorkerError
		if errors.As(err, &werr) && werr.Blocked != "" {
			p.logger.Warn("health check found blocked worker", "worker", w.ID, "reason", werr.Blocked)
			if disableErr := p.Disable(ctx, w.ID, werr.Blocked); disableErr != nil {
				p.logger.Error("disable blocked worker failed", "worker", w.ID, "error", disableErr)
			}
			continue
		}
		if err != nil {
			if recErr := p.RecordFailure(ctx, w.ID); recErr != nil {
				p.logger.Error("record health-check failure", "worker", w.ID, "error", recErr)
			}
			continue
		}
		if recErr := p.RecordSuccess(ctx, w.ID); recErr != nil {
			p.logger.Error("record health-check success", "worker", w.ID, "error", recErr)
		}
	}
}

// RunHealthChecks sweeps the pool once, then on every interval tick
// until ctx is canceled.
func (p *Pool) RunHealthChecks(ctx context.Context, interval time.Duration, check HealthCheckFunc) {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.CheckAll(ctx, check)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CheckAll(ctx, check)
		}
	}
}
