package scanexec

import (
	"context"
	"log/slog"
	"time"

	"github.com/IshaanNene/domainscan/internal/repo"
)

// ScanRunner is what callers outside this package need from an
// Executor — kept narrow so internal/automation can depend on it
// without importing scanexec's concrete type.
type ScanRunner interface {
	ExecuteScan(ctx context.Context, taskID string, manualStart bool) error
}

// ResumeStaleTasks restarts interrupted work: every task left pending
// or running when the process last exited is recovered (running rows
// reset to pending) and restarted, staggered by 1s each.
func ResumeStaleTasks(ctx context.Context, tasks repo.TaskRepository, runner ScanRunner, logger *slog.Logger) {
	pendingIDs, err := tasks.PendingIDs(ctx)
	if err != nil {
		logger.Error("list pending tasks failed", "error", err)
		return
	}

	staleIDs, err := tasks.RecoverStale(ctx)
	if err != nil {
		logger.Error("recover stale tasks failed", "error", err)
		return
	}
	if len(staleIDs) > 0 {
		logger.Info("recovered stale running tasks", "count", len(staleIDs))
	}

	ids := append(pendingIDs, staleIDs...)

	for i, id := range ids {
		delay := time.Duration(i) * time.Second
		go func(id string, delay time.Duration) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			if err := runner.ExecuteScan(ctx, id, true); err != nil {
				logger.Error("resumed scan failed", "task_id", id, "error", err)
			}
		}(id, delay)
	}
}
