package scanexec

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/domainscan/internal/localscan"
	"github.com/IshaanNene/domainscan/internal/observability"
	"github.com/IshaanNene/domainscan/internal/probe"
	"github.com/IshaanNene/domainscan/internal/scantypes"
	"github.com/IshaanNene/domainscan/internal/strategy"
	"github.com/IshaanNene/domainscan/internal/workerpool"
)

// localProbeTimeout is the fixed probe timeout the executor uses for
// local scanning, independent of worker_timeout.
const localProbeTimeout = 10 * time.Second

// StrategyFactory selects between worker-backed and local scanning:
// worker mode requires worker mode enabled, a pool, and at least one
// currently healthy endpoint.
type StrategyFactory struct {
	WorkerModeEnabled bool
	Pool              *workerpool.Pool
	HTTPClient        *http.Client
	WorkerBatchSize   int
	WorkerTimeoutMS   int
	Logger            *slog.Logger
	Metrics           *observability.Metrics
}

// Select builds the strategy for one task run.
func (f *StrategyFactory) Select(task scantypes.ScanTask) strategy.Strategy {
	local := &strategy.LocalStrategy{
		Controller: localscan.New(probe.New(localProbeTimeout, f.Logger), task.Concurrency),
	}
	if f.WorkerModeEnabled && f.Pool != nil && f.Pool.HasHealthy() {
		return strategy.NewWorkerStrategy(f.Pool, local, f.WorkerBatchSize, f.WorkerTimeoutMS, f.HTTPClient, f.Logger).WithMetrics(f.Metrics)
	}
	return local
}
