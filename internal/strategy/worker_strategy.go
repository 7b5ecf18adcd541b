package strategy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/domainscan/internal/localscan"
	"github.com/IshaanNene/domainscan/internal/observability"
	"github.com/IshaanNene/domainscan/internal/probe"
	"github.com/IshaanNene/domainscan/internal/scantypes"
	"github.com/IshaanNene/domainscan/internal/workerclient"
	"github.com/IshaanNene/domainscan/internal/workerpool"
)

const maxRetries = 3

// blockRetryFloor bounds retries-without-consuming-budget so a pool
// where every endpoint is simultaneously block-signalled still falls
// back to local instead of looping forever.
const blockRetryFloor = 3

// WorkerStrategy splits a batch into worker-sized sub-batches and
// fails over to LocalStrategy per sub-batch on exhausted retries or an
// empty pool.
type WorkerStrategy struct {
	Pool       *workerpool.Pool
	Local      *LocalStrategy
	BatchSize  int // <=10, default 10
	TimeoutMS  int // worker_timeout, milliseconds
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// NewWorkerStrategy clamps batchSize to [1,10].
func NewWorkerStrategy(pool *workerpool.Pool, local *LocalStrategy, batchSize, timeoutMS int, httpClient *http.Client, logger *slog.Logger) *WorkerStrategy {
	if batchSize < 1 {
		batchSize = 1
	}
	if batchSize > 10 {
		batchSize = 10
	}
	return &WorkerStrategy{
		Pool: pool, Local: local, BatchSize: batchSize, TimeoutMS: timeoutMS,
		HTTPClient: httpClient, Logger: logger.With("component", "worker_strategy"),
	}
}

// WithMetrics attaches an observability sink; nil is a valid no-op sink.
func (s *WorkerStrategy) WithMetrics(m *observability.Metrics) *WorkerStrategy {
	s.Metrics = m
	return s
}

func (s *WorkerStrategy) ScanBatch(ctx context.Context, urls []string, onProgress localscan.ProgressFunc) []probe.Result {
	results := make([]probe.Result, len(urls))
	var completed int

	for start := 0; start < len(urls); start += s.BatchSize {
		end := start + s.BatchSize
		if end > len(urls) {
			end = len(urls)
		}
		sub := urls[start:end]
		subResults := s.scanSubBatch(ctx, sub)
		copy(results[start:end], subResults)
		completed += len(sub)

		if onProgress != nil {
			onProgress(localscan.ProgressSnapshot{
				Completed: completed,
				Total:     len(urls),
				Results:   append([]probe.Result(nil), results[:completed]...),
			})
		}
	}
	return results
}

// scanSubBatch runs the retry/failover loop for one sub-batch.
func (s *WorkerStrategy) scanSubBatch(ctx context.Context, urls []string) []probe.Result {
	retriesLeft := maxRetries
	blockRetries := blockRetryFloor

	for retriesLeft > 0 {
		w := s.Pool.Select()
		if w == nil {
			s.Metrics.IncWorkerFailover()
			return s.Local.ScanBatch(ctx, urls, nil)
		}

		client := workerclient.New(w.URL, s.HTTPClient)
		timeoutSeconds := s.TimeoutMS / 1000
		batchCtx, cancel := context.WithTimeout(ctx, time.Duration(s.TimeoutMS)*time.Millisecond)
		parsed, err := client.Batch(batchCtx, urls, "head", timeoutSeconds, 2, false)
		cancel()

		var werr *scantypes.WorkerError
		if errors.As(err, &werr) && werr.Blocked != "" {
			if disableErr := s.Pool.Disable(ctx, w.ID, werr.Blocked); disableErr != nil {
				s.Logger.Error("disable worker failed", "worker", w.ID, "error", disableErr)
			}
			// A block does not consume the normal retry budget, but is
			// itself bounded so a fully block-signalled pool still
			// degrades to local.
			blockRetries--
			if blockRetries <= 0 {
				break
			}
			continue
		}
		if err != nil {
			if recErr := s.Pool.RecordFailure(ctx, w.ID); recErr != nil {
				s.Logger.Error("record worker failure", "worker", w.ID, "error", recErr)
			}
			retriesLeft--
			continue
		}

		if recErr := s.Pool.RecordSuccess(ctx, w.ID); recErr != nil {
			s.Logger.Error("record worker success", "worker", w.ID, "error", recErr)
		}
		if incErr := s.Pool.IncrementUsage(ctx, w.ID, len(urls)); incErr != nil {
			s.Logger.Error("increment worker usage", "worker", w.ID, "error", incErr)
		}
		return toProbeResults(urls, parsed)
	}

	s.Metrics.IncWorkerFailover()
	return s.Local.ScanBatch(ctx, urls, nil)
}

func toProbeResults(urls []string, parsed []workerclient.Parsed) []probe.Result {
	byURL := make(map[string]workerclient.Parsed, len(parsed))
	for _, p := range parsed {
		byURL[p.URL] = p
	}
	out := make([]probe.Result, len(urls))
	for i, u := range urls {
		p, ok := byURL[u]
		if !ok {
			out[i] = probe.Result{Status: -1, Err: "no result returned by worker"}
			continue
		}
		out[i] = probe.Result{
			Status:       p.Status,
			ContentType:  p.ContentType,
			Size:         p.Size,
			ResponseTime: p.ResponseTime,
			Err:          p.Error,
		}
	}
	return out
}
