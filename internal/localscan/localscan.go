// Package localscan implements the Local Concurrency Controller: a
// bounded-parallelism fan-out over a URL batch with ordered results and
// a streaming progress callback.
package localscan

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/domainscan/internal/probe"
)

// ProgressSnapshot is delivered to the progress callback after each
// probe completes. Results holds the first Completed entries of the
// batch's result vector.
type ProgressSnapshot struct {
	Completed int
	Total     int
	Results   []probe.Result
}

// ProgressFunc is invoked serially — never concurrently for the same
// batch — as probes complete.
type ProgressFunc func(ProgressSnapshot)

// Controller bounds fan-out over a batch of URLs at a fixed concurrency.
type Controller struct {
	prober      *probe.Prober
	concurrency int
}

// New builds a Controller with concurrency clamped to [1, 1000].
func New(prober *probe.Prober, concurrency int) *Controller {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 1000 {
		concurrency = 1000
	}
	return &Controller{prober: prober, concurrency: concurrency}
}

// ScanBatch probes every url in order, with at most c.concurrency
// in-flight at a time. The returned slice preserves input order and
// always has len(urls) elements, even when ctx is cancelled
// mid-batch — unprobed entries are left as their zero Result with
// Status 0 standing for "not attempted".
//
// Cancellation stops new probes from starting; in-flight probes run to
// completion (or their own timeout) before ScanBatch returns.
func (c *Controller) ScanBatch(ctx context.Context, urls []string, onProgress ProgressFunc) []probe.Result {
	results := make([]probe.Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	var (
		mu        sync.Mutex
		done      = make([]bool, len(urls))
		completed int // longest contiguous done[0:completed] prefix
	)

	sem := make(chan struct{}, c.concurrency)
	g, gctx := errgroup.WithContext(context.Background())

dispatch:
	for i, url := range urls {
		i, url := i, url

		select {
		case <-ctx.Done():
			break dispatch
		default:
		}

		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			results[i] = c.prober.Probe(gctx, url)

			mu.Lock()
			done[i] = true
			for completed < len(urls) && done[completed] {
				completed++
			}
			if onProgress != nil {
				// Invoked under mu so the callback never runs
				// concurrently for the same batch.
				onProgress(ProgressSnapshot{
					Completed: completed,
					Total:     len(urls),
					Results:   append([]probe.Result(nil), results[:completed]...),
				})
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}
