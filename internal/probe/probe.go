// Package probe implements the HTTP Probe: a single HEAD request
// against a URL, returning status/content-type/size without ever
// failing the caller's batch.
package probe

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

const userAgent = "domainscan/1.0 (+https://github.com/IshaanNene/domainscan)"

// logSampleRate is the fraction of probes that emit a log line;
// the other probes are not logged at all.
const logSampleRate = 0.01

// Result is the outcome of one probe.
type Result struct {
	Status       int // HTTP status, or -1 on timeout/network error
	ContentType  *string
	Size         *int64 // parsed Content-Length, nil if header absent
	ResponseTime time.Duration
	Err          string
}

// Prober issues HEAD requests with a configurable, cancellable timeout.
type Prober struct {
	client *http.Client
	logger *slog.Logger
}

// New builds a Prober that uses timeout as the per-request deadline.
// Redirects are followed using http.Client's default policy; caching is
// never used since HEAD probes must observe live server state.
func New(timeout time.Duration, logger *slog.Logger) *Prober {
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "probe"),
	}
}

// Probe issues a single HEAD request for url. It never returns an error
// to the caller; failures are encoded in Result.Status=-1 and Result.Err
// so a failed probe never aborts the enclosing batch.
func (p *Prober) Probe(ctx context.Context, url string) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Status: -1, ResponseTime: time.Since(start), Err: err.Error()}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		p.maybeLog(url, -1, elapsed, err.Error())
		return Result{Status: -1, ResponseTime: elapsed, Err: err.Error()}
	}
	defer resp.Body.Close()

	res := Result{Status: resp.StatusCode, ResponseTime: elapsed}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		res.ContentType = &ct
	}
	if cl := resp.ContentLength; cl >= 0 {
		res.Size = &cl
	}

	p.maybeLog(url, resp.StatusCode, elapsed, "")
	return res
}

func (p *Prober) maybeLog(url string, status int, elapsed time.Duration, errMsg string) {
	if rand.Float64() >= logSampleRate {
		return
	}
	if errMsg != "" {
		p.logger.Debug("probe failed", "url", url, "duration", elapsed, "error", errMsg)
		return
	}
	p.logger.Debug("probe complete", "url", url, "status", status, "duration", elapsed)
}
