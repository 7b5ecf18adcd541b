// Package workerpool implements the Worker Pool: endpoint
// inventory, health and quota tracking, round-robin selection,
// permanent disable, and the daily quota reset sweep.
//
// The pool exclusively owns endpoint mutation; callers only ever see
// snapshots or act through its methods.
package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/domainscan/internal/observability"
	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// Config tunes the pool's health and rate-limit behavior.
type Config struct {
	UnhealthyThreshold float64       // error-rate percentage that flips an endpoint unhealthy
	RateLimitCooldown  time.Duration
	RescaleAt          int // total requests at which counters are rescaled
	RescaleTo          int // target sum after rescaling
}

// DefaultConfig returns the stock health and rate-limit thresholds.
func DefaultConfig() Config {
	return Config{
		UnhealthyThreshold: 90,
		RateLimitCooldown:  60 * time.Second,
		RescaleAt:          100,
		RescaleTo:          50,
	}
}

// Pool is the round-robin worker endpoint pool.
type Pool struct {
	mu        sync.Mutex
	endpoints []*scantypes.WorkerEndpoint
	index     int
	cfg       Config
	repo      repo.WorkerRepository
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New builds an empty Pool; endpoints are added via Add or Load.
func New(cfg Config, workerRepo repo.WorkerRepository, logger *slog.Logger) *Pool {
	return &Pool{cfg: cfg, repo: workerRepo, logger: logger.With("component", "worker_pool")}
}

// WithMetrics attaches an observability sink; nil is a valid no-op sink.
func (p *Pool) WithMetrics(m *observability.Metrics) *Pool {
	p.metrics = m
	return p
}

// Load populates the pool from storage. A stored reset time already in
// the past is applied immediately.
func (p *Pool) Load(ctx context.Context) error {
	stored, err := p.repo.List(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoints = p.endpoints[:0]
	for i := range stored {
		w := stored[i]
		if !w.QuotaResetAt.IsZero() && !now.Before(w.QuotaResetAt) {
			w.DailyUsage = 0
			w.QuotaResetAt = nextUTCMidnight(now)
			if !w.PermanentlyDisabled {
				w.Healthy = true
			}
		}
		p.endpoints = append(p.endpoints, &w)
	}
	return nil
}

// Add registers a new https:// worker endpoint. The ID is the URL host
// with dots replaced by underscores; adding an already-registered URL
// is a no-op that returns the existing endpoint.
func (p *Pool) Add(ctx context.Context, rawURL string, dailyQuota int) (*scantypes.WorkerEndpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return nil, &scantypes.WorkerError{Err: fmt.Errorf("worker url must be https: %q", rawURL)}
	}

	id := strings.ReplaceAll(u.Host, ".", "_")
	if id == "" {
		id = uuid.NewString()
	}

	w := &scantypes.WorkerEndpoint{
		ID:           id,
		URL:          rawURL,
		Healthy:      true,
		DailyQuota:   dailyQuota,
		QuotaResetAt: nextUTCMidnight(time.Now().UTC()),
	}

	p.mu.Lock()
	for _, existing := range p.endpoints {
		if existing.URL == rawURL {
			cp := *existing
			p.mu.Unlock()
			return &cp, nil
		}
	}
	p.endpoints = append(p.endpoints, w)
	p.mu.Unlock()

	if p.repo != nil {
		if err := p.repo.Upsert(ctx, *w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Snapshot returns a copy of every registered endpoint.
func (p *Pool) Snapshot() []scantypes.WorkerEndpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]scantypes.WorkerEndpoint, len(p.endpoints))
	for i, w := range p.endpoints {
		out[i] = *w
	}
	return out
}

// Select returns the next eligible endpoint in round-robin order, or
// nil when none qualify (triggers local fallback upstream).
func (p *Pool) Select() *scantypes.WorkerEndpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	var available []*scantypes.WorkerEndpoint
	for _, w := range p.endpoints {
		if eligible(w, now) {
			available = append(available, w)
		}
	}
	p.metrics.SetPoolHealthy(len(available))
	if len(available) == 0 {
		return nil
	}

	w := available[p.index%len(available)]
	p.index++
	cp := *w
	return &cp
}

// HasHealthy reports whether at least one endpoint currently qualifies
// for selection, without consuming a round-robin turn.
func (p *Pool) HasHealthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now().UTC()
	for _, w := range p.endpoints {
		if eligible(w, now) {
			return true
		}
	}
	return false
}

func eligible(w *scantypes.WorkerEndpoint, now time.Time) bool {
	if w.PermanentlyDisabled || !w.Healthy {
		return false
	}
	if w.DailyUsage >= w.DailyQuota {
		return false
	}
	if w.RateLimitedUntil != nil && now.Before(*w.RateLimitedUntil) {
		return false
	}
	return true
}

// RecordSuccess records a successful batch against id, clearing its
// consecutive-failure streak and re-marking the endpoint healthy once
// its error rate drops back below the threshold.
func (p *Pool) RecordSuccess(ctx context.Context, id string) error {
	p.mu.Lock()
	w := p.find(id)
	if w == nil {
		p.mu.Unlock()
		return nil
	}
	w.SuccessCount++
	w.ConsecutiveFailures = 0
	p.rescaleIfNeeded(w)
	if !w.Healthy && errorRate(w) < p.cfg.UnhealthyThreshold {
		w.Healthy = true
	}
	w.LastCheck = time.Now().UTC()
	cp := *w
	p.mu.Unlock()

	return p.persist(ctx, cp)
}

// RecordFailure records a failed batch against id, flipping the
// endpoint unhealthy once its error rate reaches the threshold.
func (p *Pool) RecordFailure(ctx context.Context, id string) error {
	p.mu.Lock()
	w := p.find(id)
	if w == nil {
		p.mu.Unlock()
		return nil
	}
	w.ErrorCount++
	w.ConsecutiveFailures++
	p.rescaleIfNeeded(w)
	if errorRate(w) >= p.cfg.UnhealthyThreshold {
		w.Healthy = false
	}
	w.LastCheck = time.Now().UTC()
	cp := *w
	p.mu.Unlock()

	return p.persist(ctx, cp)
}

// RateLimit puts id into cooldown for cfg.RateLimitCooldown.
func (p *Pool) RateLimit(ctx context.Context, id string) error {
	p.mu.Lock()
	w := p.find(id)
	if w == nil {
		p.mu.Unlock()
		return nil
	}
	until := time.Now().UTC().Add(p.cfg.RateLimitCooldown)
	w.RateLimitedUntil = &until
	cp := *w
	p.mu.Unlock()

	return p.persist(ctx, cp)
}

// Disable permanently disables id with the given reason
// (not_deployed, account_blocked, or operator-supplied).
func (p *Pool) Disable(ctx context.Context, id string, reason scantypes.WorkerBlockReason) error {
	p.mu.Lock()
	w := p.find(id)
	if w == nil {
		p.mu.Unlock()
		return nil
	}
	w.PermanentlyDisabled = true
	w.Healthy = false
	w.DisabledReason = string(reason)
	p.mu.Unlock()

	p.metrics.IncWorkerBlocked(string(reason))

	if p.repo != nil {
		return p.repo.Disable(ctx, id, string(reason))
	}
	return nil
}

// IncrementUsage adds n to id's dailyUsage, persists it, and marks the
// endpoint unhealthy once usage reaches quota (recoverable at reset).
func (p *Pool) IncrementUsage(ctx context.Context, id string, n int) error {
	p.mu.Lock()
	w := p.find(id)
	if w == nil {
		p.mu.Unlock()
		return nil
	}
	w.DailyUsage += n
	crossedQuota := w.DailyUsage >= w.DailyQuota && w.Healthy
	if w.DailyUsage >= w.DailyQuota {
		w.Healthy = false
	}
	usage := w.DailyUsage
	p.mu.Unlock()

	if crossedQuota {
		p.metrics.IncQuotaExhaustion()
	}

	if p.repo != nil {
		return p.repo.UpdateUsage(ctx, id, usage)
	}
	return nil
}

// ResetDailyQuotas walks the pool: any endpoint whose quotaResetAt has
// passed gets dailyUsage=0, a fresh quotaResetAt, and healthy=true
// unless permanently disabled.
func (p *Pool) ResetDailyQuotas(ctx context.Context) error {
	now := time.Now().UTC()
	p.mu.Lock()
	var reset bool
	for _, w := range p.endpoints {
		if w.QuotaResetAt.IsZero() || now.Before(w.QuotaResetAt) {
			continue
		}
		w.DailyUsage = 0
		w.QuotaResetAt = nextUTCMidnight(now)
		if !w.PermanentlyDisabled {
			w.Healthy = true
		}
		reset = true
	}
	p.mu.Unlock()

	if reset && p.repo != nil {
		return p.repo.ResetDaily(ctx, nextUTCMidnight(now))
	}
	return nil
}

func (p *Pool) find(id string) *scantypes.WorkerEndpoint {
	for _, w := range p.endpoints {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// rescaleIfNeeded shrinks ancient history once total requests exceed
// cfg.RescaleAt, preserving the success ratio so old failures cannot
// permanently condemn an endpoint.
func (p *Pool) rescaleIfNeeded(w *scantypes.WorkerEndpoint) {
	total := w.SuccessCount + w.ErrorCount
	if int(total) <= p.cfg.RescaleAt {
		return
	}
	target := float64(p.cfg.RescaleTo)
	ratio := float64(w.SuccessCount) / float64(total)
	w.SuccessCount = int64(ratio * target)
	w.ErrorCount = int64(target) - w.SuccessCount
}

func errorRate(w *scantypes.WorkerEndpoint) float64 {
	total := w.SuccessCount + w.ErrorCount
	if total == 0 {
		return 0
	}
	return float64(w.ErrorCount) / float64(total) * 100
}

func (p *Pool) persist(ctx context.Context, w scantypes.WorkerEndpoint) error {
	if p.repo == nil {
		return nil
	}
	return p.repo.Upsert(ctx, w)
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
