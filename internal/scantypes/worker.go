package scantypes

import "time"

// WorkerEndpoint is a remote HTTP-proxy scan worker tracked by the pool.
// Fields are mutated exclusively by the worker pool; callers elsewhere
// only see snapshots.
type WorkerEndpoint struct {
	ID                   string // derived from URL host
	URL                  string // must be https://
	Healthy              bool
	LastCheck            time.Time
	SuccessCount         int64
	ErrorCount           int64
	ConsecutiveFailures  int
	RateLimitedUntil     *time.Time
	DailyQuota           int
	DailyUsage           int
	QuotaResetAt         time.Time // next UTC midnight
	PermanentlyDisabled  bool
	DisabledReason       string // WorkerBlockReason value, operator text, or ""
}

// Available reports whether the endpoint is eligible for selection right now.
// The quota check happens before selection, so DailyUsage may run past
// DailyQuota by up to one in-flight batch's size before the next
// reset.
func (w *WorkerEndpoint) Available(now time.Time) bool {
	if w.PermanentlyDisabled || !w.Healthy {
		return false
	}
	if w.RateLimitedUntil != nil && now.Before(*w.RateLimitedUntil) {
		return false
	}
	return w.DailyUsage < w.DailyQuota
}
