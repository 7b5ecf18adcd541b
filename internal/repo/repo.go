// Package repo defines the persistence contract consumed by the scan
// core. The core only ever depends on these interfaces; the
// concrete implementation lives in internal/repo/sqlite.
package repo

import (
	"context"
	"time"

	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// DomainPage is one page of domains ordered by rank (lower first).
type DomainPage struct {
	Domains []scantypes.Domain
	HasMore bool
}

// DomainCursor is a keyset-pagination cursor over domains ordered by
// rank ascending with ties broken by id ascending. The zero value
// starts at the first page. Rank is mutable across re-ingestion, so
// the cursor must carry both fields — an id-only cursor silently
// skips or re-visits rows once rank and id order diverge.
type DomainCursor struct {
	Rank int
	ID   int64
}

// DomainRepository persists the ranked domain list ingested from CSV.
type DomainRepository interface {
	// Page returns up to limit domains after the cursor, ordered by
	// rank ascending (ties by id ascending). When target is incremental,
	// scanned domains are excluded; full target returns all domains
	// regardless of scan state.
	Page(ctx context.Context, target scantypes.Target, after DomainCursor, limit int) (DomainPage, error)
	MarkScanned(ctx context.Context, ids []int64) error
	ResetScanned(ctx context.Context) error
	Upsert(ctx context.Context, d scantypes.Domain) error
	Count(ctx context.Context) (int, error)
	// CountTarget reports the progress denominator: all
	// domains for target=full, only unscanned domains for target=incremental.
	CountTarget(ctx context.Context, target scantypes.Target) (int, error)
}

// TemplateRepository persists the named URL templates.
type TemplateRepository interface {
	Enabled(ctx context.Context) ([]scantypes.PathTemplate, error)
	ByNames(ctx context.Context, names []string) ([]scantypes.PathTemplate, error)
	Upsert(ctx context.Context, t scantypes.PathTemplate) error
}

// TaskRepository persists ScanTask rows and enforces the state machine
// (pending -> running -> (completed|failed); running is singleton per
// task).
type TaskRepository interface {
	Create(ctx context.Context, t scantypes.ScanTask) (scantypes.ScanTask, error)
	Get(ctx context.Context, id string) (scantypes.ScanTask, error)
	// HasActive reports whether any task is pending or running.
	HasActive(ctx context.Context) (bool, error)
	TransitionToRunning(ctx context.Context, id string, startedAt time.Time) error
	UpdateProgress(ctx context.Context, id string, progress, totalURLs, scannedURLs, hits int) error
	Complete(ctx context.Context, id string, completedAt time.Time) error
	Fail(ctx context.Context, id string, completedAt time.Time) error
	// RecoverStale resets every running task back to pending and
	// returns the affected task IDs.
	RecoverStale(ctx context.Context) ([]string, error)
	// PendingIDs returns every task currently in status pending.
	PendingIDs(ctx context.Context) ([]string, error)
}

// ResultRepository appends ScanResult rows (append-only).
type ResultRepository interface {
	AppendBatch(ctx context.Context, results []scantypes.ScanResult) error
}

// SettingsRepository is a generic key/value store backing
// AutomationState, SchedulerConfig, and the engine's other settings
// keys. Reads are lock-free/best-effort fresh; writes are serialized
// under a short critical section.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	GetAutomationState(ctx context.Context) (scantypes.AutomationState, error)
	SetAutomationState(ctx context.Context, s scantypes.AutomationState) error
	GetSchedulerConfig(ctx context.Context) (scantypes.SchedulerConfig, error)
	SetSchedulerConfig(ctx context.Context, c scantypes.SchedulerConfig) error
}

// WorkerRepository mirrors worker quota/health state to storage so it
// survives process restarts; the live state stays in the pool's
// memory.
type WorkerRepository interface {
	List(ctx context.Context) ([]scantypes.WorkerEndpoint, error)
	Upsert(ctx context.Context, w scantypes.WorkerEndpoint) error
	UpdateUsage(ctx context.Context, id string, dailyUsage int) error
	UpdateHealth(ctx context.Context, id string, healthy bool) error
	Disable(ctx context.Context, id, reason string) error
	ResetDaily(ctx context.Context, resetAt time.Time) error
}
