package quotasched

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IshaanNene/domainscan/internal/scantypes"
	"github.com/IshaanNene/domainscan/internal/workerpool"
)

type fakeWorkerRepo struct {
	workers []scantypes.WorkerEndpoint
	reset   bool
}

func (f *fakeWorkerRepo) List(ctx context.Context) ([]scantypes.WorkerEndpoint, error) { return f.workers, nil }
func (f *fakeWorkerRepo) Upsert(ctx context.Context, w scantypes.WorkerEndpoint) error  { return nil }
func (f *fakeWorkerRepo) UpdateUsage(ctx context.Context, id string, dailyUsage int) error { return nil }
func (f *fakeWorkerRepo) UpdateHealth(ctx context.Context, id string, healthy bool) error  { return nil }
func (f *fakeWorkerRepo) Disable(ctx context.Context, id, reason string) error             { return nil }
func (f *fakeWorkerRepo) ResetDaily(ctx context.Context, resetAt time.Time) error {
	f.reset = true
	return nil
}

// TestTickResetsExpiredQuotas: a tick resets an endpoint whose
// quotaResetAt passed after the pool was loaded (Load itself already
// resets endpoints whose stored reset time is in the past).
func TestTickResetsExpiredQuotas(t *testing.T) {
	soon := time.Now().UTC().Add(200 * time.Millisecond)
	repo := &fakeWorkerRepo{workers: []scantypes.WorkerEndpoint{
		{ID: "w1", URL: "https://w1.example", Healthy: false, DailyUsage: 500, DailyQuota: 500, QuotaResetAt: soon},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := workerpool.New(workerpool.DefaultConfig(), repo, logger)
	if err := pool.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	s := NewScheduler(pool, logger)
	s.tick(context.Background())

	if !repo.reset {
		t.Fatalf("ResetDaily was not called")
	}
	snap := pool.Snapshot()
	if snap[0].DailyUsage != 0 {
		t.Fatalf("DailyUsage = %d, want 0 after reset", snap[0].DailyUsage)
	}
	if !snap[0].Healthy {
		t.Fatalf("endpoint should be healthy again after quota reset")
	}
}

// TestTickIsIdempotentWhenNothingDue covers the tick's no-op path.
func TestTickIsIdempotentWhenNothingDue(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	repo := &fakeWorkerRepo{workers: []scantypes.WorkerEndpoint{
		{ID: "w1", URL: "https://w1.example", Healthy: true, DailyQuota: 500, QuotaResetAt: future},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool := workerpool.New(workerpool.DefaultConfig(), repo, logger)
	if err := pool.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := NewScheduler(pool, logger)
	s.tick(context.Background())

	if repo.reset {
		t.Fatalf("ResetDaily called when nothing was due")
	}
}
