package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// WorkerRepo implements repo.WorkerRepository, mirroring pool state so
// quota and disable decisions survive a restart.
type WorkerRepo struct {
	db *sql.DB
}

var _ repo.WorkerRepository = (*WorkerRepo)(nil)

func (r *WorkerRepo) List(ctx context.Context) ([]scantypes.WorkerEndpoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, healthy, last_check, success_count, error_count, consecutive_failures,
			rate_limited_until, daily_usage, daily_quota, quota_reset_at, permanently_disabled, disabled_reason
		 FROM workers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scantypes.WorkerEndpoint
	for rows.Next() {
		var w scantypes.WorkerEndpoint
		var healthy, disabled int
		var lastCheck, quotaResetAt, rateLimited sql.NullTime
		var reason sql.NullString
		if err := rows.Scan(&w.ID, &w.URL, &healthy, &lastCheck, &w.SuccessCount, &w.ErrorCount,
			&w.ConsecutiveFailures, &rateLimited, &w.DailyUsage, &w.DailyQuota, &quotaResetAt,
			&disabled, &reason); err != nil {
			return nil, err
		}
		w.Healthy = healthy != 0
		w.PermanentlyDisabled = disabled != 0
		w.DisabledReason = reason.String
		if lastCheck.Valid {
			w.LastCheck = lastCheck.Time
		}
		if quotaResetAt.Valid {
			w.QuotaResetAt = quotaResetAt.Time
		}
		if rateLimited.Valid {
			t := rateLimited.Time
			w.RateLimitedUntil = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WorkerRepo) Upsert(ctx context.Context, w scantypes.WorkerEndpoint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workers (id, url, healthy, last_check, success_count, error_count, consecutive_failures,
			rate_limited_until, daily_usage, daily_quota, quota_reset_at, permanently_disabled, disabled_reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			healthy = excluded.healthy,
			last_check = excluded.last_check,
			success_count = excluded.success_count,
			error_count = excluded.error_count,
			consecutive_failures = excluded.consecutive_failures,
			rate_limited_until = excluded.rate_limited_until,
			daily_usage = excluded.daily_usage,
			daily_quota = excluded.daily_quota,
			quota_reset_at = excluded.quota_reset_at,
			permanently_disabled = excluded.permanently_disabled,
			disabled_reason = excluded.disabled_reason`,
		w.ID, w.URL, boolToInt(w.Healthy), w.LastCheck, w.SuccessCount, w.ErrorCount, w.ConsecutiveFailures,
		w.RateLimitedUntil, w.DailyUsage, w.DailyQuota, w.QuotaResetAt, boolToInt(w.PermanentlyDisabled),
		w.DisabledReason, time.Now().UTC())
	return err
}

func (r *WorkerRepo) UpdateUsage(ctx context.Context, id string, dailyUsage int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workers SET daily_usage = ? WHERE id = ?`, dailyUsage, id)
	return err
}

func (r *WorkerRepo) UpdateHealth(ctx context.Context, id string, healthy bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workers SET healthy = ? WHERE id = ?`, boolToInt(healthy), id)
	return err
}

func (r *WorkerRepo) Disable(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE workers SET permanently_disabled = 1, healthy = 0, disabled_reason = ? WHERE id = ?`,
		reason, id)
	return err
}

func (r *WorkerRepo) ResetDaily(ctx context.Context, resetAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE workers SET daily_usage = 0, quota_reset_at = ?, healthy = 1
		 WHERE permanently_disabled = 0`,
		resetAt)
	return err
}
