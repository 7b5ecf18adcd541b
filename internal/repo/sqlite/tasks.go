package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// TaskRepo implements repo.TaskRepository.
type TaskRepo struct {
	db *sql.DB
}

var _ repo.TaskRepository = (*TaskRepo)(nil)

func (r *TaskRepo) Create(ctx context.Context, t scantypes.ScanTask) (scantypes.ScanTask, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = scantypes.TaskPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scan_tasks (id, name, target, url_template, status, progress, total_urls, scanned_urls, hits, concurrency, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, 0, 0, ?, ?)`,
		t.ID, t.Name, t.Target, t.URLTemplate, t.Status, t.Concurrency, t.CreatedAt)
	if err != nil {
		return scantypes.ScanTask{}, err
	}
	return t, nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (scantypes.ScanTask, error) {
	var t scantypes.ScanTask
	var started, completed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, target, url_template, status, progress, total_urls, scanned_urls, hits, concurrency, created_at, started_at, completed_at
		 FROM scan_tasks WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Target, &t.URLTemplate, &t.Status, &t.Progress, &t.TotalURLs, &t.ScannedURLs, &t.Hits, &t.Concurrency,
			&t.CreatedAt, &started, &completed)
	if err == sql.ErrNoRows {
		return scantypes.ScanTask{}, scantypes.ErrTaskNotFound
	}
	if err != nil {
		return scantypes.ScanTask{}, err
	}
	if started.Valid {
		t.StartedAt = &started.Time
	}
	if completed.Valid {
		t.CompletedAt = &completed.Time
	}
	return t, nil
}

func (r *TaskRepo) HasActive(ctx context.Context) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scan_tasks WHERE status IN (?, ?)`,
		scantypes.TaskPending, scantypes.TaskRunning).Scan(&n)
	return n > 0, err
}

func (r *TaskRepo) TransitionToRunning(ctx context.Context, id string, startedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scan_tasks SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		scantypes.TaskRunning, startedAt, id, scantypes.TaskPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return scantypes.ErrTaskNotPending
	}
	return nil
}

func (r *TaskRepo) UpdateProgress(ctx context.Context, id string, progress, totalURLs, scannedURLs, hits int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scan_tasks SET progress = ?, total_urls = ?, scanned_urls = ?, hits = ? WHERE id = ?`,
		progress, totalURLs, scannedURLs, hits, id)
	return err
}

func (r *TaskRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scan_tasks SET status = ?, progress = 100, completed_at = ? WHERE id = ?`,
		scantypes.TaskCompleted, completedAt, id)
	return err
}

func (r *TaskRepo) Fail(ctx context.Context, id string, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scan_tasks SET status = ?, completed_at = ? WHERE id = ?`,
		scantypes.TaskFailed, completedAt, id)
	return err
}

// RecoverStale: a task discovered running at startup no longer has an
// owner process, so it goes back to pending.
func (r *TaskRepo) RecoverStale(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM scan_tasks WHERE status = ?`, scantypes.TaskRunning)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE scan_tasks SET status = ?, started_at = NULL WHERE status = ?`,
		scantypes.TaskPending, scantypes.TaskRunning)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PendingIDs returns every task currently in status pending.
func (r *TaskRepo) PendingIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM scan_tasks WHERE status = ?`, scantypes.TaskPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
