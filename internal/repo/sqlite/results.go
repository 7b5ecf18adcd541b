package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// ResultRepo implements repo.ResultRepository.
type ResultRepo struct {
	db *sql.DB
}

var _ repo.ResultRepository = (*ResultRepo)(nil)

// AppendBatch writes results in a single transaction so an incremental
// flush either lands completely or not at all.
func (r *ResultRepo) AppendBatch(ctx context.Context, results []scantypes.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scan_results (id, task_id, domain, url, status, content_type, size, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), res.TaskID, res.Domain, res.URL,
			res.Status, res.ContentType, res.Size, res.ScannedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
