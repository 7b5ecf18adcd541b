package sqlite

import (
	"context"
	"database/sql"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// DomainRepo implements repo.DomainRepository.
type DomainRepo struct {
	db *sql.DB
}

var _ repo.DomainRepository = (*DomainRepo)(nil)

func (r *DomainRepo) Page(ctx context.Context, target scantypes.Target, after repo.DomainCursor, limit int) (repo.DomainPage, error) {
	// Keyset predicate on (rank, id): rows are ordered by rank first, so
	// an id-only cursor would skip or re-visit rows whenever rank and id
	// order diverge (rank is mutable across re-ingestion).
	query := `SELECT id, domain, rank, first_seen_at, last_seen_in_csv_at, has_been_scanned
		FROM domains WHERE (rank > ? OR (rank = ? AND id > ?))`
	if target == scantypes.TargetIncremental {
		query += ` AND has_been_scanned = 0`
	}
	query += ` ORDER BY rank ASC, id ASC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, after.Rank, after.Rank, after.ID, limit+1)
	if err != nil {
		return repo.DomainPage{}, err
	}
	defer rows.Close()

	var page repo.DomainPage
	for rows.Next() {
		var d scantypes.Domain
		var scanned int
		if err := rows.Scan(&d.ID, &d.Name, &d.Rank, &d.FirstSeenAt, &d.LastSeenInCsvAt, &scanned); err != nil {
			return repo.DomainPage{}, err
		}
		d.HasBeenScanned = scanned != 0
		page.Domains = append(page.Domains, d)
	}
	if err := rows.Err(); err != nil {
		return repo.DomainPage{}, err
	}

	if len(page.Domains) > limit {
		page.Domains = page.Domains[:limit]
		page.HasMore = true
	}
	return page, nil
}

func (r *DomainRepo) MarkScanned(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE domains SET has_been_scanned = 1 WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *DomainRepo) ResetScanned(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE domains SET has_been_scanned = 0`)
	return err
}

func (r *DomainRepo) Upsert(ctx context.Context, d scantypes.Domain) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domains (domain, rank, first_seen_at, last_seen_in_csv_at, has_been_scanned)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
			rank = excluded.rank,
			last_seen_in_csv_at = excluded.last_seen_in_csv_at`,
		d.Name, d.Rank, d.FirstSeenAt, d.LastSeenInCsvAt, boolToInt(d.HasBeenScanned))
	return err
}

func (r *DomainRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM domains`).Scan(&n)
	return n, err
}

func (r *DomainRepo) CountTarget(ctx context.Context, target scantypes.Target) (int, error) {
	query := `SELECT COUNT(*) FROM domains`
	if target == scantypes.TargetIncremental {
		query += ` WHERE has_been_scanned = 0`
	}
	var n int
	err := r.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
