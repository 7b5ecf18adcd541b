package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// TemplateRepo implements repo.TemplateRepository.
type TemplateRepo struct {
	db *sql.DB
}

var _ repo.TemplateRepository = (*TemplateRepo)(nil)

func scanTemplate(scanner interface {
	Scan(dest ...any) error
}) (scantypes.PathTemplate, error) {
	var t scantypes.PathTemplate
	var excludeCT, enabled int
	var maxSize sql.NullInt64
	err := scanner.Scan(&t.ID, &t.Name, &t.Template, &t.Description, &t.ExpectedContentType,
		&excludeCT, &t.MinSize, &maxSize, &enabled, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.ExcludeContentType = excludeCT != 0
	t.Enabled = enabled != 0
	if maxSize.Valid {
		v := maxSize.Int64
		t.MaxSize = &v
	}
	return t, nil
}

func (r *TemplateRepo) Enabled(ctx context.Context) ([]scantypes.PathTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, template, description, expected_content_type, exclude_content_type, min_size, max_size, enabled, created_at, updated_at
		 FROM path_templates WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scantypes.PathTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepo) ByNames(ctx context.Context, names []string) ([]scantypes.PathTemplate, error) {
	if len(names) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, template, description, expected_content_type, exclude_content_type, min_size, max_size, enabled, created_at, updated_at
		 FROM path_templates WHERE name IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scantypes.PathTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepo) Upsert(ctx context.Context, t scantypes.PathTemplate) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO path_templates (id, name, template, description, expected_content_type, exclude_content_type, min_size, max_size, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			template = excluded.template,
			description = excluded.description,
			expected_content_type = excluded.expected_content_type,
			exclude_content_type = excluded.exclude_content_type,
			min_size = excluded.min_size,
			max_size = excluded.max_size,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		t.ID, t.Name, t.Template, t.Description, t.ExpectedContentType,
		boolToInt(t.ExcludeContentType), t.MinSize, t.MaxSize, boolToInt(t.Enabled), t.CreatedAt, t.UpdatedAt)
	return err
}
