package sqlite

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS domains (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT UNIQUE NOT NULL,
	rank INTEGER NOT NULL,
	first_seen_at DATETIME NOT NULL,
	last_seen_in_csv_at DATETIME NOT NULL,
	has_been_scanned INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_domains_rank ON domains(rank);

CREATE TABLE IF NOT EXISTS scan_tasks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	target TEXT NOT NULL,
	url_template TEXT NOT NULL,
	status TEXT NOT NULL,
	progress INTEGER NOT NULL DEFAULT 0,
	total_urls INTEGER NOT NULL DEFAULT 0,
	scanned_urls INTEGER NOT NULL DEFAULT 0,
	hits INTEGER NOT NULL DEFAULT 0,
	concurrency INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	started_at DATETIME,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS scan_results (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	status INTEGER NOT NULL,
	content_type TEXT,
	size INTEGER NOT NULL DEFAULT 0,
	scanned_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_results_task ON scan_results(task_id);
CREATE INDEX IF NOT EXISTS idx_scan_results_status ON scan_results(status);

CREATE TABLE IF NOT EXISTS path_templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	template TEXT NOT NULL,
	description TEXT,
	expected_content_type TEXT,
	exclude_content_type INTEGER NOT NULL DEFAULT 0,
	min_size INTEGER NOT NULL DEFAULT 0,
	max_size INTEGER,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_path_templates_enabled ON path_templates(enabled);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workers (
	id TEXT PRIMARY KEY,
	url TEXT UNIQUE NOT NULL,
	healthy INTEGER NOT NULL DEFAULT 1,
	last_check DATETIME,
	success_count INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	rate_limited_until DATETIME,
	daily_usage INTEGER NOT NULL DEFAULT 0,
	daily_quota INTEGER NOT NULL DEFAULT 0,
	quota_reset_at DATETIME,
	permanently_disabled INTEGER NOT NULL DEFAULT 0,
	disabled_reason TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS system_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	level TEXT NOT NULL,
	category TEXT NOT NULL,
	message TEXT NOT NULL,
	details TEXT,
	task_id TEXT,
	domain TEXT,
	url TEXT,
	response_code INTEGER,
	response_time INTEGER,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_system_logs_timestamp ON system_logs(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_system_logs_category ON system_logs(category);
CREATE INDEX IF NOT EXISTS idx_system_logs_task ON system_logs(task_id);
`

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}
