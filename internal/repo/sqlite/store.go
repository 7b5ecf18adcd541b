// Package sqlite implements the internal/repo interfaces on top of an
// embedded SQLite database via the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the shared connection backing every repository implementation
// in this package.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database at path, enabling WAL mode and a busy
// timeout so concurrent readers don't block the executor's writers.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Ensure creates all tables if they don't already exist.
func (s *Store) Ensure(ctx context.Context) error {
	return s.createSchema(ctx)
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// DomainRepo returns the DomainRepository view over this store.
func (s *Store) DomainRepo() *DomainRepo { return &DomainRepo{db: s.db} }

// TemplateRepo returns the TemplateRepository view over this store.
func (s *Store) TemplateRepo() *TemplateRepo { return &TemplateRepo{db: s.db} }

// TaskRepo returns the TaskRepository view over this store.
func (s *Store) TaskRepo() *TaskRepo { return &TaskRepo{db: s.db} }

// ResultRepo returns the ResultRepository view over this store.
func (s *Store) ResultRepo() *ResultRepo { return &ResultRepo{db: s.db} }

// SettingsRepo returns the SettingsRepository view over this store.
func (s *Store) SettingsRepo() *SettingsRepo { return &SettingsRepo{db: s.db} }

// WorkerRepo returns the WorkerRepository view over this store.
func (s *Store) WorkerRepo() *WorkerRepo { return &WorkerRepo{db: s.db} }
