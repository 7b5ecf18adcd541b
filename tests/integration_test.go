package integration

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/IshaanNene/domainscan/internal/automation"
	"github.com/IshaanNene/domainscan/internal/repo/sqlite"
	"github.com/IshaanNene/domainscan/internal/scanexec"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domainscan.db")
	store, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestFullScanLifecycle runs a scan task against a real httptest server
// through the sqlite-backed repositories end to end: domain/template
// ingestion, task creation, execution, filtered persistence, and
// automation-gated re-runs.
func TestFullScanLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/backup.sql":
			w.Header().Set("Content-Type", "application/sql")
			w.Header().Set("Content-Length", "4096")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	store := openStore(t)
	ctx := context.Background()

	host := srv.Listener.Addr().String()
	if err := store.DomainRepo().Upsert(ctx, scantypes.Domain{Name: host, Rank: 1}); err != nil {
		t.Fatalf("upsert domain: %v", err)
	}
	// The filter is looked up by exact template-source equality, so the
	// PathTemplate row carries the same string the task scans with.
	tmpl := "http://(domain)/backup.sql"
	if err := store.TemplateRepo().Upsert(ctx, scantypes.PathTemplate{
		Name:                "sql-backup",
		Template:            tmpl,
		ExpectedContentType: "application/sql",
		MinSize:             1024,
		Enabled:             true,
	}); err != nil {
		t.Fatalf("upsert template: %v", err)
	}

	controller, err := automation.NewController(ctx, store.SettingsRepo(), testLogger)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := controller.Enable(ctx); err != nil {
		t.Fatalf("enable automation: %v", err)
	}

	exec := &scanexec.Executor{
		Domains:    store.DomainRepo(),
		Templates:  store.TemplateRepo(),
		Tasks:      store.TaskRepo(),
		Results:    store.ResultRepo(),
		Automation: controller,
		Strategies: &scanexec.StrategyFactory{Logger: testLogger},
		Logger:     testLogger,
	}

	task, err := store.TaskRepo().Create(ctx, scantypes.ScanTask{
		Name:        "integration",
		Target:      scantypes.TargetFull,
		URLTemplate: tmpl,
		Concurrency: 4,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := exec.ExecuteScan(ctx, task.ID, true); err != nil {
		t.Fatalf("execute scan: %v", err)
	}

	finished, err := store.TaskRepo().Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if finished.Status != scantypes.TaskCompleted {
		t.Fatalf("task status = %s, want completed", finished.Status)
	}
	if finished.Hits != 1 {
		t.Fatalf("hits = %d, want 1", finished.Hits)
	}

	if err := controller.Disable(ctx); err != nil {
		t.Fatalf("disable automation: %v", err)
	}
	task2, err := store.TaskRepo().Create(ctx, scantypes.ScanTask{
		Name:        "integration-2",
		Target:      scantypes.TargetFull,
		URLTemplate: tmpl,
		Concurrency: 4,
	})
	if err != nil {
		t.Fatalf("create second task: %v", err)
	}
	if err := exec.ExecuteScan(ctx, task2.ID, false); err != scantypes.ErrAutomationDisabled {
		t.Fatalf("got %v, want ErrAutomationDisabled when automation is paused", err)
	}
}
