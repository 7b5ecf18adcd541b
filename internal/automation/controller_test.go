package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

type fakeSettingsRepo struct {
	automation scantypes.AutomationState
	scheduler  scantypes.SchedulerConfig
}

func (f *fakeSettingsRepo) Get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }
func (f *fakeSettingsRepo) Set(ctx context.Context, key, value string) error          { return nil }
func (f *fakeSettingsRepo) GetAutomationState(ctx context.Context) (scantypes.AutomationState, error) {
	return f.automation, nil
}
func (f *fakeSettingsRepo) SetAutomationState(ctx context.Context, s scantypes.AutomationState) error {
	f.automation = s
	return nil
}
func (f *fakeSettingsRepo) GetSchedulerConfig(ctx context.Context) (scantypes.SchedulerConfig, error) {
	return f.scheduler, nil
}
func (f *fakeSettingsRepo) SetSchedulerConfig(ctx context.Context, c scantypes.SchedulerConfig) error {
	f.scheduler = c
	return nil
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// TestToggleInvertsState: toggling flips enabled and persists it.
func TestToggleInvertsState(t *testing.T) {
	repo := &fakeSettingsRepo{automation: scantypes.AutomationState{Enabled: true}}
	c, err := NewController(context.Background(), repo, testLogger())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	got, err := c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if got {
		t.Fatalf("Toggle() = true, want false")
	}
	if repo.automation.Enabled {
		t.Fatalf("persisted state still enabled")
	}
	if repo.automation.LastPausedAt == nil {
		t.Fatalf("LastPausedAt not stamped on disable")
	}

	got, err = c.Toggle(context.Background())
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !got {
		t.Fatalf("Toggle() = false, want true")
	}
}

// TestIsEnabledReflectsLoadedState: a freshly-loaded
// controller reports the persisted state, not a hardcoded default.
func TestIsEnabledReflectsLoadedState(t *testing.T) {
	repo := &fakeSettingsRepo{automation: scantypes.AutomationState{Enabled: false}}
	c, err := NewController(context.Background(), repo, testLogger())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	enabled, err := c.IsEnabled(context.Background())
	if err != nil {
		t.Fatalf("IsEnabled: %v", err)
	}
	if enabled {
		t.Fatalf("IsEnabled() = true, want false (loaded disabled)")
	}
}

type fakeTaskRepo struct {
	active          bool
	hasActiveErr    error
	created         []scantypes.ScanTask
	recoverStaleErr error
	staleIDs        []string
	calls           []string
}

func (f *fakeTaskRepo) Create(ctx context.Context, t scantypes.ScanTask) (scantypes.ScanTask, error) {
	t.ID = "generated"
	f.created = append(f.created, t)
	return t, nil
}
func (f *fakeTaskRepo) Get(ctx context.Context, id string) (scantypes.ScanTask, error) {
	return scantypes.ScanTask{}, nil
}
func (f *fakeTaskRepo) HasActive(ctx context.Context) (bool, error) {
	f.calls = append(f.calls, "HasActive")
	return f.active, f.hasActiveErr
}
func (f *fakeTaskRepo) TransitionToRunning(ctx context.Context, id string, startedAt time.Time) error {
	return nil
}
func (f *fakeTaskRepo) UpdateProgress(ctx context.Context, id string, progress, totalURLs, scannedURLs, hits int) error {
	return nil
}
func (f *fakeTaskRepo) Complete(ctx context.Context, id string, completedAt time.Time) error { return nil }
func (f *fakeTaskRepo) Fail(ctx context.Context, id string, completedAt time.Time) error     { return nil }
func (f *fakeTaskRepo) RecoverStale(ctx context.Context) ([]string, error) {
	f.calls = append(f.calls, "RecoverStale")
	return f.staleIDs, f.recoverStaleErr
}
func (f *fakeTaskRepo) PendingIDs(ctx context.Context) ([]string, error)                     { return nil, nil }

type fakeDomainRepo struct {
	resetCalls int
	resetErr   error
}

func (f *fakeDomainRepo) Page(ctx context.Context, target scantypes.Target, after repo.DomainCursor, limit int) (repo.DomainPage, error) {
	return repo.DomainPage{}, nil
}
func (f *fakeDomainRepo) MarkScanned(ctx context.Context, ids []int64) error { return nil }
func (f *fakeDomainRepo) ResetScanned(ctx context.Context) error {
	f.resetCalls++
	return f.resetErr
}
func (f *fakeDomainRepo) Upsert(ctx context.Context, d scantypes.Domain) error { return nil }
func (f *fakeDomainRepo) Count(ctx context.Context) (int, error)              { return 0, nil }
func (f *fakeDomainRepo) CountTarget(ctx context.Context, target scantypes.Target) (int, error) {
	return 0, nil
}

type fakeTemplateRepo struct {
	templates []scantypes.PathTemplate
}

func (f *fakeTemplateRepo) Enabled(ctx context.Context) ([]scantypes.PathTemplate, error) {
	return f.templates, nil
}
func (f *fakeTemplateRepo) ByNames(ctx context.Context, names []string) ([]scantypes.PathTemplate, error) {
	return f.templates, nil
}
func (f *fakeTemplateRepo) Upsert(ctx context.Context, t scantypes.PathTemplate) error { return nil }

type fakeRunner struct {
	calledWith string
	err        error
}

func (r *fakeRunner) ExecuteScan(ctx context.Context, taskID string, manualStart bool) error {
	r.calledWith = taskID
	return r.err
}

// TestSchedulerSkipsWhenTaskActive: single-flight scheduling
// never starts a second task while one is already running.
func TestSchedulerSkipsWhenTaskActive(t *testing.T) {
	settings := &fakeSettingsRepo{
		automation: scantypes.AutomationState{Enabled: true},
		scheduler: scantypes.SchedulerConfig{
			IncrementalEnabled: true,
		},
	}
	controller, _ := NewController(context.Background(), settings, testLogger())
	tasks := &fakeTaskRepo{active: true}
	runner := &fakeRunner{}

	s := NewScheduler(controller, settings, tasks, &fakeDomainRepo{}, &fakeTemplateRepo{}, runner, "(domain)/", 10, testLogger())
	s.tick(context.Background())

	if len(tasks.created) != 0 {
		t.Fatalf("created %d tasks, want 0 while a task is active", len(tasks.created))
	}
	if runner.calledWith != "" {
		t.Fatalf("runner invoked while a task was active")
	}
}

// TestSchedulerStartsIncrementalWhenDue covers the scheduler's due-check path.
func TestSchedulerStartsIncrementalWhenDue(t *testing.T) {
	settings := &fakeSettingsRepo{
		automation: scantypes.AutomationState{Enabled: true},
		scheduler:  scantypes.SchedulerConfig{IncrementalEnabled: true},
	}
	controller, _ := NewController(context.Background(), settings, testLogger())
	tasks := &fakeTaskRepo{active: false}
	runner := &fakeRunner{}

	s := NewScheduler(controller, settings, tasks, &fakeDomainRepo{}, &fakeTemplateRepo{}, runner, "(domain)/", 10, testLogger())
	s.tick(context.Background())

	if len(tasks.created) != 1 {
		t.Fatalf("created %d tasks, want 1", len(tasks.created))
	}
	if tasks.created[0].Target != scantypes.TargetIncremental {
		t.Fatalf("target = %s, want incremental", tasks.created[0].Target)
	}
	if settings.scheduler.LastIncrementalRun == nil {
		t.Fatalf("LastIncrementalRun not stamped")
	}
	if tasks.created[0].URLTemplate != "(domain)/" {
		t.Fatalf("url_template = %q, want the configured default since no template is enabled", tasks.created[0].URLTemplate)
	}
}

// TestSchedulerUsesEnabledTemplates: a scheduler-created
// task builds url_template from the comma-joined list of currently
// enabled PathTemplate rows, not the static configured default.
func TestSchedulerUsesEnabledTemplates(t *testing.T) {
	settings := &fakeSettingsRepo{
		automation: scantypes.AutomationState{Enabled: true},
		scheduler:  scantypes.SchedulerConfig{IncrementalEnabled: true},
	}
	controller, _ := NewController(context.Background(), settings, testLogger())
	tasks := &fakeTaskRepo{active: false}
	runner := &fakeRunner{}
	templates := &fakeTemplateRepo{templates: []scantypes.PathTemplate{
		{Template: "(domain)/backup.zip"},
		{Template: "(domain)/.git/config"},
	}}

	s := NewScheduler(controller, settings, tasks, &fakeDomainRepo{}, templates, runner, "(domain)/", 10, testLogger())
	s.tick(context.Background())

	if len(tasks.created) != 1 {
		t.Fatalf("created %d tasks, want 1", len(tasks.created))
	}
	want := "(domain)/backup.zip,(domain)/.git/config"
	if got := tasks.created[0].URLTemplate; got != want {
		t.Fatalf("url_template = %q, want %q", got, want)
	}
}

// TestSchedulerSkipsWhenAutomationDisabled: the pause gate blocks
// scheduled task creation outright.
func TestSchedulerSkipsWhenAutomationDisabled(t *testing.T) {
	settings := &fakeSettingsRepo{
		automation: scantypes.AutomationState{Enabled: false},
		scheduler:  scantypes.SchedulerConfig{IncrementalEnabled: true},
	}
	controller, _ := NewController(context.Background(), settings, testLogger())
	tasks := &fakeTaskRepo{}
	runner := &fakeRunner{}

	s := NewScheduler(controller, settings, tasks, &fakeDomainRepo{}, &fakeTemplateRepo{}, runner, "(domain)/", 10, testLogger())
	s.tick(context.Background())

	if len(tasks.created) != 0 {
		t.Fatalf("created %d tasks while automation disabled, want 0", len(tasks.created))
	}
}

// TestSchedulerRecoversStaleBeforeCheckingActive: stale-task recovery
// (running -> pending for tasks left by a dead process) runs before the
// single-flight HasActive check on every tick.
func TestSchedulerRecoversStaleBeforeCheckingActive(t *testing.T) {
	settings := &fakeSettingsRepo{
		automation: scantypes.AutomationState{Enabled: true},
		scheduler:  scantypes.SchedulerConfig{IncrementalEnabled: true},
	}
	controller, _ := NewController(context.Background(), settings, testLogger())
	tasks := &fakeTaskRepo{active: false, staleIDs: []string{"stale-1"}}
	runner := &fakeRunner{}

	s := NewScheduler(controller, settings, tasks, &fakeDomainRepo{}, &fakeTemplateRepo{}, runner, "(domain)/", 10, testLogger())
	s.tick(context.Background())

	if len(tasks.calls) < 2 || tasks.calls[0] != "RecoverStale" || tasks.calls[1] != "HasActive" {
		t.Fatalf("task repo calls = %v, want RecoverStale before HasActive", tasks.calls)
	}
	if len(tasks.created) != 1 {
		t.Fatalf("created %d tasks, want 1 when no task is active after recovery", len(tasks.created))
	}
}

// TestHasRunningTaskFailsOpenOnStorageError covers the scheduler's
// fail-open contract: a transient HasActive error must not wedge the
// scheduler into believing a task is active forever.
func TestHasRunningTaskFailsOpenOnStorageError(t *testing.T) {
	settings := &fakeSettingsRepo{automation: scantypes.AutomationState{Enabled: true}}
	controller, _ := NewController(context.Background(), settings, testLogger())
	tasks := &fakeTaskRepo{hasActiveErr: errBoom}
	runner := &fakeRunner{}

	s := NewScheduler(controller, settings, tasks, &fakeDomainRepo{}, &fakeTemplateRepo{}, runner, "(domain)/", 10, testLogger())

	if active := s.hasRunningTask(context.Background()); active {
		t.Fatalf("hasRunningTask() = true on storage error, want false (fail open)")
	}
}

// TestSchedulerResetsScanStatusBeforeFullRescan: every domain's
// scanned flag is cleared before the full-rescan task is created, so
// the new task actually sees every domain as unscanned.
func TestSchedulerResetsScanStatusBeforeFullRescan(t *testing.T) {
	settings := &fakeSettingsRepo{
		automation: scantypes.AutomationState{Enabled: true},
		scheduler:  scantypes.SchedulerConfig{RescanEnabled: true},
	}
	controller, _ := NewController(context.Background(), settings, testLogger())
	tasks := &fakeTaskRepo{active: false}
	runner := &fakeRunner{}
	domains := &fakeDomainRepo{}

	s := NewScheduler(controller, settings, tasks, domains, &fakeTemplateRepo{}, runner, "(domain)/", 10, testLogger())
	s.tick(context.Background())

	if domains.resetCalls != 1 {
		t.Fatalf("ResetScanned called %d times, want 1 before a full rescan", domains.resetCalls)
	}
	if len(tasks.created) != 1 || tasks.created[0].Target != scantypes.TargetFull {
		t.Fatalf("expected one full-rescan task to be created, got %+v", tasks.created)
	}
	if settings.scheduler.LastRescanRun == nil {
		t.Fatalf("LastRescanRun not stamped")
	}
}

var errBoom = errors.New("boom")
