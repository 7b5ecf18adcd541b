package automation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/domainscan/internal/observability"
	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scanexec"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// tickInterval is how often the scheduler checks whether an incremental
// or rescan run is due. Both periods (24h / 180d) are far coarser
// than this, so an hourly tick is cheap and catches drift quickly.
const tickInterval = time.Hour

// Scheduler is the Automation Scheduler: it periodically checks
// SchedulerConfig and starts a new incremental or full-rescan task when
// due, skipping the check entirely while a task is already active
// (single-flight).
type Scheduler struct {
	controller  *Controller
	settings    repo.SettingsRepository
	tasks       repo.TaskRepository
	domains     repo.DomainRepository
	templates   repo.TemplateRepository
	runner      scanexec.ScanRunner
	defaultTmpl string
	concurrency int
	logger      *slog.Logger
	done        chan struct{}
	metrics     *observability.Metrics
}

// WithMetrics attaches an observability sink; nil is a valid no-op sink.
func (s *Scheduler) WithMetrics(m *observability.Metrics) *Scheduler {
	s.metrics = m
	return s
}

// NewScheduler builds a Scheduler. defaultTmpl is the fallback
// URLTemplate used for scheduler-created tasks only when no enabled
// PathTemplate rows exist; concurrency seeds ScanTask.Concurrency.
// domains is used only to flip every domain's hasBeenScanned flag back
// to false before a full rescan starts.
func NewScheduler(controller *Controller, settings repo.SettingsRepository, tasks repo.TaskRepository, domains repo.DomainRepository, templates repo.TemplateRepository, runner scanexec.ScanRunner, defaultTmpl string, concurrency int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		controller:  controller,
		settings:    settings,
		tasks:       tasks,
		domains:     domains,
		templates:   templates,
		runner:      runner,
		defaultTmpl: defaultTmpl,
		concurrency: concurrency,
		logger:      logger.With("component", "automation_scheduler"),
		done:        make(chan struct{}),
	}
}

// Run blocks, ticking until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop ends Run without canceling the caller's context.
func (s *Scheduler) Stop() {
	close(s.done)
}

func (s *Scheduler) tick(ctx context.Context) {
	enabled, err := s.controller.IsEnabled(ctx)
	if err != nil {
		s.logger.Error("read automation state failed", "error", err)
		return
	}
	if !enabled {
		return
	}

	active := s.hasRunningTask(ctx)
	s.metrics.SetSchedulerIdle(!active)
	if active {
		s.logger.Debug("skipping tick, task already active")
		return
	}

	cfg, err := s.settings.GetSchedulerConfig(ctx)
	if err != nil {
		s.logger.Error("read scheduler config failed", "error", err)
		return
	}

	now := time.Now().UTC()
	switch {
	case cfg.DueRescan(now):
		s.start(ctx, scantypes.TargetFull, &cfg, now)
	case cfg.DueIncremental(now):
		s.start(ctx, scantypes.TargetIncremental, &cfg, now)
	}
}

// hasRunningTask reports whether any task is pending or running.
// Stale-task cleanup runs first (any task still marked running was interrupted by a prior
// process and is reset to pending), then answers whether any task is
// pending or running. Storage errors fail open (return false) so a
// transient glitch never wedges the scheduler.
func (s *Scheduler) hasRunningTask(ctx context.Context) bool {
	staleIDs, err := s.tasks.RecoverStale(ctx)
	if err != nil {
		s.logger.Error("stale task recovery failed", "error", err)
	} else if len(staleIDs) > 0 {
		s.logger.Info("recovered stale running tasks", "count", len(staleIDs))
	}

	active, err := s.tasks.HasActive(ctx)
	if err != nil {
		s.logger.Error("check active task failed", "error", err)
		return false
	}
	return active
}

// urlTemplate builds the comma-joined list of enabled PathTemplate
// sources for a scheduler-created task, falling back to defaultTmpl
// only when no template is currently enabled.
func (s *Scheduler) urlTemplate(ctx context.Context) string {
	enabled, err := s.templates.Enabled(ctx)
	if err != nil {
		s.logger.Error("load enabled templates failed, falling back to default", "error", err)
		return s.defaultTmpl
	}
	if len(enabled) == 0 {
		return s.defaultTmpl
	}
	sources := make([]string, len(enabled))
	for i, t := range enabled {
		sources[i] = t.Template
	}
	return strings.Join(sources, ",")
}

func (s *Scheduler) start(ctx context.Context, target scantypes.Target, cfg *scantypes.SchedulerConfig, now time.Time) {
	if target == scantypes.TargetFull {
		if err := s.domains.ResetScanned(ctx); err != nil {
			s.logger.Error("reset scan status before full rescan failed", "error", err)
			return
		}
	}

	name := "Auto Incremental Scan - " + now.Local().Format("2006-01-02 15:04:05")
	if target == scantypes.TargetFull {
		name = "Auto Full Rescan - " + now.Local().Format("2006-01-02 15:04:05")
	}
	task, err := s.tasks.Create(ctx, scantypes.ScanTask{
		Name:        name,
		Target:      target,
		URLTemplate: s.urlTemplate(ctx),
		Concurrency: s.concurrency,
	})
	if err != nil {
		s.logger.Error("create scheduled task failed", "error", err, "target", target)
		return
	}

	if target == scantypes.TargetFull {
		cfg.LastRescanRun = &now
	} else {
		cfg.LastIncrementalRun = &now
	}
	if err := s.settings.SetSchedulerConfig(ctx, *cfg); err != nil {
		s.logger.Error("persist scheduler config failed", "error", err)
	}

	s.logger.Info("scheduler starting scan", "task_id", task.ID, "target", target, "url_template", task.URLTemplate)
	go func() {
		// manualStart=false: scheduled starts still pass through the
		// automation gate check inside ExecuteScan, so a pause landing
		// between this tick and goroutine dispatch still takes effect.
		if err := s.runner.ExecuteScan(ctx, task.ID, false); err != nil {
			s.logger.Error("scheduled scan failed", "task_id", task.ID, "error", err)
		}
	}()
}
