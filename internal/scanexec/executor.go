// Package scanexec implements the Task Scan Executor: the
// end-to-end orchestration of one scan task from pending to
// completed/failed.
package scanexec

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/domainscan/internal/daterange"
	"github.com/IshaanNene/domainscan/internal/localscan"
	"github.com/IshaanNene/domainscan/internal/observability"
	"github.com/IshaanNene/domainscan/internal/placeholder"
	"github.com/IshaanNene/domainscan/internal/probe"
	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// domainBatchSize is how many domains one storage page holds.
const domainBatchSize = 1000

// progressLogEvery caps progress logging to a sample of snapshots
// rather than one line per probe.
const progressLogEvery = 100

// Result appends retry with exponential backoff before failing the task.
const (
	appendRetries     = 3
	appendBackoffBase = time.Second
)

// AutomationGate is the minimal view of the Automation Controller the
// executor needs. Defined here, not imported from
// internal/automation, to avoid a scanexec<->automation import cycle:
// the automation scheduler calls back into the executor via ScanRunner.
type AutomationGate interface {
	IsEnabled(ctx context.Context) (bool, error)
}

// urlMapping records which domain/template produced a materialized URL
// so filtering and persistence can look the template back up.
type urlMapping struct {
	URL      string
	Domain   scantypes.Domain
	Template string // original (pre date-expansion) template source
}

// Executor drives scan tasks end-to-end.
type Executor struct {
	Domains    repo.DomainRepository
	Templates  repo.TemplateRepository
	Tasks      repo.TaskRepository
	Results    repo.ResultRepository
	Automation AutomationGate
	Strategies *StrategyFactory
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

var _ ScanRunner = (*Executor)(nil)

// ExecuteScan drives taskID to completion or failure.
func (e *Executor) ExecuteScan(ctx context.Context, taskID string, manualStart bool) error {
	if !manualStart {
		enabled, err := e.Automation.IsEnabled(ctx)
		if err != nil {
			return err
		}
		if !enabled {
			return scantypes.ErrAutomationDisabled
		}
	}

	task, err := e.Tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != scantypes.TaskPending {
		return scantypes.ErrTaskNotPending
	}

	now := time.Now().UTC()
	if err := e.Tasks.TransitionToRunning(ctx, taskID, now); err != nil {
		return err
	}
	task.Status = scantypes.TaskRunning

	logger := e.Logger.With("task_id", taskID, "target", task.Target)
	logger.Info("scan task started")

	if err := e.run(ctx, &task); err != nil {
		logger.Error("scan task failed", "error", err)
		if failErr := e.Tasks.Fail(ctx, taskID, time.Now().UTC()); failErr != nil {
			logger.Error("failed to mark task failed", "error", failErr)
		}
		return err
	}

	if err := e.Tasks.Complete(ctx, taskID, time.Now().UTC()); err != nil {
		return err
	}
	logger.Info("scan task completed")
	return nil
}

func (e *Executor) run(ctx context.Context, task *scantypes.ScanTask) error {
	templates := task.Templates()
	if len(templates) == 0 {
		return fmt.Errorf("task %s has no templates", task.ID)
	}

	pathTemplates, err := e.Templates.Enabled(ctx)
	if err != nil {
		return err
	}
	filterBySource := make(map[string]scantypes.PathTemplate, len(pathTemplates))
	for _, pt := range pathTemplates {
		filterBySource[pt.Template] = pt
	}

	totalDomains, err := e.countTargetDomains(ctx, task.Target)
	if err != nil {
		return err
	}
	totalURLs := totalDomains * len(templates)

	strat := e.Strategies.Select(*task)

	var (
		cursor         repo.DomainCursor
		scannedURLs    int
		hits           int
		pendingScanIDs []int64
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := e.Domains.Page(ctx, task.Target, cursor, domainBatchSize)
		if err != nil {
			return err
		}
		if len(page.Domains) == 0 {
			break
		}
		last := page.Domains[len(page.Domains)-1]
		cursor = repo.DomainCursor{Rank: last.Rank, ID: last.ID}

		mappings := materializePage(page.Domains, templates)
		urls := make([]string, len(mappings))
		for i, m := range mappings {
			urls[i] = m.URL
		}

		var saved int
		onProgress := func(snap localscan.ProgressSnapshot) {
			if snap.Completed <= saved {
				return
			}
			newResults := mappings[saved:snap.Completed]
			newProbes := snap.Results[saved:snap.Completed]
			n, err := e.persistResults(ctx, task.ID, newResults, newProbes, filterBySource)
			if err != nil {
				e.Logger.Error("incremental result persist failed", "task_id", task.ID, "error", err)
				return
			}
			hits += n
			saved = snap.Completed
			if last := newProbes[len(newProbes)-1]; snap.Completed%progressLogEvery == 0 {
				e.Logger.Debug("scan progress",
					"task_id", task.ID, "completed", snap.Completed, "total", snap.Total,
					"hits", hits, "last_status", last.Status)
			}
		}

		probeResults := strat.ScanBatch(ctx, urls, onProgress)

		if saved < len(probeResults) {
			n, err := e.persistResults(ctx, task.ID, mappings[saved:], probeResults[saved:], filterBySource)
			if err != nil {
				return err
			}
			hits += n
		}

		for _, d := range page.Domains {
			pendingScanIDs = append(pendingScanIDs, d.ID)
		}
		if len(pendingScanIDs) >= domainBatchSize {
			if err := e.Domains.MarkScanned(ctx, pendingScanIDs); err != nil {
				return err
			}
			pendingScanIDs = nil
		}

		scannedURLs += len(probeResults)
		progress := 0
		if totalURLs > 0 {
			progress = int(float64(scannedURLs) / float64(totalURLs) * 100)
			if progress > 100 {
				progress = 100
			}
		}
		if err := e.Tasks.UpdateProgress(ctx, task.ID, progress, totalURLs, scannedURLs, hits); err != nil {
			return err
		}
		e.Metrics.SetTaskProgress(progress)

		if !page.HasMore {
			break
		}
	}

	if len(pendingScanIDs) > 0 {
		if err := e.Domains.MarkScanned(ctx, pendingScanIDs); err != nil {
			return err
		}
	}

	return e.Tasks.UpdateProgress(ctx, task.ID, 100, totalURLs, scannedURLs, hits)
}

func (e *Executor) countTargetDomains(ctx context.Context, target scantypes.Target) (int, error) {
	return e.Domains.CountTarget(ctx, target)
}

// materializePage expands date ranges in each template and builds one
// URL per domain x expanded-template pair.
func materializePage(domains []scantypes.Domain, templates []string) []urlMapping {
	var mappings []urlMapping
	now := time.Now().UTC()
	for _, tmpl := range templates {
		expanded := daterange.ExpandAll(tmpl)
		for _, domain := range domains {
			csvDate := domain.LastSeenInCsvAt
			in := placeholder.Input{Now: now, CSVDate: &csvDate}
			for _, et := range expanded {
				url := placeholder.BuildURL(et, domain, in)
				mappings = append(mappings, urlMapping{URL: url, Domain: domain, Template: tmpl})
			}
		}
	}
	return mappings
}

// persistResults applies the hit filters and appends surviving results
// in one transaction, returning the count of 200-status hits that
// passed filters.
func (e *Executor) persistResults(ctx context.Context, taskID string, mappings []urlMapping, probes []probe.Result, filters map[string]scantypes.PathTemplate) (int, error) {
	var toSave []scantypes.ScanResult
	hits := 0
	failed := 0

	for i, m := range mappings {
		if i >= len(probes) {
			break
		}
		p := probes[i]
		if p.Status == -1 {
			failed++
		}

		if p.Status == http.StatusOK {
			if !passesFilters(p, filters[m.Template]) {
				continue
			}
			hits++
		}

		size := int64(0)
		if p.Size != nil {
			size = *p.Size
		}
		toSave = append(toSave, scantypes.ScanResult{
			TaskID:      taskID,
			Domain:      m.Domain.Name,
			URL:         m.URL,
			Status:      p.Status,
			ContentType: p.ContentType,
			Size:        size,
			ScannedAt:   time.Now().UTC(),
		})
	}

	e.Metrics.IncProbesSent(len(probes))
	e.Metrics.IncProbesFailed(failed)
	e.Metrics.IncHits(hits)

	if len(toSave) == 0 {
		return hits, nil
	}
	return hits, e.appendWithRetry(ctx, toSave)
}

// appendWithRetry retries a failed result append with exponential
// backoff (base 1s, doubling) before giving up and failing the task.
func (e *Executor) appendWithRetry(ctx context.Context, results []scantypes.ScanResult) error {
	var err error
	backoff := appendBackoffBase
	for attempt := 1; attempt <= appendRetries; attempt++ {
		if err = e.Results.AppendBatch(ctx, results); err == nil {
			return nil
		}
		if attempt == appendRetries {
			break
		}
		e.Logger.Warn("result append failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return &scantypes.StorageError{Op: "append results", Err: err}
}

func passesFilters(p probe.Result, t scantypes.PathTemplate) bool {
	if t.Template == "" {
		return true // no configured template filter for this source
	}
	if !t.PassesContentType(p.ContentType) {
		return false
	}
	return t.PassesSize(p.Size)
}
