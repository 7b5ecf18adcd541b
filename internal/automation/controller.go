// Package automation implements the Automation Controller and
// Automation Scheduler: a global pause gate plus periodic
// incremental/full-rescan triggers.
package automation

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// Controller is the process-wide pause gate. It
// mirrors persisted state in an atomic.Bool so IsEnabled never blocks
// on storage, the same shape the engine scheduler uses for its paused
// flag.
type Controller struct {
	settings repo.SettingsRepository
	logger   *slog.Logger
	enabled  atomic.Bool
}

// NewController loads the persisted AutomationState and caches it.
func NewController(ctx context.Context, settings repo.SettingsRepository, logger *slog.Logger) (*Controller, error) {
	c := &Controller{settings: settings, logger: logger.With("component", "automation")}
	state, err := settings.GetAutomationState(ctx)
	if err != nil {
		return nil, err
	}
	c.enabled.Store(state.Enabled)
	return c, nil
}

// IsEnabled satisfies scanexec.AutomationGate.
func (c *Controller) IsEnabled(ctx context.Context) (bool, error) {
	return c.enabled.Load(), nil
}

// Enable turns automation on.
func (c *Controller) Enable(ctx context.Context) error {
	return c.setEnabled(ctx, true)
}

// Disable pauses automation. In-flight scans are unaffected; only new
// starts (manualStart=false) and scheduled triggers are blocked.
func (c *Controller) Disable(ctx context.Context) error {
	return c.setEnabled(ctx, false)
}

// Toggle flips the current state and returns the new value.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	if c.enabled.Load() {
		return false, c.Disable(ctx)
	}
	return true, c.Enable(ctx)
}

func (c *Controller) setEnabled(ctx context.Context, enabled bool) error {
	state := scantypes.AutomationState{Enabled: enabled}
	if !enabled {
		now := time.Now().UTC()
		state.LastPausedAt = &now
	}
	if err := c.settings.SetAutomationState(ctx, state); err != nil {
		return err
	}
	c.enabled.Store(enabled)
	c.logger.Info("automation state changed", "enabled", enabled)
	return nil
}

// GetStatus returns the current persisted state for API/CLI reporting,
// with Uptime set when automation is enabled and a prior pause
// timestamp is on record.
func (c *Controller) GetStatus(ctx context.Context) (scantypes.AutomationStatus, error) {
	state, err := c.settings.GetAutomationState(ctx)
	if err != nil {
		return scantypes.AutomationStatus{}, err
	}
	status := scantypes.AutomationStatus{Enabled: state.Enabled, LastPausedAt: state.LastPausedAt}
	if state.Enabled && state.LastPausedAt != nil {
		uptime := time.Since(*state.LastPausedAt)
		status.Uptime = &uptime
	}
	return status, nil
}
