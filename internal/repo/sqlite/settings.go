package sqlite

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/IshaanNene/domainscan/internal/repo"
	"github.com/IshaanNene/domainscan/internal/scantypes"
)

// SettingsRepo implements repo.SettingsRepository as a key/value table.
type SettingsRepo struct {
	db *sql.DB
}

var _ repo.SettingsRepository = (*SettingsRepo)(nil)

const (
	keyAutomationEnabled    = "automation_enabled"
	keyAutomationLastPaused = "automation_last_paused"
	keyIncrementalEnabled   = "automation_incremental_enabled"
	keyRescanEnabled        = "automation_rescan_enabled"
	keyAutomationLastIncr   = "automation_last_incremental"
	keyAutomationLastRescan = "automation_last_rescan"
)

func (r *SettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

func (r *SettingsRepo) GetAutomationState(ctx context.Context) (scantypes.AutomationState, error) {
	enabled, err := r.getBoolDefault(ctx, keyAutomationEnabled, true)
	if err != nil {
		return scantypes.AutomationState{}, err
	}
	state := scantypes.AutomationState{Enabled: enabled}
	if raw, ok, err := r.Get(ctx, keyAutomationLastPaused); err != nil {
		return scantypes.AutomationState{}, err
	} else if ok && raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err == nil {
			state.LastPausedAt = &t
		}
	}
	return state, nil
}

func (r *SettingsRepo) SetAutomationState(ctx context.Context, s scantypes.AutomationState) error {
	if err := r.Set(ctx, keyAutomationEnabled, strconv.FormatBool(s.Enabled)); err != nil {
		return err
	}
	if s.LastPausedAt != nil {
		return r.Set(ctx, keyAutomationLastPaused, s.LastPausedAt.Format(time.RFC3339))
	}
	return nil
}

func (r *SettingsRepo) GetSchedulerConfig(ctx context.Context) (scantypes.SchedulerConfig, error) {
	var cfg scantypes.SchedulerConfig
	var err error
	if cfg.IncrementalEnabled, err = r.getBoolDefault(ctx, keyIncrementalEnabled, true); err != nil {
		return cfg, err
	}
	if cfg.RescanEnabled, err = r.getBoolDefault(ctx, keyRescanEnabled, false); err != nil {
		return cfg, err
	}
	if cfg.LastIncrementalRun, err = r.getTime(ctx, keyAutomationLastIncr); err != nil {
		return cfg, err
	}
	if cfg.LastRescanRun, err = r.getTime(ctx, keyAutomationLastRescan); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (r *SettingsRepo) SetSchedulerConfig(ctx context.Context, c scantypes.SchedulerConfig) error {
	if err := r.Set(ctx, keyIncrementalEnabled, strconv.FormatBool(c.IncrementalEnabled)); err != nil {
		return err
	}
	if err := r.Set(ctx, keyRescanEnabled, strconv.FormatBool(c.RescanEnabled)); err != nil {
		return err
	}
	if c.LastIncrementalRun != nil {
		if err := r.Set(ctx, keyAutomationLastIncr, c.LastIncrementalRun.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if c.LastRescanRun != nil {
		if err := r.Set(ctx, keyAutomationLastRescan, c.LastRescanRun.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

func (r *SettingsRepo) getBoolDefault(ctx context.Context, key string, def bool) (bool, error) {
	raw, ok, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, nil
	}
	return v, nil
}

func (r *SettingsRepo) getTime(ctx context.Context, key string) (*time.Time, error) {
	raw, ok, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, nil
	}
	return &t, nil
}
