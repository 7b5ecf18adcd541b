package scantypes

import "time"

// AutomationState is the process-wide pause gate. When Enabled is
// false no new scans or scheduled runs may start; in-flight scans finish.
type AutomationState struct {
	Enabled      bool
	LastPausedAt *time.Time
}

// AutomationStatus is the operator-facing status report: Uptime is set only
// when automation is currently enabled and a prior pause timestamp
// exists (time elapsed since that pause).
type AutomationStatus struct {
	Enabled      bool
	LastPausedAt *time.Time
	Uptime       *time.Duration
}

// SchedulerConfig controls the Automation Scheduler's periodic triggers.
const (
	MinIncrementalPeriod = 24 * time.Hour
	MinRescanPeriod      = 180 * 24 * time.Hour
)

type SchedulerConfig struct {
	IncrementalEnabled bool
	RescanEnabled      bool
	LastIncrementalRun *time.Time
	LastRescanRun      *time.Time
}

// DueIncremental reports whether enough time has passed for a new
// incremental scan to be scheduled.
func (s *SchedulerConfig) DueIncremental(now time.Time) bool {
	if !s.IncrementalEnabled {
		return false
	}
	return s.LastIncrementalRun == nil || now.Sub(*s.LastIncrementalRun) >= MinIncrementalPeriod
}

// DueRescan reports whether enough time has passed for a new full rescan.
func (s *SchedulerConfig) DueRescan(now time.Time) bool {
	if !s.RescanEnabled {
		return false
	}
	return s.LastRescanRun == nil || now.Sub(*s.LastRescanRun) >= MinRescanPeriod
}
