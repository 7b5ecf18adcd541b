package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for domainscan.
type Config struct {
	Scan       ScanConfig       `mapstructure:"scan"       yaml:"scan"`
	Worker     WorkerConfig     `mapstructure:"worker"     yaml:"worker"`
	Automation AutomationConfig `mapstructure:"automation" yaml:"automation"`
	Storage    StorageConfig    `mapstructure:"storage"    yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
}

// ScanConfig controls local probing and task execution.
type ScanConfig struct {
	Concurrency     int           `mapstructure:"concurrency"       yaml:"concurrency"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"     yaml:"probe_timeout"`
	DomainBatchSize int           `mapstructure:"domain_batch_size" yaml:"domain_batch_size"`
	DomainListPath  string        `mapstructure:"domain_list_path"  yaml:"domain_list_path"`
}

// WorkerConfig controls the distributed worker pool.
type WorkerConfig struct {
	Enabled             bool          `mapstructure:"enabled"               yaml:"enabled"`
	Endpoints           []string      `mapstructure:"endpoints"             yaml:"endpoints"`
	DailyQuota          int           `mapstructure:"daily_quota"           yaml:"daily_quota"`
	BatchSize           int           `mapstructure:"batch_size"            yaml:"batch_size"`
	TimeoutMS           int           `mapstructure:"timeout_ms"            yaml:"timeout_ms"`
	Retry               int           `mapstructure:"retry"                 yaml:"retry"`
	UnhealthyThreshold  float64       `mapstructure:"unhealthy_threshold"   yaml:"unhealthy_threshold"`
	RateLimitCooldown   time.Duration `mapstructure:"rate_limit_cooldown"   yaml:"rate_limit_cooldown"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" yaml:"health_check_interval"`
	RescaleAt           int           `mapstructure:"rescale_at"            yaml:"rescale_at"`
	RescaleTo           int           `mapstructure:"rescale_to"            yaml:"rescale_to"`
}

// AutomationConfig controls the pause gate and periodic scheduler.
type AutomationConfig struct {
	Enabled            bool   `mapstructure:"enabled"             yaml:"enabled"`
	IncrementalEnabled bool   `mapstructure:"incremental_enabled" yaml:"incremental_enabled"`
	RescanEnabled      bool   `mapstructure:"rescan_enabled"      yaml:"rescan_enabled"`
	DefaultTemplates   string `mapstructure:"default_templates"   yaml:"default_templates"`
}

// StorageConfig controls the sqlite-backed repositories.
type StorageConfig struct {
	Path      string `mapstructure:"path"       yaml:"path"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Concurrency:     100,
			ProbeTimeout:    10 * time.Second,
			DomainBatchSize: 1000,
		},
		Worker: WorkerConfig{
			Enabled:             false,
			DailyQuota:          100000,
			BatchSize:           10,
			TimeoutMS:           10000,
			Retry:               2,
			UnhealthyThreshold:  90,
			RateLimitCooldown:   60 * time.Second,
			HealthCheckInterval: 60 * time.Second,
			RescaleAt:           100,
			RescaleTo:           50,
		},
		Automation: AutomationConfig{
			Enabled:            true,
			IncrementalEnabled: true,
			RescanEnabled:      false,
		},
		Storage: StorageConfig{
			Path:      "./domainscan.db",
			BatchSize: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
