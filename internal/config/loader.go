package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// No CLI flags are bound to config keys here.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("SCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("domainscan")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".domainscan"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scan.concurrency", cfg.Scan.Concurrency)
	v.SetDefault("scan.probe_timeout", cfg.Scan.ProbeTimeout)
	v.SetDefault("scan.domain_batch_size", cfg.Scan.DomainBatchSize)
	v.SetDefault("scan.domain_list_path", cfg.Scan.DomainListPath)

	v.SetDefault("worker.enabled", cfg.Worker.Enabled)
	v.SetDefault("worker.endpoints", cfg.Worker.Endpoints)
	v.SetDefault("worker.daily_quota", cfg.Worker.DailyQuota)
	v.SetDefault("worker.batch_size", cfg.Worker.BatchSize)
	v.SetDefault("worker.timeout_ms", cfg.Worker.TimeoutMS)
	v.SetDefault("worker.retry", cfg.Worker.Retry)
	v.SetDefault("worker.unhealthy_threshold", cfg.Worker.UnhealthyThreshold)
	v.SetDefault("worker.rate_limit_cooldown", cfg.Worker.RateLimitCooldown)
	v.SetDefault("worker.health_check_interval", cfg.Worker.HealthCheckInterval)
	v.SetDefault("worker.rescale_at", cfg.Worker.RescaleAt)
	v.SetDefault("worker.rescale_to", cfg.Worker.RescaleTo)

	v.SetDefault("automation.enabled", cfg.Automation.Enabled)
	v.SetDefault("automation.incremental_enabled", cfg.Automation.IncrementalEnabled)
	v.SetDefault("automation.rescan_enabled", cfg.Automation.RescanEnabled)
	v.SetDefault("automation.default_templates", cfg.Automation.DefaultTemplates)

	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.batch_size", cfg.Storage.BatchSize)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
