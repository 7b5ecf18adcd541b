package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scan.Concurrency < 1 {
		return fmt.Errorf("scan.concurrency must be >= 1, got %d", cfg.Scan.Concurrency)
	}
	if cfg.Scan.Concurrency > 1000 {
		return fmt.Errorf("scan.concurrency must be <= 1000, got %d", cfg.Scan.Concurrency)
	}
	if cfg.Scan.ProbeTimeout <= 0 {
		return fmt.Errorf("scan.probe_timeout must be > 0")
	}
	if cfg.Scan.DomainBatchSize < 1 {
		return fmt.Errorf("scan.domain_batch_size must be >= 1, got %d", cfg.Scan.DomainBatchSize)
	}

	if cfg.Worker.Enabled {
		if len(cfg.Worker.Endpoints) == 0 {
			return fmt.Errorf("worker.enabled is true but worker.endpoints is empty")
		}
		for _, ep := range cfg.Worker.Endpoints {
			u, err := url.Parse(ep)
			if err != nil {
				return fmt.Errorf("invalid worker endpoint %q: %w", ep, err)
			}
			if u.Scheme != "https" {
				return fmt.Errorf("worker endpoint %q must use https", ep)
			}
		}
		if cfg.Worker.DailyQuota < 1 {
			return fmt.Errorf("worker.daily_quota must be >= 1, got %d", cfg.Worker.DailyQuota)
		}
		if cfg.Worker.BatchSize < 1 || cfg.Worker.BatchSize > 10 {
			return fmt.Errorf("worker.batch_size must be 1-10, got %d", cfg.Worker.BatchSize)
		}
		if cfg.Worker.TimeoutMS < 1 {
			return fmt.Errorf("worker.timeout_ms must be >= 1, got %d", cfg.Worker.TimeoutMS)
		}
	}

	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
