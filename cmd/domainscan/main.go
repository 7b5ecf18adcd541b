package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/domainscan/internal/automation"
	"github.com/IshaanNene/domainscan/internal/config"
	"github.com/IshaanNene/domainscan/internal/observability"
	"github.com/IshaanNene/domainscan/internal/placeholder"
	"github.com/IshaanNene/domainscan/internal/quotasched"
	"github.com/IshaanNene/domainscan/internal/repo/sqlite"
	"github.com/IshaanNene/domainscan/internal/scanexec"
	"github.com/IshaanNene/domainscan/internal/scantypes"
	"github.com/IshaanNene/domainscan/internal/workerclient"
	"github.com/IshaanNene/domainscan/internal/workerpool"
)

var (
	cfgFile     string
	verbose     bool
	scanTarget  string
	scanTmpl    string
	workerQuota int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "domainscan",
		Short: "domainscan — distributed domain-scanning engine",
		Long: `domainscan probes a ranked domain list against a catalog of URL path
templates, deciding hits by content-type/size filters, with optional
failover to remote HTTP-proxy workers and periodic incremental/full-rescan
automation.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(domainCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(automationCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// components bundles everything serve/scan need, built once from cfg.
type components struct {
	store      *sqlite.Store
	pool       *workerpool.Pool
	controller *automation.Controller
	executor   *scanexec.Executor
	metrics    *observability.Metrics
}

func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	poolCfg := workerpool.Config{
		UnhealthyThreshold: cfg.Worker.UnhealthyThreshold,
		RateLimitCooldown:  cfg.Worker.RateLimitCooldown,
		RescaleAt:          cfg.Worker.RescaleAt,
		RescaleTo:          cfg.Worker.RescaleTo,
	}
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("metrics server failed to start", "error", err)
		}
	}

	pool := workerpool.New(poolCfg, store.WorkerRepo(), logger).WithMetrics(metrics)
	if err := pool.Load(ctx); err != nil {
		return nil, fmt.Errorf("load worker pool: %w", err)
	}
	for _, ep := range cfg.Worker.Endpoints {
		if _, err := pool.Add(ctx, ep, cfg.Worker.DailyQuota); err != nil {
			return nil, fmt.Errorf("add configured worker %q: %w", ep, err)
		}
	}

	controller, err := automation.NewController(ctx, store.SettingsRepo(), logger)
	if err != nil {
		return nil, fmt.Errorf("load automation state: %w", err)
	}

	executor := &scanexec.Executor{
		Domains:    store.DomainRepo(),
		Templates:  store.TemplateRepo(),
		Tasks:      store.TaskRepo(),
		Results:    store.ResultRepo(),
		Automation: controller,
		Strategies: &scanexec.StrategyFactory{
			WorkerModeEnabled: cfg.Worker.Enabled,
			Pool:              pool,
			HTTPClient:        &http.Client{Timeout: time.Duration(cfg.Worker.TimeoutMS) * time.Millisecond},
			WorkerBatchSize:   cfg.Worker.BatchSize,
			WorkerTimeoutMS:   cfg.Worker.TimeoutMS,
			Logger:            logger,
			Metrics:           metrics,
		},
		Logger:  logger,
		Metrics: metrics,
	}

	return &components{store: store, pool: pool, controller: controller, executor: executor, metrics: metrics}, nil
}

// serveCmd runs the automation scheduler + quota scheduler + resumability
// pass and blocks until signaled.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the automation scheduler and quota scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			c, err := buildComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.store.Close()

			scanexec.ResumeStaleTasks(ctx, c.store.TaskRepo(), c.executor, logger)

			scheduler := automation.NewScheduler(c.controller, c.store.SettingsRepo(), c.store.TaskRepo(), c.store.DomainRepo(), c.store.TemplateRepo(), c.executor, cfg.Automation.DefaultTemplates, cfg.Scan.Concurrency, logger).WithMetrics(c.metrics)
			quota := quotasched.NewScheduler(c.pool, logger)

			go scheduler.Run(ctx)
			go quota.Run(ctx)
			if cfg.Worker.Enabled {
				httpClient := &http.Client{}
				go c.pool.RunHealthChecks(ctx, cfg.Worker.HealthCheckInterval, func(ctx context.Context, endpointURL string) error {
					return workerclient.New(endpointURL, httpClient).HealthCheck(ctx)
				})
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			logger.Info("received signal, shutting down", "signal", sig)
			scheduler.Stop()
			quota.Stop()
			cancel()
			return nil
		},
	}
}

// scanCmd runs one manual scan task to completion.
func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "run a single manual scan task",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if scanTmpl == "" {
				return fmt.Errorf("--template is required")
			}
			target := scantypes.Target(scanTarget)
			if target != scantypes.TargetFull && target != scantypes.TargetIncremental {
				return fmt.Errorf("--target must be 'full' or 'incremental', got %q", scanTarget)
			}

			ctx := context.Background()
			c, err := buildComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer c.store.Close()

			task, err := c.store.TaskRepo().Create(ctx, scantypes.ScanTask{
				Name:        "manual",
				Target:      target,
				URLTemplate: scanTmpl,
				Concurrency: cfg.Scan.Concurrency,
			})
			if err != nil {
				return fmt.Errorf("create task: %w", err)
			}

			logger.Info("starting manual scan", "task_id", task.ID, "target", target)
			if err := c.executor.ExecuteScan(ctx, task.ID, true); err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			fmt.Printf("scan %s completed\n", task.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&scanTarget, "target", "incremental", "scan target: full or incremental")
	cmd.Flags().StringVar(&scanTmpl, "template", "", "comma-joined URL template(s) to scan")
	return cmd
}

// domainCmd groups ranked-domain-list subcommands.
func domainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "domain", Short: "manage the ranked domain list"}
	cmd.AddCommand(domainImportCmd())
	return cmd
}

// domainImportCmd ingests a ranked domain list CSV ("rank,domain" rows,
// or one domain per line with rank assigned by position).
func domainImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [csv-file]",
		Short: "import a ranked domain list CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfg.Scan.DomainListPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no CSV path given and scan.domain_list_path is unset")
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open domain list: %w", err)
			}
			defer f.Close()

			ctx := context.Background()
			store, err := sqlite.New(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Ensure(ctx); err != nil {
				return err
			}

			domains := store.DomainRepo()
			now := time.Now().UTC()
			reader := csv.NewReader(f)
			reader.FieldsPerRecord = -1

			var imported, line int
			for {
				record, err := reader.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return fmt.Errorf("read domain list row %d: %w", line+1, err)
				}
				line++

				name := record[0]
				rank := line
				if len(record) >= 2 {
					if n, err := strconv.Atoi(record[0]); err == nil {
						rank = n
						name = record[1]
					}
				}
				name = strings.ToLower(strings.TrimSpace(name))
				if name == "" {
					continue
				}

				err = domains.Upsert(ctx, scantypes.Domain{
					Name:            name,
					Rank:            rank,
					FirstSeenAt:     now,
					LastSeenInCsvAt: now,
				})
				if err != nil {
					return fmt.Errorf("upsert %q: %w", name, err)
				}
				imported++
			}

			fmt.Printf("imported %d domains from %s\n", imported, path)
			return nil
		},
	}
}

// workerCmd groups worker-pool management subcommands.
func workerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "worker", Short: "manage worker endpoints"}
	cmd.AddCommand(workerAddCmd())
	cmd.AddCommand(workerListCmd())
	cmd.AddCommand(workerDisableCmd())
	return cmd
}

func workerAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "register a new https:// worker endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			quota := workerQuota
			if quota <= 0 {
				quota = cfg.Worker.DailyQuota
			}

			ctx := context.Background()
			store, err := sqlite.New(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Ensure(ctx); err != nil {
				return err
			}

			pool := workerpool.New(workerpool.DefaultConfig(), store.WorkerRepo(), logger)
			w, err := pool.Add(ctx, args[0], quota)
			if err != nil {
				return fmt.Errorf("add worker: %w", err)
			}
			fmt.Printf("added worker %s (%s), daily quota %d\n", w.ID, w.URL, w.DailyQuota)
			return nil
		},
	}
	cmd.Flags().IntVar(&workerQuota, "quota", 0, "daily request quota (defaults to worker.daily_quota)")
	return cmd
}

func workerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list registered worker endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, err := sqlite.New(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			pool := workerpool.New(workerpool.DefaultConfig(), store.WorkerRepo(), logger)
			if err := pool.Load(ctx); err != nil {
				return err
			}
			for _, w := range pool.Snapshot() {
				fmt.Printf("%s  %s  healthy=%v  usage=%d/%d  disabled=%v\n", w.ID, w.URL, w.Healthy, w.DailyUsage, w.DailyQuota, w.PermanentlyDisabled)
			}
			return nil
		},
	}
}

func workerDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id> <reason>",
		Short: "permanently disable a worker endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, err := sqlite.New(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			pool := workerpool.New(workerpool.DefaultConfig(), store.WorkerRepo(), logger)
			if err := pool.Load(ctx); err != nil {
				return err
			}
			if err := pool.Disable(ctx, args[0], scantypes.WorkerBlockReason(args[1])); err != nil {
				return err
			}
			fmt.Printf("disabled worker %s\n", args[0])
			return nil
		},
	}
}

// templateCmd groups path-template management subcommands.
func templateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "template", Short: "manage path templates"}
	cmd.AddCommand(templateValidateCmd())
	return cmd
}

func templateValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [template...]",
		Short: "validate template placeholder syntax (reads stdin if no args given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := args
			if len(templates) == 0 {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					if line := scanner.Text(); line != "" {
						templates = append(templates, line)
					}
				}
			}
			var failed int
			for _, t := range templates {
				if err := placeholder.ValidateTemplate(t); err != nil {
					fmt.Printf("INVALID  %s: %v\n", t, err)
					failed++
					continue
				}
				fmt.Printf("OK       %s\n", t)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates invalid", failed, len(templates))
			}
			return nil
		},
	}
}

// automationCmd groups the automation pause gate's enable/disable/
// toggle/status operations behind the CLI.
func automationCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "automation", Short: "control the automation pause gate"}
	cmd.AddCommand(automationEnableCmd())
	cmd.AddCommand(automationDisableCmd())
	cmd.AddCommand(automationToggleCmd())
	cmd.AddCommand(automationStatusCmd())
	return cmd
}

func newAutomationController(ctx context.Context, logger *slog.Logger) (*automation.Controller, *sqlite.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ensure(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	controller, err := automation.NewController(ctx, store.SettingsRepo(), logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return controller, store, nil
}

func automationEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "turn automation on",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			controller, store, err := newAutomationController(ctx, setupLogger())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := controller.Enable(ctx); err != nil {
				return err
			}
			fmt.Println("automation enabled")
			return nil
		},
	}
}

func automationDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "pause automation (in-flight scans are unaffected)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			controller, store, err := newAutomationController(ctx, setupLogger())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := controller.Disable(ctx); err != nil {
				return err
			}
			fmt.Println("automation disabled")
			return nil
		},
	}
}

func automationToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "flip the automation pause gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			controller, store, err := newAutomationController(ctx, setupLogger())
			if err != nil {
				return err
			}
			defer store.Close()
			enabled, err := controller.Toggle(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("automation enabled=%v\n", enabled)
			return nil
		},
	}
}

func automationStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report automation enabled/lastPausedAt/uptime",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			controller, store, err := newAutomationController(ctx, setupLogger())
			if err != nil {
				return err
			}
			defer store.Close()
			status, err := controller.GetStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("enabled=%v\n", status.Enabled)
			if status.LastPausedAt != nil {
				fmt.Printf("lastPausedAt=%s\n", status.LastPausedAt.Format(time.RFC3339))
			}
			if status.Uptime != nil {
				fmt.Printf("uptime=%s\n", status.Uptime.Round(time.Second))
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("domainscan %s\n", config.Version)
		},
	}
}
