package observability

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks operational metrics for the scan engine, exported in
// Prometheus exposition format via promhttp.
type Metrics struct {
	ProbesSent        prometheus.Counter
	ProbesFailed      prometheus.Counter
	Hits              prometheus.Counter
	WorkerFailovers   prometheus.Counter
	QuotaExhaustions  prometheus.Counter
	WorkerBlocked     *prometheus.CounterVec
	PoolHealthy       prometheus.Gauge
	SchedulerIdle     prometheus.Gauge
	TaskProgress      prometheus.Gauge

	logger *slog.Logger
	reg    *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with its own registry, so
// multiple Metrics instances (e.g. in tests) never collide on the
// default global registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		ProbesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainscan_probes_sent_total",
			Help: "Total HTTP probes sent across local scans and worker batches.",
		}),
		ProbesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainscan_probes_failed_total",
			Help: "Total probes that did not yield an HTTP status (timeout, DNS, connection reset).",
		}),
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainscan_hits_total",
			Help: "Total 200 responses that passed their template's content-type/size filters.",
		}),
		WorkerFailovers: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainscan_worker_failovers_total",
			Help: "Total times a batch fell back to local scanning after worker exhaustion or block.",
		}),
		QuotaExhaustions: factory.NewCounter(prometheus.CounterOpts{
			Name: "domainscan_quota_exhaustions_total",
			Help: "Total times a worker endpoint was excluded from selection for hitting its daily quota.",
		}),
		WorkerBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "domainscan_worker_blocked_total",
			Help: "Total worker endpoints permanently disabled, labeled by reason.",
		}, []string{"reason"}),
		PoolHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "domainscan_pool_healthy_endpoints",
			Help: "Current count of worker endpoints eligible for selection.",
		}),
		SchedulerIdle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "domainscan_scheduler_idle",
			Help: "1 when the automation scheduler has no active task, 0 otherwise.",
		}),
		TaskProgress: factory.NewGauge(prometheus.GaugeOpts{
			Name: "domainscan_task_progress_percent",
			Help: "Progress percentage of the currently running scan task, if any.",
		}),
		logger: logger.With("component", "metrics"),
		reg:    reg,
	}
}

// The Inc*/Set* helpers are nil-receiver-safe so every call site can
// hold a possibly-nil *Metrics (metrics.enabled=false in config) without
// branching on every call.

func (m *Metrics) IncProbesSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ProbesSent.Add(float64(n))
}

func (m *Metrics) IncProbesFailed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ProbesFailed.Add(float64(n))
}

func (m *Metrics) IncHits(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Hits.Add(float64(n))
}

func (m *Metrics) IncWorkerFailover() {
	if m == nil {
		return
	}
	m.WorkerFailovers.Inc()
}

func (m *Metrics) IncQuotaExhaustion() {
	if m == nil {
		return
	}
	m.QuotaExhaustions.Inc()
}

func (m *Metrics) IncWorkerBlocked(reason string) {
	if m == nil {
		return
	}
	m.WorkerBlocked.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetPoolHealthy(n int) {
	if m == nil {
		return
	}
	m.PoolHealthy.Set(float64(n))
}

func (m *Metrics) SetSchedulerIdle(idle bool) {
	if m == nil {
		return
	}
	if idle {
		m.SchedulerIdle.Set(1)
	} else {
		m.SchedulerIdle.Set(0)
	}
}

func (m *Metrics) SetTaskProgress(percent int) {
	if m == nil {
		return
	}
	m.TaskProgress.Set(float64(percent))
}

// Handler returns the promhttp handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}
