package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/duration"
	"github.com/pyrate-scanner/pyrate/pkg/output/dispatcher"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook exposes scan metrics for Prometheus scraping.
// It starts an HTTP server that serves metrics at the configured path.
type PrometheusHook struct {
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry
	opts     PrometheusOptions
	logger   *slog.Logger

	// Counters
	scansTotal    *prometheus.CounterVec
	pluginRuns    *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec

	// Gauges
	pluginsRunning      prometheus.Gauge
	scanDurationSeconds *prometheus.GaugeVec

	// Histograms
	pluginDuration *prometheus.HistogramVec

	mu      sync.Mutex
	running map[string]struct{} // scan_id/plugin
	closed  bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Addr is the listen address (default ":9090"). Use "127.0.0.1:0" for
	// an ephemeral port.
	Addr string

	// Path for the metrics endpoint (default: "/metrics").
	Path string

	// ReadTimeout for the HTTP server (default: 5s).
	ReadTimeout time.Duration

	// WriteTimeout for the HTTP server (default: 10s).
	WriteTimeout time.Duration

	// Logger for server errors. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewPrometheusHook creates the hook and starts serving metrics. The server
// runs until Close is called.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Addr == "" {
		opts.Addr = ":9090"
	}
	if opts.Path == "" {
		opts.Path = defaults.MetricsPath
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = duration.HookShutdown
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = duration.HookConnect
	}

	// Custom registry; the default one carries process collectors.
	hook := &PrometheusHook{
		registry: prometheus.NewRegistry(),
		opts:     opts,
		logger:   orDefault(opts.Logger),
		running:  make(map[string]struct{}),
	}

	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("prometheus: initialize metrics: %w", err)
	}
	if err := hook.startServer(); err != nil {
		return nil, fmt.Errorf("prometheus: start metrics server: %w", err)
	}
	return hook, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics() error {
	h.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyrate_scans_total",
			Help: "Scans finished, by terminal state",
		},
		[]string{"state"},
	)

	h.pluginRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyrate_plugin_runs_total",
			Help: "Plugin runs finished, by plugin and outcome status",
		},
		[]string{"plugin", "status"},
	)

	h.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyrate_findings_total",
			Help: "Vulnerabilities reported, by plugin and severity",
		},
		[]string{"plugin", "severity"},
	)

	h.pluginsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pyrate_plugins_running",
		Help: "Plugins currently holding a scheduler slot",
	})

	h.scanDurationSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pyrate_scan_duration_seconds",
			Help: "Duration of the last scan of each target",
		},
		[]string{"target"},
	)

	h.pluginDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pyrate_plugin_duration_seconds",
			Help:    "Plugin run duration distribution",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"plugin"},
	)

	collectors := []prometheus.Collector{
		h.scansTotal,
		h.pluginRuns,
		h.findingsTotal,
		h.pluginsRunning,
		h.scanDurationSeconds,
		h.pluginDuration,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// startServer binds the listener synchronously so address errors surface
// here, then serves in the background.
func (h *PrometheusHook) startServer() error {
	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return err
	}
	h.listener = ln

	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	h.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("prometheus: metrics server error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// OnEvent updates metrics from lifecycle events.
func (h *PrometheusHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.PluginStartEvent:
		h.running[e.ScanID()+"/"+e.Plugin] = struct{}{}
		h.pluginsRunning.Inc()
	case *events.PluginOutcomeEvent:
		h.pluginRuns.WithLabelValues(e.Plugin, string(e.Status)).Inc()
		// unscheduled plugins get an outcome without ever starting
		key := e.ScanID() + "/" + e.Plugin
		if _, ok := h.running[key]; ok {
			delete(h.running, key)
			h.pluginsRunning.Dec()
			h.pluginDuration.WithLabelValues(e.Plugin).Observe(float64(e.DurationMs) / 1000)
		}
	case *events.FindingEvent:
		h.findingsTotal.WithLabelValues(e.Finding.Plugin, string(e.Finding.Severity)).Inc()
	case *events.ScanCompleteEvent:
		h.scansTotal.WithLabelValues(string(e.State)).Inc()
		h.scanDurationSeconds.WithLabelValues(e.Target).Set(float64(e.DurationMs) / 1000)
	}
	return nil
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypePluginStart,
		events.EventTypePluginOutcome,
		events.EventTypeFinding,
		events.EventTypeScanComplete,
	}
}

// Registry returns the hook's registry.
func (h *PrometheusHook) Registry() *prometheus.Registry { return h.registry }

// Close shuts down the metrics server.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), duration.HookShutdown)
	defer cancel()
	return h.server.Shutdown(ctx)
}

// MetricsAddr returns the URL where metrics are served.
func (h *PrometheusHook) MetricsAddr() string {
	return "http://" + h.listener.Addr().String() + h.opts.Path
}
