package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/duration"
	"github.com/pyrate-scanner/pyrate/pkg/output/dispatcher"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*OTelHook)(nil)

// OTelHook exports scans as traces: one root span per scan and one child
// span per plugin run, with findings recorded as span events.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	mu      sync.Mutex
	scans   map[string]scanSpan   // by scan ID
	plugins map[string]trace.Span // by scan ID + "/" + plugin
	closed  bool
}

type scanSpan struct {
	ctx  context.Context
	span trace.Span
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP/gRPC endpoint (default: "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "pyrate").
	ServiceName string

	// Insecure uses a plaintext connection.
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout bounds the final flush (default: 5s).
	ShutdownTimeout time.Duration

	// ConnectionTimeout bounds exporter setup (default: 10s).
	ConnectionTimeout time.Duration

	// Exporter replaces the OTLP exporter; spans are exported
	// synchronously. Endpoint and the connection options are ignored.
	Exporter sdktrace.SpanExporter
}

// NewOTelHook creates the hook. The gRPC connection is established lazily,
// so an unreachable collector does not fail construction or block scans.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "localhost:4317"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = duration.HookShutdown
	}
	if opts.ConnectionTimeout == 0 {
		opts.ConnectionTimeout = duration.HookConnect
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "scanner"),
	)
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if opts.Exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(opts.Exporter))
	} else {
		exporter, err := newOTLPExporter(opts)
		if err != nil {
			return nil, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &OTelHook{
		opts:           opts,
		tracerProvider: tp,
		tracer:         tp.Tracer(defaults.ToolName + "/scheduler"),
		scans:          make(map[string]scanSpan),
		plugins:        make(map[string]trace.Span),
	}, nil
}

func newOTLPExporter(opts OTelOptions) (sdktrace.SpanExporter, error) {
	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("otel: create exporter: %w", err)
	}
	return exporter, nil
}

// OnEvent turns lifecycle events into spans.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.ScanStartEvent:
		h.handleScanStart(ctx, e)
	case *events.PluginStartEvent:
		h.handlePluginStart(e)
	case *events.FindingEvent:
		h.handleFinding(e)
	case *events.PluginOutcomeEvent:
		h.handlePluginOutcome(e)
	case *events.ScanCompleteEvent:
		h.handleScanComplete(e)
	}
	return nil
}

func (h *OTelHook) handleScanStart(ctx context.Context, e *events.ScanStartEvent) {
	spanCtx, span := h.tracer.Start(ctx, defaults.ToolName+".scan",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(e.Timestamp()),
		trace.WithAttributes(
			attribute.String("scan_id", e.ScanID()),
			attribute.String("target", e.Target),
			attribute.StringSlice("plugins", e.Plugins),
			attribute.Int("max_concurrent", e.Config.MaxConcurrent),
			attribute.Int64("plugin_timeout_ms", e.Config.PluginTimeoutMs),
			attribute.Int64("inter_request_delay_ms", e.Config.DelayMs),
		),
	)
	h.scans[e.ScanID()] = scanSpan{ctx: spanCtx, span: span}
}

func (h *OTelHook) handlePluginStart(e *events.PluginStartEvent) {
	root, ok := h.scans[e.ScanID()]
	if !ok {
		return
	}
	_, span := h.tracer.Start(root.ctx, defaults.ToolName+".plugin",
		trace.WithTimestamp(e.Timestamp()),
		trace.WithAttributes(
			attribute.String("plugin", e.Plugin),
			attribute.String("category", e.Category),
			attribute.Int("slot", e.Slot),
		),
	)
	h.plugins[e.ScanID()+"/"+e.Plugin] = span
}

func (h *OTelHook) handleFinding(e *events.FindingEvent) {
	span, ok := h.plugins[e.ScanID()+"/"+e.Finding.Plugin]
	if !ok {
		return
	}
	span.AddEvent("finding", trace.WithAttributes(
		attribute.String("title", e.Finding.Title),
		attribute.String("severity", string(e.Finding.Severity)),
		attribute.String("location", e.Finding.Location),
	))
}

func (h *OTelHook) handlePluginOutcome(e *events.PluginOutcomeEvent) {
	key := e.ScanID() + "/" + e.Plugin
	span, ok := h.plugins[key]
	if !ok {
		// never admitted; record on the scan span instead
		if root, ok := h.scans[e.ScanID()]; ok {
			root.span.AddEvent("plugin_unscheduled", trace.WithAttributes(
				attribute.String("plugin", e.Plugin),
				attribute.String("reason", string(e.Reason)),
			))
		}
		return
	}
	delete(h.plugins, key)

	span.SetAttributes(
		attribute.String("status", string(e.Status)),
		attribute.Int("findings", e.Findings),
	)
	if e.Status == aggregator.StatusOK {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetAttributes(attribute.String("reason", string(e.Reason)))
		span.SetStatus(codes.Error, e.Detail)
	}
	span.End(trace.WithTimestamp(e.Timestamp()))
}

func (h *OTelHook) handleScanComplete(e *events.ScanCompleteEvent) {
	root, ok := h.scans[e.ScanID()]
	if !ok {
		return
	}
	delete(h.scans, e.ScanID())

	root.span.SetAttributes(
		attribute.String("state", string(e.State)),
		attribute.Int("findings", e.Summary.Total),
		attribute.Int("plugins.ok", e.Summary.Plugins.OK),
		attribute.Int("plugins.failed", e.Summary.Plugins.Failed),
		attribute.Int("plugins.timed_out", e.Summary.Plugins.TimedOut),
	)
	if e.State == aggregator.StateCompleted {
		root.span.SetStatus(codes.Ok, "")
	} else {
		root.span.SetStatus(codes.Error, e.State.Label())
	}
	root.span.End(trace.WithTimestamp(e.Timestamp()))
}

// EventTypes returns the event types this hook handles.
func (h *OTelHook) EventTypes() []events.EventType {
	return events.AllTypes
}

// Close ends any open spans and flushes the tracer provider.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for key, span := range h.plugins {
		span.End()
		delete(h.plugins, key)
	}
	for id, root := range h.scans {
		root.span.End()
		delete(h.scans, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown tracer provider: %w", err)
	}
	return nil
}

// Endpoint returns the OTLP endpoint being used.
func (h *OTelHook) Endpoint() string {
	return h.opts.Endpoint
}

// ServiceName returns the service name being used.
func (h *OTelHook) ServiceName() string {
	return h.opts.ServiceName
}
