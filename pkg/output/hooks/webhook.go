package hooks

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/duration"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/jsonutil"
	"github.com/pyrate-scanner/pyrate/pkg/output/dispatcher"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
)

var _ dispatcher.Hook = (*WebhookHook)(nil)

// EventTypeHeader carries the event type on every webhook request.
const EventTypeHeader = "X-Pyrate-Event-Type"

// WebhookHook POSTs each event as JSON to an HTTP endpoint. Delivery
// failures are logged and never block the scan.
type WebhookHook struct {
	endpoint string
	client   *httpclient.Client
	opts     WebhookOptions
	logger   *slog.Logger
}

// WebhookOptions configures the webhook hook behavior.
type WebhookOptions struct {
	// Headers to include in requests.
	Headers map[string]string

	// Timeout for each request (default: 10s).
	Timeout time.Duration

	// RetryCount for 5xx responses and connection resets (default: 3).
	// Negative disables retries.
	RetryCount int

	// OnlyFindings sends finding and scan_complete events only.
	OnlyFindings bool

	// MinSeverity drops finding events below this severity.
	MinSeverity finding.Severity

	// Logger for delivery failures. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewWebhookHook creates a hook that sends events to endpoint.
func NewWebhookHook(endpoint string, opts WebhookOptions) (*WebhookHook, error) {
	if opts.Timeout == 0 {
		opts.Timeout = duration.HookConnect
	}
	switch {
	case opts.RetryCount == 0:
		opts.RetryCount = defaults.RetryLow
	case opts.RetryCount < 0:
		opts.RetryCount = 0
	}

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = opts.Timeout
	cfg.Retries = opts.RetryCount
	cfg.RetryInitDelay = 100 * time.Millisecond
	cfg.FollowRedirects = false
	cfg.UserAgent = defaults.ToolName + "/" + defaults.Version

	logger := orDefault(opts.Logger)
	client, err := httpclient.New(cfg, httpclient.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &WebhookHook{endpoint: endpoint, client: client, opts: opts, logger: logger}, nil
}

// OnEvent sends the event. It always returns nil.
func (h *WebhookHook) OnEvent(ctx context.Context, event events.Event) error {
	if !h.wants(event) {
		return nil
	}

	body, err := jsonutil.Marshal(event)
	if err != nil {
		h.logger.Warn("webhook: failed to marshal event",
			slog.String("type", string(event.EventType())),
			slog.String("error", err.Error()),
		)
		return nil
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(EventTypeHeader, string(event.EventType()))
	for k, v := range h.opts.Headers {
		headers.Set(k, v)
	}

	_, err = h.client.Do(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     h.endpoint,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		h.logger.Warn("webhook: failed to send event",
			slog.String("type", string(event.EventType())),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (h *WebhookHook) wants(event events.Event) bool {
	switch e := event.(type) {
	case *events.FindingEvent:
		return h.opts.MinSeverity == "" || e.Finding.Severity.AtLeast(h.opts.MinSeverity)
	case *events.ScanCompleteEvent:
		return true
	}
	return !h.opts.OnlyFindings
}

// EventTypes returns nil to receive every event; OnEvent filters.
func (h *WebhookHook) EventTypes() []events.EventType { return nil }
