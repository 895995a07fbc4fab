// Package scheduler runs plugins against a target under a concurrency cap,
// per-slot request pacing, a per-plugin timeout and an optional hard
// deadline, and hands every outcome to the aggregator.
//
// Fault isolation is the central invariant: a plugin error, panic or hang
// becomes that plugin's outcome and never affects sibling runs. Every
// scheduled plugin produces exactly one outcome, so the result always has
// one entry per selected plugin.
//
// Usage:
//
//	s := scheduler.New(cfg, client, scheduler.WithPublisher(disp))
//	res, err := s.Scan(ctx, "https://example.com", plugins)
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/aggregator"
	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
	"github.com/pyrate-scanner/pyrate/pkg/plugin"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

// Publisher receives lifecycle events. *dispatcher.Dispatcher satisfies it.
type Publisher interface {
	Dispatch(ctx context.Context, event events.Event) error
}

// Scheduler runs scans. It holds only immutable configuration and may run
// several scans concurrently.
type Scheduler struct {
	cfg       Config
	client    plugin.Requester
	policy    target.Policy
	logger    *slog.Logger
	publisher Publisher
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPublisher sets the lifecycle event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// New creates a Scheduler. Invalid configuration values are replaced with
// defaults; callers that need to reject them call Config.Validate first.
func New(cfg Config, client plugin.Requester, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.PluginTimeout <= 0 {
		cfg.PluginTimeout = def.PluginTimeout
	}
	cfg.InterRequestDelay = max(cfg.InterRequestDelay, 0)
	cfg.HardDeadline = max(cfg.HardDeadline, 0)

	s := &Scheduler{
		cfg:    cfg,
		client: client,
		policy: target.Policy{AllowRestricted: cfg.AllowRestricted},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Scan parses rawURL and runs plugins against it.
func (s *Scheduler) Scan(ctx context.Context, rawURL string, plugins []plugin.Plugin) (*aggregator.ScanResult, error) {
	if len(plugins) == 0 {
		return nil, ErrNoPluginsSelected
	}
	t, err := target.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, t, plugins)
}

// RunTargets validates every target, then scans them one after another.
// It returns one result per target; a cancelled ctx yields Aborted results
// for the remaining targets rather than an error.
func (s *Scheduler) RunTargets(ctx context.Context, rawURLs []string, plugins []plugin.Plugin) ([]*aggregator.ScanResult, error) {
	if len(plugins) == 0 {
		return nil, ErrNoPluginsSelected
	}
	if len(rawURLs) == 0 {
		return nil, ErrNoTargets
	}

	targets := make([]*target.Target, 0, len(rawURLs))
	for _, raw := range rawURLs {
		t, err := target.Parse(raw)
		if err != nil {
			return nil, err
		}
		if err := s.policy.Check(t); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	results := make([]*aggregator.ScanResult, 0, len(targets))
	for _, t := range targets {
		res, err := s.Run(ctx, t, plugins)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Run scans t with plugins. It fails fast, before any network activity,
// when plugins is empty, names repeat or t violates the target policy.
// Otherwise it always returns a finalized result.
func (s *Scheduler) Run(ctx context.Context, t *target.Target, plugins []plugin.Plugin) (*aggregator.ScanResult, error) {
	if len(plugins) == 0 {
		return nil, ErrNoPluginsSelected
	}
	if err := s.policy.Check(t); err != nil {
		return nil, err
	}

	metas := make([]plugin.Metadata, len(plugins))
	order := make([]string, len(plugins))
	seen := make(map[string]struct{}, len(plugins))
	for i, p := range plugins {
		metas[i] = p.Metadata()
		if risk, ok := finding.ParseSeverity(string(metas[i].Risk)); ok {
			metas[i].Risk = risk
		}
		order[i] = metas[i].Name
		if _, dup := seen[order[i]]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlugin, order[i])
		}
		seen[order[i]] = struct{}{}
	}

	run := &scan{
		s:      s,
		target: t,
		agg:    aggregator.New(t.URL, order),
		// events must still flow after ctx is cancelled
		eventCtx: context.WithoutCancel(ctx),
	}
	run.logger = s.logger.With(slog.String("scan_id", run.agg.ID()), slog.String("target", t.URL))
	return run.execute(ctx, plugins, metas)
}

// scan is the state of one Run.
type scan struct {
	s        *Scheduler
	target   *target.Target
	agg      *aggregator.Aggregator
	logger   *slog.Logger
	eventCtx context.Context
}

func (r *scan) execute(ctx context.Context, plugins []plugin.Plugin, metas []plugin.Metadata) (*aggregator.ScanResult, error) {
	cfg := r.s.cfg

	r.logger.Debug("scan started",
		slog.Int("plugins", len(plugins)),
		slog.Int("max_concurrent", cfg.MaxConcurrent),
		slog.Duration("plugin_timeout", cfg.PluginTimeout),
		slog.Duration("delay", cfg.InterRequestDelay),
	)
	r.publish(&events.ScanStartEvent{
		BaseEvent: events.NewBase(events.EventTypeScanStart, r.agg.ID()),
		Target:    r.target.URL,
		Plugins:   namesOf(metas),
		Config: events.ScanConfig{
			MaxConcurrent:   cfg.MaxConcurrent,
			PluginTimeoutMs: cfg.PluginTimeout.Milliseconds(),
			DelayMs:         cfg.InterRequestDelay.Milliseconds(),
			HardDeadlineMs:  cfg.HardDeadline.Milliseconds(),
		},
	})

	// Admission stops at the hard deadline; in-flight runs derive from ctx
	// so the deadline never cancels them.
	admitCtx := ctx
	if cfg.HardDeadline > 0 {
		var cancel context.CancelFunc
		admitCtx, cancel = context.WithTimeout(ctx, cfg.HardDeadline)
		defer cancel()
	}

	slots := newSlots(cfg.MaxConcurrent, cfg)
	var wg sync.WaitGroup
	aborted := false

admit:
	for i, p := range plugins {
		var sl *slot
		select {
		case sl = <-slots:
			if admitCtx.Err() != nil {
				slots <- sl
				sl = nil
			}
		case <-admitCtx.Done():
		}

		if sl == nil {
			reason, detail := r.admissionStopped(ctx, admitCtx)
			r.logger.Warn("admission stopped",
				slog.String("reason", string(reason)),
				slog.Int("unscheduled", len(plugins)-i),
			)
			for _, meta := range metas[i:] {
				r.record(meta, aggregator.Failed(reason, detail))
			}
			aborted = true
			break admit
		}

		wg.Add(1)
		go func(p plugin.Plugin, meta plugin.Metadata, sl *slot) {
			defer wg.Done()
			outcome := r.runOne(ctx, sl, p, meta)
			// the slot is free as soon as the outcome is known, even if an
			// abandoned plugin goroutine is still unwinding
			slots <- sl
			r.record(meta, outcome)
		}(p, metas[i], sl)
	}

	wg.Wait()

	state := aggregator.StateAborted
	if !aborted {
		state = r.agg.SettledState()
	}

	res, err := r.agg.Finalize(state)
	if err != nil {
		// every plugin records exactly once above, so this is a bug
		return nil, fmt.Errorf("scheduler: finalize: %w", err)
	}

	r.logger.Debug("scan finished",
		slog.String("state", string(res.State)),
		slog.Int("findings", res.Summary.Total),
		slog.Duration("elapsed", res.Elapsed()),
	)
	r.publish(&events.ScanCompleteEvent{
		BaseEvent:  events.NewBase(events.EventTypeScanComplete, res.ID),
		Target:     res.Target,
		State:      res.State,
		Summary:    res.Summary,
		DurationMs: res.Elapsed().Milliseconds(),
		Result:     res,
	})
	return res, nil
}

func (r *scan) admissionStopped(parent, admit context.Context) (aggregator.ErrorKind, string) {
	if parent.Err() == nil && errors.Is(admit.Err(), context.DeadlineExceeded) {
		return aggregator.KindDeadlineExceeded, fmt.Sprintf("hard deadline of %s reached before the plugin was scheduled", r.s.cfg.HardDeadline)
	}
	return aggregator.KindCanceled, "scan cancelled before the plugin was scheduled"
}

// runOne executes one plugin under the per-plugin timeout. It returns when
// the plugin returns or the timeout fires, whichever comes first.
func (r *scan) runOne(parent context.Context, sl *slot, p plugin.Plugin, meta plugin.Metadata) aggregator.Outcome {
	cfg := r.s.cfg
	ctx, cancel := context.WithTimeout(parent, cfg.PluginTimeout)
	defer cancel()

	r.publish(&events.PluginStartEvent{
		BaseEvent: events.NewBase(events.EventTypePluginStart, r.agg.ID()),
		Target:    r.target.URL,
		Plugin:    meta.Name,
		Category:  meta.Category,
		Slot:      sl.id,
	})
	r.logger.Debug("plugin started", slog.String("plugin", meta.Name), slog.Int("slot", sl.id))

	start := time.Now()
	done := make(chan aggregator.Outcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				r.logger.Error("plugin panicked",
					slog.String("plugin", meta.Name),
					slog.Any("panic", v),
					slog.String("stack", string(debug.Stack())),
				)
				done <- aggregator.Failed(aggregator.KindPluginPanic, fmt.Sprint(v))
			}
		}()
		findings, err := p.Run(ctx, r.target, sl.requester(r.s.client))
		done <- r.classify(parent, ctx, meta, findings, err)
	}()

	select {
	case o := <-done:
		return o.WithDuration(time.Since(start))
	case <-ctx.Done():
		if parent.Err() != nil {
			return aggregator.Failed(aggregator.KindCanceled, "scan cancelled while the plugin was running").WithDuration(time.Since(start))
		}
		return aggregator.TimedOut(fmt.Sprintf("no result within %s", cfg.PluginTimeout)).WithDuration(time.Since(start))
	}
}

// classify turns a plugin's return values into an outcome.
func (r *scan) classify(parent, ctx context.Context, meta plugin.Metadata, findings []finding.Vulnerability, err error) aggregator.Outcome {
	if err != nil {
		var herr *httpclient.Error
		switch {
		case parent.Err() != nil:
			return aggregator.Failed(aggregator.KindCanceled, err.Error())
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return aggregator.TimedOut(fmt.Sprintf("no result within %s: %v", r.s.cfg.PluginTimeout, err))
		case errors.As(err, &herr):
			return aggregator.Failed(aggregator.KindHTTPError, err.Error())
		default:
			return aggregator.Failed(aggregator.KindPluginError, err.Error())
		}
	}

	out := make([]finding.Vulnerability, 0, len(findings))
	for i, f := range findings {
		f.Plugin = meta.Name
		if f.Category == "" {
			f.Category = meta.Category
		}
		if f.Severity == "" {
			f.Severity = meta.Risk
		}
		if sev, ok := finding.ParseSeverity(string(f.Severity)); ok {
			f.Severity = sev
		}
		if f.Location == "" {
			f.Location = r.target.URL
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = time.Now().UTC()
		}
		if verr := f.Validate(); verr != nil {
			return aggregator.Failed(aggregator.KindPluginError, fmt.Sprintf("finding %d: %v", i, verr))
		}
		out = append(out, f)
	}
	return aggregator.Ok(out)
}

func (r *scan) record(meta plugin.Metadata, o aggregator.Outcome) {
	if err := r.agg.Record(meta.Name, o); err != nil {
		r.logger.Error("outcome rejected", slog.String("plugin", meta.Name), slog.String("error", err.Error()))
		return
	}

	r.logger.Debug("plugin finished",
		slog.String("plugin", meta.Name),
		slog.String("status", string(o.Status)),
		slog.String("reason", string(o.Reason)),
		slog.Int("findings", len(o.Findings)),
		slog.Duration("elapsed", o.Duration),
	)
	for _, f := range o.Findings {
		r.publish(&events.FindingEvent{
			BaseEvent: events.NewBase(events.EventTypeFinding, r.agg.ID()),
			Target:    r.target.URL,
			Finding:   f,
		})
	}
	r.publish(&events.PluginOutcomeEvent{
		BaseEvent:  events.NewBase(events.EventTypePluginOutcome, r.agg.ID()),
		Target:     r.target.URL,
		Plugin:     meta.Name,
		Status:     o.Status,
		Reason:     o.Reason,
		Detail:     o.Detail,
		Findings:   len(o.Findings),
		DurationMs: o.Duration.Milliseconds(),
	})
}

func (r *scan) publish(e events.Event) {
	if r.s.publisher == nil {
		return
	}
	_ = r.s.publisher.Dispatch(r.eventCtx, e)
}

func namesOf(metas []plugin.Metadata) []string {
	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Name
	}
	return out
}
