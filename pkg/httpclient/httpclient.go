// Package httpclient is the HTTP adapter shared by every plugin run.
//
// A Client holds only read-only configuration and a pooled transport, so one
// instance is safe for concurrent use by any number of plugins. Each call
// enforces its own timeout, retries transient failures with capped
// exponential backoff, and returns either a buffered Response or a classified
// *Error.
//
// Inter-request pacing is not done here; the scheduler wraps the client with
// a per-slot limiter and hands it in as Request.RetryPacer so retries are
// spaced the same way.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pyrate-scanner/pyrate/pkg/defaults"
	"github.com/pyrate-scanner/pyrate/pkg/duration"
	"github.com/pyrate-scanner/pyrate/pkg/retry"
)

// Config holds HTTP adapter configuration.
type Config struct {
	// Timeout bounds a single attempt including body read (default: 10s).
	Timeout time.Duration

	// Retries is the number of extra attempts for transient failures.
	Retries int

	// RetryInitDelay is the first backoff delay (default: 1s).
	RetryInitDelay time.Duration

	// RetryMaxDelay caps any backoff delay (default: 10s).
	RetryMaxDelay time.Duration

	// VerifyTLS enables certificate verification.
	VerifyTLS bool

	// UserAgent is sent when the request does not set one.
	UserAgent string

	// FollowRedirects follows up to MaxRedirects redirects. When false the
	// redirect response itself is returned.
	FollowRedirects bool

	// MaxRedirects bounds redirect chains (default: 10).
	MaxRedirects int

	// MaxResponseSize caps buffered body bytes (default: 10MB).
	MaxResponseSize int64

	// Proxy is an http, https or socks5 proxy URL (optional).
	Proxy string

	// MaxConnsPerHost bounds pooled connections per host (default: 25).
	MaxConnsPerHost int
}

// DefaultConfig returns defaults suited to scanning a single web target.
func DefaultConfig() Config {
	return Config{
		Timeout:         duration.HTTPRequest,
		Retries:         defaults.RetryLow,
		RetryInitDelay:  duration.RetryInitial,
		RetryMaxDelay:   duration.RetryCeiling,
		VerifyTLS:       true,
		UserAgent:       defaults.UserAgent,
		MaxRedirects:    10,
		MaxResponseSize: defaults.BufferMax,
		MaxConnsPerHost: 25,
	}
}

// Request describes one outbound call.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte

	// Timeout overrides Config.Timeout for this call when positive.
	Timeout time.Duration

	// RetryPacer, when set, is waited on before every retry attempt. The
	// caller paces the first attempt.
	RetryPacer Pacer
}

// Pacer spaces outbound attempts. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Proto      string
	Header     http.Header
	Body       []byte

	// URL is the final URL after any followed redirects.
	URL string

	// Truncated is set when the body exceeded MaxResponseSize.
	Truncated bool

	Duration time.Duration
}

// BodyString returns the body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// Client is the concurrency-safe HTTP adapter.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for debug request logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransport replaces the pooled transport, typically in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.http.Transport = rt
		}
	}
}

// New creates a Client. Zero-valued fields take their defaults; only a
// malformed proxy URL is an error.
func New(cfg Config, opts ...Option) (*Client, error) {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryInitDelay <= 0 {
		cfg.RetryInitDelay = def.RetryInitDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = def.RetryMaxDelay
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = def.MaxRedirects
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = def.MaxResponseSize
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
		http: &http.Client{
			Transport:     transport,
			CheckRedirect: redirectPolicy(cfg),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

func newTransport(cfg Config) (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   duration.HTTPDial,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxConnsPerHost * 4,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       duration.HTTPIdleConn,
		TLSHandshakeTimeout:   duration.HTTPTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec // user-controlled verify_ssl
		},
	}

	if err := applyProxy(transport, dialer, cfg.Proxy); err != nil {
		return nil, err
	}
	return transport, nil
}

// redirectPolicy returns the CheckRedirect function. Credential headers are
// stripped when a followed redirect leaves the original host.
func redirectPolicy(cfg Config) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !cfg.FollowRedirects || len(via) >= cfg.MaxRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) > 0 && req.URL.Host != via[0].URL.Host {
			for _, h := range sensitiveHeaders {
				req.Header.Del(h)
			}
		}
		return nil
	}
}

// Get is shorthand for a GET request with default options.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

// Do performs req, retrying transient failures. Status codes >= 400 are
// returned as *Error with Kind KindHTTPStatus and the final Response
// attached.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == "" {
		return nil, ErrInvalidRequest
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	timeout := c.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	rcfg := retry.Config{
		Retries:   c.cfg.Retries,
		InitDelay: c.cfg.RetryInitDelay,
		MaxDelay:  c.cfg.RetryMaxDelay,
		Jitter:    true,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.Debug("http retry",
				slog.String("method", method),
				slog.String("url", RedactURL(req.URL)),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
				slog.String("error", err.Error()),
			)
		},
	}

	var (
		resp    *Response
		lastErr error
	)
	err := retry.Do(ctx, rcfg, func(attempt int) error {
		if attempt > 0 && req.RetryPacer != nil {
			if err := req.RetryPacer.Wait(ctx); err != nil {
				// no slot time left before ctx ends; report the failure
				// that caused the retry
				return retry.Stop(lastErr)
			}
		}
		r, err := c.once(ctx, method, req, timeout)
		if err == nil {
			resp = r
			return nil
		}
		lastErr = err
		var herr *Error
		if errors.As(err, &herr) && herr.Transient() {
			return err
		}
		return retry.Stop(err)
	})
	if err != nil {
		var herr *Error
		if !errors.As(err, &herr) {
			// ctx ended before the first attempt, or the request was malformed
			err = newError(classify(ctx, ctx, err), method, req.URL, err)
		}
		return nil, err
	}
	return resp, nil
}

// once performs a single attempt under its own timeout.
func (c *Client) once(parent context.Context, method string, req *Request, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for k, vals := range req.Headers {
		for _, v := range vals {
			hreq.Header.Add(k, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" && c.cfg.UserAgent != "" {
		hreq.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	hresp, err := c.http.Do(hreq)
	if err != nil {
		kind := classify(parent, ctx, err)
		c.logger.Debug("http request failed",
			slog.String("method", method),
			slog.String("url", RedactURL(req.URL)),
			slog.String("kind", string(kind)),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, newError(kind, method, req.URL, err)
	}

	data, truncated, err := readBody(hresp.Body, c.cfg.MaxResponseSize)
	if err != nil {
		return nil, newError(classify(parent, ctx, err), method, req.URL, err)
	}

	resp := &Response{
		StatusCode: hresp.StatusCode,
		Proto:      hresp.Proto,
		Header:     hresp.Header,
		Body:       data,
		URL:        hresp.Request.URL.String(),
		Truncated:  truncated,
		Duration:   time.Since(start),
	}

	c.logger.Debug("http request",
		slog.String("method", method),
		slog.String("url", RedactURL(req.URL)),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(resp.Body)),
		slog.Duration("elapsed", resp.Duration),
	)

	if resp.StatusCode >= 400 {
		herr := newError(KindHTTPStatus, method, req.URL, nil)
		herr.StatusCode = resp.StatusCode
		herr.Response = resp
		return nil, herr
	}
	return resp, nil
}

// readBody buffers at most limit bytes and drains the remainder so the
// connection can be reused.
func readBody(rc io.ReadCloser, limit int64) ([]byte, bool, error) {
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64*1024))
		_ = rc.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
