package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind classifies a failed request.
type Kind string

const (
	KindTimeout               Kind = "timeout"
	KindConnectionRefused     Kind = "connection_refused"
	KindConnectionReset       Kind = "connection_reset"
	KindDNS                   Kind = "dns_failure"
	KindTLSVerificationFailed Kind = "tls_verification_failed"
	KindHTTPStatus            Kind = "http_status"
	KindCanceled              Kind = "canceled"
	KindOther                 Kind = "other"
)

// Sentinel errors matched by (*Error).Is on Kind.
var (
	ErrTimeout               = errors.New("httpclient: request timed out")
	ErrConnectionRefused     = errors.New("httpclient: connection refused")
	ErrConnectionReset       = errors.New("httpclient: connection reset")
	ErrDNS                   = errors.New("httpclient: dns resolution failed")
	ErrTLSVerificationFailed = errors.New("httpclient: tls verification failed")
	ErrHTTPStatus            = errors.New("httpclient: error status")
	ErrCanceled              = errors.New("httpclient: request canceled")

	// ErrInvalidRequest is returned for a nil request or unparsable URL.
	ErrInvalidRequest = errors.New("httpclient: invalid request")

	// ErrInvalidProxy is returned by New for a malformed proxy URL.
	ErrInvalidProxy = errors.New("httpclient: invalid proxy")
)

var kindSentinels = map[Kind]error{
	KindTimeout:               ErrTimeout,
	KindConnectionRefused:     ErrConnectionRefused,
	KindConnectionReset:       ErrConnectionReset,
	KindDNS:                   ErrDNS,
	KindTLSVerificationFailed: ErrTLSVerificationFailed,
	KindHTTPStatus:            ErrHTTPStatus,
	KindCanceled:              ErrCanceled,
}

// Error is the classified failure returned by Client.Do.
type Error struct {
	Kind       Kind
	Method     string
	URL        string // redacted
	StatusCode int

	// Response is set for KindHTTPStatus so callers can inspect the body.
	Response *Response

	Err error

	dnsTimeout bool
}

func newError(kind Kind, method, rawURL string, err error) *Error {
	e := &Error{Kind: kind, Method: method, URL: RedactURL(rawURL), Err: err}
	var dnsErr *net.DNSError
	if kind == KindDNS && errors.As(err, &dnsErr) {
		e.dnsTimeout = dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	return e
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinel so errors.Is(err, ErrTimeout) works.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// Transient reports whether the failure is worth retrying: connection
// resets, DNS timeouts and 5xx responses. Timeouts are not retried since
// the per-request budget is already spent.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindConnectionReset:
		return true
	case KindDNS:
		return e.dnsTimeout
	case KindHTTPStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// KindOf returns the Kind of err, or KindOther when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindOther
}

// classify maps a transport error to a Kind. parent is the caller's context
// and attempt is the per-attempt timeout context derived from it.
func classify(parent, attempt context.Context, err error) Kind {
	if parent.Err() != nil {
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			return KindTimeout
		}
		return KindCanceled
	}
	if attempt.Err() != nil {
		return KindTimeout
	}

	var (
		certErr     *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &certErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return KindTLSVerificationFailed
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnectionRefused
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return KindConnectionReset
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindOther
}
