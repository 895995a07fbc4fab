// Package target parses and validates scan targets.
//
// A Target is created once per scan and shared read-only with every plugin
// run, so all derived components are computed up front.
package target

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Target is an absolute http(s) URL plus its normalized components.
type Target struct {
	// URL is the normalized absolute URL.
	URL string `json:"url"`

	// Scheme is http or https.
	Scheme string `json:"scheme"`

	// Host is the lowercase hostname or IP literal without port.
	Host string `json:"host"`

	// Port is the explicit port, or the scheme default.
	Port int `json:"port"`

	// Path is the URL path, "/" when empty.
	Path string `json:"path"`

	query string
}

// Parse normalizes raw into a Target. Only absolute http and https URLs are
// accepted; the fragment is dropped.
func Parse(raw string) (*Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	port := defaultPort(scheme)
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("%w: bad port %q", ErrInvalidURL, p)
		}
		port = n
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	t := &Target{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		query:  u.RawQuery,
	}
	t.URL = t.BaseURL() + path
	if t.query != "" {
		t.URL += "?" + t.query
	}
	return t, nil
}

// BaseURL returns scheme://host[:port] with the port omitted when it is the
// scheme default.
func (t *Target) BaseURL() string {
	return t.Scheme + "://" + t.hostPortForURL()
}

// HostPort returns host:port suitable for dialing.
func (t *Target) HostPort() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Query returns the raw query string without the leading '?'.
func (t *Target) Query() string {
	return t.query
}

// IsHTTPS reports whether the target uses TLS.
func (t *Target) IsHTTPS() bool {
	return t.Scheme == "https"
}

// Resolve resolves ref against the target URL. Absolute refs are returned
// unchanged; refs that fail to parse fall back to base URL + ref.
func (t *Target) Resolve(ref string) string {
	base, err := url.Parse(t.URL)
	if err != nil {
		return t.BaseURL() + ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return t.BaseURL() + ref
	}
	return base.ResolveReference(r).String()
}

// Domain returns the registrable domain (eTLD+1) of the host, or the host
// itself for IP literals and single-label names.
func (t *Target) Domain() string {
	return RegistrableDomain(t.Host)
}

// String returns the normalized URL.
func (t *Target) String() string {
	return t.URL
}

func (t *Target) hostPortForURL() string {
	host := t.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if t.Port == defaultPort(t.Scheme) {
		return host
	}
	return host + ":" + strconv.Itoa(t.Port)
}

// RegistrableDomain returns the eTLD+1 for host, handling multi-part public
// suffixes such as co.uk. IP literals and hosts without a registrable part
// are returned unchanged.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}
