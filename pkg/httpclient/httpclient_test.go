package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	cfg.RetryInitDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, Config{})
	cfg := c.Config()
	assert.Equal(t, DefaultConfig().Timeout, cfg.Timeout)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxResponseSize)
	assert.Equal(t, 25, cfg.MaxConnsPerHost)
}

func TestDo_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "1")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := newTestClient(t, fastConfig())
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", resp.BodyString())
	assert.Equal(t, "1", resp.Header.Get("X-Test"))
	assert.False(t, resp.Truncated)
	assert.Positive(t, resp.Duration)
}

func TestDo_UserAgent(t *testing.T) {
	t.Parallel()

	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.UserAgent())
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.UserAgent = "pyrate-test/1.0"
	c := newTestClient(t, cfg)

	_, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "pyrate-test/1.0", got.Load())

	// explicit header wins
	_, err = c.Do(context.Background(), &Request{
		URL:     srv.URL,
		Headers: http.Header{"User-Agent": {"custom"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", got.Load())
}

func TestDo_MethodAndBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = buf.WriteString(r.Method + ":")
		b := make([]byte, 64)
		n, _ := r.Body.Read(b)
		_, _ = buf.Write(b[:n])
		_, _ = w.Write([]byte(buf.String()))
	}))
	defer srv.Close()

	c := newTestClient(t, fastConfig())
	resp, err := c.Do(context.Background(), &Request{Method: "post", URL: srv.URL, Body: []byte("a=1")})
	require.NoError(t, err)
	assert.Equal(t, "POST:a=1", resp.BodyString())
}

func TestDo_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(t, fastConfig())
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.BodyString())
	assert.Equal(t, int32(3), calls.Load())
}

// countingPacer records Wait calls and optionally refuses them.
type countingPacer struct {
	waits atomic.Int32
	err   error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits.Add(1)
	return p.err
}

func TestDo_RetryPacerBeforeEveryRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	pacer := &countingPacer{}
	c := newTestClient(t, fastConfig())
	resp, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL, RetryPacer: pacer})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.BodyString())
	assert.Equal(t, int32(3), calls.Load())
	// the first attempt is paced by the caller
	assert.Equal(t, int32(2), pacer.waits.Load())
}

func TestDo_RetryPacerRefusal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pacer := &countingPacer{err: errors.New("rate: Wait(n=1) would exceed context deadline")}
	c := newTestClient(t, fastConfig())
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL, RetryPacer: pacer})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindHTTPStatus, herr.Kind)
	assert.Equal(t, http.StatusBadGateway, herr.StatusCode)
}

func TestDo_ServerErrorExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.Retries = 2
	c := newTestClient(t, cfg)

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindHTTPStatus, herr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, herr.StatusCode)
	require.NotNil(t, herr.Response)
	assert.Equal(t, "down", herr.Response.BodyString())
	assert.ErrorIs(t, err, ErrHTTPStatus)
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, fastConfig())
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, KindHTTPStatus, KindOf(err))
}

func TestDo_Timeout(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, fastConfig())
	_, err := c.Do(context.Background(), &Request{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), calls.Load(), "timeouts are not retried")
}

func TestDo_Canceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, fastConfig())
	_, err := c.Get(ctx, srv.URL)
	require.Error(t, err)
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestDo_ConnectionRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := newTestClient(t, fastConfig())
	_, err = c.Get(context.Background(), "http://"+addr+"/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionRefused)
}

func TestDo_TLSVerification(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("secure"))
	}))
	t.Cleanup(srv.Close)

	t.Run("verify", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, fastConfig())
		_, err := c.Get(context.Background(), srv.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTLSVerificationFailed)
	})

	t.Run("insecure", func(t *testing.T) {
		t.Parallel()
		cfg := fastConfig()
		cfg.VerifyTLS = false
		c := newTestClient(t, cfg)
		resp, err := c.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "secure", resp.BodyString())
	})
}

func TestDo_BodyLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxResponseSize = 10
	c := newTestClient(t, cfg)

	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 10)
	assert.True(t, resp.Truncated)
}

func TestDo_Redirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("end"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Run("not followed", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, fastConfig())
		resp, err := c.Get(context.Background(), srv.URL+"/start")
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/end", resp.Header.Get("Location"))
	})

	t.Run("followed", func(t *testing.T) {
		t.Parallel()
		cfg := fastConfig()
		cfg.FollowRedirects = true
		c := newTestClient(t, cfg)
		resp, err := c.Get(context.Background(), srv.URL+"/start")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "end", resp.BodyString())
		assert.True(t, strings.HasSuffix(resp.URL, "/end"))
	})
}

func TestRedirectPolicy_StripsCredentialsCrossHost(t *testing.T) {
	t.Parallel()

	policy := redirectPolicy(Config{FollowRedirects: true, MaxRedirects: 5})

	first, _ := http.NewRequest(http.MethodGet, "http://a.example/", nil)
	next, _ := http.NewRequest(http.MethodGet, "http://b.example/", nil)
	next.Header.Set("Authorization", "Bearer x")
	next.Header.Set("Cookie", "s=1")
	next.Header.Set("Accept", "*/*")

	require.NoError(t, policy(next, []*http.Request{first}))
	assert.Empty(t, next.Header.Get("Authorization"))
	assert.Empty(t, next.Header.Get("Cookie"))
	assert.Equal(t, "*/*", next.Header.Get("Accept"))

	same, _ := http.NewRequest(http.MethodGet, "http://a.example/next", nil)
	same.Header.Set("Authorization", "Bearer x")
	require.NoError(t, policy(same, []*http.Request{first}))
	assert.Equal(t, "Bearer x", same.Header.Get("Authorization"))
}

func TestRedirectPolicy_MaxRedirects(t *testing.T) {
	t.Parallel()

	policy := redirectPolicy(Config{FollowRedirects: true, MaxRedirects: 2})
	r, _ := http.NewRequest(http.MethodGet, "http://a.example/", nil)
	assert.NoError(t, policy(r, []*http.Request{r}))
	assert.ErrorIs(t, policy(r, []*http.Request{r, r}), http.ErrUseLastResponse)
}

func TestDo_InvalidRequest(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, fastConfig())
	_, err := c.Do(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.Do(context.Background(), &Request{URL: "://bad"})
	assert.Error(t, err)
}

func TestDo_ConcurrentUse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	c := newTestClient(t, fastConfig())
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := c.Get(context.Background(), srv.URL+"/p")
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindOther, KindOf(errors.New("x")))
	assert.Equal(t, KindCanceled, KindOf(context.Canceled))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindDNS, KindOf(&Error{Kind: KindDNS}))
}
