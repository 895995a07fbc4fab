package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrate-scanner/pyrate/pkg/httpclient"
)

func TestNewSlots(t *testing.T) {
	t.Parallel()

	slots := newSlots(3, Config{})
	require.Len(t, slots, 3)
	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		s := <-slots
		assert.Nil(t, s.limiter)
		seen[s.id] = true
	}
	assert.Len(t, seen, 3)
}

func TestSlot_RequesterWithoutDelay(t *testing.T) {
	t.Parallel()

	next := &fakeRequester{}
	s := <-newSlots(1, Config{})
	assert.Same(t, next, s.requester(next))
}

func TestPacedRequester_Spacing(t *testing.T) {
	t.Parallel()

	const delay = 30 * time.Millisecond
	next := &fakeRequester{}
	s := <-newSlots(1, Config{InterRequestDelay: delay})
	r := s.requester(next)

	for i := 0; i < 3; i++ {
		_, err := r.Do(context.Background(), &httpclient.Request{Method: "GET", URL: "https://example.test/"})
		require.NoError(t, err)
	}

	next.mu.Lock()
	defer next.mu.Unlock()
	for i := 1; i < len(next.spans); i++ {
		assert.GreaterOrEqual(t, next.spans[i][0].Sub(next.spans[i-1][0]), delay-2*time.Millisecond)
	}
}

func TestPacedRequester_LimiterPersistsAcrossPlugins(t *testing.T) {
	t.Parallel()

	const delay = 30 * time.Millisecond
	next := &fakeRequester{}
	s := <-newSlots(1, Config{InterRequestDelay: delay})

	// two plugins in the same slot each get a fresh requester
	for i := 0; i < 2; i++ {
		_, err := s.requester(next).Do(context.Background(), &httpclient.Request{Method: "GET", URL: "https://example.test/"})
		require.NoError(t, err)
	}

	next.mu.Lock()
	defer next.mu.Unlock()
	require.Len(t, next.spans, 2)
	assert.GreaterOrEqual(t, next.spans[1][0].Sub(next.spans[0][0]), delay-2*time.Millisecond)
}

func TestPacedRequester_Canceled(t *testing.T) {
	t.Parallel()

	next := &fakeRequester{}
	s := <-newSlots(1, Config{InterRequestDelay: time.Hour})
	r := s.requester(next)

	_, err := r.Do(context.Background(), &httpclient.Request{Method: "GET", URL: "https://example.test/"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = r.Do(ctx, &httpclient.Request{Method: "GET", URL: "https://example.test/"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, next.count())
}
