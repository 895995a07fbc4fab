package hooks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logRecorder captures slog.Record entries for assertions.
type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *logRecorder) WithGroup(string) slog.Handler       { return r }

func (r *logRecorder) getRecords() []slog.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	dst := make([]slog.Record, len(r.records))
	copy(dst, r.records)
	return dst
}

func attr(rec slog.Record, key string) (slog.Value, bool) {
	var v slog.Value
	found := false
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			v, found = a.Value, true
			return false
		}
		return true
	})
	return v, found
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), orDefault(nil))
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Same(t, custom, orDefault(custom))
}

func TestLoggerHook_Lifecycle(t *testing.T) {
	t.Parallel()

	rec := &logRecorder{}
	h := NewLoggerHook(slog.New(rec))
	assert.Nil(t, h.EventTypes())
	replay(t, h, lifecycle())

	byMsg := map[string][]slog.Record{}
	for _, r := range rec.getRecords() {
		byMsg[r.Message] = append(byMsg[r.Message], r)
	}

	require.Len(t, byMsg["scan started"], 1)
	assert.Equal(t, slog.LevelInfo, byMsg["scan started"][0].Level)
	assert.Len(t, byMsg["plugin started"], 2)
	assert.Len(t, byMsg["finding"], 1)
	assert.Len(t, byMsg["plugin finished"], 1)

	failed := byMsg["plugin failed"]
	require.Len(t, failed, 2)
	assert.Equal(t, slog.LevelWarn, failed[0].Level)
	reason, ok := attr(failed[0], "reason")
	require.True(t, ok)
	assert.Equal(t, "timeout", reason.String())

	done := byMsg["scan complete"]
	require.Len(t, done, 1)
	state, _ := attr(done[0], "state")
	assert.Equal(t, "aborted", state.String())
	failedPlugins, _ := attr(done[0], "failed_plugins")
	assert.Equal(t, int64(2), failedPlugins.Int64())
}
