// Package writers provides dispatcher.Writer implementations that persist
// the scan event stream.
package writers

import (
	"io"
	"sync"

	"github.com/pyrate-scanner/pyrate/pkg/jsonutil"
	"github.com/pyrate-scanner/pyrate/pkg/output/dispatcher"
	"github.com/pyrate-scanner/pyrate/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter writes events as newline-delimited JSON (JSONL).
// Each event is a complete JSON object on a single line, so tools like jq
// can follow a scan while it runs.
type JSONLWriter struct {
	w       io.Writer
	mu      sync.Mutex
	opts    JSONLOptions
	encoder *jsonutil.Encoder
}

// JSONLOptions configures the JSONL writer behavior.
type JSONLOptions struct {
	// OnlyFindings restricts output to finding and scan_complete events.
	OnlyFindings bool

	// OmitExchange drops raw request and response excerpts from findings.
	OmitExchange bool

	// Pretty enables indented JSON output.
	// Note: This is not JSONL compliant but useful for debugging.
	Pretty bool
}

// NewJSONLWriter creates a new JSONL writer that writes to w.
// The writer is safe for concurrent use.
func NewJSONLWriter(w io.Writer, opts JSONLOptions) *JSONLWriter {
	encoder := jsonutil.NewStreamEncoder(w)
	if opts.Pretty {
		encoder.SetIndent("", "  ")
	}
	return &JSONLWriter{
		w:       w,
		opts:    opts,
		encoder: encoder,
	}
}

// Write writes an event as a single JSON line.
func (jw *JSONLWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if fe, ok := event.(*events.FindingEvent); ok && jw.opts.OmitExchange {
		filtered := *fe
		filtered.Finding.Request = ""
		filtered.Finding.Response = ""
		return jw.encoder.Encode(&filtered)
	}
	return jw.encoder.Encode(event)
}

// Flush is a no-op; every event is written through immediately.
func (jw *JSONLWriter) Flush() error {
	return nil
}

// Close closes the underlying writer if it implements io.Closer.
func (jw *JSONLWriter) Close() error {
	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent reports whether the writer persists events of type t.
func (jw *JSONLWriter) SupportsEvent(t events.EventType) bool {
	if jw.opts.OnlyFindings {
		return t == events.EventTypeFinding || t == events.EventTypeScanComplete
	}
	return true
}
