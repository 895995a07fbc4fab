package finding

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spaolacci/murmur3"
)

// Vulnerability is one reported security issue.
type Vulnerability struct {
	// Plugin is the name of the plugin that produced the finding.
	Plugin string `json:"plugin"`

	// Category is the plugin category; filled from plugin metadata when empty.
	Category string `json:"category,omitempty"`

	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`

	// Evidence is the offending header, response excerpt or similar proof.
	Evidence string `json:"evidence,omitempty"`

	// Location is the URL or path where the issue was observed.
	Location string `json:"location"`

	Recommendation string `json:"recommendation,omitempty"`

	// Payload is the input that triggered the finding, if any.
	Payload string `json:"payload,omitempty"`

	// Request and Response hold raw exchange excerpts.
	Request  string `json:"request,omitempty"`
	Response string `json:"response,omitempty"`

	// Confidence is the detection confidence in the range 0-1.
	Confidence float64 `json:"confidence,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the fields every finding must carry.
func (v Vulnerability) Validate() error {
	if v.Title == "" {
		return ErrMissingTitle
	}
	if !v.Severity.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, v.Severity)
	}
	return nil
}

// Fingerprint returns a stable identifier for the finding derived from the
// plugin, title, location and evidence. Two runs that observe the same issue
// produce the same fingerprint.
func (v Vulnerability) Fingerprint() string {
	h := murmur3.New128()
	for _, part := range []string{v.Plugin, v.Title, v.Location, v.Evidence} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
