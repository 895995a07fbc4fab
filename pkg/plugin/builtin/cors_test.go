package builtin

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

func TestCORS_Reflection(t *testing.T) {
	t.Parallel()

	tgt, client := serve(t, "/api", func(w http.ResponseWriter, r *http.Request) {
		if o := r.Header.Get("Origin"); o != "" {
			w.Header().Set("Access-Control-Allow-Origin", o)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
	})

	got, err := NewCORS().Run(context.Background(), tgt, client)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "CORS misconfiguration: arbitrary origin reflected", got[0].Title)
	assert.Equal(t, finding.High, got[0].Severity)
	assert.Equal(t, "https://"+attackerDomain, got[0].Payload)
	assert.Equal(t, "CORS misconfiguration: null origin trusted", got[1].Title)
}

func TestCORS_WildcardWithCredentials(t *testing.T) {
	t.Parallel()

	tgt, client := serve(t, "/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	})

	got, err := NewCORS().Run(context.Background(), tgt, client)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, finding.Medium, got[0].Severity)
}

func TestCORS_Strict(t *testing.T) {
	t.Parallel()

	tgt, client := serve(t, "/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "https://app.example.com")
	})

	got, err := NewCORS().Run(context.Background(), tgt, client)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCORSProbes(t *testing.T) {
	t.Parallel()

	tgt, err := target.Parse("https://api.example.co.uk/")
	require.NoError(t, err)

	var origins []string
	for _, p := range corsProbes(tgt) {
		origins = append(origins, p.origin)
	}
	assert.Contains(t, origins, "https://pyrate-probe.example.co.uk")
	assert.Contains(t, origins, "https://example.co.uk."+attackerDomain)
	assert.Contains(t, origins, "http://api.example.co.uk")
}

func TestClassifyCORS(t *testing.T) {
	t.Parallel()

	tgt, err := target.Parse("https://www.example.com/")
	require.NoError(t, err)

	assert.Equal(t, finding.High, classifyCORS(tgt, "https://evil.test", true))
	assert.Equal(t, finding.Medium, classifyCORS(tgt, "https://evil.test", false))
	assert.Equal(t, finding.Medium, classifyCORS(tgt, "https://x.example.com", true))
	assert.Equal(t, finding.Low, classifyCORS(tgt, "https://x.example.com", false))
	assert.Equal(t, finding.High, classifyCORS(tgt, "null", true))
}
