package builtin

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
)

func TestInfoDisclosure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		body    string
		errBody string
		want    []string
	}{
		{
			name: "clean",
			headers: map[string]string{
				"Server": "nginx",
			},
			body: "<html>hello</html>",
			want: []string{},
		},
		{
			name: "version headers",
			headers: map[string]string{
				"Server":       "Apache/2.4.41 (Ubuntu)",
				"X-Powered-By": "PHP/7.4.3",
			},
			want: []string{
				"Version disclosed in Server header",
				"Version disclosed in X-Powered-By header",
			},
		},
		{
			name:    "stack trace on error page",
			errBody: "Traceback (most recent call last):\n  File \"app.py\", line 1",
			want:    []string{"Python stack trace"},
		},
		{
			name:    "same signature reported once",
			body:    "<title>Index of /files</title>",
			errBody: "<title>Index of /</title>",
			want:    []string{"Directory listing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tgt, client := serve(t, "/", func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				if r.URL.Path == notFoundProbe {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(tt.errBody))
					return
				}
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := NewInfoDisclosure().Run(context.Background(), tgt, client)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestInfoDisclosure_Severity(t *testing.T) {
	t.Parallel()

	tgt, client := serve(t, "/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Whoops! There was an error."))
	})

	got, err := NewInfoDisclosure().Run(context.Background(), tgt, client)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, finding.High, got[0].Severity)
	assert.Contains(t, got[0].Evidence, "Whoops")
}
