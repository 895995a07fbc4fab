package builtin

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

const passwd = "root:x:0:0:root:/root:/bin/bash\ndaemon:x:1:1::/usr/sbin:/usr/sbin/nologin\n"

func TestDirectoryTraversal_QueryParameter(t *testing.T) {
	t.Parallel()

	tgt, client := serve(t, "/view?file=report.pdf&lang=en", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("file"), "etc/passwd") {
			_, _ = w.Write([]byte(passwd))
			return
		}
		_, _ = w.Write([]byte("document"))
	})

	got, err := NewDirectoryTraversal().Run(context.Background(), tgt, client)
	require.NoError(t, err)
	require.Len(t, got, 1)

	f := got[0]
	assert.Equal(t, "Directory traversal via parameter file", f.Title)
	assert.Equal(t, finding.High, f.Severity)
	assert.Equal(t, traversalPayloads[0], f.Payload)
	assert.Contains(t, f.Evidence, "root:x:0:0:")
	assert.Contains(t, f.Location, "lang=en")
}

func TestDirectoryTraversal_Path(t *testing.T) {
	t.Parallel()

	tgt, client := serve(t, "/static/logo.png", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "win.ini") {
			_, _ = w.Write([]byte("; for 16-bit app support\n[fonts]\n[extensions]\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	got, err := NewDirectoryTraversal().Run(context.Background(), tgt, client)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Directory traversal via path", got[0].Title)
	assert.Contains(t, got[0].Description, "win.ini")
}

func TestDirectoryTraversal_BaselineSuppresses(t *testing.T) {
	t.Parallel()

	tgt, client := serve(t, "/docs?page=1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Example passwd line: " + passwd))
	})

	got, err := NewDirectoryTraversal().Run(context.Background(), tgt, client)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTraversalProbes(t *testing.T) {
	t.Parallel()

	tgt, err := target.Parse("https://example.test/a/b.php?z=1&a=2")
	require.NoError(t, err)

	probes := traversalProbes(tgt)
	require.Len(t, probes, 3*len(traversalPayloads))
	assert.Equal(t, "parameter a", probes[0].param)
	assert.Equal(t, "parameter z", probes[len(traversalPayloads)].param)
	assert.True(t, strings.HasPrefix(probes[2*len(traversalPayloads)].url, "https://example.test/a/"))
	assert.Contains(t, probes[1].url, "a=..%2f..%2f")
}
