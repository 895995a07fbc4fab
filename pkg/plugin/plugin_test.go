package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyrate-scanner/pyrate/pkg/finding"
	"github.com/pyrate-scanner/pyrate/pkg/target"
)

func fake(name, category string, risk finding.Severity) *Func {
	return &Func{Meta: Metadata{Name: name, Description: name + " check", Category: category, Risk: risk}}
}

func TestMetadata_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		meta    Metadata
		wantErr bool
	}{
		{"valid", Metadata{Name: "a", Risk: finding.High}, false},
		{"critical", Metadata{Name: "a", Risk: finding.Critical}, false},
		{"empty name", Metadata{Name: " ", Risk: finding.Low}, true},
		{"space in name", Metadata{Name: "a b", Risk: finding.Low}, true},
		{"info risk", Metadata{Name: "a", Risk: finding.Info}, true},
		{"unknown risk", Metadata{Name: "a", Risk: "severe"}, true},
		{"missing risk", Metadata{Name: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.meta.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMetadata)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFunc_Run(t *testing.T) {
	t.Parallel()

	tgt, err := target.Parse("https://example.test")
	require.NoError(t, err)

	empty := &Func{Meta: Metadata{Name: "noop", Risk: finding.Low}}
	got, err := empty.Run(context.Background(), tgt, nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	f := &Func{
		Meta: Metadata{Name: "one", Risk: finding.Low},
		RunFn: func(_ context.Context, t *target.Target, _ Requester) ([]finding.Vulnerability, error) {
			return []finding.Vulnerability{{Plugin: "one", Title: "x", Severity: finding.Low, Location: t.URL}}, nil
		},
	}
	got, err = f.Run(context.Background(), tgt, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.test/", got[0].Location)
}
