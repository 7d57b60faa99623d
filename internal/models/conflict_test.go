package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolutionAction(t *testing.T) {
	tests := []struct {
		in   string
		want ResolutionAction
	}{
		{"keep_local", ResolutionKeepLocal},
		{"keep_remote", ResolutionKeepRemote},
		{"merge", ResolutionMerge},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResolutionAction(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}

	_, err := ParseResolutionAction("overwrite")
	assert.Error(t, err)
}
