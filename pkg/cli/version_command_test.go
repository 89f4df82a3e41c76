//go:build !integration

package cli

import (
	"bytes"
	"testing"

	"github.com/gh-download/ghpipe/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origRelease := GetVersion(), workflow.IsRelease()
	t.Cleanup(func() {
		SetVersionInfo(origVersion)
		workflow.SetIsRelease(origRelease)
	})

	tests := []struct {
		release bool
		want    string
	}{
		{release: false, want: "ghpipe v1.2.3 (development build)\n"},
		{release: true, want: "ghpipe v1.2.3 (release)\n"},
	}

	for _, tt := range tests {
		SetVersionInfo("v1.2.3")
		workflow.SetIsRelease(tt.release)

		var out bytes.Buffer
		cmd := NewVersionCommand()
		cmd.SetOut(&out)
		cmd.SetArgs(nil)
		require.NoError(t, cmd.Execute())
		assert.Equal(t, tt.want, out.String())
	}
}
