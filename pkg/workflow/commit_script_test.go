//go:build !integration

package workflow

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/gh-download/ghpipe/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitScriptDecision(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}
	script := commitScript(pipeline.Default().Docs)

	tests := []struct {
		name        string
		prepare     func(t *testing.T, dir string)
		wantStatus  string
		wantCommits string
	}{
		{
			name:        "unchanged",
			prepare:     func(*testing.T, string) {},
			wantStatus:  "skipped",
			wantCommits: "1",
		},
		{
			name: "working tree change",
			prepare: func(t *testing.T, dir string) {
				testutil.WriteFile(t, dir, "README.md", "# changed\n")
			},
			wantStatus:  "committed",
			wantCommits: "2",
		},
		{
			name: "staged change only",
			prepare: func(t *testing.T, dir string) {
				testutil.WriteFile(t, dir, "README.md", "# staged\n")
				testutil.Git(t, dir, "add", "README.md")
			},
			wantStatus:  "committed",
			wantCommits: "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.InitGitRepo(t, map[string]string{"README.md": "# readme\n"})
			tt.prepare(t, dir)
			output := filepath.Join(testutil.TempDir(t, "ghpipe-output-*"), "output")

			cmd := exec.Command(bash, "-e", "-c", script)
			cmd.Dir = dir
			cmd.Env = append(os.Environ(), "GITHUB_OUTPUT="+output)
			out, err := cmd.CombinedOutput()
			require.NoError(t, err, string(out))

			recorded, err := os.ReadFile(output)
			require.NoError(t, err)
			assert.Equal(t, "commit_status="+tt.wantStatus+"\n", string(recorded))
			assert.Equal(t, tt.wantCommits, strings.TrimSpace(testutil.Git(t, dir, "rev-list", "--count", "HEAD")))
		})
	}
}
