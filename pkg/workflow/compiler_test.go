//go:build !integration

package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/gh-download/ghpipe/pkg/testutil"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTestWorkflow(t *testing.T) {
	out := NewCompiler(pipeline.Default()).RenderTestWorkflow()
	golden.RequireEqual(t, []byte(out))
}

func TestRenderDocsWorkflow(t *testing.T) {
	out := NewCompiler(pipeline.Default()).RenderDocsWorkflow()
	golden.RequireEqual(t, []byte(out))
}

func TestRenderTestWorkflowOptions(t *testing.T) {
	cfg, err := pipeline.Parse([]byte(`
tests:
  versions: ["3.9", "3.12"]
  fail-fast: true
  max-parallel: 2
  coverage:
    platform: macos-latest
    flags: [unit, py]
`))
	require.NoError(t, err)

	out := NewCompiler(cfg).RenderTestWorkflow()
	assert.Contains(t, out, "      fail-fast: true\n      max-parallel: 2\n")
	assert.Contains(t, out, "          - '3.9'\n          - '3.12'\n")
	assert.Contains(t, out, "if: (matrix.os == 'macos-latest') && (matrix.python-version == '3.12')")
	assert.Contains(t, out, "          flags: unit,py\n")
}

func TestRenderPullRequestDisabled(t *testing.T) {
	cfg, err := pipeline.Parse([]byte("docs:\n  on:\n    pull-request: false\n"))
	require.NoError(t, err)

	c := NewCompiler(cfg)
	assert.NotContains(t, c.RenderDocsWorkflow(), "pull_request:")
	assert.Contains(t, c.RenderTestWorkflow(), "pull_request:")
}

func TestRenderReleaseHeader(t *testing.T) {
	origVersion, origRelease := GetVersion(), IsRelease()
	t.Cleanup(func() {
		SetVersion(origVersion)
		SetIsRelease(origRelease)
	})

	SetVersion("v1.2.3")
	out := NewCompiler(pipeline.Default(), WithSource("ci/ghpipe.yml")).RenderTestWorkflow()
	assert.NotContains(t, out, "v1.2.3", "development builds do not stamp their version")
	assert.True(t, strings.HasPrefix(out, "# This file was generated by ghpipe from ci/ghpipe.yml."))

	SetIsRelease(true)
	out = NewCompiler(pipeline.Default()).RenderTestWorkflow()
	assert.Contains(t, out, "# ghpipe version: v1.2.3\n")
}

func TestCompile(t *testing.T) {
	files, err := NewCompiler(pipeline.Default()).Compile()
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "pytest.yml", files[0].Name)
	assert.Equal(t, []string{"CODECOV_TOKEN"}, files[0].Secrets)
	assert.Equal(t, "update-readme.yml", files[1].Name)
	assert.Empty(t, files[1].Secrets)

	for _, f := range files {
		var doc struct {
			Jobs map[string]struct {
				Steps []map[string]any `yaml:"steps"`
			} `yaml:"jobs"`
		}
		require.NoError(t, yaml.Unmarshal(f.Content, &doc), f.Name)
		assert.Len(t, doc.Jobs, 1, f.Name)
	}
}

func TestCompiledMatrixValues(t *testing.T) {
	files, err := NewCompiler(pipeline.Default(), WithSkipLint(true)).Compile()
	require.NoError(t, err)

	var doc struct {
		Jobs struct {
			Test struct {
				Strategy struct {
					FailFast bool                `yaml:"fail-fast"`
					Matrix   map[string][]string `yaml:"matrix"`
				} `yaml:"strategy"`
			} `yaml:"test"`
		} `yaml:"jobs"`
	}
	require.NoError(t, yaml.Unmarshal(files[0].Content, &doc))

	strategy := doc.Jobs.Test.Strategy
	assert.False(t, strategy.FailFast)
	assert.Equal(t, []string{"ubuntu-latest", "macos-latest", "windows-latest"}, strategy.Matrix["os"])
	assert.Equal(t, []string{"3.10", "3.13"}, strategy.Matrix["python-version"], "versions must stay strings")
}

func TestLintWorkflowReportsProblems(t *testing.T) {
	broken := []byte(`on: push
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - run: echo ${{ unknown.value }}
`)
	err := LintWorkflow("broken.yml", broken)
	require.Error(t, err)

	var lintErr *LintError
	require.ErrorAs(t, err, &lintErr)
	assert.Equal(t, "broken.yml", lintErr.File)
	assert.NotEmpty(t, lintErr.Problems)
	assert.Contains(t, err.Error(), "broken.yml")
}

func TestWriteFilesAndCheck(t *testing.T) {
	dir := filepath.Join(testutil.TempDir(t, "ghpipe-workflows-*"), ".github", "workflows")
	files, err := NewCompiler(pipeline.Default(), WithSkipLint(true)).Compile()
	require.NoError(t, err)

	stale, err := Check(dir, files)
	require.NoError(t, err)
	assert.Equal(t, []string{"pytest.yml", "update-readme.yml"}, stale, "missing files are stale")

	written, err := WriteFiles(dir, files)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	stale, err = Check(dir, files)
	require.NoError(t, err)
	assert.Empty(t, stale)

	written, err = WriteFiles(dir, files)
	require.NoError(t, err)
	assert.Empty(t, written, "unchanged files are not rewritten")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pytest.yml"), []byte("name: edited\n"), 0o644))
	stale, err = Check(dir, files)
	require.NoError(t, err)
	assert.Equal(t, []string{"pytest.yml"}, stale)
}

func TestGetActionPin(t *testing.T) {
	assert.Equal(t, "actions/checkout@v4", GetActionPin("actions/checkout"))
	assert.Equal(t, "codecov/codecov-action@v5", GetActionPin("codecov/codecov-action"), "latest pinned version wins")
	assert.Panics(t, func() { GetActionPin("unknown/action") })
}
