//go:build !integration

package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"ubuntu-latest", "macos-latest", "windows-latest"}, cfg.Tests.Platforms)
	assert.Equal(t, []string{"3.10", "3.13"}, cfg.Tests.Versions)
	assert.False(t, cfg.Tests.FailFast, "fail-fast must be disabled by default")
	assert.Equal(t, "ubuntu-latest", cfg.Tests.Coverage.Platform)
	assert.Equal(t, "3.13", cfg.Tests.Coverage.Version, "coverage version should be the latest axis value")
	assert.Equal(t, []string{"main"}, cfg.Tests.On.Push.Branches)
	assert.True(t, cfg.Tests.On.PullRequestEnabled())

	assert.Equal(t, "README.md", cfg.Docs.File)
	assert.Equal(t, "Update README.md", cfg.Docs.CommitMessage)
	assert.Equal(t, []string{"main"}, cfg.Docs.On.Push.Branches)
	assert.True(t, cfg.Docs.On.PullRequestEnabled())
}

func TestDefaultReturnsIndependentSlices(t *testing.T) {
	first := Default()
	first.Tests.Platforms[0] = "self-hosted"

	second := Default()
	assert.Equal(t, constants.LinuxPlatform, second.Tests.Platforms[0])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty document uses defaults",
			yaml: "   \n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "custom axes pick latest version for the gate",
			yaml: `
tests:
  platforms: [ubuntu-latest, windows-latest]
  versions: ["3.9", "3.12", "3.11"]
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"ubuntu-latest", "windows-latest"}, cfg.Tests.Platforms)
				assert.Equal(t, "3.12", cfg.Tests.Coverage.Version)
				assert.Equal(t, "ubuntu-latest", cfg.Tests.Coverage.Platform)
			},
		},
		{
			name: "explicit triggers and docs settings",
			yaml: `
docs:
  file: docs/index.md
  commit-message: "docs: regenerate"
  on:
    push:
      branches: [main, release]
    pull-request: false
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "docs/index.md", cfg.Docs.File)
				assert.Equal(t, "docs: regenerate", cfg.Docs.CommitMessage)
				assert.Equal(t, []string{"main", "release"}, cfg.Docs.On.Push.Branches)
				assert.False(t, cfg.Docs.On.PullRequestEnabled())
			},
		},
		{
			name:    "unquoted version is rejected by the schema",
			yaml:    "tests:\n  versions: [3.10]\n",
			wantErr: "does not match schema",
		},
		{
			name:    "unknown key is rejected",
			yaml:    "tests:\n  retries: 3\n",
			wantErr: "does not match schema",
		},
		{
			name: "gate outside the matrix",
			yaml: `
tests:
  coverage:
    platform: macos-latest
    version: "3.12"
`,
			wantErr: "does not match any matrix cell",
		},
		{
			name:    "absolute docs file",
			yaml:    "docs:\n  file: /etc/README.md\n",
			wantErr: "relative to the repository root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := testutil.TempDir(t, "ghpipe-config-*")

	t.Run("missing file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "missing.yml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file on disk", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, ".github/ghpipe.yml", "tests:\n  fail-fast: true\n  max-parallel: 2\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.True(t, cfg.Tests.FailFast)
		assert.Equal(t, 2, cfg.Tests.MaxParallel)
	})

	t.Run("invalid file names the path", func(t *testing.T) {
		path := testutil.WriteFile(t, dir, "bad.yml", "nope: true\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})
}

func TestLatestVersion(t *testing.T) {
	latest, err := LatestVersion([]string{"3.10", "3.9", "3.13", "3.11"})
	require.NoError(t, err)
	assert.Equal(t, "3.13", latest)

	_, err = LatestVersion(nil)
	require.Error(t, err)

	latest, err = LatestVersion([]string{"3.10", "3.13t", "pypy3.11"})
	require.NoError(t, err)
	assert.Equal(t, "3.10", latest, "labels that are not plain versions are skipped")

	_, err = LatestVersion([]string{"3.13t", "pypy3.10"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage.version")

	assert.Positive(t, CompareVersions("3.10", "3.9"), "3.10 must sort after 3.9")
}

func TestParseInterpreterLabels(t *testing.T) {
	cfg, err := Parse([]byte("tests:\n  versions: ['3.12', '3.13t', 'pypy3.10']\n"))
	require.NoError(t, err)
	assert.Equal(t, "3.12", cfg.Tests.Coverage.Version)

	_, err = Parse([]byte("tests:\n  versions: ['3.13t', 'pypy3.10']\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage.version")

	cfg, err = Parse([]byte("tests:\n  versions: ['3.13t', 'pypy3.10']\n  coverage:\n    version: '3.13t'\n"))
	require.NoError(t, err)
	assert.Equal(t, "3.13t", cfg.Tests.Coverage.Version)
}

func TestCommandsSubstitute(t *testing.T) {
	cmds := Default().Tests.Commands.Substitute("ubuntu-latest", "3.13", "out/coverage.xml")

	assert.Equal(t, "uv python install 3.13", cmds.Setup)
	assert.Equal(t, "uv sync --python 3.13 --all-extras", cmds.Install)
	assert.Equal(t, "uv run --python 3.13 pytest --cov --cov-report=xml:out/coverage.xml", cmds.Test)

	custom := Commands{Test: "tox -e {platform}-{version}"}.Substitute("macos-latest", "3.10", "")
	assert.Equal(t, "tox -e macos-latest-3.10", custom.Test)
}
