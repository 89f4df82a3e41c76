// Package constants holds names and defaults shared across ghpipe packages.
package constants

// CLIName is the executable name used in help text and suggestions.
const CLIName = "ghpipe"

// Paths relative to the repository root.
const (
	DefaultConfigPath   = ".github/ghpipe.yml"
	DefaultWorkflowsDir = ".github/workflows"
	DefaultDocFile      = "README.md"
	DefaultCoverageFile = "coverage.xml"
)

// DefaultBranch is the branch whose pushes trigger both pipelines.
const DefaultBranch = "main"

// GitHubHost is the host used for token lookups and pushes.
const GitHubHost = "github.com"

// Designated runner platforms of the test matrix.
const (
	LinuxPlatform   = "ubuntu-latest"
	MacOSPlatform   = "macos-latest"
	WindowsPlatform = "windows-latest"
)

// DefaultPlatforms is the platform axis in matrix order.
var DefaultPlatforms = []string{LinuxPlatform, MacOSPlatform, WindowsPlatform}

// DefaultVersions is the interpreter-version axis in matrix order.
var DefaultVersions = []string{"3.10", "3.13"}

// Commands run inside each matrix cell. {version}, {platform} and
// {coverage} are substituted per cell.
const (
	DefaultSetupCommand   = "uv python install {version}"
	DefaultInstallCommand = "uv sync --python {version} --all-extras"
	DefaultTestCommand    = "uv run --python {version} pytest --cov --cov-report=xml:{coverage}"
)

// Coverage service defaults.
const (
	DefaultCoverageEndpoint = "https://codecov.io"
	CoverageTokenEnv        = "CODECOV_TOKEN"
)

// Documentation pipeline defaults.
const (
	DefaultCommitMessage  = "Update README.md"
	DefaultGitUserName    = "github-actions[bot]"
	DefaultGitUserEmail   = "github-actions[bot]@users.noreply.github.com"
	DefaultRegenerateRun  = "go run github.com/gh-download/ghpipe/cmd/ghpipe@latest regen README.md"
	DefaultDocsInstallRun = "uv tool install ."
	DefaultDisplayTerm    = "dumb"
	DefaultDisplayNoColor = "1"
	DocsDisplayEnvPrefix  = "GHPIPE_DOCS"
)

// Environment variables carrying the repository access token.
const (
	RepositoryTokenEnv = "GITHUB_TOKEN"
	AlternateTokenEnv  = "GH_TOKEN"
)

// Names and file names of the compiled workflows.
const (
	DefaultTestWorkflowName = "pytest"
	DefaultDocsWorkflowName = "Update README.md"
	TestWorkflowFile        = "pytest.yml"
	DocsWorkflowFile        = "update-readme.yml"
)

// JobName identifies a job in a compiled workflow.
type JobName string

const (
	TestJobName JobName = "test"
	DocsJobName JobName = "update_readme"
)

// Keys of the compiled test matrix; the coverage gate compares against them.
const (
	MatrixPlatformKey = "os"
	MatrixVersionKey  = "python-version"
)

// Identifiers used by the compiled documentation job to carry the commit
// outcome from the commit step to the push step.
const (
	CommitStepID     = "commit"
	CommitStatusEnv  = "commit_status"
	CommitStatusDone = "committed"
	CommitStatusSkip = "skipped"
)
