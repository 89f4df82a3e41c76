// Package pipeline describes the two automation pipelines ghpipe runs: the
// test matrix and the documentation regeneration pipeline.
//
// Configuration lives in .github/ghpipe.yml. Every field is optional; a
// missing file or field falls back to the defaults of the gh-download
// repository (three platforms, Python 3.10 and 3.13, coverage from
// ubuntu-latest on the latest version, README.md regeneration).
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/goccy/go-yaml"
)

var configLog = logger.New("pipeline:config")

// Config is the root of .github/ghpipe.yml.
type Config struct {
	Tests TestPipeline `yaml:"tests" json:"tests"`
	Docs  DocsPipeline `yaml:"docs" json:"docs"`
}

// PushTrigger restricts push events to a set of branches.
type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty" json:"branches,omitempty"`
}

// Triggers lists the events a pipeline subscribes to.
type Triggers struct {
	Push        PushTrigger `yaml:"push" json:"push"`
	PullRequest *bool       `yaml:"pull-request,omitempty" json:"pull-request,omitempty"`
}

// PullRequestEnabled reports whether pull_request events trigger the pipeline.
func (t Triggers) PullRequestEnabled() bool {
	return t.PullRequest == nil || *t.PullRequest
}

// Commands are the per-cell shell commands of the test pipeline. The tokens
// {version} and {platform} are replaced with the cell coordinates and
// {coverage} with the path the coverage report is written to.
type Commands struct {
	Setup   string `yaml:"setup,omitempty" json:"setup,omitempty"`
	Install string `yaml:"install,omitempty" json:"install,omitempty"`
	Test    string `yaml:"test,omitempty" json:"test,omitempty"`
}

// Substitute returns the commands with placeholders replaced.
func (c Commands) Substitute(platform, version, coverage string) Commands {
	r := strings.NewReplacer("{platform}", platform, "{version}", version, "{coverage}", coverage)
	return Commands{
		Setup:   r.Replace(c.Setup),
		Install: r.Replace(c.Install),
		Test:    r.Replace(c.Test),
	}
}

// CoverageConfig designates the single cell that uploads coverage.
type CoverageConfig struct {
	Platform string   `yaml:"platform,omitempty" json:"platform,omitempty"`
	Version  string   `yaml:"version,omitempty" json:"version,omitempty"`
	File     string   `yaml:"file,omitempty" json:"file,omitempty"`
	Endpoint string   `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Flags    []string `yaml:"flags,omitempty" json:"flags,omitempty"`
}

// TestPipeline configures the test matrix.
type TestPipeline struct {
	Name        string         `yaml:"name,omitempty" json:"name,omitempty"`
	On          Triggers       `yaml:"on" json:"on"`
	Platforms   []string       `yaml:"platforms,omitempty" json:"platforms,omitempty"`
	Versions    []string       `yaml:"versions,omitempty" json:"versions,omitempty"`
	FailFast    bool           `yaml:"fail-fast,omitempty" json:"fail-fast,omitempty"`
	MaxParallel int            `yaml:"max-parallel,omitempty" json:"max-parallel,omitempty"`
	Commands    Commands       `yaml:"commands" json:"commands"`
	Coverage    CoverageConfig `yaml:"coverage" json:"coverage"`
}

// DocsPipeline configures documentation regeneration.
type DocsPipeline struct {
	Name          string   `yaml:"name,omitempty" json:"name,omitempty"`
	On            Triggers `yaml:"on" json:"on"`
	File          string   `yaml:"file,omitempty" json:"file,omitempty"`
	CommitMessage string   `yaml:"commit-message,omitempty" json:"commit-message,omitempty"`
	Install       string   `yaml:"install,omitempty" json:"install,omitempty"`
	Regenerate    string   `yaml:"regenerate,omitempty" json:"regenerate,omitempty"`
	GitUserName   string   `yaml:"git-user-name,omitempty" json:"git-user-name,omitempty"`
	GitUserEmail  string   `yaml:"git-user-email,omitempty" json:"git-user-email,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.applyDefaults(); err != nil {
		// The built-in version list is always valid.
		panic(err)
	}
	return cfg
}

// Load reads the configuration at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	configLog.Printf("Loading pipeline configuration: %s", path)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			configLog.Print("Configuration file not found, using defaults")
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates data against the configuration schema, decodes it and
// fills unset fields with defaults.
func Parse(data []byte) (*Config, error) {
	if strings.TrimSpace(string(data)) == "" {
		return Default(), nil
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	configLog.Printf("Parsed configuration: %d platforms, %d versions, docs file %s",
		len(cfg.Tests.Platforms), len(cfg.Tests.Versions), cfg.Docs.File)
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	t := &c.Tests
	if t.Name == "" {
		t.Name = constants.DefaultTestWorkflowName
	}
	applyTriggerDefaults(&t.On)
	if len(t.Platforms) == 0 {
		t.Platforms = slices.Clone(constants.DefaultPlatforms)
	}
	if len(t.Versions) == 0 {
		t.Versions = slices.Clone(constants.DefaultVersions)
	}
	if t.Commands.Setup == "" {
		t.Commands.Setup = constants.DefaultSetupCommand
	}
	if t.Commands.Install == "" {
		t.Commands.Install = constants.DefaultInstallCommand
	}
	if t.Commands.Test == "" {
		t.Commands.Test = constants.DefaultTestCommand
	}
	if t.Coverage.Platform == "" {
		t.Coverage.Platform = t.Platforms[0]
	}
	if t.Coverage.Version == "" {
		latest, err := LatestVersion(t.Versions)
		if err != nil {
			return err
		}
		t.Coverage.Version = latest
	}
	if t.Coverage.File == "" {
		t.Coverage.File = constants.DefaultCoverageFile
	}
	if t.Coverage.Endpoint == "" {
		t.Coverage.Endpoint = constants.DefaultCoverageEndpoint
	}

	d := &c.Docs
	if d.Name == "" {
		d.Name = constants.DefaultDocsWorkflowName
	}
	applyTriggerDefaults(&d.On)
	if d.File == "" {
		d.File = constants.DefaultDocFile
	}
	if d.CommitMessage == "" {
		d.CommitMessage = constants.DefaultCommitMessage
	}
	if d.Install == "" {
		d.Install = constants.DefaultDocsInstallRun
	}
	if d.Regenerate == "" {
		d.Regenerate = constants.DefaultRegenerateRun
	}
	if d.GitUserName == "" {
		d.GitUserName = constants.DefaultGitUserName
	}
	if d.GitUserEmail == "" {
		d.GitUserEmail = constants.DefaultGitUserEmail
	}
	return nil
}

func applyTriggerDefaults(t *Triggers) {
	if len(t.Push.Branches) == 0 {
		t.Push.Branches = []string{constants.DefaultBranch}
	}
	if t.PullRequest == nil {
		enabled := true
		t.PullRequest = &enabled
	}
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	t := c.Tests
	if !slices.Contains(t.Platforms, t.Coverage.Platform) || !slices.Contains(t.Versions, t.Coverage.Version) {
		return fmt.Errorf("coverage gate (%s, %s) does not match any matrix cell", t.Coverage.Platform, t.Coverage.Version)
	}
	if t.MaxParallel < 0 {
		return fmt.Errorf("max-parallel must not be negative, got %d", t.MaxParallel)
	}
	if filepath.IsAbs(c.Docs.File) {
		return fmt.Errorf("docs file must be relative to the repository root, got %s", c.Docs.File)
	}
	return nil
}
