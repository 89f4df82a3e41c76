// Package workflow compiles the ghpipe pipelines into GitHub Actions
// workflow files.
//
// The compiled files express the same semantics ghpipe applies locally: the
// test workflow fans out over the platform × version matrix and uploads
// coverage from the single gate cell; the documentation workflow regenerates
// the document, commits only when it changed and pushes only after a commit.
// Both conditions are built with the expression builder in this package.
package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/goccy/go-yaml"
)

var compilerLog = logger.New("workflow:compiler")

// File is one compiled workflow.
type File struct {
	// Name is the file name inside the workflows directory.
	Name    string
	Content []byte
	// Secrets lists the repository secrets the workflow reads.
	Secrets []string
}

// Compiler renders workflow files from a pipeline configuration.
type Compiler struct {
	cfg      *pipeline.Config
	source   string
	skipLint bool
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithSkipLint disables actionlint validation of the rendered files.
func WithSkipLint(skip bool) CompilerOption {
	return func(c *Compiler) { c.skipLint = skip }
}

// WithSource sets the configuration path named in the generated header.
func WithSource(path string) CompilerOption {
	return func(c *Compiler) { c.source = path }
}

// NewCompiler creates a compiler for cfg.
func NewCompiler(cfg *pipeline.Config, opts ...CompilerOption) *Compiler {
	c := &Compiler{cfg: cfg, source: constants.DefaultConfigPath}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile renders both workflows, checks that each parses as YAML and lints
// them unless linting is disabled.
func (c *Compiler) Compile() ([]File, error) {
	compilerLog.Printf("Compiling workflows: skipLint=%v", c.skipLint)

	files := []File{
		{Name: constants.TestWorkflowFile, Content: []byte(c.RenderTestWorkflow())},
		{Name: constants.DocsWorkflowFile, Content: []byte(c.RenderDocsWorkflow())},
	}
	for i := range files {
		f := &files[i]
		if err := validateYAML(f.Name, f.Content); err != nil {
			return nil, err
		}
		if !c.skipLint {
			if err := LintWorkflow(f.Name, f.Content); err != nil {
				return nil, err
			}
		}
		f.Secrets = CollectSecretReferences(string(f.Content))
		compilerLog.Printf("Compiled %s (%d bytes)", f.Name, len(f.Content))
	}
	return files, nil
}

func validateYAML(name string, content []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("generated %s is not valid YAML: %w", name, err)
	}
	if _, ok := doc["jobs"]; !ok {
		return fmt.Errorf("generated %s has no jobs", name)
	}
	return nil
}

func (c *Compiler) writeHeader(yaml *strings.Builder) {
	yaml.WriteString("# This file was generated by " + constants.CLIName + " from " + c.source + ". Do not edit it by hand.\n")
	yaml.WriteString("# To update it, edit " + c.source + " and run: " + constants.CLIName + " compile\n")
	if IsRelease() {
		yaml.WriteString("# " + constants.CLIName + " version: " + GetVersion() + "\n")
	}
	yaml.WriteString("\n")
}

func writeTriggers(yaml *strings.Builder, t pipeline.Triggers) {
	yaml.WriteString("on:\n")
	yaml.WriteString("  push:\n")
	yaml.WriteString("    branches:\n")
	for _, branch := range t.Push.Branches {
		yaml.WriteString("      - " + yamlString(branch) + "\n")
	}
	if t.PullRequestEnabled() {
		yaml.WriteString("  pull_request:\n")
	}
	yaml.WriteString("\n")
}

// RenderTestWorkflow renders the test matrix workflow.
func (c *Compiler) RenderTestWorkflow() string {
	cfg := c.cfg.Tests
	var yaml strings.Builder

	c.writeHeader(&yaml)
	yaml.WriteString("name: " + yamlString(cfg.Name) + "\n\n")
	writeTriggers(&yaml, cfg.On)
	yaml.WriteString("permissions:\n")
	yaml.WriteString("  contents: read\n\n")

	yaml.WriteString("jobs:\n")
	yaml.WriteString("  " + string(constants.TestJobName) + ":\n")
	platform := Interpolate(BuildPropertyAccess("matrix." + constants.MatrixPlatformKey))
	version := Interpolate(BuildPropertyAccess("matrix." + constants.MatrixVersionKey))
	yaml.WriteString("    runs-on: " + platform + "\n")
	yaml.WriteString("    strategy:\n")
	yaml.WriteString("      fail-fast: " + strconv.FormatBool(cfg.FailFast) + "\n")
	if cfg.MaxParallel > 0 {
		yaml.WriteString("      max-parallel: " + strconv.Itoa(cfg.MaxParallel) + "\n")
	}
	yaml.WriteString("      matrix:\n")
	writeList(&yaml, "        ", constants.MatrixPlatformKey, cfg.Platforms)
	writeList(&yaml, "        ", constants.MatrixVersionKey, cfg.Versions)

	commands := cfg.Commands.Substitute(platform, version, cfg.Coverage.File)
	gate := BuildCoverageGate(cfg.Coverage.Platform, cfg.Coverage.Version)

	upload := []kv{
		{"files", yamlString(cfg.Coverage.File)},
		{"token", Interpolate(BuildPropertyAccess("secrets." + constants.CoverageTokenEnv))},
	}
	if len(cfg.Coverage.Flags) > 0 {
		upload = append(upload, kv{"flags", yamlString(strings.Join(cfg.Coverage.Flags, ","))})
	}
	upload = append(upload, kv{"fail_ci_if_error", "true"})

	yaml.WriteString("    steps:\n")
	writeSteps(&yaml, []step{
		{Name: "Checkout repository", Uses: GetActionPin("actions/checkout")},
		{Name: "Install uv", Uses: GetActionPin("astral-sh/setup-uv")},
		{Name: "Set up Python " + version, Run: commands.Setup},
		{Name: "Install dependencies", Run: commands.Install},
		{Name: "Run pytest", Run: commands.Test},
		{Name: "Upload coverage to Codecov", If: gate, Uses: GetActionPin("codecov/codecov-action"), With: upload},
	})

	return yaml.String()
}

// RenderDocsWorkflow renders the documentation regeneration workflow.
func (c *Compiler) RenderDocsWorkflow() string {
	cfg := c.cfg.Docs
	var yaml strings.Builder

	c.writeHeader(&yaml)
	yaml.WriteString("name: " + yamlString(cfg.Name) + "\n\n")
	writeTriggers(&yaml, cfg.On)

	yaml.WriteString("jobs:\n")
	yaml.WriteString("  " + string(constants.DocsJobName) + ":\n")
	yaml.WriteString("    runs-on: " + constants.LinuxPlatform + "\n")
	yaml.WriteString("    permissions:\n")
	yaml.WriteString("      contents: write\n")

	branch := Interpolate(BuildSourceBranch())
	display := pipeline.DefaultDisplayEnv()

	yaml.WriteString("    steps:\n")
	writeSteps(&yaml, []step{
		{Name: "Checkout repository", Uses: GetActionPin("actions/checkout"), With: []kv{{"ref", branch}}},
		{Name: "Install uv", Uses: GetActionPin("astral-sh/setup-uv")},
		{Name: "Install the package", Run: cfg.Install},
		{Name: "Set up Go", Uses: GetActionPin("actions/setup-go"), With: []kv{{"go-version", "stable"}}},
		{
			Name: "Regenerate " + cfg.File,
			Env:  []kv{{"TERM", yamlString(display.Term)}, {"NO_COLOR", yamlString(display.NoColor)}},
			Run:  cfg.Regenerate,
		},
		{Name: "Commit changes", ID: constants.CommitStepID, Run: commitScript(cfg)},
		{
			Name: "Push changes",
			If:   BuildCommittedCondition(),
			Env:  []kv{{"SOURCE_BRANCH", branch}},
			Run:  `git push origin "HEAD:refs/heads/${SOURCE_BRANCH}"`,
		},
	})

	return yaml.String()
}

// commitScript records whether a commit was made in the commit step's
// output; the push step is guarded on it.
func commitScript(cfg pipeline.DocsPipeline) string {
	file := shellQuote(cfg.File)
	output := `"$GITHUB_OUTPUT"`
	var script strings.Builder
	script.WriteString("if git diff --quiet -- " + file + " && git diff --cached --quiet -- " + file + "; then\n")
	script.WriteString("  echo \"" + constants.CommitStatusEnv + "=" + constants.CommitStatusSkip + "\" >> " + output + "\n")
	script.WriteString("  exit 0\n")
	script.WriteString("fi\n")
	script.WriteString("git config user.name " + shellQuote(cfg.GitUserName) + "\n")
	script.WriteString("git config user.email " + shellQuote(cfg.GitUserEmail) + "\n")
	script.WriteString("git add -- " + file + "\n")
	script.WriteString("git commit -m " + shellQuote(cfg.CommitMessage) + "\n")
	script.WriteString("echo \"" + constants.CommitStatusEnv + "=" + constants.CommitStatusDone + "\" >> " + output + "\n")
	return script.String()
}

func writeList(yaml *strings.Builder, indent, key string, values []string) {
	yaml.WriteString(indent + key + ":\n")
	for _, v := range values {
		yaml.WriteString(indent + "  - " + yamlString(v) + "\n")
	}
}

// kv is an ordered mapping entry whose value is already a YAML scalar.
type kv struct {
	Key   string
	Value string
}

type step struct {
	Name string
	ID   string
	If   ConditionNode
	Uses string
	With []kv
	Env  []kv
	Run  string
}

func writeSteps(yaml *strings.Builder, steps []step) {
	const indent = "        "
	for _, s := range steps {
		yaml.WriteString("      - name: " + yamlString(s.Name) + "\n")
		if s.ID != "" {
			yaml.WriteString(indent + "id: " + s.ID + "\n")
		}
		if s.If != nil {
			RenderConditionAsIf(yaml, s.If, indent)
		}
		if s.Uses != "" {
			yaml.WriteString(indent + "uses: " + s.Uses + "\n")
		}
		writeMapping(yaml, indent, "with", s.With)
		writeMapping(yaml, indent, "env", s.Env)
		if s.Run != "" {
			writeRun(yaml, indent, s.Run)
		}
	}
}

func writeMapping(yaml *strings.Builder, indent, key string, entries []kv) {
	if len(entries) == 0 {
		return
	}
	yaml.WriteString(indent + key + ":\n")
	for _, e := range entries {
		yaml.WriteString(indent + "  " + e.Key + ": " + e.Value + "\n")
	}
}

func writeRun(yaml *strings.Builder, indent, run string) {
	run = strings.TrimRight(run, "\n")
	if !strings.Contains(run, "\n") {
		yaml.WriteString(indent + "run: " + yamlString(run) + "\n")
		return
	}
	yaml.WriteString(indent + "run: |\n")
	for _, line := range strings.Split(run, "\n") {
		if line == "" {
			yaml.WriteString("\n")
			continue
		}
		yaml.WriteString(indent + "  " + line + "\n")
	}
}
