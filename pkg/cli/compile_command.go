package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/workflow"
	"github.com/spf13/cobra"
)

var compileLog = logger.New("cli:compile_command")

// CompileConfig holds the options of the compile command.
type CompileConfig struct {
	Dir        string
	ConfigPath string
	// OutputDir is the workflows directory, relative to Dir unless absolute.
	OutputDir string
	Check     bool
	NoLint    bool
	Verbose   bool
}

// CompileResult lists what a compilation produced.
type CompileResult struct {
	Files   []string `json:"files"`
	Written []string `json:"written,omitempty"`
	Stale   []string `json:"stale,omitempty"`
	Secrets []string `json:"secrets,omitempty"`
}

// NewCompileCommand creates the compile command
func NewCompileCommand() *cobra.Command {
	var config CompileConfig

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the pipelines to GitHub Actions workflows",
		Long: `Render the test and documentation pipelines as GitHub Actions workflows
(pytest.yml and update-readme.yml) and validate them with actionlint.

With --check nothing is written; the command fails when the checked-in
workflows differ from what the configuration compiles to.

Examples:
  ghpipe compile
  ghpipe compile --check            # in CI: fail on stale workflows
  ghpipe compile --dir out --no-lint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := RunCompile(config)
			return err
		},
	}

	addConfigFlag(cmd, &config.ConfigPath)
	cmd.Flags().StringVarP(&config.OutputDir, "dir", "d", constants.DefaultWorkflowsDir, "Directory the workflow files are written to")
	cmd.Flags().BoolVar(&config.Check, "check", false, "Fail when the workflow files are out of date, without writing them")
	cmd.Flags().BoolVar(&config.NoLint, "no-lint", false, "Skip actionlint validation")
	cmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Show verbose output")

	return cmd
}

// RunCompile compiles both workflows and writes or checks them.
func RunCompile(config CompileConfig) (*CompileResult, error) {
	dir := repoDir(config.Dir)
	cfg, configPath, err := loadPipelineConfig(dir, config.ConfigPath)
	if err != nil {
		return nil, err
	}

	outputDir := config.OutputDir
	if outputDir == "" {
		outputDir = constants.DefaultWorkflowsDir
	}
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(dir, outputDir)
	}
	compileLog.Printf("Compiling %s into %s: check=%v, lint=%v", configPath, outputDir, config.Check, !config.NoLint)

	compiler := workflow.NewCompiler(cfg,
		workflow.WithSource(filepath.ToSlash(configPath)),
		workflow.WithSkipLint(config.NoLint),
	)
	files, err := compiler.Compile()
	if err != nil {
		var lintErr *workflow.LintError
		if errors.As(err, &lintErr) {
			return nil, errors.New(console.FormatErrorWithSuggestions(err.Error(), []string{
				"Check the platforms and commands in " + configPath,
				"Use --no-lint to write the files anyway",
			}))
		}
		return nil, err
	}

	result := &CompileResult{}
	seen := make(map[string]bool)
	for _, f := range files {
		result.Files = append(result.Files, f.Name)
		for _, s := range f.Secrets {
			if !seen[s] {
				seen[s] = true
				result.Secrets = append(result.Secrets, s)
			}
		}
	}

	if config.Check {
		stale, err := workflow.Check(outputDir, files)
		if err != nil {
			return nil, err
		}
		result.Stale = stale
		if len(stale) > 0 {
			fmt.Fprintln(os.Stderr, console.FormatErrorWithSuggestions(
				fmt.Sprintf("workflows out of date: %s", strings.Join(stale, ", ")),
				[]string{fmt.Sprintf("Run '%s compile' and commit the result", constants.CLIName)},
			))
			return result, fmt.Errorf("%d workflow file(s): %w", len(stale), ErrStale)
		}
		fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("Workflows are up to date"))
		return result, nil
	}

	written, err := workflow.WriteFiles(outputDir, files)
	if err != nil {
		return nil, err
	}
	result.Written = written
	for _, name := range written {
		fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("Compiled "+filepath.Join(outputDir, name)))
	}
	if len(written) == 0 {
		console.LogVerbose(config.Verbose, "Workflows unchanged")
	}
	for _, s := range result.Secrets {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("The workflows read the repository secret %s; set it with '%s secrets set %s'", s, constants.CLIName, s)))
	}
	return result, nil
}
