package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/coverage"
	"github.com/gh-download/ghpipe/pkg/gitutil"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/matrix"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/spf13/cobra"
)

var matrixLog = logger.New("cli:matrix_command")

// MatrixConfig holds the options of the matrix command.
type MatrixConfig struct {
	Dir         string
	ConfigPath  string
	Event       string
	Branch      string
	Emulate     bool
	JSON        bool
	FailFast    bool
	MaxParallel int
	Verbose     bool

	// Runner and Uploader replace the shell and Codecov in tests.
	Runner   matrix.Runner
	Uploader coverage.Uploader
	// Stdout receives --json output; defaults to os.Stdout.
	Stdout io.Writer
}

// NewMatrixCommand creates the matrix command
func NewMatrixCommand() *cobra.Command {
	var config MatrixConfig

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Run the test matrix locally",
		Long: `Run every platform × version cell of the test pipeline.

Cells run concurrently and independently: a failing cell never stops the
others unless --fail-fast is set. Cells for other platforms are reported as
unavailable unless --emulate runs them on this machine anyway.

Coverage is uploaded from exactly one cell, the coverage gate, using
CODECOV_TOKEN. No other cell ever sees that token.

Examples:
  ghpipe matrix                                  # push to the current branch
  ghpipe matrix --event pull_request --branch fix-auth
  ghpipe matrix --emulate --max-parallel 2
  ghpipe matrix --json > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := RunMatrix(cmd.Context(), config)
			return err
		},
	}

	addConfigFlag(cmd, &config.ConfigPath)
	addEventFlags(cmd, &config.Event, &config.Branch)
	cmd.Flags().BoolVar(&config.Emulate, "emulate", false, "Run cells of every platform on this machine")
	cmd.Flags().BoolVar(&config.JSON, "json", false, "Print the run report as JSON to stdout")
	cmd.Flags().BoolVar(&config.FailFast, "fail-fast", false, "Cancel the remaining cells after the first failure")
	cmd.Flags().IntVar(&config.MaxParallel, "max-parallel", 0, "Maximum number of cells running at once (0 for no limit)")
	cmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Print the output of failed cells")

	return cmd
}

// RunMatrix runs the test pipeline for the configured event. It returns a
// nil report when the event does not trigger the pipeline.
func RunMatrix(ctx context.Context, config MatrixConfig) (*matrix.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir := repoDir(config.Dir)

	cfg, _, err := loadPipelineConfig(dir, config.ConfigPath)
	if err != nil {
		return nil, err
	}
	tests := cfg.Tests
	if config.FailFast {
		tests.FailFast = true
	}
	if config.MaxParallel < 0 {
		return nil, fmt.Errorf("--max-parallel must not be negative, got %d", config.MaxParallel)
	}
	if config.MaxParallel > 0 {
		tests.MaxParallel = config.MaxParallel
	}

	event, err := resolveEvent(ctx, dir, config.Event, config.Branch)
	if err != nil {
		return nil, err
	}
	if !tests.On.Matches(event) {
		matrixLog.Printf("Event %s does not match the triggers of %s", event, tests.Name)
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("%s does not trigger %s, nothing to run", event, tests.Name)))
		return nil, nil
	}

	secrets, err := pipeline.LoadSecrets()
	if err != nil {
		return nil, err
	}
	matrixLog.Printf("Loaded secrets: %s", secrets)

	cells := matrix.Expand(matrix.AxesFrom(tests))
	run := matrix.NewRun(event, cells)

	meta := coverage.UploadMeta{Branch: event.Branch, Build: run.ID}
	if repo, err := gitutil.Open(ctx, dir); err == nil {
		if sha, err := repo.HeadCommit(ctx); err == nil {
			meta.Commit = sha
		}
	}

	executor := matrix.NewExecutor(tests, secrets, matrix.Options{
		Dir:      dir,
		Runner:   config.Runner,
		Uploader: config.Uploader,
		Emulate:  config.Emulate,
		Meta:     meta,
	})

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Running %d cells of %s for %s", len(cells), tests.Name, event)))
	spinner := console.NewSpinner(fmt.Sprintf("Running %d cells...", len(cells)))
	spinner.Start()
	report, err := executor.Run(ctx, run)
	spinner.Stop()
	if err != nil {
		return nil, err
	}

	if config.JSON {
		data, err := report.JSON()
		if err != nil {
			return report, fmt.Errorf("failed to encode report: %w", err)
		}
		out := config.Stdout
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintln(out, string(data))
	} else {
		fmt.Fprintln(os.Stderr, renderMatrixReport(report))
	}

	for _, failed := range report.Failed() {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(failed.Error))
		if config.Verbose && failed.Log != "" {
			fmt.Fprintln(os.Stderr, failed.Log)
		}
	}

	if !report.Succeeded() {
		return report, fmt.Errorf("test matrix failed: %s", report.Summary())
	}
	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Test matrix passed: %s", report.Summary())))
	return report, nil
}

func renderMatrixReport(report *matrix.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		uploaded := ""
		if res.CoverageUploaded {
			uploaded = "uploaded"
		}
		rows = append(rows, []string{
			res.Platform,
			res.Version,
			string(res.Status),
			string(res.FailedStep),
			uploaded,
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	return console.RenderTable(console.TableConfig{
		Title:   "Run " + report.RunID,
		Headers: []string{"Platform", "Version", "Status", "Failed step", "Coverage", "Duration"},
		Rows:    rows,
	})
}
