package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/docregen"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/spf13/cobra"
)

var regenLog = logger.New("cli:regen_command")

// ErrStale is returned by check modes when generated content is out of date.
var ErrStale = errors.New("generated content is out of date")

// RegenConfig holds the options of the regen command.
type RegenConfig struct {
	Dir        string
	ConfigPath string
	// File is the document to regenerate; empty selects the configured file.
	File    string
	Check   bool
	Watch   bool
	PTY     bool
	Verbose bool

	// Executor replaces the shell executor in tests.
	Executor docregen.Executor
}

// NewRegenCommand creates the regen command
func NewRegenCommand() *cobra.Command {
	var config RegenConfig

	cmd := &cobra.Command{
		Use:   "regen [file]",
		Short: "Regenerate the runnable blocks of a Markdown document",
		Long: `Execute every runnable block of a Markdown document and replace its
OUTPUT section with what the block printed.

Blocks are either comment style (<!-- CODE:START --> or <!-- CODE:BASH:START -->
followed by commented code and <!-- CODE:END -->) or fenced code blocks whose
info string contains "markdown-code-runner". Each must be followed by an
<!-- OUTPUT:START --> ... <!-- OUTPUT:END --> section.

Blocks run with TERM=dumb and NO_COLOR=1 so output does not depend on the
terminal; override with GHPIPE_DOCS_TERM and GHPIPE_DOCS_NO_COLOR.

Examples:
  ghpipe regen                 # the configured file, README.md by default
  ghpipe regen docs/usage.md
  ghpipe regen --check         # fail when README.md is stale, write nothing
  ghpipe regen --watch --pty`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				config.File = args[0]
			}
			_, err := RunRegen(cmd.Context(), config)
			return err
		},
	}

	addConfigFlag(cmd, &config.ConfigPath)
	cmd.Flags().BoolVar(&config.Check, "check", false, "Exit with an error when the file is out of date, without writing it")
	cmd.Flags().BoolVarP(&config.Watch, "watch", "w", false, "Regenerate whenever the file changes")
	cmd.Flags().BoolVar(&config.PTY, "pty", false, "Run blocks attached to a pseudo-terminal")
	cmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Show verbose output")
	cmd.MarkFlagsMutuallyExclusive("check", "watch")

	return cmd
}

// RunRegen regenerates the document once, or keeps regenerating it in
// watch mode until ctx is cancelled.
func RunRegen(ctx context.Context, config RegenConfig) (*docregen.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir := repoDir(config.Dir)

	file := config.File
	if file == "" {
		cfg, _, err := loadPipelineConfig(dir, config.ConfigPath)
		if err != nil {
			return nil, err
		}
		file = cfg.Docs.File
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	executor := config.Executor
	if executor == nil {
		display, err := pipeline.LoadDisplayEnv()
		if err != nil {
			return nil, err
		}
		executor = docregen.NewShellExecutor(dir, display, config.PTY)
	}

	regenLog.Printf("Regenerating %s: check=%v, watch=%v, pty=%v", path, config.Check, config.Watch, config.PTY)
	result, err := regenerateOnce(ctx, path, executor, config)
	if err != nil || !config.Watch {
		return result, err
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", file)))
	err = docregen.Watch(ctx, path, func() error {
		_, err := regenerateOnce(ctx, path, executor, config)
		return err
	}, func(err error) {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
	})
	return result, err
}

func regenerateOnce(ctx context.Context, path string, executor docregen.Executor, config RegenConfig) (*docregen.Result, error) {
	result, err := docregen.RegenerateFile(ctx, path, executor, config.Check)
	if err != nil {
		return nil, err
	}

	switch {
	case config.Check && result.Changed:
		fmt.Fprintln(os.Stderr, console.FormatErrorWithSuggestions(
			fmt.Sprintf("%s is out of date", path),
			[]string{fmt.Sprintf("Run '%s regen %s' and commit the result", constants.CLIName, path)},
		))
		return result, fmt.Errorf("%s: %w", path, ErrStale)
	case config.Check:
		fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("%s is up to date (%d blocks)", path, result.Blocks)))
	case result.Changed:
		fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Updated %s (%d blocks)", path, result.Blocks)))
	default:
		console.LogVerbose(config.Verbose, fmt.Sprintf("%s unchanged (%d blocks)", path, result.Blocks))
	}
	return result, nil
}
