package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gh-download/ghpipe/pkg/cli"
	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/workflow"
	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	isRelease = "false"
)

var rootCmd = &cobra.Command{
	Use:   constants.CLIName,
	Short: "Run and compile the gh-download test and documentation pipelines",
	Long: `ghpipe runs the two automation pipelines of a Python project locally and
compiles them to GitHub Actions workflows.

The test pipeline runs the suite on every platform × interpreter version cell
and uploads coverage from exactly one of them. The documentation pipeline
regenerates the README, commits it only when it changed and pushes only what
it committed.

Common tasks:
  ghpipe plan               # Show the matrix and the coverage gate
  ghpipe matrix             # Run the test matrix on this machine
  ghpipe regen              # Regenerate README.md
  ghpipe docs               # Regenerate, commit and push README.md
  ghpipe compile            # Write .github/workflows/*.yml

Set DEBUG=* (or DEBUG=matrix:*,git:*) for debug logging.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "pipelines", Title: "Pipeline Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
	)

	for _, cmd := range []*cobra.Command{
		cli.NewMatrixCommand(),
		cli.NewRegenCommand(),
		cli.NewDocsCommand(),
		cli.NewPlanCommand(),
	} {
		cmd.GroupID = "pipelines"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		cli.NewCompileCommand(),
		cli.NewSecretsCommand(),
		cli.NewMCPServerCommand(),
	} {
		cmd.GroupID = "setup"
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(cli.NewVersionCommand())
}

func main() {
	cli.SetVersionInfo(version)
	workflow.SetIsRelease(isRelease == "true")
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
		os.Exit(1)
	}
}
