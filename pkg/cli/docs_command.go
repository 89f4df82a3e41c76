package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/docpipeline"
	"github.com/gh-download/ghpipe/pkg/docregen"
	"github.com/gh-download/ghpipe/pkg/ghauth"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/spf13/cobra"
)

var docsLog = logger.New("cli:docs_command")

var resolveToken = ghauth.ResolveToken

// DocsConfig holds the options of the docs command.
type DocsConfig struct {
	Dir        string
	ConfigPath string
	Event      string
	Branch     string
	NoPush     bool
	Verbose    bool

	// Executor replaces the shell executor in tests.
	Executor docregen.Executor
}

// NewDocsCommand creates the docs command
func NewDocsCommand() *cobra.Command {
	var config DocsConfig

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Regenerate the documentation, commit it and push the commit",
		Long: `Run the documentation pipeline for the repository in the current directory.

The configured file (README.md by default) is regenerated. If it changed, it
is committed and the commit is pushed to the branch the event came from: the
pushed branch, or the head branch of a pull request. When nothing changed,
nothing is committed and nothing is pushed.

The push uses GITHUB_TOKEN (or GH_TOKEN). Without one, the token of the gh
CLI is used, and in a terminal you are offered a 'gh auth login'.

Examples:
  ghpipe docs                                   # push to the current branch
  ghpipe docs --event pull_request --branch fix-auth
  ghpipe docs --no-push                         # stop after the commit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := RunDocs(cmd.Context(), config)
			return err
		},
	}

	addConfigFlag(cmd, &config.ConfigPath)
	addEventFlags(cmd, &config.Event, &config.Branch)
	cmd.Flags().BoolVar(&config.NoPush, "no-push", false, "Commit locally but do not push")
	cmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Show every state transition")

	return cmd
}

// RunDocs runs the documentation pipeline for the configured event. It
// returns a nil report when the event does not trigger the pipeline.
func RunDocs(ctx context.Context, config DocsConfig) (*docpipeline.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dir := repoDir(config.Dir)

	cfg, _, err := loadPipelineConfig(dir, config.ConfigPath)
	if err != nil {
		return nil, err
	}
	event, err := resolveEvent(ctx, dir, config.Event, config.Branch)
	if err != nil {
		return nil, err
	}
	if !cfg.Docs.On.Matches(event) {
		docsLog.Printf("Event %s does not match the triggers of %s", event, cfg.Docs.Name)
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("%s does not trigger %s, nothing to run", event, cfg.Docs.Name)))
		return nil, nil
	}

	secrets, err := pipeline.LoadSecrets()
	if err != nil {
		return nil, err
	}
	if !config.NoPush {
		token, err := resolveToken(ctx, secrets.GitHubToken, true)
		switch {
		case errors.Is(err, ghauth.ErrNoToken):
			fmt.Fprintln(os.Stderr, console.FormatWarningMessage("No GitHub token found, pushing with git's own credentials"))
		case err != nil:
			return nil, err
		default:
			secrets = secrets.WithGitHubToken(token)
		}
	}

	display, err := pipeline.LoadDisplayEnv()
	if err != nil {
		return nil, err
	}

	p, err := docpipeline.New(ctx, cfg.Docs, secrets, docpipeline.Options{
		Dir:      dir,
		Executor: config.Executor,
		Display:  display,
		NoPush:   config.NoPush,
		OnState: func(s docpipeline.State) {
			console.LogVerbose(config.Verbose, "State: "+string(s))
		},
	})
	if err != nil {
		return nil, err
	}

	run := docpipeline.NewRun(event)
	docsLog.Printf("Starting documentation run %s", run.ID)
	report, err := p.Run(ctx, run)
	if err != nil {
		return report, err
	}

	switch report.Final() {
	case docpipeline.StatePushed:
		fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Committed %s and pushed it to %s", cfg.Docs.File, report.Branch)))
	case docpipeline.StateNotPushed:
		fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Committed %s (not pushed)", cfg.Docs.File)))
	default:
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("%s is up to date, nothing to commit", cfg.Docs.File)))
	}
	return report, nil
}
