package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/gitutil"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/gh-download/ghpipe/pkg/workflow"
	"github.com/spf13/cobra"
)

var commandsLog = logger.New("cli:commands")

// Package-level version information
var (
	version = "dev"
)

// SetVersionInfo sets the version information for the CLI and workflow package
func SetVersionInfo(v string) {
	version = v
	workflow.SetVersion(v)
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// repoDir returns dir, or the working directory when dir is empty.
func repoDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

// loadPipelineConfig reads the pipeline configuration. configPath is taken
// relative to dir unless absolute; empty selects .github/ghpipe.yml.
func loadPipelineConfig(dir, configPath string) (*pipeline.Config, string, error) {
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}
	path := configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoDir(dir), path)
	}
	commandsLog.Printf("Loading configuration from %s", path)
	cfg, err := pipeline.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, configPath, nil
}

// resolveEvent builds the triggering event from the --event and --branch
// flags. Without --branch the checked-out branch of dir is used.
func resolveEvent(ctx context.Context, dir, name, branch string) (pipeline.Event, error) {
	eventName, err := pipeline.ParseEventName(name)
	if err != nil {
		return pipeline.Event{}, err
	}
	if branch == "" {
		repo, err := gitutil.Open(ctx, repoDir(dir))
		if err != nil {
			return pipeline.Event{}, fmt.Errorf("cannot determine the branch, pass --branch: %w", err)
		}
		branch, err = repo.CurrentBranch(ctx)
		if err != nil {
			return pipeline.Event{}, fmt.Errorf("cannot determine the branch, pass --branch: %w", err)
		}
	}
	event := pipeline.Event{Name: eventName, Branch: branch}
	commandsLog.Printf("Resolved event: %s", event)
	return event, nil
}

func addConfigFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "config", "c", "", fmt.Sprintf("Pipeline configuration file (default %s)", constants.DefaultConfigPath))
}

func addEventFlags(cmd *cobra.Command, event, branch *string) {
	cmd.Flags().StringVar(event, "event", string(pipeline.EventPush), "Triggering event: push or pull_request")
	cmd.Flags().StringVar(branch, "branch", "", "Pushed branch, or the head branch of a pull request (default: current branch)")
}
