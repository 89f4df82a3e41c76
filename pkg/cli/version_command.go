package cli

import (
	"fmt"

	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/workflow"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			build := "development build"
			if workflow.IsRelease() {
				build = "release"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", constants.CLIName, GetVersion(), build)
			return nil
		},
	}
}
