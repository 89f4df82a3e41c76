// Package ghauth resolves GitHub credentials by delegating to the gh CLI's
// own authentication instead of managing tokens itself.
package ghauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/cli/go-gh/v2/pkg/auth"
	"github.com/cli/go-gh/v2/pkg/repository"
	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/logger"
)

var authLog = logger.New("ghauth:token")

// ErrNoToken is returned when no source can provide a token.
var ErrNoToken = errors.New("no GitHub token available")

// Test seams.
var (
	tokenForHost = auth.TokenForHost
	confirm      = console.ConfirmAction
	stdinIsTTY   = console.IsStdinTerminal
	login        = runLogin
)

// ResolveToken returns the repository access token. An explicit token wins;
// otherwise the token gh stores for github.com is used. When interactive and
// gh has none, the user is offered a browser login through gh.
func ResolveToken(ctx context.Context, explicit string, interactive bool) (string, error) {
	if explicit != "" {
		authLog.Print("Using token from environment")
		return explicit, nil
	}

	if token, source := tokenForHost(constants.GitHubHost); token != "" {
		authLog.Printf("Using token from gh (%s)", source)
		return token, nil
	}

	if !interactive || !stdinIsTTY() {
		return "", noTokenError()
	}

	ok, err := confirm("GitHub authentication required. Log in with gh now?", "Log in", "Cancel")
	if err != nil {
		return "", fmt.Errorf("failed to prompt for login: %w", err)
	}
	if !ok {
		return "", noTokenError()
	}
	if err := login(ctx); err != nil {
		return "", fmt.Errorf("gh auth login failed: %w", err)
	}

	if token, _ := tokenForHost(constants.GitHubHost); token != "" {
		authLog.Print("Using token from gh after login")
		return token, nil
	}
	return "", noTokenError()
}

func noTokenError() error {
	return fmt.Errorf("%w: set %s or run 'gh auth login --hostname %s --web'",
		ErrNoToken, constants.RepositoryTokenEnv, constants.GitHubHost)
}

func runLogin(ctx context.Context) error {
	if _, err := exec.LookPath("gh"); err != nil {
		return errors.New("the gh CLI is not installed; see https://cli.github.com")
	}
	cmd := exec.CommandContext(ctx, "gh", "auth", "login", "--hostname", constants.GitHubHost, "--web")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	fmt.Fprintln(os.Stderr, console.FormatCommandMessage(cmd.String()))
	return cmd.Run()
}

// Repo identifies a GitHub repository.
type Repo struct {
	Host  string
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

var currentRepository = repository.Current

// CurrentRepo resolves the repository of the working directory from
// GH_REPO or the git remotes.
func CurrentRepo() (Repo, error) {
	r, err := currentRepository()
	if err != nil {
		return Repo{}, fmt.Errorf("failed to detect current repository: %w", err)
	}
	return Repo{Host: r.Host, Owner: r.Owner, Name: r.Name}, nil
}
