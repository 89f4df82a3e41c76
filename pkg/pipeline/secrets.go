package pipeline

import (
	"fmt"

	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/kelseyhightower/envconfig"
)

// Secrets are the credentials of one run. They are read from the
// environment once, at the CLI layer, and passed by value into every step so
// no step can change what another step sees.
type Secrets struct {
	GitHubToken   string
	CoverageToken string
}

type secretsEnv struct {
	GitHubToken   string `envconfig:"GITHUB_TOKEN"`
	GHToken       string `envconfig:"GH_TOKEN"`
	CoverageToken string `envconfig:"CODECOV_TOKEN"`
}

// LoadSecrets reads GITHUB_TOKEN (or GH_TOKEN) and CODECOV_TOKEN.
func LoadSecrets() (Secrets, error) {
	var env secretsEnv
	if err := envconfig.Process("", &env); err != nil {
		return Secrets{}, fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	token := env.GitHubToken
	if token == "" {
		token = env.GHToken
	}
	return Secrets{GitHubToken: token, CoverageToken: env.CoverageToken}, nil
}

// WithGitHubToken returns a copy carrying token as the repository token.
func (s Secrets) WithGitHubToken(token string) Secrets {
	s.GitHubToken = token
	return s
}

// RepositoryEnv is the process-wide environment every matrix step receives.
// The coverage token is deliberately absent; only the upload step gets it.
func (s Secrets) RepositoryEnv() []string {
	if s.GitHubToken == "" {
		return nil
	}
	return []string{constants.RepositoryTokenEnv + "=" + s.GitHubToken}
}

// String never prints token values.
func (s Secrets) String() string {
	return fmt.Sprintf("Secrets{GitHubToken:%s CoverageToken:%s}", redact(s.GitHubToken), redact(s.CoverageToken))
}

// GoString keeps %#v from leaking tokens.
func (s Secrets) GoString() string {
	return s.String()
}

func redact(v string) string {
	if v == "" {
		return "unset"
	}
	return "set"
}

// DisplayEnv holds the terminal toggles injected into documentation blocks so
// regenerated output does not depend on the caller's terminal.
type DisplayEnv struct {
	Term    string `default:"dumb"`
	NoColor string `split_words:"true" default:"1"`
}

// LoadDisplayEnv reads GHPIPE_DOCS_TERM and GHPIPE_DOCS_NO_COLOR, falling
// back to TERM=dumb and NO_COLOR=1.
func LoadDisplayEnv() (DisplayEnv, error) {
	var d DisplayEnv
	if err := envconfig.Process(constants.DocsDisplayEnvPrefix, &d); err != nil {
		return DisplayEnv{}, fmt.Errorf("failed to read display settings: %w", err)
	}
	return d, nil
}

// DefaultDisplayEnv is the display environment used in CI.
func DefaultDisplayEnv() DisplayEnv {
	return DisplayEnv{Term: constants.DefaultDisplayTerm, NoColor: constants.DefaultDisplayNoColor}
}

// Environ renders the toggles as KEY=value pairs. Empty values are omitted.
func (d DisplayEnv) Environ() []string {
	var env []string
	if d.Term != "" {
		env = append(env, "TERM="+d.Term)
	}
	if d.NoColor != "" {
		env = append(env, "NO_COLOR="+d.NoColor)
	}
	return env
}
