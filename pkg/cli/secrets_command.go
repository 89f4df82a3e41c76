package cli

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/constants"
	"github.com/gh-download/ghpipe/pkg/ghauth"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/nacl/box"
)

var secretsLog = logger.New("cli:secrets_command")

type repoPublicKey struct {
	ID  string `json:"key_id"`
	Key string `json:"key"`
}

type secretPayload struct {
	EncryptedValue string `json:"encrypted_value"`
	KeyID          string `json:"key_id"`
}

const publicKeySize = 32 // NaCl box public key size

// secretsClient is the part of the GitHub REST client secrets need.
type secretsClient interface {
	Get(path string, response any) error
	Put(path string, body io.Reader, response any) error
}

var newSecretsClient = func(host, token string) (secretsClient, error) {
	return api.NewRESTClient(api.ClientOptions{Host: host, AuthToken: token})
}

// SecretsSetConfig holds the options of the secrets set command.
type SecretsSetConfig struct {
	Name     string
	Repo     string
	Value    string
	ValueEnv string
	Stdin    io.Reader
}

// NewSecretsCommand creates the secrets command group
func NewSecretsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage the repository secrets the compiled workflows read",
	}
	cmd.AddCommand(newSecretsSetSubcommand())
	return cmd
}

func newSecretsSetSubcommand() *cobra.Command {
	var config SecretsSetConfig

	cmd := &cobra.Command{
		Use:   "set <secret-name>",
		Short: "Create or update a repository secret",
		Long: `Create or update a GitHub Actions secret of the current repository.

The test workflow reads CODECOV_TOKEN in the coverage upload step only.

The secret value can be provided in three ways:
  1. Via the --value flag
  2. Via the --value-from-env flag (reads from environment variable)
  3. From stdin (if neither flag is provided)

Examples:
  ghpipe secrets set CODECOV_TOKEN
  ghpipe secrets set CODECOV_TOKEN --value-from-env CODECOV_TOKEN
  ghpipe secrets set CODECOV_TOKEN --repo basnijholt/gh-download < token.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Name = args[0]
			config.Stdin = cmd.InOrStdin()
			return RunSecretsSet(cmd.Context(), config)
		},
	}

	cmd.Flags().StringVarP(&config.Repo, "repo", "R", "", "Target repository as owner/name (defaults to current repository)")
	cmd.Flags().StringVar(&config.Value, "value", "", "Secret value (if empty, read from stdin)")
	cmd.Flags().StringVar(&config.ValueEnv, "value-from-env", "", "Environment variable to read secret value from")

	return cmd
}

// RunSecretsSet encrypts the value with the repository public key and
// stores it as an Actions secret.
func RunSecretsSet(ctx context.Context, config SecretsSetConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	secretsLog.Printf("Setting repository secret: name=%s", config.Name)

	repo, err := resolveSecretsRepo(config.Repo)
	if err != nil {
		return err
	}

	secretValue, err := resolveSecretValueForSet(config.ValueEnv, config.Value, config.Stdin)
	if err != nil {
		return fmt.Errorf("cannot resolve secret value: %w", err)
	}

	token, err := resolveToken(ctx, os.Getenv(constants.RepositoryTokenEnv), true)
	if err != nil {
		return err
	}
	client, err := newSecretsClient(repo.Host, token)
	if err != nil {
		return fmt.Errorf("cannot create GitHub client: %w", err)
	}

	secretsLog.Print("Encrypting and uploading secret to GitHub")
	if err := setRepoSecret(client, repo.Owner, repo.Name, config.Name, secretValue); err != nil {
		return fmt.Errorf("failed to set secret: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Secret %s updated for %s", config.Name, repo)))
	return nil
}

func resolveSecretsRepo(slug string) (ghauth.Repo, error) {
	if slug == "" {
		return ghauth.CurrentRepo()
	}
	owner, name, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return ghauth.Repo{}, fmt.Errorf("invalid repository %q, expected owner/name", slug)
	}
	return ghauth.Repo{Host: constants.GitHubHost, Owner: owner, Name: name}, nil
}

func resolveSecretValueForSet(fromEnv, fromFlag string, stdin io.Reader) (string, error) {
	if fromEnv != "" {
		v := os.Getenv(fromEnv)
		if v == "" {
			return "", fmt.Errorf("environment variable %s is not set or empty", fromEnv)
		}
		return v, nil
	}

	if fromFlag != "" {
		return fromFlag, nil
	}

	// If we're in an interactive terminal, use Huh for a better UX with password masking
	if stdin == os.Stdin && console.IsStdinTerminal() && console.IsStderrTerminal() {
		secretsLog.Print("Using interactive password prompt with Huh")
		value, err := console.PromptSecretInput(
			"Enter secret value",
			"The value will be encrypted and stored in the repository",
		)
		if err != nil {
			return "", fmt.Errorf("failed to read secret value: %w", err)
		}
		return value, nil
	}

	secretsLog.Print("Using non-interactive stdin reading")
	if stdin == nil {
		stdin = os.Stdin
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}

	value := strings.TrimRight(string(data), "\r\n")
	if value == "" {
		return "", errors.New("secret value is empty")
	}
	return value, nil
}

func setRepoSecret(client secretsClient, owner, repo, name, value string) error {
	pubKey, err := getRepoPublicKey(client, owner, repo)
	if err != nil {
		return fmt.Errorf("get repo public key: %w", err)
	}

	encrypted, err := encryptWithPublicKey(pubKey.Key, value)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}

	return putRepoSecret(client, owner, repo, name, pubKey.ID, encrypted)
}

func getRepoPublicKey(client secretsClient, owner, repo string) (*repoPublicKey, error) {
	var key repoPublicKey
	path := fmt.Sprintf("repos/%s/%s/actions/secrets/public-key", owner, repo)
	if err := client.Get(path, &key); err != nil {
		return nil, fmt.Errorf("get public key: %w", err)
	}
	if key.ID == "" || key.Key == "" {
		return nil, errors.New("public key response missing key_id or key")
	}
	return &key, nil
}

// encryptWithPublicKey encrypts plaintext using NaCl's sealed box construction
// (Curve25519 + XSalsa20 + Poly1305) as required by GitHub's Actions Secrets API.
// Returns base64-encoded ciphertext.
func encryptWithPublicKey(publicKeyB64, plaintext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != publicKeySize {
		return "", fmt.Errorf("unexpected public key length: %d, expected %d", len(raw), publicKeySize)
	}

	var pk [publicKeySize]byte
	copy(pk[:], raw)

	ciphertext, err := box.SealAnonymous(nil, []byte(plaintext), &pk, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("nacl encryption failed: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func putRepoSecret(client secretsClient, owner, repo, name, keyID, encryptedValue string) error {
	path := fmt.Sprintf("repos/%s/%s/actions/secrets/%s", owner, repo, name)
	body, err := json.Marshal(secretPayload{
		EncryptedValue: encryptedValue,
		KeyID:          keyID,
	})
	if err != nil {
		return err
	}
	return client.Put(path, bytes.NewReader(body), nil)
}
