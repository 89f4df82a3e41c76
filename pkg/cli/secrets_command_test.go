//go:build !integration

package cli

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"
)

type fakeSecretsClient struct {
	publicKey repoPublicKey
	getErr    error
	gets      []string
	putPath   string
	payload   secretPayload
}

func (c *fakeSecretsClient) Get(path string, response any) error {
	c.gets = append(c.gets, path)
	if c.getErr != nil {
		return c.getErr
	}
	*(response.(*repoPublicKey)) = c.publicKey
	return nil
}

func (c *fakeSecretsClient) Put(path string, body io.Reader, response any) error {
	c.putPath = path
	return json.NewDecoder(body).Decode(&c.payload)
}

func newKeyPair(t *testing.T) (*[32]byte, *[32]byte) {
	t.Helper()
	pub, priv, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func openSealed(t *testing.T, ciphertextB64 string, pub, priv *[32]byte) string {
	t.Helper()
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	require.NoError(t, err)
	plain, ok := box.OpenAnonymous(nil, ciphertext, pub, priv)
	require.True(t, ok, "sealed box must open with the private key")
	return string(plain)
}

func TestEncryptWithPublicKey(t *testing.T) {
	pub, priv := newKeyPair(t)

	encrypted, err := encryptWithPublicKey(base64.StdEncoding.EncodeToString(pub[:]), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", openSealed(t, encrypted, pub, priv))

	_, err = encryptWithPublicKey("not base64!", "x")
	require.Error(t, err)

	_, err = encryptWithPublicKey(base64.StdEncoding.EncodeToString([]byte("short")), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected public key length")
}

func TestSetRepoSecret(t *testing.T) {
	pub, priv := newKeyPair(t)
	client := &fakeSecretsClient{publicKey: repoPublicKey{ID: "key-1", Key: base64.StdEncoding.EncodeToString(pub[:])}}

	require.NoError(t, setRepoSecret(client, "basnijholt", "gh-download", "CODECOV_TOKEN", "tok"))

	assert.Equal(t, []string{"repos/basnijholt/gh-download/actions/secrets/public-key"}, client.gets)
	assert.Equal(t, "repos/basnijholt/gh-download/actions/secrets/CODECOV_TOKEN", client.putPath)
	assert.Equal(t, "key-1", client.payload.KeyID)
	assert.Equal(t, "tok", openSealed(t, client.payload.EncryptedValue, pub, priv))
}

func TestSetRepoSecretErrors(t *testing.T) {
	client := &fakeSecretsClient{getErr: errors.New("HTTP 404")}
	err := setRepoSecret(client, "o", "r", "NAME", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	client = &fakeSecretsClient{publicKey: repoPublicKey{ID: "key-1"}}
	err = setRepoSecret(client, "o", "r", "NAME", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing key_id or key")
	assert.Empty(t, client.putPath)
}

func TestResolveSecretsRepo(t *testing.T) {
	tests := []struct {
		slug    string
		want    string
		wantErr bool
	}{
		{slug: "basnijholt/gh-download", want: "basnijholt/gh-download"},
		{slug: "gh-download", wantErr: true},
		{slug: "/gh-download", wantErr: true},
		{slug: "a/b/c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			repo, err := resolveSecretsRepo(tt.slug)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, repo.String())
			assert.Equal(t, "github.com", repo.Host)
		})
	}
}

func TestResolveSecretValueForSet(t *testing.T) {
	t.Setenv("GHPIPE_TEST_SECRET", "from-env")

	tests := []struct {
		name    string
		fromEnv string
		flag    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "environment variable", fromEnv: "GHPIPE_TEST_SECRET", flag: "ignored", want: "from-env"},
		{name: "unset environment variable", fromEnv: "GHPIPE_TEST_UNSET", wantErr: true},
		{name: "flag", flag: "from-flag", want: "from-flag"},
		{name: "stdin with trailing newline", stdin: "piped\r\n", want: "piped"},
		{name: "empty stdin", stdin: "\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSecretValueForSet(tt.fromEnv, tt.flag, strings.NewReader(tt.stdin))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunSecretsSet(t *testing.T) {
	stubToken(t, "gh-token", nil)
	pub, priv := newKeyPair(t)
	client := &fakeSecretsClient{publicKey: repoPublicKey{ID: "key-2", Key: base64.StdEncoding.EncodeToString(pub[:])}}

	orig := newSecretsClient
	t.Cleanup(func() { newSecretsClient = orig })
	var gotHost, gotToken string
	newSecretsClient = func(host, token string) (secretsClient, error) {
		gotHost, gotToken = host, token
		return client, nil
	}

	err := RunSecretsSet(context.Background(), SecretsSetConfig{
		Name:  "CODECOV_TOKEN",
		Repo:  "basnijholt/gh-download",
		Stdin: strings.NewReader("abc123\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "github.com", gotHost)
	assert.Equal(t, "gh-token", gotToken)
	assert.Equal(t, "abc123", openSealed(t, client.payload.EncryptedValue, pub, priv))
}
