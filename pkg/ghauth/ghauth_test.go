//go:build !integration

package ghauth

import (
	"context"
	"errors"
	"testing"

	"github.com/cli/go-gh/v2/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authStub struct {
	stored    string
	confirmed bool
	logins    int
	prompts   int
}

func (s *authStub) install(t *testing.T, tty bool) {
	t.Helper()
	origToken, origConfirm, origTTY, origLogin := tokenForHost, confirm, stdinIsTTY, login
	t.Cleanup(func() {
		tokenForHost, confirm, stdinIsTTY, login = origToken, origConfirm, origTTY, origLogin
	})

	tokenForHost = func(string) (string, string) {
		if s.stored == "" {
			return "", "default"
		}
		return s.stored, "keyring"
	}
	confirm = func(string, string, string) (bool, error) {
		s.prompts++
		return s.confirmed, nil
	}
	stdinIsTTY = func() bool { return tty }
	login = func(context.Context) error {
		s.logins++
		s.stored = "fresh-token"
		return nil
	}
}

func TestResolveToken(t *testing.T) {
	tests := []struct {
		name        string
		explicit    string
		stored      string
		interactive bool
		tty         bool
		confirmed   bool
		want        string
		wantErr     bool
		wantLogins  int
		wantPrompts int
	}{
		{name: "explicit token wins", explicit: "env-token", stored: "gh-token", want: "env-token"},
		{name: "gh stored token", stored: "gh-token", want: "gh-token"},
		{name: "non-interactive without token", wantErr: true},
		{name: "interactive without terminal", interactive: true, wantErr: true},
		{name: "login declined", interactive: true, tty: true, wantErr: true, wantPrompts: 1},
		{name: "login accepted", interactive: true, tty: true, confirmed: true, want: "fresh-token", wantLogins: 1, wantPrompts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &authStub{stored: tt.stored, confirmed: tt.confirmed}
			stub.install(t, tt.tty)

			token, err := ResolveToken(context.Background(), tt.explicit, tt.interactive)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoToken)
				assert.Contains(t, err.Error(), "gh auth login")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, token)
			}
			assert.Equal(t, tt.wantLogins, stub.logins)
			assert.Equal(t, tt.wantPrompts, stub.prompts)
		})
	}
}

func TestResolveTokenLoginFailure(t *testing.T) {
	stub := &authStub{confirmed: true}
	stub.install(t, true)
	login = func(context.Context) error { return errors.New("exit status 1") }

	_, err := ResolveToken(context.Background(), "", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gh auth login failed")
}

func TestCurrentRepo(t *testing.T) {
	orig := currentRepository
	t.Cleanup(func() { currentRepository = orig })

	currentRepository = func() (repository.Repository, error) {
		return repository.Repository{Host: "github.com", Owner: "basnijholt", Name: "gh-download"}, nil
	}
	repo, err := CurrentRepo()
	require.NoError(t, err)
	assert.Equal(t, "basnijholt/gh-download", repo.String())

	currentRepository = func() (repository.Repository, error) {
		return repository.Repository{}, errors.New("no git remotes found")
	}
	_, err = CurrentRepo()
	require.Error(t, err)
}
