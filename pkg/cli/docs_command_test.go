//go:build !integration

package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/gh-download/ghpipe/pkg/docpipeline"
	"github.com/gh-download/ghpipe/pkg/ghauth"
	"github.com/gh-download/ghpipe/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubToken(t *testing.T, token string, err error) *int {
	t.Helper()
	orig := resolveToken
	t.Cleanup(func() { resolveToken = orig })
	calls := 0
	resolveToken = func(context.Context, string, bool) (string, error) {
		calls++
		return token, err
	}
	return &calls
}

func TestRunDocsCommitsAndPushes(t *testing.T) {
	calls := stubToken(t, "", ghauth.ErrNoToken)
	dir := testutil.InitGitRepo(t, map[string]string{"README.md": regenReadme})
	remote := testutil.InitBareRemote(t, dir)

	report, err := RunDocs(context.Background(), DocsConfig{Dir: dir, Event: "push", Branch: "main", Executor: echoExecutor("hello\n")})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 1, *calls)
	assert.Equal(t, docpipeline.StatePushed, report.Final())
	assert.Equal(t, report.Commit, strings.TrimSpace(testutil.Git(t, remote, "rev-parse", "main")))

	report, err = RunDocs(context.Background(), DocsConfig{Dir: dir, Event: "push", Branch: "main", Executor: echoExecutor("hello\n")})
	require.NoError(t, err)
	assert.Equal(t, docpipeline.StateSkipped, report.Final(), "an unchanged document is neither committed nor pushed")
}

func TestRunDocsNoPush(t *testing.T) {
	calls := stubToken(t, "token", nil)
	dir := testutil.InitGitRepo(t, map[string]string{"README.md": regenReadme})

	report, err := RunDocs(context.Background(), DocsConfig{Dir: dir, Event: "push", Branch: "main", NoPush: true, Executor: echoExecutor("hi\n")})
	require.NoError(t, err)
	assert.Equal(t, docpipeline.StateNotPushed, report.Final())
	assert.Equal(t, 0, *calls, "no token is needed without a push")
}

func TestRunDocsUntriggeredEvent(t *testing.T) {
	stubToken(t, "token", nil)
	dir := testutil.InitGitRepo(t, map[string]string{"README.md": regenReadme})

	report, err := RunDocs(context.Background(), DocsConfig{Dir: dir, Event: "push", Branch: "release", Executor: echoExecutor("hi\n")})
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Equal(t, "1", strings.TrimSpace(testutil.Git(t, dir, "rev-list", "--count", "HEAD")))
}
