// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TempDir creates a temporary directory matching pattern that is removed
// when the test finishes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// WriteFile writes content to name inside dir, creating parents.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// RequireGit skips the test when git is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// InitGitRepo initialises a repository in a fresh temp dir with files
// committed on branch main and returns its path.
func InitGitRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	RequireGit(t)

	dir := TempDir(t, "ghpipe-repo-*")
	Git(t, dir, "init", "--quiet")
	Git(t, dir, "checkout", "--quiet", "-b", "main")
	Git(t, dir, "config", "user.name", "Test User")
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "commit.gpgsign", "false")

	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
	Git(t, dir, "add", "-A")
	Git(t, dir, "commit", "--quiet", "-m", "initial")
	return dir
}

// InitBareRemote creates a bare repository and registers it as origin of dir.
func InitBareRemote(t *testing.T, dir string) string {
	t.Helper()
	remote := TempDir(t, "ghpipe-remote-*")
	Git(t, remote, "init", "--quiet", "--bare")
	Git(t, dir, "remote", "add", "origin", remote)
	Git(t, dir, "push", "--quiet", "origin", "main")
	return remote
}

// Git runs a git command in dir and fails the test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return string(out)
}
