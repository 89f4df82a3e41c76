// Package gitutil wraps the git operations of the documentation pipeline.
package gitutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gh-download/ghpipe/pkg/logger"
)

var repoLog = logger.New("git:repo")

// ErrNotRepository is returned when a directory is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Repo is a git work tree.
type Repo struct {
	Dir string
}

// Open returns the repository containing dir.
func Open(ctx context.Context, dir string) (*Repo, error) {
	r := &Repo{Dir: dir}
	top, err := r.output(ctx, "rev-parse", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
	}
	repoLog.Printf("Opened repository at %s", top)
	return &Repo{Dir: top}, nil
}

// HasChanges reports whether paths differ between the working tree and the
// index, or between the index and HEAD.
func (r *Repo) HasChanges(ctx context.Context, paths ...string) (bool, error) {
	unstaged, err := r.differs(ctx, append([]string{"diff", "--quiet", "--"}, paths...))
	if err != nil {
		return false, err
	}
	if unstaged {
		repoLog.Printf("Unstaged changes in %v", paths)
		return true, nil
	}
	staged, err := r.differs(ctx, append([]string{"diff", "--cached", "--quiet", "--"}, paths...))
	if err != nil {
		return false, err
	}
	repoLog.Printf("Staged changes in %v: %v", paths, staged)
	return staged, nil
}

// differs runs a --quiet diff: exit status 1 means a difference.
func (r *Repo) differs(ctx context.Context, args []string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("git diff failed: %w: %s", err, strings.TrimSpace(stderr.String()))
}

// Add stages paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	_, err := r.output(ctx, "add", append([]string{"add", "--"}, paths...)...)
	return err
}

// Author is the identity commits are recorded under.
type Author struct {
	Name  string
	Email string
}

// Commit records the staged changes with message and returns the new HEAD.
func (r *Repo) Commit(ctx context.Context, message string, author Author) (string, error) {
	args := []string{}
	if author.Name != "" {
		args = append(args, "-c", "user.name="+author.Name)
	}
	if author.Email != "" {
		args = append(args, "-c", "user.email="+author.Email)
	}
	args = append(args, "commit", "--quiet", "--no-verify", "-m", message)
	if _, err := r.output(ctx, "commit", args...); err != nil {
		return "", err
	}
	return r.HeadCommit(ctx)
}

// Push updates branch on origin with HEAD. A non-empty token is sent as an
// HTTP basic authorization header and never appears in errors or logs.
func (r *Repo) Push(ctx context.Context, branch, token string) error {
	var args []string
	if token != "" {
		creds := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
		args = append(args, "-c", "http.extraheader=AUTHORIZATION: basic "+creds)
	}
	args = append(args, "push", "--quiet", "origin", "HEAD:refs/heads/"+branch)
	repoLog.Printf("Pushing HEAD to origin/%s (token: %v)", branch, token != "")
	_, err := r.output(ctx, "push", args...)
	if err != nil && token != "" {
		return errors.New(strings.ReplaceAll(err.Error(), token, "***"))
	}
	return err
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	branch, err := r.output(ctx, "rev-parse", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if branch == "HEAD" {
		return "", errors.New("HEAD is detached")
	}
	return branch, nil
}

// HeadCommit returns the SHA of HEAD.
func (r *Repo) HeadCommit(ctx context.Context) (string, error) {
	return r.output(ctx, "rev-parse", "rev-parse", "HEAD")
}

// output runs git with args and returns trimmed stdout. label names the
// operation in errors so header values never leak into messages.
func (r *Repo) output(ctx context.Context, label string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", label, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
