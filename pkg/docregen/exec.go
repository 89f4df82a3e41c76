package docregen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"github.com/creack/pty"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
)

var execLog = logger.New("docregen:exec")

// ShellExecutor runs blocks as subprocesses. Each block is a separate
// process; python blocks do not share interpreter state.
type ShellExecutor struct {
	Dir string
	Env []string
	// PTY attaches blocks to a pseudo-terminal instead of pipes.
	PTY bool
}

// NewShellExecutor creates an executor whose environment is the current
// process environment with the display toggles applied.
func NewShellExecutor(dir string, display pipeline.DisplayEnv, usePTY bool) *ShellExecutor {
	env := slices.DeleteFunc(os.Environ(), func(kv string) bool {
		return strings.HasPrefix(kv, "TERM=") || strings.HasPrefix(kv, "NO_COLOR=")
	})
	return &ShellExecutor{Dir: dir, Env: append(env, display.Environ()...), PTY: usePTY}
}

// Command returns the process that runs block.
func Command(ctx context.Context, block Block) (*exec.Cmd, error) {
	switch block.Language {
	case "python", "python3", "py":
		python := "python3"
		if runtime.GOOS == "windows" {
			python = "python"
		}
		return exec.CommandContext(ctx, python, "-c", block.Code), nil
	case "bash":
		return exec.CommandContext(ctx, "bash", "-c", block.Code), nil
	case "sh", "shell":
		return exec.CommandContext(ctx, "sh", "-c", block.Code), nil
	}
	return nil, fmt.Errorf("unsupported block language %q", block.Language)
}

func (e *ShellExecutor) Execute(ctx context.Context, block Block) (string, error) {
	cmd, err := Command(ctx, block)
	if err != nil {
		return "", err
	}
	cmd.Dir = e.Dir
	cmd.Env = e.Env

	execLog.Printf("Executing %s block from line %d (pty=%v)", block.Language, block.Line, e.PTY)
	if e.PTY {
		return runPTY(cmd)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// runPTY runs cmd on a pseudo-terminal and returns everything it wrote.
// Terminal line endings are normalized to \n.
func runPTY(cmd *exec.Cmd) (string, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to start block on a pty: %w", err)
	}
	defer ptmx.Close()

	var out bytes.Buffer
	_, copyErr := io.Copy(&out, ptmx)
	waitErr := cmd.Wait()

	// Linux reports EIO once the child closes its side.
	var pathErr *os.PathError
	if copyErr != nil && !errors.As(copyErr, &pathErr) {
		return "", fmt.Errorf("failed to read pty output: %w", copyErr)
	}

	output := strings.ReplaceAll(out.String(), "\r\n", "\n")
	if waitErr != nil {
		return "", fmt.Errorf("%w: %s", waitErr, strings.TrimSpace(output))
	}
	return output, nil
}
