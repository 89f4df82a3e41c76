package matrix

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/gh-download/ghpipe/pkg/logger"
)

var runnerLog = logger.New("matrix:runner")

// Command is one shell step of a cell.
type Command struct {
	Line   string
	Dir    string
	Env    []string
	Output io.Writer
}

// Runner executes a step. Implementations must not share state between
// concurrent calls.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) error

func (f RunnerFunc) Run(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// ShellRunner runs steps through the platform shell.
type ShellRunner struct{}

func (ShellRunner) Run(ctx context.Context, cmd Command) error {
	var c *exec.Cmd
	if runtime.GOOS == "windows" {
		c = exec.CommandContext(ctx, "cmd", "/C", cmd.Line)
	} else {
		c = exec.CommandContext(ctx, "sh", "-c", cmd.Line)
	}
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = cmd.Output
	c.Stderr = cmd.Output

	runnerLog.Printf("Running: %s (dir=%s)", cmd.Line, cmd.Dir)
	if err := c.Run(); err != nil {
		return fmt.Errorf("%q: %w", cmd.Line, err)
	}
	return nil
}
