package docregen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gh-download/ghpipe/pkg/logger"
)

var regenLog = logger.New("docregen:regen")

// Executor runs one block and returns its standard output.
type Executor interface {
	Execute(ctx context.Context, block Block) (string, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, block Block) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, block Block) (string, error) {
	return f(ctx, block)
}

// BlockError reports a block that failed to run.
type BlockError struct {
	Line     int
	Language string
	Err      error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%s block at line %d failed: %v", e.Language, e.Line, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// Regenerate runs every block of source in order and returns the document
// with each output section replaced. The first failing block aborts the
// whole regeneration.
func Regenerate(ctx context.Context, source []byte, exec Executor) ([]byte, int, error) {
	blocks, err := Parse(source)
	if err != nil {
		return nil, 0, err
	}
	if len(blocks) == 0 {
		return source, 0, nil
	}

	outputs := make([]string, len(blocks))
	for i, block := range blocks {
		regenLog.Printf("Running %s block at line %d", block.Language, block.Line)
		out, err := exec.Execute(ctx, block)
		if err != nil {
			return nil, 0, &BlockError{Line: block.Line, Language: block.Language, Err: err}
		}
		outputs[i] = out
	}

	lines := strings.Split(string(source), "\n")
	var result []string
	prev := 0
	for i, block := range blocks {
		result = append(result, lines[prev:block.outputStart+1]...)
		indent, eol := lineLayout(lines[block.outputStart])
		result = append(result, indent+GeneratedWarning+eol)
		if out := strings.TrimRight(outputs[i], "\r\n"); out != "" {
			for _, line := range strings.Split(out, "\n") {
				line = strings.TrimSuffix(line, "\r")
				if line == "" {
					result = append(result, eol)
					continue
				}
				result = append(result, indent+line+eol)
			}
		}
		prev = block.outputEnd
	}
	result = append(result, lines[prev:]...)
	return []byte(strings.Join(result, "\n")), len(blocks), nil
}

// lineLayout returns the leading indentation and the carriage return, if
// any, of a marker line. Generated lines copy both.
func lineLayout(line string) (indent, eol string) {
	if strings.HasSuffix(line, "\r") {
		eol = "\r"
	}
	indent = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	return indent, eol
}

// Result describes one regeneration of a file.
type Result struct {
	Path    string
	Blocks  int
	Changed bool
	Content []byte
}

// RegenerateFile regenerates path in place. The file is only written when
// its content changed; with dryRun it is never written.
func RegenerateFile(ctx context.Context, path string, exec Executor, dryRun bool) (*Result, error) {
	regenLog.Printf("Regenerating %s (dry-run=%v)", path, dryRun)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	original, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	updated, n, err := Regenerate(ctx, original, exec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	result := &Result{Path: path, Blocks: n, Changed: !bytes.Equal(original, updated), Content: updated}
	if result.Changed && !dryRun {
		if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		regenLog.Printf("Wrote %s (%d blocks)", path, n)
	}
	return result, nil
}
