// Package logger provides namespaced debug logging.
//
// Loggers are created once per file with a "package:file" namespace:
//
//	var matrixLog = logger.New("matrix:executor")
//
// Output is disabled unless the DEBUG environment variable selects the
// namespace. DEBUG is a comma separated list of patterns; a trailing "*"
// matches any suffix and a leading "-" excludes:
//
//	DEBUG=*                 all namespaces
//	DEBUG=matrix:*          everything under matrix
//	DEBUG=*,-git:*          everything except git
//
// Each line is written to stderr as "namespace message +delta".
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes debug lines for a single namespace.
type Logger struct {
	namespace string
	enabled   bool

	mu   sync.Mutex
	last time.Time
}

var (
	outputMu sync.Mutex
	output   io.Writer = os.Stderr
)

// New creates a logger for namespace. Whether it is enabled is decided once,
// from the DEBUG environment variable at creation time.
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   isEnabled(namespace, os.Getenv("DEBUG")),
	}
}

// Enabled reports whether this logger produces output.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Namespace returns the namespace the logger was created with.
func (l *Logger) Namespace() string {
	return l.namespace
}

// Printf formats and writes a debug line.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprintf(format, args...))
}

// Print writes a debug line made of args.
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprint(args...))
}

func (l *Logger) write(msg string) {
	l.mu.Lock()
	now := time.Now()
	var delta time.Duration
	if !l.last.IsZero() {
		delta = now.Sub(l.last)
	}
	l.last = now
	l.mu.Unlock()

	outputMu.Lock()
	defer outputMu.Unlock()
	fmt.Fprintf(output, "%s %s +%s\n", l.namespace, strings.TrimRight(msg, "\n"), formatDelta(delta))
}

func formatDelta(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// isEnabled evaluates a DEBUG pattern list against namespace. Exclusions win
// over inclusions regardless of order.
func isEnabled(namespace, patterns string) bool {
	if patterns == "" {
		return false
	}

	enabled := false
	for _, raw := range strings.Split(patterns, ",") {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if excluded, ok := strings.CutPrefix(pattern, "-"); ok {
			if matchPattern(namespace, excluded) {
				return false
			}
			continue
		}
		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}
	return enabled
}

func matchPattern(namespace, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(namespace, prefix)
	}
	return namespace == pattern
}
