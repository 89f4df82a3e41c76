package workflow

import (
	"fmt"
	"io"
	"strings"

	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/rhysd/actionlint"
)

var lintLog = logger.New("workflow:lint")

// LintError lists the actionlint findings of one workflow file.
type LintError struct {
	File     string
	Problems []*actionlint.Error
}

func (e *LintError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "actionlint reported %d problem(s) in %s", len(e.Problems), e.File)
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "\n  %d:%d: %s [%s]", p.Line, p.Column, p.Message, p.Kind)
	}
	return b.String()
}

// LintWorkflow checks a rendered workflow with actionlint. External
// shellcheck and pyflakes integration stays off so results do not depend on
// the tools installed on the machine.
func LintWorkflow(name string, content []byte) error {
	linter, err := actionlint.NewLinter(io.Discard, &actionlint.LinterOptions{})
	if err != nil {
		return fmt.Errorf("failed to create actionlint linter: %w", err)
	}
	problems, err := linter.Lint(name, content, nil)
	if err != nil {
		return fmt.Errorf("failed to lint %s: %w", name, err)
	}
	lintLog.Printf("Linted %s: %d problem(s)", name, len(problems))
	if len(problems) > 0 {
		return &LintError{File: name, Problems: problems}
	}
	return nil
}
