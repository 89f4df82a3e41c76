package pipeline

import (
	"errors"
	"fmt"
)

// StepKind classifies a pipeline step and therefore how far its failure
// reaches: matrix kinds fail one cell, documentation kinds fail the run.
type StepKind string

const (
	StepSetup          StepKind = "setup"
	StepInstall        StepKind = "install"
	StepTest           StepKind = "test"
	StepCoverageUpload StepKind = "coverage-upload"
	StepRegenerate     StepKind = "regenerate"
	StepCommit         StepKind = "commit"
	StepPush           StepKind = "push"
)

// CellScoped reports whether a failure of this kind only affects its own
// matrix cell.
func (k StepKind) CellScoped() bool {
	switch k {
	case StepSetup, StepInstall, StepTest, StepCoverageUpload:
		return true
	}
	return false
}

// StepError is the failure of one step. Target names the cell or file the
// step ran for.
type StepError struct {
	Kind   StepKind
	Target string
	Err    error
}

func (e *StepError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s step failed: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s step failed for %s: %v", e.Kind, e.Target, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError wraps err as a failure of kind for target.
func NewStepError(kind StepKind, target string, err error) *StepError {
	return &StepError{Kind: kind, Target: target, Err: err}
}

// FailedStep returns the kind of the first StepError in err's chain.
func FailedStep(err error) (StepKind, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind, true
	}
	return "", false
}
