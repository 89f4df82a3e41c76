package matrix

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gh-download/ghpipe/pkg/pipeline"
)

// Status is the outcome of one cell.
type Status string

const (
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusUnavailable Status = "unavailable"
	// StatusCancelled only occurs with fail-fast enabled.
	StatusCancelled Status = "cancelled"
)

// CellResult is the outcome of one cell.
type CellResult struct {
	Cell
	Status           Status            `json:"status"`
	FailedStep       pipeline.StepKind `json:"failed_step,omitempty"`
	Error            string            `json:"error,omitempty"`
	CoverageUploaded bool              `json:"coverage_uploaded"`
	Duration         time.Duration     `json:"duration_ns"`
	Log              string            `json:"-"`

	err error
}

// Err returns the step failure of a failed cell.
func (r CellResult) Err() error {
	return r.err
}

// Report summarizes a run.
type Report struct {
	RunID    string         `json:"run_id"`
	Event    pipeline.Event `json:"event"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration_ns"`
	Results  []CellResult   `json:"results"`
}

// Succeeded is true iff every available cell passed.
func (r *Report) Succeeded() bool {
	for _, res := range r.Results {
		if res.Status != StatusPassed && res.Status != StatusUnavailable {
			return false
		}
	}
	return true
}

// Count returns the number of cells with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failed returns the failed cells in matrix order.
func (r *Report) Failed() []CellResult {
	var failed []CellResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// CoverageUploaded reports whether any cell submitted coverage.
func (r *Report) CoverageUploaded() bool {
	for _, res := range r.Results {
		if res.CoverageUploaded {
			return true
		}
	}
	return false
}

func (r *Report) Summary() string {
	return fmt.Sprintf("%d passed, %d failed, %d unavailable, %d cancelled",
		r.Count(StatusPassed), r.Count(StatusFailed), r.Count(StatusUnavailable), r.Count(StatusCancelled))
}

// JSON renders the report for --json output.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
