package matrix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gh-download/ghpipe/pkg/coverage"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/sourcegraph/conc/pool"
)

var executorLog = logger.New("matrix:executor")

// maxLogBytes bounds the output kept per cell.
const maxLogBytes = 16 * 1024

// Options tune an Executor. Zero values select the real collaborators.
type Options struct {
	// Dir is the project directory every step runs in.
	Dir string
	// Runner executes steps; defaults to ShellRunner.
	Runner Runner
	// Uploader submits coverage; defaults to Codecov at the configured endpoint.
	Uploader coverage.Uploader
	// Emulate runs cells whose platform is not the host platform.
	Emulate bool
	// Meta identifies the build in coverage uploads.
	Meta coverage.UploadMeta
	// BaseEnv is the environment inherited by every step; defaults to os.Environ.
	BaseEnv []string
}

// Executor runs every cell of a run concurrently.
type Executor struct {
	cfg      pipeline.TestPipeline
	secrets  pipeline.Secrets
	gate     coverage.Gate
	runner   Runner
	uploader coverage.Uploader
	opts     Options
}

// NewExecutor builds an executor for the test pipeline. secrets is copied;
// steps only ever see this value.
func NewExecutor(cfg pipeline.TestPipeline, secrets pipeline.Secrets, opts Options) *Executor {
	runner := opts.Runner
	if runner == nil {
		runner = ShellRunner{}
	}
	uploader := opts.Uploader
	if uploader == nil {
		uploader = coverage.NewCodecovUploader(cfg.Coverage.Endpoint)
	}
	if opts.BaseEnv == nil {
		opts.BaseEnv = os.Environ()
	}
	if len(opts.Meta.Flags) == 0 {
		opts.Meta.Flags = cfg.Coverage.Flags
	}
	return &Executor{
		cfg:      cfg,
		secrets:  secrets,
		gate:     coverage.NewGate(cfg.Coverage),
		runner:   runner,
		uploader: uploader,
		opts:     opts,
	}
}

// Run executes all cells and waits for every one of them. A failing cell
// never cancels its siblings unless fail-fast is configured.
func (e *Executor) Run(ctx context.Context, run *Run) (*Report, error) {
	executorLog.Printf("Starting run %s (%s) with %d cells, fail-fast=%v, max-parallel=%d",
		run.ID, run.Event, len(run.Cells), e.cfg.FailFast, e.cfg.MaxParallel)

	scratch, err := os.MkdirTemp("", "ghpipe-"+run.ID+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	started := time.Now()
	results := make([]CellResult, len(run.Cells))

	p := pool.New().WithContext(ctx)
	if e.cfg.MaxParallel > 0 {
		p = p.WithMaxGoroutines(e.cfg.MaxParallel)
	}
	if e.cfg.FailFast {
		p = p.WithCancelOnError()
	}

	for i, cell := range run.Cells {
		p.Go(func(ctx context.Context) error {
			results[i] = e.runCell(ctx, run, cell, filepath.Join(scratch, cell.slug()))
			if results[i].Status == StatusFailed {
				return results[i].err
			}
			return nil
		})
	}
	// Cell failures are carried in the results.
	_ = p.Wait()

	report := &Report{
		RunID:    run.ID,
		Event:    run.Event,
		Started:  started,
		Duration: time.Since(started),
		Results:  results,
	}
	executorLog.Printf("Run %s finished: %s", run.ID, report.Summary())
	return report, nil
}

type step struct {
	kind pipeline.StepKind
	line string
}

func (e *Executor) runCell(ctx context.Context, run *Run, cell Cell, dir string) (result CellResult) {
	result.Cell = cell
	started := time.Now()
	defer func() { result.Duration = time.Since(started) }()

	if !e.opts.Emulate && !RunnableOnHost(cell.Platform) {
		cellLog.Printf("Cell %s is not runnable on %s", cell, hostOS)
		result.Status = StatusUnavailable
		return result
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result.fail(pipeline.NewStepError(pipeline.StepSetup, cell.String(), err))
	}

	reportPath := filepath.Join(dir, filepath.Base(e.cfg.Coverage.File))
	cmds := e.cfg.Commands.Substitute(cell.Platform, cell.Version, reportPath)
	env := e.cellEnv(run, cell, dir)
	var log bytes.Buffer

	for _, s := range []step{
		{pipeline.StepSetup, cmds.Setup},
		{pipeline.StepInstall, cmds.Install},
		{pipeline.StepTest, cmds.Test},
	} {
		if ctx.Err() != nil {
			result.Status = StatusCancelled
			result.Log = tail(log.Bytes())
			return result
		}
		executorLog.Printf("Cell %s: %s step", cell, s.kind)
		err := e.runner.Run(ctx, Command{Line: s.line, Dir: e.opts.Dir, Env: env, Output: &log})
		if err != nil {
			result.Log = tail(log.Bytes())
			if ctx.Err() != nil {
				// A sibling failed under fail-fast, or the caller gave up.
				result.Status = StatusCancelled
				return result
			}
			return result.fail(pipeline.NewStepError(s.kind, cell.String(), err))
		}
	}
	result.Log = tail(log.Bytes())

	if e.gate.Allows(cell.Platform, cell.Version) {
		if err := e.upload(ctx, reportPath); err != nil {
			if ctx.Err() != nil {
				result.Status = StatusCancelled
				return result
			}
			return result.fail(pipeline.NewStepError(pipeline.StepCoverageUpload, cell.String(), err))
		}
		result.CoverageUploaded = true
	}

	result.Status = StatusPassed
	return result
}

func (e *Executor) upload(ctx context.Context, path string) error {
	report, err := coverage.ReadReport(path)
	if err != nil {
		return err
	}
	return e.uploader.Upload(ctx, report, e.opts.Meta, e.secrets.CoverageToken)
}

// cellEnv gives each cell its own interpreter environment and coverage data
// file. The coverage token is never part of it.
func (e *Executor) cellEnv(run *Run, cell Cell, dir string) []string {
	env := slices.Clone(e.opts.BaseEnv)
	env = slices.DeleteFunc(env, func(kv string) bool {
		return hasKey(kv, "CODECOV_TOKEN") || hasKey(kv, "GITHUB_TOKEN") || hasKey(kv, "GH_TOKEN")
	})
	env = append(env, e.secrets.RepositoryEnv()...)
	return append(env,
		"GHPIPE_RUN_ID="+run.ID,
		"GHPIPE_PLATFORM="+cell.Platform,
		"GHPIPE_VERSION="+cell.Version,
		"COVERAGE_FILE="+filepath.Join(dir, ".coverage"),
		"UV_PROJECT_ENVIRONMENT="+filepath.Join(dir, "venv"),
	)
}

func hasKey(kv, key string) bool {
	return strings.HasPrefix(kv, key+"=")
}

func tail(b []byte) string {
	if len(b) > maxLogBytes {
		b = b[len(b)-maxLogBytes:]
	}
	return string(b)
}

func (r CellResult) fail(err error) CellResult {
	r.Status = StatusFailed
	r.err = err
	r.Error = err.Error()
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) {
		r.FailedStep = stepErr.Kind
	}
	return r
}
