// Package docpipeline keeps a repository's documentation in sync with the
// output of its runnable examples: regenerate, commit if anything changed,
// push the commit back to the source branch.
package docpipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gh-download/ghpipe/pkg/docregen"
	"github.com/gh-download/ghpipe/pkg/gitutil"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/google/uuid"
)

var pipelineLog = logger.New("docpipeline:run")

// State is a point in the life of one documentation run.
type State string

const (
	StateCheckedOut  State = "checked-out"
	StateRegenerated State = "regenerated"
	StateSkipped     State = "skipped"
	StateCommitted   State = "committed"
	StatePushed      State = "pushed"
	StateNotPushed   State = "not-pushed"
)

// CommitOutcome is the binary result of the commit step. It is the only
// input of the push guard.
type CommitOutcome int

const (
	Skipped CommitOutcome = iota
	Committed
)

func (o CommitOutcome) String() string {
	if o == Committed {
		return "committed"
	}
	return "skipped"
}

// Repository is the version control surface the pipeline needs.
type Repository interface {
	HasChanges(ctx context.Context, paths ...string) (bool, error)
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string, author gitutil.Author) (string, error)
	Push(ctx context.Context, branch, token string) error
	CurrentBranch(ctx context.Context) (string, error)
}

// Options configure a Pipeline.
type Options struct {
	// Dir is the repository work tree.
	Dir string
	// Repo overrides the git repository found at Dir.
	Repo Repository
	// Executor runs runnable blocks; defaults to a ShellExecutor with Display.
	Executor docregen.Executor
	Display  pipeline.DisplayEnv
	// NoPush stops after the commit step.
	NoPush bool
	// OnState observes every state transition.
	OnState func(State)
}

// Pipeline runs the documentation pipeline for one repository.
type Pipeline struct {
	cfg     pipeline.DocsPipeline
	secrets pipeline.Secrets
	repo    Repository
	exec    docregen.Executor
	dir     string
	opts    Options
}

// New prepares a pipeline for the repository at opts.Dir.
func New(ctx context.Context, cfg pipeline.DocsPipeline, secrets pipeline.Secrets, opts Options) (*Pipeline, error) {
	dir := opts.Dir
	repo := opts.Repo
	if repo == nil {
		r, err := gitutil.Open(ctx, opts.Dir)
		if err != nil {
			return nil, err
		}
		repo = r
		dir = r.Dir
	}
	exec := opts.Executor
	if exec == nil {
		exec = docregen.NewShellExecutor(dir, opts.Display, false)
	}
	return &Pipeline{cfg: cfg, secrets: secrets, repo: repo, exec: exec, dir: dir, opts: opts}, nil
}

// Run is one triggering of the documentation pipeline.
type Run struct {
	ID    string
	Event pipeline.Event
}

// NewRun creates a run with a fresh identifier.
func NewRun(event pipeline.Event) *Run {
	return &Run{ID: uuid.NewString(), Event: event}
}

// Report records what a run did.
type Report struct {
	RunID   string         `json:"run_id"`
	Event   pipeline.Event `json:"event"`
	File    string         `json:"file"`
	States  []State        `json:"states"`
	Outcome CommitOutcome  `json:"-"`
	Commit  string         `json:"commit,omitempty"`
	Branch  string         `json:"branch,omitempty"`
}

// Final is the last state reached.
func (r *Report) Final() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

// Pushed reports whether the commit reached the remote.
func (r *Report) Pushed() bool {
	return r.Final() == StatePushed
}

// Run executes regenerate, commit and push in order. Any failing step ends
// the run; the returned report shows how far it got.
func (p *Pipeline) Run(ctx context.Context, run *Run) (*Report, error) {
	report := &Report{RunID: run.ID, Event: run.Event, File: p.cfg.File}
	pipelineLog.Printf("Starting documentation run %s (%s) for %s", run.ID, run.Event, p.cfg.File)
	p.enter(report, StateCheckedOut)

	path := filepath.Join(p.dir, p.cfg.File)
	result, err := docregen.RegenerateFile(ctx, path, p.exec, false)
	if err != nil {
		return report, pipeline.NewStepError(pipeline.StepRegenerate, p.cfg.File, err)
	}
	pipelineLog.Printf("Regenerated %d blocks, changed=%v", result.Blocks, result.Changed)
	p.enter(report, StateRegenerated)

	outcome, sha, err := p.commit(ctx)
	if err != nil {
		return report, pipeline.NewStepError(pipeline.StepCommit, p.cfg.File, err)
	}
	report.Outcome = outcome
	report.Commit = sha

	if outcome != Committed {
		p.enter(report, StateSkipped)
		return report, nil
	}
	p.enter(report, StateCommitted)

	if p.opts.NoPush {
		p.enter(report, StateNotPushed)
		return report, nil
	}

	branch, err := p.pushBranch(ctx, run.Event)
	if err != nil {
		p.enter(report, StateNotPushed)
		return report, pipeline.NewStepError(pipeline.StepPush, p.cfg.File, err)
	}
	report.Branch = branch

	if err := p.repo.Push(ctx, branch, p.secrets.GitHubToken); err != nil {
		p.enter(report, StateNotPushed)
		return report, pipeline.NewStepError(pipeline.StepPush, branch,
			fmt.Errorf("commit %s was created locally but not pushed: %w", shortSHA(sha), err))
	}
	p.enter(report, StatePushed)
	return report, nil
}

// commit stages and commits the target file when it differs from HEAD.
func (p *Pipeline) commit(ctx context.Context) (CommitOutcome, string, error) {
	changed, err := p.repo.HasChanges(ctx, p.cfg.File)
	if err != nil {
		return Skipped, "", err
	}
	if !changed {
		pipelineLog.Print("No documentation changes, skipping commit")
		return Skipped, "", nil
	}
	if err := p.repo.Add(ctx, p.cfg.File); err != nil {
		return Skipped, "", err
	}
	sha, err := p.repo.Commit(ctx, p.cfg.CommitMessage, gitutil.Author{Name: p.cfg.GitUserName, Email: p.cfg.GitUserEmail})
	if err != nil {
		return Skipped, "", err
	}
	pipelineLog.Printf("Committed %s", sha)
	return Committed, sha, nil
}

// pushBranch is the branch the triggering event came from: the pushed
// branch, or the head branch of a pull request.
func (p *Pipeline) pushBranch(ctx context.Context, event pipeline.Event) (string, error) {
	if event.Branch != "" {
		return event.Branch, nil
	}
	return p.repo.CurrentBranch(ctx)
}

func (p *Pipeline) enter(report *Report, s State) {
	pipelineLog.Printf("State: %s", s)
	report.States = append(report.States, s)
	if p.opts.OnState != nil {
		p.opts.OnState(s)
	}
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
