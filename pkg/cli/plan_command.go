package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gh-download/ghpipe/pkg/console"
	"github.com/gh-download/ghpipe/pkg/coverage"
	"github.com/gh-download/ghpipe/pkg/logger"
	"github.com/gh-download/ghpipe/pkg/matrix"
	"github.com/gh-download/ghpipe/pkg/pipeline"
	"github.com/gh-download/ghpipe/pkg/sliceutil"
	"github.com/gh-download/ghpipe/pkg/workflow"
	"github.com/spf13/cobra"
)

var planLog = logger.New("cli:plan_command")

// PlanCell is one matrix cell as the plan shows it.
type PlanCell struct {
	matrix.Cell
	UploadsCoverage bool `json:"uploads_coverage"`
	RunnableHere    bool `json:"runnable_here"`
}

// Plan describes what both pipelines would do, without running anything.
type Plan struct {
	Tests struct {
		Name         string     `json:"name"`
		Cells        []PlanCell `json:"cells"`
		FailFast     bool       `json:"fail_fast"`
		MaxParallel  int        `json:"max_parallel,omitempty"`
		CoverageGate string     `json:"coverage_gate"`
	} `json:"tests"`
	Docs struct {
		Name          string `json:"name"`
		File          string `json:"file"`
		CommitMessage string `json:"commit_message"`
		PushGuard     string `json:"push_guard"`
	} `json:"docs"`
}

// BuildPlan expands the configuration into a Plan.
func BuildPlan(cfg *pipeline.Config) Plan {
	var plan Plan
	gate := coverage.NewGate(cfg.Tests.Coverage)

	plan.Tests.Name = cfg.Tests.Name
	plan.Tests.FailFast = cfg.Tests.FailFast
	plan.Tests.MaxParallel = cfg.Tests.MaxParallel
	plan.Tests.CoverageGate = gate.Condition()
	plan.Tests.Cells = sliceutil.Map(matrix.Expand(matrix.AxesFrom(cfg.Tests)), func(cell matrix.Cell) PlanCell {
		return PlanCell{
			Cell:            cell,
			UploadsCoverage: gate.Allows(cell.Platform, cell.Version),
			RunnableHere:    matrix.RunnableOnHost(cell.Platform),
		}
	})

	plan.Docs.Name = cfg.Docs.Name
	plan.Docs.File = cfg.Docs.File
	plan.Docs.CommitMessage = cfg.Docs.CommitMessage
	plan.Docs.PushGuard = workflow.BuildCommittedCondition().Render()
	planLog.Printf("Built plan with %d cells", len(plan.Tests.Cells))
	return plan
}

// PlanConfig holds the options of the plan command.
type PlanConfig struct {
	Dir        string
	ConfigPath string
	JSON       bool
	Stdout     io.Writer
}

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	var config PlanConfig

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the matrix cells and which one uploads coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := RunPlan(config)
			return err
		},
	}

	addConfigFlag(cmd, &config.ConfigPath)
	cmd.Flags().BoolVar(&config.JSON, "json", false, "Print the plan as JSON to stdout")

	return cmd
}

// RunPlan loads the configuration and prints its plan.
func RunPlan(config PlanConfig) (Plan, error) {
	cfg, configPath, err := loadPipelineConfig(config.Dir, config.ConfigPath)
	if err != nil {
		return Plan{}, err
	}
	plan := BuildPlan(cfg)

	if config.JSON {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return plan, fmt.Errorf("failed to encode plan: %w", err)
		}
		out := config.Stdout
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintln(out, string(data))
		return plan, nil
	}

	rows := make([][]string, 0, len(plan.Tests.Cells))
	for _, cell := range plan.Tests.Cells {
		upload := ""
		if cell.UploadsCoverage {
			upload = "yes"
		}
		rows = append(rows, []string{cell.Platform, cell.Version, upload, strconv.FormatBool(cell.RunnableHere)})
	}
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Configuration: "+configPath))
	fmt.Fprintln(os.Stderr, console.RenderTable(console.TableConfig{
		Title:   plan.Tests.Name,
		Headers: []string{"Platform", "Version", "Uploads coverage", "Runnable here"},
		Rows:    rows,
	}))
	fmt.Fprintln(os.Stderr, console.FormatListItem("Coverage gate: "+plan.Tests.CoverageGate))
	fmt.Fprintln(os.Stderr, console.FormatListItem(fmt.Sprintf("%s: regenerates %s, commits as %q", plan.Docs.Name, plan.Docs.File, plan.Docs.CommitMessage)))
	return plan, nil
}
