package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/orderlake/internal/cli/output"
	"github.com/leapstack-labs/orderlake/internal/pipeline"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/leapstack-labs/orderlake/internal/state"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Orders int
	Seed   uint64
	Year   int
}

// RunOutput is the JSON payload of the pipeline commands.
type RunOutput struct {
	RunID     string          `json:"run_id"`
	Status    state.Status    `json:"status"`
	Target    string          `json:"target,omitempty"`
	Steps     []StepOutput    `json:"steps"`
	Reports   []report.Result `json:"reports,omitempty"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Error     string          `json:"error,omitempty"`
}

// StepOutput describes one executed step.
type StepOutput struct {
	Step      pipeline.Step `json:"step"`
	Status    state.Status  `json:"status"`
	Rows      int64         `json:"rows"`
	ElapsedMS int64         `json:"elapsed_ms"`
	Error     string        `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate, create, load and report in one go",
		Long: `Execute every pipeline step in order: generate the CSV files, recreate the
warehouse schema, load the data and run all reports.

The run and each of its steps are recorded in the state database. The first
failing step stops the run.`,
		Example: `  # Run the whole pipeline against the configured target
  orderlake run

  # Deterministic data, 1000 orders, against the prod environment
  orderlake run --orders 1000 --seed 42 -t prod

  # JSON summary for CI
  orderlake run -o json`,
		Aliases: []string{"all"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Orders, "orders", 0, "Number of orders to generate (default from config)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "Random seed for reproducible data (0 = random)")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "Year for the yearly reports (default from config)")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, opts.apply(cmd))
	if err != nil {
		return err
	}
	defer cleanup()

	return executeSteps(commandCtx(cmd), cc, pipeline.Steps()...)
}

// apply copies explicitly set flags into the pipeline configuration.
func (o *RunOptions) apply(cmd *cobra.Command) func(*pipeline.Config) {
	return func(pc *pipeline.Config) {
		flags := cmd.Flags()
		if flags.Changed("orders") {
			pc.Orders = o.Orders
		}
		if flags.Changed("seed") {
			pc.Seed = o.Seed
		}
		if flags.Changed("year") {
			pc.Report.Year = o.Year
		}
	}
}

// executeSteps runs steps through the pipeline and renders progress and the
// outcome in the renderer's mode.
func executeSteps(ctx context.Context, cc *CommandContext, steps ...pipeline.Step) error {
	r := cc.Renderer
	jsonMode := r.EffectiveMode() == output.ModeJSON

	if !jsonMode {
		cc.Pipeline.OnStep = func(res pipeline.StepResult) {
			renderStep(r, res)
		}
	}

	summary, runErr := cc.Pipeline.Execute(ctx, steps...)
	if summary == nil {
		return runErr
	}
	target := cc.Pipeline.Config().Target

	if jsonMode {
		if err := r.JSON(newRunOutput(target, summary, runErr)); err != nil {
			return err
		}
		return runErr
	}

	if len(summary.Reports) > 0 {
		r.Println("")
		if err := r.Reports(target, summary.Reports); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	r.Println("")
	r.Success(fmt.Sprintf("Run %s completed in %s", shortRunID(summary.RunID), summary.Elapsed.Round(time.Millisecond)))
	return nil
}

func renderStep(r *output.Renderer, res pipeline.StepResult) {
	if res.Err != nil {
		r.StatusLine(string(res.Step), "failed", res.Err.Error())
		return
	}
	detail := res.Elapsed.Round(time.Millisecond).String()
	if res.Rows > 0 {
		detail = fmt.Sprintf("%s rows, %s", r.Number(res.Rows), detail)
	}
	r.StatusLine(string(res.Step), "completed", detail)
}

func newRunOutput(target string, summary *pipeline.Summary, runErr error) RunOutput {
	out := RunOutput{
		RunID:     summary.RunID,
		Status:    state.StatusCompleted,
		Target:    target,
		Steps:     make([]StepOutput, 0, len(summary.Steps)),
		Reports:   summary.Reports,
		ElapsedMS: summary.Elapsed.Milliseconds(),
	}
	if runErr != nil {
		out.Status = state.StatusFailed
		out.Error = runErr.Error()
	}
	for _, res := range summary.Steps {
		step := StepOutput{
			Step:      res.Step,
			Status:    state.StatusCompleted,
			Rows:      res.Rows,
			ElapsedMS: res.Elapsed.Milliseconds(),
		}
		if res.Err != nil {
			step.Status = state.StatusFailed
			step.Error = res.Err.Error()
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
