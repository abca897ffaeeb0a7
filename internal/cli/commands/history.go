package commands

import (
	"fmt"

	"github.com/leapstack-labs/orderlake/internal/cli/output"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 10

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded pipeline runs",
		Long:  `List the most recent pipeline runs from the state database, newest first, with their steps.`,
		Example: `  orderlake history
  orderlake history --limit 50 -o json`,
		Aliases: []string{"runs"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			cc, cleanup, err := NewCommandContextWithoutAdapter(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := commandCtx(cmd)
			runs, err := cc.Store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			infos := make([]output.RunInfo, 0, len(runs))
			for _, run := range runs {
				steps, err := cc.Store.ListSteps(ctx, run.ID)
				if err != nil {
					return err
				}
				infos = append(infos, output.NewRunInfo(run, steps))
			}
			return cc.Renderer.History(infos)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Maximum number of runs to show")

	return cmd
}
