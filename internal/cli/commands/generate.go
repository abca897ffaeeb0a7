package commands

import (
	"fmt"

	"github.com/leapstack-labs/orderlake/internal/cli/output"
	"github.com/leapstack-labs/orderlake/internal/generate"
	"github.com/leapstack-labs/orderlake/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the categories, products and orders CSV files",
		Long: fmt.Sprintf(`Write categories.csv, products.csv and orders.csv to the data directory.

Categories and products come from the fixed catalogue. Orders are random,
dated between 2022-01-01 and today, with %d to %d lines each. Files are
replaced atomically.`, generate.MinLinesPerOrder, generate.MaxLinesPerOrder),
		Example: `  # Generate the default number of orders
  orderlake generate

  # Reproducible data set
  orderlake generate --orders 200 --seed 7`,
		Aliases: []string{"gen"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContextWithoutAdapter(cmd, opts.apply(cmd))
			if err != nil {
				return err
			}
			defer cleanup()

			if err := executeSteps(commandCtx(cmd), cc, pipeline.StepGenerate); err != nil {
				return err
			}
			if cc.Renderer.EffectiveMode() != output.ModeText {
				return nil
			}
			cats, prods, orders := cc.Pipeline.Paths()
			for _, path := range []string{cats, prods, orders} {
				cc.Renderer.Println(cc.Renderer.Muted(fmt.Sprintf("  %s", path)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Orders, "orders", 0, "Number of orders to generate (default from config)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "Random seed for reproducible data (0 = random)")

	return cmd
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Drop and recreate the warehouse schema",
		Long: `Drop the categories, products and orders storage of the target warehouse and
create it again with its validation rules. Existing data is lost.`,
		Example: `  orderlake create
  orderlake create -t prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			return executeSteps(commandCtx(cmd), cc, pipeline.StepCreate)
		},
	}
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load the CSV files into the warehouse",
		Long: `Read the three CSV files, group order lines into orders and insert them into
the warehouse. All files are parsed before anything is written.`,
		Example: `  orderlake load
  orderlake load --delimiter ,`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := commandCtx(cmd)
			if err := executeSteps(ctx, cc, pipeline.StepLoad); err != nil {
				return err
			}
			if cc.Renderer.EffectiveMode() != output.ModeText {
				return nil
			}

			tables, err := cc.Adapter.Describe(ctx)
			if err != nil {
				return err
			}
			for _, t := range tables {
				cc.Renderer.Println(cc.Renderer.Muted(fmt.Sprintf("  %-12s %s rows", t.Name, cc.Renderer.Number(t.RowCount))))
			}
			return nil
		},
	}
}
