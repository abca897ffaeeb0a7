package commands

import (
	"github.com/leapstack-labs/orderlake/internal/pipeline"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/spf13/cobra"
)

// ReportOptions holds options for the report command.
type ReportOptions struct {
	Year                int
	TopCustomers        int
	ProductsPerCategory int
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report [kind...]",
		Short: "Run the sales reports",
		Long: `Run sales reports against the warehouse and render them.

Available reports:
  top-customers    customers with the highest purchase value in a year
  top-products     best-selling products of each category by quantity
  sales-by-year    total sales per year
  sales-by-month   total sales per month of a year

Without arguments every report runs. Reports run concurrently.`,
		Example: `  # All reports
  orderlake report

  # Top 10 customers of 2023 as markdown
  orderlake report top-customers --year 2023 --top 10 -o markdown

  # JSON for further processing
  orderlake report sales-by-year sales-by-month -o json`,
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			kinds := report.Kinds()
			names := make([]string, len(kinds))
			for i, k := range kinds {
				names[i] = string(k)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}

			cc, cleanup, err := NewCommandContext(cmd, opts.apply(cmd, kinds))
			if err != nil {
				return err
			}
			defer cleanup()

			return executeSteps(commandCtx(cmd), cc, pipeline.StepReport)
		},
	}

	cmd.Flags().IntVar(&opts.Year, "year", 0, "Year for the yearly reports (default from config)")
	cmd.Flags().IntVar(&opts.TopCustomers, "top", 0, "Number of top customers (default from config)")
	cmd.Flags().IntVar(&opts.ProductsPerCategory, "per-category", 0, "Products per category (default from config)")

	return cmd
}

func (o *ReportOptions) apply(cmd *cobra.Command, kinds []report.Kind) func(*pipeline.Config) {
	return func(pc *pipeline.Config) {
		pc.Reports = kinds
		flags := cmd.Flags()
		if flags.Changed("year") {
			pc.Report.Year = o.Year
		}
		if flags.Changed("top") {
			pc.Report.TopCustomers = o.TopCustomers
		}
		if flags.Changed("per-category") {
			pc.Report.ProductsPerCategory = o.ProductsPerCategory
		}
	}
}

// parseKinds validates report names, dropping duplicates.
func parseKinds(args []string) ([]report.Kind, error) {
	kinds := make([]report.Kind, 0, len(args))
	seen := make(map[report.Kind]bool, len(args))
	for _, arg := range args {
		kind, err := report.ParseKind(arg)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
