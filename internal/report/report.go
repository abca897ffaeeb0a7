// Package report runs the sales reports against a warehouse.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"golang.org/x/sync/errgroup"
)

// Kind identifies a report.
type Kind string

// Report kinds.
const (
	TopCustomers Kind = "top-customers"
	TopProducts  Kind = "top-products"
	SalesByYear  Kind = "sales-by-year"
	SalesByMonth Kind = "sales-by-month"
)

// Defaults for Options.
const (
	DefaultYear   = 2024
	DefaultTop    = 5
	DefaultPerCat = 3
)

const maxConcurrent = 4

// Kinds returns every report kind in display order.
func Kinds() []Kind {
	return []Kind{TopCustomers, TopProducts, SalesByYear, SalesByMonth}
}

// ParseKind converts a name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("unknown report %q (available: %s)", s, strings.Join(names, ", "))
}

// Options parameterise the reports.
type Options struct {
	// Year filters top customers and monthly sales.
	Year int `koanf:"year" yaml:"year" json:"year"`
	// TopCustomers is the number of customers listed.
	TopCustomers int `koanf:"top_customers" yaml:"top_customers" json:"top_customers"`
	// ProductsPerCategory is the highest product rank listed per category.
	ProductsPerCategory int `koanf:"products_per_category" yaml:"products_per_category" json:"products_per_category"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Year: DefaultYear, TopCustomers: DefaultTop, ProductsPerCategory: DefaultPerCat}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Year == 0 {
		o.Year = d.Year
	}
	if o.TopCustomers <= 0 {
		o.TopCustomers = d.TopCustomers
	}
	if o.ProductsPerCategory <= 0 {
		o.ProductsPerCategory = d.ProductsPerCategory
	}
	return o
}

// Result holds the rows of one report. Only the field matching Kind is set.
type Result struct {
	Kind      Kind                    `json:"kind"`
	Title     string                  `json:"title"`
	Year      int                     `json:"year,omitempty"`
	Customers []adapter.CustomerSales `json:"customers,omitempty"`
	Products  []adapter.RankedProduct `json:"products,omitempty"`
	Periods   []adapter.PeriodSales   `json:"periods,omitempty"`
	Elapsed   time.Duration           `json:"-"`
}

// Empty reports whether the result has no rows.
func (r Result) Empty() bool {
	return len(r.Customers) == 0 && len(r.Products) == 0 && len(r.Periods) == 0
}

// Runner executes reports against one Reporter.
type Runner struct {
	reporter adapter.Reporter
	opts     Options
	logger   *slog.Logger
}

// NewRunner creates a Runner. Zero options fall back to the defaults.
func NewRunner(reporter adapter.Reporter, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{reporter: reporter, opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options.
func (r *Runner) Options() Options {
	return r.opts
}

// Run executes kinds concurrently and returns the results in request order.
// With no kinds, every report runs. The first failure cancels the rest.
func (r *Runner) Run(ctx context.Context, kinds ...Kind) ([]Result, error) {
	if len(kinds) == 0 {
		kinds = Kinds()
	}

	results := make([]Result, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, kind := range kinds {
		g.Go(func() error {
			start := time.Now()
			res, err := r.one(gctx, kind)
			if err != nil {
				return fmt.Errorf("report %s: %w", kind, err)
			}
			res.Elapsed = time.Since(start)
			r.logger.Debug("report completed",
				slog.String("report", string(kind)),
				slog.Duration("elapsed", res.Elapsed))
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) one(ctx context.Context, kind Kind) (Result, error) {
	res := Result{Kind: kind, Title: r.Title(kind)}
	var err error

	switch kind {
	case TopCustomers:
		res.Year = r.opts.Year
		res.Customers, err = r.reporter.TopCustomers(ctx, r.opts.Year, r.opts.TopCustomers)
	case TopProducts:
		res.Products, err = r.reporter.TopProductsByCategory(ctx, r.opts.ProductsPerCategory)
	case SalesByYear:
		res.Periods, err = r.reporter.SalesByYear(ctx)
	case SalesByMonth:
		res.Year = r.opts.Year
		res.Periods, err = r.reporter.SalesByMonth(ctx, r.opts.Year)
	default:
		_, err = ParseKind(string(kind))
	}
	return res, err
}

// Title returns the heading of a report.
func (r *Runner) Title(kind Kind) string {
	switch kind {
	case TopCustomers:
		return fmt.Sprintf("Top %d customers by total sales in %d", r.opts.TopCustomers, r.opts.Year)
	case TopProducts:
		return fmt.Sprintf("Top %d products by category", r.opts.ProductsPerCategory)
	case SalesByYear:
		return "Total sales by year"
	case SalesByMonth:
		return fmt.Sprintf("Monthly total sales in %d", r.opts.Year)
	default:
		return string(kind)
	}
}
