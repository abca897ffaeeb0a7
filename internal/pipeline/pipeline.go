// Package pipeline runs the generate, create, load and report steps against
// a warehouse and records each run in the state store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/orderlake/internal/csvload"
	"github.com/leapstack-labs/orderlake/internal/generate"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/leapstack-labs/orderlake/internal/state"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
)

// Default file names.
const (
	DefaultCategoriesFile = "categories.csv"
	DefaultProductsFile   = "products.csv"
	DefaultOrdersFile     = "orders.csv"
)

// Config holds the pipeline settings.
type Config struct {
	// DataDir holds the CSV files. Relative file names are joined to it.
	DataDir        string
	CategoriesFile string
	ProductsFile   string
	OrdersFile     string
	Delimiter      string

	// Orders is the number of orders to generate. Zero writes an orders
	// file holding only the header.
	Orders int
	// Seed makes generation deterministic when non-zero.
	Seed uint64

	// Target names the warehouse in the run history.
	Target string
	Report report.Options
	// Reports selects the reports the report step runs. Empty means all.
	Reports []report.Kind
}

// Paths returns the resolved categories, products and orders file paths.
func (c Config) Paths() (categories, products, orders string) {
	return c.resolve(c.CategoriesFile, DefaultCategoriesFile),
		c.resolve(c.ProductsFile, DefaultProductsFile),
		c.resolve(c.OrdersFile, DefaultOrdersFile)
}

func (c Config) resolve(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) || c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Step is a pipeline stage.
type Step string

// Pipeline steps in execution order.
const (
	StepGenerate Step = state.StepGenerate
	StepCreate   Step = state.StepCreate
	StepLoad     Step = state.StepLoad
	StepReport   Step = state.StepReport
)

// Steps returns every step in execution order.
func Steps() []Step {
	return []Step{StepGenerate, StepCreate, StepLoad, StepReport}
}

// ErrNoAdapter is returned when a warehouse step runs without an adapter.
var ErrNoAdapter = errors.New("no warehouse adapter configured")

// StepResult describes one executed step.
type StepResult struct {
	Step    Step
	Rows    int64
	Elapsed time.Duration
	Err     error
}

// Summary is the outcome of Execute.
type Summary struct {
	RunID   string
	Steps   []StepResult
	Reports []report.Result
	Elapsed time.Duration
}

// Pipeline wires the steps to a warehouse adapter and a state store.
type Pipeline struct {
	cfg     Config
	adapter adapter.Adapter
	store   state.Store
	logger  *slog.Logger

	// OnStep is called after each step, if set.
	OnStep func(StepResult)
}

// New creates a Pipeline. adp may be nil for generate-only use. A nil store
// disables run recording.
func New(cfg Config, adp adapter.Adapter, store state.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{cfg: cfg, adapter: adp, store: store, logger: logger}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Generate writes the three CSV files and returns the number of rows written.
func (p *Pipeline) Generate(ctx context.Context) (int64, error) {
	gen, err := generate.New(generate.Options{
		Delimiter: p.cfg.Delimiter,
		Seed:      p.cfg.Seed,
		Logger:    p.logger,
	})
	if err != nil {
		return 0, err
	}

	catPath, prodPath, orderPath := p.Paths()
	cats, err := gen.Categories(ctx, catPath)
	if err != nil {
		return 0, fmt.Errorf("generate categories: %w", err)
	}
	prods, err := gen.Products(ctx, prodPath)
	if err != nil {
		return 0, fmt.Errorf("generate products: %w", err)
	}
	lines, err := gen.Orders(ctx, orderPath, p.cfg.Orders)
	if err != nil {
		return 0, fmt.Errorf("generate orders: %w", err)
	}
	return int64(cats + prods + lines), nil
}

// Paths returns the resolved CSV file paths.
func (p *Pipeline) Paths() (categories, products, orders string) {
	return p.cfg.Paths()
}

// Create drops and recreates the warehouse schema.
func (p *Pipeline) Create(ctx context.Context) error {
	if p.adapter == nil {
		return ErrNoAdapter
	}
	if err := p.adapter.CreateSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load reads the CSV files and inserts them. It returns the number of
// categories, products and orders written.
func (p *Pipeline) Load(ctx context.Context) (int64, error) {
	if p.adapter == nil {
		return 0, ErrNoAdapter
	}

	reader, err := csvload.NewReader(p.cfg.Delimiter)
	if err != nil {
		return 0, err
	}
	catPath, prodPath, orderPath := p.Paths()

	// Parse everything before touching the warehouse.
	cats, err := reader.ReadCategories(ctx, catPath)
	if err != nil {
		return 0, err
	}
	prods, err := reader.ReadProducts(ctx, prodPath)
	if err != nil {
		return 0, err
	}
	orders, err := reader.ReadOrders(ctx, orderPath)
	if err != nil {
		return 0, err
	}

	var total int64
	n, err := p.adapter.LoadCategories(ctx, cats)
	if err != nil {
		return 0, err
	}
	total += int64(n)

	n, err = p.adapter.LoadProducts(ctx, prods)
	if err != nil {
		return total, err
	}
	total += int64(n)

	n, err = p.adapter.LoadOrders(ctx, orders)
	if err != nil {
		return total, err
	}
	total += int64(n)

	p.logger.Info("data loaded",
		slog.Int("categories", len(cats)),
		slog.Int("products", len(prods)),
		slog.Int("orders", len(orders)))
	return total, nil
}

// Report runs the requested reports, or all of them.
func (p *Pipeline) Report(ctx context.Context, kinds ...report.Kind) ([]report.Result, error) {
	if p.adapter == nil {
		return nil, ErrNoAdapter
	}
	return report.NewRunner(p.adapter, p.cfg.Report, p.logger).Run(ctx, kinds...)
}

// RunAll executes every step in order.
func (p *Pipeline) RunAll(ctx context.Context) (*Summary, error) {
	return p.Execute(ctx, Steps()...)
}

// Execute runs steps in order inside one recorded run. The first failing
// step marks the run failed and stops the pipeline.
func (p *Pipeline) Execute(ctx context.Context, steps ...Step) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	run, err := p.startRun(ctx)
	if err != nil {
		return nil, err
	}
	if run != nil {
		summary.RunID = run.ID
	}

	var runErr error
	for _, step := range steps {
		res, reports := p.execStep(ctx, run, step)
		summary.Steps = append(summary.Steps, res)
		if reports != nil {
			summary.Reports = reports
		}
		if p.OnStep != nil {
			p.OnStep(res)
		}
		if res.Err != nil {
			runErr = fmt.Errorf("%s: %w", step, res.Err)
			break
		}
	}
	summary.Elapsed = time.Since(start)

	if err := p.finishRun(run, runErr); err != nil {
		p.logger.Warn("failed to record run completion", slog.String("error", err.Error()))
	}
	return summary, runErr
}

func (p *Pipeline) execStep(ctx context.Context, run *state.Run, step Step) (StepResult, []report.Result) {
	res := StepResult{Step: step}
	start := time.Now()

	var stepRun *state.StepRun
	if run != nil {
		sr, err := p.store.StartStep(ctx, run.ID, string(step))
		if err != nil {
			res.Err = err
			return res, nil
		}
		stepRun = sr
	}

	p.logger.Info("step started", slog.String("step", string(step)))

	var reports []report.Result
	switch step {
	case StepGenerate:
		res.Rows, res.Err = p.Generate(ctx)
	case StepCreate:
		res.Err = p.Create(ctx)
	case StepLoad:
		res.Rows, res.Err = p.Load(ctx)
	case StepReport:
		reports, res.Err = p.Report(ctx, p.cfg.Reports...)
		res.Rows = int64(len(reports))
	default:
		res.Err = fmt.Errorf("unknown step %q", step)
	}
	res.Elapsed = time.Since(start)

	if stepRun != nil {
		status, msg := state.StatusCompleted, ""
		if res.Err != nil {
			status, msg = state.StatusFailed, res.Err.Error()
		}
		// Record completion even when ctx was cancelled.
		if err := p.store.CompleteStep(context.WithoutCancel(ctx), stepRun.ID, status, res.Rows, msg); err != nil {
			p.logger.Warn("failed to record step", slog.String("step", string(step)), slog.String("error", err.Error()))
		}
	}

	if res.Err != nil {
		p.logger.Error("step failed", slog.String("step", string(step)), slog.String("error", res.Err.Error()))
	} else {
		p.logger.Info("step completed",
			slog.String("step", string(step)),
			slog.Int64("rows", res.Rows),
			slog.Duration("elapsed", res.Elapsed))
	}
	return res, reports
}

func (p *Pipeline) startRun(ctx context.Context) (*state.Run, error) {
	if p.store == nil {
		return nil, nil
	}
	target := p.cfg.Target
	if target == "" && p.adapter != nil {
		target = p.adapter.Name()
	}
	run, err := p.store.CreateRun(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

func (p *Pipeline) finishRun(run *state.Run, runErr error) error {
	if run == nil {
		return nil
	}
	status, msg := state.StatusCompleted, ""
	if runErr != nil {
		status, msg = state.StatusFailed, runErr.Error()
	}
	return p.store.CompleteRun(context.Background(), run.ID, status, msg)
}
