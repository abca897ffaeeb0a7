package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/leapstack-labs/orderlake/internal/state"
	"github.com/leapstack-labs/orderlake/internal/testutil"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/leapstack-labs/orderlake/pkg/adapters/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(context.Background(), ":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newDuckDB(t *testing.T) adapter.Adapter {
	t.Helper()
	adp := duckdb.New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), adapter.Config{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func testConfig(t *testing.T) Config {
	return Config{DataDir: t.TempDir(), Orders: 200, Seed: 42}
}

func TestConfig_Paths(t *testing.T) {
	cfg := Config{DataDir: "data", OrdersFile: "/tmp/o.csv", ProductsFile: "p.csv"}
	cat, prod, orders := cfg.Paths()
	assert.Equal(t, filepath.Join("data", DefaultCategoriesFile), cat)
	assert.Equal(t, filepath.Join("data", "p.csv"), prod)
	assert.Equal(t, "/tmp/o.csv", orders)

	cat, _, _ = Config{}.Paths()
	assert.Equal(t, DefaultCategoriesFile, cat)
}

func TestPipeline_RunAll(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	p := New(testConfig(t), newDuckDB(t), store, testutil.NewTestLogger(t))

	var seen []Step
	p.OnStep = func(r StepResult) { seen = append(seen, r.Step) }

	summary, err := p.RunAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Steps(), seen)
	require.Len(t, summary.Steps, 4)

	// 5 categories + 50 products + at least one line per order.
	assert.GreaterOrEqual(t, summary.Steps[0].Rows, int64(55+200))
	// Load counts categories, products and orders.
	assert.Equal(t, int64(5+50+200), summary.Steps[2].Rows)
	require.Len(t, summary.Reports, len(report.Kinds()))
	assert.NotEmpty(t, summary.Reports[2].Periods, "sales by year")

	run, err := store.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, run.Status)
	assert.Equal(t, "duckdb", run.Target)

	steps, err := store.ListSteps(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	for i, s := range steps {
		assert.Equal(t, string(Steps()[i]), s.Step)
		assert.Equal(t, state.StatusCompleted, s.Status)
	}
}

type failingAdapter struct {
	adapter.Adapter
}

func (failingAdapter) Name() string { return "broken" }

func (failingAdapter) CreateSchema(context.Context) error {
	return errors.New("permission denied")
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	logger, logs := testutil.NewCaptureLogger(slog.LevelError)
	p := New(testConfig(t), failingAdapter{}, store, logger)

	summary, err := p.RunAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create: create schema: permission denied")
	assert.True(t, logs.Contains("step failed", "step=create", "permission denied"))
	assert.Len(t, logs.Lines(), 1)
	require.Len(t, summary.Steps, 2, "load and report never run")

	run, err := store.GetRun(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, run.Status)
	assert.Equal(t, "broken", run.Target)
	assert.Contains(t, run.Error, "permission denied")

	steps, err := store.ListSteps(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, state.StatusCompleted, steps[0].Status)
	assert.Equal(t, state.StatusFailed, steps[1].Status)
}

func TestPipeline_GenerateWithoutAdapter(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, nil, nil)

	summary, err := p.Execute(context.Background(), StepGenerate)
	require.NoError(t, err)
	assert.Empty(t, summary.RunID, "nothing recorded without a store")

	cat, prod, orders := p.Paths()
	for _, path := range []string{cat, prod, orders} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	_, err = p.Execute(context.Background(), StepCreate)
	assert.ErrorIs(t, err, ErrNoAdapter)
}

func TestPipeline_ZeroOrders(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Orders = 0
	p := New(cfg, newDuckDB(t), newStore(t), testutil.NewTestLogger(t))
	assert.Zero(t, p.Config().Orders)

	summary, err := p.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Steps, len(Steps()))
	assert.Equal(t, int64(55), summary.Steps[2].Rows, "categories and products only")
	for _, res := range summary.Reports {
		assert.True(t, res.Empty(), string(res.Kind))
	}
}

func TestPipeline_LoadMissingFiles(t *testing.T) {
	p := New(testConfig(t), newDuckDB(t), nil, nil)
	require.NoError(t, p.Create(context.Background()))

	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPipeline_UnknownStep(t *testing.T) {
	p := New(testConfig(t), nil, nil, nil)
	_, err := p.Execute(context.Background(), Step("publish"))
	assert.ErrorContains(t, err, `unknown step "publish"`)
}

func TestPipeline_ReportsSubset(t *testing.T) {
	ctx := context.Background()
	p := New(testConfig(t), newDuckDB(t), nil, nil)
	_, err := p.Execute(ctx, StepGenerate, StepCreate, StepLoad)
	require.NoError(t, err)

	results, err := p.Report(ctx, report.SalesByYear)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, report.SalesByYear, results[0].Kind)
}
