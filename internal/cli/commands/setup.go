package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/orderlake/internal/cli/config"
	"github.com/leapstack-labs/orderlake/internal/cli/output"
	"github.com/leapstack-labs/orderlake/internal/pipeline"
	"github.com/leapstack-labs/orderlake/internal/state"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
	"github.com/spf13/cobra"

	// Register the warehouse adapters.
	_ "github.com/leapstack-labs/orderlake/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/orderlake/pkg/adapters/mongo"
	_ "github.com/leapstack-labs/orderlake/pkg/adapters/postgres"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Adapter  adapter.Adapter
	Store    *state.SQLiteStore
	Pipeline *pipeline.Pipeline
}

// NewCommandContext creates a CommandContext with a connected warehouse
// adapter, an open state store and a pipeline wired to both.
// Options adjust the pipeline configuration built from the loaded config.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, opts ...func(*pipeline.Config)) (*CommandContext, func(), error) {
	return newCommandContext(cmd, true, opts)
}

// NewCommandContextWithoutAdapter creates a CommandContext whose pipeline
// has no warehouse. Used by generate and history.
func NewCommandContextWithoutAdapter(cmd *cobra.Command, opts ...func(*pipeline.Config)) (*CommandContext, func(), error) {
	return newCommandContext(cmd, false, opts)
}

// NewCommandContextWithoutEngine creates a CommandContext with only config,
// logger and renderer. Useful for commands that don't touch any database.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(commandCtx(cmd)),
		Renderer: newRenderer(cmd, cfg),
	}, nil
}

func newCommandContext(cmd *cobra.Command, withAdapter bool, opts []func(*pipeline.Config)) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutEngine(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := commandCtx(cmd)

	store := state.NewSQLiteStore(cc.Logger)
	if err := store.Open(ctx, cc.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	cc.Store = store

	if withAdapter {
		adp, err := connectAdapter(ctx, cc.Cfg.Target, cc.Logger)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		cc.Adapter = adp
	}

	pc := pipelineConfig(cc.Cfg)
	for _, opt := range opts {
		opt(&pc)
	}
	cc.Pipeline = pipeline.New(pc, cc.Adapter, store, cc.Logger)

	cleanup := func() {
		if cc.Adapter != nil {
			if err := cc.Adapter.Close(); err != nil {
				cc.Logger.Warn("failed to close adapter", slog.String("error", err.Error()))
			}
		}
		if err := store.Close(); err != nil {
			cc.Logger.Warn("failed to close state store", slog.String("error", err.Error()))
		}
	}
	return cc, cleanup, nil
}

// getConfig returns the current configuration, loading defaults from the
// working directory when the root command did not run.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

func newRenderer(cmd *cobra.Command, cfg *config.Config) *output.Renderer {
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		mode = output.ModeAuto
	}
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
}

func connectAdapter(ctx context.Context, target *config.TargetConfig, logger *slog.Logger) (adapter.Adapter, error) {
	if target == nil {
		return nil, pipeline.ErrNoAdapter
	}
	adapterCfg := target.AdapterConfig()
	adp, err := adapter.NewAdapter(adapterCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, adapterCfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target.Type, err)
	}
	logger.Debug("warehouse connected", slog.String("type", target.Type))
	return adp, nil
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	pc := pipeline.Config{
		DataDir:        cfg.DataDir,
		CategoriesFile: cfg.Files.Categories,
		ProductsFile:   cfg.Files.Products,
		OrdersFile:     cfg.Files.Orders,
		Delimiter:      cfg.Delimiter,
		Orders:         cfg.Orders,
		Seed:           cfg.Seed,
		Report:         cfg.Report,
	}
	if cfg.Target != nil {
		pc.Target = cfg.Target.Type
	}
	return pc
}

// commandCtx returns the command context, or Background when the command
// runs outside cobra's Execute.
func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
