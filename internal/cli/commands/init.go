package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/orderlake/internal/cli/config"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var warehouseTypes = []string{"duckdb", "postgres", "mongo"}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var warehouse string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new orderlake project",
		Long: `Initialize a new orderlake project.

This creates:
  - orderlake.yaml configuration for the chosen warehouse
  - .env with the supported environment variables, commented out
  - .gitignore for the state, data and .env files`,
		Example: `  # Initialize in current directory with DuckDB
  orderlake init

  # New project using MongoDB
  orderlake init shop --warehouse mongo

  # Force overwrite existing config
  orderlake init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			if !slices.Contains(warehouseTypes, warehouse) {
				return fmt.Errorf("unknown warehouse %q (expected one of: %s)", warehouse, strings.Join(warehouseTypes, ", "))
			}
			return runInit(cmd, dir, warehouse, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&warehouse, "warehouse", "duckdb", "Warehouse type (duckdb|postgres|mongo)")
	_ = cmd.RegisterFlagCompletionFunc("warehouse", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return warehouseTypes, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(cmd *cobra.Command, dir, warehouse string, force bool) error {
	// init runs before any project exists, so it never loads config.
	r := newRenderer(cmd, &config.Config{OutputFormat: config.DefaultOutput})

	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	content, err := starterConfig(warehouse)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(config.ConfigFileName, "success", "")

	files, err := copyTemplate("starter", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("orderlake project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Review orderlake.yaml and .env")
	r.Println("  2. Run 'orderlake run' to generate, load and report")
	r.Println("  3. Run 'orderlake history' to see recorded runs")

	return nil
}

// starterConfig renders orderlake.yaml for a warehouse type.
func starterConfig(warehouse string) ([]byte, error) {
	target := &config.TargetConfig{Type: warehouse}
	switch warehouse {
	case "duckdb":
		target.Database = config.DefaultWarehouse
	case "postgres":
		target.Host = "localhost"
		target.Port = 5432
		target.Database = "online_orders"
		target.User = "${PGUSER}"
		target.Password = "${PGPASSWORD}"
		target.Options = map[string]string{"sslmode": "disable"}
	case "mongo":
		target.URI = config.DefaultMongoURI
		target.Database = config.DefaultMongoDatabase
	}

	cfg := config.Config{
		DataDir: config.DefaultDataDir,
		Files: config.FilesConfig{
			Categories: "categories.csv",
			Products:   "products.csv",
			Orders:     "orders.csv",
		},
		Delimiter:    config.DefaultDelimiter,
		Orders:       config.DefaultOrders,
		StatePath:    config.DefaultStateFile,
		Environment:  config.DefaultEnv,
		OutputFormat: config.DefaultOutput,
		Target:       target,
		Report:       report.DefaultOptions(),
		Serve:        config.ServeConfig{Addr: config.DefaultAddr},
	}

	var buf bytes.Buffer
	buf.WriteString("# orderlake configuration\n")
	buf.WriteString("# Environment variables (ORDERLAKE_*) and flags override these values.\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
