package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/orderlake/internal/cli/output"
	"github.com/leapstack-labs/orderlake/internal/generate"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
)

// DefaultSchemaForType returns the default schema for a warehouse type.
func DefaultSchemaForType(dbType string) string {
	switch dbType {
	case "postgres":
		return "public"
	case "mongo":
		return ""
	default:
		return "main"
	}
}

// ApplyTargetDefaults fills unset target fields based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "duckdb":
		if t.Database == "" {
			t.Database = DefaultWarehouse
		}
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Host == "" && t.URI == "" {
			t.Host = "localhost"
		}
	case "mongo":
		if t.URI == "" {
			t.URI = DefaultMongoURI
		}
		if t.Database == "" {
			t.Database = DefaultMongoDatabase
		}
	}
}

// ValidateTarget checks that the target names a registered adapter.
func ValidateTarget(t *TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	if t.Type == "postgres" && t.URI == "" && t.Database == "" {
		return fmt.Errorf("postgres target requires database or uri")
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if _, err := generate.ParseDelimiter(c.Delimiter); err != nil {
		return err
	}
	if c.Orders < 0 {
		return fmt.Errorf("orders must not be negative, got %d", c.Orders)
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}
	if c.Report.TopCustomers < 0 || c.Report.ProductsPerCategory < 0 {
		return fmt.Errorf("report limits must not be negative")
	}
	if err := ValidateTarget(c.Target); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	return nil
}
