// Package config provides configuration management for the orderlake CLI.
//
// Values are layered from defaults, orderlake.yaml, a .env file, the
// environment and command-line flags, in increasing priority.
package config

import (
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/leapstack-labs/orderlake/pkg/adapter"
)

// TargetConfig holds warehouse connection settings.
type TargetConfig struct {
	Type string `koanf:"type" yaml:"type" json:"type"` // duckdb, postgres, mongo

	// Database is a file path (DuckDB) or a database name.
	Database string `koanf:"database" yaml:"database,omitempty" json:"database,omitempty"`

	// URI is a full connection string (MongoDB, or a Postgres URL).
	URI string `koanf:"uri" yaml:"uri,omitempty" json:"uri,omitempty"`

	Host     string `koanf:"host" yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `koanf:"port" yaml:"port,omitempty" json:"port,omitempty"`
	User     string `koanf:"user" yaml:"user,omitempty" json:"user,omitempty"`
	Password string `koanf:"password" yaml:"password,omitempty" json:"password,omitempty"`
	Schema   string `koanf:"schema" yaml:"schema,omitempty" json:"schema,omitempty"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options" yaml:"options,omitempty" json:"options,omitempty"`

	// Params holds adapter-specific settings (e.g., DuckDB extensions and SET values)
	Params map[string]any `koanf:"params" yaml:"params,omitempty" json:"params,omitempty"`
}

// AdapterConfig converts the target to an adapter configuration.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Database,
		URI:      t.URI,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// FilesConfig names the CSV files inside the data directory.
type FilesConfig struct {
	Categories string `koanf:"categories" yaml:"categories" json:"categories"`
	Products   string `koanf:"products" yaml:"products" json:"products"`
	Orders     string `koanf:"orders" yaml:"orders" json:"orders"`
}

// ServeConfig holds settings for the serve command.
type ServeConfig struct {
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`
}

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string               `koanf:"data_dir" yaml:"data_dir" json:"data_dir"`
	Files        FilesConfig          `koanf:"files" yaml:"files" json:"files"`
	Delimiter    string               `koanf:"delimiter" yaml:"delimiter" json:"delimiter"`
	Orders       int                  `koanf:"orders" yaml:"orders" json:"orders"`
	Seed         uint64               `koanf:"seed" yaml:"seed,omitempty" json:"seed,omitempty"`
	StatePath    string               `koanf:"state_path" yaml:"state_path" json:"state_path"`
	Environment  string               `koanf:"environment" yaml:"environment" json:"environment"`
	Verbose      bool                 `koanf:"verbose" yaml:"verbose,omitempty" json:"verbose,omitempty"`
	OutputFormat string               `koanf:"output" yaml:"output" json:"output"`
	Target       *TargetConfig        `koanf:"target" yaml:"target" json:"target"`
	Report       report.Options       `koanf:"report" yaml:"report" json:"report"`
	Serve        ServeConfig          `koanf:"serve" yaml:"serve" json:"serve"`
	Environments map[string]EnvConfig `koanf:"environments" yaml:"environments,omitempty" json:"environments,omitempty"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-" yaml:"-" json:"project_root"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	DataDir   string        `koanf:"data_dir" yaml:"data_dir,omitempty" json:"data_dir,omitempty"`
	Delimiter string        `koanf:"delimiter" yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
	Orders    int           `koanf:"orders" yaml:"orders,omitempty" json:"orders,omitempty"`
	Target    *TargetConfig `koanf:"target" yaml:"target,omitempty" json:"target,omitempty"`
}

// Default configuration values.
const (
	ConfigFileName    = "orderlake.yaml"
	ConfigFileNameAlt = "orderlake.yml"
	DotEnvFileName    = ".env"

	DefaultDataDir   = "data"
	DefaultDelimiter = ";"
	DefaultOrders    = 5000
	DefaultStateFile = ".orderlake/state.db"
	DefaultWarehouse = ".orderlake/warehouse.duckdb"
	DefaultEnv       = "dev"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultAddr      = "127.0.0.1:8080"
	DefaultTarget    = "duckdb"

	DefaultMongoURI      = "mongodb://localhost:27017"
	DefaultMongoDatabase = "online_orders"
)
