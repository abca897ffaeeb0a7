package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/orderlake/internal/report"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes every orderlake environment variable.
const EnvPrefix = "ORDERLAKE_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// legacyMongoEnv holds the earlier connection names of the mongo target.
var legacyMongoEnv = map[string]string{
	"MONGO_URI":    "target.uri",
	"MONGODB_NAME": "target.database",
}

// legacyEnv maps the other unprefixed variable names used by earlier releases.
var legacyEnv = map[string]string{
	"DELIMITER":       "delimiter",
	"CATEGORIES_FILE": "files.categories",
	"PRODUCT_FILE":    "files.products",
	"ORDER_FILE":      "files.orders",
}

// nestedSections are the config sections reachable through ORDERLAKE_ variables.
var nestedSections = []string{"target", "report", "serve", "files"}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	dotEnvUsed     string
	currentConfig  *Config
)

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	dotEnvUsed = ""
	currentConfig = nil
}

// envKey maps ORDERLAKE_TARGET_TYPE to target.type and ORDERLAKE_DATA_DIR
// to data_dir. It returns "" for variables without the prefix.
func envKey(name string) string {
	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	for _, section := range nestedSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return key
}

// legacyKeyFunc maps unprefixed legacy variables to config keys, returning
// "" for other names. The mongo connection names are mapped only when
// withMongo is set.
func legacyKeyFunc(withMongo bool) func(string) string {
	return func(name string) string {
		if key, ok := legacyEnv[name]; ok {
			return key
		}
		if withMongo {
			return legacyMongoEnv[name]
		}
		return ""
	}
}

// configExistsIn checks if an orderlake config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for an orderlake config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Directory of an explicit --config file
//  2. Search upward from CWD for orderlake.yaml
//  3. Current working directory
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":                     DefaultDataDir,
		"files.categories":             "categories.csv",
		"files.products":               "products.csv",
		"files.orders":                 "orders.csv",
		"delimiter":                    DefaultDelimiter,
		"orders":                       DefaultOrders,
		"state_path":                   DefaultStateFile,
		"environment":                  DefaultEnv,
		"verbose":                      false,
		"output":                       DefaultOutput,
		"target.type":                  DefaultTarget,
		"report.year":                  report.DefaultYear,
		"report.top_customers":         report.DefaultTop,
		"report.products_per_category": report.DefaultPerCat,
		"serve.addr":                   DefaultAddr,
	}
}

// LoadConfig loads configuration from file, .env, environment variables and flags.
// Precedence (highest to lowest): flags > ORDERLAKE_ env > legacy env > .env >
// selected environments entry > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration with an optional environment
// override selecting which environments entry to apply.
func LoadConfigWithTarget(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	configFileUsed, dotEnvUsed = "", ""

	projectRoot := inferProjectRoot(cfgFile)

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Fold the selected environments entry into the file layer, so the
	// .env, environment and flag layers still win over it.
	dotVars, err := loadDotEnv(filepath.Join(projectRoot, DotEnvFileName))
	if err != nil {
		return nil, err
	}
	over, err := loadOverrides(dotVars, flags, false)
	if err != nil {
		return nil, err
	}

	envName := k.String("environment")
	if over.Exists("environment") {
		envName = over.String("environment")
	}
	if targetOverride != "" {
		envName = targetOverride
	}
	if err := applyEnvironmentLayer(envName, targetOverride != ""); err != nil {
		return nil, err
	}

	// 4. MONGO_URI and MONGODB_NAME only describe a mongo target.
	targetType := k.String("target.type")
	if over.Exists("target.type") {
		targetType = over.String("target.type")
	}
	if strings.EqualFold(targetType, "mongo") {
		if over, err = loadOverrides(dotVars, flags, true); err != nil {
			return nil, err
		}
	}

	// 5. .env < legacy env < ORDERLAKE_ env < flags
	if err := k.Merge(over); err != nil {
		return nil, fmt.Errorf("failed to merge overrides: %w", err)
	}
	if targetOverride != "" {
		if err := k.Set("environment", targetOverride); err != nil {
			return nil, fmt.Errorf("failed to select environment: %w", err)
		}
	}
	var flagPaths map[string]string
	if flags != nil {
		flagPaths = absoluteFlagPaths(flags)
	}

	// 6. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{Type: DefaultTarget}
	}
	ApplyTargetDefaults(cfg.Target)

	// Expand ${VAR} in target fields, looking at .env values too.
	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := dotVars[name]
		return v, ok
	}
	expandTargetEnvVars(cfg.Target, lookup)

	// Resolve relative paths. Flag paths were already made absolute from CWD.
	cfg.DataDir = pick(flagPaths["data_dir"], resolvePathRelativeTo(cfg.DataDir, projectRoot))
	cfg.StatePath = pick(flagPaths["state_path"], resolvePathRelativeTo(cfg.StatePath, projectRoot))
	if cfg.Target.Type == "duckdb" {
		cfg.Target.Database = pick(flagPaths["target.database"], resolvePathRelativeTo(cfg.Target.Database, projectRoot))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// loadOverrides loads the layers above the config file: .env, legacy
// variables, ORDERLAKE_ variables and explicitly set flags. The legacy mongo
// names are only mapped when withMongo is set.
func loadOverrides(dotVars map[string]string, flags *pflag.FlagSet, withMongo bool) (*koanf.Koanf, error) {
	over := koanf.New(".")
	legacy := legacyKeyFunc(withMongo)

	if err := over.Load(confmap.Provider(mapVars(dotVars, legacy), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFileName, err)
	}
	if err := over.Load(env.Provider("", ".", legacy), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	if err := over.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags == nil {
		return over, nil
	}
	if err := over.Load(posflag.ProviderWithFlag(flags, ".", over, func(f *pflag.Flag) (string, interface{}) {
		// Only load flags that were explicitly set
		if !f.Changed {
			return "", nil
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch key {
		case "config", "target":
			// Selectors, not config values.
			return "", nil
		case "state":
			return "state_path", posflag.FlagVal(flags, f)
		case "database":
			return "target.database", posflag.FlagVal(flags, f)
		}
		return key, posflag.FlagVal(flags, f)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}
	return over, nil
}

// applyEnvironmentLayer merges environments.<name> into the loaded file
// layer. A missing entry is an error only when it was asked for explicitly.
func applyEnvironmentLayer(name string, explicit bool) error {
	var fileCfg Config
	if err := k.Unmarshal("", &fileCfg); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	envCfg, ok := fileCfg.Environments[name]
	if !ok {
		if explicit {
			return fmt.Errorf("unknown environment %q (defined: %s)", name, strings.Join(environmentNames(fileCfg.Environments), ", "))
		}
		return nil
	}

	applyEnvironment(&fileCfg, envCfg)
	k.Delete("target")
	layer := map[string]any{
		"data_dir":  fileCfg.DataDir,
		"delimiter": fileCfg.Delimiter,
		"orders":    fileCfg.Orders,
	}
	if fileCfg.Target != nil {
		layer["target"] = targetMap(fileCfg.Target)
	}
	if err := k.Load(confmap.Provider(layer, ""), nil); err != nil {
		return fmt.Errorf("failed to apply environment %q: %w", name, err)
	}
	return nil
}

// targetMap renders a target as a koanf map, omitting unset fields.
func targetMap(t *TargetConfig) map[string]any {
	m := map[string]any{"type": t.Type}
	for key, v := range map[string]string{
		"database": t.Database,
		"uri":      t.URI,
		"host":     t.Host,
		"user":     t.User,
		"password": t.Password,
		"schema":   t.Schema,
	} {
		if v != "" {
			m[key] = v
		}
	}
	if t.Port != 0 {
		m["port"] = t.Port
	}
	if len(t.Options) > 0 {
		opts := make(map[string]any, len(t.Options))
		for key, v := range t.Options {
			opts[key] = v
		}
		m["options"] = opts
	}
	if len(t.Params) > 0 {
		m["params"] = t.Params
	}
	return m
}

// absoluteFlagPaths resolves path flags against the working directory.
func absoluteFlagPaths(flags *pflag.FlagSet) map[string]string {
	out := make(map[string]string)
	for name, key := range map[string]string{"data-dir": "data_dir", "state": "state_path", "database": "target.database"} {
		f := flags.Lookup(name)
		if f == nil || !f.Changed || f.Value.String() == "" {
			continue
		}
		v := f.Value.String()
		if v != ":memory:" {
			if abs, err := filepath.Abs(v); err == nil {
				v = abs
			}
		}
		out[key] = v
	}
	return out
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// loadDotEnv parses a .env file. A missing file yields no variables.
func loadDotEnv(path string) (map[string]string, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: path is the project .env
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	raw, err := dotenv.Parser().Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	dotEnvUsed = path

	vars := make(map[string]string, len(raw))
	for name, v := range raw {
		vars[name] = fmt.Sprint(v)
	}
	return vars, nil
}

// mapVars converts .env variables to config keys, skipping unknown names.
func mapVars(vars map[string]string, legacy func(string) string) map[string]any {
	out := make(map[string]any)
	// Legacy names first so prefixed names override them.
	for name, v := range vars {
		if key := legacy(name); key != "" {
			out[key] = v
		}
	}
	for name, v := range vars {
		if key := envKey(name); key != "" {
			out[key] = v
		}
	}
	return out
}

func applyEnvironment(cfg *Config, envCfg EnvConfig) {
	if envCfg.DataDir != "" {
		cfg.DataDir = envCfg.DataDir
	}
	if envCfg.Delimiter != "" {
		cfg.Delimiter = envCfg.Delimiter
	}
	if envCfg.Orders != 0 {
		cfg.Orders = envCfg.Orders
	}
	if envCfg.Target != nil {
		cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
	}
}

func environmentNames(envs map[string]EnvConfig) []string {
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	if len(names) == 0 {
		return []string{"none"}
	}
	slices.Sort(names)
	return names
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetDotEnvUsed returns the path of the loaded .env file, if any.
func GetDotEnvUsed() string {
	return dotEnvUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig or LoadConfigWithTarget is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns using lookup. Unknown variables
// are left as written.
func expandEnvVars(s string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := lookup(match[2 : len(match)-1]); ok && val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig, lookup func(string) (string, bool)) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password, lookup)
	t.User = expandEnvVars(t.User, lookup)
	t.Host = expandEnvVars(t.Host, lookup)
	t.Database = expandEnvVars(t.Database, lookup)
	t.URI = expandEnvVars(t.URI, lookup)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string)
	merged.Params = make(map[string]any)
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	// A different type starts from a clean connection.
	if override.Type != "" && override.Type != base.Type {
		merged = TargetConfig{Type: override.Type, Options: map[string]string{}, Params: map[string]any{}}
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.URI != "" {
		merged.URI = override.URI
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return &merged
}
