package commands

import (
	"bytes"
	"fmt"

	"github.com/leapstack-labs/orderlake/internal/cli/config"
	"github.com/leapstack-labs/orderlake/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, orderlake.yaml, .env, environment
variables and flags are applied. Passwords are redacted.`,
		Example: `  orderlake config
  orderlake config -t prod -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContextWithoutEngine(cmd)
			if err != nil {
				return err
			}
			cfg := redactConfig(cc.Cfg)

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(cfg)
			}

			var buf bytes.Buffer
			enc := yaml.NewEncoder(&buf)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if r.EffectiveMode() == output.ModeMarkdown {
				r.Println(output.FormatHeader(1, "Configuration"))
				r.Println("")
				r.Println(output.FormatKeyValue("Project root", cfg.ProjectRoot))
				r.Println(output.FormatKeyValue("Config file", sourceOrNone(config.GetConfigFileUsed())))
				r.Println(output.FormatKeyValue(".env", sourceOrNone(config.GetDotEnvUsed())))
				r.Println("")
				r.Println(output.FormatCodeBlock("yaml", buf.String()))
				return nil
			}

			r.Println(r.Muted("# config file: " + sourceOrNone(config.GetConfigFileUsed())))
			r.Println(r.Muted("# .env: " + sourceOrNone(config.GetDotEnvUsed())))
			r.Printf("%s", buf.String())
			return nil
		},
	}
}

// redactConfig returns a copy of cfg with secrets replaced.
func redactConfig(cfg *config.Config) config.Config {
	out := *cfg
	out.Target = redactTarget(cfg.Target)
	if cfg.Environments != nil {
		out.Environments = make(map[string]config.EnvConfig, len(cfg.Environments))
		for name, env := range cfg.Environments {
			env.Target = redactTarget(env.Target)
			out.Environments[name] = env
		}
	}
	return out
}

func redactTarget(t *config.TargetConfig) *config.TargetConfig {
	if t == nil {
		return nil
	}
	c := *t
	if c.Password != "" {
		c.Password = redacted
	}
	return &c
}

func sourceOrNone(path string) string {
	if path == "" {
		return "(none)"
	}
	return path
}
