package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/triage/internal/config"
)

var configShowYAML bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage triage defaults (model, fallback, comment header, timeouts)",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Config file already exists at %s\n", path)
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Wrote defaults to %s (fallback model %s)\n", path, config.Default().FallbackModel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a default",
	Long:  "Persist a default in the config file. Keys: " + strings.Join(config.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		cfg, err := config.LoadFile()
		if err != nil {
			return err
		}
		if err := config.SetField(&cfg, key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Set %s = %s\n", key, value)
		if env := envOverriding(key); env != "" {
			color.Yellow("Note: %s is set and overrides this value", env)
		}
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration and where each value comes from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := logOverrides(nil)
		if configShowYAML {
			cfg, err := config.Load(overrides)
			if err != nil {
				configFailure(err)
				return nil
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, string(data))
			return nil
		}

		settings, err := config.Explain(overrides)
		if err != nil {
			configFailure(err)
			return nil
		}
		dim := color.New(color.FgHiBlack)
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, s := range settings {
			src := s.Source
			if src == "default" {
				src = dim.Sprint(src)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key, shorten(s.Value, 60), src)
		}
		return tw.Flush()
	},
}

// envOverriding returns the environment variable that currently overrides
// key, if any.
func envOverriding(key string) string {
	if env := config.EnvFor(key); env != "" && os.Getenv(env) != "" {
		return env
	}
	return ""
}

func shorten(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if s == "" {
		return `""`
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().BoolVar(&configShowYAML, "yaml", false, "Print the effective config as YAML")
}
