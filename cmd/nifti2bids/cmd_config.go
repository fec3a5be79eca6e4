package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/nvandessel/nifti2bids/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nifti2bids configuration",
		Long: `View and modify nifti2bids configuration settings.

Configuration is stored in ~/.nifti2bids/config.yaml unless --config
names another file. NIFTI2BIDS_* environment variables override it.

Examples:
  nifti2bids config list                              # Show all settings
  nifti2bids config get slice_timing.method           # Get a specific setting
  nifti2bids config set dataset.name "Flanker study"  # Set a setting
  nifti2bids config set dataset.authors "A. Author,B. Author"`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				printJSON(cmd, cfg)
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration:")
			for _, key := range config.Keys() {
				value, _ := cfg.Get(key)
				fmt.Fprintf(out, "  %-34s %s\n", key+":", valueOrDefault(value))
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			configPath, _ := cmd.Flags().GetString("config")
			key := args[0]

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := cfg.Get(key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				printJSON(cmd, map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}

			// Only the file's own values are saved, not environment overrides.
			cfg, err := config.LoadFromFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				cfg, err = config.Default(), nil
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			if jsonOut {
				newValue, _ := cfg.Get(key)
				printJSON(cmd, map[string]interface{}{
					"key":   key,
					"value": newValue,
					"path":  path,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			}
			return nil
		},
	}
}

// valueOrDefault formats a config value for list output.
func valueOrDefault(v any) string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return "(not set)"
		}
		return val
	case []string:
		if len(val) == 0 {
			return "(not set)"
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
