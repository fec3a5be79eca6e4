package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/nifti2bids/internal/config"
	"github.com/nvandessel/nifti2bids/internal/fsutil"
	"github.com/nvandessel/nifti2bids/internal/logging"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nifti2bids",
		Short: "Convert NIfTI images and task logs into BIDS datasets",
		Long: `nifti2bids renames NIfTI images into BIDS file names, derives
functional sidecar metadata from image headers, converts Presentation and
E-Prime logs into events files, and writes dataset-level metadata.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.nifti2bids/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace (overrides config)")
	rootCmd.PersistentFlags().String("dataset", "", "BIDS dataset root; enables provenance logging and keeps writes inside it")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRenameCmd(),
		newFilesCmd(),
		newCompressCmd(),
		newDescribeCmd(),
		newSliceTimingCmd(),
		newEventsCmd(),
		newDatasetCmd(),
		newSimulateCmd(),
		newValidateCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(cmd, map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "nifti2bids version %s\n", version)
			}
		},
	}
}

// runEnv is what every command needs from the global flags.
type runEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	prov    *logging.ProvenanceLogger
	dataset string
	jsonOut bool
}

// loadEnv loads configuration and builds the logger and, when --dataset
// is set, the provenance log. Callers must Close the result.
func loadEnv(cmd *cobra.Command) (*runEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	env := &runEnv{cfg: cfg}
	env.jsonOut, _ = cmd.Flags().GetBool("json")
	env.dataset, _ = cmd.Flags().GetString("dataset")
	env.logger = logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	env.prov = logging.NewProvenanceLogger(env.dataset, cfg.Logging.Provenance)
	if env.prov != nil {
		env.logger = env.logger.With("session", env.prov.Session())
	}
	return env, nil
}

// useDataset makes root the dataset for commands that take it as an
// argument. An explicit --dataset wins.
func (e *runEnv) useDataset(root string) {
	if e.dataset != "" {
		return
	}
	e.dataset = root
	e.prov = logging.NewProvenanceLogger(root, e.cfg.Logging.Provenance)
	if e.prov != nil {
		e.logger = e.logger.With("session", e.prov.Session())
	}
}

// checkWrite rejects output paths outside the dataset root when one is
// set. Empty paths are skipped.
func (e *runEnv) checkWrite(paths ...string) error {
	if e.dataset == "" {
		return nil
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := fsutil.ValidatePath(p, []string{e.dataset}); err != nil {
			return fmt.Errorf("refusing to write %s outside dataset %s: %w", p, e.dataset, err)
		}
	}
	return nil
}

// Close flushes the provenance log. Safe on nil.
func (e *runEnv) Close() {
	if e == nil {
		return
	}
	e.prov.Close()
}

// printJSON writes v as one JSON document to the command's output.
func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
