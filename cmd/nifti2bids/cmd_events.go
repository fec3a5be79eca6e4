package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nvandessel/nifti2bids/internal/bids"
	"github.com/nvandessel/nifti2bids/internal/logparse"
	"github.com/nvandessel/nifti2bids/internal/table"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Convert task logs to BIDS events files",
		Long: `Convert Presentation and E-Prime logs into BIDS events.tsv files.

Without --out the events table is printed to stdout.`,
	}

	cmd.PersistentFlags().StringSlice("trial-types", nil, "Trial types to keep (comma-separated)")
	cmd.PersistentFlags().String("out", "", "Write events.tsv to this path")
	cmd.PersistentFlags().String("arrow", "", "Also write the events as an Arrow IPC file")

	cmd.AddCommand(newEventsPresentationCmd())
	cmd.AddCommand(newEventsEPrimeCmd())

	return cmd
}

func newEventsPresentationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presentation <log>",
		Short: "Convert a Presentation log",
		Long: `Convert a Presentation .log file into BIDS events.

Trial types are matched as prefixes of the Code column. In event designs
each matching row is one event; in block designs consecutive rows of one
trial type form a block that ends at the rest code or the next trial type.

Examples:
  nifti2bids events presentation flanker.log --trial-types congruent,incongruent
  nifti2bids events presentation faces.log --design block --trial-types face,house --rest-code rest --out sub-01_task-faces_events.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			trialTypes, _ := cmd.Flags().GetStringSlice("trial-types")
			designName, _ := cmd.Flags().GetString("design")
			design, err := bids.ParseDesign(designName)
			if err != nil {
				return err
			}
			restCode := env.cfg.Presentation.RestCode
			if cmd.Flags().Changed("rest-code") {
				restCode, _ = cmd.Flags().GetString("rest-code")
			}
			toSeconds := env.cfg.Presentation.ToSeconds
			if raw, _ := cmd.Flags().GetBool("raw-times"); raw {
				toSeconds = false
			}
			triggerRelative, _ := cmd.Flags().GetBool("trigger-relative")
			withResponse, _ := cmd.Flags().GetBool("response")

			events, err := bids.PresentationLogToBIDS(args[0],
				logparse.PresentationOptions{ToSeconds: toSeconds, TimeScale: env.cfg.Presentation.TimeScale},
				bids.PresentationOptions{
					TrialTypes:       trialTypes,
					Design:           design,
					RestCode:         restCode,
					TriggerEventType: env.cfg.Presentation.TriggerEventType,
					TriggerRelative:  triggerRelative,
					IncludeResponse:  withResponse,
					Logger:           env.logger,
				})
			if err != nil {
				return err
			}
			return writeEvents(cmd, env, args[0], bids.EventsTable(events, withResponse))
		},
	}

	cmd.Flags().String("design", string(bids.EventDesign), "Task design: event or block")
	cmd.Flags().String("rest-code", "", "Code that ends a block (block design)")
	cmd.Flags().Bool("trigger-relative", false, "Make onsets relative to the first scanner pulse")
	cmd.Flags().Bool("response", false, "Add a response column from Stim Type")
	cmd.Flags().Bool("raw-times", false, "Keep the log's raw time units")

	return cmd
}

func newEventsEPrimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eprime <file>",
		Short: "Convert an E-Prime export or text log",
		Long: `Convert an E-Prime tab-delimited export or a raw LogFrame text log into
BIDS events. Column names default to the eprime section of the config.

Examples:
  nifti2bids events eprime flanker-101-1.txt --format log
  nifti2bids events eprime export.txt --reference-col Fixation.OnsetTime --out events.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			format, _ := cmd.Flags().GetString("format")
			var t *table.Table
			switch format {
			case "export":
				t, err = logparse.LoadEPrimeExport(args[0])
			case "log":
				level, _ := cmd.Flags().GetInt("level")
				t, err = logparse.LoadEPrimeLog(args[0], level)
			default:
				return fmt.Errorf("invalid format: %s (must be export or log)", format)
			}
			if err != nil {
				return err
			}
			env.logger.Debug("loaded e-prime table", "path", args[0], "rows", t.Len(), "columns", len(t.Columns()))

			opts := bids.EPrimeOptions{
				OnsetColumn:     flagOr(cmd, "onset-col", env.cfg.EPrime.OnsetColumn),
				DurationColumn:  flagOr(cmd, "duration-col", env.cfg.EPrime.DurationColumn),
				TrialTypeColumn: flagOr(cmd, "trial-type-col", env.cfg.EPrime.TrialTypeColumn),
				TimeScale:       env.cfg.EPrime.TimeScale,
			}
			opts.ReferenceColumn, _ = cmd.Flags().GetString("reference-col")
			opts.TrialTypes, _ = cmd.Flags().GetStringSlice("trial-types")
			if cmd.Flags().Changed("time-scale") {
				opts.TimeScale, _ = cmd.Flags().GetFloat64("time-scale")
			}

			events, err := bids.EPrimeEvents(t, opts)
			if err != nil {
				return err
			}
			return writeEvents(cmd, env, args[0], bids.EventsTable(events, false))
		},
	}

	cmd.Flags().String("format", "export", "Input format: export (tab-delimited) or log (LogFrame text)")
	cmd.Flags().Int("level", 0, "LogFrame level to read; 0 selects the deepest level")
	cmd.Flags().String("onset-col", "", "Onset column (default from config)")
	cmd.Flags().String("duration-col", "", "Duration column (default from config)")
	cmd.Flags().String("trial-type-col", "", "Trial type column (default from config)")
	cmd.Flags().String("reference-col", "", "Column whose first value is time zero")
	cmd.Flags().Float64("time-scale", 1000, "Divide times by this value")

	return cmd
}

// flagOr returns the string flag name when it was set, otherwise def.
func flagOr(cmd *cobra.Command, name, def string) string {
	if !cmd.Flags().Changed(name) {
		return def
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}

// writeEvents writes t to --out and --arrow, or prints it when neither is
// set.
func writeEvents(cmd *cobra.Command, env *runEnv, src string, t *table.Table) error {
	outPath, _ := cmd.Flags().GetString("out")
	arrowPath, _ := cmd.Flags().GetString("arrow")

	if err := env.checkWrite(outPath, arrowPath); err != nil {
		return err
	}

	if outPath != "" {
		if err := t.WriteTSVFile(outPath); err != nil {
			return err
		}
		env.prov.Log("events", map[string]any{"src": src, "dst": outPath, "rows": t.Len()})
	}
	if arrowPath != "" {
		if err := t.WriteArrowFile(arrowPath); err != nil {
			return err
		}
		env.prov.Log("events", map[string]any{"src": src, "dst": arrowPath, "rows": t.Len()})
	}

	if env.jsonOut {
		rows := make([]map[string]string, t.Len())
		cols := t.Columns()
		for i := range rows {
			rows[i] = make(map[string]string, len(cols))
			for j, v := range t.Row(i) {
				rows[i][cols[j]] = v
			}
		}
		printJSON(cmd, map[string]interface{}{
			"source": src,
			"events": rows,
			"count":  t.Len(),
			"out":    outPath,
			"arrow":  arrowPath,
		})
		return nil
	}

	if outPath == "" && arrowPath == "" {
		return t.WriteTSV(cmd.OutOrStdout())
	}
	written := strings.TrimSpace(strings.Join([]string{outPath, arrowPath}, " "))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events from %s to %s\n", t.Len(), filepath.Base(src), written)
	return nil
}
