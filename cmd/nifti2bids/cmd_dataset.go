package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/nifti2bids/internal/bids"
	"github.com/spf13/cobra"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Write dataset-level BIDS files",
	}

	cmd.AddCommand(newDatasetInitCmd())
	cmd.AddCommand(newDatasetParticipantsCmd())

	return cmd
}

func newDatasetInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <root>",
		Short: "Create dataset_description.json",
		Long: `Create the dataset root (if needed) and write dataset_description.json.

Fields default to the dataset section of the config; flags override them.

Examples:
  nifti2bids dataset init ./ds --name "Flanker study"
  nifti2bids dataset init ./ds --name Faces --bids-version 1.9.0 --author "A. Author"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			root := args[0]
			if err := env.checkWrite(filepath.Join(root, bids.DatasetDescriptionFile)); err != nil {
				return err
			}

			if err := os.MkdirAll(root, 0o755); err != nil {
				return fmt.Errorf("failed to create dataset root: %w", err)
			}
			env.useDataset(root)

			desc := bids.DatasetDescriptionFromConfig(env.cfg.Dataset)
			if cmd.Flags().Changed("name") {
				desc.Name, _ = cmd.Flags().GetString("name")
			}
			if cmd.Flags().Changed("bids-version") {
				desc.BIDSVersion, _ = cmd.Flags().GetString("bids-version")
			}
			if cmd.Flags().Changed("author") {
				desc.Authors, _ = cmd.Flags().GetStringSlice("author")
			}
			desc.GeneratedBy = []bids.GeneratedBy{{Name: "nifti2bids", Version: version}}

			path, err := bids.SaveDatasetDescription(desc, root, env.prov)
			if err != nil {
				return err
			}

			if env.jsonOut {
				printJSON(cmd, map[string]interface{}{
					"path":        path,
					"description": desc,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (BIDS %s)\n", path, desc.BIDSVersion)
			}
			return nil
		},
	}

	cmd.Flags().String("name", "", "Dataset name")
	cmd.Flags().String("bids-version", "", "BIDS version")
	cmd.Flags().StringSlice("author", nil, "Dataset author (repeatable)")

	return cmd
}

func newDatasetParticipantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participants <root>",
		Short: "Create participants.tsv from the sub-* directories",
		Long: `List the sub-* directories of a dataset as participants.tsv.

Examples:
  nifti2bids dataset participants ./ds
  nifti2bids dataset participants ./ds --dry-run --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			root := args[0]
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if !dryRun {
				if err := env.checkWrite(filepath.Join(root, bids.ParticipantsFile)); err != nil {
					return err
				}
				env.useDataset(root)
			}

			t, err := bids.CreateParticipantsTSV(root, !dryRun, env.prov)
			if err != nil {
				return err
			}
			ids, _ := t.Column(bids.ParticipantID)

			if env.jsonOut {
				printJSON(cmd, map[string]interface{}{
					"participants": ids,
					"count":        len(ids),
					"written":      !dryRun,
				})
				return nil
			}
			if dryRun {
				return t.WriteTSV(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d participants to %s\n", len(ids), bids.ParticipantsFile)
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Print the table instead of writing it")

	return cmd
}
