package main

import (
	"fmt"

	"github.com/nvandessel/nifti2bids/internal/bids"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <root>",
		Short: "Check a dataset for BIDS naming and metadata problems",
		Long: `Check a BIDS dataset for the problems nifti2bids can introduce or fix.

This command checks for:
  - A missing or incomplete dataset_description.json
  - Subjects missing from participants.tsv, or listed but absent
  - File names that do not parse as BIDS names, or sit in the wrong
    subject or session directory
  - events.tsv files without onset and duration columns
  - Unreadable NIfTI headers, non-4D bold images, and sidecars whose
    RepetitionTime or SliceTiming disagree with the image

Warnings do not fail validation; errors do.

Examples:
  nifti2bids validate ./ds
  nifti2bids validate ./ds --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			report, err := bids.Validate(args[0], env.logger)
			if err != nil {
				return err
			}

			if env.jsonOut {
				printJSON(cmd, map[string]interface{}{
					"root":   report.Root,
					"files":  report.Files,
					"issues": report.Issues,
					"errors": report.Errors(),
					"valid":  report.OK(),
				})
			} else {
				out := cmd.OutOrStdout()
				if len(report.Issues) == 0 {
					fmt.Fprintf(out, "✓ %s is valid (%d files checked)\n", report.Root, report.Files)
				} else {
					fmt.Fprintf(out, "Found %d issue(s) in %d files:\n\n", len(report.Issues), report.Files)
					for _, issue := range report.Issues {
						fmt.Fprintf(out, "  [%s] %s: %s\n", issue.Severity, issue.Path, issue.Message)
					}
				}
			}

			if !report.OK() {
				return fmt.Errorf("validation failed with %d error(s)", report.Errors())
			}
			return nil
		},
	}

	return cmd
}
