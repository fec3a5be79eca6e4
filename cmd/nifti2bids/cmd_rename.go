package main

import (
	"fmt"

	"github.com/nvandessel/nifti2bids/internal/bids"
	"github.com/spf13/cobra"
)

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <file>",
		Short: "Give a file its BIDS name",
		Long: `Rename a file to its BIDS name built from entity flags and a suffix.

Without --dst-dir the file is renamed in place. With --dst-dir it is copied
there and, with --remove-src, the original is deleted afterwards. Existing
files are never overwritten.

Examples:
  nifti2bids rename run1.nii.gz --sub 01 --task rest --run 1 --suffix bold
  nifti2bids rename mprage.nii --sub 01 --ses 1 --suffix T1w --dst-dir ds/sub-01/ses-1/anat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			var e bids.Entities
			e.Sub, _ = cmd.Flags().GetString("sub")
			e.Ses, _ = cmd.Flags().GetString("ses")
			e.Task, _ = cmd.Flags().GetString("task")
			e.Acq, _ = cmd.Flags().GetString("acq")
			e.Run, _ = cmd.Flags().GetString("run")
			e.Desc, _ = cmd.Flags().GetString("desc")
			suffix, _ := cmd.Flags().GetString("suffix")
			dstDir, _ := cmd.Flags().GetString("dst-dir")
			removeSrc, _ := cmd.Flags().GetBool("remove-src")

			dst, err := bids.CreateFile(args[0], e, suffix, bids.CreateOptions{
				DstDir:     dstDir,
				RemoveSrc:  removeSrc,
				Root:       env.dataset,
				Logger:     env.logger,
				Provenance: env.prov,
			})
			if err != nil {
				return err
			}

			if env.jsonOut {
				printJSON(cmd, map[string]interface{}{
					"src": args[0],
					"dst": dst,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], dst)
			}
			return nil
		},
	}

	cmd.Flags().String("sub", "", "Subject label (required)")
	cmd.Flags().String("ses", "", "Session label")
	cmd.Flags().String("task", "", "Task label")
	cmd.Flags().String("acq", "", "Acquisition label")
	cmd.Flags().String("run", "", "Run index")
	cmd.Flags().String("desc", "", "Description label")
	cmd.Flags().String("suffix", "", "BIDS suffix such as bold or T1w (required)")
	cmd.Flags().String("dst-dir", "", "Copy into this directory instead of renaming in place")
	cmd.Flags().Bool("remove-src", false, "Delete the source after copying to --dst-dir")
	cmd.MarkFlagRequired("sub")
	cmd.MarkFlagRequired("suffix")

	return cmd
}
