package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/nifti2bids/internal/fsutil"
	"github.com/spf13/cobra"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files <dir>",
		Short: "List files with an extension",
		Long: `List the files directly inside a directory whose extension matches.

Examples:
  nifti2bids files raw/ --ext nii.gz
  nifti2bids files logs/ --ext log --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			ext, _ := cmd.Flags().GetString("ext")

			files, err := fsutil.ListFiles(args[0], ext)
			if err != nil {
				return err
			}
			sizes, err := fileSizes(files)
			if err != nil {
				return err
			}
			env.logger.Debug("listed files", "dir", args[0], "ext", ext, "count", len(files))

			if env.jsonOut {
				out := make([]map[string]interface{}, len(files))
				for i, f := range files {
					out[i] = map[string]interface{}{"path": f, "size": sizes[i]}
				}
				printJSON(cmd, map[string]interface{}{
					"files": out,
					"count": len(files),
				})
				return nil
			}

			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching files.")
				return nil
			}
			for i, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "%-60s %10s\n", f, humanize.Bytes(uint64(sizes[i])))
			}
			return nil
		},
	}

	cmd.Flags().String("ext", "nii", "Extension to match, without the leading dot (nii, nii.gz, log, txt)")

	return cmd
}
