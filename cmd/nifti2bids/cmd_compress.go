package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/nifti2bids/internal/fsutil"
	"github.com/nvandessel/nifti2bids/internal/nifti"
	"github.com/spf13/cobra"
)

// fileSizes stats each path.
func fileSizes(paths []string) ([]int64, error) {
	sizes := make([]int64, len(paths))
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		sizes[i] = info.Size()
	}
	return sizes, nil
}

// expandInputs replaces directory arguments with the files in them that
// have extension ext.
func expandInputs(args []string, ext string) ([]string, error) {
	var out []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, a)
			continue
		}
		files, err := fsutil.ListFiles(a, ext)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

func newCompressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compress <file-or-dir>...",
		Short: "Gzip .nii images to .nii.gz",
		Long: `Rewrite uncompressed NIfTI images as .nii.gz next to the originals.

Directory arguments are expanded to the .nii files directly inside them.

Examples:
  nifti2bids compress sub-01/func/
  nifti2bids compress run1.nii run2.nii --remove-src`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			removeSrc, _ := cmd.Flags().GetBool("remove-src")

			inputs, err := expandInputs(args, "nii")
			if err != nil {
				return err
			}
			for _, src := range inputs {
				if err := env.checkWrite(src + ".gz"); err != nil {
					return err
				}
			}
			before, err := fileSizes(inputs)
			if err != nil {
				return err
			}

			results := make([]map[string]interface{}, 0, len(inputs))
			for i, src := range inputs {
				dst, err := nifti.Compress(src, removeSrc)
				if err != nil {
					return err
				}
				after, err := fileSizes([]string{dst})
				if err != nil {
					return err
				}
				env.logger.Debug("compressed image", "src", src, "dst", dst, "bytes", after[0])
				env.prov.Log("compress", map[string]any{"src": src, "dst": dst, "removed_src": removeSrc})

				results = append(results, map[string]interface{}{
					"src":         src,
					"dst":         dst,
					"src_bytes":   before[i],
					"dst_bytes":   after[0],
					"removed_src": removeSrc,
				})
				if !env.jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s -> %s)\n",
						src, dst, humanize.Bytes(uint64(before[i])), humanize.Bytes(uint64(after[0])))
				}
			}

			if env.jsonOut {
				printJSON(cmd, map[string]interface{}{
					"compressed": results,
					"count":      len(results),
				})
			} else if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No .nii files to compress.")
			}
			return nil
		},
	}

	cmd.Flags().Bool("remove-src", false, "Delete each .nii after writing its .nii.gz")

	return cmd
}
