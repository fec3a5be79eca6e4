package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/nifti2bids/internal/nifti"
	"github.com/spf13/cobra"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <image>",
		Short: "Summarize a NIfTI header",
		Long: `Print the geometry and timing fields of a NIfTI-1 header.

With --field, print a single header field by its nifti1.h name.

Examples:
  nifti2bids describe sub-01_task-rest_bold.nii.gz
  nifti2bids describe bold.nii --field pixdim --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			path := args[0]

			h, err := nifti.ReadHeader(path)
			if err != nil {
				return err
			}

			if field, _ := cmd.Flags().GetString("field"); field != "" {
				v, err := h.Get(field)
				if err != nil {
					return err
				}
				if env.jsonOut {
					printJSON(cmd, map[string]interface{}{"field": field, "value": v})
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", field, v)
				}
				return nil
			}

			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			summary := map[string]interface{}{
				"path":          path,
				"size":          info.Size(),
				"shape":         h.Shape(),
				"zooms":         h.Zooms(),
				"datatype":      nifti.DatatypeName(h.Datatype),
				"spatial_units": nifti.UnitName(h.SpatialUnits()),
				"time_units":    nifti.UnitName(h.TimeUnits()),
				"slice_code":    h.SliceCode,
				"slice_end":     h.SliceEnd,
				"description":   h.Description(),
				"affine":        h.Affine(),
				"t1w":           nifti.IsT1w(filepath.Base(path)),
			}
			if tr, err := nifti.RepetitionTime(h, env.logger); err == nil {
				summary["repetition_time"] = tr
			}
			if axis, err := nifti.DetectSliceDim(h); err == nil {
				summary["slice_dim"] = []string{"x", "y", "z"}[axis]
			} else {
				env.logger.Debug("slice axis not determined", "path", path, "error", err)
			}

			if env.jsonOut {
				printJSON(cmd, summary)
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
			fmt.Fprintf(out, "  shape:     %v\n", h.Shape())
			fmt.Fprintf(out, "  zooms:     %v %s\n", h.Zooms(), nifti.UnitName(h.SpatialUnits()))
			fmt.Fprintf(out, "  datatype:  %s\n", nifti.DatatypeName(h.Datatype))
			if tr, ok := summary["repetition_time"]; ok {
				fmt.Fprintf(out, "  TR:        %v s\n", tr)
			}
			if dim, ok := summary["slice_dim"]; ok {
				fmt.Fprintf(out, "  slice dim: %v (slice_end %d, slice_code %d)\n", dim, h.SliceEnd, h.SliceCode)
			}
			if d := h.Description(); d != "" {
				fmt.Fprintf(out, "  descrip:   %s\n", d)
			}
			a := h.Affine()
			fmt.Fprintln(out, "  affine:")
			for _, row := range a {
				fmt.Fprintf(out, "    %8.3f %8.3f %8.3f %8.3f\n", row[0], row[1], row[2], row[3])
			}
			return nil
		},
	}

	cmd.Flags().String("field", "", "Print only this header field (e.g. pixdim, slice_end, descrip)")

	return cmd
}
