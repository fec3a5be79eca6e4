package main

import (
	"fmt"
	"strings"

	"github.com/nvandessel/nifti2bids/internal/bids"
	"github.com/nvandessel/nifti2bids/internal/nifti"
	"github.com/nvandessel/nifti2bids/internal/slicetiming"
	"github.com/spf13/cobra"
)

func newSliceTimingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slice-timing <image>",
		Short: "Compute slice acquisition times from a header",
		Long: `Compute the SliceTiming list for a functional image.

The header's slice_code is used when set; otherwise --method and
--ascending (or the slice_timing section of the config) describe the
acquisition. With --sidecar the result is written as the image's JSON
sidecar together with RepetitionTime.

Examples:
  nifti2bids slice-timing bold.nii.gz
  nifti2bids slice-timing bold.nii.gz --method interleaved --descending
  nifti2bids slice-timing sub-01_task-rest_bold.nii.gz --task rest --sidecar sub-01_task-rest_bold.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			h, err := nifti.ReadHeader(args[0])
			if err != nil {
				return err
			}

			methodName := env.cfg.SliceTiming.Method
			if cmd.Flags().Changed("method") {
				methodName, _ = cmd.Flags().GetString("method")
			}
			method, err := slicetiming.ParseMethod(methodName)
			if err != nil {
				return err
			}
			ascending := env.cfg.SliceTiming.Ascending
			if descending, _ := cmd.Flags().GetBool("descending"); descending {
				ascending = false
			}
			dim, _ := cmd.Flags().GetString("dim")
			task, _ := cmd.Flags().GetString("task")
			sidecarPath, _ := cmd.Flags().GetString("sidecar")
			if err := env.checkWrite(sidecarPath); err != nil {
				return err
			}

			sc, err := bids.NewBoldSidecar(h, bids.SidecarOptions{
				TaskName:  task,
				Method:    method,
				Ascending: ascending,
				Dim:       dim,
			}, env.logger)
			if err != nil {
				return err
			}
			if sc.SliceTiming == nil {
				return fmt.Errorf("could not determine the slice axis of %s; pass --dim", args[0])
			}

			if sidecarPath != "" {
				if err := bids.SaveSidecar(sc, sidecarPath, env.prov); err != nil {
					return err
				}
			}

			if env.jsonOut {
				printJSON(cmd, map[string]interface{}{
					"repetition_time":          sc.RepetitionTime,
					"slice_timing":             sc.SliceTiming,
					"slice_encoding_direction": sc.SliceEncodingDirection,
					"sidecar":                  sidecarPath,
				})
				return nil
			}

			times := make([]string, len(sc.SliceTiming))
			for i, t := range sc.SliceTiming {
				times[i] = fmt.Sprintf("%.4g", t)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "RepetitionTime: %v\n", sc.RepetitionTime)
			fmt.Fprintf(out, "SliceEncodingDirection: %s\n", sc.SliceEncodingDirection)
			fmt.Fprintf(out, "SliceTiming: [%s]\n", strings.Join(times, ", "))
			if sidecarPath != "" {
				fmt.Fprintf(out, "Wrote %s\n", sidecarPath)
			}
			return nil
		},
	}

	cmd.Flags().String("method", "sequential", "Acquisition order when the header has no slice_code: sequential or interleaved")
	cmd.Flags().Bool("descending", false, "Slices were acquired from the last to the first")
	cmd.Flags().String("dim", "", "Slice axis (x, y or z); detected from the header when empty")
	cmd.Flags().String("task", "", "TaskName to record in the sidecar")
	cmd.Flags().String("sidecar", "", "Write the BOLD sidecar JSON to this path")

	return cmd
}
