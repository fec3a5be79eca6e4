package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/nifti2bids/internal/nifti"
	"github.com/nvandessel/nifti2bids/internal/simulate"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <out.nii[.gz]>",
		Short: "Write a synthetic NIfTI image",
		Long: `Write a random-valued NIfTI image, useful for trying out the other
commands without real data. Four-dimensional images get a repetition time,
a slice axis and slice_end so slice timing can be derived from them.

Examples:
  nifti2bids simulate bold.nii.gz --shape 64,64,36,10 --tr 2
  nifti2bids simulate t1.nii --shape 176,256,256 --voxel-size 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.checkWrite(args[0]); err != nil {
				return err
			}

			shape, _ := cmd.Flags().GetIntSlice("shape")
			voxelSize, _ := cmd.Flags().GetFloat64("voxel-size")
			tr, _ := cmd.Flags().GetFloat64("tr")
			sliceDim, _ := cmd.Flags().GetString("slice-dim")
			sliceCode, _ := cmd.Flags().GetUint8("slice-code")
			seed, _ := cmd.Flags().GetUint64("seed")

			affine := simulate.CreateAffine(voxelSize, [4]float64{0, 0, 0, 1})
			img, err := simulate.Image(shape, &affine, rand.New(rand.NewPCG(seed, seed)))
			if err != nil {
				return err
			}
			if img, err = simulate.AddHeader(img); err != nil {
				return err
			}
			if len(shape) >= 4 {
				axis, err := nifti.ParseSliceDim(sliceDim)
				if err != nil {
					return err
				}
				if err := simulate.WithTiming(img, tr, axis); err != nil {
					return err
				}
				img.Header.SliceCode = sliceCode
			}
			img.Header.SetDescription("nifti2bids simulate")

			if err := nifti.Save(img, args[0]); err != nil {
				return err
			}
			env.logger.Debug("simulated image", "path", args[0], "shape", shape)
			env.prov.Log("simulate", map[string]any{"dst": args[0], "shape": shape})

			if env.jsonOut {
				printJSON(cmd, map[string]interface{}{
					"path":  args[0],
					"shape": img.Shape(),
					"zooms": img.Header.Zooms(),
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s %v\n", args[0], img.Shape())
			}
			return nil
		},
	}

	cmd.Flags().IntSlice("shape", []int{8, 8, 6, 4}, "Image shape, 3 to 7 dimensions")
	cmd.Flags().Float64("voxel-size", 2, "Isotropic voxel size in mm")
	cmd.Flags().Float64("tr", 2, "Repetition time in seconds (4D images)")
	cmd.Flags().String("slice-dim", "z", "Slice axis for 4D images: x, y or z")
	cmd.Flags().Uint8("slice-code", 0, "NIfTI slice_code to store (0 = unknown)")
	cmd.Flags().Uint64("seed", 1, "Random seed")

	return cmd
}
