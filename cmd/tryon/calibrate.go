package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/tryon/internal/jewelry"
	"github.com/ayusman/tryon/internal/overlay"
	"github.com/ayusman/tryon/internal/store"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate [category]",
	Short: "Show or tune the placement constants of a category",
	Long: `Without arguments, print the placement constants of every category with
stored overrides applied. With a category, store a new base scale and pixel
offset for it. For bracelets the scale is the width relative to the knuckle span.`,
	Example: `  tryon calibrate
  tryon calibrate ring --scale 0.12 --offset-y 30`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().Float64("scale", 0, "Base scale (required with a category)")
	calibrateCmd.Flags().Float64("offset-x", 0, "Horizontal offset in pixels")
	calibrateCmd.Flags().Float64("offset-y", 0, "Vertical offset in pixels")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		return printCalibrations(st)
	}

	scale, _ := cmd.Flags().GetFloat64("scale")
	offsetX, _ := cmd.Flags().GetFloat64("offset-x")
	offsetY, _ := cmd.Flags().GetFloat64("offset-y")

	c := &store.Calibration{
		Category: jewelry.Category(args[0]),
		Scale:    scale,
		OffsetX:  offsetX,
		OffsetY:  offsetY,
	}
	if err := st.Calibrations().Upsert(c); err != nil {
		return fmt.Errorf("failed to store calibration: %w", err)
	}

	fmt.Printf("%s: scale %.3f offset (%.0f, %.0f)\n", c.Category, c.Scale, c.OffsetX, c.OffsetY)
	return nil
}

func printCalibrations(st *store.Store) error {
	calibrations, err := st.Calibrations().List()
	if err != nil {
		return err
	}

	table := overlay.DefaultTable()
	for _, c := range calibrations {
		tuned, err := table.Calibrate(c.Category, c.Scale, r2.Vec{X: c.OffsetX, Y: c.OffsetY})
		if err != nil {
			return err
		}
		table = tuned
	}

	for _, category := range jewelry.Categories() {
		spec, _ := table.Spec(category)
		scale := spec.BaseScale
		if spec.Dynamic != nil {
			scale = spec.Dynamic.WidthRatio
		}
		fmt.Printf("%-9s scale %.3f offset (%.0f, %.0f)\n", category, scale, spec.BaseOffset.X, spec.BaseOffset.Y)
	}
	return nil
}
