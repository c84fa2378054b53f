package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/gradient"
	"github.com/m-cahill/clarity/internal/surface"
)

func gradientCmd() *cobra.Command {
	var (
		surfaceFile string
		out         string
	)
	cmd := &cobra.Command{
		Use:   "gradient",
		Short: "Compute central-difference gradients of a robustness surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s surface.Surface
			if err := readJSON(surfaceFile, &s); err != nil {
				return err
			}
			g, err := gradient.Compute(&s)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeJSON(out, g); err != nil {
					return err
				}
			}
			for _, axisGrad := range g.Axes {
				fmt.Printf("gradient axis=%-16s mean_abs_esi=%.8f max_abs_esi=%.8f\n",
					axisGrad.Axis, axisGrad.MeanAbsESIGradient, axisGrad.MaxAbsESIGradient)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&surfaceFile, "surface-file", "", "path to a surface.Surface JSON file")
	cmd.Flags().StringVar(&out, "out", "", "write the gradient.Surface JSON to this path")
	cmd.MarkFlagRequired("surface-file")
	return cmd
}
