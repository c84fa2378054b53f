package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/metrics"
	"github.com/m-cahill/clarity/internal/surface"
)

func surfaceCmd() *cobra.Command {
	var (
		metricsFile string
		out         string
	)
	cmd := &cobra.Command{
		Use:   "surface",
		Short: "Aggregate a metrics result into a per-axis robustness surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result metrics.Result
			if err := readJSON(metricsFile, &result); err != nil {
				return err
			}
			s, err := surface.Compute(&result)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeJSON(out, s); err != nil {
					return err
				}
			}
			fmt.Printf("global mean esi=%.8f drift=%.8f\n", s.GlobalMeanESI, s.GlobalMeanDrift)
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "path to a metrics.Result JSON file")
	cmd.Flags().StringVar(&out, "out", "", "write the surface.Surface JSON to this path")
	cmd.MarkFlagRequired("metrics-file")
	return cmd
}
