package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/metrics"
)

func metricsCmd() *cobra.Command {
	var (
		sweepDir string
		rich     bool
		out      string
	)
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute ESI/drift (and rich CSI/EDM) metrics from a sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := metrics.Compute(sweepDir, rich)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			}
			for _, esi := range result.ESI {
				fmt.Printf("esi  axis=%-16s overall=%.8f\n", esi.Axis, esi.OverallScore)
			}
			for _, drift := range result.Drift {
				fmt.Printf("drift axis=%-16s overall=%.8f\n", drift.Axis, drift.OverallScore)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sweepDir, "sweep-dir", "", "sweep output root containing sweep_manifest.json")
	cmd.Flags().BoolVar(&rich, "rich", false, "compute rich-mode CSI/EDM metrics as well")
	cmd.Flags().StringVar(&out, "out", "", "write the metrics.Result JSON to this path")
	cmd.MarkFlagRequired("sweep-dir")
	return cmd
}
