package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/counterfactual"
)

func counterfactualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counterfactual",
		Short: "Probe masked regions against a baseline case",
	}
	cmd.AddCommand(counterfactualProbeCmd(), counterfactualListCmd())
	return cmd
}

func counterfactualProbeCmd() *cobra.Command {
	var (
		fixturesDir string
		baselineID  string
		gridSize    int
		axis        string
		value       string
		stub        bool
		out         string
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run a grid of masked probes against one baseline case",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stub {
				return fmt.Errorf("a real-model counterfactual runner is not wired into clarityctl yet; pass --stub to use the deterministic StubbedRunner")
			}
			r := counterfactual.NewStubbedRunner()
			orch := counterfactual.NewOrchestrator(r, fixturesDir)
			result, err := orch.Run(baselineID, gridSize, axis, value)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			}
			fmt.Printf("%d probes, mean_abs_delta_esi=%.8f max_abs_delta_esi=%.8f (runner invoked %d times)\n",
				len(result.ProbeSurface.Results), result.ProbeSurface.MeanAbsDeltaESI, result.ProbeSurface.MaxAbsDeltaESI, r.CallCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturesDir, "fixtures-dir", "", "directory containing registry.json and baseline fixtures")
	cmd.Flags().StringVar(&baselineID, "baseline-id", "", "baseline case ID from the fixture registry")
	cmd.Flags().IntVar(&gridSize, "grid-size", 3, "probe grid dimension (grid-size x grid-size regions)")
	cmd.Flags().StringVar(&axis, "axis", "", "axis under probe")
	cmd.Flags().StringVar(&value, "value", "", "axis value under probe")
	cmd.Flags().BoolVar(&stub, "stub", false, "use the deterministic StubbedRunner instead of a real model")
	cmd.Flags().StringVar(&out, "out", "", "write the OrchestratorResult JSON to this path")
	cmd.MarkFlagRequired("fixtures-dir")
	cmd.MarkFlagRequired("baseline-id")
	return cmd
}

func counterfactualListCmd() *cobra.Command {
	var fixturesDir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List baseline IDs available in a fixtures directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := counterfactual.NewOrchestrator(counterfactual.NewStubbedRunner(), fixturesDir)
			for _, id := range orch.ListAvailableBaselines() {
				fmt.Println(id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturesDir, "fixtures-dir", "", "directory containing registry.json")
	cmd.MarkFlagRequired("fixtures-dir")
	return cmd
}
