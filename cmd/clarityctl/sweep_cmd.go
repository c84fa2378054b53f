package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/runner"
	"github.com/m-cahill/clarity/internal/sweep"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run and inspect perturbation sweeps",
	}
	cmd.AddCommand(sweepRunCmd())
	return cmd
}

func sweepRunCmd() *cobra.Command {
	var (
		baseSpec   string
		axisFlags  []string
		seedsFlag  string
		adapter    string
		runnerExec string
		timeout    time.Duration
		output     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a Cartesian sweep over one or more axes",
		RunE: func(cmd *cobra.Command, args []string) error {
			axes, err := parseAxisFlags(axisFlags)
			if err != nil {
				return err
			}
			seeds, err := parseIntList(seedsFlag)
			if err != nil {
				return fmt.Errorf("parsing --seeds: %w", err)
			}
			r, err := runner.New(runnerExec, timeout)
			if err != nil {
				return err
			}
			orch, err := sweep.New(r, output)
			if err != nil {
				return err
			}
			cfg := sweep.Config{
				BaseSpecPath: baseSpec,
				Axes:         axes,
				Seeds:        seeds,
				Adapter:      adapter,
			}
			fmt.Printf("running %d combinations into %s\n", cfg.TotalRuns(), output)
			result, err := orch.Execute(context.Background(), cfg)
			if err != nil {
				return err
			}
			fmt.Println(green(fmt.Sprintf("sweep complete: %d runs, manifest at %s", len(result.Runs), result.SweepManifestPath)))
			return nil
		},
	}
	cmd.Flags().StringVar(&baseSpec, "base-spec", "", "path to the base case spec JSON")
	cmd.Flags().StringArrayVar(&axisFlags, "axis", nil, "axis definition name=v1,v2,... (repeatable)")
	cmd.Flags().StringVar(&seedsFlag, "seeds", "", "comma-separated seed list, e.g. 1,2,3")
	cmd.Flags().StringVar(&adapter, "adapter", "", "adapter identifier passed through to the runner")
	cmd.Flags().StringVar(&runnerExec, "runner", "", "R2L runner command, shell-quoted")
	cmd.Flags().DurationVar(&timeout, "timeout", 300*time.Second, "per-run wall-clock timeout")
	cmd.Flags().StringVar(&output, "output", "", "fresh output root directory for this sweep")
	cmd.MarkFlagRequired("base-spec")
	cmd.MarkFlagRequired("axis")
	cmd.MarkFlagRequired("seeds")
	cmd.MarkFlagRequired("adapter")
	cmd.MarkFlagRequired("runner")
	cmd.MarkFlagRequired("output")
	return cmd
}

// parseAxisFlags parses repeated --axis name=v1,v2,... flags into
// sweep.Axis values. Values that parse as float64 are kept numeric;
// everything else stays a string, matching the base spec's own mix of
// axis value types.
func parseAxisFlags(flags []string) ([]sweep.Axis, error) {
	axes := make([]sweep.Axis, 0, len(flags))
	for _, f := range flags {
		name, rest, ok := strings.Cut(f, "=")
		if !ok || name == "" || rest == "" {
			return nil, fmt.Errorf("invalid --axis %q, expected name=v1,v2,...", f)
		}
		rawValues := strings.Split(rest, ",")
		values := make([]any, 0, len(rawValues))
		for _, rv := range rawValues {
			values = append(values, coerceAxisValue(rv))
		}
		axes = append(axes, sweep.Axis{Name: name, Values: values})
	}
	return axes, nil
}

func coerceAxisValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values given")
	}
	return out, nil
}
