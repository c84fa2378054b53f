package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/evidence"
)

func evidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Normalize evidence maps and extract bounding-box regions",
	}
	cmd.AddCommand(evidenceExtractCmd(), evidenceStubCmd())
	return cmd
}

type evidenceMapFile struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Values [][]float64 `json:"values"`
}

func evidenceExtractCmd() *cobra.Command {
	var (
		mapFile   string
		threshold float64
		out       string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Normalize a raw evidence map and extract regions above a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw evidenceMapFile
			if err := readJSON(mapFile, &raw); err != nil {
				return err
			}
			m, err := evidence.NewMap(raw.Width, raw.Height, raw.Values)
			if err != nil {
				return err
			}
			bundle, err := evidence.CreateBundle(m, threshold)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeJSON(out, bundle); err != nil {
					return err
				}
			}
			fmt.Printf("extracted %d region(s)\n", len(bundle.Regions))
			for _, r := range bundle.Regions {
				fmt.Printf("  %-16s area=%.4f bbox=(%.4f,%.4f)-(%.4f,%.4f)\n", r.RegionID, r.Area, r.XMin, r.YMin, r.XMax, r.YMax)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mapFile, "map-file", "", "path to a raw evidence map JSON file {width,height,values}")
	cmd.Flags().Float64Var(&threshold, "threshold", evidence.Threshold, "region extraction threshold")
	cmd.Flags().StringVar(&out, "out", "", "write the evidence.Bundle JSON to this path")
	cmd.MarkFlagRequired("map-file")
	return cmd
}

func evidenceStubCmd() *cobra.Command {
	var (
		width, height, seed int
		out                 string
	)
	cmd := &cobra.Command{
		Use:   "generate-stub",
		Short: "Generate a deterministic stubbed evidence map for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := evidence.GenerateStubbedMap(width, height, seed)
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			return writeJSON(out, m)
		},
	}
	cmd.Flags().IntVar(&width, "width", 8, "map width")
	cmd.Flags().IntVar(&height, "height", 8, "map height")
	cmd.Flags().IntVar(&seed, "seed", 0, "deterministic seed")
	cmd.Flags().StringVar(&out, "out", "", "write the generated evidence.Map JSON to this path")
	return cmd
}
