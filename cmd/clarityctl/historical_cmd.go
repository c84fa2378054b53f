package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/historical"
)

func historicalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "historical",
		Short: "Record and query the historical run ledger",
	}
	cmd.AddCommand(historicalRecordCmd(), historicalTrendCmd(), historicalRunsCmd())
	return cmd
}

func openHistoricalIndex() (*historical.Index, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return historical.Open(cfg.ArtifactRoot)
}

func historicalRecordCmd() *cobra.Command {
	var (
		caseID            string
		sweepManifestHash string
		caseHash          string
		recordedAt        string
		esi, drift        float64
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append one run to the historical ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openHistoricalIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			id, err := idx.RecordRun(context.Background(), historical.Run{
				CaseID:            caseID,
				SweepManifestHash: sweepManifestHash,
				CaseHash:          caseHash,
				RecordedAt:        recordedAt,
				ESI:               esi,
				Drift:             drift,
			})
			if err != nil {
				return err
			}
			fmt.Println(green(fmt.Sprintf("recorded run %d for case %s", id, caseID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case-id", "", "case identifier")
	cmd.Flags().StringVar(&sweepManifestHash, "sweep-manifest-hash", "", "manifest_hash of the sweep this run summarizes")
	cmd.Flags().StringVar(&caseHash, "case-hash", "", "cache.ComputeCaseHash of the case directory")
	cmd.Flags().StringVar(&recordedAt, "recorded-at", "", "timestamp taken from the sweep manifest or report metadata, not the wall clock")
	cmd.Flags().Float64Var(&esi, "esi", 0, "baseline ESI for this run")
	cmd.Flags().Float64Var(&drift, "drift", 0, "baseline Drift for this run")
	cmd.MarkFlagRequired("case-id")
	cmd.MarkFlagRequired("recorded-at")
	return cmd
}

func historicalTrendCmd() *cobra.Command {
	var caseID string
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Summarize ESI/Drift movement across a case's recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openHistoricalIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			trend, err := idx.CaseTrend(context.Background(), caseID)
			if err != nil {
				return err
			}
			if trend.RunsAnalyzed == 0 {
				fmt.Println(yellow("no history for case " + caseID))
				return nil
			}
			fmt.Printf("case=%s runs=%d mean_esi=%.8f (%s) mean_drift=%.8f (%s)\n",
				trend.CaseID, trend.RunsAnalyzed, trend.MeanESI, trend.ESIDirection, trend.MeanDrift, trend.DriftDirection)
			stddev, err := idx.StdDevESI(context.Background(), caseID)
			if err != nil {
				return err
			}
			fmt.Printf("stddev_esi=%.8f\n", stddev)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case-id", "", "case identifier")
	cmd.MarkFlagRequired("case-id")
	return cmd
}

func historicalRunsCmd() *cobra.Command {
	var caseID, caseHash string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded for a case ID or case hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openHistoricalIndex()
			if err != nil {
				return err
			}
			defer idx.Close()
			var runs []historical.Run
			if caseHash != "" {
				runs, err = idx.RunsByCaseHash(context.Background(), caseHash)
			} else {
				runs, err = idx.RunsForCase(context.Background(), caseID)
			}
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%d\t%s\t%s\tesi=%.8f\tdrift=%.8f\n", r.ID, r.CaseID, r.RecordedAt, r.ESI, r.Drift)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case-id", "", "case identifier")
	cmd.Flags().StringVar(&caseHash, "case-hash", "", "case hash (overrides --case-id when set)")
	return cmd
}
