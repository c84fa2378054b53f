package historical

import (
	"context"
	"math"
	"testing"
)

func TestCaseTrendComputesDeltaAndDirection(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	ctx := context.Background()
	idx.RecordRun(ctx, Run{CaseID: "c1", CaseHash: "h1", SweepManifestHash: "s1", RecordedAt: "t1", ESI: 0.9, Drift: 0.05})
	idx.RecordRun(ctx, Run{CaseID: "c1", CaseHash: "h2", SweepManifestHash: "s2", RecordedAt: "t2", ESI: 0.8, Drift: 0.09})

	trend, err := idx.CaseTrend(ctx, "c1")
	if err != nil {
		t.Fatalf("CaseTrend() error = %v", err)
	}
	if trend.RunsAnalyzed != 2 {
		t.Fatalf("expected 2 runs analyzed, got %d", trend.RunsAnalyzed)
	}
	if trend.ESIDirection != "down" {
		t.Errorf("expected ESI direction down, got %s", trend.ESIDirection)
	}
	if trend.DriftDirection != "up" {
		t.Errorf("expected drift direction up, got %s", trend.DriftDirection)
	}
}

func TestCaseTrendEmptyForUnknownCase(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	trend, err := idx.CaseTrend(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if trend.RunsAnalyzed != 0 {
		t.Errorf("expected zero runs analyzed, got %d", trend.RunsAnalyzed)
	}
}

func TestStdDevESIComputesPopulationStdDev(t *testing.T) {
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	ctx := context.Background()
	idx.RecordRun(ctx, Run{CaseID: "c1", CaseHash: "h1", SweepManifestHash: "s1", RecordedAt: "t1", ESI: 0.8, Drift: 0.0})
	idx.RecordRun(ctx, Run{CaseID: "c1", CaseHash: "h2", SweepManifestHash: "s2", RecordedAt: "t2", ESI: 1.0, Drift: 0.0})

	stddev, err := idx.StdDevESI(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(stddev-0.1) > 1e-9 {
		t.Errorf("expected stddev 0.1, got %v", stddev)
	}
}
