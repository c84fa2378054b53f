package historical

import (
	"context"
	"math"
)

// Trend summarizes how a case's baseline ESI and Drift have moved
// across its recorded runs, oldest to newest.
type Trend struct {
	CaseID        string
	RunsAnalyzed  int
	MeanESI       float64
	MeanDrift     float64
	ESIDelta      float64
	DriftDelta    float64
	ESIDirection  string
	DriftDirection string
}

func direction(delta float64) string {
	switch {
	case delta > 1e-8:
		return "up"
	case delta < -1e-8:
		return "down"
	default:
		return "flat"
	}
}

// CaseTrend computes a Trend summary over every run recorded for
// caseID. It returns an empty Trend (RunsAnalyzed == 0) if the case
// has no history, which callers should treat as "nothing to compare".
func (idx *Index) CaseTrend(ctx context.Context, caseID string) (Trend, error) {
	runs, err := idx.RunsForCase(ctx, caseID)
	if err != nil {
		return Trend{}, err
	}
	if len(runs) == 0 {
		return Trend{CaseID: caseID}, nil
	}

	var sumESI, sumDrift float64
	for _, r := range runs {
		sumESI += r.ESI
		sumDrift += r.Drift
	}
	n := float64(len(runs))

	first, last := runs[0], runs[len(runs)-1]
	esiDelta := last.ESI - first.ESI
	driftDelta := last.Drift - first.Drift

	return Trend{
		CaseID:         caseID,
		RunsAnalyzed:   len(runs),
		MeanESI:        sumESI / n,
		MeanDrift:      sumDrift / n,
		ESIDelta:       esiDelta,
		DriftDelta:     driftDelta,
		ESIDirection:   direction(esiDelta),
		DriftDirection: direction(driftDelta),
	}, nil
}

// StdDevESI returns the population standard deviation of baseline ESI
// across caseID's recorded runs; the CLI's `historical trend` command
// prints it as stddev_esi.
func (idx *Index) StdDevESI(ctx context.Context, caseID string) (float64, error) {
	runs, err := idx.RunsForCase(ctx, caseID)
	if err != nil {
		return 0, err
	}
	if len(runs) == 0 {
		return 0, nil
	}

	var sum float64
	for _, r := range runs {
		sum += r.ESI
	}
	mean := sum / float64(len(runs))

	var sumSq float64
	for _, r := range runs {
		d := r.ESI - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(runs))), nil
}
