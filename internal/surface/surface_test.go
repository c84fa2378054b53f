package surface

import (
	"math"
	"testing"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/metrics"
)

func TestComputeJoinsAndAggregates(t *testing.T) {
	result := &metrics.Result{
		ESI: []metrics.ESIMetric{
			{Axis: "brightness", ValueScores: map[string]float64{"0p8": 1.0, "1p0": 1.0, "1p2": 0.0}, OverallScore: 0.66666667},
		},
		Drift: []metrics.DriftMetric{
			{Axis: "brightness", ValueScores: map[string]float64{"0p8": 0.0, "1p0": 0.0, "1p2": 0.5}, OverallScore: 0.16666667},
		},
	}
	s, err := Compute(result)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(s.Axes) != 1 {
		t.Fatalf("expected 1 axis, got %d", len(s.Axes))
	}
	axis := s.Axes[0]
	if len(axis.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(axis.Points))
	}
	wantMeanESI := (1.0 + 1.0 + 0.0) / 3.0
	if math.Abs(axis.MeanESI-wantMeanESI) > 1e-8 {
		t.Errorf("mean ESI = %v, want %v", axis.MeanESI, wantMeanESI)
	}
	if s.GlobalMeanESI != axis.MeanESI {
		t.Errorf("global mean ESI should equal single-axis mean: got %v want %v", s.GlobalMeanESI, axis.MeanESI)
	}
}

func TestComputeAxisMismatch(t *testing.T) {
	result := &metrics.Result{
		ESI:   []metrics.ESIMetric{{Axis: "a", ValueScores: map[string]float64{"x": 1.0}}},
		Drift: []metrics.DriftMetric{{Axis: "b", ValueScores: map[string]float64{"x": 0.0}}},
	}
	if _, err := Compute(result); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestComputeValueMismatch(t *testing.T) {
	result := &metrics.Result{
		ESI:   []metrics.ESIMetric{{Axis: "a", ValueScores: map[string]float64{"x": 1.0}}},
		Drift: []metrics.DriftMetric{{Axis: "a", ValueScores: map[string]float64{"y": 0.0}}},
	}
	if _, err := Compute(result); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestComputeRejectsNonFinite(t *testing.T) {
	result := &metrics.Result{
		ESI:   []metrics.ESIMetric{{Axis: "a", ValueScores: map[string]float64{"x": math.NaN()}}},
		Drift: []metrics.DriftMetric{{Axis: "a", ValueScores: map[string]float64{"x": 0.0}}},
	}
	if _, err := Compute(result); !clarityerr.Is(err, clarityerr.CodeNonFinite) {
		t.Errorf("expected non_finite, got %v", err)
	}
}

func TestComputeEmptyFails(t *testing.T) {
	result := &metrics.Result{}
	if _, err := Compute(result); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}
