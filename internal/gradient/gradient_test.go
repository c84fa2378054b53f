package gradient

import (
	"math"
	"testing"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/surface"
)

func axisSurfaceFromESI(axis string, esi []float64) surface.AxisSurface {
	points := make([]surface.Point, 0, len(esi))
	for i, v := range esi {
		points = append(points, surface.Point{Axis: axis, Value: string(rune('a' + i)), ESI: v, Drift: 0.0})
	}
	return surface.AxisSurface{Axis: axis, Points: points}
}

func TestComputeScenarioCFourPoints(t *testing.T) {
	s := &surface.Surface{
		Axes: []surface.AxisSurface{axisSurfaceFromESI("noise", []float64{0.0, 0.25, 0.75, 1.0})},
	}
	g, err := Compute(s)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if len(g.Axes) != 1 {
		t.Fatalf("expected 1 axis, got %d", len(g.Axes))
	}
	axis := g.Axes[0]
	want := []float64{0.25, 0.375, 0.375, 0.25}
	if len(axis.Gradients) != len(want) {
		t.Fatalf("expected %d gradients, got %d", len(want), len(axis.Gradients))
	}
	for i, g := range axis.Gradients {
		if math.Abs(g.DESI-want[i]) > 1e-8 {
			t.Errorf("gradient[%d] = %v, want %v", i, g.DESI, want[i])
		}
	}
	if math.Abs(axis.MeanAbsESIGradient-0.3125) > 1e-8 {
		t.Errorf("mean abs esi gradient = %v, want 0.3125", axis.MeanAbsESIGradient)
	}
	if math.Abs(axis.MaxAbsESIGradient-0.375) > 1e-8 {
		t.Errorf("max abs esi gradient = %v, want 0.375", axis.MaxAbsESIGradient)
	}
}

func TestComputeSinglePointIsZero(t *testing.T) {
	s := &surface.Surface{Axes: []surface.AxisSurface{axisSurfaceFromESI("noise", []float64{0.5})}}
	g, err := Compute(s)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if g.Axes[0].Gradients[0].DESI != 0.0 {
		t.Errorf("expected zero gradient for single point, got %v", g.Axes[0].Gradients[0].DESI)
	}
}

func TestComputeTwoPointsBothGetSameForwardDiff(t *testing.T) {
	s := &surface.Surface{Axes: []surface.AxisSurface{axisSurfaceFromESI("noise", []float64{0.2, 0.6})}}
	g, err := Compute(s)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	want := 0.4
	for i, pt := range g.Axes[0].Gradients {
		if math.Abs(pt.DESI-want) > 1e-8 {
			t.Errorf("gradient[%d] = %v, want %v", i, pt.DESI, want)
		}
	}
}

func TestComputeEmptyAxesFails(t *testing.T) {
	s := &surface.Surface{}
	if _, err := Compute(s); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestComputeRejectsNonFinite(t *testing.T) {
	s := &surface.Surface{
		Axes: []surface.AxisSurface{
			{Axis: "noise", Points: []surface.Point{{Axis: "noise", Value: "a", ESI: math.NaN(), Drift: 0.0}}},
		},
	}
	if _, err := Compute(s); !clarityerr.Is(err, clarityerr.CodeNonFinite) {
		t.Errorf("expected non_finite, got %v", err)
	}
}

func TestGlobalStatisticsFlatOverAllAxes(t *testing.T) {
	s := &surface.Surface{
		Axes: []surface.AxisSurface{
			axisSurfaceFromESI("a", []float64{0.0, 1.0}),
			axisSurfaceFromESI("b", []float64{0.0, 0.0}),
		},
	}
	g, err := Compute(s)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	// axis a: gradients [1.0, 1.0]; axis b: gradients [0.0, 0.0]
	wantMean := (1.0 + 1.0 + 0.0 + 0.0) / 4.0
	if math.Abs(g.GlobalMeanAbsESIGradient-wantMean) > 1e-8 {
		t.Errorf("global mean = %v, want %v", g.GlobalMeanAbsESIGradient, wantMean)
	}
	if g.GlobalMaxAbsESIGradient != 1.0 {
		t.Errorf("global max = %v, want 1.0", g.GlobalMaxAbsESIGradient)
	}
}
