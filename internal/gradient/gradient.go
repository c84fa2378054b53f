// Package gradient estimates local slope (sensitivity) of ESI and
// Drift along each perturbation axis via finite differences over a
// robustness surface (spec §4.8).
package gradient

import (
	"math"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
	"github.com/m-cahill/clarity/internal/surface"
)

// Point is the local gradient of ESI and Drift at one axis value.
type Point struct {
	Axis   string
	Value  string
	DESI   float64
	DDrift float64
}

// AxisGradient summarizes gradients for a single axis.
type AxisGradient struct {
	Axis                 string
	Gradients            []Point
	MeanAbsESIGradient   float64
	MaxAbsESIGradient    float64
	MeanAbsDriftGradient float64
	MaxAbsDriftGradient  float64
}

// Surface is the complete gradient surface across every axis.
type Surface struct {
	Axes                       []AxisGradient
	GlobalMeanAbsESIGradient   float64
	GlobalMaxAbsESIGradient    float64
	GlobalMeanAbsDriftGradient float64
	GlobalMaxAbsDriftGradient  float64
}

// Compute derives a gradient Surface from a robustness surface.Surface.
// Gradients use central differences for interior points (n>=3),
// forward/backward differences for endpoints (n==2 or n>=3's edges),
// and zero for a single-value axis.
func Compute(s *surface.Surface) (*Surface, error) {
	if len(s.Axes) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "robustness surface has no axes")
	}

	axisGradients := make([]AxisGradient, 0, len(s.Axes))
	var allPoints []Point

	for _, axisSurface := range s.Axes {
		if err := validateAxisSurface(axisSurface); err != nil {
			return nil, err
		}
		points := computeAxisGradients(axisSurface)
		allPoints = append(allPoints, points...)
		axisGradients = append(axisGradients, computeAxisStatistics(axisSurface.Axis, points))
	}

	meanESI, maxESI, meanDrift, maxDrift := globalStatistics(allPoints)

	return &Surface{
		Axes:                       axisGradients,
		GlobalMeanAbsESIGradient:   meanESI,
		GlobalMaxAbsESIGradient:    maxESI,
		GlobalMeanAbsDriftGradient: meanDrift,
		GlobalMaxAbsDriftGradient:  maxDrift,
	}, nil
}

func validateAxisSurface(axisSurface surface.AxisSurface) error {
	for _, p := range axisSurface.Points {
		if math.IsNaN(p.ESI) || math.IsInf(p.ESI, 0) {
			return clarityerr.New(clarityerr.CodeNonFinite,
				"invalid ESI value for axis %q, value %q: %v", axisSurface.Axis, p.Value, p.ESI).
				WithAxis(axisSurface.Axis).WithValue(p.Value)
		}
		if math.IsNaN(p.Drift) || math.IsInf(p.Drift, 0) {
			return clarityerr.New(clarityerr.CodeNonFinite,
				"invalid drift value for axis %q, value %q: %v", axisSurface.Axis, p.Value, p.Drift).
				WithAxis(axisSurface.Axis).WithValue(p.Value)
		}
	}
	return nil
}

func computeAxisGradients(axisSurface surface.AxisSurface) []Point {
	points := axisSurface.Points
	n := len(points)
	gradients := make([]Point, 0, n)

	for i, p := range points {
		var dESI, dDrift float64
		switch {
		case n == 1:
			dESI, dDrift = 0.0, 0.0
		case n == 2:
			dESI = points[1].ESI - points[0].ESI
			dDrift = points[1].Drift - points[0].Drift
		case i == 0:
			dESI = points[1].ESI - points[0].ESI
			dDrift = points[1].Drift - points[0].Drift
		case i == n-1:
			dESI = points[n-1].ESI - points[n-2].ESI
			dDrift = points[n-1].Drift - points[n-2].Drift
		default:
			dESI = (points[i+1].ESI - points[i-1].ESI) / 2
			dDrift = (points[i+1].Drift - points[i-1].Drift) / 2
		}
		gradients = append(gradients, Point{
			Axis:   axisSurface.Axis,
			Value:  p.Value,
			DESI:   codec.Round8(dESI),
			DDrift: codec.Round8(dDrift),
		})
	}
	return gradients
}

func computeAxisStatistics(axisName string, points []Point) AxisGradient {
	meanESI, maxESI, meanDrift, maxDrift := globalStatistics(points)
	return AxisGradient{
		Axis:                 axisName,
		Gradients:            points,
		MeanAbsESIGradient:   meanESI,
		MaxAbsESIGradient:    maxESI,
		MeanAbsDriftGradient: meanDrift,
		MaxAbsDriftGradient:  maxDrift,
	}
}

func globalStatistics(points []Point) (meanAbsESI, maxAbsESI, meanAbsDrift, maxAbsDrift float64) {
	n := float64(len(points))
	var sumESI, sumDrift float64
	for i, p := range points {
		aESI := math.Abs(p.DESI)
		aDrift := math.Abs(p.DDrift)
		sumESI += aESI
		sumDrift += aDrift
		if i == 0 || aESI > maxAbsESI {
			maxAbsESI = aESI
		}
		if i == 0 || aDrift > maxAbsDrift {
			maxAbsDrift = aDrift
		}
	}
	meanAbsESI = codec.Round8(sumESI / n)
	meanAbsDrift = codec.Round8(sumDrift / n)
	maxAbsESI = codec.Round8(maxAbsESI)
	maxAbsDrift = codec.Round8(maxAbsDrift)
	return
}
