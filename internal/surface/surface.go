// Package surface aggregates ESI and Drift metrics into robustness
// surfaces with per-axis and global population statistics (spec
// §4.7).
package surface

import (
	"math"
	"sort"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
	"github.com/m-cahill/clarity/internal/metrics"
)

// Point is a single axis-value point carrying both metrics.
type Point struct {
	Axis  string
	Value string
	ESI   float64
	Drift float64
}

// AxisSurface aggregates all points for one axis.
type AxisSurface struct {
	Axis          string
	Points        []Point
	MeanESI       float64
	MeanDrift     float64
	VarianceESI   float64
	VarianceDrift float64
}

// Surface is the complete robustness surface across every axis.
type Surface struct {
	Axes                 []AxisSurface
	GlobalMeanESI        float64
	GlobalMeanDrift      float64
	GlobalVarianceESI    float64
	GlobalVarianceDrift  float64
}

// Compute joins ESI and Drift by axis name and by encoded value,
// rejecting any mismatch or non-finite value, and produces the full
// Surface.
func Compute(result *metrics.Result) (*Surface, error) {
	if len(result.ESI) == 0 || len(result.Drift) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "metrics result has no axes (empty ESI or Drift)")
	}

	esiByAxis := make(map[string]metrics.ESIMetric, len(result.ESI))
	for _, m := range result.ESI {
		esiByAxis[m.Axis] = m
	}
	driftByAxis := make(map[string]metrics.DriftMetric, len(result.Drift))
	for _, m := range result.Drift {
		driftByAxis[m.Axis] = m
	}

	esiOnly, driftOnly := symmetricDifference(keysOfESI(esiByAxis), keysOfDrift(driftByAxis))
	if len(esiOnly) > 0 || len(driftOnly) > 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput,
			"axis mismatch between ESI and Drift: esi-only=%v drift-only=%v", esiOnly, driftOnly)
	}

	axisNames := make([]string, 0, len(esiByAxis))
	for name := range esiByAxis {
		axisNames = append(axisNames, name)
	}
	sort.Strings(axisNames)

	axisSurfaces := make([]AxisSurface, 0, len(axisNames))
	var allPoints []Point

	for _, axisName := range axisNames {
		esiMetric := esiByAxis[axisName]
		driftMetric := driftByAxis[axisName]

		esiValueOnly, driftValueOnly := symmetricDifferenceFloatMaps(esiMetric.ValueScores, driftMetric.ValueScores)
		if len(esiValueOnly) > 0 || len(driftValueOnly) > 0 {
			return nil, clarityerr.New(clarityerr.CodeInvalidInput,
				"value mismatch for axis %q: esi-only=%v drift-only=%v", axisName, esiValueOnly, driftValueOnly).WithAxis(axisName)
		}

		values := make([]string, 0, len(esiMetric.ValueScores))
		for v := range esiMetric.ValueScores {
			values = append(values, v)
		}
		sort.Strings(values)

		points := make([]Point, 0, len(values))
		for _, value := range values {
			esiScore := esiMetric.ValueScores[value]
			driftScore := driftMetric.ValueScores[value]
			if !isFinite(esiScore) {
				return nil, clarityerr.New(clarityerr.CodeNonFinite,
					"invalid ESI value for axis %q, value %q: %v", axisName, value, esiScore).WithAxis(axisName).WithValue(value)
			}
			if !isFinite(driftScore) {
				return nil, clarityerr.New(clarityerr.CodeNonFinite,
					"invalid drift value for axis %q, value %q: %v", axisName, value, driftScore).WithAxis(axisName).WithValue(value)
			}
			points = append(points, Point{Axis: axisName, Value: value, ESI: codec.Round8(esiScore), Drift: codec.Round8(driftScore)})
		}

		allPoints = append(allPoints, points...)
		axisSurfaces = append(axisSurfaces, computeAxisSurface(axisName, points))
	}

	meanESI, meanDrift, varESI, varDrift := populationStats(allPoints)

	return &Surface{
		Axes:                axisSurfaces,
		GlobalMeanESI:       meanESI,
		GlobalMeanDrift:     meanDrift,
		GlobalVarianceESI:   varESI,
		GlobalVarianceDrift: varDrift,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func computeAxisSurface(axisName string, points []Point) AxisSurface {
	meanESI, meanDrift, varESI, varDrift := populationStats(points)
	return AxisSurface{
		Axis:          axisName,
		Points:        points,
		MeanESI:       meanESI,
		MeanDrift:     meanDrift,
		VarianceESI:   varESI,
		VarianceDrift: varDrift,
	}
}

func populationStats(points []Point) (meanESI, meanDrift, varESI, varDrift float64) {
	n := float64(len(points))
	var sumESI, sumDrift float64
	for _, p := range points {
		sumESI += p.ESI
		sumDrift += p.Drift
	}
	meanESI = sumESI / n
	meanDrift = sumDrift / n

	var sqESI, sqDrift float64
	for _, p := range points {
		dE := p.ESI - meanESI
		dD := p.Drift - meanDrift
		sqESI += dE * dE
		sqDrift += dD * dD
	}
	varESI = sqESI / n
	varDrift = sqDrift / n

	return codec.Round8(meanESI), codec.Round8(meanDrift), codec.Round8(varESI), codec.Round8(varDrift)
}

func keysOfESI(m map[string]metrics.ESIMetric) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func keysOfDrift(m map[string]metrics.DriftMetric) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func symmetricDifference(a, b map[string]bool) ([]string, []string) {
	var aOnly, bOnly []string
	for k := range a {
		if !b[k] {
			aOnly = append(aOnly, k)
		}
	}
	for k := range b {
		if !a[k] {
			bOnly = append(bOnly, k)
		}
	}
	sort.Strings(aOnly)
	sort.Strings(bOnly)
	return aOnly, bOnly
}

func symmetricDifferenceFloatMaps(a, b map[string]float64) ([]string, []string) {
	var aOnly, bOnly []string
	for k := range a {
		if _, ok := b[k]; !ok {
			aOnly = append(aOnly, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			bOnly = append(bOnly, k)
		}
	}
	sort.Strings(aOnly)
	sort.Strings(bOnly)
	return aOnly, bOnly
}
