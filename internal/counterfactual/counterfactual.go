// Package counterfactual probes causal evidence dependence by masking
// grid regions of the baseline image and measuring the resulting
// change in ESI and Drift (spec §4.9). The engine is a pure consumer
// of metrics already computed elsewhere: it never runs inference and
// never imports the runner boundary directly.
package counterfactual

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
)

// MaskFillValue is the fixed neutral-gray fill used for every masked
// region.
const MaskFillValue = 128

// RegionMask is one grid cell in normalized image coordinates.
type RegionMask struct {
	RegionID  string
	Row       int
	Col       int
	GridSize  int
	XMin      float64
	YMin      float64
	XMax      float64
	YMax      float64
}

// Probe identifies a region mask applied at a specific sweep
// coordinate.
type Probe struct {
	RegionID string
	Axis     string
	Value    string
}

// ProbeResult is the outcome of one counterfactual probe.
type ProbeResult struct {
	Probe         Probe
	BaselineESI   float64
	MaskedESI     float64
	DeltaESI      float64
	BaselineDrift float64
	MaskedDrift   float64
	DeltaDrift    float64
}

// ProbeSurface aggregates all probe results with summary statistics.
type ProbeSurface struct {
	Results           []ProbeResult
	MeanAbsDeltaESI   float64
	MaxAbsDeltaESI    float64
	MeanAbsDeltaDrift float64
	MaxAbsDeltaDrift  float64
}

// GenerateGridMasks builds a gridSize x gridSize set of region masks
// over normalized [0,1] image coordinates, ordered by (row, col).
// Boundary cells snap to exactly 0.0/1.0 to avoid floating-point
// drift at the edges.
func GenerateGridMasks(gridSize int) ([]RegionMask, error) {
	if gridSize < 1 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "grid_size must be >= 1, got %d", gridSize)
	}

	cellSize := 1.0 / float64(gridSize)
	masks := make([]RegionMask, 0, gridSize*gridSize)

	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			xMin := codec.Round8(float64(col) * cellSize)
			yMin := codec.Round8(float64(row) * cellSize)
			xMax := codec.Round8(float64(col+1) * cellSize)
			yMax := codec.Round8(float64(row+1) * cellSize)

			if col == 0 {
				xMin = 0.0
			}
			if row == 0 {
				yMin = 0.0
			}
			if col == gridSize-1 {
				xMax = 1.0
			}
			if row == gridSize-1 {
				yMax = 1.0
			}

			masks = append(masks, RegionMask{
				RegionID: fmt.Sprintf("grid_r%d_c%d_k%d", row, col, gridSize),
				Row:      row,
				Col:      col,
				GridSize: gridSize,
				XMin:     xMin,
				YMin:     yMin,
				XMax:     xMax,
				YMax:     yMax,
			})
		}
	}
	return masks, nil
}

// ApplyMask returns a copy of img with the mask's region filled with
// fillValue (a grayscale value, replicated across R/G/B). The source
// image is never mutated.
func ApplyMask(img image.Image, mask RegionMask, fillValue uint8) (image.Image, error) {
	if img == nil {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "image cannot be nil")
	}
	if !(mask.XMin >= 0.0 && mask.XMin < mask.XMax && mask.XMax <= 1.0) {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput,
			"invalid mask x coordinates: x_min=%v x_max=%v", mask.XMin, mask.XMax).WithValue(mask.RegionID)
	}
	if !(mask.YMin >= 0.0 && mask.YMin < mask.YMax && mask.YMax <= 1.0) {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput,
			"invalid mask y coordinates: y_min=%v y_max=%v", mask.YMin, mask.YMax).WithValue(mask.RegionID)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	x1 := clampInt(int(mask.XMin*float64(width)), 0, width)
	y1 := clampInt(int(mask.YMin*float64(height)), 0, height)
	x2 := clampInt(int(mask.XMax*float64(width)), 0, width)
	y2 := clampInt(int(mask.YMax*float64(height)), 0, height)

	if x2 <= x1 || y2 <= y1 {
		return result, nil
	}

	fillColor := color.RGBA{R: fillValue, G: fillValue, B: fillValue, A: 255}
	fillRect := image.Rect(bounds.Min.X+x1, bounds.Min.Y+y1, bounds.Min.X+x2, bounds.Min.Y+y2)
	draw.Draw(result, fillRect, &image.Uniform{C: fillColor}, image.Point{}, draw.Src)

	return result, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ComputeProbeResult builds a ProbeResult from baseline and masked
// metric values, rejecting any non-finite input.
func ComputeProbeResult(probe Probe, baselineESI, baselineDrift, maskedESI, maskedDrift float64) (ProbeResult, error) {
	for name, v := range map[string]float64{
		"baseline_esi": baselineESI, "baseline_drift": baselineDrift,
		"masked_esi": maskedESI, "masked_drift": maskedDrift,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ProbeResult{}, clarityerr.New(clarityerr.CodeNonFinite, "invalid %s value: %v", name, v).WithValue(probe.RegionID)
		}
	}

	deltaESI := codec.Round8(maskedESI - baselineESI)
	deltaDrift := codec.Round8(maskedDrift - baselineDrift)

	return ProbeResult{
		Probe:         probe,
		BaselineESI:   codec.Round8(baselineESI),
		MaskedESI:     codec.Round8(maskedESI),
		DeltaESI:      deltaESI,
		BaselineDrift: codec.Round8(baselineDrift),
		MaskedDrift:   codec.Round8(maskedDrift),
		DeltaDrift:    deltaDrift,
	}, nil
}

// ComputeProbeSurface aggregates probe results into a ProbeSurface,
// sorted by (region_id, axis, value).
func ComputeProbeSurface(results []ProbeResult) (*ProbeSurface, error) {
	if len(results) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "cannot compute probe surface from empty results")
	}

	sorted := make([]ProbeResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Probe, sorted[j].Probe
		if a.RegionID != b.RegionID {
			return a.RegionID < b.RegionID
		}
		if a.Axis != b.Axis {
			return a.Axis < b.Axis
		}
		return a.Value < b.Value
	})

	n := float64(len(sorted))
	var sumESI, sumDrift, maxESI, maxDrift float64
	for i, r := range sorted {
		aESI := math.Abs(r.DeltaESI)
		aDrift := math.Abs(r.DeltaDrift)
		sumESI += aESI
		sumDrift += aDrift
		if i == 0 || aESI > maxESI {
			maxESI = aESI
		}
		if i == 0 || aDrift > maxDrift {
			maxDrift = aDrift
		}
	}

	return &ProbeSurface{
		Results:           sorted,
		MeanAbsDeltaESI:   codec.Round8(sumESI / n),
		MaxAbsDeltaESI:    codec.Round8(maxESI),
		MeanAbsDeltaDrift: codec.Round8(sumDrift / n),
		MaxAbsDeltaDrift:  codec.Round8(maxDrift),
	}, nil
}
