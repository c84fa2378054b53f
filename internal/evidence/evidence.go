// Package evidence normalizes raw evidence maps into heatmaps and
// extracts bounding-box regions from them via thresholding and
// connected-component search, for the visual overlay described in
// spec §4.10.
package evidence

import (
	"fmt"
	"math"
	"sort"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
)

// Threshold is the fixed cutoff used for region extraction.
const Threshold = 0.7

// Map is a raw 2D matrix of evidence/attention values, row-major.
type Map struct {
	Width  int
	Height int
	Values [][]float64
}

// NewMap validates and constructs a Map.
func NewMap(width, height int, values [][]float64) (*Map, error) {
	if width < 1 || height < 1 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "invalid dimensions: width=%d height=%d", width, height)
	}
	if len(values) != height {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "values height mismatch: expected %d, got %d", height, len(values))
	}
	for i, row := range values {
		if len(row) != width {
			return nil, clarityerr.New(clarityerr.CodeInvalidInput, "row %d width mismatch: expected %d, got %d", i, width, len(row))
		}
	}
	return &Map{Width: width, Height: height, Values: values}, nil
}

// Heatmap is a normalized [0,1] evidence matrix ready for colormap
// rendering.
type Heatmap struct {
	Width  int
	Height int
	Values [][]float64
}

// Region is a bounding box around a connected component of
// above-threshold pixels, in normalized [0,1] coordinates.
type Region struct {
	RegionID string
	XMin     float64
	YMin     float64
	XMax     float64
	YMax     float64
	Area     float64
}

// Bundle is the complete overlay: the raw map, its normalized
// heatmap, and the extracted regions.
type Bundle struct {
	EvidenceMap *Map
	Heatmap     *Heatmap
	Regions     []Region
}

// Normalize min-max scales an evidence Map into a Heatmap. When every
// value is within 1e-10 of each other, the heatmap is constant: 0.5 if
// the shared value is positive, else 0.0.
func Normalize(m *Map) (*Heatmap, error) {
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, row := range m.Values {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, clarityerr.New(clarityerr.CodeNonFinite, "non-finite value in evidence map: %v", v)
			}
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}

	valueRange := maxVal - minVal
	values := make([][]float64, m.Height)

	if valueRange < 1e-10 {
		constVal := 0.0
		if maxVal > 0 {
			constVal = 0.5
		}
		for y := 0; y < m.Height; y++ {
			row := make([]float64, m.Width)
			for x := range row {
				row[x] = codec.Round8(constVal)
			}
			values[y] = row
		}
	} else {
		for y, row := range m.Values {
			out := make([]float64, m.Width)
			for x, v := range row {
				out[x] = codec.Round8((v - minVal) / valueRange)
			}
			values[y] = out
		}
	}

	return &Heatmap{Width: m.Width, Height: m.Height, Values: values}, nil
}

type point struct{ x, y int }

// ExtractRegions finds connected components of above-threshold pixels
// via 4-connected BFS in row-major traversal order, and returns their
// bounding boxes sorted by (area desc, x_min asc, y_min asc).
func ExtractRegions(h *Heatmap, threshold float64) ([]Region, error) {
	if threshold < 0.0 || threshold > 1.0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "invalid threshold: %v", threshold)
	}

	width, height := h.Width, h.Height
	above := make([][]bool, height)
	for y, row := range h.Values {
		aboveRow := make([]bool, width)
		for x, v := range row {
			aboveRow[x] = v > threshold
		}
		above[y] = aboveRow
	}

	visited := make([][]bool, height)
	for y := range visited {
		visited[y] = make([]bool, width)
	}

	var components [][]point

	for startY := 0; startY < height; startY++ {
		for startX := 0; startX < width; startX++ {
			if !above[startY][startX] || visited[startY][startX] {
				continue
			}
			var component []point
			queue := []point{{startX, startY}}
			visited[startY][startX] = true

			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				component = append(component, p)

				neighbors := []point{
					{p.x, p.y - 1},
					{p.x - 1, p.y},
					{p.x + 1, p.y},
					{p.x, p.y + 1},
				}
				for _, n := range neighbors {
					if n.x >= 0 && n.x < width && n.y >= 0 && n.y < height {
						if above[n.y][n.x] && !visited[n.y][n.x] {
							visited[n.y][n.x] = true
							queue = append(queue, n)
						}
					}
				}
			}
			components = append(components, component)
		}
	}

	regions := make([]Region, 0, len(components))
	for _, component := range components {
		minX, maxX := component[0].x, component[0].x
		minY, maxY := component[0].y, component[0].y
		for _, p := range component {
			if p.x < minX {
				minX = p.x
			}
			if p.x > maxX {
				maxX = p.x
			}
			if p.y < minY {
				minY = p.y
			}
			if p.y > maxY {
				maxY = p.y
			}
		}

		xMin := clamp01(codec.Round8(float64(minX) / float64(width)))
		yMin := clamp01(codec.Round8(float64(minY) / float64(height)))
		xMax := clamp01(codec.Round8(float64(maxX+1) / float64(width)))
		yMax := clamp01(codec.Round8(float64(maxY+1) / float64(height)))
		area := codec.Round8((xMax - xMin) * (yMax - yMin))

		regions = append(regions, Region{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax, Area: area})
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Area != regions[j].Area {
			return regions[i].Area > regions[j].Area
		}
		if regions[i].XMin != regions[j].XMin {
			return regions[i].XMin < regions[j].XMin
		}
		return regions[i].YMin < regions[j].YMin
	})

	for i := range regions {
		regions[i].RegionID = fmt.Sprintf("evidence_r%d", i)
	}

	return regions, nil
}

func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// DefaultWidth and DefaultHeight are the dimensions used for a
// synthetic evidence map when no real one is available.
const (
	DefaultWidth  = 224
	DefaultHeight = 224
)

// GenerateStubbedMap produces a deterministic synthetic evidence map
// with 2-3 Gaussian-like bumps whose positions derive entirely from
// seed, for offline runs with no real inference backend.
func GenerateStubbedMap(width, height, seed int) (*Map, error) {
	if width < 1 || height < 1 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "invalid dimensions: width=%d height=%d", width, height)
	}

	bumpCount := 2 + mod(seed, 2)
	type bump struct{ cx, cy, sigma float64 }
	bumps := make([]bump, 0, bumpCount)
	for i := 0; i < bumpCount; i++ {
		cx := 0.3 + 0.2*float64(i) + 0.1*float64(mod(seed+i, 3))
		cy := 0.3 + 0.15*float64(i) + 0.1*float64(mod(seed+i*2, 4))
		sigma := 0.08 + 0.02*float64(i%2)
		cx = clampRange(cx, 0.1, 0.9)
		cy = clampRange(cy, 0.1, 0.9)
		bumps = append(bumps, bump{cx, cy, sigma})
	}

	values := make([][]float64, height)
	for y := 0; y < height; y++ {
		ny := 0.5
		if height > 1 {
			ny = float64(y) / float64(height-1)
		}
		row := make([]float64, width)
		for x := 0; x < width; x++ {
			nx := 0.5
			if width > 1 {
				nx = float64(x) / float64(width-1)
			}
			var value float64
			for _, b := range bumps {
				dx, dy := nx-b.cx, ny-b.cy
				distSq := dx*dx + dy*dy
				value += math.Exp(-distSq / (2 * b.sigma * b.sigma))
			}
			row[x] = codec.Round8(clampRange(value, 0.0, 1.0))
		}
		values[y] = row
	}

	return &Map{Width: width, Height: height, Values: values}, nil
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CreateBundle runs the full pipeline: normalize to a heatmap, then
// extract regions at the given threshold.
func CreateBundle(m *Map, threshold float64) (*Bundle, error) {
	heatmap, err := Normalize(m)
	if err != nil {
		return nil, err
	}
	regions, err := ExtractRegions(heatmap, threshold)
	if err != nil {
		return nil, err
	}
	return &Bundle{EvidenceMap: m, Heatmap: heatmap, Regions: regions}, nil
}
