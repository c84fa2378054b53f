package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sort"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
)

// Fixed rendering constants for the PNG rasterizer.
const (
	DefaultHeatmapWidth  = 200
	DefaultHeatmapHeight = 200
	DefaultSurfaceWidth  = 400
	DefaultSurfaceHeight = 200
)

func valueToColor(value float64) color.RGBA {
	if value < 0.0 {
		value = 0.0
	}
	if value > 1.0 {
		value = 1.0
	}
	r := uint8(240 - 60*value)
	g := uint8(240 * (1 - value))
	b := uint8(240 * (1 - value))
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func valueToBlueRed(value float64) color.RGBA {
	if value < -1.0 {
		value = -1.0
	}
	if value > 1.0 {
		value = 1.0
	}
	var r, g, b float64
	if value < 0 {
		t := -value
		r = 255 - 255*t
		g = 255 - 155*t
		b = 255 - 55*t
	} else {
		t := value
		r = 255 - 55*t
		g = 255 - 205*t
		b = 255 - 205*t
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}

// RenderHeatmapPNG rasterizes a 2D array of [0,1] values into a
// fixed-size PNG using nearest-neighbor sampling and the red-shade
// colormap.
func RenderHeatmapPNG(values [][]float64, width, height int) ([]byte, error) {
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "values array cannot be empty")
	}
	inputHeight := len(values)
	inputWidth := len(values[0])
	for i, row := range values {
		if len(row) != inputWidth {
			return nil, clarityerr.New(clarityerr.CodeInvalidInput, "row %d has width %d, expected %d", i, len(row), inputWidth)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	xScale := float64(inputWidth) / float64(width)
	yScale := float64(inputHeight) / float64(height)

	for py := 0; py < height; py++ {
		srcY := int(float64(py) * yScale)
		if srcY > inputHeight-1 {
			srcY = inputHeight - 1
		}
		for px := 0; px < width; px++ {
			srcX := int(float64(px) * xScale)
			if srcX > inputWidth-1 {
				srcX = inputWidth - 1
			}
			v := codec.Round8(values[srcY][srcX])
			img.SetRGBA(px, py, valueToColor(v))
		}
	}

	return savePNGDeterministic(img)
}

// SurfaceAxis is the input shape for RenderSurfacePNG: one axis of a
// robustness surface with its ESI points.
type SurfaceAxis struct {
	Axis   string
	Points []SurfacePoint
}

// RenderSurfacePNG rasterizes a robustness surface into a grid image,
// one row per axis (sorted alphabetically) and one column per point
// (sorted by encoded value), with dark-gray grid lines.
func RenderSurfacePNG(axes []SurfaceAxis, width, height int) ([]byte, error) {
	if len(axes) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "axes list cannot be empty")
	}

	sorted := make([]SurfaceAxis, len(axes))
	copy(sorted, axes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Axis < sorted[j].Axis })

	maxPoints := 0
	for _, a := range sorted {
		if len(a.Points) > maxPoints {
			maxPoints = len(a.Points)
		}
	}
	if maxPoints == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "no points in any axis")
	}

	numAxes := len(sorted)
	cellWidth := width / maxPoints
	cellHeight := height / numAxes

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	whiteFill(img, width, height)

	for axisIdx, axisData := range sorted {
		points := make([]SurfacePoint, len(axisData.Points))
		copy(points, axisData.Points)
		sort.Slice(points, func(i, j int) bool { return points[i].Value < points[j].Value })

		for pointIdx, p := range points {
			esi := codec.Round8(p.ESI)
			col := valueToColor(esi)

			xStart := pointIdx * cellWidth
			xEnd := xStart + cellWidth
			if xEnd > width {
				xEnd = width
			}
			yStart := axisIdx * cellHeight
			yEnd := yStart + cellHeight
			if yEnd > height {
				yEnd = height
			}
			fillRect(img, xStart, yStart, xEnd, yEnd, col)
		}
	}

	gridColor := color.RGBA{R: 100, G: 100, B: 100, A: 255}
	for i := 0; i <= maxPoints; i++ {
		x := i * cellWidth
		if x > width-1 {
			x = width - 1
		}
		for py := 0; py < height; py++ {
			img.SetRGBA(x, py, gridColor)
		}
	}
	for i := 0; i <= numAxes; i++ {
		y := i * cellHeight
		if y > height-1 {
			y = height - 1
		}
		for px := 0; px < width; px++ {
			img.SetRGBA(px, y, gridColor)
		}
	}

	return savePNGDeterministic(img)
}

// RenderProbeGridPNG rasterizes counterfactual delta-ESI probes into
// a gridSize x gridSize grid using the diverging blue-white-red
// colormap, normalized by the global max absolute delta.
func RenderProbeGridPNG(probes []ProbeResult, gridSize, width, height int) ([]byte, error) {
	if gridSize < 1 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "invalid grid size: %d", gridSize)
	}
	if len(probes) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "probes list cannot be empty")
	}

	grid := make([][]float64, gridSize)
	for i := range grid {
		grid[i] = make([]float64, gridSize)
	}
	for _, p := range probes {
		if p.Row >= 0 && p.Row < gridSize && p.Col >= 0 && p.Col < gridSize {
			grid[p.Row][p.Col] = codec.Round8(p.DeltaESI)
		}
	}

	cellWidth := width / gridSize
	cellHeight := height / gridSize

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	whiteFill(img, width, height)

	maxAbs := 0.0
	for _, row := range grid {
		for _, v := range row {
			if v < 0 {
				v = -v
			}
			if v > maxAbs {
				maxAbs = v
			}
		}
	}
	if maxAbs < 1e-10 {
		maxAbs = 1.0
	}

	for rowIdx := 0; rowIdx < gridSize; rowIdx++ {
		for colIdx := 0; colIdx < gridSize; colIdx++ {
			normalized := grid[rowIdx][colIdx] / maxAbs
			col := valueToBlueRed(normalized)

			xStart := colIdx * cellWidth
			xEnd := xStart + cellWidth
			if xEnd > width {
				xEnd = width
			}
			yStart := rowIdx * cellHeight
			yEnd := yStart + cellHeight
			if yEnd > height {
				yEnd = height
			}
			fillRect(img, xStart, yStart, xEnd, yEnd, col)
		}
	}

	gridColor := color.RGBA{R: 100, G: 100, B: 100, A: 255}
	for i := 0; i <= gridSize; i++ {
		x := i * cellWidth
		if x > width-1 {
			x = width - 1
		}
		for py := 0; py < height; py++ {
			img.SetRGBA(x, py, gridColor)
		}
	}
	for i := 0; i <= gridSize; i++ {
		y := i * cellHeight
		if y > height-1 {
			y = height - 1
		}
		for px := 0; px < width; px++ {
			img.SetRGBA(px, y, gridColor)
		}
	}

	return savePNGDeterministic(img)
}

func whiteFill(img *image.RGBA, width, height int) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	fillRect(img, 0, 0, width, height, white)
}

func fillRect(img *image.RGBA, xStart, yStart, xEnd, yEnd int, c color.RGBA) {
	for py := yStart; py < yEnd; py++ {
		for px := xStart; px < xEnd; px++ {
			img.SetRGBA(px, py, c)
		}
	}
}

// savePNGDeterministic encodes img with a fixed compression level and
// no ancillary metadata chunks, so identical pixels always produce
// identical bytes.
func savePNGDeterministic(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "failed to encode PNG")
	}
	return buf.Bytes(), nil
}
