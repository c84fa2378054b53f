package counterfactual

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/m-cahill/clarity/internal/clarityerr"
)

func TestGenerateGridMasksBoundaries(t *testing.T) {
	masks, err := GenerateGridMasks(3)
	if err != nil {
		t.Fatalf("GenerateGridMasks() error = %v", err)
	}
	if len(masks) != 9 {
		t.Fatalf("expected 9 masks, got %d", len(masks))
	}
	if masks[0].RegionID != "grid_r0_c0_k3" {
		t.Errorf("region id = %q, want grid_r0_c0_k3", masks[0].RegionID)
	}
	if masks[0].XMin != 0.0 || masks[0].YMin != 0.0 {
		t.Errorf("expected top-left mask to snap to zero, got x_min=%v y_min=%v", masks[0].XMin, masks[0].YMin)
	}
	last := masks[len(masks)-1]
	if last.XMax != 1.0 || last.YMax != 1.0 {
		t.Errorf("expected bottom-right mask to snap to one, got x_max=%v y_max=%v", last.XMax, last.YMax)
	}
}

func TestGenerateGridMasksRejectsInvalidSize(t *testing.T) {
	if _, err := GenerateGridMasks(0); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func solidImage(w, h int, r, g, b uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func TestApplyMaskFillsRegion(t *testing.T) {
	img := solidImage(10, 10, 255, 0, 0)
	mask := RegionMask{RegionID: "grid_r0_c0_k2", XMin: 0.0, YMin: 0.0, XMax: 0.5, YMax: 0.5}
	masked, err := ApplyMask(img, mask, MaskFillValue)
	if err != nil {
		t.Fatalf("ApplyMask() error = %v", err)
	}
	inside := masked.At(2, 2)
	r, g, b, _ := inside.RGBA()
	if r>>8 != MaskFillValue || g>>8 != MaskFillValue || b>>8 != MaskFillValue {
		t.Errorf("expected masked pixel to be neutral gray, got rgb=(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
	outside := masked.At(8, 8)
	r, g, b, _ = outside.RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("expected unmasked pixel unchanged, got rgb=(%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestApplyMaskRejectsInvalidCoordinates(t *testing.T) {
	img := solidImage(4, 4, 0, 0, 0)
	mask := RegionMask{RegionID: "bad", XMin: 0.5, YMin: 0.0, XMax: 0.2, YMax: 1.0}
	if _, err := ApplyMask(img, mask, MaskFillValue); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestComputeProbeResultComputesDeltas(t *testing.T) {
	probe := Probe{RegionID: "grid_r0_c0_k3", Axis: "brightness", Value: "1p0"}
	r, err := ComputeProbeResult(probe, 0.8, 0.1, 0.5, 0.3)
	if err != nil {
		t.Fatalf("ComputeProbeResult() error = %v", err)
	}
	if r.DeltaESI != -0.3 {
		t.Errorf("delta esi = %v, want -0.3", r.DeltaESI)
	}
	if math.Abs(r.DeltaDrift-0.2) > 1e-8 {
		t.Errorf("delta drift = %v, want 0.2", r.DeltaDrift)
	}
}

func TestComputeProbeResultRejectsNonFinite(t *testing.T) {
	probe := Probe{RegionID: "r", Axis: "a", Value: "v"}
	if _, err := ComputeProbeResult(probe, math.NaN(), 0.1, 0.5, 0.3); !clarityerr.Is(err, clarityerr.CodeNonFinite) {
		t.Errorf("expected non_finite, got %v", err)
	}
}

func TestComputeProbeSurfaceSortsAndAggregates(t *testing.T) {
	results := []ProbeResult{
		{Probe: Probe{RegionID: "grid_r1_c0_k2", Axis: "brightness", Value: "1p0"}, DeltaESI: -0.1, DeltaDrift: 0.2},
		{Probe: Probe{RegionID: "grid_r0_c0_k2", Axis: "brightness", Value: "1p0"}, DeltaESI: 0.3, DeltaDrift: -0.4},
	}
	surface, err := ComputeProbeSurface(results)
	if err != nil {
		t.Fatalf("ComputeProbeSurface() error = %v", err)
	}
	if surface.Results[0].Probe.RegionID != "grid_r0_c0_k2" {
		t.Errorf("expected sorted by region_id, got first=%v", surface.Results[0].Probe.RegionID)
	}
	if math.Abs(surface.MeanAbsDeltaESI-0.2) > 1e-8 {
		t.Errorf("mean abs delta esi = %v, want 0.2", surface.MeanAbsDeltaESI)
	}
	if surface.MaxAbsDeltaDrift != 0.4 {
		t.Errorf("max abs delta drift = %v, want 0.4", surface.MaxAbsDeltaDrift)
	}
}

func TestComputeProbeSurfaceRejectsEmpty(t *testing.T) {
	if _, err := ComputeProbeSurface(nil); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}
