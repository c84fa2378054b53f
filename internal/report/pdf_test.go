package report

import (
	"bytes"
	"testing"
)

func sampleReport() Report {
	return Report{
		Metadata: NewMetadata("case-42", "Chest X-Ray Robustness", "2026-03-01T12:00:00Z", "1.0.0", "deadbeefcafef00d", "adapter-vision-1", true, "sweephash0123456789"),
		Metrics:  NewMetrics(0.91, 0.04, 0.88, 0.05, 0.002, 0.001, 0.73, true),
		RobustnessSurfaces: []RobustnessSurface{
			NewRobustnessSurface("brightness", 0.9, 0.05, 0.001, 0.0005, []SurfacePoint{
				NewSurfacePoint("brightness", "0p8", 0.85, 0.06),
				NewSurfacePoint("brightness", "1p2", 0.92, 0.04),
			}),
		},
		OverlaySection: NewOverlaySection(224, 224, []OverlayRegion{
			NewOverlayRegion("evidence_r0", 0.1, 0.1, 0.4, 0.4, 0.09, 0.8),
		}, 0.09),
		ProbeSurface: NewProbeSurfaceSection(2, 4, 0.01, 0.005, 0.0002, 0.0001, []ProbeResult{
			NewProbeResult(0, 0, 0.01, 0.0, 0.9, 0.04),
			NewProbeResult(0, 1, -0.02, 0.0, 0.88, 0.04),
			NewProbeResult(1, 0, 0.0, 0.0, 0.91, 0.04),
			NewProbeResult(1, 1, 0.03, 0.0, 0.94, 0.04),
		}),
		Reproducibility: Section{
			SectionID: "reproducibility",
			Title:     "Reproducibility Block",
			Content:   [][2]string{{"seed", "42"}, {"r2l_sha", "deadbeefcafef00d"}},
		},
	}
}

func TestPDFRendererProducesValidHeader(t *testing.T) {
	renderer := NewPDFRenderer()
	data, err := renderer.Render(sampleReport())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("expected output to start with a PDF header")
	}
}

func TestPDFRendererIsDeterministic(t *testing.T) {
	renderer := NewPDFRenderer()
	report := sampleReport()

	a, err := renderer.Render(report)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	b, err := renderer.Render(report)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("expected identical PDF bytes for identical report across repeated renders")
	}
}

func TestPDFRendererEmbedsFixedCreationDate(t *testing.T) {
	renderer := NewPDFRenderer()
	data, err := renderer.Render(sampleReport())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Contains(data, []byte("D:20260301120000+00'00'")) {
		t.Error("expected fixed creation date derived from generated_at")
	}
}

func TestPDFRendererFallsBackToEpochOnBadTimestamp(t *testing.T) {
	renderer := NewPDFRenderer()
	report := sampleReport()
	report.Metadata.GeneratedAt = "not-a-timestamp"

	data, err := renderer.Render(report)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Contains(data, []byte("D:19700101000000+00'00'")) {
		t.Error("expected epoch fallback creation date")
	}
}

func TestSanitizePDFTimestampsReplacesDatesAndID(t *testing.T) {
	input := []byte("/CreationDate (D:20200101000000+05'00')/ModDate (D:20200101000000+05'00')/ID [<aabbccdd><aabbccdd>]")
	out := sanitizePDFTimestamps(input, epochTimestamp)

	if bytes.Contains(out, []byte("20200101000000")) {
		t.Error("expected original timestamp to be replaced")
	}
	if !bytes.Contains(out, []byte("D:19700101000000+00'00'")) {
		t.Error("expected fixed epoch timestamp in output")
	}
	if bytes.Contains(out, []byte("<aabbccdd>")) {
		t.Error("expected original document ID to be replaced")
	}
}
