package report

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/evidence"
)

// Fixed PDF metadata, never derived from wall-clock time.
const (
	pdfTitle    = "CLARITY Report"
	pdfAuthor   = "CLARITY System"
	pdfSubject  = "Clinical AI Robustness Evaluation"
	pdfProducer = "CLARITY M11 Report Generator"
)

var epochTimestamp = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	creationDatePattern = regexp.MustCompile(`/CreationDate\s*\(D:\d{14}[+\-Z][^)]*\)`)
	modDatePattern      = regexp.MustCompile(`/ModDate\s*\(D:\d{14}[+\-Z][^)]*\)`)
	idPattern           = regexp.MustCompile(`/ID\s*\n?\s*\[<[0-9a-fA-F]+><[0-9a-fA-F]+>\]`)
)

func formatFloat(value float64, decimals int) string {
	return fmt.Sprintf("%.*f", decimals, value)
}

// PDFRenderer produces a fixed-layout, byte-reproducible PDF document
// from a Report.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render renders a Report into PDF bytes. Identical reports always
// produce identical bytes.
func (rr *PDFRenderer) Render(report Report) ([]byte, error) {
	pdf := gofpdf.New("P", "in", "Letter", "")
	pdf.SetMargins(0.75, 0.75, 0.75)
	pdf.SetAutoPageBreak(true, 0.75)
	pdf.SetTitle(pdfTitle, false)
	pdf.SetAuthor(pdfAuthor, false)
	pdf.SetSubject(pdfSubject, false)
	pdf.SetCreator(pdfProducer, false)

	rr.renderCoverPage(pdf, report)
	pdf.AddPage()

	rr.renderMetricsSection(pdf, report)
	pdf.Ln(0.2)
	rr.renderRobustnessSection(pdf, report)
	pdf.AddPage()

	rr.renderOverlaySection(pdf, report)
	pdf.Ln(0.2)
	rr.renderProbeSection(pdf, report)
	pdf.AddPage()

	rr.renderReproducibilitySection(pdf, report)

	if err := pdf.Error(); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "failed to build PDF document")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "failed to serialize PDF document")
	}

	creationDate, err := time.Parse(time.RFC3339, report.Metadata.GeneratedAt)
	if err != nil {
		creationDate = epochTimestamp
	}

	return sanitizePDFTimestamps(buf.Bytes(), creationDate), nil
}

// sanitizePDFTimestamps replaces the CreationDate, ModDate, and
// trailer /ID fields embedded by the PDF library with fixed values
// derived from creationDate, so that rendering the same report always
// yields byte-identical output.
func sanitizePDFTimestamps(pdfBytes []byte, creationDate time.Time) []byte {
	pdfDate := "D:" + creationDate.UTC().Format("20060102150405") + "+00'00'"
	pdfDateBytes := []byte(pdfDate)

	pdfBytes = creationDatePattern.ReplaceAll(pdfBytes, append([]byte("/CreationDate ("), append(pdfDateBytes, ')')...))
	pdfBytes = modDatePattern.ReplaceAll(pdfBytes, append([]byte("/ModDate ("), append(pdfDateBytes, ')')...))

	fixedIDHex := hex.EncodeToString([]byte(creationDate.UTC().Format("20060102150405")))
	for len(fixedIDHex) < 32 {
		fixedIDHex += "0"
	}
	fixedIDHex = fixedIDHex[:32]
	fixedIDBytes := []byte("<" + fixedIDHex + "><" + fixedIDHex + ">")

	pdfBytes = idPattern.ReplaceAll(pdfBytes, append([]byte("/ID ["), append(fixedIDBytes, ']')...))

	return pdfBytes
}

func (rr *PDFRenderer) renderCoverPage(pdf *gofpdf.Fpdf, report Report) {
	pdf.AddPage()
	pdf.Ln(1.0)

	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 0.4, "CLARITY", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 0.25, "Clinical Localization and Reasoning Integrity Testing", "", 1, "C", false, 0, "")
	pdf.Ln(0.4)

	metadata := report.Metadata
	sweepHash := metadata.SweepManifestHash
	if len(sweepHash) > 16 {
		sweepHash = sweepHash[:16] + "..."
	}
	richMode := "No"
	if metadata.RichMode {
		richMode = "Yes"
	}
	rows := [][2]string{
		{"Case ID", metadata.CaseID},
		{"Title", metadata.Title},
		{"Generated At", metadata.GeneratedAt},
		{"CLARITY Version", metadata.ClarityVersion},
		{"R2L SHA", metadata.R2LSHA},
		{"Adapter ID", metadata.AdapterID},
		{"Rich Mode", richMode},
		{"Sweep Manifest Hash", sweepHash},
		{"Serialization Version", metadata.SerializationVersion},
	}

	pdf.SetFont("Helvetica", "B", 10)
	labelWidth := 2.5
	valueWidth := 4.0
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, 0.25, row[0], "1", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(valueWidth, 0.25, row[1], "1", 1, "L", false, 0, "")
	}
}

func (rr *PDFRenderer) renderMetricsSection(pdf *gofpdf.Fpdf, report Report) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 0.3, "Core Metrics Summary", "", 1, "L", false, 0, "")
	pdf.Ln(0.1)

	metrics := report.Metrics
	rows := [][2]string{
		{"Baseline ESI", formatFloat(metrics.BaselineESI, 8)},
		{"Baseline Drift", formatFloat(metrics.BaselineDrift, 8)},
		{"Global Mean ESI", formatFloat(metrics.GlobalMeanESI, 8)},
		{"Global Mean Drift", formatFloat(metrics.GlobalMeanDrift, 8)},
		{"Global ESI Variance", formatFloat(metrics.GlobalVarianceESI, 8)},
		{"Global Drift Variance", formatFloat(metrics.GlobalVarianceDrift, 8)},
	}
	if metrics.HasMonteCarloEntropy {
		rows = append(rows, [2]string{"Monte Carlo Entropy", formatFloat(metrics.MonteCarloEntropy, 8)})
	} else {
		rows = append(rows, [2]string{"Monte Carlo", "Not present in artifact bundle"})
	}

	colWidth := 3.0
	pdf.SetFillColor(220, 220, 220)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colWidth, 0.25, "Metric", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colWidth, 0.25, "Value", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(colWidth, 0.25, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidth, 0.25, row[1], "1", 1, "L", false, 0, "")
	}
}

func (rr *PDFRenderer) renderRobustnessSection(pdf *gofpdf.Fpdf, report Report) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 0.3, "Robustness Surfaces", "", 1, "L", false, 0, "")
	pdf.Ln(0.1)

	axes := make([]SurfaceAxis, len(report.RobustnessSurfaces))
	for i, s := range report.RobustnessSurfaces {
		axes[i] = SurfaceAxis{Axis: s.Axis, Points: s.Points}
	}
	if len(axes) > 0 {
		if imgBytes, err := RenderSurfacePNG(axes, DefaultSurfaceWidth, DefaultSurfaceHeight); err == nil {
			embedPNG(pdf, "surface", imgBytes, 5.0, 2.0)
		} else {
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(0, 0.25, "Surface image could not be rendered.", "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(0.1)

	for _, surface := range report.RobustnessSurfaces {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 0.22, fmt.Sprintf("Axis: %s", surface.Axis), "", 1, "L", false, 0, "")

		headers := []string{"Mean ESI", "Mean Drift", "ESI Variance", "Drift Variance"}
		values := []string{
			formatFloat(surface.MeanESI, 8),
			formatFloat(surface.MeanDrift, 8),
			formatFloat(surface.VarianceESI, 8),
			formatFloat(surface.VarianceDrift, 8),
		}
		colWidth := 1.5
		pdf.SetFillColor(220, 220, 220)
		pdf.SetFont("Helvetica", "B", 9)
		for _, h := range headers {
			pdf.CellFormat(colWidth, 0.22, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(0.22)
		pdf.SetFont("Courier", "", 9)
		for _, v := range values {
			pdf.CellFormat(colWidth, 0.22, v, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(0.3)
	}
}

func (rr *PDFRenderer) renderOverlaySection(pdf *gofpdf.Fpdf, report Report) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 0.3, "Evidence Overlay", "", 1, "L", false, 0, "")
	pdf.Ln(0.1)

	overlay := report.OverlaySection
	if syntheticMap, err := evidence.GenerateStubbedMap(overlay.ImageWidth, overlay.ImageHeight, 42); err == nil {
		if imgBytes, err := RenderHeatmapPNG(syntheticMap.Values, DefaultHeatmapWidth, DefaultHeatmapHeight); err == nil {
			embedPNG(pdf, "heatmap", imgBytes, 3.0, 3.0)
		}
	}
	pdf.Ln(0.1)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 0.22, "Extracted Regions", "", 1, "L", false, 0, "")

	if len(overlay.Regions) > 0 {
		headers := []string{"Region ID", "X Range", "Y Range", "Area", "Mean Evidence"}
		widths := []float64{1.2, 1.5, 1.5, 1.2, 1.5}
		pdf.SetFillColor(220, 220, 220)
		pdf.SetFont("Helvetica", "B", 9)
		for i, h := range headers {
			pdf.CellFormat(widths[i], 0.22, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(0.22)
		pdf.SetFont("Courier", "", 9)
		for _, region := range overlay.Regions {
			xRange := formatFloat(region.XMin, 2) + " - " + formatFloat(region.XMax, 2)
			yRange := formatFloat(region.YMin, 2) + " - " + formatFloat(region.YMax, 2)
			cells := []string{
				region.RegionID,
				xRange,
				yRange,
				formatFloat(region.Area, 8),
				formatFloat(region.MeanEvidence, 8),
			}
			for i, c := range cells {
				pdf.CellFormat(widths[i], 0.22, c, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(0.22)
		}
	} else {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 0.25, "No regions extracted.", "", 1, "L", false, 0, "")
	}

	pdf.Ln(0.1)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 0.25, fmt.Sprintf("Total Evidence Area: %s", formatFloat(overlay.TotalEvidenceArea, 8)), "", 1, "L", false, 0, "")
}

func (rr *PDFRenderer) renderProbeSection(pdf *gofpdf.Fpdf, report Report) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 0.3, "Counterfactual Probe Results", "", 1, "L", false, 0, "")
	pdf.Ln(0.1)

	probeSurface := report.ProbeSurface
	if len(probeSurface.Probes) > 0 {
		if imgBytes, err := RenderProbeGridPNG(probeSurface.Probes, probeSurface.GridSize, DefaultHeatmapWidth, DefaultHeatmapHeight); err == nil {
			embedPNG(pdf, "probegrid", imgBytes, 3.0, 3.0)
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(0, 0.2, "(Blue = negative delta, Red = positive delta)", "", 1, "L", false, 0, "")
		} else {
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(0, 0.25, "Probe grid could not be rendered.", "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(0.1)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 0.22, "Probe Statistics", "", 1, "L", false, 0, "")

	rows := [][2]string{
		{"Grid Size", fmt.Sprintf("%d x %d", probeSurface.GridSize, probeSurface.GridSize)},
		{"Total Probes", fmt.Sprintf("%d", probeSurface.TotalProbes)},
		{"Mean Delta ESI", formatFloat(probeSurface.MeanDeltaESI, 8)},
		{"Mean Delta Drift", formatFloat(probeSurface.MeanDeltaDrift, 8)},
		{"Variance Delta ESI", formatFloat(probeSurface.VarianceDeltaESI, 8)},
		{"Variance Delta Drift", formatFloat(probeSurface.VarianceDeltaDrift, 8)},
	}
	colWidth := 3.0
	pdf.SetFillColor(220, 220, 220)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colWidth, 0.25, "Statistic", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colWidth, 0.25, "Value", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(colWidth, 0.25, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Courier", "", 10)
		pdf.CellFormat(colWidth, 0.25, row[1], "1", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
}

func (rr *PDFRenderer) renderReproducibilitySection(pdf *gofpdf.Fpdf, report Report) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 0.3, "Reproducibility Block", "", 1, "L", false, 0, "")
	pdf.Ln(0.1)

	pdf.SetFont("Courier", "", 9)
	for _, kv := range report.Reproducibility.Content {
		pdf.MultiCell(0, 0.2, fmt.Sprintf("%s: %s", kv[0], kv[1]), "", "L", false)
	}
}

func embedPNG(pdf *gofpdf.Fpdf, name string, imgBytes []byte, width, height float64) {
	reader := bytes.NewReader(imgBytes)
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}, reader)
	x := pdf.GetX()
	y := pdf.GetY()
	pdf.ImageOptions(name, x, y, width, height, false, gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}, 0, "")
	pdf.SetXY(x, y+height)
}
