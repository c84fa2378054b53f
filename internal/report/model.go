// Package report defines the frozen report data model and its
// renderers: a deterministic PNG rasterizer and a byte-reproducible
// PDF document (spec §4.12).
package report

import (
	"github.com/m-cahill/clarity/internal/codec"
)

// SerializationVersion tags the report model's wire format.
const SerializationVersion = "M11_v1"

// Metadata is the report's cover-page information.
type Metadata struct {
	CaseID               string
	Title                string
	GeneratedAt          string
	ClarityVersion       string
	R2LSHA               string
	AdapterID            string
	RichMode             bool
	SweepManifestHash    string
	SerializationVersion string
}

// NewMetadata constructs a Metadata, setting SerializationVersion to
// the package's SerializationVersion constant.
func NewMetadata(caseID, title, generatedAt, clarityVersion, r2lSHA, adapterID string, richMode bool, sweepManifestHash string) Metadata {
	return Metadata{
		CaseID:               caseID,
		Title:                title,
		GeneratedAt:          generatedAt,
		ClarityVersion:       clarityVersion,
		R2LSHA:               r2lSHA,
		AdapterID:            adapterID,
		RichMode:             richMode,
		SweepManifestHash:    sweepManifestHash,
		SerializationVersion: SerializationVersion,
	}
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (m Metadata) ToDict() map[string]any {
	return map[string]any{
		"adapter_id":            m.AdapterID,
		"case_id":               m.CaseID,
		"clarity_version":       m.ClarityVersion,
		"generated_at":          m.GeneratedAt,
		"r2l_sha":               m.R2LSHA,
		"rich_mode":             m.RichMode,
		"serialization_version": m.SerializationVersion,
		"sweep_manifest_hash":   m.SweepManifestHash,
		"title":                 m.Title,
	}
}

// Metrics is the core metrics summary section.
type Metrics struct {
	BaselineESI          float64
	BaselineDrift        float64
	GlobalMeanESI        float64
	GlobalMeanDrift      float64
	GlobalVarianceESI    float64
	GlobalVarianceDrift  float64
	MonteCarloPresent    bool
	MonteCarloEntropy    float64
	HasMonteCarloEntropy bool
}

// NewMetrics constructs a Metrics, rounding every float field.
func NewMetrics(baselineESI, baselineDrift, globalMeanESI, globalMeanDrift, globalVarianceESI, globalVarianceDrift float64, monteCarloEntropy float64, hasMonteCarloEntropy bool) Metrics {
	m := Metrics{
		BaselineESI:          codec.Round8(baselineESI),
		BaselineDrift:        codec.Round8(baselineDrift),
		GlobalMeanESI:        codec.Round8(globalMeanESI),
		GlobalMeanDrift:      codec.Round8(globalMeanDrift),
		GlobalVarianceESI:    codec.Round8(globalVarianceESI),
		GlobalVarianceDrift:  codec.Round8(globalVarianceDrift),
		MonteCarloPresent:    hasMonteCarloEntropy,
		HasMonteCarloEntropy: hasMonteCarloEntropy,
	}
	if hasMonteCarloEntropy {
		m.MonteCarloEntropy = codec.Round8(monteCarloEntropy)
	}
	return m
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (m Metrics) ToDict() map[string]any {
	out := map[string]any{
		"baseline_drift":        m.BaselineDrift,
		"baseline_esi":          m.BaselineESI,
		"global_mean_drift":     m.GlobalMeanDrift,
		"global_mean_esi":       m.GlobalMeanESI,
		"global_variance_drift": m.GlobalVarianceDrift,
		"global_variance_esi":   m.GlobalVarianceESI,
		"monte_carlo_present":   m.MonteCarloPresent,
	}
	if m.HasMonteCarloEntropy {
		out["monte_carlo_entropy"] = m.MonteCarloEntropy
	}
	return out
}

// SurfacePoint is a single point on a robustness surface.
type SurfacePoint struct {
	Axis  string
	Value string
	ESI   float64
	Drift float64
}

// NewSurfacePoint constructs a SurfacePoint, rounding ESI and Drift.
func NewSurfacePoint(axis, value string, esi, drift float64) SurfacePoint {
	return SurfacePoint{Axis: axis, Value: value, ESI: codec.Round8(esi), Drift: codec.Round8(drift)}
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (p SurfacePoint) ToDict() map[string]any {
	return map[string]any{"axis": p.Axis, "drift": p.Drift, "esi": p.ESI, "value": p.Value}
}

// RobustnessSurface is one axis's robustness surface section.
type RobustnessSurface struct {
	Axis          string
	MeanESI       float64
	MeanDrift     float64
	VarianceESI   float64
	VarianceDrift float64
	Points        []SurfacePoint
}

// NewRobustnessSurface constructs a RobustnessSurface, rounding its
// scalar fields.
func NewRobustnessSurface(axis string, meanESI, meanDrift, varianceESI, varianceDrift float64, points []SurfacePoint) RobustnessSurface {
	return RobustnessSurface{
		Axis:          axis,
		MeanESI:       codec.Round8(meanESI),
		MeanDrift:     codec.Round8(meanDrift),
		VarianceESI:   codec.Round8(varianceESI),
		VarianceDrift: codec.Round8(varianceDrift),
		Points:        points,
	}
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (s RobustnessSurface) ToDict() map[string]any {
	points := make([]map[string]any, len(s.Points))
	for i, p := range s.Points {
		points[i] = p.ToDict()
	}
	return map[string]any{
		"axis":           s.Axis,
		"mean_drift":     s.MeanDrift,
		"mean_esi":       s.MeanESI,
		"points":         points,
		"variance_drift": s.VarianceDrift,
		"variance_esi":   s.VarianceESI,
	}
}

// OverlayRegion is one evidence-overlay region, enriched with its
// mean evidence value (report-specific, unlike evidence.Region).
type OverlayRegion struct {
	RegionID     string
	XMin         float64
	YMin         float64
	XMax         float64
	YMax         float64
	Area         float64
	MeanEvidence float64
}

// NewOverlayRegion constructs an OverlayRegion, rounding every float
// field.
func NewOverlayRegion(regionID string, xMin, yMin, xMax, yMax, area, meanEvidence float64) OverlayRegion {
	return OverlayRegion{
		RegionID:     regionID,
		XMin:         codec.Round8(xMin),
		YMin:         codec.Round8(yMin),
		XMax:         codec.Round8(xMax),
		YMax:         codec.Round8(yMax),
		Area:         codec.Round8(area),
		MeanEvidence: codec.Round8(meanEvidence),
	}
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (r OverlayRegion) ToDict() map[string]any {
	return map[string]any{
		"area":          r.Area,
		"mean_evidence": r.MeanEvidence,
		"region_id":     r.RegionID,
		"x_max":         r.XMax,
		"x_min":         r.XMin,
		"y_max":         r.YMax,
		"y_min":         r.YMin,
	}
}

// OverlaySection is the evidence overlay report section.
type OverlaySection struct {
	ImageWidth        int
	ImageHeight       int
	Regions           []OverlayRegion
	TotalEvidenceArea float64
}

// NewOverlaySection constructs an OverlaySection, rounding
// TotalEvidenceArea.
func NewOverlaySection(imageWidth, imageHeight int, regions []OverlayRegion, totalEvidenceArea float64) OverlaySection {
	return OverlaySection{
		ImageWidth:        imageWidth,
		ImageHeight:       imageHeight,
		Regions:           regions,
		TotalEvidenceArea: codec.Round8(totalEvidenceArea),
	}
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (s OverlaySection) ToDict() map[string]any {
	regions := make([]map[string]any, len(s.Regions))
	for i, r := range s.Regions {
		regions[i] = r.ToDict()
	}
	return map[string]any{
		"image_height":        s.ImageHeight,
		"image_width":         s.ImageWidth,
		"regions":             regions,
		"total_evidence_area": s.TotalEvidenceArea,
	}
}

// ProbeResult is one counterfactual probe grid cell.
type ProbeResult struct {
	Row         int
	Col         int
	DeltaESI    float64
	DeltaDrift  float64
	MaskedESI   float64
	MaskedDrift float64
}

// NewProbeResult constructs a ProbeResult, rounding every float
// field.
func NewProbeResult(row, col int, deltaESI, deltaDrift, maskedESI, maskedDrift float64) ProbeResult {
	return ProbeResult{
		Row:         row,
		Col:         col,
		DeltaESI:    codec.Round8(deltaESI),
		DeltaDrift:  codec.Round8(deltaDrift),
		MaskedESI:   codec.Round8(maskedESI),
		MaskedDrift: codec.Round8(maskedDrift),
	}
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (p ProbeResult) ToDict() map[string]any {
	return map[string]any{
		"col":          p.Col,
		"delta_drift":  p.DeltaDrift,
		"delta_esi":    p.DeltaESI,
		"masked_drift": p.MaskedDrift,
		"masked_esi":   p.MaskedESI,
		"row":          p.Row,
	}
}

// ProbeSurfaceSection is the counterfactual probe-grid report
// section.
type ProbeSurfaceSection struct {
	GridSize           int
	TotalProbes        int
	MeanDeltaESI       float64
	MeanDeltaDrift     float64
	VarianceDeltaESI   float64
	VarianceDeltaDrift float64
	Probes             []ProbeResult
}

// NewProbeSurfaceSection constructs a ProbeSurfaceSection, rounding
// its scalar fields.
func NewProbeSurfaceSection(gridSize, totalProbes int, meanDeltaESI, meanDeltaDrift, varianceDeltaESI, varianceDeltaDrift float64, probes []ProbeResult) ProbeSurfaceSection {
	return ProbeSurfaceSection{
		GridSize:           gridSize,
		TotalProbes:        totalProbes,
		MeanDeltaESI:       codec.Round8(meanDeltaESI),
		MeanDeltaDrift:     codec.Round8(meanDeltaDrift),
		VarianceDeltaESI:   codec.Round8(varianceDeltaESI),
		VarianceDeltaDrift: codec.Round8(varianceDeltaDrift),
		Probes:             probes,
	}
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (s ProbeSurfaceSection) ToDict() map[string]any {
	probes := make([]map[string]any, len(s.Probes))
	for i, p := range s.Probes {
		probes[i] = p.ToDict()
	}
	return map[string]any{
		"grid_size":            s.GridSize,
		"mean_delta_drift":     s.MeanDeltaDrift,
		"mean_delta_esi":       s.MeanDeltaESI,
		"probes":               probes,
		"total_probes":         s.TotalProbes,
		"variance_delta_drift": s.VarianceDeltaDrift,
		"variance_delta_esi":   s.VarianceDeltaESI,
	}
}

// Section is a generic key-value report section (used for the
// reproducibility block).
type Section struct {
	SectionID string
	Title     string
	Content   [][2]string
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (s Section) ToDict() map[string]any {
	content := make(map[string]any, len(s.Content))
	for _, kv := range s.Content {
		content[kv[0]] = kv[1]
	}
	return map[string]any{
		"content":    content,
		"section_id": s.SectionID,
		"title":      s.Title,
	}
}

// Report is the top-level CLARITY report container.
type Report struct {
	Metadata           Metadata
	Metrics            Metrics
	RobustnessSurfaces []RobustnessSurface
	OverlaySection     OverlaySection
	ProbeSurface       ProbeSurfaceSection
	Reproducibility    Section
}

// ToDict returns an alphabetically-keyed map for canonical encoding.
func (r Report) ToDict() map[string]any {
	surfaces := make([]map[string]any, len(r.RobustnessSurfaces))
	for i, s := range r.RobustnessSurfaces {
		surfaces[i] = s.ToDict()
	}
	return map[string]any{
		"metadata":            r.Metadata.ToDict(),
		"metrics":             r.Metrics.ToDict(),
		"overlay_section":     r.OverlaySection.ToDict(),
		"probe_surface":       r.ProbeSurface.ToDict(),
		"reproducibility":     r.Reproducibility.ToDict(),
		"robustness_surfaces": surfaces,
	}
}
