package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render CLARITY reports as PDF or standalone PNGs",
	}
	cmd.AddCommand(reportPDFCmd(), reportPNGCmd())
	return cmd
}

// reportSpecFile is the on-disk shape clarityctl expects for `report
// pdf`: the already-computed outputs of every earlier pipeline stage,
// assembled by hand or by a wrapping script. It follows report.Report's
// section layout rather than introducing a second report model, with
// three differences: there is no serialization_version (NewMetadata
// sets it), no total_probes (the number of probes given is used), and
// no monte_carlo_present (has_monte_carlo_entropy sets both flags).
type reportSpecFile struct {
	Metadata struct {
		CaseID            string `json:"case_id"`
		Title             string `json:"title"`
		GeneratedAt       string `json:"generated_at"`
		ClarityVersion    string `json:"clarity_version"`
		R2LSHA            string `json:"r2l_sha"`
		AdapterID         string `json:"adapter_id"`
		RichMode          bool   `json:"rich_mode"`
		SweepManifestHash string `json:"sweep_manifest_hash"`
	} `json:"metadata"`
	Metrics struct {
		BaselineESI          float64 `json:"baseline_esi"`
		BaselineDrift        float64 `json:"baseline_drift"`
		GlobalMeanESI        float64 `json:"global_mean_esi"`
		GlobalMeanDrift      float64 `json:"global_mean_drift"`
		GlobalVarianceESI    float64 `json:"global_variance_esi"`
		GlobalVarianceDrift  float64 `json:"global_variance_drift"`
		MonteCarloEntropy    float64 `json:"monte_carlo_entropy"`
		HasMonteCarloEntropy bool    `json:"has_monte_carlo_entropy"`
	} `json:"metrics"`
	RobustnessSurfaces []struct {
		Axis          string  `json:"axis"`
		MeanESI       float64 `json:"mean_esi"`
		MeanDrift     float64 `json:"mean_drift"`
		VarianceESI   float64 `json:"variance_esi"`
		VarianceDrift float64 `json:"variance_drift"`
		Points        []struct {
			Axis  string  `json:"axis"`
			Value string  `json:"value"`
			ESI   float64 `json:"esi"`
			Drift float64 `json:"drift"`
		} `json:"points"`
	} `json:"robustness_surfaces"`
	OverlaySection struct {
		ImageWidth        int     `json:"image_width"`
		ImageHeight       int     `json:"image_height"`
		TotalEvidenceArea float64 `json:"total_evidence_area"`
		Regions           []struct {
			RegionID     string  `json:"region_id"`
			XMin         float64 `json:"x_min"`
			YMin         float64 `json:"y_min"`
			XMax         float64 `json:"x_max"`
			YMax         float64 `json:"y_max"`
			Area         float64 `json:"area"`
			MeanEvidence float64 `json:"mean_evidence"`
		} `json:"regions"`
	} `json:"overlay_section"`
	ProbeSurface struct {
		GridSize             int     `json:"grid_size"`
		MeanDeltaESI         float64 `json:"mean_delta_esi"`
		MeanDeltaDrift       float64 `json:"mean_delta_drift"`
		VarianceDeltaESI     float64 `json:"variance_delta_esi"`
		VarianceDeltaDrift   float64 `json:"variance_delta_drift"`
		Probes               []struct {
			Row            int     `json:"row"`
			Col            int     `json:"col"`
			DeltaESI       float64 `json:"delta_esi"`
			DeltaDrift     float64 `json:"delta_drift"`
			MaskedESI      float64 `json:"masked_esi"`
			MaskedDrift    float64 `json:"masked_drift"`
		} `json:"probes"`
	} `json:"probe_surface"`
	Reproducibility struct {
		SectionID string     `json:"section_id"`
		Title     string     `json:"title"`
		Content   [][2]string `json:"content"`
	} `json:"reproducibility"`
}

func (spec reportSpecFile) toReport() report.Report {
	surfaces := make([]report.RobustnessSurface, len(spec.RobustnessSurfaces))
	for i, s := range spec.RobustnessSurfaces {
		points := make([]report.SurfacePoint, len(s.Points))
		for j, p := range s.Points {
			points[j] = report.NewSurfacePoint(p.Axis, p.Value, p.ESI, p.Drift)
		}
		surfaces[i] = report.NewRobustnessSurface(s.Axis, s.MeanESI, s.MeanDrift, s.VarianceESI, s.VarianceDrift, points)
	}

	regions := make([]report.OverlayRegion, len(spec.OverlaySection.Regions))
	for i, r := range spec.OverlaySection.Regions {
		regions[i] = report.NewOverlayRegion(r.RegionID, r.XMin, r.YMin, r.XMax, r.YMax, r.Area, r.MeanEvidence)
	}

	probes := make([]report.ProbeResult, len(spec.ProbeSurface.Probes))
	for i, p := range spec.ProbeSurface.Probes {
		probes[i] = report.NewProbeResult(p.Row, p.Col, p.DeltaESI, p.DeltaDrift, p.MaskedESI, p.MaskedDrift)
	}

	return report.Report{
		Metadata: report.NewMetadata(
			spec.Metadata.CaseID, spec.Metadata.Title, spec.Metadata.GeneratedAt,
			spec.Metadata.ClarityVersion, spec.Metadata.R2LSHA, spec.Metadata.AdapterID,
			spec.Metadata.RichMode, spec.Metadata.SweepManifestHash,
		),
		Metrics: report.NewMetrics(
			spec.Metrics.BaselineESI, spec.Metrics.BaselineDrift,
			spec.Metrics.GlobalMeanESI, spec.Metrics.GlobalMeanDrift,
			spec.Metrics.GlobalVarianceESI, spec.Metrics.GlobalVarianceDrift,
			spec.Metrics.MonteCarloEntropy, spec.Metrics.HasMonteCarloEntropy,
		),
		RobustnessSurfaces: surfaces,
		OverlaySection: report.NewOverlaySection(
			spec.OverlaySection.ImageWidth, spec.OverlaySection.ImageHeight,
			regions, spec.OverlaySection.TotalEvidenceArea,
		),
		ProbeSurface: report.NewProbeSurfaceSection(
			spec.ProbeSurface.GridSize, len(probes),
			spec.ProbeSurface.MeanDeltaESI, spec.ProbeSurface.MeanDeltaDrift,
			spec.ProbeSurface.VarianceDeltaESI, spec.ProbeSurface.VarianceDeltaDrift,
			probes,
		),
		Reproducibility: report.Section{
			SectionID: spec.Reproducibility.SectionID,
			Title:     spec.Reproducibility.Title,
			Content:   spec.Reproducibility.Content,
		},
	}
}

func reportPDFCmd() *cobra.Command {
	var (
		specFile string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Render a full CLARITY report PDF from an assembled report spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec reportSpecFile
			if err := readJSON(specFile, &spec); err != nil {
				return err
			}
			pdfBytes, err := report.NewPDFRenderer().Render(spec.toReport())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, pdfBytes, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Printf("wrote %s (%s)\n", out, humanize.Bytes(uint64(len(pdfBytes))))
			return nil
		},
	}
	cmd.Flags().StringVar(&specFile, "spec", "", "path to an assembled report spec JSON file")
	cmd.Flags().StringVar(&out, "out", "", "output PDF path")
	cmd.MarkFlagRequired("spec")
	cmd.MarkFlagRequired("out")
	return cmd
}

func reportPNGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "png",
		Short: "Render a single overlay/surface/probe PNG",
	}
	cmd.AddCommand(reportPNGHeatmapCmd(), reportPNGSurfaceCmd(), reportPNGProbeCmd())
	return cmd
}

func reportPNGHeatmapCmd() *cobra.Command {
	var mapFile, out string
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Rasterize a normalized evidence heatmap to PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			var hm evidenceMapFile
			if err := readJSON(mapFile, &hm); err != nil {
				return err
			}
			b, err := report.RenderHeatmapPNG(hm.Values, hm.Width, hm.Height)
			if err != nil {
				return err
			}
			return writePNGFile(out, b)
		},
	}
	cmd.Flags().StringVar(&mapFile, "map-file", "", "path to a normalized heatmap JSON file {width,height,values}")
	cmd.Flags().StringVar(&out, "out", "", "output PNG path")
	cmd.MarkFlagRequired("map-file")
	cmd.MarkFlagRequired("out")
	return cmd
}

type surfaceAxisFile struct {
	Axis   string `json:"axis"`
	Points []struct {
		Axis  string  `json:"axis"`
		Value string  `json:"value"`
		ESI   float64 `json:"esi"`
		Drift float64 `json:"drift"`
	} `json:"points"`
}

func reportPNGSurfaceCmd() *cobra.Command {
	var (
		surfaceFile   string
		width, height int
		out           string
	)
	cmd := &cobra.Command{
		Use:   "surface",
		Short: "Rasterize per-axis ESI points into a grid PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			var axesFile []surfaceAxisFile
			if err := readJSON(surfaceFile, &axesFile); err != nil {
				return err
			}
			axes := make([]report.SurfaceAxis, len(axesFile))
			for i, a := range axesFile {
				points := make([]report.SurfacePoint, len(a.Points))
				for j, p := range a.Points {
					points[j] = report.NewSurfacePoint(p.Axis, p.Value, p.ESI, p.Drift)
				}
				axes[i] = report.SurfaceAxis{Axis: a.Axis, Points: points}
			}
			b, err := report.RenderSurfacePNG(axes, width, height)
			if err != nil {
				return err
			}
			return writePNGFile(out, b)
		},
	}
	cmd.Flags().StringVar(&surfaceFile, "surface-file", "", "path to a JSON array of {axis, points[]}")
	cmd.Flags().IntVar(&width, "width", 640, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 480, "image height in pixels")
	cmd.Flags().StringVar(&out, "out", "", "output PNG path")
	cmd.MarkFlagRequired("surface-file")
	cmd.MarkFlagRequired("out")
	return cmd
}

type probeResultFile struct {
	Row         int     `json:"row"`
	Col         int     `json:"col"`
	DeltaESI    float64 `json:"delta_esi"`
	DeltaDrift  float64 `json:"delta_drift"`
	MaskedESI   float64 `json:"masked_esi"`
	MaskedDrift float64 `json:"masked_drift"`
}

func reportPNGProbeCmd() *cobra.Command {
	var (
		probeFile     string
		gridSize      int
		width, height int
		out           string
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Rasterize counterfactual probe deltas into a grid PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			var probesFile []probeResultFile
			if err := readJSON(probeFile, &probesFile); err != nil {
				return err
			}
			probes := make([]report.ProbeResult, len(probesFile))
			for i, p := range probesFile {
				probes[i] = report.NewProbeResult(p.Row, p.Col, p.DeltaESI, p.DeltaDrift, p.MaskedESI, p.MaskedDrift)
			}
			b, err := report.RenderProbeGridPNG(probes, gridSize, width, height)
			if err != nil {
				return err
			}
			return writePNGFile(out, b)
		},
	}
	cmd.Flags().StringVar(&probeFile, "probe-file", "", "path to a JSON array of probe results")
	cmd.Flags().IntVar(&gridSize, "grid-size", 3, "probe grid dimension")
	cmd.Flags().IntVar(&width, "width", 640, "image width in pixels")
	cmd.Flags().IntVar(&height, "height", 480, "image height in pixels")
	cmd.Flags().StringVar(&out, "out", "", "output PNG path")
	cmd.MarkFlagRequired("probe-file")
	cmd.MarkFlagRequired("out")
	return cmd
}

func writePNGFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("wrote %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
	return nil
}
