package report

import (
	"testing"
)

func TestMetadataToDictAlphabeticalAndDefaultVersion(t *testing.T) {
	m := NewMetadata("case-1", "Case Report", "2026-01-01T00:00:00Z", "1.0.0", "abc123", "adapter-x", true, "hash0")
	d := m.ToDict()
	if d["serialization_version"] != SerializationVersion {
		t.Errorf("expected default serialization version, got %v", d["serialization_version"])
	}
	if d["case_id"] != "case-1" {
		t.Errorf("unexpected case_id: %v", d["case_id"])
	}
}

func TestMetricsRoundsFloatsAndOmitsAbsentEntropy(t *testing.T) {
	m := NewMetrics(0.123456789, 0.1, 0.5, 0.2, 0.01, 0.02, 0.0, false)
	d := m.ToDict()
	if d["baseline_esi"] != 0.12345679 {
		t.Errorf("expected round8 applied, got %v", d["baseline_esi"])
	}
	if _, ok := d["monte_carlo_entropy"]; ok {
		t.Error("expected monte_carlo_entropy omitted when absent")
	}
}

func TestMetricsIncludesEntropyWhenPresent(t *testing.T) {
	m := NewMetrics(0.5, 0.1, 0.5, 0.2, 0.01, 0.02, 0.987654321, true)
	d := m.ToDict()
	if d["monte_carlo_entropy"] != 0.98765432 {
		t.Errorf("expected rounded entropy, got %v", d["monte_carlo_entropy"])
	}
}

func TestReportToDictNestsAllSections(t *testing.T) {
	r := Report{
		Metadata: NewMetadata("c", "t", "g", "v", "sha", "a", false, "h"),
		Metrics:  NewMetrics(1, 0, 1, 0, 0, 0, 0, false),
		RobustnessSurfaces: []RobustnessSurface{
			NewRobustnessSurface("axis", 1, 0, 0, 0, []SurfacePoint{NewSurfacePoint("axis", "v", 1, 0)}),
		},
		OverlaySection: NewOverlaySection(224, 224, nil, 0),
		ProbeSurface:   NewProbeSurfaceSection(3, 9, 0, 0, 0, 0, nil),
		Reproducibility: Section{SectionID: "repro", Title: "Reproducibility", Content: [][2]string{{"seed", "42"}}},
	}
	d := r.ToDict()
	for _, key := range []string{"metadata", "metrics", "overlay_section", "probe_surface", "reproducibility", "robustness_surfaces"} {
		if _, ok := d[key]; !ok {
			t.Errorf("expected key %q in report dict", key)
		}
	}
}
