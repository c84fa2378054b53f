package counterfactual

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-cahill/clarity/internal/clarityerr"
)

func writeTestFixtures(t *testing.T, dir string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, "baseline.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	spec := `{"prompt":"describe the finding","axis":"brightness","values":["1p0"],"expected_answer":"Normal findings.","expected_justification":"No abnormalities detected.","seed":42}`
	if err := os.WriteFile(filepath.Join(dir, "baseline.json"), []byte(spec), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := `{"baselines":{"test-baseline-001":{"spec_file":"baseline.json","image_file":"baseline.png"}}}`
	if err := os.WriteFile(filepath.Join(dir, "registry.json"), []byte(registry), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOrchestratorRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeTestFixtures(t, dir)

	runner := NewStubbedRunner()
	orch := NewOrchestrator(runner, dir)

	result, err := orch.Run("test-baseline-001", 3, "brightness", "1p0")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.ProbeSurface.Results) != 9 {
		t.Fatalf("expected 9 probe results for a 3x3 grid, got %d", len(result.ProbeSurface.Results))
	}
	// grid_size^2 masked runs + 1 baseline run
	if runner.CallCount() != 10 {
		t.Errorf("expected 10 runner invocations, got %d", runner.CallCount())
	}
	if result.OverlayBundle == nil {
		t.Fatal("expected overlay bundle to be populated")
	}
}

func TestOrchestratorRunIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeTestFixtures(t, dir)

	runFirst := func() *OrchestratorResult {
		orch := NewOrchestrator(NewStubbedRunner(), dir)
		result, err := orch.Run("test-baseline-001", 3, "brightness", "1p0")
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return result
	}

	a := runFirst()
	b := runFirst()

	if a.ProbeSurface.MeanAbsDeltaESI != b.ProbeSurface.MeanAbsDeltaESI {
		t.Errorf("expected deterministic mean abs delta esi, got %v vs %v", a.ProbeSurface.MeanAbsDeltaESI, b.ProbeSurface.MeanAbsDeltaESI)
	}
	for i := range a.ProbeSurface.Results {
		if a.ProbeSurface.Results[i] != b.ProbeSurface.Results[i] {
			t.Fatalf("result %d diverged across runs: %+v vs %+v", i, a.ProbeSurface.Results[i], b.ProbeSurface.Results[i])
		}
	}
}

func TestOrchestratorRejectsUnknownBaseline(t *testing.T) {
	dir := t.TempDir()
	writeTestFixtures(t, dir)

	orch := NewOrchestrator(NewStubbedRunner(), dir)
	if _, err := orch.Run("does-not-exist", 3, "brightness", "1p0"); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestOrchestratorRejectsInvalidGridSize(t *testing.T) {
	dir := t.TempDir()
	writeTestFixtures(t, dir)

	orch := NewOrchestrator(NewStubbedRunner(), dir)
	if _, err := orch.Run("test-baseline-001", 0, "brightness", "1p0"); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestListAvailableBaselines(t *testing.T) {
	dir := t.TempDir()
	writeTestFixtures(t, dir)

	orch := NewOrchestrator(NewStubbedRunner(), dir)
	baselines := orch.ListAvailableBaselines()
	if len(baselines) != 1 || baselines[0] != "test-baseline-001" {
		t.Errorf("unexpected baselines: %v", baselines)
	}
}
