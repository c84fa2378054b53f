package sweep

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/runner"
)

func writeFakeRunner(t *testing.T, dir string) string {
	t.Helper()
	script := filepath.Join(dir, "fake_r2l.sh")
	body := "#!/bin/sh\n" +
		"out=\"\"\n" +
		"while [ \"$#\" -gt 0 ]; do\n" +
		"  if [ \"$1\" = \"--output\" ]; then shift; out=\"$1\"; fi\n" +
		"  shift\n" +
		"done\n" +
		"echo '{\"run_id\":\"r\",\"timestamp\":\"2024-01-01T00:00:00Z\",\"seed\":1,\"artifacts\":[]}' > \"$out/manifest.json\"\n" +
		"echo '{\"step\":1,\"output\":\"ok\"}' > \"$out/trace_pack.jsonl\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}

func TestExecuteCartesianProduct(t *testing.T) {
	tmp := t.TempDir()
	script := writeFakeRunner(t, tmp)
	r, err := runner.New(script, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	specPath := filepath.Join(tmp, "base_spec.json")
	if err := os.WriteFile(specPath, []byte(`{"prompt":"hi"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	outputRoot := filepath.Join(tmp, "sweep_out")
	orch, err := New(r, outputRoot)
	if err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		BaseSpecPath: specPath,
		Axes: []Axis{
			{Name: "brightness", Values: []any{0.8, 1.0}},
			{Name: "contrast", Values: []any{0.9}},
		},
		Seeds:   []int{42, 43},
		Adapter: "medgemma",
	}

	result, err := orch.Execute(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Runs) != cfg.TotalRuns() {
		t.Errorf("got %d runs, want %d", len(result.Runs), cfg.TotalRuns())
	}

	b, err := os.ReadFile(result.SweepManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	var manifest map[string]any
	if err := json.Unmarshal(b, &manifest); err != nil {
		t.Fatal(err)
	}
	runsList, ok := manifest["runs"].([]any)
	if !ok || len(runsList) != 4 {
		t.Errorf("manifest runs = %v, want 4 entries", manifest["runs"])
	}
}

func TestExecuteRejectsExistingOutputRoot(t *testing.T) {
	tmp := t.TempDir()
	script := writeFakeRunner(t, tmp)
	r, _ := runner.New(script, time.Second)

	specPath := filepath.Join(tmp, "base_spec.json")
	os.WriteFile(specPath, []byte(`{}`), 0o644)

	outputRoot := filepath.Join(tmp, "existing")
	os.MkdirAll(outputRoot, 0o755)

	orch, _ := New(r, outputRoot)
	cfg := Config{
		BaseSpecPath: specPath,
		Axes:         []Axis{{Name: "brightness", Values: []any{0.8}}},
		Seeds:        []int{1},
		Adapter:      "medgemma",
	}
	_, err := orch.Execute(context.Background(), cfg)
	if !clarityerr.Is(err, clarityerr.CodeOutputCollision) {
		t.Errorf("expected output_collision, got %v", err)
	}
}

func TestExecuteSingleRunAttachesCellOnCollision(t *testing.T) {
	tmp := t.TempDir()
	script := writeFakeRunner(t, tmp)
	r, _ := runner.New(script, time.Second)

	runsDir := filepath.Join(tmp, "runs")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	combo := runCombination{axisValues: map[string]any{"brightness": 0.8}, seed: 7}
	dirName := filepath.Join(runsDir, "brightness=0p8_seed=7")
	if err := os.MkdirAll(dirName, 0o755); err != nil {
		t.Fatal(err)
	}

	orch, _ := New(r, filepath.Join(tmp, "out"))
	_, err := orch.executeSingleRun(context.Background(), Config{Adapter: "medgemma"}, map[string]any{}, combo, runsDir)
	if !clarityerr.Is(err, clarityerr.CodeOutputCollision) {
		t.Fatalf("expected output_collision, got %v", err)
	}
	ce, ok := err.(*clarityerr.Error)
	if !ok || ce.Cell == nil {
		t.Fatalf("expected error to carry cell context, got %v", err)
	}
	if ce.Cell.Seed != 7 || ce.Cell.AxisValues["brightness"] != 0.8 {
		t.Errorf("unexpected cell on error: %+v", ce.Cell)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := Config{Adapter: "x", Seeds: []int{1}}
	if err := cfg.validate(); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input for empty axes, got %v", err)
	}
}

func TestComputeRunCombinationsOrdering(t *testing.T) {
	cfg := Config{
		Axes: []Axis{
			{Name: "z_axis", Values: []any{1.0, 2.0}},
			{Name: "a_axis", Values: []any{"x", "y"}},
		},
		Seeds: []int{1, 2},
	}
	combos := computeRunCombinations(cfg)
	if len(combos) != 8 {
		t.Fatalf("got %d combos, want 8", len(combos))
	}
	if combos[0].axisValues["a_axis"] != "x" || combos[0].axisValues["z_axis"] != 1.0 {
		t.Errorf("unexpected first combo: %+v", combos[0])
	}
	if combos[0].seed != 1 || combos[1].seed != 2 {
		t.Errorf("seeds should vary fastest within a combo: %+v %+v", combos[0], combos[1])
	}
}
