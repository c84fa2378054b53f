package conformance

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/m-cahill/clarity/internal/cache"
	"github.com/m-cahill/clarity/internal/codec"
	"github.com/m-cahill/clarity/internal/counterfactual"
	"github.com/m-cahill/clarity/internal/evidence"
	"github.com/m-cahill/clarity/internal/gradient"
	"github.com/m-cahill/clarity/internal/metrics"
	"github.com/m-cahill/clarity/internal/runner"
	"github.com/m-cahill/clarity/internal/sweep"
	"github.com/m-cahill/clarity/internal/surface"
)

// scratchDir creates a throwaway directory for a scenario run and
// returns a cleanup func. Scenarios that shell out to a fake runner or
// touch a filesystem cache need real paths; fixtures carry the data,
// not the scratch mechanics.
func scratchDir(result *TestResult) (string, func(), error) {
	dir, err := os.MkdirTemp("", "clarity-conformance-*")
	if err != nil {
		result.addError("failed to create scratch dir: %v", err)
		return "", func() {}, err
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// --- Scenario A: minimal sweep manifest ---

type scenarioAInput struct {
	Axes    map[string][]float64 `json:"axes"`
	Seeds   []int                `json:"seeds"`
	Adapter string               `json:"adapter"`
}

type scenarioAExpected struct {
	RunDirectories  []string `json:"run_directories"`
	ManifestKeys    []string `json:"manifest_keys"`
	ManifestHashLen int      `json:"manifest_hash_length"`
}

func writeFakeRunnerScript(dir string) (string, error) {
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
		return "", err
	}
	return script, nil
}

func runScenarioA(fixture *Fixture, result *TestResult) {
	var in scenarioAInput
	if err := json.Unmarshal(fixture.Input, &in); err != nil {
		result.addError("bad scenario A input: %v", err)
		return
	}
	var want scenarioAExpected
	if err := json.Unmarshal(fixture.Expected, &want); err != nil {
		result.addError("bad scenario A expected: %v", err)
		return
	}

	dir, cleanup, err := scratchDir(result)
	if err != nil {
		return
	}
	defer cleanup()

	script, err := writeFakeRunnerScript(dir)
	if err != nil {
		result.addError("failed to write fake runner: %v", err)
		return
	}
	r, err := runner.New(script, 5*time.Second)
	if err != nil {
		result.addError("runner.New() error: %v", err)
		return
	}

	specPath := filepath.Join(dir, "base_spec.json")
	if err := os.WriteFile(specPath, []byte(`{"prompt":"hi"}`), 0o644); err != nil {
		result.addError("failed to write base spec: %v", err)
		return
	}

	outputRoot := filepath.Join(dir, "sweep_out")
	orch, err := sweep.New(r, outputRoot)
	if err != nil {
		result.addError("sweep.New() error: %v", err)
		return
	}

	axes := make([]sweep.Axis, 0, len(in.Axes))
	for name, values := range in.Axes {
		anyValues := make([]any, len(values))
		for i, v := range values {
			anyValues[i] = v
		}
		axes = append(axes, sweep.Axis{Name: name, Values: anyValues})
	}

	cfg := sweep.Config{BaseSpecPath: specPath, Axes: axes, Seeds: in.Seeds, Adapter: in.Adapter}
	sweepResult, err := orch.Execute(context.Background(), cfg)
	if err != nil {
		result.addError("Execute() error: %v", err)
		return
	}

	gotDirs := make(map[string]bool, len(sweepResult.Runs))
	for _, run := range sweepResult.Runs {
		gotDirs[filepath.Base(run.OutputDir)] = true
	}
	for _, wantDir := range want.RunDirectories {
		if !gotDirs[wantDir] {
			result.addError("missing expected run directory %q", wantDir)
		}
	}

	manifestBytes, err := os.ReadFile(sweepResult.SweepManifestPath)
	if err != nil {
		result.addError("failed to read sweep manifest: %v", err)
		return
	}
	var manifest map[string]any
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		result.addError("failed to parse sweep manifest: %v", err)
		return
	}
	for _, key := range want.ManifestKeys {
		if _, ok := manifest[key]; !ok {
			result.addError("sweep manifest missing key %q", key)
		}
	}

	runs, _ := manifest["runs"].([]any)
	for i, raw := range runs {
		record, _ := raw.(map[string]any)
		hash, _ := record["manifest_hash"].(string)
		if len(hash) != want.ManifestHashLen {
			result.addError("run %d manifest_hash length = %d, want %d", i, len(hash), want.ManifestHashLen)
		}
	}
	result.Details["runs_executed"] = len(runs)
}

// --- Scenario B: ESI and drift buckets ---

type scenarioBInput struct {
	Axis           string   `json:"axis"`
	Values         []string `json:"values"`
	EncodedValues  []string `json:"encoded_values"`
	Seed           int      `json:"seed"`
	Answers        []string `json:"answers"`
	Justifications []string `json:"justifications"`
}

type scenarioBExpected struct {
	ESIValueScores   map[string]float64 `json:"esi_value_scores"`
	ESIOverall       float64            `json:"esi_overall"`
	DriftValueScores map[string]float64 `json:"drift_value_scores"`
	DriftOverall     float64            `json:"drift_overall"`
}

func runScenarioB(fixture *Fixture, result *TestResult) {
	var in scenarioBInput
	if err := json.Unmarshal(fixture.Input, &in); err != nil {
		result.addError("bad scenario B input: %v", err)
		return
	}
	var want scenarioBExpected
	if err := json.Unmarshal(fixture.Expected, &want); err != nil {
		result.addError("bad scenario B expected: %v", err)
		return
	}
	if len(in.Values) != len(in.Answers) || len(in.Values) != len(in.Justifications) {
		result.addError("scenario B input arrays must be the same length")
		return
	}

	dir, cleanup, err := scratchDir(result)
	if err != nil {
		return
	}
	defer cleanup()

	runsDir := filepath.Join(dir, "runs")
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		result.addError("failed to create runs dir: %v", err)
		return
	}

	runRecords := make([]any, 0, len(in.Values))
	axisFloats := make([]any, 0, len(in.Values))
	for i, v := range in.Values {
		var axisValue float64
		if _, err := fmt.Sscanf(v, "%g", &axisValue); err != nil {
			result.addError("axis value %q is not numeric: %v", v, err)
			return
		}
		axisValues := map[string]any{in.Axis: axisValue}
		dirName := codec.BuildRunDirectoryName(axisValues, in.Seed)
		runDir := filepath.Join(runsDir, dirName)
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			result.addError("failed to create run dir: %v", err)
			return
		}
		trace := fmt.Sprintf(`{"step":1,"output":%q,"justification":%q}`+"\n", in.Answers[i], in.Justifications[i])
		if err := os.WriteFile(filepath.Join(runDir, "trace_pack.jsonl"), []byte(trace), 0o644); err != nil {
			result.addError("failed to write trace pack: %v", err)
			return
		}
		runRecords = append(runRecords, map[string]any{
			"axis_values":   axisValues,
			"seed":          float64(in.Seed),
			"manifest_hash": fmt.Sprintf("h%d", i),
		})
		axisFloats = append(axisFloats, axisValue)
	}

	manifest := map[string]any{
		"axes":  map[string]any{in.Axis: axisFloats},
		"seeds": []any{float64(in.Seed)},
		"runs":  runRecords,
	}
	manifestBytes, err := codec.Encode(manifest)
	if err != nil {
		result.addError("failed to encode sweep manifest: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "sweep_manifest.json"), manifestBytes, 0o644); err != nil {
		result.addError("failed to write sweep manifest: %v", err)
		return
	}

	computed, err := metrics.Compute(dir, false)
	if err != nil {
		result.addError("metrics.Compute() error: %v", err)
		return
	}
	if len(computed.ESI) != 1 || len(computed.Drift) != 1 {
		result.addError("expected exactly one ESI/Drift axis, got %d/%d", len(computed.ESI), len(computed.Drift))
		return
	}

	esi := computed.ESI[0]
	for key, wantVal := range want.ESIValueScores {
		if got := esi.ValueScores[key]; got != wantVal {
			result.addError("ESI[%s] = %v, want %v", key, got, wantVal)
		}
	}
	if esi.OverallScore != want.ESIOverall {
		result.addError("overall ESI = %v, want %v", esi.OverallScore, want.ESIOverall)
	}

	drift := computed.Drift[0]
	for key, wantVal := range want.DriftValueScores {
		if got := drift.ValueScores[key]; got != wantVal {
			result.addError("Drift[%s] = %v, want %v", key, got, wantVal)
		}
	}
	if drift.OverallScore != want.DriftOverall {
		result.addError("overall drift = %v, want %v", drift.OverallScore, want.DriftOverall)
	}
}

// --- Scenario C: gradient central difference ---

type scenarioCInput struct {
	Axis string    `json:"axis"`
	ESI  []float64 `json:"esi"`
}

type scenarioCExpected struct {
	Gradients []float64 `json:"gradients"`
	Mean      float64   `json:"mean"`
	Max       float64   `json:"max"`
}

func runScenarioC(fixture *Fixture, result *TestResult) {
	var in scenarioCInput
	if err := json.Unmarshal(fixture.Input, &in); err != nil {
		result.addError("bad scenario C input: %v", err)
		return
	}
	var want scenarioCExpected
	if err := json.Unmarshal(fixture.Expected, &want); err != nil {
		result.addError("bad scenario C expected: %v", err)
		return
	}

	points := make([]surface.Point, 0, len(in.ESI))
	for i, v := range in.ESI {
		points = append(points, surface.Point{Axis: in.Axis, Value: fmt.Sprintf("v%d", i), ESI: v, Drift: 0.0})
	}
	s := &surface.Surface{Axes: []surface.AxisSurface{{Axis: in.Axis, Points: points}}}

	g, err := gradient.Compute(s)
	if err != nil {
		result.addError("gradient.Compute() error: %v", err)
		return
	}
	if len(g.Axes) != 1 {
		result.addError("expected 1 gradient axis, got %d", len(g.Axes))
		return
	}
	axis := g.Axes[0]
	if len(axis.Gradients) != len(want.Gradients) {
		result.addError("expected %d gradient points, got %d", len(want.Gradients), len(axis.Gradients))
		return
	}
	for i, point := range axis.Gradients {
		if point.DESI != want.Gradients[i] {
			result.addError("gradient[%d] = %v, want %v", i, point.DESI, want.Gradients[i])
		}
	}
	if axis.MeanAbsESIGradient != want.Mean {
		result.addError("mean abs esi gradient = %v, want %v", axis.MeanAbsESIGradient, want.Mean)
	}
	if axis.MaxAbsESIGradient != want.Max {
		result.addError("max abs esi gradient = %v, want %v", axis.MaxAbsESIGradient, want.Max)
	}
}

// --- Scenario D: region extraction ---

type scenarioDInput struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Values    [][]float64 `json:"values"`
	Threshold float64     `json:"threshold"`
}

type scenarioDExpected struct {
	RegionCount int     `json:"region_count"`
	RegionID    string  `json:"region_id"`
	XMin        float64 `json:"x_min"`
	YMin        float64 `json:"y_min"`
	XMax        float64 `json:"x_max"`
	YMax        float64 `json:"y_max"`
	Area        float64 `json:"area"`
}

func runScenarioD(fixture *Fixture, result *TestResult) {
	var in scenarioDInput
	if err := json.Unmarshal(fixture.Input, &in); err != nil {
		result.addError("bad scenario D input: %v", err)
		return
	}
	var want scenarioDExpected
	if err := json.Unmarshal(fixture.Expected, &want); err != nil {
		result.addError("bad scenario D expected: %v", err)
		return
	}

	h := &evidence.Heatmap{Width: in.Width, Height: in.Height, Values: in.Values}
	regions, err := evidence.ExtractRegions(h, in.Threshold)
	if err != nil {
		result.addError("ExtractRegions() error: %v", err)
		return
	}
	if len(regions) != want.RegionCount {
		result.addError("expected %d regions, got %d", want.RegionCount, len(regions))
		return
	}
	if want.RegionCount == 0 {
		return
	}
	r := regions[0]
	if r.RegionID != want.RegionID {
		result.addError("region id = %q, want %q", r.RegionID, want.RegionID)
	}
	if r.XMin != want.XMin || r.YMin != want.YMin || r.XMax != want.XMax || r.YMax != want.YMax {
		result.addError("bounding box = (%v,%v,%v,%v), want (%v,%v,%v,%v)", r.XMin, r.YMin, r.XMax, r.YMax, want.XMin, want.YMin, want.XMax, want.YMax)
	}
	if r.Area != want.Area {
		result.addError("area = %v, want %v", r.Area, want.Area)
	}
}

// --- Scenario E: counterfactual probe determinism ---

type scenarioEInput struct {
	GridSize int    `json:"grid_size"`
	Axis     string `json:"axis"`
	Value    string `json:"value"`
}

type scenarioEExpected struct {
	ProbeCount int `json:"probe_count"`
}

func writeCounterfactualFixtures(dir string) error {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, "baseline.png"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}

	spec := `{"prompt":"describe the finding","axis":"brightness","values":["1p0"],"expected_answer":"Normal findings.","expected_justification":"No abnormalities detected.","seed":42}`
	if err := os.WriteFile(filepath.Join(dir, "baseline.json"), []byte(spec), 0o644); err != nil {
		return err
	}
	registry := `{"baselines":{"scenario-e":{"spec_file":"baseline.json","image_file":"baseline.png"}}}`
	return os.WriteFile(filepath.Join(dir, "registry.json"), []byte(registry), 0o644)
}

func runScenarioE(fixture *Fixture, result *TestResult) {
	var in scenarioEInput
	if err := json.Unmarshal(fixture.Input, &in); err != nil {
		result.addError("bad scenario E input: %v", err)
		return
	}
	var want scenarioEExpected
	if err := json.Unmarshal(fixture.Expected, &want); err != nil {
		result.addError("bad scenario E expected: %v", err)
		return
	}

	dir, cleanup, err := scratchDir(result)
	if err != nil {
		return
	}
	defer cleanup()

	if err := writeCounterfactualFixtures(dir); err != nil {
		result.addError("failed to write counterfactual fixtures: %v", err)
		return
	}

	runOnce := func() (*counterfactual.OrchestratorResult, error) {
		orch := counterfactual.NewOrchestrator(counterfactual.NewStubbedRunner(), dir)
		return orch.Run("scenario-e", in.GridSize, in.Axis, in.Value)
	}

	first, err := runOnce()
	if err != nil {
		result.addError("first Run() error: %v", err)
		return
	}
	second, err := runOnce()
	if err != nil {
		result.addError("second Run() error: %v", err)
		return
	}

	if len(first.ProbeSurface.Results) != want.ProbeCount {
		result.addError("expected %d probe results, got %d", want.ProbeCount, len(first.ProbeSurface.Results))
	}
	if len(first.ProbeSurface.Results) != len(second.ProbeSurface.Results) {
		result.addError("probe result counts diverged across runs: %d vs %d", len(first.ProbeSurface.Results), len(second.ProbeSurface.Results))
		return
	}
	for i := range first.ProbeSurface.Results {
		if first.ProbeSurface.Results[i] != second.ProbeSurface.Results[i] {
			result.addError("probe result %d diverged across runs: %+v vs %+v", i, first.ProbeSurface.Results[i], second.ProbeSurface.Results[i])
		}
	}
	firstBytes, err1 := json.Marshal(first.ProbeSurface)
	secondBytes, err2 := json.Marshal(second.ProbeSurface)
	if err1 == nil && err2 == nil && string(firstBytes) != string(secondBytes) {
		result.addError("probe surface JSON diverged across runs")
	}
}

// --- Scenario F: cache concurrency ---

type scenarioFInput struct {
	Key           string `json:"key"`
	Extension     string `json:"extension"`
	ConcurrentGen int    `json:"concurrent_generators"`
}

type scenarioFExpected struct {
	GeneratorInvocations int `json:"generator_invocations"`
}

func runScenarioF(fixture *Fixture, result *TestResult) {
	var in scenarioFInput
	if err := json.Unmarshal(fixture.Input, &in); err != nil {
		result.addError("bad scenario F input: %v", err)
		return
	}
	var want scenarioFExpected
	if err := json.Unmarshal(fixture.Expected, &want); err != nil {
		result.addError("bad scenario F expected: %v", err)
		return
	}

	dir, cleanup, err := scratchDir(result)
	if err != nil {
		return
	}
	defer cleanup()

	manager := cache.NewManager(dir, 5*time.Second, nil)

	var invocations int32
	payload := []byte("scenario-f-payload")
	generator := func() ([]byte, error) {
		atomic.AddInt32(&invocations, 1)
		return payload, nil
	}

	type callResult struct {
		data []byte
		err  error
	}
	results := make(chan callResult, in.ConcurrentGen)
	for i := 0; i < in.ConcurrentGen; i++ {
		go func() {
			data, err := manager.GetOrCreate(in.Key, in.Extension, generator)
			results <- callResult{data: data, err: err}
		}()
	}

	var first []byte
	for i := 0; i < in.ConcurrentGen; i++ {
		r := <-results
		if r.err != nil {
			result.addError("GetOrCreate() call %d error: %v", i, r.err)
			continue
		}
		if first == nil {
			first = r.data
		} else if string(first) != string(r.data) {
			result.addError("GetOrCreate() returned divergent bytes across calls")
		}
	}

	if final := atomic.LoadInt32(&invocations); int(final) != want.GeneratorInvocations {
		result.addError("generator invoked %d times, want exactly %d", final, want.GeneratorInvocations)
	}

	stored, found, err := manager.Get(in.Key, in.Extension)
	if err != nil {
		result.addError("Get() error: %v", err)
		return
	}
	if !found {
		result.addError("expected cache entry to exist after GetOrCreate")
		return
	}
	if string(stored) != string(payload) {
		result.addError("stored cache entry does not match generated payload")
	}
}
