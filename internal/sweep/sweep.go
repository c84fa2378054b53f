// Package sweep implements the deterministic multi-axis perturbation
// sweep engine (spec §4.5): Cartesian product of
// axes × seeds, sequential execution only, fresh output directories,
// and the canonical sweep_manifest.json on disk.
package sweep

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/m-cahill/clarity/internal/artifact"
	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
	"github.com/m-cahill/clarity/internal/runner"
)

var axisNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Axis is a single named perturbation dimension with its declared
// values, in the order they should be iterated.
type Axis struct {
	Name   string
	Values []any
}

func (a Axis) validate() error {
	if a.Name == "" {
		return clarityerr.New(clarityerr.CodeInvalidInput, "axis name must not be empty")
	}
	if !axisNamePattern.MatchString(a.Name) {
		return clarityerr.New(clarityerr.CodeInvalidInput,
			"axis name must be alphanumeric with underscores, starting with a letter: %q", a.Name).WithAxis(a.Name)
	}
	if len(a.Values) == 0 {
		return clarityerr.New(clarityerr.CodeInvalidInput, "axis %q must have at least one value", a.Name).WithAxis(a.Name)
	}
	return nil
}

// Config describes one sweep to execute.
type Config struct {
	BaseSpecPath string
	Axes         []Axis
	Seeds        []int
	Adapter      string
}

func (c Config) validate() error {
	if len(c.Axes) == 0 {
		return clarityerr.New(clarityerr.CodeInvalidInput, "axes must not be empty")
	}
	seen := map[string]bool{}
	for _, a := range c.Axes {
		if err := a.validate(); err != nil {
			return err
		}
		if seen[a.Name] {
			return clarityerr.New(clarityerr.CodeInvalidInput, "duplicate axis name %q", a.Name).WithAxis(a.Name)
		}
		seen[a.Name] = true
	}
	if len(c.Seeds) == 0 {
		return clarityerr.New(clarityerr.CodeInvalidInput, "seeds must not be empty")
	}
	if c.Adapter == "" {
		return clarityerr.New(clarityerr.CodeInvalidInput, "adapter must not be empty")
	}
	return nil
}

// TotalRuns returns the product of every axis's value count times the
// number of seeds.
func (c Config) TotalRuns() int {
	total := 1
	for _, a := range c.Axes {
		total *= len(a.Values)
	}
	return total * len(c.Seeds)
}

// RunRecord is the immutable metadata for one R2L invocation within a
// sweep.
type RunRecord struct {
	AxisValues   map[string]any
	Seed         int
	OutputDir    string
	ManifestHash string
}

// Result is the outcome of a fully executed sweep.
type Result struct {
	Runs               []RunRecord
	SweepManifestPath string
}

// Orchestrator drives one sweep's execution against a fresh
// output_root. Each Orchestrator owns its output_root exclusively, per
// spec §5.
type Orchestrator struct {
	runner     *runner.Runner
	outputRoot string
}

// New constructs an Orchestrator. outputRoot must not already exist.
func New(r *runner.Runner, outputRoot string) (*Orchestrator, error) {
	if r == nil {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "runner must not be nil")
	}
	if outputRoot == "" {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "output_root must not be empty")
	}
	return &Orchestrator{runner: r, outputRoot: outputRoot}, nil
}

type runCombination struct {
	axisValues map[string]any
	seed       int
}

// Execute runs the full Cartesian product of cfg's axes × seeds,
// sequentially, and writes sweep_manifest.json at the end.
func (o *Orchestrator) Execute(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	outputRootAbs, err := filepath.Abs(o.outputRoot)
	if err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "resolving output_root")
	}
	if _, err := os.Stat(outputRootAbs); err == nil {
		return nil, clarityerr.New(clarityerr.CodeOutputCollision,
			"output directory already exists: %s", outputRootAbs).WithPath(outputRootAbs)
	}
	if err := os.MkdirAll(outputRootAbs, 0o755); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "creating output_root").WithPath(outputRootAbs)
	}
	runsDir := filepath.Join(outputRootAbs, "runs")
	if err := os.Mkdir(runsDir, 0o755); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "creating runs dir").WithPath(runsDir)
	}

	baseSpec, err := loadBaseSpec(cfg.BaseSpecPath)
	if err != nil {
		return nil, err
	}

	combos := computeRunCombinations(cfg)

	records := make([]RunRecord, 0, len(combos))
	for _, combo := range combos {
		record, err := o.executeSingleRun(ctx, cfg, baseSpec, combo, runsDir)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	manifestPath, err := writeSweepManifest(cfg, records, outputRootAbs)
	if err != nil {
		return nil, err
	}

	return &Result{Runs: records, SweepManifestPath: manifestPath}, nil
}

func loadBaseSpec(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "base spec not found").WithPath(path)
		}
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "reading base spec").WithPath(path)
	}
	var spec map[string]any
	if err := json.Unmarshal(b, &spec); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "invalid JSON in base spec").WithPath(path)
	}
	return spec, nil
}

// computeRunCombinations returns (axis_values, seed) pairs in
// deterministic order: axes sorted alphabetically by name, values in
// declared order, seeds in declared order.
func computeRunCombinations(cfg Config) []runCombination {
	sortedAxes := make([]Axis, len(cfg.Axes))
	copy(sortedAxes, cfg.Axes)
	sort.Slice(sortedAxes, func(i, j int) bool { return sortedAxes[i].Name < sortedAxes[j].Name })

	axisCombos := [][]any{{}}
	names := make([]string, 0, len(sortedAxes))
	for _, axis := range sortedAxes {
		names = append(names, axis.Name)
		var next [][]any
		for _, combo := range axisCombos {
			for _, v := range axis.Values {
				c := make([]any, len(combo)+1)
				copy(c, combo)
				c[len(combo)] = v
				next = append(next, c)
			}
		}
		axisCombos = next
	}

	var combos []runCombination
	for _, combo := range axisCombos {
		axisValues := make(map[string]any, len(names))
		for i, name := range names {
			axisValues[name] = combo[i]
		}
		for _, seed := range cfg.Seeds {
			combos = append(combos, runCombination{axisValues: axisValues, seed: seed})
		}
	}
	return combos
}

// withCell attaches the cell's axis_values and seed to err so a failed
// sweep cell can be recovered from the error alone (spec §4.5). Every
// error reaching this function originates as a *clarityerr.Error.
func withCell(err error, combo runCombination) error {
	ce, ok := err.(*clarityerr.Error)
	if !ok {
		return err
	}
	return ce.WithCell(combo.axisValues, combo.seed)
}

func (o *Orchestrator) executeSingleRun(ctx context.Context, cfg Config, baseSpec map[string]any, combo runCombination, runsDir string) (RunRecord, error) {
	dirName := codec.BuildRunDirectoryName(combo.axisValues, combo.seed)
	runDir := filepath.Join(runsDir, dirName)

	if err := os.Mkdir(runDir, 0o755); err != nil {
		return RunRecord{}, withCell(clarityerr.Wrap(clarityerr.CodeOutputCollision, err,
			"run directory already exists (collision?)").WithPath(runDir), combo)
	}

	modifiedSpec := make(map[string]any, len(baseSpec)+2)
	for k, v := range baseSpec {
		modifiedSpec[k] = v
	}
	modifiedSpec["perturbations"] = combo.axisValues
	modifiedSpec["seed"] = combo.seed

	specPath := filepath.Join(runDir, "spec.json")
	specBytes, err := codec.Encode(modifiedSpec)
	if err != nil {
		return RunRecord{}, withCell(clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "encoding modified spec").WithPath(specPath), combo)
	}
	if err := os.WriteFile(specPath, specBytes, 0o644); err != nil {
		return RunRecord{}, withCell(clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "writing spec").WithPath(specPath), combo)
	}

	runResult, err := o.runner.Run(ctx, specPath, runDir, cfg.Adapter, &combo.seed)
	if err != nil {
		return RunRecord{}, withCell(err, combo)
	}

	manifestHash, err := artifact.HashArtifact(runResult.ManifestPath)
	if err != nil {
		return RunRecord{}, withCell(err, combo)
	}

	return RunRecord{
		AxisValues:   combo.axisValues,
		Seed:         combo.seed,
		OutputDir:    runDir,
		ManifestHash: manifestHash,
	}, nil
}

func writeSweepManifest(cfg Config, records []RunRecord, outputRoot string) (string, error) {
	sortedAxes := make([]Axis, len(cfg.Axes))
	copy(sortedAxes, cfg.Axes)
	sort.Slice(sortedAxes, func(i, j int) bool { return sortedAxes[i].Name < sortedAxes[j].Name })

	axesDict := make(map[string]any, len(sortedAxes))
	for _, axis := range sortedAxes {
		axesDict[axis.Name] = axis.Values
	}

	runsList := make([]map[string]any, 0, len(records))
	for _, r := range records {
		runsList = append(runsList, map[string]any{
			"axis_values":   r.AxisValues,
			"seed":          r.Seed,
			"manifest_hash": r.ManifestHash,
		})
	}

	manifest := map[string]any{
		"axes":  axesDict,
		"seeds": cfg.Seeds,
		"runs":  runsList,
	}

	manifestPath := filepath.Join(outputRoot, "sweep_manifest.json")
	b, err := codec.Encode(manifest)
	if err != nil {
		return "", clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "encoding sweep manifest")
	}
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return "", clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "writing sweep manifest").WithPath(manifestPath)
	}
	return manifestPath, nil
}
