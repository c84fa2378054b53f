// Package conformance drives CLARITY's end-to-end testable properties
// from fixture files instead of literals scattered across _test.go
// files. Each fixture names a scenario and carries both the inputs and
// the expected outputs for that scenario; the Runner dispatches to the
// package (sweep, metrics, gradient, evidence, counterfactual, cache)
// that actually implements the behavior being checked, so a fixture
// failure points at a real regression rather than a harness bug.
package conformance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Fixture is one golden scenario loaded from testdata/fixtures.
type Fixture struct {
	Scenario    string          `json:"scenario"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Input       json.RawMessage `json:"input"`
	Expected    json.RawMessage `json:"expected"`
}

// TestResult is the outcome of running one fixture.
type TestResult struct {
	FixtureName string         `json:"fixture_name"`
	Scenario    string         `json:"scenario"`
	Passed      bool           `json:"passed"`
	Errors      []string       `json:"errors,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

func (r *TestResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Passed = false
}

// Runner loads and executes fixtures from a directory.
type Runner struct {
	FixturesDir string
}

// NewRunner creates a Runner rooted at fixturesDir.
func NewRunner(fixturesDir string) *Runner {
	return &Runner{FixturesDir: fixturesDir}
}

// LoadFixture loads a fixture by name (without the .json extension).
func (r *Runner) LoadFixture(name string) (*Fixture, error) {
	path := filepath.Join(r.FixturesDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture %s: %w", name, err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", name, err)
	}
	return &fixture, nil
}

// ListFixtures returns every fixture name available under FixturesDir.
func (r *Runner) ListFixtures() ([]string, error) {
	entries, err := os.ReadDir(r.FixturesDir)
	if err != nil {
		return nil, err
	}

	var fixtures []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			name := entry.Name()
			fixtures = append(fixtures, name[:len(name)-len(".json")])
		}
	}
	return fixtures, nil
}

// RunConformanceTest dispatches a loaded fixture to its scenario
// executor and returns the result.
func (r *Runner) RunConformanceTest(fixture *Fixture) *TestResult {
	result := &TestResult{
		FixtureName: fixture.Name,
		Scenario:    fixture.Scenario,
		Passed:      true,
		Details:     make(map[string]any),
	}

	switch fixture.Scenario {
	case "A":
		runScenarioA(fixture, result)
	case "B":
		runScenarioB(fixture, result)
	case "C":
		runScenarioC(fixture, result)
	case "D":
		runScenarioD(fixture, result)
	case "E":
		runScenarioE(fixture, result)
	case "F":
		runScenarioF(fixture, result)
	default:
		result.addError("unknown scenario %q", fixture.Scenario)
	}
	return result
}

// RunAll loads and runs every fixture under FixturesDir.
func (r *Runner) RunAll() ([]*TestResult, error) {
	names, err := r.ListFixtures()
	if err != nil {
		return nil, err
	}

	results := make([]*TestResult, 0, len(names))
	for _, name := range names {
		fixture, err := r.LoadFixture(name)
		if err != nil {
			results = append(results, &TestResult{FixtureName: name, Passed: false, Errors: []string{err.Error()}})
			continue
		}
		results = append(results, r.RunConformanceTest(fixture))
	}
	return results, nil
}
