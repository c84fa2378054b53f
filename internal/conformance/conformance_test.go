package conformance

import (
	"testing"
)

const fixturesDir = "../../testdata/fixtures"

func TestRunAllFixturesPass(t *testing.T) {
	r := NewRunner(fixturesDir)
	results, err := r.RunAll()
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 fixtures, got %d", len(results))
	}
	for _, result := range results {
		if !result.Passed {
			t.Errorf("fixture %s (scenario %s) failed: %v", result.FixtureName, result.Scenario, result.Errors)
		}
	}
}

func TestScenarioAMinimalSweepManifest(t *testing.T) {
	runFixtureAndCheck(t, "scenario_a_minimal_sweep")
}

func TestScenarioBESIAndDrift(t *testing.T) {
	runFixtureAndCheck(t, "scenario_b_esi_drift")
}

func TestScenarioCGradientCentralDifference(t *testing.T) {
	runFixtureAndCheck(t, "scenario_c_gradient")
}

func TestScenarioDRegionExtraction(t *testing.T) {
	runFixtureAndCheck(t, "scenario_d_region_extraction")
}

func TestScenarioEProbeDeterminism(t *testing.T) {
	runFixtureAndCheck(t, "scenario_e_probe_determinism")
}

func TestScenarioFCacheConcurrency(t *testing.T) {
	runFixtureAndCheck(t, "scenario_f_cache_concurrency")
}

func runFixtureAndCheck(t *testing.T, name string) {
	t.Helper()
	r := NewRunner(fixturesDir)
	fixture, err := r.LoadFixture(name)
	if err != nil {
		t.Fatalf("LoadFixture(%s) error = %v", name, err)
	}
	result := r.RunConformanceTest(fixture)
	if !result.Passed {
		t.Fatalf("fixture %s failed: %v", name, result.Errors)
	}
}

func TestUnknownScenarioFails(t *testing.T) {
	r := NewRunner(fixturesDir)
	fixture := &Fixture{Scenario: "Z", Name: "bogus"}
	result := r.RunConformanceTest(fixture)
	if result.Passed {
		t.Fatal("expected unknown scenario to fail")
	}
}

func TestListFixturesFindsAllSix(t *testing.T) {
	r := NewRunner(fixturesDir)
	names, err := r.ListFixtures()
	if err != nil {
		t.Fatalf("ListFixtures() error = %v", err)
	}
	if len(names) != 6 {
		t.Fatalf("expected 6 fixture files, got %d: %v", len(names), names)
	}
}
