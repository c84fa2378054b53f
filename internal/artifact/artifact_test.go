package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-cahill/clarity/internal/clarityerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifestOK(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "manifest.json", `{"run_id":"r1","timestamp":"2024-01-01T00:00:00Z","seed":42,"artifacts":["a.json"],"extra":"x"}`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.RunID != "r1" || m.Seed != 42 {
		t.Errorf("unexpected manifest: %+v", m)
	}
}

func TestLoadManifestMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "manifest.json", `{"run_id":"r1"}`)
	_, err := LoadManifest(path)
	if !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestLoadManifestNotFound(t *testing.T) {
	_, err := LoadManifest("/nonexistent/manifest.json")
	if !clarityerr.Is(err, clarityerr.CodeArtifactAbsent) {
		t.Errorf("expected artifact_absent, got %v", err)
	}
}

func TestLoadTracePackOK(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trace_pack.jsonl", "{\"step\":1,\"output\":\"hello\"}\n\n{\"step_id\":2,\"justification\":\"because\"}\n")
	records, err := LoadTracePack(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestLoadTracePackMissingStep(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trace_pack.jsonl", `{"output":"hello"}`)
	_, err := LoadTracePack(path)
	if !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestExtractAnswerPrefersOutput(t *testing.T) {
	records := []TraceRecord{{"step": 1.0, "output": "ans1", "answer": "ans2"}}
	got, err := ExtractAnswer(records)
	if err != nil || got != "ans1" {
		t.Errorf("got %q, %v; want ans1", got, err)
	}
}

func TestExtractAnswerFallsBackToAnswer(t *testing.T) {
	records := []TraceRecord{{"step": 1.0, "answer": "ans2"}}
	got, err := ExtractAnswer(records)
	if err != nil || got != "ans2" {
		t.Errorf("got %q, %v; want ans2", got, err)
	}
}

func TestExtractAnswerFails(t *testing.T) {
	records := []TraceRecord{{"step": 1.0}}
	if _, err := ExtractAnswer(records); !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input, got %v", err)
	}
}

func TestExtractJustificationMissing(t *testing.T) {
	records := []TraceRecord{{"step": 1.0}}
	got, err := ExtractJustification(records)
	if err != nil || got != "" {
		t.Errorf("got %q, %v; want empty", got, err)
	}
}

func TestExtractJustificationCoercesNonString(t *testing.T) {
	records := []TraceRecord{{"step": 1.0, "justification": 42.0}}
	got, err := ExtractJustification(records)
	if err != nil || got != "42.0" {
		t.Errorf("got %q, %v; want 42.0", got, err)
	}
}

func TestExtractConfidenceScoreRichSummary(t *testing.T) {
	records := []TraceRecord{{"step": 1.0, "rich_summary": map[string]any{"confidence_score": 0.987654321}}}
	got, ok := ExtractConfidenceScore(records)
	if !ok || got != 0.98765432 {
		t.Errorf("got %v, %v; want 0.98765432, true", got, ok)
	}
}

func TestExtractConfidenceScoreAbsent(t *testing.T) {
	records := []TraceRecord{{"step": 1.0}}
	if _, ok := ExtractConfidenceScore(records); ok {
		t.Error("expected ok=false")
	}
}
