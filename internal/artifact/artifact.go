// Package artifact loads, validates, and hashes the declared R2L
// output artifacts (manifest.json, trace_pack.jsonl) without ever
// importing an R2L object model (spec §4.4, M03 boundary).
package artifact

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
)

// Manifest is the parsed content of manifest.json. Only the four
// required fields are typed explicitly; the full decoded object,
// additional fields included, is preserved in Raw.
type Manifest struct {
	RunID     string
	Timestamp string
	Seed      int
	Artifacts []string
	Raw       map[string]any
}

var manifestRequiredFields = []string{"run_id", "timestamp", "seed", "artifacts"}

// LoadManifest reads and validates a manifest.json file. Additional
// fields beyond the required set are permitted.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "manifest not found").WithPath(path)
		}
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "reading manifest").WithPath(path)
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "invalid JSON in manifest").WithPath(path)
	}

	var missing []string
	for _, f := range manifestRequiredFields {
		if _, ok := raw[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput,
			"manifest missing required fields %v", missing).WithPath(path)
	}

	m := &Manifest{Raw: raw}
	if s, ok := raw["run_id"].(string); ok {
		m.RunID = s
	}
	if s, ok := raw["timestamp"].(string); ok {
		m.Timestamp = s
	}
	if n, ok := raw["seed"].(float64); ok {
		m.Seed = int(n)
	}
	if arr, ok := raw["artifacts"].([]any); ok {
		for _, a := range arr {
			if s, ok := a.(string); ok {
				m.Artifacts = append(m.Artifacts, s)
			}
		}
	}
	return m, nil
}

// TraceRecord is a single line of trace_pack.jsonl.
type TraceRecord map[string]any

// LoadTracePack reads and validates a trace_pack.jsonl file. Each
// non-empty line must be a JSON object carrying "step" or "step_id".
func LoadTracePack(path string) ([]TraceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "trace pack not found").WithPath(path)
		}
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "opening trace pack").WithPath(path)
	}
	defer f.Close()

	var records []TraceRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record TraceRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err,
				"invalid JSON on line %d", lineNum).WithPath(path)
		}
		_, hasStep := record["step"]
		_, hasStepID := record["step_id"]
		if !hasStep && !hasStepID {
			return nil, clarityerr.New(clarityerr.CodeInvalidInput,
				"trace record missing 'step' or 'step_id' on line %d", lineNum).WithPath(path)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "reading trace pack").WithPath(path)
	}
	return records, nil
}

// HashArtifact computes the SHA-256 hex digest of a file's raw bytes.
func HashArtifact(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "artifact not found").WithPath(path)
		}
		return "", clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "stat artifact").WithPath(path)
	}
	h, err := codec.SHA256File(path)
	if err != nil {
		return "", clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "hashing artifact").WithPath(path)
	}
	return h, nil
}

// ExtractAnswer returns the answer from the last trace record: the
// first non-empty string among "output" then "answer".
func ExtractAnswer(records []TraceRecord) (string, error) {
	if len(records) == 0 {
		return "", clarityerr.New(clarityerr.CodeInvalidInput, "no trace records found")
	}
	last := records[len(records)-1]
	if s, ok := last["output"].(string); ok && s != "" {
		return s, nil
	}
	if s, ok := last["answer"].(string); ok && s != "" {
		return s, nil
	}
	return "", clarityerr.New(clarityerr.CodeInvalidInput,
		"no valid 'output' or 'answer' field in last trace record")
}

// ExtractJustification returns the justification from the last trace
// record. Missing → "". Present but non-string → coerced via
// fmt-style stringification. Never falls back to "output".
func ExtractJustification(records []TraceRecord) (string, error) {
	if len(records) == 0 {
		return "", clarityerr.New(clarityerr.CodeInvalidInput, "no trace records found")
	}
	last := records[len(records)-1]
	v, ok := last["justification"]
	if !ok || v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return codec.StableStringify(v), nil
}

// ExtractConfidenceScore returns rich_summary.confidence_score from
// the last trace record, falling back to a top-level
// confidence_score, rounded to 8 decimals. Returns (0, false) if
// absent.
func ExtractConfidenceScore(records []TraceRecord) (float64, bool) {
	return extractRichFloat(records, "confidence_score")
}

// ExtractOutputEntropy returns rich_summary.output_entropy from the
// last trace record, falling back to a top-level output_entropy,
// rounded to 8 decimals. Returns (0, false) if absent.
func ExtractOutputEntropy(records []TraceRecord) (float64, bool) {
	return extractRichFloat(records, "output_entropy")
}

func extractRichFloat(records []TraceRecord, field string) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}
	last := records[len(records)-1]
	if rs, ok := last["rich_summary"].(map[string]any); ok {
		if v, ok := numericValue(rs[field]); ok {
			return codec.Round8(v), true
		}
	}
	if v, ok := numericValue(last[field]); ok {
		return codec.Round8(v), true
	}
	return 0, false
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
