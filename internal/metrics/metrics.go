// Package metrics computes the Evidence Stability Index (ESI) and
// Justification Drift metrics — plus the rich-mode Confidence
// Stability Index (CSI) and Entropy Drift Metric (EDM) — from a
// completed sweep directory (spec §4.6).
package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/m-cahill/clarity/internal/artifact"
	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
)

// ESIMetric is the Evidence Stability Index for a single axis.
type ESIMetric struct {
	Axis         string
	ValueScores  map[string]float64
	OverallScore float64
}

// DriftMetric is the Justification Drift metric for a single axis.
type DriftMetric struct {
	Axis         string
	ValueScores  map[string]float64
	OverallScore float64
}

// CSIMetric is the Confidence Stability Index for a single axis
// (rich mode only).
type CSIMetric struct {
	Axis              string
	ValueScores       map[string]float64
	OverallScore      float64
	MeanConfidence    float64
	HasMeanConfidence bool
}

// EDMMetric is the Entropy Drift Metric for a single axis (rich mode
// only).
type EDMMetric struct {
	Axis               string
	ValueScores        map[string]float64
	OverallScore       float64
	BaselineEntropy    float64
	HasBaselineEntropy bool
}

// Result is the complete metrics output for a sweep, sorted by axis
// name within each slice.
type Result struct {
	ESI   []ESIMetric
	Drift []DriftMetric
	CSI   []CSIMetric
	EDM   []EDMMetric
}

type runRecord struct {
	axisValues     map[string]any
	seed           int
	answer         string
	justification  string
	confidence     float64
	hasConfidence  bool
	entropy        float64
	hasEntropy     bool
}

// NormalizedLevenshtein returns the Unicode-scalar Levenshtein
// distance between a and b, normalized by the longer string's rune
// length. Returns 0.0 when both strings are empty.
func NormalizedLevenshtein(a, b string) float64 {
	if a == "" && b == "" {
		return 0.0
	}
	lenA, lenB := len([]rune(a)), len([]rune(b))
	maxLen := lenA
	if lenB > maxLen {
		maxLen = lenB
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(dist) / float64(maxLen)
}

// Compute loads sweep_manifest.json from sweepDir and computes ESI and
// Drift (and, when rich is true, CSI and EDM) for every declared axis.
func Compute(sweepDir string, rich bool) (*Result, error) {
	sweepDir, err := filepath.Abs(sweepDir)
	if err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "resolving sweep dir")
	}

	manifestPath := filepath.Join(sweepDir, "sweep_manifest.json")
	manifest, err := loadSweepManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	runsData, _ := manifest["runs"].([]any)
	if len(runsData) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "sweep has zero runs").WithPath(manifestPath)
	}

	axesDef, _ := manifest["axes"].(map[string]any)
	if len(axesDef) == 0 {
		return nil, clarityerr.New(clarityerr.CodeInvalidInput, "sweep manifest missing axes definition").WithPath(manifestPath)
	}

	runsDir := filepath.Join(sweepDir, "runs")
	records, err := loadRunData(runsData, runsDir, rich)
	if err != nil {
		return nil, err
	}

	baseline := records[0]

	axisNames := make([]string, 0, len(axesDef))
	for name := range axesDef {
		axisNames = append(axisNames, name)
	}
	sort.Strings(axisNames)

	result := &Result{
		ESI:   computeESI(axisNames, records, baseline),
		Drift: computeDrift(axisNames, records, baseline),
	}
	if rich {
		result.CSI = computeCSI(axisNames, records)
		result.EDM = computeEDM(axisNames, records, baseline)
	}
	return result, nil
}

func loadSweepManifest(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "sweep manifest not found").WithPath(path)
		}
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "reading sweep manifest").WithPath(path)
	}
	var manifest map[string]any
	if err := json.Unmarshal(b, &manifest); err != nil {
		return nil, clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "invalid JSON in sweep manifest").WithPath(path)
	}
	return manifest, nil
}

func loadRunData(runsData []any, runsDir string, rich bool) ([]runRecord, error) {
	records := make([]runRecord, 0, len(runsData))
	for _, raw := range runsData {
		run, ok := raw.(map[string]any)
		if !ok {
			return nil, clarityerr.New(clarityerr.CodeInvalidInput, "run entry must be an object")
		}
		axisValues, _ := run["axis_values"].(map[string]any)
		seedF, _ := run["seed"].(float64)
		seed := int(seedF)

		dirName := codec.BuildRunDirectoryName(axisValues, seed)
		runDir := filepath.Join(runsDir, dirName)
		tracePackPath := filepath.Join(runDir, "trace_pack.jsonl")

		traces, err := artifact.LoadTracePack(tracePackPath)
		if err != nil {
			return nil, err
		}
		answer, err := artifact.ExtractAnswer(traces)
		if err != nil {
			return nil, err
		}
		justification, err := artifact.ExtractJustification(traces)
		if err != nil {
			return nil, err
		}

		rec := runRecord{axisValues: axisValues, seed: seed, answer: answer, justification: justification}
		if rich {
			if c, ok := artifact.ExtractConfidenceScore(traces); ok {
				rec.confidence, rec.hasConfidence = c, true
			}
			if e, ok := artifact.ExtractOutputEntropy(traces); ok {
				rec.entropy, rec.hasEntropy = e, true
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func computeESI(axisNames []string, records []runRecord, baseline runRecord) []ESIMetric {
	out := make([]ESIMetric, 0, len(axisNames))
	for _, axisName := range axisNames {
		valueMatches := map[string][]bool{}
		for _, r := range records {
			valueKey := codec.EncodeAxisValue(r.axisValues[axisName])
			valueMatches[valueKey] = append(valueMatches[valueKey], r.answer == baseline.answer)
		}
		valueScores := map[string]float64{}
		keys := sortedKeys(valueMatches)
		var sum float64
		for _, k := range keys {
			matches := valueMatches[k]
			var n int
			for _, m := range matches {
				if m {
					n++
				}
			}
			score := codec.Round8(float64(n) / float64(len(matches)))
			valueScores[k] = score
			sum += score
		}
		overall := 0.0
		if len(valueScores) > 0 {
			overall = codec.Round8(sum / float64(len(valueScores)))
		}
		out = append(out, ESIMetric{Axis: axisName, ValueScores: valueScores, OverallScore: overall})
	}
	return out
}

func computeDrift(axisNames []string, records []runRecord, baseline runRecord) []DriftMetric {
	out := make([]DriftMetric, 0, len(axisNames))
	for _, axisName := range axisNames {
		valueDrifts := map[string][]float64{}
		for _, r := range records {
			valueKey := codec.EncodeAxisValue(r.axisValues[axisName])
			d := NormalizedLevenshtein(baseline.justification, r.justification)
			valueDrifts[valueKey] = append(valueDrifts[valueKey], d)
		}
		valueScores := map[string]float64{}
		keys := sortedKeys(valueDrifts)
		var sum float64
		for _, k := range keys {
			drifts := valueDrifts[k]
			var total float64
			for _, d := range drifts {
				total += d
			}
			score := codec.Round8(total / float64(len(drifts)))
			valueScores[k] = score
			sum += score
		}
		overall := 0.0
		if len(valueScores) > 0 {
			overall = codec.Round8(sum / float64(len(valueScores)))
		}
		out = append(out, DriftMetric{Axis: axisName, ValueScores: valueScores, OverallScore: overall})
	}
	return out
}

func computeCSI(axisNames []string, records []runRecord) []CSIMetric {
	var totalConf float64
	var confCount int
	for _, r := range records {
		if r.hasConfidence {
			totalConf += r.confidence
			confCount++
		}
	}

	out := make([]CSIMetric, 0, len(axisNames))
	for _, axisName := range axisNames {
		valueConfs := map[string][]float64{}
		for _, r := range records {
			if !r.hasConfidence {
				continue
			}
			valueKey := codec.EncodeAxisValue(r.axisValues[axisName])
			valueConfs[valueKey] = append(valueConfs[valueKey], r.confidence)
		}
		valueScores := map[string]float64{}
		keys := sortedKeys(valueConfs)
		var sum float64
		for _, k := range keys {
			score := codec.Round8(csiFromConfidences(valueConfs[k]))
			valueScores[k] = score
			sum += score
		}
		overall := 0.0
		if len(valueScores) > 0 {
			overall = codec.Round8(sum / float64(len(valueScores)))
		}
		m := CSIMetric{Axis: axisName, ValueScores: valueScores, OverallScore: overall}
		if confCount > 0 {
			m.MeanConfidence = codec.Round8(totalConf / float64(confCount))
			m.HasMeanConfidence = true
		}
		out = append(out, m)
	}
	return out
}

// csiFromConfidences computes CSI = 1 - min(1, variance/0.25), the
// population variance over confidences in [0, 1].
func csiFromConfidences(confidences []float64) float64 {
	if len(confidences) < 2 {
		return 1.0
	}
	var mean float64
	for _, c := range confidences {
		mean += c
	}
	mean /= float64(len(confidences))

	var variance float64
	for _, c := range confidences {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(confidences))

	normalized := variance / 0.25
	if normalized > 1.0 {
		normalized = 1.0
	}
	return 1.0 - normalized
}

func computeEDM(axisNames []string, records []runRecord, baseline runRecord) []EDMMetric {
	out := make([]EDMMetric, 0, len(axisNames))
	for _, axisName := range axisNames {
		valueEntropies := map[string][]float64{}
		for _, r := range records {
			if !r.hasEntropy {
				continue
			}
			valueKey := codec.EncodeAxisValue(r.axisValues[axisName])
			valueEntropies[valueKey] = append(valueEntropies[valueKey], r.entropy)
		}
		valueScores := map[string]float64{}
		keys := sortedKeys(valueEntropies)
		var sum float64
		for _, k := range keys {
			score := codec.Round8(edmFromEntropies(baseline.entropy, baseline.hasEntropy, valueEntropies[k]))
			valueScores[k] = score
			sum += score
		}
		overall := 0.0
		if len(valueScores) > 0 {
			overall = codec.Round8(sum / float64(len(valueScores)))
		}
		m := EDMMetric{Axis: axisName, ValueScores: valueScores, OverallScore: overall}
		if baseline.hasEntropy {
			m.BaselineEntropy = codec.Round8(baseline.entropy)
			m.HasBaselineEntropy = true
		}
		out = append(out, m)
	}
	return out
}

func edmFromEntropies(baselineEntropy float64, hasBaseline bool, entropies []float64) float64 {
	if !hasBaseline || len(entropies) == 0 {
		return 0.0
	}
	var total float64
	for _, e := range entropies {
		diff := e - baselineEntropy
		if diff < 0 {
			diff = -diff
		}
		total += diff
	}
	return total / float64(len(entropies))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
