// Package cache provides the content-addressed artifact cache: a
// deterministic key derivation over case manifests, and a file-backed
// store with atomic writes and advisory locking to prevent duplicate
// generation of the same cache entry (spec §4.13).
package cache

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/codec"
)

// ComputeHash returns the hex SHA-256 digest of data.
func ComputeHash(data []byte) string {
	return codec.SHA256Bytes(data)
}

// quantizeFloats recursively rounds every float64 leaf in v to 8
// decimal places, mirroring the reference's pre-hash float
// quantization so that two logically equal values with differing
// float precision hash identically.
func quantizeFloats(v any) any {
	switch vv := v.(type) {
	case float64:
		return codec.Round8(vv)
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = quantizeFloats(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = quantizeFloats(val)
		}
		return out
	default:
		return vv
	}
}

// ComputeDictHash canonically encodes v (sorting keys, quantizing
// every float leaf to 8 decimals) and returns its SHA-256 digest.
func ComputeDictHash(v any) (string, error) {
	hash, err := codec.SHA256Value(quantizeFloats(v))
	if err != nil {
		return "", clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "failed to hash value")
	}
	return hash, nil
}

// caseHashFiles lists the artifacts a case hash is computed from, in
// the fixed order they are concatenated.
var caseHashFiles = []string{"manifest.json", "metrics.json", "overlay_bundle.json"}

// ComputeCaseHash derives a deterministic hash for a case directory
// from its manifest, metrics, and overlay bundle files: each file is
// parsed as JSON, re-encoded canonically, and the canonical forms are
// newline-joined and hashed together.
func ComputeCaseHash(caseDir string) (string, error) {
	canonicalForms := make([][]byte, 0, len(caseHashFiles))

	for _, filename := range caseHashFiles {
		path := filepath.Join(caseDir, filename)
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", clarityerr.New(clarityerr.CodeArtifactAbsent, "required cache input file not found: %s", path)
			}
			return "", clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to read cache input file: %s", path)
		}

		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return "", clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "failed to decode %s", path)
		}

		canonical, err := codec.Encode(quantizeFloats(decoded))
		if err != nil {
			return "", clarityerr.Wrap(clarityerr.CodeInvalidInput, err, "failed to canonicalize %s", path)
		}
		canonicalForms = append(canonicalForms, canonical)
	}

	combined := bytes.Join(canonicalForms, []byte("\n"))
	return ComputeHash(combined), nil
}
