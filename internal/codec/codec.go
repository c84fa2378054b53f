// Package codec provides the deterministic JSON codec, content hasher,
// and axis-value encoder shared by every layer of the CLARITY pipeline.
// Every hash and every byte-equality test in this module depends on the
// canonical form produced here.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/shopspring/decimal"
)

// Round8 performs banker's (half-even) rounding to 8 fractional decimal
// digits. All floating-point values observable at a pipeline boundary
// pass through this function exactly once, at the boundary.
func Round8(v float64) float64 {
	d := decimal.NewFromFloat(v)
	r, _ := d.RoundBank(8).Float64()
	return r
}

// Canonicalize recursively sorts map keys so that two logically equal
// values always produce byte-identical JSON. It does not mutate v.
func Canonicalize(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			out[k] = Canonicalize(vv[k])
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i := range vv {
			out[i] = Canonicalize(vv[i])
		}
		return out
	default:
		return vv
	}
}

// Encode emits UTF-8 JSON for v with ascending key order at every object
// level and no insignificant whitespace. Callers are expected to have
// already applied round8 to any floating-point leaves.
func Encode(v any) ([]byte, error) {
	canon := Canonicalize(v)
	buf, err := json.Marshal(canon)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return buf, nil
}

// MustEncode is Encode for call sites that have already validated v is
// JSON-marshalable (e.g. a value built entirely from this package's own
// types). It panics on error, which indicates a programming mistake
// rather than bad input.
func MustEncode(v any) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// SHA256Bytes hashes b and returns the lowercase hex digest.
func SHA256Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SHA256Value canonically encodes v and hashes the result.
func SHA256Value(v any) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return SHA256Bytes(b), nil
}

// SHA256File streams path through SHA-256 in 8 KiB chunks, so artifacts
// of arbitrary size can be fingerprinted in bounded memory.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("codec: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, 8192)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("codec: hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256Stream hashes a sequence of floats using the fixed scientific
// form "%.8e" (with explicit "nan"/"inf"/"-inf" tokens), joined by "|".
// It runs in O(1) memory regardless of how many floats are streamed,
// which is what lets a multi-gigabyte logit tensor be fingerprinted
// without ever being materialized in full.
func SHA256Stream(values iterFloat) string {
	h := sha256.New()
	first := true
	values(func(v float64) {
		if !first {
			h.Write([]byte{'|'})
		}
		first = false
		h.Write([]byte(StableFloat(v)))
	})
	return hex.EncodeToString(h.Sum(nil))
}

// iterFloat is a push-style iterator: yield is called once per value.
type iterFloat func(yield func(float64))

// StableStringify coerces an arbitrary decoded-JSON value to a string,
// mirroring Python's str(...) coercion used when a field is present
// but not already a string (e.g. a numeric justification field).
func StableStringify(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		if vv {
			return "True"
		}
		return "False"
	case float64:
		if vv == math.Trunc(vv) && !math.IsInf(vv, 0) {
			return fmt.Sprintf("%.1f", vv)
		}
		return fmt.Sprintf("%v", vv)
	case nil:
		return "None"
	default:
		b, err := json.Marshal(vv)
		if err != nil {
			return fmt.Sprintf("%v", vv)
		}
		return string(b)
	}
}

// StableFloat renders v as a stable scientific-notation string used by
// SHA256Stream and anywhere a float needs a deterministic textual form
// independent of platform formatting quirks.
func StableFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return fmt.Sprintf("%.8e", v)
	}
}
