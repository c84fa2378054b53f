package codec

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var disallowedAxisChar = regexp.MustCompile(`[^A-Za-z0-9_]`)

// EncodeAxisValue maps an arbitrary JSON-scalar value to a
// filesystem-safe token: stringify, replace "." with "p" and "-" with
// "m", drop spaces, then strip every character outside [A-Za-z0-9_].
// Round-tripping is not required; collision-freedom within a single
// sweep is the caller's responsibility.
func EncodeAxisValue(v any) string {
	s := stringify(v)
	s = strings.ReplaceAll(s, ".", "p")
	s = strings.ReplaceAll(s, "-", "m")
	s = strings.ReplaceAll(s, " ", "")
	return disallowedAxisChar.ReplaceAllString(s, "")
}

func stringify(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		if vv {
			return "True"
		}
		return "False"
	case float64:
		// A whole-number float must keep its trailing ".0" (e.g. 1.0,
		// not 1), mirroring Python's str(1.0) == "1.0" that the
		// original encode_axis_value relied on, and matching
		// StableStringify's same special case in codec.go.
		if vv == math.Trunc(vv) && !math.IsInf(vv, 0) {
			return strconv.FormatFloat(vv, 'f', 1, 64)
		}
		return strconv.FormatFloat(vv, 'g', -1, 64)
	case int:
		return strconv.Itoa(vv)
	case int64:
		return strconv.FormatInt(vv, 10)
	case nil:
		return "None"
	default:
		return strconv_fallback(vv)
	}
}

func strconv_fallback(v any) string {
	b, err := Encode(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// BuildRunDirectoryName builds the deterministic per-run directory
// name: axis names sorted alphabetically, each encoded value joined by
// "_", with "seed=N" appended.
func BuildRunDirectoryName(axisValues map[string]any, seed int) string {
	names := make([]string, 0, len(axisValues))
	for name := range axisValues {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		parts = append(parts, name+"="+EncodeAxisValue(axisValues[name]))
	}
	parts = append(parts, "seed="+strconv.Itoa(seed))
	return strings.Join(parts, "_")
}
