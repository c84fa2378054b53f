package codec

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRound8HalfEven(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.123456785, 0.12345678},
		{0.123456775, 0.12345678},
		{1.0 / 3.0, 0.33333333},
	}
	for _, c := range cases {
		got := Round8(c.in)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Round8(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestEncodeSortsKeys(t *testing.T) {
	v := map[string]any{"b": 1.0, "a": 2.0}
	got, err := Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":2,"b":1}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestEncodeIsFixedPoint(t *testing.T) {
	v := map[string]any{"x": []any{1.0, 2.0, map[string]any{"z": 1.0, "y": 2.0}}}
	b1, _ := Encode(v)
	var parsed any
	if err := json.Unmarshal(b1, &parsed); err != nil {
		t.Fatal(err)
	}
	b2, _ := Encode(parsed)
	if string(b1) != string(b2) {
		t.Fatalf("encode of parsed canonical bytes is not a fixed point: %s vs %s", b1, b2)
	}
}

func TestEncodeAxisValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{0.8, "0p8"},
		{1.0, "1p0"},
		{-1.2, "m1p2"},
		{"hello world", "helloworld"},
	}
	for _, c := range cases {
		got := EncodeAxisValue(c.in)
		if got != c.want {
			t.Errorf("EncodeAxisValue(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildRunDirectoryName(t *testing.T) {
	got := BuildRunDirectoryName(map[string]any{"brightness": 0.8, "axis2": -1.0}, 42)
	want := "axis2=m1p0_brightness=0p8_seed=42"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStableFloat(t *testing.T) {
	if StableFloat(math.NaN()) != "nan" {
		t.Error("expected nan token")
	}
	if StableFloat(math.Inf(1)) != "inf" {
		t.Error("expected inf token")
	}
	if StableFloat(math.Inf(-1)) != "-inf" {
		t.Error("expected -inf token")
	}
}
