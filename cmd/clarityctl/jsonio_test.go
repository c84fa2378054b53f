package main

import (
	"os"
	"path/filepath"
	"testing"
)

type roundTripPayload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestWriteJSONThenReadJSONRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.json")
	want := roundTripPayload{Name: "case-1", Score: 0.875}

	if err := writeJSON(path, want); err != nil {
		t.Fatalf("writeJSON() error = %v", err)
	}

	var got roundTripPayload
	if err := readJSON(path, &got); err != nil {
		t.Fatalf("readJSON() error = %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestReadJSONMissingFileFails(t *testing.T) {
	var got roundTripPayload
	if err := readJSON(filepath.Join(t.TempDir(), "absent.json"), &got); err == nil {
		t.Fatal("expected an error reading a missing file")
	}
}

func TestReadJSONMalformedFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	var got roundTripPayload
	if err := readJSON(path, &got); err == nil {
		t.Fatal("expected an error parsing malformed JSON")
	}
}
