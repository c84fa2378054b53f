package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-cahill/clarity/internal/clarityerr"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunSuccess(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	script := writeScript(t, tmp, "fake_r2l.sh", "#!/bin/sh\n"+
		"out=\"\"\n"+
		"while [ \"$#\" -gt 0 ]; do\n"+
		"  if [ \"$1\" = \"--output\" ]; then shift; out=\"$1\"; fi\n"+
		"  shift\n"+
		"done\n"+
		"echo '{}' > \"$out/manifest.json\"\n"+
		"echo '' > \"$out/trace_pack.jsonl\"\n")

	r, err := New(script, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	seed := 42
	res, err := r.Run(context.Background(), filepath.Join(tmp, "config.json"), outDir, "medgemma", &seed)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if _, err := os.Stat(res.ManifestPath); err != nil {
		t.Errorf("manifest missing: %v", err)
	}
}

func TestRunMissingOutputDir(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, "fake.sh", "#!/bin/sh\nexit 0\n")
	r, err := New(script, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Run(context.Background(), filepath.Join(tmp, "c.json"), filepath.Join(tmp, "nope"), "", nil)
	if !clarityerr.Is(err, clarityerr.CodeInvalidInput) {
		t.Errorf("expected invalid_input error, got %v", err)
	}
}

func TestRunNonzeroExit(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	os.MkdirAll(outDir, 0o755)
	script := writeScript(t, tmp, "fail.sh", "#!/bin/sh\nexit 3\n")
	r, err := New(script, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Run(context.Background(), filepath.Join(tmp, "c.json"), outDir, "", nil)
	if !clarityerr.Is(err, clarityerr.CodeRunnerFailure) {
		t.Errorf("expected runner_failure, got %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	os.MkdirAll(outDir, 0o755)
	script := writeScript(t, tmp, "slow.sh", "#!/bin/sh\nsleep 5\n")
	r, err := New(script, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Run(context.Background(), filepath.Join(tmp, "c.json"), outDir, "", nil)
	if !clarityerr.Is(err, clarityerr.CodeRunnerTimeout) {
		t.Errorf("expected runner_timeout, got %v", err)
	}
}

func TestRunMissingArtifact(t *testing.T) {
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "out")
	os.MkdirAll(outDir, 0o755)
	script := writeScript(t, tmp, "noop.sh", "#!/bin/sh\nexit 0\n")
	r, err := New(script, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Run(context.Background(), filepath.Join(tmp, "c.json"), outDir, "", nil)
	if !clarityerr.Is(err, clarityerr.CodeRunnerFailure) {
		t.Errorf("expected runner_failure for missing artifact, got %v", err)
	}
}

func TestNewRejectsEmptyExecutable(t *testing.T) {
	if _, err := New("", time.Second); err == nil {
		t.Error("expected error for empty executable")
	}
}

func TestNewRejectsNonPositiveTimeout(t *testing.T) {
	if _, err := New("foo", 0); err == nil {
		t.Error("expected error for non-positive timeout")
	}
}
