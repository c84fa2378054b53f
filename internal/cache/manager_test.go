package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-cahill/clarity/internal/clarityerr"
)

func TestManagerPutThenGetRoundTrips(t *testing.T) {
	m := NewManager(t.TempDir(), time.Second, nil)

	path, err := m.Put("key1", []byte("payload"), ".bin")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cache file to exist at %s", path)
	}

	data, hit, err := m.Get("key1", ".bin")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit || string(data) != "payload" {
		t.Errorf("expected cache hit with payload, got hit=%v data=%q", hit, data)
	}
}

func TestManagerGetMissReturnsFalseNotError(t *testing.T) {
	m := NewManager(t.TempDir(), time.Second, nil)
	data, hit, err := m.Get("absent", ".bin")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit || data != nil {
		t.Errorf("expected cache miss, got hit=%v data=%v", hit, data)
	}
}

func TestManagerExists(t *testing.T) {
	m := NewManager(t.TempDir(), time.Second, nil)
	if m.Exists("k", ".bin") {
		t.Error("expected false before Put")
	}
	if _, err := m.Put("k", []byte("x"), ".bin"); err != nil {
		t.Fatal(err)
	}
	if !m.Exists("k", ".bin") {
		t.Error("expected true after Put")
	}
}

func TestManagerGetOrCreateGeneratesOnceOnMiss(t *testing.T) {
	m := NewManager(t.TempDir(), time.Second, nil)
	var calls int32

	gen := func() ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("generated"), nil
	}

	data, err := m.GetOrCreate("k", ".bin", gen)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if string(data) != "generated" {
		t.Errorf("unexpected data: %q", data)
	}

	data2, err := m.GetOrCreate("k", ".bin", gen)
	if err != nil {
		t.Fatal(err)
	}
	if string(data2) != "generated" {
		t.Errorf("unexpected data on second call: %q", data2)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected generator to run exactly once, ran %d times", calls)
	}
}

func TestManagerClearRemovesFilesButNotLocks(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Second, nil)

	if _, err := m.Put("k1", []byte("a"), ".bin"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Put("k2", []byte("b"), ".json"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "k3.lock"), []byte("1234"), 0o644); err != nil {
		t.Fatal(err)
	}

	count, err := m.Clear()
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 files cleared, got %d", count)
	}
	if _, err := os.Stat(filepath.Join(dir, "k3.lock")); err != nil {
		t.Error("expected lock file to survive Clear()")
	}
}

func TestFileLockAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "entry.lock")

	lock := NewFileLock(lockPath, time.Second, nil)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatal("expected lock file to exist after acquire")
	}

	lock.Release()
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("expected lock file to be removed after release")
	}
}

func TestFileLockTimesOutWhenHeld(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "entry.lock")

	holder := NewFileLock(lockPath, time.Second, nil)
	if err := holder.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer holder.Release()

	waiter := NewFileLock(lockPath, 250*time.Millisecond, nil)
	err := waiter.Acquire()
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var target *clarityerr.Error
	if !errors.As(err, &target) || target.Code != clarityerr.CodeCacheBusy {
		t.Errorf("expected CodeCacheBusy, got %v", err)
	}
}
