package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/m-cahill/clarity/internal/clarityerr"
	"github.com/m-cahill/clarity/internal/telemetry"
)

const lockPollInterval = 100 * time.Millisecond

// FileLock is a cross-process advisory lock backed by exclusive file
// creation (O_CREATE|O_EXCL). The lock is released by removing the
// lock file.
type FileLock struct {
	path     string
	timeout  time.Duration
	log      *telemetry.Logger
	acquired bool
}

// NewFileLock constructs a FileLock at path with the given acquire
// timeout.
func NewFileLock(path string, timeout time.Duration, log *telemetry.Logger) *FileLock {
	if log == nil {
		log = telemetry.New(nil, telemetry.LevelInfo)
	}
	return &FileLock{path: path, timeout: timeout, log: log.WithComponent("cache.lock")}
}

// Acquire blocks until the lock is obtained or timeout elapses, in
// which case it returns a CodeCacheBusy error.
func (l *FileLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to create lock directory for %s", l.path)
	}

	start := time.Now()
	for {
		fd, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(fd, "%d", os.Getpid())
			fd.Close()
			l.acquired = true
			l.log.Debug("acquired lock: %s", l.path)
			return nil
		}
		if !os.IsExist(err) {
			return clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to create lock file %s", l.path)
		}

		elapsed := time.Since(start)
		if elapsed >= l.timeout {
			l.log.Warn("lock timeout after %s: %s", elapsed, l.path)
			return clarityerr.New(clarityerr.CodeCacheBusy, "cache generation in progress for: %s", filepath.Base(l.path))
		}
		time.Sleep(lockPollInterval)
	}
}

// Release removes the lock file. It is a no-op if the lock was never
// acquired.
func (l *FileLock) Release() {
	if !l.acquired {
		return
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.log.Warn("failed to release lock %s: %v", l.path, err)
	}
	l.acquired = false
}

// Manager is a file-backed, content-addressed cache with atomic
// writes and advisory locking against duplicate concurrent generation
// of the same entry.
type Manager struct {
	dir         string
	lockTimeout time.Duration
	log         *telemetry.Logger
}

// NewManager constructs a Manager rooted at dir.
func NewManager(dir string, lockTimeout time.Duration, log *telemetry.Logger) *Manager {
	if log == nil {
		log = telemetry.New(nil, telemetry.LevelInfo)
	}
	return &Manager{dir: dir, lockTimeout: lockTimeout, log: log.WithComponent("cache.manager")}
}

func (m *Manager) cachePath(key, extension string) string {
	return filepath.Join(m.dir, key+extension)
}

func (m *Manager) lockPath(key string) string {
	return filepath.Join(m.dir, key+".lock")
}

// Exists reports whether a cache entry for key is present.
func (m *Manager) Exists(key, extension string) bool {
	_, err := os.Stat(m.cachePath(key, extension))
	return err == nil
}

// Get returns the cached bytes for key, or (nil, false) on a cache
// miss.
func (m *Manager) Get(key, extension string) ([]byte, bool, error) {
	data, err := os.ReadFile(m.cachePath(key, extension))
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Debug("cache miss: %s", key)
			return nil, false, nil
		}
		return nil, false, clarityerr.Wrap(clarityerr.CodeArtifactAbsent, err, "failed to read cache entry %s", key)
	}
	m.log.Debug("cache hit: %s", key)
	return data, true, nil
}

// Put stores data under key via a temp-file-then-rename sequence, so
// a reader never observes a partially-written cache file.
func (m *Manager) Put(key string, data []byte, extension string) (string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to create cache directory %s", m.dir)
	}

	tmp, err := os.CreateTemp(m.dir, "."+key+"_*"+extension)
	if err != nil {
		return "", clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to create temp file for %s", key)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to write temp file for %s", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to close temp file for %s", key)
	}

	cachePath := m.cachePath(key, extension)
	if err := os.Rename(tmpPath, cachePath); err != nil {
		os.Remove(tmpPath)
		return "", clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to finalize cache entry %s", key)
	}

	m.log.Debug("cached: %s", key)
	return cachePath, nil
}

// Generator produces the bytes to cache when key is absent.
type Generator func() ([]byte, error)

// GetOrCreate returns the cached bytes for key, generating and
// caching them via generator if absent. Concurrent callers for the
// same key serialize on a file lock; if the lock cannot be acquired
// within the manager's timeout, a CodeCacheBusy error is returned.
func (m *Manager) GetOrCreate(key string, extension string, generator Generator) ([]byte, error) {
	if data, hit, err := m.Get(key, extension); err != nil {
		return nil, err
	} else if hit {
		return data, nil
	}

	lock := NewFileLock(m.lockPath(key), m.lockTimeout, m.log)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	if data, hit, err := m.Get(key, extension); err != nil {
		return nil, err
	} else if hit {
		m.log.Debug("cache populated while waiting: %s", key)
		return data, nil
	}

	m.log.Info("generating cache entry: %s", key)
	data, err := generator()
	if err != nil {
		return nil, err
	}

	if _, err := m.Put(key, data, extension); err != nil {
		return nil, err
	}
	return data, nil
}

// Clear removes every non-lock file from the cache directory and
// returns the number of files removed.
func (m *Manager) Clear() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, clarityerr.Wrap(clarityerr.CodeCacheBusy, err, "failed to list cache directory %s", m.dir)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == ".lock" {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err == nil {
			count++
		}
	}
	m.log.Info("cleared %d cache entries", count)
	return count, nil
}
