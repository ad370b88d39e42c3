// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/pdiddy/paper-radar/internal/logging"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore persists a JSON object of key/value pairs to a single file.
// An in-process mutex serializes goroutines and a flock on path+".lock"
// serializes processes sharing the file. Writes replace the file atomically.
type FileStore struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger

	// mu guards lock; a flock is held per process, not per goroutine.
	mu sync.Mutex
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger that reports an unreadable store file.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(f *FileStore) { f.logger = logging.NewComponentLogger(logger, "kv") }
}

// NewFileStore returns a store backed by path. The file and its parent
// directory are created on first write.
func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("kv file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create kv directory: %w", err)
	}
	f := &FileStore{path: path, lock: flock.New(path + ".lock"), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return "", false, fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) error {
	return f.update(ctx, func(values map[string]string) bool {
		values[key] = value
		return true
	})
}

func (f *FileStore) Remove(ctx context.Context, key string) error {
	return f.update(ctx, func(values map[string]string) bool {
		if _, ok := values[key]; !ok {
			return false
		}
		delete(values, key)
		return true
	})
}

// update runs a read-modify-write cycle under both locks. fn reports whether
// it changed the map; unchanged maps are not rewritten.
func (f *FileStore) update(ctx context.Context, fn func(map[string]string) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("lock %s: %w", f.path, err)
	}
	defer f.lock.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if !fn(values) {
		return nil
	}
	return f.save(values)
}

func (f *FileStore) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("read kv file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		// A corrupt file reads as empty; the next write replaces it.
		f.logger.Warn("kv file is corrupt, starting empty",
			logging.String("path", f.path), logging.Error(err))
		return make(map[string]string), nil
	}
	return values, nil
}

func (f *FileStore) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal kv file: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
