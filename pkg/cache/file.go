package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileCache keeps one file per key under a directory. Freshness is judged by
// the file modification time against the TTL, so entries survive restarts.
type FileCache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
	now func() time.Time
}

// NewFileCache creates the directory if needed.
func NewFileCache(opts ...FileOption) (*FileCache, error) {
	cfg := &FileConfig{
		Dir: "cache",
		TTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("file cache dir: %w", err)
	}
	return &FileCache{dir: cfg.Dir, ttl: cfg.TTL, now: time.Now}, nil
}

// Set writes the value; expiration is ignored in favour of the cache TTL
// because freshness is derived from the file mtime.
func (fc *FileCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	tmp, err := os.CreateTemp(fc.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file cache write: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file cache write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file cache write: %w", err)
	}
	return os.Rename(tmp.Name(), fc.pathFor(key))
}

func (fc *FileCache) Get(_ context.Context, key string, dest interface{}) error {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	p := fc.pathFor(key)
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	if fc.now().Sub(info.ModTime()) >= fc.ttl {
		return ErrCacheMiss
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	return decode(data, dest)
}

func (fc *FileCache) Delete(_ context.Context, keys ...string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, key := range keys {
		if err := os.Remove(fc.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// DeleteByPattern only supports a "*" pattern, which clears the directory,
// since file names are hashed.
func (fc *FileCache) DeleteByPattern(_ context.Context, pattern string) error {
	if pattern != "*" {
		return fmt.Errorf("file cache: unsupported pattern %q", pattern)
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	entries, err := os.ReadDir(fc.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			_ = os.Remove(filepath.Join(fc.dir, e.Name()))
		}
	}
	return nil
}

func (fc *FileCache) Exists(_ context.Context, keys ...string) (bool, error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	for _, key := range keys {
		info, err := os.Stat(fc.pathFor(key))
		if err == nil && fc.now().Sub(info.ModTime()) < fc.ttl {
			return true, nil
		}
	}
	return false, nil
}

func (fc *FileCache) Close() error { return nil }

func (fc *FileCache) pathFor(key string) string {
	return filepath.Join(fc.dir, HashKey(key)+".json")
}
