package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Blob names used for the two raw API responses.
const (
	Current  = "current"
	Forecast = "forecast"
)

// Cache stores raw API responses verbatim as <dir>/<name>.json.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating it owner-only if missing.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Path returns the file path for a blob.
func (c *Cache) Path(name string) string {
	return filepath.Join(c.dir, name+".json")
}

// Read returns the stored blob.
func (c *Cache) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(c.Path(name))
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the stored blob. The file is renamed into place so a reader never
// sees a partial response.
func (c *Cache) Write(name string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write cache %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), c.Path(name)); err != nil {
		return fmt.Errorf("replace cache %s: %w", name, err)
	}
	return nil
}

// Age reports how long ago the blob was written.
func (c *Cache) Age(name string) (time.Duration, error) {
	info, err := os.Stat(c.Path(name))
	if err != nil {
		return 0, err
	}
	return time.Since(info.ModTime()), nil
}
