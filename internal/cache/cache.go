package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/teamcutter/cubepkg/internal/fetcher"
)

// DiskCache holds downloaded payloads as <dir>/<id>-<version>. A partial
// payload is kept in place so the next download can resume it.
type DiskCache struct {
	sync.RWMutex
	dir string
}

func New(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &DiskCache{dir: dir}, nil
}

// Path returns where the payload of id at version lives. Names that would
// resolve outside the cache directory are rejected.
func (c *DiskCache) Path(id, version string) (string, error) {
	name := id + "-" + version
	path := filepath.Join(c.dir, name)
	if strings.ContainsAny(name, `/\`) || filepath.Dir(path) != filepath.Clean(c.dir) {
		return "", fmt.Errorf("payload %q escapes %s", name, c.dir)
	}
	return path, nil
}

// Has reports whether a payload, complete or not, is cached.
func (c *DiskCache) Has(id, version string) bool {
	path, err := c.Path(id, version)
	if err != nil {
		return false
	}

	c.RLock()
	defer c.RUnlock()
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Verify reports whether a complete payload with the given checksum is cached.
func (c *DiskCache) Verify(id, version, sha256 string) bool {
	if sha256 == "" {
		return false
	}

	path, err := c.Path(id, version)
	if err != nil {
		return false
	}

	c.RLock()
	defer c.RUnlock()

	actual, err := fetcher.Checksum(path)
	if err != nil {
		return false
	}
	return actual == sha256
}

func (c *DiskCache) Remove(id, version string) error {
	path, err := c.Path(id, version)
	if err != nil {
		return err
	}

	c.Lock()
	defer c.Unlock()

	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *DiskCache) Size() (int64, error) {
	c.RLock()
	defer c.RUnlock()

	var size int64

	err := filepath.Walk(c.dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})

	return size, err
}

func (c *DiskCache) Clear() error {
	c.Lock()
	defer c.Unlock()

	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0755)
}
