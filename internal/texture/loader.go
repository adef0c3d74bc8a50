package texture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when a texture is in none of the search directories.
var ErrNotFound = errors.New("texture not found")

// Loader resolves texture paths against a list of search directories.
// It implements wavefront.TextureResolver.
type Loader struct {
	dirs   []string
	cache  *Cache
	decode bool
	mu     sync.RWMutex
}

// NewLoader creates a loader backed by cache. A nil cache gets a private one.
// With decode false, images carry only their raw bytes.
func NewLoader(cache *Cache, decode bool) *Loader {
	if cache == nil {
		cache = NewCache()
	}
	return &Loader{
		cache:  cache,
		decode: decode,
	}
}

// AddDir adds a search directory.
// Directories are searched in reverse order (last added = highest priority).
func (l *Loader) AddDir(dir string) {
	l.mu.Lock()
	l.dirs = append(l.dirs, dir)
	l.mu.Unlock()
}

// Cache returns the cache backing the loader.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// ResolveTexture loads path and returns its *Image.
func (l *Loader) ResolveTexture(path string) (any, error) {
	return l.Load(path)
}

// Load finds path in the search directories, reads it and decodes it.
func (l *Loader) Load(path string) (*Image, error) {
	full, err := l.find(path)
	if err != nil {
		return nil, err
	}

	return l.cache.GetOrLoad(full, func() (*Image, error) {
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("reading texture %s: %w", full, err)
		}

		img := &Image{
			Path:   full,
			Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(full)), "."),
			Data:   data,
		}
		if !l.decode {
			return img, nil
		}

		decoded, format, err := Decode(data, filepath.Ext(full))
		if err != nil {
			return nil, fmt.Errorf("decoding texture %s: %w", full, err)
		}
		img.Img = decoded
		img.Format = format
		return img, nil
	})
}

func (l *Loader) find(path string) (string, error) {
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return filepath.Clean(path), nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.dirs) - 1; i >= 0; i-- {
		candidate := filepath.Join(l.dirs[i], path)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs, nil
			}
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}
