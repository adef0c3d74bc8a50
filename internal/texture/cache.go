// Package texture resolves and decodes the image files referenced by
// material libraries.
package texture

import (
	"image"
	"sync"
)

// Image is a texture file read from disk. Img is nil when decoding is
// disabled; Data always holds the raw file contents.
type Image struct {
	Path   string
	Format string
	Data   []byte
	Img    image.Image
}

// Size returns the decoded dimensions, or zero when not decoded.
func (i *Image) Size() image.Point {
	if i.Img == nil {
		return image.Point{}
	}
	return i.Img.Bounds().Size()
}

// Cache is an in-memory cache of loaded textures keyed by absolute path.
// It is safe for concurrent use and is meant to be shared between loads.
type Cache struct {
	data map[string]*Image
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*Image),
	}
}

// GetOrLoad returns the cached image for key, calling load on a miss.
// Lookup and insert happen under one lock, so a key is loaded at most once
// however many goroutines ask for it. Failed loads are not cached.
func (c *Cache) GetOrLoad(key string, load func() (*Image, error)) (*Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if img, ok := c.data[key]; ok {
		c.hits++
		return img, nil
	}
	c.misses++

	img, err := load()
	if err != nil {
		return nil, err
	}
	c.data[key] = img
	return img, nil
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*Image)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
