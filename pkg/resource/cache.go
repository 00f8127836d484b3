// Package resource caches decoded assets and loads them on a background
// goroutine.
package resource

import (
	"image"

	"github.com/zurustar/novella/pkg/audio"
)

// Cache holds decoded assets by logical name. Images, sounds and music live
// in separate namespaces, so one name may exist in several of them.
//
// Cache has no lock of its own: every access happens under the engine lock.
type Cache struct {
	images map[string]image.Image
	sounds map[string][]byte
	music  map[string]audio.Track
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		images: make(map[string]image.Image),
		sounds: make(map[string][]byte),
		music:  make(map[string]audio.Track),
	}
}

// PutImage stores img unless name is already cached. It reports whether
// the image was stored.
func (c *Cache) PutImage(name string, img image.Image) bool {
	if _, ok := c.images[name]; ok {
		return false
	}
	c.images[name] = img
	return true
}

// Image returns the cached image for name.
func (c *Cache) Image(name string) (image.Image, bool) {
	img, ok := c.images[name]
	return img, ok
}

// PutSound stores decoded PCM unless name is already cached.
func (c *Cache) PutSound(name string, pcm []byte) bool {
	if _, ok := c.sounds[name]; ok {
		return false
	}
	c.sounds[name] = pcm
	return true
}

// Sound returns the cached PCM for name.
func (c *Cache) Sound(name string) ([]byte, bool) {
	pcm, ok := c.sounds[name]
	return pcm, ok
}

// PutMusic stores a music track unless name is already cached.
func (c *Cache) PutMusic(name string, t audio.Track) bool {
	if _, ok := c.music[name]; ok {
		return false
	}
	c.music[name] = t
	return true
}

// Music returns the cached track for name.
func (c *Cache) Music(name string) (audio.Track, bool) {
	t, ok := c.music[name]
	return t, ok
}

// Has reports whether name is cached in any namespace.
func (c *Cache) Has(name string) bool {
	if _, ok := c.images[name]; ok {
		return true
	}
	if _, ok := c.sounds[name]; ok {
		return true
	}
	_, ok := c.music[name]
	return ok
}

// Len returns the number of entries across all namespaces.
func (c *Cache) Len() int {
	return len(c.images) + len(c.sounds) + len(c.music)
}

// Release drops every cached asset.
func (c *Cache) Release() {
	clear(c.images)
	clear(c.sounds)
	clear(c.music)
}
