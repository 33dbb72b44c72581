package dedup

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/lueurxax/repost-bot/internal/core/errors"
	"github.com/lueurxax/repost-bot/internal/core/media"
)

// ImageEntry is a reduced image with the digest of its pixel buffer.
type ImageEntry struct {
	Entry[media.Reduced]
	Digest uint64
}

// ImageCache is a bounded FIFO of reduced images scanned oldest to newest.
type ImageCache struct {
	capacity int
	entries  []ImageEntry
}

// NewImageCache creates a cache holding at most capacity images.
func NewImageCache(capacity int) (*ImageCache, error) {
	if capacity <= 0 {
		return nil, errors.ErrInvalidInput
	}

	return &ImageCache{
		capacity: capacity,
		entries:  make([]ImageEntry, 0, capacity),
	}, nil
}

// NewImageEntry builds an entry keyed by the hex digest of the pixels.
func NewImageEntry(reduced media.Reduced, seen Sighting) ImageEntry {
	digest := xxhash.Sum64(reduced.Pixels)

	return ImageEntry{
		Entry: Entry[media.Reduced]{
			Key:      strconv.FormatUint(digest, 16),
			Payload:  reduced,
			Sighting: seen,
		},
		Digest: digest,
	}
}

// Insert appends an entry, evicting the oldest one when full.
func (c *ImageCache) Insert(entry ImageEntry) {
	if len(c.entries) >= c.capacity {
		copy(c.entries, c.entries[1:])
		c.entries = c.entries[:len(c.entries)-1]
	}

	c.entries = append(c.entries, entry)
}

// Scan calls fn for each entry from oldest to newest until fn returns true.
func (c *ImageCache) Scan(fn func(ImageEntry) bool) (ImageEntry, bool) {
	for _, e := range c.entries {
		if fn(e) {
			return e, true
		}
	}

	return ImageEntry{}, false
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	return len(c.entries)
}

// Clear drops every entry.
func (c *ImageCache) Clear() {
	clear(c.entries)
	c.entries = c.entries[:0]
}
