package dedup

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/repost-bot/internal/core/links"
	"github.com/lueurxax/repost-bot/internal/core/media"
	"github.com/lueurxax/repost-bot/internal/platform/observability"
	"github.com/lueurxax/repost-bot/internal/platform/settings"
)

// Log key constants for deduplication.
const (
	logKeyKey      = "key"
	logKeyAuthor   = "author"
	logKeyMismatch = "mismatch"
	logKeyLimit    = "limit"
)

// DefaultCacheSize is the per-cache capacity used when none is configured.
const DefaultCacheSize = 50

// Deps are the collaborators an Engine needs.
type Deps struct {
	Canonicalizer *links.Canonicalizer
	Fixer         *links.Fixer
	Reducer       media.Reducer
	Differ        media.PixelDiffer
	Settings      *settings.Store
}

// LinkMatch is an already seen link found in a message.
type LinkMatch struct {
	URL      string
	Key      string
	Sighting Sighting
}

// Rewrite is a link that should be reposted on an embed-friendly mirror.
type Rewrite struct {
	Original string
	Fixed    string
	Platform links.Platform
}

// LinkReport is the outcome of checking one message's links.
type LinkReport struct {
	Duplicate *LinkMatch
	Rewrites  []Rewrite
}

// ImageResult is the outcome of checking one image. Thumbnail is the
// cached image on a hit and the incoming one otherwise.
type ImageResult struct {
	Duplicate   bool
	Sighting    Sighting
	Mismatch    int
	TotalPixels int
	Limit       int
	Thumbnail   media.Reduced
}

// Engine checks incoming content against the link and image caches.
// Each check scans and inserts under a single lock.
type Engine struct {
	mu        sync.Mutex
	canon     *links.Canonicalizer
	fixer     *links.Fixer
	reducer   media.Reducer
	differ    media.PixelDiffer
	settings  *settings.Store
	linkCache *LinkCache
	images    *ImageCache
	logger    *zerolog.Logger
}

// NewEngine creates an engine whose caches each hold cacheSize entries.
func NewEngine(deps Deps, cacheSize int, logger *zerolog.Logger) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if deps.Canonicalizer == nil {
		deps.Canonicalizer = links.NewCanonicalizer(links.DefaultMirrorDomains())
	}

	if deps.Fixer == nil {
		deps.Fixer = links.NewFixer(deps.Canonicalizer, links.DefaultMirrorDomains())
	}

	if deps.Reducer == nil {
		deps.Reducer = media.NewImageReducer()
	}

	if deps.Differ == nil {
		deps.Differ = media.NewYIQDiffer()
	}

	if deps.Settings == nil {
		deps.Settings = settings.NewDefault()
	}

	linkCache, err := NewLinkCache(cacheSize)
	if err != nil {
		return nil, err
	}

	images, err := NewImageCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}

	return &Engine{
		canon:     deps.Canonicalizer,
		fixer:     deps.Fixer,
		reducer:   deps.Reducer,
		differ:    deps.Differ,
		settings:  deps.Settings,
		linkCache: linkCache,
		images:    images,
		logger:    logger,
	}, nil
}

// Settings exposes the store the engine reads on every check.
func (e *Engine) Settings() *settings.Store {
	return e.settings
}

// CheckLinks looks up each URL in order and stops at the first repost.
// Links seen for the first time are stored; mirror rewrites are reported
// only for messages without a repost. A key repeated within the message
// is evaluated once, so a message never reposts itself.
func (e *Engine) CheckLinks(urls []string, seen Sighting) LinkReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		report   LinkReport
		rewrites []Rewrite
	)

	inMessage := make(map[string]struct{}, len(urls))

	for _, raw := range urls {
		id := e.canon.Canonicalize(raw)
		key := id.Key(raw)

		if _, dup := inMessage[key]; dup {
			continue
		}

		inMessage[key] = struct{}{}

		if entry, ok := e.linkCache.Lookup(key); ok {
			observability.DuplicatesDetected.WithLabelValues(observability.KindLink).Inc()
			e.logger.Debug().Str(logKeyKey, key).Str(logKeyAuthor, entry.Sighting.Author).Msg("link repost detected")

			report.Duplicate = &LinkMatch{URL: raw, Key: key, Sighting: entry.Sighting}

			return report
		}

		if e.linkCache.Insert(key, seen) {
			observability.CacheInserts.WithLabelValues(observability.KindLink).Inc()
		}

		if fixed, ok := e.fixer.FixIdentity(id, raw); ok {
			rewrites = append(rewrites, Rewrite{Original: raw, Fixed: fixed, Platform: id.Platform})
		}
	}

	observability.CacheEntries.WithLabelValues(observability.KindLink).Set(float64(e.linkCache.Len()))

	report.Rewrites = rewrites

	return report
}

// CheckImage reduces data at the current resolution and compares it with
// cached images. A miss stores the image; a hit leaves the cache as is.
func (e *Engine) CheckImage(data []byte, seen Sighting) (ImageResult, error) {
	reduced, err := e.reducer.Reduce(data, e.settings.Resolution())
	if err != nil {
		return ImageResult{}, fmt.Errorf("reduce image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.settings.Snapshot()

	// Resolution may have changed since the unlocked reduce.
	if reduced.Width != snap.Resolution {
		reduced, err = e.reducer.Reduce(data, snap.Resolution)
		if err != nil {
			return ImageResult{}, fmt.Errorf("reduce image: %w", err)
		}
	}

	candidate := NewImageEntry(reduced, seen)
	total := reduced.Width * reduced.Height
	best := -1

	match, found := e.images.Scan(func(cached ImageEntry) bool {
		if !cached.Payload.SameShape(reduced) {
			return false
		}

		mismatch := 0
		if cached.Digest != candidate.Digest {
			mismatch = e.differ.Diff(cached.Payload.Pixels, reduced.Pixels, reduced.Width, reduced.Height, snap.Threshold)
		}

		if best < 0 || mismatch < best {
			best = mismatch
		}

		return mismatch <= snap.SimilarPixelCount
	})

	if best >= 0 && total > 0 {
		observability.ImageMismatchRatio.Observe(float64(best) / float64(total))
	}

	result := ImageResult{
		TotalPixels: total,
		Limit:       snap.SimilarPixelCount,
		Thumbnail:   reduced,
	}

	if found {
		observability.DuplicatesDetected.WithLabelValues(observability.KindImage).Inc()
		e.logger.Debug().
			Str(logKeyKey, match.Key).
			Str(logKeyAuthor, match.Sighting.Author).
			Int(logKeyMismatch, best).
			Int(logKeyLimit, snap.SimilarPixelCount).
			Msg("image repost detected")

		result.Duplicate = true
		result.Sighting = match.Sighting
		result.Mismatch = best
		result.Thumbnail = match.Payload

		return result, nil
	}

	e.images.Insert(candidate)
	observability.CacheInserts.WithLabelValues(observability.KindImage).Inc()
	observability.CacheEntries.WithLabelValues(observability.KindImage).Set(float64(e.images.Len()))

	return result, nil
}

// SetResolution changes the reduce size and clears the image cache in the
// same critical section.
func (e *Engine) SetResolution(n int) (settings.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.settings.SetResolution(n)
	if err != nil {
		return snap, err
	}

	e.images.Clear()
	observability.CacheEntries.WithLabelValues(observability.KindImage).Set(0)
	e.logger.Info().Int("resolution", n).Int("similar_pixels", snap.SimilarPixelCount).Msg("resolution changed, image cache cleared")

	return snap, nil
}

// IncreaseThreshold raises per-pixel sensitivity tolerance by one step.
func (e *Engine) IncreaseThreshold() float64 {
	return e.settings.IncreaseThreshold()
}

// DecreaseThreshold lowers per-pixel sensitivity tolerance by one step.
func (e *Engine) DecreaseThreshold() float64 {
	return e.settings.DecreaseThreshold()
}

// SetSimilarPixelCount sets the mismatch ceiling for image matches.
func (e *Engine) SetSimilarPixelCount(n int) error {
	return e.settings.SetSimilarPixelCount(n)
}

// CacheSizes returns the current link and image cache lengths.
func (e *Engine) CacheSizes() (linkCount, imageCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.linkCache.Len(), e.images.Len()
}
