// Package settings holds the runtime-tunable duplicate detection parameters.
//
// A Store is created once at startup and shared by reference between the
// dedup engine and the command handlers. All mutation goes through the
// validating setters below.
package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/lueurxax/repost-bot/internal/core/errors"
)

// Parameter bounds.
const (
	MinThreshold  = 0.05
	MaxThreshold  = 0.95
	ThresholdStep = 0.05
	MaxResolution = 100

	DefaultThreshold  = 0.5
	DefaultResolution = 30
	DefaultPixelRatio = 0.10

	thresholdPrecision = 100
	ratioEpsilon       = 1e-9
)

// Snapshot is a point-in-time copy of the parameters.
type Snapshot struct {
	Threshold         float64
	Resolution        int
	SimilarPixelCount int
}

// TotalPixels is the pixel count of one reduced image.
func (s Snapshot) TotalPixels() int {
	return s.Resolution * s.Resolution
}

type Store struct {
	mu                sync.RWMutex
	threshold         float64
	resolution        int
	similarPixelCount int
	pixelRatio        float64
}

// New creates a store. Out-of-range inputs fall back to the defaults.
func New(threshold float64, resolution int, pixelRatio float64) *Store {
	if threshold < MinThreshold || threshold > MaxThreshold {
		threshold = DefaultThreshold
	}

	if resolution <= 0 || resolution > MaxResolution {
		resolution = DefaultResolution
	}

	if pixelRatio < 0 || pixelRatio > 1 {
		pixelRatio = DefaultPixelRatio
	}

	return &Store{
		threshold:         threshold,
		resolution:        resolution,
		similarPixelCount: SimilarPixelsFor(resolution, pixelRatio),
		pixelRatio:        pixelRatio,
	}
}

// NewDefault creates a store with the built-in defaults.
func NewDefault() *Store {
	return New(DefaultThreshold, DefaultResolution, DefaultPixelRatio)
}

// SimilarPixelsFor derives the mismatch ceiling for a square resolution.
func SimilarPixelsFor(resolution int, ratio float64) int {
	return int(math.Ceil(float64(resolution*resolution)*ratio - ratioEpsilon))
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Threshold:         s.threshold,
		Resolution:        s.resolution,
		SimilarPixelCount: s.similarPixelCount,
	}
}

func (s *Store) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.threshold
}

func (s *Store) Resolution() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.resolution
}

func (s *Store) SimilarPixelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.similarPixelCount
}

// IncreaseThreshold raises the per-pixel threshold one step and returns the new value.
func (s *Store) IncreaseThreshold() float64 {
	return s.stepThreshold(ThresholdStep)
}

// DecreaseThreshold lowers the per-pixel threshold one step and returns the new value.
func (s *Store) DecreaseThreshold() float64 {
	return s.stepThreshold(-ThresholdStep)
}

func (s *Store) stepThreshold(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := math.Round((s.threshold+delta)*thresholdPrecision) / thresholdPrecision
	s.threshold = clampFloat64(next, MinThreshold, MaxThreshold)

	return s.threshold
}

// SetResolution validates and stores a new resolution, recomputing the
// similar pixel count. Callers must clear the image cache in the same
// critical section; dedup.Engine.SetResolution does that.
func (s *Store) SetResolution(n int) (Snapshot, error) {
	if n <= 0 || n > MaxResolution {
		return s.Snapshot(), fmt.Errorf("%w: %d not in (0, %d]", errors.ErrInvalidResolution, n, MaxResolution)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resolution = n
	s.similarPixelCount = SimilarPixelsFor(n, s.pixelRatio)

	return Snapshot{Threshold: s.threshold, Resolution: s.resolution, SimilarPixelCount: s.similarPixelCount}, nil
}

// SetSimilarPixelCount stores an explicit mismatch ceiling. It is kept
// until the next resolution change.
func (s *Store) SetSimilarPixelCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d is negative", errors.ErrInvalidPixelCount, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.similarPixelCount = n

	return nil
}

// ParseResolution parses command text into a resolution value.
func ParseResolution(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidResolution, arg)
	}

	return n, nil
}

// ParseSimilarPixelCount parses command text into a pixel count.
func ParseSimilarPixelCount(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidPixelCount, arg)
	}

	if n < 0 {
		return 0, fmt.Errorf("%w: %d is negative", errors.ErrInvalidPixelCount, n)
	}

	return n, nil
}

func clampFloat64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
