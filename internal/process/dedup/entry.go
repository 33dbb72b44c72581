// Package dedup detects reposted links and images against bounded
// in-memory caches of first sightings.
package dedup

import (
	"math"
	"time"
)

// Sighting records who posted something first and when.
type Sighting struct {
	Author    string
	SeenAt    time.Time
	ChatID    int64
	MessageID int
}

// MinutesAgo returns the elapsed minutes since the sighting rounded to one
// decimal place. Clock skew never yields a negative value.
func (s Sighting) MinutesAgo(now time.Time) float64 {
	elapsed := now.Sub(s.SeenAt)
	if elapsed <= 0 {
		return 0
	}

	return math.Round(elapsed.Minutes()*10) / 10
}

// Entry is a cached first sighting with an optional payload.
type Entry[V any] struct {
	Key      string
	Payload  V
	Sighting Sighting
}
