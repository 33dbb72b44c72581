package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the kind label.
const (
	KindLink  = "link"
	KindImage = "image"
)

var (
	UpdatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_updates_received_total",
		Help: "The total number of Telegram updates received",
	}, []string{"type"})

	DuplicatesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_duplicates_total",
		Help: "The total number of reposts detected",
	}, []string{"kind"})

	CacheInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_cache_inserts_total",
		Help: "The total number of first sightings stored in a cache",
	}, []string{"kind"})

	CacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "repost_cache_entries",
		Help: "Current number of entries held in a dedup cache",
	}, []string{"kind"})

	ImageMismatchRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repost_image_mismatch_ratio",
		Help:    "Share of mismatching pixels against the closest compared image",
		Buckets: []float64{0, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
	})

	LinksFixed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_links_fixed_total",
		Help: "The total number of links rewritten to an embed-friendly mirror",
	}, []string{"platform"})

	MediaFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_media_fetch_failures_total",
		Help: "The total number of failed media downloads",
	}, []string{"source"})

	TranscodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repost_transcode_duration_seconds",
		Help:    "Duration of webm to mp4 transcodes",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"status"})

	SettingsChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_settings_changes_total",
		Help: "The total number of accepted settings changes",
	}, []string{"setting"})

	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_commands_total",
		Help: "The total number of bot commands handled",
	}, []string{"command", "status"})

	HandlerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repost_handler_panics_total",
		Help: "The total number of recovered panics in update handlers",
	})
)
