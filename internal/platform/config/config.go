package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings bounds shared with the settings store.
const (
	minThreshold  = 0.05
	maxThreshold  = 0.95
	maxResolution = 100
)

type Config struct {
	AppEnv     string  `env:"APP_ENV" envDefault:"local"`
	BotToken   string  `env:"BOT_TOKEN,required"`
	AdminIDs   []int64 `env:"ADMIN_IDS" envSeparator:","`
	HealthPort int     `env:"HEALTH_PORT" envDefault:"8080"`
	BotDebug   bool    `env:"BOT_DEBUG" envDefault:"false"`

	// Duplicate detection
	DedupCacheSize    int     `env:"DEDUP_CACHE_SIZE" envDefault:"50"`
	DefaultThreshold  float64 `env:"DEDUP_THRESHOLD" envDefault:"0.5"`
	DefaultResolution int     `env:"DEDUP_RESOLUTION" envDefault:"30"`
	SimilarPixelRatio float64 `env:"SIMILAR_PIXEL_RATIO" envDefault:"0.10"`

	// Link fixing; the first domain of each list is the rewrite target.
	TwitterMirrorDomains   []string `env:"TWITTER_MIRROR_DOMAINS" envSeparator:"," envDefault:"vxtwitter.com,fxtwitter.com"`
	TikTokMirrorDomains    []string `env:"TIKTOK_MIRROR_DOMAINS" envSeparator:"," envDefault:"vxtiktok.com"`
	InstagramMirrorDomains []string `env:"INSTAGRAM_MIRROR_DOMAINS" envSeparator:"," envDefault:"kkinstagram.com"`
	LinkFixEnabled         bool     `env:"LINK_FIX_ENABLED" envDefault:"true"`

	// Media fetching
	MediaFetchRPS     float64       `env:"MEDIA_FETCH_RPS" envDefault:"5"`
	MediaFetchTimeout time.Duration `env:"MEDIA_FETCH_TIMEOUT" envDefault:"30s"`
	MediaMaxBytes     int64         `env:"MEDIA_MAX_BYTES" envDefault:"52428800"`

	// Webm transcoding
	WebmConversionEnabled bool          `env:"WEBM_CONVERSION_ENABLED" envDefault:"true"`
	FFmpegPath            string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	TranscodeTimeout      time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"5m"`
	TranscodeTempDir      string        `env:"TRANSCODE_TEMP_DIR"`

	// Chat extras
	RandomImageEndpoints []string `env:"RANDOM_IMAGE_ENDPOINTS" envSeparator:","`
	MessagesFile         string   `env:"MESSAGES_FILE"`
	MessageLocale        string   `env:"MESSAGE_LOCALE" envDefault:"en"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the startup defaults against the same bounds the
// runtime setters enforce.
func (c *Config) Validate() error {
	if c.DedupCacheSize <= 0 {
		return fmt.Errorf("%w: DEDUP_CACHE_SIZE must be positive, got %d", errInvalidConfig, c.DedupCacheSize)
	}

	if c.DefaultThreshold < minThreshold || c.DefaultThreshold > maxThreshold {
		return fmt.Errorf("%w: DEDUP_THRESHOLD must be in [%.2f, %.2f], got %v", errInvalidConfig, minThreshold, maxThreshold, c.DefaultThreshold)
	}

	if c.DefaultResolution <= 0 || c.DefaultResolution > maxResolution {
		return fmt.Errorf("%w: DEDUP_RESOLUTION must be in (0, %d], got %d", errInvalidConfig, maxResolution, c.DefaultResolution)
	}

	if c.SimilarPixelRatio < 0 || c.SimilarPixelRatio > 1 {
		return fmt.Errorf("%w: SIMILAR_PIXEL_RATIO must be in [0, 1], got %v", errInvalidConfig, c.SimilarPixelRatio)
	}

	return nil
}

// IsAdmin reports whether userID may run tuning commands. An empty
// ADMIN_IDS list leaves tuning open to every chat member.
func (c *Config) IsAdmin(userID int64) bool {
	if len(c.AdminIDs) == 0 {
		return true
	}

	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}
