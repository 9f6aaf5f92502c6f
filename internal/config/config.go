package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/pauljones0/beatmaplinker/internal/validator"
)

const (
	ScanModeStream = "stream"
	ScanModePoll   = "poll"

	defaultTillerinoKey = "00000000000000000000000000000000"
)

type Config struct {
	RedditUsername        string        `validate:"required"`
	RedditPassword        string        `validate:"required"`
	RedditClientID        string        `validate:"required"`
	RedditClientSecret    string        `validate:"required"`
	RedditUserAgent       string        `validate:"required"`
	Subreddit             string        `validate:"required"`
	RedditRequestInterval time.Duration `validate:"gte=0"`

	OsuAPIKey       string `validate:"required"`
	TillerinoAPIKey string
	TillerinoWait   int `validate:"gte=0"`

	TemplatesPath string
	ScanMode      string `validate:"oneof=stream poll"`

	MaxComments        int `validate:"gt=0"`
	MaxSubmissions     int `validate:"gt=0"`
	StreamSeenCapacity int `validate:"gt=0"`

	PollInterval time.Duration `validate:"gte=0"`
	ExtraDelay   time.Duration `validate:"gte=0"`
	RetryDelay   time.Duration `validate:"gte=0"`

	MaxMaps     int `validate:"gt=0"`
	MemeMarker  string
	HTTPTimeout time.Duration `validate:"gt=0"`

	Port      string
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honoured when present; real environment values win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var errs []error
	durationVar := func(name string, def time.Duration) time.Duration {
		v := os.Getenv(name)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, v, err))
			return def
		}
		return d
	}
	intVar := func(name string, def int) int {
		v := os.Getenv(name)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, v, err))
			return def
		}
		return n
	}

	username := os.Getenv("REDDIT_USERNAME")
	userAgent := stringVar("REDDIT_USER_AGENT", "beatmaplinker/1.0 by "+username)

	tillerinoKey := stringVar("TILLERINO_API_KEY", defaultTillerinoKey)
	if tillerinoKey == defaultTillerinoKey {
		slog.Warn("TILLERINO_API_KEY not set, PP information will be omitted")
	}

	cfg := &Config{
		RedditUsername:        username,
		RedditPassword:        os.Getenv("REDDIT_PASSWORD"),
		RedditClientID:        os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret:    os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUserAgent:       userAgent,
		Subreddit:             os.Getenv("REDDIT_SUBREDDIT"),
		RedditRequestInterval: durationVar("REDDIT_REQUEST_INTERVAL", time.Second),

		OsuAPIKey:       os.Getenv("OSU_API_KEY"),
		TillerinoAPIKey: tillerinoKey,
		TillerinoWait:   intVar("TILLERINO_WAIT", 1000),

		TemplatesPath: stringVar("TEMPLATES_PATH", "templates.yaml"),
		ScanMode:      stringVar("SCAN_MODE", ScanModeStream),

		MaxComments:        intVar("MAX_COMMENTS", 100),
		MaxSubmissions:     intVar("MAX_SUBMISSIONS", 50),
		StreamSeenCapacity: intVar("STREAM_SEEN_CAPACITY", 300),

		PollInterval: durationVar("POLL_INTERVAL", 3*time.Second),
		ExtraDelay:   durationVar("EXTRA_DELAY", 0),
		RetryDelay:   durationVar("RETRY_DELAY", 15*time.Second),

		MaxMaps:     intVar("MAX_MAPS", 300),
		MemeMarker:  os.Getenv("MEME_MARKER"),
		HTTPTimeout: durationVar("HTTP_TIMEOUT", 30*time.Second),

		Port:      os.Getenv("PORT"),
		LogLevel:  stringVar("LOG_LEVEL", "info"),
		LogFormat: stringVar("LOG_FORMAT", "text"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// PollDelay is the pause between polls.
func (c *Config) PollDelay() time.Duration {
	return c.PollInterval + c.ExtraDelay
}

func stringVar(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
