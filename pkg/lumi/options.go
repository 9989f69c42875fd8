package lumi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"lumi/backend"
	"lumi/configs"
	"lumi/internal/cache"
	"lumi/retry"
)

// Option is a function that configures a Lumi instance
type Option func(*Config) error

// Config holds all configuration for a Lumi instance
type Config struct {
	// Backend
	BackendURL string
	AnonKey    string
	HTTPClient *http.Client
	// Client, when set, bypasses BackendURL/AnonKey entirely. Used to
	// inject a fake service in tests.
	Client backend.Client

	// Cache staleness window
	CacheFreshness time.Duration
	CacheEviction  time.Duration

	// Retry
	RetryMaxAttempts int

	// Saved filter presets
	PresetsPath string
	Fs          afero.Fs

	// Cross-context channel name
	ChannelName string

	Logger *zap.Logger
}

func defaultConfig() *Config {
	return &Config{
		CacheFreshness:   cache.DefaultFreshness,
		CacheEviction:    cache.DefaultEviction,
		RetryMaxAttempts: retry.DefaultMaxAttempts,
		PresetsPath:      ".lumi/saved_filters.json",
		Fs:               afero.NewOsFs(),
		ChannelName:      "lumi-sync",
		Logger:           zap.L(),
	}
}

// WithBackend points the engine at a backing service project.
func WithBackend(url, anonKey string) Option {
	return func(c *Config) error {
		if url == "" || anonKey == "" {
			return fmt.Errorf("backend url and anon key are required")
		}
		c.BackendURL = url
		c.AnonKey = anonKey
		return nil
	}
}

// WithHTTPClient overrides the transport used for service calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) error {
		if hc == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.HTTPClient = hc
		return nil
	}
}

// WithClient injects a ready-made backend client.
func WithClient(client backend.Client) Option {
	return func(c *Config) error {
		if client == nil {
			return fmt.Errorf("client cannot be nil")
		}
		c.Client = client
		return nil
	}
}

// WithCacheWindows overrides the cache freshness and eviction windows.
func WithCacheWindows(freshness, eviction time.Duration) Option {
	return func(c *Config) error {
		if freshness <= 0 || eviction < freshness {
			return fmt.Errorf("eviction window must not be shorter than freshness")
		}
		c.CacheFreshness = freshness
		c.CacheEviction = eviction
		return nil
	}
}

// WithRetryAttempts overrides the automatic retry bound.
func WithRetryAttempts(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("retry attempts must be at least 1")
		}
		c.RetryMaxAttempts = n
		return nil
	}
}

// WithPresets places the saved-filter file on the given filesystem and path.
func WithPresets(fs afero.Fs, path string) Option {
	return func(c *Config) error {
		if fs == nil || path == "" {
			return fmt.Errorf("preset filesystem and path are required")
		}
		c.Fs = fs
		c.PresetsPath = path
		return nil
	}
}

// WithLogger sets the logger for all components.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.Logger = logger
		return nil
	}
}

// FromConfig applies a loaded file configuration.
func FromConfig(fc *configs.Config) Option {
	return func(c *Config) error {
		if fc == nil {
			return fmt.Errorf("config cannot be nil")
		}
		c.BackendURL = fc.Backend.URL
		c.AnonKey = fc.Backend.AnonKey
		if fc.Backend.Timeout > 0 {
			c.HTTPClient = &http.Client{Timeout: fc.Backend.Timeout}
		}
		c.CacheFreshness = fc.Cache.Freshness
		c.CacheEviction = fc.Cache.Eviction
		c.RetryMaxAttempts = fc.Retry.MaxAttempts
		c.PresetsPath = fc.Presets.Path
		return nil
	}
}
