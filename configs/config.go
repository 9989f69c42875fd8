// Package configs loads application configuration from config.yaml,
// a .env file, and LUMI_-prefixed environment variables, in increasing
// precedence.
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Backend BackendConfig
	Cache   CacheConfig
	Retry   RetryConfig
	Presets PresetsConfig
	Log     LogConfig
}

type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	AnonKey string        `mapstructure:"anon_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Freshness time.Duration `mapstructure:"freshness"`
	Eviction  time.Duration `mapstructure:"eviction"`
}

type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

type PresetsConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

// LoadConfig loads configuration. A .env file in the working directory is
// applied to the environment first, best-effort. When configPath is empty
// the usual locations are searched; a missing file just means defaults
// plus environment.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LUMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default so environment-only values reach Unmarshal.
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.anon_key", "")
	v.SetDefault("backend.timeout", "30s")

	v.SetDefault("cache.freshness", "5m")
	v.SetDefault("cache.eviction", "10m")

	v.SetDefault("retry.max_attempts", 3)

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("presets.path", filepath.Join(home, ".lumi", "saved_filters.json"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "development")
}

func validateConfig(c *Config) error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required (or set LUMI_BACKEND_URL)")
	}
	if c.Backend.AnonKey == "" {
		return fmt.Errorf("backend.anon_key is required (or set LUMI_BACKEND_ANON_KEY)")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Cache.Freshness <= 0 || c.Cache.Eviction < c.Cache.Freshness {
		return fmt.Errorf("cache eviction window must not be shorter than freshness")
	}
	return nil
}

// findConfigFile searches the usual locations for config.yaml
func findConfigFile() string {
	if envPath := os.Getenv("LUMI_CONFIG_FILE"); envPath != "" && fileExists(envPath) {
		return envPath
	}

	candidates := []string{
		"./configs/config.yaml",
		"./config.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".lumi", "config.yaml"))
	}

	for _, candidate := range candidates {
		if abs, err := filepath.Abs(candidate); err == nil && fileExists(abs) {
			return abs
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
