// Package config loads the tagger configuration and keeps the last-run state.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load, e.g. UEIL_API_KEY.
const EnvPrefix = "UEIL"

// LastRunFile is the name of the file, under the state directory, holding the time of the last batch.
const LastRunFile = "last_run.txt"

// Configuration errors.
var (
	ErrMissingAPIKey    = errors.New("action network API key is required")
	ErrInvalidMinSqFeet = errors.New("minimum zip overlap must be positive")
	ErrInvalidSince     = errors.New("invalid date")
)

// Config holds the configuration settings for the ward tagger.
//
// Fields:
// - Env: The current environment (local, development, production), selects the log format.
// - APIKey: The Action Network API key of the group.
// - MinSqFeet: The overlap a zip code must share with a ward to be tagged with it.
// - DataDir: The directory holding wards.json and zipcode_to_wards.json.
// - StateDir: The directory holding the geocode cache and the last-run file.
type Config struct {
	Env           string              `mapstructure:"env"`           // Env is the current environment: local, development, production.
	APIKey        string              `mapstructure:"api_key"`       // APIKey is the Action Network API key.
	MinSqFeet     float64             `mapstructure:"min_sqft"`      // MinSqFeet is the significant zip/ward overlap.
	DataDir       string              `mapstructure:"data_dir"`      // DataDir holds the static ward data.
	StateDir      string              `mapstructure:"state_dir"`     // StateDir holds state kept between runs.
	Geocoder      GeocoderConfig      `mapstructure:"geocoder"`      // Geocoder selects and tunes the geocoding provider.
	Cache         CacheConfig         `mapstructure:"cache"`         // Cache selects the persistent cache backend.
	ActionNetwork ActionNetworkConfig `mapstructure:"actionnetwork"` // ActionNetwork tunes the API client.
	Metrics       MetricsConfig       `mapstructure:"metrics"`       // Metrics configures where run metrics go.
}

// GeocoderConfig configures the geocoding provider.
type GeocoderConfig struct {
	Provider  string        `mapstructure:"provider"`   // Provider is one of nominatim, google, census.
	APIKey    string        `mapstructure:"api_key"`    // APIKey is required by the google provider.
	Timeout   time.Duration `mapstructure:"timeout"`    // Timeout bounds a single lookup.
	RateLimit int           `mapstructure:"rate_limit"` // RateLimit is in requests per second, 0 for the provider default.
}

// CacheConfig configures the persistent cache.
type CacheConfig struct {
	Driver string `mapstructure:"driver"` // Driver is sqlite or postgres.
	DSN    string `mapstructure:"dsn"`    // DSN is the sqlite path or postgres URL; empty means StateDir/cache.db.
}

// ActionNetworkConfig configures the Action Network API client.
type ActionNetworkConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// MetricsConfig configures the metrics push at the end of a run.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"` // PushgatewayURL is empty when metrics are not pushed.
}

// legacyKeys maps the key names of older config.toml files to the current ones.
var legacyKeys = map[string]string{
	"action-network-api-key": "api_key",
	"min-zip-sqft":           "min_sqft",
}

// Load reads the configuration from, in increasing priority: defaults, the TOML
// file at path (config.toml in the working directory when path is empty), and
// UEIL_ environment variables, which may also come from a .env file.
// A missing config.toml is not an error unless path names it explicitly.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"api_key", "min_sqft", "geocoder.api_key", "cache.dsn", "metrics.pushgateway_url"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	v.SetDefault("env", "production")
	v.SetDefault("data_dir", "data")
	v.SetDefault("state_dir", "app_state")
	v.SetDefault("geocoder.provider", "nominatim")
	v.SetDefault("geocoder.timeout", "30s")
	v.SetDefault("geocoder.rate_limit", 0)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("actionnetwork.base_url", "https://actionnetwork.org/api/v2")
	v.SetDefault("actionnetwork.timeout", "30s")
	v.SetDefault("actionnetwork.rate_limit", 4)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for legacy, key := range legacyKeys {
		if v.InConfig(legacy) && !v.IsSet(key) {
			v.Set(key, v.Get(legacy))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings a run cannot do without.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.MinSqFeet <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidMinSqFeet, c.MinSqFeet)
	}

	return nil
}

// sinceLayouts are the accepted date formats, tried in order.
var sinceLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseSince parses an ISO 8601 date. Dates without a zone are taken as UTC.
func ParseSince(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range sinceLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSince, value)
}

// GetLastRun returns the time of the last successful batch, or nil when there
// was none. An unreadable or invalid state file is logged and treated as absent.
func GetLastRun(stateDir string, log *slog.Logger) *time.Time {
	path := filepath.Join(stateDir, LastRunFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error("Failed to read last run", "path", path, "error", err)
		}
		return nil
	}

	lastRun, err := ParseSince(string(data))
	if err != nil {
		log.Error("Invalid date format stored in last run file", "path", path, "error", err)
		return nil
	}

	return &lastRun
}

// SetLastRun stores the time of a successful batch.
func SetLastRun(stateDir string, lastRun time.Time) error {
	if err := os.MkdirAll(stateDir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	path := filepath.Join(stateDir, LastRunFile)
	if err := os.WriteFile(path, []byte(lastRun.Format(time.RFC3339)), 0o600); err != nil {
		return fmt.Errorf("failed to write last run: %w", err)
	}

	return nil
}
