package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeCensus represents the US Census Bureau geocoding provider.
	ProviderTypeCensus ProviderType = "census"
)

const defaultTimeout = 30 * time.Second

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType  // Type of provider to create
	APIKey    string        // API key (used by Google provider)
	RateLimit int           // Rate limit for requests per second
	Timeout   time.Duration // Timeout for a single HTTP request
	UserAgent string        // User agent sent to Nominatim
	Logger    *slog.Logger  // Logger for the provider
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
// - "google": Google Maps Geocoding API (requires API key)
// - "census": US Census Bureau one-line address geocoder (free, US addresses only)
//
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	switch config.Type {
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config)
	case ProviderTypeCensus:
		return newCensusProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}

	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Timeout, config.Logger), nil
}

// newNominatimProvider creates a Nominatim geocoding provider.
func newNominatimProvider(config ProviderConfig) (Provider, error) {
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	return NewNominatimProvider(config.UserAgent, config.Timeout, config.Logger), nil
}

// newCensusProvider creates a US Census geocoding provider.
func newCensusProvider(config ProviderConfig) (Provider, error) {
	if config.RateLimit <= 0 {
		config.RateLimit = 5
		config.Logger.Warn("Rate limit for Census API not set, set a default value", "value", config.RateLimit)
	}

	limiter := rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)

	return NewCensusProviderWithClient(&http.Client{Timeout: config.Timeout}, limiter, config.Logger), nil
}
