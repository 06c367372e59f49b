package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/wardtagger/internal/metrics"
	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/UnknownOlympus/wardtagger/internal/repository"
)

// Geocoder resolves addresses to coordinates, consulting a persistent cache
// before the provider. Only successful lookups are cached, so a failed address
// is retried on the next run.
type Geocoder struct {
	cache        repository.GeocodeCache // Cache keyed by the exact address string
	provider     Provider                // Provider queried on cache misses
	providerName string                  // Name of the provider for metrics labeling
	timeout      time.Duration           // Upper bound for a single provider call
	metrics      *metrics.Metrics        // Metrics for cache and provider usage
	log          *slog.Logger            // Logger for logging operations
}

// NewGeocoder creates a Geocoder. A non-positive timeout falls back to 30 seconds.
func NewGeocoder(
	cache repository.GeocodeCache,
	provider Provider,
	providerName string,
	timeout time.Duration,
	metrics *metrics.Metrics,
	log *slog.Logger,
) *Geocoder {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Geocoder{
		cache:        cache,
		provider:     provider,
		providerName: providerName,
		timeout:      timeout,
		metrics:      metrics,
		log:          log,
	}
}

// CoordinatesForAddress returns the coordinates of address from the cache or the provider.
func (g *Geocoder) CoordinatesForAddress(ctx context.Context, address string) (*models.Coordinates, error) {
	cached, err := g.cache.GetCoordinates(ctx, address)
	switch {
	case err == nil:
		g.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return &cached, nil
	case errors.Is(err, repository.ErrCacheMiss):
		g.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	default:
		g.metrics.GeocodeCache.WithLabelValues("error").Inc()
		g.log.WarnContext(ctx, "Failed to read geocode cache, querying provider", "address", address, "error", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	startTime := time.Now()
	coords, err := g.provider.Geocode(reqCtx, address)
	g.metrics.RequestSeconds.WithLabelValues(g.providerName).Observe(time.Since(startTime).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", address, err)
	}
	if coords == nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", address, ErrEmptyResponse)
	}

	if err = g.cache.SetCoordinates(ctx, address, *coords); err != nil {
		g.log.ErrorContext(ctx, "Failed to store coordinates in geocode cache", "address", address, "error", err)
	}

	return coords, nil
}
