package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/UnknownOlympus/wardtagger/internal/models"
	"golang.org/x/time/rate"
)

// CensusBaseURL is the US Census Bureau one-line address endpoint.
const CensusBaseURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"

const censusBenchmark = "Public_AR_Current"

// CensusProvider implements geocoding using the US Census Bureau geocoder.
type CensusProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Census API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// Common errors for Census provider.
var (
	ErrCensusEmptyResponse = errors.New("census API returned no address matches")
	ErrCensusEmptyAddress  = errors.New("census provider got empty address")
)

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// NewCensusProviderWithClient allows injecting custom HTTP client.
func NewCensusProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *CensusProvider {
	return &CensusProvider{
		client:  client,
		baseURL: CensusBaseURL,
		log:     log,
		limiter: limiter,
	}
}

// Geocode converts address into geographic coordinates using the Census one-line API.
func (cp *CensusProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	if err := cp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	cp.log.DebugContext(ctx, "Geocoding using Census", "address", address)

	if address == "" {
		return nil, ErrCensusEmptyAddress
	}

	reqURL, err := url.Parse(cp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("address", address)
	query.Set("benchmark", censusBenchmark)
	query.Set("format", "json")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		cp.log.ErrorContext(ctx, "Census API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("census API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result censusResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode census response: %w", err)
	}

	matches := result.Result.AddressMatches
	if len(matches) == 0 {
		return nil, ErrCensusEmptyResponse
	}

	cp.log.DebugContext(ctx, "Census found result",
		"address", address, "matched", matches[0].MatchedAddress,
		"lat", matches[0].Coordinates.Y, "lon", matches[0].Coordinates.X)

	return &models.Coordinates{
		Latitude:  matches[0].Coordinates.Y,
		Longitude: matches[0].Coordinates.X,
	}, nil
}
