// Package resolver decides which wards a member belongs to.
package resolver

import (
	"context"
	"log/slog"
	"slices"

	"github.com/UnknownOlympus/wardtagger/internal/models"
)

// Geocoder turns a full address into coordinates.
type Geocoder interface {
	CoordinatesForAddress(ctx context.Context, address string) (*models.Coordinates, error)
}

// WardLocator answers the spatial questions the resolver needs.
type WardLocator interface {
	WardContaining(coords models.Coordinates) (models.WardNum, bool)
	SignificantWardsForZip(minSqFeet float64) map[int][]models.WardNum
}

// Resolver assigns wards to members, trying the self-reported ward field first,
// then the geocoded street address and finally the zip code.
type Resolver struct {
	locator     WardLocator
	geocoder    Geocoder
	significant map[int][]models.WardNum // zip code -> wards overlapping it by at least minSqFeet
	log         *slog.Logger
}

// New creates a Resolver. The significant zip table is computed once for minSqFeet.
func New(locator WardLocator, geocoder Geocoder, minSqFeet float64, log *slog.Logger) *Resolver {
	return &Resolver{
		locator:     locator,
		geocoder:    geocoder,
		significant: locator.SignificantWardsForZip(minSqFeet),
		log:         log,
	}
}

// Resolve returns the wards of the member together with the tier that produced them.
// It never fails: a tier that cannot decide falls through to the next one, and
// models.NoResolution is returned when none can.
func (r *Resolver) Resolve(ctx context.Context, member models.Member) models.Resolution {
	if member.CustomFieldWard != nil && member.CustomFieldWard.Valid() {
		ward := *member.CustomFieldWard
		r.log.DebugContext(ctx, "Assigned ward based on custom field", "person", member.ID, "ward", ward)
		return models.Resolution{Wards: []models.WardNum{ward}, Strategy: models.StrategyField}
	}

	if member.HasStreetAddress() {
		if address, ok := member.FullAddress(); ok {
			ward, found, err := r.wardForAddress(ctx, address)
			if found {
				r.log.DebugContext(ctx, "Assigned ward by geocoding",
					"person", member.ID, "ward", ward, "address", address)
				return models.Resolution{Wards: []models.WardNum{ward}, Strategy: models.StrategyAddress}
			}
			r.log.ErrorContext(ctx, "Couldn't geocode ward from address",
				"person", member.ID, "address", address, "error", err)
		}
	}

	if member.Zipcode != nil {
		if wards, known := r.significant[*member.Zipcode]; known {
			r.log.DebugContext(ctx, "Assigned wards based on zip",
				"person", member.ID, "wards", wards, "zipcode", *member.Zipcode)
			return models.Resolution{Wards: slices.Clone(wards), Strategy: models.StrategyZipcode}
		}
	}

	r.log.DebugContext(ctx, "Unable to assign a ward", "person", member.ID)

	return models.NoResolution
}

// wardForAddress reports found=false with a nil error when the point lies outside every ward.
func (r *Resolver) wardForAddress(ctx context.Context, address string) (models.WardNum, bool, error) {
	coords, err := r.geocoder.CoordinatesForAddress(ctx, address)
	if err != nil {
		return 0, false, err
	}

	ward, found := r.locator.WardContaining(*coords)

	return ward, found, nil
}
