// Package wards answers spatial questions about Chicago wards: which ward
// contains a point and which wards a zip code overlaps.
package wards

import (
	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Shape is a ward boundary in a (longitude, latitude) plane.
type Shape struct {
	Ward   models.WardNum
	Region *geom.MultiPolygon
}

// Overlap is the area, in square feet, that a zip code shares with a ward.
type Overlap struct {
	Ward   models.WardNum
	SqFeet float64
}

// Store holds the ward shapes and the zip overlap table loaded for a run.
// It is never mutated after construction.
type Store struct {
	shapes   []Shape
	overlaps map[int][]Overlap
}

// NewStore creates a Store. Shapes keep their order: when boundaries overlap,
// the shape listed first wins.
func NewStore(shapes []Shape, overlaps map[int][]Overlap) *Store {
	return &Store{shapes: shapes, overlaps: overlaps}
}

// NumWards returns the number of loaded ward shapes.
func (s *Store) NumWards() int {
	return len(s.shapes)
}

// WardContaining returns the first ward whose region contains the coordinates.
func (s *Store) WardContaining(coords models.Coordinates) (models.WardNum, bool) {
	point := geom.Coord{coords.Longitude, coords.Latitude}
	for _, shape := range s.shapes {
		if contains(shape.Region, point) {
			return shape.Ward, true
		}
	}

	return 0, false
}

// SignificantWardsForZip maps every known zip code to the wards it overlaps by at
// least minSqFeet, in table order. A zip with no qualifying ward maps to an empty list.
func (s *Store) SignificantWardsForZip(minSqFeet float64) map[int][]models.WardNum {
	significant := make(map[int][]models.WardNum, len(s.overlaps))
	for zipcode, overlaps := range s.overlaps {
		wards := []models.WardNum{}
		for _, overlap := range overlaps {
			if overlap.SqFeet >= minSqFeet {
				wards = append(wards, overlap.Ward)
			}
		}
		significant[zipcode] = wards
	}

	return significant
}

// contains reports whether the point lies inside an exterior ring of the
// region and outside that polygon's holes.
func contains(region *geom.MultiPolygon, point geom.Coord) bool {
	if region == nil || region.NumPolygons() == 0 {
		return false
	}
	if !region.Bounds().OverlapsPoint(region.Layout(), point) {
		return false
	}

	for i := range region.NumPolygons() {
		polygon := region.Polygon(i)
		if polygon.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(polygon.Layout(), point, polygon.LinearRing(0).FlatCoords()) {
			continue
		}

		inHole := false
		for j := 1; j < polygon.NumLinearRings(); j++ {
			if xy.IsPointInRing(polygon.Layout(), point, polygon.LinearRing(j).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}

	return false
}
