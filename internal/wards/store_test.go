package wards_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/UnknownOlympus/wardtagger/internal/wards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two adjacent squares on the lake front: ward 12 to the west, ward 42 to the east.
// Ward 42 has a hole in its middle, and ward 7 duplicates part of ward 12 to check load order.
const shapesJSON = `[
	[12, "MULTIPOLYGON (((-87.70 41.80, -87.60 41.80, -87.60 41.90, -87.70 41.90, -87.70 41.80)))"],
	["42", "POLYGON ((-87.60 41.80, -87.50 41.80, -87.50 41.90, -87.60 41.90, -87.60 41.80), (-87.56 41.84, -87.54 41.84, -87.54 41.86, -87.56 41.86, -87.56 41.84))"],
	[7, "MULTIPOLYGON (((-87.70 41.80, -87.65 41.80, -87.65 41.85, -87.70 41.85, -87.70 41.80)))"]
]`

const overlapsJSON = `{
	"60601": [[3, 9000], [7, 400]],
	"60602": [[42, 120.5]],
	"60603": [["12", 50000.25]]
}`

func loadStore(t *testing.T) *wards.Store {
	t.Helper()

	shapes, err := wards.LoadShapes(strings.NewReader(shapesJSON))
	require.NoError(t, err)
	overlaps, err := wards.LoadZipOverlaps(strings.NewReader(overlapsJSON))
	require.NoError(t, err)

	return wards.NewStore(shapes, overlaps)
}

func TestWardContaining(t *testing.T) {
	t.Parallel()
	store := loadStore(t)
	require.Equal(t, 3, store.NumWards())

	tests := []struct {
		name   string
		coords models.Coordinates
		ward   models.WardNum
		found  bool
	}{
		{name: "inside west square", coords: models.Coordinates{Longitude: -87.62, Latitude: 41.88}, ward: 12, found: true},
		{name: "inside east square", coords: models.Coordinates{Longitude: -87.52, Latitude: 41.82}, ward: 42, found: true},
		{name: "inside hole", coords: models.Coordinates{Longitude: -87.55, Latitude: 41.85}, found: false},
		{name: "overlap resolved by load order", coords: models.Coordinates{Longitude: -87.68, Latitude: 41.82}, ward: 12, found: true},
		{name: "outside every ward", coords: models.Coordinates{Longitude: -88.5, Latitude: 42.5}, found: false},
		{name: "latitude and longitude swapped", coords: models.Coordinates{Longitude: 41.88, Latitude: -87.62}, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ward, found := store.WardContaining(tt.coords)

			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.ward, ward)
		})
	}
}

func TestSignificantWardsForZip(t *testing.T) {
	t.Parallel()
	store := loadStore(t)

	t.Run("high threshold keeps only large overlaps", func(t *testing.T) {
		t.Parallel()
		significant := store.SignificantWardsForZip(5000)

		assert.Equal(t, []models.WardNum{3}, significant[60601])
		assert.Equal(t, []models.WardNum{12}, significant[60603])

		wardsFor60602, known := significant[60602]
		assert.True(t, known, "zip codes without a qualifying ward stay in the table")
		assert.Empty(t, wardsFor60602)

		_, known = significant[60699]
		assert.False(t, known)
	})

	t.Run("low threshold keeps table order", func(t *testing.T) {
		t.Parallel()
		significant := store.SignificantWardsForZip(100)

		assert.Equal(t, []models.WardNum{3, 7}, significant[60601])
		assert.Equal(t, []models.WardNum{42}, significant[60602])
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		t.Parallel()
		significant := store.SignificantWardsForZip(400)

		assert.Equal(t, []models.WardNum{3, 7}, significant[60601])
	})
}

func TestLoadShapes_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
		errText string
	}{
		{name: "not json", input: `nope`, errText: "failed to decode ward shapes"},
		{name: "ward out of range", input: `[[51, "POLYGON ((0 0, 1 0, 1 1, 0 0))"]]`, wantErr: wards.ErrInvalidWard},
		{name: "ward zero", input: `[["0", "POLYGON ((0 0, 1 0, 1 1, 0 0))"]]`, wantErr: wards.ErrInvalidWard},
		{name: "point geometry", input: `[[1, "POINT (1 2)"]]`, wantErr: wards.ErrInvalidGeometry},
		{name: "broken wkt", input: `[[1, "MULTIPOLYGON (((0 0, 1"]]`, errText: "failed to parse geometry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			shapes, err := wards.LoadShapes(strings.NewReader(tt.input))

			require.Error(t, err)
			assert.Nil(t, shapes)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

func TestLoadZipOverlaps_Errors(t *testing.T) {
	t.Parallel()

	_, err := wards.LoadZipOverlaps(strings.NewReader(`{"ABCDE": [[1, 10]]}`))
	require.ErrorIs(t, err, wards.ErrInvalidZipcode)

	_, err = wards.LoadZipOverlaps(strings.NewReader(`{"60601": [[99, 10]]}`))
	require.ErrorIs(t, err, wards.ErrInvalidWard)

	_, err = wards.LoadZipOverlaps(strings.NewReader(`{"60601": [[1, "big"]]}`))
	require.ErrorContains(t, err, "failed to decode overlap area")
}

func TestLoad(t *testing.T) {
	defer filet.CleanUp(t)

	t.Run("reads both files from the data directory", func(t *testing.T) {
		dir := filet.TmpDir(t, "")
		filet.File(t, filepath.Join(dir, wards.ShapesFile), shapesJSON)
		filet.File(t, filepath.Join(dir, wards.OverlapsFile), overlapsJSON)

		store, err := wards.Load(dir)

		require.NoError(t, err)
		assert.Equal(t, 3, store.NumWards())
		assert.Equal(t, []models.WardNum{3}, store.SignificantWardsForZip(1000)[60601])
	})

	t.Run("missing overlaps file", func(t *testing.T) {
		dir := filet.TmpDir(t, "")
		filet.File(t, filepath.Join(dir, wards.ShapesFile), shapesJSON)

		store, err := wards.Load(dir)

		require.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "failed to open zip code overlaps")
	})

	t.Run("missing shapes file", func(t *testing.T) {
		dir := filet.TmpDir(t, "")

		_, err := wards.Load(dir)

		require.ErrorContains(t, err, "failed to open ward shapes")
	})
}
