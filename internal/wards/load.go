package wards

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// File names of the static reference data inside the data directory.
const (
	ShapesFile   = "wards.json"
	OverlapsFile = "zipcode_to_wards.json"
)

// Errors returned while loading reference data.
var (
	ErrInvalidWard     = errors.New("ward number out of range")
	ErrInvalidGeometry = errors.New("ward geometry is not a polygon or multipolygon")
	ErrInvalidZipcode  = errors.New("zip code is not numeric")
)

// Load reads the ward shapes and the zip overlap table from dataDir.
func Load(dataDir string) (*Store, error) {
	shapesFile, err := os.Open(filepath.Join(dataDir, ShapesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open ward shapes: %w", err)
	}
	defer shapesFile.Close()

	shapes, err := LoadShapes(shapesFile)
	if err != nil {
		return nil, err
	}

	overlapsFile, err := os.Open(filepath.Join(dataDir, OverlapsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip code overlaps: %w", err)
	}
	defer overlapsFile.Close()

	overlaps, err := LoadZipOverlaps(overlapsFile)
	if err != nil {
		return nil, err
	}

	return NewStore(shapes, overlaps), nil
}

// LoadShapes decodes a JSON array of [ward, "MULTIPOLYGON (...)"] pairs.
// The ward may be encoded as a number or a string.
func LoadShapes(r io.Reader) ([]Shape, error) {
	var records [][2]json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode ward shapes: %w", err)
	}

	shapes := make([]Shape, 0, len(records))
	for idx, record := range records {
		ward, err := parseWard(record[0])
		if err != nil {
			return nil, fmt.Errorf("ward shape %d: %w", idx, err)
		}

		var text string
		if err = json.Unmarshal(record[1], &text); err != nil {
			return nil, fmt.Errorf("ward %d: failed to decode geometry text: %w", ward, err)
		}

		region, err := parseRegion(text)
		if err != nil {
			return nil, fmt.Errorf("ward %d: %w", ward, err)
		}

		shapes = append(shapes, Shape{Ward: ward, Region: region})
	}

	return shapes, nil
}

// LoadZipOverlaps decodes a JSON object mapping zip codes to [ward, square feet] pairs.
func LoadZipOverlaps(r io.Reader) (map[int][]Overlap, error) {
	var records map[string][][2]json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode zip code overlaps: %w", err)
	}

	overlaps := make(map[int][]Overlap, len(records))
	for key, pairs := range records {
		zipcode, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidZipcode, key)
		}

		entries := make([]Overlap, 0, len(pairs))
		for _, pair := range pairs {
			ward, errWard := parseWard(pair[0])
			if errWard != nil {
				return nil, fmt.Errorf("zip code %d: %w", zipcode, errWard)
			}

			var sqFeet float64
			if errArea := json.Unmarshal(pair[1], &sqFeet); errArea != nil {
				return nil, fmt.Errorf("zip code %d, ward %d: failed to decode overlap area: %w", zipcode, ward, errArea)
			}
			entries = append(entries, Overlap{Ward: ward, SqFeet: sqFeet})
		}
		overlaps[zipcode] = entries
	}

	return overlaps, nil
}

func parseWard(raw json.RawMessage) (models.WardNum, error) {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		var text string
		if errText := json.Unmarshal(raw, &text); errText != nil {
			return 0, fmt.Errorf("failed to decode ward number %s: %w", string(raw), err)
		}
		number = json.Number(strings.TrimSpace(text))
	}

	value, err := strconv.Atoi(number.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWard, number.String())
	}

	ward := models.WardNum(value)
	if !ward.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWard, value)
	}

	return ward, nil
}

func parseRegion(text string) (*geom.MultiPolygon, error) {
	parsed, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geometry: %w", err)
	}

	switch g := parsed.(type) {
	case *geom.MultiPolygon:
		return g, nil
	case *geom.Polygon:
		region := geom.NewMultiPolygon(g.Layout())
		if err = region.Push(g); err != nil {
			return nil, fmt.Errorf("failed to promote polygon: %w", err)
		}
		return region, nil
	default:
		return nil, ErrInvalidGeometry
	}
}
