// Package service tags Action Network members with the tag of the ward they live in.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/wardtagger/internal/actionnetwork"
	"github.com/UnknownOlympus/wardtagger/internal/models"
)

// WardTagPrefix starts the name of every ward tag, e.g. "Chicago Ward 12".
const WardTagPrefix = "Chicago Ward "

// wardCount is the number of wards, and so of ward tags.
const wardCount = int(models.MaxWard - models.MinWard + 1)

// ErrWardTagsIncomplete is returned when the tag catalog lacks a tag for some ward.
var ErrWardTagsIncomplete = errors.New("ward tags are incomplete")

// Remote is the part of the Action Network API the tagger uses.
type Remote interface {
	ListTags(ctx context.Context, page int) (actionnetwork.TagPage, error)
	ListPeople(ctx context.Context, page int, since *time.Time) (actionnetwork.PeoplePage, error)
	GetPerson(ctx context.Context, personID string) (actionnetwork.Person, error)
	ListTaggings(ctx context.Context, personID string) ([]string, error)
	AddTagging(ctx context.Context, tagID, personID string) error
	RemoveTagging(ctx context.Context, tagID, personID string) error
}

// WardTagMap maps every ward to the identifier of its tag.
type WardTagMap map[models.WardNum]string

// TagIDs returns the tag identifiers in ward order.
func (m WardTagMap) TagIDs() []string {
	ids := make([]string, 0, len(m))
	for ward := models.MinWard; ward <= models.MaxWard; ward++ {
		if id, ok := m[ward]; ok {
			ids = append(ids, id)
		}
	}

	return ids
}

// DiscoverWardTags pages through the tag catalog until a tag was found for every ward.
// Tags with other names, or naming a ward outside 1..50, are ignored.
func DiscoverWardTags(ctx context.Context, remote Remote, log *slog.Logger) (WardTagMap, error) {
	tags := make(WardTagMap, wardCount)

	for page := 1; len(tags) < wardCount; page++ {
		tagPage, err := remote.ListTags(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("failed to discover ward tags: %w", err)
		}

		for _, tag := range tagPage.Tags {
			ward, ok := wardFromTagName(tag.Name)
			if !ok {
				continue
			}
			tags[ward] = tag.ID
		}

		if len(tagPage.Tags) == 0 || page >= tagPage.TotalPages {
			break
		}
	}

	if len(tags) != wardCount {
		log.ErrorContext(ctx, "Found unexpected number of ward tags", "count", len(tags))
		return nil, fmt.Errorf("%w: found %d of %d", ErrWardTagsIncomplete, len(tags), wardCount)
	}

	log.DebugContext(ctx, "Found all ward tags", "tags", len(tags))

	return tags, nil
}

func wardFromTagName(name string) (models.WardNum, bool) {
	suffix, ok := strings.CutPrefix(name, WardTagPrefix)
	if !ok {
		return 0, false
	}

	num, err := strconv.Atoi(strings.TrimSpace(suffix))
	if err != nil {
		return 0, false
	}

	ward := models.WardNum(num)

	return ward, ward.Valid()
}
