package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/UnknownOlympus/wardtagger/internal/models"
)

// ReconcileResult counts the remote mutations made for one member.
type ReconcileResult struct {
	Removed int // Ward taggings deleted
	Added   int // Ward taggings created
	Failed  int // Mutations the remote service rejected
}

// Reconciler makes the ward tags of a member match a resolution.
type Reconciler struct {
	remote Remote
	log    *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(remote Remote, log *slog.Logger) *Reconciler {
	return &Reconciler{remote: remote, log: log}
}

// Reconcile removes every ward tag the member holds and then adds one tagging per
// resolved ward. Tags that are not ward tags are never touched.
//
// A failed mutation does not stop the others and nothing is rolled back: the
// failure is counted in the result and the member is left for the next run.
// An error is returned only when the current taggings could not be read, in
// which case nothing was changed.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	memberID string,
	resolution models.Resolution,
	tags WardTagMap,
) (ReconcileResult, error) {
	var result ReconcileResult

	held, err := r.remote.ListTaggings(ctx, memberID)
	if err != nil {
		return result, fmt.Errorf("failed to read taggings of person %s: %w", memberID, err)
	}

	for _, tagID := range tags.TagIDs() {
		if !slices.Contains(held, tagID) {
			continue
		}
		r.log.InfoContext(ctx, "Removing tagging", "person", memberID, "tag", tagID)
		if err = r.remote.RemoveTagging(ctx, tagID, memberID); err != nil {
			r.log.ErrorContext(ctx, "Failed to remove tagging", "person", memberID, "tag", tagID, "error", err)
			result.Failed++
			continue
		}
		result.Removed++
	}

	for _, ward := range resolution.Wards {
		tagID, ok := tags[ward]
		if !ok {
			r.log.ErrorContext(ctx, "No tag for ward", "person", memberID, "ward", ward)
			result.Failed++
			continue
		}
		r.log.InfoContext(ctx, "Tagging to ward", "person", memberID, "ward", ward, "tag", tagID)
		if err = r.remote.AddTagging(ctx, tagID, memberID); err != nil {
			r.log.ErrorContext(ctx, "Failed to add tagging", "person", memberID, "tag", tagID, "error", err)
			result.Failed++
			continue
		}
		result.Added++
	}

	return result, nil
}
