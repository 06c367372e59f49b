package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/wardtagger/internal/actionnetwork"
	"github.com/UnknownOlympus/wardtagger/internal/metrics"
	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/UnknownOlympus/wardtagger/internal/repository"
)

// Resolver assigns wards to a member.
type Resolver interface {
	Resolve(ctx context.Context, member models.Member) models.Resolution
}

// Tagger runs ward tagging over the members of the remote service.
// Members are processed one at a time, in the order the remote lists them.
type Tagger struct {
	remote     Remote                // Action Network API
	resolver   Resolver              // Decides the wards of a member
	reconciler *Reconciler           // Applies the decision to the member's tags
	batch      repository.BatchCache // Batch progress and members awaiting a retry
	metrics    *metrics.Metrics      // Metrics for the run
	log        *slog.Logger          // Logger for logging service activities
}

// NewTagger creates a Tagger.
func NewTagger(
	remote Remote,
	resolver Resolver,
	batch repository.BatchCache,
	metrics *metrics.Metrics,
	log *slog.Logger,
) *Tagger {
	return &Tagger{
		remote:     remote,
		resolver:   resolver,
		reconciler: NewReconciler(remote, log),
		batch:      batch,
		metrics:    metrics,
		log:        log,
	}
}

// RunBatch tags every member modified after since, or every member when since is nil.
//
// Failing to discover the ward tags or to list members stops the run with an error.
// Problems with a single member are logged, counted in the summary and skipped.
// Members handled by an interrupted earlier batch are skipped until a batch completes.
// Members whose tag changes failed are queued and retried first by the next batch,
// whatever since says.
func (t *Tagger) RunBatch(ctx context.Context, since *time.Time) (models.TaggingsSummary, error) {
	var summary models.TaggingsSummary

	if since != nil {
		t.log.InfoContext(ctx, "Tagging members updated since", "since", since.Format(time.RFC3339))
	} else {
		t.log.InfoContext(ctx, "Tagging all members")
	}

	tags, err := DiscoverWardTags(ctx, t.remote, t.log)
	if err != nil {
		return summary, err
	}

	if err = t.retryPending(ctx, tags, &summary); err != nil {
		return summary, err
	}

	for pageNum := 1; ; pageNum++ {
		page, err := t.remote.ListPeople(ctx, pageNum, since)
		if err != nil {
			return summary, fmt.Errorf("failed to list members: %w", err)
		}

		t.log.DebugContext(ctx, "Fetched members page",
			"page", pageNum, "total_pages", page.TotalPages, "members", len(page.People))

		for _, rejected := range page.Rejected {
			t.log.ErrorContext(ctx, "Skipping malformed member record", "error", rejected.Err, "record", rejected.Raw)
			t.recordError(&summary)
		}

		for _, person := range page.People {
			if ctx.Err() != nil {
				return summary, fmt.Errorf("batch interrupted: %w", ctx.Err())
			}
			t.processBatchMember(ctx, person, tags, since, &summary)
		}

		if page.Last() {
			break
		}
	}

	if err = t.batch.ClearProcessedMembers(ctx); err != nil {
		t.log.WarnContext(ctx, "Failed to clear processed members", "error", err)
	}

	t.log.InfoContext(ctx, "Batch finished", "members", summary.MembersConsidered(), "errors", summary.Errors)

	return summary, nil
}

// RunMember tags a single member. Failing to fetch the member is an error.
func (t *Tagger) RunMember(ctx context.Context, memberID string) (models.TaggingsSummary, error) {
	var summary models.TaggingsSummary

	tags, err := DiscoverWardTags(ctx, t.remote, t.log)
	if err != nil {
		return summary, err
	}

	person, err := t.remote.GetPerson(ctx, memberID)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch member: %w", err)
	}

	t.tagPerson(ctx, person, tags, &summary)

	return summary, nil
}

// retryPending re-tags the members a previous batch could not finish. A member
// that succeeds leaves the queue and is marked processed so the listing below
// does not tag it twice. Only cancellation stops the batch.
func (t *Tagger) retryPending(ctx context.Context, tags WardTagMap, summary *models.TaggingsSummary) error {
	pending, err := t.batch.PendingMembers(ctx)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to read members awaiting retry", "error", err)
		t.recordError(summary)
		return nil
	}
	if len(pending) > 0 {
		t.log.InfoContext(ctx, "Retrying members from an earlier batch", "members", len(pending))
	}

	for _, memberID := range pending {
		if ctx.Err() != nil {
			return fmt.Errorf("batch interrupted: %w", ctx.Err())
		}

		person, err := t.remote.GetPerson(ctx, memberID)
		if errors.Is(err, actionnetwork.ErrNotFound) {
			t.log.ErrorContext(ctx, "Member awaiting retry no longer exists", "person", memberID)
			t.recordError(summary)
			t.dequeue(ctx, memberID)
			continue
		}
		if err != nil {
			t.log.ErrorContext(ctx, "Failed to fetch member for retry", "person", memberID, "error", err)
			t.recordError(summary)
			continue
		}

		if !t.tagPerson(ctx, person, tags, summary) {
			continue
		}

		t.dequeue(ctx, memberID)
		if err = t.batch.MarkMemberProcessed(ctx, memberID); err != nil {
			t.log.WarnContext(ctx, "Failed to record processed member", "person", memberID, "error", err)
		}
	}

	return nil
}

func (t *Tagger) dequeue(ctx context.Context, memberID string) {
	if err := t.batch.RemovePendingMember(ctx, memberID); err != nil {
		t.log.WarnContext(ctx, "Failed to dequeue retried member", "person", memberID, "error", err)
	}
}

func (t *Tagger) processBatchMember(
	ctx context.Context,
	person actionnetwork.Person,
	tags WardTagMap,
	since *time.Time,
	summary *models.TaggingsSummary,
) {
	memberID := person.Member.ID

	done, err := t.batch.IsMemberProcessed(ctx, memberID)
	if err != nil {
		t.log.WarnContext(ctx, "Failed to read batch state", "person", memberID, "error", err)
	}
	if done {
		t.log.DebugContext(ctx, "Member already processed by this batch", "person", memberID)
		return
	}

	if since != nil && !person.ModifiedAt.IsZero() && person.ModifiedAt.Before(*since) {
		t.log.ErrorContext(ctx, "Member was modified before the requested date",
			"person", memberID, "modified_at", person.ModifiedAt, "since", *since)
		t.recordError(summary)
		return
	}

	if !t.tagPerson(ctx, person, tags, summary) {
		if err = t.batch.AddPendingMember(ctx, memberID); err != nil {
			t.log.ErrorContext(ctx, "Failed to queue member for retry", "person", memberID, "error", err)
		}
		return
	}

	if err = t.batch.MarkMemberProcessed(ctx, memberID); err != nil {
		t.log.WarnContext(ctx, "Failed to record processed member", "person", memberID, "error", err)
	}
}

// tagPerson resolves and reconciles one member. It reports whether every remote
// mutation succeeded.
func (t *Tagger) tagPerson(
	ctx context.Context,
	person actionnetwork.Person,
	tags WardTagMap,
	summary *models.TaggingsSummary,
) bool {
	member := person.Member
	if person.WardFieldErr != nil {
		t.log.ErrorContext(ctx, "Ignoring ward custom field", "person", member.ID, "error", person.WardFieldErr)
	}

	resolution := t.resolver.Resolve(ctx, member)

	result, err := t.reconciler.Reconcile(ctx, member.ID, resolution, tags)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to reconcile member", "person", member.ID, "error", err)
		t.recordError(summary)
		return false
	}

	summary.Record(resolution, result.Removed, result.Added)
	t.metrics.MembersProcessed.WithLabelValues(resolution.Strategy.String()).Inc()
	t.metrics.Taggings.WithLabelValues("removed").Add(float64(result.Removed))
	t.metrics.Taggings.WithLabelValues("added").Add(float64(result.Added))

	if resolution.Tagged() {
		t.log.InfoContext(ctx, "Tagged member",
			"person", member.ID, "wards", resolution.Wards, "strategy", resolution.Strategy.String())
	} else {
		t.log.InfoContext(ctx, "Not tagging to any wards", "person", member.ID)
	}

	for range result.Failed {
		t.recordError(summary)
	}

	return result.Failed == 0
}

func (t *Tagger) recordError(summary *models.TaggingsSummary) {
	summary.RecordError()
	t.metrics.Errors.Inc()
}
