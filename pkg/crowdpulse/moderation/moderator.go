// Package moderation implements the moderator's actions on top of a
// store.Repository: approving and rejecting pending submissions and choosing
// which approved submission is featured on the presenter screen.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
)

// Moderator applies moderation decisions.
type Moderator struct {
	repo   store.Repository
	logger *slog.Logger
}

// New creates a moderator. A nil logger uses slog.Default().
func New(repo store.Repository, logger *slog.Logger) *Moderator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Moderator{repo: repo, logger: logger}
}

// Approve makes a pending submission visible to the presenter.
func (m *Moderator) Approve(ctx context.Context, id string) error {
	if err := m.repo.UpdateStatus(ctx, id, store.StatusApproved); err != nil {
		return fmt.Errorf("approve %s: %w", id, err)
	}
	m.logger.InfoContext(ctx, "submission approved", "id", id)
	return nil
}

// Reject hides a pending submission for good.
func (m *Moderator) Reject(ctx context.Context, id string) error {
	if err := m.repo.UpdateStatus(ctx, id, store.StatusRejected); err != nil {
		return fmt.Errorf("reject %s: %w", id, err)
	}
	m.logger.InfoContext(ctx, "submission rejected", "id", id)
	return nil
}

// Feature puts an approved submission on the presenter screen. Whatever was
// featured before goes back to approved.
func (m *Moderator) Feature(ctx context.Context, id string) error {
	sub, err := m.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("feature %s: %w", id, err)
	}
	if sub.Status != store.StatusApproved && sub.Status != store.StatusFeatured {
		return fmt.Errorf("feature %s: %w: %s -> %s", id, internalerr.ErrInvalidTransition, sub.Status, store.StatusFeatured)
	}

	featured, err := m.repo.ListByStatus(ctx, store.StatusFeatured)
	if err != nil {
		return fmt.Errorf("feature %s: %w", id, err)
	}
	for _, prev := range featured {
		if prev.ID == id {
			continue
		}
		if err := m.repo.UpdateStatus(ctx, prev.ID, store.StatusApproved); err != nil {
			return fmt.Errorf("unfeature %s: %w", prev.ID, err)
		}
	}

	if err := m.repo.UpdateStatus(ctx, id, store.StatusFeatured); err != nil {
		return fmt.Errorf("feature %s: %w", id, err)
	}
	sub.Status = store.StatusFeatured
	if err := m.repo.SetFeaturedOverride(ctx, sub); err != nil {
		return fmt.Errorf("feature %s: %w", id, err)
	}
	m.logger.InfoContext(ctx, "submission featured", "id", id, "demoted", len(featured))
	return nil
}

// Unfeature clears the presenter override and returns the featured
// submission to approved. It is a no-op when nothing is featured.
func (m *Moderator) Unfeature(ctx context.Context) error {
	current, err := m.repo.GetFeaturedOverride(ctx)
	if err != nil {
		return fmt.Errorf("unfeature: %w", err)
	}
	if err := m.repo.ClearFeaturedOverride(ctx); err != nil {
		return fmt.Errorf("unfeature: %w", err)
	}
	if current == nil {
		return nil
	}

	err = m.repo.UpdateStatus(ctx, current.ID, store.StatusApproved)
	switch {
	case errors.Is(err, internalerr.ErrNotFound):
		// the override outlived its submission
		m.logger.WarnContext(ctx, "featured submission no longer exists", "id", current.ID)
	case err != nil:
		return fmt.Errorf("unfeature %s: %w", current.ID, err)
	default:
		m.logger.InfoContext(ctx, "submission unfeatured", "id", current.ID)
	}
	return nil
}

// Requeue sends a featured submission back to the pending queue, clearing
// the override if it points at it.
func (m *Moderator) Requeue(ctx context.Context, id string) error {
	if err := m.repo.UpdateStatus(ctx, id, store.StatusPending); err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}

	current, err := m.repo.GetFeaturedOverride(ctx)
	if err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}
	if current != nil && current.ID == id {
		if err := m.repo.ClearFeaturedOverride(ctx); err != nil {
			return fmt.Errorf("requeue %s: %w", id, err)
		}
	}
	m.logger.InfoContext(ctx, "submission requeued", "id", id)
	return nil
}

// Result summarizes a batch run.
type Result struct {
	Processed int
	Updated   int
	Errors    int
}

// ApproveAll approves every pending submission. Individual failures are
// counted and logged; the batch carries on.
func (m *Moderator) ApproveAll(ctx context.Context) (Result, error) {
	var res Result
	pending, err := m.repo.ListByStatus(ctx, store.StatusPending)
	if err != nil {
		return res, fmt.Errorf("approve all: %w", err)
	}

	for _, sub := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++
		if err := m.repo.UpdateStatus(ctx, sub.ID, store.StatusApproved); err != nil {
			m.logger.WarnContext(ctx, "approve failed", "id", sub.ID, "error", err)
			res.Errors++
			continue
		}
		res.Updated++
	}
	m.logger.InfoContext(ctx, "approved pending submissions", "processed", res.Processed, "updated", res.Updated, "errors", res.Errors)
	return res, nil
}

// ListenPending delivers the pending queue, newest first, now and after
// every change.
func (m *Moderator) ListenPending(ctx context.Context, fn func([]store.Submission)) (store.Unsubscribe, error) {
	return m.repo.ListenByStatus(ctx, fn, store.StatusPending)
}

// ListenLive delivers the submissions shown on the presenter screen:
// approved and featured.
func (m *Moderator) ListenLive(ctx context.Context, fn func([]store.Submission)) (store.Unsubscribe, error) {
	return m.repo.ListenByStatus(ctx, fn, LiveStatuses...)
}

// LiveStatuses are the statuses the presenter displays.
var LiveStatuses = []store.Status{store.StatusApproved, store.StatusFeatured}
