package moderation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store/memstore"
)

func setup(t *testing.T, texts ...string) (*Moderator, *memstore.Store, []string) {
	t.Helper()
	repo := memstore.New()
	ids := make([]string, 0, len(texts))
	for _, text := range texts {
		id, err := repo.Create(context.Background(), store.Submission{Text: text})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
	}
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo, ids
}

func status(t *testing.T, repo store.Repository, id string) store.Status {
	t.Helper()
	sub, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return sub.Status
}

func TestApproveReject(t *testing.T) {
	ctx := context.Background()
	m, repo, ids := setup(t, "one", "two")

	if err := m.Approve(ctx, ids[0]); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := m.Reject(ctx, ids[1]); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got := status(t, repo, ids[0]); got != store.StatusApproved {
		t.Errorf("status = %q, want approved", got)
	}
	if got := status(t, repo, ids[1]); got != store.StatusRejected {
		t.Errorf("status = %q, want rejected", got)
	}

	if err := m.Approve(ctx, ids[1]); !errors.Is(err, internalerr.ErrInvalidTransition) {
		t.Errorf("approving a rejected submission err = %v", err)
	}
	if err := m.Approve(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("missing id err = %v", err)
	}
}

func TestFeatureDemotesPrevious(t *testing.T) {
	ctx := context.Background()
	m, repo, ids := setup(t, "first", "second", "pending")
	m.Approve(ctx, ids[0])
	m.Approve(ctx, ids[1])

	if err := m.Feature(ctx, ids[0]); err != nil {
		t.Fatalf("Feature: %v", err)
	}
	if err := m.Feature(ctx, ids[1]); err != nil {
		t.Fatalf("Feature: %v", err)
	}

	if got := status(t, repo, ids[0]); got != store.StatusApproved {
		t.Errorf("previous featured status = %q, want approved", got)
	}
	if got := status(t, repo, ids[1]); got != store.StatusFeatured {
		t.Errorf("featured status = %q", got)
	}
	over, _ := repo.GetFeaturedOverride(ctx)
	if over == nil || over.ID != ids[1] || over.Status != store.StatusFeatured {
		t.Errorf("override = %+v", over)
	}

	// featuring the current one again is fine
	if err := m.Feature(ctx, ids[1]); err != nil {
		t.Errorf("re-feature: %v", err)
	}
	if err := m.Feature(ctx, ids[2]); !errors.Is(err, internalerr.ErrInvalidTransition) {
		t.Errorf("featuring a pending submission err = %v", err)
	}
}

func TestUnfeature(t *testing.T) {
	ctx := context.Background()
	m, repo, ids := setup(t, "spotlight")

	if err := m.Unfeature(ctx); err != nil {
		t.Fatalf("Unfeature with nothing featured: %v", err)
	}

	m.Approve(ctx, ids[0])
	m.Feature(ctx, ids[0])
	if err := m.Unfeature(ctx); err != nil {
		t.Fatalf("Unfeature: %v", err)
	}
	if got := status(t, repo, ids[0]); got != store.StatusApproved {
		t.Errorf("status = %q, want approved", got)
	}
	if over, _ := repo.GetFeaturedOverride(ctx); over != nil {
		t.Errorf("override should be cleared, got %+v", over)
	}

	// an override whose submission vanished is still cleared
	repo.SetFeaturedOverride(ctx, store.Submission{ID: "gone", Text: "ghost"})
	if err := m.Unfeature(ctx); err != nil {
		t.Errorf("Unfeature with stale override: %v", err)
	}
}

func TestRequeue(t *testing.T) {
	ctx := context.Background()
	m, repo, ids := setup(t, "back to the queue")
	m.Approve(ctx, ids[0])

	if err := m.Requeue(ctx, ids[0]); !errors.Is(err, internalerr.ErrInvalidTransition) {
		t.Errorf("requeue approved err = %v", err)
	}

	m.Feature(ctx, ids[0])
	if err := m.Requeue(ctx, ids[0]); err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if got := status(t, repo, ids[0]); got != store.StatusPending {
		t.Errorf("status = %q, want pending", got)
	}
	if over, _ := repo.GetFeaturedOverride(ctx); over != nil {
		t.Errorf("override should be cleared, got %+v", over)
	}
}

func TestApproveAll(t *testing.T) {
	ctx := context.Background()
	m, repo, ids := setup(t, "a", "b", "c")
	m.Reject(ctx, ids[2])

	res, err := m.ApproveAll(ctx)
	if err != nil {
		t.Fatalf("ApproveAll: %v", err)
	}
	if res.Processed != 2 || res.Updated != 2 || res.Errors != 0 {
		t.Errorf("result = %+v", res)
	}
	live, _ := repo.ListByStatus(ctx, LiveStatuses...)
	if len(live) != 2 {
		t.Errorf("live = %d, want 2", len(live))
	}
}

func TestListenPending(t *testing.T) {
	ctx := context.Background()
	m, _, ids := setup(t, "waiting")

	var sizes []int
	unsubscribe, err := m.ListenPending(ctx, func(list []store.Submission) { sizes = append(sizes, len(list)) })
	if err != nil {
		t.Fatalf("ListenPending: %v", err)
	}
	defer unsubscribe()

	m.Approve(ctx, ids[0])
	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 0 {
		t.Errorf("pending sizes = %v, want [1 0]", sizes)
	}
}
