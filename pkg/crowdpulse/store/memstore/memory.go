package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
)

// Store is an in-memory implementation of store.Repository. Listeners are
// notified synchronously, on the goroutine that made the change, so a
// callback must not modify the store itself.
type Store struct {
	mu       sync.RWMutex
	subs     map[string]store.Submission
	override *store.Submission

	ids *store.IDGenerator
	now func() time.Time

	lmu       sync.Mutex
	nextLID   int
	listeners map[int]*listener
}

type listener struct {
	mu       sync.Mutex // serializes callbacks
	statuses []store.Status
	onList   func([]store.Submission)
	onOver   func(*store.Submission)
}

var _ store.Repository = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		subs:      make(map[string]store.Submission),
		ids:       store.NewIDGenerator(),
		now:       time.Now,
		listeners: make(map[int]*listener),
	}
}

// Close implements store.Repository.
func (s *Store) Close() error { return nil }

// Create stores a submission. A missing id, timestamp or status is filled
// in (new ULID, now, pending).
func (s *Store) Create(ctx context.Context, sub store.Submission) (string, error) {
	if err := sub.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if sub.Timestamp.IsZero() {
		sub.Timestamp = s.now().UTC()
	}
	if sub.Status == "" {
		sub.Status = store.StatusPending
	}
	if sub.ID == "" {
		sub.ID = s.ids.NewID(sub.Timestamp)
	} else if _, exists := s.subs[sub.ID]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: submission %s", internalerr.ErrDuplicate, sub.ID)
	}
	s.subs[sub.ID] = sub.Clone()
	s.mu.Unlock()

	s.notifyLists()
	return sub.ID, nil
}

// Get returns a submission by id.
func (s *Store) Get(ctx context.Context, id string) (store.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return store.Submission{}, fmt.Errorf("%w: submission %s", internalerr.ErrNotFound, id)
	}
	return sub.Clone(), nil
}

// ListByStatus returns matching submissions, newest first. No statuses
// means all submissions.
func (s *Store) ListByStatus(ctx context.Context, statuses ...store.Status) ([]store.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(statuses), nil
}

func (s *Store) listLocked(statuses []store.Status) []store.Submission {
	out := make([]store.Submission, 0, len(s.subs))
	for _, sub := range s.subs {
		if len(statuses) == 0 || store.HasStatus(sub.Status, statuses) {
			out = append(out, sub.Clone())
		}
	}
	store.SortNewestFirst(out)
	return out
}

// UpdateStatus moves a submission to a new status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status store.Status) error {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: submission %s", internalerr.ErrNotFound, id)
	}
	if err := store.CheckTransition(sub.Status, status); err != nil {
		s.mu.Unlock()
		return err
	}
	if sub.Status == status {
		s.mu.Unlock()
		return nil
	}
	sub.Status = status
	s.subs[id] = sub
	s.mu.Unlock()

	s.notifyLists()
	return nil
}

// SetFeaturedOverride replaces the presenter override.
func (s *Store) SetFeaturedOverride(ctx context.Context, sub store.Submission) error {
	cp := sub.Clone()
	s.mu.Lock()
	s.override = &cp
	s.mu.Unlock()

	s.notifyOverride()
	return nil
}

// ClearFeaturedOverride removes the presenter override.
func (s *Store) ClearFeaturedOverride(ctx context.Context) error {
	s.mu.Lock()
	s.override = nil
	s.mu.Unlock()

	s.notifyOverride()
	return nil
}

// GetFeaturedOverride returns the current override, or nil.
func (s *Store) GetFeaturedOverride(ctx context.Context) (*store.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrideLocked(), nil
}

func (s *Store) overrideLocked() *store.Submission {
	if s.override == nil {
		return nil
	}
	cp := s.override.Clone()
	return &cp
}

// ListenByStatus implements store.Repository.
func (s *Store) ListenByStatus(ctx context.Context, fn func([]store.Submission), statuses ...store.Status) (store.Unsubscribe, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil listener", internalerr.ErrInvalidInput)
	}
	l := &listener{statuses: append([]store.Status(nil), statuses...), onList: fn}
	return s.subscribe(ctx, l), nil
}

// ListenForOverride implements store.Repository.
func (s *Store) ListenForOverride(ctx context.Context, fn func(*store.Submission)) (store.Unsubscribe, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil listener", internalerr.ErrInvalidInput)
	}
	l := &listener{onOver: fn}
	return s.subscribe(ctx, l), nil
}

func (s *Store) subscribe(ctx context.Context, l *listener) store.Unsubscribe {
	s.lmu.Lock()
	id := s.nextLID
	s.nextLID++
	s.listeners[id] = l
	s.lmu.Unlock()

	s.deliver(l)

	var once sync.Once
	remove := func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, remove)
	return func() {
		stop()
		remove()
	}
}

func (s *Store) deliver(l *listener) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.mu.RLock()
	var list []store.Submission
	var over *store.Submission
	if l.onList != nil {
		list = s.listLocked(l.statuses)
	} else {
		over = s.overrideLocked()
	}
	s.mu.RUnlock()

	if l.onList != nil {
		l.onList(list)
	} else {
		l.onOver(over)
	}
}

func (s *Store) snapshotListeners(lists bool) []*listener {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	out := make([]*listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		if (l.onList != nil) == lists {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) notifyLists() {
	for _, l := range s.snapshotListeners(true) {
		s.deliver(l)
	}
}

func (s *Store) notifyOverride() {
	for _, l := range s.snapshotListeners(false) {
		s.deliver(l)
	}
}
