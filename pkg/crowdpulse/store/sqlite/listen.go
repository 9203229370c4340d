package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
)

// watcher re-runs check on every tick or wake-up and calls deliver when the
// fingerprint differs from the last one delivered.
type watcher struct {
	wake chan struct{}
	last string
	// check returns a fingerprint of the watched state and a func that hands
	// that state to the listener.
	check func(ctx context.Context) (string, func(), error)
}

func (w *watcher) poll(ctx context.Context, force bool) error {
	fp, deliver, err := w.check(ctx)
	if err != nil {
		return err
	}
	if !force && fp == w.last {
		return nil
	}
	w.last = fp
	deliver()
	return nil
}

// ListenByStatus implements store.Repository.
func (s *Store) ListenByStatus(ctx context.Context, fn func([]store.Submission), statuses ...store.Status) (store.Unsubscribe, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil listener", internalerr.ErrInvalidInput)
	}
	statuses = append([]store.Status(nil), statuses...)
	return s.subscribe(ctx, func(ctx context.Context) (string, func(), error) {
		list, err := s.ListByStatus(ctx, statuses...)
		if err != nil {
			return "", nil, err
		}
		return listFingerprint(list), func() { fn(list) }, nil
	})
}

// ListenForOverride implements store.Repository.
func (s *Store) ListenForOverride(ctx context.Context, fn func(*store.Submission)) (store.Unsubscribe, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil listener", internalerr.ErrInvalidInput)
	}
	return s.subscribe(ctx, func(ctx context.Context) (string, func(), error) {
		raw, err := s.overrideJSON(ctx)
		if err != nil {
			return "", nil, err
		}
		over, err := decodeOverride(raw)
		if err != nil {
			return "", nil, err
		}
		return raw, func() { fn(over) }, nil
	})
}

func (s *Store) subscribe(ctx context.Context, check func(context.Context) (string, func(), error)) (store.Unsubscribe, error) {
	w := &watcher{wake: make(chan struct{}, 1), check: check}

	// first delivery happens before Listen returns
	if err := w.poll(ctx, true); err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	lctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	s.mu.Lock()
	id := s.nextWID
	s.nextWID++
	s.watchers[id] = w
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			stop()
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		}()
		s.watch(lctx, w)
	}()

	return store.Unsubscribe(cancel), nil
}

func (s *Store) watch(ctx context.Context, w *watcher) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
		if err := w.poll(ctx, false); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("listener poll failed", "error", err)
		}
	}
}

// wake nudges every listener to re-check without waiting for the ticker.
func (s *Store) wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

func listFingerprint(list []store.Submission) string {
	var b strings.Builder
	for _, sub := range list {
		b.WriteString(sub.ID)
		b.WriteByte('=')
		b.WriteString(string(sub.Status))
		b.WriteByte(';')
	}
	return b.String()
}
