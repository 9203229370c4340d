// Package grammar defines the optional linguistic helper used by sentiment
// analysis (question detection) and key-phrase extraction (noun phrases).
//
// The helper is best effort. Callers go through Call, which bounds each call
// with a deadline, and fall back to rule-based behaviour on any error.
package grammar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable is returned by helpers that cannot answer at all.
var ErrUnavailable = errors.New("grammar helper unavailable")

// Helper answers grammatical questions about a piece of text.
type Helper interface {
	IsQuestion(ctx context.Context, text string) (bool, error)
	NounPhrases(ctx context.Context, text string) ([]string, error)
}

// Nop is a Helper that never answers.
type Nop struct{}

// IsQuestion always returns ErrUnavailable.
func (Nop) IsQuestion(ctx context.Context, text string) (bool, error) {
	return false, ErrUnavailable
}

// NounPhrases always returns ErrUnavailable.
func (Nop) NounPhrases(ctx context.Context, text string) ([]string, error) {
	return nil, ErrUnavailable
}

// Call runs fn on its own goroutine with a context bounded by timeout. It
// returns as soon as fn does or the deadline passes, so a helper that ignores
// its context cannot hold up the caller. A panic in fn is returned as
// ErrUnavailable.
func Call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r = result{err: fmt.Errorf("%w: helper panicked: %v", ErrUnavailable, p)}
			}
			done <- r
		}()
		r.v, r.err = fn(hctx)
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-hctx.Done():
		var zero T
		return zero, hctx.Err()
	}
}

// Static is a Helper with canned answers, keyed by exact input text.
// Unknown texts return ErrUnavailable.
type Static struct {
	Questions map[string]bool
	Phrases   map[string][]string
}

// IsQuestion looks up text in Questions.
func (s Static) IsQuestion(ctx context.Context, text string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	q, ok := s.Questions[text]
	if !ok {
		return false, ErrUnavailable
	}
	return q, nil
}

// NounPhrases looks up text in Phrases.
func (s Static) NounPhrases(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.Phrases[text]
	if !ok {
		return nil, ErrUnavailable
	}
	return append([]string(nil), p...), nil
}

// CleanPhrases trims, lowercases and de-duplicates phrases, keeping first
// occurrence order and dropping empties.
func CleanPhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		p = strings.Join(strings.Fields(strings.ToLower(p)), " ")
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
