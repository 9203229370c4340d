package keyterms

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/corpus"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/grammar"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopTerms(t *testing.T) {
	ctx := context.Background()
	c := corpus.New(ctx, corpus.Options{Logger: testLogger()})
	c.Register(ctx, []string{"warehouse", "robots"})
	c.Register(ctx, []string{"warehouse", "staff"})
	c.Register(ctx, []string{"warehouse", "layout"})

	e := NewExtractor(c, Options{Logger: testLogger()})

	tokens := []string{"warehouse", "drones", "drones", "inventory"}
	got := e.TopTerms(tokens, 2)

	if len(got) != 2 {
		t.Fatalf("TopTerms returned %d terms, want 2: %v", len(got), got)
	}
	if got[0].Term != "drones" {
		t.Errorf("top term = %q, want drones (repeated and unseen)", got[0].Term)
	}
	if got[1].Term != "inventory" {
		t.Errorf("second term = %q, want inventory", got[1].Term)
	}
	if got[0].Score < got[1].Score {
		t.Error("terms should be sorted by descending score")
	}
}

func TestTopTermsStableTies(t *testing.T) {
	ctx := context.Background()
	c := corpus.New(ctx, corpus.Options{Logger: testLogger()})
	c.Register(ctx, []string{"unrelated"})
	e := NewExtractor(c, Options{Logger: testLogger()})

	got := Strings(e.TopTerms([]string{"gamma", "alpha", "beta"}, 5))
	want := []string{"gamma", "alpha", "beta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TopTerms = %v, want first-occurrence order %v", got, want)
		}
	}
}

func TestTopTermsEmpty(t *testing.T) {
	e := NewExtractor(corpus.New(context.Background(), corpus.Options{Logger: testLogger()}), Options{Logger: testLogger()})

	if got := e.TopTerms(nil, 5); got == nil || len(got) != 0 {
		t.Errorf("TopTerms(nil) = %#v, want empty", got)
	}
	if got := e.TopTerms([]string{"x"}, 0); len(got) != 0 {
		t.Errorf("TopTerms(n=0) = %v, want empty", got)
	}
}

func TestPhrases(t *testing.T) {
	text := "Smart warehouse robots will change logistics"
	helper := grammar.Static{Phrases: map[string][]string{
		text: {"Smart warehouse robots", "logistics", "logistics"},
	}}
	e := NewExtractor(nil, Options{Helper: helper, Logger: testLogger()})
	ctx := context.Background()

	got := e.Phrases(ctx, text)
	if len(got) != 2 || got[0] != "smart warehouse robots" || got[1] != "logistics" {
		t.Errorf("Phrases = %v", got)
	}

	for _, in := range []string{"", "   ", "no canned answer"} {
		out := e.Phrases(ctx, in)
		if out == nil || len(out) != 0 {
			t.Errorf("Phrases(%q) = %#v, want empty non-nil", in, out)
		}
	}
}

type panickyHelper struct{ grammar.Nop }

func (panickyHelper) NounPhrases(ctx context.Context, text string) ([]string, error) {
	panic("helper blew up")
}

// stuckHelper ignores its context until release is closed.
type stuckHelper struct {
	grammar.Nop
	release chan struct{}
}

func (h stuckHelper) NounPhrases(ctx context.Context, text string) ([]string, error) {
	<-h.release
	return []string{"late phrase"}, nil
}

func TestPhrasesMisbehavingHelper(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tests := []struct {
		name   string
		helper grammar.Helper
	}{
		{"panic", panickyHelper{}},
		{"ignores context", stuckHelper{release: release}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(nil, Options{
				Helper:        tt.helper,
				HelperTimeout: 10 * time.Millisecond,
				Logger:        testLogger(),
			})

			start := time.Now()
			got := e.Phrases(context.Background(), "Smart warehouse robots")
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("Phrases took %v with a 10ms helper timeout", elapsed)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Phrases = %#v, want empty non-nil", got)
			}
		})
	}
}
