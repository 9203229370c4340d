// Package keyterms picks the most distinctive words of a submission by
// TF-IDF and asks the grammar helper for its noun phrases.
package keyterms

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/grammar"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/sentiment"
)

// DefaultTopN is the number of key terms kept per submission.
const DefaultTopN = 5

// Term is a token with its TF-IDF score.
type Term struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Scorer computes TF-IDF against the running corpus.
type Scorer interface {
	TFIDF(term string, docTokens []string) float64
}

// Options configures an Extractor.
type Options struct {
	Helper        grammar.Helper // nil uses grammar.Nop
	HelperTimeout time.Duration
	Logger        *slog.Logger
}

// Extractor ranks terms and collects phrases.
type Extractor struct {
	scorer  Scorer
	helper  grammar.Helper
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor creates an extractor scoring against scorer.
func NewExtractor(scorer Scorer, opts Options) *Extractor {
	helper := opts.Helper
	if helper == nil {
		helper = grammar.Nop{}
	}
	timeout := opts.HelperTimeout
	if timeout <= 0 {
		timeout = sentiment.DefaultHelperTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{scorer: scorer, helper: helper, timeout: timeout, logger: logger}
}

// TopTerms scores each distinct token against the full token list and
// returns the n best. Equal scores keep first-occurrence order.
func (e *Extractor) TopTerms(tokens []string, n int) []Term {
	if len(tokens) == 0 || n <= 0 {
		return []Term{}
	}

	seen := make(map[string]struct{}, len(tokens))
	terms := make([]Term, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, Term{Term: tok, Score: e.scorer.TFIDF(tok, tokens)})
	}

	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Score > terms[j].Score
	})

	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Phrases returns the noun phrases of text. Empty text or a helper failure
// yields an empty, non-nil slice.
func (e *Extractor) Phrases(ctx context.Context, text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	phrases, err := grammar.Call(ctx, e.timeout, func(hctx context.Context) ([]string, error) {
		return e.helper.NounPhrases(hctx, text)
	})
	if err != nil {
		e.logger.DebugContext(ctx, "noun phrase extraction unavailable", "error", err)
		return []string{}
	}
	return grammar.CleanPhrases(phrases)
}

// Strings returns just the term text of each entry.
func Strings(terms []Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Term
	}
	return out
}
