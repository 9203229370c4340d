// Package corpus maintains the running term statistics that every submission
// is scored against.
//
// A Corpus counts, across all registered documents:
//
//   - term frequency: total occurrences of each token
//   - document frequency: number of documents containing each token
//   - emerging phrases: occurrences of each adjacent token pair (bigram)
//
// The statistics only grow. After every registration the full snapshot is
// handed to the configured Persister (replace-on-write), and New reloads the
// last snapshot so a session can resume where it left off.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/ingest"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
)

// Snapshot is the serializable state of a corpus.
type Snapshot struct {
	TermFrequency     map[string]int64 `json:"termFrequency"`
	DocumentFrequency map[string]int64 `json:"documentFrequency"`
	TotalDocuments    int64            `json:"totalDocuments"`
	EmergingPhrases   map[string]int64 `json:"emergingPhrases"`
}

// NewSnapshot returns an empty snapshot with allocated maps.
func NewSnapshot() Snapshot {
	return Snapshot{
		TermFrequency:     make(map[string]int64),
		DocumentFrequency: make(map[string]int64),
		EmergingPhrases:   make(map[string]int64),
	}
}

// Clone returns a deep copy of the snapshot. Nil maps come back allocated.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		TermFrequency:     copyCounts(s.TermFrequency),
		DocumentFrequency: copyCounts(s.DocumentFrequency),
		TotalDocuments:    s.TotalDocuments,
		EmergingPhrases:   copyCounts(s.EmergingPhrases),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Persister loads and saves corpus snapshots.
// Load returns a nil snapshot and nil error when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Options configures a Corpus.
type Options struct {
	Persister Persister // nil keeps the corpus in memory only
	Logger    *slog.Logger
}

// Corpus holds the statistics for every document registered so far.
// It is safe for concurrent use; registrations are serialized.
type Corpus struct {
	mu        sync.RWMutex
	stats     Snapshot
	persister Persister
	logger    *slog.Logger
}

// New creates a corpus, resuming from the persister's last snapshot when one
// exists. A missing or unreadable snapshot starts an empty corpus; the
// failure is logged, never returned.
func New(ctx context.Context, opts Options) *Corpus {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Corpus{
		stats:     NewSnapshot(),
		persister: opts.Persister,
		logger:    logger,
	}

	if c.persister == nil {
		return c
	}

	snap, err := c.persister.Load(ctx)
	if err != nil {
		logger.WarnContext(ctx, "could not load corpus stats, starting empty", "error", err)
		return c
	}
	if snap != nil {
		c.stats = snap.Clone()
		logger.DebugContext(ctx, "corpus stats loaded", "total_documents", c.stats.TotalDocuments)
	}
	return c
}

// Register adds one document's tokens to the statistics and persists the
// resulting snapshot. The in-memory update always happens; a persistence
// failure is returned wrapped in internalerr.ErrPersist.
func (c *Corpus) Register(ctx context.Context, tokens []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		c.stats.TermFrequency[tok]++
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		c.stats.DocumentFrequency[tok]++
	}

	for _, bigram := range ingest.Bigrams(tokens) {
		c.stats.EmergingPhrases[bigram]++
	}

	c.stats.TotalDocuments++

	if c.persister == nil {
		return nil
	}
	if err := c.persister.Save(ctx, c.stats.Clone()); err != nil {
		return fmt.Errorf("%w: %w", internalerr.ErrPersist, err)
	}
	return nil
}

// TFIDF scores term within docTokens against the corpus.
//
//	tf  = count(term in doc) / len(doc)
//	df  = documentFrequency[term], or 1 when the term is unseen
//	idf = ln((totalDocuments + 1) / df)
//
// The document itself must not have been registered yet, otherwise its own
// occurrences deflate the idf.
func (c *Corpus) TFIDF(term string, docTokens []string) float64 {
	if len(docTokens) == 0 {
		return 0
	}

	var count int
	for _, tok := range docTokens {
		if tok == term {
			count++
		}
	}
	tf := float64(count) / float64(len(docTokens))

	c.mu.RLock()
	df := c.stats.DocumentFrequency[term]
	total := c.stats.TotalDocuments
	c.mu.RUnlock()

	if df == 0 {
		df = 1
	}
	idf := math.Log(float64(total+1) / float64(df))
	return tf * idf
}

// TotalDocuments returns the number of registered documents.
func (c *Corpus) TotalDocuments() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats.TotalDocuments
}

// TermFrequency returns the total occurrences of a token.
func (c *Corpus) TermFrequency(token string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats.TermFrequency[token]
}

// DocumentFrequency returns the number of documents containing a token.
func (c *Corpus) DocumentFrequency(token string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats.DocumentFrequency[token]
}

// PhraseCount returns the occurrences of a bigram ("first second").
func (c *Corpus) PhraseCount(bigram string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats.EmergingPhrases[bigram]
}

// PhraseCount pairs a bigram with its corpus count.
type PhraseCount struct {
	Phrase string
	Count  int64
}

// Phrases returns the bigrams seen at least minCount times, most frequent
// first. Equal counts are ordered by phrase so results are reproducible.
func (c *Corpus) Phrases(minCount int64) []PhraseCount {
	c.mu.RLock()
	out := make([]PhraseCount, 0, len(c.stats.EmergingPhrases))
	for phrase, count := range c.stats.EmergingPhrases {
		if count >= minCount {
			out = append(out, PhraseCount{Phrase: phrase, Count: count})
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Phrase < out[j].Phrase
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// Snapshot returns a copy of the current statistics.
func (c *Corpus) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats.Clone()
}
