// Package insights summarizes a batch of submissions for the presenter:
// which themes draw the most positive and most worried reactions, what the
// audience talks about most, and which phrases keep coming up that the theme
// taxonomy does not cover.
package insights

import (
	"sort"
	"strings"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/corpus"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/ingest"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/sentiment"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/theme"
)

// Defaults for an Aggregator.
const (
	DefaultMinOccurrences = 2
	DefaultMaxEmerging    = 5
	DefaultTopThemes      = 2
	hotspotMinRatio       = 0.1
)

// Hotspots names the themes with the strongest positive and concern share.
// An empty name means no theme passed the threshold.
type Hotspots struct {
	Positive string `json:"positive,omitempty"`
	Concern  string `json:"concern,omitempty"`
}

// DiscussionPoint is one of the most talked-about themes.
type DiscussionPoint struct {
	Theme   string `json:"theme"`
	Count   int    `json:"count"`
	Example string `json:"example"`
}

// EmergingConcept is a recurring phrase outside the taxonomy.
type EmergingConcept struct {
	Phrase  string `json:"phrase"`
	Count   int64  `json:"count"`
	Example string `json:"example,omitempty"`
}

// Report is the aggregated view of a batch of submissions.
type Report struct {
	TotalDocuments      int               `json:"totalDocuments"`
	CorpusDocuments     int64             `json:"corpusDocuments"`
	SentimentHotspots   Hotspots          `json:"sentimentHotspots"`
	KeyDiscussionPoints []DiscussionPoint `json:"keyDiscussionPoints"`
	EmergingConcepts    []EmergingConcept `json:"emergingConcepts"`
	Themes              []ThemeGroup      `json:"themes"`
}

// PhraseSource exposes the corpus bigram counts. *corpus.Corpus satisfies it.
type PhraseSource interface {
	Phrases(minCount int64) []corpus.PhraseCount
	TotalDocuments() int64
}

// Options configures an Aggregator. Zero values take the defaults.
type Options struct {
	MinOccurrences int64
	MaxEmerging    int
	TopThemes      int
}

// Aggregator builds reports.
type Aggregator struct {
	taxonomy  theme.Taxonomy
	phrases   PhraseSource
	tokenizer *ingest.Tokenizer
	opts      Options
}

// NewAggregator creates an aggregator. phrases may be nil, which disables
// emerging concepts; tokenizer may be nil, which limits example matching to
// plain substring search.
func NewAggregator(taxonomy theme.Taxonomy, phrases PhraseSource, tokenizer *ingest.Tokenizer, opts Options) *Aggregator {
	if opts.MinOccurrences <= 0 {
		opts.MinOccurrences = DefaultMinOccurrences
	}
	if opts.MaxEmerging <= 0 {
		opts.MaxEmerging = DefaultMaxEmerging
	}
	if opts.TopThemes <= 0 {
		opts.TopThemes = DefaultTopThemes
	}
	return &Aggregator{taxonomy: taxonomy, phrases: phrases, tokenizer: tokenizer, opts: opts}
}

// Summarize returns nil for an empty batch.
func (a *Aggregator) Summarize(subs []store.Submission) *Report {
	if len(subs) == 0 {
		return nil
	}

	groups := GroupByTheme(subs)

	report := &Report{
		TotalDocuments:      len(subs),
		SentimentHotspots:   hotspots(groups),
		KeyDiscussionPoints: discussionPoints(groups, a.opts.TopThemes),
		EmergingConcepts:    []EmergingConcept{},
		Themes:              groups,
	}

	if a.phrases != nil {
		report.CorpusDocuments = a.phrases.TotalDocuments()
		report.EmergingConcepts = a.emerging(subs)
	}
	return report
}

func hotspots(groups []ThemeGroup) Hotspots {
	var h Hotspots
	var bestPositive, bestConcern float64
	for _, g := range groups {
		if r := g.Ratio(string(sentiment.Positive)); r > bestPositive {
			bestPositive = r
			h.Positive = g.Theme
		}
		if r := g.Ratio(string(sentiment.Concern)); r > bestConcern {
			bestConcern = r
			h.Concern = g.Theme
		}
	}
	if bestPositive <= hotspotMinRatio {
		h.Positive = ""
	}
	if bestConcern <= hotspotMinRatio {
		h.Concern = ""
	}
	return h
}

func discussionPoints(groups []ThemeGroup, n int) []DiscussionPoint {
	ranked := make([]ThemeGroup, 0, len(groups))
	for _, g := range groups {
		if g.Count > 0 {
			ranked = append(ranked, g)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]DiscussionPoint, len(ranked))
	for i, g := range ranked {
		out[i] = DiscussionPoint{Theme: g.Theme, Count: g.Count, Example: g.Example}
	}
	return out
}

func (a *Aggregator) emerging(subs []store.Submission) []EmergingConcept {
	var out []EmergingConcept
	for _, pc := range a.phrases.Phrases(a.opts.MinOccurrences) {
		if !a.outsideTaxonomy(pc.Phrase) {
			continue
		}
		out = append(out, EmergingConcept{
			Phrase:  pc.Phrase,
			Count:   pc.Count,
			Example: a.example(pc.Phrase, subs),
		})
		if len(out) == a.opts.MaxEmerging {
			break
		}
	}
	if out == nil {
		return []EmergingConcept{}
	}
	return out
}

func (a *Aggregator) outsideTaxonomy(phrase string) bool {
	for _, tok := range strings.Fields(phrase) {
		if a.taxonomy.MatchesTerm(tok) {
			return false
		}
	}
	return true
}

// example finds the first submission mentioning phrase, either verbatim or
// once stopwords are removed ("lack of trust" yields the bigram
// "lack trust").
func (a *Aggregator) example(phrase string, subs []store.Submission) string {
	for _, s := range subs {
		if strings.Contains(strings.ToLower(s.Text), phrase) {
			return s.Text
		}
		if a.tokenizer == nil {
			continue
		}
		for _, bg := range ingest.Bigrams(a.tokenizer.Tokenize(s.Text)) {
			if bg == phrase {
				return s.Text
			}
		}
	}
	return ""
}
