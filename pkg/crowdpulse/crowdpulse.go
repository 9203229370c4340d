// Package crowdpulse is the text analysis engine behind the live audience
// feedback board. An Engine classifies each submission by theme and
// sentiment, extracts key terms and phrases, grows the corpus statistics the
// classifier relies on, and summarizes approved submissions into insights.
package crowdpulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/config"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/corpus"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/grammar"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/ingest"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/insights"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/keyterms"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/moderation"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/render"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/sentiment"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/theme"
)

// DefaultSuggestMinChars is the draft length a live suggestion needs.
const DefaultSuggestMinChars = 20

// Engine wires the analysis components together.
type Engine struct {
	tokenizer  *ingest.Tokenizer
	corpus     *corpus.Corpus
	classifier *theme.Classifier
	sentiment  *sentiment.Analyzer
	extractor  *keyterms.Extractor
	aggregator *insights.Aggregator
	renderer   *render.Renderer
	repo       store.Repository

	topN       int
	suggestMin int
	now        func() time.Time
	logger     *slog.Logger
}

// Options configures an Engine. Only Repository is needed for Submit; every
// other field has a working default.
type Options struct {
	Components             *config.Components // nil loads the built-in defaults
	Persister              corpus.Persister   // nil keeps corpus stats in memory
	Repository             store.Repository
	Helper                 grammar.Helper // nil uses grammar.Nop
	HelperTimeout          time.Duration
	TopTerms               int
	MinEmergingOccurrences int64
	SuggestMinChars        int
	Logger                 *slog.Logger
}

// New creates an engine, resuming corpus statistics from the persister.
func New(ctx context.Context, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	comp := opts.Components
	if comp == nil {
		var err error
		if comp, err = (&config.Loader{}).Load(); err != nil {
			return nil, fmt.Errorf("load default components: %w", err)
		}
	}
	if comp.Tokenizer == nil {
		return nil, fmt.Errorf("%w: components without a tokenizer", internalerr.ErrInvalidConfig)
	}

	topN := opts.TopTerms
	if topN <= 0 {
		topN = keyterms.DefaultTopN
	}
	suggestMin := opts.SuggestMinChars
	if suggestMin <= 0 {
		suggestMin = DefaultSuggestMinChars
	}

	c := corpus.New(ctx, corpus.Options{Persister: opts.Persister, Logger: logger})
	lex := comp.Sentiment

	return &Engine{
		tokenizer:  comp.Tokenizer,
		corpus:     c,
		classifier: theme.NewClassifier(comp.Taxonomy, c),
		sentiment: sentiment.NewAnalyzer(sentiment.Options{
			Lexicon:       &lex,
			Helper:        opts.Helper,
			HelperTimeout: opts.HelperTimeout,
			Logger:        logger,
		}),
		extractor: keyterms.NewExtractor(c, keyterms.Options{
			Helper:        opts.Helper,
			HelperTimeout: opts.HelperTimeout,
			Logger:        logger,
		}),
		aggregator: insights.NewAggregator(comp.Taxonomy, c, comp.Tokenizer, insights.Options{
			MinOccurrences: opts.MinEmergingOccurrences,
		}),
		renderer:   render.NewRenderer(comp.Taxonomy, comp.Jargon),
		repo:       opts.Repository,
		topN:       topN,
		suggestMin: suggestMin,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// Analysis is everything the engine derives from one text.
type Analysis struct {
	Tokens     []string         `json:"tokens"`
	Theme      theme.Result     `json:"theme"`
	Sentiment  sentiment.Result `json:"sentiment"`
	KeyTerms   []keyterms.Term  `json:"keyTerms"`
	KeyPhrases []string         `json:"keyPhrases"`
}

// Submission builds a pending submission record from the analysis.
func (a Analysis) Submission(text string, at time.Time) store.Submission {
	return store.Submission{
		Text:           text,
		Timestamp:      at,
		Theme:          a.Theme.Theme,
		Sentiment:      string(a.Sentiment.Sentiment),
		AnalysisSource: string(a.Sentiment.Source),
		KeyTerms:       keyterms.Strings(a.KeyTerms),
		KeyPhrases:     a.KeyPhrases,
		Confidence:     a.Theme.Confidence,
		Status:         store.StatusPending,
	}
}

// Analyze runs the full analysis without touching the corpus or the
// repository.
func (e *Engine) Analyze(ctx context.Context, text string) Analysis {
	tokens := e.tokenizer.Tokenize(text)
	return Analysis{
		Tokens:     tokens,
		Theme:      e.classifier.Classify(tokens),
		Sentiment:  e.sentiment.Analyze(ctx, text),
		KeyTerms:   e.extractor.TopTerms(tokens, e.topN),
		KeyPhrases: e.extractor.Phrases(ctx, text),
	}
}

// Submit analyzes text, adds it to the corpus and stores it as a pending
// submission. It returns the new submission's id.
//
// The text is scored against the corpus before it is registered. A corpus
// persistence failure is logged and does not fail the submission.
func (e *Engine) Submit(ctx context.Context, text string) (string, error) {
	return e.SubmitAt(ctx, text, e.now())
}

// SubmitAt is Submit with an explicit submission time, for batch uploads.
func (e *Engine) SubmitAt(ctx context.Context, text string, at time.Time) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: submission text is empty", internalerr.ErrInvalidInput)
	}
	if e.repo == nil {
		return "", fmt.Errorf("%w: no repository configured", internalerr.ErrStoreUnavailable)
	}

	analysis := e.Analyze(ctx, text)

	if err := e.corpus.Register(ctx, analysis.Tokens); err != nil {
		if !errors.Is(err, internalerr.ErrPersist) {
			return "", err
		}
		e.logger.WarnContext(ctx, "corpus stats not persisted", "error", err)
	}

	id, err := e.repo.Create(ctx, analysis.Submission(text, at.UTC()))
	if err != nil {
		return "", fmt.Errorf("store submission: %w", err)
	}

	e.logger.InfoContext(ctx, "submission received",
		"id", id,
		"theme", analysis.Theme.Theme,
		"sentiment", analysis.Sentiment.Sentiment,
		"confidence", analysis.Theme.Confidence,
	)
	return id, nil
}

// Suggest classifies a draft as it is typed. It reports false for drafts of
// 20 characters or fewer and for drafts that only reach the default theme.
func (e *Engine) Suggest(text string) (theme.Result, bool) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) <= e.suggestMin {
		return theme.Result{}, false
	}
	res := e.classifier.Classify(e.tokenizer.Tokenize(text))
	if res.Theme == e.classifier.Taxonomy().Fallback() {
		return theme.Result{}, false
	}
	return res, true
}

// Insights summarizes submissions against the current corpus.
// It returns nil when subs is empty.
func (e *Engine) Insights(subs []store.Submission) *insights.Report {
	return e.aggregator.Summarize(subs)
}

// LiveInsights summarizes the submissions currently shown to the audience.
func (e *Engine) LiveInsights(ctx context.Context) (*insights.Report, error) {
	if e.repo == nil {
		return nil, fmt.Errorf("%w: no repository configured", internalerr.ErrStoreUnavailable)
	}
	subs, err := e.repo.ListByStatus(ctx, moderation.LiveStatuses...)
	if err != nil {
		return nil, fmt.Errorf("list live submissions: %w", err)
	}
	return e.Insights(subs), nil
}

// Corpus returns the engine's corpus statistics.
func (e *Engine) Corpus() *corpus.Corpus {
	return e.corpus
}

// Taxonomy returns the configured themes.
func (e *Engine) Taxonomy() theme.Taxonomy {
	return e.classifier.Taxonomy()
}

// Renderer returns a presenter renderer using the engine's themes and jargon.
func (e *Engine) Renderer() *render.Renderer {
	return e.renderer
}
