// Package sentiment classifies a submission as positive, negative, neutral
// or concern.
//
// Scoring is a single pass over the apostrophe-aware word stream. A negation
// word flips and amplifies (×-1.5) lexicon hits for itself and the next three
// words; an intensifier or diminisher scales hits for itself and the next two.
// Both windows are end indices that later triggers overwrite, and they
// combine multiplicatively. The raw score is divided by √(word count) before
// thresholding.
//
// Texts that stay neutral are checked for concern vocabulary (job
// displacement, skill gaps); phrasing the text as a question adds weight.
package sentiment

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/grammar"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/ingest"
)

// Label is a sentiment class.
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
	Concern  Label = "concern"
)

// Source records how the result was obtained.
type Source string

const (
	RuleBased       Source = "rule-based"
	ContextEnhanced Source = "context-enhanced"
)

// DefaultHelperTimeout bounds a grammar helper call.
const DefaultHelperTimeout = 5 * time.Second

var questionPattern = regexp.MustCompile(`^(will|can|do|is|are|what|how|why)\b`)

// Result is the outcome of Analyze.
type Result struct {
	Sentiment Label   `json:"sentiment"`
	Source    Source  `json:"source"`
	Raw       float64 `json:"raw"`   // sum of weighted lexicon hits
	Score     float64 `json:"score"` // Raw / √(word count)
}

// Options configures an Analyzer.
type Options struct {
	Lexicon       *Lexicon       // nil uses DefaultLexicon
	Helper        grammar.Helper // nil uses grammar.Nop
	HelperTimeout time.Duration  // 0 uses DefaultHelperTimeout
	Logger        *slog.Logger
}

// Analyzer scores text against a lexicon. It is safe for concurrent use.
type Analyzer struct {
	lex          Lexicon
	negations    map[string]struct{}
	concernTerms []string
	helper       grammar.Helper
	timeout      time.Duration
	logger       *slog.Logger
}

// NewAnalyzer builds an analyzer from options.
func NewAnalyzer(opts Options) *Analyzer {
	lex := DefaultLexicon()
	if opts.Lexicon != nil {
		lex = opts.Lexicon.withDefaults()
	}
	helper := opts.Helper
	if helper == nil {
		helper = grammar.Nop{}
	}
	timeout := opts.HelperTimeout
	if timeout <= 0 {
		timeout = DefaultHelperTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	negations := make(map[string]struct{}, len(lex.Negations))
	for _, n := range lex.Negations {
		negations[strings.ToLower(n)] = struct{}{}
	}
	var terms []string
	for _, g := range lex.Concerns {
		for _, term := range g.Terms {
			terms = append(terms, strings.ToLower(term))
		}
	}

	return &Analyzer{
		lex:          lex,
		negations:    negations,
		concernTerms: terms,
		helper:       helper,
		timeout:      timeout,
		logger:       logger,
	}
}

// Analyze classifies text. It always returns a result; helper failures fall
// back to the rule-based question check.
func (a *Analyzer) Analyze(ctx context.Context, text string) Result {
	lower := strings.ToLower(text)
	words := ingest.Words(lower)
	if len(words) == 0 {
		return Result{Sentiment: Neutral, Source: RuleBased}
	}

	isQuestion, source := a.questionContext(ctx, text, lower)

	raw := a.score(words)
	normalized := raw / math.Sqrt(float64(len(words)))

	res := Result{Sentiment: Neutral, Source: source, Raw: raw, Score: normalized}
	switch {
	case normalized > a.lex.PositiveThreshold:
		res.Sentiment = Positive
	case normalized < a.lex.NegativeThreshold:
		res.Sentiment = Negative
	default:
		if a.concernScore(lower, isQuestion) > a.lex.ConcernThreshold {
			res.Sentiment = Concern
		}
	}
	return res
}

// IsQuestion reports whether text looks like a question to the rule-based
// check.
func IsQuestion(text string) bool {
	return questionPattern.MatchString(strings.ToLower(text))
}

func (a *Analyzer) questionContext(ctx context.Context, text, lower string) (bool, Source) {
	q, err := grammar.Call(ctx, a.timeout, func(hctx context.Context) (bool, error) {
		return a.helper.IsQuestion(hctx, text)
	})
	if err != nil {
		a.logger.DebugContext(ctx, "grammar helper unavailable, using rule-based question check", "error", err)
		return questionPattern.MatchString(lower), RuleBased
	}
	return q, ContextEnhanced
}

func (a *Analyzer) score(words []string) float64 {
	var raw float64
	negationEnd := -1
	intensityEnd := -1
	intensity := 1.0

	for i, w := range words {
		if _, ok := a.negations[w]; ok {
			negationEnd = i + a.lex.NegationWindow
		}
		if m, ok := a.lex.Intensifiers[w]; ok {
			intensity = m
			intensityEnd = i + a.lex.IntensityWindow
		}
		if m, ok := a.lex.Diminishers[w]; ok {
			intensity = m
			intensityEnd = i + a.lex.IntensityWindow
		}

		multiplier := 1.0
		if i <= negationEnd {
			multiplier *= a.lex.NegationFactor
		}
		if i <= intensityEnd {
			multiplier *= intensity
		}

		if v, ok := a.lex.Positive[w]; ok {
			raw += v * multiplier
		}
		if v, ok := a.lex.Negative[w]; ok {
			raw += v * multiplier
		}
	}
	return raw
}

func (a *Analyzer) concernScore(lower string, isQuestion bool) int {
	var hits int
	for _, term := range a.concernTerms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	if isQuestion && hits > 0 {
		hits++
	}
	return hits
}
