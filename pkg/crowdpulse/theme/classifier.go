// Package theme assigns a submission to one theme of an ordered taxonomy.
//
// Each theme is scored additively from the submission's tokens:
//
//	exact term present                 +3.0 × weight (once per term)
//	token matching a partial pattern   +1.0 × weight (per token)
//	prefix-matching token, corpus seen +0.5 × TF-IDF (per token, unweighted)
//	bigram with a prefix-matching half +1.5 × weight (per bigram)
//
// Themes scoring zero are discarded; the highest score wins and ties go to
// the theme configured first.
package theme

const (
	exactBonus  = 3.0
	tfidfFactor = 0.5
	bigramBonus = 1.5
)

// Confidence bounds.
const (
	NoMatchConfidence     = 0.3
	SingleMatchConfidence = 0.9
	MaxConfidence         = 0.95
)

// Scorer provides corpus-relative term importance. *corpus.Corpus satisfies it.
type Scorer interface {
	TFIDF(term string, docTokens []string) float64
	TotalDocuments() int64
}

// Score is one theme's total.
type Score struct {
	Theme string  `json:"theme"`
	Score float64 `json:"score"`
}

// Result is a classification outcome.
type Result struct {
	Theme      string  `json:"theme"`
	Scores     []Score `json:"scores"` // themes with a positive score, taxonomy order
	Confidence float64 `json:"confidence"`
}

// ScoreOf returns the score of a theme, or 0 if it did not match.
func (r Result) ScoreOf(name string) float64 {
	for _, s := range r.Scores {
		if s.Theme == name {
			return s.Score
		}
	}
	return 0
}

// Classifier scores tokens against a taxonomy.
type Classifier struct {
	taxonomy Taxonomy
	scorer   Scorer
}

// NewClassifier creates a classifier. scorer may be nil, which disables the
// TF-IDF component.
func NewClassifier(taxonomy Taxonomy, scorer Scorer) *Classifier {
	return &Classifier{taxonomy: taxonomy, scorer: scorer}
}

// Taxonomy returns the classifier's taxonomy.
func (c *Classifier) Taxonomy() Taxonomy {
	return c.taxonomy
}

// Classify scores preprocessed tokens. It reads but never mutates the corpus.
func (c *Classifier) Classify(tokens []string) Result {
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
	}
	useTFIDF := c.scorer != nil && c.scorer.TotalDocuments() > 0

	var scores []Score
	for _, def := range c.taxonomy.Themes {
		weight := def.EffectiveWeight()
		var score float64

		for _, term := range def.Exact {
			if _, ok := tokenSet[term]; ok {
				score += exactBonus * weight
			}
		}

		for _, tok := range tokens {
			if def.matchesPartial(tok) {
				score += weight
			}
		}

		if useTFIDF {
			for _, tok := range tokens {
				if def.hasPrefix(tok) {
					score += c.scorer.TFIDF(tok, tokens) * tfidfFactor
				}
			}
		}

		// bigrams
		for i := 0; i+1 < len(tokens); i++ {
			if def.hasPrefix(tokens[i]) || def.hasPrefix(tokens[i+1]) {
				score += bigramBonus * weight
			}
		}

		if score > 0 {
			scores = append(scores, Score{Theme: def.Name, Score: score})
		}
	}

	assigned := c.taxonomy.Fallback()
	var best float64
	for _, s := range scores {
		if s.Score > best {
			best = s.Score
			assigned = s.Theme
		}
	}

	return Result{Theme: assigned, Scores: scores, Confidence: Confidence(scores)}
}

// Confidence derives a value in [0,1] from the gap between the two best
// scores.
func Confidence(scores []Score) float64 {
	switch len(scores) {
	case 0:
		return NoMatchConfidence
	case 1:
		return SingleMatchConfidence
	}

	var top, second float64
	for _, s := range scores {
		switch {
		case s.Score > top:
			second = top
			top = s.Score
		case s.Score > second:
			second = s.Score
		}
	}
	if top == 0 {
		return NoMatchConfidence
	}
	gap := (top - second) / top
	return min(MaxConfidence, 0.5+gap*0.5)
}
