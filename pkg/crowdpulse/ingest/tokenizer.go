package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenRunes is the shortest token kept unless it is a protected acronym.
const minTokenRunes = 3

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stopwords map[string]struct{}
	acronyms  map[string]struct{}
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops, acronyms: make(map[string]struct{})}
}

// SetAcronyms replaces the protected acronym set.
// Acronyms survive the minimum-length filter, so "ai" or "bi" are kept
// even though they are only two letters long.
func (t *Tokenizer) SetAcronyms(acronyms []string) {
	t.acronyms = make(map[string]struct{}, len(acronyms))
	for _, a := range acronyms {
		t.acronyms[strings.ToLower(a)] = struct{}{}
	}
}

// IsAcronym reports whether the token is a protected acronym.
func (t *Tokenizer) IsAcronym(token string) bool {
	_, ok := t.acronyms[token]
	return ok
}

// Tokenize splits text into normalized tokens, removing stopwords and short
// non-acronym tokens. Token order and duplicates are preserved.
func (t *Tokenizer) Tokenize(text string) []string {
	tokens := []string{}
	for _, word := range splitRuns(text, isTokenRune, "-") {
		if t.keep(word) {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func (t *Tokenizer) keep(word string) bool {
	if t.isStopword(word) {
		return false
	}
	if utf8.RuneCountInString(word) < minTokenRunes && !t.IsAcronym(word) {
		return false
	}
	return true
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// Words splits text into lowercase words, keeping internal hyphens and
// apostrophes so contractions such as "don't" stay whole. No filtering is
// applied. Typographic apostrophes are folded to ASCII.
func Words(text string) []string {
	return splitRuns(foldApostrophes(text), isWordRune, "-'")
}

// Bigrams returns every contiguous token pair joined by a single space.
func Bigrams(tokens []string) []string {
	return NGrams(tokens, 2)
}

// NGrams returns every contiguous window of n tokens joined by a single space.
func NGrams(tokens []string, n int) []string {
	if n <= 0 || len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

// splitRuns lowercases text and returns maximal runs of runes accepted by
// inRun, with the edge characters in trim stripped from each run. Runs that
// are empty after trimming are dropped.
func splitRuns(text string, inRun func(rune) bool, trim string) []string {
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := strings.Trim(current.String(), trim)
		if word != "" {
			out = append(out, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if inRun(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()

	return out
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

func isWordRune(r rune) bool {
	return isTokenRune(r) || r == '\''
}

var apostropheReplacer = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'")

func foldApostrophes(text string) string {
	return apostropheReplacer.Replace(text)
}
