// Package lexicon maps jargon and its spelled-out forms to one display form,
// so "ml", "machine learning" and "ML" are counted as a single entry
// ("Machine Learning") in the word cloud.
package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon stores display-form groups:
//   - display: the form shown to the audience, casing preserved ("AI")
//   - variants: lowercase spellings that map to it ("ai", "a.i.", "artificial intelligence")
//
// Matching is case-insensitive on the whole term; there is no partial or
// per-word matching.
type Lexicon struct {
	// display -> variants (lowercase display first)
	groups map[string][]string

	// lowercase variant -> display
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups:       make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// Group is one display form with its variants, as stored in YAML.
type Group struct {
	Display  string   `yaml:"display"`
	Variants []string `yaml:"variants"`
}

// LoadFromYAML loads jargon groups from a YAML file.
//
// Expected format:
//
//	jargon:
//	  - display: AI
//	    variants: [ai, a.i., artificial intelligence]
//	  - display: Supply Chain
//	    variants: [supply chain, scm]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Jargon []Group `yaml:"jargon"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse jargon: %w", err)
	}

	lex := New()
	for _, g := range config.Jargon {
		if strings.TrimSpace(g.Display) == "" {
			return nil, fmt.Errorf("jargon group with variants %v has no display form", g.Variants)
		}
		lex.AddGroup(g.Display, g.Variants)
	}
	return lex, nil
}

// Default returns the built-in event jargon.
func Default() *Lexicon {
	lex := New()
	for _, g := range []Group{
		{Display: "AI", Variants: []string{"ai", "a.i.", "artificial intelligence"}},
		{Display: "Machine Learning", Variants: []string{"ml", "machine learning"}},
		{Display: "LLM", Variants: []string{"llm", "large language model"}},
		{Display: "GPT", Variants: []string{"gpt"}},
		{Display: "Supply Chain", Variants: []string{"supply chain", "supply chain management", "scm"}},
		{Display: "KPI", Variants: []string{"kpi", "key performance indicator"}},
		{Display: "ROI", Variants: []string{"roi", "return on investment"}},
		{Display: "Job Security", Variants: []string{"job security"}},
		{Display: "Future of Work", Variants: []string{"future of work"}},
	} {
		lex.AddGroup(g.Display, g.Variants)
	}
	return lex
}

// AddGroup registers a display form and its variants. The lowercased display
// form is always a variant of itself. Re-adding a display form replaces its
// previous variants.
func (l *Lexicon) AddGroup(display string, variants []string) {
	display = strings.TrimSpace(display)

	if old, exists := l.groups[display]; exists {
		for _, v := range old {
			if l.reverseIndex[v] == display {
				delete(l.reverseIndex, v)
			}
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)
	for _, v := range append([]string{display}, variants...) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		normalized = append(normalized, v)
	}

	l.groups[display] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = display
	}
}

// Normalize returns the display form of term, or term unchanged when it is
// not in the lexicon.
//
// Examples:
//   - Normalize("a.i.") -> "AI"
//   - Normalize("Machine Learning") -> "Machine Learning"
//   - Normalize("Cloud") -> "Cloud"
func (l *Lexicon) Normalize(term string) string {
	if display, ok := l.reverseIndex[strings.ToLower(strings.TrimSpace(term))]; ok {
		return display
	}
	return term
}

// Variants returns the lowercase variants of a term's group, or just the
// lowercased term when unknown.
func (l *Lexicon) Variants(term string) []string {
	lower := strings.ToLower(strings.TrimSpace(term))
	if display, ok := l.reverseIndex[lower]; ok {
		return append([]string(nil), l.groups[display]...)
	}
	return []string{lower}
}

// Known reports whether term belongs to any group.
func (l *Lexicon) Known(term string) bool {
	_, ok := l.reverseIndex[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

// Groups returns every group sorted by display form.
func (l *Lexicon) Groups() []Group {
	out := make([]Group, 0, len(l.groups))
	for display, variants := range l.groups {
		out = append(out, Group{Display: display, Variants: append([]string(nil), variants...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Display < out[j].Display })
	return out
}
