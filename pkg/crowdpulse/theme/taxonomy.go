package theme

import (
	"strings"
	"unicode/utf8"
)

// DefaultLabel is assigned when no theme scores above zero.
const DefaultLabel = "General Topics"

// DefaultIcon is displayed next to DefaultLabel.
const DefaultIcon = "💭"

// substringMinRunes is the pattern length above which a partial pattern may
// match anywhere inside a token instead of only at its start.
const substringMinRunes = 4

// Definition describes one theme of the taxonomy.
type Definition struct {
	Name    string
	Exact   []string // whole-token matches, also protected as acronyms
	Partial []string // prefix patterns; long patterns also match as substrings
	Weight  float64  // 0 means 1.0
	Icon    string
}

// EffectiveWeight returns the configured weight, defaulting to 1.0.
func (d Definition) EffectiveWeight() float64 {
	if d.Weight == 0 {
		return 1.0
	}
	return d.Weight
}

// hasPrefix reports whether token starts with any partial pattern.
func (d Definition) hasPrefix(token string) bool {
	for _, p := range d.Partial {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

// matchesPartial applies the looser partial rule: prefix, or substring for
// patterns longer than four runes.
func (d Definition) matchesPartial(token string) bool {
	for _, p := range d.Partial {
		if strings.HasPrefix(token, p) {
			return true
		}
		if utf8.RuneCountInString(p) > substringMinRunes && strings.Contains(token, p) {
			return true
		}
	}
	return false
}

// Taxonomy is the ordered set of themes. Order matters: ties in scoring go
// to the theme listed first.
type Taxonomy struct {
	Themes       []Definition
	DefaultLabel string
	DefaultIcon  string
}

// NewTaxonomy normalizes the given definitions (lowercased terms) and
// returns a taxonomy with the standard fallback label.
func NewTaxonomy(defs []Definition) Taxonomy {
	themes := make([]Definition, len(defs))
	for i, d := range defs {
		themes[i] = Definition{
			Name:    d.Name,
			Exact:   lowerAll(d.Exact),
			Partial: lowerAll(d.Partial),
			Weight:  d.Weight,
			Icon:    d.Icon,
		}
	}
	return Taxonomy{Themes: themes, DefaultLabel: DefaultLabel, DefaultIcon: DefaultIcon}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Acronyms returns the union of every theme's exact terms in taxonomy order,
// without duplicates. These are the tokens the preprocessor must keep even
// when they are shorter than three runes.
func (t Taxonomy) Acronyms() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range t.Themes {
		for _, term := range d.Exact {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}

// MatchesTerm reports whether token equals an exact term or matches a
// partial pattern of any theme.
func (t Taxonomy) MatchesTerm(token string) bool {
	for _, d := range t.Themes {
		for _, term := range d.Exact {
			if term == token {
				return true
			}
		}
		if d.matchesPartial(token) {
			return true
		}
	}
	return false
}

// Icon returns the display icon for a theme name, falling back to the
// default icon for unknown names.
func (t Taxonomy) Icon(name string) string {
	for _, d := range t.Themes {
		if d.Name == name && d.Icon != "" {
			return d.Icon
		}
	}
	if t.DefaultIcon != "" {
		return t.DefaultIcon
	}
	return DefaultIcon
}

// Fallback returns the label used when nothing matches.
func (t Taxonomy) Fallback() string {
	if t.DefaultLabel != "" {
		return t.DefaultLabel
	}
	return DefaultLabel
}

// DefaultTaxonomy returns the built-in six-theme taxonomy.
func DefaultTaxonomy() Taxonomy {
	return NewTaxonomy([]Definition{
		{
			Name:    "Automation & AI",
			Exact:   []string{"ai", "ml", "llm", "gpt", "bot"},
			Partial: []string{"automat", "robot", "artificial", "machine", "learning", "algorithm", "neural", "intelligence", "smart", "autonomous"},
			Weight:  1.2,
			Icon:    "🤖",
		},
		{
			Name:    "Efficiency & Optimization",
			Exact:   []string{"kpi", "roi", "sla"},
			Partial: []string{"efficien", "optimiz", "speed", "fast", "quick", "performance", "cost", "reduc", "streamlin", "productiv", "improv", "better", "faster", "cheaper", "lean", "waste"},
			Icon:    "⚙️",
		},
		{
			Name:    "Innovation & Future",
			Exact:   []string{"new", "5g", "iot"},
			Partial: []string{"innovat", "transform", "future", "cutting", "edge", "breakthrough", "revolution", "disrupt", "next", "generation", "advanced", "modern", "evolv", "pioneer", "vision"},
			Icon:    "🚀",
		},
		{
			Name:    "Integration & Systems",
			Exact:   []string{"api", "erp", "crm", "wms", "tms", "sap"},
			Partial: []string{"integrat", "connect", "system", "platform", "unified", "seamless", "interface", "interoper", "workflow", "sync", "link", "bridge", "ecosystem"},
			Icon:    "🔗",
		},
		{
			Name:    "Analytics & Data",
			Exact:   []string{"bi", "etl"},
			Partial: []string{"analyt", "data", "insight", "metric", "report", "dashboard", "visual", "predict", "forecast", "intelligence", "track", "measur", "monitor", "trend"},
			Icon:    "📊",
		},
		{
			Name:    "Operations & Logistics",
			Exact:   []string{"scm", "jit"},
			Partial: []string{"supply", "chain", "logistic", "warehous", "inventory", "shipment", "deliver", "transport", "freight", "fulfill", "procurement", "vendor", "supplier"},
			Icon:    "🚚",
		},
	})
}
