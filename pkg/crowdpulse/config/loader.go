package config

import (
	"fmt"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/ingest"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/lexicon"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/sentiment"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/theme"
)

// Loader loads all configuration files and constructs components.
// Empty paths select the built-in defaults.
type Loader struct {
	ThemesPath    string
	StoplistPath  string
	SentimentPath string
	JargonPath    string
}

// Components holds all loaded configuration components
type Components struct {
	Tokenizer *ingest.Tokenizer
	Taxonomy  theme.Taxonomy
	Sentiment sentiment.Lexicon
	Jargon    *lexicon.Lexicon
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load themes
	if l.ThemesPath != "" {
		th, err := LoadThemes(l.ThemesPath)
		if err != nil {
			return nil, fmt.Errorf("load themes: %w", err)
		}
		defs := make([]theme.Definition, len(th.Themes))
		for i, e := range th.Themes {
			defs[i] = theme.Definition{
				Name:    e.Name,
				Exact:   e.Exact,
				Partial: e.Partial,
				Weight:  e.Weight,
				Icon:    e.Icon,
			}
		}
		comp.Taxonomy = theme.NewTaxonomy(defs)
		if th.DefaultLabel != "" {
			comp.Taxonomy.DefaultLabel = th.DefaultLabel
		}
		if th.DefaultIcon != "" {
			comp.Taxonomy.DefaultIcon = th.DefaultIcon
		}
	} else {
		comp.Taxonomy = theme.DefaultTaxonomy()
	}

	// Load stoplist; acronyms come from the taxonomy
	if l.StoplistPath != "" {
		stoplist, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Tokenizer = ingest.NewTokenizer(stoplist.Terms)
	} else {
		comp.Tokenizer = ingest.NewTokenizer(DefaultStopwords)
	}
	comp.Tokenizer.SetAcronyms(comp.Taxonomy.Acronyms())

	// Load sentiment lexicon
	if l.SentimentPath != "" {
		lex, err := sentiment.LoadLexicon(l.SentimentPath)
		if err != nil {
			return nil, fmt.Errorf("load sentiment lexicon: %w", err)
		}
		if err := lex.Validate(); err != nil {
			return nil, fmt.Errorf("load sentiment lexicon: %w", err)
		}
		comp.Sentiment = lex
	} else {
		comp.Sentiment = sentiment.DefaultLexicon()
	}

	// Load jargon
	if l.JargonPath != "" {
		jargon, err := lexicon.LoadFromYAML(l.JargonPath)
		if err != nil {
			return nil, fmt.Errorf("load jargon: %w", err)
		}
		comp.Jargon = jargon
	} else {
		comp.Jargon = lexicon.Default()
	}

	return comp, nil
}
