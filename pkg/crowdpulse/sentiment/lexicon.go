package sentiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConcernGroup is a named list of terms that signal a worry even when the
// wording is lexically neutral. Terms may contain spaces; they are matched
// as substrings of the lowercased text.
type ConcernGroup struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// Lexicon holds the word lists and tuning constants of the analyzer.
// Zero numeric fields take the defaults from DefaultLexicon.
type Lexicon struct {
	Positive     map[string]float64 `yaml:"positive"`
	Negative     map[string]float64 `yaml:"negative"`
	Negations    []string           `yaml:"negations"`
	Intensifiers map[string]float64 `yaml:"intensifiers"`
	Diminishers  map[string]float64 `yaml:"diminishers"`
	Concerns     []ConcernGroup     `yaml:"concerns"`

	NegationWindow    int     `yaml:"negation_window"`
	NegationFactor    float64 `yaml:"negation_factor"`
	IntensityWindow   int     `yaml:"intensity_window"`
	PositiveThreshold float64 `yaml:"positive_threshold"`
	NegativeThreshold float64 `yaml:"negative_threshold"`
	ConcernThreshold  int     `yaml:"concern_threshold"`
}

const (
	defaultNegationWindow    = 3
	defaultNegationFactor    = -1.5
	defaultIntensityWindow   = 2
	defaultPositiveThreshold = 0.5
	defaultNegativeThreshold = -0.5
	defaultConcernThreshold  = 1
)

// DefaultLexicon returns the built-in English lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Positive: map[string]float64{
			"love": 3, "amazing": 3, "excellent": 3, "remarkable": 3,
			"great": 2, "excited": 2, "benefit": 2, "opportunity": 2,
			"good": 1, "nice": 1, "like": 1, "hopeful": 1, "positive": 1,
		},
		Negative: map[string]float64{
			"hate": -3, "horrible": -3, "worst": -3,
			"bad": -2, "poor": -2, "fear": -2,
			"problem": -1, "issue": -1, "risk": -1, "threat": -1, "concern": -1, "challenge": -1,
		},
		Negations: []string{
			"not", "no", "never", "neither", "nobody", "nothing", "nowhere",
			"don't", "doesn't", "didn't", "won't", "wouldn't", "can't", "cannot",
			"couldn't", "shouldn't", "isn't", "aren't", "wasn't", "weren't",
			"hasn't", "haven't", "hadn't",
		},
		Intensifiers: map[string]float64{
			"very": 1.5, "extremely": 2.0, "really": 1.3, "absolutely": 1.8, "highly": 1.5,
		},
		Diminishers: map[string]float64{
			"slightly": 0.5, "somewhat": 0.7, "barely": 0.4, "hardly": 0.4,
		},
		Concerns: []ConcernGroup{
			{
				Name:  "job_displacement",
				Terms: []string{"takeover", "replace", "jobs", "job", "workers", "obsolete", "unemployment", "future of work", "job security"},
			},
			{
				Name:  "skill_gaps",
				Terms: []string{"skills", "skill", "learn", "training", "adapt", "reskill", "upskill", "required", "necessary"},
			},
		},
		NegationWindow:    defaultNegationWindow,
		NegationFactor:    defaultNegationFactor,
		IntensityWindow:   defaultIntensityWindow,
		PositiveThreshold: defaultPositiveThreshold,
		NegativeThreshold: defaultNegativeThreshold,
		ConcernThreshold:  defaultConcernThreshold,
	}
}

// LoadLexicon reads a YAML lexicon. Sections left out of the file keep
// their default contents.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, err
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse sentiment lexicon: %w", err)
	}
	return lex.withDefaults(), nil
}

func (l Lexicon) withDefaults() Lexicon {
	def := DefaultLexicon()
	if l.Positive == nil {
		l.Positive = def.Positive
	}
	if l.Negative == nil {
		l.Negative = def.Negative
	}
	if l.Negations == nil {
		l.Negations = def.Negations
	}
	if l.Intensifiers == nil {
		l.Intensifiers = def.Intensifiers
	}
	if l.Diminishers == nil {
		l.Diminishers = def.Diminishers
	}
	if l.Concerns == nil {
		l.Concerns = def.Concerns
	}
	if l.NegationWindow == 0 {
		l.NegationWindow = def.NegationWindow
	}
	if l.NegationFactor == 0 {
		l.NegationFactor = def.NegationFactor
	}
	if l.IntensityWindow == 0 {
		l.IntensityWindow = def.IntensityWindow
	}
	if l.PositiveThreshold == 0 {
		l.PositiveThreshold = def.PositiveThreshold
	}
	if l.NegativeThreshold == 0 {
		l.NegativeThreshold = def.NegativeThreshold
	}
	if l.ConcernThreshold == 0 {
		l.ConcernThreshold = def.ConcernThreshold
	}
	return l
}

// Validate checks the lexicon for values that would invert its meaning.
func (l Lexicon) Validate() error {
	for w, v := range l.Positive {
		if v <= 0 {
			return fmt.Errorf("positive word %q has non-positive score %v", w, v)
		}
	}
	for w, v := range l.Negative {
		if v >= 0 {
			return fmt.Errorf("negative word %q has non-negative score %v", w, v)
		}
	}
	for w, v := range l.Intensifiers {
		if v <= 1 {
			return fmt.Errorf("intensifier %q must be greater than 1, got %v", w, v)
		}
	}
	for w, v := range l.Diminishers {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("diminisher %q must be in (0,1), got %v", w, v)
		}
	}
	if l.NegationWindow < 0 || l.IntensityWindow < 0 {
		return fmt.Errorf("windows must not be negative")
	}
	if l.PositiveThreshold <= l.NegativeThreshold {
		return fmt.Errorf("positive threshold %v must exceed negative threshold %v", l.PositiveThreshold, l.NegativeThreshold)
	}
	return nil
}
