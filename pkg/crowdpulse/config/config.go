package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
)

// Themes represents the theme taxonomy configuration. Themes are scored in
// file order, which also decides ties.
type Themes struct {
	DefaultLabel string       `yaml:"default_label"`
	DefaultIcon  string       `yaml:"default_icon"`
	Themes       []ThemeEntry `yaml:"themes"`
}

// ThemeEntry is one theme definition.
type ThemeEntry struct {
	Name    string   `yaml:"name"`
	Icon    string   `yaml:"icon"`
	Weight  float64  `yaml:"weight"`
	Exact   []string `yaml:"exact"`
	Partial []string `yaml:"partial"`
}

// LoadThemes loads the taxonomy from a YAML file
func LoadThemes(path string) (*Themes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var th Themes
	if err := yaml.Unmarshal(data, &th); err != nil {
		return nil, err
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &th, nil
}

// Validate rejects unnamed, duplicate or negatively weighted themes.
func (t Themes) Validate() error {
	if len(t.Themes) == 0 {
		return fmt.Errorf("%w: no themes defined", internalerr.ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(t.Themes))
	for i, e := range t.Themes {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return fmt.Errorf("%w: theme %d has no name", internalerr.ErrInvalidConfig, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate theme %q", internalerr.ErrInvalidConfig, name)
		}
		seen[name] = true
		if e.Weight < 0 {
			return fmt.Errorf("%w: theme %q has negative weight", internalerr.ErrInvalidConfig, name)
		}
		if len(e.Exact) == 0 && len(e.Partial) == 0 {
			return fmt.Errorf("%w: theme %q has no terms", internalerr.ErrInvalidConfig, name)
		}
	}
	return nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// DefaultStopwords is the built-in English stoplist.
var DefaultStopwords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of",
	"with", "by", "from", "up", "about", "into", "through", "during",
	"is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "can",
	"this", "that", "these", "those",
	"i", "you", "he", "she", "it", "we", "they",
	"what", "which", "who", "when", "where", "why", "how",
	"our", "your", "my",
}

// DefaultStorageKey names the event's data set.
const DefaultStorageKey = "ai_day_2025_submissions"

// App holds the runtime settings of the pulse CLI.
type App struct {
	StorageKey string `yaml:"storage_key"`
	DBPath     string `yaml:"db_path"`

	ThemesPath    string `yaml:"themes_path"`
	StoplistPath  string `yaml:"stoplist_path"`
	SentimentPath string `yaml:"sentiment_path"`
	JargonPath    string `yaml:"jargon_path"`

	TopTerms               int   `yaml:"top_terms"`
	MinEmergingOccurrences int64 `yaml:"min_emerging_occurrences"`
	SuggestMinChars        int   `yaml:"suggest_min_chars"`

	RotationInterval time.Duration `yaml:"rotation_interval"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	HelperTimeout    time.Duration `yaml:"helper_timeout"`

	LLM LLM `yaml:"llm"`
}

// LLM configures the optional language-model grammar helper.
type LLM struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// DefaultApp returns the settings used when no file is given.
func DefaultApp() App {
	return App{
		StorageKey:             DefaultStorageKey,
		DBPath:                 "crowdpulse.db",
		TopTerms:               5,
		MinEmergingOccurrences: 2,
		SuggestMinChars:        20,
		RotationInterval:       15 * time.Second,
		PollInterval:           time.Second,
		HelperTimeout:          5 * time.Second,
		LLM: LLM{
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}

// LoadApp reads settings from a YAML file on top of DefaultApp.
func LoadApp(path string) (App, error) {
	app := DefaultApp()
	data, err := os.ReadFile(path)
	if err != nil {
		return App{}, err
	}
	if err := yaml.Unmarshal(data, &app); err != nil {
		return App{}, fmt.Errorf("parse app config: %w", err)
	}
	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}

// Validate checks the settings for values the engine cannot run with.
func (a App) Validate() error {
	if strings.TrimSpace(a.StorageKey) == "" {
		return fmt.Errorf("%w: storage_key is empty", internalerr.ErrInvalidConfig)
	}
	if a.TopTerms <= 0 {
		return fmt.Errorf("%w: top_terms must be positive", internalerr.ErrInvalidConfig)
	}
	if a.MinEmergingOccurrences <= 0 {
		return fmt.Errorf("%w: min_emerging_occurrences must be positive", internalerr.ErrInvalidConfig)
	}
	if a.RotationInterval <= 0 || a.PollInterval <= 0 || a.HelperTimeout <= 0 {
		return fmt.Errorf("%w: intervals and timeouts must be positive", internalerr.ErrInvalidConfig)
	}
	return nil
}

// CorpusKey is the key the corpus snapshot is stored under.
func (a App) CorpusKey() string {
	return a.StorageKey + "_corpus"
}

// Loader returns a component loader for the configured paths.
func (a App) Loader() Loader {
	return Loader{
		ThemesPath:    a.ThemesPath,
		StoplistPath:  a.StoplistPath,
		SentimentPath: a.SentimentPath,
		JargonPath:    a.JargonPath,
	}
}
