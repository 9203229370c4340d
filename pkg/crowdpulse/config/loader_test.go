package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/theme"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}

	if comp.Tokenizer == nil {
		t.Fatal("Should have tokenizer")
	}
	if len(comp.Taxonomy.Themes) != 6 {
		t.Errorf("expected default taxonomy, got %d themes", len(comp.Taxonomy.Themes))
	}
	if comp.Jargon == nil || comp.Jargon.Normalize("ml") != "Machine Learning" {
		t.Error("expected default jargon")
	}
	if comp.Sentiment.Positive["love"] != 3 {
		t.Error("expected default sentiment lexicon")
	}

	// default acronyms survive the length filter, default stopwords do not
	tokens := comp.Tokenizer.Tokenize("Is BI or AI better for our KPI?")
	want := []string{"bi", "ai", "better", "kpi"}
	if len(tokens) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestLoaderNonExistentFiles(t *testing.T) {
	for name, loader := range map[string]Loader{
		"themes":    {ThemesPath: "/nonexistent/themes.yaml"},
		"stoplist":  {StoplistPath: "/nonexistent/stoplist.yaml"},
		"sentiment": {SentimentPath: "/nonexistent/sentiment.yaml"},
		"jargon":    {JargonPath: "/nonexistent/jargon.yaml"},
	} {
		if _, err := loader.Load(); err == nil {
			t.Errorf("%s: should error on nonexistent file", name)
		}
	}
}

func TestLoaderCustomFiles(t *testing.T) {
	dir := t.TempDir()
	themes := writeFile(t, dir, "themes.yaml", `default_label: Other
themes:
  - name: Energy
    icon: "⚡"
    weight: 1.5
    exact: [ev, PV]
    partial: [solar, grid]
  - name: Water
    partial: [water, irrigat]
`)
	stoplist := writeFile(t, dir, "stoplist.yaml", "terms: [the, and]\n")

	loader := Loader{ThemesPath: themes, StoplistPath: stoplist}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if comp.Taxonomy.Fallback() != "Other" {
		t.Errorf("Fallback = %q", comp.Taxonomy.Fallback())
	}
	if comp.Taxonomy.DefaultIcon != theme.DefaultIcon {
		t.Errorf("DefaultIcon = %q", comp.Taxonomy.DefaultIcon)
	}
	if got := comp.Taxonomy.Themes[0].Exact; len(got) != 2 || got[1] != "pv" {
		t.Errorf("exact terms should be lowercased, got %v", got)
	}

	tokens := comp.Tokenizer.Tokenize("The EV and PV grid")
	if len(tokens) != 3 || tokens[0] != "ev" || tokens[1] != "pv" {
		t.Errorf("Tokenize = %v", tokens)
	}
}

func TestLoadThemesValidation(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"empty":     "themes: []\n",
		"unnamed":   "themes:\n  - partial: [x]\n",
		"duplicate": "themes:\n  - name: A\n    exact: [a]\n  - name: A\n    exact: [b]\n",
		"negative":  "themes:\n  - name: A\n    weight: -1\n    exact: [a]\n",
		"no terms":  "themes:\n  - name: A\n",
	}
	for name, content := range tests {
		path := writeFile(t, dir, "themes.yaml", content)
		if _, err := LoadThemes(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidConfig", name, err)
		}
	}
}

func TestLoadApp(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pulse.yaml", `storage_key: summit_2026
top_terms: 8
rotation_interval: 30s
llm:
  enabled: true
  model: gpt-5-nano
`)

	app, err := LoadApp(path)
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}
	if app.StorageKey != "summit_2026" || app.CorpusKey() != "summit_2026_corpus" {
		t.Errorf("storage key = %q / %q", app.StorageKey, app.CorpusKey())
	}
	if app.TopTerms != 8 || app.RotationInterval != 30*time.Second {
		t.Errorf("overrides not applied: %+v", app)
	}
	if app.PollInterval != time.Second || app.LLM.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("defaults lost: %+v", app)
	}
	if !app.LLM.Enabled || app.LLM.Model != "gpt-5-nano" {
		t.Errorf("llm = %+v", app.LLM)
	}
}

func TestAppValidate(t *testing.T) {
	if err := DefaultApp().Validate(); err != nil {
		t.Fatalf("default app invalid: %v", err)
	}
	if DefaultApp().CorpusKey() != "ai_day_2025_submissions_corpus" {
		t.Errorf("CorpusKey = %q", DefaultApp().CorpusKey())
	}

	bad := DefaultApp()
	bad.TopTerms = 0
	if err := bad.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
