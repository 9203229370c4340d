package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefault(t *testing.T) {
	lex := Default()

	tests := []struct {
		in, want string
	}{
		{"ai", "AI"},
		{"A.I.", "AI"},
		{"Artificial Intelligence", "AI"},
		{"ml", "Machine Learning"},
		{"supply chain management", "Supply Chain"},
		{"SCM", "Supply Chain"},
		{"future of work", "Future of Work"},
		{"Cloud", "Cloud"},
		{"robots", "robots"},
	}
	for _, tt := range tests {
		if got := lex.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVariants(t *testing.T) {
	lex := Default()

	got := lex.Variants("Machine Learning")
	want := []string{"machine learning", "ml"}
	if len(got) != len(want) {
		t.Fatalf("Variants = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Variants[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := lex.Variants("Unknown"); len(got) != 1 || got[0] != "unknown" {
		t.Errorf("Variants(unknown) = %v", got)
	}
	if !lex.Known("KPI") || lex.Known("cloud") {
		t.Error("Known reported wrong membership")
	}
}

func TestAddGroupReplaces(t *testing.T) {
	lex := New()
	lex.AddGroup("EV", []string{"electric vehicle", "evs"})
	lex.AddGroup("EV", []string{"electric car"})

	if got := lex.Normalize("evs"); got != "evs" {
		t.Errorf("stale variant should be dropped, got %q", got)
	}
	if got := lex.Normalize("electric car"); got != "EV" {
		t.Errorf("Normalize(electric car) = %q", got)
	}
	if got := lex.Normalize("ev"); got != "EV" {
		t.Errorf("display form should map to itself, got %q", got)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jargon.yaml")
	content := `jargon:
  - display: IoT
    variants: [iot, internet of things]
  - display: Digital Twin
    variants: [digital twins]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if got := lex.Normalize("Internet of Things"); got != "IoT" {
		t.Errorf("Normalize = %q", got)
	}
	if got := lex.Normalize("digital twin"); got != "Digital Twin" {
		t.Errorf("Normalize = %q", got)
	}
	if groups := lex.Groups(); len(groups) != 2 || groups[0].Display != "Digital Twin" {
		t.Errorf("Groups = %+v", groups)
	}
}

func TestLoadFromYAMLErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromYAML(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(dir, "bad.yaml")
	os.WriteFile(path, []byte("jargon:\n  - variants: [x]\n"), 0o644)
	if _, err := LoadFromYAML(path); err == nil {
		t.Error("expected error for group without display form")
	}
}
