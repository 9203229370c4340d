package corpus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterCounts(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, Options{Logger: quietLogger()})

	if err := c.Register(ctx, []string{"supply", "chain", "supply", "chain", "risk"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := c.TotalDocuments(); got != 1 {
		t.Errorf("TotalDocuments = %d, want 1", got)
	}
	if got := c.TermFrequency("supply"); got != 2 {
		t.Errorf("TermFrequency(supply) = %d, want 2", got)
	}
	if got := c.DocumentFrequency("supply"); got != 1 {
		t.Errorf("DocumentFrequency(supply) = %d, want 1", got)
	}
	if got := c.PhraseCount("supply chain"); got != 2 {
		t.Errorf("PhraseCount(supply chain) = %d, want 2", got)
	}
	if got := c.PhraseCount("chain supply"); got != 1 {
		t.Errorf("PhraseCount(chain supply) = %d, want 1", got)
	}
}

func TestRegisterMonotonic(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, Options{Logger: quietLogger()})

	docs := [][]string{
		{"data", "data", "pipeline"},
		{},
		{"pipeline", "latency"},
		{"data", "latency", "latency", "latency"},
	}

	for i, doc := range docs {
		before := c.TotalDocuments()
		if err := c.Register(ctx, doc); err != nil {
			t.Fatalf("Register: %v", err)
		}
		if got := c.TotalDocuments(); got != before+1 {
			t.Fatalf("doc %d: TotalDocuments = %d, want %d", i, got, before+1)
		}

		snap := c.Snapshot()
		for tok, df := range snap.DocumentFrequency {
			if tf := snap.TermFrequency[tok]; df > tf {
				t.Errorf("doc %d: df(%s)=%d exceeds tf=%d", i, tok, df, tf)
			}
		}
	}
}

func TestTFIDF(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, Options{Logger: quietLogger()})

	if got := c.TFIDF("anything", nil); got != 0 {
		t.Errorf("empty doc should score 0, got %f", got)
	}

	// Empty corpus: idf = ln(1/1) = 0
	if got := c.TFIDF("robot", []string{"robot"}); got != 0 {
		t.Errorf("empty corpus should score 0, got %f", got)
	}

	c.Register(ctx, []string{"robot", "arm"})
	c.Register(ctx, []string{"warehouse"})
	c.Register(ctx, []string{"robot", "warehouse"})

	doc := []string{"robot", "robot", "picker", "arm"}

	// tf = 2/4, df = 2, idf = ln(4/2)
	want := 0.5 * math.Log(4.0/2.0)
	if got := c.TFIDF("robot", doc); math.Abs(got-want) > 1e-9 {
		t.Errorf("TFIDF(robot) = %f, want %f", got, want)
	}

	// unseen term uses df = 1
	want = 0.25 * math.Log(4.0)
	if got := c.TFIDF("picker", doc); math.Abs(got-want) > 1e-9 {
		t.Errorf("TFIDF(picker) = %f, want %f", got, want)
	}

	if c.TotalDocuments() != 3 {
		t.Errorf("TFIDF must not register documents")
	}
}

func TestPhrasesOrdering(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, Options{Logger: quietLogger()})

	c.Register(ctx, []string{"job", "security", "remote", "work"})
	c.Register(ctx, []string{"job", "security"})
	c.Register(ctx, []string{"remote", "work"})
	c.Register(ctx, []string{"job", "security"})

	got := c.Phrases(2)
	want := []PhraseCount{
		{Phrase: "job security", Count: 3},
		{Phrase: "remote work", Count: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Phrases(2) = %v, want %v", got, want)
	}
}

func TestResumeFromPersister(t *testing.T) {
	ctx := context.Background()
	p := &MemoryPersister{}

	first := New(ctx, Options{Persister: p, Logger: quietLogger()})
	first.Register(ctx, []string{"edge", "compute"})
	first.Register(ctx, []string{"edge"})

	if p.Saves() != 2 {
		t.Errorf("expected a save per registration, got %d", p.Saves())
	}

	second := New(ctx, Options{Persister: p, Logger: quietLogger()})
	if !reflect.DeepEqual(first.Snapshot(), second.Snapshot()) {
		t.Errorf("resumed corpus differs:\n%v\n%v", first.Snapshot(), second.Snapshot())
	}

	// independent corpora do not share state
	second.Register(ctx, []string{"fresh"})
	if first.TermFrequency("fresh") != 0 {
		t.Error("corpora should not share state")
	}
}

type failingPersister struct {
	loadErr error
	saveErr error
}

func (f failingPersister) Load(ctx context.Context) (*Snapshot, error) {
	return nil, f.loadErr
}

func (f failingPersister) Save(ctx context.Context, snap Snapshot) error {
	return f.saveErr
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := New(context.Background(), Options{
		Persister: failingPersister{loadErr: errors.New("disk on fire")},
		Logger:    logger,
	})

	if c.TotalDocuments() != 0 {
		t.Errorf("expected empty corpus, got %d docs", c.TotalDocuments())
	}
	if !strings.Contains(buf.String(), "disk on fire") {
		t.Errorf("load failure should be logged, got %q", buf.String())
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, Options{
		Persister: failingPersister{saveErr: errors.New("read-only")},
		Logger:    quietLogger(),
	})

	err := c.Register(ctx, []string{"kept"})
	if !errors.Is(err, internalerr.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if c.TotalDocuments() != 1 || c.TermFrequency("kept") != 1 {
		t.Error("in-memory update must survive a persistence failure")
	}
}

func TestFilePersisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "corpus.json")
	p := FilePersister{Path: path}

	snap, err := p.Load(ctx)
	if err != nil || snap != nil {
		t.Fatalf("missing file should load as nil, got %v, %v", snap, err)
	}

	c := New(ctx, Options{Persister: p, Logger: quietLogger()})
	c.Register(ctx, []string{"cloud", "erp", "migration"})
	c.Register(ctx, []string{"erp", "migration"})

	loaded, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(*loaded, c.Snapshot()) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", *loaded, c.Snapshot())
	}
}

func TestFilePersisterCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corpus.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := (FilePersister{Path: path}).Load(ctx); err == nil {
		t.Error("expected decode error")
	}

	c := New(ctx, Options{Persister: FilePersister{Path: path}, Logger: quietLogger()})
	if c.TotalDocuments() != 0 {
		t.Error("corrupt snapshot should start an empty corpus")
	}
}

func TestSnapshotRoundTripEmpty(t *testing.T) {
	data, err := EncodeSnapshot(Snapshot{})
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if !reflect.DeepEqual(*got, NewSnapshot()) {
		t.Errorf("empty round trip = %#v", *got)
	}
}
