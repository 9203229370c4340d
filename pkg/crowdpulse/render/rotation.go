package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
)

// DefaultRotationInterval is how long each presenter view stays on screen.
const DefaultRotationInterval = 15 * time.Second

// FeaturedFile holds the featured override fragment written by WriteAll.
const FeaturedFile = "featured.html"

// View is one presenter screen.
type View struct {
	Name  string
	File  string
	Build func([]store.Submission) *html.Node
}

// Views returns the presenter views in rotation order.
func (r *Renderer) Views() []View {
	return []View{
		{Name: "Top Themes", File: "themes.html", Build: r.BarChart},
		{Name: "Top Key Terms", File: "terms.html", Build: r.WordCloud},
		{Name: "Audience Sentiment", File: "sentiment.html", Build: r.SentimentOverview},
	}
}

// Page wraps a view with its title and, when set, the featured override.
func (r *Renderer) Page(v View, subs []store.Submission, override *store.Submission) *html.Node {
	title := element(atom.H1, "", text(v.Name))
	title.Attr = append(title.Attr, html.Attribute{Key: "id", Val: "current-view-title"})
	return element(atom.Div, "presenter",
		title,
		r.Featured(override),
		element(atom.Div, "visualization-content", v.Build(subs)),
	)
}

// Rotation cycles through the presenter views. It is safe for concurrent
// use.
type Rotation struct {
	mu    sync.Mutex
	views []View
	index int
}

// NewRotation starts a rotation at the first view.
func NewRotation(views []View) *Rotation {
	return &Rotation{views: views}
}

// Current returns the view on screen.
func (r *Rotation) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[r.index]
}

// Next advances to the following view, wrapping around, and returns it.
func (r *Rotation) Next() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = (r.index + 1) % len(r.views)
	return r.views[r.index]
}

// WriteAll renders every view into dir, one file per view, plus the
// featured override when one is set. A stale featured file is removed when
// there is no override.
func (r *Renderer) WriteAll(ctx context.Context, dir string, subs []store.Submission, override *store.Submission) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	type job struct {
		file string
		node *html.Node
	}
	var jobs []job
	for _, v := range r.Views() {
		jobs = append(jobs, job{file: v.File, node: v.Build(subs)})
	}
	if featured := r.Featured(override); featured != nil {
		jobs = append(jobs, job{file: FeaturedFile, node: featured})
	} else if err := os.Remove(filepath.Join(dir, FeaturedFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale featured fragment: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(writeWorkerCount(len(jobs)))

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return WriteFile(filepath.Join(dir, j.file), j.node)
		})
	}
	return g.Wait()
}

// WriteFile renders a fragment to path, replacing it atomically.
func WriteFile(path string, n *html.Node) error {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp_fragment_*.html")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func writeWorkerCount(jobs int) int {
	return max(min(runtime.NumCPU(), jobs), 1)
}
