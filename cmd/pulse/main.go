package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/crowdpulse/internal/feed"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/config"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/grammar"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/grammar/openai"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/moderation"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/render"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store/sqlite"
)

const usage = `usage: pulse <command> [flags]

commands:
  ingest    submit every item of a JSONL or text file
  moderate  approve, reject, feature or unfeature submissions
  report    print the insights report for approved submissions
  render    write the presenter fragments to a directory
  present   keep the presenter page up to date until interrupted
  analyze   print the analysis of one text without storing it
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "ingest":
		err = runIngest(ctx, args)
	case "moderate":
		err = runModerate(ctx, args)
	case "report":
		err = runReport(ctx, args)
	case "render":
		err = runRender(ctx, args)
	case "present":
		err = runPresent(ctx, args)
	case "analyze":
		err = runAnalyze(ctx, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// common holds the flags every command shares.
type common struct {
	configPath *string
	db         *string
	key        *string
	themes     *string
	stoplist   *string
	sentiment  *string
	jargon     *string
	llm        *bool
	llmModel   *string
	llmBase    *string
	verbose    *bool
}

func commonFlags(fs *flag.FlagSet) *common {
	return &common{
		configPath: fs.String("config", "", "Optional: app settings YAML"),
		db:         fs.String("db", "", "SQLite database path (default crowdpulse.db)"),
		key:        fs.String("key", "", "Storage key of the event data set"),
		themes:     fs.String("themes", "", "Optional: themes YAML"),
		stoplist:   fs.String("stoplist", "", "Optional: stoplist YAML"),
		sentiment:  fs.String("sentiment", "", "Optional: sentiment lexicon YAML"),
		jargon:     fs.String("jargon", "", "Optional: jargon YAML"),
		llm:        fs.Bool("llm", false, "Use the OpenAI grammar helper"),
		llmModel:   fs.String("llm-model", "", "Optional: model for the grammar helper"),
		llmBase:    fs.String("llm-base", "", "Optional: OpenAI-compatible base URL"),
		verbose:    fs.Bool("v", false, "Debug logging"),
	}
}

// app merges the settings file with flag overrides.
func (c *common) app() (config.App, error) {
	app := config.DefaultApp()
	if *c.configPath != "" {
		var err error
		if app, err = config.LoadApp(*c.configPath); err != nil {
			return config.App{}, fmt.Errorf("load app config: %w", err)
		}
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&app.DBPath, *c.db)
	override(&app.StorageKey, *c.key)
	override(&app.ThemesPath, *c.themes)
	override(&app.StoplistPath, *c.stoplist)
	override(&app.SentimentPath, *c.sentiment)
	override(&app.JargonPath, *c.jargon)
	override(&app.LLM.Model, *c.llmModel)
	override(&app.LLM.BaseURL, *c.llmBase)
	if *c.llm {
		app.LLM.Enabled = true
	}
	return app, app.Validate()
}

func (c *common) logger() *slog.Logger {
	level := slog.LevelInfo
	if *c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// env is what a command needs to talk to the event's data.
type env struct {
	app    config.App
	logger *slog.Logger
	store  *sqlite.Store
	engine *crowdpulse.Engine
}

func (e *env) Close() error {
	return e.store.Close()
}

func open(ctx context.Context, c *common) (*env, error) {
	app, err := c.app()
	if err != nil {
		return nil, err
	}
	logger := c.logger()

	loader := app.Loader()
	comp, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configs: %w", err)
	}

	st, err := sqlite.OpenSQLite(ctx, app.DBPath, sqlite.Options{PollInterval: app.PollInterval, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", app.DBPath, err)
	}

	engine, err := crowdpulse.New(ctx, crowdpulse.Options{
		Components:             comp,
		Persister:              st.CorpusPersister(app.CorpusKey()),
		Repository:             st,
		Helper:                 grammarHelper(app, logger),
		HelperTimeout:          app.HelperTimeout,
		TopTerms:               app.TopTerms,
		MinEmergingOccurrences: app.MinEmergingOccurrences,
		SuggestMinChars:        app.SuggestMinChars,
		Logger:                 logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return &env{app: app, logger: logger, store: st, engine: engine}, nil
}

func grammarHelper(app config.App, logger *slog.Logger) grammar.Helper {
	if !app.LLM.Enabled {
		return grammar.Nop{}
	}
	helper, err := openai.New(openai.Config{
		APIKey:  os.Getenv(app.LLM.APIKeyEnv),
		BaseURL: app.LLM.BaseURL,
		Model:   app.LLM.Model,
		Logger:  logger,
	})
	if err != nil {
		logger.Warn("grammar helper disabled, using rule-based analysis", "error", err)
		return grammar.Nop{}
	}
	return helper
}

func runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	c := commonFlags(fs)
	in := fs.String("in", "", "JSONL or text file of submissions (required)")
	fs.Parse(args)

	if *in == "" {
		return errors.New("--in required")
	}

	e, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	items, err := feed.Load(*in, e.logger)
	if err != nil {
		return err
	}

	var failed int
	for _, item := range items {
		id, err := e.engine.SubmitAt(ctx, item.Text, item.Timestamp)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("submission failed", "text", item.Text, "error", err)
			failed++
			continue
		}
		fmt.Println(id)
	}
	e.logger.Info("ingest complete", "submitted", len(items)-failed, "failed", failed)
	return nil
}

func runModerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("moderate", flag.ExitOnError)
	c := commonFlags(fs)
	approve := fs.String("approve", "", "Approve a pending submission")
	reject := fs.String("reject", "", "Reject a pending submission")
	feature := fs.String("feature", "", "Feature an approved submission")
	requeue := fs.String("requeue", "", "Send a featured submission back to pending")
	unfeature := fs.Bool("unfeature", false, "Clear the featured submission")
	approveAll := fs.Bool("approve-all", false, "Approve every pending submission")
	fs.Parse(args)

	e, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	m := moderation.New(e.store, e.logger)
	switch {
	case *approve != "":
		return m.Approve(ctx, *approve)
	case *reject != "":
		return m.Reject(ctx, *reject)
	case *feature != "":
		return m.Feature(ctx, *feature)
	case *requeue != "":
		return m.Requeue(ctx, *requeue)
	case *unfeature:
		return m.Unfeature(ctx)
	case *approveAll:
		res, err := m.ApproveAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("approved %d of %d pending submissions\n", res.Updated, res.Processed)
		return nil
	}

	// no action: list the pending queue
	pending, err := e.store.ListByStatus(ctx, store.StatusPending)
	if err != nil {
		return err
	}
	for _, s := range pending {
		fmt.Printf("%s  %-26s  %-9s  %s\n", s.ID, s.Theme, s.Sentiment, s.Text)
	}
	return nil
}

func runReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	c := commonFlags(fs)
	fs.Parse(args)

	e, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := e.engine.LiveInsights(ctx)
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Println(render.WaitingMessage)
		return nil
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	c := commonFlags(fs)
	out := fs.String("out", "presenter", "Output directory")
	fs.Parse(args)

	e, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	subs, err := e.store.ListByStatus(ctx, moderation.LiveStatuses...)
	if err != nil {
		return err
	}
	override, err := e.store.GetFeaturedOverride(ctx)
	if err != nil {
		return err
	}
	if err := e.engine.Renderer().WriteAll(ctx, *out, subs, override); err != nil {
		return err
	}
	e.logger.Info("presenter fragments written", "dir", *out, "submissions", len(subs))
	return nil
}

func runPresent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("present", flag.ExitOnError)
	c := commonFlags(fs)
	out := fs.String("out", "presenter", "Output directory")
	interval := fs.Duration("interval", 0, "View rotation interval (default from config, 15s)")
	duration := fs.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	fs.Parse(args)

	e, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	if *interval <= 0 {
		*interval = e.app.RotationInterval
	}
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	r := e.engine.Renderer()
	rotation := render.NewRotation(r.Views())

	var (
		mu       sync.Mutex
		subs     []store.Submission
		override *store.Submission
	)
	changed := make(chan struct{}, 1)
	signalChange := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	stopLive, err := moderation.New(e.store, e.logger).ListenLive(gctx, func(list []store.Submission) {
		mu.Lock()
		subs = list
		mu.Unlock()
		signalChange()
	})
	if err != nil {
		return err
	}
	defer stopLive()

	stopOverride, err := e.store.ListenForOverride(gctx, func(o *store.Submission) {
		mu.Lock()
		override = o
		mu.Unlock()
		signalChange()
	})
	if err != nil {
		return err
	}
	defer stopOverride()

	g.Go(func() error {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				v := rotation.Next()
				e.logger.Debug("rotating view", "view", v.Name)
				signalChange()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-changed:
			}

			mu.Lock()
			current, featured := subs, override
			mu.Unlock()

			page := r.Page(rotation.Current(), current, featured)
			if err := render.WriteFile(filepath.Join(*out, "current.html"), page); err != nil {
				return err
			}
			if err := r.WriteAll(gctx, *out, current, featured); err != nil {
				return err
			}
		}
	})

	e.logger.Info("presenting", "dir", *out, "interval", *interval)
	return g.Wait()
}

func runAnalyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	c := commonFlags(fs)
	text := fs.String("text", "", "Text to analyze (required)")
	fs.Parse(args)

	if *text == "" {
		return errors.New("--text required")
	}

	e, err := open(ctx, c)
	if err != nil {
		return err
	}
	defer e.Close()

	result := struct {
		crowdpulse.Analysis
		Suggestion string `json:"suggestion,omitempty"`
	}{Analysis: e.engine.Analyze(ctx, *text)}
	if s, ok := e.engine.Suggest(*text); ok {
		result.Suggestion = s.Theme
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
