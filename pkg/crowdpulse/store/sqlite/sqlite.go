package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/corpus"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/internalerr"
	"github.com/cognicore/crowdpulse/pkg/crowdpulse/store"
)

// DefaultPollInterval is how often listeners re-query the database.
const DefaultPollInterval = time.Second

// fixed-width so that ORDER BY on the text column is chronological
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const overrideKey = "featured_override"

// Options configures a Store.
type Options struct {
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Store implements store.Repository on SQLite.
//
// Listeners poll the database, so changes made by another process sharing
// the file are picked up within one PollInterval. Writes through this Store
// wake its listeners immediately.
type Store struct {
	db     *sql.DB
	ids    *store.IDGenerator
	now    func() time.Time
	poll   time.Duration
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	nextWID  int
	watchers map[int]*watcher
}

var _ store.Repository = (*Store)(nil)

// OpenSQLite opens a SQLite database with WAL mode enabled.
// An optional Options value controls polling and logging.
func OpenSQLite(ctx context.Context, path string, opts ...Options) (*Store, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps per-connection pragmas in effect and serializes writers
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	return &Store{
		db:       db,
		ids:      store.NewIDGenerator(),
		now:      time.Now,
		poll:     o.PollInterval,
		logger:   o.Logger,
		ctx:      sctx,
		cancel:   cancel,
		watchers: make(map[int]*watcher),
	}, nil
}

// Close stops every listener and closes the database connection.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	theme TEXT NOT NULL DEFAULT '',
	sentiment TEXT NOT NULL DEFAULT '',
	analysis_source TEXT NOT NULL DEFAULT '',
	key_terms TEXT NOT NULL DEFAULT '[]',
	key_phrases TEXT NOT NULL DEFAULT '[]',
	confidence REAL NOT NULL DEFAULT 0,
	status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status, timestamp);

CREATE TABLE IF NOT EXISTS live_control (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS corpus_snapshot (
	key TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Create inserts a submission. A missing id, timestamp or status is filled
// in (new ULID, now, pending).
func (s *Store) Create(ctx context.Context, sub store.Submission) (string, error) {
	if err := sub.Validate(); err != nil {
		return "", err
	}
	if sub.Timestamp.IsZero() {
		sub.Timestamp = s.now()
	}
	sub.Timestamp = sub.Timestamp.UTC()
	if sub.Status == "" {
		sub.Status = store.StatusPending
	}
	if sub.ID == "" {
		sub.ID = s.ids.NewID(sub.Timestamp)
	}

	terms, err := json.Marshal(nonNil(sub.KeyTerms))
	if err != nil {
		return "", err
	}
	phrases, err := json.Marshal(nonNil(sub.KeyPhrases))
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("create submission: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM submissions WHERE id = ?`, sub.ID).Scan(&exists)
	if err == nil {
		return "", fmt.Errorf("%w: submission %s", internalerr.ErrDuplicate, sub.ID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("create submission: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO submissions (id, text, timestamp, theme, sentiment, analysis_source, key_terms, key_phrases, confidence, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		sub.ID,
		sub.Text,
		sub.Timestamp.Format(timeLayout),
		sub.Theme,
		sub.Sentiment,
		sub.AnalysisSource,
		string(terms),
		string(phrases),
		sub.Confidence,
		string(sub.Status),
	)
	if err != nil {
		return "", fmt.Errorf("create submission: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("create submission: %w", err)
	}

	s.wake()
	return sub.ID, nil
}

const submissionColumns = `id, text, timestamp, theme, sentiment, analysis_source, key_terms, key_phrases, confidence, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (store.Submission, error) {
	var sub store.Submission
	var ts, terms, phrases, status string
	err := row.Scan(&sub.ID, &sub.Text, &ts, &sub.Theme, &sub.Sentiment, &sub.AnalysisSource, &terms, &phrases, &sub.Confidence, &status)
	if err != nil {
		return store.Submission{}, err
	}
	if sub.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
		return store.Submission{}, fmt.Errorf("submission %s timestamp: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(terms), &sub.KeyTerms); err != nil {
		return store.Submission{}, fmt.Errorf("submission %s key terms: %w", sub.ID, err)
	}
	if err := json.Unmarshal([]byte(phrases), &sub.KeyPhrases); err != nil {
		return store.Submission{}, fmt.Errorf("submission %s key phrases: %w", sub.ID, err)
	}
	sub.Status = store.Status(status)
	return sub, nil
}

// Get returns a submission by id.
func (s *Store) Get(ctx context.Context, id string) (store.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Submission{}, fmt.Errorf("%w: submission %s", internalerr.ErrNotFound, id)
	}
	if err != nil {
		return store.Submission{}, fmt.Errorf("get submission %s: %w", id, err)
	}
	return sub, nil
}

// ListByStatus returns matching submissions, newest first. No statuses
// means all submissions.
func (s *Store) ListByStatus(ctx context.Context, statuses ...store.Status) ([]store.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, st := range statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := []store.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

// UpdateStatus moves a submission to a new status.
func (s *Store) UpdateStatus(ctx context.Context, id string, status store.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM submissions WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: submission %s", internalerr.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := store.CheckTransition(store.Status(current), status); err != nil {
		return err
	}
	if store.Status(current) == status {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE submissions SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.wake()
	return nil
}

// SetFeaturedOverride replaces the presenter override.
func (s *Store) SetFeaturedOverride(ctx context.Context, sub store.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode override: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO live_control (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value;
`, overrideKey, string(data))
	if err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	s.wake()
	return nil
}

// ClearFeaturedOverride removes the presenter override.
func (s *Store) ClearFeaturedOverride(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM live_control WHERE key = ?`, overrideKey); err != nil {
		return fmt.Errorf("clear override: %w", err)
	}
	s.wake()
	return nil
}

// GetFeaturedOverride returns the current override, or nil.
func (s *Store) GetFeaturedOverride(ctx context.Context) (*store.Submission, error) {
	raw, err := s.overrideJSON(ctx)
	if err != nil {
		return nil, err
	}
	return decodeOverride(raw)
}

func decodeOverride(raw string) (*store.Submission, error) {
	if raw == "" {
		return nil, nil
	}
	var sub store.Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, fmt.Errorf("decode override: %w", err)
	}
	return &sub, nil
}

func (s *Store) overrideJSON(ctx context.Context) (string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM live_control WHERE key = ?`, overrideKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get override: %w", err)
	}
	return raw, nil
}

// CorpusPersister returns a corpus.Persister that keeps the snapshot as a
// JSON blob under key.
func (s *Store) CorpusPersister(key string) corpus.Persister {
	return &snapshotPersister{db: s.db, key: key, now: s.now}
}

type snapshotPersister struct {
	db  *sql.DB
	key string
	now func() time.Time
}

func (p *snapshotPersister) Load(ctx context.Context) (*corpus.Snapshot, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM corpus_snapshot WHERE key = ?`, p.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load corpus snapshot %s: %w", p.key, err)
	}
	return corpus.DecodeSnapshot([]byte(data))
}

func (p *snapshotPersister) Save(ctx context.Context, snap corpus.Snapshot) error {
	data, err := corpus.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO corpus_snapshot (key, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	data=excluded.data,
	updated_at=excluded.updated_at;
`, p.key, string(data), p.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save corpus snapshot %s: %w", p.key, err)
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
