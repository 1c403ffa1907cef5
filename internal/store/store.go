// Package store implements the per-project Collection Store.
//
// Records live in SQLite (records.db), which is the system of record.
// Similarity search goes through a persistent chromem-go index (vectors/)
// kept beside it, one chromem collection per logical collection. A write
// commits to SQLite only after the index accepted it, and on startup any
// index whose size disagrees with SQLite is rebuilt from the records.
//
// Storage for a namespace is created lazily by the first operation. If it
// cannot be opened the call fails with apperr.ErrStorageUnavailable and the
// next call tries again.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/HendryAvila/agent-memory/internal/apperr"
	"github.com/HendryAvila/agent-memory/internal/logging"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/philippgille/chromem-go"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is replaced in tests to control timestamps.
var timeNow = time.Now

const timeLayout = time.RFC3339Nano

// ─── Types ───────────────────────────────────────────────────────────────────

// Collection names one logical record domain inside a namespace.
type Collection string

const (
	Memories      Collection = "memories"
	Tasks         Collection = "tasks"
	GraphNodes    Collection = "graph_nodes"
	GraphEdges    Collection = "graph_edges"
	Documentation Collection = "documentation"
	Conversations Collection = "conversations"
)

// Collections lists every collection in a fixed order.
var Collections = []Collection{Memories, Tasks, GraphNodes, GraphEdges, Documentation, Conversations}

func (c Collection) valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// Record is one stored document with flat string metadata.
type Record struct {
	Collection Collection        `json:"collection"`
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	Seq        int64             `json:"-"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Hit is a search result. Score is the cosine similarity reported by the
// vector index; higher is closer.
type Hit struct {
	Record
	Score float64 `json:"score"`
}

// Filter selects records whose metadata equals every given key/value pair.
type Filter map[string]string

// Stats summarizes the namespace.
type Stats struct {
	Dir         string             `json:"dir"`
	Embedder    string             `json:"embedder"`
	Collections map[Collection]int `json:"collections"`
	Total       int                `json:"total"`
	SizeBytes   int64              `json:"size_bytes"`
	Size        string             `json:"size"`
}

// Config holds what a Store needs to open its namespace.
type Config struct {
	// Dir is the namespace directory, typically <root>/<project-id>.
	Dir string
	// Embed turns text into vectors. Defaults to a hash embedding.
	Embed chromem.EmbeddingFunc
	// EmbedderName identifies Embed; a change forces a re-index.
	EmbedderName string
	Logger       *log.Logger
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the Collection Store for one project namespace.
type Store struct {
	cfg Config
	log *log.Logger

	mu   sync.Mutex
	db   *sql.DB
	vec  *chromem.DB
	cols map[Collection]*chromem.Collection
}

// Open returns a Store for cfg.Dir. It performs no I/O.
func Open(cfg Config) *Store {
	if cfg.Embed == nil {
		cfg.Embed = NewHashEmbedding(DefaultHashDims)
		cfg.EmbedderName = HashEmbedderName
	}
	if cfg.EmbedderName == "" {
		cfg.EmbedderName = "custom"
	}
	return &Store{cfg: cfg, log: logging.OrDiscard(cfg.Logger)}
}

// Dir returns the namespace directory.
func (s *Store) Dir() string { return s.cfg.Dir }

// Close releases the database handle. The store may be reopened lazily by a
// later call.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db, s.vec, s.cols = nil, nil, nil
	return err
}

// ensure opens storage on first use.
func (s *Store) ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	if err := s.open(ctx); err != nil {
		s.log.Error("storage unavailable", "dir", s.cfg.Dir, "err", err)
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) open(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.Dir, 0o700); err != nil {
		return fmt.Errorf("create namespace dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(s.cfg.Dir, "records.db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("migration: %w", err)
	}

	vec, err := chromem.NewPersistentDB(filepath.Join(s.cfg.Dir, "vectors"), false)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("open vector index: %w", err)
	}

	s.db, s.vec = db, vec
	if err := s.reconcile(ctx); err != nil {
		_ = db.Close()
		s.db, s.vec, s.cols = nil, nil, nil
		return fmt.Errorf("reconcile index: %w", err)
	}
	s.log.Debug("storage opened", "dir", s.cfg.Dir, "embedder", s.cfg.EmbedderName)
	return nil
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (collection, id)
		);

		CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection, seq);

		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// reconcile attaches one chromem collection per logical collection and
// rebuilds any index that does not match SQLite.
func (s *Store) reconcile(ctx context.Context) error {
	var previous string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'embedder'`).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	embedderChanged := previous != "" && previous != s.cfg.EmbedderName

	s.cols = make(map[Collection]*chromem.Collection, len(Collections))
	for _, c := range Collections {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, string(c)).Scan(&n); err != nil {
			return err
		}

		col, err := s.vec.GetOrCreateCollection(string(c), nil, s.cfg.Embed)
		if err != nil {
			return err
		}
		if embedderChanged || col.Count() != n {
			col, err = s.reindex(ctx, c, n)
			if err != nil {
				return fmt.Errorf("reindex %s: %w", c, err)
			}
		}
		s.cols[c] = col
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('embedder', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, s.cfg.EmbedderName)
	return err
}

func (s *Store) reindex(ctx context.Context, c Collection, n int) (*chromem.Collection, error) {
	s.log.Warn("rebuilding vector index", "collection", c, "records", n)
	if err := s.vec.DeleteCollection(string(c)); err != nil {
		return nil, err
	}
	col, err := s.vec.GetOrCreateCollection(string(c), nil, s.cfg.Embed)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return col, nil
	}

	records, err := s.list(ctx, c, nil, 0)
	if err != nil {
		return nil, err
	}
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, chromem.Document{ID: r.ID, Content: r.Content})
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, err
	}
	return col, nil
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Insert stores a new record. It fails with ErrAlreadyExists if id is taken.
func (s *Store) Insert(ctx context.Context, c Collection, id, content string, meta map[string]string) (*Record, error) {
	rec, _, err := s.write(ctx, c, id, content, meta, false)
	return rec, err
}

// Put creates or overwrites a record. Overwrites keep the original
// insertion order and created_at. created reports whether id was new.
func (s *Store) Put(ctx context.Context, c Collection, id, content string, meta map[string]string) (rec *Record, created bool, err error) {
	return s.write(ctx, c, id, content, meta, true)
}

func (s *Store) write(ctx context.Context, c Collection, id, content string, meta map[string]string, upsert bool) (*Record, bool, error) {
	if err := validateRecord(c, id, content, meta); err != nil {
		return nil, false, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, false, err
	}
	metaJSON, err := json.Marshal(nonNil(meta))
	if err != nil {
		return nil, false, apperr.Invalid("metadata: %v", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := getRecord(ctx, tx, c, id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}
	created := existing == nil
	if !created && !upsert {
		return nil, false, apperr.Exists(string(c), id)
	}

	now := timeNow().UTC().Format(timeLayout)
	if created {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO records (collection, id, content, metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			string(c), id, content, string(metaJSON), now, now)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE records SET content = ?, metadata = ?, updated_at = ?
			 WHERE collection = ? AND id = ?`,
			content, string(metaJSON), now, string(c), id)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, apperr.Exists(string(c), id)
		}
		return nil, false, unavailable("write", err)
	}

	col := s.cols[c]
	if err := col.AddDocument(ctx, chromem.Document{ID: id, Content: content}); err != nil {
		return nil, false, unavailable("index", err)
	}
	if err := tx.Commit(); err != nil {
		if created {
			_ = col.Delete(ctx, nil, nil, id)
		}
		return nil, false, unavailable("commit", err)
	}

	rec, err := s.Get(ctx, c, id)
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// Delete removes one record. It fails with ErrNotFound if id is absent.
func (s *Store) Delete(ctx context.Context, c Collection, id string) error {
	if !c.valid() {
		return apperr.Invalid("unknown collection %q", c)
	}
	if err := s.ensure(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, string(c), id)
	if err != nil {
		return unavailable("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound(string(c), id)
	}
	if err := s.cols[c].Delete(ctx, nil, nil, id); err != nil {
		return unavailable("index delete", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// DeleteWhere removes every record matching filter and returns how many
// were removed. An empty filter is rejected.
func (s *Store) DeleteWhere(ctx context.Context, c Collection, filter Filter) (int, error) {
	if len(filter) == 0 {
		return 0, apperr.Invalid("delete needs a non-empty filter")
	}
	records, err := s.List(ctx, c, filter, 0)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]string, len(records))
	args := make([]any, 0, len(records)+1)
	args = append(args, string(c))
	for i, r := range records {
		ids[i] = r.ID
		args = append(args, r.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `DELETE FROM records WHERE collection = ? AND id IN (?` + strings.Repeat(", ?", len(ids)-1) + `)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, unavailable("delete", err)
	}
	if err := s.cols[c].Delete(ctx, nil, nil, ids...); err != nil {
		return 0, unavailable("index delete", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit", err)
	}
	return len(ids), nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Get returns one record or ErrNotFound.
func (s *Store) Get(ctx context.Context, c Collection, id string) (*Record, error) {
	if !c.valid() {
		return nil, apperr.Invalid("unknown collection %q", c)
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return getRecord(ctx, s.db, c, id)
}

// List returns records matching filter in insertion order. A limit of zero
// or less returns everything.
func (s *Store) List(ctx context.Context, c Collection, filter Filter, limit int) ([]Record, error) {
	if !c.valid() {
		return nil, apperr.Invalid("unknown collection %q", c)
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	return s.list(ctx, c, filter, limit)
}

func (s *Store) list(ctx context.Context, c Collection, filter Filter, limit int) ([]Record, error) {
	where, args := filterClause(c, filter)
	query := `SELECT seq, collection, id, content, metadata, created_at, updated_at
		FROM records WHERE ` + where + ` ORDER BY seq ASC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	return out, nil
}

// Count returns the number of records matching filter.
func (s *Store) Count(ctx context.Context, c Collection, filter Filter) (int, error) {
	if !c.valid() {
		return 0, apperr.Invalid("unknown collection %q", c)
	}
	if err := validateFilter(filter); err != nil {
		return 0, err
	}
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}
	where, args := filterClause(c, filter)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// Search ranks records matching filter by similarity to query and returns at
// most topK of them. Equal scores are ordered by insertion.
func (s *Store) Search(ctx context.Context, c Collection, query string, topK int, filter Filter) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Invalid("query is required")
	}
	if topK <= 0 {
		return nil, apperr.Invalid("top_k must be positive, got %d", topK)
	}
	records, err := s.List(ctx, c, filter, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Hit{}, nil
	}

	col := s.cols[c]
	n := col.Count()
	if n == 0 {
		return []Hit{}, nil
	}
	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, unavailable("query", err)
	}
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.ID] = float64(r.Similarity)
	}

	hits := make([]Hit, 0, len(records))
	for _, r := range records {
		score, ok := scores[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Record: r, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Stats reports record counts per collection and the on-disk size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	st := &Stats{
		Dir:         s.cfg.Dir,
		Embedder:    s.cfg.EmbedderName,
		Collections: make(map[Collection]int, len(Collections)),
	}
	for _, c := range Collections {
		st.Collections[c] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT collection, COUNT(*) FROM records GROUP BY collection`)
	if err != nil {
		return nil, unavailable("stats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, unavailable("stats", err)
		}
		st.Collections[Collection(name)] = n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("stats", err)
	}

	st.SizeBytes = dirSize(s.cfg.Dir)
	st.Size = humanize.Bytes(uint64(st.SizeBytes))
	return st, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getRecord(ctx context.Context, q rowQueryer, c Collection, id string) (*Record, error) {
	row := q.QueryRowContext(ctx,
		`SELECT seq, collection, id, content, metadata, created_at, updated_at
		 FROM records WHERE collection = ? AND id = ?`, string(c), id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(string(c), id)
	}
	return r, err
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r                Record
		coll, meta       string
		created, updated string
	)
	if err := row.Scan(&r.Seq, &coll, &r.ID, &r.Content, &meta, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable("scan", err)
	}
	r.Collection = Collection(coll)
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return nil, fmt.Errorf("record %s/%s: decode metadata: %w", coll, r.ID, err)
	}
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	r.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return &r, nil
}

func filterClause(c Collection, filter Filter) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{string(c)}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		clauses = append(clauses, "json_extract(metadata, ?) = ?")
		args = append(args, "$."+k, filter[k])
	}
	return strings.Join(clauses, " AND "), args
}

var metaKeyRe = regexp.MustCompile(`^[a-z0-9_]+$`)

func validateRecord(c Collection, id, content string, meta map[string]string) error {
	if !c.valid() {
		return apperr.Invalid("unknown collection %q", c)
	}
	if strings.TrimSpace(id) == "" {
		return apperr.Invalid("id is required")
	}
	if strings.TrimSpace(content) == "" {
		return apperr.Invalid("content is required")
	}
	if !utf8.ValidString(id) || !utf8.ValidString(content) {
		return apperr.Invalid("id and content must be valid UTF-8")
	}
	return validateMetadata(meta)
}

func validateMetadata(meta map[string]string) error {
	for k, v := range meta {
		if !metaKeyRe.MatchString(k) {
			return apperr.Invalid("metadata key %q must match [a-z0-9_]+", k)
		}
		if !utf8.ValidString(v) {
			return apperr.Invalid("metadata value for %q is not valid UTF-8", k)
		}
	}
	return nil
}

func validateFilter(filter Filter) error {
	return validateMetadata(filter)
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperr.ErrStorageUnavailable, op, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
