package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB

	mu      sync.Mutex // guards entropy
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_items (
		content_type        TEXT NOT NULL,
		content_id          TEXT NOT NULL,
		display             TEXT NOT NULL DEFAULT '',
		reading             TEXT NOT NULL DEFAULT '',
		meaning             TEXT NOT NULL DEFAULT '',
		jlpt_level          INTEGER NOT NULL DEFAULT 0,
		base_difficulty     INTEGER NOT NULL DEFAULT 0,
		frequency_rank      INTEGER NOT NULL DEFAULT 0,
		curriculum_priority INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		PRIMARY KEY (content_type, content_id)
	);
	CREATE INDEX IF NOT EXISTS idx_catalog_jlpt ON catalog_items(jlpt_level);

	CREATE TABLE IF NOT EXISTS prerequisites (
		content_type TEXT NOT NULL,
		content_id   TEXT NOT NULL,
		prereq_id    TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		PRIMARY KEY (content_type, content_id, prereq_id),
		FOREIGN KEY (content_type, content_id)
			REFERENCES catalog_items(content_type, content_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_prereq_target ON prerequisites(prereq_id);

	CREATE TABLE IF NOT EXISTS review_items (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		content_type     TEXT NOT NULL,
		content_id       TEXT NOT NULL,
		version          INTEGER NOT NULL DEFAULT 1,
		supersedes       TEXT,
		ease_factor      REAL NOT NULL,
		interval_days    INTEGER NOT NULL DEFAULT 0,
		repetitions      INTEGER NOT NULL DEFAULT 0,
		last_quality     INTEGER NOT NULL DEFAULT -1,
		next_review_at   TEXT,
		last_reviewed_at TEXT,
		created_at       TEXT NOT NULL,
		UNIQUE (user_id, content_type, content_id, version)
	);
	CREATE INDEX IF NOT EXISTS idx_review_user_next ON review_items(user_id, next_review_at);

	CREATE TABLE IF NOT EXISTS performance_records (
		user_id              TEXT NOT NULL,
		content_type         TEXT NOT NULL,
		content_id           TEXT NOT NULL,
		attempts             INTEGER NOT NULL DEFAULT 0,
		correct_attempts     INTEGER NOT NULL DEFAULT 0,
		accuracy_rate        REAL NOT NULL DEFAULT 0,
		avg_response_time_ms REAL NOT NULL DEFAULT 0,
		difficulty_offset    REAL NOT NULL DEFAULT 0,
		updated_at           TEXT NOT NULL,
		PRIMARY KEY (user_id, content_type, content_id)
	);

	CREATE TABLE IF NOT EXISTS user_states (
		user_id         TEXT PRIMARY KEY,
		accuracy_rate   REAL NOT NULL DEFAULT 0,
		weakness        TEXT,
		prefer_novelty  INTEGER NOT NULL DEFAULT 0,
		current_streak  INTEGER NOT NULL DEFAULT 0,
		last_study_date TEXT,
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS review_log (
		id               TEXT PRIMARY KEY,
		session_id       TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		content_type     TEXT NOT NULL,
		content_id       TEXT NOT NULL,
		quality          INTEGER NOT NULL,
		correct          INTEGER NOT NULL,
		response_time_ms REAL NOT NULL,
		interval_days    INTEGER NOT NULL,
		ease_factor      REAL NOT NULL,
		difficulty_delta REAL NOT NULL DEFAULT 0,
		predicted_recall REAL NOT NULL DEFAULT 0,
		answered_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_log_user_time ON review_log(user_id, answered_at DESC);
	CREATE INDEX IF NOT EXISTS idx_log_item ON review_log(user_id, content_type, content_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Timestamps are stored as RFC 3339 text in UTC so they sort lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
