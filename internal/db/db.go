// Package db provides the sqlite-backed implementation of the store
// interfaces used in persistent deployments.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/applywise/applywise/internal/paths"
)

const schema = `
CREATE TABLE IF NOT EXISTS pending_codes (
    code        TEXT PRIMARY KEY,
    profile_id  TEXT NOT NULL,
    expires_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token       TEXT PRIMARY KEY,
    profile_id  TEXT NOT NULL,
    access_code TEXT NOT NULL,
    issued_at   INTEGER NOT NULL,
    expires_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cover_letters (
    id          TEXT PRIMARY KEY,
    profile_id  TEXT NOT NULL,
    thread_id   TEXT NOT NULL,
    text        TEXT NOT NULL,
    header_date TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS job_descriptions (
    profile_id  TEXT NOT NULL,
    thread_id   TEXT NOT NULL,
    text        TEXT NOT NULL,
    excerpt     TEXT NOT NULL,
    stored_at   INTEGER NOT NULL,
    PRIMARY KEY (profile_id, thread_id)
);

CREATE TABLE IF NOT EXISTS uploads (
    id           TEXT PRIMARY KEY,
    profile_id   TEXT NOT NULL,
    name         TEXT NOT NULL,
    size         INTEGER NOT NULL,
    mime_type    TEXT NOT NULL,
    contents     TEXT NOT NULL,
    text         TEXT NOT NULL DEFAULT '',
    text_excerpt TEXT NOT NULL DEFAULT '',
    uploaded_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
    id          TEXT PRIMARY KEY,
    profile_id  TEXT NOT NULL,
    access_code TEXT NOT NULL,
    thread_id   TEXT NOT NULL,
    role        TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content     TEXT NOT NULL,
    metadata    TEXT NOT NULL DEFAULT '{}',
    feedback    TEXT NOT NULL DEFAULT '',
    comment     TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS thread_metadata (
    profile_id  TEXT NOT NULL,
    thread_id   TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    PRIMARY KEY (profile_id, thread_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cover_letters_thread ON cover_letters(profile_id, thread_id);
CREATE INDEX IF NOT EXISTS idx_uploads_profile ON uploads(profile_id);
CREATE INDEX IF NOT EXISTS idx_chat_messages_thread ON chat_messages(profile_id, thread_id, created_at);
CREATE INDEX IF NOT EXISTS idx_sessions_profile ON sessions(profile_id);
`

// DefaultPath returns the sqlite database path inside the applywise data
// directory, creating the directory when absent.
func DefaultPath() (string, error) {
	dir, err := paths.DataDir()
	if err != nil {
		return "", fmt.Errorf("getting data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(dir, "applywise.db"), nil
}

func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}
	return db, nil
}
