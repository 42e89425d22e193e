package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize access through one connection. SQLite handles one writer
	// at a time anyway, and this keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema if it doesn't exist yet.
func (db *DB) RunMigrations() error {
	migration := `
-- Accounts
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Bearer tokens, stored hashed
CREATE TABLE IF NOT EXISTS tokens (
    token_hash TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_token_user ON tokens(user_id);

-- Content-addressable audio storage
CREATE TABLE IF NOT EXISTS blobs (
    ref TEXT PRIMARY KEY,
    media_type TEXT NOT NULL,
    data BLOB NOT NULL,
    size INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Meetings table
CREATE TABLE IF NOT EXISTS meetings (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('UPLOADED', 'TRANSCRIBING', 'TRANSCRIBED', 'SUMMARIZING', 'READY', 'FAILED')),
    audio_ref TEXT NOT NULL,
    last_error TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    FOREIGN KEY (owner_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_owner_meetings ON meetings(owner_id);
CREATE INDEX IF NOT EXISTS idx_meeting_status ON meetings(status);

-- Transcripts (1:1 with meetings)
CREATE TABLE IF NOT EXISTS transcripts (
    meeting_id TEXT PRIMARY KEY,
    text TEXT NOT NULL,
    edited_by_user INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
);

-- Summaries (1:1 with meetings)
CREATE TABLE IF NOT EXISTS summaries (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
);

-- Job queue. meeting_id is a weak reference: deleting a meeting
-- abandons its jobs rather than cascading.
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL CHECK(kind IN ('TRANSCRIBE', 'SUMMARIZE')),
    meeting_id TEXT NOT NULL,
    state TEXT NOT NULL CHECK(state IN ('PENDING', 'RUNNING', 'SUCCEEDED', 'FAILED', 'ABANDONED')),
    attempt INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    not_before TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_single_flight
    ON jobs(meeting_id, kind) WHERE state IN ('PENDING', 'RUNNING');
CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs(state, not_before);

-- Inverted index postings, derived from summaries
CREATE TABLE IF NOT EXISTS postings (
    token TEXT NOT NULL,
    summary_id TEXT NOT NULL,
    field TEXT NOT NULL CHECK(field IN ('title', 'tag', 'content')),
    tf INTEGER NOT NULL,
    PRIMARY KEY (token, summary_id, field),
    FOREIGN KEY (summary_id) REFERENCES summaries(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_posting_summary ON postings(summary_id);

-- Activity log
CREATE TABLE IF NOT EXISTS activity_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    meeting_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_meeting_activity ON activity_log(meeting_id);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
