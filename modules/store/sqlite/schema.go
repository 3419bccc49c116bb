package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS segments (
		fingerprint TEXT PRIMARY KEY,
		query       TEXT NOT NULL,
		video_id    TEXT NOT NULL,
		start_time  REAL NOT NULL,
		end_time    REAL NOT NULL,
		caption     TEXT NOT NULL DEFAULT '',
		captions    TEXT NOT NULL DEFAULT '[]',
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		fingerprint      TEXT PRIMARY KEY,
		id               TEXT NOT NULL UNIQUE,
		query            TEXT NOT NULL,
		canonical        TEXT NOT NULL,
		kind             TEXT NOT NULL,
		status           TEXT NOT NULL,
		current_video_id TEXT NOT NULL DEFAULT '',
		result           TEXT,
		error            TEXT NOT NULL DEFAULT '',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status, created_at)`,

	`CREATE TABLE IF NOT EXISTS words (
		word       TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS word_examples (
		word       TEXT NOT NULL REFERENCES words(word),
		video_id   TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time   REAL NOT NULL,
		caption    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (word, video_id, start_time, end_time)
	)`,

	`CREATE TABLE IF NOT EXISTS analyses (
		fingerprint      TEXT PRIMARY KEY,
		sentence         TEXT NOT NULL,
		target_word      TEXT NOT NULL,
		target_language  TEXT NOT NULL,
		native_language  TEXT NOT NULL,
		context_before   TEXT NOT NULL DEFAULT '',
		context_after    TEXT NOT NULL DEFAULT '',
		result           TEXT NOT NULL,
		chunks           TEXT NOT NULL DEFAULT '[]',
		access_count     INTEGER NOT NULL DEFAULT 1,
		created_at       TEXT NOT NULL,
		last_accessed_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS quota_counters (
		scope        TEXT NOT NULL,
		identity     TEXT NOT NULL,
		count        INTEGER NOT NULL DEFAULT 0,
		window_start TEXT NOT NULL,
		PRIMARY KEY (scope, identity)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_quota_window ON quota_counters(window_start)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	// Ensure schema_version table exists first.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
