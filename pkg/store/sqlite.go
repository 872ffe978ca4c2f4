// SPDX-License-Identifier: Apache-2.0

// Package store persists TraceLens control-plane data in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const (
	agentTable    = "agents"
	dbConfigTable = "db_configs"
	secretTable   = "vault_secrets"
	usageTable    = "usage_records"

	defaultPageSize = 50
)

var errInvalidPageToken = errors.New("invalid page token")

// Open opens (and creates if needed) the SQLite database at path and
// ensures the schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Serialized access keeps the single-writer driver happy.
	db.SetMaxOpenConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			endpoint TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, agentTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_provider ON %s(provider);`, agentTable, agentTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			engine TEXT NOT NULL,
			dsn TEXT NOT NULL,
			is_current INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, dbConfigTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_current ON %s(is_current);`, dbConfigTable, dbConfigTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			provider TEXT NOT NULL,
			value TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`, secretTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			cost REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'ok',
			recorded_at INTEGER NOT NULL
		);`, usageTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_recorded ON %s(recorded_at);`, usageTable, usageTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_provider ON %s(provider);`, usageTable, usageTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// parsePageToken decodes an offset page token issued by a previous list call.
func parsePageToken(token string) (int, error) {
	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, errInvalidPageToken
	}
	return offset, nil
}

// nextPageToken returns the token for the page after offset, or "" when the
// listing is exhausted.
func nextPageToken(offset, pageSize, total int) string {
	next := offset + pageSize
	if next >= total {
		return ""
	}
	return strconv.Itoa(next)
}

func nowMilli() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
