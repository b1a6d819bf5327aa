package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// Workers write concurrently; a single connection serializes them.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{sqlStore: &sqlStore{db: db, bind: questionMarks}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS resolutions (
		repo TEXT PRIMARY KEY,
		bucket TEXT NOT NULL,
		vendor TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL DEFAULT '',
		tier TEXT NOT NULL DEFAULT '',
		candidates TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS origins (
		key TEXT PRIMARY KEY,
		cve_id TEXT NOT NULL DEFAULT '',
		repo TEXT NOT NULL DEFAULT '',
		fix TEXT NOT NULL,
		status TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_origins_fix ON origins(fix);
	`
	_, err := s.db.Exec(query)
	return err
}
