package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStore(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func newPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore: &sqlStore{db: db, bind: dollarPlaceholders}}
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS resolutions (
			repo TEXT PRIMARY KEY,
			bucket TEXT NOT NULL,
			vendor TEXT NOT NULL DEFAULT '',
			product TEXT NOT NULL DEFAULT '',
			tier TEXT NOT NULL DEFAULT '',
			candidates TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS origins (
			key TEXT PRIMARY KEY,
			cve_id TEXT NOT NULL DEFAULT '',
			repo TEXT NOT NULL DEFAULT '',
			fix TEXT NOT NULL,
			status TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}

	// Performance indexes
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_origins_fix ON origins(fix)`); err != nil {
		slog.Debug("index creation failed", "error", err)
	}
	return nil
}
