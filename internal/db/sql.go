package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqlStore holds the queries shared by the SQLite and Postgres backends.
// Queries are written with "?" placeholders and rebound per driver.
type sqlStore struct {
	db   *sql.DB
	bind func(query string) string
}

func questionMarks(query string) string {
	return query
}

// dollarPlaceholders rewrites "?" placeholders to Postgres "$n".
func dollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// SaveResolution upserts the resolution of rec.Repo.
func (s *sqlStore) SaveResolution(ctx context.Context, rec ResolutionRecord) error {
	query := s.bind(`INSERT INTO resolutions (repo, bucket, vendor, product, tier, candidates, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo) DO UPDATE SET
			bucket = excluded.bucket,
			vendor = excluded.vendor,
			product = excluded.product,
			tier = excluded.tier,
			candidates = excluded.candidates,
			updated_at = excluded.updated_at`)
	_, err := s.db.ExecContext(ctx, query, rec.Repo, rec.Bucket, rec.Vendor, rec.Product, rec.Tier, rec.Candidates, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save resolution of %s: %w", rec.Repo, err)
	}
	return nil
}


// SaveOrigin upserts the origin result stored under rec.Key.
func (s *sqlStore) SaveOrigin(ctx context.Context, rec OriginRecord) error {
	query := s.bind(`INSERT INTO origins (key, cve_id, repo, fix, status, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			cve_id = excluded.cve_id,
			repo = excluded.repo,
			fix = excluded.fix,
			status = excluded.status,
			payload = excluded.payload,
			updated_at = excluded.updated_at`)
	_, err := s.db.ExecContext(ctx, query, rec.Key, rec.CVEID, rec.Repo, rec.Fix, rec.Status, rec.Payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save origin %s: %w", rec.Key, err)
	}
	return nil
}

// GetOrigin returns the origin stored under key; ok is false when there is none.
func (s *sqlStore) GetOrigin(ctx context.Context, key string) (OriginRecord, bool, error) {
	query := s.bind(`SELECT key, cve_id, repo, fix, status, payload, updated_at FROM origins WHERE key = ?`)
	var rec OriginRecord
	err := s.db.QueryRowContext(ctx, query, key).Scan(&rec.Key, &rec.CVEID, &rec.Repo, &rec.Fix, &rec.Status, &rec.Payload, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return OriginRecord{}, false, nil
	}
	if err != nil {
		return OriginRecord{}, false, fmt.Errorf("failed to get origin %s: %w", key, err)
	}
	return rec, true, nil
}
