package corpus

import (
	"context"
	"database/sql"
	"fmt"

	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/model"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DefaultQuery reads the vendor/product view maintained next to the NVD mirror.
const DefaultQuery = `SELECT cve_id, vendor, product, COALESCE(raw, '') FROM cve_vendor_product`

// SQLSource reads records from a SQL view with columns (cve_id, vendor, product, raw).
type SQLSource struct {
	DB     *sql.DB
	Query  string
	driver string
}

// OpenSQL connects to a Postgres ("postgres") or SQLite ("sqlite") corpus database.
func OpenSQL(driver, dsn string) (*SQLSource, error) {
	switch driver {
	case "postgres", "sqlite":
	case "postgresql":
		driver = "postgres"
	case "sqlite3":
		driver = "sqlite"
	default:
		return nil, cerrors.NewCorpusError(driver, fmt.Errorf("unsupported corpus driver: %s", driver))
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, cerrors.NewCorpusError(driver, fmt.Errorf("failed to open database: %w", err))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, cerrors.NewCorpusError(driver, fmt.Errorf("failed to ping database: %w", err))
	}
	return &SQLSource{DB: db, Query: DefaultQuery, driver: driver}, nil
}

func (s *SQLSource) Name() string {
	return "sql:" + s.driver
}

// Close closes the underlying connection.
func (s *SQLSource) Close() error {
	return s.DB.Close()
}

func (s *SQLSource) Records(ctx context.Context) ([]model.Record, error) {
	query := s.Query
	if query == "" {
		query = DefaultQuery
	}
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, cerrors.NewCorpusError(s.Name(), err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var id, vendor, product, raw sql.NullString
		if err := rows.Scan(&id, &vendor, &product, &raw); err != nil {
			return nil, cerrors.NewCorpusError(s.Name(), err)
		}
		out = append(out, model.Record{
			ID:      id.String,
			Vendor:  vendor.String,
			Product: product.String,
			URLs:    ExtractURLs(raw.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewCorpusError(s.Name(), err)
	}
	return out, nil
}
