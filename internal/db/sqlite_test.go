package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Resolutions(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.SaveResolution(ctx, ResolutionRecord{Repo: "acme/widget", Bucket: "missing"}))
	require.NoError(t, store.SaveResolution(ctx, ResolutionRecord{Repo: "acme/gadget", Bucket: "ambiguous", Tier: "semi", Candidates: `[{"vendor":"a"}]`}))
	// Re-running overwrites instead of duplicating.
	require.NoError(t, store.SaveResolution(ctx, ResolutionRecord{Repo: "acme/widget", Bucket: "resolved", Vendor: "acme", Product: "widget", Tier: "exact"}))

	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM resolutions`).Scan(&n))
	assert.Equal(t, 2, n)

	var candidates string
	require.NoError(t, store.db.QueryRow(`SELECT candidates FROM resolutions WHERE repo = ?`, "acme/gadget").Scan(&candidates))
	assert.Equal(t, `[{"vendor":"a"}]`, candidates)

	var bucket, product string
	var updated time.Time
	require.NoError(t, store.db.QueryRow(`SELECT bucket, product, updated_at FROM resolutions WHERE repo = ?`, "acme/widget").Scan(&bucket, &product, &updated))
	assert.Equal(t, "resolved", bucket)
	assert.Equal(t, "widget", product)
	assert.False(t, updated.IsZero())
}

func TestSQLiteStore_Origins(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	_, ok, err := store.GetOrigin(ctx, "acme/widget@abc")
	require.NoError(t, err)
	assert.False(t, ok)

	rec := OriginRecord{Key: "acme/widget@abc", CVEID: "CVE-2024-1", Repo: "acme/widget", Fix: "abc", Status: "not_found", Payload: `{}`}
	require.NoError(t, store.SaveOrigin(ctx, rec))
	rec.Status = "found"
	rec.Payload = `{"status":"found"}`
	require.NoError(t, store.SaveOrigin(ctx, rec))
	require.NoError(t, store.SaveOrigin(ctx, OriginRecord{Key: "acme/widget@000", Fix: "000", Status: "found", Payload: `{}`}))

	got, ok, err := store.GetOrigin(ctx, "acme/widget@abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "found", got.Status)
	assert.Equal(t, `{"status":"found"}`, got.Payload)
	assert.Equal(t, "CVE-2024-1", got.CVEID)

	var n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM origins`).Scan(&n))
	assert.Equal(t, 2, n, "saves are upserts by key")
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveOrigin(ctx, OriginRecord{Key: "k", Fix: "f", Status: "found", Payload: "{}"}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	_, ok, err := store.GetOrigin(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
