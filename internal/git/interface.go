package git

import (
	"context"

	"cveorigin/internal/model"
)

// Workspace is read-only access to one repository working copy.
type Workspace interface {
	// Commit looks up a revision. A revision absent from the repository wraps errors.ErrNotFound.
	Commit(ctx context.Context, rev string) (model.CommitAttrs, error)
	// Diff returns per-file added/deleted lines of rev against base.
	Diff(ctx context.Context, base, rev string) ([]model.RawFileDiff, error)
	// LineCount returns the number of lines of path at rev. A missing file wraps errors.ErrNotFound.
	LineCount(ctx context.Context, rev, path string) (int, error)
	// Blame returns raw `git blame --line-porcelain` output for lines [start, end] of path at rev.
	Blame(ctx context.Context, rev, path string, start, end int) ([]byte, error)
}
