package resolve

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"cveorigin/internal/corpus"
	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/model"
	"cveorigin/internal/runner"
	"cveorigin/internal/telemetry"
)

// Options tune a resolution batch.
type Options struct {
	Workers  int
	Logger   *slog.Logger
	Progress func(done, total int)
}

// Run resolves every repository against idx on a bounded worker pool. Duplicate
// repositories (case-insensitive) are resolved once. Results are sorted by
// repository key. On cancellation the finished results are returned with ctx.Err().
func Run(ctx context.Context, repos []model.RepoID, idx *corpus.Index, opts Options) ([]model.Resolution, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	unique := Dedupe(repos)
	resolver := NewResolver(idx)

	results := make([]model.Resolution, len(unique))
	finished := make([]bool, len(unique))
	var done int64

	pool := runner.NewWorkerPool(opts.Workers, logger)
	pool.SetDoneFunc(func(_ int, err error) {
		if err != nil {
			return
		}
		n := atomic.AddInt64(&done, 1)
		if opts.Progress != nil {
			opts.Progress(int(n), len(unique))
		}
	})
	pool.Start()
	for i, repo := range unique {
		pool.Submit(func(workerID int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := Aggregate(repo, resolver.Candidates(repo))
			results[i] = res
			finished[i] = true
			telemetry.TrackResolution(string(res.Bucket))
			logger.Debug("repository resolved", "repo", repo.Slug(), "bucket", res.Bucket, "tier", res.Tier.String(), "worker", workerID)
			return nil
		})
	}
	pool.Stop()

	out := make([]model.Resolution, 0, len(unique))
	for i, ok := range finished {
		if ok {
			out = append(out, results[i])
		}
	}
	if err := ctx.Err(); err != nil {
		logger.Warn("resolution interrupted", "finished", len(out), "total", len(unique))
		return out, err
	}
	return out, nil
}

// Dedupe drops repeated repositories and sorts the rest by key.
func Dedupe(repos []model.RepoID) []model.RepoID {
	seen := make(map[string]bool, len(repos))
	out := make([]model.RepoID, 0, len(repos))
	for _, r := range repos {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ReadRepoList parses one repository identifier per line. Blank lines and
// "#" comments are ignored. Malformed lines are returned as FormatErrors and
// do not stop the scan; only a read failure is returned as the final error.
func ReadRepoList(r io.Reader) ([]model.RepoID, []error, error) {
	var repos []model.RepoID
	var skipped []error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		repo, err := model.ParseRepoID(line)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("line %d: %w", lineNo, err))
			telemetry.TrackError(string(cerrors.KindOf(err)))
			continue
		}
		repos = append(repos, repo)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read repository list: %w", err)
	}
	return repos, skipped, nil
}

// Tally counts resolutions per bucket.
type Tally struct {
	Resolved  int
	Ambiguous int
	Missing   int
}

// Count builds a Tally from results.
func Count(results []model.Resolution) Tally {
	var t Tally
	for _, r := range results {
		switch r.Bucket {
		case model.BucketResolved:
			t.Resolved++
		case model.BucketAmbiguous:
			t.Ambiguous++
		case model.BucketMissing:
			t.Missing++
		}
	}
	return t
}

// Total returns the number of classified repositories.
func (t Tally) Total() int {
	return t.Resolved + t.Ambiguous + t.Missing
}
