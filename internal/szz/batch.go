package szz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/git"
	"cveorigin/internal/model"
	"cveorigin/internal/runner"
	"cveorigin/internal/telemetry"
)

// openWorkspace allows mocking
var openWorkspace = func(dir string) (git.Workspace, error) {
	c, err := git.Open(dir)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// BatchOptions tune an origin batch.
type BatchOptions struct {
	Workers int
	// ReposDir holds working copies at <ReposDir>/<owner>/<name> or <ReposDir>/<name>.
	ReposDir string
	// RepoPath, when set, is used for every request instead of ReposDir.
	RepoPath   string
	Timeout    time.Duration
	Policy     MergePolicy
	Resume     bool
	Checkpoint Checkpoint
	Logger     *slog.Logger
	Progress   func(done, total int)
}

// ReadFixList decodes a JSON array of {"cve_id", "repo", "commit"} objects.
// Entries with a malformed repository or no commit are returned as errors and
// left out; a document that is not a JSON array is a FormatError.
func ReadFixList(r io.Reader) ([]Request, []error, error) {
	var raw []Request
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, cerrors.NewFormatError("fix list", err.Error())
	}

	var reqs []Request
	var skipped []error
	for i, req := range raw {
		req.Commit = strings.TrimSpace(req.Commit)
		if req.Commit == "" {
			skipped = append(skipped, fmt.Errorf("entry %d: %w", i, cerrors.NewFormatError(req.Repo, "missing commit")))
			continue
		}
		repo, err := model.ParseRepoID(req.Repo)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		req.Repo = repo.Slug()
		reqs = append(reqs, req)
	}
	return reqs, skipped, nil
}

// RunBatch runs the locator over every request on a bounded worker pool.
// Requests are deduplicated by key. With Resume, requests already present in
// the checkpoint are not traced again and their stored result is reused.
// Results are sorted by fix hash. On cancellation the finished results are
// returned together with ctx.Err().
func RunBatch(ctx context.Context, reqs []Request, opts BatchOptions) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	unique := dedupeRequests(reqs)

	results := make([]Result, len(unique))
	finished := make([]bool, len(unique))
	var done int64
	report := func() {
		n := atomic.AddInt64(&done, 1)
		if opts.Progress != nil {
			opts.Progress(int(n), len(unique))
		}
	}

	pool := runner.NewWorkerPool(opts.Workers, logger)
	pool.SetDoneFunc(func(_ int, err error) {
		if err == nil {
			report()
		}
	})
	pool.Start()
	for i, req := range unique {
		if opts.Resume && opts.Checkpoint != nil {
			prev, ok, err := opts.Checkpoint.Load(ctx, req.Key())
			if err != nil {
				logger.Warn("failed to read checkpoint", "key", req.Key(), "error", err)
			}
			if ok {
				results[i] = prev
				finished[i] = true
				report()
				continue
			}
		}

		pool.Submit(func(workerID int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := traceOne(ctx, req, opts, logger)
			if err != nil {
				return err
			}
			results[i] = res
			finished[i] = true
			telemetry.TrackOrigin(string(res.Status))

			if opts.Checkpoint != nil {
				if err := opts.Checkpoint.Save(ctx, req.Key(), res); err != nil {
					logger.Warn("failed to checkpoint origin", "key", req.Key(), "error", err)
				}
			}
			return nil
		})
	}
	pool.Stop()

	out := make([]Result, 0, len(unique))
	for i, ok := range finished {
		if ok {
			out = append(out, results[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Fix != out[j].Fix {
			return out[i].Fix < out[j].Fix
		}
		return out[i].Repo < out[j].Repo
	})
	if err := ctx.Err(); err != nil {
		logger.Warn("origin search interrupted", "finished", len(out), "total", len(unique))
		return out, err
	}
	return out, nil
}

func traceOne(ctx context.Context, req Request, opts BatchOptions, logger *slog.Logger) (Result, error) {
	dir := opts.RepoPath
	if dir == "" {
		repo, err := model.ParseRepoID(req.Repo)
		if err == nil {
			dir, err = git.Locate(opts.ReposDir, repo)
		}
		if err != nil {
			return unreachable(req, err), nil
		}
	}

	ws, err := openWorkspace(dir)
	if err != nil {
		return unreachable(req, err), nil
	}
	locator := NewLocator(ws, NewTracer(ws, opts.Timeout, logger), opts.Policy, logger)
	return locator.Trace(ctx, req)
}

// unreachable is the result for a request whose working copy cannot be opened.
func unreachable(req Request, err error) Result {
	telemetry.TrackError(string(cerrors.KindOf(err)))
	return Result{
		CVEID:  req.CVEID,
		Repo:   req.Repo,
		Fix:    req.Commit,
		State:  OriginNotFound,
		Status: StatusNotFound,
		Reason: "working copy: " + err.Error(),
		Files:  []FileOutcome{},
	}
}

func dedupeRequests(reqs []Request) []Request {
	seen := make(map[string]bool, len(reqs))
	out := make([]Request, 0, len(reqs))
	for _, r := range reqs {
		key := strings.ToLower(r.Key())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// Summary aggregates a batch of origin results.
type Summary struct {
	Total               int     `json:"total"`
	Found               int     `json:"found"`
	NotFound            int     `json:"not_found"`
	SameAuthor          int     `json:"same_author"`
	SameAuthorShare     float64 `json:"same_author_share"`
	PrevCommit          int     `json:"prev_commit"`
	MeanDaysBeforePatch float64 `json:"mean_days_before_patch"`
	MeanSupport         float64 `json:"mean_support"`
}

// Summarize computes found/not-found counts and, over found origins with a
// loaded vulnerability commit, the author and timing statistics.
func Summarize(results []Result) Summary {
	var s Summary
	var days float64
	var support, withVuln int
	for _, r := range results {
		s.Total++
		if r.Status != StatusFound || r.Origin == nil {
			s.NotFound++
			continue
		}
		s.Found++
		support += r.Origin.Support
		if r.Vuln == nil {
			continue
		}
		withVuln++
		days += r.Vuln.DaysBeforePatch
		if r.Vuln.SameAuthorAsPatch {
			s.SameAuthor++
		}
		if r.Vuln.IsPrevCommitToPatch {
			s.PrevCommit++
		}
	}
	if s.Found > 0 {
		s.MeanSupport = float64(support) / float64(s.Found)
	}
	if withVuln > 0 {
		s.SameAuthorShare = float64(s.SameAuthor) / float64(withVuln)
		s.MeanDaysBeforePatch = days / float64(withVuln)
	}
	return s
}
