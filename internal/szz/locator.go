package szz

import (
	"context"
	"errors"
	"log/slog"

	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/git"
	"cveorigin/internal/model"
	"cveorigin/internal/telemetry"
)

// Status is the outcome of an origin search.
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
)

// FileOutcome records what happened to one changed file.
type FileOutcome struct {
	Path    string    `json:"path"`
	OldPath string    `json:"old_path,omitempty"`
	Base    string    `json:"base"`
	Added   string    `json:"added,omitempty"`
	Deleted string    `json:"deleted,omitempty"`
	State   FileState `json:"state"`
	Lines   int       `json:"lines"`
	Reason  string    `json:"reason,omitempty"`
}

// Result is the origin search outcome for one fix commit.
type Result struct {
	CVEID  string                 `json:"cve_id,omitempty"`
	Repo   string                 `json:"repo,omitempty"`
	Fix    string                 `json:"fix"`
	Bases  []string               `json:"bases,omitempty"`
	State  FixState               `json:"state"`
	Status Status                 `json:"status"`
	Origin *model.OriginCandidate `json:"origin,omitempty"`
	Reason string                 `json:"reason,omitempty"`
	Files  []FileOutcome          `json:"files"`
	Patch  *model.PatchCommit     `json:"patch,omitempty"`
	Vuln   *model.VulnCommit      `json:"vuln,omitempty"`
}

// Request names a fix commit to investigate.
type Request struct {
	CVEID  string `json:"cve_id"`
	Repo   string `json:"repo"`
	Commit string `json:"commit"`
}

// Key identifies the request for deduplication and resume.
func (r Request) Key() string {
	return r.Repo + "@" + r.Commit
}

// Locator runs the per-fix pipeline: diff regions, blame, provenance.
type Locator struct {
	WS     git.Workspace
	Tracer *Tracer
	Policy MergePolicy
	Logger *slog.Logger
}

// NewLocator creates a locator over ws.
func NewLocator(ws git.Workspace, tracer *Tracer, policy MergePolicy, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == "" {
		policy = MergeFirst
	}
	return &Locator{WS: ws, Tracer: tracer, Policy: policy, Logger: logger}
}

// run tracks a Result through the fix state machine.
type run struct {
	res    Result
	logger *slog.Logger
}

func (r *run) advance(to FixState) {
	next, err := r.res.State.Next(to)
	if err != nil {
		// Transitions are driven by Trace alone; a rejected one is a bug.
		panic(err)
	}
	r.res.State = next
}

func (r *run) notFound(reason string) Result {
	r.advance(OriginNotFound)
	r.res.Status = StatusNotFound
	r.res.Reason = reason
	r.logger.Info("origin not found", "reason", reason)
	return r.res
}

// Trace investigates one fix commit. Per-file and per-commit failures become a
// not-found result with a reason; only context cancellation is returned as an error.
func (l *Locator) Trace(ctx context.Context, req Request) (Result, error) {
	r := &run{
		res:    Result{CVEID: req.CVEID, Repo: req.Repo, Fix: req.Commit, State: PendingFiles, Files: []FileOutcome{}},
		logger: l.Logger.With("repo", req.Repo, "fix", req.Commit),
	}

	attrs, err := l.WS.Commit(ctx, req.Commit)
	if err != nil {
		if ctx.Err() != nil {
			return r.res, ctx.Err()
		}
		return r.notFound("fix commit: " + err.Error()), nil
	}
	r.res.Fix = attrs.Hash
	patch := model.NewPatchCommit(attrs)
	r.res.Patch = &patch

	bases := l.Policy.Bases(attrs.Parents)
	if len(bases) == 0 {
		if patch.Class.IsRoot {
			return r.notFound("root commit has no base revision"), nil
		}
		return r.notFound("merge commit skipped by policy"), nil
	}
	r.res.Bases = bases

	type pending struct {
		base string
		fd   model.FileDiff
		out  *FileOutcome
	}
	var work []pending
	for _, base := range bases {
		raws, err := l.WS.Diff(ctx, base, attrs.Hash)
		if err != nil {
			if ctx.Err() != nil {
				return r.res, ctx.Err()
			}
			return r.notFound("diff against " + base + ": " + err.Error()), nil
		}
		for _, raw := range raws {
			fd, ok := Extract(raw)
			if !ok {
				continue
			}
			out := FileOutcome{Path: fd.Path, OldPath: fd.OldPath, Base: base, State: FilePending}
			if fd.Added != nil {
				out.Added = fd.Added.String()
			}
			if fd.Deleted != nil {
				out.Deleted = fd.Deleted.String()
			}
			out.State, _ = out.State.Next(FileDiffComputed)
			r.res.Files = append(r.res.Files, out)
			work = append(work, pending{base: base, fd: fd})
		}
	}
	for i := range work {
		work[i].out = &r.res.Files[i]
	}
	r.advance(PerFileDiffComputed)

	var evidence []model.BlameLine
	skipped := 0
	for _, w := range work {
		lines, err := l.Tracer.Trace(ctx, w.base, w.fd)
		if err != nil {
			if ctx.Err() != nil {
				return r.res, ctx.Err()
			}
			w.out.State, _ = w.out.State.Next(FileSkipped)
			w.out.Reason = err.Error()
			skipped++
			kind := cerrors.KindOf(err)
			telemetry.TrackFileSkip(string(kind))
			r.logger.Debug("file skipped", "path", w.fd.BlamePath(), "kind", kind, "error", err)
			continue
		}
		w.out.State, _ = w.out.State.Next(FileBlamed)
		w.out.Lines = len(lines)
		evidence = append(evidence, lines...)
	}
	r.advance(PerFileBlamed)

	origin, ok := Aggregate(evidence)
	r.advance(Aggregated)
	if !ok {
		switch {
		case len(work) == 0:
			return r.notFound("no changed lines to blame"), nil
		case skipped == len(work):
			return r.notFound("every file was skipped"), nil
		default:
			return r.notFound("blame produced no attributable lines"), nil
		}
	}

	r.advance(OriginFound)
	r.res.Status = StatusFound
	r.res.Origin = &origin

	if vattrs, err := l.WS.Commit(ctx, origin.Commit); err == nil {
		vuln := model.NewVulnCommit(vattrs, patch)
		r.res.Vuln = &vuln
	} else if !errors.Is(err, context.Canceled) {
		r.logger.Warn("failed to load origin commit", "origin", origin.Commit, "error", err)
	}
	r.logger.Info("origin found", "origin", origin.Commit, "author", origin.Author, "support", origin.Support)
	return r.res, nil
}
