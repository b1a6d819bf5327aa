package szz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/git"
	"cveorigin/internal/model"
	"cveorigin/internal/telemetry"
)

// DefaultBlameTimeout bounds a single blame query.
const DefaultBlameTimeout = 60 * time.Second

// Tracer blames the changed regions of one file on a base revision.
type Tracer struct {
	WS      git.Workspace
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewTracer creates a tracer over ws.
func NewTracer(ws git.Workspace, timeout time.Duration, logger *slog.Logger) *Tracer {
	if timeout <= 0 {
		timeout = DefaultBlameTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{WS: ws, Timeout: timeout, Logger: logger}
}

// Trace blames the widened added and deleted windows of fd at base, on the
// file's path before the fix. The added window uses base line numbers. Lines reached by both windows are returned once,
// ordered by line number.
//
// A file absent at base wraps errors.ErrNotFound. A query past the timeout
// returns a *errors.ProvenanceTimeoutError. In both cases no lines are returned.
func (t *Tracer) Trace(ctx context.Context, base string, fd model.FileDiff) ([]model.BlameLine, error) {
	if fd.OldPath == "" {
		return nil, fmt.Errorf("%s is new in the fix: %w", fd.Path, cerrors.ErrNotFound)
	}
	path := fd.BlamePath()

	count, err := t.WS.LineCount(ctx, base, path)
	if err != nil {
		return nil, err
	}

	byLine := make(map[int]model.BlameLine)
	for _, r := range []*model.LineRange{fd.Deleted, fd.AddedAtBase()} {
		if r == nil {
			continue
		}
		w, ok := Window(*r, count)
		if !ok {
			continue
		}
		lines, err := t.blame(ctx, base, path, w)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			if _, seen := byLine[l.Line]; !seen {
				byLine[l.Line] = l
			}
		}
	}

	out := make([]model.BlameLine, 0, len(byLine))
	for _, l := range byLine {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out, nil
}

func (t *Tracer) blame(ctx context.Context, base, path string, w model.LineRange) ([]model.BlameLine, error) {
	qctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	start := time.Now()
	out, err := t.WS.Blame(qctx, base, path, w.Start, w.End)
	telemetry.ObserveBlameDuration(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(qctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, cerrors.NewProvenanceTimeoutError(path, t.Timeout)
		}
		return nil, err
	}

	lines := ParsePorcelain(path, out)
	t.Logger.Debug("blamed window", "path", path, "base", base, "window", w.String(), "lines", len(lines))
	return lines, nil
}
