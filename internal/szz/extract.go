// Package szz locates the commit that introduced the code a fix commit changes,
// by blaming the changed regions on the revision before the fix.
package szz

import (
	"sort"

	"cveorigin/internal/model"
)

// Extract reduces a file's added and deleted lines to their minimal spans.
// ok is false when the file changes no lines and cannot contribute evidence.
func Extract(raw model.RawFileDiff) (fd model.FileDiff, ok bool) {
	fd = model.FileDiff{
		Path:    raw.Path,
		OldPath: raw.OldPath,
		Base:    raw.Base,
		Added:   span(raw.Added),
		Deleted: span(raw.Deleted),
	}
	fd.AddedBase = baseSpan(fd.Added, raw)
	return fd, fd.Added != nil || fd.Deleted != nil
}

// baseSpan maps the added span onto base revision numbering. The result covers
// the base lines the added block replaced and is empty (End < Start) for a pure
// insertion, so its Window reaches the unchanged lines on either side.
func baseSpan(added *model.LineRange, raw model.RawFileDiff) *model.LineRange {
	if added == nil {
		return nil
	}
	addedNums := numbers(raw.Added)
	deletedNums := numbers(raw.Deleted)
	deleted := make(map[int]bool, len(deletedNums))
	for _, n := range deletedNums {
		deleted[n] = true
	}

	// before returns the last unchanged base line ahead of new line n, 0 at the top.
	before := func(n int) int {
		o := n - 1 - sort.SearchInts(addedNums, n)
		for _, d := range deletedNums {
			if d > o {
				break
			}
			o++
		}
		return o
	}

	after := before(added.End) + 1
	for deleted[after] {
		after++
	}
	return &model.LineRange{Start: before(added.Start) + 1, End: after - 1}
}

func numbers(lines []model.Line) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.Number
	}
	sort.Ints(out)
	return out
}

func span(lines []model.Line) *model.LineRange {
	if len(lines) == 0 {
		return nil
	}
	r := model.LineRange{Start: lines[0].Number, End: lines[0].Number}
	for _, l := range lines[1:] {
		if l.Number < r.Start {
			r.Start = l.Number
		}
		if l.Number > r.End {
			r.End = l.Number
		}
	}
	return &r
}

// Window widens r by one line on each side and clamps it to [1, lineCount].
// ok is false for an empty file.
func Window(r model.LineRange, lineCount int) (model.LineRange, bool) {
	if lineCount < 1 {
		return model.LineRange{}, false
	}
	return model.LineRange{Start: clamp(r.Start-1, 1, lineCount), End: clamp(r.End+1, 1, lineCount)}, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
