package model

import "fmt"

// Line is a (line number, content) pair recorded by a commit diff.
type Line struct {
	Number  int
	Content string
}

// RawFileDiff is the per-file change data of a commit against one base revision.
// Added lines use new-file numbering, deleted lines use old-file numbering.
type RawFileDiff struct {
	Path    string // path after the change, the old path for deleted files
	OldPath string // path before the change, empty for new files
	Base    string // revision the diff was computed against
	Added   []Line
	Deleted []Line
}

// LineRange is an inclusive 1-based line span.
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Len returns the number of lines in the range.
func (r LineRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// FileDiff holds the minimal ranges touched by one file of a fix commit.
// Added uses new-file numbering and Deleted old-file numbering. AddedBase is
// Added mapped onto the base revision; it is empty for a pure insertion.
type FileDiff struct {
	Path      string
	OldPath   string
	Base      string
	Added     *LineRange
	AddedBase *LineRange
	Deleted   *LineRange
}

// AddedAtBase returns the added span in base revision numbering, falling back
// to Added when no mapping was computed.
func (f FileDiff) AddedAtBase() *LineRange {
	if f.AddedBase != nil {
		return f.AddedBase
	}
	return f.Added
}

// BlamePath is the path of the file at the base revision.
func (f FileDiff) BlamePath() string {
	if f.OldPath != "" {
		return f.OldPath
	}
	return f.Path
}

// BlameLine is the attribution of a single line at a historical revision.
type BlameLine struct {
	File   string
	Line   int
	Commit string
	Author string
	Text   string
}

// OriginCandidate is the most supported origin of a fix commit's changed lines.
type OriginCandidate struct {
	Commit        string `json:"commit"`
	Author        string `json:"author"`
	Support       int    `json:"support"`
	AuthorSupport int    `json:"author_support"`
	TotalLines    int    `json:"total_lines"`
}
