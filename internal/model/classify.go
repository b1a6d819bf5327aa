package model

import (
	"strings"
	"time"
)

// CommitAttrs is the immutable attribute record of a commit.
type CommitAttrs struct {
	Hash         string    `json:"hash"`
	Author       string    `json:"author"`
	AuthorEmail  string    `json:"author_email"`
	AuthoredAt   time.Time `json:"authored_at"`
	Parents      []string  `json:"parents,omitempty"`
	Summary      string    `json:"summary"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
	FilesChanged int       `json:"files_changed"`
}

// ChangeKind describes the line-level shape of a commit.
type ChangeKind string

const (
	ChangeNone    ChangeKind = "none"
	ChangeAddOnly ChangeKind = "add_only"
	ChangeDelOnly ChangeKind = "delete_only"
	ChangeMixed   ChangeKind = "mixed"
)

// Classification is derived from CommitAttrs by Classify.
type Classification struct {
	AddsCode     bool       `json:"adds_code"`
	DeletesCode  bool       `json:"deletes_code"`
	ChangesLines bool       `json:"changes_lines"`
	ChangesFiles bool       `json:"changes_files"`
	MultiFile    bool       `json:"multi_file"`
	IsMerge      bool       `json:"is_merge"`
	IsRoot       bool       `json:"is_root"`
	Kind         ChangeKind `json:"kind"`
}

// Classify is a pure function of the commit attributes.
func Classify(a CommitAttrs) Classification {
	c := Classification{
		AddsCode:     a.Insertions > 0,
		DeletesCode:  a.Deletions > 0,
		ChangesFiles: a.FilesChanged > 0,
		MultiFile:    a.FilesChanged > 1,
		IsMerge:      len(a.Parents) > 1,
		IsRoot:       len(a.Parents) == 0,
	}
	c.ChangesLines = c.AddsCode || c.DeletesCode
	switch {
	case c.AddsCode && c.DeletesCode:
		c.Kind = ChangeMixed
	case c.AddsCode:
		c.Kind = ChangeAddOnly
	case c.DeletesCode:
		c.Kind = ChangeDelOnly
	default:
		c.Kind = ChangeNone
	}
	return c
}

// PatchCommit is a commit that fixes a vulnerability.
type PatchCommit struct {
	Attrs CommitAttrs    `json:"attrs"`
	Class Classification `json:"classification"`
}

// NewPatchCommit classifies a patch commit.
func NewPatchCommit(a CommitAttrs) PatchCommit {
	return PatchCommit{Attrs: a, Class: Classify(a)}
}

// VulnCommit is the commit suspected of introducing the vulnerability a patch fixes.
type VulnCommit struct {
	Attrs               CommitAttrs    `json:"attrs"`
	Class               Classification `json:"classification"`
	IsPrevCommitToPatch bool           `json:"is_prev_commit_to_patch"`
	SameAuthorAsPatch   bool           `json:"same_author_as_patch"`
	DaysBeforePatch     float64        `json:"days_before_patch"`
}

// NewVulnCommit classifies a vulnerability-inducing commit relative to its patch.
func NewVulnCommit(a CommitAttrs, patch PatchCommit) VulnCommit {
	v := VulnCommit{Attrs: a, Class: Classify(a)}
	for _, p := range patch.Attrs.Parents {
		if p == a.Hash {
			v.IsPrevCommitToPatch = true
			break
		}
	}
	v.SameAuthorAsPatch = sameAuthor(a, patch.Attrs)
	if !a.AuthoredAt.IsZero() && !patch.Attrs.AuthoredAt.IsZero() {
		v.DaysBeforePatch = patch.Attrs.AuthoredAt.Sub(a.AuthoredAt).Hours() / 24
	}
	return v
}

func sameAuthor(a, b CommitAttrs) bool {
	if a.AuthorEmail != "" && b.AuthorEmail != "" {
		return strings.EqualFold(a.AuthorEmail, b.AuthorEmail)
	}
	return a.Author != "" && strings.EqualFold(a.Author, b.Author)
}
