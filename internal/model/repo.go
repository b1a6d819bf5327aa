package model

import (
	"strings"

	cerrors "cveorigin/internal/errors"
)

// RepoID identifies a GitHub repository.
type RepoID struct {
	Owner string
	Name  string
}

// ParseRepoID accepts "owner/name", "github.com/owner/name" and full
// https GitHub URLs (optionally ending in .git).
func ParseRepoID(s string) (RepoID, error) {
	raw := s
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://", "http://"} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = s[len(prefix):]
		}
	}
	for _, host := range []string{"www.github.com/", "github.com/"} {
		if len(s) >= len(host) && strings.EqualFold(s[:len(host)], host) {
			s = s[len(host):]
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return RepoID{}, cerrors.NewFormatError(raw, "expected owner/name")
	}
	owner, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if owner == "" || name == "" {
		return RepoID{}, cerrors.NewFormatError(raw, "empty owner or name")
	}
	if strings.ContainsAny(owner+name, " \t,") {
		return RepoID{}, cerrors.NewFormatError(raw, "unexpected whitespace or comma")
	}
	return RepoID{Owner: owner, Name: name}, nil
}

// Slug returns "owner/name".
func (r RepoID) Slug() string {
	return r.Owner + "/" + r.Name
}

// URL returns the canonical "github.com/owner/name".
func (r RepoID) URL() string {
	return "github.com/" + r.Slug()
}

func (r RepoID) String() string {
	return r.Slug()
}

// Key is the case-insensitive identity used for deduplication and ordering.
func (r RepoID) Key() string {
	return strings.ToLower(r.Slug())
}
