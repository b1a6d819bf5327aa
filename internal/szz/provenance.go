package szz

import "cveorigin/internal/model"

// Aggregate picks the most frequent commit and, independently, the most frequent
// author across lines. Ties go to the lexicographically smallest value. ok is
// false for empty input.
func Aggregate(lines []model.BlameLine) (origin model.OriginCandidate, ok bool) {
	if len(lines) == 0 {
		return model.OriginCandidate{}, false
	}
	commits := make(map[string]int)
	authors := make(map[string]int)
	for _, l := range lines {
		commits[l.Commit]++
		authors[l.Author]++
	}
	commit, support := top(commits)
	author, authorSupport := top(authors)
	return model.OriginCandidate{
		Commit:        commit,
		Author:        author,
		Support:       support,
		AuthorSupport: authorSupport,
		TotalLines:    len(lines),
	}, true
}

func top(counts map[string]int) (string, int) {
	var best string
	n := -1
	for k, c := range counts {
		if c > n || (c == n && k < best) {
			best, n = k, c
		}
	}
	return best, n
}
