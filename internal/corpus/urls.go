package corpus

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b(?:[-a-zA-Z0-9()@:%_+.~#?&/=]*)`)

// ExtractURLs returns the distinct URLs found in raw record text, in order of appearance.
func ExtractURLs(raw string) []string {
	found := urlPattern.FindAllString(raw, -1)
	if len(found) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(found))
	out := make([]string, 0, len(found))
	for _, u := range found {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

const githubPrefix = "https://github.com/"

// GitHubOwners returns the lower-cased owners following each "https://github.com/"
// occurrence in a URL, in order of appearance.
func GitHubOwners(raw string) []string {
	lower := strings.ToLower(raw)
	var owners []string
	for {
		i := strings.Index(lower, githubPrefix)
		if i < 0 {
			return owners
		}
		lower = lower[i+len(githubPrefix):]
		owner := lower
		if j := strings.IndexAny(owner, "/?#"); j >= 0 {
			owner = owner[:j]
		}
		if owner != "" {
			owners = append(owners, owner)
		}
	}
}

// ReferencesRepo reports whether a URL contains "https://github.com/<owner>/<name>", ignoring case.
// The match is a plain substring test, so a reference to owner/name-extra also counts.
func ReferencesRepo(raw, owner, name string) bool {
	return strings.Contains(strings.ToLower(raw), githubPrefix+strings.ToLower(owner+"/"+name))
}
