package szz

import (
	"fmt"
	"strings"
)

// MergePolicy decides which parents of a fix commit are blamed.
type MergePolicy string

const (
	// MergeFirst blames the mainline (first) parent only.
	MergeFirst MergePolicy = "first"
	// MergeAll blames every parent and pools the evidence.
	MergeAll MergePolicy = "all"
	// MergeSkip gives up on merge fixes.
	MergeSkip MergePolicy = "skip"
)

// ParseMergePolicy accepts first, all or skip. Empty means first.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch p := MergePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MergeFirst, nil
	case MergeFirst, MergeAll, MergeSkip:
		return p, nil
	default:
		return "", fmt.Errorf("invalid merge parent policy %q (want first, all or skip)", s)
	}
}

// Bases returns the revisions to blame for a commit with the given parents.
// A root commit has none.
func (p MergePolicy) Bases(parents []string) []string {
	switch {
	case len(parents) == 0:
		return nil
	case len(parents) == 1:
		return parents[:1:1]
	case p == MergeSkip:
		return nil
	case p == MergeAll:
		out := make([]string, len(parents))
		copy(out, parents)
		return out
	default:
		return parents[:1:1]
	}
}
