package resolve

import (
	"strings"

	"cveorigin/internal/model"
)

// Aggregate classifies the candidates of one repository into exactly one bucket.
// It performs no I/O and is deterministic for a sorted candidate list.
//
// Refinement for several non-exact candidates: a candidate whose vendor and
// product equal the owner and name wins; otherwise a candidate whose product
// equals the "owner/name" slug wins. A rule resolves only when exactly one
// candidate satisfies it. Placeholder candidates (URL hits on records such as
// n/a,n/a) never resolve: they go to manual review when nothing else remains.
func Aggregate(repo model.RepoID, cands []model.Candidate) model.Resolution {
	if len(cands) == 0 {
		return model.Missing(repo)
	}

	var exact []model.Candidate
	for _, c := range cands {
		if c.Tier == model.TierExact {
			exact = append(exact, c)
		}
	}
	if len(exact) > 0 {
		for _, c := range exact {
			if sameIdentity(repo, c) {
				return model.Resolved(repo, c)
			}
		}
		return model.Resolved(repo, exact[0])
	}

	var usable []model.Candidate
	for _, c := range cands {
		if !c.Placeholder() {
			usable = append(usable, c)
		}
	}
	switch len(usable) {
	case 0:
		return model.Ambiguous(repo, cands)
	case 1:
		return model.Resolved(repo, usable[0])
	}

	if c, ok := only(usable, func(c model.Candidate) bool { return sameIdentity(repo, c) }); ok {
		return model.Resolved(repo, c)
	}
	if c, ok := only(usable, func(c model.Candidate) bool { return strings.EqualFold(c.Product, repo.Slug()) }); ok {
		return model.Resolved(repo, c)
	}
	return model.Ambiguous(repo, cands)
}

func sameIdentity(repo model.RepoID, c model.Candidate) bool {
	return strings.EqualFold(c.Vendor, repo.Owner) && strings.EqualFold(c.Product, repo.Name)
}

// only returns the single candidate matching pred.
func only(cands []model.Candidate, pred func(model.Candidate) bool) (model.Candidate, bool) {
	var hit model.Candidate
	n := 0
	for _, c := range cands {
		if pred(c) {
			hit = c
			n++
		}
	}
	return hit, n == 1
}
