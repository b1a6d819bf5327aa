// Package resolve matches repositories to vulnerability-record identities.
package resolve

import (
	"sort"
	"strings"

	"cveorigin/internal/corpus"
	"cveorigin/internal/model"
)

// Resolver produces tiered candidates for a repository from a shared Index.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	idx *corpus.Index
}

// NewResolver creates a resolver over idx.
func NewResolver(idx *corpus.Index) *Resolver {
	return &Resolver{idx: idx}
}

// Candidates returns the candidates of the single highest tier found for repo,
// sorted by (vendor, product). An exact-stage hit short-circuits the semi scan.
//
// Semi: the vendor equals the owner and one of name and product contains the
// other, or the product equals the name under any vendor.
func (r *Resolver) Candidates(repo model.RepoID) []model.Candidate {
	if exact := r.exact(repo); len(exact) > 0 {
		return exact
	}
	return r.semi(repo)
}

func (r *Resolver) exact(repo model.RepoID) []model.Candidate {
	pairs := newCollector(repo)
	pairs.add(model.TierExact, r.idx.ByPair(repo.Owner, repo.Name))
	if !strings.EqualFold(repo.Owner, repo.Name) {
		pairs.add(model.TierExact, r.idx.ByPair(repo.Name, repo.Owner))
	}
	if !pairs.empty() {
		return pairs.list()
	}

	urls := newCollector(repo)
	urls.add(model.TierURLOnly, r.idx.ByGitHubURL(repo.Owner, repo.Name))
	return urls.list()
}

func (r *Resolver) semi(repo model.RepoID) []model.Candidate {
	name := strings.ToLower(repo.Name)
	c := newCollector(repo)

	var byVendor []model.Record
	for _, rec := range r.idx.ByVendor(repo.Owner) {
		product := strings.ToLower(rec.Product)
		if strings.Contains(product, name) || strings.Contains(name, product) {
			byVendor = append(byVendor, rec)
		}
	}
	c.add(model.TierSemi, byVendor)
	c.add(model.TierSemi, r.idx.ByProduct(repo.Name))
	return c.list()
}

// collector deduplicates records into one candidate per (vendor, product).
type collector struct {
	repo  model.RepoID
	byKey map[string]*model.Candidate
	seen  map[string]map[string]bool
}

func newCollector(repo model.RepoID) *collector {
	return &collector{
		repo:  repo,
		byKey: make(map[string]*model.Candidate),
		seen:  make(map[string]map[string]bool),
	}
}

func (c *collector) add(tier model.Tier, records []model.Record) {
	for _, rec := range records {
		key := model.PairKey(rec.Vendor, rec.Product)
		cand, ok := c.byKey[key]
		if !ok {
			cand = &model.Candidate{Repo: c.repo, Vendor: rec.Vendor, Product: rec.Product, Tier: tier}
			c.byKey[key] = cand
			c.seen[key] = make(map[string]bool)
		}
		if !c.seen[key][rec.ID] {
			c.seen[key][rec.ID] = true
			cand.Evidence = append(cand.Evidence, rec.ID)
		}
	}
}

func (c *collector) empty() bool {
	return len(c.byKey) == 0
}

func (c *collector) list() []model.Candidate {
	if len(c.byKey) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.Candidate, 0, len(keys))
	for _, k := range keys {
		cand := *c.byKey[k]
		sort.Strings(cand.Evidence)
		out = append(out, cand)
	}
	return out
}
