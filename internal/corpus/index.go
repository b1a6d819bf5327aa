package corpus

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/model"
)

// Source yields the vulnerability records of a corpus.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string
	Records(ctx context.Context) ([]model.Record, error)
}

// Index is a read-only lookup structure over the record corpus.
// It is built once and may be shared between goroutines without locking.
type Index struct {
	records   []model.Record
	pairs     map[string][]int
	byVendor  map[string][]int
	byProduct map[string][]int
	byOwner   map[string][]int // GitHub owner in record URLs
	skipped   int
}

// Load reads every record from src and indexes it. Any source failure is a CorpusError.
func Load(ctx context.Context, src Source, logger *slog.Logger) (*Index, error) {
	records, err := src.Records(ctx)
	if err != nil {
		if cerrors.KindOf(err) == cerrors.KindCorpus {
			return nil, err
		}
		return nil, cerrors.NewCorpusError(src.Name(), err)
	}
	idx := BuildIndex(records)
	logger.Info("record index built", "source", src.Name(), "records", idx.Len(), "skipped", idx.Skipped())
	return idx, nil
}

// BuildIndex indexes records. A record without a usable vendor and product is
// kept for GitHub URL lookups only, and skipped when it has no GitHub URL.
func BuildIndex(records []model.Record) *Index {
	idx := &Index{
		pairs:     make(map[string][]int),
		byVendor:  make(map[string][]int),
		byProduct: make(map[string][]int),
		byOwner:   make(map[string][]int),
	}

	sorted := make([]model.Record, 0, len(records))
	for _, r := range records {
		if !r.Valid() && !referencesGitHub(r) {
			idx.skipped++
			continue
		}
		r.Vendor = strings.TrimSpace(r.Vendor)
		r.Product = strings.TrimSpace(r.Product)
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Vendor != b.Vendor {
			return a.Vendor < b.Vendor
		}
		return a.Product < b.Product
	})
	idx.records = sorted

	for i, r := range sorted {
		if r.Valid() {
			vendor := strings.ToLower(r.Vendor)
			product := strings.ToLower(r.Product)
			idx.pairs[model.PairKey(vendor, product)] = append(idx.pairs[model.PairKey(vendor, product)], i)
			idx.byVendor[vendor] = append(idx.byVendor[vendor], i)
			idx.byProduct[product] = append(idx.byProduct[product], i)
		}

		seen := make(map[string]bool)
		for _, u := range r.URLs {
			for _, owner := range GitHubOwners(u) {
				if seen[owner] {
					continue
				}
				seen[owner] = true
				idx.byOwner[owner] = append(idx.byOwner[owner], i)
			}
		}
	}
	return idx
}

func referencesGitHub(r model.Record) bool {
	for _, u := range r.URLs {
		if len(GitHubOwners(u)) > 0 {
			return true
		}
	}
	return false
}

// Len returns the number of indexed records.
func (x *Index) Len() int {
	return len(x.records)
}

// Skipped returns how many records were left out for carrying no usable identity.
func (x *Index) Skipped() int {
	return x.skipped
}

// ByPair returns records whose (vendor, product) equals the arguments, ignoring case.
func (x *Index) ByPair(vendor, product string) []model.Record {
	return x.collect(x.pairs[model.PairKey(vendor, product)])
}

// ByVendor returns records whose vendor equals vendor, ignoring case.
func (x *Index) ByVendor(vendor string) []model.Record {
	return x.collect(x.byVendor[strings.ToLower(vendor)])
}

// ByProduct returns records whose product equals product, ignoring case.
func (x *Index) ByProduct(product string) []model.Record {
	return x.collect(x.byProduct[strings.ToLower(product)])
}

// ByGitHubURL returns records with a URL containing https://github.com/<owner>/<name>,
// ignoring case. Records with placeholder identities are included.
func (x *Index) ByGitHubURL(owner, name string) []model.Record {
	var ids []int
	for _, id := range x.byOwner[strings.ToLower(owner)] {
		for _, u := range x.records[id].URLs {
			if ReferencesRepo(u, owner, name) {
				ids = append(ids, id)
				break
			}
		}
	}
	return x.collect(ids)
}

func (x *Index) collect(ids []int) []model.Record {
	if len(ids) == 0 {
		return nil
	}
	out := make([]model.Record, len(ids))
	for i, id := range ids {
		out[i] = x.records[id]
	}
	return out
}
