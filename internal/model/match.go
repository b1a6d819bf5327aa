package model

import (
	"fmt"
	"strings"
)

// Record is one affected (vendor, product) entry of a vulnerability record.
// A CVE listing several affected products yields several records sharing ID and URLs.
type Record struct {
	ID      string
	Vendor  string
	Product string
	URLs    []string
}

// Placeholder reports whether a vendor or product value carries no identity.
func Placeholder(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "" || s == "n/a" || s == "-" || s == "unknown"
}

// Valid reports whether the record can be indexed.
func (r Record) Valid() bool {
	return !Placeholder(r.Vendor) && !Placeholder(r.Product)
}

// Tier ranks match confidence. Higher values are stronger.
type Tier int

const (
	TierURLOnly Tier = iota + 1
	TierSemi
	TierExact
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierSemi:
		return "semi"
	case TierURLOnly:
		return "url"
	default:
		return "unknown"
	}
}

// Candidate is evidence that a repository may correspond to a (vendor, product) pair.
type Candidate struct {
	Repo     RepoID
	Vendor   string
	Product  string
	Tier     Tier
	Evidence []string // record ids, sorted
}

// PairKey is the case-insensitive (vendor, product) identity.
func (c Candidate) PairKey() string {
	return PairKey(c.Vendor, c.Product)
}

// Placeholder reports whether the candidate came from records without a usable identity.
func (c Candidate) Placeholder() bool {
	return Placeholder(c.Vendor) || Placeholder(c.Product)
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s,%s", c.Vendor, c.Product)
}

// PairKey joins a lower-cased vendor and product.
func PairKey(vendor, product string) string {
	return strings.ToLower(vendor) + "\x00" + strings.ToLower(product)
}

// Bucket is the outcome class of a resolution.
type Bucket string

const (
	BucketResolved  Bucket = "resolved"
	BucketAmbiguous Bucket = "ambiguous"
	BucketMissing   Bucket = "missing"
)

// Resolution is the final classification of one repository.
// Exactly one of the buckets applies.
type Resolution struct {
	Repo       RepoID
	Bucket     Bucket
	Vendor     string
	Product    string
	Tier       Tier
	Candidates []Candidate // only for BucketAmbiguous
}

// Resolved builds a resolved outcome.
func Resolved(repo RepoID, c Candidate) Resolution {
	return Resolution{Repo: repo, Bucket: BucketResolved, Vendor: c.Vendor, Product: c.Product, Tier: c.Tier}
}

// Ambiguous builds a manual-review outcome. It panics on fewer than two candidates
// unless the single candidate is a placeholder, which can never be resolved.
func Ambiguous(repo RepoID, cands []Candidate) Resolution {
	if len(cands) == 0 || (len(cands) == 1 && !cands[0].Placeholder()) {
		panic(fmt.Sprintf("ambiguous resolution for %s needs at least 2 candidates, got %d", repo, len(cands)))
	}
	copied := make([]Candidate, len(cands))
	copy(copied, cands)
	return Resolution{Repo: repo, Bucket: BucketAmbiguous, Tier: cands[0].Tier, Candidates: copied}
}

// Missing builds a no-candidate outcome.
func Missing(repo RepoID) Resolution {
	return Resolution{Repo: repo, Bucket: BucketMissing}
}
