package vuln

import "context"

// Weaknesses is the CWE classification of one CVE.
type Weaknesses struct {
	CVEID string   `json:"cve_id"`
	CWEs  []string `json:"cwes"`
}

// Lookup resolves CWE identifiers for CVEs.
type Lookup interface {
	CWEs(ctx context.Context, cveID string) ([]string, error)
}
