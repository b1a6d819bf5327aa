// Package report writes batch outputs. Every file is written to a temporary
// sibling and renamed into place so readers never see partial rows.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cveorigin/internal/model"
	"cveorigin/internal/szz"
)

// Output file names inside the output directory.
const (
	ResolvedFile = "repos_to_nvd.csv"
	MissingFile  = "missing_repos.txt"
	ReviewFile   = "manual_review.txt"
	OriginsFile  = "origins.json"
	CWEFile      = "cwe.tsv"
)

// WriteAtomic writes path by streaming into a temp file in the same directory
// and renaming it over path once fn succeeds.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	// CreateTemp uses 0600; outputs are meant to be shared.
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// Paths lists the files written for a resolution batch.
type Paths struct {
	Resolved string
	Missing  string
	Review   string
}

// WriteResolutions writes the three resolution channels into dir.
func WriteResolutions(dir string, results []model.Resolution) (Paths, error) {
	sorted := make([]model.Resolution, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Repo.Key() < sorted[j].Repo.Key() })

	var resolved, missing, review []model.Resolution
	for _, r := range sorted {
		switch r.Bucket {
		case model.BucketResolved:
			resolved = append(resolved, r)
		case model.BucketMissing:
			missing = append(missing, r)
		case model.BucketAmbiguous:
			review = append(review, r)
		}
	}

	p := Paths{
		Resolved: filepath.Join(dir, ResolvedFile),
		Missing:  filepath.Join(dir, MissingFile),
		Review:   filepath.Join(dir, ReviewFile),
	}
	if err := WriteAtomic(p.Resolved, func(w io.Writer) error { return writeResolved(w, resolved) }); err != nil {
		return p, err
	}
	if err := WriteAtomic(p.Missing, func(w io.Writer) error { return writeMissing(w, missing) }); err != nil {
		return p, err
	}
	if err := WriteAtomic(p.Review, func(w io.Writer) error { return writeReview(w, review) }); err != nil {
		return p, err
	}
	return p, nil
}

func writeResolved(w io.Writer, results []model.Resolution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"repository", "vendor", "product"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write([]string{r.Repo.Slug(), r.Vendor, r.Product}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeMissing(w io.Writer, results []model.Resolution) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.Repo.Slug()); err != nil {
			return err
		}
	}
	return nil
}

func writeReview(w io.Writer, results []model.Resolution) error {
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s:\n", r.Repo.Slug()); err != nil {
			return err
		}
		for _, c := range r.Candidates {
			if _, err := fmt.Fprintf(w, "  %s,%s\n", c.Vendor, c.Product); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteOrigins writes origin results as an indented JSON array sorted by fix hash.
func WriteOrigins(path string, results []szz.Result) error {
	sorted := make([]szz.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Fix != sorted[j].Fix {
			return sorted[i].Fix < sorted[j].Fix
		}
		return sorted[i].Repo < sorted[j].Repo
	})
	return WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sorted)
	})
}

// CWEEntry is one line of the CWE table.
type CWEEntry struct {
	CVEID string
	CWEs  []string
}

// WriteCWE writes "CVE-ID<TAB>CWE,..." lines in input order.
func WriteCWE(path string, entries []CWEEntry) error {
	return WriteAtomic(path, func(w io.Writer) error {
		for _, e := range entries {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", e.CVEID, strings.Join(e.CWEs, ",")); err != nil {
				return err
			}
		}
		return nil
	})
}
