package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	cerrors "cveorigin/internal/errors"
	"cveorigin/internal/model"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// JSONDir reads a directory tree of CVE JSON records (CVE*.json), as published by cvelistV5.
type JSONDir struct {
	Root    string
	Workers int
	Logger  *slog.Logger
}

// NewJSONDir creates a JSON directory source.
func NewJSONDir(root string, workers int, logger *slog.Logger) *JSONDir {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONDir{Root: root, Workers: workers, Logger: logger}
}

func (d *JSONDir) Name() string {
	return "json:" + d.Root
}

// Records parses every CVE file under Root. Files that are not valid JSON are logged
// and skipped; an unreadable tree is a CorpusError.
func (d *JSONDir) Records(ctx context.Context) ([]model.Record, error) {
	info, err := os.Stat(d.Root)
	if err != nil {
		return nil, cerrors.NewCorpusError(d.Name(), err)
	}
	if !info.IsDir() {
		return nil, cerrors.NewCorpusError(d.Name(), fmt.Errorf("%s is not a directory", d.Root))
	}

	var paths []string
	err = filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, "CVE") && strings.HasSuffix(name, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, cerrors.NewCorpusError(d.Name(), err)
	}

	perFile := make([][]model.Record, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			records, err := ParseCVE(data)
			if err != nil {
				d.Logger.Warn("skipping unparseable record", "path", path, "error", err)
				return nil
			}
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, cerrors.NewCorpusError(d.Name(), err)
	}

	var out []model.Record
	for _, records := range perFile {
		out = append(out, records...)
	}
	d.Logger.Debug("parsed corpus directory", "root", d.Root, "files", len(paths), "records", len(out))
	return out, nil
}

// ParseCVE extracts one record per affected (vendor, product) entry of a CVE JSON 5
// document. Legacy CVE JSON 4 documents (CVE_data_meta / affects) are also accepted.
func ParseCVE(data []byte) ([]model.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, cerrors.NewFormatError(snippet(data), "invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	id := doc.Get("cveMetadata.cveId").String()
	if id == "" {
		id = doc.Get("CVE_data_meta.ID").String()
	}
	if id == "" {
		return nil, cerrors.NewFormatError(snippet(data), "missing CVE id")
	}
	urls := ExtractURLs(string(data))

	var records []model.Record
	for _, a := range doc.Get("containers.cna.affected").Array() {
		records = append(records, model.Record{
			ID:      id,
			Vendor:  a.Get("vendor").String(),
			Product: a.Get("product").String(),
			URLs:    urls,
		})
	}
	for _, v := range doc.Get("affects.vendor.vendor_data").Array() {
		vendor := v.Get("vendor_name").String()
		for _, p := range v.Get("product.product_data").Array() {
			records = append(records, model.Record{
				ID:      id,
				Vendor:  vendor,
				Product: p.Get("product_name").String(),
				URLs:    urls,
			})
		}
	}
	return records, nil
}

func snippet(data []byte) string {
	const limit = 40
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
