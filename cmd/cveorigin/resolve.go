package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"cveorigin/internal/config"
	"cveorigin/internal/corpus"
	"cveorigin/internal/db"
	"cveorigin/internal/model"
	"cveorigin/internal/report"
	"cveorigin/internal/resolve"
	"cveorigin/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <repo-list>",
	Short: "Map repositories to CVE vendor/product identities",
	Long: `Reads a list of repositories (owner/name or GitHub URLs, one per line, '-' for stdin)
and matches each against the record corpus. Writes repos_to_nvd.csv, missing_repos.txt
and manual_review.txt to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("corpus-type", "", "Corpus source: json, postgres or sqlite")
	resolveCmd.Flags().String("corpus", "", "Directory of CVE JSON records")
	resolveCmd.Flags().String("corpus-dsn", "", "Connection string of a SQL corpus")

	viper.BindPFlag("corpus.type", resolveCmd.Flags().Lookup("corpus-type"))
	viper.BindPFlag("corpus.path", resolveCmd.Flags().Lookup("corpus"))
	viper.BindPFlag("corpus.dsn", resolveCmd.Flags().Lookup("corpus-dsn"))
}

func runResolve(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.stop()

	in, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	repos, skipped, err := resolve.ReadRepoList(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("failed to read repository list: %w", err)
	}
	for _, e := range skipped {
		s.logger.Warn("skipping repository entry", "error", e)
	}

	idx, err := loadIndex(s, s.cfg.Corpus)
	if err != nil {
		return err
	}

	onProgress, finish := progress(cmd, "Resolving repositories")
	results, runErr := resolve.Run(s.ctx, repos, idx, resolve.Options{
		Workers:  s.cfg.Workers,
		Logger:   s.logger,
		Progress: onProgress,
	})
	finish()

	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := saveResolutions(s, store, results); err != nil {
		return err
	}

	paths, err := report.WriteResolutions(s.cfg.OutputDir, results)
	if err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}

	written := []string{filepath.Base(paths.Resolved), filepath.Base(paths.Missing), filepath.Base(paths.Review)}
	fmt.Fprintln(cmd.OutOrStdout(), ui.ResolveSummary(resolve.Count(results), written))

	if runErr != nil {
		s.logger.Warn("resolution stopped early, outputs hold finished repositories only", "error", runErr)
	}
	return nil
}

func loadIndex(s *session, c config.Corpus) (*corpus.Index, error) {
	var src corpus.Source
	switch strings.ToLower(c.Type) {
	case "", "json":
		src = corpus.NewJSONDir(c.Path, s.cfg.Workers, s.logger)
	default:
		sqlSrc, err := corpus.OpenSQL(strings.ToLower(c.Type), c.DSN)
		if err != nil {
			return nil, err
		}
		defer sqlSrc.Close()
		src = sqlSrc
	}
	return corpus.Load(s.ctx, src, s.logger)
}

func saveResolutions(s *session, store db.Store, results []model.Resolution) error {
	for _, r := range results {
		rec := db.ResolutionRecord{
			Repo:    r.Repo.Slug(),
			Bucket:  string(r.Bucket),
			Vendor:  r.Vendor,
			Product: r.Product,
		}
		if r.Bucket != model.BucketMissing {
			rec.Tier = r.Tier.String()
		}
		if len(r.Candidates) > 0 {
			pairs := make([]string, len(r.Candidates))
			for i, c := range r.Candidates {
				pairs[i] = c.String()
			}
			blob, err := json.Marshal(pairs)
			if err != nil {
				return fmt.Errorf("failed to encode candidates of %s: %w", r.Repo, err)
			}
			rec.Candidates = string(blob)
		}
		// Finished results are kept after an interrupt.
		if err := store.SaveResolution(context.WithoutCancel(s.ctx), rec); err != nil {
			s.logger.Error("failed to save resolution", "repo", rec.Repo, "error", err)
			return err
		}
	}
	return nil
}
