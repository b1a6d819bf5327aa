package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"cveorigin/internal/report"
	"cveorigin/internal/szz"
	"cveorigin/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	originRepoPath string
	originCommit   string
	originCVE      string
	originResume   bool
)

var originCmd = &cobra.Command{
	Use:   "origin [fix-list.json]",
	Short: "Find the commits that introduced vulnerabilities",
	Long: `Traces each fix commit back through git blame to its most likely introducing commit.

The fix list is a JSON array of {"cve_id", "repo", "commit"} objects whose working
copies live under repos_dir. A single commit can be traced with --repo-path and --commit.
Results are written to origins.json in the output directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOrigin,
}

func init() {
	rootCmd.AddCommand(originCmd)
	originCmd.Flags().StringVar(&originRepoPath, "repo-path", "", "Working copy to trace a single commit in")
	originCmd.Flags().StringVar(&originCommit, "commit", "", "Fix commit to trace (with --repo-path)")
	originCmd.Flags().StringVar(&originCVE, "cve", "", "CVE id to label a single commit with")
	originCmd.Flags().BoolVar(&originResume, "resume", false, "Skip fix commits already in the result store")
	originCmd.Flags().String("repos-dir", "", "Root holding working copies as <owner>/<name> or <name>")
	originCmd.Flags().String("blame-timeout", "", "Time limit for each blame call (e.g. 60s)")
	originCmd.Flags().String("merge-parent", "", "Merge commits: first, all or skip")

	viper.BindPFlag("repos_dir", originCmd.Flags().Lookup("repos-dir"))
	viper.BindPFlag("blame_timeout", originCmd.Flags().Lookup("blame-timeout"))
	viper.BindPFlag("merge_parent", originCmd.Flags().Lookup("merge-parent"))
}

func runOrigin(cmd *cobra.Command, args []string) error {
	reqs, err := originRequests(args)
	if err != nil {
		return err
	}

	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.stop()

	if len(args) == 1 {
		in, err := openInput(cmd, args[0])
		if err != nil {
			return err
		}
		var skipped []error
		reqs, skipped, err = szz.ReadFixList(in)
		in.Close()
		if err != nil {
			return fmt.Errorf("failed to read fix list: %w", err)
		}
		for _, e := range skipped {
			s.logger.Warn("skipping fix entry", "error", e)
		}
	}

	store, err := s.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	onProgress, finish := progress(cmd, "Tracing vulnerability origins")
	results, runErr := szz.RunBatch(s.ctx, reqs, szz.BatchOptions{
		Workers:    s.cfg.Workers,
		ReposDir:   s.cfg.ReposDir,
		RepoPath:   originRepoPath,
		Timeout:    s.cfg.BlameTimeout,
		Policy:     s.cfg.MergeParent,
		Resume:     originResume,
		Checkpoint: szz.StoreCheckpoint{Store: store},
		Logger:     s.logger,
		Progress:   onProgress,
	})
	finish()

	path := filepath.Join(s.cfg.OutputDir, report.OriginsFile)
	if err := report.WriteOrigins(path, results); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.OriginSummary(szz.Summarize(results), filepath.Base(path)))

	if runErr != nil {
		s.logger.Warn("origin search stopped early, rerun with --resume to continue", "error", runErr)
	}
	return nil
}

// originRequests checks the input mode and builds the single-commit request.
func originRequests(args []string) ([]szz.Request, error) {
	switch {
	case len(args) == 1 && (originRepoPath != "" || originCommit != ""):
		return nil, errors.New("give either a fix list or --repo-path with --commit, not both")
	case len(args) == 1:
		return nil, nil
	case originRepoPath == "" || originCommit == "":
		return nil, errors.New("a fix list or both --repo-path and --commit are required")
	}
	return []szz.Request{{
		CVEID:  originCVE,
		Repo:   filepath.Base(filepath.Clean(originRepoPath)),
		Commit: originCommit,
	}}, nil
}
