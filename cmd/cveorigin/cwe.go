package main

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"

	"cveorigin/internal/report"
	"cveorigin/internal/vuln"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newLookup allows mocking
var newLookup = func(apiKey string, rate float64) vuln.Lookup {
	return vuln.NewNVDClient(apiKey, rate)
}

var cweCmd = &cobra.Command{
	Use:   "cwe <cve-list>",
	Short: "Look up CWE classifications of CVEs in the NVD",
	Long: `Reads CVE ids (one per line, '-' for stdin) and queries the NVD CVE API 2.0 for their
weaknesses. Writes cwe.tsv with one "CVE-ID<TAB>CWE,..." line per CVE. CVEs whose lookup
fails are written with an empty CWE list.`,
	Args: cobra.ExactArgs(1),
	RunE: runCWE,
}

func init() {
	rootCmd.AddCommand(cweCmd)
	cweCmd.Flags().String("nvd-api-key", "", "NVD API key (raises the rate limit)")
	cweCmd.Flags().Float64("nvd-rate", 0, "Requests per second (default: public NVD limit)")

	viper.BindPFlag("nvd.api_key", cweCmd.Flags().Lookup("nvd-api-key"))
	viper.BindPFlag("nvd.rate", cweCmd.Flags().Lookup("nvd-rate"))
}

func runCWE(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.stop()

	in, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	var ids []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		id := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if id == "" || strings.HasPrefix(id, "#") || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	in.Close()
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read CVE list: %w", err)
	}

	found, runErr := vuln.Fetch(s.ctx, newLookup(s.cfg.NVD.APIKey, s.cfg.NVD.Rate), ids, s.logger)

	entries := make([]report.CWEEntry, len(found))
	for i, w := range found {
		entries[i] = report.CWEEntry{CVEID: w.CVEID, CWEs: w.CWEs}
	}
	path := filepath.Join(s.cfg.OutputDir, report.CWEFile)
	if err := report.WriteCWE(path, entries); err != nil {
		return fmt.Errorf("failed to write outputs: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d CVEs to %s\n", len(entries), len(ids), path)

	if runErr != nil {
		s.logger.Warn("CWE lookup stopped early", "error", runErr)
	}
	return nil
}
