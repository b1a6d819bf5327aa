package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cveorigin/internal/szz"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	defer viper.Reset()

	t.Run("Defaults", func(t *testing.T) {
		viper.Reset()
		t.Chdir(t.TempDir())
		Load("")

		cfg, err := FromViper()
		require.NoError(t, err)
		assert.Equal(t, 60*time.Second, cfg.BlameTimeout)
		assert.Equal(t, szz.MergeFirst, cfg.MergeParent)
		assert.Equal(t, "json", cfg.Corpus.Type)
		assert.Equal(t, "sqlite", cfg.Store.Type)
		assert.Positive(t, cfg.Workers)
		assert.Zero(t, cfg.MetricsPort)
	})

	t.Run("Load From Env", func(t *testing.T) {
		viper.Reset()
		t.Chdir(t.TempDir())
		t.Setenv("CVEORIGIN_WORKERS", "3")
		t.Setenv("CVEORIGIN_CORPUS_TYPE", "postgres")
		t.Setenv("CVEORIGIN_CORPUS_DSN", "postgres://localhost/nvd")
		t.Setenv("NVD_API_KEY", "k")
		Load("")

		cfg, err := FromViper()
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, "postgres", cfg.Corpus.Type)
		assert.Equal(t, "postgres://localhost/nvd", cfg.Corpus.DSN)
		assert.Equal(t, "k", cfg.NVD.APIKey)
	})

	t.Run("Load From File", func(t *testing.T) {
		viper.Reset()
		dir := t.TempDir()
		t.Chdir(dir)
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("blame_timeout: 5s\nmerge_parent: all\nrepos_dir: /srv/repos\nstore:\n  type: postgres\n  url: postgres://db/origins\n"), 0644))
		Load(path)

		cfg, err := FromViper()
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.BlameTimeout)
		assert.Equal(t, szz.MergeAll, cfg.MergeParent)
		assert.Equal(t, "/srv/repos", cfg.ReposDir)
		assert.Equal(t, "postgres", cfg.Store.Type)
		assert.Equal(t, "postgres://db/origins", cfg.Store.ConnectionString)
	})

	t.Run("Dotenv", func(t *testing.T) {
		viper.Reset()
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CVEORIGIN_OUTPUT_DIR=from-dotenv\n"), 0644))
		t.Cleanup(func() { os.Unsetenv("CVEORIGIN_OUTPUT_DIR") })
		Load("")

		assert.Equal(t, "from-dotenv", viper.GetString("output_dir"))
	})
}
