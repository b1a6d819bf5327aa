package config

import (
	"time"

	"cveorigin/internal/db"
	"cveorigin/internal/szz"

	"github.com/spf13/viper"
)

// Corpus selects where vulnerability records are read from.
type Corpus struct {
	Type string // "json", "postgres" or "sqlite"
	Path string // directory of CVE JSON files
	DSN  string // SQL connection string
}

// NVD configures the CWE lookups.
type NVD struct {
	APIKey string
	Rate   float64 // requests per second, 0 for the public default
}

// Config is the resolved configuration handed to every command.
type Config struct {
	Verbose      bool
	LogFile      string
	Workers      int
	BlameTimeout time.Duration
	MergeParent  szz.MergePolicy
	Corpus       Corpus
	ReposDir     string
	OutputDir    string
	Store        db.StoreConfig
	MetricsPort  int
	NVD          NVD
}

// FromViper validates the loaded values and builds a Config.
func FromViper() (Config, error) {
	if err := ValidateConfig(); err != nil {
		return Config{}, err
	}
	policy, _ := szz.ParseMergePolicy(viper.GetString("merge_parent"))
	return Config{
		Verbose:      viper.GetBool("verbose"),
		LogFile:      viper.GetString("log_file"),
		Workers:      viper.GetInt("workers"),
		BlameTimeout: duration("blame_timeout"),
		MergeParent:  policy,
		Corpus: Corpus{
			Type: viper.GetString("corpus.type"),
			Path: viper.GetString("corpus.path"),
			DSN:  viper.GetString("corpus.dsn"),
		},
		ReposDir:  viper.GetString("repos_dir"),
		OutputDir: viper.GetString("output_dir"),
		Store: db.StoreConfig{
			Type:             viper.GetString("store.type"),
			ConnectionString: viper.GetString("store.url"),
		},
		MetricsPort: viper.GetInt("metrics_port"),
		NVD: NVD{
			APIKey: viper.GetString("nvd.api_key"),
			Rate:   viper.GetFloat64("nvd.rate"),
		},
	}, nil
}

// duration reads key as a duration string, falling back to whole seconds.
func duration(key string) time.Duration {
	if d := viper.GetDuration(key); d != 0 {
		return d
	}
	return time.Duration(viper.GetInt(key)) * time.Second
}
