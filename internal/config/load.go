package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// A missing .env is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("cveorigin")
	}

	viper.SetEnvPrefix("CVEORIGIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The NVD key is commonly exported without our prefix.
	if os.Getenv("CVEORIGIN_NVD_API_KEY") == "" && os.Getenv("NVD_API_KEY") != "" {
		viper.SetDefault("nvd.api_key", os.Getenv("NVD_API_KEY"))
	}

	SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", cfgFile, err)
	}
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("workers", runtime.NumCPU())
	viper.SetDefault("blame_timeout", "60s")
	viper.SetDefault("merge_parent", "first")
	viper.SetDefault("corpus.type", "json")
	viper.SetDefault("corpus.path", "cves")
	viper.SetDefault("repos_dir", "repos")
	viper.SetDefault("output_dir", "output")
	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.url", "")
	viper.SetDefault("metrics_port", 0)
	viper.SetDefault("nvd.rate", 0)
}
